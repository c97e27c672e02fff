// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package driver

import (
	"github.com/mongolet/mongolet/compressor"
	"github.com/mongolet/mongolet/internal/logger"
	"go.uber.org/zap"
)

type config struct {
	registry *compressor.Registry
	offload  *compressor.Offloader
	log      *logger.Logger
}

// defaultLevels: connection lifecycle logs at Info, per-command routing
// stays quiet unless a caller asks for it via WithLogger.
func defaultLevels() map[logger.Component]logger.Level {
	return map[logger.Component]logger.Level{
		logger.ComponentConnection: logger.LevelInfo,
	}
}

func newConfig(opts ...Option) *config {
	zl, _ := zap.NewProduction()
	cfg := &config{
		registry: compressor.NewRegistry(),
		offload:  compressor.NewOffloader(4),
		log:      logger.NewZap(zl, defaultLevels()),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Option configures a Connection at Open time.
type Option func(*config)

// WithRegistry overrides the compressor registry (mainly for tests that
// want to simulate a compressor being unavailable).
func WithRegistry(r *compressor.Registry) Option {
	return func(c *config) { c.registry = r }
}

// WithOffloadConcurrency bounds how many (de)compressions run at once.
func WithOffloadConcurrency(n int64) Option {
	return func(c *config) { c.offload = compressor.NewOffloader(n) }
}

// WithLogger attaches a logger for connection-lifecycle and per-reply
// events.
func WithLogger(l *logger.Logger) Option {
	return func(c *config) { c.log = l }
}
