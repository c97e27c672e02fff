// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package logger is the driver's logging layer: a small Sink interface so
// the implementation behind it is swappable, and an async job queue so
// logging never blocks a caller on I/O. The default Sink is backed by
// go.uber.org/zap.
package logger

import "go.uber.org/zap"

const jobBufferSize = 100

// Sink is the logging implementation contract, a subset of go-logr/logr's
// LogSink shape: an integer verbosity plus a message and structured
// key/value pairs.
type Sink interface {
	Info(level int, msg string, keysAndValues ...interface{})
}

type job struct {
	level     Level
	component Component
	msg       string
	kv        []interface{}
}

// Logger is the core's logger. Component levels gate what actually reaches
// the Sink; anything more verbose than the configured level is dropped
// before it's ever formatted.
type Logger struct {
	ComponentLevels map[Component]Level
	Sink            Sink

	jobs chan job
}

// New constructs a Logger around an explicit Sink. If componentLevels is
// nil, every component logs at LevelOff.
func New(sink Sink, componentLevels map[Component]Level) *Logger {
	if componentLevels == nil {
		componentLevels = map[Component]Level{}
	}
	l := &Logger{
		ComponentLevels: componentLevels,
		Sink:            sink,
		jobs:            make(chan job, jobBufferSize),
	}
	go l.run()
	return l
}

// NewZap constructs a Logger backed by a zap.Logger, this core's default
// Sink implementation.
func NewZap(zl *zap.Logger, componentLevels map[Component]Level) *Logger {
	return New(zapSink{zl}, componentLevels)
}

func (l *Logger) run() {
	for j := range l.jobs {
		l.Sink.Info(int(j.level), j.component.String()+": "+j.msg, j.kv...)
	}
}

// Is reports whether component is configured to log at lvl or more
// verbose.
func (l *Logger) Is(lvl Level, component Component) bool {
	return l.ComponentLevels[component] >= lvl
}

// Print enqueues a log record if component is configured at lvl or more
// verbose. It never blocks the caller on the Sink; a background goroutine
// drains the job queue, and a full queue drops the record rather than
// stalling whoever is dispatching a command.
func (l *Logger) Print(lvl Level, component Component, msg string, kv ...interface{}) {
	if l == nil || l.Sink == nil || !l.Is(lvl, component) {
		return
	}
	// After Close the job channel is closed and a send on it panics; the
	// record is dropped instead, like one that finds the queue full.
	defer func() { _ = recover() }()
	select {
	case l.jobs <- job{level: lvl, component: component, msg: msg, kv: kv}:
	default:
	}
}

// Info logs at LevelInfo.
func (l *Logger) Info(component Component, msg string, kv ...interface{}) {
	l.Print(LevelInfo, component, msg, kv...)
}

// Debug logs at LevelDebug.
func (l *Logger) Debug(component Component, msg string, kv ...interface{}) {
	l.Print(LevelDebug, component, msg, kv...)
}

// Close stops the printer goroutine once it has handed the records already
// queued to the Sink. After Close, further Print calls are silently dropped.
func (l *Logger) Close() {
	close(l.jobs)
}

type zapSink struct {
	zl *zap.Logger
}

func (z zapSink) Info(level int, msg string, keysAndValues ...interface{}) {
	z.zl.Sugar().Infow(msg, keysAndValues...)
}
