// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package logger

import "strings"

// Level is an enumeration of the severity levels this core logs at. Order
// matters: a component's configured Level gates anything more verbose than
// itself.
type Level int

const (
	// LevelOff suppresses logging for a component entirely.
	LevelOff Level = iota
	// LevelInfo covers high-level connection lifecycle events: open,
	// handshake result, close, and why.
	LevelInfo
	// LevelDebug covers per-command dispatch and reply routing, which can
	// be voluminous.
	LevelDebug
)

var levelLiteralMap = map[string]Level{
	"off":   LevelOff,
	"info":  LevelInfo,
	"debug": LevelDebug,
}

// ParseLevel maps an environment-variable-style literal to a Level,
// defaulting to LevelOff for anything unrecognized.
func ParseLevel(str string) Level {
	if lvl, ok := levelLiteralMap[strings.ToLower(str)]; ok {
		return lvl
	}
	return LevelOff
}
