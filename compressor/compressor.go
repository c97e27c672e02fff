// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package compressor maps compressor name <-> wire id <-> implementation and
// negotiates the per-connection choice. Compress/Decompress are plain,
// synchronous functions here; CPU offload lives in Offloader so callers can
// choose where the bounded worker pool is shared (one per connection, one
// per process, ...).
package compressor

// Compressor is a named, numbered implementation of a wire compression
// algorithm.
type Compressor interface {
	Name() string
	ID() byte
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte, uncompressedSize int32) ([]byte, error)
}

// Registry is the static name/id/implementation table for wire compression.
// Ids are part of the wire protocol and never change; noop and zlib are
// always available, snappy and zstd depend on whether their backing library
// was compiled in (in this build, both are direct dependencies, so both are
// always available).
type Registry struct {
	byName map[string]Compressor
	byID   map[byte]Compressor
	order  []Compressor
}

// NewRegistry builds the registry with all four well-known compressors.
func NewRegistry() *Registry {
	r := &Registry{
		byName: make(map[string]Compressor),
		byID:   make(map[byte]Compressor),
	}
	for _, c := range []Compressor{noop{}, newZlib(), newSnappy(), newZstd()} {
		r.register(c)
	}
	return r
}

func (r *Registry) register(c Compressor) {
	r.byName[c.Name()] = c
	r.byID[c.ID()] = c
	r.order = append(r.order, c)
}

// ListAvailable returns the names of compressors usable at runtime, always
// including "noop" and "zlib".
func (r *Registry) ListAvailable() []string {
	names := make([]string, 0, len(r.order))
	for _, c := range r.order {
		names = append(names, c.Name())
	}
	return names
}

// ByID looks up a compressor by its on-wire id, as decode_message must when
// unwrapping an OP_COMPRESSED envelope.
func (r *Registry) ByID(id byte) (Compressor, bool) {
	c, ok := r.byID[id]
	return c, ok
}

// ByName looks up a compressor by name.
func (r *Registry) ByName(name string) (Compressor, bool) {
	c, ok := r.byName[name]
	return c, ok
}

// PickForSession walks serverSupported in the order the server presented
// it and returns the first name with a locally available implementation.
// If none match, it returns the always-available noop compressor with id
// 0, which effectively suppresses compression for the session.
func (r *Registry) PickForSession(serverSupported []string) (Compressor, byte) {
	for _, name := range serverSupported {
		if c, ok := r.byName[name]; ok && c.Name() != "noop" {
			return c, c.ID()
		}
	}
	n := r.byName["noop"]
	return n, n.ID()
}
