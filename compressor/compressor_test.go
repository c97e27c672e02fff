// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package compressor

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistryRoundTrip(t *testing.T) {
	r := NewRegistry()
	payload := []byte("the quick brown fox jumps over the lazy dog, repeated: the quick brown fox jumps over the lazy dog")

	for _, name := range []string{"noop", "zlib", "snappy", "zstd"} {
		c, ok := r.ByName(name)
		require.True(t, ok, name)

		compressed, err := c.Compress(payload)
		require.NoError(t, err, name)

		decompressed, err := c.Decompress(compressed, int32(len(payload)))
		require.NoError(t, err, name)
		require.Equal(t, payload, decompressed, name)

		byID, ok := r.ByID(c.ID())
		require.True(t, ok, name)
		require.Equal(t, c.Name(), byID.Name())
	}
}

func TestPickForSessionPrefersFirstMatch(t *testing.T) {
	r := NewRegistry()

	c, id := r.PickForSession([]string{"zstd", "snappy"})
	require.Equal(t, "zstd", c.Name())
	require.Equal(t, byte(3), id)
}

func TestPickForSessionFallsBackToNoop(t *testing.T) {
	r := NewRegistry()

	c, id := r.PickForSession([]string{"unknown-algorithm"})
	require.Equal(t, "noop", c.Name())
	require.Equal(t, byte(0), id)
}

func TestPickForSessionEmptyFallsBackToNoop(t *testing.T) {
	r := NewRegistry()

	c, _ := r.PickForSession(nil)
	require.Equal(t, "noop", c.Name())
}
