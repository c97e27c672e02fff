// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package compressor

// noop is the identity compressor, wire id 0. PickForSession falls back to
// it when no advertised compressor is available locally.
type noop struct{}

func (noop) Name() string { return "noop" }
func (noop) ID() byte     { return 0 }

func (noop) Compress(data []byte) ([]byte, error) {
	return data, nil
}

func (noop) Decompress(data []byte, uncompressedSize int32) ([]byte, error) {
	return data, nil
}
