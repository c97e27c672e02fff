// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package compressor

import "github.com/golang/snappy"

// snappyCompressor is wire id 1, backed by golang/snappy.
type snappyCompressor struct{}

func newSnappy() Compressor { return snappyCompressor{} }

func (snappyCompressor) Name() string { return "snappy" }
func (snappyCompressor) ID() byte     { return 1 }

func (snappyCompressor) Compress(data []byte) ([]byte, error) {
	return snappy.Encode(nil, data), nil
}

func (snappyCompressor) Decompress(data []byte, uncompressedSize int32) ([]byte, error) {
	dst := make([]byte, uncompressedSize)
	return snappy.Decode(dst, data)
}
