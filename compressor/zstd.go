// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package compressor

import "github.com/klauspost/compress/zstd"

// zstdCompressor is wire id 3, backed by klauspost/compress/zstd. Encoder
// and decoder are built once and reused; EncodeAll/DecodeAll are safe for
// concurrent use.
type zstdCompressor struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

func newZstd() Compressor {
	enc, _ := zstd.NewWriter(nil)
	dec, _ := zstd.NewReader(nil)
	return &zstdCompressor{enc: enc, dec: dec}
}

func (*zstdCompressor) Name() string { return "zstd" }
func (*zstdCompressor) ID() byte     { return 3 }

func (z *zstdCompressor) Compress(data []byte) ([]byte, error) {
	return z.enc.EncodeAll(data, make([]byte, 0, len(data))), nil
}

func (z *zstdCompressor) Decompress(data []byte, uncompressedSize int32) ([]byte, error) {
	return z.dec.DecodeAll(data, make([]byte, 0, uncompressedSize))
}
