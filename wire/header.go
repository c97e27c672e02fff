// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package wire is the pure codec layer of the MongoDB wire protocol: it
// knows how to turn a BSON command document (plus an optional batch of
// documents to ship as a Type-1 section) into OP_MSG bytes, how to wrap
// those bytes in an OP_COMPRESSED envelope, and how to parse both back. It
// performs no I/O; see package driver for the socket-owning multiplexer.
package wire

import (
	"encoding/binary"
	"io"
)

// HeaderLen is the fixed size of a MessageHeader on the wire.
const HeaderLen = 16

// OpCode identifies the shape of the payload that follows a MessageHeader.
type OpCode int32

const (
	// OpMsg is the only general-purpose opcode this core speaks.
	OpMsg OpCode = 2013
	// OpCompressed wraps an OpMsg (or, historically, other opcodes) payload
	// behind a compression envelope.
	OpCompressed OpCode = 2012
)

func (c OpCode) String() string {
	switch c {
	case OpMsg:
		return "OP_MSG"
	case OpCompressed:
		return "OP_COMPRESSED"
	default:
		return "unknown opcode"
	}
}

// Header is the 16-byte little-endian preamble of every wire message.
type Header struct {
	MessageLength int32
	RequestID     int32
	ResponseTo    int32
	OpCode        OpCode
}

// AppendHeader appends the encoded header to dst.
func (h Header) AppendHeader(dst []byte) []byte {
	dst = appendi32(dst, h.MessageLength)
	dst = appendi32(dst, h.RequestID)
	dst = appendi32(dst, h.ResponseTo)
	dst = appendi32(dst, int32(h.OpCode))
	return dst
}

// DecodeHeader reads exactly HeaderLen bytes from r and parses them.
func DecodeHeader(r io.Reader) (Header, error) {
	var buf [HeaderLen]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return Header{}, err
	}
	return Header{
		MessageLength: int32(binary.LittleEndian.Uint32(buf[0:4])),
		RequestID:     int32(binary.LittleEndian.Uint32(buf[4:8])),
		ResponseTo:    int32(binary.LittleEndian.Uint32(buf[8:12])),
		OpCode:        OpCode(int32(binary.LittleEndian.Uint32(buf[12:16]))),
	}, nil
}

func appendi32(dst []byte, v int32) []byte {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(v))
	return append(dst, buf[:]...)
}

func readi32(b []byte) (int32, []byte, bool) {
	if len(b) < 4 {
		return 0, b, false
	}
	return int32(binary.LittleEndian.Uint32(b[:4])), b[4:], true
}

func readu32(b []byte) (uint32, []byte, bool) {
	if len(b) < 4 {
		return 0, b, false
	}
	return binary.LittleEndian.Uint32(b[:4]), b[4:], true
}

func readu8(b []byte) (byte, []byte, bool) {
	if len(b) < 1 {
		return 0, b, false
	}
	return b[0], b[1:], true
}

// readCString reads bytes up to and including a trailing NUL and returns the
// string without the terminator.
func readCString(b []byte) (string, []byte, bool) {
	for i, c := range b {
		if c == 0 {
			return string(b[:i]), b[i+1:], true
		}
	}
	return "", b, false
}

// bsonDocLen peeks the 4-byte little-endian length prefix that begins every
// BSON document, the way bsoncore.ReadLength does in the upstream driver.
func bsonDocLen(b []byte) (int32, bool) {
	if len(b) < 4 {
		return 0, false
	}
	return int32(binary.LittleEndian.Uint32(b[:4])), true
}
