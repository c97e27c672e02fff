// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package wire

import (
	"encoding/binary"

	"github.com/mongolet/mongolet"
	"go.mongodb.org/mongo-driver/bson"
)

// Sequence is a Type-1 OP_MSG section: an identifier (e.g. "documents") and
// the list of BSON documents that travel under it instead of being embedded
// in the Body. EncodeOpMsg splits Documents into chunks of at most the
// caller-supplied max batch size, each chunk becoming its own section with
// the same identifier.
type Sequence struct {
	Identifier string
	Documents  []bson.Raw
}

// Decompressor is the callback EncodeOpMsg's counterpart, DecodeMessage,
// uses to undo an OP_COMPRESSED envelope. Implementations live in package
// compressor; this interface keeps wire free of any I/O or CPU-offload
// concerns of its own.
type Decompressor interface {
	Decompress(id byte, compressed []byte, uncompressedSize int32) ([]byte, error)
}

func appendu32(dst []byte, v uint32) []byte {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	return append(dst, buf[:]...)
}

// EncodeOpMsg builds the flags + section stream of an OP_MSG body (the
// 16-byte message header is added by the driver package once a request id
// has been assigned). If seq is non-nil, the field named seq.Identifier is
// stripped out of body first -- seq's documents travel as Type-1 sections
// instead, MongoDB's batching optimization. A seq with no documents emits
// no Type-1 section.
func EncodeOpMsg(body bson.Raw, seq *Sequence, flags MsgFlags, maxBatch int) ([]byte, error) {
	if !flags.validate() {
		return nil, mongolet.NewProtocolError("unknown OP_MSG flag bit set on encode")
	}

	if seq != nil && seq.Identifier != "" {
		stripped, err := stripField(body, seq.Identifier)
		if err != nil {
			return nil, mongolet.WrapProtocolError("stripping document-sequence field from body", err)
		}
		body = stripped
	}

	out := appendu32(make([]byte, 0, len(body)+16), uint32(flags))
	out = append(out, byte(sectionBody))
	out = append(out, body...)

	if seq != nil && len(seq.Documents) > 0 {
		batchSize := maxBatch
		if batchSize <= 0 {
			batchSize = len(seq.Documents)
		}
		for start := 0; start < len(seq.Documents); start += batchSize {
			end := start + batchSize
			if end > len(seq.Documents) {
				end = len(seq.Documents)
			}
			out = append(out, encodeSequenceSection(seq.Identifier, seq.Documents[start:end])...)
		}
	}

	return out, nil
}

func encodeSequenceSection(identifier string, docs []bson.Raw) []byte {
	identBytes := append([]byte(identifier), 0x00)
	docsLen := 0
	for _, d := range docs {
		docsLen += len(d)
	}
	size := int32(4 + len(identBytes) + docsLen)

	section := make([]byte, 0, 1+4+len(identBytes)+docsLen)
	section = append(section, byte(sectionSequence))
	section = appendi32(section, size)
	section = append(section, identBytes...)
	for _, d := range docs {
		section = append(section, d...)
	}
	return section
}

// EncodeCompressed wraps an already-encoded OP_MSG payload in the
// OP_COMPRESSED envelope: original opcode, uncompressed size, compressor id,
// compressed bytes.
func EncodeCompressed(originalOpcode OpCode, uncompressed []byte, compressorID byte, compressed []byte) []byte {
	out := make([]byte, 0, 9+len(compressed))
	out = appendi32(out, int32(originalOpcode))
	out = appendi32(out, int32(len(uncompressed)))
	out = append(out, compressorID)
	out = append(out, compressed...)
	return out
}

// DecodeMessage parses the payload that followed header on the wire,
// undoing compression first if the opcode is OP_COMPRESSED, then decoding
// the OP_MSG section stream into a single merged BSON document (Document
// Sequences are attached under their identifier as a list).
func DecodeMessage(header Header, payload []byte, dc Decompressor) (bson.Raw, error) {
	opcode := header.OpCode

	if opcode == OpCompressed {
		originalOpcode, rest, ok := readi32(payload)
		if !ok {
			return nil, mongolet.NewProtocolError("truncated OP_COMPRESSED envelope")
		}
		uncompressedSize, rest, ok := readi32(rest)
		if !ok {
			return nil, mongolet.NewProtocolError("truncated OP_COMPRESSED envelope")
		}
		compressorID, rest, ok := readu8(rest)
		if !ok {
			return nil, mongolet.NewProtocolError("truncated OP_COMPRESSED envelope")
		}

		decompressed, err := dc.Decompress(compressorID, rest, uncompressedSize)
		if err != nil {
			return nil, err
		}
		if int32(len(decompressed)) != uncompressedSize {
			return nil, mongolet.NewProtocolError("decompressed length does not match uncompressed_size")
		}

		opcode = OpCode(originalOpcode)
		payload = decompressed
	}

	if opcode != OpMsg {
		return nil, mongolet.NewProtocolError("unsupported opcode on inbound message")
	}

	flagsRaw, rest, ok := readu32(payload)
	if !ok {
		return nil, mongolet.NewProtocolError("truncated OP_MSG flags")
	}
	flags := MsgFlags(flagsRaw)
	if !flags.validate() {
		return nil, mongolet.NewProtocolError("unknown OP_MSG flag bit set")
	}
	if flags.Has(FlagMoreToCome) {
		return nil, &mongolet.UnsupportedFeature{Feature: "more_to_come streamed replies"}
	}
	if flags.Has(FlagChecksumPresent) {
		// The last 4 bytes are a CRC-32C over the whole message. It is not
		// verified, only trimmed so the section scan ends where it should.
		if len(rest) < 4 {
			return nil, mongolet.NewProtocolError("checksum_present set but message too short for a checksum")
		}
		rest = rest[:len(rest)-4]
	}

	var body bson.Raw
	haveBody := false
	seqOrder := make([]string, 0, 1)
	seqDocs := make(map[string][]bson.Raw)

	for len(rest) > 0 {
		kindByte, tail, ok := readu8(rest)
		if !ok {
			return nil, mongolet.NewProtocolError("truncated OP_MSG section kind")
		}
		rest = tail

		switch sectionKind(kindByte) {
		case sectionBody:
			if haveBody {
				return nil, mongolet.NewProtocolError("more than one Body section in OP_MSG")
			}
			docLen, ok := bsonDocLen(rest)
			if !ok || int(docLen) > len(rest) || docLen < 4 {
				return nil, mongolet.NewProtocolError("malformed Body section length")
			}
			body = bson.Raw(rest[:docLen])
			rest = rest[docLen:]
			haveBody = true

		case sectionSequence:
			if !haveBody {
				return nil, mongolet.NewProtocolError("document sequence section before Body section")
			}
			size, tail, ok := readi32(rest)
			if !ok || int(size) < 4 || int(size)-4 > len(tail) {
				return nil, mongolet.NewProtocolError("malformed document-sequence size")
			}
			sectionBytes := tail[:size-4]
			rest = tail[size-4:]

			identifier, remainder, ok := readCString(sectionBytes)
			if !ok {
				return nil, mongolet.NewProtocolError("document-sequence identifier missing NUL terminator")
			}

			docs, err := decodeAll(remainder)
			if err != nil {
				return nil, mongolet.WrapProtocolError("decoding document-sequence documents", err)
			}

			if _, seen := seqDocs[identifier]; !seen {
				seqOrder = append(seqOrder, identifier)
			}
			seqDocs[identifier] = append(seqDocs[identifier], docs...)

		default:
			return nil, &mongolet.UnsupportedFeature{Feature: "OP_MSG section kind other than 0/1"}
		}
	}

	if !haveBody {
		return nil, mongolet.NewProtocolError("OP_MSG carried no Body section")
	}

	return mergeSequences(body, seqOrder, seqDocs)
}

// decodeAll splits a back-to-back concatenation of BSON documents into
// individual bson.Raw values, consuming exactly len(b) bytes.
func decodeAll(b []byte) ([]bson.Raw, error) {
	var docs []bson.Raw
	for len(b) > 0 {
		docLen, ok := bsonDocLen(b)
		if !ok || int(docLen) > len(b) || docLen < 5 {
			return nil, mongolet.NewProtocolError("malformed document in sequence")
		}
		docs = append(docs, bson.Raw(b[:docLen]))
		b = b[docLen:]
	}
	return docs, nil
}
