// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package wire

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mongolet/mongolet"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

type noopDecompressor struct{}

func (noopDecompressor) Decompress(id byte, compressed []byte, uncompressedSize int32) ([]byte, error) {
	return compressed, nil
}

func mustMarshal(t *testing.T, v interface{}) bson.Raw {
	t.Helper()
	raw, err := bson.Marshal(v)
	require.NoError(t, err)
	return raw
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	body := mustMarshal(t, bson.D{{Key: "ping", Value: 1}})

	payload, err := EncodeOpMsg(body, nil, 0, 1000)
	require.NoError(t, err)

	header := Header{MessageLength: int32(HeaderLen + len(payload)), RequestID: 7, OpCode: OpMsg}
	decoded, err := DecodeMessage(header, payload, noopDecompressor{})
	require.NoError(t, err)

	var out bson.D
	require.NoError(t, bson.Unmarshal(decoded, &out))
	want := bson.D{{Key: "ping", Value: int32(1)}}
	if diff := cmp.Diff(want, out); diff != "" {
		t.Fatalf("decoded body mismatch (-want +got):\n%s", diff)
	}
}

// walkSections splits an encoded OP_MSG payload into its Body document and
// Type-1 sections without going through DecodeMessage, so tests can assert
// on the on-wire layout itself.
func walkSections(t *testing.T, payload []byte) (bson.Raw, [][]bson.Raw) {
	t.Helper()
	rest := payload[4:]
	var body bson.Raw
	var seqs [][]bson.Raw
	for len(rest) > 0 {
		kind := rest[0]
		rest = rest[1:]
		switch sectionKind(kind) {
		case sectionBody:
			n, ok := bsonDocLen(rest)
			require.True(t, ok)
			body = bson.Raw(rest[:n])
			rest = rest[n:]
		case sectionSequence:
			size, tail, ok := readi32(rest)
			require.True(t, ok)
			sec := tail[:size-4]
			rest = tail[size-4:]
			_, docBytes, ok := readCString(sec)
			require.True(t, ok)
			docs, err := decodeAll(docBytes)
			require.NoError(t, err)
			seqs = append(seqs, docs)
		default:
			t.Fatalf("unexpected section kind %d", kind)
		}
	}
	return body, seqs
}

func TestEncodeDecodeDocumentSequence(t *testing.T) {
	body := mustMarshal(t, bson.D{
		{Key: "insert", Value: "widgets"},
		{Key: "documents", Value: bson.A{}},
	})

	docs := []bson.Raw{
		mustMarshal(t, bson.D{{Key: "_id", Value: 1}}),
		mustMarshal(t, bson.D{{Key: "_id", Value: 2}}),
		mustMarshal(t, bson.D{{Key: "_id", Value: 3}}),
	}
	seq := &Sequence{Identifier: "documents", Documents: docs}

	payload, err := EncodeOpMsg(body, seq, 0, 1000)
	require.NoError(t, err)

	wireBody, seqs := walkSections(t, payload)
	_, lookupErr := wireBody.LookupErr("documents")
	require.Error(t, lookupErr, "documents must travel as a Type-1 section, not in the Body")
	require.Len(t, seqs, 1)
	require.Len(t, seqs[0], 3)

	header := Header{MessageLength: int32(HeaderLen + len(payload)), OpCode: OpMsg}
	decoded, err := DecodeMessage(header, payload, noopDecompressor{})
	require.NoError(t, err)

	var out struct {
		Insert    string     `bson:"insert"`
		Documents []bson.Raw `bson:"documents"`
	}
	require.NoError(t, bson.Unmarshal(decoded, &out))
	require.Len(t, out.Documents, 3)
}

func TestEncodeOpMsgSplitsBatches(t *testing.T) {
	body := mustMarshal(t, bson.D{{Key: "insert", Value: "widgets"}})
	docs := make([]bson.Raw, 5)
	for i := range docs {
		docs[i] = mustMarshal(t, bson.D{{Key: "_id", Value: i}})
	}
	seq := &Sequence{Identifier: "documents", Documents: docs}

	payload, err := EncodeOpMsg(body, seq, 0, 2)
	require.NoError(t, err)

	_, seqs := walkSections(t, payload)
	require.Len(t, seqs, 3)
	require.Len(t, seqs[0], 2)
	require.Len(t, seqs[1], 2)
	require.Len(t, seqs[2], 1)

	header := Header{MessageLength: int32(HeaderLen + len(payload)), OpCode: OpMsg}
	decoded, err := DecodeMessage(header, payload, noopDecompressor{})
	require.NoError(t, err)

	var out struct {
		Documents []bson.Raw `bson:"documents"`
	}
	require.NoError(t, bson.Unmarshal(decoded, &out))
	require.Len(t, out.Documents, 5)
}

func TestDecodeMessageTrimsChecksum(t *testing.T) {
	body := mustMarshal(t, bson.D{{Key: "ping", Value: 1}})
	payload, err := EncodeOpMsg(body, nil, FlagChecksumPresent, 1000)
	require.NoError(t, err)
	payload = append(payload, 0xde, 0xad, 0xbe, 0xef)

	header := Header{MessageLength: int32(HeaderLen + len(payload)), OpCode: OpMsg}
	decoded, err := DecodeMessage(header, payload, noopDecompressor{})
	require.NoError(t, err)

	var out bson.D
	require.NoError(t, bson.Unmarshal(decoded, &out))
	require.Equal(t, bson.D{{Key: "ping", Value: int32(1)}}, out)
}

func TestDecodeMessageRejectsUnknownFlagBit(t *testing.T) {
	body := mustMarshal(t, bson.D{{Key: "ping", Value: 1}})
	payload, err := EncodeOpMsg(body, nil, 0, 1000)
	require.NoError(t, err)
	payload[0] |= 0x04 // an unknown bit (bit 2) in the flags u32

	header := Header{MessageLength: int32(HeaderLen + len(payload)), OpCode: OpMsg}
	_, err = DecodeMessage(header, payload, noopDecompressor{})
	require.Error(t, err)
	var protoErr *mongolet.ProtocolError
	require.True(t, errors.As(err, &protoErr))
}

func TestDecodeMessageRejectsMoreToCome(t *testing.T) {
	body := mustMarshal(t, bson.D{{Key: "ping", Value: 1}})
	payload, err := EncodeOpMsg(body, nil, FlagMoreToCome, 1000)
	require.NoError(t, err)

	header := Header{MessageLength: int32(HeaderLen + len(payload)), OpCode: OpMsg}
	_, err = DecodeMessage(header, payload, noopDecompressor{})
	require.Error(t, err)
	var unsupported *mongolet.UnsupportedFeature
	require.True(t, errors.As(err, &unsupported))
}

func TestDecodeMessageRejectsNonOpMsgOpcode(t *testing.T) {
	header := Header{MessageLength: HeaderLen, OpCode: OpCode(1)}
	_, err := DecodeMessage(header, nil, noopDecompressor{})
	require.Error(t, err)
}

func TestEncodeCompressedRoundTrip(t *testing.T) {
	body := mustMarshal(t, bson.D{{Key: "ping", Value: 1}})
	payload, err := EncodeOpMsg(body, nil, 0, 1000)
	require.NoError(t, err)

	compressed := EncodeCompressed(OpMsg, payload, 9, payload)
	header := Header{MessageLength: int32(HeaderLen + len(compressed)), OpCode: OpCompressed}

	decoded, err := DecodeMessage(header, compressed, passthroughDecompressor{want: payload})
	require.NoError(t, err)

	var out bson.D
	require.NoError(t, bson.Unmarshal(decoded, &out))
	want := bson.D{{Key: "ping", Value: int32(1)}}
	if diff := cmp.Diff(want, out); diff != "" {
		t.Fatalf("decoded body mismatch (-want +got):\n%s", diff)
	}
}

type passthroughDecompressor struct {
	want []byte
}

func (p passthroughDecompressor) Decompress(id byte, compressed []byte, uncompressedSize int32) ([]byte, error) {
	return p.want, nil
}
