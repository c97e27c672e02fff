// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package mongolet is a natively asynchronous MongoDB wire-protocol core: it
// multiplexes many logical requests over a single TCP connection, encodes
// commands as BSON-framed OP_MSG (optionally OP_COMPRESSED), and dispatches
// replies by correlation id. See the wire, compressor, driver, command and
// mongo sub-packages for the layers built on top of it.
package mongolet

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
)

// NotReady is returned when an operation is attempted on a connection that
// is not Ready: its handshake has not completed yet, or it has since been
// closed.
var NotReady = errors.New("mongolet: connection is not ready")

// CursorIsEmpty is returned by Collection.FindOne when nothing matched, and
// by Cursor.Decode when there is no current document to decode.
var CursorIsEmpty = errors.New("mongolet: cursor is empty")

// ProtocolError indicates a violation of the wire protocol: an unknown
// opcode, an unknown flag bit, a malformed section, more than one Body
// section, or a decompressed-length mismatch. It is always fatal to the
// connection that produced it.
type ProtocolError struct {
	Reason  string
	Wrapped error
}

func (e *ProtocolError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("mongolet: protocol error: %s: %v", e.Reason, e.Wrapped)
	}
	return fmt.Sprintf("mongolet: protocol error: %s", e.Reason)
}

// Unwrap allows errors.Is/errors.As to see through to the underlying cause.
func (e *ProtocolError) Unwrap() error { return e.Wrapped }

// NewProtocolError builds a ProtocolError with no underlying cause.
func NewProtocolError(reason string) *ProtocolError {
	return &ProtocolError{Reason: reason}
}

// WrapProtocolError builds a ProtocolError around an underlying cause, such
// as a bson.Unmarshal failure while decoding a section.
func WrapProtocolError(reason string, err error) *ProtocolError {
	return &ProtocolError{Reason: reason, Wrapped: err}
}

// UnsupportedFeature is raised for a structurally valid but unimplemented
// wire feature, e.g. an OP_MSG section kind other than 0/1, or a reply with
// more_to_come set. It is a type of its own, not a *ProtocolError, but is
// just as fatal to the connection.
type UnsupportedFeature struct {
	Feature string
}

func (e *UnsupportedFeature) Error() string {
	return fmt.Sprintf("mongolet: unsupported feature: %s", e.Feature)
}

// CompressorUnavailable is returned when a reply arrives compressed with an
// id the connection did not negotiate support for. This is a configuration
// bug rather than a transient condition, so it is treated the same as
// ProtocolError.
type CompressorUnavailable struct {
	ID byte
}

func (e *CompressorUnavailable) Error() string {
	return fmt.Sprintf("mongolet: compressor id %d not available on this connection", e.ID)
}

// IoError wraps a socket error or unexpected EOF encountered by the
// multiplexer's reader loop or writer path. Like ProtocolError, it is fatal
// to the connection.
type IoError struct {
	Wrapped error
}

func (e *IoError) Error() string { return fmt.Sprintf("mongolet: io error: %v", e.Wrapped) }
func (e *IoError) Unwrap() error { return e.Wrapped }

// DatabaseError is raised by the command channel when a server reply's "ok"
// field is not 1. The full reply document is preserved so callers can
// inspect code/codeName/errmsg the way the server intended.
type DatabaseError struct {
	Reply bson.Raw
}

func (e *DatabaseError) Error() string {
	var body struct {
		CodeName string `bson:"codeName"`
		ErrMsg   string `bson:"errmsg"`
		Code     int32  `bson:"code"`
	}
	if err := bson.Unmarshal(e.Reply, &body); err != nil || (body.ErrMsg == "" && body.CodeName == "") {
		return fmt.Sprintf("mongolet: database error: %s", e.Reply.String())
	}
	return fmt.Sprintf("mongolet: database error: %s (code %d %s)", body.ErrMsg, body.Code, body.CodeName)
}

// NewDatabaseError builds a DatabaseError from a reply document that failed
// its ok-field check.
func NewDatabaseError(reply bson.Raw) *DatabaseError {
	return &DatabaseError{Reply: reply}
}
