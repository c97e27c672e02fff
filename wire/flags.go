// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package wire

// MsgFlags is the u32 bitfield that begins every OP_MSG body.
type MsgFlags uint32

const (
	// FlagChecksumPresent marks a trailing CRC-32C on the message.
	FlagChecksumPresent MsgFlags = 1 << 0
	// FlagMoreToCome marks a streamed reply. Unsupported by this core:
	// DecodeMessage rejects a reply with it set as an UnsupportedFeature.
	FlagMoreToCome MsgFlags = 1 << 1
	// FlagExhaustAllowed marks a client's willingness to receive a stream
	// of replies to a single request (exhaust cursors).
	FlagExhaustAllowed MsgFlags = 1 << 16
)

// knownFlags is the union of every bit this core understands; any other set
// bit is a protocol violation.
const knownFlags = FlagChecksumPresent | FlagMoreToCome | FlagExhaustAllowed

// validate reports whether f sets only known bits.
func (f MsgFlags) validate() bool {
	return f&^knownFlags == 0
}

// Has reports whether the given bit is set.
func (f MsgFlags) Has(bit MsgFlags) bool { return f&bit != 0 }

// sectionKind identifies an OP_MSG section.
type sectionKind byte

const (
	sectionBody     sectionKind = 0
	sectionSequence sectionKind = 1
)
