// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package command is the thin layer between a BSON command document and the
// multiplexer: it injects $db, hands the document (and optionally one of
// its list-valued fields, as a Document Sequence) to driver.Connection, and
// turns a non-ok reply into a DatabaseError.
package command

import (
	"context"

	"github.com/mongolet/mongolet"
	"github.com/mongolet/mongolet/driver"
	"github.com/mongolet/mongolet/wire"
	"go.mongodb.org/mongo-driver/bson"
)

// Channel runs commands against one connection on behalf of a default
// database, as a mongo.Database/mongo.Collection would.
type Channel struct {
	Conn      *driver.Connection
	DefaultDB string
}

// NewChannel builds a Channel bound to conn and a default database name
// used whenever a command document doesn't set $db itself.
func NewChannel(conn *driver.Connection, defaultDB string) *Channel {
	return &Channel{Conn: conn, DefaultDB: defaultDB}
}

// Run sends cmd as a command document, defaulting $db to db (or, if db is
// empty, to the channel's DefaultDB). If seqField names a list-valued field
// present in cmd, that field travels as a Document Sequence instead of
// being embedded in the Body -- a transport optimization with no semantic
// difference to the caller. A reply whose "ok" field isn't 1 comes back as
// a *mongolet.DatabaseError; the connection itself is unaffected.
func (ch *Channel) Run(ctx context.Context, db string, cmd bson.D, seqField string) (bson.Raw, error) {
	if db == "" {
		db = ch.DefaultDB
	}
	cmd = ensureDB(cmd, db)

	seq, err := extractSequence(cmd, seqField)
	if err != nil {
		return nil, err
	}

	body, err := bson.Marshal(cmd)
	if err != nil {
		return nil, err
	}

	reply, err := ch.Conn.SendAndWait(ctx, body, seq)
	if err != nil {
		return nil, err
	}

	if !isOK(reply) {
		return reply, mongolet.NewDatabaseError(reply)
	}
	return reply, nil
}

func ensureDB(cmd bson.D, db string) bson.D {
	for _, elem := range cmd {
		if elem.Key == "$db" {
			return cmd
		}
	}
	return append(cmd, bson.E{Key: "$db", Value: db})
}

// extractSequence pulls the list under field out of cmd (without mutating
// cmd -- wire.EncodeOpMsg strips it from the encoded Body independently)
// and turns it into a wire.Sequence of individually-marshaled documents.
func extractSequence(cmd bson.D, field string) (*wire.Sequence, error) {
	if field == "" {
		return nil, nil
	}
	for _, elem := range cmd {
		if elem.Key != field {
			continue
		}
		docs, err := toRawDocuments(elem.Value)
		if err != nil {
			return nil, err
		}
		return &wire.Sequence{Identifier: field, Documents: docs}, nil
	}
	return nil, nil
}

func toRawDocuments(v interface{}) ([]bson.Raw, error) {
	items, ok := v.(bson.A)
	if !ok {
		return nil, nil
	}
	docs := make([]bson.Raw, 0, len(items))
	for _, item := range items {
		if raw, ok := item.(bson.Raw); ok {
			docs = append(docs, raw)
			continue
		}
		raw, err := bson.Marshal(item)
		if err != nil {
			return nil, err
		}
		docs = append(docs, raw)
	}
	return docs, nil
}

func isOK(reply bson.Raw) bool {
	val, err := reply.LookupErr("ok")
	if err != nil {
		return false
	}
	if f, ok := val.DoubleOK(); ok {
		return f == 1
	}
	if i, ok := val.Int32OK(); ok {
		return i == 1
	}
	if i, ok := val.Int64OK(); ok {
		return i == 1
	}
	if b, ok := val.BooleanOK(); ok {
		return b
	}
	return false
}
