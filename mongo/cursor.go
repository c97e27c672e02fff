// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package mongo

import (
	"context"
	"strings"

	"github.com/mongolet/mongolet"
	"github.com/mongolet/mongolet/command"
	"go.mongodb.org/mongo-driver/bson"
)

// Cursor iterates the results of a find/aggregate reply: it hides the
// first batch (returned inline) and every later batch (fetched with
// getMore) behind a single Next/Decode loop.
type Cursor struct {
	channel *command.Channel
	db      string
	ns      string

	id    int64
	batch []bson.Raw
	pos   int

	current bson.Raw
	err     error
}

func newCursor(channel *command.Channel, db string, reply bson.Raw) (*Cursor, error) {
	batch, id, ns, err := parseCursorReply(reply, "firstBatch")
	if err != nil {
		return nil, err
	}
	return &Cursor{channel: channel, db: db, ns: ns, id: id, batch: batch}, nil
}

// Next advances to the next document, issuing a getMore against the server
// when the current batch is exhausted but the server-side cursor (id != 0)
// isn't. It returns false at end of stream or on error; check Err to tell
// the two apart.
func (c *Cursor) Next(ctx context.Context) bool {
	if c.err != nil {
		return false
	}
	for {
		if c.pos < len(c.batch) {
			c.current = c.batch[c.pos]
			c.pos++
			return true
		}
		if c.id == 0 {
			return false
		}

		// The server may return an empty nextBatch with a live cursor id,
		// so keep asking until documents arrive or the id goes to zero.
		cmd := bson.D{
			{Key: "getMore", Value: c.id},
			{Key: "collection", Value: c.ns},
		}
		reply, err := c.channel.Run(ctx, c.db, cmd, "")
		if err != nil {
			c.err = err
			return false
		}
		batch, id, _, err := parseCursorReply(reply, "nextBatch")
		if err != nil {
			c.err = err
			return false
		}
		c.batch, c.pos, c.id = batch, 0, id
	}
}

// Decode unmarshals the document Next last advanced to into v.
func (c *Cursor) Decode(v interface{}) error {
	if c.current == nil {
		return mongolet.CursorIsEmpty
	}
	return bson.Unmarshal(c.current, v)
}

// Err returns the first error that stopped iteration, if any.
func (c *Cursor) Err() error { return c.err }

// Close kills the server-side cursor if one is still open. It is a no-op
// once the cursor has been exhausted (id == 0).
func (c *Cursor) Close(ctx context.Context) error {
	if c.id == 0 {
		return nil
	}
	cmd := bson.D{
		{Key: "killCursors", Value: collectionFromNamespace(c.ns)},
		{Key: "cursors", Value: bson.A{c.id}},
	}
	_, err := c.channel.Run(ctx, c.db, cmd, "")
	c.id = 0
	return err
}

func parseCursorReply(reply bson.Raw, batchField string) (batch []bson.Raw, id int64, ns string, err error) {
	cursorVal, err := reply.LookupErr("cursor")
	if err != nil {
		return nil, 0, "", err
	}
	cursorDoc, ok := cursorVal.DocumentOK()
	if !ok {
		return nil, 0, "", mongolet.NewProtocolError("cursor field is not a document")
	}

	if idVal, err := cursorDoc.LookupErr("id"); err == nil {
		if n, ok := idVal.Int64OK(); ok {
			id = n
		} else if n, ok := idVal.Int32OK(); ok {
			id = int64(n)
		}
	}
	if nsVal, err := cursorDoc.LookupErr("ns"); err == nil {
		ns, _ = nsVal.StringValueOK()
	}

	batchVal, err := cursorDoc.LookupErr(batchField)
	if err != nil {
		return nil, id, ns, nil
	}
	arr, ok := batchVal.ArrayOK()
	if !ok {
		return nil, id, ns, mongolet.NewProtocolError(batchField + " field is not an array")
	}
	elems, err := arr.Elements()
	if err != nil {
		return nil, id, ns, err
	}
	batch = make([]bson.Raw, 0, len(elems))
	for _, elem := range elems {
		v, err := elem.ValueErr()
		if err != nil {
			continue
		}
		if doc, ok := v.DocumentOK(); ok {
			batch = append(batch, bson.Raw(doc))
		}
	}
	return batch, id, ns, nil
}

func collectionFromNamespace(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}
