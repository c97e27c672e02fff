// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package mongo is the public, user-facing façade: Connect gets you a
// Client over one driver.Connection, a Client hands out Databases, and a
// Database hands out the Collections and Cursors that do the work.
package mongo

import (
	"context"

	"github.com/mongolet/mongolet"
	"github.com/mongolet/mongolet/command"
	"github.com/mongolet/mongolet/driver"
)

// Client owns one connection to a single mongod/mongos.
type Client struct {
	conn *driver.Connection
	uri  mongolet.URI
}

// Connect parses rawURI and opens a connection, performing the hello
// handshake before returning.
func Connect(ctx context.Context, rawURI string, opts ...driver.Option) (*Client, error) {
	uri, err := mongolet.ParseURI(rawURI)
	if err != nil {
		return nil, err
	}
	conn, err := driver.Open(ctx, uri, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn, uri: uri}, nil
}

// Database returns a handle to the named database. If name is empty, the
// URI's default database (its path component) is used.
func (c *Client) Database(name string) *Database {
	if name == "" {
		name = c.uri.DefaultDB
	}
	return &Database{
		client:  c,
		name:    name,
		channel: command.NewChannel(c.conn, name),
	}
}

// Disconnect closes the underlying connection.
func (c *Client) Disconnect(_ context.Context) error {
	return c.conn.Close()
}
