// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package mongo

import (
	"context"

	"github.com/mongolet/mongolet/command"
	"github.com/mongolet/mongolet/mongo/options"
	"go.mongodb.org/mongo-driver/bson"
)

// Database groups collections under one name and owns the command channel
// they all share.
type Database struct {
	client  *Client
	name    string
	channel *command.Channel
}

// Name returns the database's name.
func (db *Database) Name() string { return db.name }

// Collection returns a handle to a collection in db. It does not round-trip
// to the server; collections are created implicitly on first write.
func (db *Database) Collection(name string) *Collection {
	return &Collection{db: db, name: name}
}

// RunCommand runs an arbitrary command document against db, defaulting $db
// to db's name.
func (db *Database) RunCommand(ctx context.Context, cmd bson.D) (bson.Raw, error) {
	return db.channel.Run(ctx, db.name, cmd, "")
}

// ListCollections returns a Cursor over the database's collections.
func (db *Database) ListCollections(ctx context.Context, filter bson.D, opts ...*options.ListCollectionsOptionsBuilder) (*Cursor, error) {
	args, err := listCollectionsArgs(opts)
	if err != nil {
		return nil, err
	}

	cmd := bson.D{
		{Key: "listCollections", Value: 1},
		{Key: "filter", Value: filter},
		{Key: "cursor", Value: bson.D{}},
	}
	if args.NameOnly != nil {
		cmd = append(cmd, bson.E{Key: "nameOnly", Value: *args.NameOnly})
	}
	if args.AuthorizedCollections != nil {
		cmd = append(cmd, bson.E{Key: "authorizedCollections", Value: *args.AuthorizedCollections})
	}
	if args.BatchSize != nil {
		cmd = append(cmd, bson.E{Key: "batchSize", Value: *args.BatchSize})
	}

	reply, err := db.channel.Run(ctx, db.name, cmd, "")
	if err != nil {
		return nil, err
	}
	return newCursor(db.channel, db.name, reply)
}

func listCollectionsArgs(opts []*options.ListCollectionsOptionsBuilder) (*options.ListCollectionsOptions, error) {
	var setters []func(*options.ListCollectionsOptions) error
	for _, o := range opts {
		setters = append(setters, o.ArgsSetters()...)
	}
	return options.ArgsFromBuilder(setters)
}
