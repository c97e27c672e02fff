// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package mongo

import (
	"context"
	"errors"

	"github.com/mongolet/mongolet"
	"github.com/mongolet/mongolet/command"
	"github.com/mongolet/mongolet/mongo/options"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Collection maps CRUD method calls onto command documents: one name, bound
// to a Database's command channel.
type Collection struct {
	db   *Database
	name string
}

// Name returns the collection's name.
func (c *Collection) Name() string { return c.name }

// Database returns the Database this collection belongs to.
func (c *Collection) Database() *Database { return c.db }

func (c *Collection) channel() *command.Channel { return c.db.channel }

// InsertOneResult is the result of an InsertOne call.
type InsertOneResult struct {
	InsertedID interface{}
}

// InsertManyResult is the result of an InsertMany call.
type InsertManyResult struct {
	InsertedIDs []interface{}
}

// WriteError is a per-document failure reported inside an otherwise-ok
// write reply.
type WriteError struct {
	Index   int32  `bson:"index"`
	Code    int32  `bson:"code"`
	Message string `bson:"errmsg"`
}

// WriteConcernError reports that a write was applied but did not satisfy
// the requested write concern.
type WriteConcernError struct {
	Code    int32  `bson:"code"`
	Message string `bson:"errmsg"`
}

// DeleteResult is the result of a Delete call. WriteErrors and
// WriteConcernError come back alongside a deleted count: the server replies
// ok=1 even when individual deletes failed.
type DeleteResult struct {
	DeletedCount      int64
	WriteErrors       []WriteError
	WriteConcernError *WriteConcernError
}

// UpdateResult is the result of an Update call.
type UpdateResult struct {
	MatchedCount  int64
	ModifiedCount int64
	UpsertedID    interface{}
}

// InsertOne inserts a single document, generating an ObjectID _id if the
// document doesn't supply one.
func (c *Collection) InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptionsBuilder) (*InsertOneResult, error) {
	args, err := options.ArgsFromBuilder(mergeInsertOne(opts))
	if err != nil {
		return nil, err
	}

	doc, id, err := ensureID(document)
	if err != nil {
		return nil, err
	}

	cmd := bson.D{
		{Key: "insert", Value: c.name},
		{Key: "documents", Value: bson.A{doc}},
	}
	if args.BypassDocumentValidation != nil {
		cmd = append(cmd, bson.E{Key: "bypassDocumentValidation", Value: *args.BypassDocumentValidation})
	}
	if args.Comment != nil {
		cmd = append(cmd, bson.E{Key: "comment", Value: args.Comment})
	}
	if _, err := c.channel().Run(ctx, c.db.name, cmd, "documents"); err != nil {
		return nil, err
	}
	return &InsertOneResult{InsertedID: id}, nil
}

// InsertMany inserts many documents in a single insert command, its
// "documents" field carried as a Document Sequence.
func (c *Collection) InsertMany(ctx context.Context, documents []interface{}, opts ...*options.InsertManyOptionsBuilder) (*InsertManyResult, error) {
	args, err := options.ArgsFromBuilder(mergeInsertMany(opts))
	if err != nil {
		return nil, err
	}

	docs := make(bson.A, 0, len(documents))
	ids := make([]interface{}, 0, len(documents))
	for _, document := range documents {
		doc, id, err := ensureID(document)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
		ids = append(ids, id)
	}

	cmd := bson.D{
		{Key: "insert", Value: c.name},
		{Key: "documents", Value: docs},
		{Key: "ordered", Value: orderedOrDefault(args.Ordered)},
	}
	if args.BypassDocumentValidation != nil {
		cmd = append(cmd, bson.E{Key: "bypassDocumentValidation", Value: *args.BypassDocumentValidation})
	}
	if args.Comment != nil {
		cmd = append(cmd, bson.E{Key: "comment", Value: args.Comment})
	}
	if _, err := c.channel().Run(ctx, c.db.name, cmd, "documents"); err != nil {
		return nil, err
	}
	return &InsertManyResult{InsertedIDs: ids}, nil
}

// DeleteOne removes at most one document matching filter.
func (c *Collection) DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptionsBuilder) (*DeleteResult, error) {
	return c.delete(ctx, filter, 1, opts...)
}

// DeleteMany removes every document matching filter.
func (c *Collection) DeleteMany(ctx context.Context, filter interface{}, opts ...*options.DeleteOptionsBuilder) (*DeleteResult, error) {
	return c.delete(ctx, filter, 0, opts...)
}

func (c *Collection) delete(ctx context.Context, filter interface{}, limit int32, opts ...*options.DeleteOptionsBuilder) (*DeleteResult, error) {
	args, err := options.ArgsFromBuilder(mergeDelete(opts))
	if err != nil {
		return nil, err
	}

	cmd := bson.D{
		{Key: "delete", Value: c.name},
		{Key: "deletes", Value: bson.A{
			bson.D{{Key: "q", Value: filter}, {Key: "limit", Value: limit}},
		}},
		{Key: "ordered", Value: orderedOrDefault(args.Ordered)},
	}
	if args.Comment != nil {
		cmd = append(cmd, bson.E{Key: "comment", Value: args.Comment})
	}
	reply, err := c.channel().Run(ctx, c.db.name, cmd, "deletes")
	if err != nil {
		return nil, err
	}

	res := &DeleteResult{DeletedCount: lookupInt64(reply, "n")}
	var details struct {
		WriteErrors       []WriteError       `bson:"writeErrors"`
		WriteConcernError *WriteConcernError `bson:"writeConcernError"`
	}
	if err := bson.Unmarshal(reply, &details); err == nil {
		res.WriteErrors = details.WriteErrors
		res.WriteConcernError = details.WriteConcernError
	}
	return res, nil
}

// UpdateOne updates at most one document matching filter.
func (c *Collection) UpdateOne(ctx context.Context, filter, update interface{}, opts ...*options.UpdateOptionsBuilder) (*UpdateResult, error) {
	return c.update(ctx, filter, update, false, opts...)
}

// UpdateMany updates every document matching filter.
func (c *Collection) UpdateMany(ctx context.Context, filter, update interface{}, opts ...*options.UpdateOptionsBuilder) (*UpdateResult, error) {
	return c.update(ctx, filter, update, true, opts...)
}

func (c *Collection) update(ctx context.Context, filter, update interface{}, multi bool, opts ...*options.UpdateOptionsBuilder) (*UpdateResult, error) {
	args, err := options.ArgsFromBuilder(mergeUpdate(opts))
	if err != nil {
		return nil, err
	}

	upsert := args.Upsert != nil && *args.Upsert
	cmd := bson.D{
		{Key: "update", Value: c.name},
		{Key: "updates", Value: bson.A{
			bson.D{
				{Key: "q", Value: filter},
				{Key: "u", Value: update},
				{Key: "multi", Value: multi},
				{Key: "upsert", Value: upsert},
			},
		}},
	}
	if args.Comment != nil {
		cmd = append(cmd, bson.E{Key: "comment", Value: args.Comment})
	}
	reply, err := c.channel().Run(ctx, c.db.name, cmd, "updates")
	if err != nil {
		return nil, err
	}
	res := &UpdateResult{
		MatchedCount:  lookupInt64(reply, "n"),
		ModifiedCount: lookupInt64(reply, "nModified"),
	}
	if upserted, ok := firstUpsertedID(reply); ok {
		res.UpsertedID = upserted
	}
	return res, nil
}

// Find issues a find command and returns a Cursor over the results.
func (c *Collection) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptionsBuilder) (*Cursor, error) {
	args, err := options.ArgsFromBuilder(mergeFind(opts))
	if err != nil {
		return nil, err
	}

	cmd := bson.D{{Key: "find", Value: c.name}, {Key: "filter", Value: filter}}
	if args.Sort != nil {
		cmd = append(cmd, bson.E{Key: "sort", Value: args.Sort})
	}
	if args.Projection != nil {
		cmd = append(cmd, bson.E{Key: "projection", Value: args.Projection})
	}
	if args.Skip != nil {
		cmd = append(cmd, bson.E{Key: "skip", Value: *args.Skip})
	}
	if args.Limit != nil {
		cmd = append(cmd, bson.E{Key: "limit", Value: *args.Limit})
	}
	if args.BatchSize != nil {
		cmd = append(cmd, bson.E{Key: "batchSize", Value: *args.BatchSize})
	}
	if args.Min != nil {
		cmd = append(cmd, bson.E{Key: "min", Value: args.Min})
	}
	if args.Max != nil {
		cmd = append(cmd, bson.E{Key: "max", Value: args.Max})
	}

	reply, err := c.channel().Run(ctx, c.db.name, cmd, "")
	if err != nil {
		return nil, err
	}
	return newCursor(c.channel(), c.db.name, reply)
}

// FindOne issues a find command limited to one result and decodes it into
// v. It returns mongolet.CursorIsEmpty if nothing matched.
func (c *Collection) FindOne(ctx context.Context, filter interface{}, v interface{}, opts ...*options.FindOptionsBuilder) error {
	opts = append(opts, options.Find().SetLimit(1))
	cur, err := c.Find(ctx, filter, opts...)
	if err != nil {
		return err
	}
	defer cur.Close(ctx)

	if !cur.Next(ctx) {
		if cur.Err() != nil {
			return cur.Err()
		}
		return mongolet.CursorIsEmpty
	}
	return cur.Decode(v)
}

// Aggregate runs an aggregation pipeline and returns a Cursor over its
// results.
func (c *Collection) Aggregate(ctx context.Context, pipeline interface{}) (*Cursor, error) {
	cmd := bson.D{
		{Key: "aggregate", Value: c.name},
		{Key: "pipeline", Value: pipeline},
		{Key: "cursor", Value: bson.D{}},
	}
	reply, err := c.channel().Run(ctx, c.db.name, cmd, "")
	if err != nil {
		return nil, err
	}
	return newCursor(c.channel(), c.db.name, reply)
}

// CountDocuments counts the documents matching filter with a
// $match/$skip/$limit/$group aggregation pipeline.
func (c *Collection) CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptionsBuilder) (int64, error) {
	args, err := options.ArgsFromBuilder(mergeCount(opts))
	if err != nil {
		return 0, err
	}

	pipeline := bson.A{bson.D{{Key: "$match", Value: filter}}}
	if args.Skip != nil {
		pipeline = append(pipeline, bson.D{{Key: "$skip", Value: *args.Skip}})
	}
	if args.Limit != nil {
		pipeline = append(pipeline, bson.D{{Key: "$limit", Value: *args.Limit}})
	}
	pipeline = append(pipeline, bson.D{
		{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "n", Value: bson.D{{Key: "$sum", Value: 1}}},
		}},
	})

	cmd := bson.D{
		{Key: "aggregate", Value: c.name},
		{Key: "pipeline", Value: pipeline},
		{Key: "cursor", Value: bson.D{}},
	}
	if args.Comment != nil {
		cmd = append(cmd, bson.E{Key: "comment", Value: args.Comment})
	}
	reply, err := c.channel().Run(ctx, c.db.name, cmd, "")
	if err != nil {
		return 0, err
	}
	cur, err := newCursor(c.channel(), c.db.name, reply)
	if err != nil {
		return 0, err
	}
	defer cur.Close(ctx)

	if !cur.Next(ctx) {
		return 0, cur.Err()
	}
	var result struct {
		N int64 `bson:"n"`
	}
	if err := cur.Decode(&result); err != nil {
		return 0, err
	}
	return result.N, nil
}

// Drop drops the collection. A "namespace not found" reply is treated as
// success, matching the server's own drop idempotency.
func (c *Collection) Drop(ctx context.Context) error {
	cmd := bson.D{{Key: "drop", Value: c.name}}
	_, err := c.channel().Run(ctx, c.db.name, cmd, "")
	if err != nil && isNamespaceNotFound(err) {
		return nil
	}
	return err
}

// Rename renames the collection to newName within the same database via
// the admin-only renameCollection command.
func (c *Collection) Rename(ctx context.Context, newName string, opts ...*options.RenameOptionsBuilder) error {
	args, err := options.ArgsFromBuilder(mergeRename(opts))
	if err != nil {
		return err
	}

	dropTarget := false
	if args.DropTarget != nil {
		dropTarget = *args.DropTarget
	}
	cmd := bson.D{
		{Key: "renameCollection", Value: c.db.name + "." + c.name},
		{Key: "to", Value: c.db.name + "." + newName},
		{Key: "dropTarget", Value: dropTarget},
	}
	if _, err := c.channel().Run(ctx, "admin", cmd, ""); err != nil {
		return err
	}
	c.name = newName
	return nil
}

func ensureID(document interface{}) (bson.D, interface{}, error) {
	asD, err := toBSOND(document)
	if err != nil {
		return nil, nil, err
	}
	for _, elem := range asD {
		if elem.Key == "_id" {
			return asD, elem.Value, nil
		}
	}
	id := primitive.NewObjectID()
	out := make(bson.D, 0, len(asD)+1)
	out = append(out, bson.E{Key: "_id", Value: id})
	out = append(out, asD...)
	return out, id, nil
}

func toBSOND(document interface{}) (bson.D, error) {
	if d, ok := document.(bson.D); ok {
		return d, nil
	}
	raw, err := bson.Marshal(document)
	if err != nil {
		return nil, err
	}
	var d bson.D
	if err := bson.Unmarshal(raw, &d); err != nil {
		return nil, err
	}
	return d, nil
}

func lookupInt64(reply bson.Raw, field string) int64 {
	val, err := reply.LookupErr(field)
	if err != nil {
		return 0
	}
	if n, ok := val.Int64OK(); ok {
		return n
	}
	if n, ok := val.Int32OK(); ok {
		return int64(n)
	}
	if f, ok := val.DoubleOK(); ok {
		return int64(f)
	}
	return 0
}

func firstUpsertedID(reply bson.Raw) (interface{}, bool) {
	val, err := reply.LookupErr("upserted")
	if err != nil {
		return nil, false
	}
	arr, ok := val.ArrayOK()
	if !ok {
		return nil, false
	}
	elems, err := arr.Elements()
	if err != nil || len(elems) == 0 {
		return nil, false
	}
	first, err := elems[0].ValueErr()
	if err != nil {
		return nil, false
	}
	doc, ok := first.DocumentOK()
	if !ok {
		return nil, false
	}
	idVal, err := doc.LookupErr("_id")
	if err != nil {
		return nil, false
	}
	return idVal, true
}

func isNamespaceNotFound(err error) bool {
	var dbErr *mongolet.DatabaseError
	if !errors.As(err, &dbErr) {
		return false
	}
	var body struct {
		CodeName string `bson:"codeName"`
	}
	_ = bson.Unmarshal(dbErr.Reply, &body)
	return body.CodeName == "NamespaceNotFound"
}

func orderedOrDefault(b *bool) bool {
	if b == nil {
		return options.DefaultOrdered
	}
	return *b
}

func mergeInsertOne(opts []*options.InsertOneOptionsBuilder) []func(*options.InsertOneOptions) error {
	var setters []func(*options.InsertOneOptions) error
	for _, o := range opts {
		setters = append(setters, o.OptionsSetters()...)
	}
	return setters
}

func mergeInsertMany(opts []*options.InsertManyOptionsBuilder) []func(*options.InsertManyOptions) error {
	var setters []func(*options.InsertManyOptions) error
	for _, o := range opts {
		setters = append(setters, o.OptionsSetters()...)
	}
	return setters
}

func mergeDelete(opts []*options.DeleteOptionsBuilder) []func(*options.DeleteOptions) error {
	var setters []func(*options.DeleteOptions) error
	for _, o := range opts {
		setters = append(setters, o.ArgsSetters()...)
	}
	return setters
}

func mergeUpdate(opts []*options.UpdateOptionsBuilder) []func(*options.UpdateOptions) error {
	var setters []func(*options.UpdateOptions) error
	for _, o := range opts {
		setters = append(setters, o.ArgsSetters()...)
	}
	return setters
}

func mergeFind(opts []*options.FindOptionsBuilder) []func(*options.FindOptions) error {
	var setters []func(*options.FindOptions) error
	for _, o := range opts {
		setters = append(setters, o.ArgsSetters()...)
	}
	return setters
}

func mergeRename(opts []*options.RenameOptionsBuilder) []func(*options.RenameOptions) error {
	var setters []func(*options.RenameOptions) error
	for _, o := range opts {
		setters = append(setters, o.ArgsSetters()...)
	}
	return setters
}

func mergeCount(opts []*options.CountOptionsBuilder) []func(*options.CountOptions) error {
	var setters []func(*options.CountOptions) error
	for _, o := range opts {
		setters = append(setters, o.ArgsSetters()...)
	}
	return setters
}
