// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package mongo_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/mongolet/mongolet"
	"github.com/mongolet/mongolet/internal/faketest"
	"github.com/mongolet/mongolet/mongo"
	"github.com/mongolet/mongolet/mongo/options"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func connectTo(t *testing.T, handler faketest.Handler) (*mongo.Client, *faketest.Server) {
	t.Helper()
	srv, err := faketest.Start(handler)
	require.NoError(t, err)

	client, err := mongo.Connect(context.Background(), fmt.Sprintf("mongodb://%s/testdb", srv.Addr()))
	require.NoError(t, err)
	return client, srv
}

func cmdField(cmd bson.D, key string) (interface{}, bool) {
	for _, e := range cmd {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

func TestInsertOneGeneratesID(t *testing.T) {
	client, srv := connectTo(t, func(cmd bson.D) bson.D {
		return bson.D{{Key: "n", Value: int32(1)}}
	})
	defer srv.Close()
	defer client.Disconnect(context.Background())

	coll := client.Database("").Collection("widgets")
	res, err := coll.InsertOne(context.Background(), bson.D{{Key: "name", Value: "gizmo"}})
	require.NoError(t, err)
	require.NotNil(t, res.InsertedID)
}

func TestInsertOneKeepsProvidedID(t *testing.T) {
	client, srv := connectTo(t, func(cmd bson.D) bson.D {
		return bson.D{{Key: "n", Value: int32(1)}}
	})
	defer srv.Close()
	defer client.Disconnect(context.Background())

	coll := client.Database("").Collection("widgets")
	res, err := coll.InsertOne(context.Background(), bson.D{{Key: "_id", Value: "fixed-id"}})
	require.NoError(t, err)
	require.Equal(t, "fixed-id", res.InsertedID)
}

func TestFindOneDecodesDocument(t *testing.T) {
	client, srv := connectTo(t, func(cmd bson.D) bson.D {
		return bson.D{{Key: "cursor", Value: bson.D{
			{Key: "id", Value: int64(0)},
			{Key: "ns", Value: "testdb.widgets"},
			{Key: "firstBatch", Value: bson.A{
				bson.D{{Key: "_id", Value: "a"}, {Key: "name", Value: "gizmo"}},
			}},
		}}}
	})
	defer srv.Close()
	defer client.Disconnect(context.Background())

	coll := client.Database("").Collection("widgets")
	var out struct {
		ID   string `bson:"_id"`
		Name string `bson:"name"`
	}
	err := coll.FindOne(context.Background(), bson.D{{Key: "_id", Value: "a"}}, &out)
	require.NoError(t, err)
	require.Equal(t, "gizmo", out.Name)
}

func TestFindOneReturnsCursorIsEmpty(t *testing.T) {
	client, srv := connectTo(t, func(cmd bson.D) bson.D {
		return bson.D{{Key: "cursor", Value: bson.D{
			{Key: "id", Value: int64(0)},
			{Key: "ns", Value: "testdb.widgets"},
			{Key: "firstBatch", Value: bson.A{}},
		}}}
	})
	defer srv.Close()
	defer client.Disconnect(context.Background())

	coll := client.Database("").Collection("widgets")
	var out bson.D
	err := coll.FindOne(context.Background(), bson.D{{Key: "_id", Value: "missing"}}, &out)
	require.ErrorIs(t, err, mongolet.CursorIsEmpty)
}

func TestFindFetchesSubsequentBatchesWithGetMore(t *testing.T) {
	getMoreCalls := 0
	var getMoreCollection interface{}
	client, srv := connectTo(t, func(cmd bson.D) bson.D {
		if _, ok := cmdField(cmd, "find"); ok {
			return bson.D{{Key: "cursor", Value: bson.D{
				{Key: "id", Value: int64(123)},
				{Key: "ns", Value: "testdb.widgets"},
				{Key: "firstBatch", Value: bson.A{
					bson.D{{Key: "_id", Value: int32(1)}},
				}},
			}}}
		}
		getMoreCalls++
		getMoreCollection, _ = cmdField(cmd, "collection")
		return bson.D{{Key: "cursor", Value: bson.D{
			{Key: "id", Value: int64(0)},
			{Key: "ns", Value: "testdb.widgets"},
			{Key: "nextBatch", Value: bson.A{
				bson.D{{Key: "_id", Value: int32(2)}},
			}},
		}}}
	})
	defer srv.Close()
	defer client.Disconnect(context.Background())

	coll := client.Database("").Collection("widgets")
	cur, err := coll.Find(context.Background(), bson.D{})
	require.NoError(t, err)

	var ids []int32
	for cur.Next(context.Background()) {
		var doc struct {
			ID int32 `bson:"_id"`
		}
		require.NoError(t, cur.Decode(&doc))
		ids = append(ids, doc.ID)
	}
	require.NoError(t, cur.Err())
	require.Equal(t, []int32{1, 2}, ids)
	require.Equal(t, 1, getMoreCalls)
	require.Equal(t, "testdb.widgets", getMoreCollection, "getMore must carry the full namespace")
}

func TestFindSkipsEmptyGetMoreBatches(t *testing.T) {
	getMoreCalls := 0
	client, srv := connectTo(t, func(cmd bson.D) bson.D {
		if _, ok := cmdField(cmd, "find"); ok {
			return bson.D{{Key: "cursor", Value: bson.D{
				{Key: "id", Value: int64(42)},
				{Key: "ns", Value: "testdb.widgets"},
				{Key: "firstBatch", Value: bson.A{
					bson.D{{Key: "_id", Value: int32(1)}},
				}},
			}}}
		}
		getMoreCalls++
		if getMoreCalls == 1 {
			// A live cursor with nothing ready yet: the client must keep
			// asking rather than ending iteration here.
			return bson.D{{Key: "cursor", Value: bson.D{
				{Key: "id", Value: int64(42)},
				{Key: "ns", Value: "testdb.widgets"},
				{Key: "nextBatch", Value: bson.A{}},
			}}}
		}
		return bson.D{{Key: "cursor", Value: bson.D{
			{Key: "id", Value: int64(0)},
			{Key: "ns", Value: "testdb.widgets"},
			{Key: "nextBatch", Value: bson.A{
				bson.D{{Key: "_id", Value: int32(2)}},
			}},
		}}}
	})
	defer srv.Close()
	defer client.Disconnect(context.Background())

	coll := client.Database("").Collection("widgets")
	cur, err := coll.Find(context.Background(), bson.D{})
	require.NoError(t, err)

	var ids []int32
	for cur.Next(context.Background()) {
		var doc struct {
			ID int32 `bson:"_id"`
		}
		require.NoError(t, cur.Decode(&doc))
		ids = append(ids, doc.ID)
	}
	require.NoError(t, cur.Err())
	require.Equal(t, []int32{1, 2}, ids)
	require.Equal(t, 2, getMoreCalls)
}

func TestDeleteOneReturnsDeletedCount(t *testing.T) {
	client, srv := connectTo(t, func(cmd bson.D) bson.D {
		return bson.D{{Key: "n", Value: int32(1)}}
	})
	defer srv.Close()
	defer client.Disconnect(context.Background())

	coll := client.Database("").Collection("widgets")
	res, err := coll.DeleteOne(context.Background(), bson.D{{Key: "_id", Value: "a"}})
	require.NoError(t, err)
	require.Equal(t, int64(1), res.DeletedCount)
}

func TestDeleteSurfacesWriteErrors(t *testing.T) {
	client, srv := connectTo(t, func(cmd bson.D) bson.D {
		return bson.D{
			{Key: "n", Value: int32(0)},
			{Key: "writeErrors", Value: bson.A{
				bson.D{
					{Key: "index", Value: int32(0)},
					{Key: "code", Value: int32(20)},
					{Key: "errmsg", Value: "cannot delete from a view"},
				},
			}},
		}
	})
	defer srv.Close()
	defer client.Disconnect(context.Background())

	coll := client.Database("").Collection("widgets")
	res, err := coll.DeleteMany(context.Background(), bson.D{})
	require.NoError(t, err)
	require.Equal(t, int64(0), res.DeletedCount)
	require.Len(t, res.WriteErrors, 1)
	require.Equal(t, int32(20), res.WriteErrors[0].Code)
	require.Contains(t, res.WriteErrors[0].Message, "view")
}

func TestRenameSendsDropTarget(t *testing.T) {
	var saw bson.D
	client, srv := connectTo(t, func(cmd bson.D) bson.D {
		saw = cmd
		return nil
	})
	defer srv.Close()
	defer client.Disconnect(context.Background())

	coll := client.Database("").Collection("widgets")
	require.NoError(t, coll.Rename(context.Background(), "gadgets"))

	from, ok := cmdField(saw, "renameCollection")
	require.True(t, ok)
	require.Equal(t, "testdb.widgets", from)
	to, _ := cmdField(saw, "to")
	require.Equal(t, "testdb.gadgets", to)
	dropTarget, ok := cmdField(saw, "dropTarget")
	require.True(t, ok)
	require.Equal(t, false, dropTarget)
	require.Equal(t, "gadgets", coll.Name())
}

func TestUpdateOneReturnsCounts(t *testing.T) {
	client, srv := connectTo(t, func(cmd bson.D) bson.D {
		return bson.D{{Key: "n", Value: int32(1)}, {Key: "nModified", Value: int32(1)}}
	})
	defer srv.Close()
	defer client.Disconnect(context.Background())

	coll := client.Database("").Collection("widgets")
	res, err := coll.UpdateOne(context.Background(),
		bson.D{{Key: "_id", Value: "a"}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "name", Value: "newname"}}}},
	)
	require.NoError(t, err)
	require.Equal(t, int64(1), res.MatchedCount)
	require.Equal(t, int64(1), res.ModifiedCount)
}

func TestCountDocuments(t *testing.T) {
	var sawComment interface{}
	client, srv := connectTo(t, func(cmd bson.D) bson.D {
		sawComment, _ = cmdField(cmd, "comment")
		return bson.D{{Key: "cursor", Value: bson.D{
			{Key: "id", Value: int64(0)},
			{Key: "ns", Value: "testdb.widgets"},
			{Key: "firstBatch", Value: bson.A{
				bson.D{{Key: "n", Value: int64(7)}},
			}},
		}}}
	})
	defer srv.Close()
	defer client.Disconnect(context.Background())

	coll := client.Database("").Collection("widgets")
	n, err := coll.CountDocuments(context.Background(), bson.D{},
		options.Count().SetComment("inventory audit"))
	require.NoError(t, err)
	require.Equal(t, int64(7), n)
	require.Equal(t, "inventory audit", sawComment)
}

func TestDropTreatsNamespaceNotFoundAsSuccess(t *testing.T) {
	client, srv := connectTo(t, func(cmd bson.D) bson.D {
		return bson.D{
			{Key: "ok", Value: float64(0)},
			{Key: "errmsg", Value: "ns not found"},
			{Key: "codeName", Value: "NamespaceNotFound"},
			{Key: "code", Value: int32(26)},
		}
	})
	defer srv.Close()
	defer client.Disconnect(context.Background())

	coll := client.Database("").Collection("widgets")
	require.NoError(t, coll.Drop(context.Background()))
}
