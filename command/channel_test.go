// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package command_test

import (
	"context"
	"net"
	"testing"

	"github.com/mongolet/mongolet"
	"github.com/mongolet/mongolet/command"
	"github.com/mongolet/mongolet/driver"
	"github.com/mongolet/mongolet/internal/faketest"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func openTestConnection(t *testing.T, handler faketest.Handler) (*driver.Connection, *faketest.Server) {
	t.Helper()
	srv, err := faketest.Start(handler)
	require.NoError(t, err)

	host, port, err := net.SplitHostPort(srv.Addr())
	require.NoError(t, err)

	conn, err := driver.Open(context.Background(), mongolet.URI{Host: host, Port: port, DefaultDB: "testdb"})
	require.NoError(t, err)
	return conn, srv
}

func TestChannelRunInjectsDB(t *testing.T) {
	var sawDB string
	conn, srv := openTestConnection(t, func(cmd bson.D) bson.D {
		for _, e := range cmd {
			if e.Key == "$db" {
				sawDB, _ = e.Value.(string)
			}
		}
		return bson.D{{Key: "n", Value: int32(1)}}
	})
	defer srv.Close()
	defer conn.Close()

	ch := command.NewChannel(conn, "testdb")
	_, err := ch.Run(context.Background(), "", bson.D{{Key: "ping", Value: 1}}, "")
	require.NoError(t, err)
	require.Equal(t, "testdb", sawDB)
}

func TestChannelRunExtractsSequence(t *testing.T) {
	var sawDocCount int
	conn, srv := openTestConnection(t, func(cmd bson.D) bson.D {
		for _, e := range cmd {
			if e.Key == "documents" {
				if docs, ok := e.Value.(bson.A); ok {
					sawDocCount = len(docs)
				}
			}
		}
		return bson.D{{Key: "n", Value: int32(2)}}
	})
	defer srv.Close()
	defer conn.Close()

	ch := command.NewChannel(conn, "testdb")
	cmd := bson.D{
		{Key: "insert", Value: "widgets"},
		{Key: "documents", Value: bson.A{
			bson.D{{Key: "a", Value: 1}},
			bson.D{{Key: "a", Value: 2}},
		}},
	}
	_, err := ch.Run(context.Background(), "", cmd, "documents")
	require.NoError(t, err)
	require.Equal(t, 2, sawDocCount)
}

func TestChannelRunRaisesDatabaseError(t *testing.T) {
	conn, srv := openTestConnection(t, func(cmd bson.D) bson.D {
		return bson.D{
			{Key: "ok", Value: float64(0)},
			{Key: "errmsg", Value: "boom"},
			{Key: "code", Value: int32(42)},
			{Key: "codeName", Value: "Boom"},
		}
	})
	defer srv.Close()
	defer conn.Close()

	ch := command.NewChannel(conn, "testdb")
	_, err := ch.Run(context.Background(), "", bson.D{{Key: "ping", Value: 1}}, "")
	require.Error(t, err)

	var dbErr *mongolet.DatabaseError
	require.ErrorAs(t, err, &dbErr)
	require.Contains(t, dbErr.Error(), "boom")
}
