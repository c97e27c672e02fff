// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package driver

import (
	"context"
	"runtime"

	"go.mongodb.org/mongo-driver/bson"
)

// driverName and driverVersion are sent in the handshake's client metadata.
const driverName = "mongolet"
const driverVersion = "0.1.0"

// handshake sends the always-uncompressed hello command and returns its
// reply. wantedCompressors is the set the caller (URI's compressors= query
// parameter) asked for; it is intersected with what's available locally
// and, if non-empty, offered to the server. The compression field is
// omitted entirely unless the user opted in.
func (c *Connection) handshake(ctx context.Context, wantedCompressors []string) (bson.Raw, error) {
	db := "admin"

	doc := bson.D{
		{Key: "hello", Value: 1},
		{Key: "client", Value: clientMetadata()},
	}

	if offered := intersect(wantedCompressors, c.registry.ListAvailable()); len(offered) > 0 {
		doc = append(doc, bson.E{Key: "compression", Value: offered})
	}

	doc = append(doc, bson.E{Key: "$db", Value: db})

	body, err := bson.Marshal(doc)
	if err != nil {
		return nil, err
	}

	requestID := c.registerWaiter()
	ch := c.waiterChan(requestID)

	if err := c.send(ctx, requestID, body, nil); err != nil {
		c.removeWaiter(requestID)
		return nil, err
	}

	select {
	case res := <-ch:
		return res.doc, res.err
	case <-ctx.Done():
		c.removeWaiter(requestID)
		return nil, ctx.Err()
	}
}

func clientMetadata() bson.D {
	return bson.D{
		{Key: "driver", Value: bson.D{
			{Key: "name", Value: driverName},
			{Key: "version", Value: driverVersion},
		}},
		{Key: "os", Value: bson.D{
			{Key: "type", Value: runtime.GOOS},
			{Key: "architecture", Value: runtime.GOARCH},
		}},
	}
}

func intersect(wanted, available []string) []string {
	if len(wanted) == 0 {
		return nil
	}
	avail := make(map[string]bool, len(available))
	for _, a := range available {
		avail[a] = true
	}
	var out []string
	for _, w := range wanted {
		if avail[w] {
			out = append(out, w)
		}
	}
	return out
}

func maxWriteBatchSizeOf(hello bson.Raw) int32 {
	val, err := hello.LookupErr("maxWriteBatchSize")
	if err != nil {
		return 1000
	}
	if n, ok := val.Int32OK(); ok && n > 0 {
		return n
	}
	if n, ok := val.Int64OK(); ok && n > 0 {
		return int32(n)
	}
	return 1000
}

func compressionNamesOf(hello bson.Raw) []string {
	val, err := hello.LookupErr("compression")
	if err != nil {
		return nil
	}
	arr, ok := val.ArrayOK()
	if !ok {
		return nil
	}
	elems, err := arr.Elements()
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(elems))
	for _, elem := range elems {
		v, err := elem.ValueErr()
		if err != nil {
			continue
		}
		if s, ok := v.StringValueOK(); ok {
			names = append(names, s)
		}
	}
	return names
}
