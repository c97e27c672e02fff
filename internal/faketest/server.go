// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package faketest is an in-process fake mongod that speaks just enough of
// the wire protocol (OP_MSG, OP_COMPRESSED, the hello handshake) to drive
// end-to-end tests without a real server.
package faketest

import (
	"io"
	"net"
	"sync"

	"github.com/mongolet/mongolet"
	"github.com/mongolet/mongolet/compressor"
	"github.com/mongolet/mongolet/wire"
	"go.mongodb.org/mongo-driver/bson"
)

// Handler answers one command document (including the $db field the client
// sent) with a reply document. The reply's "ok" field is added by the server if the
// handler omits it.
type Handler func(cmd bson.D) bson.D

// Server is a single-connection fake mongod. Only the first client
// connection is served; this is sufficient for tests, which each dial their
// own Server. Requests are dispatched to the handler concurrently, one
// goroutine per request, so a handler that wants to exercise out-of-order
// reply routing can simply delay the requests it wants answered last.
type Server struct {
	ln       net.Listener
	registry *compressor.Registry
	handler  Handler

	mu      sync.Mutex
	conn    net.Conn
	writeMu sync.Mutex
	opcodes []wire.OpCode
}

// Start listens on an ephemeral localhost port and begins accepting
// connections in the background.
func Start(handler Handler) (*Server, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}
	s := &Server{ln: ln, registry: compressor.NewRegistry(), handler: handler}
	go s.acceptLoop()
	return s, nil
}

// Addr is the host:port the server is listening on.
func (s *Server) Addr() string { return s.ln.Addr().String() }

// ObservedOpcodes returns the wire opcode of every request seen so far, in
// arrival order -- used by tests to confirm a client actually compressed a
// message (OP_COMPRESSED) rather than just tolerating the option.
func (s *Server) ObservedOpcodes() []wire.OpCode {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]wire.OpCode, len(s.opcodes))
	copy(out, s.opcodes)
	return out
}

// Close stops accepting new connections and closes the active one, if any.
func (s *Server) Close() error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
	return s.ln.Close()
}

func (s *Server) acceptLoop() {
	conn, err := s.ln.Accept()
	if err != nil {
		return
	}
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	s.serve(conn)
}

func (s *Server) serve(conn net.Conn) {
	dc := &decompressor{registry: s.registry}
	for {
		header, err := wire.DecodeHeader(conn)
		if err != nil {
			return
		}
		payload := make([]byte, header.MessageLength-wire.HeaderLen)
		if _, err := io.ReadFull(conn, payload); err != nil {
			return
		}

		s.mu.Lock()
		s.opcodes = append(s.opcodes, header.OpCode)
		s.mu.Unlock()

		body, err := wire.DecodeMessage(header, payload, dc)
		if err != nil {
			return
		}
		var cmd bson.D
		if err := bson.Unmarshal(body, &cmd); err != nil {
			return
		}

		go s.respond(conn, header.RequestID, cmd)
	}
}

func (s *Server) respond(conn net.Conn, requestID int32, cmd bson.D) {
	reply := s.answer(cmd)
	replyBody, err := bson.Marshal(reply)
	if err != nil {
		return
	}
	out, err := wire.EncodeOpMsg(replyBody, nil, 0, 1000)
	if err != nil {
		return
	}
	replyHeader := wire.Header{
		MessageLength: int32(wire.HeaderLen + len(out)),
		RequestID:     0,
		ResponseTo:    requestID,
		OpCode:        wire.OpMsg,
	}
	full := replyHeader.AppendHeader(make([]byte, 0, wire.HeaderLen+len(out)))
	full = append(full, out...)

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	conn.Write(full)
}

func (s *Server) answer(cmd bson.D) bson.D {
	var reply bson.D
	if isHello(cmd) {
		reply = bson.D{{Key: "maxWriteBatchSize", Value: int32(1000)}}
		// A real server only negotiates compression the client offered.
		if offered := offeredCompressors(cmd); len(offered) > 0 {
			reply = append(reply, bson.E{Key: "compression", Value: offered})
		}
	} else if s.handler != nil {
		reply = s.handler(cmd)
	}
	if !hasKey(reply, "ok") {
		reply = append(bson.D{{Key: "ok", Value: float64(1)}}, reply...)
	}
	return reply
}

func isHello(cmd bson.D) bool {
	for _, e := range cmd {
		if e.Key == "hello" {
			return true
		}
	}
	return false
}

func offeredCompressors(cmd bson.D) bson.A {
	supported := map[string]bool{"snappy": true, "zlib": true, "zstd": true}
	var out bson.A
	for _, e := range cmd {
		if e.Key != "compression" {
			continue
		}
		names, ok := e.Value.(bson.A)
		if !ok {
			continue
		}
		for _, n := range names {
			if s, ok := n.(string); ok && supported[s] {
				out = append(out, s)
			}
		}
	}
	return out
}

func hasKey(d bson.D, key string) bool {
	for _, e := range d {
		if e.Key == key {
			return true
		}
	}
	return false
}

type decompressor struct {
	registry *compressor.Registry
}

func (d *decompressor) Decompress(id byte, compressed []byte, uncompressedSize int32) ([]byte, error) {
	c, ok := d.registry.ByID(id)
	if !ok {
		return nil, &mongolet.CompressorUnavailable{ID: id}
	}
	return c.Decompress(compressed, uncompressedSize)
}
