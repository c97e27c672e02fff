// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package driver owns the socket once a connection is open: it spawns the
// background reader, serializes writes, and routes replies to the waiter
// that matches their response_to, so many concurrent callers can share one
// connection.
package driver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"sync"
	"sync/atomic"

	"github.com/mongolet/mongolet"
	"github.com/mongolet/mongolet/compressor"
	"github.com/mongolet/mongolet/internal"
	"github.com/mongolet/mongolet/internal/logger"
	"github.com/mongolet/mongolet/wire"
	"go.mongodb.org/mongo-driver/bson"
)

// state is the connection's lifecycle: Unopened -> Opening -> Ready, or
// Closed from any of those on a fatal error.
type state int32

const (
	stateUnopened state = iota
	stateOpening
	stateReady
	stateClosed
)

type waiterResult struct {
	doc bson.Raw
	err error
}

// Connection is one TCP connection to a mongod/mongos speaking the wire
// protocol, shared by many concurrent callers via SendAndWait.
type Connection struct {
	netConn net.Conn

	registry *compressor.Registry
	offload  *compressor.Offloader
	log      *logger.Logger

	state int32 // atomic state

	writeMu sync.Mutex

	waitersMu sync.Mutex
	waiters   map[int32]chan waiterResult

	compressorChoice  compressor.Compressor
	compressorID      byte
	maxWriteBatchSize int32

	hello bson.Raw

	ctx    context.Context
	cancel context.CancelFunc
}

// Hello returns the reply to the handshake hello command, or nil before
// Open completes.
func (c *Connection) Hello() bson.Raw { return c.hello }

// MaxWriteBatchSize is the server-advertised batching limit the command
// channel must respect (default 1000 if the server didn't say).
func (c *Connection) MaxWriteBatchSize() int32 { return c.maxWriteBatchSize }

// Open dials uri, performs the hello handshake, and leaves the connection
// in the Ready state. uri.Compressors is the set of names the caller is
// willing to use; it is intersected with what is available locally before
// being offered to the server.
func Open(ctx context.Context, uri mongolet.URI, opts ...Option) (*Connection, error) {
	cfg := newConfig(opts...)

	nc, err := (&net.Dialer{}).DialContext(ctx, "tcp", uri.Addr())
	if err != nil {
		return nil, &mongolet.IoError{Wrapped: err}
	}

	connCtx, cancel := context.WithCancel(context.Background())
	c := &Connection{
		netConn:  nc,
		registry: cfg.registry,
		offload:  cfg.offload,
		log:      cfg.log,
		waiters:  make(map[int32]chan waiterResult),
		ctx:      connCtx,
		cancel:   cancel,
	}
	atomic.StoreInt32(&c.state, int32(stateOpening))

	go c.readLoop()

	hello, err := c.handshake(ctx, uri.Compressors)
	if err != nil {
		c.fail(err)
		return nil, err
	}
	c.hello = hello
	c.maxWriteBatchSize = maxWriteBatchSizeOf(hello)
	if names := compressionNamesOf(hello); len(names) > 0 {
		c.compressorChoice, c.compressorID = c.registry.PickForSession(names)
	}

	atomic.StoreInt32(&c.state, int32(stateReady))
	c.log.Info(logger.ComponentConnection, "handshake complete", "addr", uri.Addr())
	return c, nil
}

func (c *Connection) currentState() state {
	return state(atomic.LoadInt32(&c.state))
}

// SendAndWait encodes body (and, if seq is non-nil, a Document Sequence)
// into an OP_MSG, writes it, and blocks until the matching reply arrives,
// ctx is cancelled, or the connection fails. The waiter is installed before
// the first write byte reaches the socket, so the reader can never race
// past a reply this call is waiting for.
func (c *Connection) SendAndWait(ctx context.Context, body bson.Raw, seq *wire.Sequence) (bson.Raw, error) {
	if c.currentState() != stateReady {
		return nil, mongolet.NotReady
	}

	requestID := c.registerWaiter()
	ch := c.waiterChan(requestID)

	if err := c.send(ctx, requestID, body, seq); err != nil {
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

func (c *Connection) waiterChan(id int32) chan waiterResult {
	c.waitersMu.Lock()
	defer c.waitersMu.Unlock()
	return c.waiters[id]
}

// registerWaiter picks a fresh request id and installs its waiter channel.
// Ids are uniform random over the nonzero int32 range with no collision
// defense beyond failing the older, still-outstanding waiter; at the
// supported outstanding counts a collision is a bug, not an expected event.
func (c *Connection) registerWaiter() int32 {
	c.waitersMu.Lock()
	defer c.waitersMu.Unlock()

	var id int32
	for {
		id = int32(rand.Uint32())
		if id != 0 {
			break
		}
	}

	if old, collided := c.waiters[id]; collided {
		old <- waiterResult{err: fmt.Errorf("mongolet: request id %d reused before its reply arrived", id)}
	}
	c.waiters[id] = make(chan waiterResult, 1)
	return id
}

func (c *Connection) removeWaiter(id int32) {
	c.waitersMu.Lock()
	defer c.waitersMu.Unlock()
	delete(c.waiters, id)
}

func (c *Connection) completeWaiter(id int32, res waiterResult) {
	c.waitersMu.Lock()
	ch, ok := c.waiters[id]
	if ok {
		delete(c.waiters, id)
	}
	c.waitersMu.Unlock()

	if !ok {
		// Unsolicited or already-abandoned reply: this core doesn't support
		// server-initiated traffic, so it is dropped silently.
		return
	}
	ch <- res
}

func (c *Connection) send(ctx context.Context, requestID int32, body bson.Raw, seq *wire.Sequence) error {
	payload, err := wire.EncodeOpMsg(body, seq, 0, int(c.effectiveMaxBatch()))
	if err != nil {
		return err
	}

	opcode := wire.OpMsg
	if c.compressorChoice != nil && c.compressorChoice.Name() != "noop" {
		compressed, err := c.offload.Run(ctx, func() ([]byte, error) {
			return c.compressorChoice.Compress(payload)
		})
		if err != nil {
			return err
		}
		payload = wire.EncodeCompressed(wire.OpMsg, payload, c.compressorID, compressed)
		opcode = wire.OpCompressed
	}

	header := wire.Header{
		MessageLength: int32(wire.HeaderLen + len(payload)),
		RequestID:     requestID,
		ResponseTo:    0,
		OpCode:        opcode,
	}
	full := header.AppendHeader(make([]byte, 0, wire.HeaderLen+len(payload)))
	full = append(full, payload...)

	return c.writeAll(ctx, full)
}

func (c *Connection) effectiveMaxBatch() int32 {
	if c.maxWriteBatchSize == 0 {
		return 1000
	}
	return c.maxWriteBatchSize
}

// writeAll serializes access to the write half: at most one writer owns it
// at a time. A context cancellation observed mid-write is not recoverable
// -- the socket may have a partial message on it -- so it closes the whole
// connection rather than just failing this caller.
func (c *Connection) writeAll(ctx context.Context, buf []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	listener := internal.NewCancellationListener()
	go listener.Listen(ctx, func() { c.fail(&mongolet.IoError{Wrapped: ctx.Err()}) })
	defer listener.StopListening()

	if _, err := c.netConn.Write(buf); err != nil {
		wrapped := &mongolet.IoError{Wrapped: err}
		c.fail(wrapped)
		return wrapped
	}
	return nil
}

// readLoop is the sole background task that reads the socket. It owns
// nothing else: replies are routed to waiters, and any error here is fatal
// to the whole connection.
func (c *Connection) readLoop() {
	dc := &offloadingDecompressor{registry: c.registry, offload: c.offload, ctx: c.ctx}

	for {
		header, err := wire.DecodeHeader(c.netConn)
		if err != nil {
			if err == io.EOF {
				c.fail(&mongolet.IoError{Wrapped: io.ErrUnexpectedEOF})
			} else {
				c.fail(&mongolet.IoError{Wrapped: err})
			}
			return
		}
		if header.MessageLength < wire.HeaderLen {
			c.fail(mongolet.NewProtocolError("message_length shorter than the header itself"))
			return
		}

		payload := make([]byte, header.MessageLength-wire.HeaderLen)
		if _, err := io.ReadFull(c.netConn, payload); err != nil {
			c.fail(&mongolet.IoError{Wrapped: err})
			return
		}

		doc, err := wire.DecodeMessage(header, payload, dc)
		if err != nil {
			c.fail(err)
			return
		}

		c.log.Debug(logger.ComponentCommand, "reply routed", "responseTo", header.ResponseTo)
		c.completeWaiter(header.ResponseTo, waiterResult{doc: doc})
	}
}

// fail makes the connection terminally Closed, fans err out to every
// outstanding waiter, and releases the socket. It is idempotent: repeated
// calls (e.g. a write failure racing the reader loop's own EOF) are
// harmless.
func (c *Connection) fail(err error) {
	if !atomic.CompareAndSwapInt32(&c.state, int32(stateReady), int32(stateClosed)) {
		atomic.CompareAndSwapInt32(&c.state, int32(stateOpening), int32(stateClosed))
	}

	c.waitersMu.Lock()
	pending := c.waiters
	c.waiters = make(map[int32]chan waiterResult)
	c.waitersMu.Unlock()

	for _, ch := range pending {
		ch <- waiterResult{err: err}
	}

	c.cancel()
	c.netConn.Close()
	c.log.Info(logger.ComponentConnection, "connection closed", "cause", err)
}

var errClosedByCaller = errors.New("mongolet: connection closed")

// Close gracefully shuts the connection down from the caller's side.
func (c *Connection) Close() error {
	c.fail(errClosedByCaller)
	return nil
}

type offloadingDecompressor struct {
	registry *compressor.Registry
	offload  *compressor.Offloader
	ctx      context.Context
}

func (d *offloadingDecompressor) Decompress(id byte, compressed []byte, uncompressedSize int32) ([]byte, error) {
	c, ok := d.registry.ByID(id)
	if !ok {
		return nil, &mongolet.CompressorUnavailable{ID: id}
	}
	return d.offload.Run(d.ctx, func() ([]byte, error) {
		return c.Decompress(compressed, uncompressedSize)
	})
}
