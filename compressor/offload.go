// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package compressor

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Offloader runs CPU-bound (de)compression work on a bounded pool of
// goroutines so a connection's reader/writer goroutines never carry that
// cost themselves. A semaphore.Weighted caps how many of these run
// concurrently instead of letting an unbounded go func() per message pile
// up under load.
type Offloader struct {
	sem *semaphore.Weighted
}

// NewOffloader builds an Offloader that allows at most maxConcurrency
// (de)compressions to run at once.
func NewOffloader(maxConcurrency int64) *Offloader {
	if maxConcurrency <= 0 {
		maxConcurrency = 1
	}
	return &Offloader{sem: semaphore.NewWeighted(maxConcurrency)}
}

// Run executes fn on a worker goroutine, returning its result once ready or
// ctx's error if it is cancelled first. If ctx is cancelled before fn
// finishes, fn keeps running to completion in the background (its result
// is simply discarded) so the semaphore slot is always released.
func (o *Offloader) Run(ctx context.Context, fn func() ([]byte, error)) ([]byte, error) {
	if err := o.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}

	type result struct {
		data []byte
		err  error
	}
	done := make(chan result, 1)

	go func() {
		defer o.sem.Release(1)
		data, err := fn()
		done <- result{data, err}
	}()

	select {
	case r := <-done:
		return r.data, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
