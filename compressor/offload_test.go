// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package compressor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestOffloaderRunReturnsResult(t *testing.T) {
	o := NewOffloader(2)
	data, err := o.Run(context.Background(), func() ([]byte, error) {
		return []byte("hello"), nil
	})
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), data)
}

func TestOffloaderRunRespectsCancellation(t *testing.T) {
	o := NewOffloader(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	started := make(chan struct{})
	_, err := o.Run(ctx, func() ([]byte, error) {
		close(started)
		time.Sleep(50 * time.Millisecond)
		return nil, nil
	})
	require.Error(t, err)
}

func TestOffloaderLimitsConcurrency(t *testing.T) {
	o := NewOffloader(1)

	inFlight := make(chan struct{}, 2)
	release := make(chan struct{})
	go func() {
		_, _ = o.Run(context.Background(), func() ([]byte, error) {
			inFlight <- struct{}{}
			<-release
			return nil, nil
		})
	}()

	<-inFlight

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := o.Run(ctx, func() ([]byte, error) { return nil, nil })
	require.Error(t, err, "second call should block on the single semaphore slot")

	close(release)
}
