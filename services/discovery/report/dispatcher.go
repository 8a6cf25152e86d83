// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package report

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/nova-discovery/pkg/logging"
)

// ErrBusy is returned by Enqueue when the queue is full.
var ErrBusy = errors.New("report: dispatcher busy")

// ErrClosed is returned by Enqueue after Close.
var ErrClosed = errors.New("report: dispatcher closed")

const (
	// DefaultWorkers bounds concurrent background dispatches.
	DefaultWorkers = 4

	// DefaultQueueSize bounds reports waiting for a worker.
	DefaultQueueSize = 64
)

type job struct {
	ctx    context.Context
	report Report
}

// Dispatcher runs Generator.Dispatch in the background.
//
// # Description
//
// Reports wait in a bounded queue drained by a fixed set of workers, so a
// burst of bookings is delayed rather than refused while every worker is
// inside a slow proposal call. Only a full queue refuses work.
//
// # Thread Safety
//
// Enqueue is safe for concurrent use. Wait and Close are meant for
// shutdown and tests.
type Dispatcher struct {
	gen   *Generator
	queue chan job
	group errgroup.Group

	mu      sync.RWMutex
	closed  bool
	pending sync.WaitGroup
}

// NewDispatcher starts workers goroutines draining a queue of queueSize
// reports. Zero or negative values select DefaultWorkers and
// DefaultQueueSize.
func NewDispatcher(gen *Generator, workers, queueSize int) *Dispatcher {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	d := &Dispatcher{gen: gen, queue: make(chan job, queueSize)}
	for range workers {
		d.group.Go(d.work)
	}
	return d
}

// Generator returns the wrapped generator.
func (d *Dispatcher) Generator() *Generator {
	return d.gen
}

// Enqueue schedules r. The work keeps ctx's values (logger, trace) but not
// its cancellation, so it outlives the request.
func (d *Dispatcher) Enqueue(ctx context.Context, r Report) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}

	d.pending.Add(1)
	select {
	case d.queue <- job{ctx: context.WithoutCancel(ctx), report: r}:
		return nil
	default:
		d.pending.Done()
		return ErrBusy
	}
}

func (d *Dispatcher) work() error {
	for j := range d.queue {
		_, err := d.gen.Dispatch(j.ctx, j.report)
		if err != nil && !errors.Is(err, ErrAlreadySent) {
			logging.FromContext(j.ctx).Warn("Background report dispatch failed", "error", err)
		}
		d.pending.Done()
	}
	return nil
}

// Wait blocks until queued dispatches finish or timeout elapses. It
// reports whether everything finished.
func (d *Dispatcher) Wait(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		d.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Close refuses further reports and stops the workers once the queue is
// empty. It does not wait for them; call Wait first to drain.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	close(d.queue)
}
