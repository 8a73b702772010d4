// Copyright 2026 dhcpv6d Authors. All rights reserved
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

package workerpool

import (
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discardWriter{}, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestPoolRunsJobsConcurrently(t *testing.T) {
	p := New(discardLogger(), 4)
	defer p.Drain()

	var mu sync.Mutex
	var results []int
	var wg sync.WaitGroup
	wg.Add(10)

	for i := 0; i < 10; i++ {
		i := i
		p.Submit(Job{
			Run: func() (interface{}, error) { return i, nil },
			OnComplete: func(result interface{}, err error) {
				defer wg.Done()
				mu.Lock()
				results = append(results, result.(int))
				mu.Unlock()
			},
		})
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for all jobs to complete")
	}
	if len(results) != 10 {
		t.Errorf("got %d results, want 10", len(results))
	}
}

func TestPoolHandlerErrorDoesNotPoisonWorker(t *testing.T) {
	p := New(discardLogger(), 1)
	defer p.Drain()

	done := make(chan struct{})
	p.Submit(Job{
		Run:        func() (interface{}, error) { return nil, errors.New("boom") },
		OnComplete: func(result interface{}, err error) {},
	})
	p.Submit(Job{
		Run: func() (interface{}, error) { return "still alive", nil },
		OnComplete: func(result interface{}, err error) {
			if result != "still alive" {
				t.Errorf("got %v, want still alive", result)
			}
			close(done)
		},
	})
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not process job after a prior handler error")
	}
}

func TestPoolHandlerPanicDoesNotPoisonWorker(t *testing.T) {
	p := New(discardLogger(), 1)
	defer p.Drain()

	done := make(chan struct{})
	p.Submit(Job{
		Run:        func() (interface{}, error) { panic("boom") },
		OnComplete: func(result interface{}, err error) {},
	})
	p.Submit(Job{
		Run: func() (interface{}, error) { return "still alive", nil },
		OnComplete: func(result interface{}, err error) {
			close(done)
		},
	})
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not process job after a prior handler panic")
	}
}

func TestDrainWaitsForInFlightJobs(t *testing.T) {
	p := New(discardLogger(), 1)
	started := make(chan struct{})
	release := make(chan struct{})
	completed := false

	p.Submit(Job{
		Run: func() (interface{}, error) {
			close(started)
			<-release
			return nil, nil
		},
		OnComplete: func(result interface{}, err error) { completed = true },
	})
	<-started
	close(release)
	p.Drain()
	if !completed {
		t.Error("Drain returned before the in-flight job's completion ran")
	}
}
