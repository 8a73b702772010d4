// Copyright 2026 dhcpv6d Authors. All rights reserved
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

package supervisor

import (
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discardWriter{}, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

type fakeListener struct {
	stop       chan struct{}
	once       sync.Once
	panicOnRun bool
	runCalls   int32
}

func newFakeListener() *fakeListener { return &fakeListener{stop: make(chan struct{})} }

func (f *fakeListener) Run() {
	atomic.AddInt32(&f.runCalls, 1)
	if f.panicOnRun {
		panic("listener exploded")
	}
	<-f.stop
}

func (f *fakeListener) Stop() {
	f.once.Do(func() { close(f.stop) })
}

type fakePool struct{ drained int32 }

func (p *fakePool) Drain() { atomic.AddInt32(&p.drained, 1) }

type fakeHandler struct {
	reloads int32
	err     error
}

func (h *fakeHandler) Reload() error {
	atomic.AddInt32(&h.reloads, 1)
	return h.err
}

func TestRunGracefulShutdownOnSIGINT(t *testing.T) {
	l := newFakeListener()
	p := &fakePool{}
	h := &fakeHandler{}
	s := New(discardLogger(), l, p, h, 1.0, 10)

	errCh := make(chan error, 1)
	go func() { errCh <- s.Run() }()

	time.Sleep(50 * time.Millisecond)
	if err := syscall.Kill(os.Getpid(), syscall.SIGINT); err != nil {
		t.Fatalf("failed to self-signal: %v", err)
	}

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("expected graceful shutdown (nil error), got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run never returned after SIGINT")
	}

	if atomic.LoadInt32(&p.drained) != 1 {
		t.Errorf("expected pool drained once, got %d", p.drained)
	}
}

func TestRunSIGHUPReloadsHandler(t *testing.T) {
	l := newFakeListener()
	p := &fakePool{}
	h := &fakeHandler{}
	s := New(discardLogger(), l, p, h, 1.0, 10)

	errCh := make(chan error, 1)
	go func() { errCh <- s.Run() }()

	time.Sleep(50 * time.Millisecond)
	if err := syscall.Kill(os.Getpid(), syscall.SIGHUP); err != nil {
		t.Fatalf("failed to self-signal: %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	if atomic.LoadInt32(&h.reloads) != 1 {
		t.Errorf("expected 1 reload, got %d", h.reloads)
	}

	syscall.Kill(os.Getpid(), syscall.SIGINT)
	select {
	case <-errCh:
	case <-time.After(2 * time.Second):
		t.Fatal("Run never returned after final SIGINT")
	}
}

func TestRunExceptionStormShutsDown(t *testing.T) {
	l := newFakeListener()
	l.panicOnRun = true
	p := &fakePool{}
	h := &fakeHandler{}
	// max=0: the very first recorded panic already exceeds the threshold.
	s := New(discardLogger(), l, p, h, 60.0, 0)

	errCh := make(chan error, 1)
	go func() { errCh <- s.Run() }()

	select {
	case err := <-errCh:
		if err == nil {
			t.Error("expected exception-storm shutdown to return an error")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run never returned after exception storm")
	}

	if atomic.LoadInt32(&p.drained) != 1 {
		t.Errorf("expected pool drained once, got %d", p.drained)
	}
}
