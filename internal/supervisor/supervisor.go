// Copyright 2026 dhcpv6d Authors. All rights reserved
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

// Package supervisor implements the supervisory loop (§4.8): signal
// routing and exception-window throttling around the listener event
// loop. Grounded on the original Python implementation's main() select
// loop (signal-to-pipe bridge, sliding exception window) and on
// athena-dhcpd's cmd/athena-dhcpd/main.go signal.Notify pattern,
// adapted to Go's channel-based signal delivery instead of a literal
// self-pipe.
package supervisor

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// Listener is the subset of listener.Listener the supervisor drives.
type Listener interface {
	Run()
	Stop()
}

// Pool is the subset of workerpool.Pool the supervisor drains on
// shutdown.
type Pool interface {
	Drain()
}

// Handler is the subset of handler.Handler the supervisor reloads on
// SIGHUP.
type Handler interface {
	Reload() error
}

// Supervisor owns the process's signal handling and exception-storm
// detection around a running Listener.
type Supervisor struct {
	log      *slog.Logger
	listener Listener
	pool     Pool
	handler  Handler
	history  *ExceptionHistory
	signals  chan os.Signal
}

// New builds a Supervisor. exceptionWindowS and maxExceptions configure
// the sliding exception window (§3, §4.8).
func New(log *slog.Logger, l Listener, pool Pool, h Handler, exceptionWindowS float64, maxExceptions int) *Supervisor {
	return &Supervisor{
		log:      log.With("component", "supervisor"),
		listener: l,
		pool:     pool,
		handler:  h,
		history:  NewExceptionHistory(exceptionWindowS, maxExceptions),
		signals:  make(chan os.Signal, 1),
	}
}

// Run starts the listener and blocks until a graceful shutdown signal
// (SIGINT/SIGTERM) or an exception-storm shutdown (§4.8). It returns nil
// for graceful shutdown and a non-nil error when the exception window
// was exceeded — the caller maps that to exit code 1 (§6, §7).
func (s *Supervisor) Run() error {
	signal.Notify(s.signals, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(s.signals)

	done := make(chan struct{})
	crashed := make(chan struct{}, 1)
	go s.runListener(done, crashed)

	s.log.Info("ready to handle requests")

	for {
		select {
		case sig := <-s.signals:
			switch sig {
			case syscall.SIGHUP:
				if err := s.handler.Reload(); err != nil {
					s.log.Error("handler reload failed", "err", err)
				}
			case syscall.SIGINT, syscall.SIGTERM:
				s.log.Info("received termination request")
				s.shutdown()
				return nil
			}
		case <-crashed:
			s.log.Error("exception-storm threshold exceeded, shutting down",
				"max_exceptions", s.history.max, "window_seconds", s.history.window.Seconds())
			s.shutdown()
			return fmt.Errorf("exception-storm shutdown: exceeded %d exceptions within %s", s.history.max, s.history.window)
		case <-done:
			s.shutdown()
			return nil
		}
	}
}

func (s *Supervisor) shutdown() {
	s.listener.Stop()
	s.pool.Drain()
	s.log.Info("shut down")
}

// runListener runs the listener event loop, restarting it across
// unexpected panics and recording each into the exception window
// (§3/§4.8/§7), matching the original's "catch-all exception handler,
// keep looping unless the storm threshold is exceeded" behavior.
// A clean return from Listener.Run (Stop was called) closes done.
func (s *Supervisor) runListener(done chan<- struct{}, crashed chan<- struct{}) {
	for {
		if !s.runOnce() {
			close(done)
			return
		}
		if s.history.Record(time.Now()) {
			crashed <- struct{}{}
			return
		}
	}
}

func (s *Supervisor) runOnce() (panicked bool) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("listener loop panicked, restarting", "panic", r)
			panicked = true
		}
	}()
	s.listener.Run()
	return false
}
