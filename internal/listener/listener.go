// Copyright 2026 dhcpv6d Authors. All rights reserved
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

// Package listener implements the listener/event loop (§4.5): one
// goroutine per bound socket reading datagrams into a shared channel,
// consumed by a single dispatch goroutine that parses each datagram and
// submits it to the worker pool. Grounded on the teacher's
// server/serve.go Serve loop, generalized from "one unbounded goroutine
// per packet" to routing every datagram through a bounded
// internal/workerpool.Pool instead.
package listener

import (
	"errors"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/insomniacslk/dhcp/dhcpv6"

	"github.com/sixnet/dhcpv6d/internal/dispatch"
	"github.com/sixnet/dhcpv6d/internal/handler"
	"github.com/sixnet/dhcpv6d/internal/metrics"
	"github.com/sixnet/dhcpv6d/internal/workerpool"
)

// MaxDatagram is the maximum DHCPv6 datagram size accepted.
const MaxDatagram = 1 << 16

// Socket is the subset of socketset.Socket the listener needs: read one
// datagram, send a reply, and report the bound local address. Expressed
// narrowly so tests can substitute a fake without building real sockets.
type Socket interface {
	ReadDatagram(buf []byte) (n int, sender *net.UDPAddr, err error)
	SendReply(b []byte, dst *net.UDPAddr) error
	LocalAddr() *net.UDPAddr
}

// Pool is the subset of workerpool.Pool the listener needs.
type Pool interface {
	Submit(job workerpool.Job) bool
}

type datagram struct {
	sock     Socket
	buf      []byte
	sender   *net.UDPAddr
	receiver *net.UDPAddr
}

// Listener is the core's event loop over a fixed set of sockets. Run
// blocks until Stop is called; reader goroutines exiting on their own
// does not end it. Run may
// be called again after it returns (the supervisor restarts it across
// a recovered panic); each call owns its own generation of reader
// goroutines and channels so a restart's readers are never entangled
// with a prior, still-unwinding generation's.
type Listener struct {
	log      *slog.Logger
	sockets  []Socket
	pool     Pool
	handler  handler.Handler
	dispatch *dispatch.Dispatcher
	metrics  *metrics.Metrics

	mu       sync.Mutex
	stopping chan struct{}
	stopOnce *sync.Once
}

// SetMetrics wires an optional instrumentation sink; nil disables it.
func (l *Listener) SetMetrics(m *metrics.Metrics) {
	l.metrics = m
}

// New builds a Listener over the given sockets. handler is the single
// shared collaborator every parsed datagram is routed to (§4.5/§4.6).
func New(log *slog.Logger, sockets []Socket, pool Pool, h handler.Handler, d *dispatch.Dispatcher) *Listener {
	return &Listener{
		log:      log.With("component", "listener"),
		sockets:  sockets,
		pool:     pool,
		handler:  h,
		dispatch: d,
	}
}

// Run polls every socket (via per-socket reader goroutines) plus the
// internal stop signal, submitting each parsed datagram to the worker
// pool without blocking on handler completion (§4.5, §5). It returns
// once Stop is called and every reader of this generation has exited.
func (l *Listener) Run() {
	incoming := make(chan datagram)
	stopping := make(chan struct{})
	once := &sync.Once{}

	l.mu.Lock()
	l.stopping, l.stopOnce = stopping, once
	l.mu.Unlock()

	var readers sync.WaitGroup
	for _, sock := range l.sockets {
		readers.Add(1)
		go l.readLoop(sock, incoming, stopping, &readers)
	}
	for {
		select {
		case dg := <-incoming:
			l.handle(dg)
		case <-stopping:
			readers.Wait()
			return
		}
	}
}

// Stop closes the current generation's stop signal, causing Run to
// return once its in-flight reads unwind. Closing the underlying
// sockets (socketset.Set.Close) is the caller's responsibility and is
// what actually unblocks a pending ReadDatagram call.
func (l *Listener) Stop() {
	l.mu.Lock()
	stopping, once := l.stopping, l.stopOnce
	l.mu.Unlock()
	if once == nil {
		return
	}
	once.Do(func() {
		close(stopping)
	})
}

func (l *Listener) readLoop(sock Socket, incoming chan<- datagram, stopping <-chan struct{}, readers *sync.WaitGroup) {
	defer readers.Done()
	buf := make([]byte, MaxDatagram)
	for {
		n, sender, err := sock.ReadDatagram(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			l.log.Error("read failed, socket abandoned", "err", err)
			return
		}
		cp := make([]byte, n)
		copy(cp, buf[:n])
		receiver := sock.LocalAddr()
		l.metrics.ReceivedDatagram(ifaceLabel(receiver))
		dg := datagram{sock: sock, buf: cp, sender: sender, receiver: receiver}
		select {
		case incoming <- dg:
		case <-stopping:
			return
		}
	}
}

// handle parses one datagram and submits it to the worker pool. A parse
// failure is logged and dropped, never propagated (§7).
func (l *Listener) handle(dg datagram) {
	iface := ifaceLabel(dg.receiver)
	msgIn, err := dhcpv6.FromBytes(dg.buf)
	if err != nil {
		l.metrics.DroppedDatagram(iface, "parse_error")
		l.log.Info("dropping unparseable datagram", "sender", dg.sender.String(), "err", err)
		return
	}
	l.metrics.ParsedDatagram(iface)

	sender, receiver, h, m := dg.sender, dg.receiver, l.handler, l.metrics
	onComplete := l.dispatch.Complete(dg.sock, sender)
	job := workerpool.Job{
		Run: func() (interface{}, error) {
			start := time.Now()
			defer func() { m.ObserveHandlerLatency(iface, time.Since(start).Seconds()) }()
			return h.Handle(msgIn, sender, receiver)
		},
		OnComplete: onComplete,
	}
	if !l.pool.Submit(job) {
		l.metrics.DroppedDatagram(iface, "pool_draining")
		l.log.Debug("dropped datagram: worker pool draining", "sender", sender.String())
	}
}

// ifaceLabel derives a metrics label from a socket's bound address: its
// zone (interface name) if scoped, else "global" for a global-address
// socket with no zone.
func ifaceLabel(addr *net.UDPAddr) string {
	if addr == nil || addr.Zone == "" {
		return "global"
	}
	return addr.Zone
}
