// Copyright 2026 dhcpv6d Authors. All rights reserved
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

package listener

import (
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/insomniacslk/dhcp/dhcpv6"

	"github.com/sixnet/dhcpv6d/internal/dispatch"
	"github.com/sixnet/dhcpv6d/internal/handler"
	"github.com/sixnet/dhcpv6d/internal/workerpool"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discardWriter{}, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

// solicitWire is a minimal, option-free DHCPv6 Solicit: msg-type 1
// followed by a 3-byte transaction id.
var solicitWire = []byte{byte(dhcpv6.MessageTypeSolicit), 0, 0, 1}

type fakeSocket struct {
	reads    [][]byte
	idx      int
	local    *net.UDPAddr
	sent     [][]byte
	sendDest []*net.UDPAddr
}

func (f *fakeSocket) ReadDatagram(buf []byte) (int, *net.UDPAddr, error) {
	if f.idx >= len(f.reads) {
		return 0, nil, net.ErrClosed
	}
	b := f.reads[f.idx]
	f.idx++
	n := copy(buf, b)
	return n, &net.UDPAddr{IP: net.ParseIP("fe80::9"), Port: 546}, nil
}

func (f *fakeSocket) SendReply(b []byte, dst *net.UDPAddr) error {
	f.sent = append(f.sent, b)
	f.sendDest = append(f.sendDest, dst)
	return nil
}

func (f *fakeSocket) LocalAddr() *net.UDPAddr { return f.local }

// syncPool runs every submitted job inline, so tests don't need to
// coordinate with real worker goroutines.
type syncPool struct{ submitted int }

func (p *syncPool) Submit(job workerpool.Job) bool {
	p.submitted++
	result, err := job.Run()
	job.OnComplete(result, err)
	return true
}

type fakeCall struct{ sender, receiver *net.UDPAddr }

type fakeHandler struct {
	calls  []fakeCall
	result handler.Result
	err    error
	done   chan struct{}
}

func (f *fakeHandler) Handle(msgIn dhcpv6.DHCPv6, sender, receiver *net.UDPAddr) (handler.Result, error) {
	f.calls = append(f.calls, fakeCall{sender, receiver})
	if f.done != nil {
		close(f.done)
	}
	return f.result, f.err
}

func (f *fakeHandler) Reload() error { return nil }

func TestListenerParsesAndSubmits(t *testing.T) {
	local := &net.UDPAddr{IP: net.ParseIP("fe80::1"), Port: 547}
	sock := &fakeSocket{reads: [][]byte{solicitWire}, local: local}
	pool := &syncPool{}
	h := &fakeHandler{done: make(chan struct{})}
	d := dispatch.New(discardLogger())

	l := New(discardLogger(), []Socket{sock}, pool, h, d)
	go l.Run()

	select {
	case <-h.done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler was never invoked")
	}
	l.Stop()

	if pool.submitted != 1 {
		t.Errorf("expected 1 job submitted, got %d", pool.submitted)
	}
	if len(h.calls) != 1 {
		t.Fatalf("expected 1 handler call, got %d", len(h.calls))
	}
	if h.calls[0].sender.IP.String() != "fe80::9" {
		t.Errorf("sender = %v, want fe80::9", h.calls[0].sender)
	}
	if h.calls[0].receiver.String() != local.String() {
		t.Errorf("receiver = %v, want %v", h.calls[0].receiver, local)
	}
}

func TestListenerDropsUnparseableDatagram(t *testing.T) {
	local := &net.UDPAddr{IP: net.ParseIP("fe80::1"), Port: 547}
	sock := &fakeSocket{reads: [][]byte{{}}, local: local}
	pool := &syncPool{}
	h := &fakeHandler{}
	d := dispatch.New(discardLogger())

	l := New(discardLogger(), []Socket{sock}, pool, h, d)
	done := make(chan struct{})
	go func() {
		l.Run()
		close(done)
	}()

	// Give the reader goroutine time to hit the empty read, exhaust its
	// programmed datagrams, and exit on net.ErrClosed.
	time.Sleep(50 * time.Millisecond)
	l.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run never returned after Stop")
	}

	if pool.submitted != 0 {
		t.Errorf("expected no job submitted for an unparseable datagram, got %d", pool.submitted)
	}
	if len(h.calls) != 0 {
		t.Errorf("expected handler never invoked, got %d calls", len(h.calls))
	}
}

func TestListenerRepliesViaDispatcher(t *testing.T) {
	local := &net.UDPAddr{IP: net.ParseIP("fe80::1"), Port: 547}
	sock := &fakeSocket{reads: [][]byte{solicitWire}, local: local}
	pool := &syncPool{}
	h := &fakeHandler{
		done:   make(chan struct{}),
		result: handler.Result{Reply: wireMessage{wire: []byte("advertise")}},
	}
	d := dispatch.New(discardLogger())

	l := New(discardLogger(), []Socket{sock}, pool, h, d)
	go l.Run()

	select {
	case <-h.done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler was never invoked")
	}
	l.Stop()

	if len(sock.sent) != 1 {
		t.Fatalf("expected 1 reply sent, got %d", len(sock.sent))
	}
	if sock.sendDest[0].IP.String() != "fe80::9" {
		t.Errorf("replied to %v, want original sender fe80::9", sock.sendDest[0])
	}
}

type wireMessage struct{ wire []byte }

func (m wireMessage) ToBytes() []byte { return m.wire }
