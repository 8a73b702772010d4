// Copyright 2026 dhcpv6d Authors. All rights reserved
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

package dispatch

import (
	"errors"
	"log/slog"
	"net"
	"testing"

	"github.com/sixnet/dhcpv6d/internal/handler"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discardWriter{}, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

type fakeSender struct {
	sent []sentReply
	err  error
}

type sentReply struct {
	bytes []byte
	dest  *net.UDPAddr
}

func (f *fakeSender) SendReply(b []byte, dst *net.UDPAddr) error {
	f.sent = append(f.sent, sentReply{bytes: b, dest: dst})
	return f.err
}

type fakeMessage struct{ wire []byte }

func (m fakeMessage) ToBytes() []byte { return m.wire }

func TestCompleteNoReplySendsNothing(t *testing.T) {
	d := New(discardLogger())
	fs := &fakeSender{}
	sender := &net.UDPAddr{IP: net.ParseIP("fe80::1"), Port: 546}
	d.Complete(fs, sender)(handler.Result{}, nil)
	if len(fs.sent) != 0 {
		t.Errorf("expected no send, got %d", len(fs.sent))
	}
}

func TestCompleteHandlerErrorSendsNothing(t *testing.T) {
	d := New(discardLogger())
	fs := &fakeSender{}
	sender := &net.UDPAddr{IP: net.ParseIP("fe80::1"), Port: 546}
	d.Complete(fs, sender)(handler.Result{Reply: fakeMessage{wire: []byte("reply")}}, errors.New("handler blew up"))
	if len(fs.sent) != 0 {
		t.Errorf("expected no send on handler error, got %d", len(fs.sent))
	}
}

func TestCompleteRepliesToSenderByDefault(t *testing.T) {
	d := New(discardLogger())
	fs := &fakeSender{}
	sender := &net.UDPAddr{IP: net.ParseIP("fe80::1"), Port: 546}
	d.Complete(fs, sender)(handler.Result{Reply: fakeMessage{wire: []byte("reply")}}, nil)
	if len(fs.sent) != 1 {
		t.Fatalf("expected 1 send, got %d", len(fs.sent))
	}
	if fs.sent[0].dest.String() != sender.String() {
		t.Errorf("sent to %v, want sender %v", fs.sent[0].dest, sender)
	}
}

func TestCompleteRepliesToExplicitDestination(t *testing.T) {
	d := New(discardLogger())
	fs := &fakeSender{}
	sender := &net.UDPAddr{IP: net.ParseIP("fe80::1"), Port: 546}
	dest := &net.UDPAddr{IP: net.ParseIP("fe80::2"), Port: 546}
	d.Complete(fs, sender)(handler.Result{Reply: fakeMessage{wire: []byte("reply")}, Destination: dest}, nil)
	if len(fs.sent) != 1 {
		t.Fatalf("expected 1 send, got %d", len(fs.sent))
	}
	if fs.sent[0].dest.String() != dest.String() {
		t.Errorf("sent to %v, want explicit destination %v", fs.sent[0].dest, dest)
	}
}
