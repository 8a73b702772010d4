// Copyright 2026 dhcpv6d Authors. All rights reserved
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

// Package dispatch implements the response dispatcher (§4.7): it
// interprets a handler.Result and sends the reply from the correct
// socket, grounded on the original Python implementation's
// create_handler_callback.
package dispatch

import (
	"log/slog"
	"net"

	"github.com/sixnet/dhcpv6d/internal/handler"
)

// ReplySender is the subset of socketset.Socket the dispatcher needs;
// expressed as an interface here so tests can substitute a fake sink
// instead of a real bound socket.
type ReplySender interface {
	SendReply(b []byte, dst *net.UDPAddr) error
}

// Dispatcher sends handler results out the socket they arrived on (or
// its paired reply-from socket, for multicast-bound sockets).
type Dispatcher struct {
	log *slog.Logger
}

// New builds a Dispatcher.
func New(log *slog.Logger) *Dispatcher {
	return &Dispatcher{log: log.With("component", "dispatch")}
}

// Complete is invoked as a worker's OnComplete callback (§4.6/§4.7).
// result must be a handler.Result (or nil, meaning "no reply"); sender
// is the original request's source address, used when the handler
// result carries no explicit destination.
func (d *Dispatcher) Complete(sock ReplySender, sender *net.UDPAddr) func(result interface{}, err error) {
	return func(result interface{}, err error) {
		if err != nil {
			// Already logged by the worker pool; no reply on handler error (§7).
			return
		}
		if result == nil {
			return
		}
		res, ok := result.(handler.Result)
		if !ok {
			d.log.Error("handler returned a malformed result shape", "type", typeName(result))
			return
		}
		if res.Reply == nil {
			return
		}
		wire := serialize(res.Reply)
		if wire == nil {
			d.log.Error("failed to serialize outbound message")
			return
		}
		dest := res.Destination
		if dest == nil {
			dest = sender
		}
		if sendErr := sock.SendReply(wire, dest); sendErr != nil {
			d.log.Error("send_reply failed", "destination", dest.String(), "err", sendErr)
		}
	}
}

// serialize converts the outbound Message to wire bytes (§4.7 step 2).
// A panic during serialization (the codec's only failure signal for a
// malformed in-memory message) is treated as a serialization error:
// logged and dropped, never propagated to the caller.
func serialize(msg interface{ ToBytes() []byte }) (wire []byte) {
	defer func() {
		if recover() != nil {
			wire = nil
		}
	}()
	return msg.ToBytes()
}

func typeName(v interface{}) string {
	if v == nil {
		return "<nil>"
	}
	type stringer interface{ String() string }
	if s, ok := v.(stringer); ok {
		return s.String()
	}
	return "unknown"
}
