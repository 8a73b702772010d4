// Copyright 2026 dhcpv6d Authors. All rights reserved
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

// Package handler defines the external handler contract (§4.5/§4.6)
// and the build-time registry used to resolve a configured handler
// descriptor to a concrete implementation, collapsing the teacher's
// chain-of-plugins model down to the single shared handler spec.md
// requires.
package handler

import (
	"fmt"
	"log/slog"
	"net"

	"github.com/insomniacslk/dhcp/dhcpv6"
)

// Message is the narrow serialization boundary the dispatcher needs
// from a reply (§4.7 step 2: "serialize the outbound Message"). Any
// dhcpv6.DHCPv6 value satisfies this already; the narrower interface
// keeps the dispatcher decoupled from the full codec contract.
type Message interface {
	ToBytes() []byte
}

// Result is the outcome of one Handle call (§4.6).
//
//   - Reply == nil, Destination == nil: no reply is sent.
//   - Reply != nil, Destination == nil: reply to the original sender.
//   - Reply != nil, Destination != nil: reply to the given destination.
type Result struct {
	Reply       Message
	Destination *net.UDPAddr
}

// Handler is the single external collaborator the core dispatches
// every parsed datagram to (§1, §4.5, §4.6). Implementations must be
// safe for concurrent Handle calls and for Reload interleaving with
// Handle; the core imposes no lock (§5). msgIn is already parsed by the
// codec boundary (§10.6); message semantics themselves are out of the
// core's scope (§1).
type Handler interface {
	// Handle processes one parsed incoming message. sender and
	// receiver are the (address, port) pairs the datagram arrived
	// with/on. An error is treated as a handler error (§7): logged,
	// no reply sent.
	Handle(msgIn dhcpv6.DHCPv6, sender, receiver *net.UDPAddr) (Result, error)

	// Reload is invoked on SIGHUP (§4.8). It does not re-bind sockets.
	Reload() error
}

// Factory builds a Handler from an injected logger (matching every
// other core constructor's logger-injection convention) and the
// config-supplied descriptor arguments (module/class plus unknown
// option keys).
type Factory func(log *slog.Logger, args map[string]string) (Handler, error)

var registry = make(map[string]Factory)

// Register adds a handler factory under name, normally called from a
// handler package's init function, mirroring the teacher's
// plugins.RegisterPlugin idiom collapsed to one factory per name
// instead of a Setup4/Setup6 pair.
func Register(name string, factory Factory) {
	if factory == nil {
		panic(fmt.Sprintf("handler: nil factory registered for %q", name))
	}
	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("handler: %q already registered", name))
	}
	registry[name] = factory
}

// Resolve looks up a registered factory by descriptor and builds a
// Handler. An unknown descriptor is a startup-fatal error (§7).
func Resolve(log *slog.Logger, descriptor string, args map[string]string) (Handler, error) {
	factory, ok := registry[descriptor]
	if !ok {
		return nil, fmt.Errorf("unknown handler descriptor %q", descriptor)
	}
	return factory(log, args)
}
