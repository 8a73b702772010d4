// Copyright 2026 dhcpv6d Authors. All rights reserved
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

// Package logonly provides a minimal registered handler that logs each
// request and never replies. It is grounded on the teacher's
// plugins/example plugin: a worked example of the registration idiom,
// collapsed from the chain-of-plugins Handler6/Handler4 contract to the
// single handler.Handler interface spec.md requires.
package logonly

import (
	"log/slog"
	"net"

	"github.com/insomniacslk/dhcp/dhcpv6"

	"github.com/sixnet/dhcpv6d/internal/handler"
)

func init() {
	handler.Register("logonly", func(log *slog.Logger, args map[string]string) (handler.Handler, error) {
		return &Handler{log: log.With("component", "handler/logonly")}, nil
	})
}

// Handler implements handler.Handler by logging and dropping.
type Handler struct {
	log *slog.Logger
}

// Handle logs the inbound message's summary, sender and receiver and
// never replies, matching exampleHandler6's "log and pass through unmodified"
// demonstration intent, adapted to a contract with no next handler to
// pass through to.
func (h *Handler) Handle(msgIn dhcpv6.DHCPv6, sender, receiver *net.UDPAddr) (handler.Result, error) {
	h.log.Info("received message", "summary", msgIn.Summary(), "sender", sender.String(), "receiver", receiver.String())
	return handler.Result{}, nil
}

// Reload is a no-op; this handler carries no state to refresh.
func (h *Handler) Reload() error {
	h.log.Info("reload requested")
	return nil
}
