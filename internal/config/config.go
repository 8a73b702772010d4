// Copyright 2026 dhcpv6d Authors. All rights reserved
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

// Package config holds the typed configuration model the server core
// consumes (§3/§4.1) and the section-based text parser that populates
// it. Section syntax is summarized in SPEC_FULL.md §6 and §10.2; the
// accepted line forms are described on scan and build in parse.go.
package config

import (
	"encoding/hex"
	"net"
)

// RawInterface is the unresolved, as-parsed view of one
// `[interface NAME]` (or `[interface *]`) section: string-valued so the
// resolver (internal/iface) can apply OS interface/address knowledge
// before producing a concrete InterfaceConfig.
type RawInterface struct {
	Name               string
	Multicast          bool
	ListenToSelf       bool
	LinkLocalAddresses string // "all" | "auto" | address list
	GlobalAddresses    string // "all" | "auto" | address list
	Unknown            map[string]string
}

// InterfaceConfig is the resolved, concrete per-interface view (§3).
type InterfaceConfig struct {
	Name         string
	Multicast    bool
	ListenToSelf bool
	LinkLocal    []net.IP
	Global       []net.IP
}

// LoggingConfig corresponds to the `[logging]` section.
type LoggingConfig struct {
	Facility string
}

// HandlerConfig corresponds to the `[handler]` section: a descriptor
// resolved against the build-time registry in internal/handler.
type HandlerConfig struct {
	Module  string
	Class   string
	Unknown map[string]string
}

// Descriptor returns the registry key this handler config resolves to.
// Module and Class are joined the way the original config combined an
// import path and class name; most registrations key on Module alone.
func (h HandlerConfig) Descriptor() string {
	if h.Class == "" {
		return h.Module
	}
	return h.Module + "." + h.Class
}

// ServerConfig is the immutable-after-startup typed view (§3).
type ServerConfig struct {
	DUID              []byte
	User              string
	Group             string
	ExceptionWindowS  float64
	MaxExceptions     int
	Workers           int
	Logging           LoggingConfig
	Handler           HandlerConfig
	Interfaces        map[string]RawInterface
	WildcardInterface *RawInterface
}

const (
	defaultExceptionWindowS = 1.0
	defaultMaxExceptions    = 10
	defaultWorkers          = 10
)

// applyDefaults fills in fields the file left unset, per §3's stated
// defaults.
func (s *ServerConfig) applyDefaults() {
	if s.ExceptionWindowS <= 0 {
		s.ExceptionWindowS = defaultExceptionWindowS
	}
	if s.MaxExceptions <= 0 {
		s.MaxExceptions = defaultMaxExceptions
	}
	if s.Workers <= 0 {
		s.Workers = defaultWorkers
	}
	if s.Interfaces == nil {
		s.Interfaces = make(map[string]RawInterface)
	}
}

// DUIDHex returns the configured DUID re-encoded as lowercase hex, or
// "" if none was configured (meaning: derive one, per §4.3).
func (s *ServerConfig) DUIDHex() string {
	if len(s.DUID) == 0 {
		return ""
	}
	return hex.EncodeToString(s.DUID)
}
