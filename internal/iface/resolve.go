// Copyright 2026 dhcpv6d Authors. All rights reserved
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

// Package iface resolves the raw, as-parsed interface sections (§4.1)
// against the host's actual interfaces and addresses, producing the
// concrete InterfaceConfig set the rest of the core binds to (§4.2).
package iface

import (
	"bytes"
	"fmt"
	"log/slog"
	"net"
	"sort"

	"github.com/bits-and-blooms/bitset"

	"github.com/sixnet/dhcpv6d/internal/config"
)

// NetworkInterfaces abstracts host interface/address enumeration so
// tests can substitute a fixed topology instead of the real OS state.
type NetworkInterfaces interface {
	Interfaces() ([]net.Interface, error)
	Addrs(ifi net.Interface) ([]net.Addr, error)
}

type osInterfaces struct{}

func (osInterfaces) Interfaces() ([]net.Interface, error) { return net.Interfaces() }
func (osInterfaces) Addrs(ifi net.Interface) ([]net.Addr, error) { return ifi.Addrs() }

// Resolver implements §4.2.
type Resolver struct {
	log *slog.Logger
	net NetworkInterfaces
}

// New builds a Resolver against the real host network stack.
func New(log *slog.Logger) *Resolver {
	return &Resolver{log: log.With("component", "iface"), net: osInterfaces{}}
}

// NewWithNetwork builds a Resolver against a substitute NetworkInterfaces,
// for tests.
func NewWithNetwork(log *slog.Logger, n NetworkInterfaces) *Resolver {
	return &Resolver{log: log.With("component", "iface"), net: n}
}

// Resolve implements the algorithm of §4.2 and returns the final
// name -> InterfaceConfig map, with interfaces that end up with both
// address sets empty dropped.
func (r *Resolver) Resolve(cfg *config.ServerConfig) (map[string]config.InterfaceConfig, error) {
	osIfaces, err := r.net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("listing network interfaces: %w", err)
	}
	byName := make(map[string]net.Interface, len(osIfaces))
	for _, ifi := range osIfaces {
		byName[ifi.Name] = ifi
	}

	raw := make(map[string]config.RawInterface, len(cfg.Interfaces))
	for name, ri := range cfg.Interfaces {
		raw[name] = ri
	}

	// Step 1: wildcard expansion — clone to every OS interface lacking
	// an explicit section, then discard the template.
	if cfg.WildcardInterface != nil {
		for name := range byName {
			if _, explicit := raw[name]; explicit {
				continue
			}
			clone := *cfg.WildcardInterface
			clone.Name = name
			raw[name] = clone
		}
	}

	out := make(map[string]config.InterfaceConfig, len(raw))
	for name, ri := range raw {
		ifi, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("interface %q in configuration does not exist on this host", name)
		}

		addrs, err := r.net.Addrs(ifi)
		if err != nil {
			return nil, fmt.Errorf("listing addresses on %q: %w", name, err)
		}
		ips := ipsOf(addrs)

		linkLocal, err := resolveAddressSet(ri.LinkLocalAddresses, ips, isLinkLocal)
		if err != nil {
			return nil, fmt.Errorf("interface %q link-local-addresses: %w", name, err)
		}
		global, err := resolveAddressSet(ri.GlobalAddresses, ips, isAcceptableGlobal)
		if err != nil {
			return nil, fmt.Errorf("interface %q global-addresses: %w", name, err)
		}

		if len(linkLocal) == 0 && len(global) == 0 {
			r.log.Debug("dropping interface with no qualifying addresses", "interface", name)
			continue
		}
		if ri.Multicast && len(linkLocal) == 0 {
			return nil, fmt.Errorf("interface %q has multicast=yes but no link-local address", name)
		}

		out[name] = config.InterfaceConfig{
			Name:         name,
			Multicast:    ri.Multicast,
			ListenToSelf: ri.ListenToSelf,
			LinkLocal:    linkLocal,
			Global:       global,
		}
	}
	return out, nil
}

func ipsOf(addrs []net.Addr) []net.IP {
	out := make([]net.IP, 0, len(addrs))
	for _, a := range addrs {
		var ip net.IP
		switch v := a.(type) {
		case *net.IPNet:
			ip = v.IP
		case *net.IPAddr:
			ip = v.IP
		}
		if ip != nil && ip.To4() == nil {
			out = append(out, ip)
		}
	}
	return out
}

func isLinkLocal(ip net.IP) bool { return ip.IsLinkLocalUnicast() }

// isAcceptableGlobal codifies the open question in §9: accept iff
// (global ∨ ULA) ∧ ¬multicast. net.IP.IsGlobalUnicast already excludes
// multicast and link-local addresses and includes ULA, but the
// multicast exclusion is restated explicitly so the rule reads the way
// the spec states it rather than relying on stdlib documentation.
func isAcceptableGlobal(ip net.IP) bool {
	return ip.IsGlobalUnicast() && !ip.IsMulticast()
}

// resolveAddressSet implements the per-field "all" | "auto" |
// explicit-list resolution of §4.2 step 3.
func resolveAddressSet(spec string, candidates []net.IP, scope func(net.IP) bool) ([]net.IP, error) {
	switch spec {
	case "", "none":
		return nil, nil
	case "all":
		var out []net.IP
		for _, ip := range candidates {
			if scope(ip) {
				out = append(out, ip)
			}
		}
		return out, nil
	case "auto":
		var matching []net.IP
		for _, ip := range candidates {
			if scope(ip) {
				matching = append(matching, ip)
			}
		}
		best := pickAuto(matching)
		if best == nil {
			return nil, nil
		}
		return []net.IP{best}, nil
	default:
		list := config.SplitAddressList(spec)
		seen := make(map[string]bool, len(list))
		out := make([]net.IP, 0, len(list))
		for _, s := range list {
			ip := net.ParseIP(s)
			if ip == nil {
				return nil, fmt.Errorf("invalid IPv6 address %q", s)
			}
			if !scope(ip) {
				return nil, fmt.Errorf("address %q is not valid for this field's scope", s)
			}
			key := ip.String()
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, ip)
		}
		return out, nil
	}
}

// pickAuto selects the "best" address per §4.2 step 3's `auto` rule:
// among addresses whose interface-identifier universal/local bit (bit 1
// of byte 8) is set, the numerically smallest; failing that, the
// numerically smallest overall. All candidates are sorted numerically
// first; the qualifying bit of each is then recorded in a bitset, and the
// first set position (the smallest qualifying address) wins.
func pickAuto(candidates []net.IP) net.IP {
	if len(candidates) == 0 {
		return nil
	}
	sorted := make([]net.IP, len(candidates))
	copy(sorted, candidates)
	sort.Slice(sorted, func(i, j int) bool {
		return bytes.Compare(sorted[i].To16(), sorted[j].To16()) < 0
	})

	qualifies := bitset.New(uint(len(sorted)))
	for i, ip := range sorted {
		b16 := ip.To16()
		if b16 != nil && b16[8]&0x02 != 0 {
			qualifies.Set(uint(i))
		}
	}
	for i := uint(0); i < qualifies.Len(); i++ {
		if qualifies.Test(i) {
			return sorted[i]
		}
	}
	return sorted[0]
}
