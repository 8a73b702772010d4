// Copyright 2026 dhcpv6d Authors. All rights reserved
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

// Package duid derives the server's DHCP Unique Identifier (§4.3),
// either from a configured value or from the host's link-layer
// addresses.
package duid

import (
	"fmt"
	"log/slog"
	"net"
	"sort"

	"github.com/insomniacslk/dhcp/dhcpv6"
	"github.com/insomniacslk/dhcp/iana"
)

// Interfaces abstracts the host's interface enumeration, so tests can
// substitute a fixed topology.
type Interfaces interface {
	Interfaces() ([]net.Interface, error)
}

type osInterfaces struct{}

func (osInterfaces) Interfaces() ([]net.Interface, error) { return net.Interfaces() }

// Select implements §4.3: if configured decodes to a valid DUID,
// re-emit its canonical serialization; otherwise iterate interfaces
// lexicographically, building a DUID-LL (hardware type 1/Ethernet)
// from the first interface with a usable hardware address. No
// candidate at all is a fatal error.
func Select(log *slog.Logger, configured []byte, ifaces Interfaces) (*dhcpv6.Duid, error) {
	log = log.With("component", "duid")

	if len(configured) > 0 {
		d, err := dhcpv6.DuidFromBytes(configured)
		if err != nil {
			return nil, fmt.Errorf("configured duid does not parse: %w", err)
		}
		log.Info("using configured duid", "duid", d.String())
		return d, nil
	}

	if ifaces == nil {
		ifaces = osInterfaces{}
	}
	all, err := ifaces.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("listing interfaces for duid derivation: %w", err)
	}

	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })

	for _, ifi := range all {
		if len(ifi.HardwareAddr) == 0 {
			continue
		}
		d := &dhcpv6.Duid{
			Type:          dhcpv6.DUID_LL,
			HwType:        iana.HWTypeEthernet,
			LinkLayerAddr: ifi.HardwareAddr,
		}
		log.Info("derived duid from link-layer address", "interface", ifi.Name, "duid", d.String())
		return d, nil
	}
	return nil, fmt.Errorf("no interface with a usable link-layer address found; cannot derive a duid")
}
