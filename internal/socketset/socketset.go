// Copyright 2026 dhcpv6d Authors. All rights reserved
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

// Package socketset builds the bound, joined, and paired UDP sockets
// the listener polls (§4.4), grounded on the multicast-join mechanics
// of the teacher's server/serve.go but generalized to the per-interface
// reply-from pairing rule §4.4 requires.
package socketset

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	"golang.org/x/net/ipv6"

	"github.com/sixnet/dhcpv6d/internal/config"
)

// DHCPv6Port is the well-known UDP port all core sockets bind to.
const DHCPv6Port = 547

// AllDHCPRelayAgentsAndServers is ff02::1:2, the RFC 8415 server/relay
// multicast group.
var AllDHCPRelayAgentsAndServers = net.ParseIP("ff02::1:2")

// Socket is one bound listening socket (§3 ListeningSocket). ReplyFrom
// is non-nil only when Socket itself is the multicast-bound socket for
// its interface; sends on a multicast socket must instead go out
// ReplyFrom.
type Socket struct {
	Conn         *ipv6.PacketConn
	BoundAddress net.UDPAddr
	IfIndex      int
	Multicast    bool
	ReplyFrom    *Socket
}

// SendReply implements §4.7 step 3: unicast sockets send from
// themselves, multicast-bound sockets send via their paired reply-from
// socket.
func (s *Socket) SendReply(b []byte, dst *net.UDPAddr) error {
	target := s
	if s.Multicast {
		if s.ReplyFrom == nil {
			return fmt.Errorf("multicast socket on ifindex %d has no reply-from socket", s.IfIndex)
		}
		target = s.ReplyFrom
	}
	cm := &ipv6.ControlMessage{IfIndex: target.IfIndex}
	_, err := target.Conn.WriteTo(b, cm, dst)
	return err
}

func (s *Socket) Close() error {
	return s.Conn.Close()
}

// ReadDatagram reads one datagram into buf, returning the sender
// address. It narrows ipv6.PacketConn.ReadFrom's four-value signature
// down to what the listener needs, so the listener can depend on a
// small interface instead of the concrete socket type (§4.5).
func (s *Socket) ReadDatagram(buf []byte) (int, *net.UDPAddr, error) {
	n, _, src, err := s.Conn.ReadFrom(buf)
	if err != nil {
		return 0, nil, err
	}
	udpSrc, _ := src.(*net.UDPAddr)
	return n, udpSrc, nil
}

// LocalAddr reports the address this socket is bound to, used as the
// Envelope's receiver field (§3).
func (s *Socket) LocalAddr() *net.UDPAddr {
	addr := s.BoundAddress
	return &addr
}

// Set is the full collection of sockets built for one server instance.
type Set struct {
	Sockets []*Socket
}

// Close closes every socket in the set, best-effort.
func (s *Set) Close() {
	for _, sock := range s.Sockets {
		_ = sock.Close()
	}
}

// Build implements §4.4 for every resolved interface.
func Build(log *slog.Logger, interfaces map[string]config.InterfaceConfig) (*Set, error) {
	log = log.With("component", "socketset")
	set := &Set{}

	for name, ifc := range interfaces {
		ifi, err := net.InterfaceByName(name)
		if err != nil {
			return nil, fmt.Errorf("interface %q vanished before socket build: %w", name, err)
		}

		var firstLinkLocal *Socket

		for _, addr := range ifc.Global {
			sock, err := bindUnicast(addr, 0)
			if err != nil {
				return nil, fmt.Errorf("interface %q global %s: %w", name, addr, err)
			}
			set.Sockets = append(set.Sockets, sock)
			log.Debug("bound global socket", "interface", name, "address", addr.String())
		}

		for _, addr := range ifc.LinkLocal {
			sock, err := bindUnicast(addr, ifi.Index)
			if err != nil {
				return nil, fmt.Errorf("interface %q link-local %s: %w", name, addr, err)
			}
			set.Sockets = append(set.Sockets, sock)
			if firstLinkLocal == nil {
				firstLinkLocal = sock
			}
			log.Debug("bound link-local socket", "interface", name, "address", addr.String())
		}

		if ifc.Multicast {
			if firstLinkLocal == nil {
				// Should already be rejected by the interface resolver (§4.2);
				// enforced again here since socket construction owns the pairing.
				return nil, fmt.Errorf("interface %q: multicast requested but no link-local socket exists to pair as reply-from", name)
			}
			mcSock, err := bindMulticast(ifi, ifc.ListenToSelf)
			if err != nil {
				return nil, fmt.Errorf("interface %q multicast: %w", name, err)
			}
			mcSock.ReplyFrom = firstLinkLocal
			set.Sockets = append(set.Sockets, mcSock)
			log.Debug("bound multicast socket", "interface", name, "reply_from", firstLinkLocal.BoundAddress.String())
		}
	}
	return set, nil
}

func bindUnicast(addr net.IP, ifIndex int) (*Socket, error) {
	udpAddr := &net.UDPAddr{IP: addr, Port: DHCPv6Port, Zone: zoneFor(ifIndex)}
	conn, err := listenReusable(udpAddr)
	if err != nil {
		return nil, err
	}
	pc := ipv6.NewPacketConn(conn)
	if ifIndex != 0 {
		if err := pc.SetControlMessage(ipv6.FlagInterface, true); err != nil {
			conn.Close()
			return nil, err
		}
	}
	return &Socket{Conn: pc, BoundAddress: *udpAddr, IfIndex: ifIndex}, nil
}

func bindMulticast(ifi *net.Interface, loopback bool) (*Socket, error) {
	udpAddr := &net.UDPAddr{IP: AllDHCPRelayAgentsAndServers, Port: DHCPv6Port, Zone: ifi.Name}
	conn, err := listenReusable(udpAddr)
	if err != nil {
		return nil, err
	}
	pc := ipv6.NewPacketConn(conn)
	if err := pc.SetControlMessage(ipv6.FlagInterface, true); err != nil {
		conn.Close()
		return nil, err
	}
	if err := pc.SetMulticastLoopback(loopback); err != nil {
		conn.Close()
		return nil, err
	}
	if err := pc.JoinGroup(ifi, &net.UDPAddr{IP: AllDHCPRelayAgentsAndServers}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("joining %s on %s: %w", AllDHCPRelayAgentsAndServers, ifi.Name, err)
	}
	return &Socket{Conn: pc, BoundAddress: *udpAddr, IfIndex: ifi.Index, Multicast: true}, nil
}

func zoneFor(ifIndex int) string {
	if ifIndex == 0 {
		return ""
	}
	ifi, err := net.InterfaceByIndex(ifIndex)
	if err != nil {
		return ""
	}
	return ifi.Name
}

// listenReusable opens a UDP socket with address reuse enabled, so
// restarts don't collide with a lingering bind and multiple sockets can
// share the multicast group address across interfaces. Bind failure is
// fatal per §4.4.
func listenReusable(addr *net.UDPAddr) (*net.UDPConn, error) {
	lc := net.ListenConfig{Control: setReuseAddr}
	pc, err := lc.ListenPacket(context.Background(), "udp6", addr.String())
	if err != nil {
		return nil, err
	}
	conn, ok := pc.(*net.UDPConn)
	if !ok {
		pc.Close()
		return nil, fmt.Errorf("unexpected packet conn type %T", pc)
	}
	return conn, nil
}
