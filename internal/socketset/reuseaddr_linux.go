// Copyright 2026 dhcpv6d Authors. All rights reserved
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

//go:build linux

package socketset

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// setReuseAddr enables SO_REUSEADDR on every socket the builder opens,
// grounded on the teacher's net.ListenConfig{Control: ...} idiom for
// setting socket options before bind (internal/dhcp/server.go in the
// ambient-stack reference repo).
func setReuseAddr(_, _ string, c syscall.RawConn) error {
	var sockErr error
	err := c.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
	})
	if err != nil {
		return err
	}
	return sockErr
}
