// Copyright 2026 dhcpv6d Authors. All rights reserved
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

//go:build !linux

package socketset

import "syscall"

// setReuseAddr is a no-op on platforms where this package doesn't know
// the SO_REUSEADDR sockopt constant; sockets still bind, they just
// don't tolerate a lingering prior bind during a fast restart.
func setReuseAddr(_, _ string, _ syscall.RawConn) error {
	return nil
}
