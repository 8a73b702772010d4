// Copyright 2026 dhcpv6d Authors. All rights reserved
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

// Privilege drop (§4.8), grounded directly on the original Python
// implementation's drop_privileges(): resolve the configured user/group,
// clear supplementary groups, setgid before setuid, then a conservative
// umask. A non-root process is left untouched, matching the original's
// "not running as root" no-op branch.
package supervisor

import (
	"fmt"
	"log/slog"
	"os"
	"os/user"
	"strconv"
	"syscall"
)

// DropPrivileges drops from root to the named user/group, in that
// order: resolve, clear supplementary groups, setgid, setuid, umask
// 0o077. If the process is not running as root, it logs and returns
// nil without changing anything (§4.8).
func DropPrivileges(log *slog.Logger, userName, groupName string) error {
	if os.Getuid() != 0 {
		log.Warn("not running as root: cannot change uid/gid", "user", userName, "group", groupName)
		return nil
	}

	uid, err := lookupUID(userName)
	if err != nil {
		return fmt.Errorf("resolving user %q: %w", userName, err)
	}
	gid, err := lookupGID(groupName)
	if err != nil {
		return fmt.Errorf("resolving group %q: %w", groupName, err)
	}

	log.Debug("dropping privileges", "uid", uid, "gid", gid)
	if err := syscall.Setgroups(nil); err != nil {
		return fmt.Errorf("clearing supplementary groups: %w", err)
	}
	if err := syscall.Setgid(gid); err != nil {
		return fmt.Errorf("setgid %d: %w", gid, err)
	}
	if err := syscall.Setuid(uid); err != nil {
		return fmt.Errorf("setuid %d: %w", uid, err)
	}
	syscall.Umask(0o077)

	log.Info("dropped privileges", "user", userName, "group", groupName)
	return nil
}

func lookupUID(name string) (int, error) {
	u, err := user.Lookup(name)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(u.Uid)
}

func lookupGID(name string) (int, error) {
	g, err := user.LookupGroup(name)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(g.Gid)
}
