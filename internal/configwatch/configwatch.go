// Copyright 2026 dhcpv6d Authors. All rights reserved
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

// Package configwatch watches the configuration file on disk for
// changes and logs a diagnostic, grounded on the teacher's
// plugins/file watcher (fsnotify.NewWatcher + watcher.Add +
// `range watcher.Events`). Unlike the teacher's lease-file watcher,
// this never reloads anything itself: no dynamic interface
// reconfiguration without restart is explicit (§1 Non-goals), so a
// changed config file only ever produces a log line pointing the
// operator at a restart or, for handler-owned state, SIGHUP.
package configwatch

import (
	"log/slog"

	"github.com/fsnotify/fsnotify"
)

// Watch starts watching path in the background and logs whenever it
// changes. The returned Watcher must be closed on shutdown. A failure
// to create the watcher is returned to the caller; watching is a
// diagnostic nicety, not a startup requirement, so callers may choose
// to log and continue rather than treat it as fatal.
func Watch(log *slog.Logger, path string) (*fsnotify.Watcher, error) {
	log = log.With("component", "configwatch")

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, err
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				log.Info("configuration file changed on disk; restart (or SIGHUP to reload the handler) to apply",
					"path", path, "op", event.Op.String())
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Error("watching configuration file", "path", path, "err", err)
			}
		}
	}()

	return watcher, nil
}
