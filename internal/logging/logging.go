// Copyright 2026 dhcpv6d Authors. All rights reserved
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

// Package logging builds the structured logger used across the server
// core. Every component receives its logger through a constructor
// argument; nothing in this package keeps process-wide state.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Verbosity selects the stdout log sink level requested via -v/-vv/-vvv.
type Verbosity int

const (
	// Quiet means no stdout sink; only the configured facility sink is used.
	Quiet Verbosity = iota
	Warn
	Info
	Debug
)

// VerbosityFromFlagCount maps a repeated -v flag count to a Verbosity,
// matching the CLI surface: -v=warn, -vv=info, -vvv=debug.
func VerbosityFromFlagCount(count int) Verbosity {
	switch {
	case count <= 0:
		return Quiet
	case count == 1:
		return Warn
	case count == 2:
		return Info
	default:
		return Debug
	}
}

func (v Verbosity) level() slog.Level {
	switch v {
	case Warn:
		return slog.LevelWarn
	case Info:
		return slog.LevelInfo
	case Debug:
		return slog.LevelDebug
	default:
		return slog.LevelWarn
	}
}

// Setup builds the root logger. When v is Quiet, logging goes to
// facilityOut (os.Stderr if nil) as JSON at Info level. A non-quiet v
// logs to stdout instead, at the requested level in a human-readable
// text format; facilityOut is then not written to. The two sinks are
// never active at the same time.
func Setup(v Verbosity, facilityOut io.Writer) *slog.Logger {
	if facilityOut == nil {
		facilityOut = os.Stderr
	}

	var handler slog.Handler
	if v == Quiet {
		handler = slog.NewJSONHandler(facilityOut, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: v.level()})
	}

	logger := slog.New(handler)
	return logger
}

// ParseLevel maps a facility-config string (trace/debug/info/warn/error)
// to an slog.Level, for components that read a textual level out of the
// [logging] section rather than a -v count.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace", "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error", "critical", "fatal":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
