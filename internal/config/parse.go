// Copyright 2026 dhcpv6d Authors. All rights reserved
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

package config

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cast"
)

// section is one normalized "[name]" block plus its key/value pairs
// (unordered; a repeated key keeps its last value), as produced by the
// scanner below.
type section struct {
	name string // normalized: whitespace-collapsed, leading keyword lowercased
	kv   map[string]string
}

// Load reads and parses path into a ServerConfig, applying defaults.
// Any parse failure is returned as a *ParseError, which is always
// fatal to the caller per §7.
func Load(path string) (*ServerConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ParseErrorf("cannot open %s: %v", path, err)
	}
	defer f.Close()

	sections, err := scan(f)
	if err != nil {
		return nil, err
	}
	return build(sections)
}

// scan tokenizes an INI-like file into normalized sections. Lines
// starting with '#' or ';' are comments; blank lines are ignored.
// "key = value" and "key: value" are both accepted.
func scan(r io.Reader) ([]section, error) {
	var out []section
	var cur *section

	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r\n")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, ";") {
			continue
		}

		if strings.HasPrefix(trimmed, "[") {
			if !strings.HasSuffix(trimmed, "]") {
				return nil, ParseErrorf("line %d: malformed section header %q", lineNo, line)
			}
			raw := trimmed[1 : len(trimmed)-1]
			name, err := normalizeSectionName(raw)
			if err != nil {
				return nil, ParseErrorf("line %d: %v", lineNo, err)
			}
			out = append(out, section{name: name, kv: map[string]string{}})
			cur = &out[len(out)-1]
			continue
		}

		if cur == nil {
			return nil, ParseErrorf("line %d: option outside of any section", lineNo)
		}

		key, val, ok := splitKV(trimmed)
		if !ok {
			return nil, ParseErrorf("line %d: malformed option line %q", lineNo, line)
		}
		cur.kv[normalizeKey(key)] = val
	}
	if err := sc.Err(); err != nil {
		return nil, ParseErrorFromError(err)
	}
	return out, nil
}

func splitKV(line string) (key, val string, ok bool) {
	if i := strings.IndexAny(line, "=:"); i >= 0 {
		return strings.TrimSpace(line[:i]), strings.TrimSpace(line[i+1:]), true
	}
	return "", "", false
}

// normalizeKey folds option keys to a canonical form: lowercase, with
// '_' treated as interchangeable with '-'.
func normalizeKey(k string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(k)), "_", "-")
}

// normalizeSectionName collapses internal whitespace, lowercases the
// leading keyword, and validates that `interface NAME` / `option NAME`
// sections carry exactly one argument.
func normalizeSectionName(raw string) (string, error) {
	collapsed := strings.Join(strings.Fields(raw), " ")
	parts := strings.Split(collapsed, " ")
	if len(parts) == 0 || parts[0] == "" {
		return "", fmt.Errorf("empty section name")
	}
	parts[0] = strings.ToLower(parts[0])

	switch parts[0] {
	case "interface":
		if len(parts) != 2 {
			return "", fmt.Errorf("interface sections must be named [interface xyz] where 'xyz' is an interface name or '*'")
		}
	case "option":
		if len(parts) != 2 {
			return "", fmt.Errorf("option sections must be named [option xyz] where 'xyz' is an option name")
		}
		parts[1] = strings.ToLower(strings.ReplaceAll(parts[1], "_", "-"))
	}
	return strings.Join(parts, " "), nil
}

// build assembles the typed ServerConfig from the scanned sections.
func build(sections []section) (*ServerConfig, error) {
	cfg := &ServerConfig{Interfaces: make(map[string]RawInterface)}

	byName := map[string]*section{}
	for i := range sections {
		s := &sections[i]
		if s.name == "server" || s.name == "logging" || s.name == "handler" {
			byName[s.name] = s
			continue
		}
	}

	if s := byName["server"]; s != nil {
		if v, ok := s.kv["duid"]; ok && v != "" {
			b, err := hex.DecodeString(v)
			if err != nil {
				return nil, ParseErrorf("[server] duid: invalid hex: %v", err)
			}
			if len(b) < 1 || len(b) > 130 {
				return nil, ParseErrorf("[server] duid: must be 1-130 bytes, got %d", len(b))
			}
			cfg.DUID = b
		}
		cfg.User = s.kv["user"]
		cfg.Group = s.kv["group"]
		if v, ok := s.kv["exception-window"]; ok && v != "" {
			f, err := cast.ToFloat64E(v)
			if err != nil {
				return nil, ParseErrorf("[server] exception-window: %v", err)
			}
			cfg.ExceptionWindowS = f
		}
		if v, ok := s.kv["max-exceptions"]; ok && v != "" {
			n, err := cast.ToIntE(v)
			if err != nil {
				return nil, ParseErrorf("[server] max-exceptions: %v", err)
			}
			cfg.MaxExceptions = n
		}
		if v, ok := s.kv["threads"]; ok && v != "" {
			n, err := cast.ToIntE(v)
			if err != nil {
				return nil, ParseErrorf("[server] threads: %v", err)
			}
			cfg.Workers = n
		} else if v, ok := s.kv["workers"]; ok && v != "" {
			n, err := cast.ToIntE(v)
			if err != nil {
				return nil, ParseErrorf("[server] workers: %v", err)
			}
			cfg.Workers = n
		}
	}

	cfg.Logging.Facility = "daemon"
	if s := byName["logging"]; s != nil {
		if v, ok := s.kv["facility"]; ok && v != "" {
			cfg.Logging.Facility = v
		}
	}

	if s := byName["handler"]; s != nil {
		cfg.Handler.Module = s.kv["module"]
		cfg.Handler.Class = s.kv["class"]
		cfg.Handler.Unknown = unknownKeys(s.kv, "module", "class")
	}

	for i := range sections {
		s := &sections[i]
		parts := strings.SplitN(s.name, " ", 2)
		if parts[0] != "interface" {
			continue
		}
		ifaceName := parts[1]

		ri := RawInterface{
			Name:               ifaceName,
			LinkLocalAddresses: getOr(s.kv, "link-local-addresses", ""),
			GlobalAddresses:    getOr(s.kv, "global-addresses", ""),
			Unknown:            unknownKeys(s.kv, "multicast", "listen-to-self", "link-local-addresses", "global-addresses"),
		}
		var err error
		ri.Multicast, err = parseBool(s.kv["multicast"], false)
		if err != nil {
			return nil, ParseErrorf("[interface %s] multicast: %v", ifaceName, err)
		}
		ri.ListenToSelf, err = parseBool(s.kv["listen-to-self"], false)
		if err != nil {
			return nil, ParseErrorf("[interface %s] listen-to-self: %v", ifaceName, err)
		}

		if ifaceName == "*" {
			w := ri
			cfg.WildcardInterface = &w
			continue
		}
		cfg.Interfaces[ifaceName] = ri
	}

	cfg.applyDefaults()
	return cfg, nil
}

func getOr(kv map[string]string, key, def string) string {
	if v, ok := kv[key]; ok {
		return v
	}
	return def
}

func unknownKeys(kv map[string]string, known ...string) map[string]string {
	skip := make(map[string]bool, len(known))
	for _, k := range known {
		skip[k] = true
	}
	out := map[string]string{}
	for k, v := range kv {
		if !skip[k] {
			out[k] = v
		}
	}
	return out
}

// parseBool accepts yes/no/true/false/1/0, case-insensitively, per §6.
func parseBool(s string, def bool) (bool, error) {
	if s == "" {
		return def, nil
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean %q", s)
	}
}

// SplitAddressList splits a whitespace/comma-separated address list,
// as used by link-local-addresses and global-addresses values.
func SplitAddressList(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}
