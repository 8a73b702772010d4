// Copyright 2026 dhcpv6d Authors. All rights reserved
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeSectionName(t *testing.T) {
	testcases := []struct {
		in   string
		want string
		err  bool
	}{
		{"server", "server", false},
		{"  server  ", "server", false},
		{"interface eth0", "interface eth0", false},
		{"interface   eth0", "interface eth0", false},
		{"interface *", "interface *", false},
		{"interface", "", true},
		{"interface eth0 extra", "", true},
		{"option foo_bar", "option foo-bar", false},
		{"option FooBar", "option foo-bar", false},
	}
	for _, tc := range testcases {
		got, err := normalizeSectionName(tc.in)
		if tc.err != (err != nil) {
			t.Errorf("normalizeSectionName(%q) error = %v, want err=%v", tc.in, err, tc.err)
			continue
		}
		if err == nil && got != tc.want {
			t.Errorf("normalizeSectionName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeKey(t *testing.T) {
	testcases := []struct{ in, want string }{
		{"Link_Local_Addresses", "link-local-addresses"},
		{"link-local-addresses", "link-local-addresses"},
		{"MAX_EXCEPTIONS", "max-exceptions"},
	}
	for _, tc := range testcases {
		if got := normalizeKey(tc.in); got != tc.want {
			t.Errorf("normalizeKey(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestParseBool(t *testing.T) {
	testcases := []struct {
		in   string
		want bool
		err  bool
	}{
		{"yes", true, false},
		{"YES", true, false},
		{"no", false, false},
		{"true", true, false},
		{"false", false, false},
		{"1", true, false},
		{"0", false, false},
		{"maybe", false, true},
	}
	for _, tc := range testcases {
		got, err := parseBool(tc.in, false)
		if tc.err != (err != nil) {
			t.Errorf("parseBool(%q) error = %v, want err=%v", tc.in, err, tc.err)
			continue
		}
		if err == nil && got != tc.want {
			t.Errorf("parseBool(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestBuildFromFile(t *testing.T) {
	in := `
[server]
user = dhcp
group = dhcp
exception-window = 2.5
max_exceptions = 5
threads = 4

[logging]
facility = local0

[handler]
module = example
class = Static

[interface eth0]
multicast = yes
listen_to_self = no
link-local-addresses = auto
global-addresses = all
`
	sections, err := scan(strings.NewReader(in))
	require.NoError(t, err)
	cfg, err := build(sections)
	require.NoError(t, err)

	assert.Equal(t, "dhcp", cfg.User)
	assert.Equal(t, "dhcp", cfg.Group)
	assert.Equal(t, 2.5, cfg.ExceptionWindowS)
	assert.Equal(t, 5, cfg.MaxExceptions)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, "local0", cfg.Logging.Facility)
	assert.Equal(t, "example.Static", cfg.Handler.Descriptor())

	iface, ok := cfg.Interfaces["eth0"]
	require.True(t, ok, "missing eth0 interface")
	assert.True(t, iface.Multicast)
	assert.False(t, iface.ListenToSelf)
}

func TestDefaultsApplied(t *testing.T) {
	cfg, err := build(nil)
	require.NoError(t, err)
	assert.Equal(t, defaultExceptionWindowS, cfg.ExceptionWindowS)
	assert.Equal(t, defaultMaxExceptions, cfg.MaxExceptions)
	assert.Equal(t, defaultWorkers, cfg.Workers)
}
