// Copyright 2026 dhcpv6d Authors. All rights reserved
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

package config

import "fmt"

// ParseError is returned for any fatal configuration-file problem:
// an unreadable file, a malformed section header or option line, or an
// invalid option value. Per §7, all are startup-fatal. Address-scope
// violations are reported by the interface resolver, not as ParseError.
type ParseError struct {
	err error
}

// ParseErrorf builds a ParseError from a format string, mirroring the
// teacher's ConfigErrorFromString constructor.
func ParseErrorf(format string, args ...interface{}) *ParseError {
	return &ParseError{err: fmt.Errorf(format, args...)}
}

// ParseErrorFromError wraps an existing error as a ParseError.
func ParseErrorFromError(err error) *ParseError {
	return &ParseError{err: err}
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("error parsing config: %v", e.err)
}

func (e *ParseError) Unwrap() error {
	return e.err
}
