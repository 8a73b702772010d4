// Copyright 2026 dhcpv6d Authors. All rights reserved
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

package supervisor

import "time"

// ExceptionHistory is the sliding window of unexpected listener-loop
// exceptions (§3 ExceptionHistory, §4.8, §7). Touched only from the
// supervisor's own run goroutine — never shared.
type ExceptionHistory struct {
	window     time.Duration
	max        int
	timestamps []time.Time
}

// NewExceptionHistory builds a window of the given width (seconds) and
// retained-count threshold.
func NewExceptionHistory(windowSeconds float64, max int) *ExceptionHistory {
	return &ExceptionHistory{
		window: time.Duration(windowSeconds * float64(time.Second)),
		max:    max,
	}
}

// Record appends now to the history, evicts entries older than
// now-window, and reports whether the retained count now exceeds max —
// the signal to escalate to a critical shutdown (§4.8, §7).
func (h *ExceptionHistory) Record(now time.Time) (exceeded bool) {
	h.timestamps = append(h.timestamps, now)

	cutoff := now.Add(-h.window)
	i := 0
	for i < len(h.timestamps) && h.timestamps[i].Before(cutoff) {
		i++
	}
	h.timestamps = h.timestamps[i:]

	return len(h.timestamps) > h.max
}
