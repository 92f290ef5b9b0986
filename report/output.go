/*
mailstore - A local mail-store library for RFC 2822 messages.
Copyright © 2026 mailstore contributors

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package report

import (
	"fmt"
	"io"
	"sync"
)

// WriterOutput writes every record as one line to w. It is the reference
// Output implementation; delivery to syslog/journald is left to the
// caller via a different Output implementation.
type WriterOutput struct {
	w      io.Writer
	mu     sync.Mutex
	retain *RingOutput
}

// NewWriterOutput returns an Output that writes formatted records to w
// and, if retain > 0, additionally keeps the last `retain` records
// queryable via Records.
func NewWriterOutput(w io.Writer, retain int) *WriterOutput {
	wo := &WriterOutput{w: w}
	if retain > 0 {
		wo.retain = NewRingOutput(retain)
	}
	return wo
}

func (wo *WriterOutput) Write(rec Record, print, retain bool) {
	if print {
		wo.mu.Lock()
		fmt.Fprintln(wo.w, rec.String())
		wo.mu.Unlock()
	}
	if retain && wo.retain != nil {
		wo.retain.Write(rec, false, true)
	}
}

// Records returns the retained records, oldest first, or nil if this
// output was constructed without retention.
func (wo *WriterOutput) Records() []Record {
	if wo.retain == nil {
		return nil
	}
	return wo.retain.Records()
}

// RingOutput retains the last N records in memory without writing them
// anywhere else; it is useful standalone in tests, or composed behind a
// WriterOutput for "log to stderr but also let me assert on what was
// logged" style tests. As a pure retention sink it stores any record it
// is handed, whether delivered for printing or for retention.
type RingOutput struct {
	mu      sync.Mutex
	records []Record
	next    int
	full    bool
}

func NewRingOutput(capacity int) *RingOutput {
	if capacity <= 0 {
		capacity = 1
	}
	return &RingOutput{records: make([]Record, capacity)}
}

func (r *RingOutput) Write(rec Record, print, retain bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[r.next] = rec
	r.next = (r.next + 1) % len(r.records)
	if r.next == 0 {
		r.full = true
	}
}

func (r *RingOutput) Records() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.full {
		out := make([]Record, r.next)
		copy(out, r.records[:r.next])
		return out
	}
	out := make([]Record, len(r.records))
	copy(out, r.records[r.next:])
	copy(out[len(r.records)-r.next:], r.records[:r.next])
	return out
}

// MultiOutput fans a record out to several outputs, same purpose as
// stacking WriterOutput and RingOutput but for arbitrary Output values.
type MultiOutput []Output

func (m MultiOutput) Write(rec Record, print, retain bool) {
	for _, o := range m {
		o.Write(rec, print, retain)
	}
}
