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

package header

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"sync/atomic"
)

// State is one of the three states a Header can be in: Delayed (no
// fields read yet), Subset (some known, rest still on disk), Complete (all
// fields known). Transitions are monotonic toward Complete.
type State int

const (
	StateDelayed State = iota
	StateSubset
	StateComplete
)

func (s State) String() string {
	switch s {
	case StateDelayed:
		return "delayed"
	case StateSubset:
		return "subset"
	case StateComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// Header is an ordered sequence of Fields plus a name-indexed lookup table.
// Insertion order is preserved across Clone/the implicit printer. Reset
// keeps a "slot" for a name it replaces or deletes, so a later Reset of
// that name lands back in the same position (Add always appends); the
// ordered field list alone defines output order.
type Header struct {
	fields []Field
	// slots maps a lowercase name to the index positions holding it;
	// positions may be tombstoned (empty Field.name). After Reset deletes
	// a name, its first position stays listed, tombstoned, so a later
	// Reset of the name is reinserted there.
	slots map[string][]int

	state State
	// onLoadRest is invoked the first time an unknown field is requested
	// against a Subset header, to pull in the remaining fields from disk
	// (e.g. Parser continuing a deferred read). A Delayed header has no
	// such hook until one is installed by whatever attaches it to a parser.
	onLoadRest func(h *Header)

	modified bool
	// onModified is the weak back-pointer to the owning Message: any
	// mutation calls it so Message.modified can roll up.
	onModified func()

	guessedTimestamp   int64
	guessedTimestampOK bool
}

// New returns an empty, Complete header (the common case: a header built
// up field-by-field in memory rather than parsed).
func New() *Header {
	return &Header{state: StateComplete, slots: make(map[string][]int)}
}

// NewSubset returns a header in StateSubset, with onLoadRest installed so
// the first access to an unknown field pulls the remainder from disk.
func NewSubset(onLoadRest func(h *Header)) *Header {
	return &Header{state: StateSubset, slots: make(map[string][]int), onLoadRest: onLoadRest}
}

// State reports the header's current completeness state.
func (h *Header) State() State { return h.state }

// SetOnModified installs the callback invoked whenever this header is
// mutated (Message wires this to set its own modified flag).
func (h *Header) SetOnModified(fn func()) { h.onModified = fn }

// Modified reports whether this header has been mutated since creation (or
// since the last ClearModified).
func (h *Header) Modified() bool { return h.modified }

// ClearModified resets the modified flag, e.g. after a successful write.
func (h *Header) ClearModified() { h.modified = false }

func (h *Header) markModified() {
	h.modified = true
	if h.onModified != nil {
		h.onModified()
	}
}

// ensureLoaded promotes a Subset header to Complete by invoking the
// load-rest hook exactly once; any lookup against a not-yet-complete
// header goes through it first.
func (h *Header) ensureLoaded() {
	if h.state == StateComplete {
		return
	}
	if h.onLoadRest != nil {
		fn := h.onLoadRest
		h.onLoadRest = nil
		fn(h)
	}
	h.state = StateComplete
}

func (h *Header) ensureSlots() {
	if h.slots == nil {
		h.slots = make(map[string][]int)
	}
}

// Add appends field, becoming an ordered list under its name if the name is
// already present.
func (h *Header) Add(field Field) {
	h.ensureSlots()
	idx := len(h.fields)
	h.fields = append(h.fields, field)
	h.slots[field.name] = append(h.slots[field.name], idx)
	h.markModified()
}

// Set replaces all occurrences of a field with the same name as field.
//
// For Content-Transfer-Encoding and Content-Disposition the body literal
// "none" erases the field entirely instead of storing it.
func (h *Header) Set(field Field) {
	if isNoneField(field) {
		h.Reset(field.name)
		return
	}
	h.Reset(field.name, field)
}

func isNoneField(f Field) bool {
	switch f.name {
	case "content-transfer-encoding", "content-disposition":
		return strings.EqualFold(strings.TrimSpace(f.Body()), "none")
	}
	return false
}

// Reset replaces all occurrences of name with fields (possibly none, which
// deletes the name), remembering the position of the first occurrence so a
// later reappearance of name is reinserted there rather than appended.
func (h *Header) Reset(name string, fields ...Field) {
	h.ensureSlots()
	lower := strings.ToLower(name)
	positions := h.slots[lower]

	if len(positions) == 0 {
		// Name not present: behaves like Add for each field, in order.
		for _, f := range fields {
			h.Add(f)
		}
		return
	}

	firstSlot := positions[0]

	// Remove the old occurrences (mark as tombstoned by clearing their
	// name so lookups skip them, without disturbing other fields' indices).
	live := false
	for _, p := range positions {
		live = live || h.fields[p].name != ""
		h.fields[p].name = ""
	}
	h.slots[lower] = nil

	if len(fields) == 0 {
		// Keep the first position, now tombstoned, so a later Reset of
		// name is reinserted there.
		h.slots[lower] = []int{firstSlot}
		if live {
			h.markModified()
		}
		return
	}

	// Reinsert the first new field at the remembered slot if it is still a
	// live (non-tombstoned) position; otherwise append all of them.
	if firstSlot < len(h.fields) && h.fields[firstSlot].name == "" {
		h.fields[firstSlot] = fields[0]
		h.slots[lower] = append(h.slots[lower], firstSlot)
		for _, f := range fields[1:] {
			idx := len(h.fields)
			h.fields = append(h.fields, f)
			h.slots[lower] = append(h.slots[lower], idx)
		}
	} else {
		for _, f := range fields {
			idx := len(h.fields)
			h.fields = append(h.fields, f)
			h.slots[lower] = append(h.slots[lower], idx)
		}
	}
	h.markModified()
}

// RemoveField removes one specific field identity (by Field.Seq), for use
// when duplicate name+body fields exist and only one instance should go.
func (h *Header) RemoveField(field Field) {
	h.ensureSlots()
	lower := field.name
	positions := h.slots[lower]
	for i, p := range positions {
		if h.fields[p].seq == field.seq {
			h.fields[p].name = ""
			h.slots[lower] = append(positions[:i], positions[i+1:]...)
			h.markModified()
			return
		}
	}
}

// Fields returns the live (non-deleted) fields in header order. The header
// is promoted to Complete first.
func (h *Header) Fields() []Field {
	h.ensureLoaded()
	out := make([]Field, 0, len(h.fields))
	for _, f := range h.fields {
		if f.name == "" {
			continue
		}
		out = append(out, f)
	}
	return out
}

// Get returns the field named name. index selects which occurrence: 0 is
// the first, -1 is the last; out of range returns ok=false.
func (h *Header) Get(name string, index int) (Field, bool) {
	h.ensureLoaded()
	lower := strings.ToLower(name)
	var live []int
	for _, p := range h.slots[lower] {
		if h.fields[p].name != "" {
			live = append(live, p)
		}
	}
	if len(live) == 0 {
		return Field{}, false
	}
	if index < 0 {
		index = len(live) + index
	}
	if index < 0 || index >= len(live) {
		return Field{}, false
	}
	return h.fields[live[index]], true
}

// GetAll returns every live occurrence of name, in header order.
func (h *Header) GetAll(name string) []Field {
	h.ensureLoaded()
	lower := strings.ToLower(name)
	var out []Field
	for _, p := range h.slots[lower] {
		if h.fields[p].name != "" {
			out = append(out, h.fields[p])
		}
	}
	return out
}

// GrepNames returns the live fields, in header order, whose name matches
// any of patterns. Each pattern is a regular expression, matched
// case-insensitively and anchored at the start of the name only; a
// pattern that does not compile is matched as a literal name prefix.
func (h *Header) GrepNames(patterns ...string) []Field {
	h.ensureLoaded()
	var res []*regexp.Regexp
	for _, p := range patterns {
		re, err := regexp.Compile("(?i)^(?:" + p + ")")
		if err != nil {
			re = regexp.MustCompile("(?i)^" + regexp.QuoteMeta(p))
		}
		res = append(res, re)
	}

	var out []Field
	for _, f := range h.fields {
		if f.name == "" {
			continue
		}
		for _, re := range res {
			if re.MatchString(f.name) {
				out = append(out, f)
				break
			}
		}
	}
	return out
}

// GuessBodySize derives a size estimate from Content-Length if present,
// else from Lines × 40.
func (h *Header) GuessBodySize() int64 {
	if f, ok := h.Get("Content-Length", 0); ok {
		if n, err := strconv.ParseInt(strings.TrimSpace(f.Body()), 10, 64); err == nil {
			return n
		}
	}
	if f, ok := h.Get("Lines", 0); ok {
		if n, err := strconv.ParseInt(strings.TrimSpace(f.Body()), 10, 64); err == nil {
			return n * 40
		}
	}
	return 0
}

// GuessTimestamp prefers Date, then the comment of the latest Received
// field, memoizing the result.
func (h *Header) GuessTimestamp() (int64, bool) {
	if h.guessedTimestampOK {
		return h.guessedTimestamp, true
	}

	if f, ok := h.Get("Date", 0); ok {
		if ts, err := DateToTimestamp(f.Body()); err == nil {
			h.guessedTimestamp, h.guessedTimestampOK = ts, true
			return ts, true
		}
	}

	// Received fields are prepended at each hop, so the topmost one in
	// header order is the latest.
	received := h.GetAll("Received")
	if len(received) > 0 {
		last := received[0]
		if ts, err := DateToTimestamp(last.Comment()); err == nil {
			h.guessedTimestamp, h.guessedTimestampOK = ts, true
			return ts, true
		}
	}

	return 0, false
}

var messageIDCounter uint64

// CreateMessageID returns "<prefix>-<counter>" where counter is a
// monotonically increasing process-wide value and prefix, if empty,
// defaults to "mailbox-<hostname>-<pid>".
func CreateMessageID(prefix string) string {
	if prefix == "" {
		host, err := os.Hostname()
		if err != nil {
			host = "localhost"
		}
		prefix = fmt.Sprintf("mailbox-%s-%d", host, os.Getpid())
	}
	n := atomic.AddUint64(&messageIDCounter, 1)
	return fmt.Sprintf("<%s-%d>", prefix, n)
}

// CreateFromLine synthesizes an mbox "From " envelope line from a From
// address and a timestamp, in the canonical asctime mbox form.
func CreateFromLine(fromAddr string, ts int64) string {
	return "From " + fromAddr + " " + ToEnvelopeDate(ts)
}
