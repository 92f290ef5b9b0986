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

package folder

import "github.com/go-mailstore/mailstore/header"

// Organization distinguishes the two on-disk layouts a Format backend
// implements: a single FILE holding every message (mbox), or a
// DIRECTORY holding one file per message (MH, Maildir).
type Organization int

const (
	FILE Organization = iota
	DIRECTORY
)

func (o Organization) String() string {
	if o == DIRECTORY {
		return "directory"
	}
	return "file"
}

// AccessMode is the mode a Folder was opened with.
type AccessMode int

const (
	ReadOnly AccessMode = iota
	ReadWrite
	AppendOnly
)

// WritePolicy selects how a FILE-organized Folder persists itself.
// DIRECTORY backends apply their own per-message add/rewrite discipline and
// largely ignore this setting except for Renumber (carried separately in
// Options).
type WritePolicy int

const (
	// WritePolicyReplace is the default: write to a sibling temp file and
	// rename it over the original. If the temp file can't be created
	// (e.g. an unwritable directory), the backend falls back to
	// WritePolicyInplace automatically.
	WritePolicyReplace WritePolicy = iota
	// WritePolicyInplace opens the folder read-write, truncates at the
	// first modified message and appends the rest. Unsafe on a mid-write
	// crash; opt-in only.
	WritePolicyInplace
)

// CloseMode controls whether Folder.Close writes before unlocking.
type CloseMode int

const (
	// CloseIfModified writes only if the folder or one of its messages
	// was modified since open. This is the zero value and the default.
	CloseIfModified CloseMode = iota
	CloseAlways
	CloseNever
)

// ExtractPolicy decides, per message, whether its Body is read eagerly
// into memory or attached as a body.DelayedContent during folder load.
// Headers are always read eagerly regardless of this policy; only the
// body payload is ever delayed, which is what lets MessageID/Find stay
// O(1) even under a Lazy policy.
type ExtractPolicy struct {
	// Always forces eager reads regardless of Threshold/Predicate.
	Always bool
	// Lazy forces delayed reads regardless of Threshold/Predicate.
	Lazy bool
	// Threshold, if > 0, delays bodies whose header.GuessBodySize is at
	// or above it.
	Threshold int64
	// Predicate, if set, decides whenever neither Always nor Lazy is set;
	// Threshold is then not consulted.
	Predicate func(h *header.Header) bool
}

// ShouldDelay reports whether a message with header h should get a
// delayed body.
func (p ExtractPolicy) ShouldDelay(h *header.Header) bool {
	switch {
	case p.Always:
		return false
	case p.Lazy:
		return true
	case p.Predicate != nil:
		return p.Predicate(h)
	case p.Threshold > 0:
		return h.GuessBodySize() >= p.Threshold
	default:
		return false
	}
}

// ExtractAlways is the eager-everything policy.
var ExtractAlways = ExtractPolicy{Always: true}

// ExtractLazy is the delay-everything policy.
var ExtractLazy = ExtractPolicy{Lazy: true}

// ExtractThreshold delays bodies at or above n bytes (as estimated from
// Content-Length/Lines).
func ExtractThreshold(n int64) ExtractPolicy {
	return ExtractPolicy{Threshold: n}
}
