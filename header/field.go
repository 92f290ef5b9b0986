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

// Package header implements the RFC 2822 Field/Header model: field
// parsing (folded body, attributes, address lists, dates), an ordered
// field collection with name-indexed lookup, and the resent-group
// abstraction: ordered storage with Add/Get-by-index accessors,
// implemented directly against a field slice rather than delegating to a
// MIME library, since the folded byte form is this package's contract.
package header

import (
	"strings"
	"sync/atomic"

	"github.com/go-mailstore/mailstore/address"
)

var fieldSeq uint64

func nextFieldSeq() uint64 {
	return atomic.AddUint64(&fieldSeq, 1)
}

// DefaultWrap is the default folded-body wrap length used by Fold.
const DefaultWrap = 72

// Field is one header line: a name and a folded body, plus the bits of
// structure RFC 2822 layers on top of that (a trailing comment, key=value
// attributes, and the disclose flag used by Bcc-family fields).
type Field struct {
	// name is stored lowercase for lookup.
	name string
	// display is the original-case (or wellformed) name used on output.
	display string
	// folded is the authoritative storage: the body exactly as folded for
	// wire transmission (continuation lines joined by "\r\n ").
	folded string
	// seq is a process-unique creation sequence number, giving each Field
	// value an identity distinct from any other with the same name/body;
	// Header.RemoveField uses it to remove one specific duplicate.
	seq uint64
}

// Seq returns the field's creation-sequence identity.
func (f Field) Seq() uint64 { return f.seq }

// NewField creates a Field from a display name and an unfolded body, folding
// the body to DefaultWrap on construction.
func NewField(name, body string) Field {
	return Field{
		name:    strings.ToLower(name),
		display: name,
		folded:  Fold(body, DefaultWrap),
		seq:     nextFieldSeq(),
	}
}

// NewFolded creates a Field whose body is already in folded (wire) form,
// e.g. as produced by Parser.readHeader.
func NewFolded(name, foldedBody string) Field {
	return Field{
		name:    strings.ToLower(name),
		display: name,
		folded:  foldedBody,
		seq:     nextFieldSeq(),
	}
}

// Name returns the lowercase field name, for lookup.
func (f Field) Name() string { return f.name }

// DisplayName returns the field's name as originally cased.
func (f Field) DisplayName() string { return f.display }

// Body returns the unfolded body: each line break is removed and the
// whitespace around it is kept as it is (see unfold).
func (f Field) Body() string {
	return unfold(f.folded)
}

// FoldedBody returns the body exactly as stored (folded for the wire).
func (f Field) FoldedBody() string {
	return f.folded
}

// unfold removes RFC 2822 line-folding (CRLF/LF followed by whitespace)
// from s. The whitespace itself is kept, only the line break is removed:
// a fold is a zero-width join.
func unfold(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\r':
			continue
		case '\n':
			continue
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// Fold wraps an unfolded body at width, breaking after commas and before
// whitespace, matching parser.FoldHeaderLine: the space at each break
// point is replaced by "\r\n ", so unfolding the result gives body back.
func Fold(body string, width int) string {
	if width <= 0 {
		width = DefaultWrap
	}
	if len(body) <= width {
		return body
	}

	var lines []string
	line := ""
	for _, word := range splitFoldable(body) {
		if line != "" && len(line)+len(word) > width {
			lines = append(lines, strings.TrimSuffix(line, " "))
			line = ""
		}
		line += word
	}
	if line != "" {
		lines = append(lines, line)
	}
	return strings.Join(lines, "\r\n ")
}

// splitFoldable splits body into fold-candidate chunks: runs of
// non-whitespace text followed by the whitespace/comma that may precede a
// fold point, so the boundaries can be rejoined without losing bytes.
func splitFoldable(body string) []string {
	var out []string
	start := 0
	for i := 0; i < len(body); i++ {
		if body[i] == ',' && i+1 < len(body) && body[i+1] == ' ' {
			out = append(out, body[start:i+2])
			start = i + 2
			i++
		} else if body[i] == ' ' && i > start {
			out = append(out, body[start:i+1])
			start = i + 1
		}
	}
	if start < len(body) {
		out = append(out, body[start:])
	}
	return out
}

// Comment returns the substring after the first top-level ';' in the
// unfolded body, or "" if there is none.
func (f Field) Comment() string {
	_, comment := splitComment(f.Body())
	return comment
}

// BodyWithoutComment returns the unfolded body with any trailing
// "; comment" removed.
func (f Field) BodyWithoutComment() string {
	b, _ := splitComment(f.Body())
	return b
}

func splitComment(body string) (value, comment string) {
	depth := 0
	inQuotes := false
	for i := 0; i < len(body); i++ {
		ch := body[i]
		switch {
		case ch == '"' && (i == 0 || body[i-1] != '\\'):
			inQuotes = !inQuotes
		case inQuotes:
		case ch == '(':
			depth++
		case ch == ')':
			if depth > 0 {
				depth--
			}
		case ch == ';' && depth == 0:
			return strings.TrimSpace(body[:i]), strings.TrimSpace(body[i+1:])
		}
	}
	return strings.TrimSpace(body), ""
}

// Attributes parses "key=value" pairs out of the field's trailing
// comment/parameter section (as used by Content-Type/Content-Disposition),
// honoring quoted-strings with backslash escapes. Keys are matched
// case-insensitively but returned lowercased.
func (f Field) Attributes() map[string]string {
	return ParseAttributes(f.Body())
}

// ParseAttributes parses the "; key=value; key2=\"quoted value\"" tail of a
// structured field body into a case-insensitive map.
func ParseAttributes(body string) map[string]string {
	out := make(map[string]string)
	_, rest := splitAtFirstSemicolon(body)
	for rest != "" {
		rest = strings.TrimLeft(rest, " \t")
		eq := strings.IndexByte(rest, '=')
		if eq == -1 {
			break
		}
		key := strings.ToLower(strings.TrimSpace(rest[:eq]))
		rest = rest[eq+1:]

		var val string
		if len(rest) > 0 && rest[0] == '"' {
			val, rest = scanQuoted(rest)
		} else {
			semi := strings.IndexByte(rest, ';')
			if semi == -1 {
				val = strings.TrimSpace(rest)
				rest = ""
			} else {
				val = strings.TrimSpace(rest[:semi])
				rest = rest[semi:]
			}
		}
		if key != "" {
			out[key] = val
		}

		semi := strings.IndexByte(rest, ';')
		if semi == -1 {
			break
		}
		rest = rest[semi+1:]
	}
	return out
}

func splitAtFirstSemicolon(s string) (before, after string) {
	idx := strings.IndexByte(s, ';')
	if idx == -1 {
		return s, ""
	}
	return s[:idx], s[idx+1:]
}

// scanQuoted reads a quoted-string starting at rest[0]=='"', honoring
// backslash escapes, and returns the unescaped value plus what follows the
// closing quote (up to, but not including, the next ';').
func scanQuoted(rest string) (val string, tail string) {
	var b strings.Builder
	i := 1
	for i < len(rest) {
		ch := rest[i]
		if ch == '\\' && i+1 < len(rest) {
			b.WriteByte(rest[i+1])
			i += 2
			continue
		}
		if ch == '"' {
			i++
			break
		}
		b.WriteByte(ch)
		i++
	}
	return b.String(), rest[i:]
}

// StripCFWS removes comments (parenthesized, possibly nested) and folding
// whitespace from a structured field value, collapsing remaining runs of
// whitespace to a single space.
func StripCFWS(value string) string {
	var b strings.Builder
	depth := 0
	inQuotes := false
	lastSpace := false
	for i := 0; i < len(value); i++ {
		ch := value[i]
		switch {
		case ch == '"' && !inQuotes && depth == 0:
			inQuotes = true
			b.WriteByte(ch)
			lastSpace = false
		case ch == '"' && inQuotes:
			inQuotes = false
			b.WriteByte(ch)
			lastSpace = false
		case inQuotes:
			b.WriteByte(ch)
		case ch == '(':
			depth++
		case ch == ')':
			if depth > 0 {
				depth--
			}
		case depth > 0:
			// inside comment, discard
		case ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n':
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		default:
			b.WriteByte(ch)
			lastSpace = false
		}
	}
	return strings.TrimSpace(b.String())
}

// Addresses parses the field's body as a comma-separated RFC 2822 address
// list (for To/Cc/Bcc/Reply-To and similar fields).
func (f Field) Addresses() ([]address.Group, error) {
	return address.ParseList(f.Body())
}

// Mailbox parses the field's body as exactly one mailbox (for From without
// multiple authors, Sender, Resent-Sender).
func (f Field) Mailbox() (address.Address, error) {
	return address.ParseOne(f.Body())
}

// ToDisclose reports whether this field's presence should be disclosed to
// all recipients: false for Bcc and any Resent-Bcc, true otherwise.
func (f Field) ToDisclose() bool {
	return !strings.EqualFold(f.name, "bcc") && !strings.EqualFold(f.name, "resent-bcc")
}

// wellformedNames holds the canonical display capitalization for field
// names whose capitalization isn't simply title-case-per-hyphen-word
// (e.g. "Message-ID", "MIME-Version").
var wellformedNames = map[string]string{
	"message-id":     "Message-ID",
	"content-id":     "Content-ID",
	"mime-version":   "MIME-Version",
	"dkim-signature": "DKIM-Signature",
}

// WellformedName returns the canonical display capitalization for name.
func WellformedName(name string) string {
	lower := strings.ToLower(name)
	if wf, ok := wellformedNames[lower]; ok {
		return wf
	}

	parts := strings.Split(name, "-")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + strings.ToLower(p[1:])
	}
	return strings.Join(parts, "-")
}
