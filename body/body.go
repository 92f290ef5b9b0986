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

// Package body implements the Body payload model: the Lines/
// String/File/Delayed/Multipart/Nested variants, MIME type/encoding
// metadata, and the content-level operations (decode, re-encode, strip a
// signature, convert line endings, ...). Variants share one Content
// interface, the same single-interface/many-implementations shape as
// buffer.Buffer, rather than a sum type.
package body

import (
	"bufio"
	"bytes"
	"io"
	"strings"
	"sync/atomic"

	"github.com/go-mailstore/mailstore/buffer"
)

// EOL selects the line-ending discipline a Body's Lines()/String() output
// is rendered with.
type EOL int

const (
	EOLNative EOL = iota
	EOLCR
	EOLLF
	EOLCRLF
)

// Bytes returns the literal line-ending bytes for e, resolving EOLNative to
// the platform default at call time.
func (e EOL) Bytes() []byte {
	switch e {
	case EOLCR:
		return []byte{'\r'}
	case EOLLF:
		return []byte{'\n'}
	case EOLCRLF:
		return []byte{'\r', '\n'}
	default:
		return nativeEOL
	}
}

// EOLFromString maps a detected line-ending string (e.g. from
// parser.DetectedEOL) to its EOL mode. Anything unrecognized, including
// "", resolves to EOLNative.
func EOLFromString(s string) EOL {
	switch s {
	case "\r":
		return EOLCR
	case "\n":
		return EOLLF
	case "\r\n":
		return EOLCRLF
	default:
		return EOLNative
	}
}

var bodySeq uint64

func nextBodySeq() uint64 {
	return atomic.AddUint64(&bodySeq, 1)
}

// Content is implemented by each payload variant: Lines, String, File,
// Delayed, Multipart, Nested (content.go).
type Content interface {
	// Lines returns the payload split into lines, without line-ending
	// bytes attached (Body.Lines reattaches them per the configured EOL).
	Lines() ([]string, error)
	// Len returns the byte size of the payload in its own native encoding.
	Len() (int64, error)
}

// Body is a message payload plus the metadata every variant carries:
// MIME type, transfer-encoding, disposition, charset, line-ending
// discipline, checked flag, modified flag, source byte range, sequence
// number, and a weak back-pointer to the owning Message (by interface,
// to avoid an import cycle with package message).
type Body struct {
	content Content

	mimeType    string // e.g. "text/plain"
	charset     string
	disposition string // e.g. "inline", "attachment"
	encoding    string // "7bit", "quoted-printable", "base64", "none", ...

	eol     EOL
	checked bool

	modified bool
	seq      uint64

	// RangeBegin/RangeEnd are the byte offsets of this body within the
	// folder file it was parsed from, or (0,0) if built in memory.
	RangeBegin, RangeEnd int64

	owner Owner
}

// Owner is the weak back-pointer interface a Body holds to its owning
// Message, kept minimal to avoid a body<->message import cycle.
type Owner interface {
	MarkBodyModified()
}

// New wraps content with the given MIME type (charset folded into
// mimeType's parameters is the caller's job, same as header.Field).
func New(content Content, mimeType, encoding string) *Body {
	return &Body{
		content:  content,
		mimeType: mimeType,
		encoding: encoding,
		eol:      EOLNative,
		seq:      nextBodySeq(),
	}
}

// Seq returns the body's creation-sequence identity, used for cheap
// identity comparisons the way Message-Id is used for messages.
func (b *Body) Seq() uint64 { return b.seq }

// SetOwner installs the weak back-pointer used to roll up modifications.
func (b *Body) SetOwner(o Owner) { b.owner = o }

func (b *Body) markModified() {
	b.modified = true
	if b.owner != nil {
		b.owner.MarkBodyModified()
	}
}

func (b *Body) Modified() bool { return b.modified }

// MimeType, Charset, Disposition, Encoding expose the metadata triple plus
// disposition; Checked reports whether content has been verified against
// type/encoding, as last recorded through SetChecked (no reader in this
// module sets it).
func (b *Body) MimeType() string    { return b.mimeType }
func (b *Body) Charset() string     { return b.charset }
func (b *Body) Disposition() string { return b.disposition }
func (b *Body) Encoding() string    { return b.encoding }
func (b *Body) Checked() bool       { return b.checked }
func (b *Body) SetChecked(v bool)   { b.checked = v }

// RawContent returns the underlying Content variant (LinesContent,
// StringContent, FileContent, DelayedContent, MultipartContent,
// NestedContent), for callers that need to type-switch on it directly
// (message.Rebuild's multipart/nested descent, PrintStructure).
func (b *Body) RawContent() Content { return b.content }

// EOLMode returns the body's current line-ending discipline.
func (b *Body) EOLMode() EOL { return b.eol }

// Lines returns the payload as a sequence of lines, each terminated by the
// body's configured EOL bytes (the last line is terminated too: one
// trailing separator per line).
func (b *Body) Lines() ([]string, error) {
	raw, err := b.content.Lines()
	if err != nil {
		return nil, err
	}
	term := string(b.eol.Bytes())
	out := make([]string, len(raw))
	for i, l := range raw {
		out[i] = l + term
	}
	return out, nil
}

// String concatenates Lines into a single string.
func (b *Body) String() (string, error) {
	lines, err := b.Lines()
	if err != nil {
		return "", err
	}
	return strings.Join(lines, ""), nil
}

// File returns a readable byte stream over the payload.
func (b *Body) File() (io.ReadCloser, error) {
	s, err := b.String()
	if err != nil {
		return nil, err
	}
	return buffer.NewBytesReader([]byte(s)), nil
}

// NrLines returns the number of lines, consistent with the current EOL
// discipline (recomputing is cheap: splitting already strips terminators).
func (b *Body) NrLines() (int, error) {
	lines, err := b.content.Lines()
	if err != nil {
		return 0, err
	}
	return len(lines), nil
}

// Size returns the byte size of Body.String(), i.e. lines plus the
// configured EOL on each. It is recomputed on every call, so an EOL
// change is always reflected (there is no cache).
func (b *Body) Size() (int64, error) {
	s, err := b.String()
	if err != nil {
		return 0, err
	}
	return int64(len(s)), nil
}

// EOLConvert returns a new Body with the same content but eol set to mode.
func (b *Body) EOLConvert(mode EOL) *Body {
	cp := *b
	cp.eol = mode
	cp.seq = nextBodySeq()
	cp.owner = nil
	return &cp
}

// Clone returns a new, ownerless Body sharing this one's content and
// metadata, for callers (reply/forward/bounce) that embed a message's body
// inside a new composite without disturbing the original's owner
// back-pointer.
func (b *Body) Clone() *Body {
	cp := *b
	cp.seq = nextBodySeq()
	cp.owner = nil
	return &cp
}

// ForeachLine returns a new Body built by applying fn to each line of the
// current content (fn receives lines without EOL bytes attached).
func (b *Body) ForeachLine(fn func(line string) string) (*Body, error) {
	lines, err := b.content.Lines()
	if err != nil {
		return nil, err
	}
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = fn(l)
	}
	nb := New(LinesContent(out), b.mimeType, b.encoding)
	nb.charset = b.charset
	nb.disposition = b.disposition
	nb.eol = b.eol
	return nb, nil
}

// Concatenate joins bodies in order, preserving the type of the first
// (callers are responsible for ensuring type compatibility).
func Concatenate(bodies ...*Body) (*Body, error) {
	if len(bodies) == 0 {
		return New(LinesContent(nil), "text/plain", "7bit"), nil
	}
	var all []string
	for _, b := range bodies {
		lines, err := b.content.Lines()
		if err != nil {
			return nil, err
		}
		all = append(all, lines...)
	}
	first := bodies[0]
	nb := New(LinesContent(all), first.mimeType, first.encoding)
	nb.charset = first.charset
	nb.disposition = first.disposition
	nb.eol = first.eol
	return nb, nil
}

// nativeEOL is resolved once at init time from bufio's line-reading
// convention: this module has no platform-specific build tags, so "native"
// resolves to LF except where a caller overrides it explicitly.
var nativeEOL = []byte{'\n'}

// splitLinesKeepEmpty splits raw content on any of CR, LF, CRLF, discarding
// the terminators, including a possible trailing empty line.
func splitLinesKeepEmpty(raw []byte) []string {
	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	scanner.Split(scanLinesAnyEOL)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines
}

// scanLinesAnyEOL is a bufio.SplitFunc like bufio.ScanLines but also
// recognizing a bare '\r' as a line terminator (old Mac-style bodies).
func scanLinesAnyEOL(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	for i := 0; i < len(data); i++ {
		switch data[i] {
		case '\n':
			return i + 1, data[:i], nil
		case '\r':
			if i+1 < len(data) && data[i+1] == '\n' {
				return i + 2, data[:i], nil
			}
			if i+1 == len(data) && !atEOF {
				return 0, nil, nil
			}
			return i + 1, data[:i], nil
		}
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
