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

package body

import (
	"errors"
	"io"

	"github.com/go-mailstore/mailstore/buffer"
)

// LinesContent is a fully in-memory Body backed by a slice of lines
// (no line-ending bytes attached; Body.Lines reattaches the configured
// EOL).
type LinesContent []string

func (c LinesContent) Lines() ([]string, error) { return []string(c), nil }
func (c LinesContent) Len() (int64, error) {
	var n int64
	for _, l := range c {
		n += int64(len(l)) + 1
	}
	return n, nil
}

// StringContent is a fully in-memory Body backed by one string.
type StringContent string

func (c StringContent) Lines() ([]string, error) {
	return splitLinesKeepEmpty([]byte(c)), nil
}
func (c StringContent) Len() (int64, error) { return int64(len(c)), nil }

// FileContent is backed by an external buffer.Buffer (usually a
// buffer.FileBuffer), streamed on demand rather than held in memory.
type FileContent struct {
	Buf buffer.Buffer
}

func (c FileContent) Lines() ([]string, error) {
	r, err := c.Buf.Open()
	if err != nil {
		return nil, err
	}
	defer r.Close()
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return splitLinesKeepEmpty(raw), nil
}

func (c FileContent) Len() (int64, error) {
	return int64(c.Buf.Len()), nil
}

// Loader reads the bytes of a Delayed body's (begin, end) byte range from
// the owning folder file, e.g. Parser.bodyDelayed's stored range.
type Loader interface {
	Load(begin, end int64) ([]byte, error)
}

// DelayedContent stores only a (begin, end) byte range into the owning
// folder file; Lines/Len trigger Loader.Load on first access and cache the
// result, so loading is idempotent.
type DelayedContent struct {
	Begin, End int64
	Loader     Loader

	loaded bool
	raw    []byte
}

func (c *DelayedContent) ensure() error {
	if c.loaded {
		return nil
	}
	if c.Loader == nil {
		return errors.New("body: delayed content has no loader")
	}
	raw, err := c.Loader.Load(c.Begin, c.End)
	if err != nil {
		return err
	}
	c.raw = raw
	c.loaded = true
	return nil
}

func (c *DelayedContent) Lines() ([]string, error) {
	if err := c.ensure(); err != nil {
		return nil, err
	}
	return splitLinesKeepEmpty(c.raw), nil
}

func (c *DelayedContent) Len() (int64, error) {
	if c.loaded {
		return int64(len(c.raw)), nil
	}
	return c.End - c.Begin, nil
}

// Part is the minimal surface a Multipart's children and a Nested body's
// single child must expose: enough to render and to participate in
// deletion, without body importing package message (which itself imports
// body) to avoid a cycle.
type Part interface {
	// Render returns the part's header bytes, a blank line, and its body
	// bytes, exactly as it should appear on the wire.
	Render() ([]byte, error)
	// Deleted reports whether this part has been marked deleted and
	// should be elided from Lines()/String() output.
	Deleted() bool
}

// MultipartContent is an ordered list of child Parts plus preamble/epilogue
// bodies, rendered in the multipart wire format:
//
//	preamble CRLF --boundary CRLF part CRLF --boundary CRLF ... --boundary-- CRLF epilogue
type MultipartContent struct {
	Boundary string
	Preamble *Body
	Parts    []Part
	Epilogue *Body
}

func (c MultipartContent) Lines() ([]string, error) {
	raw, err := c.render()
	if err != nil {
		return nil, err
	}
	return splitLinesKeepEmpty(raw), nil
}

func (c MultipartContent) Len() (int64, error) {
	raw, err := c.render()
	if err != nil {
		return 0, err
	}
	return int64(len(raw)), nil
}

func (c MultipartContent) render() ([]byte, error) {
	var buf []byte
	if c.Preamble != nil {
		s, err := c.Preamble.String()
		if err != nil {
			return nil, err
		}
		buf = append(buf, s...)
	}
	for _, p := range c.Parts {
		if p.Deleted() {
			continue
		}
		buf = append(buf, "\r\n--"+c.Boundary+"\r\n"...)
		partBytes, err := p.Render()
		if err != nil {
			return nil, err
		}
		buf = append(buf, partBytes...)
	}
	buf = append(buf, "\r\n--"+c.Boundary+"--\r\n"...)
	if c.Epilogue != nil {
		s, err := c.Epilogue.String()
		if err != nil {
			return nil, err
		}
		buf = append(buf, s...)
	}
	return buf, nil
}

// NestedContent wraps exactly one encapsulated message (content-type
// message/rfc822); its size and line count include the inner message's
// header, since Render returns header+body.
type NestedContent struct {
	Child Part
}

func (c NestedContent) Lines() ([]string, error) {
	raw, err := c.Child.Render()
	if err != nil {
		return nil, err
	}
	return splitLinesKeepEmpty(raw), nil
}

func (c NestedContent) Len() (int64, error) {
	raw, err := c.Child.Render()
	if err != nil {
		return 0, err
	}
	return int64(len(raw)), nil
}
