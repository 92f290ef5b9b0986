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

// Package parser implements the incremental byte-level reader bound to one
// folder file: header extraction, a separator stack for nested
// multipart/mbox boundaries, body reads in string/lines/file/delayed mode,
// and the changed-file guard at start/stop. It is a stateful, line-at-a-
// time scanner: byte-position tracking over a bufio.Reader, specialized
// for RFC 2822 header/body scanning.
package parser

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/go-mailstore/mailstore/report"
)

// ErrChanged is returned by Start/Stop when the underlying file's size or
// mtime no longer match what was recorded: another process mutated the
// folder file while it was out of our hands.
var ErrChanged = errors.New("parser: file changed since last observation")

// HeaderField is one raw (name, unfolded body) pair as returned by
// ReadHeader, before being wrapped into a header.Field by the caller (the
// caller decides folded-vs-unfolded storage policy).
type HeaderField struct {
	Name string
	Body string
}

// Separator is a pushed boundary the parser reads bodies up to: either a
// literal string (e.g. "--boundary") or a compiled pattern (e.g. mbox's
// `^From `).
type Separator struct {
	Literal string
	Pattern *regexp.Regexp
}

func (s Separator) matches(line string) bool {
	if s.Pattern != nil {
		return s.Pattern.MatchString(line)
	}
	return s.Literal != "" && strings.HasPrefix(line, s.Literal)
}

// Parser is a stateful reader bound to one file: current byte position, a
// separator stack, the detected line-ending, and the file's size/mtime as
// observed at Start.
type Parser struct {
	Log report.Logger

	path string
	f    *os.File
	r    *bufio.Reader
	pos  int64

	separators []Separator
	detectedEOL string

	startSize  int64
	startMtime int64
}

// Open returns a Parser bound to path, without yet calling Start.
func Open(path string, log report.Logger) *Parser {
	return &Parser{path: path, Log: log}
}

// Start opens the file in read ("r") or read-write ("r+") mode and records
// its size and mtime. If trustFile is false and the size/mtime recorded by
// a prior Start don't match, Start fails with ErrChanged (the changed-file
// guard used by Folder.open's trust_file option).
func (p *Parser) Start(readWrite bool, trustFile bool) error {
	flag := os.O_RDONLY
	if readWrite {
		flag = os.O_RDWR
	}
	f, err := os.OpenFile(p.path, flag, 0)
	if err != nil {
		return fmt.Errorf("parser: open %s: %w", p.path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("parser: stat %s: %w", p.path, err)
	}

	if !trustFile && p.startSize != 0 {
		if info.Size() != p.startSize || info.ModTime().Unix() != p.startMtime {
			f.Close()
			return ErrChanged
		}
	}

	p.f = f
	p.r = bufio.NewReaderSize(f, 64*1024)
	p.pos = 0
	p.startSize = info.Size()
	p.startMtime = info.ModTime().Unix()
	return nil
}

// Stop closes the handle and rechecks size/mtime, logging an ERROR (but
// not failing) if the file changed while the Parser held it open.
func (p *Parser) Stop() error {
	if p.f == nil {
		return nil
	}
	info, statErr := p.f.Stat()
	f := p.f
	p.f = nil
	p.r = nil

	if err := f.Close(); err != nil {
		return fmt.Errorf("parser: close %s: %w", p.path, err)
	}
	if statErr == nil && (info.Size() != p.startSize || info.ModTime().Unix() != p.startMtime) {
		if p.Log.Out != nil {
			p.Log.Error("file changed while parser had it open", "path", p.path)
		}
	}
	return nil
}

// PushSeparator pushes a new active boundary (e.g. a multipart boundary
// nested inside the outer mbox "From " separator).
func (p *Parser) PushSeparator(s Separator) {
	p.separators = append(p.separators, s)
}

// PopSeparator removes the most recently pushed separator.
func (p *Parser) PopSeparator() {
	if len(p.separators) > 0 {
		p.separators = p.separators[:len(p.separators)-1]
	}
}

// DetectedEOL returns the line-ending detected from the first complete
// line read ("\r", "\n" or "\r\n"), or "" if nothing has been read yet.
func (p *Parser) DetectedEOL() string { return p.detectedEOL }

func (p *Parser) activeSeparator() (Separator, bool) {
	if len(p.separators) == 0 {
		return Separator{}, false
	}
	return p.separators[len(p.separators)-1], true
}

// FilePosition returns the current byte offset, or seeks to pos first if
// given.
func (p *Parser) FilePosition(pos ...int64) (int64, error) {
	if len(pos) > 0 {
		off, err := p.f.Seek(pos[0], io.SeekStart)
		if err != nil {
			return 0, err
		}
		p.pos = off
		p.r.Reset(p.f)
		return off, nil
	}
	return p.pos, nil
}

// readLine reads one line (without its terminator), detecting and
// remembering CR/LF/CRLF on the first complete line, and advances pos.
// The scan is byte-at-a-time rather than ReadString('\n') because a bare
// '\r' is a terminator in its own right (old Mac-style files): splitting
// only on '\n' would swallow a whole run of CR-terminated lines as one.
func (p *Parser) readLine() (line string, offset int64, eof bool, err error) {
	offset = p.pos
	var b strings.Builder
	term := ""
	for {
		c, rerr := p.r.ReadByte()
		if rerr == io.EOF {
			if b.Len() == 0 {
				return "", offset, true, nil
			}
			break
		}
		if rerr != nil {
			return "", offset, false, rerr
		}
		if c == '\n' {
			term = "\n"
			break
		}
		if c == '\r' {
			// CRLF counts as one terminator; a lone CR is one too.
			nxt, nerr := p.r.ReadByte()
			if nerr == nil && nxt == '\n' {
				term = "\r\n"
			} else {
				if nerr == nil {
					p.r.UnreadByte()
				}
				term = "\r"
			}
			break
		}
		b.WriteByte(c)
	}
	p.pos += int64(b.Len() + len(term))

	if p.detectedEOL == "" && term != "" {
		p.detectedEOL = term
	}
	return b.String(), offset, false, nil
}

// ReadSeparator reads blank lines until the active separator line (or
// EOF), returning the offset and the separator line's raw text.
func (p *Parser) ReadSeparator() (offset int64, line string, err error) {
	sep, _ := p.activeSeparator()
	for {
		l, off, eof, rerr := p.readLine()
		if rerr != nil {
			return 0, "", rerr
		}
		if eof {
			return off, "", io.EOF
		}
		if l == "" {
			continue
		}
		if sep.Literal == "" && sep.Pattern == nil {
			return off, l, nil
		}
		if sep.matches(l) {
			return off, l, nil
		}
	}
}
