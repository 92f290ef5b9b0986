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

package parser

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-mailstore/mailstore/buffer"
)

// readBodyLines reads lines up to the active separator (or EOF), honoring
// linesHint to presize the slice. It is the shared core of
// BodyAsString/BodyAsList/BodyAsFile.
func (p *Parser) readBodyLines(linesHint int) (offset int64, lines []string, err error) {
	offset = p.pos
	if linesHint > 0 {
		lines = make([]string, 0, linesHint)
	}

	sep, hasSep := p.activeSeparator()
	for {
		line, lineStart, eof, rerr := p.readLine()
		if rerr != nil {
			return offset, lines, rerr
		}
		if eof {
			break
		}
		if hasSep && sep.matches(line) {
			// Put the separator line back: it belongs to the next
			// ReadSeparator call, not the body. bufio has already consumed
			// it, so seek the handle back and reset the reader.
			if _, serr := p.FilePosition(lineStart); serr != nil {
				return offset, lines, serr
			}
			break
		}
		lines = append(lines, line)
	}
	return offset, lines, nil
}

// BodyAsString reads up to the active separator (or EOF) and returns the
// body as one string, joined with the detected line ending. charsHint
// presizes the builder.
func (p *Parser) BodyAsString(charsHint, linesHint int) (offset int64, payload string, err error) {
	offset, lines, err := p.readBodyLines(linesHint)
	if err != nil {
		return offset, "", err
	}
	term := p.detectedEOL
	if term == "" {
		term = "\n"
	}
	var b strings.Builder
	if charsHint > 0 {
		b.Grow(charsHint)
	}
	for _, l := range lines {
		b.WriteString(l)
		b.WriteString(term)
	}
	return offset, b.String(), nil
}

// BodyAsList reads up to the active separator (or EOF) and returns the body
// as a slice of lines (terminators stripped).
func (p *Parser) BodyAsList(charsHint, linesHint int) (offset int64, payload []string, err error) {
	return p.readBodyLines(linesHint)
}

// BodyAsFile reads up to the active separator (or EOF), writes it to a new
// buffer.FileBuffer in dir, and returns that buffer rather than the bytes
// themselves, for large bodies the caller wants file-backed rather than
// resident.
func (p *Parser) BodyAsFile(dir string, charsHint, linesHint int) (offset int64, buf buffer.Buffer, err error) {
	offset, payload, err := p.BodyAsString(charsHint, linesHint)
	if err != nil {
		return offset, nil, err
	}
	buf, err = buffer.BufferInFile(strings.NewReader(payload), dir)
	return offset, buf, err
}

// BodyDelayed skips the body up to the active separator (or EOF) without
// reading its content into memory, returning the byte range and line count
// so the caller can build a body.DelayedContent.
func (p *Parser) BodyDelayed(linesHint int) (offset int64, begin, end int64, lines int, err error) {
	begin = p.pos
	_, ls, err := p.readBodyLines(linesHint)
	if err != nil {
		return begin, begin, p.pos, len(ls), err
	}
	return begin, begin, p.pos, len(ls), nil
}

// Load implements body.Loader against this Parser's file, for a
// DelayedContent built from BodyDelayed's byte range. It opens the file
// independently of the Parser's own handle so a Delayed body can still be
// realized after Stop.
func (p *Parser) Load(begin, end int64) ([]byte, error) {
	f, err := os.Open(p.path)
	if err != nil {
		return nil, fmt.Errorf("parser: load delayed range: %w", err)
	}
	defer f.Close()

	if _, err := f.Seek(begin, io.SeekStart); err != nil {
		return nil, err
	}
	buf := make([]byte, end-begin)
	if _, err := io.ReadFull(f, buf); err != nil {
		return nil, err
	}
	return buf, nil
}
