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
	"strings"

	"github.com/go-mailstore/mailstore/header"
)

// ReadHeader reads up to the first blank line, returning the byte offset
// the header started at and the ordered (name, unfolded body) pairs found.
// Empty field bodies are permitted. A continuation line (one starting with
// LWSP) with no preceding field is a malformed-continuation condition: it
// is logged as a WARNING and kept as a field of its own with an empty
// name.
func (p *Parser) ReadHeader() (startOffset int64, fields []HeaderField, err error) {
	startOffset = p.pos

	for {
		line, _, eof, rerr := p.readLine()
		if rerr != nil {
			return startOffset, fields, rerr
		}
		if eof || line == "" {
			break
		}

		if isContinuation(line) {
			if len(fields) == 0 {
				if p.Log.Out != nil {
					p.Log.Warning("header continuation with no preceding field", "line", line)
				}
				fields = append(fields, HeaderField{Name: "", Body: strings.TrimLeft(line, " \t")})
				continue
			}
			last := &fields[len(fields)-1]
			last.Body += " " + strings.TrimLeft(line, " \t")
			continue
		}

		colon := strings.IndexByte(line, ':')
		if colon == -1 {
			if p.Log.Out != nil {
				p.Log.Warning("malformed header line, no colon", "line", line)
			}
			continue
		}

		name := line[:colon]
		body := strings.TrimLeft(line[colon+1:], " \t")
		fields = append(fields, HeaderField{Name: name, Body: body})
	}

	return startOffset, fields, nil
}

func isContinuation(line string) bool {
	return len(line) > 0 && (line[0] == ' ' || line[0] == '\t')
}

// FoldHeaderLine folds an unfolded structured field body at allowed points
// (after commas, before whitespace) to the target width, joining
// continuation lines with "\r\n ". It delegates to header.Fold, the
// single implementation of RFC 2822 folding shared by both packages.
func FoldHeaderLine(line string, length int) string {
	return header.Fold(line, length)
}
