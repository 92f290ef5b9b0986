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

import "regexp"

// DefaultSignaturePattern matches the conventional "-- " signature
// delimiter line, StripSignature's default when no pattern is given.
var DefaultSignaturePattern = regexp.MustCompile(`^--\s*$`)

// StripSignature returns a new Body with the trailing signature block
// removed: the last line matching pattern, provided it occurs within the
// last maxLines lines, plus everything after it. If no match is found
// within that window, the body is returned unchanged (same object).
func (b *Body) StripSignature(pattern *regexp.Regexp, maxLines int) (*Body, error) {
	if pattern == nil {
		pattern = DefaultSignaturePattern
	}
	if maxLines <= 0 {
		maxLines = 10
	}

	lines, err := b.content.Lines()
	if err != nil {
		return nil, err
	}

	cut := -1
	start := len(lines) - maxLines
	if start < 0 {
		start = 0
	}
	for i := len(lines) - 1; i >= start; i-- {
		if pattern.MatchString(lines[i]) {
			cut = i
			break
		}
	}
	if cut == -1 {
		return b, nil
	}

	nb := New(LinesContent(append([]string{}, lines[:cut]...)), b.mimeType, b.encoding)
	nb.charset = b.charset
	nb.disposition = b.disposition
	nb.eol = b.eol
	return nb, nil
}
