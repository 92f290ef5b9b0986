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
	"testing"
)

func TestLinesAndString(t *testing.T) {
	b := New(LinesContent{"hello", "world"}, "text/plain", "7bit")
	b.eol = EOLLF

	s, err := b.String()
	if err != nil {
		t.Fatal(err)
	}
	if s != "hello\nworld\n" {
		t.Fatalf("got %q", s)
	}

	n, err := b.NrLines()
	if err != nil || n != 2 {
		t.Fatalf("got %d %v", n, err)
	}
}

func TestEOLConvert(t *testing.T) {
	b := New(LinesContent{"a", "b"}, "text/plain", "7bit")
	b.eol = EOLLF

	crlf := b.EOLConvert(EOLCRLF)
	s, _ := crlf.String()
	if s != "a\r\nb\r\n" {
		t.Fatalf("got %q", s)
	}
	// Original unaffected: bodies are immutable with respect to content.
	orig, _ := b.String()
	if orig != "a\nb\n" {
		t.Fatalf("original body mutated: %q", orig)
	}
}

func TestForeachLine(t *testing.T) {
	b := New(LinesContent{"hello", "world"}, "text/plain", "7bit")
	upper, err := b.ForeachLine(func(l string) string {
		out := make([]byte, len(l))
		for i := range l {
			c := l[i]
			if c >= 'a' && c <= 'z' {
				c -= 'a' - 'A'
			}
			out[i] = c
		}
		return string(out)
	})
	if err != nil {
		t.Fatal(err)
	}
	s, _ := upper.String()
	if s != "HELLO\nWORLD\n" {
		t.Fatalf("got %q", s)
	}
}

func TestConcatenate(t *testing.T) {
	a := New(LinesContent{"a1", "a2"}, "text/plain", "7bit")
	b := New(LinesContent{"b1"}, "text/plain", "7bit")

	joined, err := Concatenate(a, b)
	if err != nil {
		t.Fatal(err)
	}
	lines, _ := joined.content.Lines()
	if len(lines) != 3 {
		t.Fatalf("got %+v", lines)
	}
}

func TestDecodedQuotedPrintable(t *testing.T) {
	b := New(StringContent("h=C3=A9llo"), "text/plain", "quoted-printable")
	b.charset = "utf-8"

	dec, err := b.Decoded("", "")
	if err != nil {
		t.Fatal(err)
	}
	s, _ := dec.String()
	if s != "héllo\n" {
		t.Fatalf("got %q", s)
	}
	if dec.Encoding() != "none" {
		t.Fatalf("got encoding %q", dec.Encoding())
	}
}

func TestEncodeBase64RoundTrip(t *testing.T) {
	b := New(StringContent("hello world"), "text/plain", "none")
	b.charset = "us-ascii"

	enc, err := b.Encode("text/plain", "us-ascii", "base64")
	if err != nil {
		t.Fatal(err)
	}
	if enc.Encoding() != "base64" {
		t.Fatalf("got %q", enc.Encoding())
	}

	dec, err := enc.Decoded("text/plain", "us-ascii")
	if err != nil {
		t.Fatal(err)
	}
	s, _ := dec.String()
	if s != "hello world\n" {
		t.Fatalf("got %q", s)
	}
}

func TestStripSignature(t *testing.T) {
	b := New(LinesContent{"line one", "line two", "--", "John Doe", "555-1234"}, "text/plain", "7bit")
	stripped, err := b.StripSignature(nil, 10)
	if err != nil {
		t.Fatal(err)
	}
	lines, _ := stripped.content.Lines()
	if len(lines) != 2 || lines[0] != "line one" || lines[1] != "line two" {
		t.Fatalf("got %+v", lines)
	}
}

func TestStripSignatureOutsideWindowUnchanged(t *testing.T) {
	lines := make([]string, 0, 20)
	lines = append(lines, "--")
	for i := 0; i < 15; i++ {
		lines = append(lines, "body line")
	}
	b := New(LinesContent(lines), "text/plain", "7bit")

	stripped, err := b.StripSignature(nil, 5)
	if err != nil {
		t.Fatal(err)
	}
	if stripped != b {
		t.Fatal("expected unchanged body when signature marker is outside the window")
	}
}
