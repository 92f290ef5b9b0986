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

package buffer

import (
	"bytes"
	"io"
	"os"
	"testing"
)

func TestMemoryBuffer(t *testing.T) {
	buf, err := BufferInMemory(bytes.NewReader([]byte("hello world")))
	if err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 11 {
		t.Fatalf("got len %d", buf.Len())
	}

	r, err := buf.Open()
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	got, _ := io.ReadAll(r)
	if string(got) != "hello world" {
		t.Fatalf("got %q", got)
	}

	if err := buf.Remove(); err != nil {
		t.Fatalf("Remove: %v", err)
	}
}

func TestFileBuffer(t *testing.T) {
	dir := t.TempDir()
	buf, err := BufferInFile(bytes.NewReader([]byte("some message body")), dir)
	if err != nil {
		t.Fatal(err)
	}
	if buf.Len() != len("some message body") {
		t.Fatalf("got len %d", buf.Len())
	}

	r, err := buf.Open()
	if err != nil {
		t.Fatal(err)
	}
	got, _ := io.ReadAll(r)
	r.Close()
	if string(got) != "some message body" {
		t.Fatalf("got %q", got)
	}

	fb := buf.(FileBuffer)
	if err := buf.Remove(); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := os.Stat(fb.Path); !os.IsNotExist(err) {
		t.Fatalf("expected file removed, stat err = %v", err)
	}
}

func TestFileBufferUniqueNames(t *testing.T) {
	dir := t.TempDir()
	a, err := BufferInFile(bytes.NewReader([]byte("a")), dir)
	if err != nil {
		t.Fatal(err)
	}
	b, err := BufferInFile(bytes.NewReader([]byte("b")), dir)
	if err != nil {
		t.Fatal(err)
	}
	if a.(FileBuffer).Path == b.(FileBuffer).Path {
		t.Fatal("expected distinct paths")
	}
}

func TestBytesReaderCopy(t *testing.T) {
	br := NewBytesReader([]byte("abcdef"))
	buf := make([]byte, 3)
	if _, err := br.Read(buf); err != nil {
		t.Fatal(err)
	}
	if string(buf) != "abc" {
		t.Fatalf("got %q", buf)
	}

	cp := br.Copy()
	if string(cp.Bytes()) != "def" {
		t.Fatalf("got %q", cp.Bytes())
	}
}
