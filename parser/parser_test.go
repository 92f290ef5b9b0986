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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-mailstore/mailstore/report"
)

func writeTemp(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "msg")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadHeaderSimple(t *testing.T) {
	path := writeTemp(t, "From: anna@example.org\nSubject: hello\n\nbody text\n")
	p := Open(path, report.Logger{})
	if err := p.Start(false, true); err != nil {
		t.Fatal(err)
	}
	defer p.Stop()

	_, fields, err := p.ReadHeader()
	if err != nil {
		t.Fatal(err)
	}
	if len(fields) != 2 || fields[0].Name != "From" || fields[1].Name != "Subject" {
		t.Fatalf("got %+v", fields)
	}
}

func TestReadHeaderContinuation(t *testing.T) {
	path := writeTemp(t, "Subject: hello\n world\n\nbody\n")
	p := Open(path, report.Logger{})
	if err := p.Start(false, true); err != nil {
		t.Fatal(err)
	}
	defer p.Stop()

	_, fields, err := p.ReadHeader()
	if err != nil {
		t.Fatal(err)
	}
	if len(fields) != 1 || fields[0].Body != "hello world" {
		t.Fatalf("got %+v", fields)
	}
}

func TestReadHeaderMalformedContinuationRecovers(t *testing.T) {
	path := writeTemp(t, " orphan continuation\nSubject: hi\n\nbody\n")
	p := Open(path, report.Logger{Out: report.NewRingOutput(4), Level: report.NONE, Log: report.DEBUG})
	if err := p.Start(false, true); err != nil {
		t.Fatal(err)
	}
	defer p.Stop()

	_, fields, err := p.ReadHeader()
	if err != nil {
		t.Fatal(err)
	}
	if len(fields) != 2 {
		t.Fatalf("got %+v", fields)
	}
}

func TestBodyAsStringAndList(t *testing.T) {
	path := writeTemp(t, "Subject: hi\n\nline one\nline two\n")
	p := Open(path, report.Logger{})
	if err := p.Start(false, true); err != nil {
		t.Fatal(err)
	}
	defer p.Stop()

	if _, _, err := p.ReadHeader(); err != nil {
		t.Fatal(err)
	}

	_, list, err := p.BodyAsList(0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0] != "line one" || list[1] != "line two" {
		t.Fatalf("got %+v", list)
	}
}

func TestBodyDelayedAndLoad(t *testing.T) {
	path := writeTemp(t, "Subject: hi\n\nline one\nline two\n")
	p := Open(path, report.Logger{})
	if err := p.Start(false, true); err != nil {
		t.Fatal(err)
	}

	if _, _, err := p.ReadHeader(); err != nil {
		t.Fatal(err)
	}
	_, begin, end, lines, err := p.BodyDelayed(0)
	if err != nil {
		t.Fatal(err)
	}
	if lines != 2 {
		t.Fatalf("got %d lines", lines)
	}
	p.Stop()

	raw, err := p.Load(begin, end)
	if err != nil {
		t.Fatal(err)
	}
	if string(raw) != "line one\nline two\n" {
		t.Fatalf("got %q", raw)
	}
}

func TestReadLineBareCR(t *testing.T) {
	path := writeTemp(t, "Subject: hi\rLines: 2\r\rline one\rline two\r")
	p := Open(path, report.Logger{})
	if err := p.Start(false, true); err != nil {
		t.Fatal(err)
	}
	defer p.Stop()

	_, fields, err := p.ReadHeader()
	if err != nil {
		t.Fatal(err)
	}
	if len(fields) != 2 || fields[0].Name != "Subject" || fields[1].Name != "Lines" {
		t.Fatalf("got %+v", fields)
	}
	if p.DetectedEOL() != "\r" {
		t.Fatalf("DetectedEOL() = %q, want \\r", p.DetectedEOL())
	}

	_, list, err := p.BodyAsList(0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0] != "line one" || list[1] != "line two" {
		t.Fatalf("got %+v", list)
	}
}

func TestStartDetectsChangedFile(t *testing.T) {
	path := writeTemp(t, "Subject: hi\n\nbody\n")
	p := Open(path, report.Logger{})
	if err := p.Start(false, true); err != nil {
		t.Fatal(err)
	}
	if err := p.Stop(); err != nil {
		t.Fatal(err)
	}

	// Mutate after Stop so size differs; ensure mtime also moves forward
	// in case the filesystem's mtime resolution is coarser than the test.
	time.Sleep(10 * time.Millisecond)
	if err := os.WriteFile(path, []byte("Subject: hi\n\nbody, but longer now\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := p.Start(false, false); err != ErrChanged {
		t.Fatalf("expected ErrChanged, got %v", err)
	}
}

func TestFoldHeaderLine(t *testing.T) {
	long := "alice@example.org, bob@example.org, carol@example.org, dave@example.org"
	folded := FoldHeaderLine(long, 30)
	if folded == long {
		t.Fatal("expected folding")
	}
}
