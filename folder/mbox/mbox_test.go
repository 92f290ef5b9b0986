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

package mbox

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-mailstore/mailstore/folder"
)

const twoMessages = `From anna@example.org Mon Jan 2 15:04:05 2006
From: anna@example.org
To: bob@example.org
Subject: first
Message-Id: <1@example.org>

Hello Bob.
>From the start, this line needed escaping.

From bob@example.org Mon Jan 2 15:05:00 2006
From: bob@example.org
To: anna@example.org
Subject: second
Message-Id: <2@example.org>

Hi Anna.
`

func writeFixture(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mbox")
	if err := os.WriteFile(path, []byte(strings.ReplaceAll(contents, "\n", "\r\n")), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadParsesTwoMessages(t *testing.T) {
	path := writeFixture(t, twoMessages)
	f, err := folder.Open(path, New(), folder.Options{Mode: folder.ReadWrite, Extract: folder.ExtractAlways})
	if err != nil {
		t.Fatal(err)
	}
	if f.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", f.Len())
	}
	m0, _ := f.Message(0)
	if subj, _ := m0.Header().Get("Subject", 0); subj.Body() != "first" {
		t.Fatalf("first message Subject = %q", subj.Body())
	}
	b, err := m0.Body().String()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(b, "From the start") || strings.Contains(b, ">From the start") {
		t.Fatalf("expected mboxrd unescape, got %q", b)
	}
}

func TestFoundInDetectsMboxFile(t *testing.T) {
	path := writeFixture(t, twoMessages)
	if !FoundIn(path) {
		t.Fatal("expected FoundIn to recognize a From-line file")
	}

	notMbox := filepath.Join(t.TempDir(), "notmbox")
	if err := os.WriteFile(notMbox, []byte("hello\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if FoundIn(notMbox) {
		t.Fatal("expected FoundIn to reject a non-mbox file")
	}
}

func TestWriteReplaceRoundTrips(t *testing.T) {
	path := writeFixture(t, twoMessages)
	f, err := folder.Open(path, New(), folder.Options{Mode: folder.ReadWrite, Extract: folder.ExtractAlways})
	if err != nil {
		t.Fatal(err)
	}
	m0, _ := f.Message(0)
	m0.MarkDeleted(1)

	if err := f.Write(true, true, false); err != nil {
		t.Fatal(err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(raw), "X-Status: D") {
		t.Fatalf("expected deleted message's tombstone flag in output:\n%s", raw)
	}
}

func TestEscapeUnescapeFromLine(t *testing.T) {
	cases := map[string]string{
		"From somebody":   ">From somebody",
		">From somebody":  ">>From somebody",
		"Not a from line": "Not a from line",
		">>From somebody": ">>>From somebody",
	}
	for in, want := range cases {
		if got := escapeFromLine(in); got != want {
			t.Errorf("escapeFromLine(%q) = %q, want %q", in, got, want)
		}
	}
	if got := unescapeFromLine(">From somebody"); got != "From somebody" {
		t.Errorf("unescapeFromLine(%q) = %q", ">From somebody", got)
	}
	if got := unescapeFromLine("Not a from line"); got != "Not a from line" {
		t.Errorf("unescapeFromLine should leave ordinary lines alone, got %q", got)
	}
}
