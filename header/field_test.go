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

package header

import "testing"

func TestFieldBodyUnfold(t *testing.T) {
	f := NewFolded("Subject", "hello\r\n world")
	if got := f.Body(); got != "hello world" {
		t.Fatalf("got %q", got)
	}
}

func TestFoldWrapsLongBody(t *testing.T) {
	body := "alice@example.org, bob@example.org, carol@example.org, dave@example.org, eve@example.org"
	folded := Fold(body, 40)
	if folded == body {
		t.Fatal("expected folding to change the body")
	}
	if unfold(folded) != body {
		t.Fatalf("fold/unfold round-trip mismatch: %q", unfold(folded))
	}
}

func TestFoldShortBodyUnchanged(t *testing.T) {
	if got := Fold("short", 72); got != "short" {
		t.Fatalf("got %q", got)
	}
}

func TestCommentAndBodyWithoutComment(t *testing.T) {
	f := NewField("Content-Type", `text/plain; charset=utf-8`)
	if got := f.Comment(); got != "charset=utf-8" {
		t.Fatalf("got %q", got)
	}
	if got := f.BodyWithoutComment(); got != "text/plain" {
		t.Fatalf("got %q", got)
	}
}

func TestAttributes(t *testing.T) {
	f := NewField("Content-Type", `text/plain; charset=utf-8; format=flowed`)
	attrs := f.Attributes()
	if attrs["charset"] != "utf-8" || attrs["format"] != "flowed" {
		t.Fatalf("got %+v", attrs)
	}
}

func TestAttributesQuoted(t *testing.T) {
	f := NewField("Content-Disposition", `attachment; filename="a file.txt"`)
	attrs := f.Attributes()
	if attrs["filename"] != "a file.txt" {
		t.Fatalf("got %+v", attrs)
	}
}

func TestStripCFWS(t *testing.T) {
	got := StripCFWS("foo (a comment) bar   baz")
	if got != "foo bar baz" {
		t.Fatalf("got %q", got)
	}
}

func TestToDisclose(t *testing.T) {
	if NewField("Bcc", "x@y").ToDisclose() {
		t.Fatal("Bcc should not disclose")
	}
	if NewField("Resent-Bcc", "x@y").ToDisclose() {
		t.Fatal("Resent-Bcc should not disclose")
	}
	if !NewField("To", "x@y").ToDisclose() {
		t.Fatal("To should disclose")
	}
}

func TestWellformedName(t *testing.T) {
	cases := map[string]string{
		"message-id":   "Message-ID",
		"MIME-VERSION": "MIME-Version",
		"subject":      "Subject",
		"x-custom-tag": "X-Custom-Tag",
	}
	for in, want := range cases {
		if got := WellformedName(in); got != want {
			t.Errorf("WellformedName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestAddressesAndMailbox(t *testing.T) {
	f := NewField("To", "anna@example.org, Bob <bob@example.org>")
	groups, err := f.Addresses()
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 1 || len(groups[0].Addresses) != 2 {
		t.Fatalf("got %+v", groups)
	}

	from := NewField("From", "Anna Example <anna@example.org>")
	a, err := from.Mailbox()
	if err != nil {
		t.Fatal(err)
	}
	if a.Mailbox != "anna@example.org" {
		t.Fatalf("got %+v", a)
	}
}
