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
	"strings"
	"testing"
)

type fakePart struct {
	content string
	deleted bool
}

func (p fakePart) Render() ([]byte, error) { return []byte(p.content), nil }
func (p fakePart) Deleted() bool           { return p.deleted }

func TestMultipartRenderElidesDeleted(t *testing.T) {
	mc := MultipartContent{
		Boundary: "XYZ",
		Parts: []Part{
			fakePart{content: "Content-Type: text/plain\r\n\r\nfirst part"},
			fakePart{content: "Content-Type: text/plain\r\n\r\nsecond part", deleted: true},
			fakePart{content: "Content-Type: text/plain\r\n\r\nthird part"},
		},
	}
	b := New(mc, "multipart/mixed", "7bit")

	s, err := b.String()
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(s, "second part") {
		t.Fatalf("deleted part leaked into output: %q", s)
	}
	if !strings.Contains(s, "first part") || !strings.Contains(s, "third part") {
		t.Fatalf("missing expected parts: %q", s)
	}
	if !strings.Contains(s, "--XYZ--") {
		t.Fatalf("missing closing boundary: %q", s)
	}
}

func TestNestedContent(t *testing.T) {
	nc := NestedContent{Child: fakePart{content: "Subject: inner\r\n\r\nbody text"}}
	b := New(nc, "message/rfc822", "7bit")

	s, err := b.String()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(s, "Subject: inner") || !strings.Contains(s, "body text") {
		t.Fatalf("got %q", s)
	}
}
