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

package message

import (
	"strings"
	"testing"

	"github.com/go-mailstore/mailstore/body"
	"github.com/go-mailstore/mailstore/header"
)

func TestNewGeneratesIDAndPersistsIt(t *testing.T) {
	h := header.New()
	h.Add(header.NewField("Subject", "hi"))
	m := New(h, nil)

	id := m.ID()
	if id == "" {
		t.Fatal("expected a generated id")
	}
	if f, ok := h.Get("Message-Id", 0); !ok || !strings.Contains(f.Body(), id) {
		t.Fatalf("generated id not persisted into header: %+v", f)
	}
	if m.ID() != id {
		t.Fatalf("ID() not stable across calls: %q vs %q", m.ID(), id)
	}
}

func TestSetBodyUpdatesContentHeaders(t *testing.T) {
	m := New(nil, nil)
	b := body.New(body.StringContent("hello"), "text/plain", "8bit")
	m.SetBody(b)

	if ct, ok := m.Header().Get("Content-Type", 0); !ok || ct.Body() != "text/plain" {
		t.Fatalf("got %+v", ct)
	}
	if !m.Flags().Modified {
		t.Fatal("expected Modified after SetBody")
	}

	m.ClearModified()
	if m.Flags().Modified {
		t.Fatal("expected Modified cleared")
	}

	m.SetBody(nil)
	if _, ok := m.Header().Get("Content-Type", 0); ok {
		t.Fatal("expected Content-Type reset when body detached")
	}
}

func TestLabelsRoundtrip(t *testing.T) {
	m := New(nil, nil)
	m.SetLabel("color", "red")
	if v, ok := m.Label("color"); !ok || v != "red" {
		t.Fatalf("got %q %v", v, ok)
	}
	m.UnsetLabel("color")
	if _, ok := m.Label("color"); ok {
		t.Fatal("expected label removed")
	}
}

func TestMarkDeletedIsRenderedAsPart(t *testing.T) {
	m := New(nil, nil)
	if m.Deleted() {
		t.Fatal("expected not deleted initially")
	}
	m.MarkDeleted(1)
	if !m.Deleted() {
		t.Fatal("expected deleted")
	}
	m.MarkDeleted(0)
	if m.Deleted() {
		t.Fatal("expected undeleted")
	}
}

func TestNewPartSetsParent(t *testing.T) {
	parent := New(nil, nil)
	child := newPart(parent, header.New(), nil)
	if child.Parent() != parent {
		t.Fatal("expected child.Parent() == parent")
	}
	if child.Toplevel() != parent {
		t.Fatal("expected child.Toplevel() == parent")
	}
}
