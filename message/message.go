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

// Package message implements the Message/Part composite: a Header+Body
// pair with an identity (Message-Id), a label map, status flags, and the
// reply/forward/bounce/rebuild transformations. Ownership is strict: a
// Folder exclusively owns its Messages, and each Message exclusively owns
// its Header and Body; the back-pointers (Header.SetOnModified,
// Body.SetOwner) exist only so modifications roll up.
package message

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/go-mailstore/mailstore/body"
	"github.com/go-mailstore/mailstore/header"
)

// Flags are a message's status bits. Deleted is a timestamp
// (0 = not deleted) rather than a bool, so a purge pass can age
// tombstones.
type Flags struct {
	Deleted  int64
	Modified bool
	Trusted  bool
	Current  bool
	Passed   bool
	Replied  bool
}

// Message is a (Header, Body, label-map, flags) composite. A Part is a
// Message whose parent is another Message.
type Message struct {
	head *header.Header
	bdy  *body.Body

	labels map[string]string
	flags  Flags

	parent *Message
	seq    uint64

	// id caches the normalized Message-Id (angles stripped, whitespace
	// removed); empty until first computed or assigned.
	id string
}

var messageSeq uint64

// New returns an empty message shell with optional head/body.
func New(head *header.Header, b *body.Body) *Message {
	if head == nil {
		head = header.New()
	}
	m := &Message{
		head:   head,
		bdy:    b,
		labels: make(map[string]string),
		seq:    atomic.AddUint64(&messageSeq, 1),
	}
	head.SetOnModified(func() { m.flags.Modified = true })
	if b != nil {
		b.SetOwner(m)
	}
	return m
}

// MarkBodyModified implements body.Owner: a Body mutation rolls up to the
// owning Message's modified flag.
func (m *Message) MarkBodyModified() { m.flags.Modified = true }

// Header returns the message's header.
func (m *Message) Header() *header.Header { return m.head }

// Body returns the message's body, or nil if none is attached.
func (m *Message) Body() *body.Body { return m.bdy }

// SetBody replaces the body, re-encoding if needed and updating Content-*
// fields to match; passing nil detaches the body and resets the
// corresponding Content-* fields.
func (m *Message) SetBody(b *body.Body) *body.Body {
	old := m.bdy
	m.bdy = b
	if b == nil {
		m.head.Reset("Content-Type")
		m.head.Reset("Content-Transfer-Encoding")
		m.head.Reset("Content-Disposition")
	} else {
		b.SetOwner(m)
		m.head.Set(header.NewField("Content-Type", b.MimeType()))
		m.head.Set(header.NewField("Content-Transfer-Encoding", b.Encoding()))
	}
	m.flags.Modified = true
	return old
}

// Clone returns an independent copy of m: its own cloned header and body,
// a copy of the label map, and m's flags with the deletion tombstone and
// modified flag cleared. Copying a message into another folder goes
// through Clone, so the destination never shares the source's
// Header/Body ownership and marking one side deleted cannot leak
// into the other.
func (m *Message) Clone() *Message {
	var b *body.Body
	if m.bdy != nil {
		b = m.bdy.Clone()
	}
	c := New(cloneHeader(m.head), b)
	for k, v := range m.labels {
		c.labels[k] = v
	}
	flags := m.flags
	flags.Deleted = 0
	flags.Modified = false
	c.flags = flags
	c.id = m.id
	return c
}

// Parent returns the Message this one is a Part of, or nil if it is
// toplevel.
func (m *Message) Parent() *Message { return m.parent }

// Toplevel walks parent pointers to the outermost Message.
func (m *Message) Toplevel() *Message {
	cur := m
	for cur.parent != nil {
		cur = cur.parent
	}
	return cur
}

// ID returns the message's identity: the Message-Id field with angle
// brackets and whitespace stripped, generating and persisting one via
// header.CreateMessageID if absent. The generated id is written back into
// the header, not just cached in memory, so identity survives folder
// reopens.
func (m *Message) ID() string {
	if m.id != "" {
		return m.id
	}
	if f, ok := m.head.Get("Message-Id", 0); ok {
		id := normalizeID(f.Body())
		if id != "" {
			m.id = id
			return id
		}
	}
	synthesized := header.CreateMessageID("")
	m.head.Set(header.NewField("Message-Id", synthesized))
	m.id = normalizeID(synthesized)
	return m.id
}

func normalizeID(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "<")
	s = strings.TrimSuffix(s, ">")
	return strings.Join(strings.Fields(s), "")
}

// Label returns labels[name] and whether it was present.
func (m *Message) Label(name string) (string, bool) {
	v, ok := m.labels[name]
	return v, ok
}

// SetLabel sets labels[name] = value.
func (m *Message) SetLabel(name, value string) {
	m.labels[name] = value
	m.flags.Modified = true
}

// Labels returns a copy of the full label map, for sidecar persistence
// (MH's .mh_sequences, mbox's Status/X-Status).
func (m *Message) Labels() map[string]string {
	out := make(map[string]string, len(m.labels))
	for k, v := range m.labels {
		out[k] = v
	}
	return out
}

// Flags returns the message's status flags.
func (m *Message) Flags() Flags { return m.flags }

// ClearModified resets the modified flag on this message and its header,
// e.g. after a Folder successfully persists it to disk.
func (m *Message) ClearModified() {
	m.flags.Modified = false
	m.head.ClearModified()
}

// Seq returns the message's creation-sequence identity (distinct from its
// position in any particular Folder, which the Folder tracks itself).
func (m *Message) Seq() uint64 { return m.seq }

// ResetID clears the cached identity so the next ID() call recomputes it
// from the header. A Folder calls this after assigning a fresh Message-Id
// to resolve a duplicate-id collision on add.
func (m *Message) ResetID() { m.id = "" }

// UnsetLabel removes name from the label map.
func (m *Message) UnsetLabel(name string) {
	if _, ok := m.labels[name]; ok {
		delete(m.labels, name)
		m.flags.Modified = true
	}
}

// SetFlags replaces the message's status flags wholesale.
func (m *Message) SetFlags(f Flags) {
	m.flags = f
	m.flags.Modified = true
}

// Render implements body.Part: it serializes this message's header
// followed by a blank line and its body, for use as a Multipart child or
// a Nested body's encapsulated message.
func (m *Message) Render() ([]byte, error) {
	var b strings.Builder
	for _, f := range m.head.Fields() {
		fmt.Fprintf(&b, "%s: %s\r\n", header.WellformedName(f.DisplayName()), f.FoldedBody())
	}
	b.WriteString("\r\n")
	if m.bdy != nil {
		s, err := m.bdy.String()
		if err != nil {
			return nil, err
		}
		b.WriteString(s)
	}
	return []byte(b.String()), nil
}

// Deleted implements body.Part: true once Flags().Deleted is non-zero.
func (m *Message) Deleted() bool { return m.flags.Deleted != 0 }

// MarkDeleted sets Flags.Deleted to ts (a deletion timestamp); ts == 0
// undeletes the message.
func (m *Message) MarkDeleted(ts int64) {
	m.flags.Deleted = ts
	m.flags.Modified = true
}

// Part is an alias naming the Message-as-child-of-Message relationship:
// a Part is a Message whose parent is another Message.
type Part = Message

// newPart returns a Message whose parent is set to parent, used when
// building multipart/nested bodies.
func newPart(parent *Message, head *header.Header, b *body.Body) *Part {
	p := New(head, b)
	p.parent = parent
	return p
}
