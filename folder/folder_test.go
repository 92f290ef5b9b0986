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

package folder

import (
	"path/filepath"
	"testing"

	"github.com/go-mailstore/mailstore/header"
	"github.com/go-mailstore/mailstore/internal/testutils"
	"github.com/go-mailstore/mailstore/message"
)

// stubFormat is a minimal in-memory Format used to exercise Folder's
// format-neutral orchestration without involving any real on-disk layout.
type stubFormat struct {
	flushed    int
	destroyed  bool
	subfolders []string
	seed       []*message.Message
}

func (s *stubFormat) Organization() Organization { return FILE }

func (s *stubFormat) Load(f *Folder) error {
	f.AppendLoaded(s.seed...)
	return nil
}

func (s *stubFormat) Flush(f *Folder, policy WritePolicy, saveDeleted, keepDeleted bool) error {
	s.flushed++
	return nil
}

func (s *stubFormat) Rescan(f *Folder) error { return nil }

func (s *stubFormat) Destroy(f *Folder) error {
	s.destroyed = true
	return nil
}

func (s *stubFormat) Subfolders(f *Folder) ([]string, error) { return s.subfolders, nil }

func newMsg(t *testing.T, subject, to string) *message.Message {
	t.Helper()
	h := header.New()
	h.Add(header.NewField("Subject", subject))
	h.Add(header.NewField("To", to))
	return message.New(h, nil)
}

func openStub(t *testing.T, opts Options, seed ...*message.Message) (*Folder, *stubFormat) {
	t.Helper()
	fmtImpl := &stubFormat{seed: seed}
	path := filepath.Join(t.TempDir(), "folder")
	if opts.Log.Out == nil {
		opts.Log = testutils.Logger(t, "folder")
	}
	f, err := Open(path, fmtImpl, opts)
	if err != nil {
		t.Fatal(err)
	}
	return f, fmtImpl
}

func TestOpenLoadsSeedMessages(t *testing.T) {
	m1 := newMsg(t, "hello", "a@example.com")
	m2 := newMsg(t, "world", "b@example.com")
	f, _ := openStub(t, Options{Mode: ReadWrite}, m1, m2)

	if f.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", f.Len())
	}
	got, ok := f.Message(0)
	if !ok || got != m1 {
		t.Fatal("Message(0) did not return the first seeded message")
	}
}

func TestDuplicateIDDroppedWhenSubjectAndToMatch(t *testing.T) {
	h := header.New()
	h.Add(header.NewField("Message-Id", "<dup@example.com>"))
	h.Add(header.NewField("Subject", "same"))
	h.Add(header.NewField("To", "a@example.com"))
	original := message.New(h, nil)

	f, _ := openStub(t, Options{Mode: ReadWrite}, original)

	dupHeader := header.New()
	dupHeader.Add(header.NewField("Message-Id", "<dup@example.com>"))
	dupHeader.Add(header.NewField("Subject", "same"))
	dupHeader.Add(header.NewField("To", "a@example.com"))
	dup := message.New(dupHeader, nil)

	if f.AddMessage(dup) {
		t.Fatal("expected duplicate message to be dropped")
	}
	if f.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", f.Len())
	}
}

func TestDuplicateIDReassignedWhenFieldsDiffer(t *testing.T) {
	h := header.New()
	h.Add(header.NewField("Message-Id", "<dup@example.com>"))
	h.Add(header.NewField("Subject", "first"))
	h.Add(header.NewField("To", "a@example.com"))
	original := message.New(h, nil)

	f, _ := openStub(t, Options{Mode: ReadWrite}, original)

	dupHeader := header.New()
	dupHeader.Add(header.NewField("Message-Id", "<dup@example.com>"))
	dupHeader.Add(header.NewField("Subject", "different"))
	dupHeader.Add(header.NewField("To", "b@example.com"))
	dup := message.New(dupHeader, nil)

	if !f.AddMessage(dup) {
		t.Fatal("expected message with differing fields to be kept")
	}
	if f.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", f.Len())
	}
	if dup.ID() == original.ID() {
		t.Fatal("expected the reassigned message to have a new id")
	}
}

func TestKeepDupsDisablesDedup(t *testing.T) {
	h := header.New()
	h.Add(header.NewField("Message-Id", "<dup@example.com>"))
	original := message.New(h, nil)

	f, _ := openStub(t, Options{Mode: ReadWrite, KeepDups: true}, original)

	dupHeader := header.New()
	dupHeader.Add(header.NewField("Message-Id", "<dup@example.com>"))
	dup := message.New(dupHeader, nil)

	if !f.AddMessage(dup) {
		t.Fatal("expected KeepDups to keep the duplicate")
	}
	if f.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", f.Len())
	}
}

func TestSelectMessages(t *testing.T) {
	m1 := newMsg(t, "a", "x@example.com")
	m2 := newMsg(t, "b", "y@example.com")
	m3 := newMsg(t, "c", "z@example.com")
	m2.MarkDeleted(1)

	f, _ := openStub(t, Options{Mode: ReadWrite}, m1, m2, m3)

	active := f.SelectMessages(Active)
	if len(active) != 2 {
		t.Fatalf("Active selector returned %d messages, want 2", len(active))
	}

	deleted := f.SelectMessages(Deleted)
	if len(deleted) != 1 || deleted[0] != m2 {
		t.Fatal("Deleted selector did not return m2")
	}

	rng := f.SelectMessages(Range(0, 1))
	if len(rng) != 2 {
		t.Fatalf("Range(0,1) returned %d messages, want 2", len(rng))
	}
}

func TestCurrentMarker(t *testing.T) {
	m1 := newMsg(t, "a", "x@example.com")
	m2 := newMsg(t, "b", "y@example.com")
	f, _ := openStub(t, Options{Mode: ReadWrite}, m1, m2)

	if _, ok := f.Current(); ok {
		t.Fatal("expected no current message initially")
	}

	f.SetCurrent(m1)
	cur, ok := f.Current()
	if !ok || cur != m1 {
		t.Fatal("expected m1 to be current")
	}

	f.SetCurrent(m2)
	cur, ok = f.Current()
	if !ok || cur != m2 {
		t.Fatal("expected m2 to be current after reassignment")
	}
	if _, ok := m1.Label(currentLabel); ok {
		t.Fatal("expected m1's current label to be cleared")
	}
}

func TestWriteNoOpWithoutModification(t *testing.T) {
	f, stub := openStub(t, Options{Mode: ReadWrite}, newMsg(t, "a", "x@example.com"))

	if err := f.Write(false, true, false); err != nil {
		t.Fatal(err)
	}
	if stub.flushed != 0 {
		t.Fatalf("expected no flush, got %d", stub.flushed)
	}

	if err := f.Write(true, true, false); err != nil {
		t.Fatal(err)
	}
	if stub.flushed != 1 {
		t.Fatalf("expected one forced flush, got %d", stub.flushed)
	}
}

func TestWriteReadOnlyRefused(t *testing.T) {
	f, _ := openStub(t, Options{Mode: ReadOnly})
	if err := f.Write(true, true, false); err != ErrReadOnly {
		t.Fatalf("Write on read-only folder: got %v, want ErrReadOnly", err)
	}
}

func TestDeleteInvokesDestroyAndUnlocks(t *testing.T) {
	f, stub := openStub(t, Options{Mode: ReadWrite})
	if err := f.Delete(); err != nil {
		t.Fatal(err)
	}
	if !stub.destroyed {
		t.Fatal("expected Destroy to have been called")
	}
}

type fakeManager struct{ forgotten string }

func (m *fakeManager) Forget(name string) { m.forgotten = name }

func TestCloseNotifiesManagerUnlessSilent(t *testing.T) {
	f, _ := openStub(t, Options{Mode: ReadOnly})
	mgr := &fakeManager{}
	f.SetManager(mgr)

	if err := f.Close(CloseNever, false, false, false); err != nil {
		t.Fatal(err)
	}
	if mgr.forgotten != f.Name() {
		t.Fatal("expected Close to notify the manager")
	}

	f2, _ := openStub(t, Options{Mode: ReadOnly})
	mgr2 := &fakeManager{}
	f2.SetManager(mgr2)
	if err := f2.CloseSilently(CloseNever, false, false, false); err != nil {
		t.Fatal(err)
	}
	if mgr2.forgotten != "" {
		t.Fatal("expected CloseSilently not to notify the manager")
	}
}
