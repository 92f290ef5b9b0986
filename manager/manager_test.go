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

package manager

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-mailstore/mailstore/folder"
	"github.com/go-mailstore/mailstore/folder/maildir"
	"github.com/go-mailstore/mailstore/folder/mbox"
	"github.com/go-mailstore/mailstore/folder/mh"
	"github.com/go-mailstore/mailstore/header"
	"github.com/go-mailstore/mailstore/internal/testutils"
	"github.com/go-mailstore/mailstore/message"
)

func newTestManager(t *testing.T) *Manager {
	m := New(Options{Log: testutils.Logger(t, "manager")})
	// maildir first: a maildir is also a directory, so its probe has to
	// run before the looser MH one.
	m.RegisterFormat("maildir", maildir.FoundIn, maildir.New)
	m.RegisterFormat("mh", mh.FoundIn, mh.New)
	m.RegisterFormat("mbox", mbox.FoundIn, mbox.New)
	return m
}

// writeMHDir creates an empty MH folder: the .mh_sequences sidecar is
// what FoundIn recognizes a message-less MH directory by.
func writeMHDir(t *testing.T, dir string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".mh_sequences"), nil, 0600); err != nil {
		t.Fatal(err)
	}
}

func writeMboxFile(t *testing.T, path string) {
	t.Helper()
	contents := "From a@example.org Mon Jan  1 00:00:00 2024\r\n" +
		"Subject: hi\r\nFrom: a@example.org\r\n\r\nBody.\r\n\r\n"
	if err := os.WriteFile(path, []byte(contents), 0600); err != nil {
		t.Fatal(err)
	}
}

func TestOpenAutoDetectsMbox(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inbox")
	writeMboxFile(t, path)

	m := newTestManager(t)
	f, err := m.Open(path, folder.Options{Mode: folder.ReadWrite, Extract: folder.ExtractAlways})
	if err != nil {
		t.Fatal(err)
	}
	if f.Organization() != folder.FILE {
		t.Fatalf("Organization() = %v, want FILE", f.Organization())
	}
}

func TestOpenAutoDetectsMH(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "inbox")
	if err := os.MkdirAll(dir, 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "1"), []byte("Subject: hi\r\n\r\nBody.\r\n"), 0600); err != nil {
		t.Fatal(err)
	}

	m := newTestManager(t)
	f, err := m.Open(dir, folder.Options{Mode: folder.ReadWrite, Extract: folder.ExtractAlways})
	if err != nil {
		t.Fatal(err)
	}
	if f.Organization() != folder.DIRECTORY {
		t.Fatalf("Organization() = %v, want DIRECTORY", f.Organization())
	}
}

func TestOpenAutoDetectsMaildir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "inbox")
	for _, sub := range []string{"new", "cur", "tmp"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0700); err != nil {
			t.Fatal(err)
		}
	}

	m := newTestManager(t)
	f, err := m.Open(dir, folder.Options{Mode: folder.ReadWrite, Extract: folder.ExtractAlways})
	if err != nil {
		t.Fatal(err)
	}
	if f.Organization() != folder.DIRECTORY {
		t.Fatalf("Organization() = %v, want DIRECTORY", f.Organization())
	}
}

func TestOpenRejectsAlreadyOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inbox")
	writeMboxFile(t, path)

	m := newTestManager(t)
	if _, err := m.Open(path, folder.Options{Mode: folder.ReadWrite}); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Open(path, folder.Options{Mode: folder.ReadWrite}); err == nil {
		t.Fatal("expected second Open of the same path to fail")
	}
}

func TestForgetAllowsReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inbox")
	writeMboxFile(t, path)

	m := newTestManager(t)
	f, err := m.Open(path, folder.Options{Mode: folder.ReadWrite})
	if err != nil {
		t.Fatal(err)
	}
	if err := f.Close(folder.CloseNever, false, false, false); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Open(path, folder.Options{Mode: folder.ReadWrite}); err != nil {
		t.Fatalf("expected reopen after close to succeed: %v", err)
	}
}

func TestMoveMessageMarksSourceDeleted(t *testing.T) {
	srcDir := filepath.Join(t.TempDir(), "src")
	dstDir := filepath.Join(t.TempDir(), "dst")
	writeMHDir(t, srcDir)
	writeMHDir(t, dstDir)

	m := newTestManager(t)
	src, err := m.Open(srcDir, folder.Options{Mode: folder.ReadWrite})
	if err != nil {
		t.Fatal(err)
	}
	dst, err := m.Open(dstDir, folder.Options{Mode: folder.ReadWrite})
	if err != nil {
		t.Fatal(err)
	}

	h := header.New()
	h.Add(header.NewField("Subject", "hello"))
	msg := message.New(h, nil)
	src.AddMessage(msg)

	if !m.MoveMessage(src, dst, msg) {
		t.Fatal("expected MoveMessage to succeed")
	}
	if !msg.Deleted() {
		t.Fatal("expected msg to be marked deleted in source after move")
	}
	if dst.Len() != 1 {
		t.Fatalf("dst.Len() = %d, want 1", dst.Len())
	}
}

func TestCloseAllFoldersClosesEveryRegisteredFolder(t *testing.T) {
	dirA := filepath.Join(t.TempDir(), "a")
	dirB := filepath.Join(t.TempDir(), "b")
	writeMHDir(t, dirA)
	writeMHDir(t, dirB)

	m := newTestManager(t)
	if _, err := m.Open(dirA, folder.Options{Mode: folder.ReadWrite}); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Open(dirB, folder.Options{Mode: folder.ReadWrite}); err != nil {
		t.Fatal(err)
	}

	if err := m.CloseAllFolders(folder.CloseNever, false, false, false); err != nil {
		t.Fatal(err)
	}
	m.mu.Lock()
	n := len(m.open)
	m.mu.Unlock()
	if n != 0 {
		t.Fatalf("expected registry empty after CloseAllFolders, got %d entries", n)
	}
}

func TestFreshMessageIDChangesIdentity(t *testing.T) {
	h := header.New()
	h.Add(header.NewField("Message-Id", "<old@host>"))
	msg := message.New(h, nil)
	oldID := msg.ID()

	FreshMessageID(msg)
	if msg.ID() == oldID {
		t.Fatal("expected FreshMessageID to change the message's identity")
	}
}
