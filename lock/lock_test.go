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

package lock

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDotlockExclusive(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mbox")

	a, err := New("dotlock", path, Options{})
	if err != nil {
		t.Fatal(err)
	}
	ok, err := a.Lock()
	if err != nil || !ok {
		t.Fatalf("first lock: ok=%v err=%v", ok, err)
	}

	b, err := New("dotlock", path, Options{})
	if err != nil {
		t.Fatal(err)
	}
	ok, err = b.Lock()
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("second lock should have failed while first is held")
	}

	if err := a.Unlock(); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	ok, err = b.Lock()
	if err != nil || !ok {
		t.Fatalf("lock after unlock: ok=%v err=%v", ok, err)
	}
	if err := b.Unlock(); err != nil {
		t.Fatalf("unlock: %v", err)
	}
}

func TestDotlockUnlockIdempotent(t *testing.T) {
	dir := t.TempDir()
	l, err := New("dotlock", filepath.Join(dir, "mbox"), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if err := l.Unlock(); err != nil {
		t.Fatalf("unlock on never-locked: %v", err)
	}
}

func TestDotlockStaleExpires(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mbox")

	a, err := New("dotlock", path, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if ok, err := a.Lock(); err != nil || !ok {
		t.Fatalf("first lock: ok=%v err=%v", ok, err)
	}

	// Age the lock file backwards so it looks stale without sleeping.
	old := time.Now().Add(-10 * time.Minute)
	if err := os.Chtimes(a.Filename(), old, old); err != nil {
		t.Fatal(err)
	}

	b, err := New("dotlock", path, Options{Expire: time.Second})
	if err != nil {
		t.Fatal(err)
	}
	ok, err := b.Lock()
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected stale lock to be forcibly acquired")
	}
}

func TestNoneAlwaysSucceeds(t *testing.T) {
	l, err := New("none", "/does/not/exist", Options{})
	if err != nil {
		t.Fatal(err)
	}
	ok, err := l.Lock()
	if err != nil || !ok {
		t.Fatalf("none lock: ok=%v err=%v", ok, err)
	}
	if !l.IsLocked() {
		t.Fatal("expected IsLocked true")
	}
	if err := l.Unlock(); err != nil {
		t.Fatal(err)
	}
}

func TestMultiAllOrNothing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mbox")

	good, _ := New("dotlock", path, Options{})
	bad := &alwaysFail{}
	m := NewMulti(good, bad)

	ok, err := m.Lock()
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected multi lock to fail when one sub-locker fails")
	}
	if good.IsLocked() {
		t.Fatal("expected the successful sub-locker to have been released")
	}
}

func TestUnknownStrategy(t *testing.T) {
	if _, err := New("bogus", "/tmp/x", Options{}); err == nil {
		t.Fatal("expected ErrUnknownStrategy")
	}
}

type alwaysFail struct{}

func (alwaysFail) Lock() (bool, error) { return false, nil }
func (alwaysFail) Unlock() error       { return nil }
func (alwaysFail) IsLocked() bool      { return false }
func (alwaysFail) Filename() string    { return "" }
