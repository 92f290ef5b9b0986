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

package mberr

import (
	"errors"
	"testing"
)

func TestFieldsCollectsAcrossWrapChain(t *testing.T) {
	base := errors.New("stale lock")
	wrapped := WithFields(base, map[string]interface{}{"folder": "INBOX"})
	wrapped = WithFields(wrapped, map[string]interface{}{"path": "/tmp/INBOX.lock"})

	fields := Fields(wrapped)
	if fields["folder"] != "INBOX" || fields["path"] != "/tmp/INBOX.lock" {
		t.Fatalf("unexpected fields: %+v", fields)
	}
}

func TestFieldsOuterWins(t *testing.T) {
	base := WithFields(errors.New("x"), map[string]interface{}{"k": "inner"})
	outer := WithFields(base, map[string]interface{}{"k": "outer"})

	if got := Fields(outer)["k"]; got != "outer" {
		t.Fatalf("got %v, want outer", got)
	}
}

func TestTemporary(t *testing.T) {
	base := errors.New("boom")
	if Temporary(base) {
		t.Fatal("plain error should not be temporary")
	}
	if !Temporary(WithTemporary(base, true)) {
		t.Fatal("expected temporary")
	}
	wrapped := WithFields(WithTemporary(base, true), map[string]interface{}{"k": "v"})
	if !Temporary(wrapped) {
		t.Fatal("temporary flag should survive further wrapping")
	}
}
