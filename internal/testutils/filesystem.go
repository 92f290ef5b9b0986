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

package testutils

import (
	"os"
	"path/filepath"
	"testing"
)

// TempMaildir creates an empty new/cur/tmp tree under t.TempDir and
// returns its path.
func TempMaildir(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "maildir")
	for _, sub := range []string{"new", "cur", "tmp"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0700); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

// TempMboxFile writes messages, each already in wire form (CRLF-terminated
// headers and body, no leading "From " line), as a single mbox file under
// t.TempDir and returns its path. An empty messages list produces an
// empty, still-valid mbox file.
func TempMboxFile(t *testing.T, messages ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mbox")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	for _, msg := range messages {
		if _, err := f.WriteString("From mailstore Mon Jan  1 00:00:00 2024\r\n"); err != nil {
			t.Fatal(err)
		}
		if _, err := f.WriteString(msg); err != nil {
			t.Fatal(err)
		}
		if _, err := f.WriteString("\r\n"); err != nil {
			t.Fatal(err)
		}
	}
	return path
}
