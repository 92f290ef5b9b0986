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
	"github.com/gofrs/flock"
)

func init() {
	RegisterStrategy("file", newFileLocker)
}

// fileLocker is the "file" strategy: an exclusive advisory lock on an
// opened handle, backed by gofrs/flock's cross-platform flock(2)/
// LockFileEx wrapper. The unix-syscall path (fcntl via
// golang.org/x/sys/unix) is reserved for the byte-range POSIX strategy in
// posix_unix.go, so this strategy stays portable across GOOS without a
// build tag.
type fileLocker struct {
	fl   *flock.Flock
	opts Options
}

func newFileLocker(path string, opts Options) (Locker, error) {
	return &fileLocker{fl: flock.New(path + ".flock"), opts: opts}, nil
}

func (l *fileLocker) Filename() string { return l.fl.Path() }
func (l *fileLocker) IsLocked() bool   { return l.fl.Locked() }

func (l *fileLocker) Lock() (bool, error) {
	return retryUntil(l.opts, l.fl.TryLock)
}

func (l *fileLocker) Unlock() error {
	if !l.fl.Locked() {
		return nil
	}
	return l.fl.Unlock()
}
