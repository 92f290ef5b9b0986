//go:build unix

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

	"golang.org/x/sys/unix"
)

func init() {
	RegisterStrategy("posix", newPosixLocker)
}

// posixLocker is the POSIX strategy: an fcntl(2) byte-range
// advisory lock on the folder file itself rather than on a separate
// sentinel file, via golang.org/x/sys/unix.FcntlFlock. Unlike dotlock/file,
// it has no Filename of its own; it locks bytes [0,1) of path.
type posixLocker struct {
	path string
	opts Options
	f    *os.File
}

func newPosixLocker(path string, opts Options) (Locker, error) {
	return &posixLocker{path: path, opts: opts}, nil
}

func (l *posixLocker) Filename() string { return "" }
func (l *posixLocker) IsLocked() bool   { return l.f != nil }

func (l *posixLocker) Lock() (bool, error) {
	f, err := os.OpenFile(l.path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return false, err
	}

	flockT := unix.Flock_t{
		Type:   unix.F_WRLCK,
		Whence: 0,
		Start:  0,
		Len:    1,
	}
	ok, err := retryUntil(l.opts, func() (bool, error) {
		err := unix.FcntlFlock(f.Fd(), unix.F_SETLK, &flockT)
		if err == nil {
			return true, nil
		}
		return false, nil
	})
	if err != nil {
		f.Close()
		return false, err
	}
	if !ok {
		f.Close()
		return false, nil
	}
	l.f = f
	return true, nil
}

func (l *posixLocker) Unlock() error {
	if l.f == nil {
		return nil
	}
	flockT := unix.Flock_t{Type: unix.F_UNLCK, Whence: 0, Start: 0, Len: 1}
	unix.FcntlFlock(l.f.Fd(), unix.F_SETLK, &flockT)
	err := l.f.Close()
	l.f = nil
	return err
}
