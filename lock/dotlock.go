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
	"fmt"
	"os"
	"time"
)

func init() {
	RegisterStrategy("dotlock", newDotlock)
}

// dotlockLocker implements the classic mbox "dotlock" strategy:
// exclusive creation of a "<path>.lock" sentinel file. A lock older than
// Options.Expire is considered abandoned by a crashed process and is
// removed before retrying.
type dotlockLocker struct {
	path     string
	lockPath string
	opts     Options
	held     bool
}

func newDotlock(path string, opts Options) (Locker, error) {
	return &dotlockLocker{path: path, lockPath: path + ".lock", opts: opts}, nil
}

func (d *dotlockLocker) Filename() string { return d.lockPath }
func (d *dotlockLocker) IsLocked() bool   { return d.held }

func (d *dotlockLocker) Lock() (bool, error) {
	ok, err := retryUntil(d.opts, d.tryAcquire)
	if err != nil {
		return false, err
	}
	if ok {
		d.held = true
	}
	return ok, nil
}

func (d *dotlockLocker) tryAcquire() (bool, error) {
	f, err := os.OpenFile(d.lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err == nil {
		fmt.Fprintf(f, "%d\n", os.Getpid())
		f.Close()
		return true, nil
	}
	if !os.IsExist(err) {
		return false, err
	}

	if d.opts.Expire > 0 && d.isStale() {
		os.Remove(d.lockPath)
		// One immediate retry after clearing a stale lock; a further
		// competing process may win the race, in which case the next
		// retryUntil tick will find it fresh again.
		f, err := os.OpenFile(d.lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if err == nil {
			fmt.Fprintf(f, "%d\n", os.Getpid())
			f.Close()
			return true, nil
		}
	}
	return false, nil
}

func (d *dotlockLocker) isStale() bool {
	info, err := os.Stat(d.lockPath)
	if err != nil {
		return false
	}
	return time.Since(info.ModTime()) > d.opts.Expire
}

func (d *dotlockLocker) Unlock() error {
	if !d.held {
		return nil
	}
	d.held = false
	err := os.Remove(d.lockPath)
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}
