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

	"github.com/google/uuid"
)

func init() {
	RegisterStrategy("nfs", newNFSLocker)
}

// nfsLocker is the NFS-safe strategy: O_CREAT|O_EXCL is
// documented as unreliable over NFS (pre-v3 servers may not honor it
// atomically), so this strategy instead writes a unique-named file and
// hard-links it onto the shared lock path (link(2) is specified to fail
// atomically if the target exists even on NFS), then confirms success by
// checking the unique file's link count reached 2.
type nfsLocker struct {
	path       string
	lockPath   string
	opts       Options
	uniquePath string
	held       bool
}

func newNFSLocker(path string, opts Options) (Locker, error) {
	return &nfsLocker{path: path, lockPath: path + ".lock", opts: opts}, nil
}

func (n *nfsLocker) Filename() string { return n.lockPath }
func (n *nfsLocker) IsLocked() bool   { return n.held }

func (n *nfsLocker) Lock() (bool, error) {
	unique := fmt.Sprintf("%s.%s", n.lockPath, uuid.New().String())
	f, err := os.OpenFile(unique, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return false, err
	}
	fmt.Fprintf(f, "%d\n", os.Getpid())
	f.Close()
	defer os.Remove(unique)
	n.uniquePath = unique

	ok, err := retryUntil(n.opts, n.tryLink)
	if err != nil {
		return false, err
	}
	if ok {
		n.held = true
	}
	return ok, nil
}

func (n *nfsLocker) tryLink() (bool, error) {
	err := os.Link(n.uniquePath, n.lockPath)
	if err == nil {
		return n.confirmLinkCount(), nil
	}
	if !os.IsExist(err) {
		return false, err
	}
	if n.opts.Expire > 0 && n.isStale() {
		os.Remove(n.lockPath)
		if err := os.Link(n.uniquePath, n.lockPath); err == nil {
			return n.confirmLinkCount(), nil
		}
	}
	return false, nil
}

// confirmLinkCount re-stats the unique file to verify the link actually
// landed (the classic NFS dotlock trick's own correctness check, since
// link(2)'s return value alone can be unreliable on stale NFS clients).
func (n *nfsLocker) confirmLinkCount() bool {
	info, err := os.Stat(n.uniquePath)
	if err != nil {
		return false
	}
	nlink := nlinkOf(info)
	return nlink == 0 || nlink >= 2
}

func (n *nfsLocker) isStale() bool {
	info, err := os.Stat(n.lockPath)
	if err != nil {
		return false
	}
	return time.Since(info.ModTime()) > n.opts.Expire
}

func (n *nfsLocker) Unlock() error {
	if !n.held {
		return nil
	}
	n.held = false
	err := os.Remove(n.lockPath)
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}
