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

// Package lock implements folder-level
// mutual exclusion between cooperating processes, with a swappable
// strategy (dotlock, flock/POSIX advisory, NFS-safe, a multi-strategy AND,
// and a no-op). Strategies register themselves by name at package init and
// are constructed through New, so callers select one with a plain string.
package lock

import (
	"errors"
	"fmt"
	"time"
)

// ErrTimeout is returned by Lock when the lock could not be acquired within
// the configured timeout.
var ErrTimeout = errors.New("lock: timed out waiting for lock")

// ErrUnknownStrategy is returned by New when no strategy is registered
// under the requested name.
var ErrUnknownStrategy = errors.New("lock: unknown strategy")

// Locker is the interface every strategy implements: lock/unlock a
// named resource (almost always a folder path), report current lock state,
// and name the lock file a strategy would use (mostly useful for dotlock,
// which is itself a visible file).
type Locker interface {
	// Lock attempts to acquire the lock, retrying every poll interval until
	// either it succeeds or Options.Timeout elapses, in which case it
	// returns false. Timeout is a normal, expected failure mode the
	// caller surfaces as a WARNING, not an error.
	Lock() (bool, error)
	// Unlock releases the lock. It is idempotent: unlocking an already-
	// unlocked Locker is a no-op, not an error.
	Unlock() error
	// IsLocked reports whether this Locker instance currently holds the
	// lock (not whether some other process holds a conflicting lock).
	IsLocked() bool
	// Filename returns the path of the lock's sentinel file/resource, or ""
	// if the strategy has none (e.g. POSIX byte-range locks have no
	// separate sentinel; they lock the folder file itself).
	Filename() string
}

// Options configures every strategy uniformly.
type Options struct {
	// Timeout is the total time Lock will retry before giving up. Zero
	// means "try once, don't retry".
	Timeout time.Duration
	// Poll is the interval between retry attempts. Defaults to 250ms.
	Poll time.Duration
	// Expire is the age at which an existing lock is considered stale and
	// may be forcibly broken. Zero disables staleness detection.
	Expire time.Duration
}

func (o Options) poll() time.Duration {
	if o.Poll <= 0 {
		return 250 * time.Millisecond
	}
	return o.Poll
}

// Factory constructs a Locker bound to path with the given options.
type Factory func(path string, opts Options) (Locker, error)

var strategies = map[string]Factory{}

// RegisterStrategy adds a named strategy factory, for use by New. Strategies
// built into this package (dotlock, file, nfs, posix, multi, none) register
// themselves in init(); callers may register additional ones the same way a
// protocol engine might register a custom one.
func RegisterStrategy(name string, f Factory) {
	strategies[name] = f
}

// New constructs the named strategy's Locker bound to path.
func New(name, path string, opts Options) (Locker, error) {
	f, ok := strategies[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStrategy, name)
	}
	return f(path, opts)
}

// retryUntil calls attempt every opts.poll() until it returns true, or
// opts.Timeout elapses (attempt is always tried at least once even with a
// zero timeout).
func retryUntil(opts Options, attempt func() (bool, error)) (bool, error) {
	deadline := time.Now().Add(opts.Timeout)
	for {
		ok, err := attempt()
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
		if opts.Timeout <= 0 || time.Now().After(deadline) {
			return false, nil
		}
		time.Sleep(opts.poll())
	}
}
