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

func init() {
	RegisterStrategy("none", func(path string, opts Options) (Locker, error) {
		return &noneLocker{}, nil
	})
}

// noneLocker is the "none" strategy: always succeeds, acquires
// nothing. Used by read-only callers that don't need inter-process
// exclusion.
type noneLocker struct{ held bool }

func (n *noneLocker) Lock() (bool, error) { n.held = true; return true, nil }
func (n *noneLocker) Unlock() error       { n.held = false; return nil }
func (n *noneLocker) IsLocked() bool      { return n.held }
func (n *noneLocker) Filename() string    { return "" }
