//go:build !unix

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

// On non-unix platforms there is no fcntl(2) byte-range primitive to back
// the POSIX strategy; it falls back to the same gofrs/flock whole-file lock
// the "file" strategy uses, registered under the "posix" name so callers
// that ask for it by name still get a working (if coarser) lock rather
// than an ErrUnknownStrategy.
func init() {
	RegisterStrategy("posix", newFileLocker)
}
