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

package folder

import "errors"

var (
	// ErrReadOnly is returned by write/delete operations on a Folder
	// opened in ReadOnly mode.
	ErrReadOnly = errors.New("folder: read-only")
	// ErrLockFailed is returned by Open when the Locker could not acquire
	// exclusion within its configured timeout.
	ErrLockFailed = errors.New("folder: lock not acquired")
	// ErrNotFound is returned by Message/MessageID lookups that miss.
	ErrNotFound = errors.New("folder: message not found")
)
