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

// Package buffer provides utilities for temporary storage (buffering) of
// message bodies large enough that holding them entirely in memory is
// undesirable, as with file-backed and delayed message bodies.
package buffer

import (
	"io"
)

// Buffer represents abstract temporary storage for a blob of bytes.
//
// The storage is assumed to be immutable. If any modifications are made, a
// new storage location should be used for them; this is important to keep
// Buffer goroutine-safe.
//
// Lifetime convention: it is always the creator's responsibility to call
// Remove once a Buffer is no longer used. If a Buffer is passed to a
// function, it is not guaranteed to remain valid after that function
// returns; a function that needs to keep the content around should
// "re-buffer" it, either by copying the blob or by using an
// implementation-specific trick (FileBuffer can be re-buffered by
// hard-linking the underlying file).
type Buffer interface {
	// Open creates a new Reader reading from the underlying storage.
	Open() (io.ReadCloser, error)

	// Len reports the length of the stored blob: the number of bytes that
	// can be read from a newly created Reader before io.EOF.
	Len() int

	// Remove discards the buffered content and releases associated
	// resources.
	//
	// Multiple Buffer values may refer to the same underlying storage; in
	// that case Remove must be called only once, since it invalidates all
	// of them. Readers already created via Open remain usable, but no new
	// ones can be created afterward.
	Remove() error
}
