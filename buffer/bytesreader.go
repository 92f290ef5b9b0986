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

package buffer

import (
	"bytes"
)

// BytesReader wraps bytes.Reader while retaining the original []byte, for
// callers that expect a plain io.Reader but apply optimizations when it
// also implements Bytes().
type BytesReader struct {
	*bytes.Reader
	value []byte
}

// Bytes returns the unread portion of the slice BytesReader was built from.
func (br BytesReader) Bytes() []byte {
	return br.value[int(br.Size())-br.Len():]
}

// Copy returns a BytesReader reading from the same slice as br, at the same
// position.
func (br BytesReader) Copy() BytesReader {
	return NewBytesReader(br.Bytes())
}

// Close is a no-op so BytesReader satisfies io.ReadCloser and can be
// returned directly from MemoryBuffer.Open.
func (br BytesReader) Close() error {
	return nil
}

func NewBytesReader(b []byte) BytesReader {
	// BytesReader, not *BytesReader: it already wraps two pointers and a
	// further indirection buys nothing.
	return BytesReader{
		Reader: bytes.NewReader(b),
		value:  b,
	}
}
