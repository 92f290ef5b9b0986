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
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// FileBuffer implements Buffer using a file on disk. Large message bodies
// (file-backed bodies, a Folder's own on-disk message copies) are
// typically backed by this rather than MemoryBuffer.
type FileBuffer struct {
	Path string

	// LenHint, if non-zero, is returned by Len without calling os.Stat.
	LenHint int
}

func (fb FileBuffer) Open() (io.ReadCloser, error) {
	return os.Open(fb.Path)
}

func (fb FileBuffer) Len() int {
	if fb.LenHint != 0 {
		return fb.LenHint
	}

	info, err := os.Stat(fb.Path)
	if err != nil {
		// Any access to the file will probably fail too, so there is no
		// sensible value to return.
		return 0
	}

	return int(info.Size())
}

func (fb FileBuffer) Remove() error {
	return os.Remove(fb.Path)
}

// BufferInFile creates a FileBuffer by copying r into a new file in dir,
// named with a random UUID rather than a counter, so concurrent callers
// buffering into the same directory never collide.
func BufferInFile(r io.Reader, dir string) (Buffer, error) {
	path := filepath.Join(dir, uuid.New().String())
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("buffer: failed to create file: %w", err)
	}
	n, err := io.Copy(f, r)
	if err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("buffer: failed to write file: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("buffer: failed to close file: %w", err)
	}

	return FileBuffer{Path: path, LenHint: int(n)}, nil
}
