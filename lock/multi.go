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
	// Registered under "multi" with dotlock as the sole sub-strategy;
	// callers that want a different composition use NewMulti directly,
	// since Factory has no way to express "dotlock+nfs" as a single
	// string.
	RegisterStrategy("multi", func(path string, opts Options) (Locker, error) {
		dot, err := newDotlock(path, opts)
		if err != nil {
			return nil, err
		}
		return NewMulti(dot), nil
	})
}

// multiLocker is the AND of several strategies: Lock succeeds only
// if every sub-locker succeeds; if one fails partway through, whatever was
// already acquired is released before returning.
type multiLocker struct {
	subs []Locker
	held []Locker
}

// NewMulti returns a Locker requiring every one of subs to succeed.
func NewMulti(subs ...Locker) Locker {
	return &multiLocker{subs: subs}
}

func (m *multiLocker) Lock() (bool, error) {
	m.held = m.held[:0]
	for _, s := range m.subs {
		ok, err := s.Lock()
		if err != nil || !ok {
			for _, h := range m.held {
				h.Unlock()
			}
			m.held = nil
			return false, err
		}
		m.held = append(m.held, s)
	}
	return true, nil
}

func (m *multiLocker) Unlock() error {
	var firstErr error
	for _, h := range m.held {
		if err := h.Unlock(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	m.held = nil
	return firstErr
}

func (m *multiLocker) IsLocked() bool {
	return len(m.held) == len(m.subs) && len(m.subs) > 0
}

func (m *multiLocker) Filename() string {
	for _, s := range m.subs {
		if f := s.Filename(); f != "" {
			return f
		}
	}
	return ""
}
