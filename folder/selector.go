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

import "github.com/go-mailstore/mailstore/message"

// Selector picks messages out of a Folder's Messages() call, given the
// candidate and its position. A nil Selector behaves as All.
type Selector func(m *message.Message, index int) bool

// All selects every message.
func All(m *message.Message, index int) bool { return true }

// Active selects messages that are not marked deleted.
func Active(m *message.Message, index int) bool { return !m.Deleted() }

// Deleted selects messages marked deleted.
func Deleted(m *message.Message, index int) bool { return m.Deleted() }

// Range selects messages whose index is within [lo, hi] inclusive.
func Range(lo, hi int) Selector {
	return func(m *message.Message, index int) bool { return index >= lo && index <= hi }
}

// HasLabel selects messages carrying the named label.
func HasLabel(name string) Selector {
	return func(m *message.Message, index int) bool {
		_, ok := m.Label(name)
		return ok
	}
}

// NotLabel selects messages lacking the named label ("!label").
func NotLabel(name string) Selector {
	return func(m *message.Message, index int) bool {
		_, ok := m.Label(name)
		return !ok
	}
}
