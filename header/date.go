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

package header

import (
	"strings"
	"time"
)

// dateLayouts are the RFC 2822 §3.3 date-time layouts, in the order tried,
// most-common first. net/mail takes the same approach internally.
var dateLayouts = []string{
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2 Jan 2006 15:04:05 -0700",
	"2 Jan 2006 15:04:05 MST",
	"Mon, 2 Jan 2006 15:04 -0700",
	"2 Jan 2006 15:04 -0700",
}

// DateToTimestamp parses an RFC 2822 Date (or Resent-Date/Received-comment
// date) header body into Unix epoch seconds.
func DateToTimestamp(s string) (int64, error) {
	s = strings.TrimSpace(s)
	var lastErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.Unix(), nil
		}
		lastErr = err
	}
	return 0, lastErr
}

// ToDate formats ts (Unix epoch seconds) as an RFC 2822 Date header body.
// If ts is 0, the current time is used.
func ToDate(ts int64) string {
	return tsTime(ts).Format("Mon, 2 Jan 2006 15:04:05 -0700")
}

// ToEnvelopeDate formats ts in the asctime form mbox "From " envelope
// lines use, e.g. "Mon Jan  2 15:04:05 2006".
func ToEnvelopeDate(ts int64) string {
	return tsTime(ts).Format(time.ANSIC)
}

func tsTime(ts int64) time.Time {
	if ts == 0 {
		return time.Now()
	}
	return time.Unix(ts, 0)
}
