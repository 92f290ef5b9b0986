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

// Package testutils holds the small helpers shared across this module's
// own package tests: a report.Logger that writes through t.Log, and a
// pair of filesystem fixtures for the folder formats' tests.
package testutils

import (
	"flag"
	"os"
	"strings"
	"testing"

	"github.com/go-mailstore/mailstore/report"
)

var directLog = flag.Bool("test.directlog", false, "(mailstore) log to stderr instead of the test log")

// testOutput adapts *testing.T into a report.Output.
type testOutput struct{ t *testing.T }

func (o testOutput) Write(rec report.Record, print, retain bool) {
	o.t.Helper()
	o.t.Log(strings.TrimSuffix(rec.String(), "\n"))
}

// Logger returns a report.Logger named name that writes every record to
// t.Log, unless -test.directlog sends it to stderr instead (useful when a
// failing subprocess or goroutine logs after the test has already
// finished, which t.Log rejects).
func Logger(t *testing.T, name string) report.Logger {
	if *directLog {
		return report.Logger{
			Out:   report.NewWriterOutput(os.Stderr, 0),
			Name:  name,
			Level: report.DEBUG,
			Log:   report.DEBUG,
		}
	}
	return report.Logger{
		Out:   testOutput{t: t},
		Name:  name,
		Level: report.DEBUG,
		Log:   report.DEBUG,
	}
}
