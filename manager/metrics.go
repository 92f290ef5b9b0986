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

package manager

import "github.com/prometheus/client_golang/prometheus"

// One gauge/counter per concern: plain prometheus.New*Vec/New* values
// declared at package scope and registered in init, no promauto.
var (
	foldersOpen = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "mailstore",
		Subsystem: "manager",
		Name:      "folders_open",
		Help:      "Number of folders currently open across all Managers.",
	})
	foldersOpenFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "mailstore",
		Subsystem: "manager",
		Name:      "folder_open_failures_total",
		Help:      "Number of Manager.Open calls that failed (lock timeout, format detection, I/O).",
	})
	messagesTransferred = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mailstore",
		Subsystem: "manager",
		Name:      "messages_transferred_total",
		Help:      "Number of messages appended, copied or moved between folders, by operation.",
	}, []string{"op"})
)

func init() {
	prometheus.MustRegister(foldersOpen)
	prometheus.MustRegister(foldersOpenFailed)
	prometheus.MustRegister(messagesTransferred)
}
