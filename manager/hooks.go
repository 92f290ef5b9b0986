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

import (
	"sync"

	"github.com/go-mailstore/mailstore/folder"
)

// Every live Manager registers itself in a process-wide hook list so a
// single Shutdown call (from the caller's signal handler, typically)
// closes every Manager's open folders and releases their locks. The
// open-folder registry itself is per-Manager; the hook list is what makes
// "at process termination, close all open folders" work without every
// caller having to remember to do it.
var (
	shutdownMu    sync.Mutex
	shutdownFuncs []func()
)

func registerShutdown(m *Manager) {
	shutdownMu.Lock()
	defer shutdownMu.Unlock()
	shutdownFuncs = append(shutdownFuncs, func() {
		_ = m.CloseAllFolders(folder.CloseIfModified, false, true, false)
	})
}

// Shutdown runs every registered Manager's cleanup in reverse
// registration order (last registered, first run). Call this once, from
// the host process's shutdown path.
func Shutdown() {
	shutdownMu.Lock()
	funcs := append([]func(){}, shutdownFuncs...)
	shutdownMu.Unlock()

	for i := len(funcs) - 1; i >= 0; i-- {
		funcs[i]()
	}
}
