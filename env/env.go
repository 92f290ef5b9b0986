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

// Package env resolves the environment-derived defaults: the default
// folder name (from $MAIL) and the default folder directory for a given
// folder kind ($HOME/Mail for mbox-family folders, $HOME/.mh for MH).
package env

import (
	"os"
	"path/filepath"
)

// Kind distinguishes the folder-directory convention to apply.
type Kind int

const (
	// KindMbox is the convention used by mbox and Maildir folders.
	KindMbox Kind = iota
	// KindMH is the convention used by MH folders.
	KindMH
)

// DefaultFolder returns the value of $MAIL, or "" if unset. Manager.Open
// uses this as the folder name when the caller passes an empty name.
func DefaultFolder() string {
	return os.Getenv("MAIL")
}

// DefaultFolderDir returns the default folderdir for the given Kind:
// $HOME/Mail for KindMbox, $HOME/.mh for KindMH. It returns "" if $HOME
// is not set.
func DefaultFolderDir(kind Kind) string {
	home := os.Getenv("HOME")
	if home == "" {
		return ""
	}
	switch kind {
	case KindMH:
		return filepath.Join(home, ".mh")
	default:
		return filepath.Join(home, "Mail")
	}
}

// Resolve expands a folder name against folderdir: a leading '=' means
// relative to folderdir. Names that are already absolute, or relative
// without a leading '=', are returned unchanged (relative names are
// resolved by the caller against its own working directory).
func Resolve(name, folderdir string) string {
	if len(name) > 0 && name[0] == '=' {
		rest := name[1:]
		if folderdir == "" {
			return rest
		}
		return filepath.Join(folderdir, rest)
	}
	return name
}
