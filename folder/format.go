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

// Format is implemented once per on-disk organization (mbox, MH, Maildir)
// and supplies the format-specific half of the folder work; the
// format-neutral half (message-id registry, label map, modified rollup,
// selectors, current marker) lives in Folder itself.
//
// Every method receives the Folder being acted on so a Format can drive
// the shared bookkeeping (Folder.AppendLoaded, Folder.SetMessages, ...)
// without Folder depending on any particular Format implementation.
type Format interface {
	// Organization reports whether this format is FILE or DIRECTORY
	// organized, purely informational (Folder.Organization exposes it).
	Organization() Organization

	// Load opens the underlying storage, applies the folder's extract
	// policy per message, and populates f via f.AppendLoaded. Called once
	// by Open.
	Load(f *Folder) error

	// Flush serializes f's current message list back to storage according
	// to policy, saveDeleted (write tombstoned messages rather than
	// dropping them) and keepDeleted (with saveDeleted, copy a deleted
	// message's original bytes rather than re-serializing it; only
	// folder/mbox uses it). Called by Folder.Write.
	Flush(f *Folder, policy WritePolicy, saveDeleted, keepDeleted bool) error

	// Rescan detects messages appended to the underlying storage by
	// another process since Load/the last Rescan, appending them via
	// f.AppendLoaded. Called by Folder.Update.
	Rescan(f *Folder) error

	// Destroy removes the underlying storage entirely (file, or directory
	// tree), including the folder's subfolders. Called by Folder.Delete.
	Destroy(f *Folder) error

	// Subfolders lists the names of this folder's direct subfolders.
	Subfolders(f *Folder) ([]string, error)
}
