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

// Package folder implements the format-neutral Folder abstraction:
// a uniform API over FILE-organized (mbox) and DIRECTORY-organized (MH,
// Maildir) message collections. The format-specific half of the work
// (parsing the bytes, writing them back, listing subfolders) is supplied
// by a Format implementation from folder/mbox, folder/mh or
// folder/maildir; this package owns everything that doesn't vary by
// format: the message-id registry, label map, modified-flag rollup,
// selectors and the current-message marker: one shared orchestration
// type, swappable backend.
package folder

import (
	"fmt"
	"time"

	"github.com/go-mailstore/mailstore/header"
	"github.com/go-mailstore/mailstore/lock"
	"github.com/go-mailstore/mailstore/mberr"
	"github.com/go-mailstore/mailstore/message"
	"github.com/go-mailstore/mailstore/report"
)

// Informer is the minimal callback a Manager implements so a Folder can
// tell it "I have closed myself" without folder importing package
// manager (which imports folder to begin with).
type Informer interface {
	Forget(name string)
}

// Options configures how a Folder is opened and how it behaves once open.
type Options struct {
	Mode AccessMode

	// LockStrategy names a strategy registered in package lock; "" means
	// "dotlock", matching the corpus-wide default for mbox-family tools.
	LockStrategy string
	LockOptions  lock.Options

	Extract ExtractPolicy
	Write   WritePolicy

	// KeepDups disables duplicate-message-id collapsing; Open turns it on
	// for ReadOnly folders, where silently dropping an apparent duplicate
	// would surprise the caller.
	KeepDups bool

	// TrustFile is Parser's trust_file: the caller asserts the file has
	// not changed since it was last observed, skipping the size/mtime
	// guard.
	TrustFile bool

	// RemoveWhenEmpty lets a DIRECTORY backend delete its own directory
	// once the last message is removed.
	RemoveWhenEmpty bool

	// Renumber asks a DIRECTORY backend to renumber message files by
	// current order on Flush rather than preserving original numbers.
	Renumber bool

	// Trusted seeds Flags.Trusted on messages loaded from this folder
	// (e.g. a folder under the user's exclusive control).
	Trusted bool

	Log report.Logger
}

// Folder is an open handle on a message collection. Exactly one Folder
// value should exist per name within a process; package manager enforces
// that invariant, not Folder itself.
type Folder struct {
	name   string
	opts   Options
	format Format
	locker lock.Locker

	messages []*message.Message
	idIndex  map[string]*message.Message

	modified bool

	manager Informer
}

// Open acquires exclusion on path via the strategy named in opts and asks
// format to load the folder's messages.
func Open(path string, format Format, opts Options) (*Folder, error) {
	if opts.LockStrategy == "" {
		opts.LockStrategy = "dotlock"
	}
	if opts.Mode == ReadOnly {
		opts.KeepDups = true
	}
	l, err := lock.New(opts.LockStrategy, path, opts.LockOptions)
	if err != nil {
		return nil, fmt.Errorf("folder: %w", err)
	}
	if opts.Mode != ReadOnly || opts.LockStrategy != "none" {
		ok, err := l.Lock()
		if err != nil {
			return nil, mberr.WithFields(fmt.Errorf("folder: lock %s: %w", path, err),
				map[string]interface{}{"folder": path, "op": "lock"})
		}
		if !ok {
			// A lock timeout is transient: the competing process will
			// release eventually, so a later retry can succeed.
			return nil, mberr.WithTemporary(fmt.Errorf("%w: %s", ErrLockFailed, path), true)
		}
	}

	f := &Folder{
		name:    path,
		opts:    opts,
		format:  format,
		locker:  l,
		idIndex: make(map[string]*message.Message),
	}
	if err := format.Load(f); err != nil {
		l.Unlock()
		return nil, mberr.WithFields(fmt.Errorf("folder: load %s: %w", path, err),
			map[string]interface{}{"folder": path, "op": "load"})
	}
	return f, nil
}

// Name returns the path or name the folder was opened with.
func (f *Folder) Name() string { return f.name }

// Organization reports the underlying Format's organization.
func (f *Folder) Organization() Organization { return f.format.Organization() }

// Options returns a copy of the folder's configured options.
func (f *Folder) Options() Options { return f.opts }

// Log returns the folder's logger, for use by Format implementations.
func (f *Folder) Log() report.Logger { return f.opts.Log }

// Modified reports whether the folder (its message list, or any message
// in it) has changed since open or the last successful Write.
func (f *Folder) Modified() bool {
	if f.modified {
		return true
	}
	for _, m := range f.messages {
		if m.Flags().Modified {
			return true
		}
	}
	return false
}

// SetManager installs the callback used by Close to report that this
// folder is no longer open.
func (f *Folder) SetManager(m Informer) { f.manager = m }

// --- Format-facing accessors -------------------------------------------

// Messages returns the folder's current message list, in folder order.
// Format implementations use this during Flush; callers generally prefer
// SelectMessages.
func (f *Folder) Messages() []*message.Message { return f.messages }

// SetMessages replaces the folder's message list wholesale, e.g. after a
// Format.Flush rewrite recomputes byte ranges. It does not touch the
// id index; callers that changed identities should reindex via
// AppendLoaded instead.
func (f *Folder) SetMessages(ms []*message.Message) { f.messages = ms }

// AppendLoaded registers messages read from storage (Format.Load/Rescan),
// applying the same duplicate-id handling as AddMessage but without
// marking the folder modified, since these messages are not new data.
func (f *Folder) AppendLoaded(ms ...*message.Message) {
	for _, m := range ms {
		wasModified := m.Flags().Modified
		if f.opts.Trusted {
			flags := m.Flags()
			flags.Trusted = true
			m.SetFlags(flags)
			m.ClearModified()
		}
		if f.register(m) {
			f.messages = append(f.messages, m)
		}
		// register may write a synthesized or reassigned Message-Id into
		// the header; that alone does not make a loaded message modified.
		if !wasModified {
			m.ClearModified()
		}
	}
}

// ClearModifiedAll clears the modified flag on the folder and every
// message in it, called after a successful Write.
func (f *Folder) ClearModifiedAll() {
	f.modified = false
	for _, m := range f.messages {
		m.ClearModified()
	}
}

// --- Message operations ------------------------------------------

// AddMessage coerces m into the folder (a no-op coercion in this module,
// since there is a single Message type; kept so Format backends that one
// day need per-format message subtypes have a seam), enforces message-id
// uniqueness per KeepDups, appends it, and marks the folder modified.
func (f *Folder) AddMessage(m *message.Message) bool {
	kept := f.register(m)
	if kept {
		f.messages = append(f.messages, m)
		f.modified = true
	}
	return kept
}

// AddMessages adds each of ms in order, per AddMessage.
func (f *Folder) AddMessages(ms ...*message.Message) {
	for _, m := range ms {
		f.AddMessage(m)
	}
}

// register applies the duplicate-handling rule: if a message with the
// same id already exists and Subject/To match, the new one is dropped
// silently; otherwise (if ids collide but the fields don't) the new
// message is assigned a fresh id and a NOTICE is logged. KeepDups disables
// all of this.
func (f *Folder) register(m *message.Message) bool {
	id := m.ID()
	if f.opts.KeepDups {
		f.idIndex[id] = m
		return true
	}
	existing, exists := f.idIndex[id]
	if !exists {
		f.idIndex[id] = m
		return true
	}
	if sameSubjectAndTo(existing, m) {
		f.Log().Notice("dropping duplicate message", "id", id)
		return false
	}
	oldID := id
	newID := header.CreateMessageID("")
	m.Header().Set(header.NewField("Message-Id", newID))
	m.ResetID()
	f.idIndex[m.ID()] = m
	f.Log().Notice("duplicate message id, assigned new id", "old", oldID, "new", newID)
	return true
}

func sameSubjectAndTo(a, b *message.Message) bool {
	as, _ := a.Header().Get("Subject", 0)
	bs, _ := b.Header().Get("Subject", 0)
	at, _ := a.Header().Get("To", 0)
	bt, _ := b.Header().Get("To", 0)
	return as.Body() == bs.Body() && at.Body() == bt.Body()
}

// Message returns the message at folder position i.
func (f *Folder) Message(i int) (*message.Message, bool) {
	if i < 0 || i >= len(f.messages) {
		return nil, false
	}
	return f.messages[i], true
}

// Len returns the number of messages currently in the folder.
func (f *Folder) Len() int { return len(f.messages) }

// MessageID looks up a message by its identity in O(1).
func (f *Folder) MessageID(id string) (*message.Message, bool) {
	m, ok := f.idIndex[id]
	return m, ok
}

// Find is MessageID's scanning sibling; since this implementation always
// reads headers eagerly (only bodies are ever delayed, per
// ExtractPolicy), the id index is always complete and Find never needs to
// touch disk.
func (f *Folder) Find(id string) (*message.Message, bool) { return f.MessageID(id) }

// ScanForMessages looks up id within a back-to-front window of moment:
// messages are assumed to be in roughly chronological order, so once a
// message's guessed timestamp falls more than window before moment, the
// scan stops.
func (f *Folder) ScanForMessages(id string, window time.Duration, moment time.Time) (*message.Message, bool) {
	for i := len(f.messages) - 1; i >= 0; i-- {
		m := f.messages[i]
		if ts, ok := m.Header().GuessTimestamp(); ok {
			if moment.Sub(time.Unix(ts, 0)) > window {
				break
			}
		}
		if m.ID() == id {
			return m, true
		}
	}
	return nil, false
}

// SelectMessages returns every message sel accepts, in folder order. A nil
// selector behaves as All.
func (f *Folder) SelectMessages(sel Selector) []*message.Message {
	var out []*message.Message
	for i, m := range f.messages {
		if sel == nil || sel(m, i) {
			out = append(out, m)
		}
	}
	return out
}

// currentLabel is the label name the "last read" marker is stored under.
const currentLabel = "current"

// Current returns the message currently marked "current", if any.
func (f *Folder) Current() (*message.Message, bool) {
	for _, m := range f.messages {
		if _, ok := m.Label(currentLabel); ok {
			return m, true
		}
	}
	return nil, false
}

// SetCurrent marks m as current, clearing the marker from any other
// message (there is at most one current message per folder).
func (f *Folder) SetCurrent(m *message.Message) {
	for _, other := range f.messages {
		if other != m {
			other.UnsetLabel(currentLabel)
		}
	}
	m.SetLabel(currentLabel, "")
}

// SubfolderResolver opens (or creates) the subfolder named name of
// parent, returning a Folder the caller owns. CopyTo's recursion calls
// this once per subfolder found by the format's Subfolders; only a
// Manager (which owns folder-name resolution and the open-folder
// registry) can implement it meaningfully, so Folder itself stays
// decoupled from Manager.
type SubfolderResolver func(parent *Folder, name string) (*Folder, error)

// CopyTo bulk-transfers the messages sel selects into dest, which must be
// writable; messages are coerced by dest (again, a no-op coercion in this
// module). If deleteCopied, copied messages are marked deleted in the
// source. If recurse, resolver is used to open each subfolder pair and
// recurse into it.
func (f *Folder) CopyTo(dest *Folder, sel Selector, deleteCopied, recurse bool, resolver SubfolderResolver) error {
	if dest.opts.Mode == ReadOnly {
		return ErrReadOnly
	}
	for i, m := range f.messages {
		if sel != nil && !sel(m, i) {
			continue
		}
		dest.AddMessage(m.Clone())
		if deleteCopied {
			m.MarkDeleted(time.Now().Unix())
			f.modified = true
		}
	}
	if !recurse {
		return nil
	}
	if resolver == nil {
		return fmt.Errorf("folder: recursive copyTo requires a SubfolderResolver")
	}
	names, err := f.format.Subfolders(f)
	if err != nil {
		return err
	}
	for _, name := range names {
		srcSub, err := resolver(f, name)
		if err != nil {
			return fmt.Errorf("folder: open subfolder %s: %w", name, err)
		}
		destSub, err := resolver(dest, name)
		if err != nil {
			return fmt.Errorf("folder: open dest subfolder %s: %w", name, err)
		}
		if err := srcSub.CopyTo(destSub, sel, deleteCopied, true, resolver); err != nil {
			return err
		}
	}
	return nil
}

// Update rescans the underlying storage for messages appended by another
// process since Open/the last Update.
func (f *Folder) Update() error {
	return f.format.Rescan(f)
}

// Write serializes the folder per its configured WritePolicy. force
// writes even if nothing appears modified; saveDeleted keeps tombstoned
// messages in the output rather than excising them; keepDeleted (only
// meaningful when saveDeleted is true) keeps their bytes verbatim rather
// than re-serializing just the flag change.
func (f *Folder) Write(force, saveDeleted, keepDeleted bool) error {
	if f.opts.Mode == ReadOnly {
		return ErrReadOnly
	}
	if !force && !f.Modified() {
		return nil
	}
	if err := f.format.Flush(f, f.opts.Write, saveDeleted, keepDeleted); err != nil {
		err = mberr.WithFields(err, map[string]interface{}{"folder": f.name, "op": "write"})
		f.Log().Error("write failed", "folder", f.name, "error", err)
		return err
	}
	f.ClearModifiedAll()
	return nil
}

// Delete asks the format to remove the folder's storage (Format.Destroy),
// which takes the folder's subfolders with it, then releases the lock.
// Subfolders are not opened or closed on the way. Write-protected
// (ReadOnly) folders refuse.
func (f *Folder) Delete() error {
	if f.opts.Mode == ReadOnly {
		return ErrReadOnly
	}
	if err := f.format.Destroy(f); err != nil {
		return err
	}
	return f.locker.Unlock()
}

// Close writes (per mode) then unlocks and releases the folder, informing
// the Manager unless the Manager itself initiated the close.
func (f *Folder) Close(mode CloseMode, force, saveDeleted, keepDeleted bool) error {
	return f.close(mode, force, saveDeleted, keepDeleted, true)
}

// CloseSilently is Close without the Manager notification, used by
// Manager.Close/CloseAllFolders so Folder doesn't re-enter the registry
// it is already being removed from.
func (f *Folder) CloseSilently(mode CloseMode, force, saveDeleted, keepDeleted bool) error {
	return f.close(mode, force, saveDeleted, keepDeleted, false)
}

func (f *Folder) close(mode CloseMode, force, saveDeleted, keepDeleted bool, notify bool) error {
	needWrite := false
	switch mode {
	case CloseAlways:
		needWrite = f.opts.Mode != ReadOnly
	case CloseNever:
		needWrite = false
	default:
		needWrite = f.opts.Mode != ReadOnly && f.Modified()
	}
	if needWrite {
		if err := f.Write(force, saveDeleted, keepDeleted); err != nil {
			return err
		}
	}
	if err := f.locker.Unlock(); err != nil {
		return err
	}
	if notify && f.manager != nil {
		f.manager.Forget(f.name)
	}
	return nil
}
