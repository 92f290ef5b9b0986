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

// Package manager implements the registry of open folders: folder-type
// auto-detection, message ownership transfer (copy/move/append), and a
// process-termination hook that closes every folder still open to release
// its lock. Folder formats register themselves by name with an
// auto-detect probe; Open resolves a folder name, picks the format, and
// tracks the open handle so each folder has at most one.
package manager

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-mailstore/mailstore/env"
	"github.com/go-mailstore/mailstore/folder"
	"github.com/go-mailstore/mailstore/header"
	"github.com/go-mailstore/mailstore/mberr"
	"github.com/go-mailstore/mailstore/message"
	"github.com/go-mailstore/mailstore/report"
)

// ErrUnknownFormat is returned by Open when no registered format's FoundIn
// probe recognizes the target path and no format was named explicitly.
var ErrUnknownFormat = errors.New("manager: could not detect folder format")

// ErrAlreadyOpen is returned by Open when the resolved path already has an
// open Folder in this Manager's registry; a folder has at most one open
// handle per process.
var ErrAlreadyOpen = errors.New("manager: folder already open")

// FormatFactory builds a fresh folder.Format value for one registered
// format (mbox, mh, maildir, ...).
type FormatFactory func() folder.Format

// registeredFormat pairs a format's auto-detect probe with its factory.
type registeredFormat struct {
	name    string
	foundIn func(path string) bool
	newFmt  FormatFactory
}

// Manager is a registry of currently-open folders, keyed by resolved
// path. The zero value is not usable; construct with New.
type Manager struct {
	mu        sync.Mutex
	open      map[string]*folder.Folder
	formats   []registeredFormat
	folderDir string
	log       report.Logger
}

// Options configures a Manager.
type Options struct {
	// FolderDir is the base directory "=relative" folder names resolve
	// against; defaults to env.DefaultFolderDir(env.KindMbox) if
	// empty.
	FolderDir string
	Log       report.Logger
}

// New constructs an empty Manager. Callers register at least one format
// (RegisterFormat) before calling Open.
func New(opts Options) *Manager {
	dir := opts.FolderDir
	if dir == "" {
		dir = env.DefaultFolderDir(env.KindMbox)
	}
	m := &Manager{
		open:      make(map[string]*folder.Folder),
		folderDir: dir,
		log:       opts.Log,
	}
	registerShutdown(m)
	return m
}

// RegisterFormat adds a folder format under name, with probe as its
// auto-detect function and newFmt as its Format constructor. Open tries
// formats in registration order, first match wins.
func (m *Manager) RegisterFormat(name string, probe func(path string) bool, newFmt FormatFactory) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.formats = append(m.formats, registeredFormat{name: name, foundIn: probe, newFmt: newFmt})
}

// resolveName applies the folder-name syntax: a URL form
// (scheme://[user[:pass]@]host[:port]/path or scheme:path) is split into
// a (formatOverride, path) pair; otherwise env.Resolve applies the
// leading-'=' / folderdir-relative rule.
func (m *Manager) resolveName(name string) (path string, formatOverride string) {
	if u, err := url.Parse(name); err == nil && u.Scheme != "" {
		p := u.Opaque
		if p == "" {
			p = u.Path
		}
		if u.Host != "" {
			p = "/" + strings.TrimPrefix(u.Host+p, "/")
		}
		return env.Resolve(p, m.folderDir), u.Scheme
	}
	return env.Resolve(name, m.folderDir), ""
}

// Open resolves name to a path, auto-detects (or uses the URL-form
// override for) its on-disk format, and opens it with folder.Open,
// tracking the result in this Manager's registry. If name is "",
// env.DefaultFolder() is tried first.
func (m *Manager) Open(name string, opts folder.Options) (*folder.Folder, error) {
	if name == "" {
		name = env.DefaultFolder()
	}
	path, formatOverride := m.resolveName(name)

	m.mu.Lock()
	if _, exists := m.open[path]; exists {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrAlreadyOpen, path)
	}
	fmtCtor, err := m.pickFormat(path, formatOverride)
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}
	m.mu.Unlock()

	if opts.Log.Out == nil {
		opts.Log = m.log
	}
	f, err := folder.Open(path, fmtCtor(), opts)
	if err != nil {
		foldersOpenFailed.Inc()
		fields := []interface{}{"folder", path, "error", err, "temporary", mberr.Temporary(err)}
		for k, v := range mberr.Fields(err) {
			fields = append(fields, k, v)
		}
		m.log.Warning("folder open failed", fields...)
		return nil, err
	}
	f.SetManager(m)

	m.mu.Lock()
	m.open[path] = f
	m.mu.Unlock()
	foldersOpen.Inc()
	return f, nil
}

func (m *Manager) pickFormat(path, formatOverride string) (FormatFactory, error) {
	for _, rf := range m.formats {
		if formatOverride != "" && rf.name != formatOverride {
			continue
		}
		if formatOverride != "" || rf.foundIn(path) {
			return rf.newFmt, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
}

// Forget implements folder.Informer: Folder.Close calls this to report
// that it has already unlocked and released itself, so Manager drops its
// registry entry without re-invoking Folder.Close (breaking the mutual
// recursion between the two).
func (m *Manager) Forget(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.open[name]; ok {
		delete(m.open, name)
		foldersOpen.Dec()
	}
}

// Close closes f via CloseSilently (so f doesn't redundantly call back
// into Forget while Manager already holds the lock) and removes it from
// the registry.
func (m *Manager) Close(f *folder.Folder, mode folder.CloseMode, force, saveDeleted, keepDeleted bool) error {
	err := f.CloseSilently(mode, force, saveDeleted, keepDeleted)
	m.Forget(f.Name())
	return err
}

// CloseAllFolders closes every folder currently open in this Manager,
// collecting (not short-circuiting on) individual close errors.
func (m *Manager) CloseAllFolders(mode folder.CloseMode, force, saveDeleted, keepDeleted bool) error {
	m.mu.Lock()
	folders := make([]*folder.Folder, 0, len(m.open))
	for _, f := range m.open {
		folders = append(folders, f)
	}
	m.mu.Unlock()

	var errs []string
	for _, f := range folders {
		if err := m.Close(f, mode, force, saveDeleted, keepDeleted); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("manager: close all: %s", strings.Join(errs, "; "))
	}
	return nil
}

// AppendMessage adds m to dest, coercing through dest's message type
// (a no-op coercion in this module's single-Message-type design, kept as
// a named operation so per-format message subtypes have a seam).
func (m *Manager) AppendMessage(dest *folder.Folder, msg *message.Message) bool {
	kept := dest.AddMessage(msg)
	if kept {
		messagesTransferred.WithLabelValues("append").Inc()
	}
	return kept
}

// CopyMessage appends a clone of msg to dest without touching src. The
// clone, not msg itself, joins dest: a Message's Header and Body belong
// to exactly one folder at a time, and dest must not inherit src's
// deletion or modification state.
func (m *Manager) CopyMessage(src, dest *folder.Folder, msg *message.Message) bool {
	kept := dest.AddMessage(msg.Clone())
	if kept {
		messagesTransferred.WithLabelValues("copy").Inc()
	}
	return kept
}

// MoveMessage is CopyMessage followed by marking msg deleted in src:
// a move is a copy plus a tombstone.
func (m *Manager) MoveMessage(src, dest *folder.Folder, msg *message.Message) bool {
	kept := m.CopyMessage(src, dest, msg)
	if kept {
		msg.MarkDeleted(time.Now().Unix())
		messagesTransferred.WithLabelValues("move").Inc()
	}
	return kept
}

// FreshMessageID assigns msg a newly generated Message-Id, for callers
// that want to pre-empt a duplicate before AppendMessage/CopyMessage
// (folder.Folder.AddMessage already regenerates one automatically on
// collision; this lets a Manager-level caller composing a multi-folder
// transfer guarantee uniqueness up front instead).
func FreshMessageID(msg *message.Message) {
	id := header.CreateMessageID("")
	msg.Header().Set(header.NewField("Message-Id", id))
	msg.ResetID()
}
