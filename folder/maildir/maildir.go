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

// Package maildir implements folder.Format for the DIRECTORY organization
// in its Maildir shape: three subdirectories "new", "cur" and "tmp";
// filenames encode delivery time and flags after a colon; new messages are
// written to "tmp" under a unique name, then renamed into "cur"; "new →
// cur" happens on accept (here, on Load/Rescan, matching a single-user
// local reader rather than a POP/IMAP server that defers the move until a
// client asks for it).
//
// Flag letters live in the "key:2,FLAGCHARS" info suffix; delivery
// naming generalizes folder/mh's write-invisible-then-rename idiom from a
// numeric MH filename to Maildir's "<time>.<unique>.<host>" scheme.
package maildir

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/go-mailstore/mailstore/body"
	"github.com/go-mailstore/mailstore/folder"
	"github.com/go-mailstore/mailstore/header"
	"github.com/go-mailstore/mailstore/message"
	"github.com/go-mailstore/mailstore/parser"
)

const (
	dirNew = "new"
	dirCur = "cur"
	dirTmp = "tmp"
)

// fileLabel is the internal label a loaded message carries its maildir
// unique key under (the part of the filename before the colon), so
// Flush/Rescan can find a message's file again without a second index.
const fileLabel = "maildir:key"

// flagsLabel records the raw flag-character string ("DFRST" subset) last
// read from or written to the filename's info field, so Flush can tell
// whether the encoded flags actually changed before touching the file.
const flagsLabel = "maildir:flags"

type Format struct {
	// Hostname is embedded in generated unique names; defaults to
	// os.Hostname() sanitized of ':' and '/' if unset.
	Hostname string
}

// New returns a Maildir folder.Format.
func New() folder.Format { return Format{} }

func (f Format) hostname() string {
	if f.Hostname != "" {
		return f.Hostname
	}
	h, err := os.Hostname()
	if err != nil || h == "" {
		return "localhost"
	}
	return sanitizeHost(h)
}

func sanitizeHost(h string) string {
	r := strings.NewReplacer(":", "", "/", "", "\\", "")
	return r.Replace(h)
}

func (Format) Organization() folder.Organization { return folder.DIRECTORY }

// FoundIn is the auto-detect probe a Manager uses: a maildir directory
// has "cur" and "tmp" subdirectories.
func FoundIn(path string) bool {
	for _, sub := range []string{dirCur, dirTmp} {
		info, err := os.Stat(filepath.Join(path, sub))
		if err != nil || !info.IsDir() {
			return false
		}
	}
	return true
}

func (Format) Load(f *folder.Folder) error {
	dir := f.Name()
	for _, sub := range []string{dirNew, dirCur, dirTmp} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0700); err != nil {
			return fmt.Errorf("maildir: %w", err)
		}
	}
	if err := acceptNew(dir); err != nil {
		return err
	}
	keys, err := curKeys(dir)
	if err != nil {
		return err
	}
	msgs, err := readMessages(dir, keys, f)
	if err != nil {
		return err
	}
	f.AppendLoaded(msgs...)
	return nil
}

func (Format) Rescan(f *folder.Folder) error {
	dir := f.Name()
	if err := acceptNew(dir); err != nil {
		return err
	}
	keys, err := curKeys(dir)
	if err != nil {
		return err
	}
	known := make(map[string]bool)
	for _, m := range f.Messages() {
		if k, ok := m.Label(fileLabel); ok {
			known[k] = true
		}
	}
	var fresh []string
	for _, k := range keys {
		if !known[k] {
			fresh = append(fresh, k)
		}
	}
	added, err := readMessages(dir, fresh, f)
	if err != nil {
		return err
	}
	f.AppendLoaded(added...)
	return nil
}

// acceptNew moves every entry currently in "new" into "cur", stamping it
// with an empty info field. Everything is accepted eagerly on
// open/rescan, since there is no separate IMAP/POP session to defer the
// transition for.
func acceptNew(dir string) error {
	newDir := filepath.Join(dir, dirNew)
	entries, err := os.ReadDir(newDir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("maildir: read new: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		key, _ := splitInfo(e.Name())
		dst := filepath.Join(dir, dirCur, key+":2,")
		if err := os.Rename(filepath.Join(newDir, e.Name()), dst); err != nil {
			return fmt.Errorf("maildir: accept %s: %w", e.Name(), err)
		}
	}
	return nil
}

// curKeys lists the unique keys (filename minus the ":2,FLAGS" info
// suffix) of every message currently in "cur", in delivery-time order
// (maildir unique names sort chronologically by construction).
func curKeys(dir string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(dir, dirCur))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("maildir: read cur: %w", err)
	}
	var keys []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		key, _ := splitInfo(e.Name())
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

// splitInfo splits a maildir filename into its unique key and info
// field ("key:2,FLAGS" -> "key", "2,FLAGS"); a filename with no colon has
// an empty info field.
func splitInfo(name string) (key, info string) {
	if i := strings.IndexByte(name, ':'); i >= 0 {
		return name[:i], name[i+1:]
	}
	return name, ""
}

func keyPath(dir, key string) (string, bool) {
	entries, err := os.ReadDir(filepath.Join(dir, dirCur))
	if err != nil {
		return "", false
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		k, _ := splitInfo(e.Name())
		if k == key {
			return filepath.Join(dir, dirCur, e.Name()), true
		}
	}
	return "", false
}

// flagsFromInfo maps a maildir "2,FLAGCHARS" info field (standard letters
// D, F, P, R, S, T, sorted ASCII order per the format) onto this module's
// message.Flags. D and F have no Flags counterpart and are ignored.
func flagsFromInfo(info string) message.Flags {
	var fl message.Flags
	_, chars, ok := strings.Cut(info, ",")
	if !ok {
		chars = info
	}
	for _, c := range chars {
		switch c {
		case 'R':
			fl.Replied = true
		case 'T':
			fl.Deleted = time.Now().Unix()
		case 'P':
			fl.Passed = true
		case 'S':
			// "seen" is tracked as a label elsewhere (current/seen
			// convention shared with folder/mh), not a Flags field.
		}
	}
	return fl
}

// infoFromFlags is flagsFromInfo's inverse, emitting flag characters in
// the canonical sorted order maildir implementations expect for stable
// comparisons: P, R, S, T. D and F are never emitted.
func infoFromFlags(fl message.Flags, seen bool) string {
	var b strings.Builder
	if fl.Passed {
		b.WriteByte('P')
	}
	if fl.Replied {
		b.WriteByte('R')
	}
	if seen {
		b.WriteByte('S')
	}
	if fl.Deleted != 0 {
		b.WriteByte('T')
	}
	return "2," + b.String()
}

// readMessages opens each key's current cur/ file as its own parser
// session and builds the Message, stamping it with its key and raw flag
// string.
func readMessages(dir string, keys []string, f *folder.Folder) ([]*message.Message, error) {
	var out []*message.Message
	for _, key := range keys {
		path, ok := keyPath(dir, key)
		if !ok {
			continue
		}
		_, info := splitInfo(filepath.Base(path))

		p := parser.Open(path, f.Log())
		if err := p.Start(false, f.Options().TrustFile); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return out, fmt.Errorf("maildir: %w", err)
		}

		_, rawFields, err := p.ReadHeader()
		if err != nil {
			p.Stop()
			return out, fmt.Errorf("maildir: read header %s: %w", path, err)
		}
		h := header.New()
		for _, rf := range rawFields {
			h.Add(header.NewField(rf.Name, rf.Body))
		}

		mimeType := "text/plain"
		if ct, ok := h.Get("Content-Type", 0); ok {
			mimeType = ct.BodyWithoutComment()
		}
		encoding := "8bit"
		if cte, ok := h.Get("Content-Transfer-Encoding", 0); ok {
			encoding = strings.TrimSpace(cte.Body())
		}

		var b *body.Body
		if f.Options().Extract.ShouldDelay(h) {
			_, rbegin, rend, _, err := p.BodyDelayed(0)
			if err != nil {
				p.Stop()
				return out, fmt.Errorf("maildir: read body %s: %w", path, err)
			}
			b = body.New(&body.DelayedContent{Begin: rbegin, End: rend, Loader: p}, mimeType, encoding)
		} else {
			_, lines, err := p.BodyAsList(0, 0)
			if err != nil {
				p.Stop()
				return out, fmt.Errorf("maildir: read body %s: %w", path, err)
			}
			b = body.New(body.LinesContent(lines), mimeType, encoding)
		}
		bodyEnd, _ := p.FilePosition()
		b = b.EOLConvert(body.EOLFromString(p.DetectedEOL()))
		b.RangeBegin = 0
		b.RangeEnd = bodyEnd
		p.Stop()

		m := message.New(h, b)
		m.SetFlags(flagsFromInfo(info))
		_, chars, _ := strings.Cut(info, ",")
		if strings.ContainsRune(chars, 'S') {
			m.SetLabel("seen", "")
		}
		m.SetLabel(fileLabel, key)
		m.SetLabel(flagsLabel, info)
		m.ClearModified()
		out = append(out, m)
	}
	return out, nil
}

// uniqueName synthesizes a Maildir unique filename component: a
// "<seconds>.<uuid>.<host>" token, which is chronologically sortable and
// collision-resistant without the classic inode/pid/counter scheme (the
// uuid takes over the job the pid+counter used to do, per this module's
// "replace crypto/rand-plus-hex with google/uuid" convention shared with
// buffer.BufferInFile and folder/mbox's temp names).
func (fmtr Format) uniqueName() string {
	return fmt.Sprintf("%d.%s.%s", time.Now().Unix(), uuid.New().String(), fmtr.hostname())
}

func (fmtr Format) Flush(f *folder.Folder, policy folder.WritePolicy, saveDeleted, keepDeleted bool) error {
	dir := f.Name()
	for _, sub := range []string{dirNew, dirCur, dirTmp} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0700); err != nil {
			return fmt.Errorf("maildir: %w", err)
		}
	}

	kept := make([]*message.Message, 0, len(f.Messages()))
	for _, m := range f.Messages() {
		if m.Deleted() && !saveDeleted {
			if key, ok := m.Label(fileLabel); ok {
				if p, ok := keyPath(dir, key); ok {
					os.Remove(p)
				}
			}
			continue
		}
		kept = append(kept, m)
	}

	for _, m := range kept {
		key, hadOld := m.Label(fileLabel)
		_, seen := m.Label("seen")
		wantInfo := infoFromFlags(m.Flags(), seen)
		oldInfo, _ := m.Label(flagsLabel)

		switch {
		case hadOld && !m.Flags().Modified && wantInfo == oldInfo:
			// unchanged: leave the file exactly where it is.
		case hadOld && wantInfo != oldInfo && !m.Header().Modified() && (m.Body() == nil || !m.Body().Modified()):
			oldPath, ok := keyPath(dir, key)
			if !ok {
				if err := deliverNew(fmtr, dir, m, &key); err != nil {
					return err
				}
				break
			}
			newPath := filepath.Join(dir, dirCur, key+":"+wantInfo)
			if err := os.Rename(oldPath, newPath); err != nil {
				return fmt.Errorf("maildir: reflag: %w", err)
			}
		case hadOld:
			// modified content, same key: rewrite in place under a temp
			// name then rename over the existing file.
			oldPath, ok := keyPath(dir, key)
			if !ok {
				if err := deliverNew(fmtr, dir, m, &key); err != nil {
					return err
				}
				break
			}
			if err := rewriteInPlace(dir, oldPath, key, wantInfo, m); err != nil {
				return err
			}
		default:
			if err := deliverNew(fmtr, dir, m, &key); err != nil {
				return err
			}
		}
		m.SetLabel(fileLabel, key)
		m.SetLabel(flagsLabel, wantInfo)
	}

	f.SetMessages(kept)
	return nil
}

// deliverNew writes m under a fresh unique name in tmp/, then renames it
// into cur/ with its current flags encoded. *key receives the assigned
// unique name.
func deliverNew(fmtr Format, dir string, m *message.Message, key *string) error {
	name := fmtr.uniqueName()
	tmpPath := filepath.Join(dir, dirTmp, name)
	if err := writeMessageFile(tmpPath, m); err != nil {
		return err
	}
	_, seen := m.Label("seen")
	info := infoFromFlags(m.Flags(), seen)
	finalPath := filepath.Join(dir, dirCur, name+":"+info)
	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("maildir: deliver: rename into place: %w", err)
	}
	*key = name
	return nil
}

// rewriteInPlace re-serializes m under a sibling tmp/ name, then renames
// over oldPath, keeping the key but refreshing content and flags.
func rewriteInPlace(dir, oldPath, key, wantInfo string, m *message.Message) error {
	tmpPath := filepath.Join(dir, dirTmp, key+"."+uuid.New().String())
	if err := writeMessageFile(tmpPath, m); err != nil {
		return err
	}
	finalPath := filepath.Join(dir, dirCur, key+":"+wantInfo)
	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("maildir: rewrite: rename into place: %w", err)
	}
	if finalPath != oldPath {
		os.Remove(oldPath)
	}
	return nil
}

func writeMessageFile(path string, m *message.Message) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("maildir: create %s: %w", path, err)
	}
	if err := writeMessage(f, m); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return err
	}
	return nil
}

func writeMessage(w io.Writer, m *message.Message) error {
	bw := bufio.NewWriter(w)
	for _, field := range m.Header().Fields() {
		if _, err := io.WriteString(bw, header.WellformedName(field.DisplayName())+": "+field.FoldedBody()+"\n"); err != nil {
			return err
		}
	}
	if _, err := io.WriteString(bw, "\n"); err != nil {
		return err
	}
	if b := m.Body(); b != nil {
		lines, err := b.Lines()
		if err != nil {
			return err
		}
		for _, l := range lines {
			if _, err := io.WriteString(bw, l); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

func (Format) Destroy(f *folder.Folder) error {
	return os.RemoveAll(f.Name())
}

// Subfolders implements the Maildir++ convention: a subfolder is a "."
// -prefixed directory entry that itself contains cur/ and tmp/
// subdirectories.
func (Format) Subfolders(f *folder.Folder) ([]string, error) {
	entries, err := os.ReadDir(f.Name())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() || !strings.HasPrefix(name, ".") {
			continue
		}
		if FoundIn(filepath.Join(f.Name(), name)) {
			names = append(names, name[1:])
		}
	}
	sort.Strings(names)
	return names, nil
}

// CreateSubfolder creates a Maildir++ "."-prefixed subfolder directory
// (with its new/cur/tmp structure) under parentDir, for package manager
// to call when resolving a folder name that doesn't yet exist on disk.
func CreateSubfolder(parentDir, name string) (string, error) {
	path := filepath.Join(parentDir, "."+name)
	for _, sub := range []string{dirNew, dirCur, dirTmp} {
		if err := os.MkdirAll(filepath.Join(path, sub), 0700); err != nil {
			return "", err
		}
	}
	return path, nil
}
