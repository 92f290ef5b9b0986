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

// Package mh implements folder.Format for the DIRECTORY organization in
// its MH shape: one message per file, filenames positive integers
// starting at 1 (gaps tolerated), plus a ".mh_sequences" sidecar mapping
// sequence names to run-lists of message numbers. "cur" feeds the
// folder-level "current" label; "unseen" is the inverse of a "seen"
// label, both reusing the generic label map folder.Folder already
// exposes via Message.Label/SetLabel rather than the Flags struct (unlike
// folder/mbox, which has no separate label sidecar and so keeps the
// "seen" label and the Deleted/Replied/Passed flags in the Status/
// X-Status fields).
//
// New-message delivery writes under an invisible dotfile name, then
// atomically renames into place, so a numbered message file is never
// observable half-written.
package mh

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/go-mailstore/mailstore/body"
	"github.com/go-mailstore/mailstore/folder"
	"github.com/go-mailstore/mailstore/header"
	"github.com/go-mailstore/mailstore/message"
	"github.com/go-mailstore/mailstore/parser"
)

const sequencesFile = ".mh_sequences"

// fileLabel is the internal label a loaded message carries its MH
// filename under, so Flush/Rescan can find a message's file again
// without a second index.
const fileLabel = "mh:file"

var numericNameRE = regexp.MustCompile(`^[1-9][0-9]*$`)

type Format struct{}

// New returns an MH folder.Format.
func New() folder.Format { return Format{} }

func (Format) Organization() folder.Organization { return folder.DIRECTORY }

// FoundIn is the auto-detect probe a Manager uses: an MH directory
// contains at least one numerically named message file, or (for a
// freshly created, still-empty folder) the .mh_sequences sidecar.
func FoundIn(path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return false
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return false
	}
	for _, e := range entries {
		if e.Name() == sequencesFile {
			return true
		}
		if !e.IsDir() && numericNameRE.MatchString(e.Name()) {
			return true
		}
	}
	return false
}

func (Format) Load(f *folder.Folder) error {
	dir := f.Name()
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("mh: %w", err)
	}
	nums, err := messageFiles(dir)
	if err != nil {
		return err
	}
	msgs, err := readMessages(dir, nums, f)
	if err != nil {
		return err
	}
	applySequences(dir, msgs)
	f.AppendLoaded(msgs...)
	return nil
}

func (Format) Rescan(f *folder.Folder) error {
	dir := f.Name()
	nums, err := messageFiles(dir)
	if err != nil {
		return err
	}

	known := make(map[int]bool)
	for _, m := range f.Messages() {
		if n, ok := fileNum(m); ok {
			known[n] = true
		}
	}

	var fresh []int
	for _, n := range nums {
		if !known[n] {
			fresh = append(fresh, n)
		}
	}

	added, err := readMessages(dir, fresh, f)
	if err != nil {
		return err
	}
	applySequences(dir, added)
	f.AppendLoaded(added...)
	return nil
}

// messageFiles lists dir's numerically named entries, ascending.
func messageFiles(dir string) ([]int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("mh: read dir %s: %w", dir, err)
	}
	var nums []int
	for _, e := range entries {
		if e.IsDir() || !numericNameRE.MatchString(e.Name()) {
			continue
		}
		n, err := strconv.Atoi(e.Name())
		if err != nil {
			continue
		}
		nums = append(nums, n)
	}
	sort.Ints(nums)
	return nums, nil
}

func fileNum(m *message.Message) (int, bool) {
	s, ok := m.Label(fileLabel)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	return n, err == nil
}

// readMessages opens each numbered file as its own parser session, builds
// the Message, and stamps it with its MH filename.
func readMessages(dir string, nums []int, f *folder.Folder) ([]*message.Message, error) {
	var out []*message.Message
	for _, n := range nums {
		path := filepath.Join(dir, strconv.Itoa(n))
		p := parser.Open(path, f.Log())
		if err := p.Start(false, f.Options().TrustFile); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return out, fmt.Errorf("mh: %w", err)
		}

		_, rawFields, err := p.ReadHeader()
		if err != nil {
			p.Stop()
			return out, fmt.Errorf("mh: read header %s: %w", path, err)
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
				return out, fmt.Errorf("mh: read body %s: %w", path, err)
			}
			b = body.New(&body.DelayedContent{Begin: rbegin, End: rend, Loader: p}, mimeType, encoding)
		} else {
			_, lines, err := p.BodyAsList(0, 0)
			if err != nil {
				p.Stop()
				return out, fmt.Errorf("mh: read body %s: %w", path, err)
			}
			b = body.New(body.LinesContent(lines), mimeType, encoding)
		}
		bodyEnd, _ := p.FilePosition()
		b = b.EOLConvert(body.EOLFromString(p.DetectedEOL()))
		b.RangeBegin = 0
		b.RangeEnd = bodyEnd
		p.Stop()

		m := message.New(h, b)
		m.SetLabel(fileLabel, strconv.Itoa(n))
		m.ClearModified()
		out = append(out, m)
	}
	return out, nil
}

func (Format) Flush(f *folder.Folder, policy folder.WritePolicy, saveDeleted, keepDeleted bool) error {
	dir := f.Name()
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("mh: %w", err)
	}

	renumber := f.Options().Renumber
	kept := make([]*message.Message, 0, len(f.Messages()))
	for _, m := range f.Messages() {
		if m.Deleted() && !saveDeleted {
			if n, ok := fileNum(m); ok {
				os.Remove(filepath.Join(dir, strconv.Itoa(n)))
			}
			continue
		}
		kept = append(kept, m)
	}

	used := make(map[int]bool)
	if !renumber {
		for _, m := range kept {
			if n, ok := fileNum(m); ok {
				used[n] = true
			}
		}
	}
	next := 1
	nextFreeNum := func() int {
		for used[next] {
			next++
		}
		used[next] = true
		return next
	}

	for i, m := range kept {
		oldNum, hadOld := fileNum(m)

		var target int
		switch {
		case renumber:
			target = i + 1
			used[target] = true
		case hadOld:
			target = oldNum
		default:
			target = nextFreeNum()
		}
		targetPath := filepath.Join(dir, strconv.Itoa(target))

		switch {
		case !m.Flags().Modified && hadOld && oldNum == target:
			// unchanged, already in the right slot: nothing to do.
		case !m.Flags().Modified && hadOld:
			// unmodified but renumbered: a plain rename preserves the
			// file byte-for-byte.
			if err := os.Rename(filepath.Join(dir, strconv.Itoa(oldNum)), targetPath); err != nil {
				return fmt.Errorf("mh: renumber: %w", err)
			}
		default:
			if err := writeMessageFile(dir, targetPath, m); err != nil {
				return err
			}
			if hadOld && oldNum != target {
				os.Remove(filepath.Join(dir, strconv.Itoa(oldNum)))
			}
		}
		m.SetLabel(fileLabel, strconv.Itoa(target))
	}

	f.SetMessages(kept)
	return writeSequences(dir, kept)
}

// writeMessageFile writes m under an invisible dotfile name in dir and
// atomically renames it to targetPath.
func writeMessageFile(dir, targetPath string, m *message.Message) error {
	tmpPath := filepath.Join(dir, ".mailstore-tmp-"+uuid.New().String())
	tmp, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("mh: create temp file: %w", err)
	}

	if err := writeMessage(tmp, m); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, targetPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("mh: rename into place: %w", err)
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

// Subfolders implements the MH rule: a subfolder is any directory entry
// that is not a numeric message file and not a sidecar (dotfile).
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
		if strings.HasPrefix(name, ".") || numericNameRE.MatchString(name) {
			continue
		}
		names = append(names, name)
	}
	return names, nil
}

// CreateSubfolder ensures the named subfolder directory exists under
// parentDir, for package manager to call when resolving a folder name
// that doesn't yet exist on disk.
func CreateSubfolder(parentDir, name string) (string, error) {
	path := filepath.Join(parentDir, name)
	if err := os.MkdirAll(path, 0700); err != nil {
		return "", err
	}
	return path, nil
}

// --- .mh_sequences -----------------------------------------------------

// applySequences reads dir's sequences sidecar (if any) and translates
// "cur"/"unseen" into the folder-level "current"/"seen" labels on the
// matching messages.
func applySequences(dir string, msgs []*message.Message) {
	seqs, err := readSequences(dir)
	if err != nil {
		return
	}

	byNum := make(map[int]*message.Message, len(msgs))
	for _, m := range msgs {
		if n, ok := fileNum(m); ok {
			byNum[n] = m
		}
	}

	unseen := seqs["unseen"]
	for n, m := range byNum {
		if !unseen[n] {
			m.SetLabel("seen", "")
		}
	}
	for n := range seqs["cur"] {
		if m, ok := byNum[n]; ok {
			m.SetLabel("current", "")
		}
	}

	// SetLabel marks messages modified; these labels were just loaded
	// from disk, not changed by the caller, so clear it back.
	for _, m := range msgs {
		m.ClearModified()
	}
}

// writeSequences regenerates the sidecar from the folder's current
// "current"/"seen" labels and writes it under an invisible name before
// renaming it into place.
func writeSequences(dir string, msgs []*message.Message) error {
	var cur, unseen []int
	for _, m := range msgs {
		n, ok := fileNum(m)
		if !ok {
			continue
		}
		if _, ok := m.Label("current"); ok {
			cur = append(cur, n)
		}
		if _, ok := m.Label("seen"); !ok {
			unseen = append(unseen, n)
		}
	}

	var b strings.Builder
	if len(cur) > 0 {
		fmt.Fprintf(&b, "cur: %s\n", compressRuns(cur))
	}
	if len(unseen) > 0 {
		fmt.Fprintf(&b, "unseen: %s\n", compressRuns(unseen))
	}

	path := filepath.Join(dir, sequencesFile)
	tmpPath := filepath.Join(dir, ".mailstore-tmp-"+uuid.New().String())
	if err := os.WriteFile(tmpPath, []byte(b.String()), 0600); err != nil {
		return fmt.Errorf("mh: write sequences: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("mh: write sequences: %w", err)
	}
	return nil
}

func readSequences(dir string) (map[string]map[int]bool, error) {
	data, err := os.ReadFile(filepath.Join(dir, sequencesFile))
	if err != nil {
		return nil, err
	}
	out := make(map[string]map[int]bool)
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		name, rest, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		out[strings.TrimSpace(name)] = parseRunList(rest)
	}
	return out, nil
}

// parseRunList parses a space-separated run-list ("3 5 9-12") into the
// set of integers it names.
func parseRunList(s string) map[int]bool {
	out := make(map[int]bool)
	for _, tok := range strings.Fields(s) {
		if lo, hi, ok := strings.Cut(tok, "-"); ok {
			loN, err1 := strconv.Atoi(lo)
			hiN, err2 := strconv.Atoi(hi)
			if err1 != nil || err2 != nil || hiN < loN {
				continue
			}
			for n := loN; n <= hiN; n++ {
				out[n] = true
			}
			continue
		}
		if n, err := strconv.Atoi(tok); err == nil {
			out[n] = true
		}
	}
	return out
}

// compressRuns formats a set of numbers as an ascending run-list,
// collapsing consecutive runs into "m-n" ranges.
func compressRuns(nums []int) string {
	if len(nums) == 0 {
		return ""
	}
	sorted := append([]int(nil), nums...)
	sort.Ints(sorted)

	var parts []string
	start, prev := sorted[0], sorted[0]
	flush := func() {
		if start == prev {
			parts = append(parts, strconv.Itoa(start))
		} else {
			parts = append(parts, fmt.Sprintf("%d-%d", start, prev))
		}
	}
	for _, n := range sorted[1:] {
		if n == prev+1 {
			prev = n
			continue
		}
		flush()
		start, prev = n, n
	}
	flush()
	return strings.Join(parts, " ")
}
