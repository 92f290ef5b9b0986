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

// Package mbox implements folder.Format for the FILE organization: a
// single flat file holding every message, each preceded by a "From "
// envelope line and separated from the next by a blank line plus the
// next envelope. It follows the mboxrd convention (escape any body line
// starting with zero-or-more '>' then "From " by adding one more '>').
//
// Replace-mode writes go to a sibling temp file that is atomically
// renamed over the original, so readers never observe a half-written
// folder; in-place writes truncate at the first modified message and are
// opt-in.
package mbox

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/go-mailstore/mailstore/body"
	"github.com/go-mailstore/mailstore/folder"
	"github.com/go-mailstore/mailstore/header"
	"github.com/go-mailstore/mailstore/message"
	"github.com/go-mailstore/mailstore/parser"
)

var fromLineRE = regexp.MustCompile(`^From `)
var escapedFromLineRE = regexp.MustCompile(`^>+From `)
var escapedFromBytesRE = regexp.MustCompile(`(?m)^>(>*From )`)

func fromSeparator() parser.Separator {
	return parser.Separator{Pattern: fromLineRE}
}

// Format implements folder.Format for mbox files. It carries no state of
// its own; all per-folder state lives on the folder.Folder passed to each
// method, so one Format value may be shared across many open folders.
type Format struct{}

// New returns a mbox folder.Format.
func New() folder.Format { return Format{} }

func (Format) Organization() folder.Organization { return folder.FILE }

// FoundIn is the auto-detect probe a Manager uses: an mbox file starts
// with "From " or is empty (a freshly created, still-empty folder).
func FoundIn(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	if info.Size() == 0 {
		return true
	}
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	line, _ := bufio.NewReader(f).ReadString('\n')
	return fromLineRE.MatchString(line)
}

func (Format) Load(f *folder.Folder) error {
	if _, err := os.Stat(f.Name()); os.IsNotExist(err) {
		// A folder name that doesn't exist yet is an empty mbox: the
		// first Write creates it.
		return nil
	}
	p := parser.Open(f.Name(), f.Log())
	if err := p.Start(false, f.Options().TrustFile); err != nil {
		return fmt.Errorf("mbox: %w", err)
	}
	defer p.Stop()

	msgs, err := readAll(p, f)
	if err != nil {
		return err
	}
	f.AppendLoaded(msgs...)
	return nil
}

func (Format) Rescan(f *folder.Folder) error {
	var startOffset int64
	msgs := f.Messages()
	if len(msgs) > 0 {
		if b := msgs[len(msgs)-1].Body(); b != nil {
			startOffset = b.RangeEnd
		}
	}

	p := parser.Open(f.Name(), f.Log())
	if err := p.Start(false, true); err != nil {
		return fmt.Errorf("mbox: rescan: %w", err)
	}
	defer p.Stop()
	if _, err := p.FilePosition(startOffset); err != nil {
		return fmt.Errorf("mbox: rescan seek: %w", err)
	}

	added, err := readAll(p, f)
	if err != nil {
		return err
	}
	f.AppendLoaded(added...)
	return nil
}

// readAll reads every envelope+header+body block from the parser's
// current position to EOF.
func readAll(p *parser.Parser, f *folder.Folder) ([]*message.Message, error) {
	p.PushSeparator(fromSeparator())
	defer p.PopSeparator()

	var out []*message.Message
	for {
		envOffset, envLine, err := p.ReadSeparator()
		if err == io.EOF {
			break
		}
		if err != nil {
			return out, fmt.Errorf("mbox: read envelope: %w", err)
		}

		_, rawFields, err := p.ReadHeader()
		if err != nil {
			return out, fmt.Errorf("mbox: read header: %w", err)
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
				return out, fmt.Errorf("mbox: read body: %w", err)
			}
			b = body.New(&body.DelayedContent{Begin: rbegin, End: rend, Loader: unescapingLoader{p}}, mimeType, encoding)
		} else {
			_, lines, err := p.BodyAsList(0, 0)
			if err != nil {
				return out, fmt.Errorf("mbox: read body: %w", err)
			}
			for i, l := range lines {
				lines[i] = unescapeFromLine(l)
			}
			b = body.New(body.LinesContent(lines), mimeType, encoding)
		}
		bodyEnd, err := p.FilePosition()
		if err != nil {
			return out, err
		}
		// Carry the file's detected line separator into the body so a
		// re-serialization preserves it unless explicitly converted.
		b = b.EOLConvert(body.EOLFromString(p.DetectedEOL()))
		b.RangeBegin = envOffset
		b.RangeEnd = bodyEnd

		m := message.New(h, b)
		applyStatus(m, h)
		if envFrom, ok := parseEnvelopeFrom(envLine); ok {
			if _, hasFrom := h.Get("From", 0); !hasFrom {
				h.Add(header.NewField("From", envFrom))
			}
		}
		m.ClearModified()
		out = append(out, m)
	}
	return out, nil
}

// parseEnvelopeFrom extracts the sender address from a "From addr <date>"
// envelope line, used only to backfill a missing From header.
func parseEnvelopeFrom(line string) (addr string, ok bool) {
	rest := strings.TrimPrefix(line, "From ")
	if rest == line {
		return "", false
	}
	if sp := strings.IndexByte(rest, ' '); sp != -1 {
		return rest[:sp], true
	}
	return rest, true
}

// unescapeFromLine undoes mboxrd escaping: a line matching "^>+From "
// loses exactly one leading '>'.
func unescapeFromLine(line string) string {
	if escapedFromLineRE.MatchString(line) {
		return line[1:]
	}
	return line
}

// unescapingLoader wraps a parser.Parser so a body.DelayedContent realizes
// mboxrd-unescaped bytes, keeping delayed and eagerly-read bodies
// byte-identical once loaded.
type unescapingLoader struct {
	p *parser.Parser
}

func (l unescapingLoader) Load(begin, end int64) ([]byte, error) {
	raw, err := l.p.Load(begin, end)
	if err != nil {
		return nil, err
	}
	return escapedFromBytesRE.ReplaceAll(raw, []byte("$1")), nil
}

// escapeFromLine applies mboxrd escaping: any line matching "^>*From "
// gains one leading '>'.
func escapeFromLine(line string) string {
	if strings.HasPrefix(line, "From ") || escapedFromLineRE.MatchString(line) {
		return ">" + line
	}
	return line
}

func (Format) Flush(f *folder.Folder, policy folder.WritePolicy, saveDeleted, keepDeleted bool) error {
	if policy == folder.WritePolicyInplace {
		return flushInplace(f, saveDeleted, keepDeleted)
	}
	if err := flushReplace(f, saveDeleted, keepDeleted); err != nil {
		f.Log().Warning("mbox: replace write failed, falling back to inplace", "error", err)
		return flushInplace(f, saveDeleted, keepDeleted)
	}
	return nil
}

func flushReplace(f *folder.Folder, saveDeleted, keepDeleted bool) error {
	path := f.Name()
	dir := filepath.Dir(path)
	tmpPath := filepath.Join(dir, ".mailstore-tmp-"+uuid.New().String())

	tmp, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("mbox: create temp file: %w", err)
	}
	defer os.Remove(tmpPath)

	orig, _ := os.Open(path)
	if orig != nil {
		defer orig.Close()
	}

	w := bufio.NewWriter(tmp)
	var offset int64
	for _, m := range f.Messages() {
		if m.Deleted() && !saveDeleted {
			continue
		}
		rangeBegin, rangeEnd := int64(0), int64(0)
		if b := m.Body(); b != nil {
			rangeBegin, rangeEnd = b.RangeBegin, b.RangeEnd
		}
		var n int64
		canCopyRaw := !m.Flags().Modified && orig != nil && rangeEnd > rangeBegin && (keepDeleted || !m.Deleted())
		if canCopyRaw {
			n, err = copyRange(w, orig, rangeBegin, rangeEnd)
		} else {
			n, err = writeSerialized(w, m)
		}
		if err != nil {
			tmp.Close()
			return fmt.Errorf("mbox: write message: %w", err)
		}
		if m.Body() != nil {
			m.Body().RangeBegin = offset
			m.Body().RangeEnd = offset + n
		}
		offset += n
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

func flushInplace(f *folder.Folder, saveDeleted, keepDeleted bool) error {
	path := f.Name()
	all := f.Messages()

	firstDirty := -1
	for i, m := range all {
		b := m.Body()
		if m.Flags().Modified || b == nil || b.RangeEnd == 0 {
			firstDirty = i
			break
		}
	}
	if firstDirty == -1 {
		return nil
	}

	var truncAt int64
	if firstDirty > 0 {
		truncAt = all[firstDirty-1].Body().RangeEnd
	}

	fh, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return fmt.Errorf("mbox: open for inplace write: %w", err)
	}
	defer fh.Close()
	if err := fh.Truncate(truncAt); err != nil {
		return fmt.Errorf("mbox: truncate: %w", err)
	}
	if _, err := fh.Seek(truncAt, io.SeekStart); err != nil {
		return err
	}

	w := bufio.NewWriter(fh)
	offset := truncAt
	for i := firstDirty; i < len(all); i++ {
		m := all[i]
		if m.Deleted() && !saveDeleted {
			continue
		}
		n, err := writeSerialized(w, m)
		if err != nil {
			return fmt.Errorf("mbox: write message: %w", err)
		}
		if m.Body() != nil {
			m.Body().RangeBegin = offset
			m.Body().RangeEnd = offset + n
		}
		offset += n
	}
	return w.Flush()
}

func copyRange(w io.Writer, r io.ReaderAt, begin, end int64) (int64, error) {
	n, err := io.Copy(w, io.NewSectionReader(r, begin, end-begin))
	return n, err
}

// writeSerialized writes one message's envelope line, header, blank line
// and mboxrd-escaped body, syncing Status/X-Status first.
func writeSerialized(w io.Writer, m *message.Message) (int64, error) {
	syncStatus(m)

	fromAddr := "MAILER-DAEMON"
	if fromField, ok := m.Header().Get("From", 0); ok {
		if addr, err := fromField.Mailbox(); err == nil && addr.Mailbox != "" {
			fromAddr = addr.Mailbox
		}
	}
	var ts int64
	if t, ok := m.Header().GuessTimestamp(); ok {
		ts = t
	}

	var n int64
	write := func(s string) error {
		written, err := io.WriteString(w, s)
		n += int64(written)
		return err
	}

	if err := write(header.CreateFromLine(fromAddr, ts) + "\n"); err != nil {
		return n, err
	}
	for _, field := range m.Header().Fields() {
		if err := write(header.WellformedName(field.DisplayName()) + ": " + field.FoldedBody() + "\n"); err != nil {
			return n, err
		}
	}
	if err := write("\n"); err != nil {
		return n, err
	}
	lastBlank := false
	if b := m.Body(); b != nil {
		lines, err := b.Lines()
		if err != nil {
			return n, err
		}
		for _, l := range lines {
			if err := write(escapeFromLine(l)); err != nil {
				return n, err
			}
			lastBlank = strings.TrimRight(l, "\r\n") == ""
		}
	}
	// The next envelope line needs a blank line before it; bodies read
	// from disk already end with one, freshly built ones usually don't.
	if !lastBlank {
		if err := write("\n"); err != nil {
			return n, err
		}
	}
	return n, nil
}

// applyStatus decodes the Status/X-Status header fields into m's flags
// and labels, per the conventional mbox encoding ('R'/'O' in Status;
// 'D'/'A'/'P' in X-Status). 'R' feeds the "seen" label, same as
// folder/maildir's 'S' flag letter.
func applyStatus(m *message.Message, h *header.Header) {
	flags := m.Flags()
	if st, ok := h.Get("Status", 0); ok {
		if strings.Contains(st.Body(), "R") {
			m.SetLabel("seen", "")
		}
	}
	if xst, ok := h.Get("X-Status", 0); ok {
		s := xst.Body()
		if strings.Contains(s, "D") {
			if ts, ok := h.GuessTimestamp(); ok {
				flags.Deleted = ts
			} else {
				flags.Deleted = 1
			}
		}
		flags.Replied = strings.Contains(s, "A")
		flags.Passed = strings.Contains(s, "P")
	}
	m.SetFlags(flags)
	m.ClearModified()
}

// syncStatus writes m's current flags and labels back into its
// Status/X-Status header fields before serialization.
func syncStatus(m *message.Message) {
	flags := m.Flags()
	status := ""
	if _, seen := m.Label("seen"); seen {
		status = "RO"
	}
	xstatus := ""
	if flags.Deleted != 0 {
		xstatus += "D"
	}
	if flags.Replied {
		xstatus += "A"
	}
	if flags.Passed {
		xstatus += "P"
	}

	if status != "" {
		m.Header().Set(header.NewField("Status", status))
	} else {
		m.Header().Reset("Status")
	}
	if xstatus != "" {
		m.Header().Set(header.NewField("X-Status", xstatus))
	} else {
		m.Header().Reset("X-Status")
	}
}

func (Format) Destroy(f *folder.Folder) error {
	if err := os.Remove(f.Name()); err != nil && !os.IsNotExist(err) {
		return err
	}
	simDir := f.Name() + ".d"
	if err := os.RemoveAll(simDir); err != nil {
		return err
	}
	return nil
}

// Subfolders implements the FILE-organization "simulated subfolder"
// model: the sibling directory "<name>.d" holds one mbox file per
// subfolder.
func (Format) Subfolders(f *folder.Folder) ([]string, error) {
	dir := f.Name() + ".d"
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// CreateSubfolder ensures "<parent>.d" exists and returns the path of the
// named subfolder's own mbox file. The parent file itself never moves:
// its bytes already live at a stable path distinct from "<parent>.d", so
// folder file and subfolder directory coexist as siblings.
func CreateSubfolder(parentPath, name string) (string, error) {
	dir := parentPath + ".d"
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}
