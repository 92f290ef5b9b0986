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

package message

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-mailstore/mailstore/address"
	"github.com/go-mailstore/mailstore/body"
	"github.com/go-mailstore/mailstore/header"
	"github.com/go-mailstore/mailstore/parser"
)

// ContentSource gathers Build's content sources (data, file(s), attach):
// Data is literal text for the primary body; Files holds
// zero or more additional attachment contents (this package does no
// filesystem I/O itself, so the caller supplies already-read bytes and a
// MIME type per file; this covers both the "file(s)" and "attach" source
// kinds, which differ only in how the caller obtained the content).
type ContentSource struct {
	Data string

	// Files holds additional attachment bodies by (mimeType, content)
	// pair, in order; an empty Files means "no attachments".
	Files []AttachedFile

	// Forced Content-Type, Content-Transfer-Encoding,
	// Content-Disposition, Content-Description, Content-ID: applied after
	// body construction, so they override whatever the body inferred.
	ContentType        string
	ContentTransferEnc string
	ContentDisposition string
	ContentDescription string
	ContentID          string
}

// AttachedFile is one file/attach content source for Build.
type AttachedFile struct {
	Name     string
	MimeType string
	Content  string
}

// Build assembles a Message from a set of (name, value) header pairs plus
// one or more content sources: the body is taken from the first of
// {data, file(s), attach} present; when more than one content source is
// given, the result is multipart/mixed.
func Build(fields [][2]string, src ContentSource) *Message {
	h := header.New()
	for _, kv := range fields {
		h.Add(header.NewField(kv[0], kv[1]))
	}
	m := New(h, nil)

	sources := buildSources(src)
	switch len(sources) {
	case 0:
		// no content source: leave the message bodiless.
	case 1:
		m.SetBody(sources[0])
	default:
		parts := make([]body.Part, len(sources))
		for i, b := range sources {
			parts[i] = newPart(m, header.New(), b)
		}
		mp := body.MultipartContent{Boundary: newBoundary("mixed"), Parts: parts}
		m.SetBody(body.New(mp, "multipart/mixed", "8bit"))
	}

	applyOverrides(m, src)
	return m
}

// buildSources returns one Body per content source present in src, in
// data/files order.
func buildSources(src ContentSource) []*body.Body {
	var out []*body.Body
	if src.Data != "" {
		out = append(out, body.New(body.StringContent(src.Data), "text/plain; charset=utf-8", "8bit"))
	}
	for _, a := range src.Files {
		mt := a.MimeType
		if mt == "" {
			mt = "application/octet-stream"
		}
		b := body.New(body.StringContent(a.Content), mt, "base64")
		out = append(out, b)
	}
	return out
}

// applyOverrides sets the explicitly forced Content-* fields after body
// construction; these take precedence over whatever buildSources/SetBody
// inferred.
func applyOverrides(m *Message, src ContentSource) {
	if src.ContentType != "" {
		m.head.Set(header.NewField("Content-Type", src.ContentType))
	}
	if src.ContentTransferEnc != "" {
		m.head.Set(header.NewField("Content-Transfer-Encoding", src.ContentTransferEnc))
	}
	if src.ContentDisposition != "" {
		m.head.Set(header.NewField("Content-Disposition", src.ContentDisposition))
	}
	if src.ContentDescription != "" {
		m.head.Set(header.NewField("Content-Description", src.ContentDescription))
	}
	if src.ContentID != "" {
		m.head.Set(header.NewField("Content-ID", src.ContentID))
	}
}

// BuildFromBody assembles a Message around an already-constructed Body,
// then injects Message-Id, Date, and MIME-Version: 1.0 if any are
// missing.
func BuildFromBody(fields [][2]string, b *body.Body) *Message {
	h := header.New()
	for _, kv := range fields {
		h.Add(header.NewField(kv[0], kv[1]))
	}
	m := New(h, b)

	if _, ok := h.Get("Message-Id", 0); !ok {
		h.Add(header.NewField("Message-Id", header.CreateMessageID("")))
	}
	if _, ok := h.Get("Date", 0); !ok {
		h.Add(header.NewField("Date", header.ToDate(0)))
	}
	if _, ok := h.Get("MIME-Version", 0); !ok {
		h.Add(header.NewField("MIME-Version", "1.0"))
	}
	return m
}

// Read parses a complete message out of p starting at the current file
// position: its header and a fully-loaded in-memory body. It is the "read"
// construction mode; Folder backends call this (or the delayed variant of
// BodyAsList/BodyAsFile) depending on their load policy. Status/X-Status
// fields (another folder's flag persistence) are stripped, and a
// Message-Id is assigned if the source had none.
func Read(p *parser.Parser) (*Message, error) {
	_, rawFields, err := p.ReadHeader()
	if err != nil {
		return nil, fmt.Errorf("message: read header: %w", err)
	}
	h := header.New()
	for _, rf := range rawFields {
		h.Add(header.NewField(rf.Name, rf.Body))
	}

	_, lines, err := p.BodyAsList(0, 0)
	if err != nil {
		return nil, fmt.Errorf("message: read body: %w", err)
	}
	mimeType := "text/plain"
	if ct, ok := h.Get("Content-Type", 0); ok {
		mimeType = ct.BodyWithoutComment()
	}
	encoding := "8bit"
	if cte, ok := h.Get("Content-Transfer-Encoding", 0); ok {
		encoding = strings.TrimSpace(cte.Body())
	}
	b := body.New(body.LinesContent(lines), mimeType, encoding)

	h.Reset("Status")
	h.Reset("X-Status")
	m := New(h, b)
	m.ID()
	m.ClearModified()
	return m, nil
}

// quoteLines prefixes every line of s with the default "> " quote
// prefix.
func quoteLines(s string) string {
	if s == "" {
		return ""
	}
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = "> " + l
	}
	return strings.Join(lines, "\n") + "\n"
}

// replySubjectRE recognizes a leading "Re:" or "Re[n]:" prefix.
var replySubjectRE = regexp.MustCompile(`(?i)^re(?:\[(\d+)\])?:\s*`)

// replySubject normalizes s into a reply subject: a bare subject becomes
// "Re: subject"; a subject already prefixed "Re:" or "Re[n]:" becomes
// "Re[n+1]: subject" (n defaulting to 1 for a bare "Re:"), so repeated
// replies count up instead of stacking prefixes.
func replySubject(s string) string {
	count := 0
	rest := s
	if loc := replySubjectRE.FindStringSubmatchIndex(s); loc != nil {
		count = 1
		if loc[2] != -1 {
			if n, err := strconv.Atoi(s[loc[2]:loc[3]]); err == nil {
				count = n
			}
		}
		rest = s[loc[1]:]
	}
	count++
	if count <= 1 {
		return "Re: " + rest
	}
	return fmt.Sprintf("Re[%d]: %s", count, rest)
}

// forwardSubjectRE recognizes a leading "Forw:" prefix.
var forwardSubjectRE = regexp.MustCompile(`(?i)^forw:\s*`)

// forwardSubject prefixes s with "Forw: " unless it already carries that
// prefix.
func forwardSubject(s string) string {
	if forwardSubjectRE.MatchString(s) {
		return s
	}
	return "Forw: " + s
}

// cloneHeader returns a new Header carrying a copy of h's live fields in
// order, for transformations (reply-attach, forward, bounce) that embed a
// message inside a new composite without sharing the original's
// modified-notification back-pointer.
func cloneHeader(h *header.Header) *header.Header {
	clone := header.New()
	for _, f := range h.Fields() {
		clone.Add(f)
	}
	return clone
}

// clonePart returns a Part standing in for orig inside a new composite
// body: its own cloned header and a Clone of its body, so the embedding
// never disturbs orig's Modified rollup.
func clonePart(parent *Message, orig *Message) *Part {
	var b *body.Body
	if orig.bdy != nil {
		b = orig.bdy.Clone()
	}
	return newPart(parent, cloneHeader(orig.head), b)
}

var boundarySeq uint64

// newBoundary returns a unique multipart boundary string prefixed by kind
// ("mixed", "report", ...).
func newBoundary(kind string) string {
	return fmt.Sprintf("%s-%d-%d", kind, time.Now().UnixNano(), atomic.AddUint64(&boundarySeq, 1))
}

// replyDestination chooses the reply destination: Reply-To > Sender >
// From.
func (m *Message) replyDestination() string {
	if f, ok := m.head.Get("Reply-To", 0); ok {
		return f.Body()
	}
	if f, ok := m.head.Get("Sender", 0); ok {
		return f.Body()
	}
	if f, ok := m.head.Get("From", 0); ok {
		return f.Body()
	}
	return ""
}

// replyPrelude returns the "On <date>, <sender> wrote:" line preceding a
// quoted reply body.
func (m *Message) replyPrelude() string {
	sender := ""
	if f, ok := m.head.Get("From", 0); ok {
		sender = f.Body()
	}
	date := ""
	if f, ok := m.head.Get("Date", 0); ok {
		date = f.Body()
	}
	return fmt.Sprintf("On %s, %s wrote:\n", date, sender)
}

// ReplyMode selects how Reply carries the quoted original.
type ReplyMode int

const (
	// ReplyNo produces a reply with no quoted content at all.
	ReplyNo ReplyMode = iota
	// ReplyInline quotes the original body inline, prefixed by the
	// default "On ... wrote:" prelude and "> " quote prefix.
	ReplyInline
	// ReplyAttach attaches the original message as a separate
	// message/rfc822-less flat part after a text part holding the
	// "On ... wrote:" prelude.
	ReplyAttach
)

// Reply builds a reply skeleton addressed back to the original sender (or,
// if toAll is set, also Cc'ing the original To/Cc recipients minus self).
// mode selects how (or whether) the original content is carried along.
func (m *Message) Reply(mode ReplyMode, toAll bool, self string) *Message {
	h := header.New()

	dest := m.replyDestination()
	if dest != "" {
		h.Add(header.NewField("To", dest))
	}

	if subj, ok := m.head.Get("Subject", 0); ok {
		h.Add(header.NewField("Subject", replySubject(subj.Body())))
	}
	if mid, ok := m.head.Get("Message-Id", 0); ok {
		h.Add(header.NewField("In-Reply-To", mid.Body()))
		refs := mid.Body()
		if old, ok := m.head.Get("References", 0); ok {
			refs = old.Body() + " " + refs
		}
		h.Add(header.NewField("References", refs))
	}

	if toAll {
		cc := collectExcluding(m.head, []string{"To", "Cc"}, append([]string{dest}, self))
		if cc != "" {
			h.Add(header.NewField("Cc", cc))
		}
	}

	reply := New(h, nil)
	switch mode {
	case ReplyInline:
		quoted := m.replyPrelude() + quoteLines(bodyString(m))
		reply.SetBody(body.New(body.StringContent(quoted), "text/plain; charset=utf-8", "8bit"))
	case ReplyAttach:
		reply.SetBody(wrapAsAttachment(reply, m.replyPrelude(), m))
	case ReplyNo:
		// no quoted content carried.
	}
	return reply
}

func bodyString(m *Message) string {
	if m.bdy == nil {
		return ""
	}
	s, err := m.bdy.String()
	if err != nil {
		return ""
	}
	return s
}

func collectExcluding(h *header.Header, names []string, exclude []string) string {
	var addrs []string
	for _, n := range names {
		for _, f := range h.GetAll(n) {
			for _, a := range strings.Split(f.Body(), ",") {
				a = strings.TrimSpace(a)
				if a == "" {
					continue
				}
				skip := false
				for _, ex := range exclude {
					if ex != "" && strings.Contains(a, ex) {
						skip = true
						break
					}
				}
				if !skip {
					addrs = append(addrs, a)
				}
			}
		}
	}
	return strings.Join(addrs, ", ")
}

// wrapAsAttachment returns a multipart/mixed Body whose first part is an
// optional plain-text prelude and whose second part is a clone of orig,
// used by both Reply's ATTACH mode and Forward's ATTACH mode.
func wrapAsAttachment(outer *Message, prelude string, orig *Message) *body.Body {
	var parts []body.Part
	if prelude != "" {
		parts = append(parts, newPart(outer, header.New(), body.New(body.StringContent(prelude), "text/plain; charset=utf-8", "8bit")))
	}
	parts = append(parts, clonePart(outer, orig))
	mp := body.MultipartContent{Boundary: newBoundary("mixed"), Parts: parts}
	return body.New(mp, "multipart/mixed", "8bit")
}

// wrapAsEncapsulated returns a message/rfc822 Body nesting a clone of orig,
// used by Forward's ENCAPSULATE mode.
func wrapAsEncapsulated(outer *Message, orig *Message) *body.Body {
	return body.New(body.NestedContent{Child: clonePart(outer, orig)}, "message/rfc822", "8bit")
}

// isBinary reports whether b's MIME type is neither text/* nor message/*,
// the condition Forward uses to auto-promote INLINE to ATTACH.
func isBinary(b *body.Body) bool {
	if b == nil {
		return false
	}
	mt := strings.ToLower(b.MimeType())
	return !strings.HasPrefix(mt, "text/") && !strings.HasPrefix(mt, "message/")
}

// ForwardMode selects how Forward carries the original message.
type ForwardMode int

const (
	// ForwardInline quotes the original body inline between a prelude
	// and postlude marker line.
	ForwardInline ForwardMode = iota
	// ForwardAttach attaches the original message as a flat part.
	ForwardAttach
	// ForwardEncapsulate nests the original as a message/rfc822 part.
	ForwardEncapsulate
)

// Forward builds a forward skeleton addressed to to. mode selects
// inline/attach/encapsulate carriage; a binary original body (neither
// text/* nor message/*) auto-promotes ForwardInline to ForwardAttach.
func (m *Message) Forward(mode ForwardMode, to string) *Message {
	if mode == ForwardInline && isBinary(m.bdy) {
		mode = ForwardAttach
	}

	h := header.New()
	if to != "" {
		h.Add(header.NewField("To", to))
	}
	subj := "Forw:"
	if s, ok := m.head.Get("Subject", 0); ok {
		subj = forwardSubject(s.Body())
	}
	h.Add(header.NewField("Subject", subj))

	fwd := New(h, nil)
	switch mode {
	case ForwardAttach:
		fwd.SetBody(wrapAsAttachment(fwd, "", m))
	case ForwardEncapsulate:
		fwd.SetBody(wrapAsEncapsulated(fwd, m))
	default:
		text := "----- Forwarded message -----\n" + bodyString(m) + "----- End forwarded message -----\n"
		fwd.SetBody(body.New(body.StringContent(text), "text/plain; charset=utf-8", "8bit"))
	}
	return fwd
}

// BounceOptions names the envelope recipients of a bounce notification; at
// least one must be non-empty.
type BounceOptions struct {
	To  string
	Cc  string
	Bcc string
}

// Bounce clones orig and adds a new ResentGroup at the top recording this
// redelivery: Resent-To/Cc/Bcc carry the options,
// Resent-Date/Resent-Message-ID/Received are synthesized. At least one of
// To/Cc/Bcc is required.
func Bounce(orig *Message, opts BounceOptions) (*Message, error) {
	if opts.To == "" && opts.Cc == "" && opts.Bcc == "" {
		return nil, fmt.Errorf("message: bounce requires at least one of To/Cc/Bcc")
	}

	h := cloneHeader(orig.head)
	var b *body.Body
	if orig.bdy != nil {
		b = orig.bdy.Clone()
	}
	bounced := New(h, b)

	received := header.NewField("Received", "by mailstore id "+header.CreateMessageID("")+"; "+header.ToDate(0))
	resent := []header.Field{
		header.NewField("Resent-Date", header.ToDate(0)),
	}
	if opts.To != "" {
		resent = append(resent, header.NewField("Resent-To", opts.To))
	}
	if opts.Cc != "" {
		resent = append(resent, header.NewField("Resent-Cc", opts.Cc))
	}
	if opts.Bcc != "" {
		resent = append(resent, header.NewField("Resent-Bcc", opts.Bcc))
	}
	resent = append(resent, header.NewField("Resent-Message-ID", header.CreateMessageID("")))

	h.AddResentGroup(header.ResentGroup{
		Received: &received,
		Resent:   resent,
	})

	return bounced, nil
}

// RebuildRule rewrites or removes a single part of m's body tree;
// returning nil removes the part.
type RebuildRule func(m *Message, part body.Part) body.Part

// replaceDeletedParts removes part if it reports itself Deleted.
func replaceDeletedParts(m *Message, part body.Part) body.Part {
	if part.Deleted() {
		return nil
	}
	return part
}

// buildRuleSet returns the full ordered rule list for one Rebuild call:
// drop deleted parts, recurse into multipart/nested children,
// collapse a single-child multipart into its child, and replace an
// emptied-out multipart with a placeholder text part. leaf supplies the
// last three rules (flattenMultiparts, flattenEmptyMultiparts by default).
//
// The two descend rules are built as closures over the rules variable
// below rather than as package-level functions: each recurses into its
// part's children by calling rebuildPartsWith with that same rules slice,
// so a custom leaf list supplied to Rebuild propagates to every depth
// instead of applying only at the top level. rules is fully assigned
// before any closure runs, so the capture is safe.
func buildRuleSet(leaf []RebuildRule) []RebuildRule {
	if leaf == nil {
		leaf = []RebuildRule{flattenMultiparts, flattenEmptyMultiparts}
	}
	var rules []RebuildRule
	descendMultiparts := func(m *Message, part body.Part) body.Part {
		sub, ok := part.(*Message)
		if !ok || sub.bdy == nil {
			return part
		}
		mp, ok := sub.bdy.RawContent().(body.MultipartContent)
		if !ok {
			return part
		}
		mp.Parts = rebuildPartsWith(sub, mp.Parts, rules)
		sub.bdy = body.New(mp, sub.bdy.MimeType(), sub.bdy.Encoding())
		sub.bdy.SetOwner(sub)
		return sub
	}
	descendNested := func(m *Message, part body.Part) body.Part {
		sub, ok := part.(*Message)
		if !ok || sub.bdy == nil {
			return part
		}
		nc, ok := sub.bdy.RawContent().(body.NestedContent)
		if !ok {
			return part
		}
		rebuilt := rebuildPartsWith(sub, []body.Part{nc.Child}, rules)
		if len(rebuilt) == 1 {
			nc.Child = rebuilt[0]
			sub.bdy = body.New(nc, sub.bdy.MimeType(), sub.bdy.Encoding())
			sub.bdy.SetOwner(sub)
		}
		return sub
	}
	rules = append([]RebuildRule{replaceDeletedParts, descendMultiparts, descendNested}, leaf...)
	return rules
}

// DefaultRebuildRules is the ordered rule list Rebuild applies when called
// with rules == nil.
var DefaultRebuildRules = buildRuleSet(nil)

// flattenMultiparts collapses a multipart/* part with exactly one active
// child into that child.
func flattenMultiparts(m *Message, part body.Part) body.Part {
	sub, ok := part.(*Message)
	if !ok || sub.bdy == nil {
		return part
	}
	mp, ok := sub.bdy.RawContent().(body.MultipartContent)
	if !ok || len(mp.Parts) != 1 {
		return part
	}
	child, ok := mp.Parts[0].(*Message)
	if !ok {
		return part
	}
	child.parent = sub.parent
	return child
}

// flattenEmptyMultiparts replaces a multipart/* part with zero active
// parts with a single empty text/plain placeholder part, so an
// emptied-out multipart degrades to a plain text message rather than an
// unrenderable shell.
func flattenEmptyMultiparts(m *Message, part body.Part) body.Part {
	sub, ok := part.(*Message)
	if !ok || sub.bdy == nil {
		return part
	}
	mp, ok := sub.bdy.RawContent().(body.MultipartContent)
	if !ok || len(mp.Parts) != 0 {
		return part
	}
	sub.bdy = body.New(body.StringContent(""), "text/plain; charset=utf-8", "8bit")
	sub.bdy.SetOwner(sub)
	return sub
}

// rebuildPartsWith applies every rule in rules, in order, to each of parts,
// dropping any part a rule reduces to nil, repeating until a full pass
// changes nothing.
func rebuildPartsWith(m *Message, parts []body.Part, rules []RebuildRule) []body.Part {
	for {
		changed := false
		next := make([]body.Part, 0, len(parts))
		for _, p := range parts {
			cur := p
			for _, rule := range rules {
				if cur == nil {
					break
				}
				rewritten := rule(m, cur)
				if rewritten != cur {
					changed = true
				}
				cur = rewritten
			}
			if cur != nil {
				next = append(next, cur)
			} else {
				changed = true
			}
		}
		parts = next
		if !changed {
			return parts
		}
	}
}

// Rebuild applies rules (DefaultRebuildRules if nil) to m's own body tree
// until a fixed point, re-synchronizing Content-Type/Content-Transfer-
// Encoding afterward.
func (m *Message) Rebuild(rules []RebuildRule) {
	if rules == nil {
		rules = DefaultRebuildRules
	}
	if m.bdy != nil {
		switch c := m.bdy.RawContent().(type) {
		case body.MultipartContent:
			c.Parts = rebuildPartsWith(m, c.Parts, rules)
			m.bdy = body.New(c, m.bdy.MimeType(), m.bdy.Encoding())
			m.bdy.SetOwner(m)

			// flattenMultiparts/flattenEmptyMultiparts normally replace a
			// part inside its parent's part list; the root message has no
			// such list, so the same collapse is applied to m directly
			// here instead.
			if mp, ok := m.bdy.RawContent().(body.MultipartContent); ok {
				switch len(mp.Parts) {
				case 0:
					m.bdy = body.New(body.StringContent(""), "text/plain; charset=utf-8", "8bit")
					m.bdy.SetOwner(m)
				case 1:
					if child, ok := mp.Parts[0].(*Message); ok && child.bdy != nil {
						m.bdy = child.bdy
						m.bdy.SetOwner(m)
					}
				}
			}
		case body.NestedContent:
			rebuilt := rebuildPartsWith(m, []body.Part{c.Child}, rules)
			if len(rebuilt) == 1 {
				c.Child = rebuilt[0]
				m.bdy = body.New(c, m.bdy.MimeType(), m.bdy.Encoding())
				m.bdy.SetOwner(m)
			}
		}
	}

	if m.bdy == nil {
		m.flags.Modified = true
		return
	}
	ct := m.bdy.MimeType()
	if mp, ok := m.bdy.RawContent().(body.MultipartContent); ok && !strings.Contains(ct, "boundary=") {
		ct = fmt.Sprintf("%s; boundary=%q", ct, mp.Boundary)
	}
	m.head.Set(header.NewField("Content-Type", ct))
	m.head.Set(header.NewField("Content-Transfer-Encoding", m.bdy.Encoding()))
	m.flags.Modified = true
}

// PrintStructure returns a human-readable indented tree of this message's
// MIME structure, for debugging/diagnostics.
func (m *Message) PrintStructure() string {
	var b strings.Builder
	m.printStructure(&b, 0)
	return b.String()
}

func (m *Message) printStructure(b *strings.Builder, depth int) {
	indent := strings.Repeat("  ", depth)
	mime := "text/plain"
	if m.bdy != nil {
		mime = m.bdy.MimeType()
	}
	fmt.Fprintf(b, "%s%s (id=%s)\n", indent, mime, m.ID())
	if m.bdy == nil {
		return
	}
	switch c := m.bdy.RawContent().(type) {
	case body.MultipartContent:
		for _, part := range c.Parts {
			if sub, ok := part.(*Message); ok {
				sub.printStructure(b, depth+1)
			}
		}
	case body.NestedContent:
		if sub, ok := c.Child.(*Message); ok {
			sub.printStructure(b, depth+1)
		}
	}
}

// SenderAddress returns the parsed From mailbox, using address.ParseOne, for
// callers (e.g. Folder's append-with-From-line policy) that need a bare
// address rather than a display-name-qualified one.
func (m *Message) SenderAddress() (address.Address, error) {
	from, ok := m.head.Get("From", 0)
	if !ok {
		return address.Address{}, fmt.Errorf("message: no From field")
	}
	return from.Mailbox()
}
