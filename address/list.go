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

package address

import (
	"errors"
	"fmt"
	"strings"
)

// Address is a single RFC 5322 mailbox: an optional display name plus an
// addr-spec, modeled on the address-list grammar in RFC 5322 §3.4 and
// scanned in the same hand-rolled style as Split/UnquoteMbox.
type Address struct {
	// DisplayName is the phrase before the angle-addr, already unquoted
	// and RFC 2047 decoded by the caller (header.Field is responsible for
	// decoding; this package only knows raw RFC 5322 syntax).
	DisplayName string
	// Mailbox is the full addr-spec, e.g. "anna@example.org".
	Mailbox string
}

func (a Address) String() string {
	if a.DisplayName == "" {
		return a.Mailbox
	}
	name := a.DisplayName
	if strings.ContainsAny(name, "()<>[]:;@\\,.\"") {
		name = QuoteMbox(name)
	}
	return name + " <" + a.Mailbox + ">"
}

// Valid reports whether the mailbox is a well-formed addr-spec per Valid's
// RFC 5321 rules. ParseList already rejects malformed mailboxes, so this
// is mostly useful on an Address built by hand.
func (a Address) Valid() bool {
	return Valid(a.Mailbox)
}

// Group is a named RFC 5322 group construct, e.g. "undisclosed-recipients:;"
// or "Engineering: alice@x, bob@x;". A bare address list has no groups; its
// addresses are returned with Group == "" by ParseList.
type Group struct {
	Name      string
	Addresses []Address
}

// ParseList parses the value of an address-list field (To, Cc, Bcc,
// Reply-To; From/Sender go through ParseOne one mailbox at a time) into
// its constituent groups. Ungrouped addresses
// are returned as a single Group with an empty Name, mirroring how RFC 5322
// treats a bare mailbox-list as an implicit unnamed group.
func ParseList(s string) ([]Group, error) {
	p := &listParser{s: s}
	return p.parse()
}

// ParseOne parses s as exactly one mailbox, for fields (From without
// multiple authors, Sender, Resent-Sender) that RFC 5322 restricts to a
// single mailbox rather than a list.
func ParseOne(s string) (Address, error) {
	groups, err := ParseList(s)
	if err != nil {
		return Address{}, err
	}
	for _, g := range groups {
		if len(g.Addresses) > 0 {
			return g.Addresses[0], nil
		}
	}
	return Address{}, errors.New("address: no mailbox found")
}

type listParser struct {
	s   string
	pos int
}

func (p *listParser) parse() ([]Group, error) {
	var groups []Group
	var loose []Address

	for {
		p.skipSpace()
		if p.pos >= len(p.s) {
			break
		}

		name, addrs, isGroup, err := p.parseEntry()
		if err != nil {
			return nil, err
		}
		if isGroup {
			groups = append(groups, Group{Name: name, Addresses: addrs})
		} else {
			loose = append(loose, addrs...)
		}

		p.skipSpace()
		if p.pos >= len(p.s) {
			break
		}
		if p.s[p.pos] == ',' {
			p.pos++
			continue
		}
		break
	}

	if len(loose) > 0 || len(groups) == 0 {
		groups = append([]Group{{Addresses: loose}}, groups...)
	}
	return groups, nil
}

// parseEntry parses either "display-name: mailbox-list;" (a group) or a
// single "display-name <addr-spec>" / "addr-spec" mailbox, returning the
// addresses found and whether it was a group construct.
func (p *listParser) parseEntry() (name string, addrs []Address, isGroup bool, err error) {
	start := p.pos
	phrase, hasAngle, hasColon := p.scanPhraseBoundary()

	switch {
	case hasColon:
		// group: "Name: a@x, b@y;"
		groupName := strings.TrimSpace(phrase)
		p.pos = start + len(phrase) + 1 // skip past ':'
		var members []Address
		for {
			p.skipSpace()
			if p.pos >= len(p.s) {
				break
			}
			if p.s[p.pos] == ';' {
				p.pos++
				break
			}
			a, err := p.parseMailbox()
			if err != nil {
				return "", nil, false, err
			}
			members = append(members, a)
			p.skipSpace()
			if p.pos < len(p.s) && p.s[p.pos] == ',' {
				p.pos++
				continue
			}
		}
		return groupName, members, true, nil

	case hasAngle:
		p.pos = start
		a, err := p.parseMailbox()
		if err != nil {
			return "", nil, false, err
		}
		return "", []Address{a}, false, err

	default:
		p.pos = start
		a, err := p.parseMailbox()
		if err != nil {
			return "", nil, false, err
		}
		return "", []Address{a}, false, nil
	}
}

// scanPhraseBoundary looks ahead (without consuming) from the current
// position to the next unquoted ',', ':', or '<'/end, to decide whether
// this entry is a group (":") or a mailbox ("<" or none of the above).
func (p *listParser) scanPhraseBoundary() (phrase string, hasAngle, hasColon bool) {
	inQuotes := false
	i := p.pos
	for i < len(p.s) {
		ch := p.s[i]
		switch {
		case ch == '"' && (i == p.pos || p.s[i-1] != '\\'):
			inQuotes = !inQuotes
		case inQuotes:
			// skip
		case ch == ':':
			return p.s[p.pos:i], false, true
		case ch == '<':
			return p.s[p.pos:i], true, false
		case ch == ',':
			return p.s[p.pos:i], false, false
		}
		i++
	}
	return p.s[p.pos:], false, false
}

// parseMailbox parses a single "[display-name] addr-spec" or
// "[display-name] <addr-spec>" mailbox starting at the current position,
// advancing past it.
func (p *listParser) parseMailbox() (Address, error) {
	p.skipSpace()
	start := p.pos

	angleStart := -1
	inQuotes := false
	i := p.pos
	for i < len(p.s) {
		ch := p.s[i]
		switch {
		case ch == '"' && (i == p.pos || p.s[i-1] != '\\'):
			inQuotes = !inQuotes
		case inQuotes:
		case ch == '<':
			angleStart = i
		case ch == ',' || ch == ';':
			goto scanned
		}
		i++
	}
scanned:
	entry := strings.TrimSpace(p.s[start:i])
	p.pos = i

	if angleStart == -1 {
		// bare addr-spec, no display name
		addr := strings.TrimSpace(entry)
		if addr == "" {
			return Address{}, errors.New("address: empty mailbox")
		}
		if !Valid(addr) {
			return Address{}, fmt.Errorf("address: invalid addr-spec %q", addr)
		}
		return Address{Mailbox: addr}, nil
	}

	display := strings.TrimSpace(p.s[start:angleStart])
	display = unquotePhrase(display)
	closeIdx := strings.IndexByte(p.s[angleStart:i], '>')
	if closeIdx == -1 {
		return Address{}, errors.New("address: unterminated angle-addr")
	}
	addr := strings.TrimSpace(p.s[angleStart+1 : angleStart+closeIdx])
	if !Valid(addr) {
		return Address{}, fmt.Errorf("address: invalid addr-spec %q", addr)
	}
	return Address{DisplayName: display, Mailbox: addr}, nil
}

func (p *listParser) skipSpace() {
	for p.pos < len(p.s) && (p.s[p.pos] == ' ' || p.s[p.pos] == '\t' || p.s[p.pos] == '\n' || p.s[p.pos] == '\r') {
		p.pos++
	}
}

func unquotePhrase(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		inner := s[1 : len(s)-1]
		var b strings.Builder
		for i := 0; i < len(inner); i++ {
			if inner[i] == '\\' && i+1 < len(inner) {
				i++
			}
			b.WriteByte(inner[i])
		}
		return b.String()
	}
	return s
}
