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

package header

import "strings"

// ResentGroup is a contiguous block of header fields describing one
// "resend" hop: an optional Return-Path, an optional Delivered-To, one
// Received, then zero or more Resent-* fields.
type ResentGroup struct {
	ReturnPath  *Field
	DeliveredTo *Field
	Received    *Field
	Resent      []Field
}

// ResentGroups partitions the header's live fields into groups, each
// starting at a Received field. The most recently added group (the one
// physically first in header order, since AddResentGroup inserts at the
// top) is returned first, matching the "most recent group appears first by
// convention" rule.
func (h *Header) ResentGroups() []ResentGroup {
	fields := h.Fields()

	var groups []ResentGroup
	var cur *ResentGroup
	var pendingReturnPath, pendingDeliveredTo *Field

	flush := func() {
		if cur != nil {
			groups = append(groups, *cur)
			cur = nil
		}
	}

	for i := range fields {
		f := fields[i]
		switch f.name {
		case "return-path":
			flush()
			pendingReturnPath = &fields[i]
		case "delivered-to":
			pendingDeliveredTo = &fields[i]
		case "received":
			flush()
			g := ResentGroup{Received: &fields[i], ReturnPath: pendingReturnPath, DeliveredTo: pendingDeliveredTo}
			pendingReturnPath, pendingDeliveredTo = nil, nil
			cur = &g
		default:
			if cur != nil && strings.HasPrefix(f.name, "resent-") {
				cur.Resent = append(cur.Resent, f)
			}
		}
	}
	flush()

	return groups
}

// AddResentGroup inserts group's fields at the very top of the header (so
// it becomes the most recent group), in Return-Path, Delivered-To,
// Received, Resent-* order.
func (h *Header) AddResentGroup(group ResentGroup) {
	var block []Field
	if group.ReturnPath != nil {
		block = append(block, *group.ReturnPath)
	}
	if group.DeliveredTo != nil {
		block = append(block, *group.DeliveredTo)
	}
	if group.Received != nil {
		block = append(block, *group.Received)
	}
	block = append(block, group.Resent...)

	h.ensureSlots()
	old := h.fields
	h.fields = append(append([]Field{}, block...), old...)

	// Rebuild slots from scratch: every index shifted by len(block).
	h.slots = make(map[string][]int)
	for i, f := range h.fields {
		if f.name == "" {
			continue
		}
		h.slots[f.name] = append(h.slots[f.name], i)
	}
	h.markModified()
}
