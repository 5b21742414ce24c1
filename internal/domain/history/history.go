// Package history keeps the bounded, most-recent-first list of products a
// shopper has viewed.
package history

import "time"

// Capacity is the maximum number of entries a History retains.
const Capacity = 20

// Entry records a single product view.
type Entry struct {
	ProductID   string
	ProductName string
	Category    string
	ImageRef    string
	ViewedAt    time.Time
}

// History is an ordered list of product views, most recent first, holding at
// most one entry per product.
//
// History is not safe for concurrent use.
type History struct {
	entries []Entry
}

// New returns an empty History.
func New() *History {
	return &History{}
}

// FromEntries rebuilds a History from a previously listed sequence. Order is
// preserved, later duplicates are dropped and the result is truncated to
// Capacity.
func FromEntries(entries []Entry) *History {
	h := New()
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if len(h.entries) == Capacity {
			break
		}
		if _, ok := seen[e.ProductID]; ok {
			continue
		}
		seen[e.ProductID] = struct{}{}
		h.entries = append(h.entries, e)
	}
	return h
}

// Record moves or inserts e at the front of the history.
func (h *History) Record(e Entry) {
	for i := range h.entries {
		if h.entries[i].ProductID == e.ProductID {
			h.entries = append(h.entries[:i], h.entries[i+1:]...)
			break
		}
	}
	h.entries = append(h.entries, Entry{})
	copy(h.entries[1:], h.entries)
	h.entries[0] = e
	if len(h.entries) > Capacity {
		h.entries = h.entries[:Capacity]
	}
}

// List returns a copy of the entries, most recent first.
func (h *History) List() []Entry {
	out := make([]Entry, len(h.entries))
	copy(out, h.entries)
	return out
}

// Len returns the number of entries.
func (h *History) Len() int {
	return len(h.entries)
}

// Clear removes every entry.
func (h *History) Clear() {
	h.entries = h.entries[:0]
}
