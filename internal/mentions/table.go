package mentions

import "sort"

// FrequencyTable maps version-independent identifiers to the number of
// distinct search results that referenced them. First-seen order breaks
// count ties in Keys and Sorted.
//
// A FrequencyTable is not safe for concurrent mutation; tables returned by
// Counter are never mutated again and may be shared freely.
type FrequencyTable struct {
	counts map[string]int
	order  []string
}

// NewFrequencyTable returns an empty table.
func NewFrequencyTable() *FrequencyTable {
	return &FrequencyTable{counts: make(map[string]int)}
}

// Add increments the count for id by one.
func (t *FrequencyTable) Add(id string) {
	if _, ok := t.counts[id]; !ok {
		t.order = append(t.order, id)
	}
	t.counts[id]++
}

// AddResult counts one search result: each id in ids contributes at most
// once regardless of how often it repeats.
func (t *FrequencyTable) AddResult(ids []string) {
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		t.Add(id)
	}
}

// Get returns the count for id, or zero when it was never seen.
func (t *FrequencyTable) Get(id string) int {
	if t == nil {
		return 0
	}
	return t.counts[id]
}

// Keys returns every counted identifier by descending count, in the same
// order as Sorted.
func (t *FrequencyTable) Keys() []string {
	if t == nil {
		return nil
	}
	entries := t.Sorted()
	keys := make([]string, len(entries))
	for i, e := range entries {
		keys[i] = e.ID
	}
	return keys
}

// Len returns the number of distinct identifiers.
func (t *FrequencyTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.order)
}

// Entry is one row of a sorted table.
type Entry struct {
	ID    string
	Count int
}

// Sorted returns the table by descending count. Equal counts keep
// first-seen order.
func (t *FrequencyTable) Sorted() []Entry {
	if t == nil {
		return nil
	}
	entries := make([]Entry, 0, len(t.order))
	for _, id := range t.order {
		entries = append(entries, Entry{ID: id, Count: t.counts[id]})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Count > entries[j].Count
	})
	return entries
}
