package core

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Mapping groups lab test names under category labels.
//
// Categories keep first-appearance order and tests keep insertion order, so
// a seeded generator picks the same values every time it sees the same
// mapping. Every category holds at least one test and a (category, test)
// pair is stored once.
type Mapping struct {
	order []string
	tests map[string][]string
}

// Pair is one (category, test) entry, the row shape of the config CSV.
type Pair struct {
	Category string `json:"category"`
	Test     string `json:"test"`
}

// NewMapping returns an empty mapping.
func NewMapping() *Mapping {
	return &Mapping{tests: make(map[string][]string)}
}

// MappingFromPairs builds a mapping from pairs in order. Blank names are
// rejected; duplicate pairs are dropped.
func MappingFromPairs(pairs []Pair) (*Mapping, error) {
	m := NewMapping()
	for i, p := range pairs {
		if err := m.Add(p.Category, p.Test); err != nil {
			return nil, fmt.Errorf("pair %d: %w", i+1, err)
		}
	}
	if m.Len() == 0 {
		return nil, ErrEmptyMapping
	}
	return m, nil
}

// Add appends test to category, creating the category on first use.
// Names are trimmed; adding an existing pair is a no-op.
func (m *Mapping) Add(category, test string) error {
	if m.tests == nil {
		m.tests = make(map[string][]string)
	}
	category = strings.TrimSpace(category)
	test = strings.TrimSpace(test)
	if category == "" {
		return fmt.Errorf("category: %w", ErrEmptyCell)
	}
	if test == "" {
		return fmt.Errorf("test for category %q: %w", category, ErrEmptyCell)
	}

	existing, ok := m.tests[category]
	if !ok {
		m.order = append(m.order, category)
	}
	for _, t := range existing {
		if t == test {
			return nil
		}
	}
	m.tests[category] = append(existing, test)
	return nil
}

// Categories returns category names in mapping order.
func (m *Mapping) Categories() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// Tests returns the tests of category in order, or nil if it does not exist.
func (m *Mapping) Tests(category string) []string {
	tests, ok := m.tests[category]
	if !ok {
		return nil
	}
	out := make([]string, len(tests))
	copy(out, tests)
	return out
}

// Has reports whether test belongs to category.
func (m *Mapping) Has(category, test string) bool {
	for _, t := range m.tests[category] {
		if t == test {
			return true
		}
	}
	return false
}

// Len returns the number of categories.
func (m *Mapping) Len() int {
	return len(m.order)
}

// PairCount returns the number of (category, test) pairs.
func (m *Mapping) PairCount() int {
	n := 0
	for _, tests := range m.tests {
		n += len(tests)
	}
	return n
}

// Pairs flattens the mapping in order.
func (m *Mapping) Pairs() []Pair {
	pairs := make([]Pair, 0, m.PairCount())
	for _, c := range m.order {
		for _, t := range m.tests[c] {
			pairs = append(pairs, Pair{Category: c, Test: t})
		}
	}
	return pairs
}

// Map returns a plain map copy, the shape shown to users.
func (m *Mapping) Map() map[string][]string {
	out := make(map[string][]string, len(m.order))
	for _, c := range m.order {
		out[c] = m.Tests(c)
	}
	return out
}

// MarshalJSON encodes the mapping as an ordered list of
// {"category": ..., "tests": [...]} objects.
func (m *Mapping) MarshalJSON() ([]byte, error) {
	type entry struct {
		Category string   `json:"category"`
		Tests    []string `json:"tests"`
	}
	entries := make([]entry, 0, len(m.order))
	for _, c := range m.order {
		entries = append(entries, entry{Category: c, Tests: m.tests[c]})
	}
	return json.Marshal(entries)
}

// UnmarshalJSON accepts either the ordered list form written by MarshalJSON
// or a plain {"category": ["test", ...]} object. Object keys have no order
// in JSON, so the object form sorts categories by name.
func (m *Mapping) UnmarshalJSON(data []byte) error {
	fresh := NewMapping()

	var entries []struct {
		Category string   `json:"category"`
		Tests    []string `json:"tests"`
	}
	if err := json.Unmarshal(data, &entries); err == nil {
		for _, e := range entries {
			if len(e.Tests) == 0 {
				return fmt.Errorf("category %q has no tests: %w", e.Category, ErrEmptyCell)
			}
			for _, t := range e.Tests {
				if err := fresh.Add(e.Category, t); err != nil {
					return err
				}
			}
		}
		*m = *fresh
		return nil
	}

	var plain map[string][]string
	if err := json.Unmarshal(data, &plain); err != nil {
		return fmt.Errorf("invalid request: mapping must be a list or an object: %w", err)
	}
	for _, c := range sortedKeys(plain) {
		if len(plain[c]) == 0 {
			return fmt.Errorf("category %q has no tests: %w", c, ErrEmptyCell)
		}
		for _, t := range plain[c] {
			if err := fresh.Add(c, t); err != nil {
				return err
			}
		}
	}
	*m = *fresh
	return nil
}
