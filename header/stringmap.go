// Package header holds the string dictionaries that binary records use to
// refer to contigs and to FILTER/INFO/FORMAT identifiers by index.
package header

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownIdentifier reports a string missing from a dictionary or an
	// index outside of it.
	ErrUnknownIdentifier   = errors.New("unknown identifier")
	ErrDuplicateIdentifier = errors.New("duplicate identifier")
)

// Dictionary resolves identifiers to indices and back.
type Dictionary interface {
	IndexOf(s string) (int, bool)
	StringAt(i int) (string, bool)
}

// StringMap is an ordered set of unique strings. The position of a string
// is its index. A StringMap is built once per header and must not change
// while records are encoded or decoded against it.
type StringMap struct {
	entries []string
	index   map[string]int
}

// NewStringMap builds a map holding ss in order.
func NewStringMap(ss ...string) (*StringMap, error) {
	m := &StringMap{index: make(map[string]int, len(ss))}
	for _, s := range ss {
		if s == "" {
			return nil, errors.New("empty string map entry")
		}
		if _, ok := m.Insert(s); !ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateIdentifier, s)
		}
	}
	return m, nil
}

// Insert appends s and returns its index. When s is already present the
// existing index is returned with ok set to false.
func (m *StringMap) Insert(s string) (i int, ok bool) {
	if m.index == nil {
		m.index = make(map[string]int)
	}
	if i, found := m.index[s]; found {
		return i, false
	}
	i = len(m.entries)
	m.entries = append(m.entries, s)
	m.index[s] = i
	return i, true
}

// Set places s at index i, leaving unset positions as holes.
func (m *StringMap) Set(i int, s string) error {
	if i < 0 || s == "" {
		return fmt.Errorf("invalid string map entry %d=%q", i, s)
	}
	if m.index == nil {
		m.index = make(map[string]int)
	}
	if j, found := m.index[s]; found {
		if j == i {
			return nil
		}
		return fmt.Errorf("%w: %q at %d and %d", ErrDuplicateIdentifier, s, j, i)
	}
	for len(m.entries) <= i {
		m.entries = append(m.entries, "")
	}
	if m.entries[i] != "" {
		return fmt.Errorf("%w: index %d holds %q, not %q", ErrDuplicateIdentifier, i, m.entries[i], s)
	}
	m.entries[i] = s
	m.index[s] = i
	return nil
}

func (m *StringMap) IndexOf(s string) (int, bool) {
	i, ok := m.index[s]
	return i, ok
}

func (m *StringMap) StringAt(i int) (string, bool) {
	if i < 0 || i >= len(m.entries) || m.entries[i] == "" {
		return "", false
	}
	return m.entries[i], true
}

// Len is one past the largest index.
func (m *StringMap) Len() int {
	return len(m.entries)
}

// Strings returns a copy of the entries in index order.
func (m *StringMap) Strings() []string {
	return append([]string(nil), m.entries...)
}

// Lookup is IndexOf with an ErrUnknownIdentifier error on a miss.
func Lookup(d Dictionary, s string) (int, error) {
	i, ok := d.IndexOf(s)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownIdentifier, s)
	}
	return i, nil
}

// Resolve is StringAt with an ErrUnknownIdentifier error on a miss.
func Resolve(d Dictionary, i int) (string, error) {
	s, ok := d.StringAt(i)
	if !ok {
		return "", fmt.Errorf("%w: index %d", ErrUnknownIdentifier, i)
	}
	return s, nil
}
