// Package vcf holds VCF record semantics shared by the text and BCF forms.
package vcf

import (
	"errors"
	"fmt"
	"strings"
)

const PassStatus = "PASS"

var (
	ErrEmptyFilters    = errors.New("empty filters")
	ErrDuplicateFilter = errors.New("duplicate filter")
	ErrInvalidFilter   = errors.New("invalid filter")
)

// Filters is the FILTER column of a record. The zero value passed all
// filters; otherwise it lists the filters that failed, in order.
type Filters struct {
	failed []string
}

var Pass = Filters{}

// NewFilters builds a filter set from names. A set of exactly PASS is Pass.
func NewFilters(names ...string) (Filters, error) {
	if len(names) == 0 {
		return Filters{}, ErrEmptyFilters
	}
	seen := make(map[string]struct{}, len(names))
	for _, s := range names {
		if _, ok := seen[s]; ok {
			return Filters{}, fmt.Errorf("%w: %q", ErrDuplicateFilter, s)
		}
		seen[s] = struct{}{}
		if !validFilter(s) {
			return Filters{}, fmt.Errorf("%w: %q", ErrInvalidFilter, s)
		}
	}
	if len(names) == 1 && names[0] == PassStatus {
		return Pass, nil
	}
	return Filters{failed: append([]string(nil), names...)}, nil
}

// ParseFilters reads the text form, such as "PASS" or "q10;s50".
func ParseFilters(s string) (Filters, error) {
	if s == "" || s == "." {
		return Filters{}, ErrEmptyFilters
	}
	return NewFilters(strings.Split(s, ";")...)
}

func validFilter(s string) bool {
	if s == "" || s == "0" {
		return false
	}
	return !strings.ContainsAny(s, " \t\n\v\f\r")
}

func (f Filters) Passed() bool {
	return len(f.failed) == 0
}

// Failed returns the failing filter names, or nil for Pass.
func (f Filters) Failed() []string {
	return f.failed
}

// Names returns the names as stored in a record: PASS alone, or the
// failing filters.
func (f Filters) Names() []string {
	if f.Passed() {
		return []string{PassStatus}
	}
	return f.failed
}

func (f Filters) String() string {
	return strings.Join(f.Names(), ";")
}
