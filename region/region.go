// Package region holds genomic intervals and named regions.
package region

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Interval is a 0-based half-open range [Start, End) of reference positions.
type Interval struct {
	Start int
	End   int
}

func (a Interval) Intersects(b Interval) bool {
	return a.Start < b.End && b.Start < a.End
}

func (a Interval) Len() int {
	return a.End - a.Start
}

func (a Interval) String() string {
	return fmt.Sprintf("[%d, %d)", a.Start, a.End)
}

// Unbounded is used for a region given by name only.
const Unbounded = 1<<31 - 1

// Region is a reference sequence name with an interval on it.
type Region struct {
	Name string
	Interval
}

// String formats the region in 1-based inclusive notation.
func (r Region) String() string {
	if r.Start == 0 && r.End == Unbounded {
		return r.Name
	}
	return fmt.Sprintf("%s:%d-%d", r.Name, r.Start+1, r.End)
}

var ErrInvalidRegion = errors.New("invalid region")

// Parse reads "name", "name:start" or "name:start-end" with 1-based
// inclusive coordinates.
func Parse(s string) (Region, error) {
	if s == "" {
		return Region{}, fmt.Errorf("%w: empty", ErrInvalidRegion)
	}
	i := strings.LastIndexByte(s, ':')
	if i < 0 {
		return Region{Name: s, Interval: Interval{0, Unbounded}}, nil
	}
	name, span := s[:i], strings.ReplaceAll(s[i+1:], ",", "")
	if name == "" {
		return Region{}, fmt.Errorf("%w: %q has no name", ErrInvalidRegion, s)
	}
	from, to, hasEnd := strings.Cut(span, "-")
	start, err := strconv.Atoi(from)
	if err != nil || start < 1 {
		return Region{}, fmt.Errorf("%w: bad start in %q", ErrInvalidRegion, s)
	}
	end := Unbounded
	if hasEnd {
		if end, err = strconv.Atoi(to); err != nil || end < start {
			return Region{}, fmt.Errorf("%w: bad end in %q", ErrInvalidRegion, s)
		}
	}
	return Region{Name: name, Interval: Interval{start - 1, end}}, nil
}
