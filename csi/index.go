// Package csi implements the hierarchical binning index shared by BAI,
// CSI and tabix files and answers region queries with lists of chunks.
package csi

import (
	"errors"
	"fmt"
	"slices"

	"github.com/nimezhu/hts/bgzf"
	"github.com/nimezhu/hts/header"
	"github.com/nimezhu/hts/region"
)

// BAI and tabix indexes use a fixed geometry.
const (
	BAIMinShift = 14
	BAIDepth    = 5

	// LinearWindowShift is the width of a linear index window, 16 kbp.
	LinearWindowShift = 14
)

var ErrUnknownReferenceSequence = errors.New("unknown reference sequence")

// Bin is a node of the binning tree. LOffset is only set by CSI indexes.
type Bin struct {
	ID      uint32
	LOffset bgzf.VirtualOffset
	Chunks  []bgzf.Chunk
}

// Metadata is the content of the pseudo-bin some indexers append to each
// reference sequence.
type Metadata struct {
	Start    bgzf.VirtualOffset
	End      bgzf.VirtualOffset
	Mapped   uint64
	Unmapped uint64
}

type ReferenceSequence struct {
	Bins map[uint32]*Bin
	// Intervals is the linear index: the smallest offset of a record
	// overlapping each 16 kbp window. Empty for CSI.
	Intervals []bgzf.VirtualOffset
	Metadata  *Metadata
}

// TabixHeader describes the text format a tabix or CSI index covers.
type TabixHeader struct {
	Format int32
	ColSeq int32
	ColBeg int32
	ColEnd int32
	Meta   byte
	Skip   int32
	Names  *header.StringMap
}

// Index is read-only once built and may be shared between goroutines.
type Index struct {
	minShift int
	depth    int
	refs     []ReferenceSequence
	// Header is nil for BAI.
	Header *TabixHeader
	// Unplaced is the number of records without a position, when known.
	Unplaced *uint64
}

func NewIndex(minShift, depth int, refs []ReferenceSequence) *Index {
	return &Index{minShift: minShift, depth: depth, refs: refs}
}

func (idx *Index) MinShift() int { return idx.minShift }
func (idx *Index) Depth() int    { return idx.depth }

func (idx *Index) ReferenceSequenceCount() int {
	return len(idx.refs)
}

func (idx *Index) ReferenceSequence(refID int) (*ReferenceSequence, error) {
	if refID < 0 || refID >= len(idx.refs) {
		return nil, fmt.Errorf("%w: %d of %d", ErrUnknownReferenceSequence, refID, len(idx.refs))
	}
	return &idx.refs[refID], nil
}

// BinsFor returns the chunks of every bin of a reference sequence, keyed by
// bin id. The metadata pseudo-bin is not included.
func (idx *Index) BinsFor(refID int) map[uint32][]bgzf.Chunk {
	if refID < 0 || refID >= len(idx.refs) {
		return nil
	}
	bins := make(map[uint32][]bgzf.Chunk, len(idx.refs[refID].Bins))
	for id, b := range idx.refs[refID].Bins {
		bins[id] = b.Chunks
	}
	return bins
}

// Query returns the ordered, merged chunks that may hold records of refID
// overlapping iv. A reference sequence without bins yields no chunks.
func (idx *Index) Query(refID int, iv region.Interval) ([]bgzf.Chunk, error) {
	ref, err := idx.ReferenceSequence(refID)
	if err != nil {
		return nil, err
	}
	if len(ref.Bins) == 0 {
		return []bgzf.Chunk{}, nil
	}
	var chunks []bgzf.Chunk
	for _, id := range Reg2Bins(iv.Start, iv.End, idx.minShift, idx.depth) {
		if b, ok := ref.Bins[id]; ok {
			chunks = append(chunks, b.Chunks...)
		}
	}
	return MergeChunks(chunks, ref.minOffset(iv.Start, idx.minShift, idx.depth)), nil
}

// minOffset is the smallest virtual offset a record overlapping a region
// starting at start can have.
func (ref *ReferenceSequence) minOffset(start, minShift, depth int) bgzf.VirtualOffset {
	if start < 0 {
		start = 0
	}
	if len(ref.Intervals) > 0 {
		i := start >> LinearWindowShift
		if i >= len(ref.Intervals) {
			i = len(ref.Intervals) - 1
		}
		return ref.Intervals[i]
	}
	if start >= MaxPosition(minShift, depth) {
		return 0
	}
	bin := levelOffset(depth) + uint32(start>>minShift)
	for {
		if b, ok := ref.Bins[bin]; ok {
			return b.LOffset
		}
		if bin == 0 {
			return 0
		}
		bin = parent(bin)
	}
}

// BinIndex is a binning index parsed elsewhere.
type BinIndex interface {
	ReferenceSequenceCount() int
	BinsFor(refID int) map[uint32][]bgzf.Chunk
	MinShift() int
	Depth() int
}

// QueryBins runs a region query against any BinIndex, without offset
// pruning.
func QueryBins(idx BinIndex, refID int, iv region.Interval) ([]bgzf.Chunk, error) {
	if n := idx.ReferenceSequenceCount(); refID < 0 || refID >= n {
		return nil, fmt.Errorf("%w: %d of %d", ErrUnknownReferenceSequence, refID, n)
	}
	bins := idx.BinsFor(refID)
	if len(bins) == 0 {
		return []bgzf.Chunk{}, nil
	}
	var chunks []bgzf.Chunk
	for _, id := range Reg2Bins(iv.Start, iv.End, idx.MinShift(), idx.Depth()) {
		chunks = append(chunks, bins[id]...)
	}
	return MergeChunks(chunks, 0), nil
}

// MergeChunks drops chunks ending at or before floor, sorts the rest by
// start and coalesces overlapping or adjacent ones. The input is not
// modified.
func MergeChunks(chunks []bgzf.Chunk, floor bgzf.VirtualOffset) []bgzf.Chunk {
	kept := make([]bgzf.Chunk, 0, len(chunks))
	for _, c := range chunks {
		if c.End > floor {
			kept = append(kept, c)
		}
	}
	slices.SortFunc(kept, func(a, b bgzf.Chunk) int {
		if c := a.Start.Compare(b.Start); c != 0 {
			return c
		}
		return a.End.Compare(b.End)
	})
	merged := kept[:0]
	for _, c := range kept {
		if n := len(merged); n > 0 && c.Start <= merged[n-1].End {
			if c.End > merged[n-1].End {
				merged[n-1].End = c.End
			}
			continue
		}
		merged = append(merged, c)
	}
	return merged
}
