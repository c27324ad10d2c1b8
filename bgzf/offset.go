package bgzf

import "fmt"

const (
	blockOffsetBits = 48
	withinBlockBits = 16

	maxBlockOffset = 1<<blockOffsetBits - 1
)

// VirtualOffset addresses a byte in the decompressed stream of a BGZF file.
// The high 48 bits hold the offset of a compressed block from the start of
// the file, the low 16 bits the offset inside the decompressed block.
type VirtualOffset uint64

// NewVirtualOffset packs a block offset and a within-block offset. Block
// offsets wider than 48 bits are masked.
func NewVirtualOffset(block uint64, within uint16) VirtualOffset {
	return VirtualOffset((block&maxBlockOffset)<<withinBlockBits | uint64(within))
}

func (v VirtualOffset) BlockOffset() uint64 {
	return uint64(v) >> withinBlockBits
}

func (v VirtualOffset) WithinBlock() uint16 {
	return uint16(v & 0xffff)
}

func (v VirtualOffset) Less(o VirtualOffset) bool {
	return v < o
}

// Compare returns -1, 0 or +1.
func (v VirtualOffset) Compare(o VirtualOffset) int {
	switch {
	case v < o:
		return -1
	case v > o:
		return 1
	}
	return 0
}

func (v VirtualOffset) String() string {
	return fmt.Sprintf("%d:%d", v.BlockOffset(), v.WithinBlock())
}

// Chunk is a half-open range [Start, End) of virtual offsets.
type Chunk struct {
	Start VirtualOffset
	End   VirtualOffset
}

func (c Chunk) Contains(v VirtualOffset) bool {
	return c.Start <= v && v < c.End
}

// Overlaps reports whether the two chunks share a position or touch.
// Touching chunks can be read as one.
func (c Chunk) Overlaps(o Chunk) bool {
	return c.Start <= o.End && o.Start <= c.End
}

func (c Chunk) String() string {
	return fmt.Sprintf("[%v, %v)", c.Start, c.End)
}
