package csi

// MaxPosition is one past the largest position a binning scheme covers.
func MaxPosition(minShift, depth int) int {
	return 1 << (minShift + 3*depth)
}

// BinCount is the number of real bins in a tree of the given depth.
func BinCount(depth int) uint32 {
	return levelOffset(depth + 1)
}

// MetadataBinID is the id of the pseudo-bin holding per-reference counts.
func MetadataBinID(depth int) uint32 {
	return BinCount(depth) + 1
}

// levelOffset is the id of the first bin on a level.
func levelOffset(level int) uint32 {
	return uint32((1<<(3*level) - 1) / 7)
}

func parent(bin uint32) uint32 {
	return (bin - 1) >> 3
}

// Reg2Bin returns the smallest bin fully containing [start, end).
func Reg2Bin(start, end, minShift, depth int) uint32 {
	if end <= start {
		end = start + 1
	}
	end--
	s := minShift
	for l := depth; l > 0; l-- {
		if start>>s == end>>s {
			return levelOffset(l) + uint32(start>>s)
		}
		s += 3
	}
	return 0
}

// Reg2Bins returns the ids of every bin that may hold a record overlapping
// [start, end), level by level from the root. Positions beyond the scheme's
// range are clamped; an empty interval has no bins.
func Reg2Bins(start, end, minShift, depth int) []uint32 {
	if start < 0 {
		start = 0
	}
	if limit := MaxPosition(minShift, depth); end > limit {
		end = limit
	}
	if start >= end {
		return nil
	}
	end--
	var bins []uint32
	s := minShift + 3*depth
	for l := 0; l <= depth; l++ {
		t := levelOffset(l)
		for b := t + uint32(start>>s); b <= t+uint32(end>>s); b++ {
			bins = append(bins, b)
		}
		s -= 3
	}
	return bins
}
