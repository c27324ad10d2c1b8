package csi

import (
	"bytes"
	"encoding/binary"
	"io"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimezhu/hts/bgzf"
	"github.com/nimezhu/hts/region"
)

func vo(block uint64) bgzf.VirtualOffset {
	return bgzf.NewVirtualOffset(block, 0)
}

func chunk(start, end uint64) bgzf.Chunk {
	return bgzf.Chunk{Start: vo(start), End: vo(end)}
}

func TestReg2Bins(t *testing.T) {
	require.Equal(t, []uint32{0, 1, 9, 73, 585, 4681}, Reg2Bins(0, 1, BAIMinShift, BAIDepth))
	require.Equal(t, []uint32{0, 1, 9, 73, 585, 4681, 4682}, Reg2Bins(0, 1<<14+1, BAIMinShift, BAIDepth))
	require.Empty(t, Reg2Bins(10, 10, BAIMinShift, BAIDepth))
	require.Empty(t, Reg2Bins(MaxPosition(BAIMinShift, BAIDepth), region.Unbounded, BAIMinShift, BAIDepth))

	require.Equal(t, uint32(4681), Reg2Bin(0, 1, BAIMinShift, BAIDepth))
	require.Equal(t, uint32(585), Reg2Bin(0, 1<<14+1, BAIMinShift, BAIDepth))
	require.Equal(t, uint32(0), Reg2Bin(0, 1<<29, BAIMinShift, BAIDepth))

	require.Equal(t, uint32(37449), BinCount(BAIDepth))
	require.Equal(t, uint32(37450), MetadataBinID(BAIDepth))
	require.Equal(t, 1<<29, MaxPosition(BAIMinShift, BAIDepth))
}

func TestMergeChunks(t *testing.T) {
	in := []bgzf.Chunk{chunk(30, 40), chunk(1, 5), chunk(10, 20), chunk(5, 8), chunk(15, 25)}
	got := MergeChunks(in, vo(2))
	// the first chunk ends after the floor, so it stays
	require.Equal(t, []bgzf.Chunk{chunk(1, 8), chunk(10, 25), chunk(30, 40)}, got)
	require.Equal(t, chunk(30, 40), in[0], "input untouched")

	got = MergeChunks(in, vo(8))
	require.Equal(t, []bgzf.Chunk{chunk(10, 25), chunk(30, 40)}, got)

	require.Empty(t, MergeChunks(nil, 0))
}

type le struct{ bytes.Buffer }

func (b *le) put(vs ...any) *le {
	for _, v := range vs {
		if err := binary.Write(&b.Buffer, binary.LittleEndian, v); err != nil {
			panic(err)
		}
	}
	return b
}

// linearRefs writes two reference sequences: one with two leaf bins, a
// metadata bin and a linear index, one empty.
func linearRefs(b *le) {
	b.put(int32(4))
	b.put(uint32(4681), int32(1), vo(100), vo(200))
	b.put(uint32(4682), int32(1), vo(200), vo(300))
	b.put(uint32(37450), int32(2), vo(100), vo(300), uint64(10), uint64(2))
	b.put(uint32(0), int32(0))
	b.put(int32(2), vo(100), vo(200))

	b.put(int32(0), int32(0))
}

func baiFixture() []byte {
	b := &le{}
	b.WriteString("BAI\x01")
	b.put(int32(2))
	linearRefs(b)
	b.put(uint64(7))
	return b.Bytes()
}

func TestReadBAI(t *testing.T) {
	idx, err := ReadBAI(bytes.NewReader(baiFixture()))
	require.NoError(t, err)
	require.Equal(t, 2, idx.ReferenceSequenceCount())
	require.Nil(t, idx.Header)
	require.NotNil(t, idx.Unplaced)
	assert.Equal(t, uint64(7), *idx.Unplaced)

	ref, err := idx.ReferenceSequence(0)
	require.NoError(t, err)
	require.Len(t, ref.Bins, 3)
	require.Equal(t, &Metadata{Start: vo(100), End: vo(300), Mapped: 10, Unmapped: 2}, ref.Metadata)

	_, err = idx.ReferenceSequence(2)
	require.ErrorIs(t, err, ErrUnknownReferenceSequence)
}

func TestIndexQuery(t *testing.T) {
	idx, err := ReadBAI(bytes.NewReader(baiFixture()))
	require.NoError(t, err)

	tests := []struct {
		name string
		iv   region.Interval
		want []bgzf.Chunk
	}{
		{"first window", region.Interval{Start: 0, End: 10}, []bgzf.Chunk{chunk(100, 200)}},
		{"adjacent bins merge", region.Interval{Start: 0, End: 20000}, []bgzf.Chunk{chunk(100, 300)}},
		{"linear index prunes", region.Interval{Start: 16384, End: 20000}, []bgzf.Chunk{chunk(200, 300)}},
		{"no bins", region.Interval{Start: 1 << 20, End: 1<<20 + 10}, []bgzf.Chunk{}},
		{"past the scheme", region.Interval{Start: 1 << 30, End: region.Unbounded}, []bgzf.Chunk{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := idx.Query(0, tt.iv)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}

	got, err := idx.Query(1, region.Interval{Start: 0, End: 100})
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Empty(t, got)

	_, err = idx.Query(2, region.Interval{Start: 0, End: 100})
	require.ErrorIs(t, err, ErrUnknownReferenceSequence)
	_, err = idx.Query(-1, region.Interval{Start: 0, End: 100})
	require.ErrorIs(t, err, ErrUnknownReferenceSequence)
}

func TestQueryBins(t *testing.T) {
	idx, err := ReadBAI(bytes.NewReader(baiFixture()))
	require.NoError(t, err)

	var bi BinIndex = idx
	got, err := QueryBins(bi, 0, region.Interval{Start: 16384, End: 20000})
	require.NoError(t, err)
	require.Equal(t, []bgzf.Chunk{chunk(200, 300)}, got)

	got, err = QueryBins(bi, 1, region.Interval{Start: 0, End: 1})
	require.NoError(t, err)
	require.Empty(t, got)

	_, err = QueryBins(bi, 5, region.Interval{Start: 0, End: 1})
	require.ErrorIs(t, err, ErrUnknownReferenceSequence)
}

func TestReadCSI(t *testing.T) {
	b := &le{}
	b.WriteString("CSI\x01")
	b.put(int32(14), int32(5), int32(0))
	b.put(int32(1), int32(2))
	b.put(uint32(0), vo(0), int32(1), vo(50), vo(60))
	b.put(uint32(4681), vo(150), int32(1), vo(100), vo(200))

	idx, err := ReadCSI(bytes.NewReader(b.Bytes()))
	require.NoError(t, err)
	require.Nil(t, idx.Unplaced)

	// the leaf's loffset drops the root chunk
	got, err := idx.Query(0, region.Interval{Start: 0, End: 10})
	require.NoError(t, err)
	require.Equal(t, []bgzf.Chunk{chunk(100, 200)}, got)

	// no leaf bin: loffset comes from the nearest ancestor present
	got, err = idx.Query(0, region.Interval{Start: 16384, End: 16390})
	require.NoError(t, err)
	require.Equal(t, []bgzf.Chunk{chunk(50, 60)}, got)
}

func TestOpenTabix(t *testing.T) {
	b := &le{}
	b.WriteString("TBI\x01")
	b.put(int32(2), int32(2), int32(1), int32(4), int32(5), int32('#'), int32(0))
	names := "sq0\x00sq1\x00"
	b.put(int32(len(names)))
	b.WriteString(names)
	linearRefs(b)

	var buf bytes.Buffer
	w := bgzf.NewWriter(&buf)
	_, err := w.Write(b.Bytes())
	require.NoError(t, err)
	require.NoError(t, w.Close())

	idx, err := Open(&buf)
	require.NoError(t, err)
	require.NotNil(t, idx.Header)
	require.Equal(t, byte('#'), idx.Header.Meta)
	require.Equal(t, []string{"sq0", "sq1"}, idx.Header.Names.Strings())

	got, err := idx.Query(0, region.Interval{Start: 0, End: 10})
	require.NoError(t, err)
	require.Equal(t, []bgzf.Chunk{chunk(100, 200)}, got)
}

func TestOpenBAI(t *testing.T) {
	idx, err := Open(bytes.NewReader(baiFixture()))
	require.NoError(t, err)
	require.Equal(t, 2, idx.ReferenceSequenceCount())
}

func TestInvalidIndex(t *testing.T) {
	_, err := Open(bytes.NewReader([]byte("XYZ\x01....")))
	require.ErrorIs(t, err, ErrInvalidIndex)

	data := baiFixture()
	_, err = ReadBAI(bytes.NewReader(data[:30]))
	require.ErrorIs(t, err, ErrInvalidIndex)

	b := &le{}
	b.WriteString("BAI\x01")
	b.put(int32(-1))
	_, err = ReadBAI(bytes.NewReader(b.Bytes()))
	require.ErrorIs(t, err, ErrInvalidIndex)

	b = &le{}
	b.WriteString("BAI\x01")
	b.put(int32(1), int32(1), uint32(4681), int32(1), vo(9), vo(3), int32(0))
	_, err = ReadBAI(bytes.NewReader(b.Bytes()))
	require.ErrorIs(t, err, ErrInvalidIndex, "chunk end before start")
}

func TestInvalidIndexLengths(t *testing.T) {
	var before, after runtime.MemStats
	check := func(data []byte, msg string) {
		t.Helper()
		runtime.ReadMemStats(&before)
		_, err := Open(bytes.NewReader(data))
		runtime.ReadMemStats(&after)
		require.ErrorIs(t, err, ErrInvalidIndex, msg)
		require.ErrorIs(t, err, io.ErrUnexpectedEOF, msg)
		require.Less(t, after.TotalAlloc-before.TotalAlloc, uint64(1<<20), msg)
	}

	b := &le{}
	b.WriteString("CSI\x01")
	b.put(int32(14), int32(5), int32(0x7ffffff0))
	b.WriteString("aux")
	check(b.Bytes(), "aux length")

	b = &le{}
	b.WriteString("TBI\x01")
	b.put(int32(2), int32(2), int32(1), int32(4), int32(5), int32('#'), int32(0))
	b.put(int32(0x7ffffff0))
	b.WriteString("sq0\x00")
	check(b.Bytes(), "name bytes")

	b = &le{}
	b.WriteString("TBI\x01")
	b.put(int32(2), int32(2), int32(1), int32(4), int32(5), int32('#'), int32(0), int32(-4))
	_, err := Open(bytes.NewReader(b.Bytes()))
	require.ErrorIs(t, err, ErrInvalidIndex, "negative name bytes")
}
