package query

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/nimezhu/hts/bgzf"
	"github.com/nimezhu/hts/csi"
	"github.com/nimezhu/hts/region"
)

type feature struct {
	ref   int
	start int
	end   int
}

func (f feature) ReferenceSequenceID() int { return f.ref }
func (f feature) Interval() region.Interval {
	return region.Interval{Start: f.start, End: f.end}
}

type countingDecoder struct {
	n   int
	err error // returned on the call after the first
}

func (d *countingDecoder) Decode(r io.Reader) (feature, error) {
	if d.err != nil && d.n == 1 {
		return feature{}, d.err
	}
	var b [12]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return feature{}, err
	}
	d.n++
	return feature{
		ref:   int(int32(binary.LittleEndian.Uint32(b[0:]))),
		start: int(int32(binary.LittleEndian.Uint32(b[4:]))),
		end:   int(int32(binary.LittleEndian.Uint32(b[8:]))),
	}, nil
}

// fixture writes each group of features into its own BGZF block and
// returns the stream with the offset at which every block starts.
func fixture(t *testing.T, groups ...[]feature) ([]byte, []bgzf.VirtualOffset) {
	t.Helper()
	var buf bytes.Buffer
	w := bgzf.NewWriter(&buf)
	var starts []bgzf.VirtualOffset
	for _, g := range groups {
		starts = append(starts, w.VirtualOffset())
		for _, f := range g {
			var b [12]byte
			binary.LittleEndian.PutUint32(b[0:], uint32(int32(f.ref)))
			binary.LittleEndian.PutUint32(b[4:], uint32(int32(f.start)))
			binary.LittleEndian.PutUint32(b[8:], uint32(int32(f.end)))
			_, err := w.Write(b[:])
			require.NoError(t, err)
		}
		require.NoError(t, w.Flush())
	}
	starts = append(starts, w.VirtualOffset())
	require.NoError(t, w.Close())
	return buf.Bytes(), starts
}

func reader(t *testing.T, data []byte) *bgzf.Reader {
	t.Helper()
	r, err := bgzf.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	return r
}

var features = []feature{
	{0, 0, 10},
	{0, 5, 15},
	{0, 20, 30},
	{1, 0, 10},
	{-1, 0, 1},
}

func TestIteratorFilters(t *testing.T) {
	data, starts := fixture(t, features)
	chunks := []bgzf.Chunk{{Start: starts[0], End: starts[1]}}

	tests := []struct {
		ref  int
		iv   region.Interval
		want []feature
	}{
		{0, region.Interval{Start: 8, End: 21}, features[0:3]},
		{0, region.Interval{Start: 10, End: 20}, features[1:2]},
		{0, region.Interval{Start: 30, End: 40}, nil},
		{1, region.Interval{Start: 9, End: 10}, features[3:4]},
		{2, region.Interval{Start: 0, End: region.Unbounded}, nil},
	}
	for _, tt := range tests {
		it := New[feature](reader(t, data), &countingDecoder{}, chunks, tt.ref, tt.iv)
		got, err := Collect(it)
		require.NoError(t, err)
		require.Equal(t, tt.want, got, "%d %v", tt.ref, tt.iv)
	}
}

func TestIteratorChunkBoundary(t *testing.T) {
	data, starts := fixture(t, features[:2], features[2:3], features[3:4])
	dec := &countingDecoder{}
	chunks := []bgzf.Chunk{
		{Start: starts[0], End: starts[1]},
		{Start: starts[2], End: starts[3]},
	}
	it := New[feature](reader(t, data), dec, chunks, 0, region.Interval{Start: 0, End: 100})
	got, err := Collect(it)
	require.NoError(t, err)
	require.Equal(t, features[:2], got, "the block between the chunks is skipped")
	require.Equal(t, 3, dec.n)

	// a chunk ending inside a block stops after the record at its end
	chunks = []bgzf.Chunk{{Start: starts[0], End: bgzf.NewVirtualOffset(starts[0].BlockOffset(), 12)}}
	dec = &countingDecoder{}
	it = New[feature](reader(t, data), dec, chunks, 0, region.Interval{Start: 0, End: 100})
	got, err = Collect(it)
	require.NoError(t, err)
	require.Equal(t, features[:1], got)
	require.Equal(t, 1, dec.n)
}

func TestIteratorExhausted(t *testing.T) {
	data, starts := fixture(t, features)
	dec := &countingDecoder{}
	it := New[feature](reader(t, data), dec, []bgzf.Chunk{{Start: starts[0], End: starts[1]}}, 0, region.Interval{Start: 0, End: 10})

	for {
		_, err := it.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
	}
	n := dec.n
	for i := 0; i < 3; i++ {
		_, err := it.Next()
		require.Equal(t, io.EOF, err)
	}
	require.Equal(t, n, dec.n, "no decoding after exhaustion")
}

func TestIteratorEmpty(t *testing.T) {
	data, _ := fixture(t, features)
	dec := &countingDecoder{}
	it := New[feature](reader(t, data), dec, []bgzf.Chunk{}, 0, region.Interval{Start: 0, End: 10})
	_, err := it.Next()
	require.Equal(t, io.EOF, err)
	require.Zero(t, dec.n)
}

func TestIteratorErrorOnce(t *testing.T) {
	data, starts := fixture(t, features)
	boom := errors.New("boom")
	reg := prometheus.NewPedanticRegistry()
	m := NewMetrics(reg)
	it := New[feature](reader(t, data), &countingDecoder{err: boom}, []bgzf.Chunk{{Start: starts[0], End: starts[1]}}, 0, region.Interval{Start: 0, End: 100}, WithMetrics(m))

	rec, err := it.Next()
	require.NoError(t, err)
	require.Equal(t, features[0], rec)

	_, err = it.Next()
	require.ErrorIs(t, err, boom)

	_, err = it.Next()
	require.Equal(t, io.EOF, err)
	require.Equal(t, 1.0, testutil.ToFloat64(m.Errors))
}

func TestIteratorCorruptData(t *testing.T) {
	data, starts := fixture(t, features)
	// starting mid-record misaligns every read until a partial one
	chunks := []bgzf.Chunk{{Start: bgzf.NewVirtualOffset(starts[0].BlockOffset(), 6), End: starts[1]}}
	it := New[feature](reader(t, data), &countingDecoder{}, chunks, 0, region.Interval{Start: 0, End: 100})
	_, err := Collect(it)
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestIteratorWithIndex(t *testing.T) {
	// block 0 holds ref 0 around position 100, block 1 holds ref 0 beyond
	// the first linear window, block 2 holds ref 1
	groups := [][]feature{
		{{0, 100, 200}, {0, 150, 300}},
		{{0, 20000, 20010}},
		{{1, 5, 6}},
	}
	data, starts := fixture(t, groups...)

	bins := func(fs []feature, s, e bgzf.VirtualOffset) map[uint32]*csi.Bin {
		m := make(map[uint32]*csi.Bin)
		for _, f := range fs {
			id := csi.Reg2Bin(f.start, f.end, csi.BAIMinShift, csi.BAIDepth)
			m[id] = &csi.Bin{ID: id, Chunks: []bgzf.Chunk{{Start: s, End: e}}}
		}
		return m
	}
	ref0 := bins(groups[0], starts[0], starts[1])
	for id, b := range bins(groups[1], starts[1], starts[2]) {
		ref0[id] = b
	}
	idx := csi.NewIndex(csi.BAIMinShift, csi.BAIDepth, []csi.ReferenceSequence{
		{Bins: ref0, Intervals: []bgzf.VirtualOffset{starts[0], starts[1]}},
		{Bins: bins(groups[2], starts[2], starts[3]), Intervals: []bgzf.VirtualOffset{starts[2]}},
	})

	reg := prometheus.NewPedanticRegistry()
	m := NewMetrics(reg)

	iv := region.Interval{Start: 180, End: 20005}
	chunks, err := idx.Query(0, iv)
	require.NoError(t, err)
	it := New[feature](reader(t, data), &countingDecoder{}, chunks, 0, iv, WithMetrics(m))
	var got []feature
	for f, err := range it.All() {
		require.NoError(t, err)
		got = append(got, f)
	}
	require.Equal(t, []feature{groups[0][0], groups[0][1], groups[1][0]}, got)
	require.Equal(t, 1.0, testutil.ToFloat64(m.Chunks), "adjacent chunks are merged")
	require.Equal(t, 3.0, testutil.ToFloat64(m.RecordsDecoded))
	require.Equal(t, 3.0, testutil.ToFloat64(m.RecordsYielded))

	iv = region.Interval{Start: 20000, End: 20001}
	chunks, err = idx.Query(0, iv)
	require.NoError(t, err)
	require.Equal(t, []bgzf.Chunk{{Start: starts[1], End: starts[2]}}, chunks, "only the second window is visited")

	chunks, err = idx.Query(1, region.Interval{Start: 1 << 20, End: 1<<20 + 1})
	require.NoError(t, err)
	require.Empty(t, chunks)
}
