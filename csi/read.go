package csi

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"

	"github.com/nimezhu/hts/bgzf"
	"github.com/nimezhu/hts/header"
	"github.com/nimezhu/hts/internal/binio"
)

var (
	BAIMagic   = []byte("BAI\x01")
	CSIMagic   = []byte("CSI\x01")
	TabixMagic = []byte("TBI\x01")

	ErrInvalidIndex = errors.New("invalid index")
)

// Open reads a BAI, CSI or tabix index. CSI and tabix files are BGZF
// compressed, BAI files are not.
func Open(r io.Reader) (*Index, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(4)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidIndex, err)
	}
	if magic[0] == 0x1f && magic[1] == 0x8b {
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		br = bufio.NewReader(zr)
		if magic, err = br.Peek(4); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidIndex, err)
		}
	}
	switch {
	case bytes.Equal(magic, BAIMagic):
		return ReadBAI(br)
	case bytes.Equal(magic, CSIMagic):
		return ReadCSI(br)
	case bytes.Equal(magic, TabixMagic):
		return ReadTabix(br)
	}
	return nil, fmt.Errorf("%w: unknown magic %q", ErrInvalidIndex, magic)
}

// ReadBAI reads an uncompressed BAI index.
func ReadBAI(r io.Reader) (*Index, error) {
	f := &fieldReader{r: r}
	f.magic(BAIMagic)
	idx := NewIndex(BAIMinShift, BAIDepth, f.linearReferences(f.count("reference sequence")))
	idx.Unplaced = f.unplaced()
	if f.err != nil {
		return nil, f.err
	}
	return idx, nil
}

// ReadTabix reads a decompressed tabix index.
func ReadTabix(r io.Reader) (*Index, error) {
	f := &fieldReader{r: r}
	f.magic(TabixMagic)
	n := f.count("reference sequence")
	hdr := f.tabixHeader()
	if f.err == nil && hdr.Names.Len() != n {
		return nil, fmt.Errorf("%w: %d names for %d reference sequences", ErrInvalidIndex, hdr.Names.Len(), n)
	}
	idx := NewIndex(BAIMinShift, BAIDepth, f.linearReferences(n))
	idx.Header = hdr
	idx.Unplaced = f.unplaced()
	if f.err != nil {
		return nil, f.err
	}
	return idx, nil
}

// ReadCSI reads a decompressed CSI index. The auxiliary data is parsed as
// a tabix header when present.
func ReadCSI(r io.Reader) (*Index, error) {
	f := &fieldReader{r: r}
	f.magic(CSIMagic)
	minShift := int(f.int32())
	depth := int(f.int32())
	if f.err == nil && (minShift < 0 || depth < 0 || minShift+3*depth > 62) {
		return nil, fmt.Errorf("%w: min_shift %d depth %d", ErrInvalidIndex, minShift, depth)
	}
	aux := f.bytes(f.count("aux"))
	var hdr *TabixHeader
	if f.err == nil && len(aux) > 0 {
		af := &fieldReader{r: bytes.NewReader(aux)}
		hdr = af.tabixHeader()
		if af.err != nil {
			return nil, fmt.Errorf("%w: aux: %v", ErrInvalidIndex, af.err)
		}
	}
	n := f.count("reference sequence")
	var refs []ReferenceSequence
	for i := 0; i < n && f.err == nil; i++ {
		refs = append(refs, f.csiReference(depth))
	}
	idx := NewIndex(minShift, depth, refs)
	idx.Header = hdr
	idx.Unplaced = f.unplaced()
	if f.err != nil {
		return nil, f.err
	}
	return idx, nil
}

// fieldReader reads little-endian index fields and keeps the first error.
type fieldReader struct {
	r   io.Reader
	err error
}

func (f *fieldReader) int32() int32 {
	if f.err != nil {
		return 0
	}
	v, err := binio.ReadInt32(f.r)
	if err != nil {
		f.err = unexpected(err)
		return 0
	}
	return v
}

func (f *fieldReader) uint64() uint64 {
	lo := uint32(f.int32())
	hi := uint32(f.int32())
	return uint64(hi)<<32 | uint64(lo)
}

func (f *fieldReader) offset() bgzf.VirtualOffset {
	return bgzf.VirtualOffset(f.uint64())
}

func (f *fieldReader) count(what string) int {
	n := f.int32()
	if f.err == nil && n < 0 {
		f.err = fmt.Errorf("%w: negative %s count %d", ErrInvalidIndex, what, n)
	}
	return int(n)
}

func (f *fieldReader) bytes(n int) []byte {
	if f.err != nil {
		return nil
	}
	p, err := binio.ReadN(f.r, n)
	if err != nil {
		f.err = unexpected(err)
		return nil
	}
	return p
}

func (f *fieldReader) magic(want []byte) {
	if got := f.bytes(len(want)); f.err == nil && !bytes.Equal(got, want) {
		f.err = fmt.Errorf("%w: magic %q, want %q", ErrInvalidIndex, got, want)
	}
}

func (f *fieldReader) tabixHeader() *TabixHeader {
	hdr := &TabixHeader{
		Format: f.int32(),
		ColSeq: f.int32(),
		ColBeg: f.int32(),
		ColEnd: f.int32(),
		Meta:   byte(f.int32()),
		Skip:   f.int32(),
	}
	names := f.bytes(f.count("name bytes"))
	if f.err != nil {
		return nil
	}
	hdr.Names = &header.StringMap{}
	for _, name := range bytes.Split(bytes.TrimSuffix(names, []byte{0}), []byte{0}) {
		if len(name) == 0 {
			continue
		}
		if _, ok := hdr.Names.Insert(string(name)); !ok {
			f.err = fmt.Errorf("%w: %w: %q", ErrInvalidIndex, header.ErrDuplicateIdentifier, name)
			return nil
		}
	}
	return hdr
}

func (f *fieldReader) linearReferences(n int) []ReferenceSequence {
	var refs []ReferenceSequence
	for i := 0; i < n && f.err == nil; i++ {
		ref := ReferenceSequence{Bins: make(map[uint32]*Bin)}
		nBin := f.count("bin")
		for j := 0; j < nBin && f.err == nil; j++ {
			id := uint32(f.int32())
			chunks := f.chunks()
			f.addBin(&ref, BAIDepth, &Bin{ID: id, Chunks: chunks})
		}
		nIntv := f.count("interval")
		for j := 0; j < nIntv && f.err == nil; j++ {
			ref.Intervals = append(ref.Intervals, f.offset())
		}
		refs = append(refs, ref)
	}
	return refs
}

func (f *fieldReader) csiReference(depth int) ReferenceSequence {
	ref := ReferenceSequence{Bins: make(map[uint32]*Bin)}
	nBin := f.count("bin")
	for j := 0; j < nBin && f.err == nil; j++ {
		id := uint32(f.int32())
		loffset := f.offset()
		chunks := f.chunks()
		f.addBin(&ref, depth, &Bin{ID: id, LOffset: loffset, Chunks: chunks})
	}
	return ref
}

func (f *fieldReader) chunks() []bgzf.Chunk {
	n := f.count("chunk")
	var chunks []bgzf.Chunk
	for k := 0; k < n && f.err == nil; k++ {
		chunks = append(chunks, bgzf.Chunk{Start: f.offset(), End: f.offset()})
	}
	return chunks
}

func (f *fieldReader) addBin(ref *ReferenceSequence, depth int, b *Bin) {
	if f.err != nil {
		return
	}
	if b.ID == MetadataBinID(depth) {
		if len(b.Chunks) != 2 {
			f.err = fmt.Errorf("%w: metadata bin with %d chunks", ErrInvalidIndex, len(b.Chunks))
			return
		}
		ref.Metadata = &Metadata{
			Start:    b.Chunks[0].Start,
			End:      b.Chunks[0].End,
			Mapped:   uint64(b.Chunks[1].Start),
			Unmapped: uint64(b.Chunks[1].End),
		}
		return
	}
	for _, c := range b.Chunks {
		if c.End < c.Start {
			f.err = fmt.Errorf("%w: bin %d chunk %v", ErrInvalidIndex, b.ID, c)
			return
		}
	}
	if _, dup := ref.Bins[b.ID]; dup {
		f.err = fmt.Errorf("%w: duplicate bin %d", ErrInvalidIndex, b.ID)
		return
	}
	ref.Bins[b.ID] = b
}

// unplaced reads the optional trailing count of unplaced records.
func (f *fieldReader) unplaced() *uint64 {
	if f.err != nil {
		return nil
	}
	p := make([]byte, 8)
	_, err := io.ReadFull(f.r, p)
	if err == io.EOF {
		return nil
	}
	if err != nil {
		f.err = unexpected(err)
		return nil
	}
	v := (&fieldReader{r: bytes.NewReader(p)}).uint64()
	return &v
}

func unexpected(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %w", ErrInvalidIndex, io.ErrUnexpectedEOF)
	}
	return err
}
