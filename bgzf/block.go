package bgzf

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/crc32"
)

const (
	headerSize  = 12 // fixed gzip member header before the extra field
	trailerSize = 8  // CRC32 + ISIZE

	// MaxBlockSize bounds the size of one block, header included, and of its
	// inflated payload.
	MaxBlockSize = 1 << 16
	// MaxBlockDataSize is the payload a writer packs into a block so that an
	// incompressible block still fits in MaxBlockSize.
	MaxBlockDataSize = 0xff00
)

var (
	ErrCorruptBlock  = errors.New("bgzf: corrupt block")
	ErrInvalidOffset = errors.New("bgzf: invalid virtual offset")
)

var eofMarker = []byte{
	0x1f, 0x8b, 0x08, 0x04, 0x00, 0x00, 0x00, 0x00,
	0x00, 0xff, 0x06, 0x00, 0x42, 0x43, 0x02, 0x00,
	0x1b, 0x00, 0x03, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00,
}

// Block is one compressed BGZF member as it sits in the file.
type Block struct {
	Offset int64  // position of the member in the compressed stream
	Size   int    // total member size in bytes
	Data   []byte // raw deflate payload
	CRC32  uint32
	ISize  uint32
}

// Next is the offset of the member that follows b.
func (b Block) Next() int64 {
	return b.Offset + int64(b.Size)
}

// ReadBlock reads the member starting at offset.
func ReadBlock(r io.ReadSeeker, offset int64) (Block, error) {
	if _, err := r.Seek(offset, io.SeekStart); err != nil {
		return Block{}, err
	}
	return readBlock(r, offset)
}

// readBlock reads a member from the current position of r. io.EOF is only
// returned when r is exhausted exactly at a member boundary.
func readBlock(r io.Reader, offset int64) (Block, error) {
	var hdr [headerSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return Block{}, fmt.Errorf("%w: truncated header at %d", ErrCorruptBlock, offset)
		}
		return Block{}, err
	}
	if hdr[0] != 0x1f || hdr[1] != 0x8b || hdr[2] != 8 || hdr[3]&4 == 0 {
		return Block{}, fmt.Errorf("%w: bad gzip magic at %d", ErrCorruptBlock, offset)
	}
	xlen := int(binary.LittleEndian.Uint16(hdr[10:12]))
	extra := make([]byte, xlen)
	if _, err := io.ReadFull(r, extra); err != nil {
		return Block{}, fmt.Errorf("%w: truncated extra field at %d: %v", ErrCorruptBlock, offset, err)
	}
	bsize, ok := blockSize(extra)
	if !ok {
		return Block{}, fmt.Errorf("%w: missing BC subfield at %d", ErrCorruptBlock, offset)
	}
	size := bsize + 1
	rest := size - headerSize - xlen
	if rest < trailerSize {
		return Block{}, fmt.Errorf("%w: block size %d too small at %d", ErrCorruptBlock, size, offset)
	}
	buf := make([]byte, rest)
	if _, err := io.ReadFull(r, buf); err != nil {
		return Block{}, fmt.Errorf("%w: truncated block at %d: %v", ErrCorruptBlock, offset, err)
	}
	n := rest - trailerSize
	b := Block{
		Offset: offset,
		Size:   size,
		Data:   buf[:n],
		CRC32:  binary.LittleEndian.Uint32(buf[n:]),
		ISize:  binary.LittleEndian.Uint32(buf[n+4:]),
	}
	if b.ISize > MaxBlockSize {
		return Block{}, fmt.Errorf("%w: inflated size %d at %d", ErrCorruptBlock, b.ISize, offset)
	}
	return b, nil
}

func blockSize(extra []byte) (int, bool) {
	for len(extra) >= 4 {
		slen := int(binary.LittleEndian.Uint16(extra[2:4]))
		if len(extra) < 4+slen {
			return 0, false
		}
		if extra[0] == 'B' && extra[1] == 'C' && slen == 2 {
			return int(binary.LittleEndian.Uint16(extra[4:6])), true
		}
		extra = extra[4+slen:]
	}
	return 0, false
}

// Decompress inflates the block payload and checks its CRC32 and length.
func Decompress(b Block) ([]byte, error) {
	var inf inflater
	return inf.inflate(b)
}

type inflater struct {
	fr io.ReadCloser
}

func (inf *inflater) inflate(b Block) ([]byte, error) {
	if b.ISize > MaxBlockSize {
		return nil, fmt.Errorf("%w: inflated size %d at %d", ErrCorruptBlock, b.ISize, b.Offset)
	}
	src := bytes.NewReader(b.Data)
	if inf.fr == nil {
		inf.fr = flate.NewReader(src)
	} else if err := inf.fr.(flate.Resetter).Reset(src, nil); err != nil {
		return nil, err
	}
	data := make([]byte, b.ISize)
	if _, err := io.ReadFull(inf.fr, data); err != nil {
		return nil, fmt.Errorf("%w: inflate block at %d: %v", ErrCorruptBlock, b.Offset, err)
	}
	if sum := crc32.ChecksumIEEE(data); sum != b.CRC32 {
		return nil, fmt.Errorf("%w: crc mismatch at %d: %08x != %08x", ErrCorruptBlock, b.Offset, sum, b.CRC32)
	}
	return data, nil
}
