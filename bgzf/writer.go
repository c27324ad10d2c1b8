package bgzf

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/crc32"
)

// Writer writes a BGZF stream. Data is cut into blocks of at most
// MaxBlockDataSize bytes; Flush forces a block boundary.
type Writer struct {
	w      io.Writer
	level  int
	buf    []byte
	cbuf   bytes.Buffer
	fw     *flate.Writer
	offset int64
	closed bool
}

func NewWriter(w io.Writer) *Writer {
	return NewWriterLevel(w, flate.DefaultCompression)
}

func NewWriterLevel(w io.Writer, level int) *Writer {
	return &Writer{w: w, level: level, buf: make([]byte, 0, MaxBlockDataSize)}
}

// VirtualOffset is the position the next written byte will have.
func (bw *Writer) VirtualOffset() VirtualOffset {
	return NewVirtualOffset(uint64(bw.offset), uint16(len(bw.buf)))
}

func (bw *Writer) Write(p []byte) (int, error) {
	if bw.closed {
		return 0, errors.New("bgzf: write to closed writer")
	}
	n := 0
	for len(p) > 0 {
		c := copy(bw.buf[len(bw.buf):cap(bw.buf)], p)
		bw.buf = bw.buf[:len(bw.buf)+c]
		p = p[c:]
		n += c
		if len(bw.buf) == cap(bw.buf) {
			if err := bw.Flush(); err != nil {
				return n, err
			}
		}
	}
	return n, nil
}

// Flush writes the buffered data as one block. It is a no-op when nothing
// is buffered.
func (bw *Writer) Flush() error {
	if len(bw.buf) == 0 {
		return nil
	}
	cdata, err := bw.deflate(bw.buf, bw.level)
	if err != nil {
		return err
	}
	if len(cdata)+headerSize+6+trailerSize > MaxBlockSize {
		if cdata, err = bw.deflate(bw.buf, flate.NoCompression); err != nil {
			return err
		}
	}
	if err := bw.writeBlock(cdata, crc32.ChecksumIEEE(bw.buf), uint32(len(bw.buf))); err != nil {
		return err
	}
	bw.buf = bw.buf[:0]
	return nil
}

func (bw *Writer) deflate(p []byte, level int) ([]byte, error) {
	bw.cbuf.Reset()
	if bw.fw == nil || level != bw.level {
		fw, err := flate.NewWriter(&bw.cbuf, level)
		if err != nil {
			return nil, err
		}
		if level == bw.level {
			bw.fw = fw
		}
		return finish(fw, p, &bw.cbuf)
	}
	bw.fw.Reset(&bw.cbuf)
	return finish(bw.fw, p, &bw.cbuf)
}

func finish(fw *flate.Writer, p []byte, out *bytes.Buffer) ([]byte, error) {
	if _, err := fw.Write(p); err != nil {
		return nil, err
	}
	if err := fw.Close(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func (bw *Writer) writeBlock(cdata []byte, sum, isize uint32) error {
	size := headerSize + 6 + len(cdata) + trailerSize
	hdr := [headerSize + 6]byte{
		0x1f, 0x8b, 0x08, 0x04, 0, 0, 0, 0, 0, 0xff, 6, 0, 'B', 'C', 2, 0,
	}
	binary.LittleEndian.PutUint16(hdr[16:], uint16(size-1))
	var tr [trailerSize]byte
	binary.LittleEndian.PutUint32(tr[0:], sum)
	binary.LittleEndian.PutUint32(tr[4:], isize)
	for _, b := range [][]byte{hdr[:], cdata, tr[:]} {
		if _, err := bw.w.Write(b); err != nil {
			return err
		}
	}
	bw.offset += int64(size)
	return nil
}

// Close flushes pending data and appends the EOF marker block. It does not
// close the underlying writer.
func (bw *Writer) Close() error {
	if bw.closed {
		return nil
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	bw.closed = true
	_, err := bw.w.Write(eofMarker)
	if err == nil {
		bw.offset += int64(len(eofMarker))
	}
	return err
}
