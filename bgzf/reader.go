package bgzf

import (
	"errors"
	"fmt"
	"io"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of decompressed blocks a Reader keeps.
const DefaultCacheSize = 16

type block struct {
	offset int64
	next   int64
	data   []byte
}

// Reader is a seekable reader over a BGZF stream. A Reader is not safe
// for concurrent use; give every query its own Reader.
type Reader struct {
	r      io.ReadSeeker
	pos    int64 // position of r, -1 when unknown
	cache  *lru.Cache[int64, *block]
	cur    *block
	within int
	inf    inflater
}

type Option func(*Reader) error

// WithCacheSize sets how many decompressed blocks are kept. Zero disables
// the cache.
func WithCacheSize(n int) Option {
	return func(bg *Reader) error {
		if n < 0 {
			return fmt.Errorf("bgzf: negative cache size %d", n)
		}
		if n == 0 {
			bg.cache = nil
			return nil
		}
		c, err := lru.New[int64, *block](n)
		if err != nil {
			return err
		}
		bg.cache = c
		return nil
	}
}

func NewReader(r io.ReadSeeker, opts ...Option) (*Reader, error) {
	bg := &Reader{r: r, pos: -1}
	if err := WithCacheSize(DefaultCacheSize)(bg); err != nil {
		return nil, err
	}
	for _, opt := range opts {
		if err := opt(bg); err != nil {
			return nil, err
		}
	}
	return bg, nil
}

// VirtualOffset returns the position of the next byte Read will return.
// When the current block is used up the position is reported as the start
// of the following block, so it compares correctly with chunk boundaries.
func (bg *Reader) VirtualOffset() VirtualOffset {
	if bg.cur == nil {
		return 0
	}
	if bg.within >= len(bg.cur.data) {
		return NewVirtualOffset(uint64(bg.cur.next), 0)
	}
	return NewVirtualOffset(uint64(bg.cur.offset), uint16(bg.within))
}

// Seek positions the reader at v.
func (bg *Reader) Seek(v VirtualOffset) error {
	off := int64(v.BlockOffset())
	if bg.cur == nil || bg.cur.offset != off {
		b, err := bg.load(off)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return fmt.Errorf("%w: %v past end of stream", ErrInvalidOffset, v)
			}
			return err
		}
		bg.cur = b
	}
	within := int(v.WithinBlock())
	if within > len(bg.cur.data) {
		return fmt.Errorf("%w: %v beyond block of %d bytes", ErrInvalidOffset, v, len(bg.cur.data))
	}
	bg.within = within
	return nil
}

func (bg *Reader) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		if bg.cur == nil || bg.within >= len(bg.cur.data) {
			var next int64
			if bg.cur != nil {
				next = bg.cur.next
			}
			b, err := bg.load(next)
			if err != nil {
				if errors.Is(err, io.EOF) && n > 0 {
					return n, nil
				}
				return n, err
			}
			bg.cur, bg.within = b, 0
			continue
		}
		c := copy(p[n:], bg.cur.data[bg.within:])
		bg.within += c
		n += c
	}
	return n, nil
}

// load returns the decompressed block at off, from the cache when present.
func (bg *Reader) load(off int64) (*block, error) {
	if bg.cache != nil {
		if b, ok := bg.cache.Get(off); ok {
			return b, nil
		}
	}
	if bg.pos != off {
		if _, err := bg.r.Seek(off, io.SeekStart); err != nil {
			bg.pos = -1
			return nil, err
		}
		bg.pos = off
	}
	raw, err := readBlock(bg.r, off)
	if err != nil {
		bg.pos = -1
		return nil, err
	}
	bg.pos = raw.Next()
	data, err := bg.inf.inflate(raw)
	if err != nil {
		return nil, err
	}
	b := &block{offset: off, next: raw.Next(), data: data}
	if bg.cache != nil {
		bg.cache.Add(off, b)
	}
	return b, nil
}

// Close closes the underlying reader when it is an io.Closer.
func (bg *Reader) Close() error {
	if c, ok := bg.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
