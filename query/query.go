// Package query streams the records of a block compressed file that
// overlap a region, visiting only the chunks an index selected.
package query

import (
	"errors"
	"fmt"
	"io"
	"iter"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/nimezhu/hts/bgzf"
	"github.com/nimezhu/hts/region"
)

// Record is anything placed on a reference sequence.
type Record interface {
	// ReferenceSequenceID is -1 for unplaced records.
	ReferenceSequenceID() int
	Interval() region.Interval
}

// ChunkReader is a byte source addressed by virtual offsets.
type ChunkReader interface {
	io.Reader
	Seek(bgzf.VirtualOffset) error
	VirtualOffset() bgzf.VirtualOffset
}

// Decoder reads one record. It returns io.EOF, and nothing else, when the
// source ends cleanly before a record.
type Decoder[R Record] interface {
	Decode(r io.Reader) (R, error)
}

type DecoderFunc[R Record] func(r io.Reader) (R, error)

func (f DecoderFunc[R]) Decode(r io.Reader) (R, error) {
	return f(r)
}

type options struct {
	logger  log.Logger
	metrics *Metrics
}

type Option func(*options)

func WithLogger(l log.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

type state int

const (
	atStart state = iota
	inChunk
	advancing
	exhausted
)

// Iterator yields the records of refID intersecting an interval, in file
// order. It owns its ChunkReader for its whole life and is not safe for
// concurrent use.
type Iterator[R Record] struct {
	src    ChunkReader
	dec    Decoder[R]
	chunks []bgzf.Chunk
	refID  int
	iv     region.Interval

	state  state
	i      int
	opts   options
	logger log.Logger
}

// New returns an iterator over chunks, which must be sorted and disjoint as
// returned by an index query.
func New[R Record](src ChunkReader, dec Decoder[R], chunks []bgzf.Chunk, refID int, iv region.Interval, opts ...Option) *Iterator[R] {
	o := options{logger: log.NewNopLogger()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Iterator[R]{
		src:    src,
		dec:    dec,
		chunks: chunks,
		refID:  refID,
		iv:     iv,
		opts:   o,
		logger: log.With(o.logger, "ref", refID, "interval", iv),
	}
}

// Next returns the next matching record. Once the chunks are used up it
// returns io.EOF on every call. Any other error is returned once and ends
// the iteration.
func (it *Iterator[R]) Next() (R, error) {
	var zero R
	for {
		switch it.state {
		case atStart, advancing:
			if it.i >= len(it.chunks) {
				level.Debug(it.logger).Log("msg", "query done", "chunks", len(it.chunks))
				it.state = exhausted
				continue
			}
			c := it.chunks[it.i]
			level.Debug(it.logger).Log("msg", "seeking to chunk", "chunk", it.i, "start", c.Start, "end", c.End)
			if err := it.src.Seek(c.Start); err != nil {
				return zero, it.fail(fmt.Errorf("seek to chunk %v: %w", c, err))
			}
			if it.opts.metrics != nil {
				it.opts.metrics.Chunks.Inc()
			}
			it.state = inChunk
		case inChunk:
			c := it.chunks[it.i]
			if !it.src.VirtualOffset().Less(c.End) {
				it.i++
				it.state = advancing
				continue
			}
			rec, err := it.dec.Decode(it.src)
			if errors.Is(err, io.EOF) {
				level.Warn(it.logger).Log("msg", "stream ended inside chunk", "chunk", c)
				it.i++
				it.state = advancing
				continue
			}
			if err != nil {
				return zero, it.fail(fmt.Errorf("decode record in chunk %v: %w", c, err))
			}
			if it.opts.metrics != nil {
				it.opts.metrics.RecordsDecoded.Inc()
			}
			if rec.ReferenceSequenceID() == it.refID && rec.Interval().Intersects(it.iv) {
				if it.opts.metrics != nil {
					it.opts.metrics.RecordsYielded.Inc()
				}
				return rec, nil
			}
		case exhausted:
			return zero, io.EOF
		}
	}
}

func (it *Iterator[R]) fail(err error) error {
	level.Error(it.logger).Log("msg", "query failed", "err", err)
	if it.opts.metrics != nil {
		it.opts.metrics.Errors.Inc()
	}
	it.state = exhausted
	return err
}

// All adapts the iterator to a range loop. An error is yielded once with
// the zero record and ends the loop.
func (it *Iterator[R]) All() iter.Seq2[R, error] {
	return func(yield func(R, error) bool) {
		for {
			rec, err := it.Next()
			if err == io.EOF {
				return
			}
			if !yield(rec, err) || err != nil {
				return
			}
		}
	}
}

// Collect drains the iterator.
func Collect[R Record](it *Iterator[R]) ([]R, error) {
	var out []R
	for rec, err := range it.All() {
		if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
	return out, nil
}
