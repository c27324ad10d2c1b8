package bam

import (
	"fmt"
	"io"

	"github.com/nimezhu/hts/bgzf"
	"github.com/nimezhu/hts/csi"
	"github.com/nimezhu/hts/header"
	"github.com/nimezhu/hts/query"
	"github.com/nimezhu/hts/region"
)

// Reader reads records from a BAM stream.
type Reader struct {
	bg     *bgzf.Reader
	Header *Header
}

func NewReader(r io.ReadSeeker, opts ...bgzf.Option) (*Reader, error) {
	bg, err := bgzf.NewReader(r, opts...)
	if err != nil {
		return nil, err
	}
	hdr, err := ReadHeader(bg)
	if err != nil {
		return nil, err
	}
	return &Reader{bg: bg, Header: hdr}, nil
}

// Read returns the next record, or io.EOF.
func (r *Reader) Read() (*Record, error) {
	return DecodeRecord(r.bg)
}

// Query returns the alignments on chr overlapping iv. The reader belongs
// to the returned iterator until it is drained.
func (r *Reader) Query(idx *csi.Index, chr string, iv region.Interval, opts ...query.Option) (*query.Iterator[*Record], error) {
	id, err := header.Lookup(r.Header.Contigs, chr)
	if err != nil {
		return nil, fmt.Errorf("chromosome not found: %w", err)
	}
	chunks, err := idx.Query(id, iv)
	if err != nil {
		return nil, err
	}
	return query.New[*Record](r.bg, query.DecoderFunc[*Record](DecodeRecord), chunks, id, iv, opts...), nil
}

func (r *Reader) Close() error {
	return r.bg.Close()
}
