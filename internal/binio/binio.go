// Package binio reads the little-endian length-prefixed fields shared by
// the BAM, BCF and index formats.
package binio

import (
	"bytes"
	"errors"
	"io"

	"github.com/nimezhu/netio"
)

// growStep is the largest allocation made before the bytes behind it have
// actually been read.
const growStep = 1 << 16

var ErrNegativeLength = errors.New("negative length")

// ReadInt32 reads one int32. io.EOF is returned only when r is exhausted
// before the field starts.
func ReadInt32(r io.Reader) (int32, error) {
	v, err := netio.ReadInt(r)
	if err != nil {
		return 0, err
	}
	return int32(v), nil
}

// More wraps the read of a field that follows another in the same
// structure, so that running out of input is io.ErrUnexpectedEOF.
func More(v int32, err error) (int32, error) {
	return v, Unexpected(err)
}

// Unexpected turns io.EOF into io.ErrUnexpectedEOF.
func Unexpected(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}

// ReadN reads exactly n bytes. Above growStep the buffer grows as data
// arrives, so a corrupt length cannot allocate far beyond the input.
// A short read is io.ErrUnexpectedEOF, or io.EOF when nothing was read.
func ReadN(r io.Reader, n int) ([]byte, error) {
	if n < 0 {
		return nil, ErrNegativeLength
	}
	if n <= growStep {
		p := make([]byte, n)
		_, err := io.ReadFull(r, p)
		return p, err
	}
	var buf bytes.Buffer
	buf.Grow(growStep)
	m, err := io.Copy(&buf, io.LimitReader(r, int64(n)))
	if err != nil {
		return nil, err
	}
	switch {
	case m == 0:
		return nil, io.EOF
	case m < int64(n):
		return nil, io.ErrUnexpectedEOF
	}
	return buf.Bytes(), nil
}
