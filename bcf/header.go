package bcf

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/nimezhu/hts/header"
	"github.com/nimezhu/hts/internal/binio"
)

var (
	Magic = []byte("BCF\x02")

	ErrInvalidHeader = errors.New("invalid BCF header")
)

// Header is the VCF text of a BCF file with its string dictionaries.
type Header struct {
	MinorVersion byte
	Text         string
	StringMaps   header.StringMaps
}

// ReadHeader reads the magic number, the VCF text and builds the string
// dictionaries from it.
func ReadHeader(r io.Reader) (*Header, error) {
	var fixed [5]byte
	if _, err := io.ReadFull(r, fixed[:]); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidHeader, err)
	}
	if !bytes.Equal(fixed[:4], Magic) {
		return nil, fmt.Errorf("%w: magic %q", ErrInvalidHeader, fixed[:])
	}
	lText, err := binio.More(binio.ReadInt32(r))
	if err != nil {
		return nil, fmt.Errorf("%w: text length: %w", ErrInvalidHeader, err)
	}
	if lText < 0 || lText > maxRecordSize {
		return nil, fmt.Errorf("%w: text length %d", ErrInvalidHeader, lText)
	}
	text, err := binio.ReadN(r, int(lText))
	if err != nil {
		return nil, fmt.Errorf("%w: text: %w", ErrInvalidHeader, binio.Unexpected(err))
	}
	if i := bytes.IndexByte(text, 0); i >= 0 {
		text = text[:i]
	}
	maps, err := header.ParseStringMaps(string(text))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidHeader, err)
	}
	return &Header{MinorVersion: fixed[4], Text: string(text), StringMaps: maps}, nil
}

// WriteHeader writes a BCF 2.2 header holding text.
func WriteHeader(w io.Writer, text string) error {
	buf := append([]byte(nil), Magic...)
	buf = append(buf, 2)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(text)+1))
	buf = append(buf, text...)
	buf = append(buf, 0)
	_, err := w.Write(buf)
	return err
}
