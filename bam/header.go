// Package bam decodes BAM alignment records and answers region queries
// over BGZF compressed BAM files.
package bam

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
	Magic = []byte("BAM\x01")

	ErrInvalidHeader = errors.New("invalid BAM header")
)

const (
	maxHeaderText = 1 << 30
	maxNameLength = 1 << 16
)

type Reference struct {
	Name   string
	Length int
}

// Header is the SAM header text and the reference sequence dictionary.
type Header struct {
	Text       string
	References []Reference
	// Contigs maps reference names to the ids records use.
	Contigs *header.StringMap
}

func ReadHeader(r io.Reader) (*Header, error) {
	magic := make([]byte, len(Magic))
	if _, err := io.ReadFull(r, magic); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidHeader, err)
	}
	if !bytes.Equal(magic, Magic) {
		return nil, fmt.Errorf("%w: magic %q", ErrInvalidHeader, magic)
	}
	lText, err := readInt32(r)
	if err != nil {
		return nil, err
	}
	if lText < 0 || lText > maxHeaderText {
		return nil, fmt.Errorf("%w: text length %d", ErrInvalidHeader, lText)
	}
	text, err := readN(r, int(lText))
	if err != nil {
		return nil, fmt.Errorf("%w: text: %w", ErrInvalidHeader, err)
	}
	if i := bytes.IndexByte(text, 0); i >= 0 {
		text = text[:i]
	}

	nRef, err := readInt32(r)
	if err != nil {
		return nil, err
	}
	if nRef < 0 {
		return nil, fmt.Errorf("%w: %d references", ErrInvalidHeader, nRef)
	}
	h := &Header{Text: string(text), Contigs: &header.StringMap{}}
	for i := 0; i < int(nRef); i++ {
		lName, err := readInt32(r)
		if err != nil {
			return nil, err
		}
		if lName < 1 || lName > maxNameLength {
			return nil, fmt.Errorf("%w: reference %d name length %d", ErrInvalidHeader, i, lName)
		}
		name, err := readN(r, int(lName))
		if err != nil {
			return nil, fmt.Errorf("%w: reference %d: %w", ErrInvalidHeader, i, err)
		}
		lRef, err := readInt32(r)
		if err != nil {
			return nil, err
		}
		ref := Reference{Name: string(bytes.TrimSuffix(name, []byte{0})), Length: int(lRef)}
		if _, ok := h.Contigs.Insert(ref.Name); !ok {
			return nil, fmt.Errorf("%w: %w: %q", ErrInvalidHeader, header.ErrDuplicateIdentifier, ref.Name)
		}
		h.References = append(h.References, ref)
	}
	return h, nil
}

func readInt32(r io.Reader) (int32, error) {
	v, err := binio.More(binio.ReadInt32(r))
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidHeader, err)
	}
	return v, nil
}

func readN(r io.Reader, n int) ([]byte, error) {
	p, err := binio.ReadN(r, n)
	return p, binio.Unexpected(err)
}

func WriteHeader(w io.Writer, text string, refs []Reference) error {
	buf := append([]byte(nil), Magic...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(text)))
	buf = append(buf, text...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(refs)))
	for _, ref := range refs {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(ref.Name)+1))
		buf = append(buf, ref.Name...)
		buf = append(buf, 0)
		buf = binary.LittleEndian.AppendUint32(buf, uint32(ref.Length))
	}
	_, err := w.Write(buf)
	return err
}
