// Package hts identifies indexed genomic files. The format packages
// (bam, bcf, csi) read them.
package hts

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/nimezhu/netio"
)

type Format int

const (
	Unknown Format = iota
	BAM
	BCF
	VCF
	BAI
	CSI
	Tabix
	BGZF
	Gzip
	BigWig
	BigBed
	HiC
)

var formatNames = [...]string{"unknown", "bam", "bcf", "vcf", "bai", "csi", "tabix", "bgzf", "gzip", "bigwig", "bigbed", "hic"}

func (f Format) String() string {
	if f < 0 || int(f) >= len(formatNames) {
		return fmt.Sprintf("Format(%d)", int(f))
	}
	return formatNames[f]
}

// Indexed is true for data formats a csi.Index can be queried over.
func (f Format) Indexed() bool {
	return f == BAM || f == BCF
}

const (
	bigWigMagic = 0x888FFC26
	bigBedMagic = 0x8789F2EB
	hicMagic    = 0x00434948
)

// Detect sniffs the format from the start of r. Compressed streams are
// identified by the magic of their first inflated bytes.
func Detect(r io.Reader) (Format, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(18)
	if err != nil && err != io.EOF {
		return Unknown, err
	}
	if len(head) < 4 {
		return Unknown, nil
	}
	if head[0] != 0x1f || head[1] != 0x8b {
		return detectRaw(head), nil
	}

	bgzf := len(head) >= 18 && head[3]&0x04 != 0 && head[12] == 'B' && head[13] == 'C'
	zr, err := gzip.NewReader(br)
	if err != nil {
		return Unknown, fmt.Errorf("sniff: %w", err)
	}
	defer zr.Close()
	inner := make([]byte, 16)
	n, err := io.ReadFull(zr, inner)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return Unknown, fmt.Errorf("sniff: %w", err)
	}
	inner = inner[:n]
	switch {
	case bytes.HasPrefix(inner, []byte("BAM\x01")):
		return BAM, nil
	case bytes.HasPrefix(inner, []byte("BCF\x02")):
		return BCF, nil
	case bytes.HasPrefix(inner, []byte("CSI\x01")):
		return CSI, nil
	case bytes.HasPrefix(inner, []byte("TBI\x01")):
		return Tabix, nil
	case strings.HasPrefix(string(inner), "##fileformat=VCF"):
		return VCF, nil
	case bgzf:
		return BGZF, nil
	}
	return Gzip, nil
}

func detectRaw(head []byte) Format {
	switch {
	case bytes.HasPrefix(head, []byte("BAI\x01")):
		return BAI
	case bytes.HasPrefix(head, []byte("##fileformat=VCF")):
		return VCF
	}
	switch binary.LittleEndian.Uint32(head) {
	case bigWigMagic:
		return BigWig
	case bigBedMagic:
		return BigBed
	case hicMagic:
		return HiC
	}
	return Unknown
}

// Magic sniffs the format of a local path or an HTTP URL.
func Magic(uri string) (Format, error) {
	f, err := netio.NewReadSeeker(uri)
	if err != nil {
		return Unknown, err
	}
	if c, ok := f.(io.Closer); ok {
		defer c.Close()
	}
	return Detect(f)
}
