package bam

import (
	"fmt"
	"strings"
)

const baseCodes = "=ACMGRSVTWYHKDBN"

// Base is a 4-bit encoded IUPAC nucleotide.
type Base byte

var complements = [16]Base{0, 8, 4, 12, 2, 10, 6, 14, 1, 9, 5, 13, 3, 11, 7, 15}

func (b Base) Complement() Base {
	return complements[b&0x0f]
}

func (b Base) Char() byte {
	return baseCodes[b&0x0f]
}

func ParseBase(c byte) (Base, error) {
	if c >= 'a' && c <= 'z' {
		c -= 'a' - 'A'
	}
	i := strings.IndexByte(baseCodes, c)
	if i < 0 {
		return 0, fmt.Errorf("invalid base %q", c)
	}
	return Base(i), nil
}

// Sequence is a packed read sequence, two bases per byte.
type Sequence struct {
	raw []byte
	n   int
}

func (s Sequence) Len() int {
	return s.n
}

func (s Sequence) At(i int) Base {
	b := s.raw[i/2]
	if i%2 == 0 {
		return Base(b >> 4)
	}
	return Base(b & 0x0f)
}

func (s Sequence) String() string {
	out := make([]byte, s.n)
	for i := range out {
		out[i] = s.At(i).Char()
	}
	return string(out)
}

// ReverseComplement returns the bases of the opposite strand.
func (s Sequence) ReverseComplement() string {
	out := make([]byte, s.n)
	for i := range out {
		out[s.n-1-i] = s.At(i).Complement().Char()
	}
	return string(out)
}

func appendSequence(dst []byte, seq string) ([]byte, error) {
	for i := 0; i < len(seq); i += 2 {
		hi, err := ParseBase(seq[i])
		if err != nil {
			return dst, err
		}
		var lo Base
		if i+1 < len(seq) {
			if lo, err = ParseBase(seq[i+1]); err != nil {
				return dst, err
			}
		}
		dst = append(dst, byte(hi)<<4|byte(lo))
	}
	return dst, nil
}
