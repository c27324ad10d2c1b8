package bam

import (
	"fmt"
	"strconv"
	"strings"
)

const cigarOps = "MIDNSHP=X"

// CigarOp packs an operation length and kind as stored in BAM.
type CigarOp uint32

func NewCigarOp(kind byte, n int) (CigarOp, error) {
	i := strings.IndexByte(cigarOps, kind)
	if i < 0 || n < 0 || n >= 1<<28 {
		return 0, fmt.Errorf("invalid cigar op %d%c", n, kind)
	}
	return CigarOp(uint32(n)<<4 | uint32(i)), nil
}

func (op CigarOp) Kind() byte {
	if k := int(op & 0x0f); k < len(cigarOps) {
		return cigarOps[k]
	}
	return '?'
}

func (op CigarOp) Len() int {
	return int(op >> 4)
}

// ConsumesReference is true for M, D, N, = and X.
func (op CigarOp) ConsumesReference() bool {
	switch op.Kind() {
	case 'M', 'D', 'N', '=', 'X':
		return true
	}
	return false
}

func (op CigarOp) String() string {
	return strconv.Itoa(op.Len()) + string(op.Kind())
}

type Cigar []CigarOp

// ReferenceLen is the number of reference bases the alignment spans.
func (c Cigar) ReferenceLen() int {
	n := 0
	for _, op := range c {
		if op.ConsumesReference() {
			n += op.Len()
		}
	}
	return n
}

func (c Cigar) String() string {
	if len(c) == 0 {
		return "*"
	}
	var b strings.Builder
	for _, op := range c {
		b.WriteString(op.String())
	}
	return b.String()
}

// ParseCigar reads the SAM text form, such as "8M2I3M".
func ParseCigar(s string) (Cigar, error) {
	if s == "*" || s == "" {
		return nil, nil
	}
	var c Cigar
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			continue
		}
		n, err := strconv.Atoi(s[start:i])
		if err != nil {
			return nil, fmt.Errorf("invalid cigar %q", s)
		}
		op, err := NewCigarOp(s[i], n)
		if err != nil {
			return nil, err
		}
		c = append(c, op)
		start = i + 1
	}
	if start != len(s) {
		return nil, fmt.Errorf("invalid cigar %q", s)
	}
	return c, nil
}
