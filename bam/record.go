package bam

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/nimezhu/hts/csi"
	"github.com/nimezhu/hts/internal/binio"
	"github.com/nimezhu/hts/region"
	"github.com/nimezhu/hts/sam/field"
)

const (
	fixedSize     = 32
	maxRecordSize = 1 << 28
)

var ErrMalformedRecord = fmt.Errorf("malformed BAM record: %w", field.ErrMalformedValue)

type Flags uint16

const (
	Paired        Flags = 0x1
	ProperPair    Flags = 0x2
	Unmapped      Flags = 0x4
	MateUnmapped  Flags = 0x8
	Reverse       Flags = 0x10
	MateReverse   Flags = 0x20
	Read1         Flags = 0x40
	Read2         Flags = 0x80
	Secondary     Flags = 0x100
	QCFail        Flags = 0x200
	Duplicate     Flags = 0x400
	Supplementary Flags = 0x800
)

// Record is a decoded BAM alignment. Name, sequence, qualities and data
// borrow from the record's own buffer.
type Record struct {
	RefID       int
	Pos         int
	MapQ        byte
	Bin         uint16
	Flags       Flags
	NextRefID   int
	NextPos     int
	TemplateLen int

	name  []byte
	cigar Cigar
	seq   Sequence
	qual  []byte
	data  []byte
}

func (r *Record) ReferenceSequenceID() int {
	return r.RefID
}

// End is the 0-based exclusive alignment end. Unmapped records and records
// whose CIGAR consumes no reference bases span one base.
func (r *Record) End() int {
	return alignmentEnd(r.Pos, r.Flags, r.cigar)
}

func alignmentEnd(pos int, flags Flags, c Cigar) int {
	if n := c.ReferenceLen(); flags&Unmapped == 0 && n > 0 {
		return pos + n
	}
	return pos + 1
}

func (r *Record) Interval() region.Interval {
	return region.Interval{Start: r.Pos, End: r.End()}
}

// Name is the read name without its NUL terminator.
func (r *Record) Name() []byte {
	if n := len(r.name); n > 0 && r.name[n-1] == 0 {
		return r.name[:n-1]
	}
	return r.name
}

func (r *Record) Cigar() Cigar       { return r.cigar }
func (r *Record) Sequence() Sequence { return r.seq }

// Quality returns Phred scores, or nil when they are missing.
func (r *Record) Quality() []byte {
	if len(r.qual) > 0 && r.qual[0] == 0xff {
		return nil
	}
	return r.qual
}

// Field looks up a data field by tag.
func (r *Record) Field(tag field.Tag) (field.Value, bool, error) {
	for src := r.data; len(src) > 0; {
		t, v, n, err := field.DecodeField(src)
		if err != nil {
			return field.Value{}, false, err
		}
		if t == tag {
			return v, true, nil
		}
		src = src[n:]
	}
	return field.Value{}, false, nil
}

type Field struct {
	Tag   field.Tag
	Value field.Value
}

// Fields decodes all data fields.
func (r *Record) Fields() ([]Field, error) {
	var fields []Field
	for src := r.data; len(src) > 0; {
		t, v, n, err := field.DecodeField(src)
		if err != nil {
			return fields, err
		}
		fields = append(fields, Field{Tag: t, Value: v})
		src = src[n:]
	}
	return fields, nil
}

// DecodeRecord reads one record into a fresh buffer. It returns io.EOF
// when r ends before the record.
func DecodeRecord(r io.Reader) (*Record, error) {
	n, err := binio.ReadInt32(r)
	if err != nil {
		return nil, err
	}
	if n < fixedSize || n > maxRecordSize {
		return nil, fmt.Errorf("%w: block size %d", ErrMalformedRecord, uint32(n))
	}
	buf, err := binio.ReadN(r, int(n))
	if err != nil {
		return nil, binio.Unexpected(err)
	}
	return decode(buf)
}

func decode(buf []byte) (*Record, error) {
	rec := &Record{
		RefID:       int(int32(binary.LittleEndian.Uint32(buf[0:]))),
		Pos:         int(int32(binary.LittleEndian.Uint32(buf[4:]))),
		MapQ:        buf[9],
		Bin:         binary.LittleEndian.Uint16(buf[10:]),
		Flags:       Flags(binary.LittleEndian.Uint16(buf[14:])),
		NextRefID:   int(int32(binary.LittleEndian.Uint32(buf[20:]))),
		NextPos:     int(int32(binary.LittleEndian.Uint32(buf[24:]))),
		TemplateLen: int(int32(binary.LittleEndian.Uint32(buf[28:]))),
	}
	lName := int(buf[8])
	nCigar := int(binary.LittleEndian.Uint16(buf[12:]))
	lSeq := int(binary.LittleEndian.Uint32(buf[16:]))

	src := buf[fixedSize:]
	take := func(n int, what string) ([]byte, error) {
		if n < 0 || n > len(src) {
			return nil, fmt.Errorf("%w: %s of %d bytes: %w", ErrMalformedRecord, what, n, io.ErrUnexpectedEOF)
		}
		p := src[:n:n]
		src = src[n:]
		return p, nil
	}
	var err error
	if rec.name, err = take(lName, "read name"); err != nil {
		return nil, err
	}
	raw, err := take(4*nCigar, "cigar")
	if err != nil {
		return nil, err
	}
	rec.cigar = make(Cigar, nCigar)
	for i := range rec.cigar {
		rec.cigar[i] = CigarOp(binary.LittleEndian.Uint32(raw[4*i:]))
	}
	seq, err := take((lSeq+1)/2, "sequence")
	if err != nil {
		return nil, err
	}
	rec.seq = Sequence{raw: seq, n: lSeq}
	if rec.qual, err = take(lSeq, "quality scores"); err != nil {
		return nil, err
	}
	rec.data = src
	return rec, nil
}

// Alignment holds the fields of a record to encode.
type Alignment struct {
	Name        string
	Flags       Flags
	RefID       int
	Pos         int
	MapQ        byte
	Cigar       Cigar
	Sequence    string
	Quality     []byte
	NextRefID   int
	NextPos     int
	TemplateLen int
	Fields      []Field
}

// AppendRecord appends the encoded alignment, block size included. The bin
// is computed from the alignment span.
func AppendRecord(dst []byte, a *Alignment) ([]byte, error) {
	if len(a.Name)+1 > 255 {
		return dst, fmt.Errorf("read name %q too long", a.Name)
	}
	if a.Quality != nil && len(a.Quality) != len(a.Sequence) {
		return dst, fmt.Errorf("%d quality scores for %d bases", len(a.Quality), len(a.Sequence))
	}
	end := alignmentEnd(a.Pos, a.Flags, a.Cigar)
	bin := uint16(4680)
	if a.Pos >= 0 {
		bin = uint16(csi.Reg2Bin(a.Pos, end, csi.BAIMinShift, csi.BAIDepth))
	}

	body := make([]byte, fixedSize, fixedSize+len(a.Name)+1+4*len(a.Cigar)+len(a.Sequence)*2)
	binary.LittleEndian.PutUint32(body[0:], uint32(int32(a.RefID)))
	binary.LittleEndian.PutUint32(body[4:], uint32(int32(a.Pos)))
	body[8] = byte(len(a.Name) + 1)
	body[9] = a.MapQ
	binary.LittleEndian.PutUint16(body[10:], bin)
	binary.LittleEndian.PutUint16(body[12:], uint16(len(a.Cigar)))
	binary.LittleEndian.PutUint16(body[14:], uint16(a.Flags))
	binary.LittleEndian.PutUint32(body[16:], uint32(len(a.Sequence)))
	binary.LittleEndian.PutUint32(body[20:], uint32(int32(a.NextRefID)))
	binary.LittleEndian.PutUint32(body[24:], uint32(int32(a.NextPos)))
	binary.LittleEndian.PutUint32(body[28:], uint32(int32(a.TemplateLen)))
	body = append(body, a.Name...)
	body = append(body, 0)
	for _, op := range a.Cigar {
		body = binary.LittleEndian.AppendUint32(body, uint32(op))
	}
	var err error
	if body, err = appendSequence(body, a.Sequence); err != nil {
		return dst, err
	}
	if a.Quality == nil {
		for i := 0; i < len(a.Sequence); i++ {
			body = append(body, 0xff)
		}
	} else {
		body = append(body, a.Quality...)
	}
	for _, f := range a.Fields {
		body = field.AppendField(body, f.Tag, f.Value)
	}

	dst = binary.LittleEndian.AppendUint32(dst, uint32(len(body)))
	return append(dst, body...), nil
}
