package bcf

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/nimezhu/hts/header"
	"github.com/nimezhu/hts/internal/binio"
	"github.com/nimezhu/hts/region"
	"github.com/nimezhu/hts/vcf"
)

const (
	siteFixedSize = 24
	maxRecordSize = 1 << 30
)

// InfoField is an INFO entry keyed by its string dictionary index.
type InfoField struct {
	Key   int
	Value Value
}

// Record is a BCF site. Per-sample data is kept in its encoded form.
type Record struct {
	ChromID int
	// Pos is 0-based.
	Pos  int
	RLen int
	// Qual holds the FloatMissing bit pattern when absent.
	Qual    float32
	ID      string
	Alleles []string
	Filters []int
	Info    []InfoField

	FormatCount int
	SampleCount int
	Samples     []byte
}

func (r *Record) ReferenceSequenceID() int {
	return r.ChromID
}

// Interval spans the reference bases of the site, at least one.
func (r *Record) Interval() region.Interval {
	return region.Interval{Start: r.Pos, End: r.Pos + max(r.RLen, 1)}
}

func (r *Record) QualMissing() bool {
	return math.Float32bits(r.Qual) == FloatMissing
}

// FilterIDs resolves the filters. An empty result means the filters are
// missing.
func (r *Record) FilterIDs(strings header.Dictionary) ([]string, error) {
	return resolveAll(strings, r.Filters)
}

// FilterStatus is the resolved FILTER column. ok is false when the
// filters are missing.
func (r *Record) FilterStatus(strings header.Dictionary) (f vcf.Filters, ok bool, err error) {
	names, err := r.FilterIDs(strings)
	if err != nil || len(names) == 0 {
		return vcf.Filters{}, false, err
	}
	f, err = vcf.NewFilters(names...)
	return f, err == nil, err
}

// LookupInfo returns the value of an INFO key.
func (r *Record) LookupInfo(strings header.Dictionary, key string) (Value, bool) {
	idx, ok := strings.IndexOf(key)
	if !ok {
		return Value{}, false
	}
	for _, f := range r.Info {
		if f.Key == idx {
			return f.Value, true
		}
	}
	return Value{}, false
}

// DecodeRecord reads one record into a fresh buffer. It returns io.EOF
// when r ends before the record.
func DecodeRecord(r io.Reader) (*Record, error) {
	shared, err := binio.ReadInt32(r)
	if err != nil {
		return nil, err
	}
	indiv, err := binio.More(binio.ReadInt32(r))
	if err != nil {
		return nil, err
	}
	lShared, lIndiv := uint64(uint32(shared)), uint64(uint32(indiv))
	if lShared < siteFixedSize || lShared+lIndiv > maxRecordSize {
		return nil, fmt.Errorf("%w: record lengths %d+%d", ErrMalformedValue, lShared, lIndiv)
	}
	buf, err := binio.ReadN(r, int(lShared+lIndiv))
	if err != nil {
		return nil, binio.Unexpected(err)
	}
	rec, err := decodeSite(buf[:lShared])
	if err != nil {
		return nil, err
	}
	if lIndiv > 0 {
		rec.Samples = buf[lShared:]
	}
	return rec, nil
}

func decodeSite(src []byte) (*Record, error) {
	rec := &Record{
		ChromID: int(int32(binary.LittleEndian.Uint32(src[0:]))),
		Pos:     int(int32(binary.LittleEndian.Uint32(src[4:]))),
		RLen:    int(int32(binary.LittleEndian.Uint32(src[8:]))),
		Qual:    math.Float32frombits(binary.LittleEndian.Uint32(src[12:])),
	}
	nAlleleInfo := binary.LittleEndian.Uint32(src[16:])
	nFmtSample := binary.LittleEndian.Uint32(src[20:])
	nAllele, nInfo := int(nAlleleInfo>>16), int(nAlleleInfo&0xffff)
	rec.FormatCount, rec.SampleCount = int(nFmtSample>>24), int(nFmtSample&0xffffff)
	src = src[siteFixedSize:]

	id, n, err := readString(src)
	if err != nil {
		return nil, fmt.Errorf("id: %w", err)
	}
	rec.ID, src = id, src[n:]

	rec.Alleles = make([]string, nAllele)
	for i := range rec.Alleles {
		if rec.Alleles[i], n, err = readString(src); err != nil {
			return nil, fmt.Errorf("allele %d: %w", i, err)
		}
		src = src[n:]
	}

	if rec.Filters, n, err = ReadStringMapIndices(src); err != nil {
		return nil, fmt.Errorf("filters: %w", err)
	}
	src = src[n:]

	rec.Info = make([]InfoField, nInfo)
	for i := range rec.Info {
		key, n, err := ReadInfoKey(src)
		if err != nil {
			return nil, fmt.Errorf("info %d key: %w", i, err)
		}
		v, m, err := ReadValue(src[n:])
		if err != nil {
			return nil, fmt.Errorf("info %d value: %w", i, err)
		}
		rec.Info[i] = InfoField{Key: key, Value: v}
		src = src[n+m:]
	}
	return rec, nil
}

func readString(src []byte) (string, int, error) {
	v, n, err := ReadValue(src)
	if err != nil {
		return "", 0, err
	}
	if v.Type != Char && v.Type != Missing {
		return "", 0, fmt.Errorf("%w: want string, got type %d", ErrMalformedValue, v.Type)
	}
	return v.String, n, nil
}

// AppendRecord appends the encoded record, length prefixes included.
func AppendRecord(dst []byte, r *Record) []byte {
	site := make([]byte, siteFixedSize, 64)
	binary.LittleEndian.PutUint32(site[0:], uint32(int32(r.ChromID)))
	binary.LittleEndian.PutUint32(site[4:], uint32(int32(r.Pos)))
	binary.LittleEndian.PutUint32(site[8:], uint32(int32(r.RLen)))
	binary.LittleEndian.PutUint32(site[12:], math.Float32bits(r.Qual))
	binary.LittleEndian.PutUint32(site[16:], uint32(len(r.Alleles))<<16|uint32(len(r.Info))&0xffff)
	binary.LittleEndian.PutUint32(site[20:], uint32(r.FormatCount)<<24|uint32(r.SampleCount)&0xffffff)
	site = AppendValue(site, StringValue(r.ID))
	for _, a := range r.Alleles {
		site = AppendValue(site, StringValue(a))
	}
	site = AppendStringMapIndices(site, r.Filters)
	for _, f := range r.Info {
		site = AppendStringMapIndices(site, []int{f.Key})
		site = AppendValue(site, f.Value)
	}

	dst = binary.LittleEndian.AppendUint32(dst, uint32(len(site)))
	dst = binary.LittleEndian.AppendUint32(dst, uint32(len(r.Samples)))
	dst = append(dst, site...)
	return append(dst, r.Samples...)
}
