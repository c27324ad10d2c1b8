// Package bcf reads and writes BCF 2 site records and the typed value
// framing they are built from.
package bcf

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/nimezhu/hts/sam/field"
)

var ErrMalformedValue = field.ErrMalformedValue

// ValueType is the low nibble of a typed value descriptor.
type ValueType byte

const (
	Missing ValueType = 0
	Int8    ValueType = 1
	Int16   ValueType = 2
	Int32   ValueType = 3
	Float   ValueType = 5
	Char    ValueType = 7
)

func (t ValueType) size() int {
	switch t {
	case Int8, Char:
		return 1
	case Int16:
		return 2
	case Int32, Float:
		return 4
	}
	return 0
}

// Reserved values. Integers are reported widened to int32.
const (
	Int8Missing      = math.MinInt8
	Int8EndOfVector  = math.MinInt8 + 1
	Int16Missing     = math.MinInt16
	Int16EndOfVector = math.MinInt16 + 1
	Int32Missing     = math.MinInt32
	Int32EndOfVector = math.MinInt32 + 1

	FloatMissing     uint32 = 0x7f800001
	FloatEndOfVector uint32 = 0x7f800002

	// values below these minimums are reserved
	int8Min  = math.MinInt8 + 8
	int16Min = math.MinInt16 + 8
	int32Min = math.MinInt32 + 8
)

// AppendDescriptor appends the descriptor of n values of type ty. Counts
// of 15 and more are written as a following typed integer.
func AppendDescriptor(dst []byte, ty ValueType, n int) []byte {
	if n < 15 {
		return append(dst, byte(n)<<4|byte(ty))
	}
	dst = append(dst, 0xf0|byte(ty))
	return AppendInts(dst, []int32{int32(n)})
}

// ReadDescriptor decodes a descriptor and returns the value type, the
// value count and the bytes used.
func ReadDescriptor(src []byte) (ValueType, int, int, error) {
	if len(src) < 1 {
		return 0, 0, 0, fmt.Errorf("%w: descriptor: %w", ErrMalformedValue, io.ErrUnexpectedEOF)
	}
	ty := ValueType(src[0] & 0x0f)
	switch ty {
	case Missing, Int8, Int16, Int32, Float, Char:
	default:
		return 0, 0, 0, fmt.Errorf("%w: invalid value type %d", ErrMalformedValue, ty)
	}
	n := int(src[0] >> 4)
	if n < 15 {
		return ty, n, 1, nil
	}
	vs, used, err := ReadInts(src[1:])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("overflow count: %w", err)
	}
	if len(vs) != 1 || vs[0] < 15 {
		return 0, 0, 0, fmt.Errorf("%w: invalid overflow count %v", ErrMalformedValue, vs)
	}
	return ty, int(vs[0]), 1 + used, nil
}

// IntType returns the narrowest integer type holding every value of vs.
// Missing and end of vector values fit any type.
func IntType(vs []int32) ValueType {
	ty := Int8
	for _, v := range vs {
		if v == Int32Missing || v == Int32EndOfVector {
			continue
		}
		switch {
		case v >= int8Min && v <= math.MaxInt8:
		case v >= int16Min && v <= math.MaxInt16:
			ty = max(ty, Int16)
		default:
			return Int32
		}
	}
	return ty
}

// AppendInts appends vs as a typed integer vector of the narrowest width.
// An empty vector is a single missing descriptor.
func AppendInts(dst []byte, vs []int32) []byte {
	if len(vs) == 0 {
		return AppendDescriptor(dst, Missing, 0)
	}
	ty := IntType(vs)
	dst = AppendDescriptor(dst, ty, len(vs))
	for _, v := range vs {
		switch ty {
		case Int8:
			dst = append(dst, byte(narrow(v, Int8Missing, Int8EndOfVector)))
		case Int16:
			dst = binary.LittleEndian.AppendUint16(dst, uint16(narrow(v, Int16Missing, Int16EndOfVector)))
		default:
			dst = binary.LittleEndian.AppendUint32(dst, uint32(v))
		}
	}
	return dst
}

func narrow(v, missing, eov int32) int32 {
	switch v {
	case Int32Missing:
		return missing
	case Int32EndOfVector:
		return eov
	}
	return v
}

// ReadInts decodes a typed integer vector. Reserved values are widened to
// Int32Missing and Int32EndOfVector.
func ReadInts(src []byte) ([]int32, int, error) {
	ty, n, used, err := ReadDescriptor(src)
	if err != nil {
		return nil, 0, err
	}
	if n == 0 {
		return []int32{}, used, nil
	}
	if ty != Int8 && ty != Int16 && ty != Int32 {
		return nil, 0, fmt.Errorf("%w: want integers, got type %d", ErrMalformedValue, ty)
	}
	body, err := payload(src[used:], ty, n)
	if err != nil {
		return nil, 0, err
	}
	vs := make([]int32, n)
	for i := range vs {
		switch ty {
		case Int8:
			vs[i] = widen(int32(int8(body[i])), Int8Missing, Int8EndOfVector)
		case Int16:
			vs[i] = widen(int32(int16(binary.LittleEndian.Uint16(body[2*i:]))), Int16Missing, Int16EndOfVector)
		default:
			vs[i] = int32(binary.LittleEndian.Uint32(body[4*i:]))
		}
	}
	return vs, used + len(body), nil
}

func widen(v, missing, eov int32) int32 {
	switch v {
	case missing:
		return Int32Missing
	case eov:
		return Int32EndOfVector
	}
	return v
}

func payload(src []byte, ty ValueType, n int) ([]byte, error) {
	size := uint64(n) * uint64(ty.size())
	if size > uint64(len(src)) {
		return nil, fmt.Errorf("%w: %d values of type %d: %w", ErrMalformedValue, n, ty, io.ErrUnexpectedEOF)
	}
	return src[:size], nil
}

// Value is a decoded typed vector. Only the field matching Type is set.
type Value struct {
	Type   ValueType
	Ints   []int32
	Floats []float32
	String string
}

// Len is the number of values, or the string length.
func (v Value) Len() int {
	switch v.Type {
	case Int8, Int16, Int32:
		return len(v.Ints)
	case Float:
		return len(v.Floats)
	case Char:
		return len(v.String)
	}
	return 0
}

func IntsValue(vs ...int32) Value {
	return Value{Type: IntType(vs), Ints: vs}
}

func FloatsValue(vs ...float32) Value {
	return Value{Type: Float, Floats: vs}
}

func StringValue(s string) Value {
	return Value{Type: Char, String: s}
}

// FlagValue is the value of a present INFO flag.
func FlagValue() Value {
	return Value{Type: Missing}
}

// AppendValue appends v in typed value framing. Integers are narrowed.
func AppendValue(dst []byte, v Value) []byte {
	switch v.Type {
	case Int8, Int16, Int32:
		return AppendInts(dst, v.Ints)
	case Float:
		dst = AppendDescriptor(dst, Float, len(v.Floats))
		for _, f := range v.Floats {
			dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(f))
		}
		return dst
	case Char:
		dst = AppendDescriptor(dst, Char, len(v.String))
		return append(dst, v.String...)
	}
	return AppendDescriptor(dst, Missing, 0)
}

// ReadValue decodes one typed vector.
func ReadValue(src []byte) (Value, int, error) {
	ty, n, used, err := ReadDescriptor(src)
	if err != nil {
		return Value{}, 0, err
	}
	switch ty {
	case Int8, Int16, Int32:
		vs, m, err := ReadInts(src)
		if err != nil {
			return Value{}, 0, err
		}
		return Value{Type: ty, Ints: vs}, m, nil
	case Float:
		body, err := payload(src[used:], ty, n)
		if err != nil {
			return Value{}, 0, err
		}
		fs := make([]float32, n)
		for i := range fs {
			fs[i] = math.Float32frombits(binary.LittleEndian.Uint32(body[4*i:]))
		}
		return Value{Type: Float, Floats: fs}, used + len(body), nil
	case Char:
		body, err := payload(src[used:], ty, n)
		if err != nil {
			return Value{}, 0, err
		}
		end := len(body)
		for end > 0 && body[end-1] == 0 {
			end--
		}
		return Value{Type: Char, String: string(body[:end])}, used + len(body), nil
	}
	if n != 0 {
		return Value{}, 0, fmt.Errorf("%w: %d values of missing type", ErrMalformedValue, n)
	}
	return Value{Type: Missing}, used, nil
}
