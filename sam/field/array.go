package field

import (
	"encoding/binary"
	"math"
)

// Array is a typed numeric array. Elements are kept in their little-endian
// wire form and converted on access.
type Array struct {
	sub Subtype
	n   int
	raw []byte
}

func (a Array) Subtype() Subtype { return a.sub }
func (a Array) Len() int         { return a.n }

// Int returns element i of an integer array. Float elements are truncated.
func (a Array) Int(i int) int64 {
	switch a.sub {
	case Int8Subtype:
		return int64(int8(a.raw[i]))
	case UInt8Subtype:
		return int64(a.raw[i])
	case Int16Subtype:
		return int64(int16(binary.LittleEndian.Uint16(a.raw[2*i:])))
	case UInt16Subtype:
		return int64(binary.LittleEndian.Uint16(a.raw[2*i:]))
	case Int32Subtype:
		return int64(int32(binary.LittleEndian.Uint32(a.raw[4*i:])))
	case UInt32Subtype:
		return int64(binary.LittleEndian.Uint32(a.raw[4*i:]))
	}
	return int64(a.Float(i))
}

func (a Array) Float(i int) float32 {
	if a.sub == FloatSubtype {
		return math.Float32frombits(binary.LittleEndian.Uint32(a.raw[4*i:]))
	}
	return float32(a.Int(i))
}

func (a Array) Ints() []int64 {
	out := make([]int64, a.n)
	for i := range out {
		out[i] = a.Int(i)
	}
	return out
}

func (a Array) Floats() []float32 {
	out := make([]float32, a.n)
	for i := range out {
		out[i] = a.Float(i)
	}
	return out
}

func (a Array) Clone() Array {
	if a.raw != nil {
		a.raw = append(make([]byte, 0, len(a.raw)), a.raw...)
	}
	return a
}

func newArray(sub Subtype, n int) Array {
	return Array{sub: sub, n: n, raw: make([]byte, 0, n*sub.Size())}
}

func Int8Array(vs []int8) Array {
	a := newArray(Int8Subtype, len(vs))
	for _, v := range vs {
		a.raw = append(a.raw, byte(v))
	}
	return a
}

func UInt8Array(vs []uint8) Array {
	a := newArray(UInt8Subtype, len(vs))
	a.raw = append(a.raw, vs...)
	return a
}

func Int16Array(vs []int16) Array {
	a := newArray(Int16Subtype, len(vs))
	for _, v := range vs {
		a.raw = binary.LittleEndian.AppendUint16(a.raw, uint16(v))
	}
	return a
}

func UInt16Array(vs []uint16) Array {
	a := newArray(UInt16Subtype, len(vs))
	for _, v := range vs {
		a.raw = binary.LittleEndian.AppendUint16(a.raw, v)
	}
	return a
}

func Int32Array(vs []int32) Array {
	a := newArray(Int32Subtype, len(vs))
	for _, v := range vs {
		a.raw = binary.LittleEndian.AppendUint32(a.raw, uint32(v))
	}
	return a
}

func UInt32Array(vs []uint32) Array {
	a := newArray(UInt32Subtype, len(vs))
	for _, v := range vs {
		a.raw = binary.LittleEndian.AppendUint32(a.raw, v)
	}
	return a
}

func FloatArray(vs []float32) Array {
	a := newArray(FloatSubtype, len(vs))
	for _, v := range vs {
		a.raw = binary.LittleEndian.AppendUint32(a.raw, math.Float32bits(v))
	}
	return a
}
