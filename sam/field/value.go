package field

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Value is a typed data field value. The zero Value is invalid.
type Value struct {
	typ  Type
	bits uint32
	raw  []byte
	arr  Array
}

func CharValue(c byte) Value      { return Value{typ: CharacterType, bits: uint32(c)} }
func Int8Value(n int8) Value      { return Value{typ: Int8Type, bits: uint32(uint8(n))} }
func UInt8Value(n uint8) Value    { return Value{typ: UInt8Type, bits: uint32(n)} }
func Int16Value(n int16) Value    { return Value{typ: Int16Type, bits: uint32(uint16(n))} }
func UInt16Value(n uint16) Value  { return Value{typ: UInt16Type, bits: uint32(n)} }
func Int32Value(n int32) Value    { return Value{typ: Int32Type, bits: uint32(n)} }
func UInt32Value(n uint32) Value  { return Value{typ: UInt32Type, bits: n} }
func FloatValue(f float32) Value  { return Value{typ: FloatType, bits: math.Float32bits(f)} }
func StringValue(s string) Value  { return Value{typ: StringType, raw: ownedBytes(s)} }
func HexValue(s string) Value     { return Value{typ: HexType, raw: ownedBytes(s)} }
func ArrayValue(a Array) Value    { return Value{typ: ArrayType, arr: a} }

func ownedBytes(s string) []byte {
	return append(make([]byte, 0, len(s)), s...)
}

// Int returns n in the smallest integer variant that holds it. Non-negative
// numbers use the unsigned variants.
func Int(n int64) (Value, error) {
	switch {
	case n >= 0 && n <= math.MaxUint8:
		return UInt8Value(uint8(n)), nil
	case n >= 0 && n <= math.MaxUint16:
		return UInt16Value(uint16(n)), nil
	case n >= 0 && n <= math.MaxUint32:
		return UInt32Value(uint32(n)), nil
	case n >= math.MinInt8 && n < 0:
		return Int8Value(int8(n)), nil
	case n >= math.MinInt16 && n < 0:
		return Int16Value(int16(n)), nil
	case n >= math.MinInt32 && n < 0:
		return Int32Value(int32(n)), nil
	}
	return Value{}, fmt.Errorf("%w: integer %d out of range", ErrMalformedValue, n)
}

func (v Value) Type() Type {
	return v.typ
}

func (v Value) Char() (byte, bool) {
	return byte(v.bits), v.typ == CharacterType
}

// AsInt returns the value of any integer variant.
func (v Value) AsInt() (int64, bool) {
	switch v.typ {
	case Int8Type:
		return int64(int8(v.bits)), true
	case UInt8Type:
		return int64(uint8(v.bits)), true
	case Int16Type:
		return int64(int16(v.bits)), true
	case UInt16Type:
		return int64(uint16(v.bits)), true
	case Int32Type:
		return int64(int32(v.bits)), true
	case UInt32Type:
		return int64(v.bits), true
	}
	return 0, false
}

func (v Value) Float() (float32, bool) {
	return math.Float32frombits(v.bits), v.typ == FloatType
}

// Bytes returns the content of a string or hex value, without the NUL.
func (v Value) Bytes() ([]byte, bool) {
	if v.typ != StringType && v.typ != HexType {
		return nil, false
	}
	return v.raw, true
}

func (v Value) Array() (Array, bool) {
	return v.arr, v.typ == ArrayType
}

// Clone returns a copy that no longer borrows from a decode buffer.
func (v Value) Clone() Value {
	if v.raw != nil {
		v.raw = append(make([]byte, 0, len(v.raw)), v.raw...)
	}
	v.arr = v.arr.Clone()
	return v
}

// String formats the value the way SAM text does.
func (v Value) String() string {
	switch v.typ {
	case CharacterType:
		return string(rune(byte(v.bits)))
	case FloatType:
		return formatFloat(math.Float32frombits(v.bits))
	case StringType, HexType:
		return string(v.raw)
	case ArrayType:
		var b strings.Builder
		b.WriteString(v.arr.Subtype().String())
		for i := 0; i < v.arr.Len(); i++ {
			b.WriteByte(',')
			if v.arr.Subtype() == FloatSubtype {
				b.WriteString(formatFloat(v.arr.Float(i)))
			} else {
				b.WriteString(strconv.FormatInt(v.arr.Int(i), 10))
			}
		}
		return b.String()
	}
	if n, ok := v.AsInt(); ok {
		return strconv.FormatInt(n, 10)
	}
	return ""
}

func formatFloat(f float32) string {
	return strconv.FormatFloat(float64(f), 'g', -1, 32)
}
