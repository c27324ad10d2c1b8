package field

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// DecodeValue decodes a value of type ty from the front of src and reports
// how many bytes it used. Strings, hex strings and arrays borrow from src.
func DecodeValue(src []byte, ty Type) (Value, int, error) {
	switch ty {
	case CharacterType, Int8Type, UInt8Type:
		if len(src) < 1 {
			return Value{}, 0, short(ty)
		}
		return Value{typ: ty, bits: uint32(src[0])}, 1, nil
	case Int16Type, UInt16Type:
		if len(src) < 2 {
			return Value{}, 0, short(ty)
		}
		return Value{typ: ty, bits: uint32(binary.LittleEndian.Uint16(src))}, 2, nil
	case Int32Type, UInt32Type, FloatType:
		if len(src) < 4 {
			return Value{}, 0, short(ty)
		}
		return Value{typ: ty, bits: binary.LittleEndian.Uint32(src)}, 4, nil
	case StringType, HexType:
		n := bytes.IndexByte(src, 0)
		if n < 0 {
			return Value{}, 0, fmt.Errorf("%w: %v not NUL terminated", ErrMalformedValue, ty)
		}
		return Value{typ: ty, raw: src[:n:n]}, n + 1, nil
	case ArrayType:
		a, n, err := decodeArray(src)
		if err != nil {
			return Value{}, 0, err
		}
		return ArrayValue(a), n, nil
	}
	return Value{}, 0, fmt.Errorf("%w: invalid type %q", ErrMalformedValue, byte(ty))
}

func decodeArray(src []byte) (Array, int, error) {
	if len(src) < 5 {
		return Array{}, 0, short(ArrayType)
	}
	sub, err := ParseSubtype(src[0])
	if err != nil {
		return Array{}, 0, err
	}
	n := uint64(binary.LittleEndian.Uint32(src[1:]))
	size := n * uint64(sub.Size())
	if size > uint64(len(src)-5) {
		return Array{}, 0, fmt.Errorf("%w: array of %d %v elements: %w", ErrMalformedValue, n, sub, io.ErrUnexpectedEOF)
	}
	end := 5 + int(size)
	return Array{sub: sub, n: int(n), raw: src[5:end:end]}, end, nil
}

func short(ty Type) error {
	return fmt.Errorf("%w: %v: %w", ErrMalformedValue, ty, io.ErrUnexpectedEOF)
}

// AppendValue appends the wire form of v, without its type tag.
func AppendValue(dst []byte, v Value) []byte {
	switch v.typ {
	case CharacterType, Int8Type, UInt8Type:
		return append(dst, byte(v.bits))
	case Int16Type, UInt16Type:
		return binary.LittleEndian.AppendUint16(dst, uint16(v.bits))
	case Int32Type, UInt32Type, FloatType:
		return binary.LittleEndian.AppendUint32(dst, v.bits)
	case StringType, HexType:
		dst = append(dst, v.raw...)
		return append(dst, 0)
	case ArrayType:
		dst = append(dst, byte(v.arr.sub))
		dst = binary.LittleEndian.AppendUint32(dst, uint32(v.arr.n))
		return append(dst, v.arr.raw...)
	}
	return dst
}

// Tag is the two-character key of a data field.
type Tag [2]byte

func (t Tag) String() string {
	return string(t[:])
}

// DecodeField decodes one tag, type and value from the front of src.
func DecodeField(src []byte) (Tag, Value, int, error) {
	if len(src) < 3 {
		return Tag{}, Value{}, 0, fmt.Errorf("%w: field header: %w", ErrMalformedValue, io.ErrUnexpectedEOF)
	}
	tag := Tag{src[0], src[1]}
	ty, err := ParseType(src[2])
	if err != nil {
		return tag, Value{}, 0, fmt.Errorf("%v: %w", tag, err)
	}
	v, n, err := DecodeValue(src[3:], ty)
	if err != nil {
		return tag, Value{}, 0, fmt.Errorf("%v: %w", tag, err)
	}
	return tag, v, 3 + n, nil
}

// AppendField appends tag, type and value.
func AppendField(dst []byte, tag Tag, v Value) []byte {
	dst = append(dst, tag[0], tag[1], byte(v.typ))
	return AppendValue(dst, v)
}
