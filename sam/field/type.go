// Package field decodes and encodes the typed values of alignment data
// fields. Decoded strings, hex strings and arrays borrow from the source
// buffer; call Clone to keep a value past the buffer's reuse.
package field

import (
	"errors"
	"fmt"
)

var ErrMalformedValue = errors.New("malformed value")

// Type is the one-byte wire tag of a value.
type Type byte

const (
	CharacterType Type = 'A'
	Int8Type      Type = 'c'
	UInt8Type     Type = 'C'
	Int16Type     Type = 's'
	UInt16Type    Type = 'S'
	Int32Type     Type = 'i'
	UInt32Type    Type = 'I'
	FloatType     Type = 'f'
	StringType    Type = 'Z'
	HexType       Type = 'H'
	ArrayType     Type = 'B'
)

func ParseType(b byte) (Type, error) {
	switch t := Type(b); t {
	case CharacterType, Int8Type, UInt8Type, Int16Type, UInt16Type, Int32Type, UInt32Type, FloatType, StringType, HexType, ArrayType:
		return t, nil
	}
	return 0, fmt.Errorf("%w: invalid type %q", ErrMalformedValue, b)
}

func (t Type) String() string {
	return string(rune(t))
}

// Subtype is the element type of an array.
type Subtype byte

const (
	Int8Subtype   Subtype = 'c'
	UInt8Subtype  Subtype = 'C'
	Int16Subtype  Subtype = 's'
	UInt16Subtype Subtype = 'S'
	Int32Subtype  Subtype = 'i'
	UInt32Subtype Subtype = 'I'
	FloatSubtype  Subtype = 'f'
)

func ParseSubtype(b byte) (Subtype, error) {
	switch s := Subtype(b); s {
	case Int8Subtype, UInt8Subtype, Int16Subtype, UInt16Subtype, Int32Subtype, UInt32Subtype, FloatSubtype:
		return s, nil
	}
	return 0, fmt.Errorf("%w: invalid array subtype %q", ErrMalformedValue, b)
}

// Size is the width of one element in bytes.
func (s Subtype) Size() int {
	switch s {
	case Int8Subtype, UInt8Subtype:
		return 1
	case Int16Subtype, UInt16Subtype:
		return 2
	}
	return 4
}

func (s Subtype) String() string {
	return string(rune(s))
}
