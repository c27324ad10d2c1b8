package field

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeValue(t *testing.T) {
	tests := []struct {
		src  []byte
		ty   Type
		want Value
	}{
		{[]byte{'n'}, CharacterType, CharValue('n')},
		{[]byte{0x00}, Int8Type, Int8Value(0)},
		{[]byte{0x00}, UInt8Type, UInt8Value(0)},
		{[]byte{0x00, 0x00}, Int16Type, Int16Value(0)},
		{[]byte{0x00, 0x00}, UInt16Type, UInt16Value(0)},
		{[]byte{0x00, 0x00, 0x00, 0x00}, Int32Type, Int32Value(0)},
		{[]byte{0x00, 0x00, 0x00, 0x00}, UInt32Type, UInt32Value(0)},
		{[]byte{0x00, 0x00, 0x00, 0x00}, FloatType, FloatValue(0)},
		{[]byte("ndls\x00"), StringType, StringValue("ndls")},
		{[]byte("CAFE\x00"), HexType, HexValue("CAFE")},
		{[]byte{'C', 0x01, 0x00, 0x00, 0x00, 0x00}, ArrayType, ArrayValue(UInt8Array([]uint8{0}))},
	}
	for _, tt := range tests {
		got, n, err := DecodeValue(tt.src, tt.ty)
		require.NoError(t, err, tt.ty)
		require.Equal(t, tt.want, got, tt.ty)
		require.Equal(t, len(tt.src), n, tt.ty)
	}
}

func TestRoundTrip(t *testing.T) {
	values := []Value{
		CharValue('A'),
		Int8Value(math.MinInt8), Int8Value(math.MaxInt8),
		UInt8Value(0), UInt8Value(math.MaxUint8),
		Int16Value(math.MinInt16), Int16Value(math.MaxInt16),
		UInt16Value(math.MaxUint16),
		Int32Value(math.MinInt32), Int32Value(math.MaxInt32),
		UInt32Value(math.MaxUint32),
		FloatValue(8.13), FloatValue(float32(math.Inf(-1))),
		StringValue(""), StringValue("genome"),
		HexValue("CAFE"),
		ArrayValue(Int8Array([]int8{})),
		ArrayValue(Int8Array([]int8{-8})),
		ArrayValue(UInt8Array([]uint8{0, 255, 13})),
		ArrayValue(Int16Array([]int16{math.MinInt16, 0, math.MaxInt16})),
		ArrayValue(UInt16Array([]uint16{math.MaxUint16})),
		ArrayValue(Int32Array([]int32{math.MinInt32, -1, math.MaxInt32})),
		ArrayValue(UInt32Array([]uint32{math.MaxUint32, 1})),
		ArrayValue(FloatArray([]float32{0.5, -2})),
	}
	for _, v := range values {
		buf := AppendValue([]byte{0xee}, v)
		got, n, err := DecodeValue(buf[1:], v.Type())
		require.NoError(t, err, v.String())
		require.Equal(t, len(buf)-1, n, v.String())
		require.Equal(t, v, got, v.String())
	}
}

func TestDecodeStringTermination(t *testing.T) {
	src := []byte("ab\x00cd")
	v, n, err := DecodeValue(src, StringType)
	require.NoError(t, err)
	require.Equal(t, 3, n, "the NUL is consumed")
	b, ok := v.Bytes()
	require.True(t, ok)
	require.Equal(t, "ab", string(b))

	_, _, err = DecodeValue([]byte("abcd"), StringType)
	require.ErrorIs(t, err, ErrMalformedValue)
	_, _, err = DecodeValue([]byte("CAFE"), HexType)
	require.ErrorIs(t, err, ErrMalformedValue)
}

func TestDecodeMalformed(t *testing.T) {
	for _, tt := range []struct {
		src []byte
		ty  Type
	}{
		{nil, CharacterType},
		{[]byte{1}, Int16Type},
		{[]byte{1, 2, 3}, FloatType},
		{[]byte{'C', 1, 0}, ArrayType},
		{[]byte{'x', 0, 0, 0, 0}, ArrayType},
		{[]byte{'S', 2, 0, 0, 0, 1, 0}, ArrayType},
		{[]byte{'i', 0xff, 0xff, 0xff, 0xff}, ArrayType},
		{[]byte{0}, Type('q')},
	} {
		_, _, err := DecodeValue(tt.src, tt.ty)
		require.ErrorIs(t, err, ErrMalformedValue, "%v % x", tt.ty, tt.src)
	}
}

func TestBorrowAndClone(t *testing.T) {
	src := []byte{'s', 2, 0, 0, 0, 1, 0, 0xff, 0xff}
	v, _, err := DecodeValue(src, ArrayType)
	require.NoError(t, err)
	owned := v.Clone()

	src[5] = 9
	a, ok := v.Array()
	require.True(t, ok)
	require.Equal(t, []int64{9, -1}, a.Ints(), "decoded arrays borrow")

	a, _ = owned.Array()
	require.Equal(t, []int64{1, -1}, a.Ints())
	require.Equal(t, Int16Subtype, a.Subtype())
	require.Equal(t, []float32{1, -1}, a.Floats())
}

func TestInt(t *testing.T) {
	tests := []struct {
		n    int64
		want Value
	}{
		{0, UInt8Value(0)},
		{255, UInt8Value(255)},
		{256, UInt16Value(256)},
		{65536, UInt32Value(65536)},
		{math.MaxUint32, UInt32Value(math.MaxUint32)},
		{-1, Int8Value(-1)},
		{-128, Int8Value(-128)},
		{-129, Int16Value(-129)},
		{-32769, Int32Value(-32769)},
	}
	for _, tt := range tests {
		got, err := Int(tt.n)
		require.NoError(t, err)
		require.Equal(t, tt.want, got, "%d", tt.n)
		n, ok := got.AsInt()
		require.True(t, ok)
		require.Equal(t, tt.n, n)
	}

	_, err := Int(math.MaxUint32 + 1)
	require.ErrorIs(t, err, ErrMalformedValue)
	_, err = Int(math.MinInt32 - 1)
	require.ErrorIs(t, err, ErrMalformedValue)
}

func TestAccessors(t *testing.T) {
	v := CharValue('n')
	c, ok := v.Char()
	assert.True(t, ok)
	assert.Equal(t, byte('n'), c)
	_, ok = v.AsInt()
	assert.False(t, ok)
	_, ok = v.Float()
	assert.False(t, ok)
	_, ok = v.Bytes()
	assert.False(t, ok)
	_, ok = v.Array()
	assert.False(t, ok)

	f, ok := FloatValue(0.5).Float()
	assert.True(t, ok)
	assert.Equal(t, float32(0.5), f)
}

func TestString(t *testing.T) {
	assert.Equal(t, "n", CharValue('n').String())
	assert.Equal(t, "-13", Int16Value(-13).String())
	assert.Equal(t, "0.5", FloatValue(0.5).String())
	assert.Equal(t, "ndls", StringValue("ndls").String())
	assert.Equal(t, "C,0,8", ArrayValue(UInt8Array([]uint8{0, 8})).String())
	assert.Equal(t, "f,1.5", ArrayValue(FloatArray([]float32{1.5})).String())
	assert.Equal(t, "c", ArrayValue(Int8Array(nil)).String())
}

func TestField(t *testing.T) {
	buf := AppendField(nil, Tag{'N', 'M'}, UInt8Value(1))
	buf = AppendField(buf, Tag{'C', 'O'}, StringValue("ndls"))
	require.Equal(t, []byte("NMC\x01COZndls\x00"), buf)

	tag, v, n, err := DecodeField(buf)
	require.NoError(t, err)
	require.Equal(t, "NM", tag.String())
	require.Equal(t, UInt8Value(1), v)
	require.Equal(t, 4, n)

	tag, v, _, err = DecodeField(buf[n:])
	require.NoError(t, err)
	require.Equal(t, Tag{'C', 'O'}, tag)
	require.Equal(t, "ndls", v.String())

	_, _, _, err = DecodeField([]byte("NMq\x01"))
	require.ErrorIs(t, err, ErrMalformedValue)
	_, _, _, err = DecodeField([]byte("NM"))
	require.ErrorIs(t, err, ErrMalformedValue)
}
