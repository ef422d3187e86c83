package bacapp

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnsigned_RoundTrip(t *testing.T) {
	values := []uint64{0, 1, 255, 256, 65535, 65536, 1<<32 - 1, 1 << 40}
	for _, v := range values {
		var buf bytes.Buffer
		EncodeUnsigned(&buf, v)
		got, n, err := DecodeUnsigned(buf.Bytes())
		require.NoError(t, err)
		assert.Equal(t, v, got)
		assert.Equal(t, buf.Len(), n)
	}
}

func TestUnsigned_MinimumWidth(t *testing.T) {
	var buf bytes.Buffer
	EncodeUnsigned(&buf, 1)
	tag, _, err := DecodeTag(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, uint32(1), tag.Length)
}

func TestSigned_RoundTrip(t *testing.T) {
	values := []int32{0, -1, 127, -128, 128, -129, 32767, -32768, 32768, -8388608, 8388607, -2147483648, 2147483647}
	for _, v := range values {
		var buf bytes.Buffer
		EncodeSigned(&buf, v)
		got, n, err := DecodeSigned(buf.Bytes())
		require.NoError(t, err)
		assert.Equal(t, v, got)
		assert.Equal(t, buf.Len(), n)
	}
}

func TestReal_RoundTrip(t *testing.T) {
	values := []float32{0, 1.5, -1.5, 3.14159, -1000000}
	for _, v := range values {
		var buf bytes.Buffer
		EncodeReal(&buf, v)
		got, n, err := DecodeReal(buf.Bytes())
		require.NoError(t, err)
		assert.Equal(t, v, got)
		assert.Equal(t, buf.Len(), n)
	}
}

func TestDouble_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	EncodeDouble(&buf, 2.718281828459045)
	got, n, err := DecodeDouble(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 2.718281828459045, got)
	assert.Equal(t, buf.Len(), n)
}

func TestBoolean_RoundTrip(t *testing.T) {
	for _, v := range []bool{true, false} {
		var buf bytes.Buffer
		EncodeBoolean(&buf, v)
		got, n, err := DecodeBoolean(buf.Bytes())
		require.NoError(t, err)
		assert.Equal(t, v, got)
		assert.Equal(t, buf.Len(), n)
	}
}

func TestNull_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	EncodeNull(&buf)
	n, err := DecodeNull(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, buf.Len(), n)
}

func TestOctetString_RoundTrip(t *testing.T) {
	values := [][]byte{{}, {1, 2, 3}, bytes.Repeat([]byte{0xAB}, 300)}
	for _, v := range values {
		var buf bytes.Buffer
		EncodeOctetString(&buf, v)
		got, n, err := DecodeOctetString(buf.Bytes())
		require.NoError(t, err)
		assert.Equal(t, v, got)
		assert.Equal(t, buf.Len(), n)
	}
}

func TestCharacterString_RoundTrip(t *testing.T) {
	cs := NewCharacterString("hello, bacnet")
	var buf bytes.Buffer
	EncodeCharacterString(&buf, cs)
	got, n, err := DecodeCharacterString(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, cs.Encoding, got.Encoding)
	assert.Equal(t, "hello, bacnet", got.String())
	assert.Equal(t, buf.Len(), n)
}

func TestCharacterString_Empty(t *testing.T) {
	cs := NewCharacterString("")
	var buf bytes.Buffer
	EncodeCharacterString(&buf, cs)
	got, _, err := DecodeCharacterString(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "", got.String())
}

func TestBitString_RoundTrip(t *testing.T) {
	b := NewBitString(10)
	b.Set(0, true)
	b.Set(9, true)
	var buf bytes.Buffer
	EncodeBitString(&buf, b)
	got, n, err := DecodeBitString(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, b.BitsUsed, got.BitsUsed)
	assert.Equal(t, b.Bytes, got.Bytes)
	assert.True(t, got.Get(0))
	assert.True(t, got.Get(9))
	assert.False(t, got.Get(1))
	assert.Equal(t, buf.Len(), n)
}

func TestEnumerated_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	EncodeEnumerated(&buf, 42)
	got, n, err := DecodeEnumerated(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, uint32(42), got)
	assert.Equal(t, buf.Len(), n)
}

func TestDate_RoundTrip_Concrete(t *testing.T) {
	year := uint16(2024)
	month := uint8(3)
	day := uint8(15)
	weekday := uint8(5)
	d := Date{Year: &year, Month: &month, Day: &day, Weekday: &weekday}
	var buf bytes.Buffer
	EncodeDate(&buf, d)
	got, n, err := DecodeDate(buf.Bytes())
	require.NoError(t, err)
	assert.True(t, equalDate(d, got))
	assert.Equal(t, buf.Len(), n)
}

func TestDate_Wildcards(t *testing.T) {
	d := Date{}
	var buf bytes.Buffer
	EncodeDate(&buf, d)
	got, _, err := DecodeDate(buf.Bytes())
	require.NoError(t, err)
	assert.Nil(t, got.Year)
	assert.Nil(t, got.Month)
	assert.Nil(t, got.Day)
	assert.Nil(t, got.Weekday)
}

func TestTime_RoundTrip_Concrete(t *testing.T) {
	hour := uint8(13)
	minute := uint8(45)
	second := uint8(30)
	hundredths := uint8(0)
	tm := Time{Hour: &hour, Minute: &minute, Second: &second, Hundredths: &hundredths}
	var buf bytes.Buffer
	EncodeTime(&buf, tm)
	got, n, err := DecodeTime(buf.Bytes())
	require.NoError(t, err)
	assert.True(t, equalTime(tm, got))
	assert.Equal(t, buf.Len(), n)
}

func TestTime_Wildcards(t *testing.T) {
	tm := Time{}
	var buf bytes.Buffer
	EncodeTime(&buf, tm)
	got, _, err := DecodeTime(buf.Bytes())
	require.NoError(t, err)
	assert.Nil(t, got.Hour)
	assert.Nil(t, got.Minute)
	assert.Nil(t, got.Second)
	assert.Nil(t, got.Hundredths)
}

func TestObjectID_PackedRoundTrip(t *testing.T) {
	o := ObjectID{Type: 8, Instance: 4194303}
	packed := o.Packed()
	got := ObjectIDFromPacked(packed)
	assert.Equal(t, o, got)
}

func TestObjectID_EncodeDecode(t *testing.T) {
	o := ObjectID{Type: 5, Instance: 100}
	var buf bytes.Buffer
	EncodeObjectID(&buf, o)
	got, n, err := DecodeObjectID(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, o, got)
	assert.Equal(t, buf.Len(), n)
}

func TestObjectID_InstanceAnyWildcard(t *testing.T) {
	o := ObjectID{Type: 8, Instance: InstanceAny}
	var buf bytes.Buffer
	EncodeObjectID(&buf, o)
	got, _, err := DecodeObjectID(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, InstanceAny, got.Instance)
}

// TestTruncationSafety_Primitives covers the truncation-safety
// property: every proper prefix of a valid encoding must fail to decode
// rather than reading past the prefix.
func TestTruncationSafety_Primitives(t *testing.T) {
	encoders := []func(*bytes.Buffer){
		func(b *bytes.Buffer) { EncodeUnsigned(b, 123456789) },
		func(b *bytes.Buffer) { EncodeSigned(b, -123456) },
		func(b *bytes.Buffer) { EncodeReal(b, 3.14) },
		func(b *bytes.Buffer) { EncodeDouble(b, 3.14159265) },
		func(b *bytes.Buffer) { EncodeOctetString(b, []byte{1, 2, 3, 4, 5}) },
		func(b *bytes.Buffer) { EncodeCharacterString(b, NewCharacterString("abc")) },
		func(b *bytes.Buffer) { EncodeBitString(b, NewBitString(10)) },
		func(b *bytes.Buffer) {
			y := uint16(2024)
			EncodeDate(b, Date{Year: &y})
		},
		func(b *bytes.Buffer) { EncodeObjectID(b, ObjectID{Type: 8, Instance: 50}) },
	}
	for _, enc := range encoders {
		var buf bytes.Buffer
		enc(&buf)
		full := buf.Bytes()
		for k := 0; k < len(full); k++ {
			prefix := full[:k]
			_, _, err := Decode(prefix)
			assert.Error(t, err)
		}
	}
}
