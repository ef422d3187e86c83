package bacapp

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeTag_Primitive(t *testing.T) {
	cases := []struct {
		name   string
		number uint32
		class  Class
		length uint32
	}{
		{"small app tag", TagUnsignedInt, ClassApplication, 1},
		{"zero length", TagNull, ClassApplication, 0},
		{"context tag", 3, ClassContext, 4},
		{"extended tag number", 20, ClassApplication, 2},
		{"extended length 2-byte", 1, ClassApplication, 300},
		{"extended length 4-byte", 1, ClassApplication, 70000},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			var buf bytes.Buffer
			EncodeTag(&buf, c.number, c.class, c.length)
			tag, n, err := DecodeTag(buf.Bytes())
			require.NoError(t, err)
			assert.Equal(t, c.number, tag.Number)
			assert.Equal(t, c.class, tag.Class)
			assert.Equal(t, c.length, tag.Length)
			assert.Equal(t, buf.Len(), n)
		})
	}
}

func TestEncodeDecodeTag_OpeningClosing(t *testing.T) {
	var buf bytes.Buffer
	EncodeOpeningTag(&buf, 5)
	tag, n, err := DecodeTag(buf.Bytes())
	require.NoError(t, err)
	assert.True(t, tag.Opening)
	assert.False(t, tag.Closing)
	assert.Equal(t, uint32(5), tag.Number)
	assert.Equal(t, buf.Len(), n)

	buf.Reset()
	EncodeClosingTag(&buf, 5)
	tag, _, err = DecodeTag(buf.Bytes())
	require.NoError(t, err)
	assert.True(t, tag.Closing)
	assert.False(t, tag.Opening)
}

func TestDecodeConstructedOpeningClosing_Mismatch(t *testing.T) {
	var buf bytes.Buffer
	EncodeOpeningTag(&buf, 2)
	_, err := DecodeConstructedOpening(buf.Bytes(), 3)
	assert.ErrorIs(t, err, ErrInvalidTag)

	buf.Reset()
	EncodeClosingTag(&buf, 2)
	_, err = DecodeConstructedClosing(buf.Bytes(), 3)
	assert.ErrorIs(t, err, ErrInvalidTag)
}

func TestDecodeTag_Truncated(t *testing.T) {
	_, _, err := DecodeTag(nil)
	assert.ErrorIs(t, err, ErrTruncated)

	// extended tag number octet missing
	_, _, err = DecodeTag([]byte{0xF0})
	assert.ErrorIs(t, err, ErrTruncated)

	// extended length octet missing
	_, _, err = DecodeTag([]byte{0x05})
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestTag_IsContextSpecific(t *testing.T) {
	tag := Tag{Class: ClassContext, Number: 4}
	assert.True(t, tag.IsContextSpecific(4))
	assert.False(t, tag.IsContextSpecific(5))

	tag.Class = ClassApplication
	assert.False(t, tag.IsContextSpecific(4))
}

func TestEncodeTag_TruncationSafety(t *testing.T) {
	var buf bytes.Buffer
	EncodeTag(&buf, 1, ClassApplication, 70000)
	full := buf.Bytes()
	for k := 0; k < len(full); k++ {
		_, _, err := DecodeTag(full[:k])
		assert.Error(t, err, "prefix of length %d should fail to decode", k)
	}
	_, n, err := DecodeTag(full)
	require.NoError(t, err)
	assert.Equal(t, len(full), n)
}
