package service

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bacnet-stack/bacnet-core/internal/bacapp"
)

func TestReadPropertyRequest_RoundTrip(t *testing.T) {
	r := ReadPropertyRequest{
		Object:   bacapp.ObjectID{Type: 8, Instance: 1},
		Property: 77, // object-identifier
	}
	var buf bytes.Buffer
	EncodeReadPropertyRequest(&buf, r)
	got, n, err := DecodeReadPropertyRequest(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, r.Object, got.Object)
	assert.Equal(t, r.Property, got.Property)
	assert.Nil(t, got.ArrayIndex)
	assert.Equal(t, buf.Len(), n)
}

func TestReadPropertyAck_RoundTrip_ObjectIDValue(t *testing.T) {
	a := ReadPropertyAck{
		Object:   bacapp.ObjectID{Type: 8, Instance: 1},
		Property: 77,
		Values:   []bacapp.Value{bacapp.ObjectIDValue(bacapp.ObjectID{Type: 8, Instance: 1})},
	}
	var buf bytes.Buffer
	require.NoError(t, EncodeReadPropertyAck(&buf, a))
	got, n, err := DecodeReadPropertyAck(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, a.Object, got.Object)
	require.Len(t, got.Values, 1)
	assert.True(t, a.Values[0].Equal(got.Values[0]))
	assert.Equal(t, buf.Len(), n)
}

func TestReadPropertyRequest_WithArrayIndex(t *testing.T) {
	idx := uint32(2)
	r := ReadPropertyRequest{Object: bacapp.ObjectID{Type: 0, Instance: 1}, Property: 85, ArrayIndex: &idx}
	var buf bytes.Buffer
	EncodeReadPropertyRequest(&buf, r)
	got, _, err := DecodeReadPropertyRequest(buf.Bytes())
	require.NoError(t, err)
	require.NotNil(t, got.ArrayIndex)
	assert.Equal(t, idx, *got.ArrayIndex)
}

func TestReadPropertyRequest_TruncationSafety(t *testing.T) {
	r := ReadPropertyRequest{Object: bacapp.ObjectID{Type: 8, Instance: 1}, Property: 77}
	var buf bytes.Buffer
	EncodeReadPropertyRequest(&buf, r)
	full := buf.Bytes()
	for k := 0; k < len(full); k++ {
		_, _, err := DecodeReadPropertyRequest(full[:k])
		assert.Error(t, err)
	}
}
