package service

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bacnet-stack/bacnet-core/internal/bacapp"
)

func TestReadRangeRequest_ReadAll(t *testing.T) {
	r := ReadRangeRequest{
		Object:   bacapp.ObjectID{Type: 61, Instance: 1},
		Property: 130,
		Range:    RangeSelector{Kind: RangeReadAll},
	}
	var buf bytes.Buffer
	EncodeReadRangeRequest(&buf, r)
	got, n, err := DecodeReadRangeRequest(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, RangeReadAll, got.Range.Kind)
	assert.Equal(t, buf.Len(), n)
}

func TestReadRangeRequest_ByPosition_NegativeCount(t *testing.T) {
	r := ReadRangeRequest{
		Object:   bacapp.ObjectID{Type: 61, Instance: 1},
		Property: 130,
		Range:    RangeSelector{Kind: RangeByPosition, ReferenceIndex: 10, Count: -5},
	}
	var buf bytes.Buffer
	EncodeReadRangeRequest(&buf, r)
	got, n, err := DecodeReadRangeRequest(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, RangeByPosition, got.Range.Kind)
	assert.Equal(t, uint32(10), got.Range.ReferenceIndex)
	assert.Equal(t, int32(-5), got.Range.Count)
	assert.Equal(t, buf.Len(), n)
}

func TestReadRangeRequest_ByTime(t *testing.T) {
	year := uint16(2024)
	hour := uint8(12)
	r := ReadRangeRequest{
		Object:   bacapp.ObjectID{Type: 61, Instance: 1},
		Property: 130,
		Range: RangeSelector{
			Kind:          RangeByTime,
			ReferenceDate: bacapp.Date{Year: &year},
			ReferenceTime: bacapp.Time{Hour: &hour},
			Count:         20,
		},
	}
	var buf bytes.Buffer
	EncodeReadRangeRequest(&buf, r)
	got, n, err := DecodeReadRangeRequest(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, RangeByTime, got.Range.Kind)
	assert.Equal(t, int32(20), got.Range.Count)
	assert.Equal(t, buf.Len(), n)
}

func TestReadRangeAck_RoundTrip(t *testing.T) {
	flags := bacapp.NewBitString(3)
	flags.Set(ResultFlagFirstItem, true)
	flags.Set(ResultFlagLastItem, true)
	seq := uint32(1)
	a := ReadRangeAck{
		Object:              bacapp.ObjectID{Type: 61, Instance: 1},
		Property:            130,
		ResultFlags:         flags,
		ItemCount:           2,
		Items:               []bacapp.Value{bacapp.RealValue(1.0), bacapp.RealValue(2.0)},
		FirstSequenceNumber: &seq,
	}
	var buf bytes.Buffer
	require.NoError(t, EncodeReadRangeAck(&buf, a))
	got, n, err := DecodeReadRangeAck(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, a.ItemCount, got.ItemCount)
	require.Len(t, got.Items, 2)
	assert.True(t, a.Items[0].Equal(got.Items[0]))
	require.NotNil(t, got.FirstSequenceNumber)
	assert.Equal(t, seq, *got.FirstSequenceNumber)
	assert.Equal(t, buf.Len(), n)
}
