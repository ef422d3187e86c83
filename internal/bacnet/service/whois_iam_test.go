package service

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bacnet-stack/bacnet-core/internal/bacapp"
)

func TestWhoIsRequest_NoLimits_RoundTrip(t *testing.T) {
	r := WhoIsRequest{}
	var buf bytes.Buffer
	EncodeWhoIsRequest(&buf, r)
	assert.Equal(t, 0, buf.Len())

	got, n, err := DecodeWhoIsRequest(buf.Bytes())
	require.NoError(t, err)
	assert.Nil(t, got.LowLimit)
	assert.Nil(t, got.HighLimit)
	assert.Equal(t, 0, n)
	assert.True(t, got.Matches(4194303))
}

func TestWhoIsRequest_WithLimits_RoundTrip(t *testing.T) {
	low, high := uint32(100), uint32(200)
	r := WhoIsRequest{LowLimit: &low, HighLimit: &high}
	var buf bytes.Buffer
	EncodeWhoIsRequest(&buf, r)
	got, n, err := DecodeWhoIsRequest(buf.Bytes())
	require.NoError(t, err)
	require.NotNil(t, got.LowLimit)
	require.NotNil(t, got.HighLimit)
	assert.Equal(t, low, *got.LowLimit)
	assert.Equal(t, high, *got.HighLimit)
	assert.Equal(t, buf.Len(), n)

	assert.True(t, got.Matches(150))
	assert.False(t, got.Matches(50))
}

// TestWhoIsIAm_EndToEnd covers Who-Is with no
// limits, I-Am reply from device 4194303 with max_apdu=1476,
// segmentation=none, vendor_id=0.
func TestWhoIsIAm_EndToEnd(t *testing.T) {
	var whoIsBuf bytes.Buffer
	EncodeWhoIsRequest(&whoIsBuf, WhoIsRequest{})
	whoIs, _, err := DecodeWhoIsRequest(whoIsBuf.Bytes())
	require.NoError(t, err)
	assert.True(t, whoIs.Matches(4194303))

	iAm := IAmRequest{
		Device:       bacapp.ObjectID{Type: 8, Instance: 4194303},
		MaxAPDU:      1476,
		Segmentation: SegmentationNone,
		VendorID:     0,
	}
	var iAmBuf bytes.Buffer
	EncodeIAmRequest(&iAmBuf, iAm)
	got, n, err := DecodeIAmRequest(iAmBuf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, iAm.Device, got.Device)
	assert.Equal(t, uint32(1476), got.MaxAPDU)
	assert.Equal(t, SegmentationNone, got.Segmentation)
	assert.Equal(t, uint16(0), got.VendorID)
	assert.Equal(t, iAmBuf.Len(), n)
}
