package service

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bacnet-stack/bacnet-core/internal/bacapp"
)

func TestReadPropertyMultiple_RoundTrip(t *testing.T) {
	req := ReadPropertyMultipleRequest{Specs: []bacapp.ReadAccessSpecification{
		{
			Object:     bacapp.ObjectID{Type: 8, Instance: 1},
			Properties: []bacapp.PropertyReference{{Property: 77}, {Property: 28}},
		},
	}}
	var buf bytes.Buffer
	EncodeReadPropertyMultipleRequest(&buf, req)
	got, n, err := DecodeReadPropertyMultipleRequest(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, got.Specs, 1)
	assert.Equal(t, req.Specs[0].Object, got.Specs[0].Object)
	assert.Equal(t, buf.Len(), n)
}

func TestWhoHasRequest_ByObjectID(t *testing.T) {
	r := WhoHasRequest{Selector: ObjectSelectorID, ObjectID: bacapp.ObjectID{Type: 0, Instance: 1}}
	var buf bytes.Buffer
	EncodeWhoHasRequest(&buf, r)
	got, n, err := DecodeWhoHasRequest(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, ObjectSelectorID, got.Selector)
	assert.Equal(t, r.ObjectID, got.ObjectID)
	assert.Equal(t, buf.Len(), n)
}

func TestWhoHasRequest_ByObjectName_WithLimits(t *testing.T) {
	low, high := uint32(1), uint32(100)
	r := WhoHasRequest{
		LowLimit: &low, HighLimit: &high,
		Selector:   ObjectSelectorName,
		ObjectName: bacapp.NewCharacterString("AI-101"),
	}
	var buf bytes.Buffer
	EncodeWhoHasRequest(&buf, r)
	got, n, err := DecodeWhoHasRequest(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, ObjectSelectorName, got.Selector)
	assert.Equal(t, "AI-101", got.ObjectName.String())
	require.NotNil(t, got.LowLimit)
	assert.Equal(t, low, *got.LowLimit)
	assert.Equal(t, buf.Len(), n)
}

func TestIHaveRequest_RoundTrip(t *testing.T) {
	r := IHaveRequest{
		Device:     bacapp.ObjectID{Type: 8, Instance: 1},
		Object:     bacapp.ObjectID{Type: 0, Instance: 1},
		ObjectName: bacapp.NewCharacterString("AI-101"),
	}
	var buf bytes.Buffer
	EncodeIHaveRequest(&buf, r)
	got, n, err := DecodeIHaveRequest(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, r.Device, got.Device)
	assert.Equal(t, r.Object, got.Object)
	assert.Equal(t, "AI-101", got.ObjectName.String())
	assert.Equal(t, buf.Len(), n)
}

func TestTimeSynchronizationRequest_RoundTrip(t *testing.T) {
	year := uint16(2026)
	hour := uint8(9)
	r := TimeSynchronizationRequest{Date: bacapp.Date{Year: &year}, Time: bacapp.Time{Hour: &hour}}
	var buf bytes.Buffer
	EncodeTimeSynchronizationRequest(&buf, r)
	got, n, err := DecodeTimeSynchronizationRequest(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, *r.Date.Year, *got.Date.Year)
	assert.Equal(t, *r.Time.Hour, *got.Time.Hour)
	assert.Equal(t, buf.Len(), n)
}

func TestGetEventInformationAck_RoundTrip(t *testing.T) {
	acked := bacapp.NewBitString(3)
	enable := bacapp.NewBitString(3)
	enable.Set(0, true)
	ack := GetEventInformationAck{
		Events: []EventSummary{{
			Object:           bacapp.ObjectID{Type: 0, Instance: 1},
			State:            1,
			AckedTransitions: acked,
			NotifyType:       0,
			EventEnable:      enable,
			EventPriorities:  [3]uint32{64, 64, 64},
		}},
		MoreEvents: false,
	}
	var buf bytes.Buffer
	EncodeGetEventInformationAck(&buf, ack)
	got, n, err := DecodeGetEventInformationAck(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, got.Events, 1)
	assert.Equal(t, ack.Events[0].Object, got.Events[0].Object)
	assert.Equal(t, ack.Events[0].EventPriorities, got.Events[0].EventPriorities)
	assert.False(t, got.MoreEvents)
	assert.Equal(t, buf.Len(), n)
}

func TestConfirmedPrivateTransfer_RoundTrip(t *testing.T) {
	r := ConfirmedPrivateTransferRequest{
		VendorID:          213,
		ServiceNumber:     9,
		ServiceParameters: []byte{0xDE, 0xAD, 0xBE, 0xEF},
	}
	var buf bytes.Buffer
	EncodeConfirmedPrivateTransferRequest(&buf, r)
	got, n, err := DecodeConfirmedPrivateTransferRequest(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, r.VendorID, got.VendorID)
	assert.Equal(t, r.ServiceNumber, got.ServiceNumber)
	assert.Equal(t, r.ServiceParameters, got.ServiceParameters)
	assert.Equal(t, buf.Len(), n)
}

func TestConfirmedPrivateTransfer_NoParameters(t *testing.T) {
	r := ConfirmedPrivateTransferRequest{VendorID: 213, ServiceNumber: 9}
	var buf bytes.Buffer
	EncodeConfirmedPrivateTransferRequest(&buf, r)
	got, n, err := DecodeConfirmedPrivateTransferRequest(buf.Bytes())
	require.NoError(t, err)
	assert.Nil(t, got.ServiceParameters)
	assert.Equal(t, buf.Len(), n)
}
