package bacapp

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectPropertyReference_RoundTrip(t *testing.T) {
	idx := uint32(3)
	r := ObjectPropertyReference{
		Object:     ObjectID{Type: 8, Instance: 1},
		Property:   85,
		ArrayIndex: &idx,
	}
	var buf bytes.Buffer
	r.Encode(&buf)
	got, n, err := DecodeObjectPropertyReference(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, r.Object, got.Object)
	assert.Equal(t, r.Property, got.Property)
	require.NotNil(t, got.ArrayIndex)
	assert.Equal(t, *r.ArrayIndex, *got.ArrayIndex)
	assert.Equal(t, buf.Len(), n)
}

func TestObjectPropertyReference_NoArrayIndex(t *testing.T) {
	r := ObjectPropertyReference{Object: ObjectID{Type: 8, Instance: 1}, Property: 85}
	var buf bytes.Buffer
	r.Encode(&buf)
	got, _, err := DecodeObjectPropertyReference(buf.Bytes())
	require.NoError(t, err)
	assert.Nil(t, got.ArrayIndex)
}

func TestDeviceObjectPropertyReference_RoundTrip(t *testing.T) {
	dev := ObjectID{Type: 8, Instance: 1000}
	r := DeviceObjectPropertyReference{
		ObjectPropertyReference: ObjectPropertyReference{
			Object:   ObjectID{Type: 0, Instance: 1},
			Property: 85,
		},
		Device: &dev,
	}
	var buf bytes.Buffer
	r.Encode(&buf)
	got, n, err := DecodeDeviceObjectPropertyReference(buf.Bytes())
	require.NoError(t, err)
	require.NotNil(t, got.Device)
	assert.Equal(t, dev, *got.Device)
	assert.Equal(t, buf.Len(), n)
}

func TestDeviceObjectReference_RoundTrip(t *testing.T) {
	dev := ObjectID{Type: 8, Instance: 1000}
	r := DeviceObjectReference{Device: &dev, Object: ObjectID{Type: 0, Instance: 2}}
	var buf bytes.Buffer
	r.Encode(&buf)
	got, n, err := DecodeDeviceObjectReference(buf.Bytes())
	require.NoError(t, err)
	require.NotNil(t, got.Device)
	assert.Equal(t, dev, *got.Device)
	assert.Equal(t, r.Object, got.Object)
	assert.Equal(t, buf.Len(), n)
}

func TestDeviceObjectReference_NoDevice(t *testing.T) {
	r := DeviceObjectReference{Object: ObjectID{Type: 0, Instance: 2}}
	var buf bytes.Buffer
	r.Encode(&buf)
	got, _, err := DecodeDeviceObjectReference(buf.Bytes())
	require.NoError(t, err)
	assert.Nil(t, got.Device)
}

func TestTimeOfDayValue_RoundTrip(t *testing.T) {
	hour := uint8(8)
	tv := TimeOfDayValue{Time: Time{Hour: &hour}, Value: RealValue(21.5)}
	var buf bytes.Buffer
	require.NoError(t, tv.Encode(&buf))
	got, n, err := DecodeTimeOfDayValue(buf.Bytes())
	require.NoError(t, err)
	assert.True(t, equalTime(tv.Time, got.Time))
	assert.True(t, tv.Value.Equal(got.Value))
	assert.Equal(t, buf.Len(), n)
}

func TestCalendarEntry_Date(t *testing.T) {
	year := uint16(2025)
	c := CalendarEntry{Kind: CalendarEntryDate, Date: Date{Year: &year}}
	var buf bytes.Buffer
	c.Encode(&buf)
	got, n, err := DecodeCalendarEntry(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, CalendarEntryDate, got.Kind)
	assert.True(t, equalDate(c.Date, got.Date))
	assert.Equal(t, buf.Len(), n)
}

func TestCalendarEntry_DateRange(t *testing.T) {
	y1, y2 := uint16(2025), uint16(2026)
	c := CalendarEntry{Kind: CalendarEntryDateRange, DateRange: DateRange{
		Start: Date{Year: &y1}, End: Date{Year: &y2},
	}}
	var buf bytes.Buffer
	c.Encode(&buf)
	got, n, err := DecodeCalendarEntry(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, CalendarEntryDateRange, got.Kind)
	assert.True(t, equalDate(c.DateRange.Start, got.DateRange.Start))
	assert.True(t, equalDate(c.DateRange.End, got.DateRange.End))
	assert.Equal(t, buf.Len(), n)
}

func TestCalendarEntry_WeekNDay(t *testing.T) {
	c := CalendarEntry{Kind: CalendarEntryWeekNDay, WeekNDay: WeekNDay{Month: 3, WeekOfMonth: 2, DayOfWeek: 5}}
	var buf bytes.Buffer
	c.Encode(&buf)
	got, n, err := DecodeCalendarEntry(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, CalendarEntryWeekNDay, got.Kind)
	assert.Equal(t, c.WeekNDay, got.WeekNDay)
	assert.Equal(t, buf.Len(), n)
}

func TestRecipient_Device_RoundTrip(t *testing.T) {
	r := Recipient{Kind: RecipientDevice, Device: ObjectID{Type: 8, Instance: 42}}
	var buf bytes.Buffer
	r.Encode(&buf)
	got, n, err := DecodeRecipient(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, r.Device, got.Device)
	assert.Equal(t, buf.Len(), n)
}

func TestRecipient_Address_RoundTrip(t *testing.T) {
	r := Recipient{Kind: RecipientAddress, Address: Address{Network: 7, Mac: []byte{1, 2, 3}}}
	var buf bytes.Buffer
	r.Encode(&buf)
	got, n, err := DecodeRecipient(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, r.Address.Network, got.Address.Network)
	assert.Equal(t, r.Address.Mac, got.Address.Mac)
	assert.Equal(t, buf.Len(), n)
}

func TestDestination_RoundTrip(t *testing.T) {
	hour, min, sec, hund := uint8(0), uint8(0), uint8(0), uint8(0)
	validDays := NewBitString(7)
	validDays.Set(0, true)
	validDays.Set(4, true)
	transitions := NewBitString(3)
	transitions.Set(0, true)

	d := Destination{
		ValidDays: validDays,
		FromTime:  Time{Hour: &hour, Minute: &min, Second: &sec, Hundredths: &hund},
		ToTime:    Time{Hour: &hour, Minute: &min, Second: &sec, Hundredths: &hund},
		Recipient: Recipient{Kind: RecipientDevice, Device: ObjectID{Type: 8, Instance: 1}},
		ProcessID: 1,
		ConfirmedNotify: true,
		Transitions:     transitions,
	}
	var buf bytes.Buffer
	d.Encode(&buf)
	got, n, err := DecodeDestination(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, d.ValidDays, got.ValidDays)
	assert.Equal(t, d.Recipient.Device, got.Recipient.Device)
	assert.Equal(t, d.ProcessID, got.ProcessID)
	assert.Equal(t, d.ConfirmedNotify, got.ConfirmedNotify)
	assert.Equal(t, d.Transitions, got.Transitions)
	assert.Equal(t, buf.Len(), n)
}

func TestReadAccessSpecification_RoundTrip(t *testing.T) {
	idx := uint32(1)
	spec := ReadAccessSpecification{
		Object: ObjectID{Type: 8, Instance: 1},
		Properties: []PropertyReference{
			{Property: 85},
			{Property: 79, ArrayIndex: &idx},
		},
	}
	var buf bytes.Buffer
	spec.Encode(&buf)
	got, n, err := DecodeReadAccessSpecification(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, spec.Object, got.Object)
	require.Len(t, got.Properties, 2)
	assert.Equal(t, spec.Properties[0].Property, got.Properties[0].Property)
	assert.Nil(t, got.Properties[0].ArrayIndex)
	require.NotNil(t, got.Properties[1].ArrayIndex)
	assert.Equal(t, idx, *got.Properties[1].ArrayIndex)
	assert.Equal(t, buf.Len(), n)
}

func TestReadAccessResult_RoundTrip_ValueAndError(t *testing.T) {
	val := RealValue(72.5)
	result := ReadAccessResult{
		Object: ObjectID{Type: 8, Instance: 1},
		Results: []PropertyResult{
			{Property: 85, Value: &val},
			{Property: 79, IsError: true, ErrorClass: 2, ErrorCode: 31},
		},
	}
	var buf bytes.Buffer
	require.NoError(t, result.Encode(&buf))
	got, n, err := DecodeReadAccessResult(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, result.Object, got.Object)
	require.Len(t, got.Results, 2)

	require.NotNil(t, got.Results[0].Value)
	assert.True(t, val.Equal(*got.Results[0].Value))
	assert.False(t, got.Results[0].IsError)

	assert.True(t, got.Results[1].IsError)
	assert.Equal(t, uint32(2), got.Results[1].ErrorClass)
	assert.Equal(t, uint32(31), got.Results[1].ErrorCode)

	assert.Equal(t, buf.Len(), n)
}

func TestReadAccessResult_MissingValue_Errors(t *testing.T) {
	result := ReadAccessResult{
		Object:  ObjectID{Type: 8, Instance: 1},
		Results: []PropertyResult{{Property: 85}},
	}
	var buf bytes.Buffer
	err := result.Encode(&buf)
	assert.ErrorIs(t, err, ErrMissingRequiredField)
}
