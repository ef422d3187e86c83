package bacapp

import (
	"bytes"
	"fmt"
)

// This file implements the composite application-data types. Each
// composite decoder follows the pattern described there: read an
// opening context tag, read an ordered inner sequence identified by
// context tag numbers, read the matching closing tag. Fields marked
// OPTIONAL may be absent. The decoders do not return ErrUnknownField:
// a tag they do not expect ends the fields they read, so it fails with
// ErrInvalidTag only where a required field or a closing tag was due,
// and is otherwise left unconsumed for the caller.

// ============================================================================
// BACnetObjectPropertyReference / BACnetDeviceObjectPropertyReference
// ============================================================================

// ObjectPropertyReference is BACnetObjectPropertyReference.
type ObjectPropertyReference struct {
	Object      ObjectID
	Property    uint32
	ArrayIndex  *uint32
}

// Encode appends the plain (untagged-sequence) wire form: context tags
// [0] object-identifier, [1] property-identifier, [2] array-index?.
func (r ObjectPropertyReference) Encode(buf *bytes.Buffer) {
	EncodeContextObjectID(buf, 0, r.Object)
	EncodeContextEnumerated(buf, 1, r.Property)
	if r.ArrayIndex != nil {
		EncodeContextUnsigned(buf, 2, uint64(*r.ArrayIndex))
	}
}

// DecodeObjectPropertyReference decodes an ObjectPropertyReference with
// no outer wrapping tag (the caller's context already bounds it).
func DecodeObjectPropertyReference(data []byte) (ObjectPropertyReference, int, error) {
	var r ObjectPropertyReference
	pos := 0

	obj, n, err := DecodeContextObjectID(data[pos:], 0)
	if err != nil {
		return r, 0, fmt.Errorf("object-identifier: %w", err)
	}
	r.Object = obj
	pos += n

	prop, n, err := DecodeContextUnsigned(data[pos:], 1)
	if err != nil {
		return r, 0, fmt.Errorf("property-identifier: %w", err)
	}
	r.Property = uint32(prop)
	pos += n

	if pos < len(data) {
		tag, _, err := DecodeTag(data[pos:])
		if err == nil && tag.IsContextSpecific(2) {
			idx, n, err := DecodeContextUnsigned(data[pos:], 2)
			if err != nil {
				return r, 0, fmt.Errorf("array-index: %w", err)
			}
			v := uint32(idx)
			r.ArrayIndex = &v
			pos += n
		}
	}
	return r, pos, nil
}

// DeviceObjectPropertyReference is BACnetDeviceObjectPropertyReference:
// an ObjectPropertyReference plus an optional owning device id.
type DeviceObjectPropertyReference struct {
	ObjectPropertyReference
	Device *ObjectID
}

// Encode appends context tags [0..2] from the embedded reference, plus
// optional [3] device-identifier.
func (r DeviceObjectPropertyReference) Encode(buf *bytes.Buffer) {
	r.ObjectPropertyReference.Encode(buf)
	if r.Device != nil {
		EncodeContextObjectID(buf, 3, *r.Device)
	}
}

// DecodeDeviceObjectPropertyReference decodes the composite.
func DecodeDeviceObjectPropertyReference(data []byte) (DeviceObjectPropertyReference, int, error) {
	base, n, err := DecodeObjectPropertyReference(data)
	if err != nil {
		return DeviceObjectPropertyReference{}, 0, err
	}
	r := DeviceObjectPropertyReference{ObjectPropertyReference: base}
	pos := n
	if pos < len(data) {
		tag, _, err := DecodeTag(data[pos:])
		if err == nil && tag.IsContextSpecific(3) {
			dev, n, err := DecodeContextObjectID(data[pos:], 3)
			if err != nil {
				return r, 0, fmt.Errorf("device-identifier: %w", err)
			}
			r.Device = &dev
			pos += n
		}
	}
	return r, pos, nil
}

// DeviceObjectReference is BACnetDeviceObjectReference: an optional
// device id plus a required object id.
type DeviceObjectReference struct {
	Device *ObjectID
	Object ObjectID
}

// Encode appends optional [0] device-identifier, required [1] object-identifier.
func (r DeviceObjectReference) Encode(buf *bytes.Buffer) {
	if r.Device != nil {
		EncodeContextObjectID(buf, 0, *r.Device)
	}
	EncodeContextObjectID(buf, 1, r.Object)
}

// DecodeDeviceObjectReference decodes the composite.
func DecodeDeviceObjectReference(data []byte) (DeviceObjectReference, int, error) {
	var r DeviceObjectReference
	pos := 0
	if len(data) > 0 {
		tag, _, err := DecodeTag(data)
		if err == nil && tag.IsContextSpecific(0) {
			dev, n, err := DecodeContextObjectID(data, 0)
			if err != nil {
				return r, 0, fmt.Errorf("device-identifier: %w", err)
			}
			r.Device = &dev
			pos += n
		}
	}
	obj, n, err := DecodeContextObjectID(data[pos:], 1)
	if err != nil {
		return r, 0, fmt.Errorf("object-identifier: %w", err)
	}
	r.Object = obj
	pos += n
	return r, pos, nil
}

// ============================================================================
// BACnetTimeValue
// ============================================================================

// TimeOfDayValue is BACnetTimeValue: a time paired with a primitive
// application value (only primitive variants are permitted).
type TimeOfDayValue struct {
	Time  Time
	Value Value
}

// Encode appends the application-tagged time followed by the
// application-tagged value (no wrapping tag — BACnetTimeValue is a
// plain two-member sequence).
func (tv TimeOfDayValue) Encode(buf *bytes.Buffer) error {
	EncodeTime(buf, tv.Time)
	return Encode(buf, tv.Value)
}

// DecodeTimeOfDayValue decodes a BACnetTimeValue.
func DecodeTimeOfDayValue(data []byte) (TimeOfDayValue, int, error) {
	t, n, err := DecodeTime(data)
	if err != nil {
		return TimeOfDayValue{}, 0, fmt.Errorf("time: %w", err)
	}
	v, vn, err := Decode(data[n:])
	if err != nil {
		return TimeOfDayValue{}, 0, fmt.Errorf("value: %w", err)
	}
	return TimeOfDayValue{Time: t, Value: v}, n + vn, nil
}

// ============================================================================
// BACnetCalendarEntry
// ============================================================================

// CalendarEntryKind discriminates the CalendarEntry union.
type CalendarEntryKind uint8

const (
	CalendarEntryDate CalendarEntryKind = iota
	CalendarEntryDateRange
	CalendarEntryWeekNDay
)

// DateRange is BACnetDateRange.
type DateRange struct {
	Start Date
	End   Date
}

// WeekNDay is BACnetWeekNDay: month, week-of-month, day-of-week, each
// a raw octet per the standard's compact encoding.
type WeekNDay struct {
	Month       uint8
	WeekOfMonth uint8
	DayOfWeek   uint8
}

// CalendarEntry is the tagged union BACnetCalendarEntry { Date |
// DateRange | WeekNDay }.
type CalendarEntry struct {
	Kind      CalendarEntryKind
	Date      Date
	DateRange DateRange
	WeekNDay  WeekNDay
}

// Encode appends the context-tagged choice.
func (c CalendarEntry) Encode(buf *bytes.Buffer) {
	switch c.Kind {
	case CalendarEntryDate:
		EncodeContextDate(buf, 0, c.Date)
	case CalendarEntryDateRange:
		EncodeOpeningTag(buf, 1)
		EncodeDateValue(buf, c.DateRange.Start)
		EncodeDateValue(buf, c.DateRange.End)
		EncodeClosingTag(buf, 1)
	case CalendarEntryWeekNDay:
		EncodeTag(buf, 2, ClassContext, 3)
		buf.WriteByte(c.WeekNDay.Month)
		buf.WriteByte(c.WeekNDay.WeekOfMonth)
		buf.WriteByte(c.WeekNDay.DayOfWeek)
	}
}

// DecodeCalendarEntry decodes a CalendarEntry.
func DecodeCalendarEntry(data []byte) (CalendarEntry, int, error) {
	tag, n, err := DecodeTag(data)
	if err != nil {
		return CalendarEntry{}, 0, err
	}
	switch {
	case tag.Class == ClassContext && tag.Number == 0 && !tag.Opening:
		d, err := DecodeDateValue(data[n:])
		if err != nil {
			return CalendarEntry{}, 0, err
		}
		return CalendarEntry{Kind: CalendarEntryDate, Date: d}, n + 4, nil

	case tag.Class == ClassContext && tag.Number == 1 && tag.Opening:
		start, err := DecodeDateValue(data[n:])
		if err != nil {
			return CalendarEntry{}, 0, err
		}
		pos := n + 4
		end, err := DecodeDateValue(data[pos:])
		if err != nil {
			return CalendarEntry{}, 0, err
		}
		pos += 4
		closeN, err := DecodeConstructedClosing(data[pos:], 1)
		if err != nil {
			return CalendarEntry{}, 0, err
		}
		pos += closeN
		return CalendarEntry{Kind: CalendarEntryDateRange, DateRange: DateRange{Start: start, End: end}}, pos, nil

	case tag.Class == ClassContext && tag.Number == 2 && !tag.Opening:
		if tag.Length != 3 || uint32(len(data)-n) < 3 {
			return CalendarEntry{}, 0, fmt.Errorf("%w: week-n-day payload", ErrTruncated)
		}
		wnd := WeekNDay{Month: data[n], WeekOfMonth: data[n+1], DayOfWeek: data[n+2]}
		return CalendarEntry{Kind: CalendarEntryWeekNDay, WeekNDay: wnd}, n + 3, nil

	default:
		return CalendarEntry{}, 0, fmt.Errorf("%w: unknown calendar entry choice", ErrInvalidTag)
	}
}

// ============================================================================
// BACnetRecipient / BACnetDestination
// ============================================================================

// RecipientKind discriminates the Recipient union.
type RecipientKind uint8

const (
	RecipientDevice RecipientKind = iota
	RecipientAddress
)

// Recipient is BACnetRecipient { Device(ObjectId) | Address(BACnetAddress) }.
type Recipient struct {
	Kind    RecipientKind
	Device  ObjectID
	Address Address
}

// Encode appends the context-tagged choice: [0] device-identifier or
// [1] BACnetAddress { network-number Unsigned, mac-address OCTET STRING }.
func (r Recipient) Encode(buf *bytes.Buffer) {
	switch r.Kind {
	case RecipientDevice:
		EncodeContextObjectID(buf, 0, r.Device)
	case RecipientAddress:
		EncodeOpeningTag(buf, 1)
		EncodeUnsigned(buf, uint64(r.Address.Network))
		EncodeOctetString(buf, r.Address.Mac)
		EncodeClosingTag(buf, 1)
	}
}

// DecodeRecipient decodes a Recipient.
func DecodeRecipient(data []byte) (Recipient, int, error) {
	tag, n, err := DecodeTag(data)
	if err != nil {
		return Recipient{}, 0, err
	}
	switch {
	case tag.Class == ClassContext && tag.Number == 0 && !tag.Opening:
		o, err := DecodeObjectIDValue(data[n:])
		if err != nil {
			return Recipient{}, 0, err
		}
		return Recipient{Kind: RecipientDevice, Device: o}, n + 4, nil

	case tag.Class == ClassContext && tag.Number == 1 && tag.Opening:
		net, netN, err := DecodeUnsigned(data[n:])
		if err != nil {
			return Recipient{}, 0, fmt.Errorf("network-number: %w", err)
		}
		pos := n + netN
		mac, macN, err := DecodeOctetString(data[pos:])
		if err != nil {
			return Recipient{}, 0, fmt.Errorf("mac-address: %w", err)
		}
		pos += macN
		closeN, err := DecodeConstructedClosing(data[pos:], 1)
		if err != nil {
			return Recipient{}, 0, err
		}
		pos += closeN
		return Recipient{Kind: RecipientAddress, Address: Address{Network: uint16(net), Mac: mac}}, pos, nil

	default:
		return Recipient{}, 0, fmt.Errorf("%w: unknown recipient choice", ErrInvalidTag)
	}
}

// Destination is BACnetDestination. Its members are
// application-tagged in a fixed order with no member-level context
// tags of their own (the caller's enclosing field supplies the framing).
type Destination struct {
	ValidDays        BitString // 7 bits, Mon=bit0
	FromTime         Time
	ToTime           Time
	Recipient        Recipient
	ProcessID        uint32
	ConfirmedNotify  bool
	Transitions      BitString // 3 bits: ToOffnormal, ToFault, ToNormal
}

// Encode appends the fixed-order member sequence.
func (d Destination) Encode(buf *bytes.Buffer) {
	EncodeBitString(buf, d.ValidDays)
	EncodeTime(buf, d.FromTime)
	EncodeTime(buf, d.ToTime)
	d.Recipient.Encode(buf)
	EncodeUnsigned(buf, uint64(d.ProcessID))
	EncodeBoolean(buf, d.ConfirmedNotify)
	EncodeBitString(buf, d.Transitions)
}

// DecodeDestination decodes a Destination.
func DecodeDestination(data []byte) (Destination, int, error) {
	var d Destination
	pos := 0

	validDays, n, err := DecodeBitString(data[pos:])
	if err != nil {
		return d, 0, fmt.Errorf("valid-days: %w", err)
	}
	d.ValidDays = validDays
	pos += n

	from, n, err := DecodeTime(data[pos:])
	if err != nil {
		return d, 0, fmt.Errorf("from-time: %w", err)
	}
	d.FromTime = from
	pos += n

	to, n, err := DecodeTime(data[pos:])
	if err != nil {
		return d, 0, fmt.Errorf("to-time: %w", err)
	}
	d.ToTime = to
	pos += n

	recipient, n, err := DecodeRecipient(data[pos:])
	if err != nil {
		return d, 0, fmt.Errorf("recipient: %w", err)
	}
	d.Recipient = recipient
	pos += n

	pid, n, err := DecodeUnsigned(data[pos:])
	if err != nil {
		return d, 0, fmt.Errorf("process-identifier: %w", err)
	}
	d.ProcessID = uint32(pid)
	pos += n

	confirmed, n, err := DecodeBoolean(data[pos:])
	if err != nil {
		return d, 0, fmt.Errorf("confirmed-notifications: %w", err)
	}
	d.ConfirmedNotify = confirmed
	pos += n

	transitions, n, err := DecodeBitString(data[pos:])
	if err != nil {
		return d, 0, fmt.Errorf("transitions: %w", err)
	}
	d.Transitions = transitions
	pos += n

	return d, pos, nil
}

// ============================================================================
// BACnetReadAccessSpecification / BACnetReadAccessResult
// ============================================================================

// PropertyReference is the (propertyIdentifier, propertyArrayIndex?)
// pair used inside a ReadAccessSpecification's property list.
type PropertyReference struct {
	Property   uint32
	ArrayIndex *uint32
}

// Encode appends context tags [0] property-identifier, [1] array-index?.
func (p PropertyReference) Encode(buf *bytes.Buffer) {
	EncodeContextEnumerated(buf, 0, p.Property)
	if p.ArrayIndex != nil {
		EncodeContextUnsigned(buf, 1, uint64(*p.ArrayIndex))
	}
}

// DecodePropertyReference decodes a PropertyReference.
func DecodePropertyReference(data []byte) (PropertyReference, int, error) {
	var p PropertyReference
	prop, n, err := DecodeContextUnsigned(data, 0)
	if err != nil {
		return p, 0, fmt.Errorf("property-identifier: %w", err)
	}
	p.Property = uint32(prop)
	pos := n
	if pos < len(data) {
		tag, _, err := DecodeTag(data[pos:])
		if err == nil && tag.IsContextSpecific(1) {
			idx, n, err := DecodeContextUnsigned(data[pos:], 1)
			if err != nil {
				return p, 0, fmt.Errorf("array-index: %w", err)
			}
			v := uint32(idx)
			p.ArrayIndex = &v
			pos += n
		}
	}
	return p, pos, nil
}

// ReadAccessSpecification is BACnetReadAccessSpecification, used by
// ReadPropertyMultiple requests.
type ReadAccessSpecification struct {
	Object     ObjectID
	Properties []PropertyReference
}

// Encode appends [0] object-identifier, [1] { property references... }.
func (r ReadAccessSpecification) Encode(buf *bytes.Buffer) {
	EncodeContextObjectID(buf, 0, r.Object)
	EncodeOpeningTag(buf, 1)
	for _, p := range r.Properties {
		p.Encode(buf)
	}
	EncodeClosingTag(buf, 1)
}

// DecodeReadAccessSpecification decodes a ReadAccessSpecification.
func DecodeReadAccessSpecification(data []byte) (ReadAccessSpecification, int, error) {
	var r ReadAccessSpecification
	obj, n, err := DecodeContextObjectID(data, 0)
	if err != nil {
		return r, 0, fmt.Errorf("object-identifier: %w", err)
	}
	r.Object = obj
	pos := n

	openN, err := DecodeConstructedOpening(data[pos:], 1)
	if err != nil {
		return r, 0, fmt.Errorf("property-list opening: %w", err)
	}
	pos += openN

	for {
		tag, _, err := DecodeTag(data[pos:])
		if err != nil {
			return r, 0, err
		}
		if tag.Closing && tag.Number == 1 {
			closeN, _ := DecodeConstructedClosing(data[pos:], 1)
			pos += closeN
			break
		}
		p, n, err := DecodePropertyReference(data[pos:])
		if err != nil {
			return r, 0, err
		}
		r.Properties = append(r.Properties, p)
		pos += n
	}
	return r, pos, nil
}

// PropertyResult is one entry of a ReadAccessResult's result list:
// either a successful value or an error,.2.
type PropertyResult struct {
	Property   uint32
	ArrayIndex *uint32
	Value      *Value
	ErrorClass uint32
	ErrorCode  uint32
	IsError    bool
}

// ReadAccessResult is BACnetReadAccessResult, the ack-side counterpart
// of ReadAccessSpecification.
type ReadAccessResult struct {
	Object  ObjectID
	Results []PropertyResult
}

// Encode appends [0] object-identifier, [1] { results... }.
func (r ReadAccessResult) Encode(buf *bytes.Buffer) error {
	EncodeContextObjectID(buf, 0, r.Object)
	EncodeOpeningTag(buf, 1)
	for _, res := range r.Results {
		EncodeContextEnumerated(buf, 2, res.Property)
		if res.ArrayIndex != nil {
			EncodeContextUnsigned(buf, 3, uint64(*res.ArrayIndex))
		}
		if res.IsError {
			EncodeOpeningTag(buf, 5)
			EncodeEnumerated(buf, res.ErrorClass)
			EncodeEnumerated(buf, res.ErrorCode)
			EncodeClosingTag(buf, 5)
		} else {
			EncodeOpeningTag(buf, 4)
			if res.Value == nil {
				return fmt.Errorf("%w: missing property value", ErrMissingRequiredField)
			}
			if err := Encode(buf, *res.Value); err != nil {
				return err
			}
			EncodeClosingTag(buf, 4)
		}
	}
	EncodeClosingTag(buf, 1)
	return nil
}

// DecodeReadAccessResult decodes a ReadAccessResult.
func DecodeReadAccessResult(data []byte) (ReadAccessResult, int, error) {
	var r ReadAccessResult
	obj, n, err := DecodeContextObjectID(data, 0)
	if err != nil {
		return r, 0, fmt.Errorf("object-identifier: %w", err)
	}
	r.Object = obj
	pos := n

	openN, err := DecodeConstructedOpening(data[pos:], 1)
	if err != nil {
		return r, 0, fmt.Errorf("result-list opening: %w", err)
	}
	pos += openN

	for {
		tag, _, err := DecodeTag(data[pos:])
		if err != nil {
			return r, 0, err
		}
		if tag.Closing && tag.Number == 1 {
			closeN, _ := DecodeConstructedClosing(data[pos:], 1)
			pos += closeN
			break
		}

		var res PropertyResult
		prop, n, err := DecodeContextUnsigned(data[pos:], 2)
		if err != nil {
			return r, 0, fmt.Errorf("propertyIdentifier: %w", err)
		}
		res.Property = uint32(prop)
		pos += n

		if t, _, err := DecodeTag(data[pos:]); err == nil && t.IsContextSpecific(3) {
			idx, n, err := DecodeContextUnsigned(data[pos:], 3)
			if err != nil {
				return r, 0, fmt.Errorf("propertyArrayIndex: %w", err)
			}
			v := uint32(idx)
			res.ArrayIndex = &v
			pos += n
		}

		choiceTag, cn, err := DecodeTag(data[pos:])
		if err != nil {
			return r, 0, err
		}
		switch {
		case choiceTag.Class == ClassContext && choiceTag.Number == 4 && choiceTag.Opening:
			v, vn, err := Decode(data[pos+cn:])
			if err != nil {
				return r, 0, fmt.Errorf("propertyValue: %w", err)
			}
			closeN, err := DecodeConstructedClosing(data[pos+cn+vn:], 4)
			if err != nil {
				return r, 0, err
			}
			res.Value = &v
			pos += cn + vn + closeN
		case choiceTag.Class == ClassContext && choiceTag.Number == 5 && choiceTag.Opening:
			ec, ecn, err := DecodeEnumerated(data[pos+cn:])
			if err != nil {
				return r, 0, fmt.Errorf("error-class: %w", err)
			}
			ecode, ecoden, err := DecodeEnumerated(data[pos+cn+ecn:])
			if err != nil {
				return r, 0, fmt.Errorf("error-code: %w", err)
			}
			closeN, err := DecodeConstructedClosing(data[pos+cn+ecn+ecoden:], 5)
			if err != nil {
				return r, 0, err
			}
			res.IsError = true
			res.ErrorClass = ec
			res.ErrorCode = ecode
			pos += cn + ecn + ecoden + closeN
		default:
			return r, 0, fmt.Errorf("%w: expected propertyValue or propertyAccessError", ErrInvalidTag)
		}

		r.Results = append(r.Results, res)
	}
	return r, pos, nil
}
