package service

import (
	"bytes"

	"github.com/bacnet-stack/bacnet-core/internal/bacapp"
)

// WriteAnyPriority means no priority was present on the wire: the
// object's normal default-priority write path applies.
const WriteAnyPriority uint8 = 0

// WritePropertyRequest is BACnetWritePropertyRequest: ReadProperty's
// identifying fields plus the value to write and an optional priority
// (1..16).
type WritePropertyRequest struct {
	Object     bacapp.ObjectID
	Property   uint32
	ArrayIndex *uint32
	Value      bacapp.Value
	Priority   *uint8
}

// EncodeWritePropertyRequest appends the parameter sequence.
func EncodeWritePropertyRequest(buf *bytes.Buffer, r WritePropertyRequest) error {
	bacapp.EncodeContextObjectID(buf, 0, r.Object)
	bacapp.EncodeContextEnumerated(buf, 1, r.Property)
	if r.ArrayIndex != nil {
		bacapp.EncodeContextUnsigned(buf, 2, uint64(*r.ArrayIndex))
	}
	bacapp.EncodeOpeningTag(buf, 3)
	if err := bacapp.Encode(buf, r.Value); err != nil {
		return err
	}
	bacapp.EncodeClosingTag(buf, 3)
	if r.Priority != nil {
		bacapp.EncodeContextUnsigned(buf, 4, uint64(*r.Priority))
	}
	return nil
}

// DecodeWritePropertyRequest decodes the parameter sequence. A priority
// outside 1..16 is rejected with Property::ValueOutOfRange.
func DecodeWritePropertyRequest(data []byte) (WritePropertyRequest, int, error) {
	var r WritePropertyRequest

	obj, n, err := bacapp.DecodeContextObjectID(data, 0)
	if err != nil {
		return r, 0, wrapMalformed("object-identifier", err)
	}
	r.Object = obj
	pos := n

	prop, n, err := bacapp.DecodeContextUnsigned(data[pos:], 1)
	if err != nil {
		return r, 0, wrapMalformed("property-identifier", err)
	}
	r.Property = uint32(prop)
	pos += n

	if tag, _, err := bacapp.DecodeTag(data[pos:]); err == nil && tag.IsContextSpecific(2) {
		idx, n, err := bacapp.DecodeContextUnsigned(data[pos:], 2)
		if err != nil {
			return r, 0, wrapMalformed("property-array-index", err)
		}
		v := uint32(idx)
		r.ArrayIndex = &v
		pos += n
	}

	openN, err := bacapp.DecodeConstructedOpening(data[pos:], 3)
	if err != nil {
		return r, 0, wrapMalformed("value opening", err)
	}
	pos += openN

	v, n, err := bacapp.Decode(data[pos:])
	if err != nil {
		return r, 0, wrapMalformed("value", err)
	}
	r.Value = v
	pos += n

	closeN, err := bacapp.DecodeConstructedClosing(data[pos:], 3)
	if err != nil {
		return r, 0, wrapMalformed("value closing", err)
	}
	pos += closeN

	if pos < len(data) {
		if tag, _, err := bacapp.DecodeTag(data[pos:]); err == nil && tag.IsContextSpecific(4) {
			prio, n, err := bacapp.DecodeContextUnsigned(data[pos:], 4)
			if err != nil {
				return r, 0, wrapMalformed("priority", err)
			}
			if prio < 1 || prio > 16 {
				return r, 0, newServiceError(ErrorClassProperty, ErrorCodeValueOutOfRange,
					"priority out of range 1..16")
			}
			p := uint8(prio)
			r.Priority = &p
			pos += n
		}
	}
	return r, pos, nil
}
