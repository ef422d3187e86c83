package service

import (
	"bytes"
	"fmt"

	"github.com/bacnet-stack/bacnet-core/internal/bacapp"
)

// ReadPropertyRequest is BACnetReadPropertyRequest.
type ReadPropertyRequest struct {
	Object     bacapp.ObjectID
	Property   uint32
	ArrayIndex *uint32
}

// EncodeReadPropertyRequest appends the service's parameter sequence
// (the caller prepends the confirmed-request APDU header and service
// choice octet).
func EncodeReadPropertyRequest(buf *bytes.Buffer, r ReadPropertyRequest) {
	bacapp.EncodeContextObjectID(buf, 0, r.Object)
	bacapp.EncodeContextEnumerated(buf, 1, r.Property)
	if r.ArrayIndex != nil {
		bacapp.EncodeContextUnsigned(buf, 2, uint64(*r.ArrayIndex))
	}
}

// DecodeReadPropertyRequest decodes the parameter sequence.
func DecodeReadPropertyRequest(data []byte) (ReadPropertyRequest, int, error) {
	var r ReadPropertyRequest

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

	if pos < len(data) {
		if tag, _, err := bacapp.DecodeTag(data[pos:]); err == nil && tag.IsContextSpecific(2) {
			idx, n, err := bacapp.DecodeContextUnsigned(data[pos:], 2)
			if err != nil {
				return r, 0, wrapMalformed("property-array-index", err)
			}
			v := uint32(idx)
			r.ArrayIndex = &v
			pos += n
		}
	}
	return r, pos, nil
}

// ReadPropertyAck is BACnetReadPropertyAck: the request's identifying
// fields plus the returned value(s). A single-valued property encodes
// one element; an array/list property encodes more than one.
type ReadPropertyAck struct {
	Object     bacapp.ObjectID
	Property   uint32
	ArrayIndex *uint32
	Values     []bacapp.Value
}

// EncodeReadPropertyAck appends the ack's parameter sequence.
func EncodeReadPropertyAck(buf *bytes.Buffer, a ReadPropertyAck) error {
	bacapp.EncodeContextObjectID(buf, 0, a.Object)
	bacapp.EncodeContextEnumerated(buf, 1, a.Property)
	if a.ArrayIndex != nil {
		bacapp.EncodeContextUnsigned(buf, 2, uint64(*a.ArrayIndex))
	}
	bacapp.EncodeOpeningTag(buf, 3)
	for _, v := range a.Values {
		if err := bacapp.Encode(buf, v); err != nil {
			return fmt.Errorf("property-value: %w", err)
		}
	}
	bacapp.EncodeClosingTag(buf, 3)
	return nil
}

// DecodeReadPropertyAck decodes the ack's parameter sequence.
func DecodeReadPropertyAck(data []byte) (ReadPropertyAck, int, error) {
	var a ReadPropertyAck

	obj, n, err := bacapp.DecodeContextObjectID(data, 0)
	if err != nil {
		return a, 0, wrapMalformed("object-identifier", err)
	}
	a.Object = obj
	pos := n

	prop, n, err := bacapp.DecodeContextUnsigned(data[pos:], 1)
	if err != nil {
		return a, 0, wrapMalformed("property-identifier", err)
	}
	a.Property = uint32(prop)
	pos += n

	if tag, _, err := bacapp.DecodeTag(data[pos:]); err == nil && tag.IsContextSpecific(2) {
		idx, n, err := bacapp.DecodeContextUnsigned(data[pos:], 2)
		if err != nil {
			return a, 0, wrapMalformed("property-array-index", err)
		}
		v := uint32(idx)
		a.ArrayIndex = &v
		pos += n
	}

	openN, err := bacapp.DecodeConstructedOpening(data[pos:], 3)
	if err != nil {
		return a, 0, wrapMalformed("property-value opening", err)
	}
	pos += openN

	for {
		tag, _, err := bacapp.DecodeTag(data[pos:])
		if err != nil {
			return a, 0, wrapMalformed("property-value", err)
		}
		if tag.Closing && tag.Number == 3 {
			closeN, _ := bacapp.DecodeConstructedClosing(data[pos:], 3)
			pos += closeN
			break
		}
		v, n, err := bacapp.Decode(data[pos:])
		if err != nil {
			return a, 0, wrapMalformed("property-value element", err)
		}
		a.Values = append(a.Values, v)
		pos += n
	}
	return a, pos, nil
}
