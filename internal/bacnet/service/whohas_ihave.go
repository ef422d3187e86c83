package service

import (
	"bytes"
	"fmt"

	"github.com/bacnet-stack/bacnet-core/internal/bacapp"
)

// ObjectSelectorKind discriminates Who-Has's object choice.
type ObjectSelectorKind uint8

const (
	ObjectSelectorID   ObjectSelectorKind = iota // context tag [2]
	ObjectSelectorName                           // context tag [3]
)

// WhoHasRequest is BACnetWhoHasRequest: an optional device-instance
// range plus a required object selector (ObjectId or ObjectName).
type WhoHasRequest struct {
	LowLimit   *uint32
	HighLimit  *uint32
	Selector   ObjectSelectorKind
	ObjectID   bacapp.ObjectID
	ObjectName bacapp.CharacterString
}

// EncodeWhoHasRequest appends the parameter sequence.
func EncodeWhoHasRequest(buf *bytes.Buffer, r WhoHasRequest) {
	if r.LowLimit != nil && r.HighLimit != nil {
		bacapp.EncodeContextUnsigned(buf, 0, uint64(*r.LowLimit))
		bacapp.EncodeContextUnsigned(buf, 1, uint64(*r.HighLimit))
	}
	switch r.Selector {
	case ObjectSelectorID:
		bacapp.EncodeContextObjectID(buf, 2, r.ObjectID)
	case ObjectSelectorName:
		bacapp.EncodeContextCharacterString(buf, 3, r.ObjectName)
	}
}

// DecodeWhoHasRequest decodes the parameter sequence.
func DecodeWhoHasRequest(data []byte) (WhoHasRequest, int, error) {
	var r WhoHasRequest
	pos := 0

	if tag, _, err := bacapp.DecodeTag(data); err == nil && tag.IsContextSpecific(0) {
		low, n, err := bacapp.DecodeContextUnsigned(data, 0)
		if err != nil {
			return r, 0, wrapMalformed("deviceInstanceRangeLowLimit", err)
		}
		lowV := uint32(low)
		r.LowLimit = &lowV
		pos += n

		high, n, err := bacapp.DecodeContextUnsigned(data[pos:], 1)
		if err != nil {
			return r, 0, wrapMalformed("deviceInstanceRangeHighLimit", err)
		}
		highV := uint32(high)
		r.HighLimit = &highV
		pos += n
	}

	tag, _, err := bacapp.DecodeTag(data[pos:])
	if err != nil {
		return r, 0, wrapMalformed("object selector", err)
	}
	switch {
	case tag.IsContextSpecific(2):
		obj, n, err := bacapp.DecodeContextObjectID(data[pos:], 2)
		if err != nil {
			return r, 0, wrapMalformed("objectIdentifier", err)
		}
		r.Selector = ObjectSelectorID
		r.ObjectID = obj
		pos += n
	case tag.IsContextSpecific(3):
		name, n, err := decodeContextCharacterString(data[pos:], 3)
		if err != nil {
			return r, 0, wrapMalformed("objectName", err)
		}
		r.Selector = ObjectSelectorName
		r.ObjectName = name
		pos += n
	default:
		return r, 0, fmt.Errorf("%w: unknown object selector tag", ErrMalformed)
	}
	return r, pos, nil
}

func decodeContextCharacterString(data []byte, number uint32) (bacapp.CharacterString, int, error) {
	tag, n, err := bacapp.DecodeTag(data)
	if err != nil {
		return bacapp.CharacterString{}, 0, err
	}
	if !tag.IsContextSpecific(number) || tag.Length < 1 {
		return bacapp.CharacterString{}, 0, fmt.Errorf("%w: expected context character string [%d]", bacapp.ErrInvalidTag, number)
	}
	if uint32(len(data)-n) < tag.Length {
		return bacapp.CharacterString{}, 0, fmt.Errorf("%w: character string payload", bacapp.ErrTruncated)
	}
	encoding := data[n]
	strLen := tag.Length - 1
	b := make([]byte, strLen)
	copy(b, data[n+1:n+1+int(strLen)])
	return bacapp.CharacterString{Encoding: encoding, Bytes: b}, n + int(tag.Length), nil
}

// IHaveRequest is BACnetIHaveRequest (unconfirmed).
type IHaveRequest struct {
	Device     bacapp.ObjectID
	Object     bacapp.ObjectID
	ObjectName bacapp.CharacterString
}

// EncodeIHaveRequest appends the parameter sequence (application-tagged
// throughout, no context tags.
func EncodeIHaveRequest(buf *bytes.Buffer, r IHaveRequest) {
	bacapp.EncodeObjectID(buf, r.Device)
	bacapp.EncodeObjectID(buf, r.Object)
	bacapp.EncodeCharacterString(buf, r.ObjectName)
}

// DecodeIHaveRequest decodes the parameter sequence.
func DecodeIHaveRequest(data []byte) (IHaveRequest, int, error) {
	var r IHaveRequest

	dev, n, err := bacapp.DecodeObjectID(data)
	if err != nil {
		return r, 0, wrapMalformed("deviceIdentifier", err)
	}
	r.Device = dev
	pos := n

	obj, n, err := bacapp.DecodeObjectID(data[pos:])
	if err != nil {
		return r, 0, wrapMalformed("objectIdentifier", err)
	}
	r.Object = obj
	pos += n

	name, n, err := bacapp.DecodeCharacterString(data[pos:])
	if err != nil {
		return r, 0, wrapMalformed("objectName", err)
	}
	r.ObjectName = name
	pos += n

	return r, pos, nil
}
