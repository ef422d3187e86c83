package service

import (
	"bytes"
	"fmt"

	"github.com/bacnet-stack/bacnet-core/internal/bacapp"
)

// RangeSelectorKind discriminates the ReadRange range selector
// A request with no selector present is ReadAll.
type RangeSelectorKind uint8

const (
	RangeReadAll RangeSelectorKind = iota
	RangeByPosition
	RangeBySequence
	RangeByTime
)

// RangeSelector is the tagged union of ReadRange request selectors.
// Count may be negative, meaning "count backward from the reference".
type RangeSelector struct {
	Kind            RangeSelectorKind
	ReferenceIndex  uint32 // ByPosition
	ReferenceSeqNum uint32 // BySequence
	ReferenceDate   bacapp.Date // ByTime
	ReferenceTime   bacapp.Time // ByTime
	Count           int32
}

const (
	tagByPosition = 3
	tagBySequence = 4
	tagByTime     = 5
)

// ReadRangeRequest is BACnetReadRangeRequest.
type ReadRangeRequest struct {
	Object     bacapp.ObjectID
	Property   uint32
	ArrayIndex *uint32
	Range      RangeSelector
}

// EncodeReadRangeRequest appends the parameter sequence. RangeReadAll
// omits the selector entirely.
func EncodeReadRangeRequest(buf *bytes.Buffer, r ReadRangeRequest) {
	bacapp.EncodeContextObjectID(buf, 0, r.Object)
	bacapp.EncodeContextEnumerated(buf, 1, r.Property)
	if r.ArrayIndex != nil {
		bacapp.EncodeContextUnsigned(buf, 2, uint64(*r.ArrayIndex))
	}
	switch r.Range.Kind {
	case RangeReadAll:
		// no selector encoded
	case RangeByPosition:
		bacapp.EncodeOpeningTag(buf, tagByPosition)
		bacapp.EncodeUnsigned(buf, uint64(r.Range.ReferenceIndex))
		bacapp.EncodeSigned(buf, r.Range.Count)
		bacapp.EncodeClosingTag(buf, tagByPosition)
	case RangeBySequence:
		bacapp.EncodeOpeningTag(buf, tagBySequence)
		bacapp.EncodeUnsigned(buf, uint64(r.Range.ReferenceSeqNum))
		bacapp.EncodeSigned(buf, r.Range.Count)
		bacapp.EncodeClosingTag(buf, tagBySequence)
	case RangeByTime:
		bacapp.EncodeOpeningTag(buf, tagByTime)
		bacapp.EncodeDate(buf, r.Range.ReferenceDate)
		bacapp.EncodeTime(buf, r.Range.ReferenceTime)
		bacapp.EncodeSigned(buf, r.Range.Count)
		bacapp.EncodeClosingTag(buf, tagByTime)
	}
}

// DecodeReadRangeRequest decodes the parameter sequence. A missing
// selector decodes as RangeReadAll, matching the "MUST
// accept missing optional fields" requirement.
func DecodeReadRangeRequest(data []byte) (ReadRangeRequest, int, error) {
	var r ReadRangeRequest

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

	if pos >= len(data) {
		r.Range = RangeSelector{Kind: RangeReadAll}
		return r, pos, nil
	}

	tag, tn, err := bacapp.DecodeTag(data[pos:])
	if err != nil {
		return r, 0, wrapMalformed("range selector", err)
	}
	if !tag.Opening {
		return r, 0, newServiceError(ErrorClassProperty, ErrorCodeInconsistentParameters, "malformed range selector")
	}

	body := pos + tn
	switch tag.Number {
	case tagByPosition:
		idx, n, err := bacapp.DecodeUnsigned(data[body:])
		if err != nil {
			return r, 0, wrapMalformed("reference-index", err)
		}
		cnt, cn, err := bacapp.DecodeSigned(data[body+n:])
		if err != nil {
			return r, 0, wrapMalformed("count", err)
		}
		closeN, err := bacapp.DecodeConstructedClosing(data[body+n+cn:], tagByPosition)
		if err != nil {
			return r, 0, wrapMalformed("range selector closing", err)
		}
		r.Range = RangeSelector{Kind: RangeByPosition, ReferenceIndex: uint32(idx), Count: cnt}
		pos = body + n + cn + closeN

	case tagBySequence:
		seq, n, err := bacapp.DecodeUnsigned(data[body:])
		if err != nil {
			return r, 0, wrapMalformed("reference-sequence-number", err)
		}
		cnt, cn, err := bacapp.DecodeSigned(data[body+n:])
		if err != nil {
			return r, 0, wrapMalformed("count", err)
		}
		closeN, err := bacapp.DecodeConstructedClosing(data[body+n+cn:], tagBySequence)
		if err != nil {
			return r, 0, wrapMalformed("range selector closing", err)
		}
		r.Range = RangeSelector{Kind: RangeBySequence, ReferenceSeqNum: uint32(seq), Count: cnt}
		pos = body + n + cn + closeN

	case tagByTime:
		d, n, err := bacapp.DecodeDate(data[body:])
		if err != nil {
			return r, 0, wrapMalformed("reference-date", err)
		}
		t, tn2, err := bacapp.DecodeTime(data[body+n:])
		if err != nil {
			return r, 0, wrapMalformed("reference-time", err)
		}
		cnt, cn, err := bacapp.DecodeSigned(data[body+n+tn2:])
		if err != nil {
			return r, 0, wrapMalformed("count", err)
		}
		closeN, err := bacapp.DecodeConstructedClosing(data[body+n+tn2+cn:], tagByTime)
		if err != nil {
			return r, 0, wrapMalformed("range selector closing", err)
		}
		r.Range = RangeSelector{Kind: RangeByTime, ReferenceDate: d, ReferenceTime: t, Count: cnt}
		pos = body + n + tn2 + cn + closeN

	default:
		return r, 0, fmt.Errorf("%w: unknown range selector tag %d", ErrMalformed, tag.Number)
	}
	return r, pos, nil
}

// ReadRangeResultFlags bit positions.
const (
	ResultFlagFirstItem uint8 = 0
	ResultFlagLastItem  uint8 = 1
	ResultFlagMoreItems uint8 = 2
)

// ReadRangeAck is BACnetReadRangeAck.
type ReadRangeAck struct {
	Object              bacapp.ObjectID
	Property            uint32
	ArrayIndex          *uint32
	ResultFlags         bacapp.BitString
	ItemCount           uint32
	Items               []bacapp.Value
	FirstSequenceNumber *uint32
}

// EncodeReadRangeAck appends the parameter sequence.
func EncodeReadRangeAck(buf *bytes.Buffer, a ReadRangeAck) error {
	bacapp.EncodeContextObjectID(buf, 0, a.Object)
	bacapp.EncodeContextEnumerated(buf, 1, a.Property)
	if a.ArrayIndex != nil {
		bacapp.EncodeContextUnsigned(buf, 2, uint64(*a.ArrayIndex))
	}
	bacapp.EncodeContextBitString(buf, 3, a.ResultFlags)
	bacapp.EncodeContextUnsigned(buf, 4, uint64(a.ItemCount))
	bacapp.EncodeOpeningTag(buf, 5)
	for _, v := range a.Items {
		if err := bacapp.Encode(buf, v); err != nil {
			return err
		}
	}
	bacapp.EncodeClosingTag(buf, 5)
	if a.FirstSequenceNumber != nil {
		bacapp.EncodeContextUnsigned(buf, 6, uint64(*a.FirstSequenceNumber))
	}
	return nil
}

// DecodeReadRangeAck decodes the parameter sequence. FirstSequenceNumber
// is present only when ItemCount>0 and the request selector was ByTime
// or BySequence; absence is not an error here, the
// caller enforces that constraint against its own request context.
func DecodeReadRangeAck(data []byte) (ReadRangeAck, int, error) {
	var a ReadRangeAck

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

	flags, n, err := decodeContextBitString(data[pos:], 3)
	if err != nil {
		return a, 0, wrapMalformed("result-flags", err)
	}
	a.ResultFlags = flags
	pos += n

	count, n, err := bacapp.DecodeContextUnsigned(data[pos:], 4)
	if err != nil {
		return a, 0, wrapMalformed("item-count", err)
	}
	a.ItemCount = uint32(count)
	pos += n

	openN, err := bacapp.DecodeConstructedOpening(data[pos:], 5)
	if err != nil {
		return a, 0, wrapMalformed("item-data opening", err)
	}
	pos += openN
	for {
		tag, _, err := bacapp.DecodeTag(data[pos:])
		if err != nil {
			return a, 0, wrapMalformed("item-data", err)
		}
		if tag.Closing && tag.Number == 5 {
			closeN, _ := bacapp.DecodeConstructedClosing(data[pos:], 5)
			pos += closeN
			break
		}
		v, n, err := bacapp.Decode(data[pos:])
		if err != nil {
			return a, 0, wrapMalformed("item-data element", err)
		}
		a.Items = append(a.Items, v)
		pos += n
	}

	if pos < len(data) {
		if tag, _, err := bacapp.DecodeTag(data[pos:]); err == nil && tag.IsContextSpecific(6) {
			seq, n, err := bacapp.DecodeContextUnsigned(data[pos:], 6)
			if err != nil {
				return a, 0, wrapMalformed("first-sequence-number", err)
			}
			v := uint32(seq)
			a.FirstSequenceNumber = &v
			pos += n
		}
	}
	return a, pos, nil
}

// decodeContextBitString decodes a context-tagged bit string (the
// bacapp package only exposes the application-tagged decoder publicly
// symmetrical to its Encode counterpart, so this mirrors
// bacapp.DecodeContextUnsigned's verification structure locally).
func decodeContextBitString(data []byte, number uint32) (bacapp.BitString, int, error) {
	tag, n, err := bacapp.DecodeTag(data)
	if err != nil {
		return bacapp.BitString{}, 0, err
	}
	if !tag.IsContextSpecific(number) || tag.Length < 1 {
		return bacapp.BitString{}, 0, fmt.Errorf("%w: expected context bit string [%d]", bacapp.ErrInvalidTag, number)
	}
	if uint32(len(data)-n) < tag.Length {
		return bacapp.BitString{}, 0, fmt.Errorf("%w: bit string payload", bacapp.ErrTruncated)
	}
	unused := data[n]
	byteLen := tag.Length - 1
	b := make([]byte, byteLen)
	copy(b, data[n+1:n+1+int(byteLen)])
	return bacapp.BitString{BitsUsed: uint8(byteLen)*8 - unused, Bytes: b}, n + int(tag.Length), nil
}
