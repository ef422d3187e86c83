package bacapp

import (
	"bytes"
	"fmt"
)

// ValueKind discriminates the variant held by a Value. It is always
// equal to the wire application tag number of the variant it describes.
type ValueKind uint32

const (
	KindNull            = ValueKind(TagNull)
	KindBoolean         = ValueKind(TagBoolean)
	KindUnsigned        = ValueKind(TagUnsignedInt)
	KindSigned          = ValueKind(TagSignedInt)
	KindReal            = ValueKind(TagReal)
	KindDouble          = ValueKind(TagDouble)
	KindOctetString     = ValueKind(TagOctetString)
	KindCharacterString = ValueKind(TagCharacterString)
	KindBitString       = ValueKind(TagBitString)
	KindEnumerated      = ValueKind(TagEnumerated)
	KindDate            = ValueKind(TagDate)
	KindTime            = ValueKind(TagTime)
	KindObjectID        = ValueKind(TagObjectID)
)

// Value is the fundamental decoded application value: a
// tagged union over every primitive BACnet variant. Exactly one of the
// typed fields is meaningful, selected by Kind; a decoded value's Kind
// always matches the wire tag that produced it.
type Value struct {
	Kind ValueKind

	Boolean   bool
	Unsigned  uint64
	Signed    int32
	Real      float32
	Double    float64
	Octet     []byte
	CharStr   CharacterString
	Bits      BitString
	Enum      uint32
	Date      Date
	Time      Time
	ObjectID  ObjectID
}

// Equal reports whether two values are structurally equal, including
// wildcard fields on Date/Time. Used by round-trip tests.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindNull:
		return true
	case KindBoolean:
		return v.Boolean == o.Boolean
	case KindUnsigned:
		return v.Unsigned == o.Unsigned
	case KindSigned:
		return v.Signed == o.Signed
	case KindReal:
		return v.Real == o.Real
	case KindDouble:
		return v.Double == o.Double
	case KindOctetString:
		return bytes.Equal(v.Octet, o.Octet)
	case KindCharacterString:
		return v.CharStr.Encoding == o.CharStr.Encoding && bytes.Equal(v.CharStr.Bytes, o.CharStr.Bytes)
	case KindBitString:
		return v.Bits.BitsUsed == o.Bits.BitsUsed && bytes.Equal(v.Bits.Bytes, o.Bits.Bytes)
	case KindEnumerated:
		return v.Enum == o.Enum
	case KindDate:
		return equalDate(v.Date, o.Date)
	case KindTime:
		return equalTime(v.Time, o.Time)
	case KindObjectID:
		return v.ObjectID == o.ObjectID
	default:
		return false
	}
}

func equalU8Ptr(a, b *uint8) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalU16Ptr(a, b *uint16) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalDate(a, b Date) bool {
	return equalU16Ptr(a.Year, b.Year) && equalU8Ptr(a.Month, b.Month) &&
		equalU8Ptr(a.Day, b.Day) && equalU8Ptr(a.Weekday, b.Weekday)
}

func equalTime(a, b Time) bool {
	return equalU8Ptr(a.Hour, b.Hour) && equalU8Ptr(a.Minute, b.Minute) &&
		equalU8Ptr(a.Second, b.Second) && equalU8Ptr(a.Hundredths, b.Hundredths)
}

// Constructors for the common cases, in the same style as
// NewCharacterString-style convenience builders elsewhere in this codebase.
func NullValue() Value                    { return Value{Kind: KindNull} }
func BooleanValue(v bool) Value           { return Value{Kind: KindBoolean, Boolean: v} }
func UnsignedValue(v uint64) Value        { return Value{Kind: KindUnsigned, Unsigned: v} }
func SignedValue(v int32) Value           { return Value{Kind: KindSigned, Signed: v} }
func RealValue(v float32) Value           { return Value{Kind: KindReal, Real: v} }
func DoubleValue(v float64) Value         { return Value{Kind: KindDouble, Double: v} }
func OctetStringValue(v []byte) Value     { return Value{Kind: KindOctetString, Octet: v} }
func StringValue(s string) Value          { return Value{Kind: KindCharacterString, CharStr: NewCharacterString(s)} }
func EnumeratedValue(v uint32) Value      { return Value{Kind: KindEnumerated, Enum: v} }
func DateValue(d Date) Value              { return Value{Kind: KindDate, Date: d} }
func TimeValue(t Time) Value              { return Value{Kind: KindTime, Time: t} }
func ObjectIDValue(o ObjectID) Value      { return Value{Kind: KindObjectID, ObjectID: o} }

// Encode appends the application-tagged wire form of v.
func Encode(buf *bytes.Buffer, v Value) error {
	switch v.Kind {
	case KindNull:
		EncodeNull(buf)
	case KindBoolean:
		EncodeBoolean(buf, v.Boolean)
	case KindUnsigned:
		EncodeUnsigned(buf, v.Unsigned)
	case KindSigned:
		EncodeSigned(buf, v.Signed)
	case KindReal:
		EncodeReal(buf, v.Real)
	case KindDouble:
		EncodeDouble(buf, v.Double)
	case KindOctetString:
		EncodeOctetString(buf, v.Octet)
	case KindCharacterString:
		EncodeCharacterString(buf, v.CharStr)
	case KindBitString:
		EncodeBitString(buf, v.Bits)
	case KindEnumerated:
		EncodeEnumerated(buf, v.Enum)
	case KindDate:
		EncodeDate(buf, v.Date)
	case KindTime:
		EncodeTime(buf, v.Time)
	case KindObjectID:
		EncodeObjectID(buf, v.ObjectID)
	default:
		return fmt.Errorf("%w: unknown value kind %d", ErrInvalidTag, v.Kind)
	}
	return nil
}

// Decode decodes a single application-tagged value, dispatching on the
// leading tag's number the way the original stack's
// bacapp_decode_application_data does.
func Decode(data []byte) (Value, int, error) {
	tag, _, err := DecodeTag(data)
	if err != nil {
		return Value{}, 0, err
	}
	if tag.Class != ClassApplication {
		return Value{}, 0, fmt.Errorf("%w: expected application tag", ErrInvalidTag)
	}
	switch tag.Number {
	case TagNull:
		n, err := DecodeNull(data)
		return NullValue(), n, err
	case TagBoolean:
		v, n, err := DecodeBoolean(data)
		return BooleanValue(v), n, err
	case TagUnsignedInt:
		v, n, err := DecodeUnsigned(data)
		return UnsignedValue(v), n, err
	case TagSignedInt:
		v, n, err := DecodeSigned(data)
		return SignedValue(v), n, err
	case TagReal:
		v, n, err := DecodeReal(data)
		return RealValue(v), n, err
	case TagDouble:
		v, n, err := DecodeDouble(data)
		return DoubleValue(v), n, err
	case TagOctetString:
		v, n, err := DecodeOctetString(data)
		return OctetStringValue(v), n, err
	case TagCharacterString:
		v, n, err := DecodeCharacterString(data)
		return Value{Kind: KindCharacterString, CharStr: v}, n, err
	case TagBitString:
		v, n, err := DecodeBitString(data)
		return Value{Kind: KindBitString, Bits: v}, n, err
	case TagEnumerated:
		v, n, err := DecodeEnumerated(data)
		return EnumeratedValue(v), n, err
	case TagDate:
		v, n, err := DecodeDate(data)
		return DateValue(v), n, err
	case TagTime:
		v, n, err := DecodeTime(data)
		return TimeValue(v), n, err
	case TagObjectID:
		v, n, err := DecodeObjectID(data)
		return ObjectIDValue(v), n, err
	default:
		return Value{}, 0, fmt.Errorf("%w: unsupported application tag %d", ErrInvalidTag, tag.Number)
	}
}

// SkipValue decodes and discards a single application-tagged value
// (primitive or a context-wrapped constructed sequence), returning the
// bytes consumed. Used by composite decoders to skip unrecognized
// trailing optional fields.3.
func SkipValue(data []byte) (int, error) {
	tag, n, err := DecodeTag(data)
	if err != nil {
		return 0, err
	}
	if tag.Opening {
		depth := 1
		pos := n
		for depth > 0 {
			t, tn, err := DecodeTag(data[pos:])
			if err != nil {
				return 0, err
			}
			pos += tn
			switch {
			case t.Opening:
				depth++
			case t.Closing:
				depth--
			default:
				if uint32(len(data)-pos) < t.Length {
					return 0, fmt.Errorf("%w: skip constructed payload", ErrTruncated)
				}
				pos += int(t.Length)
			}
		}
		return pos, nil
	}
	if uint32(len(data)-n) < tag.Length {
		return 0, fmt.Errorf("%w: skip payload", ErrTruncated)
	}
	return n + int(tag.Length), nil
}
