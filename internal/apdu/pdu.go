// Package apdu implements BACnet application-layer PDU framing and
// service-choice dispatch: decoding the PDU type
// octet, routing confirmed/unconfirmed requests to registered
// handlers, and building the Error/Reject/Abort replies the service
// layer and codec layer report up through.
package apdu

import (
	"bytes"
	"fmt"

	"github.com/bacnet-stack/bacnet-core/internal/bacapp"
)

// PDUType is the high nibble of an APDU's first octet (ANSI/ASHRAE 135
// clause 20.1).
type PDUType byte

const (
	TypeConfirmedRequest PDUType = 0x0
	TypeUnconfirmedReq   PDUType = 0x1
	TypeSimpleACK        PDUType = 0x2
	TypeComplexACK       PDUType = 0x3
	TypeSegmentACK       PDUType = 0x4
	TypeError            PDUType = 0x5
	TypeReject           PDUType = 0x6
	TypeAbort            PDUType = 0x7
)

func (t PDUType) String() string {
	switch t {
	case TypeConfirmedRequest:
		return "ConfirmedRequest"
	case TypeUnconfirmedReq:
		return "UnconfirmedRequest"
	case TypeSimpleACK:
		return "SimpleACK"
	case TypeComplexACK:
		return "ComplexACK"
	case TypeSegmentACK:
		return "SegmentACK"
	case TypeError:
		return "Error"
	case TypeReject:
		return "Reject"
	case TypeAbort:
		return "Abort"
	default:
		return "Unknown"
	}
}

// RejectReason enumerates BACnet-Reject-PDU reason codes (clause 20.1.6.2).
type RejectReason byte

const (
	RejectOther                    RejectReason = 0
	RejectBufferOverflow           RejectReason = 1
	RejectInconsistentParameters   RejectReason = 2
	RejectInvalidParameterDataType RejectReason = 3
	RejectInvalidTag               RejectReason = 4
	RejectMissingRequiredParameter RejectReason = 5
	RejectParameterOutOfRange      RejectReason = 6
	RejectTooManyArguments         RejectReason = 7
	RejectUndefinedEnumeration     RejectReason = 8
	RejectUnrecognizedService      RejectReason = 9
)

// AbortReason enumerates BACnet-Abort-PDU reason codes (clause 20.1.7.2).
type AbortReason byte

const (
	AbortOther                        AbortReason = 0
	AbortBufferOverflow               AbortReason = 1
	AbortInvalidAPDUInThisState       AbortReason = 2
	AbortPreemptedByHigherPriority    AbortReason = 3
	AbortSegmentationNotSupported     AbortReason = 4
	AbortSecurityError                AbortReason = 5
	AbortInsufficientSecurity         AbortReason = 6
	AbortWindowSizeOutOfRange         AbortReason = 7
	AbortApplicationExceededReplyTime AbortReason = 8
	AbortOutOfResources               AbortReason = 9
	AbortTSMTimeout                   AbortReason = 10
	AbortAPDUTooLong                  AbortReason = 11
)

// ConfirmedRequest is a decoded BACnet-Confirmed-Request-PDU header.
type ConfirmedRequest struct {
	Segmented         bool
	MoreFollows       bool
	SegmentedAccepted bool
	MaxSegsMaxAPDU    byte
	InvokeID          byte
	SequenceNumber    byte
	WindowSize        byte
	ServiceChoice     byte
	ServiceData       []byte
}

const (
	confirmedBitSegmented = 0x08
	confirmedBitMoreFlws  = 0x04
	confirmedBitSegAccept = 0x02
)

// EncodeConfirmedRequest serializes a Confirmed-Request-PDU.
func EncodeConfirmedRequest(r ConfirmedRequest) []byte {
	var buf bytes.Buffer
	first := byte(TypeConfirmedRequest) << 4
	if r.Segmented {
		first |= confirmedBitSegmented
	}
	if r.MoreFollows {
		first |= confirmedBitMoreFlws
	}
	if r.SegmentedAccepted {
		first |= confirmedBitSegAccept
	}
	buf.WriteByte(first)
	buf.WriteByte(r.MaxSegsMaxAPDU)
	buf.WriteByte(r.InvokeID)
	if r.Segmented {
		buf.WriteByte(r.SequenceNumber)
		buf.WriteByte(r.WindowSize)
	}
	buf.WriteByte(r.ServiceChoice)
	buf.Write(r.ServiceData)
	return buf.Bytes()
}

// DecodeConfirmedRequest parses a Confirmed-Request-PDU, including its
// optional segmentation fields.
func DecodeConfirmedRequest(data []byte) (ConfirmedRequest, error) {
	if len(data) < 3 {
		return ConfirmedRequest{}, fmt.Errorf("apdu: confirmed request too short")
	}
	first := data[0]
	if PDUType(first>>4) != TypeConfirmedRequest {
		return ConfirmedRequest{}, fmt.Errorf("apdu: not a confirmed request (type %#x)", first>>4)
	}
	r := ConfirmedRequest{
		Segmented:         first&confirmedBitSegmented != 0,
		MoreFollows:       first&confirmedBitMoreFlws != 0,
		SegmentedAccepted: first&confirmedBitSegAccept != 0,
		MaxSegsMaxAPDU:    data[1],
		InvokeID:          data[2],
	}
	pos := 3
	if r.Segmented {
		if len(data) < pos+2 {
			return ConfirmedRequest{}, fmt.Errorf("apdu: truncated segmentation fields")
		}
		r.SequenceNumber = data[pos]
		r.WindowSize = data[pos+1]
		pos += 2
	}
	if len(data) < pos+1 {
		return ConfirmedRequest{}, fmt.Errorf("apdu: missing service choice")
	}
	r.ServiceChoice = data[pos]
	pos++
	r.ServiceData = data[pos:]
	return r, nil
}

// UnconfirmedRequest is a decoded BACnet-Unconfirmed-Request-PDU.
type UnconfirmedRequest struct {
	ServiceChoice byte
	ServiceData   []byte
}

// EncodeUnconfirmedRequest serializes an Unconfirmed-Request-PDU.
func EncodeUnconfirmedRequest(r UnconfirmedRequest) []byte {
	out := make([]byte, 0, 2+len(r.ServiceData))
	out = append(out, byte(TypeUnconfirmedReq)<<4, r.ServiceChoice)
	return append(out, r.ServiceData...)
}

// DecodeUnconfirmedRequest parses an Unconfirmed-Request-PDU.
func DecodeUnconfirmedRequest(data []byte) (UnconfirmedRequest, error) {
	if len(data) < 2 {
		return UnconfirmedRequest{}, fmt.Errorf("apdu: unconfirmed request too short")
	}
	if PDUType(data[0]>>4) != TypeUnconfirmedReq {
		return UnconfirmedRequest{}, fmt.Errorf("apdu: not an unconfirmed request (type %#x)", data[0]>>4)
	}
	return UnconfirmedRequest{ServiceChoice: data[1], ServiceData: data[2:]}, nil
}

// SimpleAck is a decoded BACnet-SimpleACK-PDU.
type SimpleAck struct {
	InvokeID      byte
	ServiceChoice byte
}

// EncodeSimpleAck serializes a SimpleACK-PDU.
func EncodeSimpleAck(a SimpleAck) []byte {
	return []byte{byte(TypeSimpleACK) << 4, a.InvokeID, a.ServiceChoice}
}

// DecodeSimpleAck parses a SimpleACK-PDU.
func DecodeSimpleAck(data []byte) (SimpleAck, error) {
	if len(data) != 3 {
		return SimpleAck{}, fmt.Errorf("apdu: simple ack must be 3 octets, got %d", len(data))
	}
	if PDUType(data[0]>>4) != TypeSimpleACK {
		return SimpleAck{}, fmt.Errorf("apdu: not a simple ack (type %#x)", data[0]>>4)
	}
	return SimpleAck{InvokeID: data[1], ServiceChoice: data[2]}, nil
}

// ComplexAck is a decoded BACnet-ComplexACK-PDU.
type ComplexAck struct {
	Segmented      bool
	MoreFollows    bool
	InvokeID       byte
	SequenceNumber byte
	WindowSize     byte
	ServiceChoice  byte
	ServiceData    []byte
}

// EncodeComplexAck serializes a ComplexACK-PDU.
func EncodeComplexAck(a ComplexAck) []byte {
	var buf bytes.Buffer
	first := byte(TypeComplexACK) << 4
	if a.Segmented {
		first |= confirmedBitSegmented
	}
	if a.MoreFollows {
		first |= confirmedBitMoreFlws
	}
	buf.WriteByte(first)
	buf.WriteByte(a.InvokeID)
	if a.Segmented {
		buf.WriteByte(a.SequenceNumber)
		buf.WriteByte(a.WindowSize)
	}
	buf.WriteByte(a.ServiceChoice)
	buf.Write(a.ServiceData)
	return buf.Bytes()
}

// DecodeComplexAck parses a ComplexACK-PDU.
func DecodeComplexAck(data []byte) (ComplexAck, error) {
	if len(data) < 3 {
		return ComplexAck{}, fmt.Errorf("apdu: complex ack too short")
	}
	first := data[0]
	if PDUType(first>>4) != TypeComplexACK {
		return ComplexAck{}, fmt.Errorf("apdu: not a complex ack (type %#x)", first>>4)
	}
	a := ComplexAck{
		Segmented:   first&confirmedBitSegmented != 0,
		MoreFollows: first&confirmedBitMoreFlws != 0,
		InvokeID:    data[1],
	}
	pos := 2
	if a.Segmented {
		if len(data) < pos+2 {
			return ComplexAck{}, fmt.Errorf("apdu: truncated segmentation fields")
		}
		a.SequenceNumber = data[pos]
		a.WindowSize = data[pos+1]
		pos += 2
	}
	if len(data) < pos+1 {
		return ComplexAck{}, fmt.Errorf("apdu: missing service choice")
	}
	a.ServiceChoice = data[pos]
	pos++
	a.ServiceData = data[pos:]
	return a, nil
}

// SegmentAck is a decoded BACnet-SegmentACK-PDU.
type SegmentAck struct {
	NegativeAck    bool
	Server         bool
	InvokeID       byte
	SequenceNumber byte
	WindowSize     byte
}

const (
	segmentAckBitNAK = 0x02
	segmentAckBitSrv = 0x01
)

// EncodeSegmentAck serializes a SegmentACK-PDU.
func EncodeSegmentAck(a SegmentAck) []byte {
	first := byte(TypeSegmentACK) << 4
	if a.NegativeAck {
		first |= segmentAckBitNAK
	}
	if a.Server {
		first |= segmentAckBitSrv
	}
	return []byte{first, a.InvokeID, a.SequenceNumber, a.WindowSize}
}

// DecodeSegmentAck parses a SegmentACK-PDU.
func DecodeSegmentAck(data []byte) (SegmentAck, error) {
	if len(data) != 4 {
		return SegmentAck{}, fmt.Errorf("apdu: segment ack must be 4 octets, got %d", len(data))
	}
	if PDUType(data[0]>>4) != TypeSegmentACK {
		return SegmentAck{}, fmt.Errorf("apdu: not a segment ack (type %#x)", data[0]>>4)
	}
	return SegmentAck{
		NegativeAck:    data[0]&segmentAckBitNAK != 0,
		Server:         data[0]&segmentAckBitSrv != 0,
		InvokeID:       data[1],
		SequenceNumber: data[2],
		WindowSize:     data[3],
	}, nil
}

// ErrorPDU is a decoded BACnet-Error-PDU: the original invoke-ID, the
// service choice being errored, and the standard class/code pair
// (reusing internal/bacnet/service's ServiceError taxonomy).
type ErrorPDU struct {
	InvokeID      byte
	ServiceChoice byte
	Class         uint32
	Code          uint32
}

// EncodeErrorPDU serializes a BACnet-Error-PDU. Class and Code are
// application-tagged enumerated values, per clause 18.
func EncodeErrorPDU(e ErrorPDU) []byte {
	var buf bytes.Buffer
	buf.WriteByte(byte(TypeError) << 4)
	buf.WriteByte(e.InvokeID)
	buf.WriteByte(e.ServiceChoice)
	bacapp.EncodeEnumerated(&buf, e.Class)
	bacapp.EncodeEnumerated(&buf, e.Code)
	return buf.Bytes()
}

// DecodeErrorPDU parses a BACnet-Error-PDU.
func DecodeErrorPDU(data []byte) (ErrorPDU, error) {
	if len(data) < 3 {
		return ErrorPDU{}, fmt.Errorf("apdu: error pdu too short")
	}
	if PDUType(data[0]>>4) != TypeError {
		return ErrorPDU{}, fmt.Errorf("apdu: not an error pdu (type %#x)", data[0]>>4)
	}
	e := ErrorPDU{InvokeID: data[1], ServiceChoice: data[2]}
	class, n, err := bacapp.DecodeEnumerated(data[3:])
	if err != nil {
		return ErrorPDU{}, fmt.Errorf("apdu: error-class: %w", err)
	}
	e.Class = class
	code, _, err := bacapp.DecodeEnumerated(data[3+n:])
	if err != nil {
		return ErrorPDU{}, fmt.Errorf("apdu: error-code: %w", err)
	}
	e.Code = code
	return e, nil
}

// RejectPDU is a decoded BACnet-Reject-PDU.
type RejectPDU struct {
	InvokeID byte
	Reason   RejectReason
}

// EncodeRejectPDU serializes a BACnet-Reject-PDU.
func EncodeRejectPDU(r RejectPDU) []byte {
	return []byte{byte(TypeReject) << 4, r.InvokeID, byte(r.Reason)}
}

// DecodeRejectPDU parses a BACnet-Reject-PDU.
func DecodeRejectPDU(data []byte) (RejectPDU, error) {
	if len(data) != 3 {
		return RejectPDU{}, fmt.Errorf("apdu: reject pdu must be 3 octets, got %d", len(data))
	}
	if PDUType(data[0]>>4) != TypeReject {
		return RejectPDU{}, fmt.Errorf("apdu: not a reject pdu (type %#x)", data[0]>>4)
	}
	return RejectPDU{InvokeID: data[1], Reason: RejectReason(data[2])}, nil
}

// AbortPDU is a decoded BACnet-Abort-PDU.
type AbortPDU struct {
	Server   bool
	InvokeID byte
	Reason   AbortReason
}

// EncodeAbortPDU serializes a BACnet-Abort-PDU.
func EncodeAbortPDU(a AbortPDU) []byte {
	first := byte(TypeAbort) << 4
	if a.Server {
		first |= 0x01
	}
	return []byte{first, a.InvokeID, byte(a.Reason)}
}

// DecodeAbortPDU parses a BACnet-Abort-PDU.
func DecodeAbortPDU(data []byte) (AbortPDU, error) {
	if len(data) != 3 {
		return AbortPDU{}, fmt.Errorf("apdu: abort pdu must be 3 octets, got %d", len(data))
	}
	if PDUType(data[0]>>4) != TypeAbort {
		return AbortPDU{}, fmt.Errorf("apdu: not an abort pdu (type %#x)", data[0]>>4)
	}
	return AbortPDU{Server: data[0]&0x01 != 0, InvokeID: data[1], Reason: AbortReason(data[2])}, nil
}

// DecodePDUType reports the PDU type octet of an APDU without
// otherwise decoding it, so a caller can route to the right Decode*
// function.
func DecodePDUType(data []byte) (PDUType, error) {
	if len(data) == 0 {
		return 0, fmt.Errorf("apdu: empty apdu")
	}
	return PDUType(data[0] >> 4), nil
}
