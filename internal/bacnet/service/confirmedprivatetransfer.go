package service

import (
	"bytes"

	"github.com/bacnet-stack/bacnet-core/internal/bacapp"
)

// ConfirmedPrivateTransferRequest is
// BACnetConfirmedPrivateTransferRequest: a vendor-scoped service
// number plus an opaque, vendor-defined parameter block.
// The core never interprets ServiceParameters; it only transports them
// to the object model's private-transfer handler.
type ConfirmedPrivateTransferRequest struct {
	VendorID        uint32
	ServiceNumber   uint32
	ServiceParameters []byte
}

// EncodeConfirmedPrivateTransferRequest appends the parameter sequence.
func EncodeConfirmedPrivateTransferRequest(buf *bytes.Buffer, r ConfirmedPrivateTransferRequest) {
	bacapp.EncodeContextUnsigned(buf, 0, uint64(r.VendorID))
	bacapp.EncodeContextUnsigned(buf, 1, uint64(r.ServiceNumber))
	if r.ServiceParameters != nil {
		bacapp.EncodeOpeningTag(buf, 2)
		buf.Write(r.ServiceParameters)
		bacapp.EncodeClosingTag(buf, 2)
	}
}

// DecodeConfirmedPrivateTransferRequest decodes the parameter sequence.
// The opaque parameter block is bounded by its enclosing opening/closing
// [2] tags; its contents are copied verbatim and not interpreted here.
func DecodeConfirmedPrivateTransferRequest(data []byte) (ConfirmedPrivateTransferRequest, int, error) {
	var r ConfirmedPrivateTransferRequest

	vendor, n, err := bacapp.DecodeContextUnsigned(data, 0)
	if err != nil {
		return r, 0, wrapMalformed("vendorID", err)
	}
	r.VendorID = uint32(vendor)
	pos := n

	svc, n, err := bacapp.DecodeContextUnsigned(data[pos:], 1)
	if err != nil {
		return r, 0, wrapMalformed("serviceNumber", err)
	}
	r.ServiceNumber = uint32(svc)
	pos += n

	if pos < len(data) {
		openN, err := bacapp.DecodeConstructedOpening(data[pos:], 2)
		if err != nil {
			return r, 0, wrapMalformed("serviceParameters opening", err)
		}
		start := pos + openN
		depth := 1
		body := start
		for depth > 0 {
			tag, tn, err := bacapp.DecodeTag(data[body:])
			if err != nil {
				return r, 0, wrapMalformed("serviceParameters", err)
			}
			switch {
			case tag.Class == bacapp.ClassContext && tag.Opening && tag.Number == 2:
				depth++
				body += tn
			case tag.Class == bacapp.ClassContext && tag.Closing && tag.Number == 2:
				depth--
				if depth == 0 {
					r.ServiceParameters = append([]byte(nil), data[start:body]...)
					body += tn
				} else {
					body += tn
				}
			default:
				n, err := bacapp.SkipValue(data[body:])
				if err != nil {
					return r, 0, wrapMalformed("serviceParameters element", err)
				}
				body += n
			}
		}
		pos = body
	}
	return r, pos, nil
}

// ConfirmedPrivateTransferAck mirrors the request's opaque
// result-block shape.
type ConfirmedPrivateTransferAck struct {
	VendorID          uint32
	ServiceNumber     uint32
	ResultBlock       []byte
}

// EncodeConfirmedPrivateTransferAck appends the parameter sequence.
func EncodeConfirmedPrivateTransferAck(buf *bytes.Buffer, a ConfirmedPrivateTransferAck) {
	bacapp.EncodeContextUnsigned(buf, 0, uint64(a.VendorID))
	bacapp.EncodeContextUnsigned(buf, 1, uint64(a.ServiceNumber))
	if a.ResultBlock != nil {
		bacapp.EncodeOpeningTag(buf, 2)
		buf.Write(a.ResultBlock)
		bacapp.EncodeClosingTag(buf, 2)
	}
}
