package service

import (
	"bytes"

	"github.com/bacnet-stack/bacnet-core/internal/bacapp"
)

// Segmentation is the standard's BACnetSegmentation enumeration,
// carried in I-Am.
type Segmentation uint32

const (
	SegmentationBoth Segmentation = iota
	SegmentationTransmit
	SegmentationReceive
	SegmentationNone
)

// WhoIsRequest is BACnetWhoIsRequest: optional device-instance limits.
// Absence of both means every device must respond.
type WhoIsRequest struct {
	LowLimit  *uint32
	HighLimit *uint32
}

// EncodeWhoIsRequest appends the unconfirmed service's parameter
// sequence. Either both limits are present or neither is.
func EncodeWhoIsRequest(buf *bytes.Buffer, r WhoIsRequest) {
	if r.LowLimit != nil && r.HighLimit != nil {
		bacapp.EncodeContextUnsigned(buf, 0, uint64(*r.LowLimit))
		bacapp.EncodeContextUnsigned(buf, 1, uint64(*r.HighLimit))
	}
}

// DecodeWhoIsRequest decodes the parameter sequence.
func DecodeWhoIsRequest(data []byte) (WhoIsRequest, int, error) {
	var r WhoIsRequest
	if len(data) == 0 {
		return r, 0, nil
	}
	low, n, err := bacapp.DecodeContextUnsigned(data, 0)
	if err != nil {
		return r, 0, wrapMalformed("deviceInstanceRangeLowLimit", err)
	}
	lowV := uint32(low)
	r.LowLimit = &lowV
	pos := n

	high, n, err := bacapp.DecodeContextUnsigned(data[pos:], 1)
	if err != nil {
		return r, 0, wrapMalformed("deviceInstanceRangeHighLimit", err)
	}
	highV := uint32(high)
	r.HighLimit = &highV
	pos += n
	return r, pos, nil
}

// Matches reports whether instance falls within the request's limits
// (or always true when the request carries no limits).
func (r WhoIsRequest) Matches(instance uint32) bool {
	if r.LowLimit == nil || r.HighLimit == nil {
		return true
	}
	return instance >= *r.LowLimit && instance <= *r.HighLimit
}

// IAmRequest is BACnetIAmRequest (unconfirmed).
type IAmRequest struct {
	Device       bacapp.ObjectID
	MaxAPDU      uint32
	Segmentation Segmentation
	VendorID     uint16
}

// EncodeIAmRequest appends the parameter sequence. Every field is
// application-tagged (I-Am carries no context tags).
func EncodeIAmRequest(buf *bytes.Buffer, r IAmRequest) {
	bacapp.EncodeObjectID(buf, r.Device)
	bacapp.EncodeUnsigned(buf, uint64(r.MaxAPDU))
	bacapp.EncodeEnumerated(buf, uint32(r.Segmentation))
	bacapp.EncodeUnsigned(buf, uint64(r.VendorID))
}

// DecodeIAmRequest decodes the parameter sequence.
func DecodeIAmRequest(data []byte) (IAmRequest, int, error) {
	var r IAmRequest

	dev, n, err := bacapp.DecodeObjectID(data)
	if err != nil {
		return r, 0, wrapMalformed("iAmDeviceIdentifier", err)
	}
	r.Device = dev
	pos := n

	maxAPDU, n, err := bacapp.DecodeUnsigned(data[pos:])
	if err != nil {
		return r, 0, wrapMalformed("maxAPDULengthAccepted", err)
	}
	r.MaxAPDU = uint32(maxAPDU)
	pos += n

	seg, n, err := bacapp.DecodeEnumerated(data[pos:])
	if err != nil {
		return r, 0, wrapMalformed("segmentationSupported", err)
	}
	r.Segmentation = Segmentation(seg)
	pos += n

	vendor, n, err := bacapp.DecodeUnsigned(data[pos:])
	if err != nil {
		return r, 0, wrapMalformed("vendorID", err)
	}
	r.VendorID = uint16(vendor)
	pos += n

	return r, pos, nil
}
