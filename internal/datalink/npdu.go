// Package datalink adapts the application layer to a physical transport
// Port replaces the original stack's
// module globals: DCC state and per-medium socket state live on a Port
// value passed explicitly to every entry point instead of being package
// globals, so a process can host more than one BACnet port.
package datalink

import (
	"encoding/binary"
	"fmt"

	"github.com/bacnet-stack/bacnet-core/internal/bacapp"
)

// Network layer control octet bits (ANSI/ASHRAE 135 clause 6.2.2).
const (
	npduBitNetworkLayerMessage = 0x80
	npduBitDestPresent         = 0x20
	npduBitSrcPresent          = 0x08
	npduBitExpectingReply      = 0x04
	npduPriorityMask           = 0x03
)

// Priority is the network priority carried in the NPDU control octet.
type Priority byte

const (
	PriorityNormal Priority = iota
	PriorityUrgent
	PriorityCriticalEquipment
	PriorityLifeSafety
)

// NPDUVersion is the only protocol version this stack understands.
const NPDUVersion = 1

// NPDU is a decoded network-layer header: a protocol
// version, a control octet, optional destination/source routing fields,
// and a hop count present only when a destination network is named.
type NPDU struct {
	Dest                 bacapp.Address
	Src                  bacapp.Address
	DataExpectingReply   bool
	NetworkLayerMessage  bool
	NetworkMessageType   byte
	VendorID             uint16
	Priority             Priority
	HopCount             byte
}

// EncodeNPDU appends the network-layer header for either an APDU
// payload or a network-layer message. HopCount is reset to 0xFF
// whenever Dest.Network != 0, per clause 6.2.2's "initialized to 0xFF".
func EncodeNPDU(n NPDU) []byte {
	out := make([]byte, 0, 24)
	out = append(out, NPDUVersion)

	control := byte(0)
	if n.NetworkLayerMessage {
		control |= npduBitNetworkLayerMessage
	}
	if n.Dest.Network != 0 {
		control |= npduBitDestPresent
	}
	if n.Src.Network != 0 {
		control |= npduBitSrcPresent
	}
	if n.DataExpectingReply {
		control |= npduBitExpectingReply
	}
	control |= byte(n.Priority) & npduPriorityMask
	out = append(out, control)

	if n.Dest.Network != 0 {
		var netBuf [2]byte
		binary.BigEndian.PutUint16(netBuf[:], n.Dest.Network)
		out = append(out, netBuf[:]...)
		out = append(out, byte(len(n.Dest.Mac)))
		out = append(out, n.Dest.Mac...)
	}
	if n.Src.Network != 0 {
		var netBuf [2]byte
		binary.BigEndian.PutUint16(netBuf[:], n.Src.Network)
		out = append(out, netBuf[:]...)
		out = append(out, byte(len(n.Src.Mac)))
		out = append(out, n.Src.Mac...)
	}
	if n.Dest.Network != 0 {
		out = append(out, 0xFF)
	}
	if n.NetworkLayerMessage {
		out = append(out, n.NetworkMessageType)
		if n.NetworkMessageType >= 0x80 {
			var vendorBuf [2]byte
			binary.BigEndian.PutUint16(vendorBuf[:], n.VendorID)
			out = append(out, vendorBuf[:]...)
		}
	}
	return out
}

// DecodeNPDU parses a network-layer header and returns the number of
// bytes consumed. The remainder of data is the APDU or network-layer
// message payload.
func DecodeNPDU(data []byte) (NPDU, int, error) {
	if len(data) < 2 {
		return NPDU{}, 0, fmt.Errorf("datalink: npdu too short")
	}
	if data[0] != NPDUVersion {
		return NPDU{}, 0, fmt.Errorf("datalink: unsupported npdu version %d", data[0])
	}
	control := data[1]
	n := NPDU{
		NetworkLayerMessage: control&npduBitNetworkLayerMessage != 0,
		DataExpectingReply:  control&npduBitExpectingReply != 0,
		Priority:            Priority(control & npduPriorityMask),
	}
	offset := 2

	if control&npduBitDestPresent != 0 {
		if len(data) < offset+3 {
			return NPDU{}, 0, fmt.Errorf("datalink: npdu truncated destination network")
		}
		n.Dest.Network = binary.BigEndian.Uint16(data[offset:])
		offset += 2
		dlen := int(data[offset])
		offset++
		if len(data) < offset+dlen {
			return NPDU{}, 0, fmt.Errorf("datalink: npdu truncated destination address")
		}
		if dlen > 0 {
			n.Dest.Mac = append([]byte(nil), data[offset:offset+dlen]...)
		}
		offset += dlen
	}
	if control&npduBitSrcPresent != 0 {
		if len(data) < offset+3 {
			return NPDU{}, 0, fmt.Errorf("datalink: npdu truncated source network")
		}
		n.Src.Network = binary.BigEndian.Uint16(data[offset:])
		offset += 2
		slen := int(data[offset])
		offset++
		if len(data) < offset+slen {
			return NPDU{}, 0, fmt.Errorf("datalink: npdu truncated source address")
		}
		if slen > 0 {
			n.Src.Mac = append([]byte(nil), data[offset:offset+slen]...)
		}
		offset += slen
	}
	if control&npduBitDestPresent != 0 {
		if len(data) < offset+1 {
			return NPDU{}, 0, fmt.Errorf("datalink: npdu missing hop count")
		}
		n.HopCount = data[offset]
		offset++
	}
	if n.NetworkLayerMessage {
		if len(data) < offset+1 {
			return NPDU{}, 0, fmt.Errorf("datalink: npdu missing network message type")
		}
		n.NetworkMessageType = data[offset]
		offset++
		if n.NetworkMessageType >= 0x80 {
			if len(data) < offset+2 {
				return NPDU{}, 0, fmt.Errorf("datalink: npdu truncated vendor id")
			}
			n.VendorID = binary.BigEndian.Uint16(data[offset:])
			offset += 2
		}
	}
	return n, offset, nil
}

// EncodeMaxSegsMaxAPDU packs the max-segments-accepted / max-APDU-length
// octet used in Confirmed-Request PDUs (ANSI/ASHRAE 135 clause 20.1.2.4).
func EncodeMaxSegsMaxAPDU(maxSegs, maxAPDU int) byte {
	var octet byte
	switch {
	case maxSegs < 2:
		octet = 0x00
	case maxSegs < 4:
		octet = 0x10
	case maxSegs < 8:
		octet = 0x20
	case maxSegs < 16:
		octet = 0x30
	case maxSegs < 32:
		octet = 0x40
	case maxSegs < 64:
		octet = 0x50
	case maxSegs == 64:
		octet = 0x60
	default:
		octet = 0x70
	}
	switch {
	case maxAPDU <= 50:
		octet |= 0x00
	case maxAPDU <= 128:
		octet |= 0x01
	case maxAPDU <= 206:
		octet |= 0x02
	case maxAPDU <= 480:
		octet |= 0x03
	case maxAPDU <= 1024:
		octet |= 0x04
	default:
		octet |= 0x05
	}
	return octet
}
