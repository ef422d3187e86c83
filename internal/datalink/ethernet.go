package datalink

import (
	"fmt"
	"time"

	"github.com/bacnet-stack/bacnet-core/internal/bacapp"
)

// 802.2 LLC header used to carry BACnet over Ethernet (ANSI/ASHRAE 135
// Annex J): DSAP and SSAP both identify the BACnet SAP, and the control
// octet selects Unnumbered Information (connectionless, best-effort).
const (
	llcDSAP    = 0x82
	llcSSAP    = 0x82
	llcControl = 0x03

	ethMacLen = 6
)

// EthernetConn is the external collaborator for the 802.3 medium: a
// raw socket bound to a BACnet-carrying EtherType, addressed by 6-byte
// hardware MACs. This package never opens the socket itself.
type EthernetConn interface {
	WriteFrame(destMAC [ethMacLen]byte, payload []byte) error
	ReadFrame() (srcMAC [ethMacLen]byte, payload []byte, err error)
}

// EthernetMedium implements Medium over an 802.2 LLC framed Ethernet
// segment.
type EthernetMedium struct {
	conn    EthernetConn
	localLL [ethMacLen]byte
}

// NewEthernetPort builds a Port backed by an 802.2 LLC Ethernet medium.
func NewEthernetPort(localMAC [ethMacLen]byte, conn EthernetConn) *Port {
	medium := &EthernetMedium{conn: conn, localLL: localMAC}
	return &Port{
		LocalAddress: bacapp.Address{Mac: append([]byte(nil), localMAC[:]...)},
		Medium:       medium,
	}
}

// Send implements Medium, wrapping payload in an 802.2 LLC header and
// writing it to the destination hardware address carried in dest.Mac.
// A broadcast destination uses the all-ones hardware address.
func (m *EthernetMedium) Send(dest bacapp.Address, payload []byte) error {
	var destMAC [ethMacLen]byte
	if dest.IsBroadcast() || len(dest.Mac) == 0 {
		for i := range destMAC {
			destMAC[i] = 0xFF
		}
	} else if len(dest.Mac) == ethMacLen {
		copy(destMAC[:], dest.Mac)
	} else {
		return fmt.Errorf("datalink: ethernet destination mac must be %d bytes, got %d", ethMacLen, len(dest.Mac))
	}
	return m.conn.WriteFrame(destMAC, EncodeLLCFrame(payload))
}

// Run reads frames from the medium until the connection returns an
// error, delivering each to port via deliver.
func (m *EthernetMedium) Run(port *Port) error {
	for {
		srcMAC, frame, err := m.conn.ReadFrame()
		if err != nil {
			return err
		}
		npdu, ok := DecodeLLCFrame(frame)
		if !ok {
			continue
		}
		port.deliver(bacapp.Address{Mac: append([]byte(nil), srcMAC[:]...)}, npdu, time.Now())
	}
}

// EncodeLLCFrame prepends the fixed 802.2 LLC header BACnet uses on
// Ethernet.
func EncodeLLCFrame(npdu []byte) []byte {
	out := make([]byte, 0, 3+len(npdu))
	out = append(out, llcDSAP, llcSSAP, llcControl)
	out = append(out, npdu...)
	return out
}

// DecodeLLCFrame strips the 802.2 LLC header, reporting false if the
// frame is too short or does not carry the BACnet SAP/control values.
func DecodeLLCFrame(frame []byte) ([]byte, bool) {
	if len(frame) < 3 {
		return nil, false
	}
	if frame[0] != llcDSAP || frame[1] != llcSSAP || frame[2] != llcControl {
		return nil, false
	}
	return frame[3:], true
}
