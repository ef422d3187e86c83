package datalink

import (
	"encoding/binary"
	"fmt"
	"net"
	"time"

	"github.com/bacnet-stack/bacnet-core/internal/bacapp"
	"github.com/bacnet-stack/bacnet-core/internal/logger"
)

// BVLL type/function octets (ANSI/ASHRAE 135 Annex J.2).
const (
	bvllTypeBACnetIP = 0x81

	bvllFuncOriginalUnicastNPDU   = 0x0A
	bvllFuncOriginalBroadcastNPDU = 0x0B
)

const bvllHeaderLen = 4

// EncodeBVLL wraps an NPDU in a minimal BACnet/IP Virtual Link Layer
// header: type, function, and a 2-octet big-endian total length.
func EncodeBVLL(function byte, npdu []byte) []byte {
	out := make([]byte, bvllHeaderLen, bvllHeaderLen+len(npdu))
	out[0] = bvllTypeBACnetIP
	out[1] = function
	binary.BigEndian.PutUint16(out[2:], uint16(len(out)+len(npdu)))
	return append(out, npdu...)
}

// DecodeBVLL validates and strips the BVLL header, returning the
// function octet and the enclosed NPDU.
func DecodeBVLL(frame []byte) (function byte, npdu []byte, err error) {
	if len(frame) < bvllHeaderLen {
		return 0, nil, fmt.Errorf("datalink: bvll frame too short")
	}
	if frame[0] != bvllTypeBACnetIP {
		return 0, nil, fmt.Errorf("datalink: unsupported bvll type %#x", frame[0])
	}
	declared := binary.BigEndian.Uint16(frame[2:4])
	if int(declared) != len(frame) {
		return 0, nil, fmt.Errorf("datalink: bvll length %d does not match frame length %d", declared, len(frame))
	}
	return frame[1], frame[4:], nil
}

// BIPMedium implements Medium over BACnet/IP using a caller-supplied
// net.PacketConn (typically a UDP socket bound to port 47808).
type BIPMedium struct {
	conn          net.PacketConn
	broadcastAddr net.Addr
}

// NewBIPPort builds a Port backed by a BACnet/IP medium. broadcastAddr
// is the subnet's directed-broadcast address used for global
// broadcasts.
func NewBIPPort(localAddress bacapp.Address, conn net.PacketConn, broadcastAddr net.Addr) *Port {
	medium := &BIPMedium{conn: conn, broadcastAddr: broadcastAddr}
	return &Port{LocalAddress: localAddress, Medium: medium}
}

// Send implements Medium. dest.Mac, when present, carries the
// "ip:port" string of a unicast peer; an empty/broadcast destination
// uses the configured subnet broadcast address.
func (m *BIPMedium) Send(dest bacapp.Address, payload []byte) error {
	if dest.IsBroadcast() {
		frame := EncodeBVLL(bvllFuncOriginalBroadcastNPDU, payload)
		_, err := m.conn.WriteTo(frame, m.broadcastAddr)
		return err
	}
	addr, err := net.ResolveUDPAddr("udp", string(dest.Mac))
	if err != nil {
		return fmt.Errorf("datalink: resolve bip peer: %w", err)
	}
	frame := EncodeBVLL(bvllFuncOriginalUnicastNPDU, payload)
	_, err = m.conn.WriteTo(frame, addr)
	return err
}

// Run reads datagrams from the medium until the connection is closed,
// decoding each as a BVLL frame and delivering its NPDU to port.
func (m *BIPMedium) Run(port *Port) error {
	buf := make([]byte, 1500)
	for {
		n, addr, err := m.conn.ReadFrom(buf)
		if err != nil {
			return err
		}
		function, npdu, err := DecodeBVLL(buf[:n])
		if err != nil {
			logger.Debug("bip: dropping malformed bvll frame", "error", err)
			continue
		}
		if function != bvllFuncOriginalUnicastNPDU && function != bvllFuncOriginalBroadcastNPDU {
			continue
		}
		port.deliver(bacapp.Address{Mac: []byte(addr.String())}, npdu, time.Now())
	}
}
