//go:build linux

package transport

import (
	"encoding/binary"
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

const ethPAll = 0x0003 // ETH_P_ALL, network byte order handled by htons below

// RawEthernet is an AF_PACKET socket bound to a single interface,
// implementing internal/datalink.EthernetConn directly against the
// kernel rather than a packet-capture library, since nothing in the
// example pack vendors one for plain send/receive.
type RawEthernet struct {
	fd        int
	ifaceName string
	mac       [6]byte
}

// OpenRawEthernet binds a raw packet socket to iface, ready to hand to
// internal/datalink.NewEthernetPort.
func OpenRawEthernet(iface string) (*RawEthernet, error) {
	ifi, err := net.InterfaceByName(iface)
	if err != nil {
		return nil, fmt.Errorf("transport: lookup interface %s: %w", iface, err)
	}

	fd, err := unix.Socket(unix.AF_PACKET, unix.SOCK_RAW, htons(ethPAll))
	if err != nil {
		return nil, fmt.Errorf("transport: open raw socket: %w", err)
	}

	addr := unix.SockaddrLinklayer{
		Protocol: htons(ethPAll),
		Ifindex:  ifi.Index,
	}
	if err := unix.Bind(fd, &addr); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("transport: bind to %s: %w", iface, err)
	}

	var mac [6]byte
	copy(mac[:], ifi.HardwareAddr)
	return &RawEthernet{fd: fd, ifaceName: iface, mac: mac}, nil
}

// LocalMAC returns the interface's hardware address.
func (r *RawEthernet) LocalMAC() [6]byte { return r.mac }

// WriteFrame implements internal/datalink.EthernetConn.
func (r *RawEthernet) WriteFrame(destMAC [6]byte, payload []byte) error {
	frame := make([]byte, 0, 12+len(payload))
	frame = append(frame, destMAC[:]...)
	frame = append(frame, r.mac[:]...)
	frame = binary.BigEndian.AppendUint16(frame, uint16(len(payload)))
	frame = append(frame, payload...)
	_, err := unix.Write(r.fd, frame)
	return err
}

// ReadFrame implements internal/datalink.EthernetConn.
func (r *RawEthernet) ReadFrame() (srcMAC [6]byte, payload []byte, err error) {
	buf := make([]byte, 1514)
	n, err := unix.Read(r.fd, buf)
	if err != nil {
		return srcMAC, nil, err
	}
	if n < 14 {
		return srcMAC, nil, fmt.Errorf("transport: short ethernet frame (%d bytes)", n)
	}
	copy(srcMAC[:], buf[6:12])
	length := binary.BigEndian.Uint16(buf[12:14])
	end := 14 + int(length)
	if end > n {
		end = n
	}
	return srcMAC, buf[14:end], nil
}

// Close releases the underlying socket.
func (r *RawEthernet) Close() error { return unix.Close(r.fd) }

func htons(v uint16) uint16 {
	return (v << 8) | (v >> 8)
}
