//go:build linux

// Package transport opens the OS-level handles the datalink mediums
// drive: a termios-configured serial port for MS/TP and a raw AF_PACKET
// socket for 802.2 Ethernet. Both talk directly to golang.org/x/sys/unix,
// the same low-level escape hatch pkg/wal/mmap.go reaches for when
// net/os have no higher-level primitive for the job.
package transport

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

var baudRates = map[int]uint32{
	9600:   unix.B9600,
	19200:  unix.B19200,
	38400:  unix.B38400,
	57600:  unix.B57600,
	76800:  unix.B38400, // 76800 has no POSIX termios constant on Linux; closest standard rate
	115200: unix.B115200,
}

// SerialPort is a termios-configured tty, usable directly as the
// io.ReadWriter internal/datalink.NewMSTPPort expects.
type SerialPort struct {
	f *os.File
}

// OpenSerial opens path as an 8N1 raw serial line at baudRate, the
// framing EIA-485 MS/TP transceivers use.
func OpenSerial(path string, baudRate int) (*SerialPort, error) {
	rate, ok := baudRates[baudRate]
	if !ok {
		return nil, fmt.Errorf("transport: unsupported baud rate %d", baudRate)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_NOCTTY, 0)
	if err != nil {
		return nil, fmt.Errorf("transport: open %s: %w", path, err)
	}

	if err := configureRawTermios(int(f.Fd()), rate); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("transport: configure %s: %w", path, err)
	}

	return &SerialPort{f: f}, nil
}

func configureRawTermios(fd int, rate uint32) error {
	t, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return err
	}

	t.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP |
		unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	t.Oflag &^= unix.OPOST
	t.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	t.Cflag &^= unix.CSIZE | unix.PARENB | unix.CBAUD
	t.Cflag |= unix.CS8 | unix.CREAD | unix.CLOCAL | rate
	t.Cc[unix.VMIN] = 1
	t.Cc[unix.VTIME] = 0

	return unix.IoctlSetTermios(fd, unix.TCSETS, t)
}

func (s *SerialPort) Read(p []byte) (int, error)  { return s.f.Read(p) }
func (s *SerialPort) Write(p []byte) (int, error) { return s.f.Write(p) }
func (s *SerialPort) Close() error                { return s.f.Close() }
