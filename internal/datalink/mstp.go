package datalink

import (
	"context"
	"io"
	"time"

	"github.com/bacnet-stack/bacnet-core/internal/bacapp"
	"github.com/bacnet-stack/bacnet-core/internal/logger"
	"github.com/bacnet-stack/bacnet-core/internal/mstp"
)

// MSTPMedium drives the MS/TP receive and master-node FSMs over a
// caller-supplied io.ReadWriter; rw is the collaborator boundary, so
// tests can drive the FSMs over an in-memory pipe while internal/transport
// supplies a termios-configured serial port for the daemon binary. It is
// not safe for concurrent use; Run owns the only goroutine that touches
// the FSMs.
type MSTPMedium struct {
	station byte
	rx      *mstp.ReceiveFSM
	tx      *mstp.MasterFSM
	rw      io.ReadWriter

	port *Port
}

// NewMSTPPort builds a Port backed by an MS/TP medium at the given
// station address, reading and writing frames over rw.
func NewMSTPPort(station byte, rw io.ReadWriter) *Port {
	medium := &MSTPMedium{station: station, tx: mstp.NewMasterFSM(station), rw: rw}
	port := &Port{
		LocalAddress: bacapp.Address{Mac: []byte{station}},
		Medium:       medium,
	}
	medium.port = port
	medium.rx = mstp.NewReceiveFSM(station, medium.onFrame)
	medium.tx.AnswerDataRequest = medium.answerDataRequest
	return port
}

// Send implements Medium by queuing an encoded NPDU+APDU payload for
// transmission the next time this station holds the token. A
// destination with an empty Mac is broadcast to all stations (0xFF).
func (m *MSTPMedium) Send(dest bacapp.Address, payload []byte) error {
	destMAC := byte(0xFF)
	if len(dest.Mac) > 0 {
		destMAC = dest.Mac[0]
	}
	frameType := mstp.FrameBACnetDataNotExpectingReply
	if !dest.IsBroadcast() {
		frameType = mstp.FrameBACnetDataExpectingReply
	}
	if !m.tx.Enqueue(mstp.Frame{Type: frameType, Dest: destMAC, Data: payload, ExpectsReply: frameType == mstp.FrameBACnetDataExpectingReply}) {
		return errSendQueueFull
	}
	return nil
}

func (m *MSTPMedium) onFrame(frameType mstp.FrameType, dest, src byte, data []byte) {
	for _, out := range m.tx.ReceiveFrame(frameType, src, data, time.Now()) {
		m.writeFrame(out)
	}
}

func (m *MSTPMedium) answerDataRequest(frameType mstp.FrameType, src byte, data []byte) *mstp.Frame {
	m.port.deliver(bacapp.Address{Mac: []byte{src}}, data, time.Now())
	return nil
}

func (m *MSTPMedium) writeFrame(f mstp.Frame) {
	wire := mstp.EncodeFrame(f.Type, f.Dest, m.station, f.Data)
	if _, err := m.rw.Write(wire); err != nil {
		logger.Warn("mstp: frame write failed", logger.Station(m.station), logger.FrameType(byte(f.Type)), logger.Err(err))
	}
}

// Run drives the medium until ctx is canceled: it reads bytes from the
// transport into the receive FSM and polls the master-node FSM on its
// slot timer, writing any frames the FSM produces.
func (m *MSTPMedium) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		buf := make([]byte, 256)
		for {
			n, err := m.rw.Read(buf)
			for i := 0; i < n; i++ {
				m.rx.Step(buf[i])
			}
			if err != nil {
				errCh <- err
				return
			}
		}
	}()

	ticker := time.NewTicker(m.tx.Tslot)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errCh:
			return err
		case now := <-ticker.C:
			for _, out := range m.tx.Poll(now) {
				m.writeFrame(out)
			}
		}
	}
}

var errSendQueueFull = &linkError{"datalink: mstp send queue full"}
