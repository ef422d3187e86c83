package mstp

import "github.com/bacnet-stack/bacnet-core/internal/logger"

// ReceiveState enumerates the receive-frame FSM's states.
type ReceiveState int

const (
	StateIdle ReceiveState = iota
	StatePreamble
	StateHeader
	StateHeaderCRC
	StateData
	StateDataCRC
	StateSkipping
)

func (s ReceiveState) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StatePreamble:
		return "Preamble"
	case StateHeader:
		return "Header"
	case StateHeaderCRC:
		return "HeaderCRC"
	case StateData:
		return "Data"
	case StateDataCRC:
		return "DataCRC"
	case StateSkipping:
		return "Skipping"
	default:
		return "Unknown"
	}
}

// FrameType identifies an MS/TP frame's FrameType octet.
type FrameType byte

const (
	FrameToken                       FrameType = 0
	FramePollForMaster               FrameType = 1
	FrameReplyToPollForMaster        FrameType = 2
	FrameTestRequest                 FrameType = 3
	FrameTestResponse                FrameType = 4
	FrameBACnetDataExpectingReply    FrameType = 5
	FrameBACnetDataNotExpectingReply FrameType = 6
	FrameReplyPostponed              FrameType = 7
)

const (
	preambleByte1 = 0x55
	preambleByte2 = 0xFF
	maxDataLength = 501 // Max_APDU supported by MS/TP per the standard

	// silenceThresholdOctets bounds a Skipping run before the FSM gives up
	// and returns to Idle; the standard expresses this in 35..75 bit times,
	// approximated here in whole octets for a byte-stepped FSM.
	silenceThresholdOctets = 10
)

// FrameHandler is invoked once per successfully validated frame.
type FrameHandler func(frameType FrameType, dest, src byte, data []byte)

// ReceiveFSM implements the MS/TP receive-frame state machine. It is driven one octet at a time via Step and is not safe for
// concurrent use; the owning port must serialize calls to Step.
type ReceiveFSM struct {
	State ReceiveState

	ThisStation byte
	OnFrame     FrameHandler

	header       [5]byte
	headerIdx    int
	frameType    FrameType
	dest, src    byte
	length       int
	data         []byte
	dataIdx      int
	skipCount    int
	pendingCRCLo byte

	ReceiveValidFrameCount         uint64
	ReceiveInvalidFrameCount       uint64
	ReceiveValidFrameNotForUsCount uint64
}

// NewReceiveFSM creates a ReceiveFSM for a station with the given MAC
// address. onFrame is called synchronously from Step whenever a frame
// addressed to thisStation (or broadcast) validates.
func NewReceiveFSM(thisStation byte, onFrame FrameHandler) *ReceiveFSM {
	return &ReceiveFSM{
		State:       StateIdle,
		ThisStation: thisStation,
		OnFrame:     onFrame,
		data:        make([]byte, 0, maxDataLength),
	}
}

// Step feeds one received octet through the FSM.
func (f *ReceiveFSM) Step(b byte) {
	switch f.State {
	case StateIdle:
		if b == preambleByte1 {
			f.State = StatePreamble
		}
	case StatePreamble:
		switch b {
		case preambleByte2:
			f.State = StateHeader
			f.headerIdx = 0
		case preambleByte1:
			// stay in Preamble; a repeated 0x55 is not an error
		default:
			f.State = StateIdle
		}
	case StateHeader:
		f.header[f.headerIdx] = b
		f.headerIdx++
		if f.headerIdx == len(f.header) {
			f.State = StateHeaderCRC
		}
	case StateHeaderCRC:
		f.handleHeaderCRC(b)
	case StateData:
		f.data = append(f.data, b)
		f.dataIdx++
		if f.dataIdx == f.length {
			f.State = StateDataCRC
			f.dataIdx = 0
		}
	case StateDataCRC:
		f.handleDataCRC(b)
	case StateSkipping:
		f.skipCount++
		if f.skipCount >= silenceThresholdOctets {
			f.State = StateIdle
			f.skipCount = 0
		}
	}
}

func (f *ReceiveFSM) handleHeaderCRC(received byte) {
	if !VerifyHeaderCRC(f.header, received) {
		f.ReceiveInvalidFrameCount++
		logger.Debug("mstp: header CRC failed", "header", f.header)
		f.State = StateIdle
		return
	}

	f.frameType = FrameType(f.header[0])
	f.dest = f.header[1]
	f.src = f.header[2]
	f.length = int(f.header[3])<<8 | int(f.header[4])

	if f.length == 0 {
		f.completeFrame(nil)
		f.State = StateIdle
		return
	}
	if f.length > maxDataLength {
		logger.Debug("mstp: frame length exceeds buffer, skipping", "length", f.length)
		f.toSkipping()
		return
	}

	f.data = f.data[:0]
	f.dataIdx = 0
	f.State = StateData
}

func (f *ReceiveFSM) handleDataCRC(received byte) {
	f.dataIdx++
	if f.dataIdx == 1 {
		f.pendingCRCLo = received
		return
	}

	if !VerifyDataCRC(f.data, f.pendingCRCLo, received) {
		f.ReceiveInvalidFrameCount++
		logger.Debug("mstp: data CRC failed", "length", len(f.data))
		f.State = StateIdle
		return
	}

	f.completeFrame(f.data)
	f.State = StateIdle
}

func (f *ReceiveFSM) toSkipping() {
	f.State = StateSkipping
	f.skipCount = 0
}

func (f *ReceiveFSM) completeFrame(data []byte) {
	f.ReceiveValidFrameCount++
	if f.dest != f.ThisStation && f.dest != 0xFF {
		f.ReceiveValidFrameNotForUsCount++
		return
	}
	if f.OnFrame != nil {
		f.OnFrame(f.frameType, f.dest, f.src, data)
	}
}
