package mstp

import (
	"time"

	"github.com/bacnet-stack/bacnet-core/internal/logger"
	"github.com/bacnet-stack/bacnet-core/internal/ring"
)

// MasterState enumerates the master-node FSM's states.
type MasterState int

const (
	MasterIdle MasterState = iota
	MasterUseToken
	MasterWaitForReply
	MasterDoneWithToken
	MasterPassToken
	MasterNoToken
	MasterPollForMaster
	MasterAnswerDataRequest
)

func (s MasterState) String() string {
	switch s {
	case MasterIdle:
		return "Idle"
	case MasterUseToken:
		return "UseToken"
	case MasterWaitForReply:
		return "WaitForReply"
	case MasterDoneWithToken:
		return "DoneWithToken"
	case MasterPassToken:
		return "PassToken"
	case MasterNoToken:
		return "NoToken"
	case MasterPollForMaster:
		return "PollForMaster"
	case MasterAnswerDataRequest:
		return "AnswerDataRequest"
	default:
		return "Unknown"
	}
}

// Frame is an outbound MS/TP frame produced by the master-node FSM for
// the port to transmit on the physical medium.
type Frame struct {
	Type         FrameType
	Dest         byte
	Data         []byte
	ExpectsReply bool
}

// Default master-node timing and retry parameters, per the standard.
const (
	DefaultTnoToken      = 500 * time.Millisecond
	DefaultTreplyTimeout = 255 * time.Millisecond
	DefaultTusageTimeout = 20 * time.Millisecond
	DefaultTslot         = 10 * time.Millisecond
	DefaultNpoll         = 50
	DefaultMaxInfoFrames = 1
	DefaultMaxMaster     = 127
)

// MasterFSM implements the MS/TP master-node token-passing FSM. It is driven by ReceiveFrame (fed from a ReceiveFSM's
// FrameHandler) and Poll (called periodically by the owning port's event
// loop); neither is safe for concurrent use against the same FSM.
type MasterFSM struct {
	State MasterState

	ThisStation   byte
	NextStation   byte
	PollStation   byte
	MaxMaster     byte
	MaxInfoFrames int
	Npoll         int

	TnoToken      time.Duration
	TreplyTimeout time.Duration
	TusageTimeout time.Duration
	Tslot         time.Duration

	SoleMaster bool

	// AnswerDataRequest, when set, is invoked for BACnet-Data-Expecting-Reply
	// frames addressed to this station. It may return a reply frame to
	// transmit immediately (the AnswerDataRequest state).
	AnswerDataRequest func(frameType FrameType, src byte, data []byte) *Frame

	SendQueue *ring.Ring[Frame]

	framesSent   int
	retryCount   int
	pollCount    int
	deadline     time.Time
	hasDeadline  bool
	pendingReply Frame

	TransmitFrameCount             uint64
	ReceiveValidFrameCount         uint64
	ReceiveInvalidFrameCount       uint64
	ReceiveValidFrameNotForUsCount uint64
	TransmitPDUCount               uint64
	ReceivePDUCount                uint64
}

// NewMasterFSM constructs a MasterFSM for thisStation, initially
// believing the next station in the ring is itself (a sole-master
// assumption broken as soon as a Poll-For-Master response is seen).
func NewMasterFSM(thisStation byte) *MasterFSM {
	return &MasterFSM{
		State:         MasterIdle,
		ThisStation:   thisStation,
		NextStation:   thisStation,
		PollStation:   thisStation,
		MaxMaster:     DefaultMaxMaster,
		MaxInfoFrames: DefaultMaxInfoFrames,
		Npoll:         DefaultNpoll,
		TnoToken:      DefaultTnoToken,
		TreplyTimeout: DefaultTreplyTimeout,
		TusageTimeout: DefaultTusageTimeout,
		Tslot:         DefaultTslot,
		SendQueue:     ring.NewRing[Frame](16),
	}
}

// Enqueue queues a data frame to transmit the next time this station
// holds the token. Reports false if the send queue is full.
func (m *MasterFSM) Enqueue(f Frame) bool {
	return m.SendQueue.Put(f)
}

func (m *MasterFSM) armTimer(now time.Time, d time.Duration) {
	m.deadline = now.Add(d)
	m.hasDeadline = true
}

func (m *MasterFSM) timerExpired(now time.Time) bool {
	return m.hasDeadline && !now.Before(m.deadline)
}

func (m *MasterFSM) clearTimer() {
	m.hasDeadline = false
}

// ReceiveFrame processes one frame delivered by the receive FSM. It
// returns frames the caller must transmit as a result.
func (m *MasterFSM) ReceiveFrame(frameType FrameType, src byte, data []byte, now time.Time) []Frame {
	m.ReceiveValidFrameCount++

	switch frameType {
	case FrameToken:
		return m.handleToken(src, now)
	case FramePollForMaster:
		return m.handlePollForMaster(src, now)
	case FrameReplyToPollForMaster:
		return m.handleReplyToPollForMaster(src, now)
	case FrameBACnetDataExpectingReply, FrameBACnetDataNotExpectingReply:
		if m.State == MasterWaitForReply && src == m.pendingReply.Dest {
			m.clearTimer()
			m.State = MasterDoneWithToken
			return nil
		}
		return m.handleDataRequest(frameType, src, data)
	case FrameReplyPostponed:
		if m.State == MasterWaitForReply {
			m.clearTimer()
			m.State = MasterDoneWithToken
		}
		return nil
	default:
		return nil
	}
}

func (m *MasterFSM) handleToken(src byte, now time.Time) []Frame {
	if m.State != MasterIdle && m.State != MasterNoToken {
		return nil
	}
	m.clearTimer()
	m.pollCount++
	m.framesSent = 0
	m.retryCount = 0

	if m.SendQueue.Empty() {
		return m.passToken(now)
	}

	m.State = MasterUseToken
	return m.useToken(now)
}

func (m *MasterFSM) useToken(now time.Time) []Frame {
	var out []Frame
	for m.framesSent < m.MaxInfoFrames {
		f, ok := m.SendQueue.Get()
		if !ok {
			break
		}
		m.framesSent++
		m.TransmitFrameCount++
		m.TransmitPDUCount++
		out = append(out, f)

		if f.ExpectsReply {
			m.pendingReply = f
			m.State = MasterWaitForReply
			m.armTimer(now, m.TreplyTimeout)
			return out
		}
	}

	m.State = MasterDoneWithToken
	out = append(out, m.passToken(now)...)
	return out
}

func (m *MasterFSM) passToken(now time.Time) []Frame {
	m.State = MasterPassToken
	m.armTimer(now, m.TusageTimeout)
	m.TransmitFrameCount++
	return []Frame{{Type: FrameToken, Dest: m.NextStation}}
}

// Poll advances timers; the caller invokes it on every event-loop tick
// or whenever a timer
// deadline may have passed in the multi-threaded model.
func (m *MasterFSM) Poll(now time.Time) []Frame {
	switch m.State {
	case MasterWaitForReply:
		if m.timerExpired(now) {
			m.clearTimer()
			m.State = MasterDoneWithToken
			out := []Frame{{Type: FrameReplyPostponed, Dest: m.pendingReply.Dest}}
			out = append(out, m.passToken(now)...)
			return out
		}
	case MasterPassToken:
		if m.timerExpired(now) {
			return m.passTokenTimedOut(now)
		}
	case MasterIdle:
		if !m.hasDeadline {
			silence := m.TnoToken + time.Duration(m.ThisStation)*m.Tslot
			m.armTimer(now, silence)
		} else if m.timerExpired(now) {
			m.clearTimer()
			return m.startPollForMaster(now)
		}
	case MasterPollForMaster:
		if m.timerExpired(now) {
			return m.advancePollForMaster(now)
		}
	}
	return nil
}

func (m *MasterFSM) passTokenTimedOut(now time.Time) []Frame {
	m.retryCount++
	if m.retryCount < 2 {
		m.armTimer(now, m.TusageTimeout)
		m.TransmitFrameCount++
		return []Frame{{Type: FrameToken, Dest: m.NextStation}}
	}
	logger.Debug("mstp: next station unresponsive, starting poll-for-master",
		"next_station", m.NextStation)
	return m.startPollForMaster(now)
}

func (m *MasterFSM) startPollForMaster(now time.Time) []Frame {
	if m.SoleMaster && m.pollCount < m.Npoll {
		return m.passToken(now)
	}

	m.State = MasterPollForMaster
	m.PollStation = nextAddress(m.ThisStation, m.MaxMaster)
	m.armTimer(now, m.TusageTimeout)
	m.TransmitFrameCount++
	return []Frame{{Type: FramePollForMaster, Dest: m.PollStation}}
}

func (m *MasterFSM) advancePollForMaster(now time.Time) []Frame {
	if m.PollStation == m.ThisStation {
		// Full cycle with no replies: we are alone on the segment.
		m.SoleMaster = true
		m.NextStation = m.ThisStation
		m.pollCount = 0
		return m.passToken(now)
	}

	next := nextAddress(m.PollStation, m.MaxMaster)
	if next == m.ThisStation {
		m.SoleMaster = true
		m.NextStation = m.ThisStation
		m.pollCount = 0
		return m.passToken(now)
	}

	m.PollStation = next
	m.armTimer(now, m.TusageTimeout)
	m.TransmitFrameCount++
	return []Frame{{Type: FramePollForMaster, Dest: m.PollStation}}
}

func (m *MasterFSM) handlePollForMaster(src byte, now time.Time) []Frame {
	m.TransmitFrameCount++
	return []Frame{{Type: FrameReplyToPollForMaster, Dest: src}}
}

func (m *MasterFSM) handleReplyToPollForMaster(src byte, now time.Time) []Frame {
	if m.State != MasterPollForMaster {
		return nil
	}
	m.clearTimer()
	m.SoleMaster = false
	m.NextStation = src
	m.pollCount = 0
	return m.passToken(now)
}

func (m *MasterFSM) handleDataRequest(frameType FrameType, src byte, data []byte) []Frame {
	m.State = MasterAnswerDataRequest
	reply := m.AnswerDataRequest
	m.State = MasterIdle
	if reply == nil {
		return nil
	}
	resp := reply(frameType, src, data)
	if resp == nil {
		return nil
	}
	m.TransmitFrameCount++
	return []Frame{*resp}
}

// nextAddress returns the next candidate master address in round-robin
// order over 0..maxMaster.
func nextAddress(addr, maxMaster byte) byte {
	if addr >= maxMaster {
		return 0
	}
	return addr + 1
}
