package tsm

import (
	"fmt"
	"time"

	"github.com/bacnet-stack/bacnet-core/internal/ring"
)

// State enumerates a transaction's lifecycle.
type State int

const (
	Idle State = iota
	AwaitConfirmation
	AwaitResponse
	SegmentedRequest
	SegmentedConfirmation
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case AwaitConfirmation:
		return "AwaitConfirmation"
	case AwaitResponse:
		return "AwaitResponse"
	case SegmentedRequest:
		return "SegmentedRequest"
	case SegmentedConfirmation:
		return "SegmentedConfirmation"
	default:
		return "Unknown"
	}
}

// ErrorKind enumerates how a transaction can terminate abnormally,
// matching the TSM::Error variants.
type ErrorKind int

const (
	ErrorTimeout ErrorKind = iota
	ErrorAbort
	ErrorReject
	ErrorSegmentation
)

// Error is the error type delivered to a transaction's originator on
// abnormal termination.
type Error struct {
	Kind   ErrorKind
	Reason string
}

func (e *Error) Error() string {
	switch e.Kind {
	case ErrorTimeout:
		return "tsm: timeout"
	case ErrorAbort:
		return fmt.Sprintf("tsm: abort (%s)", e.Reason)
	case ErrorReject:
		return fmt.Sprintf("tsm: reject (%s)", e.Reason)
	case ErrorSegmentation:
		return fmt.Sprintf("tsm: segmentation (%s)", e.Reason)
	default:
		return "tsm: error"
	}
}

// Segment is one segment of a segmented APDU: an outbound segment queued
// for a segmented request, or an inbound one held for reassembly.
type Segment struct {
	SequenceNumber byte
	MoreFollows    bool
	Data           []byte
}

// Transaction tracks one outstanding confirmed request.
// All fields are owned by the Manager holding this transaction's entry;
// callers must not mutate a Transaction obtained from Manager directly.
type Transaction struct {
	State       State
	InvokeID    byte
	PeerAddress string

	PDU []byte

	RetryCount int
	MaxRetries int
	Timeout    time.Duration
	deadline   time.Time

	// Segmentation sub-state, valid only in SegmentedRequest/
	// SegmentedConfirmation.
	WindowSize  int
	ExpectedSeq byte
	Segments    *ring.Ring[Segment]
	SegmentAPDU []byte // reassembled payload, growing as segments arrive
}

func newTransaction(peer string, invokeID byte, pdu []byte, maxRetries int, timeout time.Duration, now time.Time) *Transaction {
	t := &Transaction{
		State:       AwaitConfirmation,
		InvokeID:    invokeID,
		PeerAddress: peer,
		PDU:         pdu,
		MaxRetries:  maxRetries,
		Timeout:     timeout,
	}
	t.armDeadline(now)
	return t
}

func (t *Transaction) armDeadline(now time.Time) {
	t.deadline = now.Add(t.Timeout)
}

func (t *Transaction) expired(now time.Time) bool {
	return !now.Before(t.deadline)
}
