package tsm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/bacnet-stack/bacnet-core/internal/logger"
	"github.com/bacnet-stack/bacnet-core/internal/ring"
	"github.com/bacnet-stack/bacnet-core/internal/telemetry"
	"github.com/bacnet-stack/bacnet-core/pkg/bufpool"
)

// MaxOutstandingTransactions bounds the number of concurrent confirmed
// requests this TSM instance will track at once.
const MaxOutstandingTransactions = 256

type txnKey struct {
	peer     string
	invokeID byte
}

// RetryFrame is a confirmed request the caller must retransmit as-is,
// reusing its original invoke ID.
type RetryFrame struct {
	PeerAddress string
	InvokeID    byte
	PDU         []byte
}

// TimeoutNotice reports that a transaction exhausted its retries.
type TimeoutNotice struct {
	PeerAddress string
	InvokeID    byte
}

// Manager is the transaction state machine: it allocates invoke IDs,
// tracks retry/timeout deadlines, and matches inbound acks/errors/
// aborts/rejects/segments back to the outbound request that solicited
// them. State is protected by a single mutex with a
// strict no-callback-under-lock contract, the same discipline
// internal/protocol/nlm/blocking/queue.go applies to its blocking queue.
type Manager struct {
	mu    sync.Mutex
	pools map[string]*invokeIDPool
	txns  map[txnKey]*Transaction
	spans map[txnKey]trace.Span

	DefaultTimeout time.Duration
	DefaultRetries int
}

// NewManager creates a Manager using timeout and retries as the default
// APDU_Timeout/Number_Of_APDU_Retries for transactions that don't
// override them explicitly.
func NewManager(timeout time.Duration, retries int) *Manager {
	return &Manager{
		pools:          make(map[string]*invokeIDPool),
		txns:           make(map[txnKey]*Transaction),
		spans:          make(map[txnKey]trace.Span),
		DefaultTimeout: timeout,
		DefaultRetries: retries,
	}
}

func (m *Manager) poolFor(peer string) *invokeIDPool {
	p, ok := m.pools[peer]
	if !ok {
		p = newInvokeIDPool()
		m.pools[peer] = p
	}
	return p
}

// StartConfirmed allocates an invoke ID for peer and begins tracking pdu
// as an outstanding confirmed request. It opens an OpenTelemetry span
// scoped to the transaction's lifetime.
func (m *Manager) StartConfirmed(ctx context.Context, peer string, pdu []byte, now time.Time) (byte, error) {
	m.mu.Lock()
	if len(m.txns) >= MaxOutstandingTransactions {
		m.mu.Unlock()
		return 0, fmt.Errorf("tsm: %d outstanding transactions exceeds the limit", len(m.txns))
	}
	invokeID, err := m.poolFor(peer).allocate()
	if err != nil {
		m.mu.Unlock()
		return 0, err
	}
	t := newTransaction(peer, invokeID, pdu, m.DefaultRetries, m.DefaultTimeout, now)
	key := txnKey{peer, invokeID}
	m.txns[key] = t
	m.mu.Unlock()

	_, span := telemetry.StartSpan(ctx, "tsm.transaction", trace.WithAttributes(
		attribute.String("tsm.peer_address", peer),
		attribute.Int("tsm.invoke_id", int(invokeID)),
	))
	m.mu.Lock()
	m.spans[key] = span
	m.mu.Unlock()

	logger.Debug("tsm: confirmed request started", logger.Peer(peer), logger.InvokeID(invokeID))
	return invokeID, nil
}

// lookupLocked returns the transaction for key; caller must hold m.mu.
func (m *Manager) lookupLocked(peer string, invokeID byte) (*Transaction, bool) {
	t, ok := m.txns[txnKey{peer, invokeID}]
	return t, ok
}

func (m *Manager) finishLocked(key txnKey, outcome string) (trace.Span, *invokeIDPool) {
	delete(m.txns, key)
	span := m.spans[key]
	delete(m.spans, key)
	if span != nil {
		span.SetAttributes(attribute.String("tsm.outcome", outcome))
	}
	return span, m.poolFor(key.peer)
}

// endSpan finalizes a span outside the lock, per the manager's
// no-callback-under-lock contract.
func endSpan(span trace.Span) {
	if span != nil {
		span.End()
	}
}

// HandleAck matches a SimpleAck/ComplexAck to its transaction, releasing
// the invoke ID. Returns the completed transaction, or false if no
// matching transaction is outstanding (a late or duplicate ack).
func (m *Manager) HandleAck(peer string, invokeID byte, now time.Time) (*Transaction, bool) {
	m.mu.Lock()
	t, ok := m.lookupLocked(peer, invokeID)
	if !ok {
		m.mu.Unlock()
		return nil, false
	}
	key := txnKey{peer, invokeID}
	span, pool := m.finishLocked(key, "ack")
	pool.release(invokeID)
	m.mu.Unlock()

	endSpan(span)
	logger.Debug("tsm: transaction acked", logger.Peer(peer), logger.InvokeID(invokeID))
	return t, true
}

// HandleTerminal matches an inbound Abort, Reject, or BACnet-Error PDU
// to its transaction and terminates it immediately without retry.
func (m *Manager) HandleTerminal(peer string, invokeID byte, kind ErrorKind, reason string) (*Transaction, *Error, bool) {
	m.mu.Lock()
	t, ok := m.lookupLocked(peer, invokeID)
	if !ok {
		m.mu.Unlock()
		return nil, nil, false
	}
	key := txnKey{peer, invokeID}
	span, pool := m.finishLocked(key, "terminal")
	pool.release(invokeID)
	bufpool.Put(t.SegmentAPDU)
	m.mu.Unlock()

	endSpan(span)
	tsmErr := &Error{Kind: kind, Reason: reason}
	logger.Debug("tsm: transaction terminated", logger.Peer(peer), logger.InvokeID(invokeID), "reason", reason)
	return t, tsmErr, true
}

// Cancel releases invokeID's transaction, if any, without notifying the
// caller further; any subsequent matching ack is silently dropped.
func (m *Manager) Cancel(peer string, invokeID byte) bool {
	m.mu.Lock()
	key := txnKey{peer, invokeID}
	t, ok := m.txns[key]
	if !ok {
		m.mu.Unlock()
		return false
	}
	span, pool := m.finishLocked(key, "cancelled")
	pool.release(invokeID)
	bufpool.Put(t.SegmentAPDU)
	m.mu.Unlock()

	endSpan(span)
	return true
}

// Poll drives retry/timeout for every outstanding transaction. The
// caller is expected to call this periodically. Retries are returned for
// retransmission; timeouts are returned for terminated transactions
// whose retries are exhausted.
func (m *Manager) Poll(now time.Time) ([]RetryFrame, []TimeoutNotice) {
	var retries []RetryFrame
	var timeouts []TimeoutNotice
	var endedSpans []trace.Span

	m.mu.Lock()
	for key, t := range m.txns {
		if t.State != AwaitConfirmation && t.State != AwaitResponse {
			continue
		}
		if !t.expired(now) {
			continue
		}
		if t.RetryCount < t.MaxRetries {
			t.RetryCount++
			t.armDeadline(now)
			retries = append(retries, RetryFrame{PeerAddress: t.PeerAddress, InvokeID: t.InvokeID, PDU: t.PDU})
			continue
		}
		span, pool := m.finishLocked(key, "timeout")
		pool.release(t.InvokeID)
		endedSpans = append(endedSpans, span)
		timeouts = append(timeouts, TimeoutNotice{PeerAddress: t.PeerAddress, InvokeID: t.InvokeID})
	}
	m.mu.Unlock()

	for _, span := range endedSpans {
		endSpan(span)
	}
	for _, to := range timeouts {
		logger.Debug("tsm: transaction timed out", logger.Peer(to.PeerAddress), logger.InvokeID(to.InvokeID))
	}
	return retries, timeouts
}

// BeginSegmentedRequest starts tracking our own confirmed request as a
// segmented send: the full set of outbound segments is queued, but only
// windowSize may be outstanding (unacknowledged) at a time.
func (m *Manager) BeginSegmentedRequest(ctx context.Context, peer string, segments []Segment, windowSize int, now time.Time) (byte, error) {
	m.mu.Lock()
	if len(m.txns) >= MaxOutstandingTransactions {
		m.mu.Unlock()
		return 0, fmt.Errorf("tsm: %d outstanding transactions exceeds the limit", len(m.txns))
	}
	invokeID, err := m.poolFor(peer).allocate()
	if err != nil {
		m.mu.Unlock()
		return 0, err
	}
	t := newTransaction(peer, invokeID, nil, m.DefaultRetries, m.DefaultTimeout, now)
	t.State = SegmentedRequest
	t.WindowSize = windowSize
	t.Segments = ring.NewRing[Segment](len(segments) + 1)
	for _, s := range segments {
		t.Segments.Put(s)
	}
	key := txnKey{peer, invokeID}
	m.txns[key] = t
	m.mu.Unlock()

	_, span := telemetry.StartSpan(ctx, "tsm.transaction", trace.WithAttributes(
		attribute.String("tsm.peer_address", peer),
		attribute.Int("tsm.invoke_id", int(invokeID)),
		attribute.Bool("tsm.segmented", true),
	))
	m.mu.Lock()
	m.spans[key] = span
	m.mu.Unlock()
	logger.Debug("tsm: segmented request started", logger.Peer(peer), logger.InvokeID(invokeID), logger.SegmentWindow(windowSize))
	return invokeID, nil
}

// NextSegments returns up to windowSize queued outbound segments for the
// caller to transmit now, without removing them: they stay pending until
// AcknowledgeSegments confirms the peer has them.
func (m *Manager) NextSegments(peer string, invokeID byte, windowSize int) []Segment {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.lookupLocked(peer, invokeID)
	if !ok || t.State != SegmentedRequest {
		return nil
	}
	out := make([]Segment, 0, windowSize)
	drained := make([]Segment, 0, t.Segments.Count())
	for len(out) < windowSize {
		s, got := t.Segments.Get()
		if !got {
			break
		}
		drained = append(drained, s)
		out = append(out, s)
	}
	for _, s := range drained {
		t.Segments.Put(s)
	}
	return out
}

// AcknowledgeSegments drops the first n outbound segments from the
// pending queue after the peer's Segment-ACK confirms receipt, and
// re-arms the retry deadline. Returns true once every segment has been
// acknowledged (the transaction then awaits the final reply).
func (m *Manager) AcknowledgeSegments(peer string, invokeID byte, n int, now time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.lookupLocked(peer, invokeID)
	if !ok || t.State != SegmentedRequest {
		return false
	}
	for i := 0; i < n; i++ {
		if _, got := t.Segments.Get(); !got {
			break
		}
	}
	t.armDeadline(now)
	if t.Segments.Empty() {
		t.State = AwaitResponse
		return true
	}
	return false
}

// BeginSegmentedConfirmation transitions an outstanding transaction into
// segmented-reply reassembly, allocating an out-of-order buffer sized to
// windowSize.
func (m *Manager) BeginSegmentedConfirmation(peer string, invokeID byte, windowSize int, now time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.lookupLocked(peer, invokeID)
	if !ok {
		return false
	}
	t.State = SegmentedConfirmation
	t.WindowSize = windowSize
	t.ExpectedSeq = 0
	t.Segments = ring.NewRing[Segment](windowSize)
	// Pull a pooled scratch buffer instead of growing t.SegmentAPDU from
	// nil by repeated append: a fresh reassembly gets bufpool's full tier
	// capacity up front, so folding in segments one at a time doesn't
	// reallocate on every append until the reassembled APDU outgrows it.
	t.SegmentAPDU = bufpool.Get(0)
	t.armDeadline(now)
	return true
}

// ReceiveSegment folds one inbound reply segment into a transaction's
// reassembly buffer. Segments that arrive ahead of ExpectedSeq are held
// in the out-of-order ring until the gap closes; segments
// that don't fit the window report a Segmentation error. Returns
// (complete, apdu, err): complete is true once the final segment has
// been folded in, at which point the transaction is finished and apdu
// holds the fully reassembled payload.
func (m *Manager) ReceiveSegment(peer string, invokeID byte, seg Segment, now time.Time) (bool, []byte, *Error) {
	m.mu.Lock()
	t, ok := m.lookupLocked(peer, invokeID)
	if !ok || t.State != SegmentedConfirmation {
		m.mu.Unlock()
		return false, nil, &Error{Kind: ErrorSegmentation, Reason: "no matching segmented transaction"}
	}

	if seg.SequenceNumber != t.ExpectedSeq {
		// A retransmit of a segment already folded in (stale SequenceNumber,
		// ExpectedSeq only moves forward) is not out-of-order: queuing it
		// would never be drained by dequeueExpectedLocked and would
		// permanently waste a window slot. Treat it as a no-op duplicate.
		if segmentBehind(seg.SequenceNumber, t.ExpectedSeq) {
			m.mu.Unlock()
			return false, nil, nil
		}
		if !t.Segments.Put(seg) {
			key := txnKey{peer, invokeID}
			span, pool := m.finishLocked(key, "segmentation_error")
			pool.release(invokeID)
			bufpool.Put(t.SegmentAPDU)
			m.mu.Unlock()
			endSpan(span)
			return false, nil, &Error{Kind: ErrorSegmentation, Reason: "out-of-order buffer full"}
		}
		t.armDeadline(now)
		m.mu.Unlock()
		return false, nil, nil
	}

	done := m.foldSegmentLocked(t, seg)
	for !done {
		next, ok := m.dequeueExpectedLocked(t)
		if !ok {
			break
		}
		done = m.foldSegmentLocked(t, next)
	}

	if !done {
		t.armDeadline(now)
		m.mu.Unlock()
		return false, nil, nil
	}

	apdu := t.SegmentAPDU
	key := txnKey{peer, invokeID}
	span, pool := m.finishLocked(key, "segmented_complete")
	pool.release(invokeID)
	m.mu.Unlock()

	endSpan(span)
	logger.Debug("tsm: segmented confirmation reassembled", logger.Peer(peer), logger.InvokeID(invokeID), "length", len(apdu))
	return true, apdu, nil
}

// segmentBehind reports whether seq is strictly behind expected in the
// segment sequence space, accounting for wraparound at 256 the same way
// a TCP-style modular sequence comparison would.
func segmentBehind(seq, expected byte) bool {
	return int8(seq-expected) < 0
}

// foldSegmentLocked appends seg's data to the reassembly buffer and
// advances ExpectedSeq; caller must hold m.mu. Returns true if seg was
// the final segment.
func (m *Manager) foldSegmentLocked(t *Transaction, seg Segment) bool {
	t.SegmentAPDU = append(t.SegmentAPDU, seg.Data...)
	t.ExpectedSeq++
	return !seg.MoreFollows
}

// dequeueExpectedLocked scans the out-of-order ring for the segment
// matching t.ExpectedSeq, if already buffered. The ring holds at most
// WindowSize entries so a linear scan is cheap and keeps Ring's API
// (Get removes front-only) simple.
func (m *Manager) dequeueExpectedLocked(t *Transaction) (Segment, bool) {
	pending := make([]Segment, 0, t.WindowSize)
	var found Segment
	ok := false
	for {
		s, got := t.Segments.Get()
		if !got {
			break
		}
		if !ok && s.SequenceNumber == t.ExpectedSeq {
			found = s
			ok = true
			continue
		}
		pending = append(pending, s)
	}
	for _, s := range pending {
		t.Segments.Put(s)
	}
	return found, ok
}
