package tsm

import (
	"context"
	"testing"
	"time"
)

func TestManager_StartConfirmed_AllocatesDistinctInvokeIDs(t *testing.T) {
	m := NewManager(100*time.Millisecond, 2)
	now := time.Unix(0, 0)

	seen := make(map[byte]bool)
	for i := 0; i < 10; i++ {
		id, err := m.StartConfirmed(context.Background(), "peer1", []byte{0x01}, now)
		if err != nil {
			t.Fatalf("StartConfirmed failed: %v", err)
		}
		if seen[id] {
			t.Fatalf("invoke id %d allocated twice", id)
		}
		seen[id] = true
	}
}

func TestManager_HandleAck_ReleasesInvokeID(t *testing.T) {
	m := NewManager(100*time.Millisecond, 2)
	now := time.Unix(0, 0)

	id, err := m.StartConfirmed(context.Background(), "peer1", []byte{0x01}, now)
	if err != nil {
		t.Fatalf("StartConfirmed failed: %v", err)
	}

	txn, ok := m.HandleAck("peer1", id, now)
	if !ok || txn.InvokeID != id {
		t.Fatalf("HandleAck = (%v,%v), want a matching transaction", txn, ok)
	}

	if _, ok := m.HandleAck("peer1", id, now); ok {
		t.Fatal("a second ack for the same invoke id must not match")
	}
}

func TestManager_Poll_RetriesBeforeTimeout(t *testing.T) {
	m := NewManager(50*time.Millisecond, 2)
	now := time.Unix(0, 0)

	id, _ := m.StartConfirmed(context.Background(), "peer1", []byte{0xAB}, now)

	t1 := now.Add(51 * time.Millisecond)
	retries, timeouts := m.Poll(t1)
	if len(retries) != 1 || retries[0].InvokeID != id || len(timeouts) != 0 {
		t.Fatalf("first poll: retries=%v timeouts=%v, want 1 retry 0 timeouts", retries, timeouts)
	}

	t2 := t1.Add(51 * time.Millisecond)
	retries, timeouts = m.Poll(t2)
	if len(retries) != 1 || len(timeouts) != 0 {
		t.Fatalf("second poll: retries=%v timeouts=%v, want 1 retry 0 timeouts", retries, timeouts)
	}

	t3 := t2.Add(51 * time.Millisecond)
	retries, timeouts = m.Poll(t3)
	if len(retries) != 0 || len(timeouts) != 1 || timeouts[0].InvokeID != id {
		t.Fatalf("third poll: retries=%v timeouts=%v, want 0 retries 1 timeout", retries, timeouts)
	}

	// Invoke id must now be free for reuse.
	newID, err := m.StartConfirmed(context.Background(), "peer1", []byte{0x01}, t3)
	if err != nil {
		t.Fatalf("StartConfirmed after timeout failed: %v", err)
	}
	_ = newID
}

func TestManager_HandleTerminal_NoRetry(t *testing.T) {
	m := NewManager(50*time.Millisecond, 5)
	now := time.Unix(0, 0)

	id, _ := m.StartConfirmed(context.Background(), "peer1", []byte{0x01}, now)

	_, tsmErr, ok := m.HandleTerminal("peer1", id, ErrorAbort, "application-initiated")
	if !ok || tsmErr.Kind != ErrorAbort {
		t.Fatalf("HandleTerminal = (%v,%v), want ErrorAbort", tsmErr, ok)
	}

	retries, timeouts := m.Poll(now.Add(time.Hour))
	if len(retries) != 0 || len(timeouts) != 0 {
		t.Fatal("an aborted transaction must not be retried or reported as timed out")
	}
}

func TestManager_Cancel_SuppressesLateAck(t *testing.T) {
	m := NewManager(50*time.Millisecond, 2)
	now := time.Unix(0, 0)

	id, _ := m.StartConfirmed(context.Background(), "peer1", []byte{0x01}, now)
	if !m.Cancel("peer1", id) {
		t.Fatal("expected cancel to succeed for a live transaction")
	}

	if _, ok := m.HandleAck("peer1", id, now); ok {
		t.Fatal("an ack after cancellation must not match")
	}
}

func TestManager_SegmentedConfirmation_InOrder(t *testing.T) {
	m := NewManager(time.Second, 2)
	now := time.Unix(0, 0)

	id, _ := m.StartConfirmed(context.Background(), "peer1", []byte{0x01}, now)
	if !m.BeginSegmentedConfirmation("peer1", id, 4, now) {
		t.Fatal("expected BeginSegmentedConfirmation to find the transaction")
	}

	complete, _, err := m.ReceiveSegment("peer1", id, Segment{SequenceNumber: 0, MoreFollows: true, Data: []byte("AB")}, now)
	if complete || err != nil {
		t.Fatalf("segment 0: complete=%v err=%v", complete, err)
	}
	complete, _, err = m.ReceiveSegment("peer1", id, Segment{SequenceNumber: 1, MoreFollows: false, Data: []byte("CD")}, now)
	if err != nil {
		t.Fatalf("segment 1: unexpected error %v", err)
	}
	if !complete {
		t.Fatal("final segment must complete reassembly")
	}
}

func TestManager_SegmentedConfirmation_OutOfOrder(t *testing.T) {
	m := NewManager(time.Second, 2)
	now := time.Unix(0, 0)

	id, _ := m.StartConfirmed(context.Background(), "peer1", []byte{0x01}, now)
	m.BeginSegmentedConfirmation("peer1", id, 4, now)

	// Segment 1 arrives before segment 0; it must be buffered, not folded.
	complete, apdu, err := m.ReceiveSegment("peer1", id, Segment{SequenceNumber: 1, MoreFollows: false, Data: []byte("CD")}, now)
	if complete || err != nil || apdu != nil {
		t.Fatalf("out-of-order segment must not complete: complete=%v err=%v apdu=%v", complete, err, apdu)
	}

	complete, apdu, err = m.ReceiveSegment("peer1", id, Segment{SequenceNumber: 0, MoreFollows: true, Data: []byte("AB")}, now)
	if err != nil {
		t.Fatalf("segment 0: unexpected error %v", err)
	}
	if !complete {
		t.Fatal("filling the gap must drain the buffered segment and complete reassembly")
	}
	if string(apdu) != "ABCD" {
		t.Fatalf("reassembled apdu = %q, want %q", apdu, "ABCD")
	}
}

func TestManager_SegmentedConfirmation_StaleRetransmitIgnored(t *testing.T) {
	m := NewManager(time.Second, 2)
	now := time.Unix(0, 0)

	id, _ := m.StartConfirmed(context.Background(), "peer1", []byte{0x01}, now)
	m.BeginSegmentedConfirmation("peer1", id, 2, now)

	complete, _, err := m.ReceiveSegment("peer1", id, Segment{SequenceNumber: 0, MoreFollows: true, Data: []byte("AB")}, now)
	if complete || err != nil {
		t.Fatalf("segment 0: complete=%v err=%v", complete, err)
	}

	// A duplicate of the already-folded segment 0 arrives again (lost
	// SegmentACK). It must be discarded, not queued: ExpectedSeq never
	// moves backward so a queued stale segment would sit in the ring
	// forever, wasting a window slot every time this happens.
	for i := 0; i < 3; i++ {
		complete, apdu, err := m.ReceiveSegment("peer1", id, Segment{SequenceNumber: 0, MoreFollows: true, Data: []byte("AB")}, now)
		if complete || err != nil || apdu != nil {
			t.Fatalf("stale retransmit %d must be a no-op: complete=%v err=%v apdu=%v", i, complete, err, apdu)
		}
	}

	complete, apdu, err := m.ReceiveSegment("peer1", id, Segment{SequenceNumber: 1, MoreFollows: false, Data: []byte("CD")}, now)
	if err != nil {
		t.Fatalf("segment 1: unexpected error %v", err)
	}
	if !complete {
		t.Fatal("final segment must still complete reassembly despite the earlier stale retransmits")
	}
	if string(apdu) != "ABCD" {
		t.Fatalf("reassembled apdu = %q, want %q", apdu, "ABCD")
	}
}

func TestManager_SegmentedRequest_WindowedSend(t *testing.T) {
	m := NewManager(time.Second, 2)
	now := time.Unix(0, 0)

	segments := []Segment{
		{SequenceNumber: 0, MoreFollows: true, Data: []byte("A")},
		{SequenceNumber: 1, MoreFollows: true, Data: []byte("B")},
		{SequenceNumber: 2, MoreFollows: false, Data: []byte("C")},
	}
	id, err := m.BeginSegmentedRequest(context.Background(), "peer1", segments, 2, now)
	if err != nil {
		t.Fatalf("BeginSegmentedRequest failed: %v", err)
	}

	batch := m.NextSegments("peer1", id, 2)
	if len(batch) != 2 || batch[0].SequenceNumber != 0 || batch[1].SequenceNumber != 1 {
		t.Fatalf("first window = %+v, want segments 0 and 1", batch)
	}

	if done := m.AcknowledgeSegments("peer1", id, 2, now); done {
		t.Fatal("one segment remains; AcknowledgeSegments must not report done")
	}

	batch = m.NextSegments("peer1", id, 2)
	if len(batch) != 1 || batch[0].SequenceNumber != 2 {
		t.Fatalf("second window = %+v, want only segment 2", batch)
	}

	if done := m.AcknowledgeSegments("peer1", id, 1, now); !done {
		t.Fatal("expected AcknowledgeSegments to report done once the queue drains")
	}
}

func TestManager_MaxOutstandingTransactions(t *testing.T) {
	m := NewManager(time.Second, 1)
	now := time.Unix(0, 0)

	for i := 0; i < MaxOutstandingTransactions; i++ {
		peer := "peer" + string(rune('A'+i%26)) + string(rune('0'+i/26))
		if _, err := m.StartConfirmed(context.Background(), peer, []byte{0x01}, now); err != nil {
			t.Fatalf("StartConfirmed #%d failed: %v", i, err)
		}
	}

	if _, err := m.StartConfirmed(context.Background(), "overflow", []byte{0x01}, now); err == nil {
		t.Fatal("expected StartConfirmed to fail once the outstanding limit is reached")
	}
}
