package mstp

import "testing"

func buildFrame(frameType FrameType, dest, src byte, data []byte) []byte {
	header := [5]byte{byte(frameType), dest, src, byte(len(data) >> 8), byte(len(data))}
	frame := []byte{preambleByte1, preambleByte2}
	frame = append(frame, header[:]...)
	frame = append(frame, HeaderCRC(header))
	if len(data) > 0 {
		frame = append(frame, data...)
		crc := DataCRC(data)
		frame = append(frame, byte(crc), byte(crc>>8))
	}
	return frame
}

func TestReceiveFSM_TokenFrame_NoData(t *testing.T) {
	var got FrameType
	var gotDest, gotSrc byte
	fsm := NewReceiveFSM(5, func(ft FrameType, dest, src byte, data []byte) {
		got, gotDest, gotSrc = ft, dest, src
	})

	for _, b := range buildFrame(FrameToken, 5, 3, nil) {
		fsm.Step(b)
	}

	if got != FrameToken || gotDest != 5 || gotSrc != 3 {
		t.Fatalf("frame = (%v,%d,%d), want (Token,5,3)", got, gotDest, gotSrc)
	}
	if fsm.State != StateIdle {
		t.Fatalf("state = %v, want Idle", fsm.State)
	}
	if fsm.ReceiveValidFrameCount != 1 {
		t.Fatalf("valid frame count = %d, want 1", fsm.ReceiveValidFrameCount)
	}
}

func TestReceiveFSM_DataFrame_WithPayload(t *testing.T) {
	var gotData []byte
	fsm := NewReceiveFSM(5, func(ft FrameType, dest, src byte, data []byte) {
		gotData = append([]byte(nil), data...)
	})

	payload := []byte("hello bacnet")
	for _, b := range buildFrame(FrameBACnetDataExpectingReply, 5, 9, payload) {
		fsm.Step(b)
	}

	if string(gotData) != string(payload) {
		t.Fatalf("data = %q, want %q", gotData, payload)
	}
}

func TestReceiveFSM_NotForUs_CountedNotDelivered(t *testing.T) {
	delivered := false
	fsm := NewReceiveFSM(5, func(ft FrameType, dest, src byte, data []byte) {
		delivered = true
	})

	for _, b := range buildFrame(FrameToken, 9, 3, nil) {
		fsm.Step(b)
	}

	if delivered {
		t.Fatal("frame addressed to another station must not be delivered")
	}
	if fsm.ReceiveValidFrameNotForUsCount != 1 {
		t.Fatalf("not-for-us count = %d, want 1", fsm.ReceiveValidFrameNotForUsCount)
	}
}

func TestReceiveFSM_Broadcast_Delivered(t *testing.T) {
	delivered := false
	fsm := NewReceiveFSM(5, func(ft FrameType, dest, src byte, data []byte) {
		delivered = true
	})

	for _, b := range buildFrame(FramePollForMaster, 0xFF, 3, nil) {
		fsm.Step(b)
	}

	if !delivered {
		t.Fatal("broadcast frame must be delivered")
	}
}

func TestReceiveFSM_BadHeaderCRC_ReturnsToIdle(t *testing.T) {
	delivered := false
	fsm := NewReceiveFSM(5, func(ft FrameType, dest, src byte, data []byte) {
		delivered = true
	})

	frame := buildFrame(FrameToken, 5, 3, nil)
	frame[7] ^= 0xFF // corrupt the header CRC octet
	for _, b := range frame {
		fsm.Step(b)
	}

	if delivered {
		t.Fatal("frame with bad header CRC must not be delivered")
	}
	if fsm.ReceiveInvalidFrameCount == 0 {
		t.Fatal("invalid frame counter must increment")
	}
	if fsm.State != StateIdle {
		t.Fatalf("state = %v, want Idle", fsm.State)
	}
}

func TestReceiveFSM_BadDataCRC_Discarded(t *testing.T) {
	delivered := false
	fsm := NewReceiveFSM(5, func(ft FrameType, dest, src byte, data []byte) {
		delivered = true
	})

	frame := buildFrame(FrameBACnetDataExpectingReply, 5, 3, []byte("payload"))
	frame[len(frame)-1] ^= 0xFF // corrupt trailing data CRC octet
	for _, b := range frame {
		fsm.Step(b)
	}

	if delivered {
		t.Fatal("frame with bad data CRC must not be delivered")
	}
}

// TestReceiveFSM_TruncationSafety covers the truncation-safety
// property: feeding any strict prefix of a valid frame must never invoke
// OnFrame and must never panic.
func TestReceiveFSM_TruncationSafety(t *testing.T) {
	frame := buildFrame(FrameBACnetDataExpectingReply, 5, 3, []byte("truncate me"))

	for n := 0; n < len(frame); n++ {
		delivered := false
		fsm := NewReceiveFSM(5, func(ft FrameType, dest, src byte, data []byte) {
			delivered = true
		})
		for _, b := range frame[:n] {
			fsm.Step(b)
		}
		if delivered {
			t.Fatalf("prefix of length %d must not complete a frame", n)
		}
	}
}

func TestReceiveFSM_GarbageThenValidFrame_Resynchronizes(t *testing.T) {
	delivered := false
	fsm := NewReceiveFSM(5, func(ft FrameType, dest, src byte, data []byte) {
		delivered = true
	})

	for _, b := range []byte{0x00, 0x11, 0x55, 0x00, 0x22} {
		fsm.Step(b)
	}
	for _, b := range buildFrame(FrameToken, 5, 3, nil) {
		fsm.Step(b)
	}

	if !delivered {
		t.Fatal("FSM must resynchronize on the next valid preamble after garbage")
	}
}
