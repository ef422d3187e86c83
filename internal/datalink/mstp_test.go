package datalink

import (
	"bytes"
	"testing"

	"github.com/bacnet-stack/bacnet-core/internal/bacapp"
	"github.com/bacnet-stack/bacnet-core/internal/mstp"
)

func TestMSTPMedium_Send_EnqueuesOnMasterFSM(t *testing.T) {
	var wire bytes.Buffer
	port := NewMSTPPort(5, &wire)
	medium := port.Medium.(*MSTPMedium)

	if err := medium.Send(bacapp.Address{Mac: []byte{9}}, []byte("hello")); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if medium.tx.SendQueue.Empty() {
		t.Fatal("expected the master FSM's send queue to hold the queued frame")
	}
}

func TestMSTPMedium_OnFrame_AnswerDataRequestDeliversToPort(t *testing.T) {
	var wire bytes.Buffer
	port := NewMSTPPort(5, &wire)

	var gotAPDU []byte
	port.OnAPDU = func(src bacapp.Address, apdu []byte) { gotAPDU = apdu }

	npdu := EncodeNPDU(NPDU{})
	payload := append(npdu, 0x01, 0x02)
	for _, b := range mstp.EncodeFrame(mstp.FrameBACnetDataExpectingReply, 5, 9, payload) {
		port.Medium.(*MSTPMedium).rx.Step(b)
	}

	if string(gotAPDU) != string([]byte{0x01, 0x02}) {
		t.Fatalf("apdu = %v, want [0x01 0x02]", gotAPDU)
	}
}
