package apdu

import "testing"

func TestConfirmedRequest_RoundTrip_Unsegmented(t *testing.T) {
	r := ConfirmedRequest{
		SegmentedAccepted: true,
		MaxSegsMaxAPDU:    0x35,
		InvokeID:          7,
		ServiceChoice:     12,
		ServiceData:       []byte{0x01, 0x02},
	}
	encoded := EncodeConfirmedRequest(r)

	got, err := DecodeConfirmedRequest(encoded)
	if err != nil {
		t.Fatalf("DecodeConfirmedRequest failed: %v", err)
	}
	if got.Segmented || got.InvokeID != 7 || got.ServiceChoice != 12 || string(got.ServiceData) != "\x01\x02" {
		t.Fatalf("decoded = %+v", got)
	}
}

func TestConfirmedRequest_RoundTrip_Segmented(t *testing.T) {
	r := ConfirmedRequest{
		Segmented:      true,
		MoreFollows:    true,
		InvokeID:       3,
		SequenceNumber: 5,
		WindowSize:     4,
		ServiceChoice:  12,
		ServiceData:    []byte("payload"),
	}
	encoded := EncodeConfirmedRequest(r)

	got, err := DecodeConfirmedRequest(encoded)
	if err != nil {
		t.Fatalf("DecodeConfirmedRequest failed: %v", err)
	}
	if !got.Segmented || !got.MoreFollows || got.SequenceNumber != 5 || got.WindowSize != 4 {
		t.Fatalf("decoded = %+v", got)
	}
	if string(got.ServiceData) != "payload" {
		t.Fatalf("service data = %q, want %q", got.ServiceData, "payload")
	}
}

func TestDecodeConfirmedRequest_RejectsWrongType(t *testing.T) {
	frame := EncodeUnconfirmedRequest(UnconfirmedRequest{ServiceChoice: 8})
	if _, err := DecodeConfirmedRequest(frame); err == nil {
		t.Fatal("expected an error decoding an unconfirmed request as confirmed")
	}
}

func TestUnconfirmedRequest_RoundTrip(t *testing.T) {
	r := UnconfirmedRequest{ServiceChoice: 8, ServiceData: []byte{0xAA}}
	got, err := DecodeUnconfirmedRequest(EncodeUnconfirmedRequest(r))
	if err != nil {
		t.Fatalf("DecodeUnconfirmedRequest failed: %v", err)
	}
	if got.ServiceChoice != 8 || string(got.ServiceData) != "\xaa" {
		t.Fatalf("decoded = %+v", got)
	}
}

func TestSimpleAck_RoundTrip(t *testing.T) {
	got, err := DecodeSimpleAck(EncodeSimpleAck(SimpleAck{InvokeID: 9, ServiceChoice: 15}))
	if err != nil {
		t.Fatalf("DecodeSimpleAck failed: %v", err)
	}
	if got.InvokeID != 9 || got.ServiceChoice != 15 {
		t.Fatalf("decoded = %+v", got)
	}
}

func TestComplexAck_RoundTrip_Segmented(t *testing.T) {
	a := ComplexAck{
		Segmented:      true,
		MoreFollows:    false,
		InvokeID:       2,
		SequenceNumber: 1,
		WindowSize:     4,
		ServiceChoice:  12,
		ServiceData:    []byte("ack data"),
	}
	got, err := DecodeComplexAck(EncodeComplexAck(a))
	if err != nil {
		t.Fatalf("DecodeComplexAck failed: %v", err)
	}
	if !got.Segmented || got.SequenceNumber != 1 || string(got.ServiceData) != "ack data" {
		t.Fatalf("decoded = %+v", got)
	}
}

func TestSegmentAck_RoundTrip(t *testing.T) {
	a := SegmentAck{NegativeAck: true, Server: true, InvokeID: 4, SequenceNumber: 2, WindowSize: 6}
	got, err := DecodeSegmentAck(EncodeSegmentAck(a))
	if err != nil {
		t.Fatalf("DecodeSegmentAck failed: %v", err)
	}
	if got != a {
		t.Fatalf("decoded = %+v, want %+v", got, a)
	}
}

func TestErrorPDU_RoundTrip(t *testing.T) {
	e := ErrorPDU{InvokeID: 6, ServiceChoice: 12, Class: 2, Code: 32}
	got, err := DecodeErrorPDU(EncodeErrorPDU(e))
	if err != nil {
		t.Fatalf("DecodeErrorPDU failed: %v", err)
	}
	if got != e {
		t.Fatalf("decoded = %+v, want %+v", got, e)
	}
}

func TestRejectPDU_RoundTrip(t *testing.T) {
	r := RejectPDU{InvokeID: 1, Reason: RejectInvalidTag}
	got, err := DecodeRejectPDU(EncodeRejectPDU(r))
	if err != nil {
		t.Fatalf("DecodeRejectPDU failed: %v", err)
	}
	if got != r {
		t.Fatalf("decoded = %+v, want %+v", got, r)
	}
}

func TestAbortPDU_RoundTrip(t *testing.T) {
	a := AbortPDU{Server: true, InvokeID: 1, Reason: AbortSegmentationNotSupported}
	got, err := DecodeAbortPDU(EncodeAbortPDU(a))
	if err != nil {
		t.Fatalf("DecodeAbortPDU failed: %v", err)
	}
	if got != a {
		t.Fatalf("decoded = %+v, want %+v", got, a)
	}
}

func TestDecodePDUType(t *testing.T) {
	pt, err := DecodePDUType(EncodeAbortPDU(AbortPDU{}))
	if err != nil {
		t.Fatalf("DecodePDUType failed: %v", err)
	}
	if pt != TypeAbort {
		t.Fatalf("pdu type = %v, want Abort", pt)
	}
}
