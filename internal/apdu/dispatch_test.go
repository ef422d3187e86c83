package apdu

import (
	"context"
	"testing"

	"github.com/bacnet-stack/bacnet-core/internal/bacapp"
	"github.com/bacnet-stack/bacnet-core/internal/bacnet/service"
)

func TestDispatcher_ConfirmedRequest_SimpleAck(t *testing.T) {
	d := NewDispatcher()
	d.RegisterConfirmed(8, func(ctx context.Context, src bacapp.Address, data []byte) (*HandlerResult, error) {
		return &HandlerResult{}, nil
	})

	req := EncodeConfirmedRequest(ConfirmedRequest{InvokeID: 3, ServiceChoice: 8})
	reply := d.Dispatch(context.Background(), bacapp.Address{}, req)

	ack, err := DecodeSimpleAck(reply)
	if err != nil {
		t.Fatalf("DecodeSimpleAck failed: %v", err)
	}
	if ack.InvokeID != 3 || ack.ServiceChoice != 8 {
		t.Fatalf("ack = %+v", ack)
	}
}

func TestDispatcher_ConfirmedRequest_ComplexAck(t *testing.T) {
	d := NewDispatcher()
	d.RegisterConfirmed(12, func(ctx context.Context, src bacapp.Address, data []byte) (*HandlerResult, error) {
		return &HandlerResult{Data: []byte("reply-data")}, nil
	})

	req := EncodeConfirmedRequest(ConfirmedRequest{InvokeID: 9, ServiceChoice: 12})
	reply := d.Dispatch(context.Background(), bacapp.Address{}, req)

	ack, err := DecodeComplexAck(reply)
	if err != nil {
		t.Fatalf("DecodeComplexAck failed: %v", err)
	}
	if string(ack.ServiceData) != "reply-data" {
		t.Fatalf("service data = %q", ack.ServiceData)
	}
}

func TestDispatcher_ConfirmedRequest_ServiceError(t *testing.T) {
	d := NewDispatcher()
	d.RegisterConfirmed(12, func(ctx context.Context, src bacapp.Address, data []byte) (*HandlerResult, error) {
		return ErrorResultFromServiceError(&service.ServiceError{
			Class: service.ErrorClassObject,
			Code:  service.ErrorCodeUnknownObject,
		})
	})

	req := EncodeConfirmedRequest(ConfirmedRequest{InvokeID: 1, ServiceChoice: 12})
	reply := d.Dispatch(context.Background(), bacapp.Address{}, req)

	errPDU, err := DecodeErrorPDU(reply)
	if err != nil {
		t.Fatalf("DecodeErrorPDU failed: %v", err)
	}
	if errPDU.Class != service.ErrorClassObject || errPDU.Code != service.ErrorCodeUnknownObject {
		t.Fatalf("error pdu = %+v", errPDU)
	}
}

func TestDispatcher_ConfirmedRequest_UnrecognizedService(t *testing.T) {
	d := NewDispatcher()
	req := EncodeConfirmedRequest(ConfirmedRequest{InvokeID: 1, ServiceChoice: 200})
	reply := d.Dispatch(context.Background(), bacapp.Address{}, req)

	rej, err := DecodeRejectPDU(reply)
	if err != nil {
		t.Fatalf("DecodeRejectPDU failed: %v", err)
	}
	if rej.Reason != RejectUnrecognizedService {
		t.Fatalf("reason = %v, want RejectUnrecognizedService", rej.Reason)
	}
}

func TestDispatcher_UnconfirmedRequest_InvokesHandler(t *testing.T) {
	d := NewDispatcher()
	var gotData []byte
	d.RegisterUnconfirmed(8, func(ctx context.Context, src bacapp.Address, data []byte) {
		gotData = data
	})

	req := EncodeUnconfirmedRequest(UnconfirmedRequest{ServiceChoice: 8, ServiceData: []byte("whois")})
	reply := d.Dispatch(context.Background(), bacapp.Address{}, req)

	if reply != nil {
		t.Fatal("unconfirmed requests must not produce a reply")
	}
	if string(gotData) != "whois" {
		t.Fatalf("handler data = %q, want %q", gotData, "whois")
	}
}

func TestDispatcher_SegmentedConfirmedRequest_Aborts(t *testing.T) {
	d := NewDispatcher()
	req := EncodeConfirmedRequest(ConfirmedRequest{Segmented: true, InvokeID: 5, ServiceChoice: 8, SequenceNumber: 0, WindowSize: 4})
	reply := d.Dispatch(context.Background(), bacapp.Address{}, req)

	abort, err := DecodeAbortPDU(reply)
	if err != nil {
		t.Fatalf("DecodeAbortPDU failed: %v", err)
	}
	if abort.Reason != AbortSegmentationNotSupported || abort.InvokeID != 5 {
		t.Fatalf("abort = %+v", abort)
	}
}
