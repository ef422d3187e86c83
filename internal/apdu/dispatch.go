package apdu

import (
	"context"
	"errors"
	"fmt"

	"github.com/bacnet-stack/bacnet-core/internal/bacapp"
	"github.com/bacnet-stack/bacnet-core/internal/bacnet/service"
	"github.com/bacnet-stack/bacnet-core/internal/logger"
)

// HandlerResult carries both the reply bytes a confirmed handler
// produced and protocol-level metadata about the outcome, the same
// split nfs.HandlerResult uses: separating the response payload
// from the status keeps metrics/logging code from re-parsing the
// encoded reply to find out what happened.
type HandlerResult struct {
	// Data is the service ack's encoded parameter sequence (the caller
	// wraps it in a SimpleACK/ComplexACK header). Nil for a service
	// with no ack payload.
	Data []byte

	// HasError is set when the handler failed at the service level;
	// the dispatcher then encodes ErrorClass/ErrorCode as a
	// BACnet-Error-PDU with the original invoke-ID. Both may be zero
	// (class device, code other), so HasError, not their values,
	// marks the failure.
	ErrorClass uint32
	ErrorCode  uint32
	HasError   bool
}

// ConfirmedHandler processes one confirmed service's parameters and
// returns the ack payload (or a service-level error) to send back.
type ConfirmedHandler func(ctx context.Context, src bacapp.Address, serviceData []byte) (*HandlerResult, error)

// UnconfirmedHandler processes one unconfirmed service's parameters.
// Unconfirmed services have no reply, so only a local/system error is
// reported (logged, never sent on the wire).
type UnconfirmedHandler func(ctx context.Context, src bacapp.Address, serviceData []byte)

// Dispatcher routes incoming APDUs to registered service handlers by
// service-choice octet. It is the integration point
// between internal/datalink (which delivers raw APDUs), internal/tsm
// (which pairs a confirmed reply with its invoke-ID), and the external
// object model.
type Dispatcher struct {
	confirmed   map[byte]ConfirmedHandler
	unconfirmed map[byte]UnconfirmedHandler
}

// NewDispatcher builds an empty Dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		confirmed:   make(map[byte]ConfirmedHandler),
		unconfirmed: make(map[byte]UnconfirmedHandler),
	}
}

// RegisterConfirmed associates a confirmed service choice with its
// handler, replacing any previous registration.
func (d *Dispatcher) RegisterConfirmed(serviceChoice byte, h ConfirmedHandler) {
	d.confirmed[serviceChoice] = h
}

// RegisterUnconfirmed associates an unconfirmed service choice with its
// handler, replacing any previous registration.
func (d *Dispatcher) RegisterUnconfirmed(serviceChoice byte, h UnconfirmedHandler) {
	d.unconfirmed[serviceChoice] = h
}

// Dispatch decodes apdu's PDU type and routes it, returning the raw
// bytes of a reply PDU to transmit (nil for unconfirmed requests and
// for replies/acks, which this dispatcher does not originate replies
// to — those are routed to internal/tsm instead).
func (d *Dispatcher) Dispatch(ctx context.Context, src bacapp.Address, apdu []byte) []byte {
	pduType, err := DecodePDUType(apdu)
	if err != nil {
		logger.Debug("apdu: dropping empty pdu", "src", src)
		return nil
	}

	switch pduType {
	case TypeConfirmedRequest:
		return d.dispatchConfirmed(ctx, src, apdu)
	case TypeUnconfirmedReq:
		d.dispatchUnconfirmed(ctx, src, apdu)
		return nil
	default:
		// SimpleACK/ComplexACK/SegmentACK/Error/Reject/Abort are
		// replies to our own outstanding transactions; the caller
		// routes those to internal/tsm directly rather than through
		// this dispatcher.
		return nil
	}
}

func (d *Dispatcher) dispatchConfirmed(ctx context.Context, src bacapp.Address, apduBytes []byte) []byte {
	req, err := DecodeConfirmedRequest(apduBytes)
	if err != nil {
		logger.Warn("apdu: malformed confirmed request", "src", src, "error", err)
		return EncodeAbortPDU(AbortPDU{Server: true, Reason: AbortOther})
	}
	if req.Segmented {
		// Segment reassembly is internal/tsm's responsibility on the
		// receiving side too; a dispatcher invoked per-segment would
		// need the reassembled APDU, not a single segment.
		logger.Debug("apdu: segmented confirmed request needs tsm reassembly first", "src", src, logger.InvokeID(req.InvokeID))
		return EncodeAbortPDU(AbortPDU{Server: true, InvokeID: req.InvokeID, Reason: AbortSegmentationNotSupported})
	}

	handler, ok := d.confirmed[req.ServiceChoice]
	if !ok {
		return EncodeRejectPDU(RejectPDU{InvokeID: req.InvokeID, Reason: RejectUnrecognizedService})
	}

	result, err := handler(ctx, src, req.ServiceData)
	if err != nil {
		logger.Error("apdu: confirmed handler system error", "src", src, logger.Service(req.ServiceChoice), logger.Err(err))
		return EncodeAbortPDU(AbortPDU{Server: true, InvokeID: req.InvokeID, Reason: AbortOther})
	}
	if result.HasError {
		return EncodeErrorPDU(ErrorPDU{
			InvokeID:      req.InvokeID,
			ServiceChoice: req.ServiceChoice,
			Class:         result.ErrorClass,
			Code:          result.ErrorCode,
		})
	}
	if result.Data == nil {
		return EncodeSimpleAck(SimpleAck{InvokeID: req.InvokeID, ServiceChoice: req.ServiceChoice})
	}
	return EncodeComplexAck(ComplexAck{InvokeID: req.InvokeID, ServiceChoice: req.ServiceChoice, ServiceData: result.Data})
}

func (d *Dispatcher) dispatchUnconfirmed(ctx context.Context, src bacapp.Address, apduBytes []byte) {
	req, err := DecodeUnconfirmedRequest(apduBytes)
	if err != nil {
		logger.Debug("apdu: malformed unconfirmed request", "src", src, "error", err)
		return
	}
	handler, ok := d.unconfirmed[req.ServiceChoice]
	if !ok {
		logger.Debug("apdu: no handler for unconfirmed service", "src", src, logger.Service(req.ServiceChoice))
		return
	}
	handler(ctx, src, req.ServiceData)
}

// ErrorResultFromServiceError converts a *service.ServiceError (the
// taxonomy every internal/bacnet/service codec returns on a
// service-specific constraint violation) into a HandlerResult the
// dispatcher encodes as a BACnet-Error-PDU.
func ErrorResultFromServiceError(err error) (*HandlerResult, error) {
	var svcErr *service.ServiceError
	if !errors.As(err, &svcErr) {
		return nil, fmt.Errorf("apdu: not a service error: %w", err)
	}
	return &HandlerResult{HasError: true, ErrorClass: svcErr.Class, ErrorCode: svcErr.Code}, nil
}
