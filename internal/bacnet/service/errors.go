// Package service implements the BACnet application-layer service
// codecs: ReadProperty, ReadPropertyMultiple,
// WriteProperty, ReadRange, AtomicReadFile/AtomicWriteFile, Who-Is/I-Am,
// Who-Has/I-Have, DeviceCommunicationControl, TimeSync/UTCTimeSync,
// GetEventInformation, and ConfirmedPrivateTransfer. Every codec builds
// on internal/bacapp and never retries — decode failures are reported
// to the caller, who translates them into a reject/abort PDU.
package service

import (
	"errors"
	"fmt"
)

// ServiceError is returned by decoders when the APDU is well-formed at
// the tag level but violates a service-specific constraint. It carries the standard class/code pair so the caller can
// encode a BACnet-Error PDU with the original invoke-ID.
type ServiceError struct {
	Class uint32
	Code  uint32
	Msg   string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("service error class=%d code=%d: %s", e.Class, e.Code, e.Msg)
}

// Standard error class values (ANSI/ASHRAE 135 clause 18.1).
const (
	ErrorClassDevice    uint32 = 0
	ErrorClassObject    uint32 = 1
	ErrorClassProperty  uint32 = 2
	ErrorClassResources uint32 = 3
	ErrorClassSecurity  uint32 = 4
	ErrorClassServices  uint32 = 5
	ErrorClassVT        uint32 = 6
	ErrorClassComm      uint32 = 7
)

// Standard error code values used by the codecs in this package.
const (
	ErrorCodeUnknownObject          uint32 = 31
	ErrorCodeUnknownProperty        uint32 = 32
	ErrorCodeWriteAccessDenied      uint32 = 40
	ErrorCodeInvalidArrayIndex      uint32 = 42
	ErrorCodeValueOutOfRange        uint32 = 37
	ErrorCodePasswordFailure        uint32 = 26
	ErrorCodeInconsistentParameters uint32 = 7
	ErrorCodeOther                  uint32 = 0
)

func newServiceError(class, code uint32, msg string) *ServiceError {
	return &ServiceError{Class: class, Code: code, Msg: msg}
}

// ErrMalformed wraps decode failures from internal/bacapp that the
// service layer cannot proceed past.
var ErrMalformed = errors.New("malformed apdu")

func wrapMalformed(field string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrMalformed, field, err)
}
