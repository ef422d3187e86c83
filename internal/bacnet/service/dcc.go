package service

import (
	"bytes"

	"github.com/bacnet-stack/bacnet-core/internal/bacapp"
)

// CommunicationState is BACnetEnableDisable.
type CommunicationState uint32

const (
	CommunicationEnable CommunicationState = iota
	CommunicationDisable
	CommunicationDisableInitiation
)

// DeviceCommunicationControlRequest is
// BACnetDeviceCommunicationControlRequest. Enabling communication
// always implies a zero duration;
// callers constructing a request for State==Enable should leave
// Duration nil.
type DeviceCommunicationControlRequest struct {
	Duration *uint16 // minutes; nil = indefinite
	State    CommunicationState
	Password *string // 1..20 characters
}

// EncodeDeviceCommunicationControlRequest appends the parameter
// sequence.
func EncodeDeviceCommunicationControlRequest(buf *bytes.Buffer, r DeviceCommunicationControlRequest) {
	if r.Duration != nil {
		bacapp.EncodeContextUnsigned(buf, 0, uint64(*r.Duration))
	}
	bacapp.EncodeContextEnumerated(buf, 1, uint32(r.State))
	if r.Password != nil {
		bacapp.EncodeContextCharacterString(buf, 2, bacapp.NewCharacterString(*r.Password))
	}
}

// DecodeDeviceCommunicationControlRequest decodes the parameter
// sequence and enforces the enable/duration validation rule: a
// decoded State==Enable with a non-nil Duration is normalized to nil,
// matching the real device's behavior rather than rejecting the PDU.
func DecodeDeviceCommunicationControlRequest(data []byte) (DeviceCommunicationControlRequest, int, error) {
	var r DeviceCommunicationControlRequest
	pos := 0

	if tag, _, err := bacapp.DecodeTag(data); err == nil && tag.IsContextSpecific(0) {
		dur, n, err := bacapp.DecodeContextUnsigned(data, 0)
		if err != nil {
			return r, 0, wrapMalformed("timeDuration", err)
		}
		d := uint16(dur)
		r.Duration = &d
		pos += n
	}

	state, n, err := bacapp.DecodeContextUnsigned(data[pos:], 1)
	if err != nil {
		return r, 0, wrapMalformed("enable-disable", err)
	}
	r.State = CommunicationState(state)
	pos += n

	if pos < len(data) {
		if tag, _, err := bacapp.DecodeTag(data[pos:]); err == nil && tag.IsContextSpecific(2) {
			pw, n, err := decodeContextCharacterString(data[pos:], 2)
			if err != nil {
				return r, 0, wrapMalformed("password", err)
			}
			s := pw.String()
			if len(s) < 1 || len(s) > 20 {
				return r, 0, newServiceError(ErrorClassSecurity, ErrorCodePasswordFailure, "password length out of range")
			}
			r.Password = &s
			pos += n
		}
	}

	if r.State == CommunicationEnable {
		r.Duration = nil
	}
	return r, pos, nil
}

// CheckPassword implements the DCC password rule: a peer
// with no configured password accepts any request (including one with
// a present password); a peer with a configured password requires an
// exact match.
func CheckPassword(configured *string, provided *string) error {
	if configured == nil {
		return nil
	}
	if provided == nil || *provided != *configured {
		return newServiceError(ErrorClassSecurity, ErrorCodePasswordFailure, "password mismatch")
	}
	return nil
}
