package service

import (
	"bytes"

	"github.com/bacnet-stack/bacnet-core/internal/bacapp"
)

// ReadPropertyMultipleRequest is BACnetReadPropertyMultipleRequest: a
// list of per-object property read specifications.
type ReadPropertyMultipleRequest struct {
	Specs []bacapp.ReadAccessSpecification
}

// EncodeReadPropertyMultipleRequest appends the parameter sequence: the
// list of ReadAccessSpecification elements, back to back, untagged at
// the top level (each element self-delimits via its own context tags).
func EncodeReadPropertyMultipleRequest(buf *bytes.Buffer, r ReadPropertyMultipleRequest) {
	for _, s := range r.Specs {
		s.Encode(buf)
	}
}

// DecodeReadPropertyMultipleRequest decodes the parameter sequence,
// consuming ReadAccessSpecification elements until data is exhausted.
func DecodeReadPropertyMultipleRequest(data []byte) (ReadPropertyMultipleRequest, int, error) {
	var r ReadPropertyMultipleRequest
	pos := 0
	for pos < len(data) {
		spec, n, err := bacapp.DecodeReadAccessSpecification(data[pos:])
		if err != nil {
			return r, 0, wrapMalformed("read-access-specification", err)
		}
		r.Specs = append(r.Specs, spec)
		pos += n
	}
	return r, pos, nil
}

// ReadPropertyMultipleAck is BACnetReadPropertyMultipleAck: a list of
// per-object results.
type ReadPropertyMultipleAck struct {
	Results []bacapp.ReadAccessResult
}

// EncodeReadPropertyMultipleAck appends the parameter sequence.
func EncodeReadPropertyMultipleAck(buf *bytes.Buffer, a ReadPropertyMultipleAck) error {
	for _, r := range a.Results {
		if err := r.Encode(buf); err != nil {
			return err
		}
	}
	return nil
}

// DecodeReadPropertyMultipleAck decodes the parameter sequence.
func DecodeReadPropertyMultipleAck(data []byte) (ReadPropertyMultipleAck, int, error) {
	var a ReadPropertyMultipleAck
	pos := 0
	for pos < len(data) {
		result, n, err := bacapp.DecodeReadAccessResult(data[pos:])
		if err != nil {
			return a, 0, wrapMalformed("read-access-result", err)
		}
		a.Results = append(a.Results, result)
		pos += n
	}
	return a, pos, nil
}
