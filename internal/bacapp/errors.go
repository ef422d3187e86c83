package bacapp

import "errors"

// Decode error sentinels. Service codecs built on this package (see
// internal/bacnet/service) translate these into the BACnet reject/abort
// taxonomy; the codec layer itself never retries,
// it only reports.
var (
	// ErrTruncated is returned when a decoder needs more bytes than are
	// available in the supplied slice.
	ErrTruncated = errors.New("bacapp: truncated data")

	// ErrInvalidTag is returned when a decoded tag does not match what
	// the caller expected (wrong class, wrong number, or an opening tag
	// without a matching closing tag of the same number).
	ErrInvalidTag = errors.New("bacapp: invalid tag")

	// ErrValueOutOfRange is returned when a decoded value's width or
	// magnitude falls outside what the wire format or the target type
	// allows (e.g. a signed integer wider than 4 bytes).
	ErrValueOutOfRange = errors.New("bacapp: value out of range")

	// ErrMissingRequiredField is returned by composite decoders when a
	// non-optional context tag is absent from the sequence.
	ErrMissingRequiredField = errors.New("bacapp: missing required field")

	// ErrUnknownField names a composite sequence that contains a
	// context tag number the decoder does not recognize. No decoder in
	// this package returns it; see composite.go for how unexpected tags
	// are handled.
	ErrUnknownField = errors.New("bacapp: unknown field in sequence")
)
