package service

import (
	"bytes"

	"github.com/bacnet-stack/bacnet-core/internal/bacapp"
)

// TimeSynchronizationRequest is shared by TimeSynchronization and
// UTCTimeSynchronization (unconfirmed): a Date followed by a Time,
// both application-tagged with no wrapping sequence tag.
type TimeSynchronizationRequest struct {
	Date bacapp.Date
	Time bacapp.Time
}

// EncodeTimeSynchronizationRequest appends the parameter sequence.
func EncodeTimeSynchronizationRequest(buf *bytes.Buffer, r TimeSynchronizationRequest) {
	bacapp.EncodeDate(buf, r.Date)
	bacapp.EncodeTime(buf, r.Time)
}

// DecodeTimeSynchronizationRequest decodes the parameter sequence. The
// same decoder serves both TimeSynchronization and
// UTCTimeSynchronization — the distinction is carried by the
// unconfirmed service choice octet, not the payload shape.
func DecodeTimeSynchronizationRequest(data []byte) (TimeSynchronizationRequest, int, error) {
	var r TimeSynchronizationRequest

	d, n, err := bacapp.DecodeDate(data)
	if err != nil {
		return r, 0, wrapMalformed("date", err)
	}
	r.Date = d
	pos := n

	t, n, err := bacapp.DecodeTime(data[pos:])
	if err != nil {
		return r, 0, wrapMalformed("time", err)
	}
	r.Time = t
	pos += n

	return r, pos, nil
}
