package service

import (
	"bytes"

	"github.com/bacnet-stack/bacnet-core/internal/bacapp"
)

// EventSummary is one element of a GetEventInformation-Ack's event
// list. Per-transition timestamps are modeled as plain
// Time values rather than the standard's full BACnetTimeStamp CHOICE
// (time | sequence-number | date-time): the core only needs
// last-transition wall-clock time for display, and a typed slice keeps
// the decoder's shape explicit rather than reproducing a three-way
// union the rest of this engine never consumes.
type EventSummary struct {
	Object           bacapp.ObjectID
	State            uint32
	AckedTransitions bacapp.BitString // 3 bits: ToOffnormal, ToFault, ToNormal
	EventTimestamps  [3]bacapp.Time
	NotifyType       uint32
	EventEnable      bacapp.BitString // 3 bits
	EventPriorities  [3]uint32
}

func (e EventSummary) encode(buf *bytes.Buffer) {
	bacapp.EncodeContextObjectID(buf, 0, e.Object)
	bacapp.EncodeContextEnumerated(buf, 1, e.State)
	bacapp.EncodeContextBitString(buf, 2, e.AckedTransitions)
	bacapp.EncodeOpeningTag(buf, 3)
	for _, t := range e.EventTimestamps {
		bacapp.EncodeTime(buf, t)
	}
	bacapp.EncodeClosingTag(buf, 3)
	bacapp.EncodeContextEnumerated(buf, 4, e.NotifyType)
	bacapp.EncodeContextBitString(buf, 5, e.EventEnable)
	bacapp.EncodeOpeningTag(buf, 6)
	for _, p := range e.EventPriorities {
		bacapp.EncodeUnsigned(buf, uint64(p))
	}
	bacapp.EncodeClosingTag(buf, 6)
}

func decodeEventSummary(data []byte) (EventSummary, int, error) {
	var e EventSummary

	obj, n, err := bacapp.DecodeContextObjectID(data, 0)
	if err != nil {
		return e, 0, wrapMalformed("objectIdentifier", err)
	}
	e.Object = obj
	pos := n

	state, n, err := bacapp.DecodeContextUnsigned(data[pos:], 1)
	if err != nil {
		return e, 0, wrapMalformed("eventState", err)
	}
	e.State = uint32(state)
	pos += n

	acked, n, err := decodeContextBitString(data[pos:], 2)
	if err != nil {
		return e, 0, wrapMalformed("acknowledgedTransitions", err)
	}
	e.AckedTransitions = acked
	pos += n

	openN, err := bacapp.DecodeConstructedOpening(data[pos:], 3)
	if err != nil {
		return e, 0, wrapMalformed("eventTimestamps opening", err)
	}
	pos += openN
	for i := 0; i < 3; i++ {
		t, n, err := bacapp.DecodeTime(data[pos:])
		if err != nil {
			return e, 0, wrapMalformed("eventTimestamps element", err)
		}
		e.EventTimestamps[i] = t
		pos += n
	}
	closeN, err := bacapp.DecodeConstructedClosing(data[pos:], 3)
	if err != nil {
		return e, 0, wrapMalformed("eventTimestamps closing", err)
	}
	pos += closeN

	notify, n, err := bacapp.DecodeContextUnsigned(data[pos:], 4)
	if err != nil {
		return e, 0, wrapMalformed("notifyType", err)
	}
	e.NotifyType = uint32(notify)
	pos += n

	enable, n, err := decodeContextBitString(data[pos:], 5)
	if err != nil {
		return e, 0, wrapMalformed("eventEnable", err)
	}
	e.EventEnable = enable
	pos += n

	openN, err = bacapp.DecodeConstructedOpening(data[pos:], 6)
	if err != nil {
		return e, 0, wrapMalformed("eventPriorities opening", err)
	}
	pos += openN
	for i := 0; i < 3; i++ {
		p, n, err := bacapp.DecodeUnsigned(data[pos:])
		if err != nil {
			return e, 0, wrapMalformed("eventPriorities element", err)
		}
		e.EventPriorities[i] = uint32(p)
		pos += n
	}
	closeN, err = bacapp.DecodeConstructedClosing(data[pos:], 6)
	if err != nil {
		return e, 0, wrapMalformed("eventPriorities closing", err)
	}
	pos += closeN

	return e, pos, nil
}

// GetEventInformationAck is BACnetGetEventInformationACK.
type GetEventInformationAck struct {
	Events     []EventSummary
	MoreEvents bool
}

// EncodeGetEventInformationAck appends the parameter sequence:
// opening [0], the event list, closing [0], more_events [1].
func EncodeGetEventInformationAck(buf *bytes.Buffer, a GetEventInformationAck) {
	bacapp.EncodeOpeningTag(buf, 0)
	for _, e := range a.Events {
		e.encode(buf)
	}
	bacapp.EncodeClosingTag(buf, 0)
	bacapp.EncodeContextUnsigned(buf, 1, boolToUint(a.MoreEvents))
}

func boolToUint(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

// DecodeGetEventInformationAck decodes the parameter sequence.
func DecodeGetEventInformationAck(data []byte) (GetEventInformationAck, int, error) {
	var a GetEventInformationAck

	openN, err := bacapp.DecodeConstructedOpening(data, 0)
	if err != nil {
		return a, 0, wrapMalformed("listOfEventSummaries opening", err)
	}
	pos := openN

	for {
		tag, _, err := bacapp.DecodeTag(data[pos:])
		if err != nil {
			return a, 0, wrapMalformed("listOfEventSummaries", err)
		}
		if tag.Closing && tag.Number == 0 {
			closeN, _ := bacapp.DecodeConstructedClosing(data[pos:], 0)
			pos += closeN
			break
		}
		e, n, err := decodeEventSummary(data[pos:])
		if err != nil {
			return a, 0, err
		}
		a.Events = append(a.Events, e)
		pos += n
	}

	more, n, err := bacapp.DecodeContextUnsigned(data[pos:], 1)
	if err != nil {
		return a, 0, wrapMalformed("moreEvents", err)
	}
	a.MoreEvents = more != 0
	pos += n

	return a, pos, nil
}
