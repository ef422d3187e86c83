package datalink

import (
	"sync"
	"time"

	"github.com/bacnet-stack/bacnet-core/internal/bacapp"
)

// DCCStatus mirrors the DeviceCommunicationControl enable-disable
// state machine (ANSI/ASHRAE 135 clause 16.1): a port may be fully
// enabled, disabled outright, or disabled only for initiating new
// requests while still able to respond.
type DCCStatus int

const (
	DCCEnabled DCCStatus = iota
	DCCDisabled
	DCCDisabledInitiation
)

// DCCState tracks DeviceCommunicationControl on a single Port. Holding
// this on Port instead of a package global lets a process
// run more than one port with independently muted communications.
type DCCState struct {
	mu      sync.Mutex
	status  DCCStatus
	expires time.Time // zero means no duration was given: stays until re-enabled
}

// Apply transitions DCC state, matching the standard's semantics: a
// zero duration means "until further notice."
func (d *DCCState) Apply(status DCCStatus, duration time.Duration, now time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.status = status
	if duration > 0 {
		d.expires = now.Add(duration)
	} else {
		d.expires = time.Time{}
	}
}

// Status reports the current DCC status, automatically reverting to
// Enabled once a timed disable has expired.
func (d *DCCState) Status(now time.Time) DCCStatus {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.status != DCCEnabled && !d.expires.IsZero() && !now.Before(d.expires) {
		d.status = DCCEnabled
		d.expires = time.Time{}
	}
	return d.status
}

// MayInitiate reports whether this port may originate new requests.
func (d *DCCState) MayInitiate(now time.Time) bool {
	return d.Status(now) == DCCEnabled
}

// MayReceive reports whether this port may process inbound requests
// (DCCDisabledInitiation still allows responding to requests).
func (d *DCCState) MayReceive(now time.Time) bool {
	status := d.Status(now)
	return status == DCCEnabled || status == DCCDisabledInitiation
}

// Medium abstracts the physical/link-layer transmit path a Port drives:
// MS/TP over a serial UART, 802.2 over Ethernet, or BVLL over UDP. Each
// medium-specific file in this package (mstp.go, ethernet.go, bip.go)
// supplies an implementation.
type Medium interface {
	// Send transmits an NPDU+APDU payload to dest. Broadcast is
	// signaled by dest.IsBroadcast().
	Send(dest bacapp.Address, payload []byte) error
}

// Port is the PortContext that replaces the original stack's module
// globals: every entry point that used to reach into
// package-level state now takes a *Port explicitly, so a process can
// host multiple independent BACnet ports (e.g. one MS/TP port and one
// BACnet/IP port) without cross-talk.
type Port struct {
	LocalAddress bacapp.Address
	Medium       Medium
	DCC          DCCState

	// OnAPDU is invoked for every inbound NPDU carrying an application
	// layer payload once DCC permits receiving it. The APDU dispatcher
	// (internal/apdu) registers here.
	OnAPDU func(src bacapp.Address, apdu []byte)
}

// SendAPDU wraps apdu in an NPDU header and transmits it via the port's
// medium, honoring DCC's initiation gate.
func (p *Port) SendAPDU(dest bacapp.Address, apdu []byte, expectingReply bool, priority Priority, now time.Time) error {
	if !p.DCC.MayInitiate(now) {
		return errDCCInitiationDisabled
	}
	npdu := EncodeNPDU(NPDU{
		Dest:               dest,
		Src:                p.LocalAddress,
		DataExpectingReply: expectingReply,
		Priority:           priority,
	})
	return p.Medium.Send(dest, append(npdu, apdu...))
}

// deliver decodes an inbound link-layer payload's NPDU header and, for
// an application-layer NSDU, routes it to OnAPDU. Network-layer
// messages (routing, DCC is carried at the application layer, not
// here) are silently dropped; the router module that would act on them
// is out of scope.
func (p *Port) deliver(src bacapp.Address, frame []byte, now time.Time) {
	n, consumed, err := DecodeNPDU(frame)
	if err != nil || n.NetworkLayerMessage {
		return
	}
	if !p.DCC.MayReceive(now) {
		return
	}
	apdu := frame[consumed:]
	if p.OnAPDU != nil {
		p.OnAPDU(src, apdu)
	}
}

var errDCCInitiationDisabled = &linkError{"datalink: initiation disabled by DeviceCommunicationControl"}

type linkError struct{ msg string }

func (e *linkError) Error() string { return e.msg }
