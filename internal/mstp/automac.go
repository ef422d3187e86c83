package mstp

import (
	"math/rand"
	"time"
)

// Zero-Config auto-MAC slot bookkeeping, ported from the
// reference stack's automac.c. The original keeps a single global table;
// here it is owned by an AutoMAC value so a process can run more than one
// port.

const (
	// AutoMACSlotsOffset is the first candidate address Zero-Config will
	// pick; addresses below it are reserved for statically configured
	// masters.
	AutoMACSlotsOffset = 32
	// AutoMACSlotsMax is one past the highest candidate address.
	AutoMACSlotsMax = 128
)

type autoMACSlot struct {
	pfm      bool // a Poll-For-Master targeting this address went unanswered
	token    bool // a token was observed passed to this address
	emitter  bool // this address was seen as the source of any frame
	reserved bool // below AutoMACSlotsOffset; never eligible
}

// AutoMAC tracks which MS/TP addresses are observed as taken so a
// Zero-Config node can pick an unused one and detect collisions.
type AutoMAC struct {
	slots        [AutoMACSlotsMax]autoMACSlot
	address      byte
	timeSlot     time.Duration
	pfmCycleDone bool
	rand         *rand.Rand
	tnoToken     time.Duration
	tslot        time.Duration
}

// NewAutoMAC creates an AutoMAC using the timing constants that also drive
// the owning MasterFSM, and picks an initial candidate address at random
// from the unreserved range.
func NewAutoMAC(tnoToken, tslot time.Duration, seed int64) *AutoMAC {
	a := &AutoMAC{
		rand:     rand.New(rand.NewSource(seed)),
		tnoToken: tnoToken,
		tslot:    tslot,
	}
	for i := 0; i < AutoMACSlotsOffset; i++ {
		a.slots[i].reserved = true
	}
	a.pickAddress()
	return a
}

// pickAddress chooses a new candidate address in [AutoMACSlotsOffset,
// AutoMACSlotsMax) and derives this node's no-token silence time slot from
// it: long enough to outlast a dropped token, plus an
// address-proportional offset so two colliding candidates don't retry in
// lockstep.
func (a *AutoMAC) pickAddress() {
	a.address = byte(AutoMACSlotsOffset + a.rand.Intn(AutoMACSlotsMax-AutoMACSlotsOffset))
	a.timeSlot = a.tnoToken + time.Duration(AutoMACSlotsMax)*a.tslot
	a.timeSlot += time.Duration(a.address) * a.tslot
}

// Address returns the current candidate (or settled) MAC address.
func (a *AutoMAC) Address() byte { return a.address }

// TimeSlot returns the silence duration this node should wait for before
// assuming the address is unclaimed.
func (a *AutoMAC) TimeSlot() time.Duration { return a.timeSlot }

// addressUsed reports whether a slot is known to be occupied, by any of
// the three independent signals the standard uses.
func (a *AutoMAC) addressUsed(mac byte) bool {
	if int(mac) >= AutoMACSlotsMax {
		return false
	}
	s := a.slots[mac]
	return s.emitter || s.reserved || s.token
}

// FreeAddressValid reports whether mac was seen in a Poll-For-Master cycle
// and is not otherwise known to be taken.
func (a *AutoMAC) FreeAddressValid(mac byte) bool {
	if int(mac) >= AutoMACSlotsMax {
		return false
	}
	return a.slots[mac].pfm && !a.addressUsed(mac)
}

// FreeAddressCount returns how many candidate addresses currently look free.
func (a *AutoMAC) FreeAddressCount() int {
	n := 0
	for i := 0; i < AutoMACSlotsMax; i++ {
		if a.FreeAddressValid(byte(i)) {
			n++
		}
	}
	return n
}

// FreeAddressAt returns the nth (0-indexed) free address, or false if
// fewer than n+1 are free.
func (a *AutoMAC) FreeAddressAt(n int) (byte, bool) {
	count := 0
	for i := 0; i < AutoMACSlotsMax; i++ {
		if a.FreeAddressValid(byte(i)) {
			if count == n {
				return byte(i), true
			}
			count++
		}
	}
	return 0, false
}

// PickFreeAddress selects a uniformly random free address, reseating this
// node's candidate and time slot if one is available.
func (a *AutoMAC) PickFreeAddress() (byte, bool) {
	count := a.FreeAddressCount()
	if count == 0 {
		return 0, false
	}
	mac, ok := a.FreeAddressAt(a.rand.Intn(count))
	if !ok {
		return 0, false
	}
	a.address = mac
	return mac, true
}

// NextStation scans forward from mac for the next address known to have
// held the token, for use as the Next_Station hint before a full
// Poll-For-Master cycle has completed. Returns (0, false) if none is known.
func (a *AutoMAC) NextStation(mac byte) (byte, bool) {
	test := (int(mac) + 1) % AutoMACSlotsMax
	for i := 0; i < AutoMACSlotsMax; i++ {
		if a.slots[test].token {
			return byte(test), true
		}
		test = (test + 1) % AutoMACSlotsMax
	}
	return 0, false
}

// ObservePollForMaster records a Poll-For-Master sent to mac. Once an
// address that was already polled is polled again (the poll cycle has
// wrapped) while at least one address looks free, PFMCycleComplete
// reports true.
func (a *AutoMAC) ObservePollForMaster(mac byte) {
	if int(mac) >= AutoMACSlotsMax {
		return
	}
	if a.slots[mac].pfm && a.FreeAddressCount() > 0 {
		a.pfmCycleDone = true
	}
	a.slots[mac].pfm = true
}

// ObserveToken records that a token was passed to mac.
func (a *AutoMAC) ObserveToken(mac byte) {
	if int(mac) < AutoMACSlotsMax {
		a.slots[mac].token = true
	}
}

// ObserveEmitter records that mac was seen as the source address of a
// frame, independent of whether it was a token or poll response.
func (a *AutoMAC) ObserveEmitter(mac byte) {
	if int(mac) < AutoMACSlotsMax {
		a.slots[mac].emitter = true
	}
}

// PFMCycleComplete reports whether enough Poll-For-Master responses have
// been observed to trust the free-address table.
func (a *AutoMAC) PFMCycleComplete() bool {
	return a.pfmCycleDone
}
