package bacapp

// Address is a BACnet network address: a 16-bit network
// number plus an opaque MAC of up to 7 bytes. A zero-length Mac denotes
// local broadcast; Network == BroadcastNetwork denotes global broadcast.
// Values are freely copied.
type Address struct {
	Network uint16
	Mac     []byte

	// Routed addresses optionally carry a source/destination tuple
	//. SourceNet/SourceMac are populated by a router
	// forwarding a message on behalf of another network.
	SourceNet uint16
	SourceMac []byte
}

const (
	NetworkLocal     uint16 = 0
	NetworkBroadcast uint16 = 0xFFFF
)

// IsBroadcast reports whether the address is a local or global broadcast.
func (a Address) IsBroadcast() bool {
	return len(a.Mac) == 0 || a.Network == NetworkBroadcast
}

// Equal compares two addresses by network and MAC only (routing fields
// are transport metadata, not part of peer identity).
func (a Address) Equal(o Address) bool {
	if a.Network != o.Network || len(a.Mac) != len(o.Mac) {
		return false
	}
	for i := range a.Mac {
		if a.Mac[i] != o.Mac[i] {
			return false
		}
	}
	return true
}
