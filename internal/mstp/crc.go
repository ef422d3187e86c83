// Package mstp implements the MS/TP data-link state machines: the
// receive-frame FSM, the master-node token-passing FSM, and zero-config
// auto-MAC discovery.
package mstp

// CRC8 computes the running MS/TP header CRC (polynomial 0xA4) over
// dataValue, folding it into crc. Callers start with crc=0xFF
// and invert the final result to get the transmitted/verified value,
// per the standard's convention.
func CRC8(dataValue byte, crc byte) byte {
	c := crc ^ dataValue
	for i := 0; i < 8; i++ {
		if c&1 != 0 {
			c = (c >> 1) ^ 0xA4
		} else {
			c = c >> 1
		}
	}
	return c
}

// HeaderCRC computes the CRC-8 over the five fixed header octets
// (FrameType, Dest, Src, LenHi, LenLo) and returns the value that must
// match the sixth octet on the wire (the one's complement of the
// running CRC, per the standard).
func HeaderCRC(header [5]byte) byte {
	crc := byte(0xFF)
	for _, b := range header {
		crc = CRC8(b, crc)
	}
	return ^crc
}

// VerifyHeaderCRC reports whether the received sixth octet matches the
// CRC-8 computed over the five header octets.
func VerifyHeaderCRC(header [5]byte, received byte) bool {
	return HeaderCRC(header) == received
}

// CRC16 computes the running MS/TP data CRC (generator polynomial
// X^16 + X^12 + X^5 + 1, applied here in its bit-reflected form 0x8408 so
// the computation can run LSB-first one octet at a time) over dataValue,
// folding it into crc. Callers start with crc=0xFFFF.
func CRC16(dataValue byte, crc uint16) uint16 {
	c := crc ^ uint16(dataValue)
	for i := 0; i < 8; i++ {
		if c&1 != 0 {
			c = (c >> 1) ^ 0x8408
		} else {
			c = c >> 1
		}
	}
	return c
}

// DataCRC computes the CRC-16 over payload and returns the value that
// must match the two trailing octets on the wire (one's complement,
// little-endian, per the standard).
func DataCRC(payload []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range payload {
		crc = CRC16(b, crc)
	}
	return ^crc
}

// VerifyDataCRC reports whether the received little-endian CRC-16
// matches the CRC-16 computed over payload.
func VerifyDataCRC(payload []byte, receivedLo, receivedHi byte) bool {
	want := DataCRC(payload)
	got := uint16(receivedLo) | uint16(receivedHi)<<8
	return want == got
}

// CRC32KInitial and CRC32KResidue are the seed and expected post-check
// residue for the extended-frame CRC-32K (Annex G.3.1), used only by the
// COBS-framed extended frame types.
const (
	CRC32KInitial = 0xFFFFFFFF
	CRC32KResidue = 0x0CE9E46C
)

// CalcCRC32K folds one octet into the running extended-frame CRC-32K,
// applied here in its bit-reflected form (0xEB31D82E) so the computation
// can run LSB-first one octet at a time, matching CRC8/CRC16 above.
func CalcCRC32K(dataValue byte, crc uint32) uint32 {
	c := crc ^ uint32(dataValue)
	for i := 0; i < 8; i++ {
		if c&1 != 0 {
			c = (c >> 1) ^ 0xEB31D82E
		} else {
			c = c >> 1
		}
	}
	return c
}
