package mstp

// COBS (Consistent Overhead Byte Stuffing) framing for MS/TP's extended
// frame types, ported from the standard's reference cobs.c. COBS removes
// any 0x55 octet (the preamble byte) from the encoded stream so the
// receive FSM's preamble search can never falsely resynchronize inside a
// frame's body.

const cobsMask = preambleByte1

// cobsEncode writes one or more COBS code blocks for data into dst,
// removing mask-valued octets, and returns the encoded length. dst must
// have capacity for at least len(data) + len(data)/254 + 1 octets.
func cobsEncode(dst, data []byte, mask byte) int {
	codeIndex := 0
	writeIndex := 1
	code := byte(1)
	var lastCode byte

	for readIndex := 0; readIndex < len(data); {
		b := data[readIndex]
		readIndex++
		if b != 0 {
			dst[writeIndex] = b ^ mask
			writeIndex++
			code++
			if code != 255 {
				continue
			}
		}
		lastCode = code
		dst[codeIndex] = code ^ mask
		codeIndex = writeIndex
		writeIndex++
		code = 1
	}

	if lastCode == 255 && code == 1 {
		writeIndex--
	} else {
		dst[codeIndex] = code ^ mask
	}
	return writeIndex
}

// cobsDecode reverses cobsEncode, writing the original data to dst and
// returning its length, or 0 if the encoding is malformed.
func cobsDecode(dst, data []byte, mask byte) int {
	readIndex := 0
	writeIndex := 0
	var lastCode byte

	for readIndex < len(data) {
		code := data[readIndex] ^ mask
		lastCode = code
		if code == 0 || readIndex+int(code) > len(data) {
			return 0
		}
		readIndex++
		for code--; code > 0; code-- {
			dst[writeIndex] = data[readIndex] ^ mask
			writeIndex++
			readIndex++
		}
		if lastCode != 255 && readIndex < len(data) {
			dst[writeIndex] = 0
			writeIndex++
		}
	}
	return writeIndex
}

// cobsEncodedLen returns the worst-case buffer size cobsEncode needs for
// an input of n octets.
func cobsEncodedLen(n int) int {
	return n + n/254 + 2
}

// EncodeExtendedFrame COBS-encodes data and appends its CRC-32K, producing
// the combined Encoded Data and Encoded CRC-32K fields for an MS/TP
// extended frame's Length field.
func EncodeExtendedFrame(data []byte) []byte {
	dst := make([]byte, cobsEncodedLen(len(data))+cobsEncodedLen(4))
	dataLen := cobsEncode(dst, data, cobsMask)

	crc := uint32(CRC32KInitial)
	for _, b := range dst[:dataLen] {
		crc = CalcCRC32K(b, crc)
	}
	crc = ^crc
	crcBytes := []byte{byte(crc), byte(crc >> 8), byte(crc >> 16), byte(crc >> 24)}

	crcLen := cobsEncode(dst[dataLen:], crcBytes, cobsMask)
	return dst[:dataLen+crcLen]
}

// DecodeExtendedFrame reverses EncodeExtendedFrame, validating the
// trailing CRC-32K against the encoded data octets (not the decoded
// ones, per Annex G.3.1) and returning the decoded client data. Returns
// (nil, false) if the encoding is malformed or the CRC fails.
func DecodeExtendedFrame(encoded []byte) ([]byte, bool) {
	const encodedCRCLen = 5
	if len(encoded) < encodedCRCLen {
		return nil, false
	}
	dataFieldLen := len(encoded) - encodedCRCLen

	crc := uint32(CRC32KInitial)
	for _, b := range encoded[:dataFieldLen] {
		crc = CalcCRC32K(b, crc)
	}

	dst := make([]byte, len(encoded))
	dataLen := cobsDecode(dst, encoded[:dataFieldLen], cobsMask)

	crcBuf := make([]byte, 4)
	crcLen := cobsDecode(crcBuf, encoded[dataFieldLen:], cobsMask)
	if crcLen != 4 {
		return nil, false
	}

	for _, b := range crcBuf {
		crc = CalcCRC32K(b, crc)
	}
	if crc != CRC32KResidue {
		return nil, false
	}

	return dst[:dataLen], true
}
