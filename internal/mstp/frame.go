package mstp

// EncodeFrame serializes an outbound MS/TP frame to its on-wire octets:
// two preamble octets, the five-octet header, the header CRC, and, when
// data is non-empty, the payload followed by its two-octet data CRC
// It is the transmit-side counterpart to ReceiveFSM.
func EncodeFrame(frameType FrameType, dest, src byte, data []byte) []byte {
	header := [5]byte{byte(frameType), dest, src, byte(len(data) >> 8), byte(len(data))}

	out := make([]byte, 0, 8+len(data)+2)
	out = append(out, preambleByte1, preambleByte2)
	out = append(out, header[:]...)
	out = append(out, HeaderCRC(header))
	if len(data) > 0 {
		out = append(out, data...)
		crc := DataCRC(data)
		out = append(out, byte(crc), byte(crc>>8))
	}
	return out
}
