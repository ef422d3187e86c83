package service

import (
	"bytes"
	"fmt"

	"github.com/bacnet-stack/bacnet-core/internal/bacapp"
)

// FileAccessKind discriminates the Stream/Record access selector shared
// by AtomicReadFile and AtomicWriteFile.
type FileAccessKind uint8

const (
	FileAccessStream FileAccessKind = iota
	FileAccessRecord
)

const (
	tagStreamAccess = 0
	tagRecordAccess = 1
)

// AtomicReadFileRequest is BACnetAtomicReadFileRequest.
type AtomicReadFileRequest struct {
	File   bacapp.ObjectID
	Access FileAccessKind

	// Stream access.
	StartPosition int32
	OctetCount    uint32

	// Record access.
	StartRecord int32
	RecordCount uint32
}

// EncodeAtomicReadFileRequest appends the parameter sequence.
func EncodeAtomicReadFileRequest(buf *bytes.Buffer, r AtomicReadFileRequest) {
	bacapp.EncodeObjectID(buf, r.File)
	switch r.Access {
	case FileAccessStream:
		bacapp.EncodeOpeningTag(buf, tagStreamAccess)
		bacapp.EncodeSigned(buf, r.StartPosition)
		bacapp.EncodeUnsigned(buf, uint64(r.OctetCount))
		bacapp.EncodeClosingTag(buf, tagStreamAccess)
	case FileAccessRecord:
		bacapp.EncodeOpeningTag(buf, tagRecordAccess)
		bacapp.EncodeSigned(buf, r.StartRecord)
		bacapp.EncodeUnsigned(buf, uint64(r.RecordCount))
		bacapp.EncodeClosingTag(buf, tagRecordAccess)
	}
}

// DecodeAtomicReadFileRequest decodes the parameter sequence.
func DecodeAtomicReadFileRequest(data []byte) (AtomicReadFileRequest, int, error) {
	var r AtomicReadFileRequest

	file, n, err := bacapp.DecodeObjectID(data)
	if err != nil {
		return r, 0, wrapMalformed("file-identifier", err)
	}
	r.File = file
	pos := n

	tag, tn, err := bacapp.DecodeTag(data[pos:])
	if err != nil {
		return r, 0, wrapMalformed("access selector", err)
	}
	if !tag.Opening {
		return r, 0, fmt.Errorf("%w: expected access selector", ErrMalformed)
	}
	body := pos + tn

	switch tag.Number {
	case tagStreamAccess:
		start, n, err := bacapp.DecodeSigned(data[body:])
		if err != nil {
			return r, 0, wrapMalformed("start-position", err)
		}
		count, cn, err := bacapp.DecodeUnsigned(data[body+n:])
		if err != nil {
			return r, 0, wrapMalformed("requested-octet-count", err)
		}
		closeN, err := bacapp.DecodeConstructedClosing(data[body+n+cn:], tagStreamAccess)
		if err != nil {
			return r, 0, wrapMalformed("access selector closing", err)
		}
		r.Access = FileAccessStream
		r.StartPosition = start
		r.OctetCount = uint32(count)
		pos = body + n + cn + closeN

	case tagRecordAccess:
		start, n, err := bacapp.DecodeSigned(data[body:])
		if err != nil {
			return r, 0, wrapMalformed("start-record", err)
		}
		count, cn, err := bacapp.DecodeUnsigned(data[body+n:])
		if err != nil {
			return r, 0, wrapMalformed("requested-record-count", err)
		}
		closeN, err := bacapp.DecodeConstructedClosing(data[body+n+cn:], tagRecordAccess)
		if err != nil {
			return r, 0, wrapMalformed("access selector closing", err)
		}
		r.Access = FileAccessRecord
		r.StartRecord = start
		r.RecordCount = uint32(count)
		pos = body + n + cn + closeN

	default:
		return r, 0, fmt.Errorf("%w: unknown file access selector %d", ErrMalformed, tag.Number)
	}
	return r, pos, nil
}

// AtomicReadFileAck is BACnetAtomicReadFileAck.
type AtomicReadFileAck struct {
	EndOfFile bool
	Access    FileAccessKind

	// Stream access.
	StartPosition int32
	Data          []byte

	// Record access.
	StartRecord int32
	Records     [][]byte
}

// EncodeAtomicReadFileAck appends the parameter sequence.
func EncodeAtomicReadFileAck(buf *bytes.Buffer, a AtomicReadFileAck) {
	bacapp.EncodeBoolean(buf, a.EndOfFile)
	switch a.Access {
	case FileAccessStream:
		bacapp.EncodeOpeningTag(buf, tagStreamAccess)
		bacapp.EncodeSigned(buf, a.StartPosition)
		bacapp.EncodeOctetString(buf, a.Data)
		bacapp.EncodeClosingTag(buf, tagStreamAccess)
	case FileAccessRecord:
		bacapp.EncodeOpeningTag(buf, tagRecordAccess)
		bacapp.EncodeSigned(buf, a.StartRecord)
		bacapp.EncodeUnsigned(buf, uint64(len(a.Records)))
		for _, rec := range a.Records {
			bacapp.EncodeOctetString(buf, rec)
		}
		bacapp.EncodeClosingTag(buf, tagRecordAccess)
	}
}

// DecodeAtomicReadFileAck decodes the parameter sequence.
func DecodeAtomicReadFileAck(data []byte) (AtomicReadFileAck, int, error) {
	var a AtomicReadFileAck

	eof, n, err := bacapp.DecodeBoolean(data)
	if err != nil {
		return a, 0, wrapMalformed("end-of-file", err)
	}
	a.EndOfFile = eof
	pos := n

	tag, tn, err := bacapp.DecodeTag(data[pos:])
	if err != nil {
		return a, 0, wrapMalformed("access selector", err)
	}
	if !tag.Opening {
		return a, 0, fmt.Errorf("%w: expected access selector", ErrMalformed)
	}
	body := pos + tn

	switch tag.Number {
	case tagStreamAccess:
		start, n, err := bacapp.DecodeSigned(data[body:])
		if err != nil {
			return a, 0, wrapMalformed("start-position", err)
		}
		octets, on, err := bacapp.DecodeOctetString(data[body+n:])
		if err != nil {
			return a, 0, wrapMalformed("file-data", err)
		}
		closeN, err := bacapp.DecodeConstructedClosing(data[body+n+on:], tagStreamAccess)
		if err != nil {
			return a, 0, wrapMalformed("access selector closing", err)
		}
		a.Access = FileAccessStream
		a.StartPosition = start
		a.Data = octets
		pos = body + n + on + closeN

	case tagRecordAccess:
		start, n, err := bacapp.DecodeSigned(data[body:])
		if err != nil {
			return a, 0, wrapMalformed("start-record", err)
		}
		count, cn, err := bacapp.DecodeUnsigned(data[body+n:])
		if err != nil {
			return a, 0, wrapMalformed("returned-record-count", err)
		}
		a.Access = FileAccessRecord
		a.StartRecord = start
		recPos := body + n + cn
		for i := uint64(0); i < count; i++ {
			rec, rn, err := bacapp.DecodeOctetString(data[recPos:])
			if err != nil {
				return a, 0, wrapMalformed(fmt.Sprintf("record %d", i), err)
			}
			a.Records = append(a.Records, rec)
			recPos += rn
		}
		closeN, err := bacapp.DecodeConstructedClosing(data[recPos:], tagRecordAccess)
		if err != nil {
			return a, 0, wrapMalformed("access selector closing", err)
		}
		pos = recPos + closeN

	default:
		return a, 0, fmt.Errorf("%w: unknown file access selector %d", ErrMalformed, tag.Number)
	}
	return a, pos, nil
}

// AtomicWriteFileRequest is BACnetAtomicWriteFileRequest.
type AtomicWriteFileRequest struct {
	File   bacapp.ObjectID
	Access FileAccessKind

	StartPosition int32
	Data          []byte

	StartRecord int32
	Records     [][]byte
}

// EncodeAtomicWriteFileRequest appends the parameter sequence.
func EncodeAtomicWriteFileRequest(buf *bytes.Buffer, r AtomicWriteFileRequest) {
	bacapp.EncodeObjectID(buf, r.File)
	switch r.Access {
	case FileAccessStream:
		bacapp.EncodeOpeningTag(buf, tagStreamAccess)
		bacapp.EncodeSigned(buf, r.StartPosition)
		bacapp.EncodeOctetString(buf, r.Data)
		bacapp.EncodeClosingTag(buf, tagStreamAccess)
	case FileAccessRecord:
		bacapp.EncodeOpeningTag(buf, tagRecordAccess)
		bacapp.EncodeSigned(buf, r.StartRecord)
		bacapp.EncodeUnsigned(buf, uint64(len(r.Records)))
		for _, rec := range r.Records {
			bacapp.EncodeOctetString(buf, rec)
		}
		bacapp.EncodeClosingTag(buf, tagRecordAccess)
	}
}

// DecodeAtomicWriteFileRequest decodes the parameter sequence.
func DecodeAtomicWriteFileRequest(data []byte) (AtomicWriteFileRequest, int, error) {
	var r AtomicWriteFileRequest

	file, n, err := bacapp.DecodeObjectID(data)
	if err != nil {
		return r, 0, wrapMalformed("file-identifier", err)
	}
	r.File = file
	pos := n

	tag, tn, err := bacapp.DecodeTag(data[pos:])
	if err != nil {
		return r, 0, wrapMalformed("access selector", err)
	}
	if !tag.Opening {
		return r, 0, fmt.Errorf("%w: expected access selector", ErrMalformed)
	}
	body := pos + tn

	switch tag.Number {
	case tagStreamAccess:
		start, n, err := bacapp.DecodeSigned(data[body:])
		if err != nil {
			return r, 0, wrapMalformed("start-position", err)
		}
		octets, on, err := bacapp.DecodeOctetString(data[body+n:])
		if err != nil {
			return r, 0, wrapMalformed("file-data", err)
		}
		closeN, err := bacapp.DecodeConstructedClosing(data[body+n+on:], tagStreamAccess)
		if err != nil {
			return r, 0, wrapMalformed("access selector closing", err)
		}
		r.Access = FileAccessStream
		r.StartPosition = start
		r.Data = octets
		pos = body + n + on + closeN

	case tagRecordAccess:
		start, n, err := bacapp.DecodeSigned(data[body:])
		if err != nil {
			return r, 0, wrapMalformed("start-record", err)
		}
		count, cn, err := bacapp.DecodeUnsigned(data[body+n:])
		if err != nil {
			return r, 0, wrapMalformed("record-count", err)
		}
		r.Access = FileAccessRecord
		r.StartRecord = start
		recPos := body + n + cn
		for i := uint64(0); i < count; i++ {
			rec, rn, err := bacapp.DecodeOctetString(data[recPos:])
			if err != nil {
				return r, 0, wrapMalformed(fmt.Sprintf("record %d", i), err)
			}
			r.Records = append(r.Records, rec)
			recPos += rn
		}
		closeN, err := bacapp.DecodeConstructedClosing(data[recPos:], tagRecordAccess)
		if err != nil {
			return r, 0, wrapMalformed("access selector closing", err)
		}
		pos = recPos + closeN

	default:
		return r, 0, fmt.Errorf("%w: unknown file access selector %d", ErrMalformed, tag.Number)
	}
	return r, pos, nil
}

// AtomicWriteFileAck is BACnetAtomicWriteFileAck: the effective start
// position/record the write landed at.
type AtomicWriteFileAck struct {
	Access        FileAccessKind
	StartPosition int32
	StartRecord   int32
}

// EncodeAtomicWriteFileAck appends the parameter sequence.
func EncodeAtomicWriteFileAck(buf *bytes.Buffer, a AtomicWriteFileAck) {
	switch a.Access {
	case FileAccessStream:
		bacapp.EncodeContextSigned(buf, tagStreamAccess, a.StartPosition)
	case FileAccessRecord:
		bacapp.EncodeContextSigned(buf, tagRecordAccess, a.StartRecord)
	}
}

// DecodeAtomicWriteFileAck decodes the parameter sequence.
func DecodeAtomicWriteFileAck(data []byte) (AtomicWriteFileAck, int, error) {
	var a AtomicWriteFileAck
	tag, _, err := bacapp.DecodeTag(data)
	if err != nil {
		return a, 0, wrapMalformed("file-start", err)
	}
	switch tag.Number {
	case tagStreamAccess:
		v, n, err := decodeContextSigned(data, tagStreamAccess)
		if err != nil {
			return a, 0, wrapMalformed("file-start-position", err)
		}
		a.Access = FileAccessStream
		a.StartPosition = v
		return a, n, nil
	case tagRecordAccess:
		v, n, err := decodeContextSigned(data, tagRecordAccess)
		if err != nil {
			return a, 0, wrapMalformed("file-start-record", err)
		}
		a.Access = FileAccessRecord
		a.StartRecord = v
		return a, n, nil
	default:
		return a, 0, fmt.Errorf("%w: unknown file access selector %d", ErrMalformed, tag.Number)
	}
}

func decodeContextSigned(data []byte, number uint32) (int32, int, error) {
	tag, n, err := bacapp.DecodeTag(data)
	if err != nil {
		return 0, 0, err
	}
	if !tag.IsContextSpecific(number) {
		return 0, 0, fmt.Errorf("%w: expected context signed [%d]", bacapp.ErrInvalidTag, number)
	}
	v, err := bacapp.DecodeSignedValue(data[n:], tag.Length)
	if err != nil {
		return 0, 0, err
	}
	return v, n + int(tag.Length), nil
}
