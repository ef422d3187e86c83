package service

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bacnet-stack/bacnet-core/internal/bacapp"
)

// TestAtomicReadFile_Stream covers the stream-access form.
func TestAtomicReadFile_Stream(t *testing.T) {
	req := AtomicReadFileRequest{
		File:          bacapp.ObjectID{Type: 10, Instance: 1},
		Access:        FileAccessStream,
		StartPosition: 0,
		OctetCount:    128,
	}
	var reqBuf bytes.Buffer
	EncodeAtomicReadFileRequest(&reqBuf, req)
	gotReq, n, err := DecodeAtomicReadFileRequest(reqBuf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, req, gotReq)
	assert.Equal(t, reqBuf.Len(), n)

	ack := AtomicReadFileAck{
		EndOfFile:     true,
		Access:        FileAccessStream,
		StartPosition: 0,
		Data:          []byte("Joshua-Mary-Anna-Christopher"),
	}
	var ackBuf bytes.Buffer
	EncodeAtomicReadFileAck(&ackBuf, ack)
	gotAck, n, err := DecodeAtomicReadFileAck(ackBuf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, ack.EndOfFile, gotAck.EndOfFile)
	assert.Equal(t, ack.Data, gotAck.Data)
	assert.Equal(t, ackBuf.Len(), n)
}

// TestAtomicReadFile_Record covers 16 records of
// the same string round-trip exactly.
func TestAtomicReadFile_Record(t *testing.T) {
	var records [][]byte
	for i := 0; i < 16; i++ {
		records = append(records, []byte("Joshua-Mary-Anna-Christopher"))
	}
	ack := AtomicReadFileAck{
		EndOfFile:   true,
		Access:      FileAccessRecord,
		StartRecord: 0,
		Records:     records,
	}
	var buf bytes.Buffer
	EncodeAtomicReadFileAck(&buf, ack)
	got, n, err := DecodeAtomicReadFileAck(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, got.Records, 16)
	for i, rec := range got.Records {
		assert.Equal(t, records[i], rec)
	}
	assert.Equal(t, buf.Len(), n)
}

func TestAtomicWriteFile_StreamAck_RoundTrip(t *testing.T) {
	ack := AtomicWriteFileAck{Access: FileAccessStream, StartPosition: 42}
	var buf bytes.Buffer
	EncodeAtomicWriteFileAck(&buf, ack)
	got, n, err := DecodeAtomicWriteFileAck(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, ack, got)
	assert.Equal(t, buf.Len(), n)
}

func TestAtomicWriteFile_RecordRequest_RoundTrip(t *testing.T) {
	req := AtomicWriteFileRequest{
		File:        bacapp.ObjectID{Type: 10, Instance: 2},
		Access:      FileAccessRecord,
		StartRecord: 0,
		Records:     [][]byte{[]byte("row1"), []byte("row2")},
	}
	var buf bytes.Buffer
	EncodeAtomicWriteFileRequest(&buf, req)
	got, n, err := DecodeAtomicWriteFileRequest(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, req, got)
	assert.Equal(t, buf.Len(), n)
}
