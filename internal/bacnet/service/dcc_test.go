package service

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDCC_EncodeDecode covers state=Disable,
// duration=60, password="valid" round-trips identically.
func TestDCC_EncodeDecode(t *testing.T) {
	duration := uint16(60)
	password := "valid"
	r := DeviceCommunicationControlRequest{
		Duration: &duration,
		State:    CommunicationDisable,
		Password: &password,
	}
	var buf bytes.Buffer
	EncodeDeviceCommunicationControlRequest(&buf, r)
	got, n, err := DecodeDeviceCommunicationControlRequest(buf.Bytes())
	require.NoError(t, err)
	require.NotNil(t, got.Duration)
	assert.Equal(t, duration, *got.Duration)
	assert.Equal(t, CommunicationDisable, got.State)
	require.NotNil(t, got.Password)
	assert.Equal(t, password, *got.Password)
	assert.Equal(t, buf.Len(), n)
}

func TestDCC_EnableForcesZeroDuration(t *testing.T) {
	duration := uint16(60)
	r := DeviceCommunicationControlRequest{Duration: &duration, State: CommunicationEnable}
	var buf bytes.Buffer
	EncodeDeviceCommunicationControlRequest(&buf, r)
	got, _, err := DecodeDeviceCommunicationControlRequest(buf.Bytes())
	require.NoError(t, err)
	assert.Nil(t, got.Duration)
}

func TestCheckPassword_NoConfiguredPassword_AcceptsAnything(t *testing.T) {
	provided := "invalid"
	assert.NoError(t, CheckPassword(nil, &provided))
	assert.NoError(t, CheckPassword(nil, nil))
}

func TestCheckPassword_ConfiguredPassword_RequiresMatch(t *testing.T) {
	configured := "valid"

	valid := "valid"
	assert.NoError(t, CheckPassword(&configured, &valid))

	invalid := "invalid"
	err := CheckPassword(&configured, &invalid)
	var svcErr *ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, ErrorClassSecurity, svcErr.Class)
	assert.Equal(t, ErrorCodePasswordFailure, svcErr.Code)

	assert.Error(t, CheckPassword(&configured, nil))
}
