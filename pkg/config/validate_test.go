package config

import (
	"strings"
	"testing"
)

func TestValidate_ValidConfig(t *testing.T) {
	if err := Validate(GetDefaultConfig()); err != nil {
		t.Errorf("expected valid config to pass validation, got error: %v", err)
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Level = "INVALID"

	if err := Validate(cfg); err == nil {
		t.Fatal("expected validation error for invalid log level")
	}
}

func TestValidate_InvalidLogFormat(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Format = "xml"

	if err := Validate(cfg); err == nil {
		t.Fatal("expected validation error for invalid log format")
	}
}

func TestValidate_InvalidDatalinkMode(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Datalink.Mode = "carrier-pigeon"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error for invalid datalink mode")
	}
	if !strings.Contains(err.Error(), "datalink.mode") {
		t.Errorf("expected error about datalink.mode, got: %v", err)
	}
}

func TestValidate_InvalidMSTPBaudRate(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Datalink.Mode = "mstp"
	cfg.Datalink.MSTP.BaudRate = 1200

	if err := Validate(cfg); err == nil {
		t.Fatal("expected validation error for unsupported baud rate")
	}
}

func TestValidate_InvalidDeviceInstance(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Device.Instance = 5000000

	if err := Validate(cfg); err == nil {
		t.Fatal("expected validation error for out-of-range device instance")
	}
}

func TestValidate_DCCPasswordTooLong(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Device.DCCPassword = strings.Repeat("x", 21)

	if err := Validate(cfg); err == nil {
		t.Fatal("expected validation error for dcc_password over 20 characters")
	}
}

func TestValidate_TelemetryEnabledWithoutEndpoint(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Telemetry.Enabled = true
	cfg.Telemetry.Endpoint = ""

	if err := Validate(cfg); err == nil {
		t.Fatal("expected validation error for telemetry enabled without endpoint")
	}
}

func TestValidate_TelemetrySampleRateOutOfRange(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Telemetry.SampleRate = 1.5

	if err := Validate(cfg); err == nil {
		t.Fatal("expected validation error for sample rate out of range")
	}
}

func TestValidate_InvalidSegmentationWindowSize(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Segmentation.WindowSize = 200

	if err := Validate(cfg); err == nil {
		t.Fatal("expected validation error for window size out of range")
	}
}

func TestValidate_ShutdownTimeoutMustBePositive(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.ShutdownTimeout = 0

	if err := Validate(cfg); err == nil {
		t.Fatal("expected validation error for zero shutdown timeout")
	}
}
