package config

import (
	"fmt"
	"strings"
)

// Validate checks a loaded Config for internally-inconsistent or
// out-of-range values that ApplyDefaults cannot repair on its own.
func Validate(cfg *Config) error {
	if err := validateLogging(&cfg.Logging); err != nil {
		return err
	}
	if err := validateTelemetry(&cfg.Telemetry); err != nil {
		return err
	}
	if err := validateMetrics(&cfg.Metrics); err != nil {
		return err
	}
	if err := validateDatalink(&cfg.Datalink); err != nil {
		return err
	}
	if err := validateSegmentation(&cfg.Segmentation); err != nil {
		return err
	}
	if err := validateDevice(&cfg.Device); err != nil {
		return err
	}
	if cfg.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown_timeout: must be greater than 0")
	}
	return nil
}

func validateLogging(cfg *LoggingConfig) error {
	switch strings.ToUpper(cfg.Level) {
	case "DEBUG", "INFO", "WARN", "ERROR":
	default:
		return fmt.Errorf("logging.level: must be oneof DEBUG INFO WARN ERROR, got %q", cfg.Level)
	}
	switch cfg.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format: must be oneof text json, got %q", cfg.Format)
	}
	if cfg.Output == "" {
		return fmt.Errorf("logging.output: required")
	}
	return nil
}

func validateTelemetry(cfg *TelemetryConfig) error {
	if cfg.Enabled && cfg.Endpoint == "" {
		return fmt.Errorf("telemetry.endpoint: required when telemetry is enabled")
	}
	if cfg.SampleRate < 0 || cfg.SampleRate > 1 {
		return fmt.Errorf("telemetry.sample_rate: must be between 0 and 1, got %v", cfg.SampleRate)
	}
	return nil
}

func validateMetrics(cfg *MetricsConfig) error {
	if cfg.Port < 0 || cfg.Port > 65535 {
		return fmt.Errorf("metrics.port: must be between 1 and 65535, got %d", cfg.Port)
	}
	return nil
}

func validateDatalink(cfg *DatalinkConfig) error {
	switch cfg.Mode {
	case "mstp", "bip", "ethernet":
	default:
		return fmt.Errorf("datalink.mode: must be oneof mstp bip ethernet, got %q", cfg.Mode)
	}
	if cfg.Mode == "mstp" {
		switch cfg.MSTP.BaudRate {
		case 9600, 19200, 38400, 57600, 76800, 115200:
		default:
			return fmt.Errorf("datalink.mstp.baud_rate: unsupported rate %d", cfg.MSTP.BaudRate)
		}
		if cfg.MSTP.MaxMaster > 127 {
			return fmt.Errorf("datalink.mstp.max_master: must be 0..127, got %d", cfg.MSTP.MaxMaster)
		}
	}
	return nil
}

func validateSegmentation(cfg *SegmentationConfig) error {
	if cfg.WindowSize < 1 || cfg.WindowSize > 127 {
		return fmt.Errorf("segmentation.window_size: must be between 1 and 127, got %d", cfg.WindowSize)
	}
	if cfg.MaxSegmentsAccepted < 0 || cfg.MaxSegmentsAccepted > 64 {
		return fmt.Errorf("segmentation.max_segments_accepted: must be between 0 and 64, got %d", cfg.MaxSegmentsAccepted)
	}
	return nil
}

func validateDevice(cfg *DeviceConfig) error {
	if cfg.Instance > 4194302 {
		return fmt.Errorf("device.instance: must be 0..4194302, got %d", cfg.Instance)
	}
	if len(cfg.DCCPassword) > 20 {
		return fmt.Errorf("device.dcc_password: must be at most 20 characters, got %d", len(cfg.DCCPassword))
	}
	return nil
}
