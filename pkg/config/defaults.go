package config

import (
	"strings"
	"time"

	"github.com/bacnet-stack/bacnet-core/internal/bytesize"
)

// ApplyDefaults sets default values for any unspecified configuration
// fields. Called after loading configuration from file and environment
// variables.
func ApplyDefaults(cfg *Config) {
	applyDeviceDefaults(&cfg.Device)
	applyDatalinkDefaults(&cfg.Datalink)
	applySegmentationDefaults(&cfg.Segmentation)
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyMetricsDefaults(&cfg.Metrics)

	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
}

func applyDeviceDefaults(cfg *DeviceConfig) {
	if cfg.ObjectName == "" {
		cfg.ObjectName = "bacnet-core Device"
	}
	if cfg.VendorID == 0 {
		// 0 is "ASHRAE"; an unconfigured device still needs to report
		// something on the wire, so fall back to it rather than leave
		// VendorID meaning "unset".
		cfg.VendorID = 0
	}
}

func applyDatalinkDefaults(cfg *DatalinkConfig) {
	if cfg.Mode == "" {
		cfg.Mode = "bip"
	}
	applyMSTPDefaults(&cfg.MSTP)
	applyBIPDefaults(&cfg.BIP)
	applyEthernetDefaults(&cfg.Ethernet)
}

func applyMSTPDefaults(cfg *MSTPConfig) {
	if cfg.BaudRate == 0 {
		cfg.BaudRate = 38400
	}
	if cfg.ThisStation == 0 {
		cfg.ThisStation = 127 // highest master address; 0 is treated as unset
	}
	if cfg.MaxMaster == 0 {
		cfg.MaxMaster = 127
	}
	if cfg.MaxInfoFrames == 0 {
		cfg.MaxInfoFrames = 1
	}
}

func applyBIPDefaults(cfg *BIPConfig) {
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = "0.0.0.0:47808"
	}
	if cfg.BroadcastAddress == "" {
		cfg.BroadcastAddress = "255.255.255.255:47808"
	}
}

func applyEthernetDefaults(cfg *EthernetConfig) {
	if cfg.Interface == "" {
		cfg.Interface = "eth0"
	}
}

func applySegmentationDefaults(cfg *SegmentationConfig) {
	if cfg.MaxAPDULength == 0 {
		cfg.MaxAPDULength = bytesize.ByteSize(1476) // fits one Ethernet frame's NPDU+APDU payload
	}
	if cfg.WindowSize == 0 {
		cfg.WindowSize = 1
	}
	// MaxSegmentsAccepted == 0 means "unspecified"; left as-is rather
	// than defaulted to a constant.
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}
	applyProfilingDefaults(&cfg.Profiling)
}

func applyProfilingDefaults(cfg *ProfilingConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "http://localhost:4040"
	}
	if len(cfg.ProfileTypes) == 0 {
		cfg.ProfileTypes = []string{"cpu", "alloc_objects", "alloc_space", "inuse_objects", "inuse_space", "goroutines"}
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Enabled && cfg.Port == 0 {
		cfg.Port = 9090
	}
}

// GetDefaultConfig returns a Config struct with all default values
// applied, used when no config file is found and by `bacnetd init`.
func GetDefaultConfig() *Config {
	cfg := &Config{
		Device: DeviceConfig{
			Instance:   260001,
			ObjectName: "bacnet-core Device",
		},
		Datalink: DatalinkConfig{
			Mode: "bip",
		},
		ShutdownTimeout: 10 * time.Second,
	}
	ApplyDefaults(cfg)
	return cfg
}
