// Package config loads the bacnetd daemon's configuration: device
// identity, datalink transport selection, segmentation limits, and the
// ambient logging/telemetry/metrics stack.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/bacnet-stack/bacnet-core/internal/bytesize"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is the bacnetd daemon's full configuration.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (BACNET_*)
//  2. Configuration file (YAML)
//  3. Default values (lowest priority)
//
// Environment variables override only keys present in a configuration
// file; with no file, Load returns GetDefaultConfig() without reading them.
type Config struct {
	// Device identifies this BACnet device on the network.
	Device DeviceConfig `mapstructure:"device" yaml:"device"`

	// Datalink selects and configures the physical transport.
	Datalink DatalinkConfig `mapstructure:"datalink" yaml:"datalink"`

	// Segmentation controls max-APDU and segment-window limits.
	Segmentation SegmentationConfig `mapstructure:"segmentation" yaml:"segmentation"`

	// Logging controls log output behavior.
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Telemetry controls OpenTelemetry distributed tracing.
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`

	// Metrics contains Prometheus metrics server configuration.
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`
}

// DeviceConfig identifies this device and its Device object properties.
type DeviceConfig struct {
	// Instance is the device object instance number (0..4194302).
	Instance uint32 `mapstructure:"instance" yaml:"instance"`

	// ObjectName is the Device object's object-name property.
	ObjectName string `mapstructure:"object_name" yaml:"object_name"`

	// VendorID is the BACnet vendor identifier reported in I-Am.
	VendorID uint16 `mapstructure:"vendor_id" yaml:"vendor_id"`

	// DCCPassword, when non-empty, is required on a
	// DeviceCommunicationControl request to disable communication.
	DCCPassword string `mapstructure:"dcc_password" yaml:"dcc_password,omitempty"`
}

// DatalinkConfig selects the physical transport and its parameters.
// Exactly one of MSTP/BIP/Ethernet applies, selected by Mode.
type DatalinkConfig struct {
	// Mode selects the active transport: "mstp", "bip", or "ethernet".
	Mode string `mapstructure:"mode" validate:"required,oneof=mstp bip ethernet" yaml:"mode"`

	MSTP     MSTPConfig     `mapstructure:"mstp" yaml:"mstp,omitempty"`
	BIP      BIPConfig      `mapstructure:"bip" yaml:"bip,omitempty"`
	Ethernet EthernetConfig `mapstructure:"ethernet" yaml:"ethernet,omitempty"`
}

// MSTPConfig configures the MS/TP master-node FSM and its serial port.
type MSTPConfig struct {
	// Device is the serial device path (e.g. "/dev/ttyUSB0").
	Device string `mapstructure:"device" yaml:"device"`

	// BaudRate is the serial line rate (9600, 19200, 38400, 57600, 76800, 115200).
	BaudRate int `mapstructure:"baud_rate" validate:"omitempty,oneof=9600 19200 38400 57600 76800 115200" yaml:"baud_rate"`

	// ThisStation is this node's MAC address (1..127). The daemon uses it
	// as given; Zero-Config Auto-MAC (internal/mstp.AutoMAC) is not run at
	// startup. ApplyDefaults treats 0 as unset and replaces it with 127.
	ThisStation byte `mapstructure:"this_station" yaml:"this_station"`

	// MaxMaster is the highest master MAC address to poll.
	MaxMaster byte `mapstructure:"max_master" yaml:"max_master"`

	// MaxInfoFrames bounds how many data frames this node sends per
	// token hold.
	MaxInfoFrames byte `mapstructure:"max_info_frames" yaml:"max_info_frames"`
}

// BIPConfig configures a BACnet/IP (Annex J) datalink.
type BIPConfig struct {
	// ListenAddress is the local UDP host:port (default port 47808/0xBAC0).
	ListenAddress string `mapstructure:"listen_address" yaml:"listen_address"`

	// BroadcastAddress is the subnet broadcast host:port used for
	// Original-Broadcast-NPDU BVLL frames.
	BroadcastAddress string `mapstructure:"broadcast_address" yaml:"broadcast_address"`
}

// EthernetConfig configures an 802.2/802.3 datalink.
type EthernetConfig struct {
	// Interface is the network interface name (e.g. "eth0").
	Interface string `mapstructure:"interface" yaml:"interface"`
}

// SegmentationConfig bounds APDU and segmentation behavior.
type SegmentationConfig struct {
	// MaxAPDULength is the largest APDU this device accepts, encoded
	// in the octet pair consumed by EncodeMaxSegsMaxAPDU. Supports
	// human-readable sizes like "1476" or "1Ki".
	MaxAPDULength bytesize.ByteSize `mapstructure:"max_apdu_length" yaml:"max_apdu_length"`

	// MaxSegmentsAccepted is the largest number of segments this
	// device will reassemble for one APDU, or 0 for "unspecified".
	MaxSegmentsAccepted int `mapstructure:"max_segments_accepted" validate:"omitempty,min=0,max=64" yaml:"max_segments_accepted"`

	// WindowSize is the number of segments sent before a SegmentACK is
	// required.
	WindowSize int `mapstructure:"window_size" validate:"omitempty,min=1,max=127" yaml:"window_size"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output.
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive).
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format: text or json.
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written: stdout, stderr, or a file path.
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// TelemetryConfig controls OpenTelemetry distributed tracing.
type TelemetryConfig struct {
	// Enabled controls whether distributed tracing is enabled.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the OTLP collector endpoint (host:port).
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// Insecure controls whether to use an insecure (non-TLS) connection.
	Insecure bool `mapstructure:"insecure" yaml:"insecure"`

	// SampleRate controls the trace sampling rate (0.0 to 1.0).
	SampleRate float64 `mapstructure:"sample_rate" validate:"omitempty,gte=0,lte=1" yaml:"sample_rate"`

	// Profiling contains Pyroscope continuous profiling configuration.
	Profiling ProfilingConfig `mapstructure:"profiling" yaml:"profiling"`
}

// ProfilingConfig controls Pyroscope continuous profiling.
type ProfilingConfig struct {
	Enabled      bool     `mapstructure:"enabled" yaml:"enabled"`
	Endpoint     string   `mapstructure:"endpoint" yaml:"endpoint"`
	ProfileTypes []string `mapstructure:"profile_types" yaml:"profile_types"`
}

// MetricsConfig configures the Prometheus metrics HTTP server.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	Port    int  `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
}

// Load loads configuration from file, environment, and defaults.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	configFileFound, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	if !configFileFound {
		return GetDefaultConfig(), nil
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration with helpful error messages when the
// file doesn't exist.
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no configuration file found at default location: %s\n\n"+
				"Please initialize a configuration file first:\n"+
				"  bacnetd init\n\n"+
				"Or specify a custom config file:\n"+
				"  bacnetd <command> --config /path/to/config.yaml",
				GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s\n\n"+
			"Please create the configuration file:\n"+
			"  bacnetd init --config %s",
			configPath, configPath)
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// SaveConfig saves the configuration to the specified file path.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("BACNET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		configDir := getConfigDir()
		v.AddConfigPath(configDir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}
	return true, nil
}

func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		byteSizeDecodeHook(),
		durationDecodeHook(),
	)
}

// byteSizeDecodeHook converts strings/numbers to bytesize.ByteSize so
// config files can use human-readable sizes like "1476" or "1Ki" for
// segmentation.max_apdu_length.
func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(bytesize.ByteSize(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return bytesize.ParseByteSize(v)
		case int:
			return bytesize.ByteSize(v), nil
		case int64:
			return bytesize.ByteSize(v), nil
		case uint64:
			return bytesize.ByteSize(v), nil
		case float64:
			return bytesize.ByteSize(v), nil
		default:
			return data, nil
		}
	}
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// getConfigDir returns the configuration directory path.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "bacnetd")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "bacnetd")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists checks if a config file exists at the default location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path (exposed for
// the init command).
func GetConfigDir() string {
	return getConfigDir()
}
