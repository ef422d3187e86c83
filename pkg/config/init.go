package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// configFileTemplate is the commented YAML scaffold written by `bacnetd
// init`. It documents every top-level section so a fresh install has
// something to edit rather than an opaque blob of defaults.
const configFileTemplate = `# bacnetd Configuration File
#
# Environment variables override any value here: BACNET_<SECTION>_<KEY>
# (e.g. BACNET_LOGGING_LEVEL=DEBUG). See the README for the full list.

device:
  instance: %d
  object_name: %q
  vendor_id: %d
  dcc_password: ""

datalink:
  mode: %q
  mstp:
    device: "/dev/ttyUSB0"
    baud_rate: 38400
    this_station: 127
    max_master: 127
    max_info_frames: 1
  bip:
    listen_address: "0.0.0.0:47808"
    broadcast_address: "255.255.255.255:47808"
  ethernet:
    interface: "eth0"

segmentation:
  max_apdu_length: %d
  max_segments_accepted: 0
  window_size: %d

logging:
  level: %s
  format: %s
  output: %s

telemetry:
  enabled: false
  endpoint: "localhost:4317"
  insecure: true
  sample_rate: 1.0
  profiling:
    enabled: false
    endpoint: "http://localhost:4040"

metrics:
  enabled: false
  port: 9090

shutdown_timeout: %s
`

// InitConfig writes a default configuration file to the default
// location, refusing to overwrite an existing one unless force is true.
// It returns the path written.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	return path, InitConfigToPath(path, force)
}

// InitConfigToPath writes a default configuration file to path,
// refusing to overwrite an existing file unless force is true.
func InitConfigToPath(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", path)
		}
	}

	cfg := GetDefaultConfig()
	content := fmt.Sprintf(configFileTemplate,
		cfg.Device.Instance, cfg.Device.ObjectName, cfg.Device.VendorID,
		cfg.Datalink.Mode,
		uint64(cfg.Segmentation.MaxAPDULength), cfg.Segmentation.WindowSize,
		cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output,
		cfg.ShutdownTimeout.String(),
	)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
