package commands

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/bacnet-stack/bacnet-core/internal/cli/output"
	"github.com/bacnet-stack/bacnet-core/internal/cli/timeutil"
	"github.com/bacnet-stack/bacnet-core/pkg/config"
	"github.com/spf13/cobra"
)

var (
	statusOutput  string
	statusPidFile string
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show device status",
	Long: `Display the current status of the bacnetd device.

Checks the PID file and, when metrics.enabled is set in configuration,
the device's /health endpoint.

Examples:
  # Check status (uses default settings)
  bacnetd status

  # Output as JSON
  bacnetd status --output json`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusPidFile, "pid-file", "", "Path to PID file (default: $XDG_STATE_HOME/bacnetd/bacnetd.pid)")
	statusCmd.Flags().StringVarP(&statusOutput, "output", "o", "table", "Output format (table|json|yaml)")
}

// DeviceStatus represents the device status information.
type DeviceStatus struct {
	Running   bool   `json:"running" yaml:"running"`
	PID       int    `json:"pid,omitempty" yaml:"pid,omitempty"`
	Message   string `json:"message" yaml:"message"`
	StartedAt string `json:"started_at,omitempty" yaml:"started_at,omitempty"`
	Uptime    string `json:"uptime,omitempty" yaml:"uptime,omitempty"`
	Healthy   bool   `json:"healthy" yaml:"healthy"`
}

// healthResponse mirrors the healthStatus JSON body that
// startMetricsServer (start.go) serves on the metrics HTTP server's
// /health route.
type healthResponse struct {
	Status    string `json:"status"`
	StartedAt string `json:"started_at"`
	Uptime    string `json:"uptime"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(statusOutput)
	if err != nil {
		return err
	}

	status := DeviceStatus{
		Running: false,
		Healthy: false,
		Message: "Device is not running",
	}

	pidPath := statusPidFile
	if pidPath == "" {
		pidPath = GetDefaultPidFile()
	}

	pidData, err := os.ReadFile(pidPath)
	if err == nil {
		pid, err := strconv.Atoi(strings.TrimSpace(string(pidData)))
		if err == nil {
			process, err := os.FindProcess(pid)
			if err == nil {
				if err := process.Signal(syscall.Signal(0)); err == nil {
					status.Running = true
					status.PID = pid
				}
			}
		}
	}

	cfg, cfgErr := config.Load(GetConfigFile())
	if cfgErr == nil && cfg.Metrics.Enabled {
		healthURL := fmt.Sprintf("http://localhost:%d/health", cfg.Metrics.Port)
		client := &http.Client{Timeout: 2 * time.Second}

		resp, err := client.Get(healthURL)
		if err == nil {
			defer func() { _ = resp.Body.Close() }()

			var h healthResponse
			if err := json.NewDecoder(resp.Body).Decode(&h); err == nil {
				status.Running = true
				status.Healthy = h.Status == "healthy"
				status.StartedAt = h.StartedAt
				status.Uptime = h.Uptime
				status.Message = "Device is running and healthy"
			} else {
				status.Running = true
				status.Message = "Device is running but health response invalid"
			}
		} else if status.Running {
			status.Message = "Device process exists but health check failed"
		}
	} else if status.Running {
		status.Healthy = true
		status.Message = "Device process exists (metrics disabled, no health endpoint to query)"
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, status)
	case output.FormatYAML:
		return output.PrintYAML(os.Stdout, status)
	default:
		printStatusTable(status)
	}

	return nil
}

func printStatusTable(status DeviceStatus) {
	fmt.Println()
	fmt.Println("bacnetd Device Status")
	fmt.Println("======================")
	fmt.Println()

	if status.Running {
		if status.Healthy {
			fmt.Printf("  Status:     \033[32m● Running\033[0m\n")
		} else {
			fmt.Printf("  Status:     \033[33m● Running (unhealthy)\033[0m\n")
		}
		if status.PID != 0 {
			fmt.Printf("  PID:        %d\n", status.PID)
		}
		if status.StartedAt != "" {
			fmt.Printf("  Started:    %s\n", timeutil.FormatTime(status.StartedAt))
		}
		if status.Uptime != "" {
			fmt.Printf("  Uptime:     %s\n", timeutil.FormatUptime(status.Uptime))
		}
	} else {
		fmt.Printf("  Status:     \033[31m○ Stopped\033[0m\n")
	}

	fmt.Println()
	fmt.Printf("  %s\n", status.Message)
	fmt.Println()
}
