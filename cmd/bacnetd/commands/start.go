package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/bacnet-stack/bacnet-core/internal/apdu"
	"github.com/bacnet-stack/bacnet-core/internal/bacapp"
	"github.com/bacnet-stack/bacnet-core/internal/datalink"
	"github.com/bacnet-stack/bacnet-core/internal/device"
	"github.com/bacnet-stack/bacnet-core/internal/logger"
	"github.com/bacnet-stack/bacnet-core/internal/telemetry"
	"github.com/bacnet-stack/bacnet-core/internal/transport"
	"github.com/bacnet-stack/bacnet-core/pkg/config"
	"github.com/bacnet-stack/bacnet-core/pkg/metrics"
	"github.com/bacnet-stack/bacnet-core/pkg/objectmodel"
	"github.com/spf13/cobra"
)

var (
	foreground bool
	pidFile    string
	logFile    string
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the bacnetd device",
	Long: `Start the bacnetd device with the specified configuration.

By default, the device runs in the background (daemon mode). Use
--foreground to run in the foreground for debugging or when managed by
a process supervisor.

Examples:
  # Start in background (default)
  bacnetd start

  # Start in foreground
  bacnetd start --foreground

  # Start with a custom config file
  bacnetd start --config /etc/bacnetd/config.yaml`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().BoolVarP(&foreground, "foreground", "f", false, "Run in foreground (default: background/daemon mode)")
	startCmd.Flags().StringVar(&pidFile, "pid-file", "", "Path to PID file (default: $XDG_STATE_HOME/bacnetd/bacnetd.pid)")
	startCmd.Flags().StringVar(&logFile, "log-file", "", "Path to log file for daemon mode (default: $XDG_STATE_HOME/bacnetd/bacnetd.log)")
}

func runStart(cmd *cobra.Command, args []string) error {
	if !foreground {
		return startDaemon()
	}

	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	if err := InitLogger(cfg); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetryShutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "bacnetd",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(ctx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}()

	profilingShutdown, err := telemetry.InitProfiling(telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.Profiling.Enabled,
		ServiceName:    "bacnetd",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Profiling.Endpoint,
		ProfileTypes:   cfg.Telemetry.Profiling.ProfileTypes,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize profiling: %w", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("profiling shutdown error", "error", err)
		}
	}()

	logger.Info("bacnetd starting", "device_instance", cfg.Device.Instance, "datalink_mode", cfg.Datalink.Mode)
	if telemetry.IsEnabled() {
		logger.Info("telemetry enabled", "endpoint", cfg.Telemetry.Endpoint, "sample_rate", cfg.Telemetry.SampleRate)
	}
	if telemetry.IsProfilingEnabled() {
		logger.Info("profiling enabled", "endpoint", cfg.Telemetry.Profiling.Endpoint)
	}

	port, closeMedium, runMedium, err := buildPort(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize datalink: %w", err)
	}
	defer func() {
		if err := closeMedium(); err != nil {
			logger.Warn("error closing datalink medium", "error", err)
		}
	}()

	m := metrics.New(cfg.Metrics.Enabled)
	db := objectmodel.NewDatabase()
	dispatcher := apdu.NewDispatcher()
	dev := device.New(cfg, db, port, m)
	dev.RegisterHandlers(dispatcher)

	port.OnAPDU = func(src bacapp.Address, apduBytes []byte) {
		m.ObserveAPDUReceived("request")
		reply := dispatcher.Dispatch(ctx, src, apduBytes)
		if len(reply) == 0 {
			return
		}
		m.ObserveAPDUSent("reply")
		if err := port.SendAPDU(src, reply, false, datalink.PriorityNormal, time.Now()); err != nil {
			logger.Warn("failed to send reply", "error", err)
		}
	}

	var metricsServer *http.Server
	if m != nil {
		metricsServer = startMetricsServer(cfg, m, dev)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = metricsServer.Shutdown(shutdownCtx)
		}()
	}

	go watchConfig(ctx, GetConfigFile())

	if err := dev.AnnounceIAm(time.Now()); err != nil {
		logger.Warn("failed to announce i-am at startup", "error", err)
	}

	if pidFile != "" {
		if err := os.WriteFile(pidFile, []byte(fmt.Sprintf("%d", os.Getpid())), 0644); err != nil {
			return fmt.Errorf("failed to write PID file: %w", err)
		}
		defer func() { _ = os.Remove(pidFile) }()
	}

	serverDone := make(chan error, 1)
	go func() { serverDone <- runMedium(ctx) }()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("device is running. Press Ctrl+C to stop.")

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logger.Info("shutdown signal received, initiating graceful shutdown")
		cancel()

		select {
		case err := <-serverDone:
			if err != nil && err != context.Canceled {
				logger.Error("datalink shutdown error", "error", err)
			}
		case <-time.After(cfg.ShutdownTimeout):
			logger.Warn("shutdown timeout exceeded, exiting anyway")
		}
		logger.Info("device stopped gracefully")

	case err := <-serverDone:
		signal.Stop(sigChan)
		if err != nil {
			logger.Error("datalink error", "error", err)
			return err
		}
		logger.Info("device stopped")
	}

	return nil
}

// buildPort constructs the datalink.Port for the configured transport,
// returning the port, a cleanup function for the underlying OS handle,
// and a Run function that blocks until ctx is canceled or the medium
// fails. MSTPMedium.Run already takes a context; BIPMedium and
// EthernetMedium take the *Port and run until the connection errors, so
// runMedium bridges the two shapes behind ctx cancellation for the
// caller.
func buildPort(cfg *config.Config) (port *datalink.Port, closeFn func() error, runFn func(context.Context) error, err error) {
	switch cfg.Datalink.Mode {
	case "mstp":
		serial, err := transport.OpenSerial(cfg.Datalink.MSTP.Device, cfg.Datalink.MSTP.BaudRate)
		if err != nil {
			return nil, nil, nil, err
		}
		p := datalink.NewMSTPPort(cfg.Datalink.MSTP.ThisStation, serial)
		medium := p.Medium.(*datalink.MSTPMedium)
		return p, serial.Close, medium.Run, nil

	case "bip":
		addr, err := net.ResolveUDPAddr("udp", cfg.Datalink.BIP.ListenAddress)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("invalid bip.listen_address: %w", err)
		}
		conn, err := net.ListenUDP("udp", addr)
		if err != nil {
			return nil, nil, nil, err
		}
		broadcastAddr, err := net.ResolveUDPAddr("udp", cfg.Datalink.BIP.BroadcastAddress)
		if err != nil {
			_ = conn.Close()
			return nil, nil, nil, fmt.Errorf("invalid bip.broadcast_address: %w", err)
		}
		p := datalink.NewBIPPort(bacapp.Address{Mac: []byte(conn.LocalAddr().String())}, conn, broadcastAddr)
		medium := p.Medium.(*datalink.BIPMedium)
		return p, conn.Close, func(ctx context.Context) error { return runUntilCanceled(ctx, func() error { return medium.Run(p) }) }, nil

	case "ethernet":
		raw, err := transport.OpenRawEthernet(cfg.Datalink.Ethernet.Interface)
		if err != nil {
			return nil, nil, nil, err
		}
		p := datalink.NewEthernetPort(raw.LocalMAC(), raw)
		medium := p.Medium.(*datalink.EthernetMedium)
		return p, raw.Close, func(ctx context.Context) error { return runUntilCanceled(ctx, func() error { return medium.Run(p) }) }, nil

	default:
		return nil, nil, nil, fmt.Errorf("unsupported datalink.mode %q", cfg.Datalink.Mode)
	}
}

// runUntilCanceled runs a blocking medium.Run(port) in a goroutine and
// returns as soon as either it errors or ctx is canceled, so a medium
// whose Run has no context parameter still honors shutdown.
func runUntilCanceled(ctx context.Context, run func() error) error {
	done := make(chan error, 1)
	go func() { done <- run() }()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

// healthStatus is served at /health on the metrics HTTP server;
// cmd/bacnetd/commands/status.go decodes this exact shape.
type healthStatus struct {
	Status    string `json:"status"`
	StartedAt string `json:"started_at"`
	Uptime    string `json:"uptime"`
}

func startMetricsServer(cfg *config.Config, m *metrics.Metrics, dev *device.Device) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(healthStatus{
			Status:    "healthy",
			StartedAt: dev.StartedAt().Format(time.RFC3339),
			Uptime:    time.Since(dev.StartedAt()).String(),
		})
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Metrics.Port), Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()
	return srv
}

// watchConfig applies the subset of configuration changes that are safe
// to take effect without restarting the datalink: log level/format.
// APDU timeout/retry changes require rebuilding the TSM manager and are
// picked up on the next restart instead.
func watchConfig(ctx context.Context, path string) {
	if path == "" {
		path = config.GetDefaultConfigPath()
		if !config.DefaultConfigExists() {
			return
		}
	}
	err := config.Watch(ctx, path, func(cfg *config.Config) {
		logger.SetLevel(cfg.Logging.Level)
		logger.SetFormat(cfg.Logging.Format)
		logger.Info("configuration reloaded", "level", cfg.Logging.Level, "format", cfg.Logging.Format)
	}, func(err error) {
		logger.Warn("config watch error", "error", err)
	})
	if err != nil && err != context.Canceled {
		logger.Warn("config watcher stopped", "error", err)
	}
}

// startDaemon starts the device as a background daemon process.
func startDaemon() error {
	stateDir := GetDefaultStateDir()
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	pidPath := pidFile
	if pidPath == "" {
		pidPath = filepath.Join(stateDir, "bacnetd.pid")
	}

	if _, err := os.Stat(pidPath); err == nil {
		pidData, err := os.ReadFile(pidPath)
		if err == nil {
			var pid int
			if _, err := fmt.Sscanf(string(pidData), "%d", &pid); err == nil {
				if process, err := os.FindProcess(pid); err == nil {
					if err := process.Signal(syscall.Signal(0)); err == nil {
						return fmt.Errorf("bacnetd is already running (PID %d)\nUse 'bacnetd stop' to stop the running instance", pid)
					}
				}
			}
		}
		_ = os.Remove(pidPath)
	}

	logPath := logFile
	if logPath == "" {
		logPath = filepath.Join(stateDir, "bacnetd.log")
	}

	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}

	daemonArgs := []string{"start", "--foreground", "--pid-file", pidPath}
	if GetConfigFile() != "" {
		daemonArgs = append(daemonArgs, "--config", GetConfigFile())
	}

	cmd := exec.Command(executable, daemonArgs...)

	logFileHandle, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	cmd.Stdout = logFileHandle
	cmd.Stderr = logFileHandle
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		_ = logFileHandle.Close()
		return fmt.Errorf("failed to start daemon: %w", err)
	}
	_ = logFileHandle.Close()

	fmt.Printf("bacnetd started in background (PID %d)\n", cmd.Process.Pid)
	fmt.Printf("  PID file: %s\n", pidPath)
	fmt.Printf("  Log file: %s\n", logPath)
	fmt.Println("\nUse 'bacnetd stop' to stop the device")
	fmt.Println("Use 'bacnetd status' to check device status")

	return nil
}
