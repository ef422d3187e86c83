package config

import (
	"fmt"

	"github.com/bacnet-stack/bacnet-core/pkg/config"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate the bacnetd configuration file.

Checks for syntax errors, missing required fields, and invalid values.

Examples:
  # Validate default config
  bacnetd config validate

  # Validate specific config file
  bacnetd config validate --config /etc/bacnetd/config.yaml`,
	RunE: runConfigValidate,
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.MustLoad(configPath)
	if err != nil {
		return err
	}

	displayPath := configPath
	if displayPath == "" {
		displayPath = config.GetDefaultConfigPath()
	}

	var warnings []string
	if cfg.Datalink.Mode == "mstp" && cfg.Datalink.MSTP.Device == "" {
		warnings = append(warnings, "datalink.mstp.device not configured")
	}
	if cfg.Device.DCCPassword == "" {
		warnings = append(warnings, "device.dcc_password not set - DeviceCommunicationControl will accept any request")
	}

	fmt.Printf("Configuration file: %s\n", displayPath)
	fmt.Println("Validation: OK")

	if len(warnings) > 0 {
		fmt.Println("\nWarnings:")
		for _, w := range warnings {
			fmt.Printf("  - %s\n", w)
		}
	}

	fmt.Printf("\nConfiguration summary:\n")
	fmt.Printf("  Device instance: %d\n", cfg.Device.Instance)
	fmt.Printf("  Datalink mode:   %s\n", cfg.Datalink.Mode)
	fmt.Printf("  Log level:       %s\n", cfg.Logging.Level)

	return nil
}
