// Package cli holds the devdash cobra commands. The root command opens the
// terminal dashboard; subcommands run single operations headless.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Guliveer/devdash/internal/config"
)

// Global flags
var (
	configFlag      string
	logLevelFlag    string
	manifestURLFlag string
	downloadDirFlag string
	archiveFlag     string
)

// embeddedConfig is the build-time YAML layered under the config file.
var embeddedConfig []byte

var rootCmd = &cobra.Command{
	Use:   "devdash",
	Short: "Developer dashboard with live system metrics and tool installs",
	Long: `devdash shows CPU, memory, disk, network, GPU and system metrics in a
terminal dashboard and installs common developer tools from a built-in catalog.

Run without arguments to open the dashboard.

Examples:
  devdash
  devdash snapshot --json
  devdash install vscode git
  devdash init --mode user`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Args:          cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return dashboardCommand(cmd.Context())
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFlag, "config", "", "config file (default: first of the standard locations)")
	pf.StringVar(&logLevelFlag, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&manifestURLFlag, "manifest-url", "", "installer manifest endpoint; {id} is replaced by the package id")
	pf.StringVar(&downloadDirFlag, "download-dir", "", "directory for downloaded installers")
	pf.StringVar(&archiveFlag, "archive", "", "finished job archive: file, sqlite or none")
}

// SetEmbeddedConfig sets the YAML compiled into the binary (called from main).
func SetEmbeddedConfig(data []byte) {
	embeddedConfig = data
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// configPath is the config file in use: --config, else the first standard
// location that exists.
func configPath() string {
	if configFlag != "" {
		return configFlag
	}
	return config.Locate()
}

// loadConfig applies the layered config chain and validates the result.
func loadConfig() (*config.Config, error) {
	overrides := config.CLIOverrides{
		LogLevel:       logLevelFlag,
		ManifestURL:    manifestURLFlag,
		DownloadDir:    downloadDirFlag,
		ArchiveBackend: archiveFlag,
	}
	var (
		cfg *config.Config
		err error
	)
	if configFlag != "" {
		if _, statErr := os.Stat(configFlag); statErr != nil {
			return nil, fmt.Errorf("config file %s: %w", configFlag, statErr)
		}
		cfg, err = config.LoadLayered(overrides, embeddedConfig, configFlag)
	} else {
		cfg, err = config.LoadLayered(overrides, embeddedConfig)
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration:\n%w", err)
	}
	return cfg, nil
}
