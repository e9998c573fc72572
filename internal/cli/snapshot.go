package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Guliveer/devdash/internal/logging"
	"github.com/Guliveer/devdash/internal/models"
	"github.com/Guliveer/devdash/internal/platform"
)

var (
	snapshotJSON    bool
	snapshotTimeout time.Duration
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Sample every metric source once and print the readings",
	Long: `Poll every enabled metric source once, concurrently, and print the
readings. Sources that fail are reported on stderr.

Examples:
  devdash snapshot
  devdash snapshot --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return snapshotCommand(cmd.Context(), cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(snapshotCmd)
	snapshotCmd.Flags().BoolVar(&snapshotJSON, "json", false, "print JSON instead of YAML")
	snapshotCmd.Flags().DurationVar(&snapshotTimeout, "timeout", 5*time.Second, "per-source timeout")
}

func snapshotCommand(ctx context.Context, out io.Writer) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, closeLog, err := logging.New(cfg.Logging, os.Stderr)
	if err != nil {
		return err
	}
	defer closeLog()

	registry, _ := newRegistry(cfg, platform.New(), logger)
	results := registry.CollectAll(ctx, snapshotTimeout)

	readings := make([]models.Reading, 0, len(results))
	for _, c := range models.Categories {
		if !cfg.Sources.For(c).Enabled {
			continue
		}
		if r, ok := results[c]; ok {
			readings = append(readings, r)
		}
	}
	return writeReadings(out, readings, snapshotJSON)
}

func writeReadings(out io.Writer, readings []models.Reading, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(readings)
	}
	data, err := yaml.Marshal(readings)
	if err != nil {
		return fmt.Errorf("encoding readings: %w", err)
	}
	_, err = out.Write(data)
	return err
}
