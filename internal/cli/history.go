package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Guliveer/devdash/internal/archive"
	"github.com/Guliveer/devdash/internal/dashboard"
	"github.com/Guliveer/devdash/internal/models"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show archived install jobs",
	Long: `Show install jobs that were dismissed or retired from the dashboard,
most recent first. Requires an archive backend other than "none".

Examples:
  devdash history
  devdash history --limit 5`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return historyCommand(cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of jobs to show (0 for all)")
}

func historyCommand(out io.Writer) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Archive.Backend == "none" {
		_, err := fmt.Fprintln(out, "The job archive is disabled (archive.backend: none).")
		return err
	}
	store, err := archive.Open(cfg.Archive, zap.NewNop())
	if err != nil {
		return err
	}
	defer store.Close()

	jobs, err := store.List(historyLimit)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		_, err := fmt.Fprintln(out, "No archived jobs.")
		return err
	}
	_, err = fmt.Fprintln(out, renderHistory(jobs))
	return err
}

func renderHistory(jobs []models.InstallJob) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("JOB", "PACKAGE", "RESULT", "ATTEMPTS", "FINISHED")
	for _, j := range jobs {
		finished := "-"
		if !j.FinishedAt.IsZero() {
			finished = j.FinishedAt.Local().Format("2006-01-02 15:04")
		}
		t.Row(j.ID.String(), j.PackageID, dashboard.JobLabel(j), fmt.Sprint(j.Attempts), finished)
	}
	return t.String()
}
