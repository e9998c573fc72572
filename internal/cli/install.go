package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/Guliveer/devdash/internal/catalog"
	"github.com/Guliveer/devdash/internal/dashboard"
	"github.com/Guliveer/devdash/internal/installer"
	"github.com/Guliveer/devdash/internal/logging"
	"github.com/Guliveer/devdash/internal/models"
)

// watchInterval is how often headless installs print progress.
const watchInterval = 250 * time.Millisecond

var installCmd = &cobra.Command{
	Use:   "install [package...]",
	Short: "Download and run installers for catalog packages",
	Long: `Install one or more packages from the catalog without opening the
dashboard. With no arguments, pick packages from a list.

Press Ctrl+C to cancel downloads. An installer that already started is
allowed to finish.

Examples:
  devdash install vscode
  devdash install git python nodejs
  devdash install`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return installCommand(cmd.Context(), args, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(installCmd)
}

func installCommand(ctx context.Context, ids []string, out io.Writer) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, closeLog, err := logging.New(cfg.Logging, os.Stderr)
	if err != nil {
		return err
	}
	defer closeLog()

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	if len(ids) == 0 {
		ids, err = pickPackages(a.catalog, a.detector.Scan())
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			fmt.Fprintln(out, "Nothing selected.")
			return nil
		}
	}

	var jobs []models.JobID
	for _, id := range ids {
		jobID, err := a.orchestrator.RequestInstall(id)
		if err != nil {
			return err
		}
		jobs = append(jobs, jobID)
	}

	failed := watchJobs(ctx, a.orchestrator, jobs, out, watchInterval)
	if failed > 0 {
		return fmt.Errorf("%d of %d installs failed", failed, len(jobs))
	}
	return nil
}

func pickPackages(cat *catalog.Catalog, installed map[string]bool) ([]string, error) {
	var options []huh.Option[string]
	for _, c := range cat.Categories() {
		for _, p := range cat.ByCategory(c) {
			label := p.Name + " (" + p.Category + ")"
			if installed[p.ID] {
				label += " ✓ installed"
			}
			options = append(options, huh.NewOption(label, p.ID))
		}
	}

	var selected []string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title("Select tools to install").
				Description("space to toggle, enter to confirm").
				Options(options...).
				Value(&selected),
		),
	)
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading selection: %w", err)
	}
	return selected, nil
}

// jobWatcher is the orchestrator surface watchJobs needs.
type jobWatcher interface {
	Status(id models.JobID) (models.InstallJob, bool)
	Cancel(id models.JobID) error
}

// watchJobs prints a line whenever a job's status changes and returns once
// every job is finished. When ctx is done, jobs that can still be cancelled
// are cancelled. It returns the number of failed jobs.
func watchJobs(ctx context.Context, w jobWatcher, ids []models.JobID, out io.Writer, interval time.Duration) int {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := make(map[models.JobID]string, len(ids))
	done := ctx.Done()
	for {
		finished, failed := 0, 0
		for _, id := range ids {
			j, ok := w.Status(id)
			if !ok {
				finished++
				continue
			}
			label := dashboard.JobLabel(j)
			if label != last[id] {
				last[id] = label
				fmt.Fprintf(out, "%s %-12s %s\n", id, j.PackageID, label)
			}
			if j.State.Terminal() {
				finished++
				if j.State == models.JobFailed {
					failed++
				}
			}
		}
		if finished == len(ids) {
			return failed
		}

		select {
		case <-done:
			// Cancel once; keep polling until the jobs settle.
			done = nil
			for _, id := range ids {
				if errors.Is(w.Cancel(id), installer.ErrNotCancellable) {
					fmt.Fprintf(out, "%s installer already running, waiting for it to exit\n", id)
				}
			}
		case <-ticker.C:
		}
	}
}

var _ jobWatcher = (*installer.Orchestrator)(nil)

func hasActive(jobs []models.InstallJob) bool {
	for _, j := range jobs {
		if j.State.Active() {
			return true
		}
	}
	return false
}
