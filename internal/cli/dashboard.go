package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/Guliveer/devdash/internal/logging"
	"github.com/Guliveer/devdash/internal/ui"
)

// dashboardCommand opens the terminal dashboard. Logs go to the log file
// only while the screen is owned by the UI.
func dashboardCommand(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, closeLog, err := logging.New(cfg.Logging, nil)
	if err != nil {
		return err
	}
	defer closeLog()

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	logger.Info("Starting dashboard",
		zap.String("version", version),
		zap.Int("packages", len(a.catalog.Packages())))

	bgCtx, cancel := context.WithCancel(ctx)
	bgDone := make(chan error, 1)
	go func() {
		bgDone <- a.runBackground(bgCtx)
	}()

	model := ui.New(a.controller, a.catalog, ui.Options{
		FrameRate: cfg.UI.FrameRate,
		Smoothing: cfg.UI.Smoothing,
	})
	p := tea.NewProgram(model, tea.WithAltScreen())
	go func() {
		<-bgCtx.Done()
		p.Quit()
	}()
	_, runErr := p.Run()

	cancel()
	if err := <-bgDone; err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("Background loops stopped with error", zap.Error(err))
	}

	if jobs, _ := a.orchestrator.Jobs(); hasActive(jobs) {
		fmt.Fprintln(os.Stderr, "Waiting for running installs to finish...")
	}
	a.close()
	logger.Info("Dashboard stopped")
	return runErr
}
