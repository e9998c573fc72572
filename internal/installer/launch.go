package installer

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"go.uber.org/zap"
)

// Launcher runs a downloaded installer to completion and returns its exit
// code. A non-nil error means the process could not be started.
type Launcher interface {
	Launch(ctx context.Context, path string, args []string) (int, error)
}

// ExecLauncher starts installers as child processes.
type ExecLauncher struct {
	logger *zap.Logger
}

// NewExecLauncher creates an ExecLauncher.
func NewExecLauncher(logger *zap.Logger) *ExecLauncher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExecLauncher{logger: logger.Named("launcher")}
}

// Launch prepares path for execution and waits for it to exit. The context
// is only consulted before the process starts; a running installer is never
// killed.
func (l *ExecLauncher) Launch(ctx context.Context, path string, args []string) (int, error) {
	if err := ctx.Err(); err != nil {
		return -1, err
	}
	if err := prepareExecutable(path); err != nil {
		return -1, fmt.Errorf("prepare installer: %w", err)
	}

	cmd := exec.Command(path, args...)
	configureCommand(cmd)

	start := time.Now()
	l.logger.Info("Starting installer", zap.String("path", path), zap.Strings("args", args))
	err := cmd.Run()
	if err == nil {
		l.logger.Info("Installer exited", zap.Duration("elapsed", time.Since(start)))
		return 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code := exitErr.ExitCode()
		l.logger.Warn("Installer exited with error",
			zap.Int("exit_code", code),
			zap.Duration("elapsed", time.Since(start)))
		return code, nil
	}
	return -1, fmt.Errorf("start installer: %w", err)
}
