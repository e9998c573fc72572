// Package dashboard is the read side of the application: once per frame it
// gathers the metric snapshot and the install job table, and it forwards
// user install commands to the orchestrator unchanged.
package dashboard

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/Guliveer/devdash/internal/models"
)

// SnapshotReader is the read side of the snapshot store.
type SnapshotReader interface {
	Read() (models.Snapshot, uint64)
}

// JobService is the installer surface the dashboard drives.
type JobService interface {
	RequestInstall(packageID string) (models.JobID, error)
	Cancel(id models.JobID) error
	Dismiss(id models.JobID) error
	Jobs() ([]models.InstallJob, uint64)
	Version() uint64
}

// InstallDetector reports which catalog packages are installed.
type InstallDetector interface {
	Scan() map[string]bool
}

// Frame is everything one render pass needs. It is read-only: frames with
// the same JobsVersion share one job slice.
type Frame struct {
	Snapshot    models.Snapshot
	Version     uint64
	Jobs        []models.InstallJob
	JobsVersion uint64
	// Installed is nil until the first detection pass completes.
	Installed map[string]bool
	// InstallerRunning is set while an external installer process is alive.
	InstallerRunning bool
}

// Controller serves frames to the UI.
type Controller struct {
	store    SnapshotReader
	jobs     JobService
	detector InstallDetector
	running  func(context.Context) (bool, error)
	logger   *zap.Logger

	installed        atomic.Pointer[map[string]bool]
	installerRunning atomic.Bool
	refresh          chan struct{}

	// Job list cache, refreshed only when the table version moves.
	mu          sync.Mutex
	cachedJobs  []models.InstallJob
	cachedVer   uint64
	cacheLoaded bool
	succeeded   map[models.JobID]bool
}

// New creates a Controller. detector and running may be nil, which turns off
// install detection.
func New(store SnapshotReader, jobs JobService, detector InstallDetector, running func(context.Context) (bool, error), logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		store:     store,
		jobs:      jobs,
		detector:  detector,
		running:   running,
		logger:    logger.Named("dashboard"),
		refresh:   make(chan struct{}, 1),
		succeeded: make(map[models.JobID]bool),
	}
}

// Frame reads the current state. It never blocks on I/O.
func (c *Controller) Frame() Frame {
	snap, version := c.store.Read()
	f := Frame{
		Snapshot:         snap,
		Version:          version,
		InstallerRunning: c.installerRunning.Load(),
	}
	if m := c.installed.Load(); m != nil {
		f.Installed = *m
	}
	if c.jobs != nil {
		f.Jobs, f.JobsVersion = c.jobList()
	}
	return f
}

func (c *Controller) jobList() ([]models.InstallJob, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cacheLoaded && c.jobs.Version() == c.cachedVer {
		return c.cachedJobs, c.cachedVer
	}
	jobs, ver := c.jobs.Jobs()
	c.cachedJobs, c.cachedVer, c.cacheLoaded = jobs, ver, true

	for _, j := range jobs {
		if j.State == models.JobSucceeded && !c.succeeded[j.ID] {
			c.succeeded[j.ID] = true
			c.RefreshInstalled()
		}
	}
	return jobs, ver
}

// RequestInstall forwards to the orchestrator.
func (c *Controller) RequestInstall(packageID string) (models.JobID, error) {
	return c.jobs.RequestInstall(packageID)
}

// CancelInstall forwards to the orchestrator.
func (c *Controller) CancelInstall(id models.JobID) error {
	return c.jobs.Cancel(id)
}

// Dismiss forwards to the orchestrator.
func (c *Controller) Dismiss(id models.JobID) error {
	return c.jobs.Dismiss(id)
}

// RefreshInstalled asks the detection loop for an early pass.
func (c *Controller) RefreshInstalled() {
	select {
	case c.refresh <- struct{}{}:
	default:
	}
}

// RunDetection refreshes the installed-package map every interval and on
// demand until ctx is done. While an installer process runs, passes are
// skipped because its files are half written.
func (c *Controller) RunDetection(ctx context.Context, interval time.Duration) error {
	if c.detector == nil {
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.detect(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		case <-c.refresh:
		}
		c.detect(ctx)
	}
}

func (c *Controller) detect(ctx context.Context) {
	if c.running != nil {
		busy, err := c.running(ctx)
		if err != nil {
			c.logger.Debug("Installer process scan failed", zap.Error(err))
		}
		c.installerRunning.Store(busy)
		if busy {
			c.logger.Debug("Installer running, skipping detection")
			return
		}
	}
	m := c.detector.Scan()
	c.installed.Store(&m)
}
