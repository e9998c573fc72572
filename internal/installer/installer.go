// Package installer runs asynchronous install jobs: resolve a package to a
// download, stream it with progress, verify it and launch it. Every job is
// driven by its own goroutine through the JobState machine; callers only
// ever see copies of the job table.
package installer

import (
	"context"
	"net/http"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/Guliveer/devdash/internal/catalog"
	"github.com/Guliveer/devdash/internal/config"
	"github.com/Guliveer/devdash/internal/models"
)

// Resolver maps package ids to download manifests. *catalog.Client
// implements it.
type Resolver interface {
	Lookup(packageID string) (string, error)
	Resolve(ctx context.Context, packageID string) (catalog.Manifest, error)
}

// Archiver receives jobs that leave the table. Implementations live in the
// archive package.
type Archiver interface {
	Archive(job models.InstallJob) error
}

type job struct {
	models.InstallJob
	cancel context.CancelFunc
}

// Orchestrator owns the install job table.
type Orchestrator struct {
	cfg        config.InstallerConfig
	resolver   Resolver
	launcher   Launcher
	archiver   Archiver
	httpClient *http.Client
	logger     *zap.Logger
	now        func() time.Time

	downloads *semaphore.Weighted
	// launches is weight 1: installers are run one at a time.
	launches *semaphore.Weighted

	base     context.Context
	shutdown context.CancelFunc
	wg       sync.WaitGroup

	mu      sync.Mutex
	jobs    map[models.JobID]*job
	nextID  models.JobID
	version uint64
	closed  bool
}

// New creates an Orchestrator. A nil archiver drops retired jobs.
func New(cfg config.InstallerConfig, resolver Resolver, launcher Launcher, archiver Archiver, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.MaxConcurrentDownloads < 1 {
		cfg.MaxConcurrentDownloads = 1
	}
	base, shutdown := context.WithCancel(context.Background())
	return &Orchestrator{
		cfg:      cfg,
		resolver: resolver,
		launcher: launcher,
		archiver: archiver,
		httpClient: &http.Client{
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				ResponseHeaderTimeout: cfg.RequestTimeout.Duration,
			},
		},
		logger:    logger.Named("installer"),
		now:       time.Now,
		downloads: semaphore.NewWeighted(int64(cfg.MaxConcurrentDownloads)),
		launches:  semaphore.NewWeighted(1),
		base:      base,
		shutdown:  shutdown,
		jobs:      make(map[models.JobID]*job),
	}
}

// RequestInstall queues an install of packageID and returns immediately.
// While a job for the same package is still active its id is returned
// instead of starting a second one.
func (o *Orchestrator) RequestInstall(packageID string) (models.JobID, error) {
	name, err := o.resolver.Lookup(packageID)
	if err != nil {
		return 0, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return 0, ErrClosed
	}
	for _, j := range o.jobs {
		if j.PackageID == packageID && j.State.Active() {
			return j.ID, nil
		}
	}

	o.nextID++
	now := o.now()
	ctx, cancel := context.WithCancel(o.base)
	j := &job{
		InstallJob: models.InstallJob{
			ID:          o.nextID,
			PackageID:   packageID,
			PackageName: name,
			State:       models.JobQueued,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		cancel: cancel,
	}
	o.jobs[j.ID] = j
	o.version++

	o.logger.Info("Install requested", zap.Stringer("job", j.ID), zap.String("package", packageID))

	o.wg.Add(1)
	go o.run(ctx, j.ID, packageID)
	return j.ID, nil
}

// Status returns a copy of one job.
func (o *Orchestrator) Status(id models.JobID) (models.InstallJob, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	j, ok := o.jobs[id]
	if !ok {
		return models.InstallJob{}, false
	}
	return j.Clone(), true
}

// Jobs returns copies of all jobs ordered by id, plus the table version.
// The version increases on every change.
func (o *Orchestrator) Jobs() ([]models.InstallJob, uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]models.InstallJob, 0, len(o.jobs))
	for _, j := range o.jobs {
		out = append(out, j.Clone())
	}
	sort.Slice(out, func(i, k int) bool { return out[i].ID < out[k].ID })
	return out, o.version
}

// Version returns the job table version.
func (o *Orchestrator) Version() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.version
}

// Cancel fails a Queued or Downloading job immediately. A job running its
// installer cannot be cancelled.
func (o *Orchestrator) Cancel(id models.JobID) error {
	o.mu.Lock()
	j, ok := o.jobs[id]
	if !ok {
		o.mu.Unlock()
		return ErrJobNotFound
	}
	switch {
	case j.State.Terminal():
		o.mu.Unlock()
		return ErrJobFinished
	case j.State == models.JobInstalling:
		o.mu.Unlock()
		return ErrNotCancellable
	}
	o.setState(j, models.JobFailed, &models.Failure{Kind: models.FailureCancelled})
	j.cancel()
	retired := o.retireLocked()
	snapshot := j.Clone()
	o.mu.Unlock()

	o.logFinished(snapshot)
	o.archive(retired)
	return nil
}

// Dismiss removes a finished job from the table and archives it.
func (o *Orchestrator) Dismiss(id models.JobID) error {
	o.mu.Lock()
	j, ok := o.jobs[id]
	if !ok {
		o.mu.Unlock()
		return ErrJobNotFound
	}
	if j.State.Active() {
		o.mu.Unlock()
		return ErrJobActive
	}
	delete(o.jobs, id)
	o.version++
	snapshot := j.Clone()
	o.mu.Unlock()

	o.archive([]models.InstallJob{snapshot})
	return nil
}

// Shutdown stops accepting requests, cancels jobs that have not launched
// their installer and waits for every job goroutine until ctx is done.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()
	o.shutdown()

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run drives one job from Queued to a terminal state.
func (o *Orchestrator) run(ctx context.Context, id models.JobID, packageID string) {
	defer o.wg.Done()

	if err := o.downloads.Acquire(ctx, 1); err != nil {
		o.fail(id, errCancelled)
		return
	}
	if !o.transition(id, models.JobDownloading, nil) {
		o.downloads.Release(1)
		return
	}
	file, manifest, err := o.fetch(ctx, id, packageID)
	o.downloads.Release(1)
	if err != nil {
		o.fail(id, err)
		return
	}
	defer o.cleanup(file)

	if err := o.launches.Acquire(ctx, 1); err != nil {
		o.fail(id, errCancelled)
		return
	}
	defer o.launches.Release(1)

	// Last cancellation point. Once Installing, the job runs to completion.
	if ctx.Err() != nil || !o.transition(id, models.JobInstalling, func(j *models.InstallJob) {
		j.Progress = 1
		j.Indeterminate = true
	}) {
		o.fail(id, errCancelled)
		return
	}

	code, err := o.launcher.Launch(context.WithoutCancel(ctx), file, manifest.Args)
	switch {
	case err != nil:
		o.fail(id, processError("launch installer: %w", err))
	case code != 0:
		o.finish(id, models.JobFailed, &models.Failure{
			Kind:    models.FailureProcess,
			Message: "installer exited with code " + strconv.Itoa(code),
		}, &code)
	default:
		o.finish(id, models.JobSucceeded, nil, &code)
	}
}

func (o *Orchestrator) fail(id models.JobID, err error) {
	f := toFailure(err)
	if f.Kind == models.FailureCancelled && o.base.Err() != nil {
		f.Message = "shutting down"
	}
	o.finish(id, models.JobFailed, f, nil)
}

// finish moves a job to a terminal state. It is a no-op when the job has
// already ended, e.g. through Cancel.
func (o *Orchestrator) finish(id models.JobID, state models.JobState, f *models.Failure, exitCode *int) {
	o.mu.Lock()
	j, ok := o.jobs[id]
	if !ok || !j.State.CanTransition(state) {
		o.mu.Unlock()
		return
	}
	j.ExitCode = exitCode
	o.setState(j, state, f)
	j.cancel()
	retired := o.retireLocked()
	snapshot := j.Clone()
	o.mu.Unlock()

	o.logFinished(snapshot)
	o.archive(retired)
}

// transition applies a non-terminal state change if the machine allows it.
func (o *Orchestrator) transition(id models.JobID, state models.JobState, mutate func(*models.InstallJob)) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	j, ok := o.jobs[id]
	if !ok || !j.State.CanTransition(state) {
		return false
	}
	if mutate != nil {
		mutate(&j.InstallJob)
	}
	o.setState(j, state, nil)
	o.logger.Debug("Install job state changed", zap.Stringer("job", id), zap.Stringer("state", state))
	return true
}

// update mutates progress fields of a job that is still downloading.
func (o *Orchestrator) update(id models.JobID, mutate func(*models.InstallJob)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	j, ok := o.jobs[id]
	if !ok || j.State.Terminal() {
		return
	}
	mutate(&j.InstallJob)
	j.UpdatedAt = o.now()
	o.version++
}

func (o *Orchestrator) setState(j *job, state models.JobState, f *models.Failure) {
	now := o.now()
	j.State = state
	j.UpdatedAt = now
	if state.Terminal() {
		j.FinishedAt = now
		j.Failure = f
		j.Indeterminate = false
	}
	o.version++
}

// retireLocked removes the earliest-finished jobs beyond the retention
// limit and returns them for archiving.
func (o *Orchestrator) retireLocked() []models.InstallJob {
	limit := o.cfg.RetentionLimit
	if limit < 1 {
		return nil
	}
	var finished []*job
	for _, j := range o.jobs {
		if j.State.Terminal() {
			finished = append(finished, j)
		}
	}
	if len(finished) <= limit {
		return nil
	}
	sort.Slice(finished, func(i, k int) bool {
		if !finished[i].FinishedAt.Equal(finished[k].FinishedAt) {
			return finished[i].FinishedAt.Before(finished[k].FinishedAt)
		}
		return finished[i].ID < finished[k].ID
	})
	excess := finished[:len(finished)-limit]
	out := make([]models.InstallJob, 0, len(excess))
	for _, j := range excess {
		delete(o.jobs, j.ID)
		out = append(out, j.Clone())
	}
	o.version++
	return out
}

func (o *Orchestrator) archive(jobs []models.InstallJob) {
	if o.archiver == nil {
		return
	}
	for _, j := range jobs {
		if err := o.archiver.Archive(j); err != nil {
			o.logger.Warn("Failed to archive install job", zap.Stringer("job", j.ID), zap.Error(err))
		}
	}
}

func (o *Orchestrator) logFinished(j models.InstallJob) {
	fields := []zap.Field{
		zap.Stringer("job", j.ID),
		zap.String("package", j.PackageID),
		zap.Stringer("state", j.State),
		zap.Int("attempts", j.Attempts),
	}
	if j.Failure != nil {
		fields = append(fields, zap.Stringer("failure_kind", j.Failure.Kind), zap.String("failure", j.Failure.Message))
		o.logger.Warn("Install job finished", fields...)
		return
	}
	o.logger.Info("Install job finished", fields...)
}

// cleanup removes the downloaded installer once it has run.
func (o *Orchestrator) cleanup(file string) {
	if o.cfg.KeepInstallers {
		return
	}
	if err := os.Remove(file); err != nil && !os.IsNotExist(err) {
		o.logger.Debug("Failed to remove installer", zap.String("path", file), zap.Error(err))
	}
}
