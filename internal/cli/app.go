package cli

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Guliveer/devdash/internal/archive"
	"github.com/Guliveer/devdash/internal/catalog"
	"github.com/Guliveer/devdash/internal/collector"
	"github.com/Guliveer/devdash/internal/config"
	"github.com/Guliveer/devdash/internal/dashboard"
	"github.com/Guliveer/devdash/internal/installer"
	"github.com/Guliveer/devdash/internal/platform"
	"github.com/Guliveer/devdash/internal/scheduler"
	"github.com/Guliveer/devdash/internal/store"
)

// shutdownTimeout bounds how long exit waits for running installers.
const shutdownTimeout = 2 * time.Minute

// app is the wired set of components behind every command.
type app struct {
	cfg    *config.Config
	logger *zap.Logger

	platform     platform.Platform
	registry     *collector.Registry
	network      *collector.NetworkCollector
	store        *store.Store
	scheduler    *scheduler.Scheduler
	catalog      *catalog.Catalog
	detector     *catalog.Detector
	archive      archive.Store
	orchestrator *installer.Orchestrator
	controller   *dashboard.Controller
}

// newRegistry registers one collector per metric category. The network
// collector is returned as well so its filter can follow config reloads.
func newRegistry(cfg *config.Config, p platform.Platform, logger *zap.Logger) (*collector.Registry, *collector.NetworkCollector) {
	sensors := collector.NewSensorReader(logger)
	network := collector.NewNetworkCollector(cfg.Sources.PhysicalInterfacesOnly)
	r := collector.NewRegistry(logger)
	r.Register(collector.NewCPUCollector(sensors, logger))
	r.Register(collector.NewMemoryCollector())
	r.Register(collector.NewDiskCollector(logger))
	r.Register(network)
	r.Register(collector.NewGPUCollector(p, sensors, logger))
	r.Register(collector.NewSystemCollector())
	return r, network
}

func loadCatalog(cfg *config.Config) (*catalog.Catalog, error) {
	if cfg.Catalog.File == "" {
		return catalog.Default(), nil
	}
	return catalog.Load(cfg.Catalog.File)
}

func newApp(cfg *config.Config, logger *zap.Logger) (*app, error) {
	cat, err := loadCatalog(cfg)
	if err != nil {
		return nil, err
	}
	arch, err := archive.Open(cfg.Archive, logger)
	if err != nil {
		return nil, fmt.Errorf("opening job archive: %w", err)
	}

	p := platform.New()
	st := store.New()
	registry, network := newRegistry(cfg, p, logger)
	client := catalog.NewClient(cat, cfg.Catalog.ManifestURL, cfg.Catalog.DownloadURL, cfg.Installer.RequestTimeout.Duration, logger)
	detector := catalog.NewDetector(cat, p, logger)
	orch := installer.New(cfg.Installer, client, installer.NewExecLauncher(logger), arch, logger)
	ctrl := dashboard.New(st, orch, detector, func(ctx context.Context) (bool, error) {
		return catalog.InstallerRunning(ctx, catalog.ListProcesses)
	}, logger)

	return &app{
		cfg:          cfg,
		logger:       logger,
		platform:     p,
		registry:     registry,
		network:      network,
		store:        st,
		scheduler:    scheduler.New(registry, st, cfg.Sources, logger),
		catalog:      cat,
		detector:     detector,
		archive:      arch,
		orchestrator: orch,
		controller:   ctrl,
	}, nil
}

// runBackground samples metrics and refreshes install detection until ctx
// is done. When a config file is in use, edits to its sources section are
// applied while running.
func (a *app) runBackground(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.scheduler.Run(gctx)
	})
	g.Go(func() error {
		return a.controller.RunDetection(gctx, a.cfg.Catalog.DetectInterval.Duration)
	})
	if path := configPath(); path != "" {
		g.Go(func() error {
			err := config.Watch(gctx, path, loadConfig, a.applySources, a.logger)
			if err != nil {
				a.logger.Warn("Config reload disabled", zap.Error(err))
			}
			return nil
		})
	}
	return g.Wait()
}

// applySources hands a reloaded sources section to the running collectors.
// Other sections take effect on the next start.
func (a *app) applySources(cfg *config.Config) {
	a.network.SetPhysicalOnly(cfg.Sources.PhysicalInterfacesOnly)
	a.scheduler.Reconfigure(cfg.Sources)
}

// close stops the orchestrator and releases the archive. Installers that
// already launched are waited for, never killed.
func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.orchestrator.Shutdown(ctx); err != nil {
		a.logger.Warn("Install jobs still running at exit", zap.Error(err))
	}
	if err := a.archive.Close(); err != nil {
		a.logger.Warn("Closing job archive failed", zap.Error(err))
	}
}
