// Package archive keeps install jobs that were dismissed or retired from the
// live job table, either as JSON files or in a sqlite database.
package archive

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Guliveer/devdash/internal/config"
	"github.com/Guliveer/devdash/internal/models"
)

// Store persists finished install jobs.
type Store interface {
	Archive(job models.InstallJob) error
	// List returns up to limit jobs, most recent first. limit <= 0 means all.
	List(limit int) ([]models.InstallJob, error)
	Close() error
}

// Open returns the store selected by cfg.Backend.
func Open(cfg config.ArchiveConfig, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("archive")
	switch cfg.Backend {
	case "file":
		s, err := NewFileStore(cfg.Path, cfg.MaxSizeMB, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "sqlite":
		s, err := NewSQLiteStore(cfg.Path, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "none", "":
		return Nop{}, nil
	default:
		return nil, fmt.Errorf("unknown archive backend %q", cfg.Backend)
	}
}

// Nop discards everything.
type Nop struct{}

func (Nop) Archive(models.InstallJob) error       { return nil }
func (Nop) List(int) ([]models.InstallJob, error) { return nil, nil }
func (Nop) Close() error                          { return nil }
