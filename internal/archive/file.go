package archive

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Guliveer/devdash/internal/models"
)

// FileStore writes each archived job as a timestamped JSON file. When the
// directory grows past the size limit the oldest files are dropped.
type FileStore struct {
	dir       string
	maxSizeMB int
	logger    *zap.Logger
	now       func() time.Time
	mu        sync.Mutex
}

// NewFileStore creates a FileStore in dir, creating the directory if needed.
func NewFileStore(dir string, maxSizeMB int, logger *zap.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileStore{
		dir:       dir,
		maxSizeMB: maxSizeMB,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// Archive saves one job.
func (s *FileStore) Archive(job models.InstallJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}

	for s.maxSizeMB > 0 && s.currentSize()+int64(len(data)) > int64(s.maxSizeMB)*1024*1024 {
		if !s.dropOldest() {
			break
		}
	}

	name := fmt.Sprintf("%s-%d.json", s.now().UTC().Format("20060102T150405.000000000"), uint64(job.ID))
	return os.WriteFile(filepath.Join(s.dir, name), data, 0640)
}

// List reads archived jobs, most recent first. Corrupted files are removed
// and logged.
func (s *FileStore) List(limit int) ([]models.InstallJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	names, err := s.files()
	if err != nil {
		return nil, err
	}

	var jobs []models.InstallJob
	for i := len(names) - 1; i >= 0; i-- {
		if limit > 0 && len(jobs) >= limit {
			break
		}
		path := filepath.Join(s.dir, names[i])
		data, err := os.ReadFile(path)
		if err != nil {
			s.logger.Warn("Failed to read archive file", zap.String("file", path), zap.Error(err))
			continue
		}
		var job models.InstallJob
		if err := json.Unmarshal(data, &job); err != nil {
			s.logger.Warn("Failed to parse archive file, removing corrupted file",
				zap.String("file", path),
				zap.Error(err))
			os.Remove(path)
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// Close is a no-op.
func (s *FileStore) Close() error { return nil }

// files returns archive file names in chronological order.
// Must be called with s.mu held.
func (s *FileStore) files() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".json" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// currentSize returns the total size of the archive files in bytes.
// Must be called with s.mu held.
func (s *FileStore) currentSize() int64 {
	var total int64
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0
	}
	for _, entry := range entries {
		if info, err := entry.Info(); err == nil {
			total += info.Size()
		}
	}
	return total
}

// dropOldest removes the oldest archive file and reports whether one was
// removed. Must be called with s.mu held.
func (s *FileStore) dropOldest() bool {
	names, err := s.files()
	if err != nil || len(names) == 0 {
		return false
	}
	path := filepath.Join(s.dir, names[0])
	if err := os.Remove(path); err != nil {
		s.logger.Warn("Failed to remove oldest archive file", zap.String("file", path), zap.Error(err))
		return false
	}
	s.logger.Debug("Archive full, dropped oldest job", zap.String("file", path))
	return true
}
