package installer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Guliveer/devdash/internal/catalog"
	"github.com/Guliveer/devdash/internal/models"
)

const (
	userAgent = "devdash-installer"
	chunkSize = 32 * 1024
)

// fetch resolves and downloads the installer for a job. It is the only
// retry loop: resolve and download failures that may clear are retried with
// exponential backoff up to MaxAttempts, everything else fails at once. It
// returns the path of a verified file.
func (o *Orchestrator) fetch(ctx context.Context, id models.JobID, packageID string) (string, catalog.Manifest, error) {
	var lastErr error
	for attempt := 1; attempt <= o.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			delay := o.backoff(attempt - 1)
			o.logger.Warn("Retrying download",
				zap.Stringer("job", id),
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(lastErr))
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return "", catalog.Manifest{}, errCancelled
			case <-timer.C:
			}
		}
		if ctx.Err() != nil {
			return "", catalog.Manifest{}, errCancelled
		}
		o.update(id, func(j *models.InstallJob) {
			j.Attempts = attempt
			j.Progress = 0
			j.BytesReceived = 0
			j.Indeterminate = true
		})

		m, err := o.resolver.Resolve(ctx, packageID)
		if err != nil {
			if ctx.Err() != nil {
				return "", catalog.Manifest{}, errCancelled
			}
			err = networkError(catalog.Retryable(err), "resolving manifest: %w", err)
			if !retryable(err) {
				return "", catalog.Manifest{}, err
			}
			lastErr = err
			continue
		}

		file, err := o.download(ctx, id, m)
		if err == nil {
			if err = verify(file, m); err != nil {
				os.Remove(file)
				return "", m, err
			}
			return file, m, nil
		}
		if !retryable(err) {
			return "", m, err
		}
		lastErr = err
	}
	return "", catalog.Manifest{}, lastErr
}

// backoff returns the delay before retry n (1-based), capped at
// MaxRetryDelay.
func (o *Orchestrator) backoff(n int) time.Duration {
	delay := time.Duration(math.Pow(2, float64(n-1))) * o.cfg.BaseRetryDelay.Duration
	if ceiling := o.cfg.MaxRetryDelay.Duration; ceiling > 0 && (delay > ceiling || delay <= 0) {
		return ceiling
	}
	return delay
}

// download streams m.URL into the download directory, reporting progress
// after every chunk. Cancellation is checked before each read.
func (o *Orchestrator) download(ctx context.Context, id models.JobID, m catalog.Manifest) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.URL, nil)
	if err != nil {
		return "", networkError(false, "create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := o.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", errCancelled
		}
		return "", networkError(true, "download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		retry := resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusRequestTimeout
		return "", networkError(retry, "download failed: status %d", resp.StatusCode)
	}

	if err := os.MkdirAll(o.cfg.DownloadDir, 0755); err != nil {
		return "", networkError(false, "create download dir: %w", err)
	}
	dest := filepath.Join(o.cfg.DownloadDir, fmt.Sprintf("%d-%s", uint64(id), installerFileName(m)))
	out, err := os.Create(dest)
	if err != nil {
		return "", networkError(false, "create installer file: %w", err)
	}

	total := resp.ContentLength
	if total <= 0 && m.Size > 0 {
		total = m.Size
	}
	o.update(id, func(j *models.InstallJob) {
		j.BytesTotal = max(total, 0)
		j.Indeterminate = total <= 0
	})

	received, err := o.copyChunks(ctx, id, out, resp.Body, total)
	if cerr := out.Close(); err == nil && cerr != nil {
		err = networkError(false, "write installer file: %w", cerr)
	}
	if err == nil && resp.ContentLength > 0 && received < resp.ContentLength {
		err = networkError(true, "download truncated at %d of %d bytes", received, resp.ContentLength)
	}
	if err != nil {
		os.Remove(dest)
		return "", err
	}
	return dest, nil
}

func (o *Orchestrator) copyChunks(ctx context.Context, id models.JobID, dst io.Writer, src io.Reader, total int64) (int64, error) {
	buf := make([]byte, chunkSize)
	var received int64
	for {
		if ctx.Err() != nil {
			return received, errCancelled
		}
		n, rerr := src.Read(buf)
		if n > 0 {
			if _, err := dst.Write(buf[:n]); err != nil {
				return received, networkError(false, "write installer file: %w", err)
			}
			received += int64(n)
			o.update(id, func(j *models.InstallJob) {
				j.BytesReceived = received
				if total > 0 {
					j.Progress = min(float64(received)/float64(total), 1)
				}
			})
		}
		if rerr == io.EOF {
			return received, nil
		}
		if rerr != nil {
			if ctx.Err() != nil {
				return received, errCancelled
			}
			return received, networkError(true, "read body: %w", rerr)
		}
	}
}

// verify checks the downloaded size and checksum against the manifest.
func verify(path string, m catalog.Manifest) error {
	if m.Size > 0 {
		info, err := os.Stat(path)
		if err != nil {
			return verificationError("stat installer: %w", err)
		}
		if info.Size() != m.Size {
			return verificationError("size mismatch: expected %d, got %d", m.Size, info.Size())
		}
	}
	if m.SHA256 == "" {
		return nil
	}
	actual, err := fileChecksum(path)
	if err != nil {
		return verificationError("compute checksum: %w", err)
	}
	if !strings.EqualFold(actual, m.SHA256) {
		return verificationError("checksum mismatch: expected %s, got %s", m.SHA256, actual)
	}
	return nil
}

// fileChecksum computes the SHA-256 checksum of a file.
func fileChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// installerFileName picks a safe local file name for the download.
func installerFileName(m catalog.Manifest) string {
	name := m.FileName
	if name == "" {
		if u, err := url.Parse(m.URL); err == nil {
			name = path.Base(u.Path)
		}
	}
	name = filepath.Base(name)
	if name == "" || name == "." || name == "/" || name == `\` {
		name = m.PackageID + "-installer.exe"
	}
	return name
}
