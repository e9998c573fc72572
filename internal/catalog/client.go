package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// maxManifestSize bounds the manifest body.
const maxManifestSize = 1 << 20

// Manifest tells the installer where to fetch a package and how to check it.
type Manifest struct {
	PackageID string   `json:"package_id"`
	URL       string   `json:"url"`
	Size      int64    `json:"size,omitempty"`
	SHA256    string   `json:"sha256,omitempty"`
	Args      []string `json:"args,omitempty"`
	FileName  string   `json:"file_name,omitempty"`
}

// Client resolves package ids to manifests. With a manifest URL configured
// it asks the remote endpoint; otherwise the download URL template is
// filled in directly.
type Client struct {
	catalog     *Catalog
	manifestURL string
	downloadURL string
	client      *http.Client
	logger      *zap.Logger
}

// NewClient creates a Client. "{id}" in either template is replaced by the
// package's download id. timeout bounds one manifest request; zero means no
// limit beyond the caller's context.
func NewClient(c *Catalog, manifestURL, downloadURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		catalog:     c,
		manifestURL: manifestURL,
		downloadURL: downloadURL,
		client:      &http.Client{Timeout: timeout},
		logger:      logger.Named("catalog"),
	}
}

// Lookup returns the display name of a package, or ErrUnknownPackage.
func (c *Client) Lookup(id string) (string, error) {
	p, ok := c.catalog.Get(id)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownPackage, id)
	}
	return p.Name, nil
}

// Resolve returns the manifest for package id. It makes a single request;
// callers decide whether to try again with Retryable.
func (c *Client) Resolve(ctx context.Context, id string) (Manifest, error) {
	p, ok := c.catalog.Get(id)
	if !ok {
		return Manifest{}, fmt.Errorf("%w: %q", ErrUnknownPackage, id)
	}
	if c.manifestURL == "" {
		return Manifest{
			PackageID: id,
			URL:       expand(c.downloadURL, p.downloadID()),
			FileName:  p.downloadID() + "-installer.exe",
		}, nil
	}
	return c.fetchManifest(ctx, p)
}

func expand(template, id string) string {
	return strings.ReplaceAll(template, "{id}", id)
}

// fetchManifest GETs and checks the manifest for p.
func (c *Client) fetchManifest(ctx context.Context, p Package) (Manifest, error) {
	m, err := c.doFetch(ctx, expand(c.manifestURL, p.downloadID()))
	if err != nil {
		c.logger.Debug("Manifest fetch failed", zap.String("package", p.ID), zap.Error(err))
		return Manifest{}, fmt.Errorf("fetching manifest for %q: %w", p.ID, err)
	}
	if m.PackageID == "" {
		m.PackageID = p.ID
	}
	if m.URL == "" {
		return Manifest{}, fmt.Errorf("manifest for %q has no url", p.ID)
	}
	return m, nil
}

func (c *Client) doFetch(ctx context.Context, url string) (Manifest, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Manifest{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return Manifest{}, &transportError{err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return Manifest{}, &statusError{statusCode: resp.StatusCode}
	}

	var m Manifest
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxManifestSize)).Decode(&m); err != nil {
		return Manifest{}, fmt.Errorf("decode manifest: %w", err)
	}
	return m, nil
}

// statusError is a non-2xx manifest response.
type statusError struct {
	statusCode int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("manifest server returned %d", e.statusCode)
}

// retryable reports whether the status may succeed later: 5xx, 408 and 429.
func (e *statusError) retryable() bool {
	return e.statusCode >= 500 || e.statusCode == http.StatusRequestTimeout || e.statusCode == http.StatusTooManyRequests
}

// transportError is a request that got no response at all.
type transportError struct {
	err error
}

func (e *transportError) Error() string { return "send request: " + e.err.Error() }

func (e *transportError) Unwrap() error { return e.err }

// Retryable reports whether a Resolve error may clear on a later attempt:
// transport failures and 5xx, 408 or 429 responses. Unknown packages,
// other 4xx responses and malformed manifests are permanent.
func Retryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.retryable()
	}
	var te *transportError
	return errors.As(err, &te)
}
