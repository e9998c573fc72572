package catalog

import (
	"errors"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/Guliveer/devdash/internal/platform"
)

// registryHives are tried in order for every relative registry key.
var registryHives = []string{`HKLM\`, `HKCU\`}

// Detector reports which catalog packages are installed locally.
type Detector struct {
	catalog  *Catalog
	platform platform.Platform
	logger   *zap.Logger
	username string
	// stat is swapped in tests.
	stat func(string) (os.FileInfo, error)
	glob func(string) ([]string, error)
}

// NewDetector creates a Detector. A nil platform skips registry checks.
func NewDetector(c *Catalog, p platform.Platform, logger *zap.Logger) *Detector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Detector{
		catalog:  c,
		platform: p,
		logger:   logger.Named("detect"),
		username: currentUsername(),
		stat:     os.Stat,
		glob:     filepath.Glob,
	}
}

func currentUsername() string {
	if name := os.Getenv("USERNAME"); name != "" {
		return name
	}
	u, err := user.Current()
	if err != nil {
		return ""
	}
	// DOMAIN\user on Windows.
	if i := strings.LastIndexAny(u.Username, `\/`); i >= 0 {
		return u.Username[i+1:]
	}
	return u.Username
}

// Installed reports whether package id is present. Unknown ids are never
// installed.
func (d *Detector) Installed(id string) bool {
	p, ok := d.catalog.Get(id)
	if !ok {
		return false
	}
	return d.installed(p)
}

// Scan returns the installed state of every package.
func (d *Detector) Scan() map[string]bool {
	out := make(map[string]bool, len(d.catalog.packages))
	for _, p := range d.catalog.packages {
		out[p.ID] = d.installed(p)
	}
	return out
}

func (d *Detector) installed(p Package) bool {
	for _, pattern := range p.Paths {
		if d.pathExists(d.expandPath(pattern)) {
			return true
		}
	}
	if d.platform == nil {
		return false
	}
	for _, key := range p.Registry {
		for _, hive := range registryHives {
			ok, err := d.platform.RegistryKeyExists(hive + key)
			if errors.Is(err, platform.ErrNotSupported) {
				return false
			}
			if err != nil {
				d.logger.Debug("Registry lookup failed", zap.String("key", hive+key), zap.Error(err))
				continue
			}
			if ok {
				return true
			}
		}
	}
	return false
}

func (d *Detector) expandPath(pattern string) string {
	return strings.ReplaceAll(pattern, "%USERNAME%", d.username)
}

// pathExists reports whether pattern, possibly a glob, names a regular file.
func (d *Detector) pathExists(pattern string) bool {
	if !strings.ContainsAny(pattern, "*?[") {
		return d.isFile(pattern)
	}
	matches, err := d.glob(pattern)
	if err != nil {
		return false
	}
	for _, m := range matches {
		if d.isFile(m) {
			return true
		}
	}
	return false
}

func (d *Detector) isFile(path string) bool {
	info, err := d.stat(path)
	return err == nil && info.Mode().IsRegular()
}
