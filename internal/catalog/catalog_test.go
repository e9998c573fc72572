package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Guliveer/devdash/internal/platform"
)

func TestDefaultCatalog(t *testing.T) {
	c := Default()
	p, ok := c.Get("vscode")
	require.True(t, ok)
	assert.Equal(t, "Developer Tools", p.Category)
	assert.NotEmpty(t, p.Paths)

	_, ok = c.Get("nope")
	assert.False(t, ok)

	cats := c.Categories()
	require.NotEmpty(t, cats)
	assert.Equal(t, "Web Browsers", cats[0])
	assert.Equal(t, "Other", cats[len(cats)-1])
	assert.NotEmpty(t, c.ByCategory("Compression"))
}

func TestParseRejectsDuplicates(t *testing.T) {
	_, err := Parse([]byte("packages:\n  - id: a\n  - id: a\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")

	_, err = Parse([]byte("packages:\n  - name: nameless\n"))
	require.Error(t, err)
}

func TestParseDefaults(t *testing.T) {
	c, err := Parse([]byte("packages:\n  - id: tool\n"))
	require.NoError(t, err)
	p, _ := c.Get("tool")
	assert.Equal(t, "tool", p.Name)
	assert.Equal(t, "Other", p.Category)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("packages:\n  - id: x\n    name: X\n"), 0600))
	c, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, c.Packages(), 1)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestResolveTemplate(t *testing.T) {
	cl := NewClient(Default(), "", "https://dl.example.com/{id}/setup.exe", time.Second, zap.NewNop())
	m, err := cl.Resolve(context.Background(), "vscode")
	require.NoError(t, err)
	assert.Equal(t, "https://dl.example.com/vscode/setup.exe", m.URL)
	assert.Equal(t, "vscode", m.PackageID)

	_, err = cl.Resolve(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrUnknownPackage)
	assert.False(t, Retryable(err))
}

func TestResolveManifest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/manifests/vscode.json", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"url":"https://dl.example.com/vscode.exe","size":42,"sha256":"abc"}`))
	}))
	defer srv.Close()

	cl := NewClient(Default(), srv.URL+"/manifests/{id}.json", "", time.Second, zap.NewNop())
	m, err := cl.Resolve(context.Background(), "vscode")
	require.NoError(t, err)
	assert.Equal(t, "vscode", m.PackageID)
	assert.Equal(t, int64(42), m.Size)
	assert.Equal(t, "abc", m.SHA256)
}

func TestResolveManifestMakesOneRequest(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		retryable bool
	}{
		{"not found", http.StatusNotFound, false},
		{"forbidden", http.StatusForbidden, false},
		{"unavailable", http.StatusServiceUnavailable, true},
		{"too many requests", http.StatusTooManyRequests, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hits atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				hits.Add(1)
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			cl := NewClient(Default(), srv.URL+"/{id}", "", time.Second, zap.NewNop())
			_, err := cl.Resolve(context.Background(), "vscode")
			var se *statusError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, tt.status, se.statusCode)
			assert.Equal(t, tt.retryable, Retryable(err))
			assert.Equal(t, int32(1), hits.Load())
		})
	}
}

func TestResolveManifestTransportErrorIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	cl := NewClient(Default(), url+"/{id}", "", time.Second, zap.NewNop())
	_, err := cl.Resolve(context.Background(), "vscode")
	require.Error(t, err)
	assert.True(t, Retryable(err))
}

func TestResolveManifestWithoutURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	cl := NewClient(Default(), srv.URL+"/{id}", "", time.Second, zap.NewNop())
	_, err := cl.Resolve(context.Background(), "vscode")
	assert.ErrorContains(t, err, "no url")
	assert.False(t, Retryable(err))
}

type fakeRegistry struct {
	keys map[string]bool
	err  error
}

func (f *fakeRegistry) QueryGPUs(context.Context) ([]platform.GPUStats, error) {
	return nil, platform.ErrNoGPU
}
func (f *fakeRegistry) QueryVideoControllers(context.Context) ([]platform.GPUStats, error) {
	return nil, platform.ErrNoGPU
}
func (f *fakeRegistry) RegistryKeyExists(key string) (bool, error) { return f.keys[key], f.err }
func (f *fakeRegistry) Name() string                               { return "fake" }

func testCatalog(t *testing.T, dir string) *Catalog {
	t.Helper()
	data := "packages:\n" +
		"  - id: tool\n    paths:\n      - " + filepath.Join(dir, "%USERNAME%", "tool.exe") + "\n" +
		"  - id: globbed\n    paths:\n      - " + filepath.Join(dir, "Apps", "*", "app.exe") + "\n" +
		"  - id: dironly\n    paths:\n      - " + filepath.Join(dir, "folder") + "\n" +
		"  - id: reg\n    registry:\n      - SOFTWARE\\Vendor\\Reg\n"
	c, err := Parse([]byte(data))
	require.NoError(t, err)
	return c
}

func TestDetector(t *testing.T) {
	dir := t.TempDir()
	c := testCatalog(t, dir)

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "alice"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "alice", "tool.exe"), nil, 0600))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "Apps", "v1.2"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Apps", "v1.2", "app.exe"), nil, 0600))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "folder"), 0755))

	reg := &fakeRegistry{keys: map[string]bool{`HKCU\SOFTWARE\Vendor\Reg`: true}}
	d := NewDetector(c, reg, zap.NewNop())
	d.username = "alice"

	got := d.Scan()
	assert.Equal(t, map[string]bool{
		"tool":    true,
		"globbed": true,
		"dironly": false,
		"reg":     true,
	}, got)

	d.username = "bob"
	assert.False(t, d.Installed("tool"))
	assert.False(t, d.Installed("unknown"))
}

func TestDetectorRegistryUnsupported(t *testing.T) {
	c := testCatalog(t, t.TempDir())
	d := NewDetector(c, &fakeRegistry{err: platform.ErrNotSupported}, zap.NewNop())
	assert.False(t, d.Installed("reg"))

	d = NewDetector(c, nil, zap.NewNop())
	assert.False(t, d.Installed("reg"))
}

func TestInstallerRunning(t *testing.T) {
	tests := []struct {
		names []string
		want  bool
	}{
		{[]string{"explorer.exe", "Ninite.exe"}, true},
		{[]string{"ninite-setup.exe"}, true},
		{[]string{"ninite"}, false},
		{[]string{"bash", "code.exe"}, false},
		{nil, false},
	}
	for _, tt := range tests {
		got, err := InstallerRunning(context.Background(), func(context.Context) ([]string, error) {
			return tt.names, nil
		})
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%v", tt.names)
	}

	_, err := InstallerRunning(context.Background(), func(context.Context) ([]string, error) {
		return nil, errors.New("denied")
	})
	assert.Error(t, err)
}
