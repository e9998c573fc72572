package setup

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Guliveer/devdash/internal/config"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		input   string
		want    InstallMode
		wantErr bool
	}{
		{"system", ModeSystem, false},
		{"user", ModeUser, false},
		{"invalid", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMode(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseMode(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestResolvePaths_UserMode(t *testing.T) {
	p := ResolvePaths(ModeUser)
	if p.BinPath == "" {
		t.Error("BinPath should not be empty")
	}
	if p.ConfigPath == "" {
		t.Error("ConfigPath should not be empty")
	}
	if p.DataDir != config.DataDir() {
		t.Errorf("DataDir = %q, want %q", p.DataDir, config.DataDir())
	}
	if filepath.Dir(p.DownloadDir) != p.DataDir || filepath.Dir(p.ArchiveDir) != p.DataDir {
		t.Errorf("downloads and archive should live under %s: %+v", p.DataDir, p)
	}
}

func TestResolvePaths_SystemMode(t *testing.T) {
	p := ResolvePaths(ModeSystem)
	if p.BinPath == "" {
		t.Error("BinPath should not be empty")
	}
	if p.ConfigPath == ResolvePaths(ModeUser).ConfigPath {
		t.Error("system and user config paths should differ")
	}
}

func testPaths(t *testing.T) Paths {
	dir := t.TempDir()
	return newPaths(filepath.Join(dir, "bin"), "devdash", filepath.Join(dir, "etc", "config.yaml"), filepath.Join(dir, "data"))
}

func TestApply(t *testing.T) {
	p := testPaths(t)
	var out bytes.Buffer
	err := Apply(p, Options{ArchiveBackend: "none", ManifestURL: "https://pkgs.example.com/{id}.json"}, &out)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	for _, dir := range []string{p.DataDir, p.DownloadDir, p.ArchiveDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Errorf("%s not created: %v", dir, err)
		}
	}
	if _, err := os.Stat(p.BinDir); !os.IsNotExist(err) {
		t.Errorf("bin dir should not be created without InstallBinary")
	}

	cfg, err := config.Load(p.ConfigPath)
	if err != nil {
		t.Fatalf("loading written config: %v", err)
	}
	if cfg.Installer.DownloadDir != p.DownloadDir {
		t.Errorf("download dir = %q, want %q", cfg.Installer.DownloadDir, p.DownloadDir)
	}
	if cfg.Archive.Backend != "none" {
		t.Errorf("archive backend = %q, want none", cfg.Archive.Backend)
	}
	if cfg.Catalog.ManifestURL != "https://pkgs.example.com/{id}.json" {
		t.Errorf("manifest url = %q", cfg.Catalog.ManifestURL)
	}
	if !strings.Contains(out.String(), "Written config") {
		t.Errorf("output missing summary: %q", out.String())
	}
}

func TestApply_ExistingConfig(t *testing.T) {
	p := testPaths(t)
	if err := Apply(p, Options{}, &bytes.Buffer{}); err != nil {
		t.Fatalf("first Apply: %v", err)
	}
	err := Apply(p, Options{}, &bytes.Buffer{})
	if !errors.Is(err, ErrConfigExists) {
		t.Fatalf("second Apply error = %v, want ErrConfigExists", err)
	}
	if err := Apply(p, Options{Force: true, ArchiveBackend: "sqlite"}, &bytes.Buffer{}); err != nil {
		t.Fatalf("forced Apply: %v", err)
	}
	cfg, err := config.Load(p.ConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Archive.Backend != "sqlite" {
		t.Errorf("archive backend = %q, want sqlite", cfg.Archive.Backend)
	}
}

func TestApply_RejectsInsecureManifest(t *testing.T) {
	p := testPaths(t)
	err := Apply(p, Options{ManifestURL: "http://pkgs.example.com/{id}"}, &bytes.Buffer{})
	if err == nil {
		t.Fatal("expected validation error for plain HTTP manifest URL")
	}
	if _, statErr := os.Stat(p.ConfigPath); !os.IsNotExist(statErr) {
		t.Error("config should not be written when invalid")
	}
}

func TestApply_InstallBinary(t *testing.T) {
	p := testPaths(t)
	if err := Apply(p, Options{InstallBinary: true}, &bytes.Buffer{}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	info, err := os.Stat(p.BinPath)
	if err != nil {
		t.Fatalf("binary not copied: %v", err)
	}
	if info.Size() == 0 {
		t.Error("copied binary is empty")
	}
}

func TestCheckElevation(t *testing.T) {
	if err := CheckElevation(ModeUser); err != nil {
		t.Errorf("user mode: %v", err)
	}

	err := CheckElevation(ModeSystem)
	if err != nil && !errors.Is(err, ErrNotElevated) {
		t.Errorf("system mode: got %v, want nil or ErrNotElevated", err)
	}
	if err != nil && !strings.Contains(err.Error(), "init --mode system") {
		t.Errorf("error %q has no rerun hint", err)
	}
}
