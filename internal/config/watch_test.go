package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestWatch_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("ui:\n  frame_rate: 20\n"), 0644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan *Config, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func() (*Config, error) { return Load(path) },
			func(c *Config) { changes <- c }, zap.NewNop())
	}()

	// The watcher registers asynchronously; rewrite until a reload lands,
	// spaced wider than the debounce.
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(time.Second)
	defer tick.Stop()
	for {
		if err := os.WriteFile(path, []byte("ui:\n  frame_rate: 45\n"), 0644); err != nil {
			t.Fatal(err)
		}
		select {
		case c := <-changes:
			if c.UI.FrameRate != 45 {
				t.Errorf("FrameRate = %d, want 45", c.UI.FrameRate)
			}
			cancel()
			if err := <-done; err != nil {
				t.Errorf("Watch returned %v", err)
			}
			return
		case <-tick.C:
		case <-deadline:
			t.Fatal("no reload observed")
		}
	}
}

func TestWatch_SkipsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("ui:\n  frame_rate: 20\n"), 0644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	changes := make(chan *Config, 4)
	go func() {
		time.Sleep(100 * time.Millisecond)
		os.WriteFile(path, []byte("ui:\n  frame_rate: 0\n"), 0644)
	}()
	if err := Watch(ctx, path, func() (*Config, error) { return Load(path) },
		func(c *Config) { changes <- c }, zap.NewNop()); err != nil {
		t.Fatal(err)
	}
	if len(changes) != 0 {
		t.Errorf("invalid config was applied")
	}
}

func TestWatch_MissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope", "config.yaml")
	err := Watch(context.Background(), path, func() (*Config, error) { return nil, nil },
		func(*Config) {}, zap.NewNop())
	if err == nil {
		t.Fatal("expected error for missing directory")
	}
}
