package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatch_ReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("logging:\n  level: INFO\n"), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan *Config, 1)
	go func() {
		_ = Watch(ctx, path, func(cfg *Config) { changed <- cfg }, nil)
	}()

	time.Sleep(50 * time.Millisecond)
	if err := os.WriteFile(path, []byte("logging:\n  level: DEBUG\n"), 0600); err != nil {
		t.Fatalf("failed to rewrite test config: %v", err)
	}

	select {
	case cfg := <-changed:
		if cfg.Logging.Level != "DEBUG" {
			t.Fatalf("Logging.Level = %q, want DEBUG", cfg.Logging.Level)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for config reload")
	}
}
