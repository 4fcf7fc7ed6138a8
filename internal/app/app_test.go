package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"heist/server/logging"
)

func TestBuildSinksFollowsConfig(t *testing.T) {
	cfg := logging.DefaultConfig()
	cfg.EnabledSinks = []string{"console", "json"}
	cfg.JSON.FilePath = filepath.Join(t.TempDir(), "events.jsonl")

	sinks, err := buildSinks(cfg, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("buildSinks returned error: %v", err)
	}
	if len(sinks) != 2 || sinks[0].Name != "console" || sinks[1].Name != "json" {
		t.Fatalf("expected console and json sinks, got %+v", sinks)
	}
	for _, s := range sinks {
		if err := s.Sink.Close(context.Background()); err != nil {
			t.Fatalf("failed to close %s: %v", s.Name, err)
		}
	}
	if _, err := os.Stat(cfg.JSON.FilePath); err != nil {
		t.Fatalf("expected json log file to exist: %v", err)
	}
}

func TestBuildSinksReportsUnwritablePath(t *testing.T) {
	cfg := logging.DefaultConfig()
	cfg.EnabledSinks = []string{"json"}
	cfg.JSON.FilePath = filepath.Join(t.TempDir(), "missing", "events.jsonl")

	if _, err := buildSinks(cfg, &bytes.Buffer{}); err == nil {
		t.Fatalf("expected error for missing directory")
	}
}
