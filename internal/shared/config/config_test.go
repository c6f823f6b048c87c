package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	for _, key := range []string{"BATCH_SIZE", "MAX_WORKERS", "ANALYSIS_INTERVAL_MINUTES", "DRY_RUN", "OBJECT_STORE", "ALERT_SINK", "ENV"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	if cfg.BatchSize != 10 {
		t.Fatalf("expected BatchSize=10, got %d", cfg.BatchSize)
	}
	if cfg.MaxWorkers != 5 {
		t.Fatalf("expected MaxWorkers=5, got %d", cfg.MaxWorkers)
	}
	if cfg.AnalysisInterval != 30*time.Minute {
		t.Fatalf("expected 30m interval, got %s", cfg.AnalysisInterval)
	}
	if cfg.ErrorBackoff != time.Minute {
		t.Fatalf("expected 60s backoff, got %s", cfg.ErrorBackoff)
	}
	if cfg.ImageMaxBytes != 25*1024 {
		t.Fatalf("expected 25KB image budget, got %d", cfg.ImageMaxBytes)
	}
	if cfg.DryRun {
		t.Fatalf("expected DryRun=false by default")
	}
	if cfg.ObjectStoreType != "local" || cfg.AlertSink != "none" || cfg.Env != "dev" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("BATCH_SIZE", "3")
	t.Setenv("MAX_WORKERS", "not-a-number")
	t.Setenv("DRY_RUN", "true")
	t.Setenv("OBJECT_STORE", "Azure")
	t.Setenv("ALERT_SINK", "NATS")
	t.Setenv("ENV", "prod")

	cfg := Load()

	if cfg.BatchSize != 3 {
		t.Fatalf("expected BatchSize=3, got %d", cfg.BatchSize)
	}
	if cfg.MaxWorkers != 5 {
		t.Fatalf("expected invalid MAX_WORKERS to fall back to 5, got %d", cfg.MaxWorkers)
	}
	if !cfg.DryRun {
		t.Fatalf("expected DryRun=true")
	}
	if cfg.ObjectStoreType != "azblob" {
		t.Fatalf("expected azblob store, got %s", cfg.ObjectStoreType)
	}
	if cfg.AlertSink != "nats" {
		t.Fatalf("expected nats sink, got %s", cfg.AlertSink)
	}
	if cfg.Env != "production" {
		t.Fatalf("expected production env, got %s", cfg.Env)
	}
}
