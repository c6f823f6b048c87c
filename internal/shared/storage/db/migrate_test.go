package db

import (
	"context"
	"strings"
	"testing"
)

func TestRunMigrationsNilDatabaseIsNoop(t *testing.T) {
	if err := RunMigrations(context.Background(), nil); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}

func TestEmbeddedMigrationsCoverTables(t *testing.T) {
	names, err := MigrationNames()
	if err != nil {
		t.Fatalf("MigrationNames: %v", err)
	}
	if len(names) == 0 {
		t.Fatalf("expected embedded migrations")
	}
	data, err := migrationFiles.ReadFile("migrations/" + names[0])
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	sql := string(data)
	for _, table := range []string{
		"analysis_tasks", "analysis_configs", "spypoint_images", "ai_analysis_logs",
		"image_analysis_results", "analysis_alerts", "analysis_cache", "analysis_costs",
	} {
		if !strings.Contains(sql, "CREATE TABLE IF NOT EXISTS "+table) {
			t.Fatalf("expected migration to create %s", table)
		}
	}
}
