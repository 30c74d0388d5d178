package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/kosheduteam/signalengine/config"
)

func TestNullableID_EmptyStringBecomesNil(t *testing.T) {
	if got := nullableID(""); got != nil {
		t.Errorf("expected nil for an empty ID, got %v", got)
	}
	if got := nullableID("sig-1"); got != "sig-1" {
		t.Errorf("expected the ID to pass through unchanged, got %v", got)
	}
}

// TestIntegration_MigrateAndRoundTrip requires a reachable Postgres
// instance via TEST_DATABASE_URL-shaped discrete env vars; it is skipped
// otherwise (mirrors the teacher's own settlement-repository tests, which
// document themselves as "requires a real database" and are not run by
// default).
func TestIntegration_MigrateAndRoundTrip(t *testing.T) {
	host := os.Getenv("TEST_PG_HOST")
	if host == "" {
		t.Skip("set TEST_PG_HOST (and TEST_PG_* peers) to run the postgres integration test")
	}

	cfg := config.DatabaseConfig{
		Host:     host,
		Port:     5432,
		User:     os.Getenv("TEST_PG_USER"),
		Password: os.Getenv("TEST_PG_PASSWORD"),
		DBName:   os.Getenv("TEST_PG_DBNAME"),
		SSLMode:  "disable",
	}

	ctx := context.Background()
	db, err := New(ctx, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if err := db.HealthCheck(ctx); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
}
