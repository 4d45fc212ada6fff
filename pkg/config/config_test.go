package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.API.BaseURL == "" {
		t.Error("expected a default API base URL")
	}
	if cfg.Harvest.StartDate != "01-01-2024" {
		t.Errorf("startDate = %q", cfg.Harvest.StartDate)
	}
	if cfg.Resolver.MatchThreshold != 85 {
		t.Errorf("matchThreshold = %d, want 85", cfg.Resolver.MatchThreshold)
	}
	if cfg.Resolver.AmountFloor != 100000 {
		t.Errorf("amountFloor = %v, want 100000", cfg.Resolver.AmountFloor)
	}
	if cfg.Kafka.Topics.HarvestDays != "harvest-days" {
		t.Errorf("harvestDays topic = %q", cfg.Kafka.Topics.HarvestDays)
	}
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
api:
  requestTimeout: 12s
harvest:
  startDate: 15-06-2023
  workers: 8
resolver:
  matchThreshold: 90
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.API.RequestTimeout != 12*time.Second {
		t.Errorf("requestTimeout = %s", cfg.API.RequestTimeout)
	}
	if cfg.Harvest.StartDate != "15-06-2023" || cfg.Harvest.Workers != 8 {
		t.Errorf("harvest = %+v", cfg.Harvest)
	}
	if cfg.Resolver.MatchThreshold != 90 {
		t.Errorf("matchThreshold = %d", cfg.Resolver.MatchThreshold)
	}
	// Untouched sections keep their defaults.
	if cfg.Postgres.Port != 5432 {
		t.Errorf("postgres port = %d", cfg.Postgres.Port)
	}
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	t.Setenv("BH_POSTGRES_HOST", "db.internal")
	t.Setenv("BH_HARVEST_FORCED_START_DATE", "01-02-2025")
	t.Setenv("BH_KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Postgres.Host != "db.internal" {
		t.Errorf("host = %q", cfg.Postgres.Host)
	}
	if cfg.Harvest.ForcedStartDate != "01-02-2025" {
		t.Errorf("forcedStartDate = %q", cfg.Harvest.ForcedStartDate)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "k2:9092" {
		t.Errorf("brokers = %v", cfg.Kafka.Brokers)
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	if _, err := Load("does/not/exist.yaml"); err == nil {
		t.Error("expected an error for a missing config file")
	}
}
