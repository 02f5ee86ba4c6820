package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ScrapeInterval != time.Hour {
		t.Fatalf("unexpected scrape interval %v", cfg.ScrapeInterval)
	}
	if cfg.DeliveryDelay != 30*time.Minute {
		t.Fatalf("unexpected delivery delay %v", cfg.DeliveryDelay)
	}
	if cfg.MaxBatchSize != 5 {
		t.Fatalf("unexpected batch size %d", cfg.MaxBatchSize)
	}
	if cfg.KnownRetention != 7*24*time.Hour || cfg.DeliveredRetention != 30*24*time.Hour {
		t.Fatalf("unexpected retention %v / %v", cfg.KnownRetention, cfg.DeliveredRetention)
	}
	if cfg.StorageType != "json" {
		t.Fatalf("unexpected storage type %q", cfg.StorageType)
	}
}

func TestLoadRejectsBadInterval(t *testing.T) {
	t.Setenv("SCRAPE_INTERVAL", "0")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for zero scrape_interval")
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("MAX_BATCH_SIZE", "8")
	t.Setenv("DELIVERED_RETENTION_DAYS", "14")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MaxBatchSize != 8 {
		t.Fatalf("env override ignored, batch size %d", cfg.MaxBatchSize)
	}
	if cfg.DeliveredRetention != 14*24*time.Hour {
		t.Fatalf("env override ignored, delivered retention %v", cfg.DeliveredRetention)
	}
}
