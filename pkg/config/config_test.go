package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STATION_ID", "")
	t.Setenv("HTTP_PORT", "")
	t.Setenv("NOTIFY_MIN_SEVERITY", "")
	t.Setenv("INSIGHT_HTTP_TIMEOUT", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.StationID != "station-1" {
		t.Errorf("Expected station-1, got %s", cfg.StationID)
	}
	if cfg.HTTP.Port != 8080 {
		t.Errorf("Expected port 8080, got %d", cfg.HTTP.Port)
	}
	if cfg.Insight.Timeout != 0 {
		t.Errorf("Expected no insight timeout by default, got %v", cfg.Insight.Timeout)
	}
	if cfg.Notify.MinSeverity != "high" {
		t.Errorf("Expected min severity high, got %s", cfg.Notify.MinSeverity)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STATION_ID", "lake-7")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("REDIS_SNAPSHOT_TTL", "30s")
	t.Setenv("MQTT_TOPIC", "")
	t.Setenv("NOTIFY_MIN_SEVERITY", "MEDIUM")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.HTTP.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", cfg.HTTP.Port)
	}
	if !cfg.Kafka.Enabled || len(cfg.Kafka.Brokers) != 2 {
		t.Errorf("Unexpected kafka config: %+v", cfg.Kafka)
	}
	if cfg.Redis.SnapshotTTL != 30*time.Second {
		t.Errorf("Expected 30s TTL, got %v", cfg.Redis.SnapshotTTL)
	}
	if cfg.MQTT.Topic != "water/lake-7/reading" {
		t.Errorf("Expected station-scoped topic, got %s", cfg.MQTT.Topic)
	}
	if cfg.Notify.MinSeverity != "medium" {
		t.Errorf("Expected medium, got %s", cfg.Notify.MinSeverity)
	}
}

func TestLoad_InvalidSeverity(t *testing.T) {
	t.Setenv("NOTIFY_MIN_SEVERITY", "urgent")

	if _, err := Load(); err == nil {
		t.Error("Expected error for unknown severity")
	}
}

func TestDatabaseConfig_ConnectionString(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", DBName: "water", SSLMode: "disable"}

	want := "host=db port=5432 user=u password=p dbname=water sslmode=disable"
	if got := d.ConnectionString(); got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}
