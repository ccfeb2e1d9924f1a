package database

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/smukkama/water-monitor/internal/alarming"
	"github.com/smukkama/water-monitor/internal/protocol"
	"github.com/smukkama/water-monitor/internal/quality"
)

func TestMigrationFiles_SortedSQLOnly(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"002_b.sql", "001_a.sql", "README.md"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("--"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "003_dir.sql"), 0o755); err != nil {
		t.Fatal(err)
	}

	files, err := migrationFiles(dir)
	if err != nil {
		t.Fatalf("migrationFiles failed: %v", err)
	}

	if len(files) != 2 || files[0] != "001_a.sql" || files[1] != "002_b.sql" {
		t.Errorf("Unexpected files: %v", files)
	}
}

func TestMigrationFiles_MissingDir(t *testing.T) {
	if _, err := migrationFiles(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("Expected error for missing directory")
	}
}

func TestMigrations_Shipped(t *testing.T) {
	files, err := migrationFiles("../../migrations")
	if err != nil {
		t.Fatalf("migrationFiles failed: %v", err)
	}
	if len(files) == 0 {
		t.Error("Expected at least one migration")
	}
}

func TestNewAlertLog(t *testing.T) {
	raised := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	n := &protocol.AlertNotification{
		StationID:   "lake-7",
		ParameterID: quality.KindTurbidity,
		Value:       25,
		Unit:        "NTU",
		RaisedAt:    raised,
		Alert: alarming.Alert{
			ID:        "alert-turbidity-1",
			Type:      alarming.TypeDanger,
			Parameter: "Turbidity",
			Message:   "Turbidity is at critical levels: 25.00 NTU",
			Timestamp: raised,
			Severity:  alarming.SeverityHigh,
		},
	}

	a := NewAlertLog(n)

	if a.AlertID != "alert-turbidity-1" || a.StationID != "lake-7" || a.ParameterID != "turbidity" {
		t.Errorf("Unexpected identity fields: %+v", a)
	}
	if a.AlertType != "danger" || a.Severity != "high" {
		t.Errorf("Unexpected classification: %s/%s", a.AlertType, a.Severity)
	}
	if a.Value != 25 || a.Unit != "NTU" || !a.RaisedAt.Equal(raised) {
		t.Errorf("Unexpected measurement fields: %+v", a)
	}
}
