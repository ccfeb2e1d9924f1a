package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "github.com/lib/pq"

	"github.com/smukkama/water-monitor/internal/logger"
	"github.com/smukkama/water-monitor/internal/retry"
)

// DB wraps the database connection
type DB struct {
	*sql.DB
}

// Connect opens a connection pool and retries the initial ping
func Connect(ctx context.Context, connectionString string) (*DB, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := retry.Do(ctx, "postgres ping", retry.DefaultPolicy, func() error {
		return db.PingContext(ctx)
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	return &DB{db}, nil
}

// RunMigrations executes all SQL migration files in order
func (db *DB) RunMigrations(migrationsDir string) error {
	files, err := migrationFiles(migrationsDir)
	if err != nil {
		return err
	}

	for _, filename := range files {
		logger.Logger.Info().Str("migration", filename).Msg("running migration")

		content, err := os.ReadFile(filepath.Join(migrationsDir, filename))
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", filename, err)
		}

		if _, err := db.Exec(string(content)); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", filename, err)
		}
	}

	logger.Logger.Info().Int("count", len(files)).Msg("migrations completed")
	return nil
}

// migrationFiles lists the .sql files in dir sorted by name
func migrationFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

// InsertAlertLog archives an alert. Redelivered alerts are ignored and
// report inserted=false.
func (db *DB) InsertAlertLog(ctx context.Context, a *AlertLog) (bool, error) {
	query := `
		INSERT INTO alerts_log (
			alert_id, station_id, parameter_id, parameter, alert_type,
			severity, message, value, unit, raised_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (station_id, alert_id) DO NOTHING
		RETURNING id
	`

	err := db.QueryRowContext(ctx, query,
		a.AlertID,
		a.StationID,
		a.ParameterID,
		a.Parameter,
		a.AlertType,
		a.Severity,
		a.Message,
		a.Value,
		a.Unit,
		a.RaisedAt,
	).Scan(&a.ID)

	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
