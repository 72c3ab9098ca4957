// Package sqlite keeps an audit log of pipeline runs in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/couchcryptid/asos-pressure-etl/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS ingest_runs (
  run_id      TEXT    PRIMARY KEY,
  station     TEXT    NOT NULL,
  year        INTEGER NOT NULL,
  month       INTEGER NOT NULL,
  status      TEXT    NOT NULL,
  samples     INTEGER NOT NULL DEFAULT 0,
  missing     INTEGER NOT NULL DEFAULT 0,
  strategy    TEXT    NOT NULL DEFAULT '',
  published   INTEGER NOT NULL DEFAULT 0,
  files       TEXT    NOT NULL DEFAULT '[]',
  error       TEXT    NOT NULL DEFAULT '',
  started_at  TEXT    NOT NULL,
  finished_at TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_ingest_runs_started ON ingest_runs(started_at);
`

// timeLayout is fixed width so lexical order of started_at is time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// RunLog implements pipeline.RunRecorder.
type RunLog struct {
	db *sql.DB
}

// Open opens or creates the run log at path.
func Open(path string) (*RunLog, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open run log: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping run log: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate run log: %w", err)
	}
	return &RunLog{db: db}, nil
}

func (l *RunLog) Close() error {
	return l.db.Close()
}

// Record inserts one run.
func (l *RunLog) Record(ctx context.Context, rec domain.RunRecord) error {
	files, err := json.Marshal(nonNil(rec.Files))
	if err != nil {
		return fmt.Errorf("encode files: %w", err)
	}

	_, err = l.db.ExecContext(ctx, `
INSERT INTO ingest_runs
  (run_id, station, year, month, status, samples, missing, strategy, published, files, error, started_at, finished_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID,
		rec.Station,
		rec.Month.Year,
		int(rec.Month.Month),
		string(rec.Status),
		rec.Samples,
		rec.Missing,
		string(rec.Strategy),
		rec.Published,
		string(files),
		rec.Error,
		rec.StartedAt.UTC().Format(timeLayout),
		rec.FinishedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", rec.RunID, err)
	}
	return nil
}

// Recent returns up to limit runs, newest first.
func (l *RunLog) Recent(ctx context.Context, limit int) ([]domain.RunRecord, error) {
	rows, err := l.db.QueryContext(ctx, `
SELECT run_id, station, year, month, status, samples, missing, strategy, published, files, error, started_at, finished_at
FROM ingest_runs
ORDER BY started_at DESC, rowid DESC
LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []domain.RunRecord
	for rows.Next() {
		var (
			rec               domain.RunRecord
			month             int
			status, strategy  string
			files             string
			started, finished string
		)
		if err := rows.Scan(
			&rec.RunID, &rec.Station, &rec.Month.Year, &month, &status,
			&rec.Samples, &rec.Missing, &strategy, &rec.Published, &files,
			&rec.Error, &started, &finished,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		rec.Month.Month = time.Month(month)
		rec.Status = domain.Status(status)
		rec.Strategy = domain.Strategy(strategy)
		if err := json.Unmarshal([]byte(files), &rec.Files); err != nil {
			return nil, fmt.Errorf("decode files of run %s: %w", rec.RunID, err)
		}
		if rec.StartedAt, err = time.Parse(timeLayout, started); err != nil {
			return nil, fmt.Errorf("parse started_at of run %s: %w", rec.RunID, err)
		}
		if rec.FinishedAt, err = time.Parse(timeLayout, finished); err != nil {
			return nil, fmt.Errorf("parse finished_at of run %s: %w", rec.RunID, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
