// Package store manages the local SQLite analytical database backing the
// heatgrid pipeline.
package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/gridsight/heatgrid-cli/internal/model"
)

// Store wraps the single local database file. Every command opens a Store,
// does its work, and closes it; nothing holds the file across invocations.
type Store struct {
	db *sql.DB
}

// Open opens (creating if absent) the SQLite database at path and configures
// WAL mode.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "store: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "store: exec %s", pragma)
		}
	}
	return &Store{db: db}, nil
}

// Raw source tables and the stage run ledger. The five derived tables are
// not part of the migration: each pipeline stage drops and recreates its own.
const migration = `
CREATE TABLE IF NOT EXISTS noaa_hourly_avg (
	station  TEXT,
	hour_utc TEXT,
	temp_c   REAL
);

CREATE TABLE IF NOT EXISTS eia_load_hourly (
	region   TEXT,
	hour_utc TEXT,
	load_mwh REAL
);

CREATE TABLE IF NOT EXISTS stage_runs (
	id           TEXT PRIMARY KEY,
	stage        TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'running',
	started_at   DATETIME NOT NULL,
	completed_at DATETIME,
	rows_written INTEGER NOT NULL DEFAULT 0,
	error        TEXT
);

CREATE INDEX IF NOT EXISTS idx_noaa_hourly_station_hour ON noaa_hourly_avg(station, hour_utc);
CREATE INDEX IF NOT EXISTS idx_eia_hourly_region_hour ON eia_load_hourly(region, hour_utc);
CREATE INDEX IF NOT EXISTS idx_stage_runs_stage ON stage_runs(stage, started_at);
`

// Migrate creates the raw source tables and the stage run ledger.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, migration)
	return eris.Wrap(err, "store: migrate")
}

func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for the pipeline stages.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Tables lists every table a successful full run leaves behind, raw feeds
// first, then the derived tables in pipeline order.
var Tables = []string{
	"noaa_hourly_avg",
	"eia_load_hourly",
	"noaa_daily_temp",
	"noaa_temp_thresholds",
	"noaa_heatwave_flags",
	"eia_daily_load",
	"heat_load_daily",
}

var knownTables = func() map[string]bool {
	m := make(map[string]bool, len(Tables))
	for _, t := range Tables {
		m[t] = true
	}
	return m
}()

// TableExists reports whether the named table is present in the database.
func (s *Store) TableExists(ctx context.Context, table string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`,
		table,
	).Scan(&n)
	if err != nil {
		return false, eris.Wrapf(err, "store: check table %s", table)
	}
	return n > 0, nil
}

// TableCount returns the row count of one of the pipeline's tables.
// The name is validated against the known table set; it is interpolated
// into the statement because SQLite cannot bind identifiers.
func (s *Store) TableCount(ctx context.Context, table string) (int64, error) {
	if !knownTables[table] {
		return 0, eris.Errorf("store: unknown table %q", table)
	}
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM "`+table+`"`).Scan(&n)
	if err != nil {
		return 0, eris.Wrapf(err, "store: count %s", table)
	}
	return n, nil
}

// WithTx runs fn inside a transaction, committing on nil and rolling back
// on error.
func (s *Store) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "store: begin tx")
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return eris.Wrap(tx.Commit(), "store: commit tx")
}

// hourKey encodes a timestamp as the canonical hour-truncated UTC text key.
func hourKey(t time.Time) string {
	return t.UTC().Truncate(time.Hour).Format(time.RFC3339)
}

// InsertHourlyTemps appends raw hourly temperature observations in one
// transaction. Nil temperatures insert as NULL.
func (s *Store) InsertHourlyTemps(ctx context.Context, obs []model.HourlyTemp) (int64, error) {
	var n int64
	err := s.WithTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO noaa_hourly_avg (station, hour_utc, temp_c) VALUES (?, ?, ?)`)
		if err != nil {
			return eris.Wrap(err, "store: prepare temp insert")
		}
		defer stmt.Close()

		for _, o := range obs {
			var temp any
			if o.TempC != nil {
				temp = *o.TempC
			}
			if _, err := stmt.ExecContext(ctx, o.Station, hourKey(o.HourUTC), temp); err != nil {
				return eris.Wrapf(err, "store: insert temp %s %s", o.Station, hourKey(o.HourUTC))
			}
			n++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// InsertHourlyLoads appends raw hourly load observations in one transaction.
// Duplicate rows from upstream replays are inserted as-is; the daily-load
// stage deduplicates.
func (s *Store) InsertHourlyLoads(ctx context.Context, obs []model.HourlyLoad) (int64, error) {
	var n int64
	err := s.WithTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO eia_load_hourly (region, hour_utc, load_mwh) VALUES (?, ?, ?)`)
		if err != nil {
			return eris.Wrap(err, "store: prepare load insert")
		}
		defer stmt.Close()

		for _, o := range obs {
			var load any
			if o.LoadMWH != nil {
				load = *o.LoadMWH
			}
			if _, err := stmt.ExecContext(ctx, o.Region, hourKey(o.HourUTC), load); err != nil {
				return eris.Wrapf(err, "store: insert load %s %s", o.Region, hourKey(o.HourUTC))
			}
			n++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// ReadUnified returns the full heat_load_daily table ordered by
// (region, day), the retrieval contract consumed by export, the HTTP API,
// and any downstream reporting. NULL columns come back as nil pointers.
func (s *Store) ReadUnified(ctx context.Context) ([]model.UnifiedDay, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT station, region, day_utc, daily_max_temp_c, avg_temp_c,
		       t90_max, is_hot_day, daily_total_mwh, daily_peak_mwh
		FROM heat_load_daily
		ORDER BY region, day_utc`)
	if err != nil {
		return nil, eris.Wrap(err, "store: read unified")
	}
	defer rows.Close()

	var out []model.UnifiedDay
	for rows.Next() {
		var (
			u          model.UnifiedDay
			maxT, avgT sql.NullFloat64
			t90        sql.NullFloat64
			hot        sql.NullBool
			total, pk  sql.NullFloat64
		)
		if err := rows.Scan(&u.Station, &u.Region, &u.DayUTC, &maxT, &avgT, &t90, &hot, &total, &pk); err != nil {
			return nil, eris.Wrap(err, "store: scan unified row")
		}
		u.DailyMaxTempC = nullFloat(maxT)
		u.AvgTempC = nullFloat(avgT)
		u.T90Max = nullFloat(t90)
		if hot.Valid {
			v := hot.Bool
			u.IsHotDay = &v
		}
		u.DailyTotalMWH = nullFloat(total)
		u.DailyPeakMWH = nullFloat(pk)
		out = append(out, u)
	}
	return out, eris.Wrap(rows.Err(), "store: iterate unified rows")
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
