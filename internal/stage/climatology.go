package stage

import (
	"context"
	"database/sql"
	"runtime"
	"sort"
	"sync"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/gridsight/heatgrid-cli/internal/stats"
	"github.com/gridsight/heatgrid-cli/internal/store"
)

// thresholdStage builds the per-(station, calendar-day) climatological
// thresholds: the type-7 90th percentile of daily max temperature across
// every year of history sharing that calendar day. Calendar days with no
// samples get no row; that absence is how "no climatological basis" reaches
// the unified table. Feb-29 thresholds rest on fewer years and are
// accordingly noisier.
type thresholdStage struct{}

const t90Fraction = 0.90

func (*thresholdStage) Name() string  { return NameThresholds }
func (*thresholdStage) Table() string { return "noaa_temp_thresholds" }

type thresholdRow struct {
	station string
	mmdd    string
	t90Max  float64
}

func (s *thresholdStage) Build(ctx context.Context, st *store.Store) (int64, error) {
	groups, err := s.loadGroups(ctx, st)
	if err != nil {
		return 0, err
	}

	// Groups are independent, so per-station quantiles run concurrently.
	// Rows are collected and sorted before insertion to keep the rebuild
	// deterministic.
	var (
		mu   sync.Mutex
		rows []thresholdRow
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	for station, byDay := range groups {
		station, byDay := station, byDay
		g.Go(func() error {
			out := make([]thresholdRow, 0, len(byDay))
			for mmdd, samples := range byDay {
				if err := gctx.Err(); err != nil {
					return err
				}
				q, err := stats.Quantile(samples, t90Fraction)
				if err != nil {
					return eris.Wrapf(err, "thresholds: %s %s", station, mmdd)
				}
				out = append(out, thresholdRow{station: station, mmdd: mmdd, t90Max: q})
			}
			mu.Lock()
			rows = append(rows, out...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].station != rows[j].station {
			return rows[i].station < rows[j].station
		}
		return rows[i].mmdd < rows[j].mmdd
	})

	err = st.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS noaa_temp_thresholds`); err != nil {
			return eris.Wrap(err, "thresholds: drop")
		}
		if _, err := tx.ExecContext(ctx, `
			CREATE TABLE noaa_temp_thresholds (
				station TEXT NOT NULL,
				mmdd    TEXT NOT NULL,
				t90_max REAL NOT NULL,
				PRIMARY KEY (station, mmdd)
			)`); err != nil {
			return eris.Wrap(err, "thresholds: create")
		}

		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO noaa_temp_thresholds (station, mmdd, t90_max) VALUES (?, ?, ?)`)
		if err != nil {
			return eris.Wrap(err, "thresholds: prepare insert")
		}
		defer stmt.Close()

		for _, r := range rows {
			if _, err := stmt.ExecContext(ctx, r.station, r.mmdd, r.t90Max); err != nil {
				return eris.Wrapf(err, "thresholds: insert %s %s", r.station, r.mmdd)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return int64(len(rows)), nil
}

// loadGroups reads the full multi-year daily history grouped by station and
// calendar day of year.
func (s *thresholdStage) loadGroups(ctx context.Context, st *store.Store) (map[string]map[string][]float64, error) {
	rows, err := st.DB().QueryContext(ctx, `
		SELECT station, `+CalendarDaySQL("day_utc")+` AS mmdd, daily_max_temp_c
		FROM noaa_daily_temp
		WHERE daily_max_temp_c IS NOT NULL
		ORDER BY station, mmdd`)
	if err != nil {
		return nil, eris.Wrap(err, "thresholds: read daily history")
	}
	defer rows.Close()

	groups := make(map[string]map[string][]float64)
	for rows.Next() {
		var (
			station, mmdd string
			maxTemp       float64
		)
		if err := rows.Scan(&station, &mmdd, &maxTemp); err != nil {
			return nil, eris.Wrap(err, "thresholds: scan daily row")
		}
		byDay := groups[station]
		if byDay == nil {
			byDay = make(map[string][]float64)
			groups[station] = byDay
		}
		byDay[mmdd] = append(byDay[mmdd], maxTemp)
	}
	return groups, eris.Wrap(rows.Err(), "thresholds: iterate daily history")
}
