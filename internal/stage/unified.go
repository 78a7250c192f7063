package stage

import (
	"context"
	"database/sql"
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/gridsight/heatgrid-cli/internal/store"
)

// unifiedStage materializes heat_load_daily, the canonical per-(station, day)
// record. The climate side drives cardinality: every noaa_daily_temp row
// appears exactly once, with the threshold joined outer on calendar day
// (null t90_max/is_hot_day when history is missing) and the load joined
// outer on (region, day) through the station→region mapping (null load
// fields when no load record exists).
//
// A station missing from the mapping is a configuration error; the stage
// refuses to run rather than emit null-region rows that would silently
// break the load join.
type unifiedStage struct {
	stations map[string]string
}

func (*unifiedStage) Name() string  { return NameUnified }
func (*unifiedStage) Table() string { return "heat_load_daily" }

func (s *unifiedStage) Build(ctx context.Context, st *store.Store) (int64, error) {
	if len(s.stations) == 0 {
		return 0, eris.New("unified: no station→region mapping configured")
	}
	if err := s.checkMapping(ctx, st); err != nil {
		return 0, err
	}

	regionExpr, args := s.regionCase("n.station")

	// The region expression appears twice: as the output column and inside
	// the load join condition.
	query := `
		CREATE TABLE heat_load_daily AS
		SELECT
			n.station,
			` + regionExpr + ` AS region,
			n.day_utc,
			n.daily_max_temp_c,
			n.avg_temp_c,
			t.t90_max,
			(n.daily_max_temp_c >= t.t90_max) AS is_hot_day,
			e.daily_total_mwh,
			e.daily_peak_mwh
		FROM noaa_daily_temp n
		LEFT JOIN noaa_temp_thresholds t
		  ON n.station = t.station
		 AND ` + CalendarDaySQL("n.day_utc") + ` = t.mmdd
		LEFT JOIN eia_daily_load e
		  ON e.region = ` + regionExpr + `
		 AND e.day_utc = n.day_utc
		ORDER BY n.station, n.day_utc`

	allArgs := append(append([]any{}, args...), args...)

	err := st.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS heat_load_daily`); err != nil {
			return eris.Wrap(err, "unified: drop")
		}
		_, err := tx.ExecContext(ctx, query, allArgs...)
		return eris.Wrap(err, "unified: create")
	})
	if err != nil {
		return 0, err
	}
	return st.TableCount(ctx, s.Table())
}

// checkMapping fails loudly when the daily temperature table holds a station
// the mapping does not cover.
func (s *unifiedStage) checkMapping(ctx context.Context, st *store.Store) error {
	rows, err := st.DB().QueryContext(ctx,
		`SELECT DISTINCT station FROM noaa_daily_temp ORDER BY station`)
	if err != nil {
		return eris.Wrap(err, "unified: read stations")
	}
	defer rows.Close()

	var unmapped []string
	for rows.Next() {
		var station string
		if err := rows.Scan(&station); err != nil {
			return eris.Wrap(err, "unified: scan station")
		}
		if _, ok := s.stations[station]; !ok {
			unmapped = append(unmapped, station)
		}
	}
	if err := rows.Err(); err != nil {
		return eris.Wrap(err, "unified: iterate stations")
	}
	if len(unmapped) > 0 {
		return eris.Errorf("unified: no region mapping for station(s) %s; add them to stations.regions",
			strings.Join(unmapped, ", "))
	}
	return nil
}

// regionCase renders the station→region mapping as a CASE expression over
// the given column, with mapping pairs bound as parameters. Stations are
// sorted so the generated SQL is stable run to run.
func (s *unifiedStage) regionCase(col string) (string, []any) {
	stations := make([]string, 0, len(s.stations))
	for station := range s.stations {
		stations = append(stations, station)
	}
	sort.Strings(stations)

	var (
		b    strings.Builder
		args []any
	)
	b.WriteString("CASE " + col)
	for _, station := range stations {
		b.WriteString(" WHEN ? THEN ?")
		args = append(args, station, s.stations[station])
	}
	b.WriteString(" END")
	return b.String(), args
}
