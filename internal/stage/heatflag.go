package stage

import (
	"context"
	"database/sql"

	"github.com/rotisserie/eris"

	"github.com/gridsight/heatgrid-cli/internal/store"
)

// heatFlagStage joins each daily temperature record to its station's
// climatological threshold for that calendar day and flags days whose max
// meets or exceeds it. The join is inner: days without a threshold are
// dropped from this table. That is intentional — this table feeds
// hot-vs-normal day counts, while the unified table rebuilds the join with
// outer semantics so those days still surface with a null flag.
type heatFlagStage struct{}

func (*heatFlagStage) Name() string  { return NameHeatFlags }
func (*heatFlagStage) Table() string { return "noaa_heatwave_flags" }

func (s *heatFlagStage) Build(ctx context.Context, st *store.Store) (int64, error) {
	err := st.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS noaa_heatwave_flags`); err != nil {
			return eris.Wrap(err, "heat-flags: drop")
		}
		_, err := tx.ExecContext(ctx, `
			CREATE TABLE noaa_heatwave_flags AS
			WITH daily_with_mmdd AS (
				SELECT
					station,
					day_utc,
					daily_max_temp_c,
					avg_temp_c,
					`+CalendarDaySQL("day_utc")+` AS mmdd
				FROM noaa_daily_temp
			)
			SELECT
				d.station,
				d.day_utc,
				d.daily_max_temp_c,
				d.avg_temp_c,
				t.t90_max,
				CASE WHEN d.daily_max_temp_c >= t.t90_max THEN 1 ELSE 0 END AS is_hot_day
			FROM daily_with_mmdd d
			JOIN noaa_temp_thresholds t
			  ON d.station = t.station
			 AND d.mmdd = t.mmdd
			ORDER BY d.station, d.day_utc`)
		return eris.Wrap(err, "heat-flags: create")
	})
	if err != nil {
		return 0, err
	}
	return st.TableCount(ctx, s.Table())
}
