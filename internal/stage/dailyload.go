package stage

import (
	"context"
	"database/sql"

	"github.com/rotisserie/eris"

	"github.com/gridsight/heatgrid-cli/internal/store"
)

// dailyLoadStage aggregates raw hourly load into one row per (region, day).
// The source feed replays rows, so exact-duplicate (region, hour, load)
// triples are collapsed with DISTINCT before summing; without it the daily
// totals silently inflate. Null loads are filtered like null temperatures.
type dailyLoadStage struct{}

func (*dailyLoadStage) Name() string  { return NameDailyLoad }
func (*dailyLoadStage) Table() string { return "eia_daily_load" }

func (s *dailyLoadStage) Build(ctx context.Context, st *store.Store) (int64, error) {
	err := st.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS eia_daily_load`); err != nil {
			return eris.Wrap(err, "daily-load: drop")
		}
		_, err := tx.ExecContext(ctx, `
			CREATE TABLE eia_daily_load AS
			WITH hourly_unique AS (
				SELECT DISTINCT
					region,
					hour_utc,
					load_mwh
				FROM eia_load_hourly
				WHERE region IS NOT NULL
				  AND hour_utc IS NOT NULL
				  AND load_mwh IS NOT NULL
			)
			SELECT
				region,
				date(hour_utc) AS day_utc,
				SUM(load_mwh) AS daily_total_mwh,
				MAX(load_mwh) AS daily_peak_mwh
			FROM hourly_unique
			GROUP BY region, day_utc
			ORDER BY region, day_utc`)
		return eris.Wrap(err, "daily-load: create")
	})
	if err != nil {
		return 0, err
	}
	return st.TableCount(ctx, s.Table())
}
