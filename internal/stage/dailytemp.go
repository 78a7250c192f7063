package stage

import (
	"context"
	"database/sql"

	"github.com/rotisserie/eris"

	"github.com/gridsight/heatgrid-cli/internal/store"
)

// dailyTempStage aggregates raw hourly temperatures into one row per
// (station, day): the daily maximum and arithmetic mean. Null temperatures
// are filtered before grouping, so a day whose readings are all null gets
// no row at all rather than a row of null aggregates.
type dailyTempStage struct{}

func (*dailyTempStage) Name() string  { return NameDailyTemp }
func (*dailyTempStage) Table() string { return "noaa_daily_temp" }

func (s *dailyTempStage) Build(ctx context.Context, st *store.Store) (int64, error) {
	err := st.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS noaa_daily_temp`); err != nil {
			return eris.Wrap(err, "daily-temp: drop")
		}
		_, err := tx.ExecContext(ctx, `
			CREATE TABLE noaa_daily_temp AS
			SELECT
				station,
				date(hour_utc) AS day_utc,
				MAX(temp_c) AS daily_max_temp_c,
				AVG(temp_c) AS avg_temp_c
			FROM noaa_hourly_avg
			WHERE station IS NOT NULL
			  AND hour_utc IS NOT NULL
			  AND temp_c IS NOT NULL
			GROUP BY station, day_utc
			ORDER BY station, day_utc`)
		return eris.Wrap(err, "daily-temp: create")
	})
	if err != nil {
		return 0, err
	}
	return st.TableCount(ctx, s.Table())
}
