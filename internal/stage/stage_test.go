package stage

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gridsight/heatgrid-cli/internal/model"
	"github.com/gridsight/heatgrid-cli/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func ptr(v float64) *float64 { return &v }

func hour(value string) time.Time {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		panic(err)
	}
	return t
}

func seedTemps(t *testing.T, st *store.Store, obs []model.HourlyTemp) {
	t.Helper()
	_, err := st.InsertHourlyTemps(context.Background(), obs)
	require.NoError(t, err)
}

func seedLoads(t *testing.T, st *store.Store, obs []model.HourlyLoad) {
	t.Helper()
	_, err := st.InsertHourlyLoads(context.Background(), obs)
	require.NoError(t, err)
}

func buildStage(t *testing.T, st *store.Store, s Stage) int64 {
	t.Helper()
	rows, err := s.Build(context.Background(), st)
	require.NoError(t, err)
	return rows
}

// seedTenYearHistory inserts one hourly reading per year for station/mmdd so
// the daily max for that calendar day matches temps[i] in year 2014+i.
func seedTenYearHistory(t *testing.T, st *store.Store, station, mmdd string, temps []float64) {
	t.Helper()
	obs := make([]model.HourlyTemp, 0, len(temps))
	for i, temp := range temps {
		ts := hour(fmt.Sprintf("%d-%sT14:00:00Z", 2014+i, mmdd))
		obs = append(obs, model.HourlyTemp{Station: station, HourUTC: ts, TempC: ptr(temp)})
	}
	seedTemps(t, st, obs)
}

// dumpTable renders every row of a table as strings for equality checks.
func dumpTable(t *testing.T, st *store.Store, table string) []string {
	t.Helper()
	rows, err := st.DB().Query(`SELECT * FROM "` + table + `"`)
	require.NoError(t, err)
	defer rows.Close()

	cols, err := rows.Columns()
	require.NoError(t, err)

	var out []string
	for rows.Next() {
		vals := make([]any, len(cols))
		for i := range vals {
			var v any
			vals[i] = &v
		}
		require.NoError(t, rows.Scan(vals...))
		line := ""
		for _, v := range vals {
			line += fmt.Sprintf("%v|", *(v.(*any)))
		}
		out = append(out, line)
	}
	require.NoError(t, rows.Err())
	return out
}
