package stage

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridsight/heatgrid-cli/internal/model"
	"github.com/gridsight/heatgrid-cli/internal/store"
)

var testStations = map[string]string{"IAD": "PJM", "BOS": "ISNE"}

func buildAll(t *testing.T, st *store.Store, stations map[string]string) {
	t.Helper()
	for _, s := range All(stations) {
		buildStage(t, st, s)
	}
}

func seedUnifiedFixture(t *testing.T, st *store.Store) {
	t.Helper()
	// History for IAD 07-04 plus a current-year hot reading; BOS has climate
	// but no load.
	seedTenYearHistory(t, st, "IAD", "07-04", []float64{30, 31, 29, 32, 33, 28, 34, 35, 27, 26})
	seedTemps(t, st, []model.HourlyTemp{
		{Station: "BOS", HourUTC: hour("2023-07-04T14:00:00Z"), TempC: ptr(24)},
	})
	seedLoads(t, st, []model.HourlyLoad{
		{Region: "PJM", HourUTC: hour("2023-07-04T14:00:00Z"), LoadMWH: ptr(500)},
		{Region: "PJM", HourUTC: hour("2023-07-04T15:00:00Z"), LoadMWH: ptr(480)},
	})
}

func TestUnified_JoinCompleteness(t *testing.T) {
	st := newTestStore(t)
	seedUnifiedFixture(t, st)
	buildAll(t, st, testStations)

	var dailyRows, unifiedRows int64
	require.NoError(t, st.DB().QueryRow(`SELECT COUNT(*) FROM noaa_daily_temp`).Scan(&dailyRows))
	require.NoError(t, st.DB().QueryRow(`SELECT COUNT(*) FROM heat_load_daily`).Scan(&unifiedRows))
	assert.Equal(t, dailyRows, unifiedRows, "left join must neither drop nor duplicate climate rows")
}

func TestUnified_RegionMappingApplied(t *testing.T) {
	st := newTestStore(t)
	seedUnifiedFixture(t, st)
	buildAll(t, st, testStations)

	rows, err := st.DB().Query(`SELECT DISTINCT station, region FROM heat_load_daily ORDER BY station`)
	require.NoError(t, err)
	defer rows.Close()

	got := map[string]string{}
	for rows.Next() {
		var station, region string
		require.NoError(t, rows.Scan(&station, &region))
		got[station] = region
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, testStations, got)
}

func TestUnified_LoadJoined(t *testing.T) {
	st := newTestStore(t)
	seedUnifiedFixture(t, st)
	buildAll(t, st, testStations)

	var total, peak float64
	err := st.DB().QueryRow(`
		SELECT daily_total_mwh, daily_peak_mwh FROM heat_load_daily
		WHERE station = 'IAD' AND day_utc = '2023-07-04'`,
	).Scan(&total, &peak)
	require.NoError(t, err)
	assert.Equal(t, 980.0, total)
	assert.Equal(t, 500.0, peak)
}

func TestUnified_MissingLoadIsNullNotZero(t *testing.T) {
	st := newTestStore(t)
	seedUnifiedFixture(t, st)
	buildAll(t, st, testStations)

	// BOS (ISNE) has no load records at all.
	var total, peak sql.NullFloat64
	err := st.DB().QueryRow(`
		SELECT daily_total_mwh, daily_peak_mwh FROM heat_load_daily WHERE station = 'BOS'`,
	).Scan(&total, &peak)
	require.NoError(t, err)
	assert.False(t, total.Valid)
	assert.False(t, peak.Valid)
}

func TestUnified_MissingThresholdGivesNullFlag(t *testing.T) {
	st := newTestStore(t)
	seedTenYearHistory(t, st, "IAD", "07-04", []float64{30, 32})
	buildStage(t, st, &dailyTempStage{})
	buildStage(t, st, &thresholdStage{})

	// A day on a calendar date with no climatological history.
	seedTemps(t, st, []model.HourlyTemp{
		{Station: "IAD", HourUTC: hour("2024-12-25T14:00:00Z"), TempC: ptr(5)},
	})
	buildStage(t, st, &dailyTempStage{})
	buildStage(t, st, &heatFlagStage{})
	buildStage(t, st, &dailyLoadStage{})
	buildStage(t, st, &unifiedStage{stations: testStations})

	var t90 sql.NullFloat64
	var hot sql.NullBool
	err := st.DB().QueryRow(`
		SELECT t90_max, is_hot_day FROM heat_load_daily WHERE day_utc = '2024-12-25'`,
	).Scan(&t90, &hot)
	require.NoError(t, err)
	assert.False(t, t90.Valid, "missing threshold must be null")
	assert.False(t, hot.Valid, "flag must be null, never defaulted to not-hot")
}

func TestUnified_FlagConsistency(t *testing.T) {
	st := newTestStore(t)
	seedUnifiedFixture(t, st)
	seedTemps(t, st, []model.HourlyTemp{
		{Station: "IAD", HourUTC: hour("2024-07-04T14:00:00Z"), TempC: ptr(34.5)},
	})
	buildAll(t, st, testStations)

	rows, err := st.DB().Query(`
		SELECT daily_max_temp_c, t90_max, is_hot_day FROM heat_load_daily WHERE t90_max IS NOT NULL`)
	require.NoError(t, err)
	defer rows.Close()

	checked := 0
	for rows.Next() {
		var maxC, t90 float64
		var hot bool
		require.NoError(t, rows.Scan(&maxC, &t90, &hot))
		assert.Equal(t, maxC >= t90, hot)
		checked++
	}
	require.NoError(t, rows.Err())
	assert.Positive(t, checked)
}

func TestUnified_UnmappedStationFailsLoudly(t *testing.T) {
	st := newTestStore(t)
	seedTemps(t, st, []model.HourlyTemp{
		{Station: "JFK", HourUTC: hour("2023-07-04T14:00:00Z"), TempC: ptr(30)},
	})
	buildStage(t, st, &dailyTempStage{})
	buildStage(t, st, &thresholdStage{})
	buildStage(t, st, &heatFlagStage{})
	buildStage(t, st, &dailyLoadStage{})

	_, err := (&unifiedStage{stations: testStations}).Build(context.Background(), st)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JFK")

	// The stage must abort before dropping the previous table.
	exists, err := st.TableExists(context.Background(), "heat_load_daily")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestUnified_EmptyMappingRejected(t *testing.T) {
	st := newTestStore(t)
	_, err := (&unifiedStage{}).Build(context.Background(), st)
	require.Error(t, err)
}

func TestPipeline_Idempotent(t *testing.T) {
	st := newTestStore(t)
	seedUnifiedFixture(t, st)

	buildAll(t, st, testStations)
	first := map[string][]string{}
	for _, table := range []string{"noaa_daily_temp", "noaa_temp_thresholds", "noaa_heatwave_flags", "eia_daily_load", "heat_load_daily"} {
		first[table] = dumpTable(t, st, table)
	}

	buildAll(t, st, testStations)
	for table, want := range first {
		assert.Equal(t, want, dumpTable(t, st, table), "table %s must be identical after re-run", table)
	}
}
