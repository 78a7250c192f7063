package stage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridsight/heatgrid-cli/internal/model"
)

func TestDailyTemp_MaxAndMean(t *testing.T) {
	st := newTestStore(t)
	seedTemps(t, st, []model.HourlyTemp{
		{Station: "IAD", HourUTC: hour("2023-07-04T10:00:00Z"), TempC: ptr(28)},
		{Station: "IAD", HourUTC: hour("2023-07-04T14:00:00Z"), TempC: ptr(34)},
		{Station: "IAD", HourUTC: hour("2023-07-04T20:00:00Z"), TempC: ptr(31)},
		{Station: "IAD", HourUTC: hour("2023-07-05T14:00:00Z"), TempC: ptr(25)},
		{Station: "BOS", HourUTC: hour("2023-07-04T14:00:00Z"), TempC: ptr(22)},
	})

	rows := buildStage(t, st, &dailyTempStage{})
	assert.Equal(t, int64(3), rows)

	var maxC, avgC float64
	err := st.DB().QueryRow(
		`SELECT daily_max_temp_c, avg_temp_c FROM noaa_daily_temp WHERE station = 'IAD' AND day_utc = '2023-07-04'`,
	).Scan(&maxC, &avgC)
	require.NoError(t, err)
	assert.Equal(t, 34.0, maxC)
	assert.InDelta(t, 31.0, avgC, 1e-9)
}

func TestDailyTemp_NullTempsIgnoredInAggregates(t *testing.T) {
	st := newTestStore(t)
	seedTemps(t, st, []model.HourlyTemp{
		{Station: "IAD", HourUTC: hour("2023-07-04T10:00:00Z"), TempC: ptr(30)},
		{Station: "IAD", HourUTC: hour("2023-07-04T11:00:00Z"), TempC: nil},
		{Station: "IAD", HourUTC: hour("2023-07-04T12:00:00Z"), TempC: ptr(32)},
	})

	buildStage(t, st, &dailyTempStage{})

	var maxC, avgC float64
	err := st.DB().QueryRow(
		`SELECT daily_max_temp_c, avg_temp_c FROM noaa_daily_temp WHERE station = 'IAD'`,
	).Scan(&maxC, &avgC)
	require.NoError(t, err)
	assert.Equal(t, 32.0, maxC)
	// Mean over the two parsed readings only, not three.
	assert.InDelta(t, 31.0, avgC, 1e-9)
}

func TestDailyTemp_AllNullDayIsAbsent(t *testing.T) {
	st := newTestStore(t)
	seedTemps(t, st, []model.HourlyTemp{
		{Station: "IAD", HourUTC: hour("2023-07-04T10:00:00Z"), TempC: nil},
		{Station: "IAD", HourUTC: hour("2023-07-04T11:00:00Z"), TempC: nil},
		{Station: "IAD", HourUTC: hour("2023-07-05T10:00:00Z"), TempC: ptr(20)},
	})

	rows := buildStage(t, st, &dailyTempStage{})
	assert.Equal(t, int64(1), rows)

	var n int
	require.NoError(t, st.DB().QueryRow(
		`SELECT COUNT(*) FROM noaa_daily_temp WHERE day_utc = '2023-07-04'`,
	).Scan(&n))
	assert.Zero(t, n, "all-null day must produce no row, not a null row")
}

func TestDailyTemp_UniqueKeyAfterRebuild(t *testing.T) {
	st := newTestStore(t)
	seedTemps(t, st, []model.HourlyTemp{
		{Station: "IAD", HourUTC: hour("2023-07-04T10:00:00Z"), TempC: ptr(30)},
		{Station: "IAD", HourUTC: hour("2023-07-04T14:00:00Z"), TempC: ptr(33)},
	})

	buildStage(t, st, &dailyTempStage{})
	buildStage(t, st, &dailyTempStage{})

	var n int
	require.NoError(t, st.DB().QueryRow(`
		SELECT COUNT(*) FROM (
			SELECT station, day_utc FROM noaa_daily_temp GROUP BY station, day_utc HAVING COUNT(*) > 1
		)`).Scan(&n))
	assert.Zero(t, n)

	var total int
	require.NoError(t, st.DB().QueryRow(`SELECT COUNT(*) FROM noaa_daily_temp`).Scan(&total))
	assert.Equal(t, 1, total, "rebuild must replace, not append")
}
