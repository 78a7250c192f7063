// Package model defines the record types flowing through the heatgrid pipeline.
package model

import "time"

// HourlyTemp is one raw hourly temperature observation for a station.
// TempC is nil when the source value could not be parsed.
type HourlyTemp struct {
	Station string    `json:"station"`
	HourUTC time.Time `json:"hour_utc"`
	TempC   *float64  `json:"temp_c"`
}

// HourlyLoad is one raw hourly electricity-load observation for a region.
// The source feed is known to replay rows, so exact duplicates are expected.
type HourlyLoad struct {
	Region  string    `json:"region"`
	HourUTC time.Time `json:"hour_utc"`
	LoadMWH *float64  `json:"load_mwh"`
}

// DailyTemp is one row of noaa_daily_temp, keyed by (station, day).
type DailyTemp struct {
	Station       string  `json:"station"`
	DayUTC        string  `json:"day_utc"`
	DailyMaxTempC float64 `json:"daily_max_temp_c"`
	AvgTempC      float64 `json:"avg_temp_c"`
}

// Threshold is one row of noaa_temp_thresholds: the climatological
// 90th-percentile of daily max temperature for a station on one
// calendar day of the year, computed across all years of history.
type Threshold struct {
	Station string  `json:"station"`
	MMDD    string  `json:"mmdd"`
	T90Max  float64 `json:"t90_max"`
}

// HeatwaveFlag is one row of noaa_heatwave_flags. Only days with a
// matching threshold appear here; the unified table carries the
// complete record.
type HeatwaveFlag struct {
	Station       string  `json:"station"`
	DayUTC        string  `json:"day_utc"`
	DailyMaxTempC float64 `json:"daily_max_temp_c"`
	AvgTempC      float64 `json:"avg_temp_c"`
	T90Max        float64 `json:"t90_max"`
	IsHotDay      bool    `json:"is_hot_day"`
}

// DailyLoad is one row of eia_daily_load, keyed by (region, day).
type DailyLoad struct {
	Region        string  `json:"region"`
	DayUTC        string  `json:"day_utc"`
	DailyTotalMWH float64 `json:"daily_total_mwh"`
	DailyPeakMWH  float64 `json:"daily_peak_mwh"`
}

// UnifiedDay is one row of heat_load_daily, the canonical per-(station, day)
// output. Pointer fields are nil when the underlying join found no match;
// consumers must treat nil as "no data", never as zero or false.
type UnifiedDay struct {
	Station       string   `json:"station"`
	Region        string   `json:"region"`
	DayUTC        string   `json:"day_utc"`
	DailyMaxTempC *float64 `json:"daily_max_temp_c"`
	AvgTempC      *float64 `json:"avg_temp_c"`
	T90Max        *float64 `json:"t90_max"`
	IsHotDay      *bool    `json:"is_hot_day"`
	DailyTotalMWH *float64 `json:"daily_total_mwh"`
	DailyPeakMWH  *float64 `json:"daily_peak_mwh"`
}

// DayLayout is the canonical text encoding for day keys in the store.
const DayLayout = "2006-01-02"

// CalendarDay reduces a timestamp to its "MM-DD" calendar-day-of-year key,
// discarding the year. It must stay consistent with the SQL expression used
// by the threshold and join stages (stage.CalendarDaySQL).
func CalendarDay(t time.Time) string {
	return t.UTC().Format("01-02")
}
