// Package stage implements the five table-materializing stages of the
// heatgrid batch pipeline and the engine that runs them in order. Each
// stage is a pure rebuild: it drops its output table and recreates it from
// its inputs, so re-running any stage (and everything after it) restores a
// consistent state.
package stage

import (
	"context"

	"github.com/gridsight/heatgrid-cli/internal/store"
)

// Stage names, in dependency order.
const (
	NameDailyTemp  = "daily-temp"
	NameThresholds = "thresholds"
	NameHeatFlags  = "heat-flags"
	NameDailyLoad  = "daily-load"
	NameUnified    = "unified"
)

// CalendarDaySQL is the SQL form of the calendar-day-of-year key: the
// "MM-DD" of a day column with the year dropped. The thresholds stage and
// both join stages must use this exact expression (and Go-side code
// model.CalendarDay) or the threshold joins drift.
func CalendarDaySQL(dayCol string) string {
	return "strftime('%m-%d', " + dayCol + ")"
}

// Stage builds one derived table from its upstream tables.
type Stage interface {
	// Name is the stable identifier used on the CLI and in the run ledger.
	Name() string

	// Table is the output table this stage drops and recreates.
	Table() string

	// Build rebuilds the output table and returns its row count.
	Build(ctx context.Context, st *store.Store) (int64, error)
}

// All returns the full pipeline in execution order. stations is the fixed
// station→region mapping applied by the unified stage.
func All(stations map[string]string) []Stage {
	return []Stage{
		&dailyTempStage{},
		&thresholdStage{},
		&heatFlagStage{},
		&dailyLoadStage{},
		&unifiedStage{stations: stations},
	}
}
