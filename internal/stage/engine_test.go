package stage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_RunsAllStagesInOrder(t *testing.T) {
	st := newTestStore(t)
	seedUnifiedFixture(t, st)

	engine := NewEngine(st, All(testStations))
	require.NoError(t, engine.Run(context.Background(), RunOpts{}))

	entries, err := NewRunLog(st).ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 5)
	for _, e := range entries {
		assert.Equal(t, "complete", e.Status)
		assert.NotNil(t, e.CompletedAt)
	}

	exists, err := st.TableExists(context.Background(), "heat_load_daily")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestEngine_FailureStopsChainAndIsRecorded(t *testing.T) {
	st := newTestStore(t)
	// A station outside the mapping makes the unified stage fail.
	seedTenYearHistory(t, st, "JFK", "07-04", []float64{30, 31})

	engine := NewEngine(st, All(testStations))
	err := engine.Run(context.Background(), RunOpts{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JFK")

	entries, err := NewRunLog(st).ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 5)

	byStage := map[string]RunEntry{}
	for _, e := range entries {
		byStage[e.Stage] = e
	}
	assert.Equal(t, "failed", byStage[NameUnified].Status)
	assert.NotEmpty(t, byStage[NameUnified].Error)
	assert.Equal(t, "complete", byStage[NameDailyTemp].Status)
}

func TestEngine_SelectOnly(t *testing.T) {
	engine := NewEngine(nil, All(testStations))

	stages, err := engine.Select(RunOpts{Only: NameDailyLoad})
	require.NoError(t, err)
	require.Len(t, stages, 1)
	assert.Equal(t, NameDailyLoad, stages[0].Name())
}

func TestEngine_SelectFrom(t *testing.T) {
	engine := NewEngine(nil, All(testStations))

	stages, err := engine.Select(RunOpts{From: NameHeatFlags})
	require.NoError(t, err)
	require.Len(t, stages, 3)
	assert.Equal(t, NameHeatFlags, stages[0].Name())
	assert.Equal(t, NameUnified, stages[2].Name())
}

func TestEngine_SelectErrors(t *testing.T) {
	engine := NewEngine(nil, All(testStations))

	_, err := engine.Select(RunOpts{Only: "nope"})
	assert.Error(t, err)

	_, err = engine.Select(RunOpts{Only: NameUnified, From: NameDailyTemp})
	assert.Error(t, err)
}

func TestEngine_SingleStageRerunIsSafe(t *testing.T) {
	st := newTestStore(t)
	seedUnifiedFixture(t, st)

	engine := NewEngine(st, All(testStations))
	require.NoError(t, engine.Run(context.Background(), RunOpts{}))

	before := dumpTable(t, st, "eia_daily_load")
	require.NoError(t, engine.Run(context.Background(), RunOpts{Only: NameDailyLoad}))
	assert.Equal(t, before, dumpTable(t, st, "eia_daily_load"))
}
