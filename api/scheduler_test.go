package api

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/workentry-engine/generic"
)

func TestMonthOf(t *testing.T) {
	from, to := monthOf(time.Date(2022, time.February, 10, 15, 0, 0, 0, time.UTC))
	assert.Equal(t, generic.NewDate(2022, time.February, 1), from)
	assert.Equal(t, generic.NewDate(2022, time.February, 28), to)

	from, to = monthOf(time.Date(2024, time.December, 31, 23, 0, 0, 0, time.UTC))
	assert.Equal(t, generic.NewDate(2024, time.December, 1), from)
	assert.Equal(t, generic.NewDate(2024, time.December, 31), to)
}

func TestScheduler_RunNowGeneratesCurrentMonth(t *testing.T) {
	// GIVEN: A rigid contract and a clock in February 2022
	gen, hook := newTestGenerator(t)
	ctx := context.Background()
	_, err := LoadScenario(ctx, gen.Store, "full-day-absence")
	require.NoError(t, err)

	gs := NewGenerationScheduler(gen)
	gs.now = func() time.Time { return time.Date(2022, time.February, 10, 6, 0, 0, 0, time.UTC) }

	// WHEN: Running twice
	first, err := gs.RunNow(ctx)
	require.NoError(t, err)
	second, err := gs.RunNow(ctx)
	require.NoError(t, err)

	// THEN: The 20 weekdays of February are stored once
	require.NotNil(t, first)
	assert.Equal(t, RunCompleted, first.Status)
	assert.Equal(t, "scheduler", first.Trigger)
	assert.Equal(t, 20, first.Entries)

	entries, err := gen.Store.ListWorkEntries(ctx, "C1", generic.NewDate(2022, time.February, 1), generic.NewDate(2022, time.February, 28))
	require.NoError(t, err)
	require.Len(t, entries, 20)
	for _, e := range entries {
		assert.Equal(t, second.ID, e.RunID)
	}

	runs, err := gen.Store.ListGenerationRuns(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, runs, 2)

	// AND: Each run is logged
	var finished int
	for _, entry := range hook.AllEntries() {
		if entry.Message == "Generation finished" {
			finished++
			assert.Equal(t, "scheduler", entry.Data["trigger"])
		}
	}
	assert.Equal(t, 2, finished)
}

func TestScheduler_NothingRunning(t *testing.T) {
	gen, _ := newTestGenerator(t)
	gs := NewGenerationScheduler(gen)

	run, err := gs.RunNow(context.Background())
	require.NoError(t, err)
	assert.Nil(t, run)
}

func TestScheduler_StartStop(t *testing.T) {
	gen, hook := newTestGenerator(t)

	disabled := NewGenerationScheduler(gen)
	disabled.Enabled = false
	disabled.Start()
	disabled.Stop()
	assert.Equal(t, "Scheduler disabled, not starting", hook.LastEntry().Message)

	gs := NewGenerationScheduler(gen)
	gs.CheckInterval = time.Hour
	gs.Start()
	gs.Start()
	gs.Stop()
	gs.Stop()
	assert.Equal(t, "Scheduler stopped", hook.LastEntry().Message)
}
