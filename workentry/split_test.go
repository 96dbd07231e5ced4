package workentry_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/workentry-engine/generic"
	"github.com/warp/workentry-engine/workentry"
)

func TestSplitDays(t *testing.T) {
	loc := brussels(t)
	zones := generic.NewZones()

	t.Run("within one day", func(t *testing.T) {
		start := time.Date(2022, 2, 14, 9, 0, 0, 0, loc)
		end := time.Date(2022, 2, 14, 13, 0, 0, 0, loc)

		got := workentry.SplitDays(zones, start, end, loc)
		require.Len(t, got, 1)
		assert.True(t, got[0].Start.Equal(start))
		assert.True(t, got[0].End.Equal(end))
	})

	t.Run("across two midnights", func(t *testing.T) {
		start := time.Date(2022, 2, 14, 20, 0, 0, 0, loc)
		end := time.Date(2022, 2, 16, 4, 0, 0, 0, loc)

		got := workentry.SplitDays(zones, start, end, loc)
		require.Len(t, got, 3)
		var dates []string
		for _, iv := range got {
			dates = append(dates, generic.LocalDate(iv.Start).String())
		}
		assert.Equal(t, []string{"2022-02-14", "2022-02-15", "2022-02-16"}, dates)

		// A segment stops one microsecond before midnight.
		assert.True(t, time.Date(2022, 2, 14, 23, 59, 59, 999999000, loc).Equal(got[0].End))
		assert.True(t, time.Date(2022, 2, 15, 0, 0, 0, 0, loc).Equal(got[1].Start))
		assert.Equal(t, "4.000", generic.HoursBetween(got[2].Start, got[2].End).String())
	})

	t.Run("ending at midnight stays on the day before", func(t *testing.T) {
		start := time.Date(2022, 2, 14, 0, 0, 0, 0, loc)
		end := time.Date(2022, 2, 15, 0, 0, 0, 0, loc)

		got := workentry.SplitDays(zones, start, end, loc)
		require.Len(t, got, 1)
		assert.Equal(t, "2022-02-14", generic.LocalDate(got[0].Start).String())
	})

	t.Run("spring forward day is 23 hours", func(t *testing.T) {
		start := time.Date(2022, 3, 27, 0, 0, 0, 0, loc)
		end := time.Date(2022, 3, 28, 0, 0, 0, 0, loc)

		got := workentry.SplitDays(zones, start, end, loc)
		require.Len(t, got, 1)
		assert.Equal(t, "23.000", generic.HoursBetween(got[0].Start, got[0].End).Round().String())
	})

	t.Run("empty range", func(t *testing.T) {
		at := time.Date(2022, 2, 14, 9, 0, 0, 0, loc)
		assert.Empty(t, workentry.SplitDays(zones, at, at, loc))
	})

	t.Run("UTC bounds are converted once per instant", func(t *testing.T) {
		z := generic.NewZones()
		start := time.Date(2022, 2, 14, 19, 0, 0, 0, time.UTC)
		end := time.Date(2022, 2, 15, 3, 0, 0, 0, time.UTC)

		got := workentry.SplitDays(z, start, end, loc)
		require.Len(t, got, 2)
		assert.Equal(t, loc, got[0].Start.Location())
		assert.Equal(t, 2, z.Cached())

		again := workentry.SplitDays(z, start, end, loc)
		assert.Equal(t, got, again)
		assert.Equal(t, 2, z.Cached())
	})
}
