package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentcal/internal/domain/occupancy"
	"rentcal/internal/domain/shared/daterange"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func entry(id string, start, end time.Time, status occupancy.Status) Entry {
	return Entry{ID: id, Label: id, Span: daterange.DateRange{Start: start, End: end}, Status: status}
}

func dayAt(t *testing.T, m Month, d time.Time) Day {
	t.Helper()
	for _, day := range m.Days {
		if day.Date.Equal(d) {
			return day
		}
	}
	t.Fatalf("%s not in grid", d.Format(time.DateOnly))
	return Day{}
}

func TestGridShapeForEveryMonth(t *testing.T) {
	for year := 2019; year <= 2030; year++ {
		for month := time.January; month <= time.December; month++ {
			grid := BuildMonthGrid(year, month, nil, time.Time{})

			require.Zero(t, len(grid.Days)%7, "%d-%02d", year, month)
			assert.Equal(t, time.Monday, grid.Days[0].Date.Weekday(), "%d-%02d", year, month)
			assert.Equal(t, time.Sunday, grid.Days[len(grid.Days)-1].Date.Weekday(), "%d-%02d", year, month)
			assert.Less(t, len(grid.Days), 43)

			inMonth := 0
			for _, d := range grid.Days {
				if d.InMonth {
					inMonth++
				}
			}
			assert.Equal(t, daterange.DaysIn(year, month), inMonth)
		}
	}
}

func TestGridLeadingAndTrailingDays(t *testing.T) {
	testCases := []struct {
		name      string
		year      int
		month     time.Month
		cells     int
		firstCell time.Time
		lastCell  time.Time
	}{
		{name: "june 2024 starts saturday", year: 2024, month: time.June, cells: 35, firstCell: date(2024, 5, 27), lastCell: date(2024, 6, 30)},
		{name: "september 2024 starts sunday", year: 2024, month: time.September, cells: 42, firstCell: date(2024, 8, 26), lastCell: date(2024, 10, 6)},
		{name: "february 2021 starts monday", year: 2021, month: time.February, cells: 28, firstCell: date(2021, 2, 1), lastCell: date(2021, 2, 28)},
		{name: "january crosses year", year: 2025, month: time.January, cells: 35, firstCell: date(2024, 12, 30), lastCell: date(2025, 2, 2)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			grid := BuildMonthGrid(tc.year, tc.month, nil, time.Time{})
			require.Len(t, grid.Days, tc.cells)
			assert.Equal(t, tc.firstCell, grid.Days[0].Date)
			assert.Equal(t, tc.lastCell, grid.Days[len(grid.Days)-1].Date)
			assert.Len(t, grid.Weeks(), tc.cells/7)

			rng := GridRange(tc.year, tc.month)
			assert.Equal(t, tc.firstCell, rng.Start)
			assert.Equal(t, tc.lastCell, rng.End)
		})
	}
}

func TestTodayMarker(t *testing.T) {
	grid := BuildMonthGrid(2024, time.June, nil, time.Date(2024, 6, 14, 22, 15, 0, 0, time.UTC))
	today := 0
	for _, d := range grid.Days {
		if d.Today {
			today++
			assert.Equal(t, date(2024, 6, 14), d.Date)
		}
	}
	assert.Equal(t, 1, today)
}

func TestCoverageIncludesCheckoutMorning(t *testing.T) {
	e := entry("a", date(2024, 6, 3), date(2024, 6, 6), occupancy.StatusConfirmed)
	grid := BuildMonthGrid(2024, time.June, []Entry{e}, time.Time{})

	assert.Equal(t, KindFree, dayAt(t, grid, date(2024, 6, 2)).Kind)

	start := dayAt(t, grid, date(2024, 6, 3))
	assert.Equal(t, KindStart, start.Kind)
	assert.True(t, start.IsStart())
	assert.Equal(t, ShadeNone, start.Morning)
	assert.Equal(t, ShadeConfirmed, start.Evening)

	for _, d := range []time.Time{date(2024, 6, 4), date(2024, 6, 5), date(2024, 6, 6)} {
		day := dayAt(t, grid, d)
		assert.Equal(t, KindMiddle, day.Kind, d.Format(time.DateOnly))
		assert.True(t, day.IsMiddle())
		assert.False(t, day.IsEnd())
	}

	checkout := dayAt(t, grid, date(2024, 6, 7))
	assert.Equal(t, KindEnd, checkout.Kind)
	assert.True(t, checkout.IsEnd())
	require.Len(t, checkout.Coverage, 1)
	assert.Equal(t, "a", checkout.Coverage[0].Entry.ID)
	assert.Equal(t, ShadeConfirmed, checkout.Morning)
	assert.Equal(t, ShadeNone, checkout.Evening)

	assert.Equal(t, KindFree, dayAt(t, grid, date(2024, 6, 8)).Kind)
}

func TestSingleDayRangeIsStartAndEnd(t *testing.T) {
	e := entry("a", date(2024, 6, 12), date(2024, 6, 12), occupancy.StatusPending)
	grid := BuildMonthGrid(2024, time.June, []Entry{e}, time.Time{})

	day := dayAt(t, grid, date(2024, 6, 12))
	assert.True(t, day.IsStart())
	assert.True(t, day.IsEnd())
	assert.False(t, day.IsMiddle())
	assert.Equal(t, KindStartEnd, day.Kind)
	assert.Equal(t, ShadePending, day.Morning)
	assert.Equal(t, ShadePending, day.Evening)

	assert.Equal(t, KindFree, dayAt(t, grid, date(2024, 6, 13)).Kind)
}

func TestChangeoverDayIsMixed(t *testing.T) {
	confirmed := entry("out", date(2024, 6, 1), date(2024, 6, 9), occupancy.StatusConfirmed)
	pending := entry("in", date(2024, 6, 10), date(2024, 6, 14), occupancy.StatusPending)
	grid := BuildMonthGrid(2024, time.June, []Entry{confirmed, pending}, time.Time{})

	day := dayAt(t, grid, date(2024, 6, 10))
	assert.Equal(t, KindMixed, day.Kind)
	assert.NotEqual(t, KindStart, day.Kind)
	assert.NotEqual(t, KindEnd, day.Kind)
	assert.Equal(t, ShadeConfirmed, day.Morning)
	assert.Equal(t, ShadePending, day.Evening)
	assert.False(t, day.Overbooked)
	require.Len(t, day.Coverage, 2)
}

func TestChangeoverIntoSingleDayStay(t *testing.T) {
	first := entry("out", date(2024, 6, 1), date(2024, 6, 9), occupancy.StatusPending)
	single := entry("in", date(2024, 6, 10), date(2024, 6, 10), occupancy.StatusPending)
	grid := BuildMonthGrid(2024, time.June, []Entry{first, single}, time.Time{})

	day := dayAt(t, grid, date(2024, 6, 10))
	assert.Equal(t, KindMixed, day.Kind)
	assert.Equal(t, ShadePending, day.Morning)
}

func TestCancelledEntriesCoverNothing(t *testing.T) {
	cancelled := entry("x", date(2024, 6, 1), date(2024, 6, 30), occupancy.StatusCancelled)
	grid := BuildMonthGrid(2024, time.June, []Entry{cancelled}, time.Time{})

	for _, d := range grid.Days {
		assert.Empty(t, d.Coverage, d.Date.Format(time.DateOnly))
		assert.Equal(t, KindFree, d.Kind)
	}
}

func TestReversedRangeCoversNothing(t *testing.T) {
	testCases := []Entry{
		entry("r1", date(2024, 6, 10), date(2024, 6, 8), occupancy.StatusConfirmed),
		entry("r2", date(2024, 6, 10), date(2024, 6, 9), occupancy.StatusConfirmed),
	}
	for _, e := range testCases {
		t.Run(e.ID, func(t *testing.T) {
			grid := BuildMonthGrid(2024, time.June, []Entry{e}, time.Time{})
			for _, d := range grid.Days {
				assert.Empty(t, d.Coverage, d.Date.Format(time.DateOnly))
			}
		})
	}
}

func TestOverlappingStaysAreOverbooked(t *testing.T) {
	a := entry("a", date(2024, 6, 1), date(2024, 6, 10), occupancy.StatusConfirmed)
	b := entry("b", date(2024, 6, 5), date(2024, 6, 7), occupancy.StatusPending)
	grid := BuildMonthGrid(2024, time.June, []Entry{a, b}, time.Time{})

	day := dayAt(t, grid, date(2024, 6, 5))
	assert.True(t, day.Overbooked)
	assert.Equal(t, KindMiddle, day.Kind)
	assert.Equal(t, ShadeMixed, day.Evening)

	assert.False(t, dayAt(t, grid, date(2024, 6, 4)).Overbooked)
}

func TestStaySpanningMonthBoundary(t *testing.T) {
	e := entry("a", date(2024, 5, 20), date(2024, 7, 2), occupancy.StatusConfirmed)
	grid := BuildMonthGrid(2024, time.June, []Entry{e}, time.Time{})

	for _, d := range grid.Days {
		assert.Equal(t, KindMiddle, d.Kind, d.Date.Format(time.DateOnly))
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	entries := []Entry{
		entry("a", date(2024, 6, 1), date(2024, 6, 9), occupancy.StatusConfirmed),
		entry("b", date(2024, 6, 10), date(2024, 6, 14), occupancy.StatusPending),
		entry("c", date(2024, 6, 20), date(2024, 6, 20), occupancy.StatusCheckedIn),
	}
	today := date(2024, 6, 11)
	assert.Equal(t, BuildMonthGrid(2024, time.June, entries, today), BuildMonthGrid(2024, time.June, entries, today))
}

func TestEntriesFrom(t *testing.T) {
	o, err := occupancy.New(occupancy.CreateParams{
		ID:         "o1",
		PropertyID: "p",
		TenantName: "Mira",
		Span:       daterange.MustNew(date(2024, 6, 1), date(2024, 6, 3)),
		Now:        date(2024, 5, 1),
	})
	require.NoError(t, err)

	got := EntriesFrom([]*occupancy.Occupancy{o, nil})
	require.Len(t, got, 1)
	assert.Equal(t, Entry{ID: "o1", Label: "Mira", Span: o.Span, Status: occupancy.StatusPending}, got[0])
}
