// Package calendar lays out a property's stays on a month view.
//
// The grid always starts on Monday and holds whole weeks, padded with days
// from the neighbouring months. A stay covers its days from Start through End
// and additionally marks the day after End, the checkout morning, so that a
// cell can be drawn half occupied. This extra day is a display convention only:
// overlap detection treats the same stay as ending on End.
package calendar

import (
	"time"

	"rentcal/internal/domain/occupancy"
	"rentcal/internal/domain/shared/daterange"
)

// Role is the part a stay plays on a given day.
type Role string

const (
	RoleStart    Role = "start"
	RoleMiddle   Role = "middle"
	RoleEnd      Role = "end" // checkout morning, the day after the last booked day
	RoleStartEnd Role = "start_end"
)

// Kind summarises all roles on a day into one visual state.
type Kind string

const (
	KindFree     Kind = "free"
	KindStart    Kind = "start"
	KindMiddle   Kind = "middle"
	KindEnd      Kind = "end"
	KindStartEnd Kind = "start_end"
	// KindMixed is a changeover day: one stay checks out and another checks in.
	KindMixed Kind = "mixed"
)

// Shade is the colour of one half of a cell.
type Shade string

const (
	ShadeNone      Shade = "none"
	ShadePending   Shade = "pending"
	ShadeConfirmed Shade = "confirmed"
	ShadeMixed     Shade = "mixed"
)

// Entry is a stay as the calendar sees it.
type Entry struct {
	ID     string              `json:"id"`
	Label  string              `json:"label"`
	Span   daterange.DateRange `json:"span"`
	Status occupancy.Status    `json:"status"`
}

type Coverage struct {
	Entry Entry `json:"entry"`
	Role  Role  `json:"role"`
}

type Day struct {
	Date     time.Time  `json:"date"`
	InMonth  bool       `json:"in_month"`
	Today    bool       `json:"today"`
	Coverage []Coverage `json:"coverage"`
	Kind     Kind       `json:"kind"`
	// Morning is the shade of stays checking out or continuing through the day,
	// Evening of stays checking in or continuing.
	Morning    Shade `json:"morning"`
	Evening    Shade `json:"evening"`
	Overbooked bool  `json:"overbooked"`
}

func (d Day) IsStart() bool {
	return d.hasRole(RoleStart, RoleStartEnd)
}

func (d Day) IsEnd() bool {
	return d.hasRole(RoleEnd, RoleStartEnd)
}

func (d Day) IsMiddle() bool {
	return d.hasRole(RoleMiddle)
}

func (d Day) hasRole(roles ...Role) bool {
	for _, c := range d.Coverage {
		for _, r := range roles {
			if c.Role == r {
				return true
			}
		}
	}
	return false
}

type Month struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
	Days  []Day      `json:"days"`
}

// Weeks splits the grid into rows of seven days.
func (m Month) Weeks() [][]Day {
	weeks := make([][]Day, 0, len(m.Days)/7)
	for i := 0; i+7 <= len(m.Days); i += 7 {
		weeks = append(weeks, m.Days[i:i+7])
	}
	return weeks
}

// EntriesFrom converts occupancies for BuildMonthGrid.
func EntriesFrom(items []*occupancy.Occupancy) []Entry {
	out := make([]Entry, 0, len(items))
	for _, o := range items {
		if o == nil {
			continue
		}
		out = append(out, Entry{ID: string(o.ID), Label: o.TenantName, Span: o.Span, Status: o.Status})
	}
	return out
}

// GridRange is the span of days shown for a month, first cell to last cell.
func GridRange(year int, month time.Month) daterange.DateRange {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	offset := leadingDays(first)
	cells := offset + daterange.DaysIn(first.Year(), first.Month())
	if rem := cells % 7; rem != 0 {
		cells += 7 - rem
	}
	start := first.AddDate(0, 0, -offset)
	return daterange.DateRange{Start: start, End: start.AddDate(0, 0, cells-1)}
}

// BuildMonthGrid lays out entries on the month view. today marks the current
// day and may be zero. Cancelled entries and entries whose end precedes their
// start cover nothing. The result depends only on the arguments.
func BuildMonthGrid(year int, month time.Month, entries []Entry, today time.Time) Month {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	grid := GridRange(year, month)

	var todayDay time.Time
	if !today.IsZero() {
		todayDay = daterange.Day(today)
	}

	active := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.Status.Cancelled() || !e.Span.Valid() {
			continue
		}
		active = append(active, e)
	}

	n := daterange.DaysBetween(grid.Start, grid.End) + 1
	days := make([]Day, 0, n)
	for i := 0; i < n; i++ {
		date := grid.Start.AddDate(0, 0, i)
		day := Day{
			Date:    date,
			InMonth: date.Year() == first.Year() && date.Month() == first.Month(),
			Today:   !todayDay.IsZero() && date.Equal(todayDay),
		}
		for _, e := range active {
			if role, ok := roleOn(e.Span, date); ok {
				day.Coverage = append(day.Coverage, Coverage{Entry: e, Role: role})
			}
		}
		classify(&day)
		days = append(days, day)
	}
	return Month{Year: first.Year(), Month: first.Month(), Days: days}
}

// leadingDays is the number of cells before the 1st in a Monday-first week.
func leadingDays(first time.Time) int {
	wd := first.Weekday()
	if wd == time.Sunday {
		return 6
	}
	return int(wd) - 1
}

func roleOn(span daterange.DateRange, date time.Time) (Role, bool) {
	start, end := daterange.Day(span.Start), daterange.Day(span.End)
	if start.Equal(end) {
		if date.Equal(start) {
			return RoleStartEnd, true
		}
		return "", false
	}
	switch {
	case date.Equal(start):
		return RoleStart, true
	case date.After(start) && !date.After(end):
		return RoleMiddle, true
	case date.Equal(end.AddDate(0, 0, 1)):
		return RoleEnd, true
	}
	return "", false
}

func classify(day *Day) {
	var hasStart, hasMiddle, hasEnd, hasStartEnd bool
	var morning, evening []occupancy.Status
	nights := 0
	for _, c := range day.Coverage {
		switch c.Role {
		case RoleStart:
			hasStart = true
			evening = append(evening, c.Entry.Status)
			nights++
		case RoleMiddle:
			hasMiddle = true
			morning = append(morning, c.Entry.Status)
			evening = append(evening, c.Entry.Status)
			nights++
		case RoleEnd:
			hasEnd = true
			morning = append(morning, c.Entry.Status)
		case RoleStartEnd:
			hasStartEnd = true
			morning = append(morning, c.Entry.Status)
			evening = append(evening, c.Entry.Status)
			nights++
		}
	}

	// A changeover must be checked before the plain states: a day that is
	// both an end marker and a start marker is neither.
	switch {
	case hasEnd && (hasStart || hasStartEnd):
		day.Kind = KindMixed
	case hasMiddle:
		day.Kind = KindMiddle
	case hasStartEnd:
		day.Kind = KindStartEnd
	case hasStart:
		day.Kind = KindStart
	case hasEnd:
		day.Kind = KindEnd
	default:
		day.Kind = KindFree
	}
	day.Morning = shadeOf(morning)
	day.Evening = shadeOf(evening)
	day.Overbooked = nights > 1
}

func shadeOf(statuses []occupancy.Status) Shade {
	if len(statuses) == 0 {
		return ShadeNone
	}
	var pending, confirmed bool
	for _, s := range statuses {
		if s.Pending() {
			pending = true
		} else {
			confirmed = true
		}
	}
	switch {
	case pending && confirmed:
		return ShadeMixed
	case pending:
		return ShadePending
	default:
		return ShadeConfirmed
	}
}
