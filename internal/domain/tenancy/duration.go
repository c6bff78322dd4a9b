// Package tenancy computes how long a tenancy lasts.
package tenancy

import (
	"math"
	"strconv"
	"strings"
	"time"

	"rentcal/internal/domain/shared/daterange"
)

// Duration is a calendar breakdown of the time between two dates.
//
// Years, Months and Days come from field subtraction: a negative day count
// borrows the length of the month before the end month, a negative month count
// borrows a year. Adding the breakdown to the earlier date (years, then months,
// then days) lands exactly on the later date; when the start day is missing
// from a month on the way, whole months are stepped with month-end clamping
// instead. TotalDays is computed independently from the elapsed time and must
// not be derived from the breakdown.
type Duration struct {
	Years     int `json:"years"`
	Months    int `json:"months"`
	Days      int `json:"days"`
	TotalDays int `json:"total_days"`
}

// Calculate returns the duration between two dates. Argument order does not
// matter: the earlier date is always treated as the start.
func Calculate(a, b time.Time) Duration {
	start, end := daterange.Day(a), daterange.Day(b)
	if end.Before(start) {
		start, end = end, start
	}

	years := end.Year() - start.Year()
	months := int(end.Month()) - int(start.Month())
	days := end.Day() - start.Day()
	if days < 0 {
		months--
		days += daterange.DaysIn(end.Year(), end.Month()-1)
	}
	if months < 0 {
		years--
		months += 12
	}
	if days < 0 || !reassembles(start, end, years, months, days) {
		// the start day is missing from a month the breakdown steps through
		years, months, days = clampedBreakdown(start, end)
	}

	return Duration{
		Years:     years,
		Months:    months,
		Days:      days,
		TotalDays: TotalDays(a, b),
	}
}

func reassembles(start, end time.Time, years, months, days int) bool {
	return daterange.AddMonths(daterange.AddYears(start, years), months).AddDate(0, 0, days).Equal(end)
}

// clampedBreakdown steps whole years then whole months from start, clamping
// each step to the month end, and counts the remaining days.
func clampedBreakdown(start, end time.Time) (years, months, days int) {
	years = end.Year() - start.Year()
	if daterange.AddYears(start, years).After(end) {
		years--
	}
	anchor := daterange.AddYears(start, years)

	months = (end.Year()-anchor.Year())*12 + int(end.Month()) - int(anchor.Month())
	if daterange.AddMonths(anchor, months).After(end) {
		months--
	}
	anchor = daterange.AddMonths(anchor, months)
	return years, months, daterange.DaysBetween(anchor, end)
}

// TotalDays is the elapsed time between a and b in whole days, rounded up.
func TotalDays(a, b time.Time) int {
	elapsed := b.Sub(a)
	if elapsed < 0 {
		elapsed = -elapsed
	}
	const day = 24 * time.Hour
	n := int(elapsed / day)
	if elapsed%day != 0 {
		n++
	}
	return n
}

// CalculateMonths is the coarse month count (total days / 30, rounded) shown
// on older lease summaries. Prefer Calculate for anything new.
func CalculateMonths(a, b time.Time) int {
	return int(math.Round(float64(TotalDays(a, b)) / 30))
}

// String renders the non-zero parts, e.g. "1 year, 2 months, 3 days".
// A zero duration renders as "0 days".
func (d Duration) String() string {
	parts := make([]string, 0, 3)
	if d.Years > 0 {
		parts = append(parts, plural(d.Years, "year"))
	}
	if d.Months > 0 {
		parts = append(parts, plural(d.Months, "month"))
	}
	if d.Days > 0 || (d.Years == 0 && d.Months == 0) {
		parts = append(parts, plural(d.Days, "day"))
	}
	return strings.Join(parts, ", ")
}

// Format is Duration.String as a function, for templates and mappers.
func Format(d Duration) string {
	return d.String()
}

// IsZero reports whether both dates fell on the same calendar day.
func (d Duration) IsZero() bool {
	return d.Years == 0 && d.Months == 0 && d.Days == 0
}

func plural(n int, unit string) string {
	s := strconv.Itoa(n) + " " + unit
	if n != 1 {
		s += "s"
	}
	return s
}
