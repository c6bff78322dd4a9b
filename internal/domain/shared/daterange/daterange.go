package daterange

import (
	"errors"
	"time"
)

var (
	ErrInvalidRange = errors.New("daterange: end must not be before start")
	ErrMissingDate  = errors.New("daterange: start and end are required")
)

const day = 24 * time.Hour

// DateRange is an inclusive span of calendar days [Start, End].
// Both bounds are kept at UTC midnight; see Day.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Day strips the time of day from t. The calendar date is taken in t's own
// location and returned as midnight UTC so that dates from different zones compare by date only.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func New(start, end time.Time) (DateRange, error) {
	dr := DateRange{Start: Day(start), End: Day(end)}
	if start.IsZero() || end.IsZero() {
		return DateRange{}, ErrMissingDate
	}
	if err := dr.Validate(); err != nil {
		return DateRange{}, err
	}
	return dr, nil
}

// MustNew is New for fixtures and tests.
func MustNew(start, end time.Time) DateRange {
	dr, err := New(start, end)
	if err != nil {
		panic(err)
	}
	return dr
}

func (dr DateRange) Validate() error {
	if dr.Start.IsZero() || dr.End.IsZero() {
		return ErrMissingDate
	}
	if dr.End.Before(dr.Start) {
		return ErrInvalidRange
	}
	return nil
}

// Valid reports whether the range spans at least one day.
func (dr DateRange) Valid() bool {
	return dr.Validate() == nil
}

// Days is the number of calendar days covered, bounds included.
func (dr DateRange) Days() int {
	if !dr.Valid() {
		return 0
	}
	return DaysBetween(dr.Start, dr.End) + 1
}

// Overlaps uses inclusive bounds: ranges sharing a single boundary day overlap.
// Calendar coverage (one extra checkout day) is a display concern and does not apply here.
func (dr DateRange) Overlaps(other DateRange) bool {
	if !dr.Valid() || !other.Valid() {
		return false
	}
	a, b := dr.normalized(), other.normalized()
	return !a.Start.After(b.End) && !b.Start.After(a.End)
}

func (dr DateRange) Contains(other DateRange) bool {
	a, b := dr.normalized(), other.normalized()
	return !a.Start.After(b.Start) && !a.End.Before(b.End)
}

func (dr DateRange) ContainsDay(t time.Time) bool {
	if !dr.Valid() {
		return false
	}
	d := Day(t)
	a := dr.normalized()
	return !d.Before(a.Start) && !d.After(a.End)
}

// Adjacent reports whether one range ends the day before the other starts.
func (dr DateRange) Adjacent(other DateRange) bool {
	a, b := dr.normalized(), other.normalized()
	return a.End.Add(day).Equal(b.Start) || b.End.Add(day).Equal(a.Start)
}

func (dr DateRange) Merge(other DateRange) (DateRange, bool) {
	if !(dr.Overlaps(other) || dr.Adjacent(other)) {
		return DateRange{}, false
	}
	a, b := dr.normalized(), other.normalized()
	start := a.Start
	if b.Start.Before(start) {
		start = b.Start
	}
	end := a.End
	if b.End.After(end) {
		end = b.End
	}
	return DateRange{Start: start, End: end}, true
}

// Extend returns the range with n days added after End.
func (dr DateRange) Extend(n int) DateRange {
	return DateRange{Start: dr.Start, End: dr.End.AddDate(0, 0, n)}
}

func (dr DateRange) String() string {
	return dr.Start.Format(time.DateOnly) + ".." + dr.End.Format(time.DateOnly)
}

func (dr DateRange) normalized() DateRange {
	return DateRange{Start: Day(dr.Start), End: Day(dr.End)}
}
