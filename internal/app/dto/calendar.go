package dto

import (
	"time"

	"rentcal/internal/domain/calendar"
)

type CalendarStay struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Role   string `json:"role"`
	Status string `json:"status"`
}

type CalendarDay struct {
	Date       string         `json:"date"`
	InMonth    bool           `json:"in_month"`
	Today      bool           `json:"today"`
	Kind       string         `json:"kind"`
	Morning    string         `json:"morning"`
	Evening    string         `json:"evening"`
	Overbooked bool           `json:"overbooked"`
	Stays      []CalendarStay `json:"stays"`
}

type MonthCalendar struct {
	PropertyID string          `json:"property_id"`
	Year       int             `json:"year"`
	Month      int             `json:"month"`
	From       string          `json:"from"`
	To         string          `json:"to"`
	Weeks      [][]CalendarDay `json:"weeks"`
}

func MapMonthCalendar(propertyID string, grid calendar.Month) MonthCalendar {
	out := MonthCalendar{
		PropertyID: propertyID,
		Year:       grid.Year,
		Month:      int(grid.Month),
		Weeks:      make([][]CalendarDay, 0, len(grid.Days)/7),
	}
	if len(grid.Days) > 0 {
		out.From = grid.Days[0].Date.Format(time.DateOnly)
		out.To = grid.Days[len(grid.Days)-1].Date.Format(time.DateOnly)
	}
	for _, week := range grid.Weeks() {
		row := make([]CalendarDay, 0, len(week))
		for _, d := range week {
			row = append(row, mapCalendarDay(d))
		}
		out.Weeks = append(out.Weeks, row)
	}
	return out
}

func mapCalendarDay(d calendar.Day) CalendarDay {
	stays := make([]CalendarStay, 0, len(d.Coverage))
	for _, c := range d.Coverage {
		stays = append(stays, CalendarStay{
			ID:     c.Entry.ID,
			Label:  c.Entry.Label,
			Role:   string(c.Role),
			Status: string(c.Entry.Status),
		})
	}
	return CalendarDay{
		Date:       d.Date.Format(time.DateOnly),
		InMonth:    d.InMonth,
		Today:      d.Today,
		Kind:       string(d.Kind),
		Morning:    string(d.Morning),
		Evening:    string(d.Evening),
		Overbooked: d.Overbooked,
		Stays:      stays,
	}
}
