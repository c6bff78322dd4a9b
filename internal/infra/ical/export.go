// Package ical renders a property's occupancies as an iCalendar feed.
package ical

import (
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"

	"rentcal/internal/app/dto"
	"rentcal/internal/domain/occupancy"
)

const productID = "-//rentcal//occupancy calendar//EN"

// Export builds a feed with one all-day event per stay. DTEND is exclusive in
// iCalendar, so it is the day after the last occupied day. Cancelled stays are
// left out; pending ones are marked tentative.
func Export(propertyID string, items []dto.Occupancy, stamp time.Time) (string, error) {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(productID)
	cal.SetXWRCalName("Occupancy " + propertyID)

	for _, item := range items {
		status, err := occupancy.ParseStatus(item.Status)
		if err != nil {
			return "", fmt.Errorf("ical: occupancy %s: %w", item.ID, err)
		}
		if status.Cancelled() {
			continue
		}
		start, err := time.Parse(time.DateOnly, item.Start)
		if err != nil {
			return "", fmt.Errorf("ical: occupancy %s start: %w", item.ID, err)
		}
		end, err := time.Parse(time.DateOnly, item.End)
		if err != nil {
			return "", fmt.Errorf("ical: occupancy %s end: %w", item.ID, err)
		}

		ev := cal.AddEvent(item.ID + "@rentcal")
		ev.SetDtStampTime(stamp.UTC())
		if !item.CreatedAt.IsZero() {
			ev.SetCreatedTime(item.CreatedAt.UTC())
		}
		if !item.UpdatedAt.IsZero() {
			ev.SetModifiedAt(item.UpdatedAt.UTC())
		}
		ev.SetAllDayStartAt(start)
		ev.SetAllDayEndAt(end.AddDate(0, 0, 1))
		ev.SetSummary(summary(item))
		ev.SetDescription(fmt.Sprintf("%s, %s (%s)", item.Kind, item.Duration, status))
		ev.SetSequence(int(item.Version))
		if status.Pending() {
			ev.SetStatus(ics.ObjectStatusTentative)
		} else {
			ev.SetStatus(ics.ObjectStatusConfirmed)
		}
	}
	return cal.Serialize(), nil
}

func summary(item dto.Occupancy) string {
	if item.Kind == string(occupancy.KindLease) {
		return "Lease: " + item.TenantName
	}
	return "Reservation: " + item.TenantName
}
