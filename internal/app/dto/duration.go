package dto

import (
	"time"

	"rentcal/internal/domain/tenancy"
)

type Duration struct {
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Years     int       `json:"years"`
	Months    int       `json:"months"`
	Days      int       `json:"days"`
	TotalDays int       `json:"total_days"`
	// CoarseMonths is TotalDays / 30 rounded, used where a lease is quoted in months.
	CoarseMonths int    `json:"coarse_months"`
	Formatted    string `json:"formatted"`
}

func MapDuration(start, end time.Time, d tenancy.Duration) Duration {
	return Duration{
		Start:        start,
		End:          end,
		Years:        d.Years,
		Months:       d.Months,
		Days:         d.Days,
		TotalDays:    d.TotalDays,
		CoarseMonths: tenancy.CalculateMonths(start, end),
		Formatted:    d.String(),
	}
}
