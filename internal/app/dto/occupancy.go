package dto

import (
	"time"

	"rentcal/internal/domain/occupancy"
	"rentcal/internal/domain/tenancy"
)

type Occupancy struct {
	ID         string    `json:"id"`
	PropertyID string    `json:"property_id"`
	Kind       string    `json:"kind"`
	TenantName string    `json:"tenant_name"`
	Start      string    `json:"start"`
	End        string    `json:"end"`
	Days       int       `json:"days"`
	Duration   string    `json:"duration"`
	Status     string    `json:"status"`
	StatusCode int       `json:"status_code"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	Version    int64     `json:"version"`
}

type OccupancyCollection struct {
	PropertyID string      `json:"property_id"`
	Items      []Occupancy `json:"items"`
}

type OverlapReport struct {
	Overlapping bool        `json:"overlapping"`
	Count       int         `json:"count"`
	Items       []Occupancy `json:"items"`
	Message     string      `json:"message,omitempty"`
}

func MapOccupancy(o *occupancy.Occupancy) Occupancy {
	if o == nil {
		return Occupancy{}
	}
	return Occupancy{
		ID:         string(o.ID),
		PropertyID: string(o.PropertyID),
		Kind:       string(o.Kind),
		TenantName: o.TenantName,
		Start:      o.Span.Start.Format(time.DateOnly),
		End:        o.Span.End.Format(time.DateOnly),
		Days:       o.Span.Days(),
		Duration:   tenancy.Calculate(o.Span.Start, o.Span.End).String(),
		Status:     string(o.Status),
		StatusCode: o.Status.Code(),
		CreatedAt:  o.CreatedAt,
		UpdatedAt:  o.UpdatedAt,
		Version:    o.Version,
	}
}

func MapOccupancies(items []*occupancy.Occupancy) []Occupancy {
	out := make([]Occupancy, 0, len(items))
	for _, o := range items {
		if o == nil {
			continue
		}
		out = append(out, MapOccupancy(o))
	}
	return out
}

func MapOverlapReport(overlaps []*occupancy.Occupancy) OverlapReport {
	items := MapOccupancies(overlaps)
	return OverlapReport{
		Overlapping: len(items) > 0,
		Count:       len(items),
		Items:       items,
		Message:     occupancy.OverlapMessage(overlaps),
	}
}
