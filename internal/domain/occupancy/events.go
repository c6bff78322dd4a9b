package occupancy

import (
	"strings"
	"time"

	"rentcal/internal/domain/shared/daterange"
)

type Created struct {
	OccupancyID string              `json:"occupancy_id"`
	PropertyID  string              `json:"property_id"`
	Kind        Kind                `json:"kind"`
	Range       daterange.DateRange `json:"range"`
	Status      Status              `json:"status"`
	At          time.Time           `json:"at"`
}

func (e Created) EventName() string     { return "occupancy.created" }
func (e Created) AggregateID() string   { return e.OccupancyID }
func (e Created) OccurredAt() time.Time { return e.At }
func (e Created) PartitionKey() string   { return e.PropertyID }

type Rescheduled struct {
	OccupancyID string              `json:"occupancy_id"`
	PropertyID  string              `json:"property_id"`
	Previous    daterange.DateRange `json:"previous"`
	Range       daterange.DateRange `json:"range"`
	At          time.Time           `json:"at"`
}

func (e Rescheduled) EventName() string     { return "occupancy.rescheduled" }
func (e Rescheduled) AggregateID() string   { return e.OccupancyID }
func (e Rescheduled) OccurredAt() time.Time { return e.At }
func (e Rescheduled) PartitionKey() string   { return e.PropertyID }

// StatusChanged covers confirm, check-in and completion; the name is derived from the target status.
type StatusChanged struct {
	OccupancyID string    `json:"occupancy_id"`
	PropertyID  string    `json:"property_id"`
	From        Status    `json:"from"`
	To          Status    `json:"to"`
	At          time.Time `json:"at"`
}

func (e StatusChanged) EventName() string {
	return "occupancy." + strings.ToLower(string(e.To))
}
func (e StatusChanged) AggregateID() string   { return e.OccupancyID }
func (e StatusChanged) OccurredAt() time.Time { return e.At }
func (e StatusChanged) PartitionKey() string   { return e.PropertyID }

type Cancelled struct {
	OccupancyID string    `json:"occupancy_id"`
	PropertyID  string    `json:"property_id"`
	Reason      string    `json:"reason,omitempty"`
	At          time.Time `json:"at"`
}

func (e Cancelled) EventName() string     { return "occupancy.cancelled" }
func (e Cancelled) AggregateID() string   { return e.OccupancyID }
func (e Cancelled) OccurredAt() time.Time { return e.At }
func (e Cancelled) PartitionKey() string   { return e.PropertyID }

type OverlapAccepted struct {
	OccupancyID string    `json:"occupancy_id"`
	PropertyID  string    `json:"property_id"`
	Overlapping []string  `json:"overlapping"`
	At          time.Time `json:"at"`
}

func (e OverlapAccepted) EventName() string     { return "occupancy.overlap_accepted" }
func (e OverlapAccepted) AggregateID() string   { return e.OccupancyID }
func (e OverlapAccepted) OccurredAt() time.Time { return e.At }
func (e OverlapAccepted) PartitionKey() string   { return e.PropertyID }
