package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domainoccupancy "rentcal/internal/domain/occupancy"
	"rentcal/internal/domain/shared/daterange"
)

var ErrConcurrentUpdate = fmt.Errorf("sqlstore: %w", domainoccupancy.ErrConcurrentUpdate)

// occupancyRow stores dates as YYYY-MM-DD text, which orders and compares the
// same way on every dialect.
type occupancyRow struct {
	ID         string    `gorm:"primaryKey;size:64"`
	PropertyID string    `gorm:"not null;size:128;index:idx_occupancy_property_span,priority:1"`
	Kind       string    `gorm:"not null;size:16"`
	TenantName string    `gorm:"not null"`
	StartDate  string    `gorm:"not null;size:10;index:idx_occupancy_property_span,priority:2"`
	EndDate    string    `gorm:"not null;size:10"`
	Status     string    `gorm:"not null;size:16"`
	CreatedAt  time.Time `gorm:"not null"`
	UpdatedAt  time.Time `gorm:"not null"`
	Version    int64     `gorm:"not null"`
}

func (occupancyRow) TableName() string { return "occupancies" }

type OccupancyRepository struct {
	db *gorm.DB
}

func NewOccupancyRepository(db *gorm.DB) *OccupancyRepository {
	return &OccupancyRepository{db: db}
}

func (r *OccupancyRepository) ByID(ctx context.Context, id domainoccupancy.ID) (*domainoccupancy.Occupancy, error) {
	var row occupancyRow
	if err := r.db.WithContext(ctx).First(&row, "id = ?", string(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainoccupancy.ErrNotFound
		}
		return nil, err
	}
	return row.toAggregate()
}

// Save inserts a new occupancy (Version 0) or updates an existing one guarded
// by its version.
func (r *OccupancyRepository) Save(ctx context.Context, o *domainoccupancy.Occupancy) error {
	row := newOccupancyRow(o)
	row.Version = o.Version + 1
	db := r.db.WithContext(ctx)

	if o.Version == 0 {
		res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
		if res.Error != nil {
			return fmt.Errorf("sqlstore: insert occupancy %s: %w", o.ID, res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrConcurrentUpdate
		}
		o.Version = row.Version
		return nil
	}

	res := db.Model(&occupancyRow{}).
		Where("id = ? AND version = ?", row.ID, o.Version).
		Updates(map[string]any{
			"property_id": row.PropertyID,
			"kind":        row.Kind,
			"tenant_name": row.TenantName,
			"start_date":  row.StartDate,
			"end_date":    row.EndDate,
			"status":      row.Status,
			"updated_at":  row.UpdatedAt,
			"version":     row.Version,
		})
	if res.Error != nil {
		return fmt.Errorf("sqlstore: update occupancy %s: %w", o.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrConcurrentUpdate
	}
	o.Version = row.Version
	return nil
}

func (r *OccupancyRepository) ListByProperty(ctx context.Context, propertyID domainoccupancy.PropertyID, window daterange.DateRange) ([]*domainoccupancy.Occupancy, error) {
	var rows []occupancyRow
	err := r.db.WithContext(ctx).
		Where("property_id = ? AND start_date <= ? AND end_date >= ?",
			string(propertyID), formatDate(window.End), formatDate(window.Start)).
		Order("start_date, id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]*domainoccupancy.Occupancy, 0, len(rows))
	for _, row := range rows {
		agg, err := row.toAggregate()
		if err != nil {
			return nil, err
		}
		out = append(out, agg)
	}
	return out, nil
}

func newOccupancyRow(o *domainoccupancy.Occupancy) occupancyRow {
	return occupancyRow{
		ID:         string(o.ID),
		PropertyID: string(o.PropertyID),
		Kind:       string(o.Kind),
		TenantName: o.TenantName,
		StartDate:  formatDate(o.Span.Start),
		EndDate:    formatDate(o.Span.End),
		Status:     string(o.Status),
		CreatedAt:  o.CreatedAt.UTC(),
		UpdatedAt:  o.UpdatedAt.UTC(),
		Version:    o.Version,
	}
}

func (row occupancyRow) toAggregate() (*domainoccupancy.Occupancy, error) {
	start, err := time.Parse(time.DateOnly, row.StartDate)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: occupancy %s start: %w", row.ID, err)
	}
	end, err := time.Parse(time.DateOnly, row.EndDate)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: occupancy %s end: %w", row.ID, err)
	}
	status, err := domainoccupancy.ParseStatus(row.Status)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: occupancy %s: %w", row.ID, err)
	}
	kind, err := domainoccupancy.ParseKind(row.Kind)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: occupancy %s: %w", row.ID, err)
	}
	return &domainoccupancy.Occupancy{
		ID:         domainoccupancy.ID(row.ID),
		PropertyID: domainoccupancy.PropertyID(row.PropertyID),
		Kind:       kind,
		TenantName: row.TenantName,
		Span:       daterange.DateRange{Start: start, End: end},
		Status:     status,
		CreatedAt:  row.CreatedAt.UTC(),
		UpdatedAt:  row.UpdatedAt.UTC(),
		Version:    row.Version,
	}, nil
}

func formatDate(t time.Time) string {
	return daterange.Day(t).Format(time.DateOnly)
}
