package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"rentcal/internal/app/uow"
	domainoccupancy "rentcal/internal/domain/occupancy"
	"rentcal/internal/domain/shared/daterange"
)

type occupancyFixture struct {
	ID         string                 `yaml:"id"`
	PropertyID string                 `yaml:"property_id"`
	Kind       string                 `yaml:"kind"`
	TenantName string                 `yaml:"tenant_name"`
	Start      string                 `yaml:"start"`
	End        string                 `yaml:"end"`
	Status     domainoccupancy.Status `yaml:"status"`
}

// loadFixtures seeds occupancies from a YAML list. Fixtures whose id already
// exists are skipped, so restarting against persistent storage is harmless.
func loadFixtures(ctx context.Context, path string, factory uow.UoWFactory, logger *slog.Logger) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("occupancy fixtures file not found, skipping", "path", path)
			return nil
		}
		return fmt.Errorf("read fixtures: %w", err)
	}

	var fixtures []occupancyFixture
	if err := yaml.Unmarshal(data, &fixtures); err != nil {
		return fmt.Errorf("decode fixtures: %w", err)
	}

	now := time.Now()
	imported := 0
	for _, fx := range fixtures {
		o, err := fx.toOccupancy(now)
		if err != nil {
			logger.Error("fixture invalid", "occupancy_id", fx.ID, "error", err)
			continue
		}
		if err := saveFixture(ctx, factory, o); err != nil {
			if errors.Is(err, domainoccupancy.ErrConcurrentUpdate) {
				logger.Debug("fixture already present", "occupancy_id", o.ID)
				continue
			}
			logger.Error("cannot store fixture occupancy", "occupancy_id", o.ID, "error", err)
			continue
		}
		imported++
	}
	logger.Info("occupancy fixtures imported", "path", path, "count", imported, "total", len(fixtures))
	return nil
}

func (fx occupancyFixture) toOccupancy(now time.Time) (*domainoccupancy.Occupancy, error) {
	start, err := time.Parse(time.DateOnly, fx.Start)
	if err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}
	end, err := time.Parse(time.DateOnly, fx.End)
	if err != nil {
		return nil, fmt.Errorf("end: %w", err)
	}
	span, err := daterange.New(start, end)
	if err != nil {
		return nil, err
	}
	kind, err := domainoccupancy.ParseKind(fx.Kind)
	if err != nil {
		return nil, err
	}
	return domainoccupancy.New(domainoccupancy.CreateParams{
		ID:         domainoccupancy.ID(fx.ID),
		PropertyID: domainoccupancy.PropertyID(fx.PropertyID),
		Kind:       kind,
		TenantName: fx.TenantName,
		Span:       span,
		Status:     fx.Status,
		Now:        now,
	})
}

func saveFixture(ctx context.Context, factory uow.UoWFactory, o *domainoccupancy.Occupancy) error {
	unit, execCtx, commit, finish, err := uow.Join(ctx, factory, uow.TxOptions{})
	if err != nil {
		return err
	}
	defer finish()
	if err := unit.Occupancies().Save(execCtx, o); err != nil {
		return err
	}
	return commit()
}
