// Package wiring assembles the command and query buses with their middleware.
package wiring

import (
	"log/slog"
	"time"

	"rentcal/internal/app/commands"
	calendarapp "rentcal/internal/app/handlers/calendar"
	occupancyapp "rentcal/internal/app/handlers/occupancy"
	tenancyapp "rentcal/internal/app/handlers/tenancy"
	"rentcal/internal/app/middleware"
	"rentcal/internal/app/outbox"
	"rentcal/internal/app/policies"
	"rentcal/internal/app/queries"
	"rentcal/internal/app/uow"
)

type Deps struct {
	UoWFactory  uow.UoWFactory
	Outbox      outbox.Outbox
	Encoder     outbox.EventEncoder
	Idempotency middleware.IdempotencyStore
	// Overlaps defaults to a checker reading through UoWFactory.
	Overlaps policies.OverlapChecker
	Location *time.Location
	Logger   *slog.Logger
	Now      func() time.Time
}

type Buses struct {
	Commands commands.Bus
	Queries  queries.Bus
}

func NewBuses(d Deps) Buses {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := d.Now
	if now == nil {
		now = time.Now
	}
	checker := d.Overlaps
	if checker == nil {
		checker = occupancyapp.UnitOverlapChecker{UoWFactory: d.UoWFactory}
	}

	commandBus := commands.NewInMemoryBus()
	commands.RegisterHandler(commandBus, &occupancyapp.CreateOccupancyHandler{
		UoWFactory: d.UoWFactory,
		Overlaps:   checker,
		Outbox:     d.Outbox,
		Encoder:    d.Encoder,
		Logger:     logger,
		Now:        now,
	})
	commands.RegisterHandler(commandBus, &occupancyapp.RescheduleOccupancyHandler{
		UoWFactory: d.UoWFactory,
		Overlaps:   checker,
		Outbox:     d.Outbox,
		Encoder:    d.Encoder,
		Logger:     logger,
		Now:        now,
	})
	commands.RegisterHandler(commandBus, &occupancyapp.TransitionOccupancyHandler{
		UoWFactory: d.UoWFactory,
		Outbox:     d.Outbox,
		Encoder:    d.Encoder,
		Logger:     logger,
		Now:        now,
	})

	queryBus := queries.NewInMemoryBus()
	queries.RegisterHandler(queryBus, tenancyapp.CalculateDurationHandler{})
	queries.RegisterHandler(queryBus, &occupancyapp.CheckOverlapsHandler{Checker: checker})
	queries.RegisterHandler(queryBus, &occupancyapp.ListOccupanciesHandler{UoWFactory: d.UoWFactory, Logger: logger})
	queries.RegisterHandler(queryBus, &calendarapp.GetMonthHandler{
		UoWFactory: d.UoWFactory,
		Location:   d.Location,
		Logger:     logger,
		Now:        now,
	})

	var idempotency middleware.CommandMiddleware
	if d.Idempotency != nil {
		idempotency = middleware.Idempotency(d.Idempotency, nil)
	}
	var flush middleware.CommandMiddleware
	if d.Outbox != nil {
		flush = middleware.OutboxFlush(d.Outbox)
	}

	return Buses{
		Commands: middleware.ChainCommands(commandBus,
			middleware.Logging(logger),
			middleware.Validation(middleware.SelfValidating{}),
			idempotency,
			flush,
			middleware.Transaction(d.UoWFactory),
		),
		Queries: middleware.ChainQueries(queryBus,
			middleware.QueryLogging(logger),
			middleware.QueryValidation(middleware.SelfValidating{}),
		),
	}
}
