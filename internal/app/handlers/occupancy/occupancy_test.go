package occupancy_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentcal/internal/app/commands"
	"rentcal/internal/app/dto"
	occupancyapp "rentcal/internal/app/handlers/occupancy"
	"rentcal/internal/app/middleware"
	appoutbox "rentcal/internal/app/outbox"
	"rentcal/internal/app/policies"
	"rentcal/internal/app/queries"
	"rentcal/internal/app/uow"
	domainoccupancy "rentcal/internal/domain/occupancy"
	"rentcal/internal/domain/shared/daterange"
	"rentcal/internal/infra/storage/memory"
)

var fixedNow = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type harness struct {
	repo     *memory.OccupancyRepository
	commands commands.Bus
	queries  queries.Bus
	events   []appoutbox.EventRecord
	logs     *bytes.Buffer
}

func newHarness(t *testing.T, checker policies.OverlapChecker) *harness {
	t.Helper()
	h := &harness{repo: memory.NewOccupancyRepository(), logs: &bytes.Buffer{}}
	logger := slog.New(slog.NewTextHandler(h.logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	factory := memory.Factory{OccupancyRepo: h.repo}
	box := memory.NewOutbox()
	box.Sink = func(_ context.Context, records []appoutbox.EventRecord) { h.events = append(h.events, records...) }
	if checker == nil {
		checker = occupancyapp.UnitOverlapChecker{UoWFactory: factory}
	}
	now := func() time.Time { return fixedNow }

	cmdBus := commands.NewInMemoryBus()
	commands.RegisterHandler(cmdBus, &occupancyapp.CreateOccupancyHandler{UoWFactory: factory, Overlaps: checker, Outbox: box, Logger: logger, Now: now})
	commands.RegisterHandler(cmdBus, &occupancyapp.RescheduleOccupancyHandler{UoWFactory: factory, Overlaps: checker, Outbox: box, Logger: logger, Now: now})
	commands.RegisterHandler(cmdBus, &occupancyapp.TransitionOccupancyHandler{UoWFactory: factory, Outbox: box, Logger: logger, Now: now})
	h.commands = middleware.ChainCommands(cmdBus,
		middleware.Logging(logger),
		middleware.Validation(middleware.SelfValidating{}),
		middleware.Idempotency(memory.NewIdempotencyStore(time.Hour), nil),
		middleware.OutboxFlush(box),
		middleware.Transaction(factory),
	)

	qBus := queries.NewInMemoryBus()
	queries.RegisterHandler(qBus, &occupancyapp.CheckOverlapsHandler{Checker: checker})
	queries.RegisterHandler(qBus, &occupancyapp.ListOccupanciesHandler{UoWFactory: factory, Logger: logger})
	h.queries = middleware.ChainQueries(qBus, middleware.QueryValidation(middleware.SelfValidating{}))
	return h
}

func (h *harness) create(t *testing.T, cmd occupancyapp.CreateOccupancyCommand) (*occupancyapp.WriteResult, error) {
	t.Helper()
	if cmd.PropertyID == "" {
		cmd.PropertyID = "flat-7"
	}
	if cmd.TenantName == "" {
		cmd.TenantName = "Ada"
	}
	return commands.Dispatch[occupancyapp.CreateOccupancyCommand, *occupancyapp.WriteResult](context.Background(), h.commands, cmd)
}

func (h *harness) eventNames() []string {
	names := make([]string, 0, len(h.events))
	for _, ev := range h.events {
		names = append(names, ev.Name)
	}
	return names
}

func TestCreateOccupancy(t *testing.T) {
	h := newHarness(t, nil)

	res, err := h.create(t, occupancyapp.CreateOccupancyCommand{
		Start: date(2024, 6, 1), End: date(2024, 6, 10), Kind: "lease", Status: "1",
	})
	require.NoError(t, err)
	assert.Equal(t, "2024-06-01", res.Occupancy.Start)
	assert.Equal(t, "2024-06-10", res.Occupancy.End)
	assert.Equal(t, "CONFIRMED", res.Occupancy.Status)
	assert.Equal(t, "LEASE", res.Occupancy.Kind)
	assert.Equal(t, 10, res.Occupancy.Days)
	assert.Equal(t, "9 days", res.Occupancy.Duration)
	assert.Empty(t, res.Overlaps)
	assert.Equal(t, 1, h.repo.Len())
	assert.Equal(t, []string{"occupancy.created"}, h.eventNames())
}

func TestCreateOccupancyAssignsULIDNotCommandID(t *testing.T) {
	h := newHarness(t, nil)
	commandID := uuid.NewString()

	res, err := h.create(t, occupancyapp.CreateOccupancyCommand{
		CommandID: commandID, Start: date(2024, 6, 1), End: date(2024, 6, 10),
	})
	require.NoError(t, err)
	assert.NotEqual(t, commandID, res.Occupancy.ID)
	_, err = ulid.Parse(res.Occupancy.ID)
	assert.NoError(t, err)
	assert.Contains(t, h.logs.String(), commandID)
}

func TestCreateOccupancyRejectsInvalidInput(t *testing.T) {
	h := newHarness(t, nil)

	_, err := h.create(t, occupancyapp.CreateOccupancyCommand{Start: date(2024, 6, 10), End: date(2024, 6, 1)})
	assert.ErrorIs(t, err, daterange.ErrInvalidRange)

	_, err = h.create(t, occupancyapp.CreateOccupancyCommand{End: date(2024, 6, 1)})
	assert.ErrorIs(t, err, daterange.ErrMissingDate)

	_, err = h.create(t, occupancyapp.CreateOccupancyCommand{Start: date(2024, 6, 1), End: date(2024, 6, 2), Status: "archived"})
	assert.ErrorIs(t, err, domainoccupancy.ErrUnknownStatus)

	assert.Zero(t, h.repo.Len())
}

func TestCreateOccupancyOverlapIsRejectedUnlessAllowed(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.create(t, occupancyapp.CreateOccupancyCommand{TenantName: "Ada", Start: date(2024, 6, 1), End: date(2024, 6, 10)})
	require.NoError(t, err)

	_, err = h.create(t, occupancyapp.CreateOccupancyCommand{TenantName: "Grace", Start: date(2024, 6, 10), End: date(2024, 6, 15)})
	require.ErrorIs(t, err, occupancyapp.ErrOverlap)
	var overlapErr *occupancyapp.OverlapError
	require.True(t, errors.As(err, &overlapErr))
	report := overlapErr.Report()
	assert.True(t, report.Overlapping)
	assert.Equal(t, 1, report.Count)
	assert.Equal(t, "1 existing reservation overlaps the selected dates: tenant Ada, dates 2024-06-01 to 2024-06-10, status PENDING", report.Message)
	assert.Equal(t, 1, h.repo.Len())

	res, err := h.create(t, occupancyapp.CreateOccupancyCommand{TenantName: "Grace", Start: date(2024, 6, 10), End: date(2024, 6, 15), AllowOverlap: true})
	require.NoError(t, err)
	require.Len(t, res.Overlaps, 1)
	assert.Contains(t, res.Warning, "tenant Ada")
	assert.Equal(t, 2, h.repo.Len())
	assert.Contains(t, h.eventNames(), "occupancy.overlap_accepted")
}

func TestCreateOccupancyNextDayDoesNotOverlap(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.create(t, occupancyapp.CreateOccupancyCommand{Start: date(2024, 6, 1), End: date(2024, 6, 10)})
	require.NoError(t, err)

	_, err = h.create(t, occupancyapp.CreateOccupancyCommand{Start: date(2024, 6, 11), End: date(2024, 6, 15)})
	require.NoError(t, err)
}

func TestCancelledStaysDoNotBlock(t *testing.T) {
	h := newHarness(t, nil)
	first, err := h.create(t, occupancyapp.CreateOccupancyCommand{Start: date(2024, 6, 1), End: date(2024, 6, 10)})
	require.NoError(t, err)

	_, err = commands.Dispatch[occupancyapp.TransitionOccupancyCommand, dto.Occupancy](context.Background(), h.commands,
		occupancyapp.TransitionOccupancyCommand{OccupancyID: first.Occupancy.ID, Action: "cancel", Reason: "moved out early"})
	require.NoError(t, err)

	_, err = h.create(t, occupancyapp.CreateOccupancyCommand{Start: date(2024, 6, 5), End: date(2024, 6, 8)})
	require.NoError(t, err)
}

type failingChecker struct{}

func (failingChecker) Overlaps(context.Context, domainoccupancy.PropertyID, daterange.DateRange, domainoccupancy.ID) ([]*domainoccupancy.Occupancy, error) {
	return nil, errors.New("backend unavailable")
}

func TestOverlapCheckFailureDoesNotBlockWrite(t *testing.T) {
	h := newHarness(t, failingChecker{})

	res, err := h.create(t, occupancyapp.CreateOccupancyCommand{Start: date(2024, 6, 1), End: date(2024, 6, 10)})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Occupancy.ID)
	assert.Equal(t, 1, h.repo.Len())
	assert.Contains(t, h.logs.String(), "overlap check failed")
	assert.Contains(t, h.logs.String(), "backend unavailable")
}

type isolatingFactory struct {
	inner    uow.UoWFactory
	isolated int
}

func (f *isolatingFactory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	unit, err := f.inner.Begin(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &isolatingUnit{UnitOfWork: unit, factory: f}, nil
}

type isolatingUnit struct {
	uow.UnitOfWork
	factory *isolatingFactory
}

func (u *isolatingUnit) Isolate(ctx context.Context, fn func(context.Context) error) error {
	u.factory.isolated++
	return fn(uow.Detach(ctx))
}

func TestOverlapCheckRunsIsolatedFromWriteUnit(t *testing.T) {
	repo := memory.NewOccupancyRepository()
	factory := &isolatingFactory{inner: memory.Factory{OccupancyRepo: repo}}
	bus := commands.NewInMemoryBus()
	commands.RegisterHandler(bus, &occupancyapp.CreateOccupancyHandler{
		UoWFactory: factory,
		Overlaps:   occupancyapp.UnitOverlapChecker{UoWFactory: factory},
		Outbox:     memory.NewOutbox(),
		Now:        func() time.Time { return fixedNow },
	})
	chain := middleware.ChainCommands(bus, middleware.Transaction(factory))
	create := func(start, end time.Time) error {
		_, err := commands.Dispatch[occupancyapp.CreateOccupancyCommand, *occupancyapp.WriteResult](context.Background(), chain,
			occupancyapp.CreateOccupancyCommand{PropertyID: "flat-7", TenantName: "Ada", Start: start, End: end})
		return err
	}

	require.NoError(t, create(date(2024, 6, 1), date(2024, 6, 10)))
	err := create(date(2024, 6, 5), date(2024, 6, 12))
	var overlapErr *occupancyapp.OverlapError
	require.ErrorAs(t, err, &overlapErr)
	assert.Equal(t, 2, factory.isolated)
	assert.Equal(t, 1, repo.Len())
}

func TestRescheduleExcludesItself(t *testing.T) {
	h := newHarness(t, nil)
	a, err := h.create(t, occupancyapp.CreateOccupancyCommand{TenantName: "Ada", Start: date(2024, 6, 1), End: date(2024, 6, 10)})
	require.NoError(t, err)
	_, err = h.create(t, occupancyapp.CreateOccupancyCommand{TenantName: "Grace", Start: date(2024, 6, 20), End: date(2024, 6, 25)})
	require.NoError(t, err)

	res, err := commands.Dispatch[occupancyapp.RescheduleOccupancyCommand, *occupancyapp.WriteResult](context.Background(), h.commands,
		occupancyapp.RescheduleOccupancyCommand{OccupancyID: a.Occupancy.ID, Start: date(2024, 6, 3), End: date(2024, 6, 12)})
	require.NoError(t, err)
	assert.Equal(t, "2024-06-03", res.Occupancy.Start)
	assert.Empty(t, res.Overlaps)

	_, err = commands.Dispatch[occupancyapp.RescheduleOccupancyCommand, *occupancyapp.WriteResult](context.Background(), h.commands,
		occupancyapp.RescheduleOccupancyCommand{OccupancyID: a.Occupancy.ID, Start: date(2024, 6, 12), End: date(2024, 6, 20)})
	require.ErrorIs(t, err, occupancyapp.ErrOverlap)

	stored, err := h.repo.ByID(context.Background(), domainoccupancy.ID(a.Occupancy.ID))
	require.NoError(t, err)
	assert.Equal(t, date(2024, 6, 3), stored.Span.Start)

	_, err = commands.Dispatch[occupancyapp.RescheduleOccupancyCommand, *occupancyapp.WriteResult](context.Background(), h.commands,
		occupancyapp.RescheduleOccupancyCommand{OccupancyID: "missing", Start: date(2024, 6, 12), End: date(2024, 6, 20)})
	assert.ErrorIs(t, err, domainoccupancy.ErrNotFound)
}

func TestTransitions(t *testing.T) {
	h := newHarness(t, nil)
	a, err := h.create(t, occupancyapp.CreateOccupancyCommand{Start: date(2024, 6, 1), End: date(2024, 6, 10)})
	require.NoError(t, err)

	transition := func(action string) (dto.Occupancy, error) {
		return commands.Dispatch[occupancyapp.TransitionOccupancyCommand, dto.Occupancy](context.Background(), h.commands,
			occupancyapp.TransitionOccupancyCommand{OccupancyID: a.Occupancy.ID, Action: action})
	}

	_, err = transition("complete")
	assert.ErrorIs(t, err, domainoccupancy.ErrInvalidTransition)

	got, err := transition("confirm")
	require.NoError(t, err)
	assert.Equal(t, "CONFIRMED", got.Status)
	assert.Equal(t, 1, got.StatusCode)

	got, err = transition("check_in")
	require.NoError(t, err)
	assert.Equal(t, "CHECKED_IN", got.Status)

	_, err = transition("archive")
	assert.ErrorIs(t, err, occupancyapp.ErrUnknownAction)

	assert.Equal(t, []string{"occupancy.created", "occupancy.confirmed", "occupancy.checked_in"}, h.eventNames())
}

func TestCreateIsIdempotent(t *testing.T) {
	h := newHarness(t, nil)
	cmd := occupancyapp.CreateOccupancyCommand{Start: date(2024, 6, 1), End: date(2024, 6, 10), IdempotencyKeyV: "req-1"}

	first, err := h.create(t, cmd)
	require.NoError(t, err)
	second, err := h.create(t, cmd)
	require.NoError(t, err)

	assert.Equal(t, first.Occupancy.ID, second.Occupancy.ID)
	assert.Equal(t, 1, h.repo.Len())
}

func TestCheckOverlapsQuery(t *testing.T) {
	h := newHarness(t, nil)
	a, err := h.create(t, occupancyapp.CreateOccupancyCommand{Start: date(2024, 6, 1), End: date(2024, 6, 10)})
	require.NoError(t, err)

	ask := func(q occupancyapp.CheckOverlapsQuery) (dto.OverlapReport, error) {
		q.PropertyID = "flat-7"
		return queries.Ask[occupancyapp.CheckOverlapsQuery, dto.OverlapReport](context.Background(), h.queries, q)
	}

	report, err := ask(occupancyapp.CheckOverlapsQuery{Start: date(2024, 6, 10), End: date(2024, 6, 12)})
	require.NoError(t, err)
	assert.True(t, report.Overlapping)

	report, err = ask(occupancyapp.CheckOverlapsQuery{Start: date(2024, 6, 10), End: date(2024, 6, 12), ExcludeID: a.Occupancy.ID})
	require.NoError(t, err)
	assert.False(t, report.Overlapping)
	assert.Empty(t, report.Message)

	_, err = ask(occupancyapp.CheckOverlapsQuery{Start: date(2024, 6, 12), End: date(2024, 6, 10)})
	assert.ErrorIs(t, err, daterange.ErrInvalidRange)
}

func TestListOccupancies(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.create(t, occupancyapp.CreateOccupancyCommand{Start: date(2024, 7, 1), End: date(2024, 7, 10), Status: "CONFIRMED"})
	require.NoError(t, err)
	_, err = h.create(t, occupancyapp.CreateOccupancyCommand{Start: date(2024, 6, 1), End: date(2024, 6, 10)})
	require.NoError(t, err)

	ask := func(q occupancyapp.ListOccupanciesQuery) (dto.OccupancyCollection, error) {
		q.PropertyID = "flat-7"
		return queries.Ask[occupancyapp.ListOccupanciesQuery, dto.OccupancyCollection](context.Background(), h.queries, q)
	}

	all, err := ask(occupancyapp.ListOccupanciesQuery{})
	require.NoError(t, err)
	require.Len(t, all.Items, 2)
	assert.Equal(t, "2024-06-01", all.Items[0].Start)

	confirmed, err := ask(occupancyapp.ListOccupanciesQuery{Status: "1"})
	require.NoError(t, err)
	require.Len(t, confirmed.Items, 1)
	assert.Equal(t, "2024-07-01", confirmed.Items[0].Start)

	june, err := ask(occupancyapp.ListOccupanciesQuery{From: date(2024, 6, 5), To: date(2024, 6, 30)})
	require.NoError(t, err)
	assert.Len(t, june.Items, 1)

	_, err = ask(occupancyapp.ListOccupanciesQuery{Status: "nope"})
	assert.ErrorIs(t, err, domainoccupancy.ErrUnknownStatus)
}
