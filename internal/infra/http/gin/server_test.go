package ginserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentcal/internal/app/wiring"
	"rentcal/internal/infra/config"
	"rentcal/internal/infra/obs"
	"rentcal/internal/infra/storage/memory"
)

var fixedNow = time.Date(2024, 6, 14, 9, 0, 0, 0, time.UTC)

type testServer struct {
	router *gin.Engine
	ready  error
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := memory.NewOccupancyRepository()
	buses := wiring.NewBuses(wiring.Deps{
		UoWFactory:  memory.Factory{OccupancyRepo: repo},
		Outbox:      memory.NewOutbox(),
		Idempotency: memory.NewIdempotencyStore(time.Hour),
		Logger:      logger,
		Now:         func() time.Time { return fixedNow },
	})

	cfg := config.Defaults()
	cfg.RateLimitRPS = 0
	ts := &testServer{}
	health := obs.HealthHandlers{Ready: func(context.Context) error { return ts.ready }}
	ts.router = NewRouter(cfg, obs.Middleware{Logger: logger}, health, Handlers{
		Duration:  DurationHandler{Queries: buses.Queries, Logger: logger},
		Property:  PropertyHandler{Commands: buses.Commands, Queries: buses.Queries, Logger: logger, Now: func() time.Time { return fixedNow }},
		Occupancy: OccupancyHandler{Commands: buses.Commands, Logger: logger},
	})
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (ts *testServer) create(t *testing.T, body map[string]any) string {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/api/v1/properties/flat-7/occupancies", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	occ := decode(t, rec)["occupancy"].(map[string]any)
	id := occ["id"].(string)
	_, err := ulid.Parse(id)
	require.NoError(t, err, "occupancy id %q is not a ULID", id)
	return id
}

func TestHealthEndpoints(t *testing.T) {
	ts := newTestServer(t)

	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/livez", nil).Code)
	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/readyz", nil).Code)

	ts.ready = errors.New("mongo unreachable")
	rec := ts.do(t, http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestDurationEndpoint(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/v1/durations?start=2023-05-15&end=2024-06-20", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.EqualValues(t, 1, body["years"])
	assert.EqualValues(t, 1, body["months"])
	assert.EqualValues(t, 5, body["days"])
	assert.Equal(t, "1 year, 1 month, 5 days", body["formatted"])

	again := ts.do(t, http.MethodGet, "/api/v1/durations?start=2023-05-15&end=2024-06-20", nil)
	assert.Equal(t, "HIT", again.Header().Get("X-Cache"))
	assert.Equal(t, rec.Body.String(), again.Body.String())

	testCases := []struct {
		name  string
		query string
	}{
		{name: "missing end", query: "start=2024-01-01"},
		{name: "malformed", query: "start=01/02/2024&end=2024-01-05"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodGet, "/api/v1/durations?"+tc.query, nil).Code)
		})
	}

	rfc := ts.do(t, http.MethodGet, "/api/v1/durations?start=2024-01-01T10:00:00Z&end=2024-01-03T08:00:00Z", nil)
	require.Equal(t, http.StatusOK, rfc.Code)
	assert.EqualValues(t, 2, decode(t, rfc)["days"])
}

func TestCreateOccupancyOverlapConflict(t *testing.T) {
	ts := newTestServer(t)
	ts.create(t, map[string]any{"tenant_name": "Ada", "kind": "lease", "start": "2024-06-01", "end": "2024-06-10", "status": 1})

	rec := ts.do(t, http.MethodPost, "/api/v1/properties/flat-7/occupancies", map[string]any{
		"tenant_name": "Bo", "start": "2024-06-10", "end": "2024-06-12",
	})
	require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
	report := decode(t, rec)["overlaps"].(map[string]any)
	assert.Equal(t, true, report["overlapping"])
	assert.EqualValues(t, 1, report["count"])
	assert.Contains(t, report["message"], "1 existing lease overlaps")

	allowed := ts.do(t, http.MethodPost, "/api/v1/properties/flat-7/occupancies", map[string]any{
		"tenant_name": "Bo", "start": "2024-06-10", "end": "2024-06-12", "allow_overlap": true,
	})
	require.Equal(t, http.StatusCreated, allowed.Code, allowed.Body.String())
	assert.NotEmpty(t, decode(t, allowed)["warning"])

	next := ts.do(t, http.MethodPost, "/api/v1/properties/flat-7/occupancies", map[string]any{
		"tenant_name": "Cy", "start": "2024-06-13", "end": "2024-06-14",
	})
	assert.Equal(t, http.StatusCreated, next.Code, next.Body.String())
}

func TestCreateOccupancyValidation(t *testing.T) {
	ts := newTestServer(t)

	testCases := []struct {
		name string
		body map[string]any
	}{
		{name: "reversed range", body: map[string]any{"tenant_name": "Ada", "start": "2024-06-10", "end": "2024-06-01"}},
		{name: "missing tenant", body: map[string]any{"start": "2024-06-01", "end": "2024-06-02"}},
		{name: "unknown status", body: map[string]any{"tenant_name": "Ada", "start": "2024-06-01", "end": "2024-06-02", "status": "archived"}},
		{name: "unknown kind", body: map[string]any{"tenant_name": "Ada", "kind": "sublet", "start": "2024-06-01", "end": "2024-06-02"}},
		{name: "bad date", body: map[string]any{"tenant_name": "Ada", "start": "June 1", "end": "2024-06-02"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodPost, "/api/v1/properties/flat-7/occupancies", tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestCreateOccupancyIdempotencyKey(t *testing.T) {
	ts := newTestServer(t)
	body := map[string]any{"tenant_name": "Ada", "start": "2024-07-01", "end": "2024-07-05"}

	first := ts.do(t, http.MethodPost, "/api/v1/properties/flat-7/occupancies", body, "Idempotency-Key", "abc")
	second := ts.do(t, http.MethodPost, "/api/v1/properties/flat-7/occupancies", body, "Idempotency-Key", "abc")
	require.Equal(t, http.StatusCreated, first.Code)
	require.Equal(t, http.StatusCreated, second.Code)

	firstID := decode(t, first)["occupancy"].(map[string]any)["id"]
	secondID := decode(t, second)["occupancy"].(map[string]any)["id"]
	assert.Equal(t, firstID, secondID)

	list := decode(t, ts.do(t, http.MethodGet, "/api/v1/properties/flat-7/occupancies", nil))
	assert.Len(t, list["items"], 1)
}

func TestOverlapsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	id := ts.create(t, map[string]any{"tenant_name": "Ada", "start": "2024-06-01", "end": "2024-06-10"})

	rec := ts.do(t, http.MethodGet, "/api/v1/properties/flat-7/overlaps?start=2024-06-05&end=2024-06-06", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["overlapping"])

	rec = ts.do(t, http.MethodGet, "/api/v1/properties/flat-7/overlaps?start=2024-06-05&end=2024-06-06&exclude="+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode(t, rec)["overlapping"])

	rec = ts.do(t, http.MethodGet, "/api/v1/properties/flat-7/overlaps?start=2024-06-06&end=2024-06-05", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCalendarEndpoints(t *testing.T) {
	ts := newTestServer(t)
	ts.create(t, map[string]any{"tenant_name": "Ada", "start": "2024-06-03", "end": "2024-06-06", "status": "confirmed"})

	rec := ts.do(t, http.MethodGet, "/api/v1/properties/flat-7/calendar?year=2024&month=6", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "2024-05-27", body["from"])
	assert.Equal(t, "2024-06-30", body["to"])
	weeks := body["weeks"].([]any)
	require.Len(t, weeks, 5)
	monday := weeks[1].([]any)[0].(map[string]any)
	assert.Equal(t, "2024-06-03", monday["date"])
	assert.Equal(t, "start", monday["kind"])
	friday := weeks[1].([]any)[4].(map[string]any)
	assert.Equal(t, "2024-06-07", friday["date"])
	assert.Equal(t, "end", friday["kind"])

	defaulted := decode(t, ts.do(t, http.MethodGet, "/api/v1/properties/flat-7/calendar", nil))
	assert.EqualValues(t, 6, defaulted["month"])

	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodGet, "/api/v1/properties/flat-7/calendar?year=2024&month=13", nil).Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodGet, "/api/v1/properties/flat-7/calendar?month=june", nil).Code)

	ics := ts.do(t, http.MethodGet, "/api/v1/properties/flat-7/calendar.ics", nil)
	require.Equal(t, http.StatusOK, ics.Code)
	assert.Contains(t, ics.Header().Get("Content-Type"), "text/calendar")
	assert.Contains(t, ics.Body.String(), "DTSTART;VALUE=DATE:20240603")
	assert.Contains(t, ics.Body.String(), "DTEND;VALUE=DATE:20240607")
}

func TestListOccupanciesFilters(t *testing.T) {
	ts := newTestServer(t)
	ts.create(t, map[string]any{"tenant_name": "Ada", "start": "2024-06-01", "end": "2024-06-03"})
	ts.create(t, map[string]any{"tenant_name": "Bo", "start": "2024-07-01", "end": "2024-07-03", "status": "CONFIRMED"})

	all := decode(t, ts.do(t, http.MethodGet, "/api/v1/properties/flat-7/occupancies", nil))
	assert.Len(t, all["items"], 2)

	june := decode(t, ts.do(t, http.MethodGet, "/api/v1/properties/flat-7/occupancies?from=2024-06-01&to=2024-06-30", nil))
	assert.Len(t, june["items"], 1)

	confirmed := decode(t, ts.do(t, http.MethodGet, "/api/v1/properties/flat-7/occupancies?status=1", nil))
	require.Len(t, confirmed["items"], 1)
	assert.Equal(t, "Bo", confirmed["items"].([]any)[0].(map[string]any)["tenant_name"])

	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodGet, "/api/v1/properties/flat-7/occupancies?status=archived", nil).Code)
}

func TestOccupancyLifecycleEndpoints(t *testing.T) {
	ts := newTestServer(t)
	id := ts.create(t, map[string]any{"tenant_name": "Ada", "start": "2024-06-01", "end": "2024-06-10"})
	base := "/api/v1/occupancies/" + id

	rec := ts.do(t, http.MethodPost, base+"/check-in", nil)
	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodPost, base+"/confirm", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "CONFIRMED", decode(t, rec)["status"])

	rec = ts.do(t, http.MethodPut, base+"/dates", map[string]any{"start": "2024-06-02", "end": "2024-06-12"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "2024-06-12", decode(t, rec)["occupancy"].(map[string]any)["end"])

	rec = ts.do(t, http.MethodPost, base+"/cancel", map[string]any{"reason": "tenant withdrew"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "CANCELLED", decode(t, rec)["status"])

	rec = ts.do(t, http.MethodPost, base+"/complete", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/v1/occupancies/missing/confirm", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
