package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Danyokkk/cybus/config"
	"github.com/Danyokkk/cybus/gtfsrt"
	"github.com/Danyokkk/cybus/internal/testfeed"
	"github.com/Danyokkk/cybus/metrics"
	"github.com/Danyokkk/cybus/query"
	"github.com/Danyokkk/cybus/store"
	"github.com/Danyokkk/cybus/tracking"
)

type fixture struct {
	handler http.Handler
	store   *store.Store
	loc     *time.Location
}

// newFixture wires the EMEL schedule, one realtime poll and the router the
// way main does.
func newFixture(t *testing.T, vehicles []testfeed.Vehicle, updates []testfeed.TripUpdate) *fixture {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Nicosia")
	require.NoError(t, err)

	st := store.New()
	st.SetSchedule(testfeed.Schedule(t, loc, "20260310", testfeed.EMEL(t)))

	m := metrics.NewCollector()
	feed := testfeed.NewServer(t, testfeed.Build(t, 1773122700, vehicles, updates))
	rec := tracking.NewReconciler(st, gtfsrt.NewClient(2*time.Second, "cybus-test"), config.RealtimeConfig{
		Feeds:        []config.Feed{{Name: "EMEL", Prefix: "emel_", URL: feed.URL}},
		PollInterval: 40 * time.Second,
	}, zerolog.Nop(), tracking.WithObserver(m))
	require.True(t, rec.PollOnce(context.Background()).Installed)

	now := time.Date(2026, 3, 10, 10, 0, 0, 0, loc)
	svc := query.NewService(st, loc,
		query.WithClock(func() time.Time { return now }),
		query.WithCache(query.NewTimetableCache(64, time.Minute)))
	srv := New(config.ServerConfig{Port: 3001}, svc, m.Handler(), zerolog.Nop())
	return &fixture{handler: srv.Handler(), store: st, loc: loc}
}

func (f *fixture) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestEMELScenario(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Nicosia")
	require.NoError(t, err)
	predicted := time.Date(2026, 3, 10, 8, 5, 0, 0, loc).Unix()
	f := newFixture(t,
		[]testfeed.Vehicle{{ID: "BUS7", TripID: "T1", Lat: 34.0, Lon: 33.0, Bearing: 45}},
		[]testfeed.TripUpdate{{TripID: "T1", Stops: []testfeed.StopUpdate{{StopID: "S1", Arrival: predicted}}}},
	)

	rec := f.get(t, "/api/stops/emel_S1/timetable?date=20260310")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	entries := decode[[]map[string]any](t, rec)
	require.Len(t, entries, 2)
	assert.Equal(t, "emel_T2", entries[0]["trip_id"])
	assert.Equal(t, false, entries[0]["is_realtime"])
	assert.Equal(t, map[string]any{
		"trip_id":          "emel_T1",
		"route_short_name": "30",
		"trip_headsign":    "Germasogeia",
		"route_id":         "emel_R1",
		"arrival_time":     "08:05:00",
		"is_realtime":      true,
		"delay":            float64(0),
	}, entries[1])

	rec = f.get(t, "/api/vehicle_positions")
	require.Equal(t, http.StatusOK, rec.Code)
	vehicles := decode[[]gtfsrt.VehiclePosition](t, rec)
	require.Len(t, vehicles, 1)
	assert.Equal(t, "emel_T1", vehicles[0].TripID)
	assert.Equal(t, "30", vehicles[0].RouteShortName)
	assert.Equal(t, "FF0000", vehicles[0].Color)
	assert.Equal(t, gtfsrt.MatchTripExact, vehicles[0].Match)
}

func TestRouteEndpoints(t *testing.T) {
	f := newFixture(t, nil, nil)

	rec := f.get(t, "/api/routes")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]map[string]any](t, rec), 1)

	rec = f.get(t, "/api/routes/emel_R1")
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decode[map[string]any](t, rec)
	assert.Equal(t, "emel_R1", detail["route_id"])
	assert.Len(t, detail["stops"], 2)
	assert.Len(t, detail["shapes"], 1)

	rec = f.get(t, "/api/routes/emel_R404")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Route not found"}`, rec.Body.String())

	rec = f.get(t, "/api/routes/search?q=limassol")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]map[string]any](t, rec), 1)

	rec = f.get(t, "/api/routes/search")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestTimetableErrors(t *testing.T) {
	f := newFixture(t, nil, nil)

	tests := []struct {
		path string
		code int
	}{
		{"/api/stops/emel_NOPE/timetable", http.StatusNotFound},
		{"/api/stops/emel_S1/timetable?date=2026-03-10", http.StatusBadRequest},
		{"/api/stops/emel_S1/timetable", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := f.get(t, tt.path)
			assert.Equal(t, tt.code, rec.Code)
			if tt.code != http.StatusOK {
				assert.NotEmpty(t, decode[map[string]string](t, rec)["error"])
			}
		})
	}
}

func TestStopEndpoints(t *testing.T) {
	f := newFixture(t, nil, nil)

	rec := f.get(t, "/api/stops")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]map[string]any](t, rec), 2)

	rec = f.get(t, "/api/stops/nearby?lat=34.0&lon=33.0&radius_m=100")
	require.Equal(t, http.StatusOK, rec.Code)
	near := decode[[]map[string]any](t, rec)
	require.Len(t, near, 1)
	assert.Equal(t, "emel_S1", near[0]["stop_id"])

	assert.Equal(t, http.StatusBadRequest, f.get(t, "/api/stops/nearby?lat=abc&lon=33").Code)
	assert.Equal(t, http.StatusBadRequest, f.get(t, "/api/stops/nearby?lat=34&lon=33&radius_m=-1").Code)
}

func TestPlanEndpoint(t *testing.T) {
	f := newFixture(t, nil, nil)

	rec := f.get(t, "/api/plan?from=emel_S1&to=emel_S2")
	require.Equal(t, http.StatusOK, rec.Code)
	opts := decode[[]query.PlanOption](t, rec)
	require.Len(t, opts, 2)
	assert.Equal(t, "07:30:00", opts[0].DepartureTime)

	assert.Equal(t, http.StatusBadRequest, f.get(t, "/api/plan?from=emel_S1").Code)
	assert.Equal(t, http.StatusNotFound, f.get(t, "/api/plan?from=emel_S1&to=emel_X").Code)
}

func TestVehiclePositionsEmptyArray(t *testing.T) {
	f := newFixture(t, nil, nil)
	rec := f.get(t, "/api/vehicle_positions")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestHealthAndMetrics(t *testing.T) {
	f := newFixture(t, []testfeed.Vehicle{{ID: "BUS1", TripID: "T1", Lat: 34, Lon: 33}}, nil)

	rec := f.get(t, "/api/health")
	require.Equal(t, http.StatusOK, rec.Code)
	h := decode[query.Health](t, rec)
	assert.Equal(t, "ok", h.Status)
	assert.Equal(t, int64(1773122700), h.LatestGTFSRealtimeEpoch)
	assert.Equal(t, 1, h.Vehicles)
	assert.Equal(t, f.store.Realtime().ID, h.SnapshotID)

	rec = f.get(t, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "cybus_")
}

func TestCORSAndNotFound(t *testing.T) {
	f := newFixture(t, nil, nil)

	rec := f.get(t, "/api/stops")
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = f.get(t, "/api/nothing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Not found"}`, rec.Body.String())
}
