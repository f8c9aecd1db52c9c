package tracking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Danyokkk/cybus/gtfsrt"
	"github.com/Danyokkk/cybus/internal/testfeed"
)

const (
	tripsHeader  = "route_id,service_id,trip_id,trip_headsign\n"
	routesHeader = "route_id,route_short_name,route_long_name,route_color,route_text_color\n"
	stopsHeader  = "stop_id,stop_name,stop_lat,stop_lon\n"
)

func resolverFixture(t *testing.T) *Resolver {
	t.Helper()
	a := testfeed.Region(t, "A", map[string]string{
		"routes.txt": routesHeader + "R1,1,Alpha,112233,FFFFFF\nLINE-7,7,Seven,,\n",
		"trips.txt":  tripsHeader + "R1,S,T1,Alpha town\nR1,S,XT1,Alpha x\n",
		"stops.txt":  stopsHeader + "STOP1,One,34,33\n",
	})
	x := testfeed.Region(t, "RegionX", map[string]string{
		"routes.txt": routesHeader + "R9,9,Nine,,\n",
		"trips.txt":  tripsHeader + "R9,S,T123,Nine town\nR404,S,T500,Dangling\n",
	})
	return NewResolver(testfeed.Schedule(t, time.UTC, "20260310", a, x))
}

func TestResolver_ResolveTrip(t *testing.T) {
	r := resolverFixture(t)

	tests := []struct {
		name     string
		prefix   string
		raw      string
		wantID   string
		wantTier Tier
	}{
		{"exact prefixed match", "a_", "T1", "a_T1", TierExact},
		{"suffix across regions", "other_", "T123", "regionx_T123", TierSuffix},
		{"suffix tie-break is load order", "b_", "T1", "a_T1", TierSuffix},
		{"exact match on longer id", "a_", "XT1", "a_XT1", TierExact},
		{"already namespaced id", "zzz_", "regionx_T123", "regionx_T123", TierSuffix},
		{"unknown", "a_", "NOPE", "", TierNone},
		{"empty raw id", "a_", "", "", TierNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, tier := r.ResolveTrip(tt.prefix, tt.raw)
			assert.Equal(t, tt.wantID, id)
			assert.Equal(t, tt.wantTier, tier)
		})
	}
}

func TestResolver_SuffixMemoIsStable(t *testing.T) {
	r := resolverFixture(t)
	for i := 0; i < 3; i++ {
		id, tier := r.ResolveTrip("other_", "T123")
		assert.Equal(t, "regionx_T123", id)
		assert.Equal(t, TierSuffix, tier)
		_, tier = r.ResolveTrip("other_", "MISSING")
		assert.Equal(t, TierNone, tier)
	}
}

func TestResolver_ResolveVehicle(t *testing.T) {
	r := resolverFixture(t)

	tests := []struct {
		name      string
		prefix    string
		trip      string
		route     string
		wantTrip  string
		wantRoute string
		wantMatch gtfsrt.Match
		hasRoute  bool
	}{
		{"trip exact", "a_", "T1", "", "a_T1", "a_R1", gtfsrt.MatchTripExact, true},
		{"trip suffix", "feed_", "T123", "ignored", "regionx_T123", "regionx_R9", gtfsrt.MatchTripSuffix, true},
		{"trip with dangling route", "regionx_", "T500", "", "regionx_T500", "regionx_R404", gtfsrt.MatchTripExact, false},
		{"route exact", "a_", "GHOST", "R1", "GHOST", "a_R1", gtfsrt.MatchRouteExact, true},
		{"route suffix", "feed_", "GHOST", "7", "GHOST", "a_LINE-7", gtfsrt.MatchRouteSuffix, true},
		{"nothing resolves", "a_", "GHOST", "NOROUTE", "GHOST", "NOROUTE", gtfsrt.MatchNone, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ident := r.ResolveVehicle(tt.prefix, tt.trip, tt.route)
			assert.Equal(t, tt.wantTrip, ident.TripID)
			assert.Equal(t, tt.wantRoute, ident.RouteID)
			assert.Equal(t, tt.wantMatch, ident.Match)
			assert.Equal(t, tt.hasRoute, ident.Route != nil)
		})
	}
}

func TestResolver_ResolveStop(t *testing.T) {
	r := resolverFixture(t)
	assert.Equal(t, "a_STOP1", r.ResolveStop("a_", "STOP1"))
	assert.Equal(t, "a_STOP1", r.ResolveStop("b_", "OP1"))
	assert.Equal(t, "RAW9", r.ResolveStop("a_", "RAW9"))
}

func TestResolver_NilIndex(t *testing.T) {
	r := NewResolver(nil)
	ident := r.ResolveVehicle("a_", "T1", "R1")
	assert.Equal(t, gtfsrt.MatchNone, ident.Match)
	assert.Equal(t, "T1", ident.TripID)
	assert.Equal(t, "S1", r.ResolveStop("a_", "S1"))
}

func TestVehiclePosition_DisplayFallbacks(t *testing.T) {
	r := resolverFixture(t)
	raw := gtfsrt.RawVehicle{VehicleID: "V1", TripID: "GHOST", RouteID: "NOROUTE", Lat: 34, Lon: 33}

	vp := vehiclePosition("A", raw, r.ResolveVehicle("a_", raw.TripID, raw.RouteID))
	assert.Equal(t, "?", vp.RouteShortName)
	assert.Equal(t, "?", vp.TripHeadsign)
	assert.Equal(t, "000000", vp.Color)
	assert.Equal(t, "FFFFFF", vp.TextColor)

	raw.TripID = "T1"
	vp = vehiclePosition("A", raw, r.ResolveVehicle("a_", raw.TripID, ""))
	assert.Equal(t, "1", vp.RouteShortName)
	assert.Equal(t, "Alpha town", vp.TripHeadsign)
	assert.Equal(t, "112233", vp.Color)

	raw.TripID, raw.RouteID = "", "7"
	vp = vehiclePosition("A", raw, r.ResolveVehicle("a_", raw.TripID, raw.RouteID))
	require.Equal(t, gtfsrt.MatchRouteSuffix, vp.Match)
	assert.Equal(t, "a_LINE-7", vp.RouteID)
	assert.Equal(t, "7", vp.RouteShortName)
	assert.Equal(t, "000000", vp.Color)
}
