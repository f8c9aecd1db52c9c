package tracking

import (
	"strings"

	"github.com/Danyokkk/cybus/gtfs"
	"github.com/Danyokkk/cybus/gtfsrt"
)

// Tier is the resolution step that matched
type Tier int

const (
	TierNone Tier = iota
	TierExact
	TierSuffix
)

// Identity is a vehicle's resolved trip and route
type Identity struct {
	TripID  string
	RouteID string
	Trip    *gtfs.Trip  // nil unless the trip resolved
	Route   *gtfs.Route // nil when the route is unknown
	Match   gtfsrt.Match
}

// Resolver resolves raw feed ids against one schedule index. It memoises
// suffix scans, so build one per poll cycle. A nil index resolves nothing.
type Resolver struct {
	idx      *gtfs.GTFSIndex
	routeIDs []string
	stopIDs  []string
	memo     map[string]string
}

func NewResolver(idx *gtfs.GTFSIndex) *Resolver {
	return &Resolver{idx: idx, memo: map[string]string{}}
}

// resolve is the two-tier lookup: exact prefixed id, then the first id in
// ordered that ends with raw.
func (r *Resolver) resolve(kind, prefix, raw string, exists func(string) bool, ordered func() []string) (string, Tier) {
	if raw == "" || r.idx == nil {
		return "", TierNone
	}
	if id := prefix + raw; exists(id) {
		return id, TierExact
	}
	key := kind + "\x00" + raw
	if id, ok := r.memo[key]; ok {
		if id == "" {
			return "", TierNone
		}
		return id, TierSuffix
	}
	found := ""
	for _, id := range ordered() {
		if strings.HasSuffix(id, raw) {
			found = id
			break
		}
	}
	r.memo[key] = found
	if found == "" {
		return "", TierNone
	}
	return found, TierSuffix
}

// ResolveTrip returns the namespaced trip id for raw
func (r *Resolver) ResolveTrip(prefix, raw string) (string, Tier) {
	return r.resolve("trip", prefix, raw,
		func(id string) bool { _, ok := r.idx.GetTrip(id); return ok },
		r.idx.TripIDs)
}

// ResolveRoute returns the namespaced route id for raw
func (r *Resolver) ResolveRoute(prefix, raw string) (string, Tier) {
	return r.resolve("route", prefix, raw,
		func(id string) bool { _, ok := r.idx.GetRoute(id); return ok },
		func() []string {
			if r.routeIDs == nil {
				r.routeIDs = r.idx.RouteIDs()
			}
			return r.routeIDs
		})
}

// ResolveStop returns the namespaced stop id for raw, or raw itself
func (r *Resolver) ResolveStop(prefix, raw string) string {
	id, tier := r.resolve("stop", prefix, raw,
		func(id string) bool { return r.idx.HasStop(id) },
		func() []string {
			if r.stopIDs == nil {
				r.stopIDs = r.idx.StopIDs()
			}
			return r.stopIDs
		})
	if tier == TierNone {
		return raw
	}
	return id
}

// ResolveVehicle applies trip resolution, then route resolution, then
// falls back to the raw ids.
func (r *Resolver) ResolveVehicle(prefix, rawTrip, rawRoute string) Identity {
	if id, tier := r.ResolveTrip(prefix, rawTrip); tier != TierNone {
		trip, _ := r.idx.GetTrip(id)
		ident := Identity{TripID: id, RouteID: trip.RouteID, Trip: trip, Match: gtfsrt.MatchTripExact}
		if tier == TierSuffix {
			ident.Match = gtfsrt.MatchTripSuffix
		}
		ident.Route, _ = r.idx.GetRoute(trip.RouteID)
		return ident
	}
	if id, tier := r.ResolveRoute(prefix, rawRoute); tier != TierNone {
		ident := Identity{TripID: rawTrip, RouteID: id, Match: gtfsrt.MatchRouteExact}
		if tier == TierSuffix {
			ident.Match = gtfsrt.MatchRouteSuffix
		}
		ident.Route, _ = r.idx.GetRoute(id)
		return ident
	}
	return Identity{TripID: rawTrip, RouteID: rawRoute, Match: gtfsrt.MatchNone}
}
