package gtfs

import (
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Danyokkk/cybus/utils"
)

// GTFSIndex stores the merged, namespaced static schedule of every region.
// It is built once by the Loader and never mutated afterwards; values
// returned by accessors are shared and must be treated as read-only.
type GTFSIndex struct {
	stops      map[string]*Stop
	stopList   []Stop
	routes     map[string]*Route
	routeList  []Route
	trips      map[string]*Trip
	tripOrder  []string              // load order, used by suffix resolution
	stopTimes  map[string][]StopTime // stop_id -> scheduled arrivals
	tripStops  map[string][]string   // trip_id -> stop_ids by stop_sequence
	routeStops map[string][]string   // route_id -> stop_ids, first appearance
	routeShape map[string][]string   // route_id -> shape_ids, first appearance
	shapes     map[string][]Point    // shape_id -> points sorted by sequence
	regionCals map[string]*ServiceCalendar // region prefix -> that region's calendar
	regions    []RegionSummary
	loadedAt   time.Time
	nStopTimes int
	generation uint64
}

var generations atomic.Uint64

func newGTFSIndex() *GTFSIndex {
	return &GTFSIndex{
		stops:      map[string]*Stop{},
		routes:     map[string]*Route{},
		trips:      map[string]*Trip{},
		stopTimes:  map[string][]StopTime{},
		tripStops:  map[string][]string{},
		routeStops: map[string][]string{},
		routeShape: map[string][]string{},
		shapes:     map[string][]Point{},
		regionCals: map[string]*ServiceCalendar{},
		generation: generations.Add(1),
	}
}

// Counts summarises index size
type Counts struct {
	Stops     int `json:"stops"`
	Routes    int `json:"routes"`
	Trips     int `json:"trips"`
	StopTimes int `json:"stop_times"`
	Shapes    int `json:"shapes"`
}

func (g *GTFSIndex) Counts() Counts {
	return Counts{
		Stops:     len(g.stops),
		Routes:    len(g.routes),
		Trips:     len(g.trips),
		StopTimes: g.nStopTimes,
		Shapes:    len(g.shapes),
	}
}

func (g *GTFSIndex) LoadedAt() time.Time      { return g.loadedAt }
func (g *GTFSIndex) Regions() []RegionSummary { return g.regions }

// Generation is unique per built index within the process
func (g *GTFSIndex) Generation() uint64 { return g.generation }

// RegionCalendar returns the calendar of the region with the given prefix,
// or nil when the region is unknown.
func (g *GTFSIndex) RegionCalendar(prefix string) *ServiceCalendar { return g.regionCals[prefix] }

// Stops returns all stops in load order
func (g *GTFSIndex) Stops() []Stop { return g.stopList }

// Routes returns all routes in load order
func (g *GTFSIndex) Routes() []Route { return g.routeList }

func (g *GTFSIndex) GetStop(stopID string) (*Stop, bool) {
	s, ok := g.stops[stopID]
	return s, ok
}

func (g *GTFSIndex) GetRoute(routeID string) (*Route, bool) {
	r, ok := g.routes[routeID]
	return r, ok
}

func (g *GTFSIndex) GetTrip(tripID string) (*Trip, bool) {
	t, ok := g.trips[tripID]
	return t, ok
}

// HasStop reports whether the stop was loaded or has scheduled arrivals
func (g *GTFSIndex) HasStop(stopID string) bool {
	if _, ok := g.stops[stopID]; ok {
		return true
	}
	_, ok := g.stopTimes[stopID]
	return ok
}

// TripIDs returns trip ids in load order: regions in configured order,
// rows in file order.
func (g *GTFSIndex) TripIDs() []string { return g.tripOrder }

// StopIDs returns stop ids in load order
func (g *GTFSIndex) StopIDs() []string {
	ids := make([]string, len(g.stopList))
	for i, s := range g.stopList {
		ids[i] = s.StopID
	}
	return ids
}

// RouteIDs returns route ids in load order
func (g *GTFSIndex) RouteIDs() []string {
	ids := make([]string, len(g.routeList))
	for i, r := range g.routeList {
		ids[i] = r.RouteID
	}
	return ids
}

// StopsForRoute returns the loaded stops a route serves, in first-appearance order
func (g *GTFSIndex) StopsForRoute(routeID string) []Stop {
	ids := g.routeStops[routeID]
	out := make([]Stop, 0, len(ids))
	for _, id := range ids {
		if s, ok := g.stops[id]; ok {
			out = append(out, *s)
		}
	}
	return out
}

// ShapesForRoute returns the polylines of every shape used by the route's trips
func (g *GTFSIndex) ShapesForRoute(routeID string) [][]Point {
	ids := g.routeShape[routeID]
	out := make([][]Point, 0, len(ids))
	for _, id := range ids {
		if pts, ok := g.shapes[id]; ok && len(pts) > 0 {
			out = append(out, pts)
		}
	}
	return out
}

// Shape returns one shape's points
func (g *GTFSIndex) Shape(shapeID string) []Point { return g.shapes[shapeID] }

// TimetableForStop returns the stop's scheduled arrivals joined with their
// trips. Arrivals whose trip is unknown are dropped.
func (g *GTFSIndex) TimetableForStop(stopID string) []TimetableRow {
	sts := g.stopTimes[stopID]
	out := make([]TimetableRow, 0, len(sts))
	for _, st := range sts {
		trip, ok := g.trips[st.TripID]
		if !ok {
			continue
		}
		out = append(out, TimetableRow{Trip: trip, ArrivalTime: st.ArrivalTime, StopSequence: st.StopSequence})
	}
	return out
}

// TripStops returns a trip's stop ids ordered by stop_sequence
func (g *GTFSIndex) TripStops(tripID string) []string { return g.tripStops[tripID] }

// SearchRoutes matches q case-insensitively against short and long names
func (g *GTFSIndex) SearchRoutes(q string) []Route {
	q = strings.ToLower(strings.TrimSpace(q))
	out := []Route{}
	if q == "" {
		return out
	}
	for _, r := range g.routeList {
		if strings.Contains(strings.ToLower(r.ShortName), q) || strings.Contains(strings.ToLower(r.LongName), q) {
			out = append(out, r)
		}
	}
	return out
}

// NearbyStops returns stops within radiusM meters of (lat, lon), nearest first
func (g *GTFSIndex) NearbyStops(lat, lon, radiusM float64, limit int) []StopDistance {
	out := []StopDistance{}
	for _, s := range g.stopList {
		d := utils.HaversineMeters(lat, lon, s.Lat, s.Lon)
		if d <= radiusM {
			out = append(out, StopDistance{Stop: s, DistanceM: d})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DistanceM < out[j].DistanceM })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
