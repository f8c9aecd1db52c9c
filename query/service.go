// Package query answers read-only questions about the current schedule index
// and realtime snapshot. It never mutates either; every call reads the
// store once and works on that consistent pair.
package query

import (
	"errors"
	"time"

	"github.com/Danyokkk/cybus/config"
	"github.com/Danyokkk/cybus/gtfs"
	"github.com/Danyokkk/cybus/gtfsrt"
	"github.com/Danyokkk/cybus/store"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrInvalidDate = errors.New("invalid date, expected YYYYMMDD")
	ErrBadRequest  = errors.New("bad request")
)

const (
	DefaultNearbyRadius = 500.0
	MaxNearbyRadius     = 5000.0
	nearbyLimit         = 50
	planLimit           = 20
)

// RouteDetail is a route with the stops it serves and its shape polylines
type RouteDetail struct {
	gtfs.Route
	Stops  []gtfs.Stop    `json:"stops"`
	Shapes [][]gtfs.Point `json:"shapes"`
}

// Service is the query layer over a store
type Service struct {
	store     *store.Store
	loc       *time.Location
	now       func() time.Time
	lookahead int
	cache     *TimetableCache
}

type Option func(*Service)

// WithClock overrides the wall clock used for "today"
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// WithCache memoises timetables
func WithCache(c *TimetableCache) Option { return func(s *Service) { s.cache = c } }

// WithLookahead bounds how far ahead a timetable date may roll forward
func WithLookahead(days int) Option { return func(s *Service) { s.lookahead = days } }

func NewService(st *store.Store, loc *time.Location, opts ...Option) *Service {
	if loc == nil {
		loc = time.UTC
	}
	s := &Service{store: st, loc: loc, now: time.Now, lookahead: config.DefaultLookahead}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Location returns the service timezone
func (s *Service) Location() *time.Location { return s.loc }

func (s *Service) ListStops() []gtfs.Stop {
	idx := s.store.Schedule()
	if idx == nil {
		return []gtfs.Stop{}
	}
	return idx.Stops()
}

func (s *Service) ListRoutes() []gtfs.Route {
	idx := s.store.Schedule()
	if idx == nil {
		return []gtfs.Route{}
	}
	return idx.Routes()
}

// RouteDetail returns the route with its stops and shapes or ErrNotFound
func (s *Service) RouteDetail(routeID string) (*RouteDetail, error) {
	idx := s.store.Schedule()
	if idx == nil {
		return nil, ErrNotFound
	}
	r, ok := idx.GetRoute(routeID)
	if !ok {
		return nil, ErrNotFound
	}
	return &RouteDetail{
		Route:  *r,
		Stops:  idx.StopsForRoute(routeID),
		Shapes: idx.ShapesForRoute(routeID),
	}, nil
}

// VehiclePositions returns the latest snapshot's vehicles, never nil
func (s *Service) VehiclePositions() []gtfsrt.VehiclePosition {
	snap := s.store.Realtime()
	if snap == nil || snap.Vehicles == nil {
		return []gtfsrt.VehiclePosition{}
	}
	return snap.Vehicles
}

// SearchRoutes matches q against route short and long names
func (s *Service) SearchRoutes(q string) []gtfs.Route {
	idx := s.store.Schedule()
	if idx == nil {
		return []gtfs.Route{}
	}
	return idx.SearchRoutes(q)
}

// NearbyStops returns up to 50 stops within radiusM of (lat, lon). A zero
// radius means the default; radii above the maximum are clamped.
func (s *Service) NearbyStops(lat, lon, radiusM float64) ([]gtfs.StopDistance, error) {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 || radiusM < 0 {
		return nil, ErrBadRequest
	}
	if radiusM == 0 {
		radiusM = DefaultNearbyRadius
	}
	if radiusM > MaxNearbyRadius {
		radiusM = MaxNearbyRadius
	}
	idx := s.store.Schedule()
	if idx == nil {
		return []gtfs.StopDistance{}, nil
	}
	return idx.NearbyStops(lat, lon, radiusM, nearbyLimit), nil
}
