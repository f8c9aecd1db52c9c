package gtfsrt

import "time"

// RawVehicle is a vehicle position as reported by the feed, ids un-namespaced
type RawVehicle struct {
	EntityID  string
	VehicleID string
	TripID    string
	RouteID   string
	Lat       float64
	Lon       float64
	Bearing   float64
	Speed     float64
	Timestamp int64
}

// RawStopUpdate is one stop_time_update. Time is 0 when the feed gave no event time.
type RawStopUpdate struct {
	StopID   string
	Time     int64
	Delay    int32
	HasDelay bool
}

// RawTripUpdate is a trip_update entity
type RawTripUpdate struct {
	TripID      string
	RouteID     string
	Delay       int32
	HasDelay    bool
	StopUpdates []RawStopUpdate
}

// Feed is a decoded FeedMessage
type Feed struct {
	Timestamp   int64
	Vehicles    []RawVehicle
	TripUpdates []RawTripUpdate
}

// Match records which tier of identity resolution produced a vehicle's ids
type Match string

const (
	MatchTripExact   Match = "trip_exact"
	MatchTripSuffix  Match = "trip_suffix"
	MatchRouteExact  Match = "route_exact"
	MatchRouteSuffix Match = "route_suffix"
	MatchNone        Match = "none"
)

// Display fallbacks for vehicles whose route or trip did not resolve
const (
	UnknownLabel     = "?"
	DefaultColor     = "000000"
	DefaultTextColor = "FFFFFF"
)

// VehiclePosition is a normalized vehicle ready for the map
type VehiclePosition struct {
	VehicleID      string  `json:"vehicle_id"`
	TripID         string  `json:"trip_id"`
	RouteID        string  `json:"route_id"`
	Lat            float64 `json:"lat"`
	Lon            float64 `json:"lon"`
	Bearing        float64 `json:"bearing"`
	Speed          float64 `json:"speed"`
	Timestamp      int64   `json:"timestamp"`
	RouteShortName string  `json:"route_short_name"`
	TripHeadsign   string  `json:"trip_headsign"`
	Color          string  `json:"color"`
	TextColor      string  `json:"text_color"`
	Feed           string  `json:"feed"`
	Match          Match   `json:"match"`
}

// Prediction is the live estimate for one (trip, stop) pair
type Prediction struct {
	ArrivalTime int64 `json:"arrival_time"` // epoch seconds, 0 when only a delay is known
	Delay       int32 `json:"delay"`
	HasDelay    bool  `json:"-"`
}

// FeedStatus reports how one feed fared in a poll cycle
type FeedStatus struct {
	Name        string    `json:"name"`
	Prefix      string    `json:"prefix"`
	OK          bool      `json:"ok"`
	RateLimited bool      `json:"rate_limited,omitempty"`
	Error       string    `json:"error,omitempty"`
	Vehicles    int       `json:"vehicles"`
	TripUpdates int       `json:"trip_updates"`
	Unresolved  int       `json:"unresolved"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// Snapshot is one complete poll cycle. It is immutable once installed.
type Snapshot struct {
	ID            string                           `json:"id"`
	PolledAt      time.Time                        `json:"polled_at"`
	FeedTimestamp int64                            `json:"feed_timestamp"`
	Vehicles      []VehiclePosition                `json:"vehicles"`
	Updates       map[string]map[string]Prediction `json:"-"` // trip_id -> stop_id
	Feeds         []FeedStatus                     `json:"feeds"`
}

// Prediction looks up the live estimate for a trip at a stop
func (s *Snapshot) Prediction(tripID, stopID string) (Prediction, bool) {
	if s == nil {
		return Prediction{}, false
	}
	p, ok := s.Updates[tripID][stopID]
	return p, ok
}

// UpdateCount returns the number of (trip, stop) predictions
func (s *Snapshot) UpdateCount() int {
	if s == nil {
		return 0
	}
	n := 0
	for _, stops := range s.Updates {
		n += len(stops)
	}
	return n
}
