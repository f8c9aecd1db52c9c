package query

import (
	"sort"

	"github.com/Danyokkk/cybus/gtfsrt"
)

// PlanOption is one direct trip from one stop to another
type PlanOption struct {
	TripID         string `json:"trip_id"`
	RouteID        string `json:"route_id"`
	RouteShortName string `json:"route_short_name"`
	TripHeadsign   string `json:"trip_headsign"`
	DepartureTime  string `json:"departure_time"`
	ArrivalTime    string `json:"arrival_time"`
	Stops          int    `json:"stops"`
}

// PlanTrip finds trips that call at from and later at to, earliest
// departure first. Transfers are not considered.
func (s *Service) PlanTrip(from, to string) ([]PlanOption, error) {
	if from == "" || to == "" || from == to {
		return nil, ErrBadRequest
	}
	idx := s.store.Schedule()
	if idx == nil || !idx.HasStop(from) || !idx.HasStop(to) {
		return nil, ErrNotFound
	}

	arrivals := map[string]string{}
	for _, row := range idx.TimetableForStop(to) {
		arrivals[row.Trip.TripID] = row.ArrivalTime
	}

	out := []PlanOption{}
	for _, row := range idx.TimetableForStop(from) {
		arr, ok := arrivals[row.Trip.TripID]
		if !ok {
			continue
		}
		hops := hopsBetween(idx.TripStops(row.Trip.TripID), from, to)
		if hops <= 0 {
			continue
		}
		opt := PlanOption{
			TripID:         row.Trip.TripID,
			RouteID:        row.Trip.RouteID,
			RouteShortName: gtfsrt.UnknownLabel,
			TripHeadsign:   row.Trip.Headsign,
			DepartureTime:  row.ArrivalTime,
			ArrivalTime:    arr,
			Stops:          hops,
		}
		if r, ok := idx.GetRoute(row.Trip.RouteID); ok && r.ShortName != "" {
			opt.RouteShortName = r.ShortName
		}
		out = append(out, opt)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DepartureTime < out[j].DepartureTime })
	if len(out) > planLimit {
		out = out[:planLimit]
	}
	return out, nil
}

// hopsBetween counts stops from the first visit of from to the next visit
// of to. It returns 0 when to is not reached afterwards.
func hopsBetween(stops []string, from, to string) int {
	start := -1
	for i, id := range stops {
		switch {
		case start < 0 && id == from:
			start = i
		case start >= 0 && id == to:
			return i - start
		}
	}
	return 0
}
