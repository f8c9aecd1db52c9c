package query

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/Danyokkk/cybus/gtfs"
	"github.com/Danyokkk/cybus/gtfsrt"
	"github.com/Danyokkk/cybus/utils"
)

// TimetableEntry is one arrival at a stop, scheduled or predicted
type TimetableEntry struct {
	TripID         string `json:"trip_id"`
	RouteShortName string `json:"route_short_name"`
	TripHeadsign   string `json:"trip_headsign"`
	RouteID        string `json:"route_id"`
	ArrivalTime    string `json:"arrival_time"`
	IsRealtime     bool   `json:"is_realtime"`
	Delay          int32  `json:"delay"`
}

// StopTimetable lists arrivals at stopID on date (YYYYMMDD, empty for
// today). Each region's trips are filtered by that region's calendar: when
// date has no service there, the next date with service is used, then the
// earliest one; a region with no usable calendar is not filtered.
// Realtime predictions replace the scheduled time.
func (s *Service) StopTimetable(stopID, date string) ([]TimetableEntry, error) {
	if date == "" {
		date = utils.ServiceDate(s.now(), s.loc)
	} else if _, err := utils.ParseServiceDate(date, s.loc); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	idx := s.store.Schedule()
	if idx == nil || !idx.HasStop(stopID) {
		return nil, ErrNotFound
	}
	snap := s.store.Realtime()

	key := ""
	if s.cache != nil {
		key = s.cache.Key(stopID, date, snapshotID(snap), strconv.FormatUint(idx.Generation(), 10))
		if entries, ok := s.cache.Get(key); ok {
			return entries, nil
		}
	}

	entries := s.buildTimetable(idx, snap, stopID, date)
	if s.cache != nil {
		s.cache.Set(key, entries)
	}
	return entries, nil
}

// serviceFilter is one region's resolved active set; nil means unfiltered
type serviceFilter map[string]struct{}

func (s *Service) buildTimetable(idx *gtfs.GTFSIndex, snap *gtfsrt.Snapshot, stopID, date string) []TimetableEntry {
	// each region falls back on its own calendar
	filters := map[string]serviceFilter{}
	filterFor := func(region string) serviceFilter {
		f, ok := filters[region]
		if !ok {
			if _, active, resolved := idx.RegionCalendar(region).ResolveServiceDate(date, s.lookahead); resolved {
				f = active
			}
			filters[region] = f
		}
		return f
	}

	rows := idx.TimetableForStop(stopID)
	out := make([]TimetableEntry, 0, len(rows))
	for _, row := range rows {
		if active := filterFor(row.Trip.Region); active != nil {
			if _, ok := active[row.Trip.ServiceID]; !ok {
				continue
			}
		}
		e := TimetableEntry{
			TripID:         row.Trip.TripID,
			RouteShortName: gtfsrt.UnknownLabel,
			TripHeadsign:   row.Trip.Headsign,
			RouteID:        row.Trip.RouteID,
			ArrivalTime:    row.ArrivalTime,
		}
		if r, ok := idx.GetRoute(row.Trip.RouteID); ok && r.ShortName != "" {
			e.RouteShortName = r.ShortName
		}
		if e.TripHeadsign == "" {
			e.TripHeadsign = gtfsrt.UnknownLabel
		}
		if p, ok := snap.Prediction(row.Trip.TripID, stopID); ok {
			s.applyPrediction(&e, p)
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ArrivalTime < out[j].ArrivalTime })
	return out
}

func (s *Service) applyPrediction(e *TimetableEntry, p gtfsrt.Prediction) {
	switch {
	case p.ArrivalTime > 0:
		e.ArrivalTime = utils.ClockFromUnix(p.ArrivalTime, s.loc)
	case p.HasDelay:
		sched, err := utils.ParseClock(e.ArrivalTime)
		if err != nil {
			return
		}
		e.ArrivalTime = utils.FormatClock(sched + int(p.Delay))
	default:
		return
	}
	e.IsRealtime = true
	e.Delay = p.Delay
}

func snapshotID(snap *gtfsrt.Snapshot) string {
	if snap == nil {
		return "-"
	}
	return snap.ID
}
