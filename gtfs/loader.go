package gtfs

import (
	"context"
	"errors"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Danyokkk/cybus/config"
	"github.com/Danyokkk/cybus/utils"
)

// Loader builds a GTFSIndex from the configured regions. Each Load produces a
// fresh index; callers install it with a single swap.
type Loader struct {
	regions     []config.Region
	loc         *time.Location
	filterToday bool
	regionDelay time.Duration
	now         func() time.Time
	log         zerolog.Logger
}

// NewLoader creates a loader for the schedule configuration
func NewLoader(cfg config.ScheduleConfig, loc *time.Location, log zerolog.Logger) *Loader {
	if loc == nil {
		loc = time.Local
	}
	return &Loader{
		regions:     cfg.Regions,
		loc:         loc,
		filterToday: cfg.FilterTodayEnabled(),
		regionDelay: cfg.RegionDelay,
		now:         time.Now,
		log:         log.With().Str("component", "loader").Logger(),
	}
}

// WithClock overrides the clock used to compute today's service date
func (l *Loader) WithClock(now func() time.Time) *Loader {
	l.now = now
	return l
}

// Load reads every region sequentially and returns the merged index. A region
// that cannot be opened contributes nothing; only context cancellation fails
// the load.
func (l *Loader) Load(ctx context.Context) (*GTFSIndex, error) {
	start := time.Now()
	idx := newGTFSIndex()
	today := utils.ServiceDate(l.now(), l.loc)

	for i, region := range l.regions {
		if i > 0 && l.regionDelay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(l.regionDelay):
			}
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sum := l.loadRegion(idx, region, today)
		idx.regions = append(idx.regions, sum)

		ev := l.log.Info()
		if sum.Error != "" {
			ev = l.log.Warn().Str("error", sum.Error)
		}
		ev.Str("region", sum.Name).
			Str("prefix", sum.Prefix).
			Int("stops", sum.Stops).
			Int("routes", sum.Routes).
			Int("trips", sum.Trips).
			Int("stop_times", sum.StopTimes).
			Int("shapes", sum.Shapes).
			Int("skipped_rows", sum.SkippedRows).
			Bool("day_filtered", sum.DayFiltered).
			Msg("region loaded")
	}

	for _, st := range idx.stopTimes {
		idx.nStopTimes += len(st)
	}
	idx.loadedAt = l.now()
	l.log.Info().
		Int("regions", len(idx.regions)).
		Int("stops", len(idx.stops)).
		Int("trips", len(idx.trips)).
		Dur("took", time.Since(start)).
		Msg("schedule loaded")
	return idx, nil
}

// regionLoad holds per-region scratch state discarded after the region is merged
type regionLoad struct {
	idx      *GTFSIndex
	src      source
	prefix   string
	sum      *RegionSummary
	log      zerolog.Logger
	tripIDs  []string
	tripSeqs map[string][]seqStop
}

type seqStop struct {
	seq  int
	stop string
}

func (l *Loader) loadRegion(idx *GTFSIndex, region config.Region, today string) RegionSummary {
	sum := RegionSummary{Name: region.Name, Prefix: RegionPrefix(region.Name)}
	src, err := openSource(region.Path)
	if err != nil {
		sum.Error = err.Error()
		return sum
	}
	defer func() { _ = src.Close() }()

	rl := &regionLoad{
		idx:      idx,
		src:      src,
		prefix:   sum.Prefix,
		sum:      &sum,
		log:      l.log.With().Str("region", region.Name).Logger(),
		tripSeqs: map[string][]seqStop{},
	}

	agencies, firstAgency := rl.loadAgencies()
	rl.loadStops()
	rl.loadRoutes(agencies, firstAgency, region.Name)
	cal := rl.loadCalendar()

	var active map[string]struct{}
	if l.filterToday {
		active = cal.ActiveServices(today)
		sum.ActiveServices = len(active)
		if len(active) == 0 {
			// stale or missing calendar: keep every trip
			active = nil
			rl.log.Warn().Str("date", today).Msg("no active services today, loading all trips")
		} else {
			sum.DayFiltered = true
		}
	}

	excluded := rl.loadTrips(active)
	rl.loadStopTimes(excluded)
	rl.loadShapes()
	rl.linkRoutes()
	if prev, ok := idx.regionCals[sum.Prefix]; ok {
		prev.merge(cal)
	} else {
		idx.regionCals[sum.Prefix] = cal
	}
	sum.CalendarStart, sum.CalendarEnd = cal.Span()
	return sum
}

// each streams name through fn. It reports false when the file is absent.
func (rl *regionLoad) each(name string, fn func(t *table, rec []string)) bool {
	t, err := openTable(rl.src, name)
	if errors.Is(err, errMissingFile) {
		rl.log.Debug().Str("file", name).Msg("optional file missing")
		return false
	}
	if err != nil {
		rl.log.Warn().Err(err).Str("file", name).Msg("cannot read file")
		return false
	}
	defer func() {
		rl.sum.SkippedRows += t.skipped
		_ = t.Close()
	}()
	for {
		rec, err := t.next()
		if errors.Is(err, io.EOF) {
			return true
		}
		if err != nil {
			rl.log.Warn().Err(err).Str("file", name).Msg("read aborted")
			return true
		}
		fn(t, rec)
	}
}

func (rl *regionLoad) loadAgencies() (map[string]string, string) {
	agencies := map[string]string{}
	first := ""
	rl.each("agency.txt", func(t *table, rec []string) {
		name := t.get(rec, "agency_name")
		if name == "" {
			return
		}
		if first == "" {
			first = name
		}
		if id := t.get(rec, "agency_id"); id != "" {
			agencies[id] = name
		}
	})
	return agencies, first
}

func (rl *regionLoad) loadStops() {
	seen := map[string]struct{}{}
	fn := func(t *table, rec []string) {
		id := t.get(rec, "stop_id", "code")
		latS := t.get(rec, "stop_lat", "lat")
		lonS := t.get(rec, "stop_lon", "lon")
		if id == "" || latS == "" || lonS == "" {
			t.skip()
			return
		}
		if _, dup := seen[id]; dup {
			return
		}
		lat, err1 := strconv.ParseFloat(latS, 64)
		lon, err2 := strconv.ParseFloat(lonS, 64)
		if err1 != nil || err2 != nil {
			t.skip()
			return
		}
		seen[id] = struct{}{}
		full := rl.prefix + id
		if _, exists := rl.idx.stops[full]; exists {
			return
		}
		s := Stop{
			StopID: full,
			Name:   t.get(rec, "stop_name", "description[en]", "description"),
			Lat:    lat,
			Lon:    lon,
		}
		rl.idx.stopList = append(rl.idx.stopList, s)
		rl.idx.stops[full] = nil
		rl.sum.Stops++
	}
	if !rl.each("stops.txt", fn) {
		rl.each("stops.csv", fn)
	}
	rl.reindexStops()
}

// reindexStops points the id map at stopList once appends are done
func (rl *regionLoad) reindexStops() {
	for i := range rl.idx.stopList {
		rl.idx.stops[rl.idx.stopList[i].StopID] = &rl.idx.stopList[i]
	}
}

func (rl *regionLoad) loadRoutes(agencies map[string]string, firstAgency, regionName string) {
	rl.each("routes.txt", func(t *table, rec []string) {
		id := t.get(rec, "route_id")
		if id == "" {
			t.skip()
			return
		}
		full := rl.prefix + id
		if _, exists := rl.idx.routes[full]; exists {
			return
		}
		operator := agencies[t.get(rec, "agency_id")]
		if operator == "" {
			operator = firstAgency
		}
		if operator == "" {
			operator = regionName
		}
		rl.idx.routeList = append(rl.idx.routeList, Route{
			RouteID:      full,
			ShortName:    t.get(rec, "route_short_name"),
			LongName:     t.get(rec, "route_long_name"),
			Color:        strings.TrimPrefix(t.get(rec, "route_color"), "#"),
			TextColor:    strings.TrimPrefix(t.get(rec, "route_text_color"), "#"),
			OperatorName: operator,
		})
		rl.idx.routes[full] = nil
		rl.sum.Routes++
	})
	for i := range rl.idx.routeList {
		rl.idx.routes[rl.idx.routeList[i].RouteID] = &rl.idx.routeList[i]
	}
}

func (rl *regionLoad) loadCalendar() *ServiceCalendar {
	cal := NewServiceCalendar()
	days := [7]string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}
	rl.each("calendar.txt", func(t *table, rec []string) {
		id := t.get(rec, "service_id")
		if id == "" {
			t.skip()
			return
		}
		w := WeeklyService{
			ServiceID: rl.prefix + id,
			Start:     t.get(rec, "start_date"),
			End:       t.get(rec, "end_date"),
		}
		for wd, col := range days {
			w.Days[wd] = t.get(rec, col) == "1"
		}
		cal.AddWeekly(w)
	})
	rl.each("calendar_dates.txt", func(t *table, rec []string) {
		id := t.get(rec, "service_id")
		date := t.get(rec, "date")
		typ, err := strconv.Atoi(t.get(rec, "exception_type"))
		if id == "" || len(date) != 8 || err != nil {
			t.skip()
			return
		}
		cal.AddException(date, rl.prefix+id, typ)
	})
	return cal
}

// loadTrips returns the ids of trips dropped by the day filter. A nil active
// set disables filtering.
func (rl *regionLoad) loadTrips(active map[string]struct{}) map[string]struct{} {
	excluded := map[string]struct{}{}
	rl.each("trips.txt", func(t *table, rec []string) {
		id := t.get(rec, "trip_id")
		routeID := t.get(rec, "route_id")
		if id == "" || routeID == "" {
			t.skip()
			return
		}
		full := rl.prefix + id
		serviceID := rl.prefix + t.get(rec, "service_id")
		if active != nil {
			if _, ok := active[serviceID]; !ok {
				excluded[full] = struct{}{}
				return
			}
		}
		if _, exists := rl.idx.trips[full]; exists {
			return
		}
		trip := &Trip{
			TripID:    full,
			RouteID:   rl.prefix + routeID,
			ServiceID: serviceID,
			Headsign:  t.get(rec, "trip_headsign"),
			Region:    rl.prefix,
		}
		if shape := t.get(rec, "shape_id"); shape != "" {
			trip.ShapeID = rl.prefix + shape
		}
		rl.idx.trips[full] = trip
		rl.idx.tripOrder = append(rl.idx.tripOrder, full)
		rl.tripIDs = append(rl.tripIDs, full)
		rl.sum.Trips++
	})
	return excluded
}

func (rl *regionLoad) loadStopTimes(excluded map[string]struct{}) {
	row := 0
	rl.each("stop_times.txt", func(t *table, rec []string) {
		row++
		tripID := t.get(rec, "trip_id")
		stopID := t.get(rec, "stop_id")
		arrival := t.get(rec, "arrival_time", "departure_time")
		if tripID == "" || stopID == "" || arrival == "" {
			t.skip()
			return
		}
		fullTrip := rl.prefix + tripID
		if _, ok := excluded[fullTrip]; ok {
			return
		}
		seq, err := strconv.Atoi(t.get(rec, "stop_sequence"))
		if err != nil {
			seq = row
		}
		fullStop := rl.prefix + stopID
		rl.idx.stopTimes[fullStop] = append(rl.idx.stopTimes[fullStop], StopTime{
			TripID:       fullTrip,
			StopID:       fullStop,
			ArrivalTime:  utils.NormalizeClock(arrival),
			StopSequence: seq,
		})
		rl.tripSeqs[fullTrip] = append(rl.tripSeqs[fullTrip], seqStop{seq: seq, stop: fullStop})
		rl.sum.StopTimes++
	})
}

// linkRoutes derives trip stop sequences and the route->stops and
// route->shapes buckets for this region's trips.
func (rl *regionLoad) linkRoutes() {
	stopSeen := map[string]map[string]struct{}{}
	shapeSeen := map[string]map[string]struct{}{}
	for _, tripID := range rl.tripIDs {
		trip := rl.idx.trips[tripID]
		seqs := rl.tripSeqs[tripID]
		sort.SliceStable(seqs, func(i, j int) bool { return seqs[i].seq < seqs[j].seq })
		stops := make([]string, len(seqs))
		for i, s := range seqs {
			stops[i] = s.stop
		}
		rl.idx.tripStops[tripID] = stops

		if _, ok := stopSeen[trip.RouteID]; !ok {
			stopSeen[trip.RouteID] = map[string]struct{}{}
		}
		for _, s := range stops {
			if _, dup := stopSeen[trip.RouteID][s]; !dup {
				stopSeen[trip.RouteID][s] = struct{}{}
				rl.idx.routeStops[trip.RouteID] = append(rl.idx.routeStops[trip.RouteID], s)
			}
		}

		if trip.ShapeID == "" {
			continue
		}
		if _, ok := shapeSeen[trip.RouteID]; !ok {
			shapeSeen[trip.RouteID] = map[string]struct{}{}
		}
		if _, dup := shapeSeen[trip.RouteID][trip.ShapeID]; !dup {
			shapeSeen[trip.RouteID][trip.ShapeID] = struct{}{}
			rl.idx.routeShape[trip.RouteID] = append(rl.idx.routeShape[trip.RouteID], trip.ShapeID)
		}
	}
}
