package gtfs

// Stop is a namespaced GTFS stop
type Stop struct {
	StopID string  `json:"stop_id"`
	Name   string  `json:"name"`
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
}

// Route is a namespaced GTFS route with its display attributes
type Route struct {
	RouteID      string `json:"route_id"`
	ShortName    string `json:"short_name"`
	LongName     string `json:"long_name"`
	Color        string `json:"color"`
	TextColor    string `json:"text_color"`
	OperatorName string `json:"operator_name"`
}

// Trip is a namespaced GTFS trip. RouteID may reference a route that was never loaded.
type Trip struct {
	TripID    string `json:"trip_id"`
	RouteID   string `json:"route_id"`
	ServiceID string `json:"service_id"`
	Headsign  string `json:"headsign"`
	ShapeID   string `json:"shape_id,omitempty"`
	Region    string `json:"-"` // prefix of the region the trip was loaded from
}

// StopTime is one scheduled arrival, stored bucketed by stop
type StopTime struct {
	TripID       string
	StopID       string
	ArrivalTime  string // zero-padded HH:MM:SS, may exceed 24:00:00
	StopSequence int
}

// Point is a shape vertex encoded as [lat, lon]
type Point [2]float64

func (p Point) Lat() float64 { return p[0] }
func (p Point) Lon() float64 { return p[1] }

// TimetableRow is a scheduled arrival joined with its trip
type TimetableRow struct {
	Trip         *Trip
	ArrivalTime  string
	StopSequence int
}

// StopDistance is a stop with its distance from a query point
type StopDistance struct {
	Stop
	DistanceM float64 `json:"distance_m"`
}

// RegionSummary describes what a single region contributed to the index
type RegionSummary struct {
	Name           string `json:"name"`
	Prefix         string `json:"prefix"`
	Stops          int    `json:"stops"`
	Routes         int    `json:"routes"`
	Trips          int    `json:"trips"`
	StopTimes      int    `json:"stop_times"`
	Shapes         int    `json:"shapes"`
	SkippedRows    int    `json:"skipped_rows"`
	ActiveServices int    `json:"active_services"`
	DayFiltered    bool   `json:"day_filtered"`
	CalendarStart  string `json:"calendar_start,omitempty"`
	CalendarEnd    string `json:"calendar_end,omitempty"`
	Error          string `json:"error,omitempty"`
}
