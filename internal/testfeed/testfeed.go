// Package testfeed builds GTFS-Realtime payloads and serves them over HTTP for tests.
package testfeed

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	gtfsrtpb "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"
)

// Vehicle describes a vehicle_position entity
type Vehicle struct {
	ID        string
	TripID    string
	RouteID   string
	Lat, Lon  float32
	Bearing   float32
	Speed     float32
	Timestamp uint64
}

// StopUpdate describes a stop_time_update. Zero Arrival omits the event time.
type StopUpdate struct {
	StopID    string
	Arrival   int64
	Departure int64
	Delay     *int32
	Skipped   bool
}

// TripUpdate describes a trip_update entity
type TripUpdate struct {
	TripID  string
	RouteID string
	Delay   *int32
	Stops   []StopUpdate
}

// Delay returns a pointer for optional delay fields
func Delay(d int32) *int32 { return &d }

// Build marshals a full-dataset FeedMessage
func Build(t testing.TB, ts uint64, vehicles []Vehicle, updates []TripUpdate) []byte {
	t.Helper()
	incrementality := gtfsrtpb.FeedHeader_FULL_DATASET
	fm := &gtfsrtpb.FeedMessage{
		Header: &gtfsrtpb.FeedHeader{
			GtfsRealtimeVersion: proto.String("2.0"),
			Incrementality:      &incrementality,
			Timestamp:           proto.Uint64(ts),
		},
	}
	for _, v := range vehicles {
		vp := &gtfsrtpb.VehiclePosition{
			Vehicle: &gtfsrtpb.VehicleDescriptor{Id: proto.String(v.ID)},
			Position: &gtfsrtpb.Position{
				Latitude:  proto.Float32(v.Lat),
				Longitude: proto.Float32(v.Lon),
				Bearing:   proto.Float32(v.Bearing),
				Speed:     proto.Float32(v.Speed),
			},
			Timestamp: proto.Uint64(v.Timestamp),
		}
		if v.TripID != "" || v.RouteID != "" {
			vp.Trip = &gtfsrtpb.TripDescriptor{}
			if v.TripID != "" {
				vp.Trip.TripId = proto.String(v.TripID)
			}
			if v.RouteID != "" {
				vp.Trip.RouteId = proto.String(v.RouteID)
			}
		}
		fm.Entity = append(fm.Entity, &gtfsrtpb.FeedEntity{Id: proto.String("vp-" + v.ID), Vehicle: vp})
	}
	for _, u := range updates {
		tu := &gtfsrtpb.TripUpdate{
			Trip:  &gtfsrtpb.TripDescriptor{TripId: proto.String(u.TripID)},
			Delay: u.Delay,
		}
		if u.RouteID != "" {
			tu.Trip.RouteId = proto.String(u.RouteID)
		}
		for _, s := range u.Stops {
			stu := &gtfsrtpb.TripUpdate_StopTimeUpdate{StopId: proto.String(s.StopID)}
			if s.Arrival != 0 || s.Delay != nil {
				stu.Arrival = &gtfsrtpb.TripUpdate_StopTimeEvent{Delay: s.Delay}
				if s.Arrival != 0 {
					stu.Arrival.Time = proto.Int64(s.Arrival)
				}
			}
			if s.Departure != 0 {
				stu.Departure = &gtfsrtpb.TripUpdate_StopTimeEvent{Time: proto.Int64(s.Departure)}
			}
			if s.Skipped {
				rel := gtfsrtpb.TripUpdate_StopTimeUpdate_SKIPPED
				stu.ScheduleRelationship = &rel
			}
			tu.StopTimeUpdate = append(tu.StopTimeUpdate, stu)
		}
		fm.Entity = append(fm.Entity, &gtfsrtpb.FeedEntity{Id: proto.String("tu-" + u.TripID), TripUpdate: tu})
	}
	data, err := proto.Marshal(fm)
	if err != nil {
		t.Fatalf("marshal feed: %v", err)
	}
	return data
}

// Server serves a swappable payload or status code
type Server struct {
	*httptest.Server

	mu     sync.Mutex
	body   []byte
	status int
	hits   int
}

// NewServer starts a server returning body with 200 OK
func NewServer(t testing.TB, body []byte) *Server {
	t.Helper()
	s := &Server{body: body, status: http.StatusOK}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.hits++
		if s.status != http.StatusOK {
			if s.status == http.StatusTooManyRequests {
				w.Header().Set("Retry-After", "30")
			}
			w.WriteHeader(s.status)
			return
		}
		w.Header().Set("Content-Type", "application/x-protobuf")
		_, _ = w.Write(s.body)
	}))
	t.Cleanup(s.Close)
	return s
}

// Set replaces the response
func (s *Server) Set(status int, body []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
	s.body = body
}

// Hits returns the number of requests served
func (s *Server) Hits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits
}
