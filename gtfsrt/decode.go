package gtfsrt

import (
	"errors"
	"fmt"

	gtfsrtpb "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"
)

// ErrEmptyPayload is returned for a zero-length feed body
var ErrEmptyPayload = errors.New("gtfsrt: empty payload")

// Decode parses a FeedMessage. Vehicles without a position are dropped;
// stop updates without a stop id are dropped.
func Decode(data []byte) (*Feed, error) {
	if len(data) == 0 {
		return nil, ErrEmptyPayload
	}
	fm := &gtfsrtpb.FeedMessage{}
	if err := proto.Unmarshal(data, fm); err != nil {
		return nil, fmt.Errorf("gtfsrt: decode feed: %w", err)
	}

	feed := &Feed{Timestamp: int64(fm.GetHeader().GetTimestamp())}
	for _, e := range fm.GetEntity() {
		if e.GetIsDeleted() {
			continue
		}
		if v := e.GetVehicle(); v != nil && v.GetPosition() != nil {
			feed.Vehicles = append(feed.Vehicles, decodeVehicle(e.GetId(), v))
		}
		if tu := e.GetTripUpdate(); tu != nil {
			feed.TripUpdates = append(feed.TripUpdates, decodeTripUpdate(tu))
		}
	}
	return feed, nil
}

func decodeVehicle(entityID string, v *gtfsrtpb.VehiclePosition) RawVehicle {
	pos := v.GetPosition()
	rv := RawVehicle{
		EntityID:  entityID,
		VehicleID: v.GetVehicle().GetId(),
		TripID:    v.GetTrip().GetTripId(),
		RouteID:   v.GetTrip().GetRouteId(),
		Lat:       float64(pos.GetLatitude()),
		Lon:       float64(pos.GetLongitude()),
		Bearing:   float64(pos.GetBearing()),
		Speed:     float64(pos.GetSpeed()),
		Timestamp: int64(v.GetTimestamp()),
	}
	if rv.VehicleID == "" {
		rv.VehicleID = v.GetVehicle().GetLabel()
	}
	if rv.VehicleID == "" {
		rv.VehicleID = entityID
	}
	return rv
}

func decodeTripUpdate(tu *gtfsrtpb.TripUpdate) RawTripUpdate {
	rt := RawTripUpdate{
		TripID:  tu.GetTrip().GetTripId(),
		RouteID: tu.GetTrip().GetRouteId(),
	}
	if tu.Delay != nil {
		rt.Delay, rt.HasDelay = tu.GetDelay(), true
	}
	for _, stu := range tu.GetStopTimeUpdate() {
		if stu.GetStopId() == "" {
			continue
		}
		if stu.GetScheduleRelationship() == gtfsrtpb.TripUpdate_StopTimeUpdate_SKIPPED {
			continue
		}
		su := RawStopUpdate{StopID: stu.GetStopId()}
		// arrival first, departure as fallback
		for _, ev := range []*gtfsrtpb.TripUpdate_StopTimeEvent{stu.GetArrival(), stu.GetDeparture()} {
			if ev == nil {
				continue
			}
			if su.Time == 0 && ev.Time != nil {
				su.Time = ev.GetTime()
			}
			if !su.HasDelay && ev.Delay != nil {
				su.Delay, su.HasDelay = ev.GetDelay(), true
			}
		}
		if !su.HasDelay && rt.HasDelay {
			su.Delay, su.HasDelay = rt.Delay, true
		}
		if su.Time == 0 && !su.HasDelay {
			continue
		}
		rt.StopUpdates = append(rt.StopUpdates, su)
	}
	return rt
}
