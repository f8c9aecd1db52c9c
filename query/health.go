package query

import (
	"time"

	"github.com/Danyokkk/cybus/gtfs"
	"github.com/Danyokkk/cybus/gtfsrt"
	"github.com/Danyokkk/cybus/utils"
)

// Health summarises what the service is currently serving
type Health struct {
	Status                  string               `json:"status"`
	ScheduleLoadedAt        *time.Time           `json:"schedule_loaded_at,omitempty"`
	Schedule                gtfs.Counts          `json:"schedule"`
	Regions                 []gtfs.RegionSummary `json:"regions"`
	SnapshotID              string               `json:"snapshot_id,omitempty"`
	SnapshotAgeSeconds      float64              `json:"snapshot_age_seconds"`
	LatestGTFSRealtimeEpoch int64                `json:"latest_gtfsrt_epoch"`
	LatestGTFSRealtimeTime  string               `json:"latest_gtfsrt_time,omitempty"`
	Vehicles                int                  `json:"vehicles"`
	Predictions             int                  `json:"predictions"`
	Feeds                   []gtfsrt.FeedStatus  `json:"feeds"`
}

// Health reports "loading" until the first schedule load, "ok" afterwards
func (s *Service) Health() Health {
	h := Health{Status: "loading", Regions: []gtfs.RegionSummary{}, Feeds: []gtfsrt.FeedStatus{}}
	if idx := s.store.Schedule(); idx != nil {
		h.Status = "ok"
		at := idx.LoadedAt()
		h.ScheduleLoadedAt = &at
		h.Schedule = idx.Counts()
		if regions := idx.Regions(); regions != nil {
			h.Regions = regions
		}
	}
	if snap := s.store.Realtime(); snap != nil {
		h.SnapshotID = snap.ID
		h.SnapshotAgeSeconds = s.now().Sub(snap.PolledAt).Seconds()
		h.LatestGTFSRealtimeEpoch = snap.FeedTimestamp
		h.LatestGTFSRealtimeTime = utils.Iso8601FromUnixSeconds(snap.FeedTimestamp)
		h.Vehicles = len(snap.Vehicles)
		h.Predictions = snap.UpdateCount()
		if snap.Feeds != nil {
			h.Feeds = snap.Feeds
		}
	}
	return h
}
