// Package store owns the two swappable data sets the service reads: the
// static schedule index and the latest realtime snapshot. Each has exactly
// one writer and is replaced by a single atomic pointer swap, so readers
// never see a partially built value.
package store

import (
	"sync/atomic"

	"github.com/Danyokkk/cybus/gtfs"
	"github.com/Danyokkk/cybus/gtfsrt"
)

// Store holds the current schedule index and realtime snapshot
type Store struct {
	schedule atomic.Pointer[gtfs.GTFSIndex]
	realtime atomic.Pointer[gtfsrt.Snapshot]
}

// New returns an empty store
func New() *Store {
	return &Store{}
}

// Schedule returns the current index or nil before the first load
func (s *Store) Schedule() *gtfs.GTFSIndex { return s.schedule.Load() }

// SetSchedule installs a fully built index
func (s *Store) SetSchedule(idx *gtfs.GTFSIndex) { s.schedule.Store(idx) }

// Realtime returns the current snapshot or nil before the first poll
func (s *Store) Realtime() *gtfsrt.Snapshot { return s.realtime.Load() }

// SetRealtime installs a fully built snapshot
func (s *Store) SetRealtime(snap *gtfsrt.Snapshot) { s.realtime.Store(snap) }
