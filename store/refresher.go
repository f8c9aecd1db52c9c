package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/Danyokkk/cybus/gtfs"
)

// ScheduleLoader produces a complete schedule index
type ScheduleLoader interface {
	Load(ctx context.Context) (*gtfs.GTFSIndex, error)
}

// LoadObserver receives reload outcomes, e.g. for metrics
type LoadObserver interface {
	ObserveScheduleLoad(d time.Duration, c gtfs.Counts, err error)
}

// Refresher reloads the schedule on demand and on a cron schedule
type Refresher struct {
	store    *Store
	loader   ScheduleLoader
	observer LoadObserver
	log      zerolog.Logger

	mu   sync.Mutex // serialises reloads
	cron *cron.Cron
}

// NewRefresher creates a refresher writing into st. observer may be nil.
func NewRefresher(st *Store, loader ScheduleLoader, observer LoadObserver, log zerolog.Logger) *Refresher {
	return &Refresher{
		store:    st,
		loader:   loader,
		observer: observer,
		log:      log.With().Str("component", "refresher").Logger(),
	}
}

// Reload builds a new index and swaps it in. On failure the current index is kept.
func (r *Refresher) Reload(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()
	idx, err := r.loader.Load(ctx)
	took := time.Since(start)

	var counts gtfs.Counts
	if err == nil && idx != nil {
		counts = idx.Counts()
	}
	if r.observer != nil {
		r.observer.ObserveScheduleLoad(took, counts, err)
	}
	if err != nil {
		r.log.Error().Err(err).Dur("took", took).Msg("schedule reload failed, keeping current index")
		return fmt.Errorf("reload schedule: %w", err)
	}
	r.store.SetSchedule(idx)
	r.log.Info().Int("trips", counts.Trips).Int("stops", counts.Stops).Dur("took", took).Msg("schedule installed")
	return nil
}

// Start registers the reload on spec (cron with seconds field, or
// descriptors such as "@every 24h"). An empty spec disables periodic reloads.
func (r *Refresher) Start(ctx context.Context, spec string) error {
	if spec == "" {
		return nil
	}
	c := cron.New(cron.WithSeconds())
	if _, err := c.AddFunc(spec, func() {
		_ = r.Reload(ctx)
	}); err != nil {
		return fmt.Errorf("invalid reload schedule %q: %w", spec, err)
	}
	r.cron = c
	c.Start()
	r.log.Info().Str("schedule", spec).Msg("periodic schedule reload enabled")

	go func() {
		<-ctx.Done()
		r.Stop()
	}()
	return nil
}

// Stop halts periodic reloads and waits for a running one to finish
func (r *Refresher) Stop() {
	if r.cron == nil {
		return
	}
	<-r.cron.Stop().Done()
}
