package tracking

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Danyokkk/cybus/config"
	"github.com/Danyokkk/cybus/gtfsrt"
	"github.com/Danyokkk/cybus/store"
)

// Fetcher downloads a raw feed payload. *gtfsrt.Client implements it.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Observer receives per-feed and per-cycle outcomes. *metrics.Collector implements it.
type Observer interface {
	ObserveFeed(st gtfsrt.FeedStatus)
	ObserveCycle(d time.Duration, current *gtfsrt.Snapshot, installed bool)
}

// Publisher forwards installed snapshots to other consumers
type Publisher interface {
	Publish(ctx context.Context, snap *gtfsrt.Snapshot) error
}

// CycleResult describes one poll cycle
type CycleResult struct {
	Snapshot    *gtfsrt.Snapshot // the cycle's own snapshot, installed or not
	Installed   bool
	RateLimited bool
	RetryAfter  time.Duration
}

// Reconciler polls the realtime feeds and is the only writer of the store's snapshot
type Reconciler struct {
	store     *store.Store
	fetcher   Fetcher
	feeds     []config.Feed
	interval  time.Duration
	feedDelay time.Duration
	backoff   *backoff.ExponentialBackOff
	observer  Observer
	publisher Publisher
	now       func() time.Time
	log       zerolog.Logger
}

type Option func(*Reconciler)

func WithObserver(o Observer) Option   { return func(r *Reconciler) { r.observer = o } }
func WithPublisher(p Publisher) Option { return func(r *Reconciler) { r.publisher = p } }
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) { r.now = now }
}

func NewReconciler(st *store.Store, fetcher Fetcher, cfg config.RealtimeConfig, log zerolog.Logger, opts ...Option) *Reconciler {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.PollInterval
	if b.InitialInterval <= 0 {
		b.InitialInterval = config.DefaultPollInterval
	}
	b.MaxInterval = cfg.MaxBackoff
	if b.MaxInterval <= 0 {
		b.MaxInterval = config.DefaultMaxBackoff
	}
	b.Multiplier = 2
	b.RandomizationFactor = 0.2
	b.MaxElapsedTime = 0
	b.Reset()

	r := &Reconciler{
		store:     st,
		fetcher:   fetcher,
		feeds:     cfg.Feeds,
		interval:  cfg.PollInterval,
		feedDelay: cfg.FeedDelay,
		backoff:   b,
		now:       time.Now,
		log:       log.With().Str("component", "reconciler").Logger(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// PollOnce runs a full cycle over every feed and installs the result. A
// cycle with no vehicles keeps a previous snapshot that had some.
func (r *Reconciler) PollOnce(ctx context.Context) CycleResult {
	start := time.Now()
	res := NewResolver(r.store.Schedule())
	snap := &gtfsrt.Snapshot{
		ID:       uuid.NewString(),
		PolledAt: r.now(),
		Vehicles: []gtfsrt.VehiclePosition{},
		Updates:  map[string]map[string]gtfsrt.Prediction{},
	}
	out := CycleResult{Snapshot: snap}

	for i, feed := range r.feeds {
		if i > 0 && r.feedDelay > 0 {
			select {
			case <-ctx.Done():
				return out
			case <-time.After(r.feedDelay):
			}
		}
		st, err := r.pollFeed(ctx, feed, res, snap)
		if err != nil {
			st.Error = err.Error()
			if wait, limited := gtfsrt.RateLimit(err); limited {
				st.RateLimited = true
				out.RateLimited = true
				if wait > out.RetryAfter {
					out.RetryAfter = wait
				}
			}
			r.log.Warn().Err(err).Str("feed", feed.Name).Bool("rate_limited", st.RateLimited).Msg("feed contributed nothing this cycle")
		}
		snap.Feeds = append(snap.Feeds, st)
		if r.observer != nil {
			r.observer.ObserveFeed(st)
		}
	}
	if ctx.Err() != nil {
		return out
	}

	prev := r.store.Realtime()
	if len(snap.Vehicles) == 0 && prev != nil && len(prev.Vehicles) > 0 {
		r.log.Warn().Str("kept", prev.ID).Int("vehicles", len(prev.Vehicles)).Msg("cycle produced no vehicles, keeping previous snapshot")
	} else {
		r.store.SetRealtime(snap)
		out.Installed = true
	}

	took := time.Since(start)
	if r.observer != nil {
		r.observer.ObserveCycle(took, r.store.Realtime(), out.Installed)
	}
	r.log.Info().
		Str("snapshot", snap.ID).
		Int("vehicles", len(snap.Vehicles)).
		Int("predictions", snap.UpdateCount()).
		Bool("installed", out.Installed).
		Dur("took", took).
		Msg("poll cycle finished")

	if out.Installed && r.publisher != nil {
		if err := r.publisher.Publish(ctx, snap); err != nil {
			r.log.Warn().Err(err).Msg("snapshot publish failed")
		}
	}
	return out
}

func (r *Reconciler) pollFeed(ctx context.Context, feed config.Feed, res *Resolver, snap *gtfsrt.Snapshot) (gtfsrt.FeedStatus, error) {
	st := gtfsrt.FeedStatus{Name: feed.Name, Prefix: feed.Prefix, FetchedAt: r.now()}
	data, err := r.fetcher.Fetch(ctx, feed.URL)
	if err != nil {
		return st, err
	}
	decoded, err := gtfsrt.Decode(data)
	if err != nil {
		return st, err
	}
	if decoded.Timestamp > snap.FeedTimestamp {
		snap.FeedTimestamp = decoded.Timestamp
	}

	for _, v := range decoded.Vehicles {
		ident := res.ResolveVehicle(feed.Prefix, v.TripID, v.RouteID)
		if ident.Match == gtfsrt.MatchNone {
			st.Unresolved++
			r.log.Debug().Str("feed", feed.Name).Str("trip", v.TripID).Str("route", v.RouteID).Msg("vehicle identity unresolved")
		}
		snap.Vehicles = append(snap.Vehicles, vehiclePosition(feed.Name, v, ident))
		st.Vehicles++
	}

	for _, tu := range decoded.TripUpdates {
		tripID, tier := res.ResolveTrip(feed.Prefix, tu.TripID)
		if tier == TierNone {
			tripID = tu.TripID
		}
		if tripID == "" {
			continue
		}
		stops, ok := snap.Updates[tripID]
		if !ok {
			stops = map[string]gtfsrt.Prediction{}
			snap.Updates[tripID] = stops
		}
		for _, su := range tu.StopUpdates {
			stops[res.ResolveStop(feed.Prefix, su.StopID)] = gtfsrt.Prediction{
				ArrivalTime: su.Time,
				Delay:       su.Delay,
				HasDelay:    su.HasDelay,
			}
		}
		st.TripUpdates++
	}
	st.OK = true
	return st, nil
}

func vehiclePosition(feedName string, v gtfsrt.RawVehicle, ident Identity) gtfsrt.VehiclePosition {
	vp := gtfsrt.VehiclePosition{
		VehicleID:      v.VehicleID,
		TripID:         ident.TripID,
		RouteID:        ident.RouteID,
		Lat:            v.Lat,
		Lon:            v.Lon,
		Bearing:        v.Bearing,
		Speed:          v.Speed,
		Timestamp:      v.Timestamp,
		RouteShortName: gtfsrt.UnknownLabel,
		TripHeadsign:   gtfsrt.UnknownLabel,
		Color:          gtfsrt.DefaultColor,
		TextColor:      gtfsrt.DefaultTextColor,
		Feed:           feedName,
		Match:          ident.Match,
	}
	if ident.Trip != nil && ident.Trip.Headsign != "" {
		vp.TripHeadsign = ident.Trip.Headsign
	}
	if ident.Route != nil {
		if ident.Route.ShortName != "" {
			vp.RouteShortName = ident.Route.ShortName
		}
		if ident.Route.Color != "" {
			vp.Color = ident.Route.Color
		}
		if ident.Route.TextColor != "" {
			vp.TextColor = ident.Route.TextColor
		}
	}
	return vp
}

// NextDelay returns how long to wait before the next cycle. Rate-limited
// cycles add an exponential backoff, honouring Retry-After; a clean cycle
// resets it.
func (r *Reconciler) NextDelay(res CycleResult) time.Duration {
	if !res.RateLimited {
		r.backoff.Reset()
		return r.interval
	}
	extra := r.backoff.NextBackOff()
	if extra == backoff.Stop || extra > r.backoff.MaxInterval {
		extra = r.backoff.MaxInterval
	}
	if res.RetryAfter > extra {
		extra = res.RetryAfter
	}
	return r.interval + extra
}

// Run polls until ctx is cancelled
func (r *Reconciler) Run(ctx context.Context) {
	r.log.Info().Int("feeds", len(r.feeds)).Dur("interval", r.interval).Msg("realtime polling started")
	for {
		res := r.PollOnce(ctx)
		if ctx.Err() != nil {
			return
		}
		wait := r.NextDelay(res)
		if res.RateLimited {
			r.log.Warn().Dur("wait", wait).Msg("rate limited, backing off")
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			r.log.Info().Msg("realtime polling stopped")
			return
		case <-timer.C:
		}
	}
}
