// Package metrics exposes Prometheus metrics for schedule loads, realtime
// poll cycles and snapshot publication on a private registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Danyokkk/cybus/gtfs"
	"github.com/Danyokkk/cybus/gtfsrt"
)

type Collector struct {
	reg *prometheus.Registry

	ScheduleLoads        *prometheus.CounterVec // result label: ok|error
	ScheduleLoadDuration prometheus.Histogram
	ScheduleEntities     *prometheus.GaugeVec // kind label: stops|routes|trips|stop_times|shapes

	FeedFetches       *prometheus.CounterVec // feed, result: ok|error|rate_limited
	FeedUnresolved    *prometheus.CounterVec // feed
	PollDuration      prometheus.Histogram
	Vehicles          prometheus.Gauge
	Predictions       prometheus.Gauge
	SnapshotsKept     prometheus.Counter
	SnapshotsReplaced prometheus.Counter

	Published   prometheus.Counter
	PublishErrs prometheus.Counter
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		ScheduleLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cybus_schedule_loads_total",
			Help: "Schedule reloads by result.",
		}, []string{"result"}),
		ScheduleLoadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cybus_schedule_load_duration_seconds",
			Help:    "Duration of full schedule loads.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		ScheduleEntities: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "cybus_schedule_entities",
			Help: "Entities in the installed schedule index.",
		}, []string{"kind"}),
		FeedFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cybus_feed_fetches_total",
			Help: "Realtime feed fetches by feed and result.",
		}, []string{"feed", "result"}),
		FeedUnresolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cybus_feed_unresolved_vehicles_total",
			Help: "Vehicles whose trip and route could not be resolved.",
		}, []string{"feed"}),
		PollDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cybus_poll_cycle_duration_seconds",
			Help:    "Duration of a full realtime poll cycle.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		Vehicles: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cybus_vehicles",
			Help: "Vehicles in the current snapshot.",
		}),
		Predictions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cybus_predictions",
			Help: "Trip/stop predictions in the current snapshot.",
		}),
		SnapshotsKept: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cybus_snapshots_kept_total",
			Help: "Poll cycles that produced no vehicles and kept the previous snapshot.",
		}),
		SnapshotsReplaced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cybus_snapshots_installed_total",
			Help: "Poll cycles that installed a new snapshot.",
		}),
		Published: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cybus_snapshots_published_total",
			Help: "Snapshots published to NATS.",
		}),
		PublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cybus_snapshot_publish_errors_total",
			Help: "Snapshot publish errors.",
		}),
	}

	reg.MustRegister(
		c.ScheduleLoads, c.ScheduleLoadDuration, c.ScheduleEntities,
		c.FeedFetches, c.FeedUnresolved, c.PollDuration,
		c.Vehicles, c.Predictions, c.SnapshotsKept, c.SnapshotsReplaced,
		c.Published, c.PublishErrs,
	)
	return c
}

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

// Registry exposes the private registry, mainly for tests
func (c *Collector) Registry() *prometheus.Registry { return c.reg }

// ObserveScheduleLoad implements store.LoadObserver
func (c *Collector) ObserveScheduleLoad(d time.Duration, counts gtfs.Counts, err error) {
	c.ScheduleLoadDuration.Observe(d.Seconds())
	if err != nil {
		c.ScheduleLoads.WithLabelValues("error").Inc()
		return
	}
	c.ScheduleLoads.WithLabelValues("ok").Inc()
	c.ScheduleEntities.WithLabelValues("stops").Set(float64(counts.Stops))
	c.ScheduleEntities.WithLabelValues("routes").Set(float64(counts.Routes))
	c.ScheduleEntities.WithLabelValues("trips").Set(float64(counts.Trips))
	c.ScheduleEntities.WithLabelValues("stop_times").Set(float64(counts.StopTimes))
	c.ScheduleEntities.WithLabelValues("shapes").Set(float64(counts.Shapes))
}

// ObserveFeed records one feed's contribution to a cycle
func (c *Collector) ObserveFeed(st gtfsrt.FeedStatus) {
	result := "ok"
	switch {
	case st.RateLimited:
		result = "rate_limited"
	case !st.OK:
		result = "error"
	}
	c.FeedFetches.WithLabelValues(st.Name, result).Inc()
	if st.Unresolved > 0 {
		c.FeedUnresolved.WithLabelValues(st.Name).Add(float64(st.Unresolved))
	}
}

// ObserveCycle records a finished poll cycle and whether its snapshot was installed
func (c *Collector) ObserveCycle(d time.Duration, current *gtfsrt.Snapshot, installed bool) {
	c.PollDuration.Observe(d.Seconds())
	if installed {
		c.SnapshotsReplaced.Inc()
	} else {
		c.SnapshotsKept.Inc()
	}
	if current != nil {
		c.Vehicles.Set(float64(len(current.Vehicles)))
		c.Predictions.Set(float64(current.UpdateCount()))
	}
}

// ObservePublish records a snapshot publication attempt
func (c *Collector) ObservePublish(err error) {
	if err != nil {
		c.PublishErrs.Inc()
		return
	}
	c.Published.Inc()
}
