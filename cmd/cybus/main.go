package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "time/tzdata"

	"github.com/rs/zerolog"

	"github.com/Danyokkk/cybus/config"
	"github.com/Danyokkk/cybus/gtfs"
	"github.com/Danyokkk/cybus/gtfsrt"
	"github.com/Danyokkk/cybus/internal"
	"github.com/Danyokkk/cybus/metrics"
	"github.com/Danyokkk/cybus/publisher"
	"github.com/Danyokkk/cybus/query"
	"github.com/Danyokkk/cybus/server"
	"github.com/Danyokkk/cybus/store"
	"github.com/Danyokkk/cybus/tracking"
)

func main() {
	mode := flag.String("mode", "serve", "serve|oneshot")
	configPath := flag.String("config", "", "path to config.yml (default: $CYBUS_CONFIG, ./config.yml)")
	stopID := flag.String("stop", "", "oneshot: print this stop's timetable instead of vehicle positions")
	date := flag.String("date", "", "oneshot: timetable date YYYYMMDD (default today)")
	flag.Parse()

	var paths []string
	if *configPath != "" {
		paths = append(paths, *configPath)
	}
	cfg, err := config.LoadAppConfig(paths...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := internal.InitLogging(cfg.Logging)
	loc, err := cfg.Location()
	if err != nil {
		log.Fatal().Err(err).Str("timezone", cfg.Timezone).Msg("invalid timezone")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch *mode {
	case "serve":
		err = serve(ctx, cfg, loc, log)
	case "oneshot":
		err = oneshot(ctx, cfg, loc, log, *stopID, *date)
	default:
		err = fmt.Errorf("unknown mode %q", *mode)
	}
	if err != nil {
		log.Fatal().Err(err).Str("mode", *mode).Msg("exiting")
	}
}

func serve(ctx context.Context, cfg *config.AppConfig, loc *time.Location, log zerolog.Logger) error {
	st := store.New()
	m := metrics.NewCollector()

	loader := gtfs.NewLoader(cfg.Schedule, loc, log)
	refresher := store.NewRefresher(st, loader, m, log)
	if err := refresher.Reload(ctx); err != nil {
		log.Error().Err(err).Msg("initial schedule load failed, serving without schedule until next reload")
	}
	if err := refresher.Start(ctx, cfg.Schedule.ReloadCron); err != nil {
		return err
	}
	defer refresher.Stop()

	opts := []tracking.Option{tracking.WithObserver(m)}
	if cfg.NATS.URL != "" {
		pub, err := publisher.NewNATSPublisher(cfg.NATS.URL, cfg.NATS.SubjectPrefix, m, log)
		if err != nil {
			log.Warn().Err(err).Msg("nats unavailable, snapshots will not be published")
		} else {
			defer pub.Close()
			opts = append(opts, tracking.WithPublisher(pub))
		}
	}
	client := gtfsrt.NewClient(cfg.Realtime.Timeout, cfg.Realtime.UserAgent)
	reconciler := tracking.NewReconciler(st, newFetcher(client), cfg.Realtime, log, opts...)
	go reconciler.Run(ctx)

	svc := query.NewService(st, loc,
		query.WithLookahead(cfg.Schedule.LookaheadDays),
		query.WithCache(query.NewTimetableCache(2048, cfg.Realtime.PollInterval)))
	srv := server.New(cfg.Server, svc, m.Handler(), log)

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	}
	return srv.Shutdown(context.Background())
}

// oneshot loads the schedule, polls every feed once and prints the result
func oneshot(ctx context.Context, cfg *config.AppConfig, loc *time.Location, log zerolog.Logger, stopID, date string) error {
	st := store.New()
	idx, err := gtfs.NewLoader(cfg.Schedule, loc, log).Load(ctx)
	if err != nil {
		return fmt.Errorf("load schedule: %w", err)
	}
	st.SetSchedule(idx)

	client := gtfsrt.NewClient(cfg.Realtime.Timeout, cfg.Realtime.UserAgent)
	tracking.NewReconciler(st, newFetcher(client), cfg.Realtime, log).PollOnce(ctx)

	svc := query.NewService(st, loc, query.WithLookahead(cfg.Schedule.LookaheadDays))
	var out any = svc.VehiclePositions()
	if stopID != "" {
		if out, err = svc.StopTimetable(stopID, date); err != nil {
			return fmt.Errorf("timetable %s: %w", stopID, err)
		}
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
