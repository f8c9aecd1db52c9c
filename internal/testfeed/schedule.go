package testfeed

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Danyokkk/cybus/config"
	"github.com/Danyokkk/cybus/gtfs"
)

// Region writes files into a fresh directory and returns it as a region
func Region(t testing.TB, name string, files map[string]string) config.Region {
	t.Helper()
	dir := filepath.Join(t.TempDir(), name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	for fn, content := range files {
		if err := os.WriteFile(filepath.Join(dir, fn), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", fn, err)
		}
	}
	return config.Region{Name: name, Path: dir}
}

// EMEL is a region with stop S1 (34.0, 33.0) and S2, route R1 and trips
// T1 (S1 08:00:00) and T2 (S1 07:30:00), both running every day.
func EMEL(t testing.TB) config.Region {
	return Region(t, "EMEL", map[string]string{
		"agency.txt": "agency_id,agency_name\nEMEL,EMEL Limassol\n",
		"stops.txt":  "stop_id,stop_name,stop_lat,stop_lon\nS1,Central,34.0,33.0\nS2,Harbour,34.01,33.02\n",
		"routes.txt": "route_id,agency_id,route_short_name,route_long_name,route_color,route_text_color\n" +
			"R1,EMEL,30,Limassol - Germasogeia,FF0000,FFFFFF\n",
		"calendar.txt": "service_id,monday,tuesday,wednesday,thursday,friday,saturday,sunday,start_date,end_date\n" +
			"ALL,1,1,1,1,1,1,1,20200101,20991231\n",
		"trips.txt": "route_id,service_id,trip_id,trip_headsign,shape_id\nR1,ALL,T1,Germasogeia,SH1\nR1,ALL,T2,Germasogeia,SH1\n",
		"stop_times.txt": "trip_id,arrival_time,departure_time,stop_id,stop_sequence\n" +
			"T1,08:00:00,08:00:00,S1,1\nT1,08:10:00,08:10:00,S2,2\n" +
			"T2,07:30:00,07:30:00,S1,1\nT2,07:40:00,07:40:00,S2,2\n",
		"shapes.txt": "shape_id,shape_pt_lat,shape_pt_lon,shape_pt_sequence\nSH1,34.01,33.02,2\nSH1,34.0,33.0,1\n",
	})
}

// Schedule loads regions with today's date fixed at 10:00 on date in loc
func Schedule(t testing.TB, loc *time.Location, date string, regions ...config.Region) *gtfs.GTFSIndex {
	t.Helper()
	day, err := time.ParseInLocation("20060102", date, loc)
	if err != nil {
		t.Fatalf("bad date %s: %v", date, err)
	}
	cfg := config.ScheduleConfig{Regions: regions}
	idx, err := gtfs.NewLoader(cfg, loc, zerolog.Nop()).
		WithClock(func() time.Time { return day.Add(10 * time.Hour) }).
		Load(context.Background())
	if err != nil {
		t.Fatalf("load schedule: %v", err)
	}
	return idx
}
