package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Danyokkk/cybus/gtfsrt"
	"github.com/Danyokkk/cybus/internal/testfeed"
)

func TestFetcher_ReplaysDumps(t *testing.T) {
	dump := testfeed.Build(t, 1773129570, []testfeed.Vehicle{
		{ID: "V1", TripID: "T1", RouteID: "R1", Lat: 35.17, Lon: 33.36},
	}, nil)
	path := filepath.Join(t.TempDir(), "emel.pb")
	require.NoError(t, os.WriteFile(path, dump, 0o600))
	srv := testfeed.NewServer(t, dump)

	f := newFetcher(gtfsrt.NewClient(time.Second, "cybus-test"))
	for name, loc := range map[string]string{
		"plain path": path,
		"file url":   "file://" + path,
		"http":       srv.URL,
	} {
		t.Run(name, func(t *testing.T) {
			body, err := f.Fetch(context.Background(), loc)
			require.NoError(t, err)
			feed, err := gtfsrt.Decode(body)
			require.NoError(t, err)
			assert.Equal(t, int64(1773129570), feed.Timestamp)
			require.Len(t, feed.Vehicles, 1)
		})
	}
	assert.Equal(t, 1, srv.Hits())
}

func TestFetcher_RejectsUnknownSchemes(t *testing.T) {
	f := newFetcher(gtfsrt.NewClient(time.Second, ""))
	_, err := f.Fetch(context.Background(), "ftp://example.org/feed.pb")
	assert.ErrorContains(t, err, "unsupported feed location")

	_, err = f.Fetch(context.Background(), filepath.Join(t.TempDir(), "missing.pb"))
	assert.Error(t, err)
}
