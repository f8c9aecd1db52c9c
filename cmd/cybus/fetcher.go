package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/Danyokkk/cybus/config"
	"github.com/Danyokkk/cybus/gtfsrt"
)

// fetcher reads feeds from HTTP(S) URLs through the realtime client and
// from file:// URLs or plain paths otherwise, so saved .pb dumps can be replayed.
type fetcher struct {
	client *gtfsrt.Client
}

func newFetcher(client *gtfsrt.Client) *fetcher {
	return &fetcher{client: client}
}

func (f *fetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return f.client.Fetch(ctx, location)
	}
	path, ok := config.LocalFeedPath(location)
	if !ok {
		return nil, fmt.Errorf("unsupported feed location %q", location)
	}
	return os.ReadFile(path)
}
