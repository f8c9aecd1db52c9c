package store

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Danyokkk/cybus/config"
	"github.com/Danyokkk/cybus/gtfs"
	"github.com/Danyokkk/cybus/gtfsrt"
)

type fakeLoader struct {
	calls atomic.Int32
	err   error
	idx   *gtfs.GTFSIndex
}

func (f *fakeLoader) Load(ctx context.Context) (*gtfs.GTFSIndex, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.idx, nil
}

type recordingObserver struct {
	mu     sync.Mutex
	counts []gtfs.Counts
	errs   []error
}

func (o *recordingObserver) ObserveScheduleLoad(d time.Duration, c gtfs.Counts, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.counts = append(o.counts, c)
	o.errs = append(o.errs, err)
}

func loadFixture(t *testing.T) *gtfs.GTFSIndex {
	t.Helper()
	cfg := config.ScheduleConfig{Regions: []config.Region{{Name: "EMEL", Path: filepath.Join("..", "gtfs", "testdata", "emel")}}}
	idx, err := gtfs.NewLoader(cfg, time.UTC, zerolog.Nop()).Load(context.Background())
	require.NoError(t, err)
	return idx
}

func TestStore_SwapsAreVisible(t *testing.T) {
	st := New()
	assert.Nil(t, st.Schedule())
	assert.Nil(t, st.Realtime())

	idx := loadFixture(t)
	st.SetSchedule(idx)
	assert.Same(t, idx, st.Schedule())

	snap := &gtfsrt.Snapshot{ID: "a"}
	st.SetRealtime(snap)
	assert.Same(t, snap, st.Realtime())
}

func TestStore_ConcurrentReaders(t *testing.T) {
	st := New()
	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					if s := st.Realtime(); s != nil {
						_ = len(s.Vehicles)
					}
				}
			}
		}()
	}
	for i := 0; i < 100; i++ {
		st.SetRealtime(&gtfsrt.Snapshot{Vehicles: make([]gtfsrt.VehiclePosition, i)})
	}
	close(stop)
	wg.Wait()
	assert.Len(t, st.Realtime().Vehicles, 99)
}

func TestRefresher_Reload(t *testing.T) {
	st := New()
	idx := loadFixture(t)
	obs := &recordingObserver{}
	r := NewRefresher(st, &fakeLoader{idx: idx}, obs, zerolog.Nop())

	require.NoError(t, r.Reload(context.Background()))
	assert.Same(t, idx, st.Schedule())
	require.Len(t, obs.counts, 1)
	assert.Equal(t, idx.Counts(), obs.counts[0])
	assert.NoError(t, obs.errs[0])
}

func TestRefresher_ReloadFailureKeepsIndex(t *testing.T) {
	st := New()
	old := loadFixture(t)
	st.SetSchedule(old)
	obs := &recordingObserver{}
	boom := errors.New("boom")
	r := NewRefresher(st, &fakeLoader{err: boom}, obs, zerolog.Nop())

	err := r.Reload(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Same(t, old, st.Schedule())
	assert.ErrorIs(t, obs.errs[0], boom)
}

func TestRefresher_Start(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fl := &fakeLoader{idx: loadFixture(t)}
	r := NewRefresher(New(), fl, nil, zerolog.Nop())

	require.NoError(t, r.Start(ctx, ""))
	assert.Zero(t, fl.calls.Load())

	require.Error(t, r.Start(ctx, "not a cron"))

	require.NoError(t, r.Start(ctx, "@every 1s"))
	require.Eventually(t, func() bool { return fl.calls.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
	r.Stop()
}
