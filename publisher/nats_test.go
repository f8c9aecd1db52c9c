package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Danyokkk/cybus/gtfsrt"
)

type fakeConn struct {
	subject string
	data    []byte
	err     error
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	f.subject, f.data = subject, data
	return f.err
}

type countingObserver struct{ ok, failed int }

func (o *countingObserver) ObservePublish(err error) {
	if err != nil {
		o.failed++
		return
	}
	o.ok++
}

func TestSubject(t *testing.T) {
	tests := []struct {
		in   []string
		want string
	}{
		{[]string{"cybus", "vehicles"}, "cybus.vehicles"},
		{[]string{"", "vehicles"}, "vehicles"},
		{[]string{"cy bus.live", "vehicles"}, "cy_bus_live.vehicles"},
		{[]string{"a>*", "b/c"}, "a__.b_c"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Subject(tt.in...))
	}
}

func TestPublish(t *testing.T) {
	nc := &fakeConn{}
	obs := &countingObserver{}
	p := newPublisher(nc, "cybus", obs, zerolog.Nop())

	polled := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	err := p.Publish(context.Background(), &gtfsrt.Snapshot{
		ID:            "snap-1",
		PolledAt:      polled,
		FeedTimestamp: 42,
		Vehicles:      []gtfsrt.VehiclePosition{{VehicleID: "BUS1", TripID: "emel_T1"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "cybus.vehicles", nc.subject)

	var msg VehiclesMessage
	require.NoError(t, json.Unmarshal(nc.data, &msg))
	assert.Equal(t, "snap-1", msg.SnapshotID)
	assert.True(t, polled.Equal(msg.PolledAt))
	assert.Equal(t, int64(42), msg.FeedTimestamp)
	require.Len(t, msg.Vehicles, 1)
	assert.Equal(t, "emel_T1", msg.Vehicles[0].TripID)
	assert.Equal(t, 1, obs.ok)
}

func TestPublish_EmptyAndFailing(t *testing.T) {
	nc := &fakeConn{}
	obs := &countingObserver{}
	p := newPublisher(nc, "cybus", obs, zerolog.Nop())

	require.NoError(t, p.Publish(context.Background(), &gtfsrt.Snapshot{ID: "empty"}))
	assert.Contains(t, string(nc.data), `"vehicles":[]`)

	nc.err = errors.New("nats: connection closed")
	err := p.Publish(context.Background(), &gtfsrt.Snapshot{ID: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, nc.err)
	assert.Equal(t, 1, obs.ok)
	assert.Equal(t, 1, obs.failed)

	p.Close()
}
