// Package publisher fans installed realtime snapshots out to NATS.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/Danyokkk/cybus/gtfsrt"
)

// PublishObserver records publish outcomes. *metrics.Collector implements it.
type PublishObserver interface {
	ObservePublish(err error)
}

type conn interface {
	Publish(subject string, data []byte) error
}

// NATSPublisher publishes every installed snapshot on <prefix>.vehicles
type NATSPublisher struct {
	nc       conn
	close    func()
	subject  string
	observer PublishObserver
	log      zerolog.Logger
}

// VehiclesMessage is the payload published for each snapshot
type VehiclesMessage struct {
	SnapshotID    string                   `json:"snapshot_id"`
	PolledAt      time.Time                `json:"polled_at"`
	FeedTimestamp int64                    `json:"feed_timestamp"`
	Vehicles      []gtfsrt.VehiclePosition `json:"vehicles"`
}

func NewNATSPublisher(url, subjectPrefix string, observer PublishObserver, log zerolog.Logger) (*NATSPublisher, error) {
	log = log.With().Str("component", "nats").Logger()
	nc, err := nats.Connect(url,
		nats.Name("cybus"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("nats disconnected")
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info().Str("url", c.ConnectedUrl()).Msg("nats reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			log.Info().Msg("nats closed")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	p := newPublisher(nc, subjectPrefix, observer, log)
	p.close = func() {
		_ = nc.Drain()
		nc.Close()
	}
	return p, nil
}

func newPublisher(nc conn, subjectPrefix string, observer PublishObserver, log zerolog.Logger) *NATSPublisher {
	return &NATSPublisher{
		nc:       nc,
		subject:  Subject(subjectPrefix, "vehicles"),
		observer: observer,
		log:      log,
	}
}

// Publish sends the snapshot's vehicles. The context is unused because
// nats.Conn.Publish only buffers.
func (p *NATSPublisher) Publish(_ context.Context, snap *gtfsrt.Snapshot) error {
	msg := VehiclesMessage{
		SnapshotID:    snap.ID,
		PolledAt:      snap.PolledAt,
		FeedTimestamp: snap.FeedTimestamp,
		Vehicles:      snap.Vehicles,
	}
	if msg.Vehicles == nil {
		msg.Vehicles = []gtfsrt.VehiclePosition{}
	}
	b, err := json.Marshal(msg)
	if err == nil {
		err = p.nc.Publish(p.subject, b)
	}
	if p.observer != nil {
		p.observer.ObservePublish(err)
	}
	if err != nil {
		return fmt.Errorf("publish %s: %w", p.subject, err)
	}
	p.log.Debug().Str("subject", p.subject).Int("vehicles", len(msg.Vehicles)).Msg("snapshot published")
	return nil
}

func (p *NATSPublisher) Close() {
	if p.close != nil {
		p.close()
	}
}

// Subject joins sanitised tokens with '.'
func Subject(tokens ...string) string {
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t = subjectToken(t); t != "" {
			out = append(out, t)
		}
	}
	return strings.Join(out, ".")
}

// subjectToken strips characters NATS reserves inside a token
func subjectToken(s string) string {
	repl := strings.NewReplacer(" ", "_", ".", "_", ">", "_", "*", "_", "/", "_", "\t", "_")
	return repl.Replace(strings.TrimSpace(s))
}
