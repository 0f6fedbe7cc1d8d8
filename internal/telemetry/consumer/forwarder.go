// Package consumer forwards auth events from Kafka to Loki.
package consumer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"task-tracker/backend/internal/metrics"
)

const pushTimeout = 10 * time.Second

// MessageReader is the part of *kafka.Reader the forwarder uses.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

// Pusher ships one raw auth event. *loki.Client satisfies it.
type Pusher interface {
	PushEventJSON(ctx context.Context, raw []byte) error
}

// Forwarder copies every consumed message to a Pusher. Push failures are logged and counted;
// the message is still committed so one bad line cannot stall the group.
type Forwarder struct {
	reader  MessageReader
	pusher  Pusher
	metrics *metrics.Metrics
	log     *slog.Logger
}

// NewForwarder returns a Forwarder. m may be nil.
func NewForwarder(reader MessageReader, pusher Pusher, m *metrics.Metrics, log *slog.Logger) *Forwarder {
	if log == nil {
		log = slog.Default()
	}
	return &Forwarder{reader: reader, pusher: pusher, metrics: m, log: log}
}

// Run forwards until ctx is cancelled. It returns nil on cancellation.
func (f *Forwarder) Run(ctx context.Context) error {
	for {
		msg, err := f.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			f.log.WarnContext(ctx, "worker: kafka read failed", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}
		f.forward(ctx, msg)
	}
}

func (f *Forwarder) forward(ctx context.Context, msg kafka.Message) {
	pushCtx, cancel := context.WithTimeout(ctx, pushTimeout)
	defer cancel()
	if err := f.pusher.PushEventJSON(pushCtx, msg.Value); err != nil {
		f.metrics.EventForwarded(false)
		f.log.WarnContext(ctx, "worker: loki push failed",
			"partition", msg.Partition, "offset", msg.Offset, "error", err)
		return
	}
	f.metrics.EventForwarded(true)
}
