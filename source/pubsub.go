package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/danielorbach/go-component"
	"gocloud.dev/pubsub"
)

// EventSource wraps a pubsub subscription carrying JSON readings.
type EventSource struct {
	subscription *pubsub.Subscription
	now          func() time.Time
}

// NewEventSource returns an EventSource reading from sub.
func NewEventSource(sub *pubsub.Subscription) EventSource {
	return EventSource{subscription: sub, now: time.Now}
}

// Stream returns a component.Proc that continuously receives messages from the
// subscription, decodes the readings they carry and records them into rec.
//
// Malformed messages are logged and dropped; they never stop the stream.
func (s EventSource) Stream(rec Recorder) component.Proc {
	return func(l *component.L) {
		for l.Continue() {
			err := s.receive(l.GraceContext(), rec)
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				// we're shutting down
				return
			}
			if err != nil {
				l.Fatal(err)
			}
		}
	}
}

// receive handles a single message. Only subscription failures are returned.
func (s EventSource) receive(ctx context.Context, rec Recorder) error {
	msg, err := s.subscription.Receive(ctx)
	if err != nil {
		return fmt.Errorf("receive: %w", err)
	}
	// always ack, even if we fail to decode.
	// otherwise, we might get stuck processing
	// the same failed message
	msg.Ack()

	logger := component.Logger(ctx)
	readings, err := DecodeReadings(msg.Body)
	if err != nil {
		logger.Warn("Dropping malformed telemetry message", "error", err)
		return nil
	}
	if err := recordAll(rec, readings, s.now()); err != nil {
		logger.Warn("Dropping incomplete readings", "error", err)
	}
	return nil
}
