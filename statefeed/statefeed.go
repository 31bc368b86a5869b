/*
Package statefeed publishes the state changes a scenetwin.Reconciler applies.

A Publisher is registered on the reconciler as a StateObserver. Observing never
blocks the reconciliation tick: changes are queued and a separate procedure
sends them to a gocloud pubsub topic, one JSON message per change:

	{"session": "6f1c...", "tag": "Lamp", "kind": "model", "state": "hot",
	 "time": "2024-05-01T12:00:00Z"}

The changes of one tag are sent in the order they were applied. The tag is also
carried as the "tag" metadata key, so that brokers that partition by key keep
that order for consumers.
*/
package statefeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/danielorbach/go-component"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gocloud.dev/pubsub"
	"golang.org/x/sync/errgroup"

	"github.com/go-digitaltwin/go-scenetwin"
)

var tracer = otel.Tracer("github.com/go-digitaltwin/go-scenetwin/statefeed")

// StateChanged is the message published for every applied state change.
type StateChanged struct {
	Session uuid.UUID `json:"session"`
	Tag     string    `json:"tag"`
	Kind    string    `json:"kind"`
	State   string    `json:"state"`
	Time    time.Time `json:"time"`
}

// Publisher queues state changes and sends them to a topic.
type Publisher struct {
	topic   *pubsub.Topic
	session uuid.UUID
	now     func() time.Time

	mu      sync.Mutex
	pending []StateChanged
	signal  chan struct{}
}

// New returns a Publisher sending to topic. Every message it sends carries a
// fresh session identifier, so that consumers can tell restarts apart.
func New(topic *pubsub.Topic) *Publisher {
	return &Publisher{
		topic:   topic,
		session: uuid.New(),
		now:     time.Now,
		signal:  make(chan struct{}, 1),
	}
}

// Session returns the identifier stamped on every message.
func (p *Publisher) Session() uuid.UUID { return p.session }

// Observe queues a state change. It has the signature of a
// scenetwin.StateObserver.
func (p *Publisher) Observe(_ context.Context, tag string, obj scenetwin.Object, s scenetwin.State) {
	p.mu.Lock()
	p.pending = append(p.pending, StateChanged{
		Session: p.session,
		Tag:     tag,
		Kind:    obj.Kind().String(),
		State:   string(s),
		Time:    p.now(),
	})
	p.mu.Unlock()

	select {
	case p.signal <- struct{}{}:
	default:
	}
}

// Pending returns the number of queued changes.
func (p *Publisher) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

// Flush sends every queued change. The changes of one tag are sent one after
// another in the order they were observed, while different tags are sent
// concurrently. When a change could not be sent, it and every later change of
// its tag are queued again, ahead of newer ones.
func (p *Publisher) Flush(ctx context.Context) (err error) {
	p.mu.Lock()
	batch := p.pending
	p.pending = nil
	p.mu.Unlock()
	if len(batch) == 0 {
		return nil
	}

	ctx, span := tracer.Start(ctx, "statefeed.Publisher.Flush", trace.WithAttributes(
		attribute.Int("statefeed.batch.size", len(batch)),
	))
	defer span.End()

	// Indices into batch, grouped by tag.
	byTag := make(map[string][]int)
	for i, c := range batch {
		byTag[c.Tag] = append(byTag[c.Tag], i)
	}
	sent := make([]bool, len(batch))
	// Other tags keep sending when one fails.
	var g errgroup.Group
	for _, indices := range byTag {
		g.Go(func() error {
			for _, i := range indices {
				if err := p.send(ctx, batch[i]); err != nil {
					return err
				}
				sent[i] = true
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		p.requeue(batch, sent)
		err = fmt.Errorf("send state changes: %w", err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// requeue puts the unsent changes of batch back in front of the queue. Sending
// stops at the first failure of a tag, so the unsent changes of every tag are a
// suffix of its changes and their order is kept.
func (p *Publisher) requeue(batch []StateChanged, sent []bool) {
	var retry []StateChanged
	for i, c := range batch {
		if !sent[i] {
			retry = append(retry, c)
		}
	}
	p.mu.Lock()
	p.pending = append(retry, p.pending...)
	p.mu.Unlock()
}

func (p *Publisher) send(ctx context.Context, c StateChanged) error {
	body, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	msg := &pubsub.Message{Body: body, Metadata: map[string]string{"tag": c.Tag}}
	if err := p.topic.Send(ctx, msg); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	return nil
}

// Proc returns a component.Proc that flushes queued changes as they arrive,
// and once more when the component stops.
func (p *Publisher) Proc() component.Proc {
	return func(l *component.L) {
		logger := component.Logger(l.Context()).With(slog.String("session", p.session.String()))
		defer func() {
			// The component context may be cancelled by now.
			ctx, cancel := context.WithTimeout(context.WithoutCancel(l.Context()), 5*time.Second)
			defer cancel()
			if err := p.Flush(ctx); err != nil {
				logger.Error("Couldn't flush state changes on shutdown", slog.Any("error", err))
			}
		}()
		for l.Continue() {
			select {
			case <-l.GraceContext().Done():
				return
			case <-p.signal:
			}
			if err := p.Flush(l.Context()); err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				logger.Warn("Couldn't publish state changes", slog.Any("error", err))
			}
		}
	}
}
