/*
Package poll schedules a scenetwin.Reconciler.

The reconciler exposes no timer of its own. A Task owns the persisted Mode and,
on every tick, calls Exec and then ExecData with a fresh snapshot of the live
data. The default cadence is DefaultInterval.
*/
package poll

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/danielorbach/go-component"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/go-digitaltwin/go-scenetwin"
	"github.com/go-digitaltwin/go-scenetwin/databinding"
)

// DefaultInterval is the tick period of a Task without an explicit Interval.
const DefaultInterval = 500 * time.Millisecond

var meter = otel.Meter("github.com/go-digitaltwin/go-scenetwin/poll")

// tickDuration measures a whole tick, Exec and ExecData together.
var tickDuration metric.Float64Histogram

func init() {
	var err error
	tickDuration, err = meter.Float64Histogram(
		"scenetwin.poll.tick.duration",
		metric.WithDescription("The duration of a single reconciliation tick."),
		metric.WithUnit("ms"),
	)
	if err != nil {
		panic("poll: failed to init 'scenetwin.poll.tick.duration' instrument")
	}
}

// Task drives a Reconciler on a fixed interval.
type Task struct {
	Reconciler *scenetwin.Reconciler
	// Nodes is the scene's node map.
	Nodes scenetwin.NodeMap
	// Resolve resolves node references to rendered objects.
	Resolve scenetwin.Resolver
	// Data returns the live data of one tick.
	Data func() databinding.DataInput
	// Template expands the ${name} placeholders of data bindings.
	Template databinding.Template
	// Rules resolves rule-based maps; nil disables rule evaluation.
	Rules scenetwin.RuleMapResolver
	// Interval is the tick period; zero selects DefaultInterval.
	Interval time.Duration
	// Locker, if set, is held for the duration of every tick, e.g. the scene
	// whose frame loop runs concurrently.
	Locker sync.Locker

	mode atomic.Int32
}

// Mode returns the mode persisted by the last tick.
func (t *Task) Mode() scenetwin.Mode { return scenetwin.Mode(t.mode.Load()) }

func (t *Task) interval() time.Duration {
	if t.Interval <= 0 {
		return DefaultInterval
	}
	return t.Interval
}

// Tick runs a single reconciliation pass and returns the resulting mode.
func (t *Task) Tick(ctx context.Context) scenetwin.Mode {
	start := time.Now()
	if t.Locker != nil {
		t.Locker.Lock()
		defer t.Locker.Unlock()
	}

	mode := t.Reconciler.Exec(ctx, t.Mode(), t.Nodes, t.Resolve)
	t.mode.Store(int32(mode))
	if mode == scenetwin.Active {
		var in databinding.DataInput
		if t.Data != nil {
			in = t.Data()
		}
		t.Reconciler.ExecData(ctx, in, t.Template, t.Rules)
	}

	attrs := attribute.NewSet(attribute.String("mode", mode.String()))
	tickDuration.Record(ctx, float64(time.Since(start))/float64(time.Millisecond), metric.WithAttributeSet(attrs))
	return mode
}

// Proc returns a component.Proc that ticks every interval until the component
// stops.
func (t *Task) Proc() component.Proc {
	return func(l *component.L) {
		logger := component.Logger(l.Context())
		ticker := time.NewTicker(t.interval())
		defer ticker.Stop()
		logger.Info("Reconciliation started", "interval", t.interval())

		for l.Continue() {
			select {
			case <-l.GraceContext().Done():
				return
			case <-ticker.C:
			}
			before := t.Mode()
			if after := t.Tick(l.Context()); after != before {
				logger.Info("Reconciliation mode changed", "from", before.String(), "to", after.String())
			}
		}
	}
}
