package scenetwin

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var tracer = otel.Tracer("github.com/go-digitaltwin/go-scenetwin")
var meter = otel.Meter("github.com/go-digitaltwin/go-scenetwin")

const (
	// wrapperTag is the attribute key used to associate records with the tag a
	// wrapper replaced. This enables analysis of stateChanges both across the whole
	// scene and per tag.
	wrapperTag = "tag"
	// wrapperKind is the attribute key used to associate records with the wrapper
	// variant (model, button or text).
	wrapperKind = "kind"
)

var (
	// tagsBound counts the tags bound to a wrapper when a reconciler takes over a
	// scene.
	tagsBound metric.Int64Counter
	// tagsUnbound counts the configured tags that could not be bound when a
	// reconciler took over a scene (absent from the scene, or not rendered yet).
	tagsUnbound metric.Int64Counter
	// stateChanges counts the state changes applied to wrappers.
	//
	// Each record is associated with the wrapperTag and wrapperKind.
	stateChanges metric.Int64Counter
	// syncDuration measures a single data-synchronization pass over every bound
	// wrapper, including value extraction and rule evaluation.
	syncDuration metric.Float64Histogram
)

func init() {
	var err error
	tagsBound, err = meter.Int64Counter(
		"scenetwin.tags.bound",
		metric.WithDescription("The number of placeholder tags bound to a wrapper."),
	)
	if err != nil {
		panic("scenetwin: failed to init 'scenetwin.tags.bound' instrument")
	}

	tagsUnbound, err = meter.Int64Counter(
		"scenetwin.tags.unbound",
		metric.WithDescription("The number of configured tags that could not be bound when taking over a scene."),
	)
	if err != nil {
		panic("scenetwin: failed to init 'scenetwin.tags.unbound' instrument")
	}

	stateChanges, err = meter.Int64Counter(
		"scenetwin.state.changes",
		metric.WithDescription("The number of state changes applied to wrappers."),
	)
	if err != nil {
		panic("scenetwin: failed to init 'scenetwin.state.changes' instrument")
	}

	syncDuration, err = meter.Float64Histogram(
		"scenetwin.sync.duration",
		metric.WithDescription("The duration of a single data-synchronization pass over every bound wrapper."),
		metric.WithUnit("ms"),
	)
	if err != nil {
		panic("scenetwin: failed to init 'scenetwin.sync.duration' instrument")
	}
}

// measureStateChange records an applied state change, labelled with the tag and
// the variant of the wrapper.
func measureStateChange(ctx context.Context, tag string, kind Kind) {
	// According to go.opentelemetry.io/otel/attribute package documentation,
	// attribute.Set should be used instead of attribute.KeyValue directly for
	// performance optimization.
	attrs := attribute.NewSet(
		attribute.String(wrapperTag, tag),
		attribute.String(wrapperKind, kind.String()),
	)
	stateChanges.Add(ctx, 1, metric.WithAttributeSet(attrs))
}

// measureSync records the duration of a data-synchronization pass in
// milliseconds.
func measureSync(ctx context.Context, d time.Duration) {
	// We use floating-point division here for higher precision (instead of the
	// Millisecond method).
	syncDuration.Record(ctx, float64(d)/float64(time.Millisecond))
}
