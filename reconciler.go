package scenetwin

import (
	"context"
	"maps"
	"slices"
	"sort"
	"time"

	"github.com/danielorbach/go-component"
	"go.opentelemetry.io/otel/attribute"

	"github.com/go-digitaltwin/go-scenetwin/databinding"
	"github.com/go-digitaltwin/go-scenetwin/rules"
	"github.com/go-digitaltwin/go-scenetwin/scene"
)

// Mode is the persisted state of a scene takeover. Callers keep it between
// ticks and pass it to every Exec call, because the Reconciler that produced it
// may be recreated while the mode must survive.
type Mode int

const (
	// Initializing means the external scene has not been taken over yet.
	Initializing Mode = iota
	// Active means the wrappers are bound. It is terminal for a session.
	Active
)

func (m Mode) String() string {
	switch m {
	case Initializing:
		return "initializing"
	case Active:
		return "active"
	default:
		return "unknown"
	}
}

// Overrides declares which tags to replace and how: tag name to the factory
// producing its wrapper.
type Overrides map[string]Factory

// An Overrider supplies the overrides of a scene once its root is known, so
// that factories can attach their wrappers to it.
type Overrider interface {
	Overrides(root scene.Root) Overrides
}

// OverriderFunc adapts a function to the Overrider interface.
type OverriderFunc func(root scene.Root) Overrides

func (f OverriderFunc) Overrides(root scene.Root) Overrides { return f(root) }

// ValuesProvider pulls the live values a binding selects, keyed by name.
type ValuesProvider func(in databinding.DataInput, b databinding.ValueDataBinding, t databinding.Template) map[string]any

// RuleEvaluator maps values to a target state using m, falling back to
// defaultState when no rule matches. It reports ok == false when it cannot
// produce a state at all.
type RuleEvaluator func(defaultState State, values map[string]any, m *rules.Map) (target State, ok bool)

// RuleMapResolver resolves a rule-based map by its identifier.
type RuleMapResolver func(id string) (*rules.Map, bool)

// StateObserver is notified of every state change the reconciler applied.
type StateObserver func(ctx context.Context, tag string, obj Object, s State)

// EvaluateWith adapts a rules.Evaluator to a RuleEvaluator.
func EvaluateWith(e *rules.Evaluator) RuleEvaluator {
	return func(defaultState State, values map[string]any, m *rules.Map) (State, bool) {
		return State(e.Evaluate(string(defaultState), values, m)), true
	}
}

// An Option configures a Reconciler.
type Option func(*Reconciler)

// WithValuesProvider replaces databinding.ValuesOf as the source of wrapper
// values.
func WithValuesProvider(p ValuesProvider) Option {
	return func(r *Reconciler) { r.values = p }
}

// WithRuleEvaluator replaces the default CUE rule evaluator.
func WithRuleEvaluator(e RuleEvaluator) Option {
	return func(r *Reconciler) { r.evaluate = e }
}

// WithEnvironment replaces DefaultEnvironment. A nil Environment leaves the
// scene untouched.
func WithEnvironment(env Environment) Option {
	return func(r *Reconciler) { r.environment = env }
}

// WithStateObserver registers an observer of applied state changes.
func WithStateObserver(o StateObserver) Option {
	return func(r *Reconciler) { r.observers = append(r.observers, o) }
}

// Reconciler takes over an external scene once it is ready and then keeps the
// state of every bound wrapper in sync with live values.
//
// The application drives it from a scheduled task: Exec then ExecData on every
// tick, and Animate from the renderer's frame loop. Exec and ExecData must not
// be called concurrently with each other or with Animate; the Registry may be
// read from anywhere.
type Reconciler struct {
	overrider   Overrider
	values      ValuesProvider
	evaluate    RuleEvaluator
	environment Environment
	observers   []StateObserver

	registry *Registry
	root     scene.Root
}

// NewReconciler returns a Reconciler that takes its overrides from o.
func NewReconciler(o Overrider, opts ...Option) *Reconciler {
	r := &Reconciler{
		overrider:   o,
		values:      databinding.ValuesOf,
		evaluate:    EvaluateWith(rules.NewEvaluator()),
		environment: DefaultEnvironment,
		registry:    newRegistry(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Registry returns the tag to wrapper registry.
func (r *Reconciler) Registry() *Registry { return r.registry }

// Root returns the scene root found when the reconciler took over the scene, or
// nil before that.
func (r *Reconciler) Root() scene.Root { return r.root }

// Exec advances the takeover state machine by one tick and returns the new
// mode.
//
// Once mode is Active, Exec returns it unchanged. Otherwise Exec looks for the
// root container of any node the resolver can materialise; while there is none
// the scene is not ready and Exec returns Initializing. When a root is found,
// Exec sets up the environment, binds every override whose tag it can locate in
// nodes, and returns Active. Tags it cannot bind are skipped for the session.
func (r *Reconciler) Exec(ctx context.Context, mode Mode, nodes NodeMap, resolve Resolver) Mode {
	if mode == Active {
		return Active
	}
	if r.root != nil {
		// This reconciler already took over a scene; the caller lost the mode.
		return Active
	}

	ctx, span := tracer.Start(ctx, "scenetwin.Reconciler.Exec")
	defer span.End()
	logger := component.Logger(ctx)

	root := findSceneRoot(nodes, resolve)
	if root == nil {
		logger.Debug("Scene not ready", "nodes", len(nodes))
		return Initializing
	}
	r.root = root
	if r.environment != nil {
		r.environment(root)
	}

	overrides := r.overrider.Overrides(root)
	var bound, unbound int64
	for _, tag := range slices.Sorted(maps.Keys(overrides)) {
		f := overrides[tag]
		if f == nil {
			continue
		}
		obj := SearchTag(nodes, tag, f)
		if obj == nil {
			unbound++
			logger.Debug("Tag not bound", "tag", tag)
			continue
		}
		r.registry.bind(tag, obj)
		bound++
		logger.Debug("Tag bound", "tag", tag, "kind", obj.Kind().String(), "loaded", obj.IsLoaded())
	}
	tagsBound.Add(ctx, bound)
	tagsUnbound.Add(ctx, unbound)
	span.SetAttributes(
		attribute.Int64("scenetwin.tags.bound", bound),
		attribute.Int64("scenetwin.tags.unbound", unbound),
	)
	logger.Info("Scene taken over", "bound", bound, "unbound", unbound)
	return Active
}

// findSceneRoot returns the root container of the first node, in ascending
// reference order, whose renderable is attached to a scene.Root.
func findSceneRoot(nodes NodeMap, resolve Resolver) scene.Root {
	if resolve == nil {
		return nil
	}
	refs := make([]NodeRef, 0, len(nodes))
	for ref := range nodes {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i] < refs[j] })
	for _, ref := range refs {
		obj, ok := resolve(ref)
		if !ok || obj == nil {
			continue
		}
		if root, ok := scene.FindRoot(obj).(scene.Root); ok {
			return root
		}
	}
	return nil
}

// ExecData synchronizes the state of every bound wrapper with in.
//
// For each wrapper, ExecData pulls the values its anchor is bound to, resolves
// the anchor's rule-based map and evaluates it with StateUndefined as the
// baseline. Only a concrete target is applied: a wrapper without values, or
// whose rules do not match, keeps its current state.
func (r *Reconciler) ExecData(ctx context.Context, in databinding.DataInput, t databinding.Template, resolveRules RuleMapResolver) {
	if r.registry.Len() == 0 {
		return
	}
	start := time.Now()
	ctx, span := tracer.Start(ctx, "scenetwin.Reconciler.ExecData")
	defer span.End()
	logger := component.Logger(ctx)

	var applied int
	for tag, obj := range r.registry.All() {
		anchor := obj.Base().Anchor()
		values := r.values(in, anchor.ValueDataBinding, t)
		if len(values) == 0 {
			continue
		}
		var m *rules.Map
		if resolveRules != nil {
			m, _ = resolveRules(anchor.RuleBasedMapID)
		}
		target, ok := r.evaluate(StateUndefined, values, m)
		if !ok || target == "" || target == StateUndefined {
			continue
		}

		before := obj.State()
		obj.StateChange(target)
		if obj.State() == before {
			continue
		}
		applied++
		measureStateChange(ctx, tag, obj.Kind())
		logger.Debug("State changed", "tag", tag, "from", string(before), "to", string(target))
		for _, observe := range r.observers {
			observe(ctx, tag, obj, target)
		}
	}
	span.SetAttributes(attribute.Int("scenetwin.state.applied", applied))
	measureSync(ctx, time.Since(start))
}

// Animate hands a renderer frame to every loaded wrapper, in ascending tag
// order.
func (r *Reconciler) Animate(f scene.Frame) {
	for _, obj := range r.registry.All() {
		if obj.IsLoaded() {
			obj.Animate(f)
		}
	}
}
