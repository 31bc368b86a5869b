package scenetwin

import (
	"log/slog"
	"sync"

	"github.com/go-digitaltwin/go-scenetwin/scene"
)

// Kind enumerates the closed set of wrapper variants.
type Kind int

const (
	KindModel Kind = iota + 1
	KindButton
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindModel:
		return "model"
	case KindButton:
		return "button"
	case KindText:
		return "text"
	default:
		return "unknown"
	}
}

// Object is the capability set shared by every wrapper variant: *Model, *Button
// and *Text. The reconciler only ever talks to wrappers through it.
type Object interface {
	Kind() Kind
	// Base returns the shared transform and state record of the wrapper.
	Base() *Wrapper
	StateChange(s State)
	State() State
	IsLoaded() bool
	// Animate runs the per-frame work of the wrapper: hit-testing and the
	// registered animation handler.
	Animate(f scene.Frame)
}

// Wrapper is the record every wrapper variant embeds. It holds the transform
// captured from the replaced placeholder, the placeholder's anchor, the
// synchronized state and the load-completion flag, and it implements the
// guarded state-transition protocol.
//
// A Wrapper is safe for concurrent use, so that status readers may inspect it
// while the reconciler drives it. The state-change hook runs without the lock
// held.
type Wrapper struct {
	mu        sync.Mutex
	transform scene.Transform
	anchor    Anchor
	state     State
	loaded    bool
	onChange  func(State)
	log       *slog.Logger
}

func (w *Wrapper) init(t scene.Transform, a Anchor) {
	w.transform = t
	w.anchor = a
	w.log = slog.Default()
}

// Base returns w itself.
func (w *Wrapper) Base() *Wrapper { return w }

// Transform returns the transform captured when the wrapper was created. It is
// not linked to the placeholder afterwards.
func (w *Wrapper) Transform() scene.Transform { return w.transform }

// Anchor returns the anchor metadata of the replaced placeholder.
func (w *Wrapper) Anchor() Anchor { return w.anchor }

// State returns the current synchronized state; it is empty until the first
// accepted transition.
func (w *Wrapper) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// IsLoaded reports whether the visual representation of the wrapper is ready to
// receive state-driven updates.
func (w *Wrapper) IsLoaded() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.loaded
}

func (w *Wrapper) setLoaded() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.loaded = true
}

// OnChangeState registers the hook notified after every applied transition.
// Variants that react to state changes themselves (see Model.BindOnStateChange)
// install their own hook through the same slot, so the last registration wins.
func (w *Wrapper) OnChangeState(fn func(State)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = fn
}

// StateChange requests a transition to s.
//
// A transition to the current state is a no-op. The StateInit sentinel is
// stored unconditionally and notifies nobody. Any other state is ignored until
// the wrapper has loaded; once it has, the state is stored and the hook
// registered with OnChangeState is called with it.
func (w *Wrapper) StateChange(s State) {
	w.mu.Lock()
	if s == w.state {
		w.mu.Unlock()
		return
	}
	if s == StateInit {
		w.state = s
		w.mu.Unlock()
		return
	}
	if !w.loaded {
		w.mu.Unlock()
		return
	}
	w.state = s
	hook := w.onChange
	w.mu.Unlock()

	if hook != nil {
		hook(s)
	}
}

// placement returns the captured transform with its yaw replaced by angle
// degrees, the way every variant positions its renderable.
func (w *Wrapper) placement(angle float64) scene.Transform {
	return w.transform.WithYaw(angle)
}
