package scenetwin

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/danielorbach/go-component"

	"github.com/go-digitaltwin/go-scenetwin/scene"
)

// ModelParams configures the animated model that replaces a placeholder.
type ModelParams struct {
	// Path locates the model asset.
	Path string
	// Scale is the uniform scale factor of the model; zero keeps the scale
	// captured from the placeholder.
	Scale float64
	// Angle is the yaw of the model in degrees.
	Angle float64
	// Motions maps a motion key to the motion asset path.
	Motions map[string]string
}

// ModelStateHandler picks the motion keys to play, together, when the model
// enters state s. Returning no keys stops playback.
type ModelStateHandler func(mesh scene.Mesh, m *Model, s State) []string

// Model is the wrapper variant that replaces a placeholder with an animated
// mesh and plays motions according to its state.
type Model struct {
	Wrapper
	mesh        scene.Mesh
	motions     map[string]scene.Motion
	err         error
	onAnimating func(scene.Mesh, scene.Frame)
}

// NewModel returns an unloaded Model placed at t.
func NewModel(t scene.Transform, a Anchor) *Model {
	m := &Model{}
	m.init(t, a)
	return m
}

func (m *Model) Kind() Kind { return KindModel }

// Create loads the model and every motion through the root's factory, places
// the mesh at the captured transform and adds it to root. The model is loaded
// only when every asset loaded; otherwise Err reports why and the model stays
// invisible to state changes.
func (m *Model) Create(ctx context.Context, root scene.Root, p ModelParams) *Model {
	m.log = component.Logger(ctx).With("wrapper", KindModel.String(), "model", p.Path)
	factory := root.Factory()

	mesh, err := factory.LoadMesh(ctx, p.Path)
	if err != nil {
		m.fail(err)
		return m
	}

	// Motion keys are loaded in order so that failures are reported consistently.
	keys := make([]string, 0, len(p.Motions))
	for key := range p.Motions {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	motions := make(map[string]scene.Motion, len(keys))
	var errs []error
	for _, key := range keys {
		motion, err := factory.LoadMotion(ctx, p.Motions[key])
		if err != nil {
			errs = append(errs, fmt.Errorf("motion %q: %w", key, err))
			continue
		}
		motions[key] = motion
	}
	if err := errors.Join(errs...); err != nil {
		m.fail(err)
		return m
	}

	t := m.placement(p.Angle)
	if p.Scale > 0 {
		t.Scale = scene.Vec3{p.Scale, p.Scale, p.Scale}
	}
	mesh.SetTransform(t)
	root.Add(mesh)

	m.mesh = mesh
	m.motions = motions
	m.setLoaded()
	return m
}

func (m *Model) fail(err error) {
	m.err = fmt.Errorf("create model: %w", err)
	m.log.Warn("Failed to create model", "error", err)
}

// Err returns the reason Create failed, if it did.
func (m *Model) Err() error { return m.err }

// Mesh returns the loaded mesh, or nil before a successful Create.
func (m *Model) Mesh() scene.Mesh { return m.mesh }

// BindOnStateChange registers h to choose the motions played on every applied
// state change. Keys unknown to the motion map are skipped.
func (m *Model) BindOnStateChange(h ModelStateHandler) *Model {
	m.OnChangeState(func(s State) {
		if m.mesh == nil {
			return
		}
		keys := h(m.mesh, m, s)
		play := make([]scene.Motion, 0, len(keys))
		for _, key := range keys {
			motion, ok := m.motions[key]
			if !ok {
				m.log.Warn("Unknown motion key", "key", key, "state", string(s))
				continue
			}
			play = append(play, motion)
		}
		m.mesh.Play(play...)
	})
	return m
}

// OnAnimating registers fn to run on every frame once the model has loaded.
func (m *Model) OnAnimating(fn func(mesh scene.Mesh, f scene.Frame)) *Model {
	m.onAnimating = fn
	return m
}

func (m *Model) Animate(f scene.Frame) {
	if m.onAnimating != nil && m.mesh != nil {
		m.onAnimating(m.mesh, f)
	}
}
