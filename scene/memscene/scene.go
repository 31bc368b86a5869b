/*
Package memscene is a headless, in-memory implementation of the scene
interfaces. It keeps a plain object tree with transforms and axis-aligned hit
volumes, renders nothing, and records the renderer settings it is given.

A Scene doubles as the reference resolver for a scene document: Place creates
a placeholder object for a node reference and Resolve maps the reference back
to the live object, the way an engine adapter would after materialising the
document.

Asset loading is validated against an optional gocloud blob.Bucket, so a
missing model or motion file fails the same way it would with a real loader.
*/
package memscene

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"gocloud.dev/blob"

	"github.com/go-digitaltwin/go-scenetwin/scene"
)

// ErrAssetNotFound is returned by the factory when an asset path does not exist
// in the scene's asset bucket.
var ErrAssetNotFound = errors.New("memscene: asset not found")

// Renderer records the settings applied through scene.Renderer.
type Renderer struct {
	ShadowsEnabled bool
	ShadowMap      scene.ShadowMapType
	ToneMapping    scene.ToneMapping
	Encoding       scene.OutputEncoding
}

func (r *Renderer) SetShadowMap(enabled bool, kind scene.ShadowMapType) {
	r.ShadowsEnabled = enabled
	r.ShadowMap = kind
}

func (r *Renderer) SetToneMapping(t scene.ToneMapping)       { r.ToneMapping = t }
func (r *Renderer) SetOutputEncoding(e scene.OutputEncoding) { r.Encoding = e }

// Scene is the root container of an in-memory scene. It implements scene.Root.
//
// A Scene is also a sync.Locker: callers that touch the object tree from more
// than one goroutine (a poll loop and a frame loop, say) hold the lock for the
// duration of their work. Step acquires it on its own.
type Scene struct {
	*Object3D
	mu       sync.Mutex
	camera   *PerspectiveCamera
	renderer Renderer
	assets   *blob.Bucket
	refs     map[string]scene.Object
	frames   []func(scene.Frame)
}

// Option configures a Scene.
type Option func(*Scene)

// WithAssets makes the factory check every mesh and motion path against bucket.
func WithAssets(bucket *blob.Bucket) Option {
	return func(s *Scene) { s.assets = bucket }
}

// WithCamera replaces the default camera.
func WithCamera(c *PerspectiveCamera) Option {
	return func(s *Scene) { s.camera = c }
}

// New returns an empty scene.
func New(opts ...Option) *Scene {
	s := &Scene{
		Object3D: NewObject("scene", scene.Vec3{}),
		camera:   NewPerspectiveCamera(),
		refs:     make(map[string]scene.Object),
	}
	s.self = s
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Scene) Lock()   { s.mu.Lock() }
func (s *Scene) Unlock() { s.mu.Unlock() }

func (s *Scene) Camera() scene.Camera     { return s.camera }
func (s *Scene) Renderer() scene.Renderer { return &s.renderer }
func (s *Scene) Factory() scene.Factory   { return factory{s} }

// Settings returns a copy of the renderer settings applied so far.
func (s *Scene) Settings() Renderer { return s.renderer }

// Place creates a placeholder object for ref with the given name and transform
// and attaches it to the scene. The placeholder has a unit hit volume.
func (s *Scene) Place(ref, name string, t scene.Transform) *Object3D {
	o := NewObject(name, scene.Vec3{0.5, 0.5, 0.5})
	o.SetTransform(t)
	s.Add(o)
	s.refs[ref] = o
	return o
}

// Register maps ref to an arbitrary object, attached or not. A detached object
// stands for a node the engine knows about but has not rendered yet.
func (s *Scene) Register(ref string, obj scene.Object) {
	s.refs[ref] = obj
}

// Resolve returns the object registered for ref.
func (s *Scene) Resolve(ref string) (scene.Object, bool) {
	obj, ok := s.refs[ref]
	return obj, ok
}

// OnFrame registers fn to run on every Step.
func (s *Scene) OnFrame(fn func(scene.Frame)) {
	s.frames = append(s.frames, fn)
}

// Step runs one frame: it supplies a raycaster when the frame carries none and
// calls every OnFrame handler in registration order while holding the scene
// lock.
func (s *Scene) Step(f scene.Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f.Raycaster == nil {
		f.Raycaster = NewRaycaster()
	}
	for _, fn := range s.frames {
		fn(f)
	}
}

type factory struct {
	s *Scene
}

func (f factory) NewBlock(style scene.BlockStyle) scene.Block { return newBlock(style) }
func (f factory) NewText(content string) scene.Text           { return newText(content) }

func (f factory) NewAmbientLight(c scene.Color, intensity float64) scene.Object {
	return newAmbientLight(c, intensity)
}

func (f factory) LoadMesh(ctx context.Context, path string) (scene.Mesh, error) {
	if err := f.check(ctx, path); err != nil {
		return nil, fmt.Errorf("load mesh: %w", err)
	}
	return newMesh(path), nil
}

func (f factory) LoadMotion(ctx context.Context, path string) (scene.Motion, error) {
	if err := f.check(ctx, path); err != nil {
		return nil, fmt.Errorf("load motion: %w", err)
	}
	return Motion{path: path}, nil
}

func (f factory) check(ctx context.Context, path string) error {
	if path == "" {
		return fmt.Errorf("%w: empty path", ErrAssetNotFound)
	}
	if f.s.assets == nil {
		return nil
	}
	exists, err := f.s.assets.Exists(ctx, path)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrAssetNotFound, path)
	}
	return nil
}
