/*
Package scene declares the narrow surface through which scenetwin talks to a
3D rendering engine. The engine itself (its scene graph, materials, loaders and
render loop) lives outside this module; scenetwin only ever sees the
interfaces below.

An engine adapter implements Object for every node in its graph and Root for
the transitive root container of a rendered scene. The root additionally hands
out the active Camera, the Renderer settings and a Factory that builds the
renderables scenetwin attaches to the scene (UI blocks, text, animated meshes
and lights).

The memscene subpackage provides a headless implementation that is suitable
for tests and for server-side scene mirrors.
*/
package scene

import (
	"context"
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// Vec2 and Vec3 are the vector types shared with the engine.
type (
	Vec2 = mgl64.Vec2
	Vec3 = mgl64.Vec3
)

// Euler is a rotation expressed as three angles in radians, applied in XYZ
// order.
type Euler struct {
	X, Y, Z float64
}

// Transform is the placement of an Object relative to its parent.
type Transform struct {
	Position Vec3
	Rotation Euler
	Scale    Vec3
}

// Identity returns a Transform at the origin with unit scale.
func Identity() Transform {
	return Transform{Scale: Vec3{1, 1, 1}}
}

// WithYaw returns a copy of t whose rotation about the Y axis is replaced by the
// given angle in degrees.
func (t Transform) WithYaw(degrees float64) Transform {
	t.Rotation.Y = mgl64.DegToRad(degrees)
	return t
}

// Color is a 24-bit RGB colour, e.g. 0xffffff.
type Color uint32

// Object is a node of the engine's scene graph.
//
// Implementations need not be safe for concurrent use; scenetwin only touches
// objects from the goroutine that drives the reconciliation loop and from the
// renderer's frame callback, which the engine serialises.
type Object interface {
	Name() string
	Transform() Transform
	SetTransform(Transform)
	Visible() bool
	SetVisible(bool)
	// Parent returns nil for an object that is not attached to any container.
	Parent() Object
	Children() []Object
	Add(child Object)
}

// Root is the transitive root container of a rendered scene.
type Root interface {
	Object
	Camera() Camera
	Renderer() Renderer
	Factory() Factory
}

// Ray is a half-line starting at Origin and heading along Direction.
type Ray struct {
	Origin    Vec3
	Direction Vec3
}

// At returns the point at distance d along r.
func (r Ray) At(d float64) Vec3 {
	return r.Origin.Add(r.Direction.Mul(d))
}

// Camera produces picking rays from normalised device coordinates, where both
// axes of the pointer range over [-1, 1].
type Camera interface {
	Ray(pointer Vec2) Ray
}

// Raycaster tests objects against a picking ray.
type Raycaster interface {
	SetFromCamera(pointer Vec2, camera Camera)
	// IntersectObject reports whether the current ray hits obj, or any of its
	// descendants when recursive is true.
	IntersectObject(obj Object, recursive bool) bool
}

// ShadowMapType selects the shadow filtering technique.
type ShadowMapType int

const (
	BasicShadowMap ShadowMapType = iota
	PCFShadowMap
	PCFSoftShadowMap
	VSMShadowMap
)

// ToneMapping selects the renderer's tone mapping operator.
type ToneMapping int

const (
	NoToneMapping ToneMapping = iota
	LinearToneMapping
	ReinhardToneMapping
	ACESFilmicToneMapping
)

// OutputEncoding selects the colour space of the rendered output.
type OutputEncoding int

const (
	LinearEncoding OutputEncoding = iota
	SRGBEncoding
)

// Renderer exposes the render settings scenetwin adjusts when it takes over a
// scene.
type Renderer interface {
	SetShadowMap(enabled bool, kind ShadowMapType)
	SetToneMapping(ToneMapping)
	SetOutputEncoding(OutputEncoding)
}

// BlockStyle describes the look of a UI block. Zero values mean "engine
// default" except for the colours, which are always applied.
type BlockStyle struct {
	Width             float64
	Height            float64
	Padding           float64
	Margin            float64
	Offset            float64
	BorderRadius      float64
	FontSize          float64
	FontFamily        string
	FontTexture       string
	JustifyContent    string
	ContentDirection  string
	BackgroundColor   Color
	BackgroundOpacity float64
	FontColor         Color
}

// Block is a rectangular UI container.
type Block interface {
	Object
	Style() BlockStyle
	SetStyle(BlockStyle)
}

// Text is a run of text rendered inside a Block.
type Text interface {
	Object
	Content() string
	SetContent(string)
}

// Motion is an animation clip that can be played on a Mesh.
type Motion interface {
	Name() string
}

// Mesh is an animated, skinned model.
type Mesh interface {
	Object
	// Play stops whatever the mesh is playing and plays the given motions
	// together, blending them. Calling Play without motions stops playback.
	Play(motions ...Motion)
}

// Factory builds renderables that scenetwin attaches to a scene.
type Factory interface {
	NewBlock(BlockStyle) Block
	NewText(content string) Text
	NewAmbientLight(c Color, intensity float64) Object
	LoadMesh(ctx context.Context, path string) (Mesh, error)
	LoadMotion(ctx context.Context, path string) (Motion, error)
}

// Frame carries the per-frame input of the renderer loop.
type Frame struct {
	// Pointer is the pointer position in normalised device coordinates, or nil
	// when the pointer is outside the viewport.
	Pointer *Vec2
	// Select is true while the primary pointer button is held.
	Select    bool
	Raycaster Raycaster
	Delta     time.Duration
}

// FindRoot follows the parent chain of obj and returns the top-most ancestor
// (obj itself when it has no parent). It returns nil for a nil obj.
func FindRoot(obj Object) Object {
	if obj == nil {
		return nil
	}
	current := obj
	for current.Parent() != nil {
		current = current.Parent()
	}
	return current
}
