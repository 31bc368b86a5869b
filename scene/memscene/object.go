package memscene

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/go-digitaltwin/go-scenetwin/scene"
)

// Object3D is the in-memory scene graph node. Every other memscene type embeds
// it and exposes itself (not the embedded node) as parent of its children.
//
// The zero value is not usable; use NewObject.
type Object3D struct {
	name      string
	transform scene.Transform
	visible   bool
	// Extent is the half size of the object's hit volume in local space. An
	// object with a zero extent on any axis cannot be hit by a ray.
	extent   scene.Vec3
	parent   scene.Object
	children []scene.Object
	// self is the outer value that embeds this node; it is what children see as
	// their parent.
	self scene.Object
}

// attachable is implemented by every memscene object through the embedded
// Object3D.
type attachable interface {
	node() *Object3D
}

// NewObject returns a visible, detached node with an identity transform and the
// given hit-volume half extent.
func NewObject(name string, extent scene.Vec3) *Object3D {
	o := &Object3D{
		name:      name,
		transform: scene.Identity(),
		visible:   true,
		extent:    extent,
	}
	o.self = o
	return o
}

func (o *Object3D) node() *Object3D { return o }

func (o *Object3D) Name() string                   { return o.name }
func (o *Object3D) Transform() scene.Transform     { return o.transform }
func (o *Object3D) SetTransform(t scene.Transform) { o.transform = t }
func (o *Object3D) Visible() bool                  { return o.visible }
func (o *Object3D) SetVisible(v bool)              { o.visible = v }
func (o *Object3D) Parent() scene.Object           { return o.parent }
func (o *Object3D) Extent() scene.Vec3             { return o.extent }

// Children returns a copy of the child list.
func (o *Object3D) Children() []scene.Object {
	c := make([]scene.Object, len(o.children))
	copy(c, o.children)
	return c
}

// Add attaches child to o, detaching it from its previous parent first. Objects
// that were not built by this package are ignored.
func (o *Object3D) Add(child scene.Object) {
	a, ok := child.(attachable)
	if !ok {
		return
	}
	n := a.node()
	if n == o {
		return
	}
	if n.parent != nil {
		if p, ok := n.parent.(attachable); ok {
			p.node().remove(n.self)
		}
	}
	n.parent = o.self
	o.children = append(o.children, n.self)
}

func (o *Object3D) remove(child scene.Object) {
	for i, c := range o.children {
		if c == child {
			o.children = append(o.children[:i], o.children[i+1:]...)
			return
		}
	}
}

// localMatrix composes translation, XYZ rotation and scale.
func localMatrix(t scene.Transform) mgl64.Mat4 {
	rotation := mgl64.AnglesToQuat(t.Rotation.X, t.Rotation.Y, t.Rotation.Z, mgl64.XYZ).Mat4()
	translation := mgl64.Translate3D(t.Position.X(), t.Position.Y(), t.Position.Z())
	scale := mgl64.Scale3D(t.Scale.X(), t.Scale.Y(), t.Scale.Z())
	return translation.Mul4(rotation).Mul4(scale)
}

// WorldMatrix returns the transform from o's local space to world space.
func (o *Object3D) WorldMatrix() mgl64.Mat4 {
	m := localMatrix(o.transform)
	for p := o.parent; p != nil; p = p.Parent() {
		m = localMatrix(p.Transform()).Mul4(m)
	}
	return m
}

// WorldPosition returns the origin of o in world space.
func (o *Object3D) WorldPosition() scene.Vec3 {
	return mgl64.TransformCoordinate(scene.Vec3{}, o.WorldMatrix())
}

// worldBounds returns the world-space axis-aligned box enclosing o's local hit
// volume, and false when o has no hit volume.
func (o *Object3D) worldBounds() (lo, hi scene.Vec3, ok bool) {
	e := o.extent
	if e.X() <= 0 || e.Y() <= 0 || e.Z() <= 0 {
		return lo, hi, false
	}
	m := o.WorldMatrix()
	lo = scene.Vec3{math.Inf(1), math.Inf(1), math.Inf(1)}
	hi = scene.Vec3{math.Inf(-1), math.Inf(-1), math.Inf(-1)}
	for _, sx := range []float64{-1, 1} {
		for _, sy := range []float64{-1, 1} {
			for _, sz := range []float64{-1, 1} {
				corner := mgl64.TransformCoordinate(scene.Vec3{sx * e.X(), sy * e.Y(), sz * e.Z()}, m)
				for i := 0; i < 3; i++ {
					lo[i] = math.Min(lo[i], corner[i])
					hi[i] = math.Max(hi[i], corner[i])
				}
			}
		}
	}
	return lo, hi, true
}
