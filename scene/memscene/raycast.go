package memscene

import (
	"math"

	"github.com/go-digitaltwin/go-scenetwin/scene"
)

// Raycaster hit-tests memscene objects against world-space bounding boxes.
// Rotated objects are tested against the axis-aligned box enclosing them.
type Raycaster struct {
	ray   scene.Ray
	valid bool
}

// NewRaycaster returns a Raycaster without a ray; it hits nothing until
// SetFromCamera or Set is called.
func NewRaycaster() *Raycaster {
	return &Raycaster{}
}

func (r *Raycaster) SetFromCamera(pointer scene.Vec2, camera scene.Camera) {
	r.Set(camera.Ray(pointer))
}

// Set points the raycaster along ray.
func (r *Raycaster) Set(ray scene.Ray) {
	r.ray = ray
	r.valid = true
}

func (r *Raycaster) IntersectObject(obj scene.Object, recursive bool) bool {
	if !r.valid || obj == nil {
		return false
	}
	if !recursive {
		return r.hits(obj)
	}
	var hit bool
	scene.Inspect(obj, func(o scene.Object) bool {
		if hit || o == nil {
			return false
		}
		hit = r.hits(o)
		return !hit
	})
	return hit
}

// hits tests obj alone, without its descendants.
func (r *Raycaster) hits(obj scene.Object) bool {
	a, ok := obj.(attachable)
	if !ok {
		return false
	}
	lo, hi, ok := a.node().worldBounds()
	return ok && intersectBox(r.ray, lo, hi)
}

// intersectBox is the slab test of a ray against the box [lo, hi]. Only hits in
// front of the ray origin count.
func intersectBox(r scene.Ray, lo, hi scene.Vec3) bool {
	near, far := 0.0, math.Inf(1)
	for i := 0; i < 3; i++ {
		o, d := r.Origin[i], r.Direction[i]
		if math.Abs(d) < 1e-12 {
			if o < lo[i] || o > hi[i] {
				return false
			}
			continue
		}
		t1 := (lo[i] - o) / d
		t2 := (hi[i] - o) / d
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		near = math.Max(near, t1)
		far = math.Min(far, t2)
		if near > far {
			return false
		}
	}
	return true
}
