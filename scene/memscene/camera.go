package memscene

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/go-digitaltwin/go-scenetwin/scene"
)

// PerspectiveCamera is a pinhole camera looking from Position towards Target.
type PerspectiveCamera struct {
	Position scene.Vec3
	Target   scene.Vec3
	Up       scene.Vec3
	// FovY is the vertical field of view in degrees.
	FovY   float64
	Aspect float64
}

// NewPerspectiveCamera returns a camera with a 50 degree vertical field of view
// and a 16:9 aspect ratio, placed 10 units in front of the origin looking at it.
func NewPerspectiveCamera() *PerspectiveCamera {
	return &PerspectiveCamera{
		Position: scene.Vec3{0, 0, 10},
		Target:   scene.Vec3{0, 0, 0},
		Up:       scene.Vec3{0, 1, 0},
		FovY:     50,
		Aspect:   16.0 / 9.0,
	}
}

// Ray returns the picking ray through the pointer, given in normalised device
// coordinates.
func (c *PerspectiveCamera) Ray(pointer scene.Vec2) scene.Ray {
	forward := c.Target.Sub(c.Position).Normalize()
	right := forward.Cross(c.Up).Normalize()
	up := right.Cross(forward)

	tanHalf := math.Tan(mgl64.DegToRad(c.FovY) / 2)
	direction := forward.
		Add(right.Mul(pointer.X() * tanHalf * c.Aspect)).
		Add(up.Mul(pointer.Y() * tanHalf))

	return scene.Ray{Origin: c.Position, Direction: direction.Normalize()}
}
