package memscene

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gocloud.dev/blob/memblob"

	"github.com/go-digitaltwin/go-scenetwin/scene"
)

func TestFindRoot(t *testing.T) {
	s := New()
	placeholder := s.Place("ref-1", "Lamp", scene.Identity())
	block := s.Factory().NewBlock(scene.BlockStyle{Width: 1, Height: 1})
	placeholder.Add(block)

	if got := scene.FindRoot(block); got != scene.Object(s) {
		t.Fatalf("FindRoot(block) = %v, want the scene", got)
	}
	if _, ok := scene.FindRoot(block).(scene.Root); !ok {
		t.Fatal("FindRoot(block) does not implement scene.Root")
	}

	detached := NewObject("detached", scene.Vec3{})
	if got := scene.FindRoot(detached); got != scene.Object(detached) {
		t.Fatalf("FindRoot(detached) = %v, want itself", got)
	}
	if detached.Parent() != nil {
		t.Fatal("detached object reports a non-nil parent")
	}
}

func TestAddReparents(t *testing.T) {
	s := New()
	a := s.Place("a", "A", scene.Identity())
	b := s.Place("b", "B", scene.Identity())
	child := NewObject("child", scene.Vec3{})

	a.Add(child)
	b.Add(child)

	if len(a.Children()) != 0 {
		t.Errorf("old parent still has %d children", len(a.Children()))
	}
	if got := child.Parent(); got != scene.Object(b) {
		t.Errorf("child parent = %v, want B", got)
	}
}

func TestInspect(t *testing.T) {
	s := New()
	a := s.Place("a", "A", scene.Identity())
	a.Add(NewObject("A1", scene.Vec3{}))
	s.Place("b", "B", scene.Identity())

	var names []string
	scene.Inspect(s, func(obj scene.Object) bool {
		if obj != nil {
			names = append(names, obj.Name())
		}
		return true
	})
	want := []string{"scene", "A", "A1", "B"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("Inspect order mismatch (-want +got):\n%s", diff)
	}
}

func TestRaycaster(t *testing.T) {
	s := New()
	placeholder := s.Place("ref", "Button", scene.Transform{
		Position: scene.Vec3{3, 0, 0},
		Scale:    scene.Vec3{1, 1, 1},
	})
	block := s.Factory().NewBlock(scene.BlockStyle{Width: 1, Height: 0.5})
	placeholder.Add(block)

	tests := []struct {
		name      string
		ray       scene.Ray
		recursive bool
		target    scene.Object
		want      bool
	}{
		{
			name:   "straight hit",
			ray:    scene.Ray{Origin: scene.Vec3{3, 0, 10}, Direction: scene.Vec3{0, 0, -1}},
			target: block,
			want:   true,
		},
		{
			name:   "miss beside",
			ray:    scene.Ray{Origin: scene.Vec3{4, 0, 10}, Direction: scene.Vec3{0, 0, -1}},
			target: block,
			want:   false,
		},
		{
			name:   "behind origin",
			ray:    scene.Ray{Origin: scene.Vec3{3, 0, 10}, Direction: scene.Vec3{0, 0, 1}},
			target: block,
			want:   false,
		},
		{
			name:      "through descendant",
			ray:       scene.Ray{Origin: scene.Vec3{3, 0.4, 10}, Direction: scene.Vec3{0, 0, -1}},
			recursive: true,
			target:    placeholder,
			want:      true,
		},
		{
			name:   "descendant ignored without recursion",
			ray:    scene.Ray{Origin: scene.Vec3{3, 0.4, 10}, Direction: scene.Vec3{0, 0, -1}},
			target: placeholder,
			want:   false,
		},
		{
			name:      "from the scene root",
			ray:       scene.Ray{Origin: scene.Vec3{3, 0, 10}, Direction: scene.Vec3{0, 0, -1}},
			recursive: true,
			target:    s,
			want:      true,
		},
		{
			name:   "objects without volume",
			ray:    scene.Ray{Origin: scene.Vec3{0, 0, 10}, Direction: scene.Vec3{0, 0, -1}},
			target: s,
			want:   false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRaycaster()
			r.Set(tt.ray)
			if got := r.IntersectObject(tt.target, tt.recursive); got != tt.want {
				t.Errorf("IntersectObject() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRaycasterFromCamera(t *testing.T) {
	s := New()
	block := s.Factory().NewBlock(scene.BlockStyle{Width: 2, Height: 2})
	s.Add(block)

	r := NewRaycaster()
	r.SetFromCamera(scene.Vec2{0, 0}, s.Camera())
	if !r.IntersectObject(block, false) {
		t.Error("ray through the centre of the viewport misses a block at the origin")
	}
	r.SetFromCamera(scene.Vec2{1, 1}, s.Camera())
	if r.IntersectObject(block, false) {
		t.Error("ray through the viewport corner hits a block at the origin")
	}
}

func TestRaycasterUnset(t *testing.T) {
	s := New()
	block := s.Factory().NewBlock(scene.BlockStyle{Width: 100, Height: 100})
	s.Add(block)
	if NewRaycaster().IntersectObject(block, true) {
		t.Error("a raycaster without a ray reported a hit")
	}
}

func TestFactoryAssets(t *testing.T) {
	ctx := context.Background()
	bucket := memblob.OpenBucket(nil)
	defer bucket.Close()
	if err := bucket.WriteAll(ctx, "models/robot.pmx", []byte("model"), nil); err != nil {
		t.Fatal(err)
	}
	if err := bucket.WriteAll(ctx, "motions/wave.vmd", []byte("motion"), nil); err != nil {
		t.Fatal(err)
	}
	f := New(WithAssets(bucket)).Factory()

	mesh, err := f.LoadMesh(ctx, "models/robot.pmx")
	if err != nil {
		t.Fatalf("LoadMesh: %v", err)
	}
	motion, err := f.LoadMotion(ctx, "motions/wave.vmd")
	if err != nil {
		t.Fatalf("LoadMotion: %v", err)
	}
	mesh.Play(motion)
	if got := mesh.(*Mesh).Playing(); len(got) != 1 || got[0].Name() != "motions/wave.vmd" {
		t.Errorf("Playing() = %v, want the wave motion", got)
	}

	if _, err := f.LoadMesh(ctx, "models/missing.pmx"); !errors.Is(err, ErrAssetNotFound) {
		t.Errorf("LoadMesh(missing) error = %v, want ErrAssetNotFound", err)
	}
	if _, err := f.LoadMotion(ctx, ""); !errors.Is(err, ErrAssetNotFound) {
		t.Errorf("LoadMotion(\"\") error = %v, want ErrAssetNotFound", err)
	}
}

func TestStep(t *testing.T) {
	s := New()
	var frames int
	s.OnFrame(func(f scene.Frame) {
		frames++
		if f.Raycaster == nil {
			t.Error("Step handed a frame without a raycaster")
		}
	})
	s.Step(scene.Frame{})
	s.Step(scene.Frame{})
	if frames != 2 {
		t.Errorf("handler ran %d times, want 2", frames)
	}
}

func TestRendererSettings(t *testing.T) {
	s := New()
	r := s.Renderer()
	r.SetShadowMap(true, scene.PCFSoftShadowMap)
	r.SetToneMapping(scene.LinearToneMapping)
	r.SetOutputEncoding(scene.LinearEncoding)

	want := Renderer{
		ShadowsEnabled: true,
		ShadowMap:      scene.PCFSoftShadowMap,
		ToneMapping:    scene.LinearToneMapping,
		Encoding:       scene.LinearEncoding,
	}
	if diff := cmp.Diff(want, s.Settings()); diff != "" {
		t.Errorf("Settings() mismatch (-want +got):\n%s", diff)
	}
}
