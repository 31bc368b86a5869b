package scenetwin_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gocloud.dev/blob/memblob"

	. "github.com/go-digitaltwin/go-scenetwin"
	"github.com/go-digitaltwin/go-scenetwin/scene"
	"github.com/go-digitaltwin/go-scenetwin/scene/memscene"
)

var robotParams = ModelParams{
	Path:  "models/robot.pmx",
	Scale: 0.1,
	Angle: 180,
	Motions: map[string]string{
		"idle":  "motions/idle.vmd",
		"wave":  "motions/wave.vmd",
		"smile": "motions/smile.vmd",
	},
}

func newAssetScene(t *testing.T, paths ...string) *memscene.Scene {
	t.Helper()
	ctx := context.Background()
	bucket := memblob.OpenBucket(nil)
	t.Cleanup(func() { bucket.Close() })
	for _, p := range paths {
		if err := bucket.WriteAll(ctx, p, []byte(p), nil); err != nil {
			t.Fatal(err)
		}
	}
	return memscene.New(memscene.WithAssets(bucket))
}

func TestModelMotions(t *testing.T) {
	s := newAssetScene(t, "models/robot.pmx", "motions/idle.vmd", "motions/wave.vmd", "motions/smile.vmd")
	m := NewModel(scene.Transform{Position: scene.Vec3{1, 0, 2}, Scale: scene.Vec3{1, 1, 1}}, Anchor{}).
		Create(context.Background(), s, robotParams).
		BindOnStateChange(func(_ scene.Mesh, _ *Model, s State) []string {
			switch s {
			case "hot":
				return []string{"wave", "smile"}
			case "busy":
				return []string{"idle", "dance"}
			default:
				return nil
			}
		})
	if err := m.Err(); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !m.IsLoaded() {
		t.Fatal("model did not load")
	}

	mesh := m.Mesh().(*memscene.Mesh)
	if got := mesh.Transform().Scale; got != (scene.Vec3{0.1, 0.1, 0.1}) {
		t.Errorf("mesh scale = %v, want 0.1", got)
	}
	if got := mesh.Parent(); got != scene.Object(s) {
		t.Errorf("mesh parent = %v, want the scene root", got)
	}

	playing := func() []string {
		var names []string
		for _, motion := range mesh.Playing() {
			names = append(names, motion.Name())
		}
		return names
	}

	m.StateChange("hot")
	if diff := cmp.Diff([]string{"motions/wave.vmd", "motions/smile.vmd"}, playing()); diff != "" {
		t.Errorf("hot motions mismatch (-want +got):\n%s", diff)
	}
	// Unknown keys are skipped.
	m.StateChange("busy")
	if diff := cmp.Diff([]string{"motions/idle.vmd"}, playing()); diff != "" {
		t.Errorf("busy motions mismatch (-want +got):\n%s", diff)
	}
	// No keys stops playback.
	m.StateChange("calm")
	if got := playing(); len(got) != 0 {
		t.Errorf("calm motions = %v, want none", got)
	}
}

func TestModelMissingAsset(t *testing.T) {
	s := newAssetScene(t, "models/robot.pmx", "motions/idle.vmd")
	var notified int
	m := NewModel(scene.Identity(), Anchor{}).Create(context.Background(), s, robotParams)
	m.OnChangeState(func(State) { notified++ })

	if !errors.Is(m.Err(), memscene.ErrAssetNotFound) {
		t.Errorf("Err() = %v, want ErrAssetNotFound", m.Err())
	}
	if m.IsLoaded() {
		t.Error("model loaded with missing motions")
	}
	if len(s.Children()) != 0 {
		t.Error("a failed model was added to the scene")
	}
	m.StateChange("hot")
	if notified != 0 || m.State() != "" {
		t.Errorf("failed model accepted a state change: state %q, %d notifications", m.State(), notified)
	}
}
