package overrides

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"gocloud.dev/blob/memblob"

	"github.com/go-digitaltwin/go-scenetwin"
	"github.com/go-digitaltwin/go-scenetwin/internal/config"
	"github.com/go-digitaltwin/go-scenetwin/scene"
	"github.com/go-digitaltwin/go-scenetwin/scene/memscene"
)

var specs = []config.OverrideConfig{
	{
		Tag:  "Usada-Pekora",
		Kind: config.KindModel,
		Model: config.ModelConfig{
			Path:  "mmd/pekora.pmx",
			Scale: 0.088,
			Angle: -20,
			Motions: map[string]string{
				"swing-hand":      "mmd/motion/swing.vmd",
				"swing-hand-face": "mmd/motion/face.vmd",
				"motion-waiting":  "mmd/motion/waiting.vmd",
			},
			States: map[string][]string{
				"Error":      {"swing-hand", "swing-hand-face"},
				DefaultState: {"motion-waiting"},
			},
		},
	},
	{
		Tag:  "Door",
		Kind: config.KindButton,
		Button: config.ButtonConfig{
			Content: "Door",
			Width:   0.5,
			Height:  0.2,
			Styles:  map[string]config.ColorConfig{"idle": {Background: 0x666666, Font: 0xffffff}},
			States:  map[string]string{"open": "Close", DefaultState: "Open"},
		},
	},
	{
		Tag:  "Clock",
		Kind: config.KindText,
		Text: config.TextConfig{Content: "--:--", Clock: true},
	},
	{Tag: "Hologram", Kind: "hologram"},
}

func newScene(t *testing.T) (*memscene.Scene, scenetwin.Resolver) {
	t.Helper()
	ctx := context.Background()
	bucket := memblob.OpenBucket(nil)
	t.Cleanup(func() { bucket.Close() })
	for _, key := range []string{"mmd/pekora.pmx", "mmd/motion/swing.vmd", "mmd/motion/face.vmd", "mmd/motion/waiting.vmd"} {
		if err := bucket.WriteAll(ctx, key, []byte(key), nil); err != nil {
			t.Fatal(err)
		}
	}
	s := memscene.New(memscene.WithAssets(bucket))
	for _, name := range []string{"Usada-Pekora", "Door", "Clock"} {
		s.Place("ref-"+name, name, scene.Identity())
	}
	return s, func(ref scenetwin.NodeRef) (scene.Object, bool) { return s.Resolve(string(ref)) }
}

func TestOverrides(t *testing.T) {
	s, resolve := newScene(t)
	o := New(context.Background(), specs, resolve).Overrides(s)

	if _, ok := o["Hologram"]; ok {
		t.Error("override of unknown kind was kept")
	}

	model, ok := o["Usada-Pekora"]("ref-Usada-Pekora", scenetwin.Anchor{}).(*scenetwin.Model)
	if !ok || !model.IsLoaded() {
		t.Fatalf("model override did not load: %v", model.Err())
	}
	playing := func() []string {
		var names []string
		for _, m := range model.Mesh().(*memscene.Mesh).Playing() {
			names = append(names, m.Name())
		}
		return names
	}
	model.StateChange("Error")
	if diff := cmp.Diff([]string{"mmd/motion/swing.vmd", "mmd/motion/face.vmd"}, playing()); diff != "" {
		t.Errorf("Error motions mismatch (-want +got):\n%s", diff)
	}
	model.StateChange("Info")
	if diff := cmp.Diff([]string{"mmd/motion/waiting.vmd"}, playing()); diff != "" {
		t.Errorf("default motions mismatch (-want +got):\n%s", diff)
	}

	button := o["Door"]("ref-Door", scenetwin.Anchor{}).(*scenetwin.Button)
	if got := button.Text().Content(); got != "Door" {
		t.Errorf("button label = %q, want Door", got)
	}
	button.StateChange("open")
	if got := button.Text().Content(); got != "Close" {
		t.Errorf("button label = %q, want Close", got)
	}
	button.StateChange("closed")
	if got := button.Text().Content(); got != "Open" {
		t.Errorf("button label = %q, want Open", got)
	}

	clock := o["Clock"]("ref-Clock", scenetwin.Anchor{}).(*scenetwin.Text)
	if got := clock.Text().Content(); got != "--:--" {
		t.Errorf("clock content = %q before the first frame", got)
	}
}

func TestMotions(t *testing.T) {
	h := Motions(map[string][]string{"hot": {"wave"}, DefaultState: {"idle"}})
	tests := map[scenetwin.State][]string{
		scenetwin.StateInit: nil,
		"hot":               {"wave"},
		"cold":              {"idle"},
	}
	for s, want := range tests {
		if diff := cmp.Diff(want, h(nil, nil, s)); diff != "" {
			t.Errorf("Motions(%q) mismatch (-want +got):\n%s", s, diff)
		}
	}
	if got := Motions(nil)(nil, nil, "hot"); got != nil {
		t.Errorf("Motions(nil) = %v, want nil", got)
	}
}

func TestClock(t *testing.T) {
	s, resolve := newScene(t)
	t0 := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	f := textFactory(s, resolve, config.TextConfig{Clock: true}, func() time.Time { return t0 })
	clock := f("ref-Clock", scenetwin.Anchor{}).(*scenetwin.Text)

	clock.Animate(scene.Frame{})
	if got, want := clock.Text().Content(), "2024/05/01 12:30:00"; got != want {
		t.Errorf("clock content = %q, want %q", got, want)
	}
}
