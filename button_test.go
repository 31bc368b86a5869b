package scenetwin_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	. "github.com/go-digitaltwin/go-scenetwin"
	"github.com/go-digitaltwin/go-scenetwin/scene"
	"github.com/go-digitaltwin/go-scenetwin/scene/memscene"
)

func TestButtonHitTest(t *testing.T) {
	s := memscene.New()
	styles := map[Interaction]ButtonColor{
		Idle:     {Background: 0x444444, Font: 0xffffff},
		Hovered:  {Background: 0x666666, Font: 0xffffff},
		Selected: {Background: 0x0000ff, Font: 0xffffff},
	}
	var clicks int
	b := NewButton(scene.Identity(), Anchor{}).
		Create(s, ButtonParams{Content: "Start", Width: 1, Height: 0.4, Styles: styles}).
		OnClick(func(*Button) { clicks++ })

	centre := &scene.Vec2{0, 0}
	corner := &scene.Vec2{1, 1}
	frames := []struct {
		pointer *scene.Vec2
		sel     bool
		want    Interaction
	}{
		{pointer: corner, want: Idle},
		{pointer: centre, want: Hovered},
		{pointer: centre, sel: true, want: Selected},
		// Held: stays selected without firing again.
		{pointer: centre, sel: true, want: Selected},
		{pointer: centre, sel: true, want: Selected},
		{pointer: centre, want: Hovered},
		// Clicking again is a new entry into selected.
		{pointer: centre, sel: true, want: Selected},
		{pointer: corner, sel: true, want: Idle},
		// Pointer outside the viewport leaves the state alone.
		{pointer: nil, want: Idle},
	}
	var got []Interaction
	for _, f := range frames {
		b.Animate(scene.Frame{Pointer: f.pointer, Select: f.sel, Raycaster: memscene.NewRaycaster()})
		got = append(got, b.Interaction())
	}
	var want []Interaction
	for _, f := range frames {
		want = append(want, f.want)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("interaction sequence mismatch (-want +got):\n%s", diff)
	}
	if clicks != 2 {
		t.Errorf("click handler ran %d times, want 2", clicks)
	}
}

func TestButtonStyles(t *testing.T) {
	s := memscene.New()
	styles := map[Interaction]ButtonColor{
		Idle:     {Background: 0x111111, Font: 0xeeeeee},
		Selected: {Background: 0x0000ff, Font: 0xffff00},
	}
	NewButton(scene.Identity(), Anchor{}).
		Create(s, ButtonParams{Content: "Go", Width: 1, Height: 0.4, Styles: styles})

	block := findBlock(t, s, func(b scene.Block) bool { return b.Style().Width == 1 && b.Style().Height == 0.4 })
	if got := block.Style(); got.BackgroundColor != 0x111111 || got.FontColor != 0xeeeeee {
		t.Errorf("idle style = %+v, want the idle colours", got)
	}

	b, _ := s.Children()[0].(scene.Block)
	if b == nil {
		t.Fatal("button container missing from the scene")
	}
}

func TestButtonOnSceneFrames(t *testing.T) {
	s := memscene.New()
	var clicked []string
	b := NewButton(scene.Identity(), Anchor{}).
		Create(s, ButtonParams{Content: "Start", Width: 1, Height: 1}).
		OnClick(func(b *Button) { clicked = append(clicked, b.Text().Content()) }).
		OnAnimating(func(text scene.Text, _ scene.Frame) { text.SetContent("Started") })

	s.OnFrame(b.Animate)
	s.Step(scene.Frame{Pointer: &scene.Vec2{0, 0}, Select: true})
	if diff := cmp.Diff([]string{"Start"}, clicked); diff != "" {
		t.Errorf("clicks mismatch (-want +got):\n%s", diff)
	}
	if got := b.Text().Content(); got != "Started" {
		t.Errorf("text content = %q, want %q", got, "Started")
	}
}

func findBlock(t *testing.T, root scene.Object, match func(scene.Block) bool) scene.Block {
	t.Helper()
	var found scene.Block
	scene.Inspect(root, func(obj scene.Object) bool {
		if b, ok := obj.(scene.Block); ok && found == nil && match(b) {
			found = b
		}
		return obj != nil
	})
	if found == nil {
		t.Fatal("no matching block in the scene")
	}
	return found
}
