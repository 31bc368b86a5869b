package scenetwin_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	. "github.com/go-digitaltwin/go-scenetwin"
	"github.com/go-digitaltwin/go-scenetwin/databinding"
	"github.com/go-digitaltwin/go-scenetwin/scene"
	"github.com/go-digitaltwin/go-scenetwin/scene/memscene"
)

type factoryCall struct {
	Ref    NodeRef
	Anchor Anchor
}

// recordingFactory returns a Factory that records its calls and returns result.
func recordingFactory(result Object) (Factory, *[]factoryCall) {
	var calls []factoryCall
	return func(ref NodeRef, a Anchor) Object {
		calls = append(calls, factoryCall{ref, a})
		return result
	}, &calls
}

func TestSearchTag(t *testing.T) {
	x := databinding.ValueDataBinding{Context: databinding.Context{databinding.EntityID: "lamp-1"}}
	nodes := NodeMap{
		"a": {Name: "Lamp", Components: []Component{Anchor{ValueDataBinding: x}}},
	}
	result := NewText(scene.Identity(), Anchor{})

	t.Run("found", func(t *testing.T) {
		f, calls := recordingFactory(result)
		got := SearchTag(nodes, "Lamp", f)
		if got != Object(result) {
			t.Errorf("SearchTag() = %v, want the factory result", got)
		}
		want := []factoryCall{{Ref: "a", Anchor: Anchor{ValueDataBinding: x}}}
		if diff := cmp.Diff(want, *calls); diff != "" {
			t.Errorf("factory calls mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("missing", func(t *testing.T) {
		f, calls := recordingFactory(result)
		if got := SearchTag(nodes, "Missing", f); got != nil {
			t.Errorf("SearchTag() = %v, want nil", got)
		}
		if len(*calls) != 0 {
			t.Errorf("factory called %d times for a missing tag", len(*calls))
		}
	})
}

func TestSearchTagSkipsDecorativeComponents(t *testing.T) {
	nodes := NodeMap{
		"a": {Name: "Lamp", Components: []Component{
			Overlay{Subtype: "OverlayPanel"},
			ModelRef{URI: "lamp.glb"},
			Anchor{RuleBasedMapID: "first"},
			Anchor{RuleBasedMapID: "second"},
		}},
		"b": {Name: "Bare", Components: []Component{Overlay{}}},
	}

	f, calls := recordingFactory(nil)
	SearchTag(nodes, "Lamp", f)
	want := []factoryCall{{Ref: "a", Anchor: Anchor{RuleBasedMapID: "first"}}}
	if diff := cmp.Diff(want, *calls); diff != "" {
		t.Errorf("factory calls mismatch (-want +got):\n%s", diff)
	}

	f, calls = recordingFactory(nil)
	if got := SearchTag(nodes, "Bare", f); got != nil || len(*calls) != 0 {
		t.Errorf("SearchTag(Bare) = %v after %d calls, want nil after none", got, len(*calls))
	}
}

func TestSearchTagFirstNodeWins(t *testing.T) {
	nodes := NodeMap{
		"z": {Name: "Lamp", Components: []Component{Anchor{RuleBasedMapID: "z"}}},
		"m": {Name: "Lamp", Components: []Component{Anchor{RuleBasedMapID: "m"}}},
		"b": {Name: "Lamp", Components: []Component{&Anchor{RuleBasedMapID: "b"}}},
	}
	// Repeat to make sure map iteration order plays no part.
	for i := 0; i < 10; i++ {
		f, calls := recordingFactory(nil)
		SearchTag(nodes, "Lamp", f)
		want := []factoryCall{{Ref: "b", Anchor: Anchor{RuleBasedMapID: "b"}}}
		if diff := cmp.Diff(want, *calls); diff != "" {
			t.Fatalf("factory calls mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestReplaceWithUnrenderedPlaceholder(t *testing.T) {
	s := memscene.New()
	resolve := func(ref NodeRef) (scene.Object, bool) { return s.Resolve(string(ref)) }

	if m := ReplaceWithModel("missing", Anchor{}, resolve); m != nil {
		t.Errorf("ReplaceWithModel() = %v, want nil", m)
	}
	if b := ReplaceWithButton("missing", Anchor{}, resolve); b != nil {
		t.Errorf("ReplaceWithButton() = %v, want nil", b)
	}
	if x := ReplaceWithText("missing", Anchor{}, resolve); x != nil {
		t.Errorf("ReplaceWithText() = %v, want nil", x)
	}
}

func TestSearchTagNilPointerIsNil(t *testing.T) {
	s := memscene.New()
	resolve := func(ref NodeRef) (scene.Object, bool) { return s.Resolve(string(ref)) }
	nodes := NodeMap{"ref-door": {Name: "Door", Components: []Component{Anchor{}}}}

	factories := map[string]Factory{
		"model":  func(ref NodeRef, a Anchor) Object { return ReplaceWithModel(ref, a, resolve) },
		"button": func(ref NodeRef, a Anchor) Object { return ReplaceWithButton(ref, a, resolve) },
		"text":   func(ref NodeRef, a Anchor) Object { return ReplaceWithText(ref, a, resolve) },
	}
	for name, f := range factories {
		t.Run(name, func(t *testing.T) {
			if got := SearchTag(nodes, "Door", f); got != nil {
				t.Errorf("SearchTag() = %#v, want an untyped nil", got)
			}
		})
	}
}
