package scenetwin

import (
	"reflect"
	"sort"

	"github.com/go-digitaltwin/go-scenetwin/scene"
)

// Factory produces the wrapper that replaces the placeholder tag of node ref.
// It returns nil when the placeholder cannot be replaced yet, typically because
// the engine has not rendered it.
//
// A nil *Model, *Button or *Text returned through the Object interface counts
// as nil, so the results of ReplaceWithModel, ReplaceWithButton and
// ReplaceWithText may be returned as they are.
type Factory func(ref NodeRef, anchor Anchor) Object

// Resolver maps a node reference to its live renderable, if the engine has
// materialised it.
type Resolver func(ref NodeRef) (scene.Object, bool)

// SearchTag finds the node named name and hands its placeholder tag to f.
//
// Nodes are visited in ascending order of their references and only the first
// node with a matching name is considered, even when it carries no tag. Of that
// node's components, the first placeholder tag is used; decorative components
// are skipped. SearchTag returns what f returns, or nil when no node matches or
// the matching node has no tag, in which case f is never called. A nil pointer
// returned by f is reported as an untyped nil.
func SearchTag(nodes NodeMap, name string, f Factory) Object {
	refs := make([]NodeRef, 0, len(nodes))
	for ref := range nodes {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i] < refs[j] })

	for _, ref := range refs {
		node := nodes[ref]
		if node.Name != name {
			continue
		}
		for _, c := range node.Components {
			if anchor, ok := tagOf(c); ok {
				return objectOrNil(f(ref, anchor))
			}
		}
		return nil
	}
	return nil
}

func objectOrNil(obj Object) Object {
	if obj == nil {
		return nil
	}
	if v := reflect.ValueOf(obj); v.Kind() == reflect.Pointer && v.IsNil() {
		return nil
	}
	return obj
}

func tagOf(c Component) (Anchor, bool) {
	switch a := c.(type) {
	case Anchor:
		return a, true
	case *Anchor:
		if a != nil {
			return *a, true
		}
	}
	return Anchor{}, false
}

// replacePlaceholder resolves the placeholder of ref, hides it and returns its
// transform.
func replacePlaceholder(ref NodeRef, resolve Resolver) (scene.Transform, bool) {
	obj, ok := resolve(ref)
	if !ok || obj == nil {
		return scene.Transform{}, false
	}
	obj.SetVisible(false)
	return obj.Transform(), true
}

// ReplaceWithModel hides the placeholder of ref and returns an unloaded Model
// at its transform, or nil when the placeholder is not rendered yet.
func ReplaceWithModel(ref NodeRef, a Anchor, resolve Resolver) *Model {
	t, ok := replacePlaceholder(ref, resolve)
	if !ok {
		return nil
	}
	return NewModel(t, a)
}

// ReplaceWithButton hides the placeholder of ref and returns an unloaded Button
// at its transform, or nil when the placeholder is not rendered yet.
func ReplaceWithButton(ref NodeRef, a Anchor, resolve Resolver) *Button {
	t, ok := replacePlaceholder(ref, resolve)
	if !ok {
		return nil
	}
	return NewButton(t, a)
}

// ReplaceWithText hides the placeholder of ref and returns an unloaded Text at
// its transform, or nil when the placeholder is not rendered yet.
func ReplaceWithText(ref NodeRef, a Anchor, resolve Resolver) *Text {
	t, ok := replacePlaceholder(ref, resolve)
	if !ok {
		return nil
	}
	return NewText(t, a)
}
