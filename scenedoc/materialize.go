package scenedoc

import (
	"github.com/go-digitaltwin/go-scenetwin/scene/memscene"
)

// Materialize places a placeholder object for every node of d into s, nested
// under its parent, so that s resolves the document's references the way a
// rendering engine would. Parents are placed before their children regardless
// of document order.
func (d *Document) Materialize(s *memscene.Scene) {
	placed := make(map[string]*memscene.Object3D, len(d.Nodes))
	byRef := make(map[string]NodeSpec, len(d.Nodes))
	for _, n := range d.Nodes {
		byRef[n.Ref] = n
	}

	var place func(n NodeSpec) *memscene.Object3D
	place = func(n NodeSpec) *memscene.Object3D {
		if obj, ok := placed[n.Ref]; ok {
			return obj
		}
		obj := s.Place(n.Ref, n.Name, n.Transform.Transform())
		placed[n.Ref] = obj
		if parent, ok := byRef[n.ParentRef]; ok && n.ParentRef != "" {
			place(parent).Add(obj)
		}
		return obj
	}
	for _, n := range d.Nodes {
		place(n)
	}
}
