package scenetwin

import (
	"github.com/go-digitaltwin/go-scenetwin/databinding"
)

// NodeRef identifies a node of the external scene description.
type NodeRef string

// Node is a node of the external scene description: a name and an ordered list
// of typed components.
type Node struct {
	Name       string
	Components []Component
}

// NodeMap is the external scene description, indexed by node reference.
type NodeMap map[NodeRef]Node

// ComponentType discriminates the components a Node may carry.
type ComponentType string

const (
	TagComponent      ComponentType = "Tag"
	OverlayComponent  ComponentType = "DataOverlay"
	ModelRefComponent ComponentType = "ModelRef"
)

// Component is a typed component of a Node. Although the scenetwin package only
// cares about placeholder tags, a node usually carries decorative components
// too, and we keep them so that the locator can tell them apart.
//
// Type-assert components in order to access the actual type and its fields.
type Component interface {
	Type() ComponentType
	// scenetwin is a no-op method that allows us to distinguish between types that
	// implement Component and those that do not.
	//
	// it is unexported to prevent implementation by types outside this package -
	// instead, these types should embed the ComponentElement struct.
	scenetwin()
}

// ComponentElement implements the unexported part of Component in order to
// embed into user-defined component types.
type ComponentElement struct{}

func (ComponentElement) scenetwin() {}

// Anchor is the metadata of a placeholder tag: which live values it is bound to
// and which rule-based map turns those values into a state.
type Anchor struct {
	ComponentElement
	Icon             string
	ValueDataBinding databinding.ValueDataBinding
	RuleBasedMapID   string
}

func (Anchor) Type() ComponentType { return TagComponent }

// OverlayRow is one row of an Overlay.
type OverlayRow struct {
	RowType string
	Content string
}

// Overlay is a decorative annotation panel attached to a node.
type Overlay struct {
	ComponentElement
	Subtype string
	Rows    []OverlayRow
}

func (Overlay) Type() ComponentType { return OverlayComponent }

// ModelRef references the 3D model rendered for a node.
type ModelRef struct {
	ComponentElement
	URI       string
	ModelType string
}

func (ModelRef) Type() ComponentType { return ModelRefComponent }

// OtherComponent carries a component type scenetwin knows nothing about.
type OtherComponent struct {
	ComponentElement
	Kind       ComponentType
	Properties map[string]any
}

func (c OtherComponent) Type() ComponentType { return c.Kind }
