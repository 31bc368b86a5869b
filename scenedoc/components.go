package scenedoc

import (
	"encoding/json"
	"fmt"

	"github.com/go-digitaltwin/go-scenetwin"
	"github.com/go-digitaltwin/go-scenetwin/databinding"
)

// ComponentSpec is the JSON form of a node component. The "type" member selects
// the concrete scenetwin.Component; unknown types decode to
// scenetwin.OtherComponent with their members kept as properties.
type ComponentSpec struct {
	scenetwin.Component
}

type tagJSON struct {
	Type             string                       `json:"type"`
	Icon             string                       `json:"icon,omitempty"`
	ValueDataBinding databinding.ValueDataBinding `json:"valueDataBinding"`
	RuleBasedMapID   string                       `json:"ruleBasedMapId,omitempty"`
}

type overlayRowJSON struct {
	RowType string `json:"rowType"`
	Content string `json:"content"`
}

type overlayJSON struct {
	Type    string           `json:"type"`
	Subtype string           `json:"subType,omitempty"`
	Rows    []overlayRowJSON `json:"dataRows,omitempty"`
}

type modelRefJSON struct {
	Type      string `json:"type"`
	URI       string `json:"uri"`
	ModelType string `json:"modelType,omitempty"`
}

func (c *ComponentSpec) UnmarshalJSON(data []byte) error {
	var head struct {
		Type scenetwin.ComponentType `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}
	switch head.Type {
	case "":
		return fmt.Errorf("component without a type")
	case scenetwin.TagComponent:
		var v tagJSON
		if err := json.Unmarshal(data, &v); err != nil {
			return fmt.Errorf("tag: %w", err)
		}
		c.Component = scenetwin.Anchor{
			Icon:             v.Icon,
			ValueDataBinding: v.ValueDataBinding,
			RuleBasedMapID:   v.RuleBasedMapID,
		}
	case scenetwin.OverlayComponent:
		var v overlayJSON
		if err := json.Unmarshal(data, &v); err != nil {
			return fmt.Errorf("overlay: %w", err)
		}
		o := scenetwin.Overlay{Subtype: v.Subtype}
		for _, r := range v.Rows {
			o.Rows = append(o.Rows, scenetwin.OverlayRow{RowType: r.RowType, Content: r.Content})
		}
		c.Component = o
	case scenetwin.ModelRefComponent:
		var v modelRefJSON
		if err := json.Unmarshal(data, &v); err != nil {
			return fmt.Errorf("model ref: %w", err)
		}
		c.Component = scenetwin.ModelRef{URI: v.URI, ModelType: v.ModelType}
	default:
		var props map[string]any
		if err := json.Unmarshal(data, &props); err != nil {
			return err
		}
		delete(props, "type")
		c.Component = scenetwin.OtherComponent{Kind: head.Type, Properties: props}
	}
	return nil
}

func (c ComponentSpec) MarshalJSON() ([]byte, error) {
	switch v := c.Component.(type) {
	case scenetwin.Anchor:
		return json.Marshal(tagJSON{
			Type:             string(scenetwin.TagComponent),
			Icon:             v.Icon,
			ValueDataBinding: v.ValueDataBinding,
			RuleBasedMapID:   v.RuleBasedMapID,
		})
	case scenetwin.Overlay:
		o := overlayJSON{Type: string(scenetwin.OverlayComponent), Subtype: v.Subtype}
		for _, r := range v.Rows {
			o.Rows = append(o.Rows, overlayRowJSON{RowType: r.RowType, Content: r.Content})
		}
		return json.Marshal(o)
	case scenetwin.ModelRef:
		return json.Marshal(modelRefJSON{Type: string(scenetwin.ModelRefComponent), URI: v.URI, ModelType: v.ModelType})
	case scenetwin.OtherComponent:
		props := make(map[string]any, len(v.Properties)+1)
		for k, p := range v.Properties {
			props[k] = p
		}
		props["type"] = string(v.Kind)
		return json.Marshal(props)
	default:
		return nil, fmt.Errorf("unsupported component %T", c.Component)
	}
}
