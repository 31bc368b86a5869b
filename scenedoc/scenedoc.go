/*
Package scenedoc reads the scene description a digital-twin scene is built
from: its nodes (name, parent, transform and typed components) and the
rule-based maps its tags refer to.

A document is a JSON object stored in a gocloud blob bucket:

	{
	  "specVersion": "1.0",
	  "nodes": [
	    {
	      "ref": "f3b1",
	      "name": "Lamp",
	      "parentRef": "",
	      "transform": {"position": [0, 1, 0], "rotation": [0, 0, 0], "scale": [1, 1, 1]},
	      "components": [
	        {"type": "Tag", "icon": "Info", "ruleBasedMapId": "temperature",
	         "valueDataBinding": {"dataBindingContext": {"entityId": "${room}", "componentName": "Thermo"}}},
	        {"type": "DataOverlay", "subType": "OverlayPanel", "dataRows": [{"rowType": "Markdown", "content": "# Lamp"}]}
	      ]
	    }
	  ],
	  "ruleMaps": {"temperature": {"statements": [{"expression": "temp >= 30", "target": "hot"}]}},
	  "ruleMapFiles": {"humidity": "rules/humidity.json"}
	}

Rule maps may be inlined under ruleMaps or kept in separate objects of the same
bucket, listed under ruleMapFiles; Load fetches the latter concurrently.
*/
package scenedoc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gocloud.dev/blob"
	"golang.org/x/sync/errgroup"

	"github.com/go-digitaltwin/go-scenetwin"
	"github.com/go-digitaltwin/go-scenetwin/rules"
	"github.com/go-digitaltwin/go-scenetwin/scene"
)

var tracer = otel.Tracer("github.com/go-digitaltwin/go-scenetwin/scenedoc")

// ErrInvalidDocument wraps every structural problem found in a document.
var ErrInvalidDocument = errors.New("scenedoc: invalid document")

// Document is a parsed scene description.
type Document struct {
	SpecVersion  string            `json:"specVersion"`
	Nodes        []NodeSpec        `json:"nodes"`
	RuleMaps     rules.Maps        `json:"ruleMaps,omitempty"`
	RuleMapFiles map[string]string `json:"ruleMapFiles,omitempty"`
}

// NodeSpec is a node of the document.
type NodeSpec struct {
	Ref        string          `json:"ref"`
	Name       string          `json:"name"`
	ParentRef  string          `json:"parentRef,omitempty"`
	Transform  TransformSpec   `json:"transform"`
	Components []ComponentSpec `json:"components,omitempty"`
}

// TransformSpec is the JSON form of a scene.Transform; rotation is in radians.
type TransformSpec struct {
	Position [3]float64  `json:"position"`
	Rotation [3]float64  `json:"rotation"`
	Scale    *[3]float64 `json:"scale,omitempty"`
}

// Transform converts t, defaulting a missing scale to one.
func (t TransformSpec) Transform() scene.Transform {
	out := scene.Transform{
		Position: scene.Vec3(t.Position),
		Rotation: scene.Euler{X: t.Rotation[0], Y: t.Rotation[1], Z: t.Rotation[2]},
		Scale:    scene.Vec3{1, 1, 1},
	}
	if t.Scale != nil {
		out.Scale = scene.Vec3(*t.Scale)
	}
	return out
}

// Parse decodes and validates a document. It does not fetch rule-map files.
func Parse(data []byte) (*Document, error) {
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// Validate checks that node references are unique and non-empty, that every
// parent exists and that the parent chains are acyclic, and that every inline
// rule-map expression parses.
func (d *Document) Validate() error {
	var errs []error
	byRef := make(map[string]NodeSpec, len(d.Nodes))
	for i, n := range d.Nodes {
		if n.Ref == "" {
			errs = append(errs, fmt.Errorf("node %d: empty ref", i))
			continue
		}
		if _, dup := byRef[n.Ref]; dup {
			errs = append(errs, fmt.Errorf("node %q: duplicate ref", n.Ref))
			continue
		}
		byRef[n.Ref] = n
	}
	for _, n := range d.Nodes {
		seen := map[string]bool{n.Ref: true}
		for p := n.ParentRef; p != ""; p = byRef[p].ParentRef {
			if _, ok := byRef[p]; !ok {
				errs = append(errs, fmt.Errorf("node %q: unknown parent %q", n.Ref, p))
				break
			}
			if seen[p] {
				errs = append(errs, fmt.Errorf("node %q: parent cycle through %q", n.Ref, p))
				break
			}
			seen[p] = true
		}
	}
	for _, id := range sortedKeys(d.RuleMaps) {
		if m := d.RuleMaps[id]; m != nil {
			if err := m.Validate(); err != nil {
				errs = append(errs, fmt.Errorf("rule map %q: %w", id, err))
			}
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	return nil
}

// Load reads the document stored under key in bucket and fetches its rule-map
// files from the same bucket.
func Load(ctx context.Context, bucket *blob.Bucket, key string) (*Document, error) {
	ctx, span := tracer.Start(ctx, "scenedoc.Load")
	defer span.End()
	span.SetAttributes(attribute.String("scenedoc.key", key))

	data, err := bucket.ReadAll(ctx, key)
	if err != nil {
		span.SetStatus(codes.Error, "read failed")
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	d, err := Parse(data)
	if err != nil {
		span.SetStatus(codes.Error, "parse failed")
		return nil, err
	}
	if err := d.fetchRuleMaps(ctx, bucket); err != nil {
		span.SetStatus(codes.Error, "rule maps failed")
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("scenedoc.nodes", len(d.Nodes)),
		attribute.Int("scenedoc.ruleMaps", len(d.RuleMaps)),
	)
	return d, nil
}

// fetchRuleMaps reads every rule-map file concurrently and merges the maps into
// d.RuleMaps. A file may not redefine an inline map.
func (d *Document) fetchRuleMaps(ctx context.Context, bucket *blob.Bucket) error {
	if len(d.RuleMapFiles) == 0 {
		return nil
	}
	for _, id := range sortedKeys(d.RuleMapFiles) {
		if _, ok := d.RuleMaps[id]; ok {
			return fmt.Errorf("%w: rule map %q defined inline and in %s", ErrInvalidDocument, id, d.RuleMapFiles[id])
		}
	}

	var mu sync.Mutex
	fetched := make(rules.Maps, len(d.RuleMapFiles))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for id, key := range d.RuleMapFiles {
		g.Go(func() error {
			data, err := bucket.ReadAll(gctx, key)
			if err != nil {
				return fmt.Errorf("read rule map %q: %w", id, err)
			}
			var m rules.Map
			if err := json.Unmarshal(data, &m); err != nil {
				return fmt.Errorf("%w: rule map %q: %v", ErrInvalidDocument, id, err)
			}
			if err := m.Validate(); err != nil {
				return fmt.Errorf("%w: rule map %q: %w", ErrInvalidDocument, id, err)
			}
			mu.Lock()
			fetched[id] = &m
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if d.RuleMaps == nil {
		d.RuleMaps = make(rules.Maps, len(fetched))
	}
	for id, m := range fetched {
		d.RuleMaps[id] = m
	}
	return nil
}

// NodeMap returns the nodes of d in the form the reconciler consumes.
func (d *Document) NodeMap() scenetwin.NodeMap {
	nodes := make(scenetwin.NodeMap, len(d.Nodes))
	for _, n := range d.Nodes {
		components := make([]scenetwin.Component, 0, len(n.Components))
		for _, c := range n.Components {
			components = append(components, c.Component)
		}
		nodes[scenetwin.NodeRef(n.Ref)] = scenetwin.Node{Name: n.Name, Components: components}
	}
	return nodes
}

// RuleMap resolves a rule-based map by id.
func (d *Document) RuleMap(id string) (*rules.Map, bool) {
	return d.RuleMaps.Lookup(id)
}

// Tags returns the names of the nodes that carry a placeholder tag, in document
// order.
func (d *Document) Tags() []string {
	var names []string
	for _, n := range d.Nodes {
		for _, c := range n.Components {
			if c.Component != nil && c.Component.Type() == scenetwin.TagComponent {
				names = append(names, n.Name)
				break
			}
		}
	}
	return names
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
