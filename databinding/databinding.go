/*
Package databinding resolves the live values an anchor is bound to.

Telemetry arrives as time series of samples. Each series (a Field) is labelled
with the entity property it measures, typically an entity id, a component name
and a property name. Series with the same labels except for the property form
a DataFrame, and the frames current at tick time form a DataInput.

An anchor carries a ValueDataBinding whose Context names the labels it wants.
Context values may refer to template variables with the ${name} syntax; a
Template supplies those variables for the whole scene, so that one scene
document can be reused for several entities. ValuesOf resolves the binding
against the template and returns, per matching property, the latest sample
value.
*/
package databinding

import (
	"regexp"
	"sort"
	"time"
)

// Well-known context keys.
const (
	EntityID      = "entityId"
	ComponentName = "componentName"
	PropertyName  = "propertyName"
)

// Context selects telemetry by label. A PropertyName entry narrows the result to
// a single property; without it every property of the matched entity component
// is returned.
type Context map[string]string

// ValueDataBinding is the data-binding descriptor carried by an anchor.
type ValueDataBinding struct {
	Context Context `json:"dataBindingContext,omitempty" yaml:"dataBindingContext,omitempty"`
}

// Template maps template variable names to their values.
type Template map[string]string

var templateVariable = regexp.MustCompile(`\$\{([^}]+)\}`)

// Expand substitutes every ${name} occurrence in s with its template value.
// Unknown variables are left as they are.
func (t Template) Expand(s string) string {
	return templateVariable.ReplaceAllStringFunc(s, func(match string) string {
		name := templateVariable.FindStringSubmatch(match)[1]
		if v, ok := t[name]; ok {
			return v
		}
		return match
	})
}

// Resolve returns a copy of c with every value expanded by t.
func (c Context) Resolve(t Template) Context {
	resolved := make(Context, len(c))
	for k, v := range c {
		resolved[k] = t.Expand(v)
	}
	return resolved
}

// Sample is a single timestamped value. Values are float64, int64, string or
// bool.
type Sample struct {
	Time  time.Time `json:"time"`
	Value any       `json:"value"`
}

// Field is the time series of one property, ordered by ascending time.
type Field struct {
	Name    string            `json:"name"`
	Labels  map[string]string `json:"labels"`
	Samples []Sample          `json:"samples"`
}

// Latest returns the newest sample taken at or before end; a zero end means no
// bound.
func (f Field) Latest(end time.Time) (Sample, bool) {
	for i := len(f.Samples) - 1; i >= 0; i-- {
		s := f.Samples[i]
		if end.IsZero() || !s.Time.After(end) {
			return s, true
		}
	}
	return Sample{}, false
}

// DataFrame groups the fields that share every label but the property name.
type DataFrame struct {
	ID     string  `json:"dataFrameId"`
	Fields []Field `json:"fields"`
}

// DataInput is the telemetry visible to one reconciliation tick.
type DataInput struct {
	Frames []DataFrame `json:"dataFrames"`
	Start  time.Time   `json:"startTime"`
	End    time.Time   `json:"endTime"`
}

// ValuesOf returns the latest value of every property selected by binding,
// keyed by property name. It returns nil when nothing matches, including when
// the binding has no context.
func ValuesOf(in DataInput, binding ValueDataBinding, t Template) map[string]any {
	if len(binding.Context) == 0 {
		return nil
	}
	ctx := binding.Context.Resolve(t)
	property, narrowed := ctx[PropertyName]

	var values map[string]any
	for _, frame := range in.Frames {
		for _, field := range frame.Fields {
			if narrowed && field.Name != property {
				continue
			}
			if !matches(field.Labels, ctx) {
				continue
			}
			sample, ok := field.Latest(in.End)
			if !ok {
				continue
			}
			if values == nil {
				values = make(map[string]any)
			}
			values[field.Name] = sample.Value
		}
	}
	return values
}

func matches(labels map[string]string, ctx Context) bool {
	for k, v := range ctx {
		if k == PropertyName {
			continue
		}
		if labels[k] != v {
			return false
		}
	}
	return true
}

// frameID is the canonical identifier of the frame a label set belongs to.
func frameID(labels map[string]string) string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		if k != PropertyName {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	var id string
	for i, k := range keys {
		if i > 0 {
			id += ","
		}
		id += k + "=" + labels[k]
	}
	return id
}
