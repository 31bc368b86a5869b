// Package overrides turns the declarative override configuration into
// scenetwin overrides.
package overrides

import (
	"context"
	"time"

	"github.com/danielorbach/go-component"

	"github.com/go-digitaltwin/go-scenetwin"
	"github.com/go-digitaltwin/go-scenetwin/internal/config"
	"github.com/go-digitaltwin/go-scenetwin/scene"
)

// DefaultState is the States key that applies to every state without an entry
// of its own.
const DefaultState = "default"

// ClockLayout is the layout of the live clock text.
const ClockLayout = "2006/01/02 15:04:05"

// New returns an Overrider building the wrappers declared by specs. The
// placeholders are resolved with resolve; ctx scopes model asset loading.
func New(ctx context.Context, specs []config.OverrideConfig, resolve scenetwin.Resolver) scenetwin.Overrider {
	return scenetwin.OverriderFunc(func(root scene.Root) scenetwin.Overrides {
		logger := component.Logger(ctx)
		o := make(scenetwin.Overrides, len(specs))
		for _, spec := range specs {
			switch spec.Kind {
			case config.KindModel:
				o[spec.Tag] = modelFactory(ctx, root, resolve, spec.Model)
			case config.KindButton:
				o[spec.Tag] = buttonFactory(root, resolve, spec.Button)
			case config.KindText:
				o[spec.Tag] = textFactory(root, resolve, spec.Text, time.Now)
			default:
				logger.Warn("Ignoring override of unknown kind", "tag", spec.Tag, "kind", spec.Kind)
			}
		}
		return o
	})
}

func modelFactory(ctx context.Context, root scene.Root, resolve scenetwin.Resolver, c config.ModelConfig) scenetwin.Factory {
	return func(ref scenetwin.NodeRef, a scenetwin.Anchor) scenetwin.Object {
		m := scenetwin.ReplaceWithModel(ref, a, resolve)
		if m == nil {
			return nil
		}
		return m.Create(ctx, root, scenetwin.ModelParams{
			Path:    c.Path,
			Scale:   c.Scale,
			Angle:   c.Angle,
			Motions: c.Motions,
		}).BindOnStateChange(Motions(c.States))
	}
}

// Motions returns a handler that plays the motion keys states maps the new
// state to, falling back to the DefaultState entry. The initializing sentinel
// plays nothing.
func Motions(states map[string][]string) scenetwin.ModelStateHandler {
	return func(_ scene.Mesh, _ *scenetwin.Model, s scenetwin.State) []string {
		if s == scenetwin.StateInit {
			return nil
		}
		if keys, ok := states[string(s)]; ok {
			return keys
		}
		return states[DefaultState]
	}
}

// interactions maps configuration names onto button interaction states.
var interactions = map[string]scenetwin.Interaction{
	"idle":     scenetwin.Idle,
	"hovered":  scenetwin.Hovered,
	"selected": scenetwin.Selected,
}

func buttonFactory(root scene.Root, resolve scenetwin.Resolver, c config.ButtonConfig) scenetwin.Factory {
	styles := make(map[scenetwin.Interaction]scenetwin.ButtonColor, len(c.Styles))
	for name, colors := range c.Styles {
		if i, ok := interactions[name]; ok {
			styles[i] = scenetwin.ButtonColor{
				Background: scene.Color(colors.Background),
				Font:       scene.Color(colors.Font),
			}
		}
	}
	return func(ref scenetwin.NodeRef, a scenetwin.Anchor) scenetwin.Object {
		b := scenetwin.ReplaceWithButton(ref, a, resolve)
		if b == nil {
			return nil
		}
		return b.Create(root, scenetwin.ButtonParams{
			Content: c.Content,
			Width:   c.Width,
			Height:  c.Height,
			Angle:   c.Angle,
			Styles:  styles,
		}).OnStateChange(func(b *scenetwin.Button, s scenetwin.State) {
			if label, ok := lookup(c.States, s); ok {
				b.Text().SetContent(label)
			}
		})
	}
}

func textFactory(root scene.Root, resolve scenetwin.Resolver, c config.TextConfig, now func() time.Time) scenetwin.Factory {
	return func(ref scenetwin.NodeRef, a scenetwin.Anchor) scenetwin.Object {
		x := scenetwin.ReplaceWithText(ref, a, resolve)
		if x == nil {
			return nil
		}
		x.Create(root, scenetwin.TextParams{Content: c.Content, Angle: c.Angle})
		x.OnStateChange(func(x *scenetwin.Text, s scenetwin.State) {
			if content, ok := lookup(c.States, s); ok {
				x.Text().SetContent(content)
			}
		})
		if c.Clock {
			x.OnAnimating(func(text scene.Text, _ scene.Frame) {
				if s := now().Format(ClockLayout); text.Content() != s {
					text.SetContent(s)
				}
			})
		}
		return x
	}
}

// lookup returns the entry of s, or the DefaultState entry.
func lookup(m map[string]string, s scenetwin.State) (string, bool) {
	if v, ok := m[string(s)]; ok {
		return v, true
	}
	v, ok := m[DefaultState]
	return v, ok
}
