package scenetwin

import (
	"github.com/go-digitaltwin/go-scenetwin/scene"
)

// Default font assets of the UI blocks built by Button and Text.
const (
	DefaultFontFamily  = "/font/noto-sans-cjk-jp-msdf.json"
	DefaultFontTexture = "/font/noto-sans-cjk-jp-msdf.png"
)

// TextParams configures the live text panel that replaces a placeholder.
type TextParams struct {
	Content string
	// Angle is the yaw of the panel in degrees.
	Angle float64
}

// Text is the wrapper variant that replaces a placeholder with a text panel
// whose content the caller updates every frame.
type Text struct {
	Wrapper
	container   scene.Block
	text        scene.Text
	onAnimating func(scene.Text, scene.Frame)
}

// NewText returns an unloaded Text placed at t.
func NewText(t scene.Transform, a Anchor) *Text {
	x := &Text{}
	x.init(t, a)
	return x
}

func (x *Text) Kind() Kind { return KindText }

// Create builds a dark panel holding the text, places it at the captured
// transform and adds it to root.
func (x *Text) Create(root scene.Root, p TextParams) *Text {
	factory := root.Factory()
	container := factory.NewBlock(scene.BlockStyle{
		Width:             1,
		Height:            0.2,
		Padding:           0.02,
		BorderRadius:      0.11,
		FontSize:          0.07,
		FontFamily:        DefaultFontFamily,
		FontTexture:       DefaultFontTexture,
		JustifyContent:    "center",
		ContentDirection:  "row-reverse",
		BackgroundColor:   0x222222,
		BackgroundOpacity: 1,
	})
	container.SetTransform(x.placement(p.Angle))
	root.Add(container)

	text := factory.NewText(p.Content)
	container.Add(text)

	x.container = container
	x.text = text
	x.setLoaded()
	return x
}

// OnAnimating registers fn to run on every frame with the text handle, e.g. to
// show a live clock.
func (x *Text) OnAnimating(fn func(text scene.Text, f scene.Frame)) *Text {
	x.onAnimating = fn
	return x
}

// OnStateChange registers fn to run after every applied state change.
func (x *Text) OnStateChange(fn func(x *Text, s State)) *Text {
	x.OnChangeState(func(s State) { fn(x, s) })
	return x
}

// Text returns the text handle, or nil before Create.
func (x *Text) Text() scene.Text { return x.text }

func (x *Text) Animate(f scene.Frame) {
	if x.onAnimating != nil && x.text != nil {
		x.onAnimating(x.text, f)
	}
}
