package scenetwin

import (
	"github.com/go-digitaltwin/go-scenetwin/scene"
)

// Interaction is the pointer interaction state of a Button.
type Interaction int

const (
	Idle Interaction = iota
	Hovered
	Selected
)

func (i Interaction) String() string {
	switch i {
	case Idle:
		return "idle"
	case Hovered:
		return "hovered"
	case Selected:
		return "selected"
	default:
		return "unknown"
	}
}

// ButtonColor is the look of a Button in one interaction state.
type ButtonColor struct {
	Background scene.Color
	Font       scene.Color
}

// ButtonParams configures the interactive button that replaces a placeholder.
type ButtonParams struct {
	Content string
	Width   float64
	Height  float64
	// Angle is the yaw of the button in degrees.
	Angle float64
	// Styles holds the colours per interaction state. A state without an entry
	// keeps the colours it had.
	Styles map[Interaction]ButtonColor
}

// Button is the wrapper variant that replaces a placeholder with a clickable
// UI button. It hit-tests itself against the pointer on every frame.
type Button struct {
	Wrapper
	camera      scene.Camera
	container   scene.Block
	block       scene.Block
	text        scene.Text
	styles      map[Interaction]ButtonColor
	interaction Interaction
	onClick     func(*Button)
	onAnimating func(scene.Text, scene.Frame)
}

// NewButton returns an unloaded Button placed at t.
func NewButton(t scene.Transform, a Anchor) *Button {
	b := &Button{}
	b.init(t, a)
	return b
}

func (b *Button) Kind() Kind { return KindButton }

// Create builds the button (a transparent container holding the button block
// and its text), places it at the captured transform and adds it to root. The
// button starts idle.
func (b *Button) Create(root scene.Root, p ButtonParams) *Button {
	factory := root.Factory()

	container := factory.NewBlock(scene.BlockStyle{
		Width:             1,
		Height:            1,
		Padding:           0.02,
		BorderRadius:      0.11,
		FontSize:          0.14,
		FontFamily:        DefaultFontFamily,
		FontTexture:       DefaultFontTexture,
		JustifyContent:    "center",
		ContentDirection:  "row-reverse",
		BackgroundColor:   0xffffff,
		BackgroundOpacity: 0,
	})
	container.SetTransform(b.placement(p.Angle))

	block := factory.NewBlock(scene.BlockStyle{
		Width:             p.Width,
		Height:            p.Height,
		Margin:            0.02,
		Offset:            0.05,
		BorderRadius:      0.075,
		JustifyContent:    "center",
		BackgroundOpacity: 1,
	})
	text := factory.NewText(p.Content)
	block.Add(text)
	container.Add(block)
	root.Add(container)

	b.styles = p.Styles
	b.camera = root.Camera()
	b.container = container
	b.block = block
	b.text = text
	b.applyStyle(Idle)
	b.setLoaded()
	return b
}

// OnClick registers fn to run every time the button enters the selected state.
func (b *Button) OnClick(fn func(*Button)) *Button {
	b.onClick = fn
	return b
}

// OnAnimating registers fn to run on every frame with the button's text.
func (b *Button) OnAnimating(fn func(text scene.Text, f scene.Frame)) *Button {
	b.onAnimating = fn
	return b
}

// OnStateChange registers fn to run after every applied state change.
func (b *Button) OnStateChange(fn func(b *Button, s State)) *Button {
	b.OnChangeState(func(s State) { fn(b, s) })
	return b
}

// Interaction returns the current pointer interaction state.
func (b *Button) Interaction() Interaction { return b.interaction }

// Text returns the text handle of the button, or nil before Create.
func (b *Button) Text() scene.Text { return b.text }

// Animate hit-tests the button against the frame's pointer and then runs the
// animation handler. A frame without a pointer or raycaster leaves the
// interaction state alone.
func (b *Button) Animate(f scene.Frame) {
	if b.block == nil {
		return
	}
	if f.Pointer != nil && f.Raycaster != nil && b.camera != nil {
		f.Raycaster.SetFromCamera(*f.Pointer, b.camera)
		switch hit := f.Raycaster.IntersectObject(b.block, true); {
		case hit && f.Select:
			b.setInteraction(Selected)
		case hit:
			b.setInteraction(Hovered)
		default:
			b.setInteraction(Idle)
		}
	}
	if b.onAnimating != nil {
		b.onAnimating(b.text, f)
	}
}

// setInteraction moves the button to i. Staying in the same state does
// nothing, which is what makes a held click fire once.
func (b *Button) setInteraction(i Interaction) {
	if i == b.interaction {
		return
	}
	b.interaction = i
	b.applyStyle(i)
	if i == Selected && b.onClick != nil {
		b.onClick(b)
	}
}

// interactionOffset is the z offset of the button block per interaction state;
// a selected button sinks towards its container.
var interactionOffset = map[Interaction]float64{
	Idle:     0.035,
	Hovered:  0.035,
	Selected: 0.02,
}

func (b *Button) applyStyle(i Interaction) {
	style := b.block.Style()
	style.Offset = interactionOffset[i]
	style.BackgroundOpacity = 1
	if c, ok := b.styles[i]; ok {
		style.BackgroundColor = c.Background
		style.FontColor = c.Font
	}
	b.block.SetStyle(style)
}
