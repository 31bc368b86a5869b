package memscene

import (
	"github.com/go-digitaltwin/go-scenetwin/scene"
)

// blockDepth is the thickness given to UI blocks so that rays can hit them.
const blockDepth = 0.01

// DefaultMeshExtent is the hit-volume half size of a loaded mesh, roughly a
// human-sized character.
var DefaultMeshExtent = scene.Vec3{0.4, 1, 0.4}

// Block is an in-memory scene.Block whose hit volume follows its width and
// height.
type Block struct {
	*Object3D
	style scene.BlockStyle
}

func newBlock(style scene.BlockStyle) *Block {
	b := &Block{Object3D: NewObject("block", scene.Vec3{})}
	b.self = b
	b.SetStyle(style)
	return b
}

func (b *Block) Style() scene.BlockStyle { return b.style }

// SetStyle replaces the style and resizes the hit volume accordingly.
func (b *Block) SetStyle(style scene.BlockStyle) {
	b.style = style
	b.extent = scene.Vec3{style.Width / 2, style.Height / 2, blockDepth / 2}
}

// Text is an in-memory scene.Text. It has no hit volume of its own.
type Text struct {
	*Object3D
	content string
}

func newText(content string) *Text {
	t := &Text{Object3D: NewObject("text", scene.Vec3{}), content: content}
	t.self = t
	return t
}

func (t *Text) Content() string     { return t.content }
func (t *Text) SetContent(s string) { t.content = s }

// Light is an ambient light.
type Light struct {
	*Object3D
	Color     scene.Color
	Intensity float64
}

func newAmbientLight(c scene.Color, intensity float64) *Light {
	l := &Light{Object3D: NewObject("ambient-light", scene.Vec3{}), Color: c, Intensity: intensity}
	l.self = l
	return l
}

// Motion is an animation clip identified by the asset path it was loaded from.
type Motion struct {
	path string
}

func (m Motion) Name() string { return m.path }

// Mesh is an in-memory scene.Mesh that records what it is playing.
type Mesh struct {
	*Object3D
	path    string
	playing []scene.Motion
}

func newMesh(path string) *Mesh {
	m := &Mesh{Object3D: NewObject(path, DefaultMeshExtent), path: path}
	m.self = m
	return m
}

// Path returns the asset path the mesh was loaded from.
func (m *Mesh) Path() string { return m.path }

func (m *Mesh) Play(motions ...scene.Motion) {
	m.playing = append(m.playing[:0], motions...)
}

// Playing returns the motions passed to the last Play call.
func (m *Mesh) Playing() []scene.Motion {
	p := make([]scene.Motion, len(m.playing))
	copy(p, m.playing)
	return p
}
