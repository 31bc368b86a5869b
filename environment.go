package scenetwin

import (
	"github.com/go-digitaltwin/go-scenetwin/scene"
)

// Environment prepares a freshly taken-over scene for the wrappers, once.
type Environment func(root scene.Root)

// DefaultEnvironment lights the scene for skinned models: a white ambient light
// at 0.7 intensity, soft PCF shadows, linear output encoding and linear tone
// mapping.
func DefaultEnvironment(root scene.Root) {
	root.Add(root.Factory().NewAmbientLight(0xffffff, 0.7))
	r := root.Renderer()
	r.SetShadowMap(true, scene.PCFSoftShadowMap)
	r.SetOutputEncoding(scene.LinearEncoding)
	r.SetToneMapping(scene.LinearToneMapping)
}
