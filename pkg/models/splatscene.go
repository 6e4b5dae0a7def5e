package models

import (
	"github.com/taigrr/splatview/pkg/math3d"
	"github.com/taigrr/splatview/pkg/splat"
)

// SceneOptions controls how a loaded mesh is synthesized into a splat
// scene, since GLTF geometry carries no native opacity or SH coefficients.
type SceneOptions struct {
	// Opacity is applied uniformly to every vertex; defaults to 0.9.
	Opacity float64

	// Color is applied uniformly to every vertex; defaults to white.
	Color [3]uint8

	// Sigma is the edge-shrink exponent; defaults to 1.0.
	Sigma float64
}

// LoadSplatScene loads a GLTF or GLB file and adapts it into a splat.SceneInput.
func LoadSplatScene(path string, opts SceneOptions) (*splat.SceneInput, error) {
	loader := NewGLTFLoader()
	mesh, err := loader.Load(path)
	if err != nil {
		return nil, err
	}
	return ToSceneInput(mesh, opts), nil
}

// ToSceneInput converts an already-loaded Mesh into a splat.SceneInput,
// synthesizing per-vertex opacity and color from opts since Mesh carries
// neither.
func ToSceneInput(mesh *Mesh, opts SceneOptions) *splat.SceneInput {
	opacity := opts.Opacity
	if opacity <= 0 {
		opacity = 0.9
	}
	color := opts.Color
	if color == ([3]uint8{}) {
		color = [3]uint8{255, 255, 255}
	}
	sigma := opts.Sigma
	if sigma <= 0 {
		sigma = 1.0
	}

	in := &splat.SceneInput{
		Vertices:  make([]math3d.Vec3, 0, len(mesh.Vertices)),
		Opacities: make([]float64, len(mesh.Vertices)),
		Colors:    make([][3]uint8, len(mesh.Vertices)),
		Triangles: make([][3]uint32, len(mesh.Faces)),
		Sigma:     sigma,
	}
	for i, v := range mesh.Vertices {
		in.Vertices = append(in.Vertices, v.Position)
		in.Opacities[i] = opacity
		in.Colors[i] = color
	}
	for i, f := range mesh.Faces {
		in.Triangles[i] = [3]uint32{uint32(f.V[0]), uint32(f.V[1]), uint32(f.V[2])}
	}
	return in
}
