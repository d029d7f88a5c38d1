package model

import (
	"math"
	"sync"

	"github.com/Carmen-Shannon/oxy-iso/common"
	"github.com/Carmen-Shannon/oxy-iso/engine/renderer"
	"github.com/Carmen-Shannon/oxy-iso/engine/renderer/shader"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	// DefaultShaderDir is where the model program is read from unless WithShaderDir is given.
	DefaultShaderDir = "data/shaders"

	programKey  = "model"
	programName = "model"

	// diffuseUnit is the texture unit the base-color texture is bound to.
	diffuseUnit = 0
)

// DefaultTint is the color multiplied into every model unless WithTint is given.
var DefaultTint = [3]float32{1.0, 0.5, 0.2}

// model is the implementation of the Model interface.
type model struct {
	mu        sync.Mutex
	name      string
	renderer  renderer.Renderer
	program   shader.Program
	units     []DrawUnit
	transform Transform
	tint      [3]float32
	shaderDir string
	released  bool
}

// Model is a loaded glTF model placed in the world. It owns its draw units and its shader
// program and releases both exactly once.
type Model interface {
	// Name retrieves the model identifier.
	//
	// Returns:
	//   - string: the model name
	Name() string

	// Draw renders every draw unit with the given camera matrices. It is a no-op when the
	// model has no draw units. The model program, the last vertex array and the texture at
	// unit 0 stay bound afterwards, and depth testing is left enabled.
	//
	// Parameters:
	//   - view: the camera view matrix
	//   - projection: the camera projection matrix
	Draw(view, projection mgl32.Mat4)

	// Units returns the draw units owned by the model.
	//
	// Returns:
	//   - []DrawUnit: the draw units
	Units() []DrawUnit

	// Transform returns the current placement.
	//
	// Returns:
	//   - Transform: position, rotation and scale
	Transform() Transform

	// SetPosition sets the world position.
	//
	// Parameters:
	//   - position: the translation in world units
	SetPosition(position [3]float32)

	// Position returns the world position.
	Position() [3]float32

	// SetRotation sets the Euler rotation in degrees.
	//
	// Parameters:
	//   - rotation: rotation about X, Y and Z in degrees
	SetRotation(rotation [3]float32)

	// Rotation returns the Euler rotation in degrees.
	Rotation() [3]float32

	// SetScale sets the per-axis scale.
	//
	// Parameters:
	//   - scale: the scale factors
	SetScale(scale [3]float32)

	// Scale returns the per-axis scale.
	Scale() [3]float32

	// Rotate adds delta degrees to the current rotation.
	//
	// Parameters:
	//   - delta: degrees to add about X, Y and Z
	Rotate(delta [3]float32)

	// Tint returns the color multiplied into the base-color texture.
	Tint() [3]float32

	// ModelMatrix composes the current transform as T * Ry * Rx * Rz * S.
	//
	// Returns:
	//   - mgl32.Mat4: the model matrix
	ModelMatrix() mgl32.Mat4

	// Release frees every draw unit and the program. Later calls do nothing.
	Release()
}

var _ Model = &model{}

// NewModel creates a Model that draws units with the model program.
// The program is created even when units is empty so that a failed load still yields a
// usable, silent model.
//
// Parameters:
//   - r: the renderer the units were created on
//   - units: the draw units, ownership passes to the model
//   - options: functional options to configure the model
//
// Returns:
//   - Model: the model
func NewModel(r renderer.Renderer, units []DrawUnit, options ...ModelBuilderOption) Model {
	m := &model{
		name:      programName,
		renderer:  r,
		units:     units,
		transform: IdentityTransform(),
		tint:      DefaultTint,
		shaderDir: DefaultShaderDir,
	}
	for _, opt := range options {
		opt(m)
	}
	m.program = r.CreateProgram(shader.DescriptorFor(programKey, m.shaderDir, programName, r.ShadingLanguage()))
	return m
}

func (m *model) Name() string {
	return m.name
}

func (m *model) Draw(view, projection mgl32.Mat4) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.units) == 0 || m.released {
		return
	}

	modelMatrix := common.ModelMatrix(m.transform.Position, m.transform.Rotation, m.transform.Scale)

	m.program.Use()
	m.program.SetMat4("projection", projection)
	m.program.SetMat4("view", view)
	m.program.SetMat4("model", modelMatrix)
	m.program.SetVec3("uColor", m.tint[0], m.tint[1], m.tint[2])
	m.program.SetInt("texture_diffuse", diffuseUnit)

	m.renderer.SetDepthTest(true)
	m.renderer.SetFaceCulling(false)

	for _, u := range m.units {
		m.renderer.BindTexture(diffuseUnit, u.Texture)
		m.renderer.BindVertexArray(u.VertexArray)
		m.renderer.DrawElements(u.IndexCount, u.IndexType)
	}
}

func (m *model) Units() []DrawUnit {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.units
}

func (m *model) Transform() Transform {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transform
}

func (m *model) SetPosition(position [3]float32) {
	m.mu.Lock()
	m.transform.Position = position
	m.mu.Unlock()
}

func (m *model) Position() [3]float32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transform.Position
}

func (m *model) SetRotation(rotation [3]float32) {
	m.mu.Lock()
	m.transform.Rotation = rotation
	m.mu.Unlock()
}

func (m *model) Rotation() [3]float32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transform.Rotation
}

func (m *model) SetScale(scale [3]float32) {
	m.mu.Lock()
	m.transform.Scale = scale
	m.mu.Unlock()
}

func (m *model) Scale() [3]float32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transform.Scale
}

func (m *model) Rotate(delta [3]float32) {
	m.mu.Lock()
	for i := range delta {
		// wrapped to (-360, 360) so long spins keep float precision
		m.transform.Rotation[i] = float32(math.Mod(float64(m.transform.Rotation[i]+delta[i]), 360))
	}
	m.mu.Unlock()
}

func (m *model) Tint() [3]float32 {
	return m.tint
}

func (m *model) ModelMatrix() mgl32.Mat4 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return common.ModelMatrix(m.transform.Position, m.transform.Rotation, m.transform.Scale)
}

func (m *model) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.released {
		return
	}
	m.released = true
	for _, u := range m.units {
		u.Release()
	}
	m.units = nil
	m.program.Release()
}
