package model

// ModelBuilderOption is a functional option for configuring a Model via NewModel.
type ModelBuilderOption func(*model)

// WithName is an option builder that sets the name of the Model.
//
// Parameters:
//   - name: the model identifier
//
// Returns:
//   - ModelBuilderOption: a function that applies the name option to a model
func WithName(name string) ModelBuilderOption {
	return func(m *model) {
		m.name = name
	}
}

// WithPosition is an option builder that sets the initial world position of the Model.
//
// Parameters:
//   - position: the translation in world units
//
// Returns:
//   - ModelBuilderOption: a function that applies the position option to a model
func WithPosition(position [3]float32) ModelBuilderOption {
	return func(m *model) {
		m.transform.Position = position
	}
}

// WithRotation is an option builder that sets the initial Euler rotation of the Model in degrees.
//
// Parameters:
//   - rotation: rotation about X, Y and Z in degrees
//
// Returns:
//   - ModelBuilderOption: a function that applies the rotation option to a model
func WithRotation(rotation [3]float32) ModelBuilderOption {
	return func(m *model) {
		m.transform.Rotation = rotation
	}
}

// WithScale is an option builder that sets the initial per-axis scale of the Model.
//
// Parameters:
//   - scale: the scale factors
//
// Returns:
//   - ModelBuilderOption: a function that applies the scale option to a model
func WithScale(scale [3]float32) ModelBuilderOption {
	return func(m *model) {
		m.transform.Scale = scale
	}
}

// WithUniformScale scales the Model by s along every axis.
func WithUniformScale(s float32) ModelBuilderOption {
	return WithScale([3]float32{s, s, s})
}

// WithTint is an option builder that sets the color multiplied into the base-color texture.
//
// Parameters:
//   - tint: the RGB tint
//
// Returns:
//   - ModelBuilderOption: a function that applies the tint option to a model
func WithTint(tint [3]float32) ModelBuilderOption {
	return func(m *model) {
		m.tint = tint
	}
}

// WithShaderDir is an option builder that sets the directory the model program is read from.
//
// Parameters:
//   - dir: the shader asset directory
//
// Returns:
//   - ModelBuilderOption: a function that applies the shader directory option to a model
func WithShaderDir(dir string) ModelBuilderOption {
	return func(m *model) {
		m.shaderDir = dir
	}
}
