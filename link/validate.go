package link

import (
	"github.com/gogpu/shaderlink/shader"
)

// ValidateShaders checks that the attached stages form a linkable program.
// It runs before any resource work.
func ValidateShaders(shaders [shader.StageCount]*shader.Shader) error {
	compute := shaders[shader.StageCompute]
	graphics := false
	for _, s := range shader.GraphicsStages {
		if shaders[s] != nil {
			graphics = true
		}
	}

	if compute == nil && !graphics {
		return newError(ErrInvalidStages, "No compiled shaders.")
	}
	for stage, s := range shaders {
		if s != nil && !s.Compiled {
			return newError(ErrInvalidStages, "%s shader is not compiled.", shader.Stage(stage))
		}
	}

	if compute != nil {
		if graphics {
			return newError(ErrInvalidStages, "Both compute and graphics shaders are attached to the same program.")
		}
		if !compute.HasWorkGroupSize() {
			return newError(ErrInvalidStages, "Work group size is not specified.")
		}
		return nil
	}

	vertex := shaders[shader.StageVertex]
	fragment := shaders[shader.StageFragment]
	if fragment == nil {
		return newError(ErrInvalidStages, "No compiled fragment shader when at least one graphics shader is attached.")
	}
	if vertex == nil {
		return newError(ErrInvalidStages, "No compiled vertex shader when at least one graphics shader is attached.")
	}
	if fragment.Version != vertex.Version {
		return newError(ErrInvalidStages, "Fragment shader version does not match vertex shader version.")
	}

	if geometry := shaders[shader.StageGeometry]; geometry != nil {
		if geometry.Version != vertex.Version {
			return newError(ErrInvalidStages, "Geometry shader version does not match vertex shader version.")
		}
		if geometry.GeometryInput == shader.PrimitiveNone {
			return newError(ErrInvalidStages, "Input primitive type is not specified in the geometry shader.")
		}
		if geometry.GeometryOutput == shader.PrimitiveNone {
			return newError(ErrInvalidStages, "Output primitive type is not specified in the geometry shader.")
		}
		if geometry.GeometryMaxVertices < 0 {
			return newError(ErrInvalidStages, "'max_vertices' is not specified in the geometry shader.")
		}
	}
	return nil
}
