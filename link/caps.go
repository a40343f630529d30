package link

import (
	"github.com/gogpu/shaderlink/shader"
)

// Caps holds the implementation limits the linker enforces.
type Caps struct {
	MaxVertexAttributes      int `toml:"max_vertex_attributes"`
	MaxDrawBuffers           int `toml:"max_draw_buffers"`
	MaxDualSourceDrawBuffers int `toml:"max_dual_source_draw_buffers"`
	MaxUniformLocations      int `toml:"max_uniform_locations"`

	// Per-stage block limits indexed by shader.Stage.
	MaxShaderUniformBlocks [shader.StageCount]int `toml:"max_shader_uniform_blocks"`
	MaxShaderStorageBlocks [shader.StageCount]int `toml:"max_shader_storage_blocks"`

	MaxCombinedUniformBlocks         int `toml:"max_combined_uniform_blocks"`
	MaxCombinedShaderStorageBlocks   int `toml:"max_combined_shader_storage_blocks"`
	MaxCombinedShaderOutputResources int `toml:"max_combined_shader_output_resources"`

	MaxTransformFeedbackInterleavedComponents int `toml:"max_transform_feedback_interleaved_components"`
	MaxTransformFeedbackSeparateComponents    int `toml:"max_transform_feedback_separate_components"`
	MaxTransformFeedbackSeparateAttributes    int `toml:"max_transform_feedback_separate_attributes"`
	MaxTransformFeedbackBuffers               int `toml:"max_transform_feedback_buffers"`

	// SubPixelBits is the rasterizer subpixel precision used by line
	// rasterization emulation.
	SubPixelBits int `toml:"sub_pixel_bits"`
}

// DefaultCaps returns OpenGL ES 3.1 minimum-style limits.
func DefaultCaps() Caps {
	return Caps{
		MaxVertexAttributes:      16,
		MaxDrawBuffers:           8,
		MaxDualSourceDrawBuffers: 1,
		MaxUniformLocations:      1024,

		MaxShaderUniformBlocks: [shader.StageCount]int{12, 12, 12, 12},
		MaxShaderStorageBlocks: [shader.StageCount]int{8, 8, 8, 8},

		MaxCombinedUniformBlocks:         36,
		MaxCombinedShaderStorageBlocks:   24,
		MaxCombinedShaderOutputResources: 32,

		MaxTransformFeedbackInterleavedComponents: 64,
		MaxTransformFeedbackSeparateComponents:    4,
		MaxTransformFeedbackSeparateAttributes:    4,
		MaxTransformFeedbackBuffers:               4,

		SubPixelBits: 4,
	}
}

// Limitations are device quirks that tighten link rules.
type Limitations struct {
	// NoVertexAttributeAliasing turns attribute aliasing into an error for
	// GLSL ES 1.00 shaders too.
	NoVertexAttributeAliasing bool `toml:"no_vertex_attribute_aliasing"`
}

// Version is a client API version.
type Version struct {
	Major int `toml:"major"`
	Minor int `toml:"minor"`
}

// AtLeast reports whether v >= major.minor.
func (v Version) AtLeast(major, minor int) bool {
	return v.Major > major || (v.Major == major && v.Minor >= minor)
}
