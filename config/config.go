// Package config loads linker and translator settings from TOML.
//
// A minimal file only overrides what differs from Default:
//
//	target = "vulkan"
//	cache_size = 512
//
//	[client_version]
//	major = 3
//	minor = 2
//
//	[features]
//	emulate_transform_feedback = true
package config

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/gogpu/shaderlink/cache"
	"github.com/gogpu/shaderlink/glsl"
	"github.com/gogpu/shaderlink/link"
	"github.com/gogpu/shaderlink/rewrite"
)

// Code generation targets.
const (
	TargetVulkan = "vulkan"
	TargetES310  = "es310"
	TargetES320  = "es320"
)

// Features toggles backend emulation paths.
type Features struct {
	EmulateTransformFeedback      bool `toml:"emulate_transform_feedback"`
	BasicGLLineRasterization      bool `toml:"basic_gl_line_rasterization"`
	EnablePreRotation             bool `toml:"enable_pre_rotation"`
	SupportsDepthClipControl      bool `toml:"supports_depth_clip_control"`
	EmulateSeamfulCubeMapSampling bool `toml:"emulate_seamful_cube_map_sampling"`

	// ForceDriverUniformBasic selects the basic driver uniform block even
	// where the extended one is available.
	ForceDriverUniformBasic bool `toml:"force_driver_uniform_basic"`
}

// Config is the complete linker configuration.
type Config struct {
	ClientVersion link.Version     `toml:"client_version"`
	WebGL         bool             `toml:"webgl"`
	Target        string           `toml:"target"`
	CacheSize     int              `toml:"cache_size"`
	Caps          link.Caps        `toml:"caps"`
	Limitations   link.Limitations `toml:"limitations"`
	Features      Features         `toml:"features"`
}

// Default returns an OpenGL ES 3.1 context translated to Vulkan GLSL.
func Default() Config {
	return Config{
		ClientVersion: link.Version{Major: 3, Minor: 1},
		Target:        TargetVulkan,
		CacheSize:     cache.DefaultSize,
		Caps:          link.DefaultCaps(),
	}
}

// Load reads a TOML file on top of Default.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	cfg, err := Decode(string(data))
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Decode parses TOML text on top of Default. Unknown keys are an error.
func Decode(text string) (Config, error) {
	cfg := Default()
	md, err := toml.Decode(text, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("config: unknown keys %s", strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Write encodes cfg as TOML.
func Write(w io.Writer, cfg Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Validate checks the values Decode cannot.
func (c Config) Validate() error {
	if _, err := c.GLSLVersion(); err != nil {
		return err
	}
	if c.ClientVersion.Major < 2 || c.ClientVersion.Major > 3 {
		return fmt.Errorf("config: unsupported client version %d.%d", c.ClientVersion.Major, c.ClientVersion.Minor)
	}
	if c.CacheSize <= 0 {
		return fmt.Errorf("config: cache_size must be positive, got %d", c.CacheSize)
	}
	if c.Caps.SubPixelBits < 0 || c.Caps.SubPixelBits > 16 {
		return fmt.Errorf("config: sub_pixel_bits %d out of range", c.Caps.SubPixelBits)
	}
	return nil
}

// GLSLVersion returns the output language of Target.
func (c Config) GLSLVersion() (glsl.Version, error) {
	switch c.Target {
	case TargetVulkan, "":
		return glsl.Version450, nil
	case TargetES310:
		return glsl.VersionES310, nil
	case TargetES320:
		return glsl.VersionES320, nil
	default:
		return glsl.Version{}, fmt.Errorf("config: unknown target %q", c.Target)
	}
}

// RewriteOptions returns the translation options implied by the features
// and caps. A fresh driver uniform provider is created per call, since a
// provider tracks the block it declared in one shader.
func (c Config) RewriteOptions() rewrite.Options {
	opts := rewrite.Options{
		EmulateTransformFeedback:      c.Features.EmulateTransformFeedback,
		BasicLineRasterization:        c.Features.BasicGLLineRasterization,
		EnablePreRotation:             c.Features.EnablePreRotation,
		SupportsDepthClipControl:      c.Features.SupportsDepthClipControl,
		EmulateSeamfulCubeMapSampling: c.Features.EmulateSeamfulCubeMapSampling,
		SubPixelBits:                  c.Caps.SubPixelBits,
	}
	if c.Features.ForceDriverUniformBasic {
		opts.DriverUniforms = rewrite.NewBasicDriverUniforms()
	} else {
		opts.DriverUniforms = rewrite.NewExtendedDriverUniforms()
	}
	return opts
}

// LinkInput returns a link input carrying the API state of the config.
// Shaders and bindings are filled in by the caller.
func (c Config) LinkInput() *link.Input {
	return &link.Input{
		ClientVersion: c.ClientVersion,
		Caps:          c.Caps,
		Limitations:   c.Limitations,
		WebGL:         c.WebGL,
	}
}

// AddToKey hashes every setting that changes the link or the generated
// code.
func (c Config) AddToKey(b *cache.KeyBuilder) {
	b.String(c.Target)
	f := c.Features
	b.Bool(f.EmulateTransformFeedback).Bool(f.BasicGLLineRasterization).Bool(f.EnablePreRotation)
	b.Bool(f.SupportsDepthClipControl).Bool(f.EmulateSeamfulCubeMapSampling).Bool(f.ForceDriverUniformBasic)

	caps := c.Caps
	b.Int(caps.MaxVertexAttributes).Int(caps.MaxDrawBuffers).Int(caps.MaxDualSourceDrawBuffers)
	b.Int(caps.MaxUniformLocations)
	for i := range caps.MaxShaderUniformBlocks {
		b.Int(caps.MaxShaderUniformBlocks[i]).Int(caps.MaxShaderStorageBlocks[i])
	}
	b.Int(caps.MaxCombinedUniformBlocks).Int(caps.MaxCombinedShaderStorageBlocks)
	b.Int(caps.MaxCombinedShaderOutputResources)
	b.Int(caps.MaxTransformFeedbackInterleavedComponents).Int(caps.MaxTransformFeedbackSeparateComponents)
	b.Int(caps.MaxTransformFeedbackSeparateAttributes).Int(caps.MaxTransformFeedbackBuffers)
	b.Int(caps.SubPixelBits)
}
