package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/shaderlink/cache"
	"github.com/gogpu/shaderlink/glsl"
	"github.com/gogpu/shaderlink/link"
	"github.com/gogpu/shaderlink/rewrite"
)

// ===== Decoding =====

func TestDecode(t *testing.T) {
	t.Run("empty keeps defaults", func(t *testing.T) {
		cfg, err := Decode("")
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
	})

	t.Run("overrides", func(t *testing.T) {
		cfg, err := Decode(`
target = "es320"
webgl = true
cache_size = 8

[client_version]
major = 3
minor = 2

[caps]
max_draw_buffers = 4
max_shader_uniform_blocks = [14, 14, 14, 14]

[limitations]
no_vertex_attribute_aliasing = true

[features]
emulate_transform_feedback = true
basic_gl_line_rasterization = true
force_driver_uniform_basic = true
`)
		require.NoError(t, err)
		assert.Equal(t, TargetES320, cfg.Target)
		assert.True(t, cfg.WebGL)
		assert.Equal(t, 8, cfg.CacheSize)
		assert.Equal(t, link.Version{Major: 3, Minor: 2}, cfg.ClientVersion)
		assert.Equal(t, 4, cfg.Caps.MaxDrawBuffers)
		assert.Equal(t, 14, cfg.Caps.MaxShaderUniformBlocks[3])
		assert.Equal(t, 16, cfg.Caps.MaxVertexAttributes, "unset caps keep defaults")
		assert.True(t, cfg.Limitations.NoVertexAttributeAliasing)
		assert.True(t, cfg.Features.EmulateTransformFeedback)
		assert.True(t, cfg.Features.BasicGLLineRasterization)
		assert.False(t, cfg.Features.EnablePreRotation)
	})

	tests := []struct {
		name string
		text string
		want string
	}{
		{"unknown key", "colour = 1", "unknown keys colour"},
		{"unknown nested key", "[features]\nfast = true", "features.fast"},
		{"bad target", `target = "metal"`, `unknown target "metal"`},
		{"bad version", "[client_version]\nmajor = 4", "unsupported client version 4"},
		{"bad cache size", "cache_size = 0", "cache_size must be positive"},
		{"bad subpixel bits", "[caps]\nsub_pixel_bits = 20", "sub_pixel_bits 20"},
		{"syntax", "target = ", "config:"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.text)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadWrite(t *testing.T) {
	cfg := Default()
	cfg.Target = TargetES310
	cfg.Features.EnablePreRotation = true
	cfg.Caps.MaxUniformLocations = 2048

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, cfg))

	path := filepath.Join(t.TempDir(), "shaderlink.toml")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

// ===== Derived Settings =====

func TestGLSLVersion(t *testing.T) {
	tests := []struct {
		target string
		want   glsl.Version
	}{
		{TargetVulkan, glsl.Version450},
		{"", glsl.Version450},
		{TargetES310, glsl.VersionES310},
		{TargetES320, glsl.VersionES320},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			cfg := Default()
			cfg.Target = tt.target
			got, err := cfg.GLSLVersion()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRewriteOptions(t *testing.T) {
	cfg := Default()
	cfg.Features = Features{
		EmulateTransformFeedback:      true,
		SupportsDepthClipControl:      true,
		EmulateSeamfulCubeMapSampling: true,
	}
	cfg.Caps.SubPixelBits = 8

	opts := cfg.RewriteOptions()
	assert.True(t, opts.EmulateTransformFeedback)
	assert.True(t, opts.SupportsDepthClipControl)
	assert.True(t, opts.EmulateSeamfulCubeMapSampling)
	assert.False(t, opts.BasicLineRasterization)
	assert.Equal(t, 8, opts.SubPixelBits)

	driver, ok := opts.DriverUniforms.(*rewrite.DriverUniforms)
	require.True(t, ok)
	assert.True(t, driver.Extended())

	cfg.Features.ForceDriverUniformBasic = true
	driver = cfg.RewriteOptions().DriverUniforms.(*rewrite.DriverUniforms)
	assert.False(t, driver.Extended())
	assert.NotSame(t, driver, cfg.RewriteOptions().DriverUniforms)
}

func TestLinkInputAndKey(t *testing.T) {
	cfg := Default()
	cfg.WebGL = true
	in := cfg.LinkInput()
	assert.Equal(t, cfg.Caps, in.Caps)
	assert.Equal(t, cfg.ClientVersion, in.ClientVersion)
	assert.True(t, in.WebGL)

	key := func(c Config) cache.Key {
		return cache.InputKey(c.LinkInput(), c.AddToKey)
	}
	base := key(cfg)
	assert.Equal(t, base, key(cfg))

	other := cfg
	other.Features.EnablePreRotation = true
	assert.NotEqual(t, base, key(other))

	other = cfg
	other.Caps.MaxDrawBuffers = 4
	assert.NotEqual(t, base, key(other))

	other = cfg
	other.Target = TargetES310
	assert.NotEqual(t, base, key(other))
}
