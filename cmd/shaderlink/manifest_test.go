package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/shaderlink/config"
	"github.com/gogpu/shaderlink/ir"
	"github.com/gogpu/shaderlink/link"
)

const sampleManifest = `
[attribute_locations]
pos = 2

[transform_feedback]
varyings = ["v_color"]
mode = "separate"

[[shader]]
stage = "vertex"
main = ["gl_Position = pos", "v_color = pos"]

  [[shader.global]]
  name = "pos"
  type = "vec4"
  qualifier = "in"

  [[shader.global]]
  name = "v_color"
  type = "vec4"
  qualifier = "out"

  [[shader.global]]
  name = "gl_Position"
  type = "vec4"
  qualifier = "out"
  builtin = "position"

[[shader]]
stage = "fragment"
main = ["color = v_color * tint"]

  [[shader.global]]
  name = "v_color"
  type = "vec4"
  qualifier = "in"

  [[shader.global]]
  name = "tint"
  type = "vec4"
  qualifier = "uniform"

  [[shader.global]]
  name = "color"
  type = "vec4"
  qualifier = "out"
  location = 0
`

// ===== Decoding =====

func TestDecodeManifest(t *testing.T) {
	m, err := DecodeManifest(sampleManifest)
	require.NoError(t, err)
	require.Len(t, m.Shaders, 2)
	assert.Equal(t, map[string]int{"pos": 2}, m.AttributeLocations)
	require.NotNil(t, m.Shaders[1].Globals[2].Location)
	assert.Equal(t, 0, *m.Shaders[1].Globals[2].Location)

	opts, err := m.LinkOptions()
	require.NoError(t, err)
	assert.Equal(t, link.TransformFeedbackSeparate, opts.TransformFeedbackMode)
	assert.Equal(t, []string{"v_color"}, opts.TransformFeedbackVaryings)

	tests := []struct {
		name string
		text string
	}{
		{"unknown key", "shaders = 1\n[[shader]]\nstage = \"vertex\"\n"},
		{"no shaders", "config = \"x.toml\"\n"},
		{"syntax", "[[shader]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeManifest(tt.text)
			assert.Error(t, err)
		})
	}

	t.Run("bad mode", func(t *testing.T) {
		m := &Manifest{TransformFeedback: TransformFeedback{Mode: "sideways"}}
		_, err := m.LinkOptions()
		assert.Error(t, err)
	})
}

// ===== Tree building =====

func TestStageModule(t *testing.T) {
	m, err := DecodeManifest(sampleManifest)
	require.NoError(t, err)

	fs, err := m.Shaders[1].Module()
	require.NoError(t, err)
	assert.Equal(t, ir.StageFragment, fs.Stage)
	assert.Equal(t, 310, fs.Version)
	color, ok := fs.FindGlobal("color")
	require.True(t, ok)
	assert.Equal(t, 0, fs.GlobalVariables[color].Layout.Location)
	assert.Len(t, fs.Main().Body, 1)

	errs, err := ir.Validate(fs)
	require.NoError(t, err)
	assert.Empty(t, errs)

	tests := []struct {
		name  string
		stage Stage
	}{
		{"unknown stage", Stage{Stage: "tessellation"}},
		{"unknown type", Stage{Stage: "vertex", Globals: []Global{{Name: "a", Type: "vec5"}}}},
		{"unknown qualifier", Stage{Stage: "vertex", Globals: []Global{{Name: "a", Type: "float", Qualifier: "inout"}}}},
		{"unknown builtin", Stage{Stage: "vertex", Globals: []Global{{Name: "a", Type: "float", Builtin: "layer"}}}},
		{"undeclared operand", Stage{Stage: "vertex", Main: []string{"a = b"}}},
		{"missing assignment", Stage{Stage: "vertex", Globals: []Global{{Name: "a", Type: "float"}}, Main: []string{"a"}}},
		{"unknown operator", Stage{Stage: "vertex", Globals: []Global{{Name: "a", Type: "float"}}, Main: []string{"a = a % a"}}},
		{"workgroup", Stage{Stage: "compute", WorkGroupSize: []uint32{1, 1, 1, 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.stage.Module()
			assert.Error(t, err)
		})
	}
}

func TestParseType(t *testing.T) {
	m := &ir.Module{}
	types := ir.NewTypeRegistry(m)
	for _, name := range []string{"float", "int", "uint", "bool", "vec2", "ivec3", "uvec4", "bvec2", "mat3", "sampler2D", "samplerCube"} {
		t.Run(name, func(t *testing.T) {
			_, err := parseType(types, name)
			assert.NoError(t, err)
		})
	}
	for _, name := range []string{"", "vec", "vec1", "mat5", "dvec2", "vec4x"} {
		_, err := parseType(types, name)
		assert.Error(t, err, name)
	}
}

// ===== End to end =====

func TestLinkManifest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "program.toml")
	require.NoError(t, os.WriteFile(path, []byte("config = \"device.toml\"\n"+sampleManifest), 0o644))

	var cfgText bytes.Buffer
	cfg := config.Default()
	cfg.Target = config.TargetES310
	require.NoError(t, config.Write(&cfgText, cfg))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "device.toml"), cfgText.Bytes(), 0o644))

	m, err := LoadManifest(path)
	require.NoError(t, err)
	loaded, err := m.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, config.TargetES310, loaded.Target)

	p, err := linkManifest(m, loaded)
	require.NoError(t, err)
	assert.Equal(t, 2, p.GetAttributeLocation("pos"))

	var out bytes.Buffer
	report(&out, p)
	text := out.String()
	assert.Contains(t, text, "// attribute pos")
	assert.Contains(t, text, "// capture   v_color")
	assert.Contains(t, text, "#version 310 es")
	assert.Contains(t, text, "// variable  tint")
}
