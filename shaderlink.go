// Package shaderlink links GLSL ES shader stages into a program executable
// and translates every stage to Vulkan-flavoured GLSL.
//
// The pipeline is:
//  1. Reflect each compiled tree into a shader.Shader
//  2. Validate the attached stages and link their resources (link)
//  3. Translate each tree for the target API (rewrite)
//  4. Generate the code of each stage (glsl)
//
// Linked programs are cached in cache.Shared unless the caller passes
// program.WithCache.
//
// Example usage:
//
//	vs, _ := shaderlink.FromModule(vertexTree)
//	fs, _ := shaderlink.FromModule(fragmentTree)
//	p, err := shaderlink.Link(config.Default(), vs, fs)
//	if err != nil {
//	    log.Fatal(p.InfoLog())
//	}
//	code := p.Source(shader.StageVertex)
//
// For finer control over bindings and the link state machine, use the
// program package directly.
package shaderlink

import (
	"fmt"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/gogpu/shaderlink/config"
	"github.com/gogpu/shaderlink/glsl"
	"github.com/gogpu/shaderlink/ir"
	"github.com/gogpu/shaderlink/link"
	"github.com/gogpu/shaderlink/program"
	"github.com/gogpu/shaderlink/shader"
)

// LinkOptions configures a link beyond the device config.
type LinkOptions struct {
	// AttributeLocations binds attribute names to locations.
	AttributeLocations map[string]int

	// UniformLocations binds default block uniforms to locations.
	UniformLocations map[string]int

	// FragDataLocations binds fragment outputs to draw buffers.
	FragDataLocations map[string]int

	// TransformFeedbackVaryings lists the varyings to capture, in order.
	TransformFeedbackVaryings []string
	TransformFeedbackMode     link.TransformFeedbackMode

	// Program configures the program object (cache, executor, logger).
	Program []program.Option
}

// FromModule reflects a compiled tree into an attachable shader. The GLSL
// text of the untranslated tree is recorded as the shader source, which
// the program cache keys on.
func FromModule(module *ir.Module) (*shader.Shader, error) {
	s, err := shader.Reflect(module)
	if err != nil {
		return nil, err
	}
	source, _, err := glsl.Compile(module, glsl.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("shaderlink: %s shader: %w", module.Stage, err)
	}
	s.Source = source
	return s, nil
}

// Link links shaders into a new program using cfg and waits for code
// generation. On failure the program is still returned so that its info
// log can be read.
func Link(cfg config.Config, shaders ...*shader.Shader) (*program.Program, error) {
	return LinkWithOptions(cfg, LinkOptions{}, shaders...)
}

// LinkWithOptions links shaders with explicit API bindings.
func LinkWithOptions(cfg config.Config, opts LinkOptions, shaders ...*shader.Shader) (*program.Program, error) {
	p, err := program.New(cfg, opts.Program...)
	if err != nil {
		return nil, err
	}
	for _, s := range shaders {
		if s == nil {
			return nil, fmt.Errorf("shaderlink: nil shader")
		}
		if p.AttachedShader(s.Stage) != nil {
			return nil, fmt.Errorf("shaderlink: two %s shaders", s.Stage)
		}
		p.AttachShader(s)
	}

	bind(opts.AttributeLocations, p.BindAttribLocation)
	bind(opts.UniformLocations, p.BindUniformLocation)
	bind(opts.FragDataLocations, p.BindFragDataLocation)
	if len(opts.TransformFeedbackVaryings) > 0 {
		p.TransformFeedbackVaryings(opts.TransformFeedbackVaryings, opts.TransformFeedbackMode)
	}

	if err := p.Link(); err != nil {
		return p, err
	}
	return p, p.ResolveLink()
}

// LinkModules reflects each tree and links the result.
func LinkModules(cfg config.Config, modules ...*ir.Module) (*program.Program, error) {
	shaders := make([]*shader.Shader, 0, len(modules))
	for _, m := range modules {
		s, err := FromModule(m)
		if err != nil {
			return nil, err
		}
		shaders = append(shaders, s)
	}
	return Link(cfg, shaders...)
}

func bind(m map[string]int, fn func(location int, name string)) {
	names := maps.Keys(m)
	slices.Sort(names)
	for _, name := range names {
		fn(m[name], name)
	}
}
