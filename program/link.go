package program

import (
	"errors"
	"fmt"

	"github.com/gogpu/shaderlink/binary"
	"github.com/gogpu/shaderlink/cache"
	"github.com/gogpu/shaderlink/config"
	"github.com/gogpu/shaderlink/glsl"
	"github.com/gogpu/shaderlink/ir"
	"github.com/gogpu/shaderlink/link"
	"github.com/gogpu/shaderlink/rewrite"
	"github.com/gogpu/shaderlink/shader"
)

// LinkingState is the transient state of one link. It exists from Link
// until ResolveLink installs or discards the result.
type LinkingState struct {
	Key        cache.Key
	Executable *link.Executable

	event *LinkEvent

	// result is written by the task before event completes.
	result *binary.Program
}

// Event returns the pending code generation.
func (ls *LinkingState) Event() *LinkEvent {
	return ls.event
}

// Link starts linking the attached shaders with the current bindings.
//
// Validation and resource linking run before Link returns; a failure there
// is returned, written to the info log and leaves the program unlinked with
// its previous executable intact. Code generation may still be running
// when Link returns; ResolveLink waits for it and reports its outcome.
// A link already in flight is abandoned first.
func (p *Program) Link() error {
	p.abandonLink()
	p.infoLog.Reset()
	p.state = StateLinking

	in := p.input()
	if err := link.ValidateShaders(in.Shaders); err != nil {
		return p.fail(err)
	}

	key := cache.InputKey(in, p.cfg.AddToKey)
	if prog, ok := p.loadCached(key); ok {
		p.install(prog)
		return nil
	}

	exe, err := link.Link(in)
	if err != nil {
		return p.fail(err)
	}

	ls := &LinkingState{Key: key, Executable: exe}
	cfg, version, shaders := p.cfg, p.glslVersion, in.Shaders
	ls.event = p.executor.Execute(func() error {
		prog, err := generate(cfg, version, shaders, exe)
		ls.result = prog
		return err
	})
	p.linking = ls
	return nil
}

// ResolveLink waits for a pending link and installs its result. It returns
// the outcome of the last link: nil on success, a *link.Error or a code
// generation error on failure. A *rewrite.InvariantError signals a bug in
// a rewrite pass, never a problem with the program.
func (p *Program) ResolveLink() error {
	if p.state != StateLinking || p.linking == nil {
		return p.lastErr
	}
	ls := p.linking
	p.linking = nil
	if err := ls.event.Join(); err != nil {
		return p.fail(err)
	}
	p.install(ls.result)
	p.store(ls.Key, ls.result)
	return nil
}

// abandonLink waits for a link in flight and drops its result.
func (p *Program) abandonLink() {
	if p.linking == nil {
		return
	}
	if err := p.linking.event.Join(); err != nil {
		p.logger.Printf("program: abandoned link failed: %v", err)
	}
	p.linking = nil
	if p.state == StateLinking {
		p.state = StateUnlinked
	}
}

func (p *Program) input() *link.Input {
	in := p.cfg.LinkInput()
	in.Shaders = p.shaders
	in.AttributeBindings = p.attributeBindings
	in.UniformLocationBindings = p.uniformLocationBindings
	in.FragmentOutputLocations = p.fragmentOutputLocations
	in.FragmentOutputIndexes = p.fragmentOutputIndexes
	in.TransformFeedbackVaryingNames = p.xfbVaryingNames
	in.TransformFeedbackBufferMode = p.xfbBufferMode
	return in
}

func (p *Program) fail(err error) error {
	var linkErr *link.Error
	var invariant *rewrite.InvariantError
	switch {
	case errors.As(err, &linkErr):
		p.infoLog.Append(linkErr.Message)
	case errors.As(err, &invariant):
		p.infoLog.Appendf("Internal error: %v", err)
	default:
		p.infoLog.Append(err.Error())
	}
	p.state = StateUnlinked
	p.lastErr = err
	return err
}

func (p *Program) install(prog *binary.Program) {
	p.linked = prog
	p.state = StateLinked
	p.lastErr = nil
}

// loadCached returns the cached program for key. A blob this build cannot
// load is dropped and treated as a miss.
func (p *Program) loadCached(key cache.Key) (*binary.Program, bool) {
	if p.cache == nil {
		return nil, false
	}
	blob, ok := p.cache.Get(key)
	if !ok {
		return nil, false
	}
	prog, err := binary.LoadProgram(blob, p.cfg.ClientVersion)
	if err != nil {
		p.logger.Printf("program: cached binary %s rejected, relinking: %v", key, err)
		p.cache.Remove(key)
		return nil, false
	}
	return prog, true
}

func (p *Program) store(key cache.Key, prog *binary.Program) {
	if p.cache == nil {
		return
	}
	if !p.cache.Put(key, binary.SaveProgram(prog)) {
		p.logger.Printf("program: cache already holds %s", key)
	}
}

// generate translates every linked stage and writes its code. The attached
// trees are cloned first so that the shaders can be linked again.
func generate(cfg config.Config, version glsl.Version, shaders [shader.StageCount]*shader.Shader, exe *link.Executable) (*binary.Program, error) {
	stages := exe.LinkedStages.Stages()
	var modules [shader.StageCount]*ir.Module
	for _, stage := range stages {
		s := *shaders[stage]
		if s.AST == nil {
			return nil, fmt.Errorf("%s shader has no compiled tree", stage)
		}
		s.AST = s.AST.Clone()
		if _, err := rewrite.Translate(&s, cfg.RewriteOptions()); err != nil {
			return nil, err
		}
		modules[stage] = s.AST
	}

	// Emulated capture happens in the vertex stage; with a geometry stage
	// attached nothing is captured.
	captureStage := shader.Stage(shader.StageCount)
	if cfg.Features.EmulateTransformFeedback && !exe.LinkedStages.Has(shader.StageGeometry) {
		captureStage = shader.StageVertex
	}

	prog := &binary.Program{
		Executable: exe,
		Variables:  make(map[string]glsl.VariableInfo),
	}
	varyings := glsl.ProgramVaryingLocations(modules[:]...)
	for _, stage := range stages {
		opts := glsl.Options{
			LangVersion:      version,
			Executable:       exe,
			VaryingLocations: varyings,
		}
		if cfg.Features.EmulateTransformFeedback {
			code := ""
			if stage == captureStage {
				opts.Declarations, code = xfbCapture(exe, version.Vulkan())
			}
			opts.Placeholders = map[string]string{rewrite.XfbOutputPlaceholder: code}
		}
		src, info, err := glsl.Compile(modules[stage], opts)
		if err != nil {
			return nil, fmt.Errorf("%s shader: %w", stage, err)
		}
		prog.Sources[stage] = src
		glsl.MergeVariables(prog.Variables, info.Variables)
	}
	return prog, nil
}
