// Package link validates the interfaces between compiled shader stages and
// assigns locations, bindings and buffer indices to every program resource.
//
// Link runs the steps in a fixed order: stage validation, attributes,
// varyings, uniforms (with sampler, image and atomic counter bindings),
// interface blocks, transform feedback, and fragment outputs. The first
// failing step aborts the link with an *Error whose message is the info log
// entry for the program.
package link

import (
	"github.com/gogpu/shaderlink/shader"
)

// Input is everything a link needs: the attached stages and the API state
// set before glLinkProgram.
type Input struct {
	// Shaders is indexed by stage; nil entries are not attached.
	Shaders [shader.StageCount]*shader.Shader

	ClientVersion Version
	Caps          Caps
	Limitations   Limitations

	// WebGL enables the stricter WebGL validation rules.
	WebGL bool

	AttributeBindings       Bindings
	UniformLocationBindings Bindings
	FragmentOutputLocations AliasedBindings
	FragmentOutputIndexes   AliasedBindings

	TransformFeedbackVaryingNames []string
	TransformFeedbackBufferMode   TransformFeedbackMode
}

// AttachedStages returns the mask of attached stages.
func (in *Input) AttachedStages() shader.StageMask {
	var m shader.StageMask
	for stage, s := range in.Shaders {
		if s != nil {
			m = m.With(shader.Stage(stage))
		}
	}
	return m
}

// linker carries the state of one link.
type linker struct {
	in  *Input
	exe *Executable

	version int

	// Counts consumed by the combined output resources check.
	combinedImageUniforms int
	combinedStorageBlocks int
}

// Link validates and links the attached stages. On failure the returned
// error is an *Error; the caller appends its Message to the info log.
func Link(in *Input) (*Executable, error) {
	if err := ValidateShaders(in.Shaders); err != nil {
		return nil, err
	}

	l := &linker{
		in: in,
		exe: &Executable{
			LinkedStages:                in.AttachedStages(),
			Version:                     in.ClientVersion,
			TransformFeedbackBufferMode: in.TransformFeedbackBufferMode,
			GeometryMaxVertices:         -1,
		},
	}

	if compute := in.Shaders[shader.StageCompute]; compute != nil {
		l.version = compute.Version
		l.exe.ShaderVersion = compute.Version
		l.exe.ComputeLocalSize = compute.WorkGroupSize
		if err := l.linkCompute(); err != nil {
			return nil, err
		}
		l.exe.Finalize()
		return l.exe, nil
	}

	vertex := in.Shaders[shader.StageVertex]
	l.version = vertex.Version
	l.exe.ShaderVersion = vertex.Version
	if geometry := in.Shaders[shader.StageGeometry]; geometry != nil {
		l.exe.GeometryInput = geometry.GeometryInput
		l.exe.GeometryOutput = geometry.GeometryOutput
		l.exe.GeometryInvocations = geometry.GeometryInvocations
		l.exe.GeometryMaxVertices = geometry.GeometryMaxVertices
	}
	l.exe.EarlyFragmentTests = in.Shaders[shader.StageFragment].EarlyFragmentTests

	steps := []func() error{
		l.linkAttributes,
		l.linkVaryings,
		l.linkUniforms,
		l.linkInterfaceBlocks,
		l.linkTransformFeedback,
		l.linkOutputVariables,
		l.linkGlobalNames,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, err
		}
	}
	l.exe.Finalize()
	return l.exe, nil
}

func (l *linker) linkCompute() error {
	if err := l.linkUniforms(); err != nil {
		return err
	}
	if err := l.linkInterfaceBlocks(); err != nil {
		return err
	}
	return l.checkCombinedOutputResources(0)
}

// attached returns the attached stages in pipeline order.
func (l *linker) attached() []*shader.Shader {
	var out []*shader.Shader
	for _, s := range l.in.Shaders {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

// lastPreFragmentStage returns the stage whose outputs feed the fragment
// stage and transform feedback.
func (l *linker) lastPreFragmentStage() *shader.Shader {
	if g := l.in.Shaders[shader.StageGeometry]; g != nil {
		return g
	}
	return l.in.Shaders[shader.StageVertex]
}

// linkVaryings matches every stage's inputs against the previous stage's
// outputs.
func (l *linker) linkVaryings() error {
	var prev *shader.Shader
	for _, stage := range shader.GraphicsStages {
		s := l.in.Shaders[stage]
		if s == nil {
			continue
		}
		if prev != nil {
			if err := CheckVaryings(prev.OutputVaryings, s.InputVaryings, prev.Stage, s.Stage, l.version); err != nil {
				return err
			}
		}
		prev = s
	}
	return CheckBuiltinVaryings(l.lastPreFragmentStage().OutputVaryings,
		l.in.Shaders[shader.StageFragment].InputVaryings, l.version)
}

// linkGlobalNames rejects a uniform and an attribute sharing a name, which
// GLSL ES 1.00 allows per stage but not across the program.
func (l *linker) linkGlobalNames() error {
	uniforms := make(map[string]bool)
	for _, s := range l.attached() {
		for i := range s.Uniforms {
			uniforms[s.Uniforms[i].Name] = true
		}
	}
	for i := range l.exe.ProgramInputs {
		name := l.exe.ProgramInputs[i].Name
		if uniforms[name] {
			return newError(ErrInterfaceMismatch, "Name conflicts between a uniform and an attribute: %s", name)
		}
	}
	return nil
}
