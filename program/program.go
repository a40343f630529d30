// Package program implements the program object: attached shader stages,
// API bindings, the link state machine and the executable used at draw
// time.
//
// A link runs in two parts. Stage validation and resource linking run on
// the calling goroutine; translation and code generation are handed to an
// Executor as a LinkEvent. ResolveLink joins the event and installs the
// result. Linked programs are stored in a cache.ProgramCache keyed by a
// hash of everything the link depends on.
//
// A Program is not safe for concurrent use. Once ResolveLink returns, the
// executable is immutable and may be read from any goroutine.
package program

import (
	"errors"
	"log"

	"github.com/gogpu/shaderlink/binary"
	"github.com/gogpu/shaderlink/cache"
	"github.com/gogpu/shaderlink/config"
	"github.com/gogpu/shaderlink/glsl"
	"github.com/gogpu/shaderlink/link"
	"github.com/gogpu/shaderlink/rewrite"
	"github.com/gogpu/shaderlink/shader"
)

// State is the link state of a program.
type State uint8

const (
	StateUnlinked State = iota
	StateLinking
	StateLinked
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUnlinked:
		return "Unlinked"
	case StateLinking:
		return "Linking"
	case StateLinked:
		return "Linked"
	default:
		return "Unknown"
	}
}

// Logger receives operational events. *log.Logger satisfies it.
type Logger interface {
	Printf(format string, args ...any)
}

// Option configures a Program.
type Option func(*Program)

// WithCache stores and looks up linked programs in c. A nil cache disables
// caching. The default is cache.Shared.
func WithCache(c *cache.ProgramCache) Option {
	return func(p *Program) {
		p.cache = c
	}
}

// WithExecutor runs code generation on e. The default is SyncExecutor.
func WithExecutor(e Executor) Option {
	return func(p *Program) {
		p.executor = e
	}
}

// WithLogger sends operational events to l. The default is log.Default.
func WithLogger(l Logger) Option {
	return func(p *Program) {
		p.logger = l
	}
}

// Program is a GL program object.
type Program struct {
	cfg         config.Config
	glslVersion glsl.Version

	cache    *cache.ProgramCache
	executor Executor
	logger   Logger

	shaders [shader.StageCount]*shader.Shader

	attributeBindings       link.Bindings
	uniformLocationBindings link.Bindings
	fragmentOutputLocations link.AliasedBindings
	fragmentOutputIndexes   link.AliasedBindings
	xfbVaryingNames         []string
	xfbBufferMode           link.TransformFeedbackMode

	state   State
	infoLog link.InfoLog
	linking *LinkingState
	lastErr error

	// linked is the last successful link; it survives failed relinks.
	linked *binary.Program
}

// New returns an unlinked program using cfg.
func New(cfg config.Config, opts ...Option) (*Program, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	version, err := cfg.GLSLVersion()
	if err != nil {
		return nil, err
	}
	p := &Program{
		cfg:         cfg,
		glslVersion: version,
		cache:       cache.Shared(),
		executor:    SyncExecutor{},
		logger:      log.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// AttachShader attaches a compiled stage, replacing any shader of the same
// stage.
func (p *Program) AttachShader(s *shader.Shader) {
	p.shaders[s.Stage] = s
}

// DetachShader detaches the shader of a stage.
func (p *Program) DetachShader(stage shader.Stage) {
	p.shaders[stage] = nil
}

// AttachedShader returns the shader attached for a stage, or nil.
func (p *Program) AttachedShader(stage shader.Stage) *shader.Shader {
	return p.shaders[stage]
}

// BindAttribLocation binds an attribute name for the next link.
func (p *Program) BindAttribLocation(location int, name string) {
	p.attributeBindings.Bind(location, name)
}

// BindUniformLocation binds a uniform name for the next link.
func (p *Program) BindUniformLocation(location int, name string) {
	p.uniformLocationBindings.Bind(location, name)
}

// BindFragDataLocation binds a fragment output to a draw buffer.
func (p *Program) BindFragDataLocation(location int, name string) {
	p.fragmentOutputLocations.Bind(location, name)
}

// BindFragDataLocationIndexed binds a fragment output to a draw buffer and
// dual-source blend index.
func (p *Program) BindFragDataLocationIndexed(location, index int, name string) {
	p.fragmentOutputLocations.Bind(location, name)
	p.fragmentOutputIndexes.Bind(index, name)
}

// TransformFeedbackVaryings selects the varyings captured by the next link.
func (p *Program) TransformFeedbackVaryings(names []string, mode link.TransformFeedbackMode) {
	p.xfbVaryingNames = append([]string(nil), names...)
	p.xfbBufferMode = mode
}

// State returns the link state without resolving a pending link.
func (p *Program) State() State {
	return p.state
}

// IsLinking reports whether code generation is still running.
func (p *Program) IsLinking() bool {
	return p.state == StateLinking && p.linking != nil && !p.linking.event.Poll()
}

// IsLinked resolves any pending link and reports whether the program has a
// usable executable from its last link.
func (p *Program) IsLinked() bool {
	_ = p.ResolveLink()
	return p.state == StateLinked
}

// InfoLog returns the info log of the last link.
func (p *Program) InfoLog() string {
	_ = p.ResolveLink()
	return p.infoLog.String()
}

// InfoLogLength returns the length of the info log including the
// terminating NUL, or 0 when it is empty.
func (p *Program) InfoLogLength() int {
	_ = p.ResolveLink()
	return p.infoLog.Length()
}

// Executable resolves any pending link and returns the executable of the
// last successful link, or nil.
func (p *Program) Executable() *link.Executable {
	_ = p.ResolveLink()
	if p.linked == nil {
		return nil
	}
	return p.linked.Executable
}

// Source returns the generated code of a stage of the last successful
// link.
func (p *Program) Source(stage shader.Stage) string {
	_ = p.ResolveLink()
	if p.linked == nil {
		return ""
	}
	return p.linked.Sources[stage]
}

// Variables returns the placement of every declaration of the last
// successful link.
func (p *Program) Variables() map[string]glsl.VariableInfo {
	_ = p.ResolveLink()
	if p.linked == nil {
		return nil
	}
	return p.linked.Variables
}

// Binary returns the serialized form of the last successful link, as
// accepted by LoadBinary.
func (p *Program) Binary() ([]byte, bool) {
	_ = p.ResolveLink()
	if p.linked == nil {
		return nil, false
	}
	return binary.SaveProgram(p.linked), true
}

// LoadBinary installs a program saved by Binary. A blob from another build
// or API version fails with an error wrapping binary.ErrIncomplete and
// leaves the program unlinked.
func (p *Program) LoadBinary(data []byte) error {
	p.abandonLink()
	p.infoLog.Reset()
	prog, err := binary.LoadProgram(data, p.cfg.ClientVersion)
	if err != nil {
		p.state = StateUnlinked
		p.lastErr = err
		p.infoLog.Append("Failed to load program binary.")
		return err
	}
	p.install(prog)
	return nil
}

// IsFatal reports whether err signals a bug in a rewrite pass rather than
// a problem with the program.
func IsFatal(err error) bool {
	var invariant *rewrite.InvariantError
	return errors.As(err, &invariant)
}
