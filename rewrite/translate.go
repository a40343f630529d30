package rewrite

import (
	"errors"
	"fmt"

	"github.com/gogpu/shaderlink/ir"
	"github.com/gogpu/shaderlink/shader"
)

// Options selects the emulation passes of Translate.
type Options struct {
	EmulateTransformFeedback      bool
	BasicLineRasterization        bool
	EnablePreRotation             bool
	SupportsDepthClipControl      bool
	EmulateSeamfulCubeMapSampling bool

	// SubPixelBits is the subpixel precision of the line raster snapping.
	SubPixelBits int

	// DriverUniforms overrides the provider; the extended provider is used
	// when nil.
	DriverUniforms DriverUniformProvider
}

// Result describes what Translate changed.
type Result struct {
	// DefaultUniformCount is the number of uniforms left in the default
	// uniform block.
	DefaultUniformCount int
	RemovedInactive     int
	Flatten             FlattenResult
	CubeMapSamplers     int
	DriverUniforms      DriverUniformProvider

	// XfbOffsetsFunction is set when transform feedback support was added.
	XfbOffsetsFunction *ir.FunctionHandle
	// LineRasterEmulation is set when the shader reads the
	// ANGLELineRasterEmulation specialization constant.
	LineRasterEmulation bool
}

type translation struct {
	module *ir.Module
	types  *ir.TypeRegistry
	driver DriverUniformProvider
	opts   Options
	res    *Result
}

// pass runs one rewrite and checks the tree afterwards.
func (t *translation) pass(name string, fn func() error) error {
	if err := fn(); err != nil {
		var ue *UnsupportedError
		if errors.As(err, &ue) {
			return err
		}
		return fmt.Errorf("rewrite: %s: %w", name, err)
	}
	return checkInvariants(name, t.module)
}

// Translate rewrites the shader's tree in place for a Vulkan-style backend.
// Pass order:
//
//  1. remove inactive declarations
//  2. struct sampler flattening, then the cube map rewrite
//  3. driver uniform declaration and gl_DepthRange replacement
//  4. vertex stage: transform feedback support, line raster emulation,
//     clip distance masking, pre-rotation, then depth correction
//  5. fragment stage: line raster emulation, gl_PointCoord and
//     gl_FragCoord corrections
//
// Every pass is followed by tree validation; a failure returns an
// *InvariantError.
//
//nolint:gocyclo,cyclop,funlen // Mirrors the pass order
func Translate(s *shader.Shader, opts Options) (*Result, error) {
	if s == nil || s.AST == nil {
		return nil, fmt.Errorf("rewrite: shader has no tree")
	}
	module := s.AST
	if err := checkInvariants("input", module); err != nil {
		return nil, err
	}
	driver := opts.DriverUniforms
	if driver == nil {
		driver = NewExtendedDriverUniforms()
	}
	t := &translation{
		module: module,
		types:  ir.NewTypeRegistry(module),
		driver: driver,
		opts:   opts,
		res:    &Result{DriverUniforms: driver},
	}
	res := t.res

	if err := t.pass("RemoveInactive", func() (err error) {
		res.RemovedInactive, err = RemoveInactive(module, s)
		return err
	}); err != nil {
		return nil, err
	}
	res.DefaultUniformCount = defaultUniformCount(module)

	if err := t.pass(flattenPass, func() (err error) {
		res.Flatten, err = FlattenStructSamplers(module, t.types)
		return err
	}); err != nil {
		return nil, err
	}
	res.DefaultUniformCount -= res.Flatten.Removed

	if opts.EmulateSeamfulCubeMapSampling {
		if err := t.pass("RewriteCubeMapSamplers", func() (err error) {
			res.CubeMapSamplers, err = RewriteCubeMapSamplers(module, t.types)
			return err
		}); err != nil {
			return nil, err
		}
	}

	if err := t.pass("DeclareDriverUniforms", func() error {
		driver.Declare(module, t.types)
		return nil
	}); err != nil {
		return nil, err
	}
	if module.Stage != ir.StageCompute {
		if err := t.pass("ReplaceDepthRange", func() error {
			return ReplaceDepthRange(module, t.types, driver)
		}); err != nil {
			return nil, err
		}
	}

	switch module.Stage {
	case ir.StageVertex:
		if err := t.vertex(); err != nil {
			return nil, err
		}
	case ir.StageGeometry:
		if opts.EmulateTransformFeedback {
			if err := t.pass("AddXfbOutputPlaceholder", func() error {
				return AddXfbOutputPlaceholder(module)
			}); err != nil {
				return nil, err
			}
		}
	case ir.StageFragment:
		if err := t.fragment(); err != nil {
			return nil, err
		}
	}

	_, res.LineRasterEmulation = module.FindGlobal(LineRasterEmulationName)
	return res, nil
}

func (t *translation) vertex() error {
	module, opts := t.module, t.opts
	if opts.EmulateTransformFeedback {
		if err := t.pass("AddXfbEmulationSupport", func() error {
			fn, err := AddXfbEmulationSupport(module, t.types, t.driver)
			t.res.XfbOffsetsFunction = &fn
			return err
		}); err != nil {
			return err
		}
		if err := t.pass("AddXfbOutputPlaceholder", func() error {
			return AddXfbOutputPlaceholder(module)
		}); err != nil {
			return err
		}
	}
	if opts.BasicLineRasterization {
		if err := t.pass("AddBresenhamEmulationVS", func() error {
			return AddBresenhamEmulationVS(module, t.types, t.driver, opts.SubPixelBits)
		}); err != nil {
			return err
		}
	}
	if err := t.pass("AppendClipDistanceMasking", func() error {
		return AppendClipDistanceMasking(module, t.types, t.driver)
	}); err != nil {
		return err
	}
	if opts.EnablePreRotation {
		if err := t.pass("AppendPreRotation", func() error {
			_, err := AppendPreRotation(module, t.types, t.driver)
			return err
		}); err != nil {
			return err
		}
	}
	if !opts.SupportsDepthClipControl {
		if err := t.pass("AppendDepthCorrection", func() error {
			return AppendDepthCorrection(module, t.types)
		}); err != nil {
			return err
		}
	}
	return nil
}

func (t *translation) fragment() error {
	module, opts := t.module, t.opts
	usesFragCoord := module.UsesBuiltin(ir.BuiltinFragCoord)
	fragCoord, flips := fragCoordCorrection(module, t.types, t.driver, opts.EnablePreRotation)

	if opts.BasicLineRasterization {
		if err := t.pass("AddBresenhamEmulationFS", func() error {
			var inner *Correction
			if !usesFragCoord && flips {
				inner = &fragCoord
			}
			return AddBresenhamEmulationFS(module, t.types, t.driver, inner)
		}); err != nil {
			return err
		}
	}

	if module.UsesBuiltin(ir.BuiltinPointCoord) {
		if c, ok := pointCoordCorrection(module, t.types, t.driver, opts.EnablePreRotation); ok {
			if err := t.pass("RotateAndFlipPointCoord", func() error {
				return InsertBuiltinCorrection(module, t.types, c)
			}); err != nil {
				return err
			}
		}
	}

	if usesFragCoord && flips {
		if err := t.pass("RotateAndFlipFragCoord", func() error {
			return InsertBuiltinCorrection(module, t.types, fragCoord)
		}); err != nil {
			return err
		}
	}
	return nil
}

// defaultUniformCount counts the uniforms of the default block: live
// non-block uniforms that are not opaque.
func defaultUniformCount(module *ir.Module) int {
	n := 0
	for i := range module.GlobalVariables {
		g := &module.GlobalVariables[i]
		if g.Removed || g.Block || g.Qualifier != ir.QualifierUniform || g.Builtin != ir.BuiltinNone {
			continue
		}
		h := g.Type
		for {
			arr, ok := module.Types[h].Inner.(ir.ArrayType)
			if !ok {
				break
			}
			h = arr.Base
		}
		if !ir.IsOpaque(module.Types[h].Inner) {
			n++
		}
	}
	return n
}
