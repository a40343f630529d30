package rewrite

import (
	"github.com/gogpu/shaderlink/ir"
)

// XfbOutputPlaceholder marks where the code generator emits the transform
// feedback capture writes.
const XfbOutputPlaceholder = "@@ XFB-OUT @@"

// XfbOffsetsFunctionName is the helper computing per-buffer capture offsets.
const XfbOffsetsFunctionName = "ANGLEGetXfbOffsets"

// AddXfbEmulationSupport defines
//
//	ivec4 ANGLEGetXfbOffsets(ivec4 strides)
//	{
//	    return xfbBufferOffsets +
//	        (gl_VertexIndex + gl_InstanceIndex * xfbVerticesPerInstance) * strides;
//	}
//
// and returns its handle. The function lands after main in the arena; the
// GLSL writer emits callees before their callers, which puts it ahead of
// main in the output.
func AddXfbEmulationSupport(module *ir.Module, types *ir.TypeRegistry, driver DriverUniformProvider) (ir.FunctionHandle, error) {
	if h, ok := module.FindFunction(XfbOffsetsFunctionName); ok {
		return h, nil
	}
	if types == nil {
		types = ir.NewTypeRegistry(module)
	}
	vertex, err := ensureBuiltin(module, types, ir.BuiltinVertexIndex)
	if err != nil {
		return 0, err
	}
	instance, err := ensureBuiltin(module, types, ir.BuiltinInstanceIndex)
	if err != nil {
		return 0, err
	}

	ivec4 := ivec4Type(types)
	fn := module.AddFunction(ir.Function{
		Name:      XfbOffsetsFunctionName,
		Arguments: []ir.FunctionArgument{{Name: "strides", Type: ivec4}},
		Result:    &ivec4,
	})
	b := ir.NewBuilder(module, fn, types)
	index := b.Add(b.Global(vertex), b.Mul(b.Global(instance), driver.XfbVerticesPerInstance(b)))
	result := b.Add(driver.XfbBufferOffsets(b), b.Mul(index, b.Argument(0)))
	b.Function().Body = ir.Block{ir.Return(&result)}
	return fn, nil
}

// AddXfbOutputPlaceholder marks the end of main for the capture writes.
func AddXfbOutputPlaceholder(module *ir.Module) error {
	return insert(module, ir.InsertAtEnd, ir.Statement{Kind: ir.StmtPlaceholder{Name: XfbOutputPlaceholder}})
}
