package program

import (
	"fmt"
	"strings"

	"github.com/gogpu/shaderlink/glsl"
	"github.com/gogpu/shaderlink/link"
	"github.com/gogpu/shaderlink/rewrite"
	"github.com/gogpu/shaderlink/shader"
)

// XfbBufferBinding returns the binding of emulated transform feedback
// buffer i in glsl.DriverUniformsSet, after the per-stage default uniform
// blocks.
func XfbBufferBinding(i int) int {
	return glsl.DefaultUniformsBinding(shader.StageCount) + i
}

var swizzle = [4]string{"x", "y", "z", "w"}

// xfbCapture generates the transform feedback emulation code of the last
// vertex processing stage: the capture buffer declarations and the writes
// replacing rewrite.XfbOutputPlaceholder. Each buffer holds floats; integer
// components are stored bit-exact.
func xfbCapture(exe *link.Executable, vulkan bool) (decls, code string) {
	varyings := exe.TransformFeedbackVaryings
	if len(varyings) == 0 {
		return "", ""
	}
	interleaved := exe.TransformFeedbackBufferMode == link.TransformFeedbackInterleaved
	buffers := len(varyings)
	if interleaved {
		buffers = 1
	}

	var d strings.Builder
	for i := 0; i < buffers; i++ {
		set := ""
		if vulkan {
			set = fmt.Sprintf("set = %d, ", glsl.DriverUniformsSet)
		}
		fmt.Fprintf(&d, "layout(%sbinding = %d, std430) buffer ANGLEXfbBuffer%d { float xfbOut[]; } ANGLEXfb%d;\n",
			set, XfbBufferBinding(i), i, i)
	}

	strides := make([]string, 4)
	for i := range strides {
		strides[i] = "0"
	}
	for i, s := range exe.TransformFeedbackStrides {
		if i < len(strides) {
			strides[i] = fmt.Sprint(s / 4)
		}
	}

	var c strings.Builder
	fmt.Fprintf(&c, "if (%s.%s != 0u)\n{\n", rewrite.DriverUniformsInstanceName, rewrite.FieldXfbActiveUnpaused)
	fmt.Fprintf(&c, "    ivec4 xfbOffsets = %s(ivec4(%s));\n", rewrite.XfbOffsetsFunctionName, strings.Join(strides, ", "))
	offset := 0
	for i := range varyings {
		v := &varyings[i]
		buffer := 0
		if !interleaved {
			buffer = i
			offset = 0
		}
		for _, component := range xfbComponents(v) {
			fmt.Fprintf(&c, "    ANGLEXfb%d.xfbOut[xfbOffsets[%d] + %d] = %s;\n", buffer, buffer, offset, component)
			offset++
		}
	}
	c.WriteString("}\n")
	return d.String(), c.String()
}

// xfbComponents lists the scalar expressions captured for a varying, in
// memory order.
func xfbComponents(v *link.TransformFeedbackVarying) []string {
	name := v.Name
	if !v.IsBuiltIn() {
		name = glsl.EscapeIdentifier(name)
	}
	var elements []string
	switch {
	case !v.IsArray():
		elements = []string{name}
	case v.ArrayIndex >= 0:
		elements = []string{fmt.Sprintf("%s[%d]", name, v.ArrayIndex)}
	default:
		for e := 0; e < int(v.OutermostArraySize()); e++ {
			elements = append(elements, fmt.Sprintf("%s[%d]", name, e))
		}
	}

	wrap := func(s string) string {
		switch v.Type.ComponentType() {
		case shader.ComponentInt:
			return "intBitsToFloat(" + s + ")"
		case shader.ComponentUint:
			return "uintBitsToFloat(" + s + ")"
		case shader.ComponentBool:
			return "float(" + s + ")"
		}
		return s
	}

	var out []string
	for _, e := range elements {
		switch {
		case v.Type.IsMatrix():
			for col := 0; col < v.Type.ColumnCount(); col++ {
				for row := 0; row < v.Type.RowCount(); row++ {
					out = append(out, wrap(fmt.Sprintf("%s[%d][%d]", e, col, row)))
				}
			}
		case v.Type.ComponentCount() > 1:
			for k := 0; k < v.Type.ComponentCount(); k++ {
				out = append(out, wrap(e+"."+swizzle[k]))
			}
		default:
			out = append(out, wrap(e))
		}
	}
	return out
}
