// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package glsl

import (
	"fmt"
	"strings"

	"github.com/gogpu/shaderlink/ir"
)

// getTypeName returns the full GLSL name of a type, array dimensions
// included ("float[3]"). Used where GLSL allows array types directly:
// return types and constructors.
func (w *Writer) getTypeName(handle ir.TypeHandle) string {
	return w.getBaseTypeName(handle) + w.getArraySuffix(handle)
}

// getBaseTypeName returns the GLSL name of a type with arrays peeled.
func (w *Writer) getBaseTypeName(handle ir.TypeHandle) string {
	base := peelArrays(w.module, handle)
	if _, ok := w.module.Types[base].Inner.(ir.StructType); ok {
		if name, ok := w.names[nameKey{kind: nameKeyType, handle1: uint32(base)}]; ok {
			return name
		}
	}
	return w.typeInnerToGLSL(w.module.Types[base].Inner)
}

// getArraySuffix returns the array dimensions of a type, outermost first.
// Runtime-sized arrays are written as "[]".
func (w *Writer) getArraySuffix(handle ir.TypeHandle) string {
	var sb strings.Builder
	for {
		arr, ok := w.module.Types[handle].Inner.(ir.ArrayType)
		if !ok {
			return sb.String()
		}
		if arr.Size == 0 {
			sb.WriteString("[]")
		} else {
			fmt.Fprintf(&sb, "[%d]", arr.Size)
		}
		handle = arr.Base
	}
}

// typeInnerToGLSL converts a non-array, non-struct type to GLSL syntax.
func (w *Writer) typeInnerToGLSL(inner ir.TypeInner) string {
	switch t := inner.(type) {
	case ir.ScalarType:
		return scalarToGLSL(t.Kind)
	case ir.VectorType:
		return vectorToGLSL(t)
	case ir.MatrixType:
		return matrixToGLSL(t)
	case ir.SamplerType:
		return w.samplerToGLSL(t)
	case ir.ImageType:
		return imageToGLSL(t)
	case ir.AtomicCounterType:
		return "atomic_uint"
	default:
		return fmt.Sprintf("/* unsupported type %T */", inner)
	}
}

func scalarToGLSL(kind ir.ScalarKind) string {
	switch kind {
	case ir.ScalarBool:
		return "bool"
	case ir.ScalarSint:
		return "int"
	case ir.ScalarUint:
		return "uint"
	default:
		return "float"
	}
}

// vectorToGLSL converts a vector type to GLSL syntax.
func vectorToGLSL(t ir.VectorType) string {
	prefix := ""
	switch t.Scalar {
	case ir.ScalarBool:
		prefix = "b"
	case ir.ScalarSint:
		prefix = "i"
	case ir.ScalarUint:
		prefix = "u"
	}
	return fmt.Sprintf("%svec%d", prefix, t.Size)
}

// matrixToGLSL converts a matrix type to GLSL syntax.
// GLSL names matrices matCxR.
func matrixToGLSL(t ir.MatrixType) string {
	if t.Columns == t.Rows {
		return fmt.Sprintf("mat%d", t.Columns)
	}
	return fmt.Sprintf("mat%dx%d", t.Columns, t.Rows)
}

func kindPrefix(kind ir.ScalarKind) string {
	switch kind {
	case ir.ScalarSint:
		return "i"
	case ir.ScalarUint:
		return "u"
	}
	return ""
}

func dimSuffix(dim ir.ImageDimension) string {
	switch dim {
	case ir.Dim3D:
		return "3D"
	case ir.DimCube:
		return "Cube"
	case ir.DimBuffer:
		return "Buffer"
	default:
		return "2D"
	}
}

// samplerToGLSL converts a combined sampler type. External samplers are
// plain 2D samplers under Vulkan, where the YUV conversion happens in the
// sampler object.
func (w *Writer) samplerToGLSL(t ir.SamplerType) string {
	if t.Dim == ir.DimExternal && !w.options.LangVersion.Vulkan() {
		return "samplerExternalOES"
	}
	name := kindPrefix(t.Kind) + "sampler" + dimSuffix(t.Dim)
	if t.Arrayed {
		name += "Array"
	}
	if t.Shadow {
		name += "Shadow"
	}
	return name
}

// imageToGLSL converts a storage image type.
func imageToGLSL(t ir.ImageType) string {
	name := kindPrefix(t.Kind) + "image" + dimSuffix(t.Dim)
	if t.Arrayed {
		name += "Array"
	}
	return name
}
