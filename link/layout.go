package link

import (
	"github.com/gogpu/shaderlink/shader"
)

// blockEncoder lays out interface block members with the std140 or std430
// rules. Shared and packed blocks use std140.
type blockEncoder struct {
	std430 bool
	offset int
}

func newBlockEncoder(layout shader.BlockLayout) *blockEncoder {
	return &blockEncoder{std430: layout == shader.LayoutStd430}
}

func roundUp(x, a int) int {
	if a <= 1 {
		return x
	}
	return (x + a - 1) / a * a
}

func vectorAlignment(components int) int {
	switch components {
	case 1:
		return 4
	case 2:
		return 8
	default:
		return 16
	}
}

// typeLayout returns the alignment and size of one non-array element, and
// the matrix stride for matrices.
func (e *blockEncoder) typeLayout(v *shader.Variable, rowMajor bool) (align, size, matrixStride int) {
	if v.IsStruct() {
		sub := &blockEncoder{std430: e.std430}
		align = 4
		for i := range v.Fields {
			f := &v.Fields[i]
			fa, fs, _, _ := sub.fieldLayout(f, rowMajor || f.IsRowMajorLayout)
			sub.offset = roundUp(sub.offset, fa) + fs
			align = max(align, fa)
		}
		if !e.std430 {
			align = roundUp(align, 16)
		}
		return align, roundUp(sub.offset, align), 0
	}

	t := v.Type
	if t.IsMatrix() {
		vecLen, count := t.RowCount(), t.ColumnCount()
		if rowMajor {
			vecLen, count = count, vecLen
		}
		matrixStride = vectorAlignment(vecLen)
		if !e.std430 {
			matrixStride = 16
		}
		return matrixStride, count * matrixStride, matrixStride
	}
	comps := max(t.ComponentCount(), 1)
	return vectorAlignment(comps), comps * 4, 0
}

// fieldLayout returns the alignment and total size of a member including
// its array dimensions, and the array stride of its innermost elements.
func (e *blockEncoder) fieldLayout(v *shader.Variable, rowMajor bool) (align, size, arrayStride, matrixStride int) {
	align, size, matrixStride = e.typeLayout(v, rowMajor)
	if !v.IsArray() {
		return align, size, 0, matrixStride
	}
	arrayStride = roundUp(size, align)
	if !e.std430 {
		arrayStride = roundUp(arrayStride, 16)
		align = roundUp(align, 16)
	}
	return align, arrayStride * int(v.ArraySizeProduct()), arrayStride, matrixStride
}

// visit assigns offsets to v and its fields and calls emit for every leaf
// in declaration order.
func (e *blockEncoder) visit(v *shader.Variable, name string, rowMajor bool, topLevelStride int,
	emit func(name string, leaf *shader.Variable, info BlockMemberInfo)) {
	rowMajor = rowMajor || v.IsRowMajorLayout
	align, size, arrayStride, matrixStride := e.fieldLayout(v, rowMajor)
	e.offset = roundUp(e.offset, align)
	base := e.offset

	switch {
	case v.IsStruct() && v.IsArray():
		elem := v.Clone()
		elem.ArraySizes = elem.ArraySizes[1:]
		if len(elem.ArraySizes) == 0 {
			elem.ArraySizes = nil
		}
		outerStride := arrayStride * int(v.InnerArraySizeProduct())
		for i := 0; i < int(max(v.OutermostArraySize(), 1)); i++ {
			e.offset = base + i*outerStride
			e.visit(&elem, shader.ElementName(name, i), rowMajor, topLevelStride, emit)
		}
	case v.IsStruct():
		for i := range v.Fields {
			f := &v.Fields[i]
			e.visit(f, name+"."+f.Name, rowMajor, topLevelStride, emit)
		}
	default:
		info := BlockMemberInfo{
			Offset:              base,
			ArrayStride:         arrayStride,
			TopLevelArrayStride: topLevelStride,
		}
		if v.Type.IsMatrix() {
			info.MatrixStride = matrixStride
			info.IsRowMajorMatrix = rowMajor
		}
		leafName := name
		if v.IsArray() {
			leafName = shader.BaseElementName(name)
		}
		emit(leafName, v, info)
	}
	e.offset = base + size
}

// encodeBlock lays out every field of b and returns the block data size.
func encodeBlock(b *shader.InterfaceBlock, emit func(name string, leaf *shader.Variable, info BlockMemberInfo, topLevelArraySize int)) int {
	e := newBlockEncoder(b.Layout)
	prefix := b.FieldPrefix()
	for i := range b.Fields {
		f := &b.Fields[i]
		topLevelStride := 0
		topLevelSize := 1
		if f.IsArray() {
			_, _, stride, _ := e.fieldLayout(f, b.IsRowMajorLayout || f.IsRowMajorLayout)
			topLevelStride = stride * int(f.InnerArraySizeProduct())
			topLevelSize = int(f.OutermostArraySize())
		}
		e.visit(f, prefix+f.Name, b.IsRowMajorLayout, topLevelStride,
			func(name string, leaf *shader.Variable, info BlockMemberInfo) {
				emit(name, leaf, info, topLevelSize)
			})
	}
	if e.std430 {
		return e.offset
	}
	return roundUp(e.offset, 16)
}
