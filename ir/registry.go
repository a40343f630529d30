package ir

import (
	"fmt"
	"strconv"
)

// TypeRegistry deduplicates types appended to a module by rewrite passes.
// Structurally identical unnamed types share one handle; named types (structs,
// interface blocks) are keyed by name as well so distinct declarations stay
// distinct.
type TypeRegistry struct {
	module  *Module
	typeMap map[string]TypeHandle
}

// NewTypeRegistry indexes the existing types of module.
func NewTypeRegistry(module *Module) *TypeRegistry {
	r := &TypeRegistry{
		module:  module,
		typeMap: make(map[string]TypeHandle, len(module.Types)+8),
	}
	for i, typ := range module.Types {
		key := typ.Name + "|" + normalizeType(typ.Inner)
		if _, exists := r.typeMap[key]; !exists {
			r.typeMap[key] = TypeHandle(i)
		}
	}
	return r
}

// GetOrCreate returns an existing handle for the type if it exists,
// or appends a new one to the module.
func (r *TypeRegistry) GetOrCreate(name string, inner TypeInner) TypeHandle {
	key := name + "|" + normalizeType(inner)
	if handle, exists := r.typeMap[key]; exists {
		return handle
	}
	handle := TypeHandle(len(r.module.Types))
	r.module.Types = append(r.module.Types, Type{Name: name, Inner: inner})
	r.typeMap[key] = handle
	return handle
}

// Scalar returns the handle of a scalar type.
func (r *TypeRegistry) Scalar(kind ScalarKind) TypeHandle {
	return r.GetOrCreate("", ScalarType{Kind: kind})
}

// Vector returns the handle of a vector type.
func (r *TypeRegistry) Vector(size VectorSize, kind ScalarKind) TypeHandle {
	return r.GetOrCreate("", VectorType{Size: size, Scalar: kind})
}

// Matrix returns the handle of a float matrix type.
func (r *TypeRegistry) Matrix(columns, rows VectorSize) TypeHandle {
	return r.GetOrCreate("", MatrixType{Columns: columns, Rows: rows})
}

// Array returns the handle of a sized array type.
func (r *TypeRegistry) Array(base TypeHandle, size uint32) TypeHandle {
	return r.GetOrCreate("", ArrayType{Base: base, Size: size})
}

// normalizeType creates a unique key for a type based on its structure.
func normalizeType(inner TypeInner) string {
	switch t := inner.(type) {
	case ScalarType:
		return "scalar:" + strconv.Itoa(int(t.Kind))
	case VectorType:
		return "vec:" + strconv.Itoa(int(t.Size)) + ":" + strconv.Itoa(int(t.Scalar))
	case MatrixType:
		return "mat:" + strconv.Itoa(int(t.Columns)) + "x" + strconv.Itoa(int(t.Rows))
	case ArrayType:
		return "array:" + strconv.FormatUint(uint64(t.Base), 10) + ":" + strconv.FormatUint(uint64(t.Size), 10)
	case StructType:
		key := "struct:" + strconv.Itoa(len(t.Members))
		for _, member := range t.Members {
			key += fmt.Sprintf(":m(%s,%d,%t)", member.Name, member.Type, member.RowMajor)
		}
		return key
	case SamplerType:
		return fmt.Sprintf("sampler:%d:%t:%t:%d", t.Dim, t.Arrayed, t.Shadow, t.Kind)
	case ImageType:
		return fmt.Sprintf("image:%d:%t:%d", t.Dim, t.Arrayed, t.Kind)
	case AtomicCounterType:
		return "atomic_uint"
	default:
		return fmt.Sprintf("unknown:%T", inner)
	}
}
