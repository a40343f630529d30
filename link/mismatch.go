package link

import (
	"strings"

	"github.com/gogpu/shaderlink/shader"
)

// MismatchKind classifies why two declarations of the same interface
// variable are incompatible.
type MismatchKind uint8

const (
	MismatchNone MismatchKind = iota
	MismatchType
	MismatchArraySize
	MismatchPrecision
	MismatchStructName
	MismatchFieldNumber
	MismatchFieldName
	MismatchInterpolationType
	MismatchInvariance
	MismatchBinding
	MismatchLocation
	MismatchOffset
	MismatchInstanceName
	MismatchFormat
	MismatchLayoutQualifier
	MismatchMatrixPacking
	MismatchFieldLocation
	MismatchFieldStructName
)

var mismatchNames = [...]struct{ code, text string }{
	MismatchNone:              {"NO_MISMATCH", ""},
	MismatchType:              {"TYPE_MISMATCH", "Type"},
	MismatchArraySize:         {"ARRAY_SIZE_MISMATCH", "Array size"},
	MismatchPrecision:         {"PRECISION_MISMATCH", "Precision"},
	MismatchStructName:        {"STRUCT_NAME_MISMATCH", "Structure name"},
	MismatchFieldNumber:       {"FIELD_NUMBER_MISMATCH", "Field number"},
	MismatchFieldName:         {"FIELD_NAME_MISMATCH", "Field name"},
	MismatchInterpolationType: {"INTERPOLATION_TYPE_MISMATCH", "Interpolation type"},
	MismatchInvariance:        {"INVARIANCE_MISMATCH", "Invariance"},
	MismatchBinding:           {"BINDING_MISMATCH", "Binding layout qualifier"},
	MismatchLocation:          {"LOCATION_MISMATCH", "Location layout qualifier"},
	MismatchOffset:            {"OFFSET_MISMATCH", "Offset layout qualifier"},
	MismatchInstanceName:      {"INSTANCE_NAME_MISMATCH", "Instance name qualifier"},
	MismatchFormat:            {"FORMAT_MISMATCH", "Format qualifier"},
	MismatchLayoutQualifier:   {"LAYOUT_QUALIFIER_MISMATCH", "Layout qualifier"},
	MismatchMatrixPacking:     {"MATRIX_PACKING_MISMATCH", "Matrix Packing"},
	MismatchFieldLocation:     {"FIELD_LOCATION_MISMATCH", "Field location"},
	MismatchFieldStructName:   {"FIELD_STRUCT_NAME_MISMATCH", "Field structure name"},
}

// String returns the diagnostic prefix ("Type", "Array size", ...).
func (k MismatchKind) String() string {
	if int(k) < len(mismatchNames) {
		return mismatchNames[k].text
	}
	return "Unknown"
}

// Code returns the classification constant name, e.g. "TYPE_MISMATCH".
func (k MismatchKind) Code() string {
	if int(k) < len(mismatchNames) {
		return mismatchNames[k].code
	}
	return "UNKNOWN_MISMATCH"
}

// Mismatch is an interface mismatch between two stages.
type Mismatch struct {
	Kind MismatchKind

	// Name is the variable or block name.
	Name string

	// VariableType is "varying", "uniform", "uniform block" or
	// "shader storage block".
	VariableType string

	// Field is the dotted path of the mismatched member, if any.
	Field string

	Stage1 shader.Stage
	Stage2 shader.Stage
}

// Error formats the mismatch the way it appears in the info log.
func (m *Mismatch) Error() string {
	var sb strings.Builder
	sb.WriteString(m.Kind.String())
	sb.WriteString("s of ")
	sb.WriteString(m.VariableType)
	sb.WriteString(" '")
	sb.WriteString(m.Name)
	if m.Field != "" {
		sb.WriteString("' member '")
		sb.WriteString(m.Name)
		sb.WriteString(".")
		sb.WriteString(m.Field)
	}
	sb.WriteString("' differ between ")
	sb.WriteString(m.Stage1.String())
	sb.WriteString(" and ")
	sb.WriteString(m.Stage2.String())
	sb.WriteString(" shaders.")
	return sb.String()
}

func parentPrefix(parent, field string) string {
	if field == "" {
		return parent
	}
	return parent + "." + field
}
