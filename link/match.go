package link

import (
	"golang.org/x/exp/slices"

	"github.com/gogpu/shaderlink/shader"
)

// MatchVariables compares two declarations of the same variable from
// different stages. It returns MismatchNone, or the first mismatch found and
// the dotted path of the mismatched field relative to v1.
func MatchVariables(v1, v2 *shader.Variable, validatePrecision bool) (MismatchKind, string) {
	if v1.Type != v2.Type {
		return MismatchType, ""
	}
	if !slices.Equal(v1.ArraySizes, v2.ArraySizes) {
		return MismatchArraySize, ""
	}
	if validatePrecision && v1.Precision != v2.Precision {
		return MismatchPrecision, ""
	}
	if v1.StructName != v2.StructName {
		return MismatchStructName, ""
	}
	if v1.ImageUnitFormat != v2.ImageUnitFormat {
		return MismatchFormat, ""
	}
	if len(v1.Fields) != len(v2.Fields) {
		return MismatchFieldNumber, ""
	}
	for i := range v1.Fields {
		f1, f2 := &v1.Fields[i], &v2.Fields[i]
		if f1.Name != f2.Name {
			return MismatchFieldName, f1.Name
		}
		if f1.Location != f2.Location {
			return MismatchFieldLocation, f1.Name
		}
		if f1.StructName != f2.StructName {
			return MismatchFieldStructName, f1.Name
		}
		if kind, field := MatchVariables(f1, f2, validatePrecision); kind != MismatchNone {
			return kind, parentPrefix(f1.Name, field)
		}
	}
	return MismatchNone, ""
}

// MatchBlockFields compares two members of same-named interface blocks.
func MatchBlockFields(f1, f2 *shader.Variable, webgl bool) (MismatchKind, string) {
	if f1.Name != f2.Name {
		return MismatchFieldName, ""
	}
	if kind, field := MatchVariables(f1, f2, webgl); kind != MismatchNone {
		return kind, parentPrefix(f1.Name, field)
	}
	if f1.IsRowMajorLayout != f2.IsRowMajorLayout {
		return MismatchMatrixPacking, f1.Name
	}
	return MismatchNone, ""
}

// MatchInterfaceBlocks compares two same-named interface blocks.
func MatchInterfaceBlocks(b1, b2 *shader.InterfaceBlock, webgl bool) (MismatchKind, string) {
	if len(b1.Fields) != len(b2.Fields) {
		return MismatchFieldNumber, ""
	}
	if b1.ArraySize != b2.ArraySize {
		return MismatchArraySize, ""
	}
	if b1.Layout != b2.Layout || b1.Binding != b2.Binding {
		return MismatchLayoutQualifier, ""
	}
	if (b1.InstanceName == "") != (b2.InstanceName == "") {
		return MismatchInstanceName, ""
	}
	for i := range b1.Fields {
		if kind, field := MatchBlockFields(&b1.Fields[i], &b2.Fields[i], webgl); kind != MismatchNone {
			return kind, field
		}
	}
	return MismatchNone, ""
}

// MatchVaryings compares an output varying with the input varying of the
// next stage.
func MatchVaryings(output, input *shader.Variable, version int) (MismatchKind, string) {
	if kind, field := MatchVariables(output, input, false); kind != MismatchNone {
		return kind, field
	}
	if version >= 300 && output.Interpolation != input.Interpolation {
		return MismatchInterpolationType, ""
	}
	if version == 100 && output.IsInvariant != input.IsInvariant {
		return MismatchInvariance, ""
	}
	return MismatchNone, ""
}

// CheckVaryings validates the interface between two adjacent stages. Every
// statically used, non-builtin input of the consuming stage must match an
// output of the producing stage by name, or by location when both declare
// one.
func CheckVaryings(outputs, inputs []shader.Variable, outStage, inStage shader.Stage, version int) error {
	for i := range inputs {
		input := &inputs[i]
		if input.IsBuiltIn() {
			continue
		}
		output := findVarying(outputs, input)
		if output == nil {
			if input.StaticUse {
				return newError(ErrInterfaceMismatch, "%s varying %s does not match any %s varying",
					inStage, input.Name, outStage)
			}
			continue
		}
		if kind, field := MatchVaryings(output, input, version); kind != MismatchNone {
			return mismatchError(&Mismatch{
				Kind:         kind,
				Name:         input.Name,
				VariableType: "varying",
				Field:        field,
				Stage1:       outStage,
				Stage2:       inStage,
			})
		}
	}
	return nil
}

func findVarying(outputs []shader.Variable, input *shader.Variable) *shader.Variable {
	for i := range outputs {
		if SameResourceName(outputs[i].Name, input.Name) {
			return &outputs[i]
		}
	}
	if input.Location < 0 {
		return nil
	}
	for i := range outputs {
		if outputs[i].Location == input.Location && !outputs[i].IsBuiltIn() {
			return &outputs[i]
		}
	}
	return nil
}

// CheckBuiltinVaryings enforces the GLSL ES 1.00 invariance rules between
// gl_Position/gl_PointSize and gl_FragCoord/gl_PointCoord.
func CheckBuiltinVaryings(vertexOutputs, fragmentInputs []shader.Variable, version int) error {
	if version != 100 {
		return nil
	}
	var glPosition, glPointSize, glFragCoord, glPointCoord *shader.Variable
	for i := range vertexOutputs {
		switch vertexOutputs[i].Name {
		case "gl_Position":
			glPosition = &vertexOutputs[i]
		case "gl_PointSize":
			glPointSize = &vertexOutputs[i]
		}
	}
	for i := range fragmentInputs {
		switch fragmentInputs[i].Name {
		case "gl_FragCoord":
			glFragCoord = &fragmentInputs[i]
		case "gl_PointCoord":
			glPointCoord = &fragmentInputs[i]
		}
	}
	invariant := func(v *shader.Variable) bool { return v != nil && v.IsInvariant }
	if invariant(glFragCoord) && !invariant(glPosition) {
		return newError(ErrInterfaceMismatch,
			"gl_FragCoord can only be declared invariant if and only if gl_Position is declared invariant.")
	}
	if invariant(glPointCoord) && !invariant(glPointSize) {
		return newError(ErrInterfaceMismatch,
			"gl_PointCoord can only be declared invariant if and only if gl_PointSize is declared invariant.")
	}
	return nil
}

// SameResourceName reports whether two interface names address the same
// resource, treating "name" and "name[0]" as aliases.
func SameResourceName(a, b string) bool {
	switch {
	case a == b:
		return true
	case len(a) > len(b):
		return a == shader.BaseElementName(b)
	default:
		return b == shader.BaseElementName(a)
	}
}
