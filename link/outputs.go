package link

import (
	"golang.org/x/exp/slices"

	"github.com/gogpu/shaderlink/shader"
)

func isFragDataBuiltin(v *shader.Variable) bool {
	return v.Name == "gl_FragColor" || v.Name == "gl_FragData"
}

// outputLocationForLink returns the location fixed by the shader or by an
// API binding, or -1.
func (l *linker) outputLocationForLink(v *shader.Variable) int {
	if v.Location != -1 {
		return v.Location
	}
	return l.in.FragmentOutputLocations.Binding(v)
}

// isOutputSecondary reports whether the output feeds the second
// dual-source blending input.
func (l *linker) isOutputSecondary(v *shader.Variable) bool {
	if v.Index != -1 {
		return v.Index == 1
	}
	return l.in.FragmentOutputIndexes.Binding(v) == 1
}

// findUsedOutputLocation reports whether any slot in [base, base+count)
// holds something other than this variable's own reserved elements.
func findUsedOutputLocation(locations []VariableLocation, base, count int, reserved []VariableLocation, variable int) bool {
	if base+count > len(locations) {
		count = max(len(locations)-base, 0)
	}
	for e := 0; e < count; e++ {
		if locations[base+e].Used() {
			info := VariableLocation{ArrayIndex: e, Index: variable}
			if !slices.Contains(reserved, info) {
				return true
			}
		}
	}
	return false
}

// assignOutputLocations places the variable's elements at base, skipping
// elements already placed by a reservation.
func assignOutputLocations(locations *[]VariableLocation, base, count int, reserved []VariableLocation, variable int, v *shader.Variable) {
	for len(*locations) < base+count {
		*locations = append(*locations, UnusedLocation())
	}
	for e := 0; e < count; e++ {
		info := VariableLocation{ArrayIndex: e, Index: variable}
		if !slices.Contains(reserved, info) {
			v.Location = base
			(*locations)[base+e] = info
		}
	}
}

// linkOutputVariables gathers the fragment outputs and assigns their
// locations: reservations for API bindings of non-base array elements
// first, then fixed locations, then the remaining outputs by probing from
// location 0.
//
//nolint:gocyclo,cyclop // Mirrors the three placement passes
func (l *linker) linkOutputVariables() error {
	fragment := l.in.Shaders[shader.StageFragment]
	exe := l.exe

	var outputs []shader.Variable
	for i := range fragment.Outputs {
		v := &fragment.Outputs[i]
		if !v.Active && l.version >= 300 {
			continue
		}
		if v.IsBuiltIn() && !isFragDataBuiltin(v) {
			continue
		}
		outputs = append(outputs, v.Clone())
	}

	for i := range outputs {
		v := &outputs[i]
		base := max(v.Location, 0)
		for e := 0; e < v.ElementCount(); e++ {
			loc := base + e
			for len(exe.OutputVariableTypes) <= loc {
				exe.OutputVariableTypes = append(exe.OutputVariableTypes, shader.ComponentNone)
			}
			exe.OutputVariableTypes[loc] = v.Type.ComponentType()
			if loc < 32 {
				exe.ActiveOutputVariables |= 1 << uint(loc)
			}
		}
	}

	if err := l.checkCombinedOutputResources(len(outputs)); err != nil {
		return err
	}

	if l.version < 300 {
		return nil
	}
	exe.OutputVariables = outputs

	var reserved []VariableLocation
	for _, name := range l.in.FragmentOutputLocations.Names() {
		base, arrayIndex, ok := shader.StripLastArrayIndex(name)
		if !ok || arrayIndex <= 0 {
			continue
		}
		location := l.in.FragmentOutputLocations.ByName(name)
		for vi := range outputs {
			v := &outputs[vi]
			if v.IsBuiltIn() || !v.IsArray() || v.Name != base || arrayIndex >= int(v.OutermostArraySize()) {
				continue
			}
			table := &exe.OutputLocations
			limit := l.in.Caps.MaxDrawBuffers
			if l.in.FragmentOutputIndexes.ByName(name) == 1 {
				table = &exe.SecondaryOutputLocations
				limit = l.in.Caps.MaxDualSourceDrawBuffers
			}
			if location >= limit {
				return newError(ErrResourceExhausted, "Could not fit output variable into available locations: %s", name)
			}
			for len(*table) <= location {
				*table = append(*table, UnusedLocation())
			}
			if (*table)[location].Used() {
				return l.outputConflict(v, (*table)[location])
			}
			info := VariableLocation{ArrayIndex: arrayIndex, Index: vi}
			(*table)[location] = info
			reserved = append(reserved, info)
		}
	}

	for vi := range outputs {
		v := &outputs[vi]
		if v.IsBuiltIn() {
			continue
		}
		fixed := l.outputLocationForLink(v)
		if fixed == -1 {
			continue
		}
		table := &exe.OutputLocations
		limit := l.in.Caps.MaxDrawBuffers
		if l.isOutputSecondary(v) {
			table = &exe.SecondaryOutputLocations
			limit = l.in.Caps.MaxDualSourceDrawBuffers
		}
		if fixed >= limit {
			return newError(ErrResourceExhausted, "Could not fit output variable into available locations: %s", v.Name)
		}
		count := v.ElementCount()
		if findUsedOutputLocation(*table, fixed, count, reserved, vi) {
			return l.outputConflict(v, firstConflict(*table, fixed, count, reserved, vi))
		}
		assignOutputLocations(table, fixed, count, reserved, vi, v)
	}

	maxLocation := l.in.Caps.MaxDrawBuffers
	if len(exe.SecondaryOutputLocations) > 0 {
		maxLocation = l.in.Caps.MaxDualSourceDrawBuffers
	}

	for vi := range outputs {
		v := &outputs[vi]
		if v.IsBuiltIn() {
			continue
		}
		table := &exe.OutputLocations
		if l.isOutputSecondary(v) {
			table = &exe.SecondaryOutputLocations
		}
		count := v.ElementCount()
		base := 0
		if fixed := l.outputLocationForLink(v); fixed != -1 {
			base = fixed
		} else {
			for findUsedOutputLocation(*table, base, count, reserved, vi) {
				base++
			}
			assignOutputLocations(table, base, count, reserved, vi, v)
		}

		if base+count > maxLocation &&
			(base >= maxLocation || findUsedOutputLocation(*table, maxLocation, base+count-maxLocation, reserved, vi)) {
			return newError(ErrResourceExhausted, "Could not fit output variable into available locations: %s", v.Name)
		}
	}
	return nil
}

func firstConflict(locations []VariableLocation, base, count int, reserved []VariableLocation, variable int) VariableLocation {
	for e := 0; e < count && base+e < len(locations); e++ {
		loc := locations[base+e]
		if loc.Used() && !slices.Contains(reserved, VariableLocation{ArrayIndex: e, Index: variable}) {
			return loc
		}
	}
	return UnusedLocation()
}

func (l *linker) outputConflict(v *shader.Variable, other VariableLocation) error {
	if other.Used() && other.Index < len(l.exe.OutputVariables) {
		return newError(ErrPlacementConflict, "Location of variable %s conflicts with another variable %s.",
			v.Name, l.exe.OutputVariables[other.Index].Name)
	}
	return newError(ErrPlacementConflict, "Location of variable %s conflicts with another variable.", v.Name)
}

// checkCombinedOutputResources enforces MAX_COMBINED_SHADER_OUTPUT_RESOURCES
// for ES 3.1 programs.
func (l *linker) checkCombinedOutputResources(fragmentOutputs int) error {
	if !l.in.ClientVersion.AtLeast(3, 1) {
		return nil
	}
	total := l.combinedImageUniforms + l.combinedStorageBlocks + fragmentOutputs
	if total > l.in.Caps.MaxCombinedShaderOutputResources {
		return newError(ErrResourceExhausted,
			"The sum of the number of active image uniforms, active shader storage blocks and active fragment shader outputs exceeds MAX_COMBINED_SHADER_OUTPUT_RESOURCES (%d)",
			l.in.Caps.MaxCombinedShaderOutputResources)
	}
	return nil
}
