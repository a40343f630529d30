package link

import (
	"github.com/gogpu/shaderlink/shader"
)

// linkAttributes assigns a location to every vertex attribute. Explicit
// locations from the shader win over API bindings; the rest are packed into
// the first free run of registers.
func (l *linker) linkAttributes() error {
	vertex := l.in.Shaders[shader.StageVertex]
	maxAttribs := min(l.in.Caps.MaxVertexAttributes, 32)
	strict := l.version >= 300 || l.in.WebGL || l.in.Limitations.NoVertexAttributeAliasing

	// ES 3.00 considers every attribute; inactive ones are pruned after
	// placement.
	inputs := make([]shader.Variable, 0, len(vertex.Attributes))
	for i := range vertex.Attributes {
		a := &vertex.Attributes[i]
		if l.version < 300 && !a.Active {
			continue
		}
		inputs = append(inputs, a.Clone())
	}

	used := make([]*shader.Variable, maxAttribs)
	var usedMask uint32
	for i := range inputs {
		attr := &inputs[i]
		if attr.IsBuiltIn() {
			continue
		}
		if attr.Location == -1 {
			attr.Location = l.in.AttributeBindings.Binding(attr)
		}
		if attr.Location == -1 {
			continue
		}
		regs := attr.RegisterCount()
		if attr.Location+regs > maxAttribs {
			return newError(ErrResourceExhausted, "Attribute (%s) at location %d is too big to fit",
				attr.Name, attr.Location)
		}
		for reg := 0; reg < regs; reg++ {
			loc := attr.Location + reg
			if linked := used[loc]; linked != nil {
				if strict {
					return newError(ErrPlacementConflict, "Attribute '%s' aliases attribute '%s' at location %d",
						attr.Name, linked.Name, loc)
				}
			} else {
				used[loc] = attr
			}
			usedMask |= 1 << uint(loc)
		}
	}

	for i := range inputs {
		attr := &inputs[i]
		if attr.IsBuiltIn() || attr.Location != -1 {
			continue
		}
		regs := attr.RegisterCount()
		loc := allocateFirstFreeBits(&usedMask, regs, maxAttribs)
		if loc == -1 {
			return newError(ErrResourceExhausted, "Too many attributes (%s)", attr.Name)
		}
		attr.Location = loc
	}

	if l.version >= 300 {
		active := inputs[:0]
		for i := range inputs {
			if inputs[i].Active {
				active = append(active, inputs[i])
			}
		}
		inputs = active
	}

	for i := range inputs {
		attr := &inputs[i]
		if attr.IsBuiltIn() {
			continue
		}
		for r := 0; r < attr.RegisterCount(); r++ {
			loc := attr.Location + r
			l.exe.ActiveAttribLocationsMask |= 1 << uint(loc)
			l.exe.MaxActiveAttribLocation = max(l.exe.MaxActiveAttribLocation, loc+1)
		}
	}
	l.exe.ProgramInputs = inputs
	return nil
}

// allocateFirstFreeBits finds the first run of n clear bits below limit,
// sets them and returns the index of the first, or -1.
func allocateFirstFreeBits(bits *uint32, n, limit int) int {
	if n <= 0 || n > 32 {
		return -1
	}
	run := uint32(1)<<uint(n) - 1
	for i := 0; i+n <= limit; i++ {
		if *bits&(run<<uint(i)) == 0 {
			*bits |= run << uint(i)
			return i
		}
	}
	return -1
}
