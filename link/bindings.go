package link

import (
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/gogpu/shaderlink/shader"
)

// Bindings maps resource names to API-assigned locations
// (glBindAttribLocation).
type Bindings struct {
	m map[string]int
}

// Bind assigns location to name. A negative location binds nothing.
func (b *Bindings) Bind(location int, name string) {
	if location < 0 {
		return
	}
	if b.m == nil {
		b.m = make(map[string]int)
	}
	b.m[name] = location
}

// ByName returns the location bound to name, or -1.
func (b *Bindings) ByName(name string) int {
	if loc, ok := b.m[name]; ok {
		return loc
	}
	return -1
}

// Binding returns the location bound to the variable, or -1.
func (b *Bindings) Binding(v *shader.Variable) int {
	return b.ByName(v.Name)
}

// Names returns the bound names in sorted order.
func (b *Bindings) Names() []string {
	names := maps.Keys(b.m)
	slices.Sort(names)
	return names
}

type aliasedBinding struct {
	location int
	aliased  bool
}

// AliasedBindings maps names to API-assigned locations where "name" and
// "name[0]" address the same binding: whichever form was bound last wins.
type AliasedBindings struct {
	m map[string]aliasedBinding
}

// Bind assigns location to name. A negative location binds nothing.
func (b *AliasedBindings) Bind(location int, name string) {
	if location < 0 {
		return
	}
	if b.m == nil {
		b.m = make(map[string]aliasedBinding)
	}
	b.m[name] = aliasedBinding{location: location}

	// Binding "name[0]" shadows an earlier "name" binding.
	if base, index, ok := shader.StripLastArrayIndex(name); ok && index == 0 {
		if entry, found := b.m[base]; found {
			entry.aliased = true
			b.m[base] = entry
		}
	}
}

// ByName returns the location bound to exactly name, or -1.
func (b *AliasedBindings) ByName(name string) int {
	if entry, ok := b.m[name]; ok {
		return entry.location
	}
	return -1
}

// Binding returns the location bound to the variable, resolving the
// "name"/"name[0]" alias for arrays.
func (b *AliasedBindings) Binding(v *shader.Variable) int {
	name := v.Name
	if v.IsArray() {
		base, index, ok := shader.StripLastArrayIndex(name)
		switch {
		case ok && index == 0:
			if entry, found := b.m[base]; found && !entry.aliased {
				return entry.location
			}
		case !ok:
			if entry, found := b.m[name]; found && !entry.aliased {
				return entry.location
			}
			return b.ByName(shader.BaseElementName(name))
		}
	}
	return b.ByName(name)
}

// Names returns the bound names in sorted order.
func (b *AliasedBindings) Names() []string {
	names := maps.Keys(b.m)
	slices.Sort(names)
	return names
}

// Aliased reports whether a later "name[0]" binding shadows name.
func (b *AliasedBindings) Aliased(name string) bool {
	return b.m[name].aliased
}

// Len returns the number of bindings.
func (b *AliasedBindings) Len() int {
	return len(b.m)
}
