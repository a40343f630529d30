package shader

import (
	"strconv"
	"strings"
)

// InvalidIndex marks a subscript that could not be parsed.
const InvalidIndex = -1

// IsBuiltinName reports whether name is reserved for builtins.
func IsBuiltinName(name string) bool {
	return strings.HasPrefix(name, "gl_")
}

// ParseResourceName splits "a[1][2]" into "a" and [1 2]. Only trailing
// subscripts are parsed; a subscript that is not a non-negative decimal is
// reported as InvalidIndex. A name without subscripts returns no indices.
func ParseResourceName(name string) (string, []int) {
	var rev []int
	base := name
	for strings.HasSuffix(base, "]") {
		open := strings.LastIndexByte(base, '[')
		if open < 0 {
			break
		}
		rev = append(rev, parseSubscript(base[open+1:len(base)-1]))
		base = base[:open]
	}
	if len(rev) == 0 {
		return name, nil
	}
	indices := make([]int, len(rev))
	for i, idx := range rev {
		indices[len(rev)-1-i] = idx
	}
	return base, indices
}

func parseSubscript(s string) int {
	if s == "" || strings.TrimLeft(s, "0123456789") != "" {
		return InvalidIndex
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return InvalidIndex
	}
	return n
}

// StripLastArrayIndex removes a trailing "[n]" and returns the base name and
// n. ok is false when name has no trailing subscript.
func StripLastArrayIndex(name string) (base string, index int, ok bool) {
	if !strings.HasSuffix(name, "]") {
		return name, InvalidIndex, false
	}
	open := strings.LastIndexByte(name, '[')
	if open < 0 {
		return name, InvalidIndex, false
	}
	return name[:open], parseSubscript(name[open+1 : len(name)-1]), true
}

// ElementName returns "base[index]".
func ElementName(base string, index int) string {
	return base + "[" + strconv.Itoa(index) + "]"
}

// BaseElementName returns "base[0]".
func BaseElementName(base string) string {
	return ElementName(base, 0)
}

// TopLevelName returns the part of a flattened name before the first '.' or
// '['.
func TopLevelName(name string) string {
	if i := strings.IndexAny(name, ".["); i >= 0 {
		return name[:i]
	}
	return name
}
