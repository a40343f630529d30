// Package shader describes compiled shader stages as the linker sees them:
// the stage kind, the GLSL ES version, the AST and the flattened variable
// and interface block lists produced by the front end.
package shader

import (
	"math/bits"
	"strings"

	"github.com/gogpu/shaderlink/ir"
)

// Stage is a pipeline stage.
type Stage = ir.ShaderStage

// Pipeline stages.
const (
	StageVertex   = ir.StageVertex
	StageGeometry = ir.StageGeometry
	StageFragment = ir.StageFragment
	StageCompute  = ir.StageCompute
	StageCount    = ir.StageCount
)

// GraphicsStages lists the graphics stages in pipeline order.
var GraphicsStages = []Stage{StageVertex, StageGeometry, StageFragment}

// StageMask is a set of stages.
type StageMask uint8

// MaskOf returns a mask holding the given stages.
func MaskOf(stages ...Stage) StageMask {
	var m StageMask
	for _, s := range stages {
		m = m.With(s)
	}
	return m
}

// With returns the mask with s added.
func (m StageMask) With(s Stage) StageMask {
	return m | 1<<s
}

// Has reports whether s is in the mask.
func (m StageMask) Has(s Stage) bool {
	return m&(1<<s) != 0
}

// Empty reports whether the mask holds no stage.
func (m StageMask) Empty() bool {
	return m == 0
}

// Count returns the number of stages in the mask.
func (m StageMask) Count() int {
	return bits.OnesCount8(uint8(m))
}

// Stages returns the stages in the mask in pipeline order.
func (m StageMask) Stages() []Stage {
	var out []Stage
	for s := Stage(0); s < StageCount; s++ {
		if m.Has(s) {
			out = append(out, s)
		}
	}
	return out
}

// First returns the earliest stage in the mask.
func (m StageMask) First() (Stage, bool) {
	if m == 0 {
		return 0, false
	}
	return Stage(bits.TrailingZeros8(uint8(m))), true
}

// Last returns the latest stage in the mask.
func (m StageMask) Last() (Stage, bool) {
	if m == 0 {
		return 0, false
	}
	return Stage(7 - bits.LeadingZeros8(uint8(m))), true
}

// String returns the stage names joined with '|'.
func (m StageMask) String() string {
	stages := m.Stages()
	if len(stages) == 0 {
		return "none"
	}
	names := make([]string, len(stages))
	for i, s := range stages {
		names[i] = s.String()
	}
	return strings.Join(names, "|")
}
