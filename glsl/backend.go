// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package glsl

import (
	"fmt"

	"github.com/gogpu/shaderlink/ir"
	"github.com/gogpu/shaderlink/link"
	"github.com/gogpu/shaderlink/shader"
)

// Version represents a GLSL version.
type Version struct {
	Major uint8
	Minor uint8
	ES    bool // true for GLSL ES
}

// Supported output versions.
var (
	// Version450 is Vulkan-flavoured GLSL, consumed by glslang.
	Version450 = Version{Major: 4, Minor: 50, ES: false}

	// OpenGL ES targets for a native GLES backend.
	VersionES310 = Version{Major: 3, Minor: 10, ES: true}
	VersionES320 = Version{Major: 3, Minor: 20, ES: true}
)

// String returns the version as a GLSL version directive value.
func (v Version) String() string {
	if v.ES {
		return fmt.Sprintf("%d%02d es", v.Major, v.Minor)
	}
	return fmt.Sprintf("%d%02d core", v.Major, v.Minor)
}

// VersionNumber returns just the numeric version (e.g., "450", "310").
func (v Version) VersionNumber() string {
	return fmt.Sprintf("%d%02d", v.Major, v.Minor)
}

// Vulkan reports whether the output uses descriptor sets and
// specialization constants.
func (v Version) Vulkan() bool {
	return !v.ES
}

// Descriptor set layout of the generated code.
const (
	// DriverUniformsSet holds ANGLEUniforms at binding 0 and the per-stage
	// default uniform blocks at DefaultUniformsBinding(stage).
	DriverUniformsSet = 0
	// TextureSet holds samplers and images in executable order.
	TextureSet = 1
	// BufferSet holds uniform blocks followed by storage blocks.
	BufferSet = 2
)

// DefaultUniformsBlockName is the block the default uniforms of a stage are
// packed into.
const DefaultUniformsBlockName = "ANGLEDefaultUniforms"

// DefaultUniformsBinding returns the binding of a stage's default uniform
// block in DriverUniformsSet.
func DefaultUniformsBinding(stage shader.Stage) int {
	return 1 + int(stage)
}

// Options configures GLSL code generation.
type Options struct {
	// LangVersion is the target GLSL version.
	// Defaults to Version450 if zero.
	LangVersion Version

	// Executable orders textures and blocks and supplies attribute and
	// fragment output locations. Without it, resources are numbered in
	// declaration order.
	Executable *link.Executable

	// VaryingLocations pins the locations of varyings by name so that all
	// stages of a program agree. Missing varyings are assigned after the
	// largest pinned location. See VaryingLocations.
	VaryingLocations map[string]int

	// Placeholders maps placeholder statement names to the code that
	// replaces them. Unmapped placeholders are written as comments.
	Placeholders map[string]string

	// Declarations is code written after the global variables, typically
	// the buffers that placeholder code writes to. Functions called from
	// placeholder code are emitted even when the tree never calls them.
	Declarations string
}

// DefaultOptions returns options for Vulkan GLSL without resource tables.
func DefaultOptions() Options {
	return Options{LangVersion: Version450}
}

// VariableInfo locates a variable of the generated code. Fields that do not
// apply are -1.
type VariableInfo struct {
	DescriptorSet int
	Binding       int
	Location      int
	// Index is the dual-source blend index of a fragment output.
	Index        int
	ActiveStages shader.StageMask
}

func noVariableInfo(stage shader.Stage) VariableInfo {
	return VariableInfo{DescriptorSet: -1, Binding: -1, Location: -1, Index: -1, ActiveStages: shader.MaskOf(stage)}
}

// TranslationInfo contains metadata about the translation.
type TranslationInfo struct {
	// Variables maps source names to their placement: interface variables
	// by variable name, blocks by block name, default uniforms by uniform
	// name (all sharing the DefaultUniformsBlockName binding).
	Variables map[string]VariableInfo

	// UsedExtensions lists GLSL extensions required by the shader.
	UsedExtensions []string

	// RequiredVersion is the version written in the #version directive.
	RequiredVersion Version
}

// MergeVariables folds the variables of another stage into dst, joining
// the active stages of names present in both.
func MergeVariables(dst, src map[string]VariableInfo) {
	for name, info := range src {
		if prev, ok := dst[name]; ok {
			prev.ActiveStages |= info.ActiveStages
			dst[name] = prev
			continue
		}
		dst[name] = info
	}
}

// Compile generates GLSL source code from a translated module.
// Returns the GLSL source as a string, translation info, or an error.
func Compile(module *ir.Module, options Options) (string, TranslationInfo, error) {
	if module == nil || module.Main() == nil {
		return "", TranslationInfo{}, fmt.Errorf("glsl: module has no entry point")
	}
	if options.LangVersion.Major == 0 {
		options.LangVersion = Version450
	}

	w := newWriter(module, &options)
	if err := w.writeModule(); err != nil {
		return "", TranslationInfo{}, fmt.Errorf("glsl: %w", err)
	}

	info := TranslationInfo{
		Variables:       w.variables,
		UsedExtensions:  w.extensions,
		RequiredVersion: options.LangVersion,
	}
	return w.String(), info, nil
}
