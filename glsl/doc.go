// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package glsl generates GLSL source from a translated shader tree.
//
// The primary target is Vulkan-flavoured GLSL 4.50, consumed by an
// external SPIR-V compiler. GLSL ES 3.10 and 3.20 are also supported for
// native GLES backends; they drop descriptor sets and specialization
// constants.
//
// # Basic Usage
//
//	source, info, err := glsl.Compile(module, glsl.Options{
//	    LangVersion: glsl.Version450,
//	    Executable:  exe,
//	})
//
// # Resource Layout
//
// Descriptor sets are assigned as follows:
//
//   - set 0: the driver uniform block at binding 0, then one
//     ANGLEDefaultUniforms block per stage at binding 1+stage
//   - set 1: samplers and images, in the executable's uniform order
//   - set 2: uniform blocks, then shader storage blocks
//
// Interface variables get locations from the executable (attributes and
// fragment outputs) or from VaryingLocations (varyings). The placement of
// every declaration is reported in TranslationInfo.Variables.
//
// # Reserved Words
//
// Source identifiers that collide with GLSL reserved words or reserved
// prefixes are renamed with an "_u" prefix.
package glsl
