// Package ir defines the typed shader AST consumed by the linker and the
// rewrite passes.
//
// The AST is stored in arenas rather than as a pointer tree:
//   - Types: all type definitions referenced by the shader
//   - GlobalVariables: the module symbol table (uniforms, varyings, builtins,
//     specialization constants, interface blocks)
//   - Functions: function definitions, each owning an expression arena
//
// Nodes refer to each other by handle (a uint32 index into the owning arena).
// Expressions are pure and form a tree: every expression is referenced by at
// most one parent. Statements are held in Blocks and carry structured control
// flow only.
//
// # Rewriting
//
// Passes never restructure the tree while walking it. New nodes are appended
// to the arenas (which never invalidates existing handles) and structural
// changes are described as a list of Edit values that ApplyEdits performs in
// a second step. Validate checks the structural invariants after every pass.
//
// # Translation Pipeline
//
//	GLSL ES stage (external front end) → ir.Module → rewrite passes → glsl.Compile
package ir
