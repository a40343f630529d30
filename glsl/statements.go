// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package glsl

import (
	"fmt"
	"strings"

	"github.com/gogpu/shaderlink/ir"
)

// writeBlock writes a block of statements.
func (w *Writer) writeBlock(block ir.Block) error {
	for _, stmt := range block {
		if err := w.writeStatement(stmt); err != nil {
			return err
		}
	}
	return nil
}

// writeStatement writes a single statement.
//
//nolint:gocyclo,cyclop // Statement handling requires many cases
func (w *Writer) writeStatement(stmt ir.Statement) error {
	switch s := stmt.Kind.(type) {
	case ir.StmtBlock:
		w.writeLine("{")
		w.pushIndent()
		if err := w.writeBlock(s.Block); err != nil {
			return err
		}
		w.popIndent()
		w.writeLine("}")
		return nil

	case ir.StmtIf:
		return w.writeIf(s)

	case ir.StmtLoop:
		w.writeLine("while (true)")
		w.writeLine("{")
		w.pushIndent()
		if err := w.writeBlock(s.Body); err != nil {
			return err
		}
		w.popIndent()
		w.writeLine("}")
		return nil

	case ir.StmtBreak:
		w.writeLine("break;")
		return nil

	case ir.StmtContinue:
		w.writeLine("continue;")
		return nil

	case ir.StmtReturn:
		if s.Value == nil {
			w.writeLine("return;")
			return nil
		}
		value, err := w.writeExpression(*s.Value)
		if err != nil {
			return err
		}
		w.writeLine("return %s;", value)
		return nil

	case ir.StmtKill:
		w.writeLine("discard;")
		return nil

	case ir.StmtStore:
		pointer, err := w.writeExpression(s.Pointer)
		if err != nil {
			return err
		}
		value, err := w.writeExpression(s.Value)
		if err != nil {
			return err
		}
		w.writeLine("%s = %s;", pointer, value)
		return nil

	case ir.StmtCall:
		call, err := w.writeCallExpression(s.Function, s.Arguments)
		if err != nil {
			return err
		}
		w.writeLine("%s;", call)
		return nil

	case ir.StmtPlaceholder:
		return w.writePlaceholder(s)

	default:
		return fmt.Errorf("unsupported statement kind %T", stmt.Kind)
	}
}

// writeIf writes an if statement; an empty reject block is omitted.
func (w *Writer) writeIf(ifStmt ir.StmtIf) error {
	condition, err := w.writeExpression(ifStmt.Condition)
	if err != nil {
		return err
	}

	w.writeLine("if (%s)", condition)
	w.writeLine("{")
	w.pushIndent()
	if err := w.writeBlock(ifStmt.Accept); err != nil {
		return err
	}
	w.popIndent()

	if len(ifStmt.Reject) > 0 {
		w.writeLine("}")
		w.writeLine("else")
		w.writeLine("{")
		w.pushIndent()
		if err := w.writeBlock(ifStmt.Reject); err != nil {
			return err
		}
		w.popIndent()
	}
	w.writeLine("}")
	return nil
}

// writePlaceholder substitutes backend code for a placeholder, or leaves a
// marker comment when none was supplied.
func (w *Writer) writePlaceholder(p ir.StmtPlaceholder) error {
	code, ok := w.options.Placeholders[p.Name]
	if !ok {
		w.writeLine("// %s", p.Name)
		return nil
	}
	for _, line := range strings.Split(strings.TrimRight(code, "\n"), "\n") {
		w.writeLine("%s", line)
	}
	return nil
}
