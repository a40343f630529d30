package rewrite

import (
	"fmt"
	"strings"

	"github.com/gogpu/shaderlink/ir"
)

// InvariantError reports a pass that left the tree structurally invalid.
// It signals a bug in the pass, never a problem with the input shader.
type InvariantError struct {
	Pass   string
	Errors []ir.ValidationError
}

// Error implements the error interface.
func (e *InvariantError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "rewrite: %s left an invalid tree", e.Pass)
	for i, ve := range e.Errors {
		if i == 3 {
			fmt.Fprintf(&sb, " (and %d more)", len(e.Errors)-i)
			break
		}
		sb.WriteString("; ")
		sb.WriteString(ve.Error())
	}
	return sb.String()
}

// UnsupportedError reports a construct a pass cannot rewrite.
type UnsupportedError struct {
	Pass    string
	Message string
}

// Error implements the error interface.
func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("rewrite: %s: %s", e.Pass, e.Message)
}

func unsupported(pass, format string, args ...any) error {
	return &UnsupportedError{Pass: pass, Message: fmt.Sprintf(format, args...)}
}

// checkInvariants validates the module after a pass.
func checkInvariants(pass string, module *ir.Module) error {
	errs, err := ir.Validate(module)
	if err != nil {
		return fmt.Errorf("rewrite: %s: %w", pass, err)
	}
	if len(errs) > 0 {
		return &InvariantError{Pass: pass, Errors: errs}
	}
	return nil
}
