// Package vm - error handling with stack traces
package vm

import (
	"strings"
)

// RuntimeError is what an uncaught Lumen exception surfaces as to Go
// callers of Interpret: the exception's message plus the human-readable
// call-stack trace captured at the point it was thrown (spec.md §7,
// §8's runtime-error set), as built by captureStackTrace/unwindToHandler
// in vm.go.
type RuntimeError struct {
	Message    string
	StackTrace []string
}

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if len(e.StackTrace) > 0 {
		b.WriteString("\n\nStack trace:")
		for _, line := range e.StackTrace {
			b.WriteString("\n  ")
			b.WriteString(line)
		}
	}
	return b.String()
}
