package template

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNilRenderer is returned by the generic helpers when no renderer is given.
	ErrNilRenderer = errors.New("template: renderer is nil")
	// ErrNilBackend signals a renderer or helper was built without a backend.
	ErrNilBackend = errors.New("template: backend is nil")
	// ErrInvalidName rejects empty template names.
	ErrInvalidName = errors.New("template: template name is required")
	// ErrDuplicateTemplate rejects a second registration under the same name.
	ErrDuplicateTemplate = errors.New("template: template already registered")
	// ErrTemplateNotFound is returned when a project has no template by name.
	ErrTemplateNotFound = errors.New("template: template not found")
	// ErrMissingMember marks execution failures caused by a template path that
	// does not resolve against the model.
	ErrMissingMember = errors.New("template: missing model member")
	// ErrEnginePanic wraps a panic recovered from an engine.
	ErrEnginePanic = errors.New("template: engine panic")
)

// CompilationError reports template source the engine could not compile.
// Line and Column are the engine's own positions; zero means unknown.
type CompilationError struct {
	Engine  string
	Name    string
	Line    int
	Column  int
	Message string
	Err     error
}

func (e *CompilationError) Error() string {
	var b strings.Builder
	b.WriteString("template: compile")
	if e.Engine != "" {
		fmt.Fprintf(&b, " [%s]", e.Engine)
	}
	if e.Name != "" {
		fmt.Fprintf(&b, " %q", e.Name)
	}
	switch {
	case e.Line > 0 && e.Column > 0:
		fmt.Fprintf(&b, " at line %d, column %d", e.Line, e.Column)
	case e.Line > 0:
		fmt.Fprintf(&b, " at line %d", e.Line)
	}
	b.WriteString(": ")
	b.WriteString(e.message())
	return b.String()
}

func (e *CompilationError) message() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "invalid template"
}

func (e *CompilationError) Unwrap() error {
	return e.Err
}

// ExecutionError reports a template that compiled but failed while being
// evaluated against the model.
type ExecutionError struct {
	Engine  string
	Name    string
	Message string
	Err     error
}

func (e *ExecutionError) Error() string {
	var b strings.Builder
	b.WriteString("template: execute")
	if e.Engine != "" {
		fmt.Fprintf(&b, " [%s]", e.Engine)
	}
	if e.Name != "" {
		fmt.Fprintf(&b, " %q", e.Name)
	}
	b.WriteString(": ")
	switch {
	case e.Message != "":
		b.WriteString(e.Message)
	case e.Err != nil:
		b.WriteString(e.Err.Error())
	default:
		b.WriteString("execution failed")
	}
	return b.String()
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// IsCompilationError reports whether err is, or wraps, a CompilationError.
func IsCompilationError(err error) bool {
	var target *CompilationError
	return errors.As(err, &target)
}

// IsExecutionError reports whether err is, or wraps, an ExecutionError.
func IsExecutionError(err error) bool {
	var target *ExecutionError
	return errors.As(err, &target)
}
