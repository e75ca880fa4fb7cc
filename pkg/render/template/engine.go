package template

import (
	"context"
)

// Backend is a pluggable templating engine. A single Backend is shared by a
// renderer; it hands out a fresh Engine for every project.
type Backend interface {
	Name() string
	NewEngine(project *Project) (Engine, error)
}

// Engine compiles templates registered in the project it was built for.
type Engine interface {
	Compile(ctx context.Context, name string, opts CompileOptions) (Template, error)
}

// Template is a compiled template. Execute must be safe for concurrent use so
// compiled templates can be cached across renders.
type Template interface {
	Execute(ctx context.Context, model any) (string, error)
}

// CompileOptions carries per-render hints to the engine.
type CompileOptions struct {
	// HTML reports whether the output is meant to be HTML. Engines without an
	// HTML mode ignore it.
	HTML bool
}

// CompileRenderString registers source under name in a new project, builds an
// engine for it, compiles and executes against model. Engine errors are
// returned as-is.
func CompileRenderString(ctx context.Context, backend Backend, name, source string, model any, opts CompileOptions) (string, error) {
	tmpl, err := CompileString(ctx, backend, name, source, opts)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return tmpl.Execute(ctx, model)
}

// CompileString is CompileRenderString without the execute step.
func CompileString(ctx context.Context, backend Backend, name, source string, opts CompileOptions) (Template, error) {
	if backend == nil {
		return nil, ErrNilBackend
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	project := NewProject()
	if err := project.Add(name, source); err != nil {
		return nil, err
	}

	engine, err := backend.NewEngine(project)
	if err != nil {
		return nil, err
	}
	return engine.Compile(ctx, name, opts)
}
