package handlebars

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/aymerick/raymond"
	"github.com/aymerick/raymond/ast"
	"github.com/aymerick/raymond/parser"

	"github.com/goliatone/go-mailrender/pkg/render/template"
)

// Name is the registry name of this backend.
const Name = "handlebars"

// builtinHelpers are the helpers raymond registers globally.
var builtinHelpers = []string{"if", "unless", "with", "each", "log", "lookup", "equal"}

var lineRe = regexp.MustCompile(`(?i)line (\d+)`)

// Option configures the Backend.
type Option func(*Backend)

// WithHelpers registers helpers on every compiled template. Helpers must be
// functions, as raymond requires.
func WithHelpers(helpers map[string]any) Option {
	return func(b *Backend) {
		for name, fn := range helpers {
			name = strings.TrimSpace(name)
			if name == "" || fn == nil {
				continue
			}
			b.helpers[name] = fn
		}
	}
}

// WithPartials registers partials on every compiled template. Templates in the
// same project take precedence over these on name collisions.
func WithPartials(partials map[string]string) Option {
	return func(b *Backend) {
		for name, source := range partials {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			b.partials[name] = source
		}
	}
}

// WithStrict toggles strict member resolution. Strict is on by default.
func WithStrict(strict bool) Option {
	return func(b *Backend) {
		b.strict = strict
	}
}

// Backend builds raymond engines. It is immutable after New.
type Backend struct {
	helpers  map[string]any
	partials map[string]string
	strict   bool
}

var _ template.Backend = (*Backend)(nil)

// New constructs a Backend.
func New(opts ...Option) *Backend {
	b := &Backend{
		helpers:  make(map[string]any),
		partials: make(map[string]string),
		strict:   true,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(b)
	}
	return b
}

// Name implements template.Backend.
func (b *Backend) Name() string {
	return Name
}

// Strict reports whether strict member resolution is enabled.
func (b *Backend) Strict() bool {
	return b.strict
}

// NewEngine implements template.Backend.
func (b *Backend) NewEngine(project *template.Project) (template.Engine, error) {
	if project == nil {
		return nil, fmt.Errorf("handlebars: project is required")
	}
	return &engine{backend: b, project: project}, nil
}

func (b *Backend) helperNames() map[string]struct{} {
	names := make(map[string]struct{}, len(builtinHelpers)+len(b.helpers))
	for _, name := range builtinHelpers {
		names[name] = struct{}{}
	}
	for name := range b.helpers {
		names[name] = struct{}{}
	}
	return names
}

type engine struct {
	backend *Backend
	project *template.Project
}

// Compile parses the named project template. The HTML hint is ignored:
// Handlebars always escapes double-stash output.
func (e *engine) Compile(ctx context.Context, name string, _ template.CompileOptions) (template.Template, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	source, err := e.project.Source(name)
	if err != nil {
		return nil, err
	}

	program, err := parser.Parse(source)
	if err != nil {
		return nil, compilationError(name, err)
	}

	tpl, err := raymond.Parse(source)
	if err != nil {
		return nil, compilationError(name, err)
	}

	if err := e.register(tpl, name); err != nil {
		return nil, err
	}

	return &compiled{
		name:    name,
		tpl:     tpl,
		program: program,
		strict:  e.backend.strict,
		helpers: e.backend.helperNames(),
	}, nil
}

// register installs helpers and partials. raymond panics on invalid helpers
// and duplicate partials, so those panics become errors here.
func (e *engine) register(tpl *raymond.Template, name string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handlebars: register helpers for %q: %v", name, r)
		}
	}()

	if len(e.backend.helpers) > 0 {
		tpl.RegisterHelpers(e.backend.helpers)
	}

	partials := make(map[string]string, len(e.backend.partials)+e.project.Len())
	for partial, source := range e.backend.partials {
		partials[partial] = source
	}
	for _, other := range e.project.Names() {
		if other == name {
			continue
		}
		source, err := e.project.Source(other)
		if err != nil {
			return err
		}
		partials[other] = source
	}
	if len(partials) > 0 {
		tpl.RegisterPartials(partials)
	}
	return nil
}

type compiled struct {
	name    string
	tpl     *raymond.Template
	program *ast.Program
	strict  bool
	helpers map[string]struct{}
}

// Execute implements template.Template.
func (c *compiled) Execute(ctx context.Context, model any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if c.strict {
		checker := newStrictChecker(c.name, model, c.helpers)
		if err := checker.program(c.program); err != nil {
			return "", err
		}
	}

	if model == nil {
		model = map[string]any{}
	}

	out, err := c.tpl.Exec(model)
	if err != nil {
		return "", &template.ExecutionError{
			Engine: Name,
			Name:   c.name,
			Err:    err,
		}
	}
	return out, nil
}

func compilationError(name string, err error) *template.CompilationError {
	message := strings.TrimSpace(err.Error())
	compErr := &template.CompilationError{
		Engine:  Name,
		Name:    name,
		Message: message,
		Err:     err,
	}
	if match := lineRe.FindStringSubmatch(message); len(match) == 2 {
		if line, convErr := strconv.Atoi(match[1]); convErr == nil {
			compErr.Line = line
		}
	}
	return compErr
}
