// Package gotext exposes the standard library engines, text/template and
// html/template, through the template.Backend contract. The HTML hint picks
// html/template so output is contextually escaped.
package gotext

import (
	"bytes"
	"context"
	"errors"
	htmltemplate "html/template"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	texttemplate "text/template"

	"github.com/goliatone/go-mailrender/pkg/render/template"
)

// Name is the registry name of this backend.
const Name = "gotemplate"

var lineRe = regexp.MustCompile(`^template: [^:]*:(\d+):(?:(\d+):)?\s*(.*)$`)

// Option configures the Backend.
type Option func(*Backend)

// WithFuncs adds functions available to every template.
func WithFuncs(funcs map[string]any) Option {
	return func(b *Backend) {
		for name, fn := range funcs {
			if strings.TrimSpace(name) == "" || reflect.ValueOf(fn).Kind() != reflect.Func {
				continue
			}
			b.funcs[name] = fn
		}
	}
}

// WithMissingKey sets the missingkey option ("default", "zero" or "error").
// The default is "error".
func WithMissingKey(mode string) Option {
	return func(b *Backend) {
		switch mode {
		case "default", "invalid", "zero", "error":
			b.missingKey = mode
		}
	}
}

// WithDelims overrides the action delimiters.
func WithDelims(left, right string) Option {
	return func(b *Backend) {
		b.left, b.right = left, right
	}
}

// Backend builds engines around text/template and html/template.
type Backend struct {
	funcs       map[string]any
	missingKey  string
	left, right string
}

var _ template.Backend = (*Backend)(nil)

// New constructs a Backend.
func New(opts ...Option) *Backend {
	b := &Backend{
		funcs:      make(map[string]any),
		missingKey: "error",
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

// NewEngine implements template.Backend.
func (b *Backend) NewEngine(project *template.Project) (template.Engine, error) {
	if project == nil {
		return nil, errors.New("gotext: project is required")
	}
	return &engine{backend: b, project: project}, nil
}

type engine struct {
	backend *Backend
	project *template.Project
}

// Compile parses the named template and associates every other project
// template with it, so {{template "other"}} works.
func (e *engine) Compile(ctx context.Context, name string, opts template.CompileOptions) (template.Template, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	source, err := e.project.Source(name)
	if err != nil {
		return nil, err
	}

	if opts.HTML {
		root, err := htmltemplate.New(name).
			Option("missingkey=" + e.backend.missingKey).
			Funcs(htmltemplate.FuncMap(e.backend.funcs)).
			Delims(e.backend.left, e.backend.right).
			Parse(source)
		if err != nil {
			return nil, compilationError(name, err)
		}
		for _, other := range e.others(name) {
			if _, err := root.New(other.name).Parse(other.source); err != nil {
				return nil, compilationError(other.name, err)
			}
		}
		return &compiled{name: name, html: root}, nil
	}

	root, err := texttemplate.New(name).
		Option("missingkey=" + e.backend.missingKey).
		Funcs(texttemplate.FuncMap(e.backend.funcs)).
		Delims(e.backend.left, e.backend.right).
		Parse(source)
	if err != nil {
		return nil, compilationError(name, err)
	}
	for _, other := range e.others(name) {
		if _, err := root.New(other.name).Parse(other.source); err != nil {
			return nil, compilationError(other.name, err)
		}
	}
	return &compiled{name: name, text: root}, nil
}

type namedSource struct {
	name   string
	source string
}

func (e *engine) others(name string) []namedSource {
	var out []namedSource
	for _, n := range e.project.Names() {
		if n == name {
			continue
		}
		source, err := e.project.Source(n)
		if err != nil {
			continue
		}
		out = append(out, namedSource{name: n, source: source})
	}
	return out
}

type compiled struct {
	name string
	text *texttemplate.Template
	html *htmltemplate.Template
}

// Execute implements template.Template. Both standard library template types
// are safe for concurrent execution.
func (c *compiled) Execute(ctx context.Context, model any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var (
		buf bytes.Buffer
		err error
	)
	if c.html != nil {
		err = c.html.ExecuteTemplate(&buf, c.name, model)
	} else {
		err = c.text.ExecuteTemplate(&buf, c.name, model)
	}
	if err != nil {
		var escapeErr *htmltemplate.Error
		if errors.As(err, &escapeErr) && escapeErr.ErrorCode != htmltemplate.OK {
			// html/template reports escaping problems lazily, on first execute.
			return "", &template.CompilationError{
				Engine:  Name,
				Name:    c.name,
				Line:    escapeErr.Line,
				Message: escapeErr.Description,
				Err:     err,
			}
		}
		return "", &template.ExecutionError{
			Engine: Name,
			Name:   c.name,
			Err:    err,
		}
	}
	return buf.String(), nil
}

func compilationError(name string, err error) *template.CompilationError {
	compErr := &template.CompilationError{
		Engine:  Name,
		Name:    name,
		Message: err.Error(),
		Err:     err,
	}
	if match := lineRe.FindStringSubmatch(err.Error()); match != nil {
		compErr.Line, _ = strconv.Atoi(match[1])
		if match[2] != "" {
			compErr.Column, _ = strconv.Atoi(match[2])
		}
		compErr.Message = match[3]
	}
	return compErr
}
