package template

import (
	"context"
)

// TemplateRenderer turns template source plus a model into rendered text.
// Every call compiles the source as a new anonymous template.
type TemplateRenderer interface {
	// ParseAsync starts a render and returns immediately. The returned future
	// resolves with the output or with the engine error, unmodified.
	ParseAsync(ctx context.Context, source string, model any, isHTML bool) *Future[string]
	// Parse blocks until the render completes. It must only be called from
	// synchronous call sites.
	Parse(source string, model any, isHTML bool) (string, error)
}

// ParseOption tunes the generic Render helpers.
type ParseOption func(*parseConfig)

type parseConfig struct {
	html bool
}

// AsHTML sets the isHTML hint passed to the renderer. The default is true.
func AsHTML(html bool) ParseOption {
	return func(cfg *parseConfig) {
		cfg.html = html
	}
}

func newParseConfig(opts []ParseOption) parseConfig {
	cfg := parseConfig{html: true}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}
	return cfg
}

// RenderAsync renders source against a typed model without blocking.
func RenderAsync[T any](ctx context.Context, r TemplateRenderer, source string, model T, opts ...ParseOption) *Future[string] {
	if r == nil {
		return Resolved("", ErrNilRenderer)
	}
	cfg := newParseConfig(opts)
	return r.ParseAsync(ctx, source, model, cfg.html)
}

// Render renders source against a typed model and waits for the result.
func Render[T any](r TemplateRenderer, source string, model T, opts ...ParseOption) (string, error) {
	if r == nil {
		return "", ErrNilRenderer
	}
	cfg := newParseConfig(opts)
	return r.Parse(source, model, cfg.html)
}
