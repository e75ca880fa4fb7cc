// Package mailrender renders email templates from a source string and a
// model. The heavy lifting lives in pkg/render and the engine adapters under
// pkg/render/template; this package wires them together for callers that just
// want a working renderer.
package mailrender

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-mailrender/pkg/config"
	"github.com/goliatone/go-mailrender/pkg/logging"
	"github.com/goliatone/go-mailrender/pkg/render"
	"github.com/goliatone/go-mailrender/pkg/render/template"
	"github.com/goliatone/go-mailrender/pkg/render/template/gotext"
	"github.com/goliatone/go-mailrender/pkg/render/template/handlebars"
	"github.com/goliatone/go-mailrender/pkg/render/template/pongo"
)

// TemplateRenderer aliases the inbound rendering contract.
type TemplateRenderer = template.TemplateRenderer

// Renderer aliases the default TemplateRenderer implementation.
type Renderer = render.Renderer

// DefaultBackend is used when no backend is configured.
const DefaultBackend = handlebars.Name

// DefaultRegistry returns a registry holding the built-in engines with their
// default options.
func DefaultRegistry() (*render.Registry, error) {
	return NewRegistry(config.Default())
}

// NewRegistry registers the built-in engines configured from cfg.
func NewRegistry(cfg config.Config) (*render.Registry, error) {
	registry := render.NewRegistry()

	if err := registry.Register(handlebars.New(handlebars.WithStrict(cfg.Handlebars.Strict))); err != nil {
		return nil, err
	}
	if err := registry.Register(gotext.New()); err != nil {
		return nil, err
	}

	pongoBackend, err := pongo.New()
	if err != nil {
		return nil, fmt.Errorf("mailrender: pongo2 backend: %w", err)
	}
	if err := registry.Register(pongoBackend); err != nil {
		return nil, err
	}

	return registry, nil
}

// New returns a renderer over the default handlebars backend.
func New(opts ...render.Option) (*Renderer, error) {
	return render.New(handlebars.New(), opts...)
}

// NewFromConfig builds a renderer for cfg.Backend with the cache, HTML policy
// and strictness taken from cfg.
func NewFromConfig(cfg config.Config, logger zerolog.Logger) (*Renderer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	registry, err := NewRegistry(cfg)
	if err != nil {
		return nil, err
	}

	policy, err := HTMLPolicyFor(cfg.HTML.Sanitize)
	if err != nil {
		return nil, err
	}

	return registry.NewRenderer(cfg.Backend,
		render.WithCache(cfg.CacheSize()),
		render.WithHTMLPolicy(policy),
		render.WithLogger(logging.Component(logger, "render")),
	)
}

// HTMLPolicyFor maps a config sanitize mode to an output policy.
func HTMLPolicyFor(mode string) (render.HTMLPolicy, error) {
	switch mode {
	case "", config.SanitizeNone:
		return render.PassthroughHTML, nil
	case config.SanitizeUGC:
		return render.UGCSanitizer(), nil
	case config.SanitizeStrict:
		return render.StrictSanitizer(), nil
	default:
		return nil, fmt.Errorf("mailrender: unknown sanitize mode %q", mode)
	}
}
