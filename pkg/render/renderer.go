package render

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-mailrender/pkg/render/template"
)

// Renderer is the default template.TemplateRenderer. Each call compiles the
// source as a new anonymous template: a fresh project and engine are built,
// the template is registered under a synthetic id, compiled and executed.
// Engine errors are returned unmodified.
//
// A Renderer is immutable once built and safe for concurrent use.
type Renderer struct {
	backend template.Backend
	newID   func() string
	cache   *templateCache
	html    HTMLPolicy
	logger  zerolog.Logger
}

var _ template.TemplateRenderer = (*Renderer)(nil)

// New builds a Renderer around backend.
func New(backend template.Backend, opts ...Option) (*Renderer, error) {
	if backend == nil {
		return nil, template.ErrNilBackend
	}

	cfg := config{
		newID:  uuid.NewString,
		html:   PassthroughHTML,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	r := &Renderer{
		backend: backend,
		newID:   cfg.newID,
		html:    cfg.html,
		logger:  cfg.logger.With().Str("backend", backend.Name()).Logger(),
	}
	if cfg.cacheSize > 0 {
		r.cache = newTemplateCache(cfg.cacheSize)
	}
	return r, nil
}

// Backend returns the engine backend this renderer delegates to.
func (r *Renderer) Backend() template.Backend {
	return r.backend
}

// ParseAsync implements template.TemplateRenderer. The render runs on its own
// goroutine.
func (r *Renderer) ParseAsync(ctx context.Context, source string, model any, isHTML bool) *template.Future[string] {
	if ctx == nil {
		ctx = context.Background()
	}
	return template.Go(func() (string, error) {
		return r.render(ctx, source, model, isHTML)
	})
}

// Parse implements template.TemplateRenderer by waiting on ParseAsync. The
// work runs on a dedicated goroutine, so blocking here never holds up the
// render itself; it does block the calling goroutine until completion.
func (r *Renderer) Parse(source string, model any, isHTML bool) (string, error) {
	return r.ParseAsync(context.Background(), source, model, isHTML).Wait()
}

// CacheStats reports cache counters. The zero value is returned when caching
// is disabled.
func (r *Renderer) CacheStats() CacheStats {
	if r.cache == nil {
		return CacheStats{}
	}
	return r.cache.stats()
}

func (r *Renderer) render(ctx context.Context, source string, model any, isHTML bool) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	id := r.newID()
	start := time.Now()
	opts := template.CompileOptions{HTML: isHTML}

	var (
		tmpl template.Template
		err  error
	)
	if r.cache != nil {
		tmpl, err = r.cache.get(ctx, source, isHTML, func(compileCtx context.Context) (template.Template, error) {
			return template.CompileString(compileCtx, r.backend, id, source, opts)
		})
	} else {
		tmpl, err = template.CompileString(ctx, r.backend, id, source, opts)
	}
	if err != nil {
		r.logFailure(id, "compile", start, err)
		return "", err
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	out, err := tmpl.Execute(ctx, model)
	if err != nil {
		r.logFailure(id, "execute", start, err)
		return "", err
	}

	out = r.html.Apply(out, isHTML)

	r.logger.Debug().
		Str("template_id", id).
		Bool("html", isHTML).
		Int("bytes", len(out)).
		Dur("duration", time.Since(start)).
		Msg("template rendered")
	return out, nil
}

func (r *Renderer) logFailure(id, stage string, start time.Time, err error) {
	event := r.logger.Debug()
	if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) &&
		!template.IsCompilationError(err) && !template.IsExecutionError(err) {
		event = r.logger.Warn()
	}
	event.
		Str("template_id", id).
		Str("stage", stage).
		Dur("duration", time.Since(start)).
		Err(err).
		Msg("template render failed")
}
