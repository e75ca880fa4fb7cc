package render

import (
	"github.com/rs/zerolog"
)

// Option configures a Renderer.
type Option func(*config)

type config struct {
	newID     func() string
	cacheSize int
	html      HTMLPolicy
	logger    zerolog.Logger
}

// WithIDGenerator replaces the synthetic template id generator (uuid by
// default). Generated ids must be unique and non-empty.
func WithIDGenerator(fn func() string) Option {
	return func(cfg *config) {
		if fn != nil {
			cfg.newID = fn
		}
	}
}

// WithCache enables a bounded cache of compiled templates keyed by a hash of
// the template source. size <= 0 keeps the default of compiling on every call.
func WithCache(size int) Option {
	return func(cfg *config) {
		cfg.cacheSize = size
	}
}

// WithHTMLPolicy sets what the renderer does with the isHTML hint. The default
// ignores it.
func WithHTMLPolicy(policy HTMLPolicy) Option {
	return func(cfg *config) {
		if policy != nil {
			cfg.html = policy
		}
	}
}

// WithLogger sets the logger used for render diagnostics. The default discards.
func WithLogger(logger zerolog.Logger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}
