package render

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-mailrender/pkg/render/template"
)

var (
	// ErrBackendNotFound is returned when no backend is registered under a name.
	ErrBackendNotFound = errors.New("render: backend not found")
	// ErrDuplicateBackend is returned when a name is already taken.
	ErrDuplicateBackend = errors.New("render: backend already registered")
)

// Registry maps engine names to backends so configuration can pick an engine
// by name. Names are matched case-insensitively after trimming.
type Registry struct {
	mu       sync.RWMutex
	backends map[string]template.Backend
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		backends: make(map[string]template.Backend),
	}
}

func normalizeName(name string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || strings.ContainsFunc(key, func(r rune) bool { return r == ' ' || r == '\t' || r == '\n' }) {
		return "", fmt.Errorf("%w: backend name %q", template.ErrInvalidName, name)
	}
	return key, nil
}

// Register adds a backend under its Name().
func (r *Registry) Register(backend template.Backend) error {
	if backend == nil {
		return template.ErrNilBackend
	}
	key, err := normalizeName(backend.Name())
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.backends[key]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateBackend, key)
	}
	r.backends[key] = backend
	return nil
}

// MustRegister panics on registration failure.
func (r *Registry) MustRegister(backend template.Backend) {
	if err := r.Register(backend); err != nil {
		panic(err)
	}
}

// Get returns the backend registered under name.
func (r *Registry) Get(name string) (template.Backend, error) {
	key, err := normalizeName(name)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	backend, ok := r.backends[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %s)", ErrBackendNotFound, key, strings.Join(r.namesLocked(), ", "))
	}
	return backend, nil
}

// MustGet panics if the backend is missing.
func (r *Registry) MustGet(name string) template.Backend {
	backend, err := r.Get(name)
	if err != nil {
		panic(err)
	}
	return backend
}

// List returns the registered names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.namesLocked()
}

func (r *Registry) namesLocked() []string {
	names := make([]string, 0, len(r.backends))
	for name := range r.backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether a backend is registered under name.
func (r *Registry) Has(name string) bool {
	_, err := r.Get(name)
	return err == nil
}

// NewRenderer builds a Renderer for the named backend.
func (r *Registry) NewRenderer(name string, opts ...Option) (*Renderer, error) {
	backend, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	return New(backend, opts...)
}
