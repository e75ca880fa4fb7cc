package template

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Project is the in-memory registry of template sources an engine compiles
// from. Renderers build one per call; it is never shared between renders.
type Project struct {
	mu      sync.RWMutex
	sources map[string]string
}

// NewProject creates an empty project.
func NewProject() *Project {
	return &Project{
		sources: make(map[string]string),
	}
}

// Add registers source under name. Names must be non-empty and unique.
func (p *Project) Add(name, source string) error {
	if strings.TrimSpace(name) == "" {
		return ErrInvalidName
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.sources[name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateTemplate, name)
	}
	p.sources[name] = source
	return nil
}

// Source returns the template registered under name.
func (p *Project) Source(name string) (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	source, ok := p.sources[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrTemplateNotFound, name)
	}
	return source, nil
}

// Has reports whether name is registered.
func (p *Project) Has(name string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	_, ok := p.sources[name]
	return ok
}

// Names returns the registered names, sorted.
func (p *Project) Names() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	names := make([]string, 0, len(p.sources))
	for name := range p.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered templates.
func (p *Project) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.sources)
}
