package testsupport

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-mailrender/pkg/render/template"
)

// LoadModel reads a YAML (or JSON) fixture into a generic model map.
func LoadModel(path string) (map[string]any, error) {
	if path == "" {
		return nil, errors.New("testsupport: model path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("testsupport: read model: %w", err)
	}
	out := map[string]any{}
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("testsupport: unmarshal model: %w", err)
	}
	return out, nil
}

// MustLoadModel is LoadModel for tests.
func MustLoadModel(t *testing.T, path string) map[string]any {
	t.Helper()

	model, err := LoadModel(path)
	if err != nil {
		t.Fatalf("load model: %v", err)
	}
	return model
}

// MustReadFixture returns the content of a template fixture.
func MustReadFixture(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	return string(data)
}

// CompareGolden returns a diff string if the values differ.
func CompareGolden(want, got any) string {
	return cmp.Diff(want, got)
}

// MustReadGolden reads a golden file and returns its raw bytes.
func MustReadGolden(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read golden: %v", err)
	}
	return data
}

// MustReadGoldenString reads a golden file and returns its string content.
func MustReadGoldenString(t *testing.T, path string) string {
	t.Helper()
	return string(MustReadGolden(t, path))
}

// WriteMaybeGolden updates a golden file when UPDATE_GOLDENS is set. Returns
// true if the golden was written (test should exit early).
func WriteMaybeGolden(t *testing.T, path string, data []byte) bool {
	t.Helper()
	if os.Getenv("UPDATE_GOLDENS") == "" {
		return false
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir golden dir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write golden: %v", err)
	}
	return true
}

// Context returns a background context for tests.
func Context() context.Context {
	return context.Background()
}

// StubBackend is a template.Backend for renderer tests. Sources are rendered
// by replacing "{{key}}" with fmt.Sprint(model[key]); a source containing
// "{{!" fails to compile and a key missing from the model fails execution.
type StubBackend struct {
	mu       sync.Mutex
	engines  int
	projects []*template.Project
	hints    []bool
	compiles int
}

var _ template.Backend = (*StubBackend)(nil)

// Name implements template.Backend.
func (b *StubBackend) Name() string {
	return "stub"
}

// NewEngine implements template.Backend and records the project it was given.
func (b *StubBackend) NewEngine(project *template.Project) (template.Engine, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.engines++
	b.projects = append(b.projects, project)
	return &stubEngine{backend: b, project: project}, nil
}

// Engines returns how many engines were built.
func (b *StubBackend) Engines() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.engines
}

// Compiles returns how many templates were compiled.
func (b *StubBackend) Compiles() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.compiles
}

// Projects returns the projects engines were built for, in order.
func (b *StubBackend) Projects() []*template.Project {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*template.Project, len(b.projects))
	copy(out, b.projects)
	return out
}

// Hints returns the HTML hints passed to Compile, in order.
func (b *StubBackend) Hints() []bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]bool, len(b.hints))
	copy(out, b.hints)
	return out
}

type stubEngine struct {
	backend *StubBackend
	project *template.Project
}

func (e *stubEngine) Compile(ctx context.Context, name string, opts template.CompileOptions) (template.Template, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	source, err := e.project.Source(name)
	if err != nil {
		return nil, err
	}

	e.backend.mu.Lock()
	e.backend.compiles++
	e.backend.hints = append(e.backend.hints, opts.HTML)
	e.backend.mu.Unlock()

	if strings.Contains(source, "{{!") {
		return nil, &template.CompilationError{Engine: "stub", Name: name, Line: 1, Column: strings.Index(source, "{{!") + 1, Message: "bang is not allowed"}
	}
	return &stubTemplate{name: name, source: source}, nil
}

type stubTemplate struct {
	name   string
	source string
}

func (s *stubTemplate) Execute(_ context.Context, model any) (string, error) {
	values, _ := model.(map[string]any)

	var b strings.Builder
	rest := s.source
	for {
		start := strings.Index(rest, "{{")
		if start < 0 {
			b.WriteString(rest)
			return b.String(), nil
		}
		end := strings.Index(rest[start:], "}}")
		if end < 0 {
			b.WriteString(rest)
			return b.String(), nil
		}
		key := strings.TrimSpace(rest[start+2 : start+end])
		if key == "panic" {
			panic("stub: panic requested")
		}
		value, ok := values[key]
		if !ok {
			return "", &template.ExecutionError{Engine: "stub", Name: s.name, Message: fmt.Sprintf("%q not found", key), Err: template.ErrMissingMember}
		}
		b.WriteString(rest[:start])
		b.WriteString(fmt.Sprint(value))
		rest = rest[start+end+2:]
	}
}
