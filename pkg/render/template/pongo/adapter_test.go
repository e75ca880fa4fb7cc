package pongo_test

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/goliatone/go-mailrender/pkg/render/template"
	"github.com/goliatone/go-mailrender/pkg/render/template/pongo"
	"github.com/goliatone/go-mailrender/pkg/testsupport"
)

//go:embed testdata/templates/*.tpl
var embeddedTemplates embed.FS

func TestBackend_RenderString(t *testing.T) {
	backend := newBackend(t)

	got, err := template.CompileRenderString(testsupport.Context(), backend, "hello", "Hello, {{ Name }}!\n", map[string]any{"Name": "Ada"}, template.CompileOptions{})
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	want := testsupport.MustReadGoldenString(t, filepath.Join("testdata", "hello.golden"))
	if got != want {
		t.Fatalf("render mismatch\nwant: %q\n got: %q", want, got)
	}
}

func TestBackend_StructModel(t *testing.T) {
	type customer struct {
		Name   string `json:"name"`
		Active bool   `json:"active"`
	}

	got, err := template.CompileRenderString(context.Background(), newBackend(t), "t",
		"{% if active %}On{% else %}Off{% endif %} {{ name }}", customer{Name: "Ada"}, template.CompileOptions{})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if want := "Off Ada"; got != want {
		t.Fatalf("render mismatch\nwant: %q\n got: %q", want, got)
	}
}

func TestBackend_IncludeFromFS(t *testing.T) {
	got, err := template.CompileRenderString(context.Background(), newBackend(t), "t",
		"Hello, {{ Name }}!\n{% include \"signature.tpl\" %}", map[string]any{"Name": "Ada", "sender": "  Ops team "}, template.CompileOptions{})
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	want := testsupport.MustReadGoldenString(t, filepath.Join("testdata", "include-fs.golden"))
	if diff := testsupport.CompareGolden(want, got); diff != "" {
		t.Fatalf("render mismatch (-want +got):\n%s", diff)
	}
}

func TestBackend_IncludeFromProject(t *testing.T) {
	project := template.NewProject()
	if err := project.Add("main", "Dear {{ Name }}, {% include \"footer\" %}"); err != nil {
		t.Fatalf("add main: %v", err)
	}
	if err := project.Add("footer", "thanks."); err != nil {
		t.Fatalf("add footer: %v", err)
	}

	engine, err := newBackend(t).NewEngine(project)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	tmpl, err := engine.Compile(context.Background(), "main", template.CompileOptions{})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	got, err := tmpl.Execute(context.Background(), map[string]any{"Name": "Ada"})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if want := "Dear Ada, thanks."; got != want {
		t.Fatalf("render mismatch\nwant: %q\n got: %q", want, got)
	}
}

func TestBackend_GlobalContext(t *testing.T) {
	backend := newBackend(t)
	if err := backend.GlobalContext(map[string]any{
		"settings": map[string]any{"env": "staging"},
	}); err != nil {
		t.Fatalf("global context: %v", err)
	}

	got, err := template.CompileRenderString(context.Background(), backend, "t", "env={{ settings.env }}", nil, template.CompileOptions{})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if want := "env=staging"; got != want {
		t.Fatalf("render mismatch\nwant: %q\n got: %q", want, got)
	}
}

func TestBackend_RegisterFilter(t *testing.T) {
	backend := newBackend(t)
	err := backend.RegisterFilter("mailrender_shout", func(input any, _ any) (any, error) {
		if input == nil {
			return "", nil
		}
		return fmt.Sprintf("%s!", strings.ToUpper(fmt.Sprint(input))), nil
	})
	if err != nil {
		t.Fatalf("register filter: %v", err)
	}
	if err := backend.RegisterFilter("mailrender_shout", func(any, any) (any, error) { return nil, nil }); err == nil {
		t.Fatalf("expected duplicate filter registration to fail")
	}

	got, err := template.CompileRenderString(context.Background(), backend, "t", "{{ Name|mailrender_shout }}", map[string]any{"Name": "Ada"}, template.CompileOptions{})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if want := "ADA!"; got != want {
		t.Fatalf("render mismatch\nwant: %q\n got: %q", want, got)
	}
}

func TestBackend_SyntaxErrorIsCompilationError(t *testing.T) {
	_, err := template.CompileRenderString(context.Background(), newBackend(t), "broken", "{% if Name %}unterminated", map[string]any{}, template.CompileOptions{})
	if err == nil {
		t.Fatalf("expected compilation error")
	}

	var compErr *template.CompilationError
	if !errors.As(err, &compErr) {
		t.Fatalf("expected *template.CompilationError, got %T: %v", err, err)
	}
	if compErr.Engine != pongo.Name || compErr.Name != "broken" {
		t.Fatalf("unexpected error metadata: %+v", compErr)
	}
}

func TestBackend_LiteralIgnoresModel(t *testing.T) {
	for _, model := range []any{nil, map[string]any{"x": 1}, struct{ Y int }{Y: 2}, 42, "str", []int{1}} {
		got, err := template.CompileRenderString(context.Background(), newBackend(t), "t", "Hello, World!", model, template.CompileOptions{})
		if err != nil {
			t.Fatalf("render: %v", err)
		}
		if got != "Hello, World!" {
			t.Fatalf("model %v: got %q", model, got)
		}
	}
}

func TestBackend_ScalarModelUnderModelKey(t *testing.T) {
	cases := []struct {
		model any
		want  string
	}{
		{model: 42, want: "42"},
		{model: "Ada", want: "Ada"},
		{model: []string{"a", "b"}, want: "a,b,"},
	}

	for _, tc := range cases {
		source := "{{ model }}"
		if _, ok := tc.model.([]string); ok {
			source = "{% for item in model %}{{ item }},{% endfor %}"
		}
		got, err := template.CompileRenderString(context.Background(), newBackend(t), "t", source, tc.model, template.CompileOptions{})
		if err != nil {
			t.Fatalf("model %v: %v", tc.model, err)
		}
		if got != tc.want {
			t.Fatalf("model %v: got %q, want %q", tc.model, got, tc.want)
		}
	}
}

func TestBackend_ConcurrentFilterRegistration(t *testing.T) {
	const workers = 16

	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			backend, err := pongo.New()
			if err != nil {
				t.Errorf("new backend: %v", err)
				return
			}
			if err := backend.RegisterFilter("mailrender_concurrent", func(input any, _ any) (any, error) {
				return input, nil
			}); err == nil {
				succeeded.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := succeeded.Load(); got != 1 {
		t.Fatalf("filter registered %d times, want 1", got)
	}
}

func newBackend(t *testing.T) *pongo.Backend {
	t.Helper()

	templatesFS, err := fs.Sub(embeddedTemplates, "testdata/templates")
	if err != nil {
		t.Fatalf("sub fs: %v", err)
	}

	backend, err := pongo.New(pongo.WithFS(templatesFS))
	if err != nil {
		t.Fatalf("new backend: %v", err)
	}
	return backend
}
