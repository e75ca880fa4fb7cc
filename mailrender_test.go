package mailrender_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-mailrender"
	"github.com/goliatone/go-mailrender/pkg/config"
	"github.com/goliatone/go-mailrender/pkg/render/template"
)

func TestDefaultRegistry_ListsBuiltins(t *testing.T) {
	registry, err := mailrender.DefaultRegistry()
	if err != nil {
		t.Fatalf("default registry: %v", err)
	}

	want := []string{"gotemplate", "handlebars", "pongo2"}
	if diff := cmp.Diff(want, registry.List()); diff != "" {
		t.Fatalf("backends mismatch (-want +got):\n%s", diff)
	}
}

func TestNew_RendersHandlebars(t *testing.T) {
	r, err := mailrender.New()
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	got, err := r.Parse("Hello {{Name}}!", map[string]any{"Name": "Ada"}, true)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got != "Hello Ada!" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestNewFromConfig_SelectsBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Backend = "gotemplate"

	r, err := mailrender.NewFromConfig(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("new from config: %v", err)
	}
	if r.Backend().Name() != "gotemplate" {
		t.Fatalf("expected gotemplate backend, got %s", r.Backend().Name())
	}

	got, err := template.Render(r, "Hi {{.Name}}", map[string]string{"Name": "Grace"}, template.AsHTML(false))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got != "Hi Grace" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestNewFromConfig_Sanitizes(t *testing.T) {
	cfg := config.Default()
	cfg.HTML.Sanitize = config.SanitizeStrict

	r, err := mailrender.NewFromConfig(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("new from config: %v", err)
	}

	got, err := r.Parse("<p>{{{Body}}}</p>", map[string]any{"Body": "hi"}, true)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got != "hi" {
		t.Fatalf("expected tags stripped, got %q", got)
	}

	got, err = r.Parse("<p>{{{Body}}}</p>", map[string]any{"Body": "hi"}, false)
	if err != nil {
		t.Fatalf("parse text: %v", err)
	}
	if got != "<p>hi</p>" {
		t.Fatalf("expected text output untouched, got %q", got)
	}
}

func TestNewFromConfig_NonStrictHandlebars(t *testing.T) {
	cfg := config.Default()
	cfg.Handlebars.Strict = false

	r, err := mailrender.NewFromConfig(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("new from config: %v", err)
	}

	got, err := r.Parse("Hello {{Missing}}!", map[string]any{}, true)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got != "Hello !" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestNewFromConfig_Errors(t *testing.T) {
	cfg := config.Default()
	cfg.Backend = "razor"

	if _, err := mailrender.NewFromConfig(cfg, zerolog.Nop()); err == nil {
		t.Fatalf("expected unknown backend error")
	}

	cfg = config.Default()
	cfg.HTML.Sanitize = "aggressive"
	if _, err := mailrender.NewFromConfig(cfg, zerolog.Nop()); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestHTMLPolicyFor(t *testing.T) {
	for _, mode := range []string{"", config.SanitizeNone, config.SanitizeUGC, config.SanitizeStrict} {
		if _, err := mailrender.HTMLPolicyFor(mode); err != nil {
			t.Fatalf("mode %q: %v", mode, err)
		}
	}
	if _, err := mailrender.HTMLPolicyFor("bogus"); err == nil {
		t.Fatalf("expected unknown mode error")
	}
}
