package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-mailrender"
	"github.com/goliatone/go-mailrender/pkg/config"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{config.EnvBackend, config.EnvAddr, config.EnvLogLevel, config.EnvCacheSize} {
		t.Setenv(key, "")
	}
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	clearEnv(t)

	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func TestRender_FromFiles(t *testing.T) {
	cases := map[string]string{
		"yaml model": "testdata/welcome.yaml",
		"json model": "testdata/welcome.json",
	}
	want := map[string]string{
		"yaml model": "Hello Ada, you have 3 messages.",
		"json model": "Hello Grace, you have 1 messages.",
	}

	for name, model := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := execute(t, "", "render", "--template", "testdata/welcome.hbs", "--model", model)
			if err != nil {
				t.Fatalf("render: %v", err)
			}
			if got != want[name] {
				t.Fatalf("unexpected output %q", got)
			}
		})
	}
}

func TestRender_Stdin(t *testing.T) {
	got, err := execute(t, "Plain {{Name}}", "render", "--template", "-", "--model", "testdata/welcome.yaml", "--text")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got != "Plain Ada" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestRender_BackendFromConfig(t *testing.T) {
	got, err := execute(t, "Hi {{.Name}}", "--config", "testdata/gotemplate.yaml", "render", "-t", "-", "-m", "testdata/welcome.yaml")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got != "Hi Ada" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestRender_OutputFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.html")

	stdout, err := execute(t, "", "render", "-t", "testdata/welcome.hbs", "-m", "testdata/welcome.yaml", "-o", path)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if stdout != "" {
		t.Fatalf("expected nothing on stdout, got %q", stdout)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(data) != "Hello Ada, you have 3 messages." {
		t.Fatalf("unexpected file contents %q", data)
	}
}

func TestRender_Errors(t *testing.T) {
	cases := map[string][]string{
		"missing template flag": {"render"},
		"unknown backend":       {"render", "-t", "testdata/welcome.hbs", "--backend", "razor"},
		"missing model member":  {"render", "-t", "testdata/welcome.hbs"},
		"missing template file": {"render", "-t", "testdata/nope.hbs"},
	}

	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := execute(t, "", args...); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestBackends(t *testing.T) {
	got, err := execute(t, "", "backends")
	if err != nil {
		t.Fatalf("backends: %v", err)
	}
	want := "  gotemplate\n* handlebars\n  pongo2\n"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("backends mismatch (-want +got):\n%s", diff)
	}
}

func TestVersion(t *testing.T) {
	got, err := execute(t, "", "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(got, "mailrender version dev\n") {
		t.Fatalf("unexpected version output %q", got)
	}
}

func TestNewRouter_ServesRender(t *testing.T) {
	cfg := config.Default()
	renderer, err := mailrender.NewFromConfig(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("renderer: %v", err)
	}

	srv := httptest.NewServer(newRouter(renderer, cfg, zerolog.Nop()))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/render", "application/json", strings.NewReader(`{"template":"Hi {{Name}}","model":{"Name":"Ada"}}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.StatusCode != http.StatusOK || body["output"] != "Hi Ada" {
		t.Fatalf("unexpected response %d %v", resp.StatusCode, body)
	}
}
