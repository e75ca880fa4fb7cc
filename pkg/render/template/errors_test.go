package template_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/goliatone/go-mailrender/pkg/render/template"
)

func TestCompilationError_Error(t *testing.T) {
	cases := []struct {
		err  *template.CompilationError
		want string
	}{
		{
			err:  &template.CompilationError{Engine: "handlebars", Name: "abc", Line: 2, Column: 5, Message: "unexpected EOF"},
			want: `template: compile [handlebars] "abc" at line 2, column 5: unexpected EOF`,
		},
		{
			err:  &template.CompilationError{Line: 4, Err: errors.New("bad token")},
			want: "template: compile at line 4: bad token",
		},
		{
			err:  &template.CompilationError{},
			want: "template: compile: invalid template",
		},
	}
	for _, tc := range cases {
		if got := tc.err.Error(); got != tc.want {
			t.Errorf("Error() = %q, want %q", got, tc.want)
		}
	}
}

func TestExecutionError_Error(t *testing.T) {
	err := &template.ExecutionError{Engine: "gotemplate", Name: "t", Err: template.ErrMissingMember}
	if got, want := err.Error(), `template: execute [gotemplate] "t": template: missing model member`; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, template.ErrMissingMember) {
		t.Fatalf("expected Unwrap to expose ErrMissingMember")
	}
}

func TestErrorPredicates(t *testing.T) {
	compErr := fmt.Errorf("outer: %w", &template.CompilationError{Message: "x"})
	execErr := fmt.Errorf("outer: %w", &template.ExecutionError{Message: "x"})

	if !template.IsCompilationError(compErr) || template.IsCompilationError(execErr) {
		t.Fatalf("IsCompilationError misclassified")
	}
	if !template.IsExecutionError(execErr) || template.IsExecutionError(compErr) {
		t.Fatalf("IsExecutionError misclassified")
	}
	if template.IsCompilationError(nil) || template.IsExecutionError(errors.New("plain")) {
		t.Fatalf("predicates matched unrelated errors")
	}
}
