package handlebars

import (
	"reflect"
	"testing"
)

type tagged struct {
	Email string `handlebars:"mail"`
	Inner *tagged
	Items []string
	note  string
}

func (t *tagged) Display() string {
	return t.Email
}

func TestResolves(t *testing.T) {
	model := &tagged{Email: "ada@example.com", Items: []string{"a"}, note: "hidden"}

	cases := []struct {
		parts []string
		want  bool
	}{
		{parts: []string{"Email"}, want: true},
		{parts: []string{"email"}, want: true},
		{parts: []string{"mail"}, want: true},
		{parts: []string{"Display"}, want: true},
		{parts: []string{"Inner"}, want: true},
		{parts: []string{"Inner", "Email"}, want: true},
		{parts: []string{"Items", "0"}, want: true},
		{parts: []string{"Items", "3"}, want: false},
		{parts: []string{"Items", "length"}, want: true},
		{parts: []string{"note"}, want: false},
		{parts: []string{"Missing"}, want: false},
		{parts: []string{"Email", "Domain"}, want: false},
		{parts: []string{"Items", "0", "Name"}, want: false},
	}

	for _, tc := range cases {
		if got := resolves(reflect.ValueOf(model), tc.parts); got != tc.want {
			t.Errorf("resolves(%v) = %v, want %v", tc.parts, got, tc.want)
		}
	}
}

func TestResolves_NilRoot(t *testing.T) {
	if resolves(reflect.ValueOf(nil), []string{"Name"}) {
		t.Fatalf("nil model must not resolve members")
	}
	var typed *tagged
	if resolves(reflect.ValueOf(typed), []string{"Email"}) {
		t.Fatalf("typed nil model must not resolve members")
	}
}

func TestNameVariants(t *testing.T) {
	if got := nameVariants("name"); !reflect.DeepEqual(got, []string{"name", "Name"}) {
		t.Fatalf("nameVariants(name) = %v", got)
	}
	if got := nameVariants("Name"); !reflect.DeepEqual(got, []string{"Name"}) {
		t.Fatalf("nameVariants(Name) = %v", got)
	}
}

func TestTruthy(t *testing.T) {
	cases := []struct {
		value any
		want  bool
	}{
		{value: nil, want: false},
		{value: false, want: false},
		{value: 0, want: false},
		{value: "", want: false},
		{value: []string{}, want: false},
		{value: map[string]any{}, want: false},
		{value: "x", want: true},
		{value: 3, want: true},
		{value: struct{}{}, want: true},
	}
	for _, tc := range cases {
		if got := truthy(reflect.ValueOf(tc.value)); got != tc.want {
			t.Errorf("truthy(%#v) = %v, want %v", tc.value, got, tc.want)
		}
	}
}
