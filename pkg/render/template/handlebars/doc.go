// Package handlebars plugs the raymond Handlebars implementation into the
// template.Backend contract. It is the default engine of go-mailrender.
//
// Templates use Handlebars syntax:
//
//	Hello, {{Name}}!
//	{{#if Active}}On{{else}}Off{{/if}}
//
// In strict mode (the default) a path that does not resolve against the model
// fails the render with a template.ExecutionError wrapping
// template.ErrMissingMember instead of rendering an empty string.
package handlebars
