// Package render implements the template.TemplateRenderer adapter: it turns
// template source plus a model into a string by delegating to a pluggable
// template.Backend, and exposes the same operation synchronously and
// asynchronously.
//
// By default every call builds a fresh project and engine and compiles the
// source under a new uuid; nothing is shared between calls. WithCache opts
// into reusing compiled templates keyed by a hash of the source, and
// WithHTMLPolicy gives the isHTML hint an effect.
package render
