// Package template defines the renderer-agnostic contracts of go-mailrender:
// the TemplateRenderer seam callers depend on, and the Backend, Engine and
// Template interfaces a templating engine implements to be plugged in behind
// it. Engine adapters live in subpackages (handlebars, pongo, gotext).
package template
