// Package pongo adapts pongo2 (Django/Jinja style syntax) to the
// template.Backend contract. Includes resolve against the render's project
// first, then against the optional base directory or fs.FS.
package pongo
