// Package web embeds the budget and task board templates and their static
// assets into the binary.
package web

import "embed"

// TemplatesFS holds layout.html, budget.html and todo.html.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS holds the stylesheet and the small htmx helper script.
//
//go:embed static/*
var StaticFS embed.FS
