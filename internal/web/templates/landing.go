// Package templates renders the HTML pages served by the web package.
//
// Components are written in .templ files; run `templ generate` after
// editing them.
package templates

//go:generate templ generate

// LandingParams holds the data shown on the landing page.
type LandingParams struct {
	Title   string
	Message string
	Routes  []string
}
