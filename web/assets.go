// ABOUTME: Embedded assets for the web surface: page templates, the about panel, and the browser client.
// ABOUTME: Static files use explicit subdirectory globs because //go:embed static/* does not recurse.
package web

import (
	"embed"
	"io/fs"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed about.md
var aboutMarkdown []byte

//go:embed static/css/*.css static/js/*.js
var staticFS embed.FS

// StaticFiles returns the browser client rooted at its css/ and js/ directories.
func StaticFiles() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}
