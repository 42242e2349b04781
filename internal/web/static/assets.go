// Package static provides the embedded browser client.
package static

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed index.html app.js
var assetsFS embed.FS

// Handler serves the embedded client assets.
func Handler() http.Handler {
	sub, err := fs.Sub(assetsFS, ".")
	if err != nil {
		panic("static: corrupted embedded filesystem: " + err.Error())
	}
	return http.FileServer(http.FS(sub))
}
