// Package web embeds the dashboard page served by the API server.
//
// Usage in the API server:
//
//	fs := web.DistFS() // io/fs.FS rooted at static/
package web

import (
	"embed"
	"io/fs"
)

//go:embed static
var dist embed.FS

// DistFS returns a filesystem rooted at the embedded static/ directory.
// This is ready to use with http.FileServerFS or http.FS.
func DistFS() fs.FS {
	sub, err := fs.Sub(dist, "static")
	if err != nil {
		// static/ is embedded at compile time; Sub only fails on a bad path.
		panic("web.DistFS: " + err.Error())
	}
	return sub
}
