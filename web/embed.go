// Package web provides embedded static assets for the browser ROM editor.
package web

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed dist/*
var distFS embed.FS

// DistFS returns a filesystem rooted at the dist/ directory.
// This strips the "dist" prefix so files are served from root.
func DistFS() (fs.FS, error) {
	return fs.Sub(distFS, "dist")
}

// FS returns the dist/ assets as an http.FileSystem.
func FS() http.FileSystem {
	sub, err := DistFS()
	if err != nil {
		// dist is embedded at build time, so Sub cannot fail on it
		panic(err)
	}
	return http.FS(sub)
}
