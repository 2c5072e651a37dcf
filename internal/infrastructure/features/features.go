// Package features embeds the bundled Gherkin scenarios so the runner works
// without a checkout of the feature files.
package features

import (
	"embed"
	"io/fs"
)

const (
	TagUI  = "@ui"
	TagAPI = "@api"
)

//go:embed *.feature
var files embed.FS

// FS is the embedded feature tree.
func FS() fs.FS {
	return files
}

// Paths lists the embedded feature files in lexical order.
func Paths() []string {
	paths, err := fs.Glob(files, "*.feature")
	if err != nil {
		// only ErrBadPattern, which a constant pattern cannot produce
		panic(err)
	}
	return paths
}
