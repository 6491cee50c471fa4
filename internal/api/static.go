package api

import (
	"os"
	"path"
	"path/filepath"
)

// staticFile maps a URL path into dir, falling back to index.html.
func staticFile(dir, urlPath string) string {
	name := filepath.Join(dir, filepath.FromSlash(path.Clean("/"+urlPath)))
	if info, err := os.Stat(name); err == nil && !info.IsDir() {
		return name
	}
	return filepath.Join(dir, "index.html")
}
