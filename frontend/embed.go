package frontend

import (
	"embed"
	"io/fs"
)

//go:embed all:dist
var distDir embed.FS

// DistFS is the embedded dashboard asset filesystem
var DistFS fs.FS

func init() {
	// Strip the "dist" prefix to serve files directly
	DistFS, _ = fs.Sub(distDir, "dist")
}
