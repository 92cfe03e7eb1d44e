// Package web embeds the fallback front-end assets into the binary.
// Placing the embed here (next to the static/ directory) avoids the
// Go toolchain restriction that //go:embed paths cannot use "..".
package web

import (
	"embed"
	"io/fs"
)

//go:embed static
var embedded embed.FS

// StaticFiles is an fs.FS rooted at web/static/.
var StaticFiles, _ = fs.Sub(embedded, "static")
