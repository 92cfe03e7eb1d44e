package api

import (
	"io/fs"
	"log/slog"
	"net/http"
	"os"

	webpkg "github.com/hartyporpoise/ollamagate/web"
)

// embeddedFiles is the front end compiled into the binary. It is served
// only when the configured static directory is missing.
var embeddedFiles fs.FS = webpkg.StaticFiles

// staticHandler serves dir from disk, or the embedded assets when dir is
// empty or not a directory.
func staticHandler(dir string, log *slog.Logger) http.Handler {
	if dir != "" {
		if fi, err := os.Stat(dir); err == nil && fi.IsDir() {
			log.Info("serving static files", "dir", dir)
			return http.FileServer(http.Dir(dir))
		}
	}
	log.Info("static directory not found, serving embedded assets", "dir", dir)
	return http.FileServer(http.FS(embeddedFiles))
}
