package server

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/codenameh8m/plasticboy-sub000/internal/plasticboy"
)

// handleSPA serves the player and admin client from dir. Unknown paths get
// index.html so client routes like /collect/{id} resolve; unknown /api paths
// get a JSON 404 instead.
func handleSPA(dir string) http.HandlerFunc {
	fileServer := http.FileServer(http.Dir(dir))
	index := filepath.Join(dir, "index.html")

	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api" || strings.HasPrefix(r.URL.Path, "/api/") {
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "no such endpoint", Kind: string(plasticboy.KindNotFound)})
			return
		}

		path := filepath.Join(dir, filepath.Clean("/"+r.URL.Path))
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			// Bundled assets carry a content hash in their name.
			if strings.HasPrefix(r.URL.Path, "/assets/") {
				w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
			}
			fileServer.ServeHTTP(w, r)
			return
		}

		w.Header().Set("Cache-Control", "no-cache")
		http.ServeFile(w, r, index)
	}
}
