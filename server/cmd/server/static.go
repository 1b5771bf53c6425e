package main

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
)

// spaHandler serves files from dir and falls back to dir/index.html for any
// path that does not name an existing file, so client-side routes resolve.
func spaHandler(dir string) http.Handler {
	files := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := filepath.Join(dir, filepath.FromSlash(filepath.Clean("/"+r.URL.Path)))
		if info, err := os.Stat(path); err != nil || info.IsDir() && r.URL.Path != "/" {
			http.ServeFile(w, r, filepath.Join(dir, "index.html"))
			return
		}
		files.ServeHTTP(w, r)
	})
}

// rootHandler serves the front end from dir, or a JSON 404 explaining how to
// configure one when dir is empty.
func rootHandler(dir string) http.Handler {
	if dir != "" {
		return spaHandler(dir)
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{ //nolint:errcheck
			"error": "no front end configured: set server.static_dir or -ui-dir",
		})
	})
}
