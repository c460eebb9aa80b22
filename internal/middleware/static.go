package middleware

import (
	"net/http"
	"path"
	"strings"

	"github.com/spf13/afero"
)

const placeholderSVG = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 300 200"><rect width="300" height="200" fill="#f0f0f0"/><circle cx="150" cy="85" r="35" fill="#ffc107"/><text x="150" y="95" text-anchor="middle" font-family="Arial" font-size="28" font-weight="bold" fill="#ffffff">T</text><text x="150" y="165" text-anchor="middle" font-family="Arial" font-size="16" fill="#666">TipTop</text></svg>`

// StaticFileServer serves ad images from dir on fs. Unknown files get a
// placeholder image rather than a 404 so broken ads still render.
func StaticFileServer(fs afero.Fs, dir string) http.Handler {
	images := afero.NewBasePathFs(fs, dir)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := path.Clean("/" + strings.TrimPrefix(r.URL.Path, "/"))

		if info, err := images.Stat(name); err == nil && !info.IsDir() {
			f, err := images.Open(name)
			if err == nil {
				defer f.Close()
				w.Header().Set("Cache-Control", "public, max-age=2592000")
				http.ServeContent(w, r, info.Name(), info.ModTime(), f)
				return
			}
		}

		w.Header().Set("Content-Type", "image/svg+xml")
		w.Header().Set("Cache-Control", "public, max-age=86400")
		w.Write([]byte(placeholderSVG))
	})
}
