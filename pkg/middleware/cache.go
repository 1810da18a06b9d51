package middleware

import (
	"net/http"
	"strconv"
)

// CacheControl marks anonymous GET responses as publicly cacheable for
// maxAge seconds. Authenticated responses are marked private.
func CacheControl(maxAge int) func(http.Handler) http.Handler {
	public := "public, max-age=" + strconv.Itoa(maxAge)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet {
				if r.Header.Get("Authorization") != "" {
					w.Header().Set("Cache-Control", "private, no-store")
				} else {
					w.Header().Set("Cache-Control", public)
				}
				w.Header().Add("Vary", "Authorization")
			}
			next.ServeHTTP(w, r)
		})
	}
}
