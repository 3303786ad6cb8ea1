package middleware

import (
	"net/http"
	"strconv"
)

// CacheControl marks successful GET and HEAD responses as privately
// cacheable for maxAge seconds. The catalog sits behind auth, so shared
// caches must not store it. Error responses get no-store so a transient
// failure is not replayed from the browser cache.
func CacheControl(maxAge int) func(http.Handler) http.Handler {
	cacheable := "private, max-age=" + strconv.Itoa(maxAge)
	if maxAge <= 0 {
		cacheable = "no-cache"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet && r.Method != http.MethodHead {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(&cacheHeaderWriter{ResponseWriter: w, cacheable: cacheable}, r)
		})
	}
}

// cacheHeaderWriter picks the Cache-Control value once the status is known.
type cacheHeaderWriter struct {
	http.ResponseWriter
	cacheable string
	decided   bool
}

func (cw *cacheHeaderWriter) WriteHeader(code int) {
	if !cw.decided {
		cw.decided = true
		if code >= 200 && code < 300 {
			cw.Header().Set("Cache-Control", cw.cacheable)
		} else {
			cw.Header().Set("Cache-Control", "no-store")
		}
	}
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *cacheHeaderWriter) Write(b []byte) (int, error) {
	if !cw.decided {
		cw.WriteHeader(http.StatusOK)
	}
	return cw.ResponseWriter.Write(b)
}

func (cw *cacheHeaderWriter) Unwrap() http.ResponseWriter {
	return cw.ResponseWriter
}
