package middleware

import (
	"net/http"
	"strings"
)

// MaxBodyMiddleware caps request body sizes. The JSON API never needs more
// than MAX_BODY_BYTES (default 1 MiB); deliverable uploads are multipart and
// get the larger MAX_UPLOAD_BYTES cap (default 33 MiB, the multipart parse
// limit plus headroom).
func MaxBodyMiddleware(next http.Handler) http.Handler {
	apiMax := int64(getEnvInt("MAX_BODY_BYTES", 1<<20))
	uploadMax := int64(getEnvInt("MAX_UPLOAD_BYTES", 33<<20))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		max := apiMax
		if strings.HasSuffix(r.URL.Path, "/deliverable") {
			max = uploadMax
		}
		r.Body = http.MaxBytesReader(w, r.Body, max)
		next.ServeHTTP(w, r)
	})
}
