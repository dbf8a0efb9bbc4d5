package security

import (
	"net/http"
)

// BodyLimit caps request payload size. Carts are small; anything above the
// limit is either a bug or abuse.
type BodyLimit struct {
	Max int64
}

// Middleware rejects oversized requests with 413. Bodies within the limit
// are passed through wrapped in http.MaxBytesReader so a lying
// Content-Length still cannot stream more than Max bytes to a handler.
func (b BodyLimit) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if b.Max <= 0 || r.Body == nil {
			next.ServeHTTP(w, r)
			return
		}
		if r.ContentLength > b.Max {
			http.Error(w, "request entity too large", http.StatusRequestEntityTooLarge)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, b.Max)
		next.ServeHTTP(w, r)
	})
}
