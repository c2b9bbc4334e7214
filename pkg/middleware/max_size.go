package middleware

import (
	"net/http"

	apperrors "lanesched/pkg/errors"
)

// MaxRequestSize caps request bodies. Requests that announce a larger body
// are rejected up front; the rest are cut off by http.MaxBytesReader, which
// the JSON decoder reports as *http.MaxBytesError.
func MaxRequestSize(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > limit {
				_ = apperrors.WriteError(w, apperrors.TooLarge(limit))
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}
