package middleware

import (
	"net/http"
	"time"

	"transferdesk/pkg/requestcontext"
)

// RequestTime pins one instant per request so every timestamp written while
// handling it agrees.
func RequestTime(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now().UTC())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
