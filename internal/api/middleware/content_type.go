package middleware

import "net/http"

// ContentType sets a JSON Content-Type on every response. Handlers that
// write another format override it before writing the header.
func ContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}
