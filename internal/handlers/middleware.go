package handlers

import (
	"net/http"
	"strings"

	"github.com/herzod/shelfview-cinema/internal/session"
)

// Authenticate resolves a bearer token into a session on the request context.
// Requests without a token pass through unauthenticated; RequireAuth decides
// whether that is acceptable for a route.
func (h *Handler) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}

		token := strings.TrimPrefix(header, "Bearer ")
		sess, err := h.auth.ParseToken(token)
		if err != nil {
			h.writeError(w, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(session.WithSession(r.Context(), sess)))
	})
}

// RequireAuth rejects requests that did not authenticate.
func (h *Handler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := session.FromContext(r.Context()); !ok {
			h.writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "authentication required"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
