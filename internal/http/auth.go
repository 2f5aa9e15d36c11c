package http

import (
	"log/slog"
	"net/http"
)

// TokenParser validates a session token and returns its user id.
type TokenParser interface {
	Parse(token string) (string, error)
}

// requireAuth rejects requests without a valid bearer token and stores the
// caller's user id in the request context.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			UnauthorizedError("No token provided").Write(w)
			return
		}
		token, ok := bearerToken(header)
		if !ok {
			UnauthorizedError("Invalid Authorization header format").Write(w)
			return
		}

		userID, err := s.tokens.Parse(token)
		if err != nil {
			slog.DebugContext(r.Context(), "Rejected bearer token", "error", err, "path", r.URL.Path)
			UnauthorizedError("Invalid or expired token").Write(w)
			return
		}

		next(w, r.WithContext(withUserID(r.Context(), userID)))
	}
}

// callerID is only valid behind requireAuth.
func callerID(r *http.Request) string {
	id, _ := UserIDFromContext(r.Context())
	return id
}
