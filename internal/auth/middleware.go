package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/reimagine-business/donna/internal"
	"github.com/reimagine-business/donna/internal/transport"
	"github.com/reimagine-business/donna/pkg/logger"
)

type Middleware struct {
	*transport.BaseHandler
	verifier *TokenVerifier
}

func NewMiddleware(verifier *TokenVerifier) *Middleware {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Middleware{
		BaseHandler: transport.NewBaseHandler(lg),
		verifier:    verifier,
	}
}

// RequireUser rejects requests without a valid bearer token and injects
// the resolved user id into the request context.
func (m *Middleware) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractBearer(r)
		if token == "" {
			m.WriteError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		claims, err := m.verifier.Verify(token)
		if err != nil {
			m.Logger.Warn("token verification failed", "error", err, "path", r.URL.Path)
			m.HandleServiceError(w, err)
			return
		}

		ctx := internal.ContextWithUserID(r.Context(), claims.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func extractBearer(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(authHeader, "Bearer ")
}
