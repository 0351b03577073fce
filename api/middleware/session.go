package middleware

import (
	"net/http"
	"strings"

	"github.com/mercatolabs/storefront-backend/pkg/logger"
)

const sessionIDParam = "sessionId"

// GuestSession lifts the guest session identifier from the query string so
// cart and order handlers can resolve an owner without authentication.
func GuestSession(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := strings.TrimSpace(r.URL.Query().Get(sessionIDParam))
			if sessionID == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := WithSessionID(r.Context(), sessionID)
			if logg != nil {
				ctx = logg.WithSessionID(ctx, sessionID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
