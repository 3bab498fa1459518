// Package auth authenticates admin API requests from a bearer token.
package auth

import (
	"log/slog"
	"net/http"
	"strings"

	id "sessionsale/pkg/domain"
	dErrors "sessionsale/pkg/domain-errors"
	"sessionsale/pkg/platform/httputil"
	"sessionsale/pkg/requestcontext"
)

// RoleAdmin is the role claim required by RequireAdmin.
const RoleAdmin = "admin"

// TokenValidator validates a raw bearer token.
type TokenValidator interface {
	ValidateToken(tokenString string) (*Claims, error)
}

// Claims are the token fields the middleware acts on.
type Claims struct {
	Subject string
	Role    string
	JTI     string
}

// RequireAdmin rejects requests without a valid admin token and stores the
// admin's id as the request actor.
func RequireAdmin(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing or invalid Authorization header"))
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token"))
				return
			}
			if claims.Role != RoleAdmin {
				logger.WarnContext(ctx, "forbidden - token lacks admin role",
					"subject", claims.Subject,
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "admin role required"))
				return
			}

			adminID, err := id.ParseActorID(claims.Subject)
			if err != nil {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid token subject"))
				return
			}
			next.ServeHTTP(w, r.WithContext(requestcontext.WithActorID(ctx, adminID)))
		})
	}
}
