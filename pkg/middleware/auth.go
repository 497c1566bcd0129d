package middleware

import (
	"context"
	"net/http"
	"strings"

	"smart-parking/internal/data/entity"
	"smart-parking/pkg/utils"

	"go.uber.org/zap"
)

// TokenChecker reports revoked token ids. A nil checker accepts every valid token.
type TokenChecker interface {
	IsDenied(ctx context.Context, tokenID string) (bool, error)
}

// Auth validates the bearer JWT and puts the caller's id and role on the request context.
func Auth(secret string, denied TokenChecker, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				utils.ResponseUnauthorized(w, "Missing authorization token")
				return
			}

			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				utils.ResponseUnauthorized(w, "Invalid token format. Use: Bearer <token>")
				return
			}

			claims, err := utils.ParseToken(secret, strings.TrimSpace(token))
			if err != nil {
				utils.ResponseUnauthorized(w, "Invalid or expired token")
				return
			}

			if denied != nil {
				revoked, err := denied.IsDenied(r.Context(), claims.ID)
				if err != nil {
					logger.Error("Failed to check token deny-list",
						zap.Error(err),
						zap.String("token_id", claims.ID))
					utils.ResponseServiceUnavailable(w, "Authentication temporarily unavailable")
					return
				}
				if revoked {
					utils.ResponseUnauthorized(w, "Token has been revoked")
					return
				}
			}

			userID, _ := claims.UserID()
			ctx := utils.SetUserContext(r.Context(), userID, claims.Role)
			ctx = utils.SetTokenContext(ctx, token, claims)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole lets the request through only for the listed roles. Must run after Auth.
func RequireRole(logger *zap.Logger, roles ...entity.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := utils.GetRoleFromContext(r.Context())
			if !ok {
				utils.ResponseUnauthorized(w, "Authentication required")
				return
			}

			for _, allowed := range roles {
				if entity.UserRole(role) == allowed {
					next.ServeHTTP(w, r)
					return
				}
			}

			userID, _ := utils.GetUserIDFromContext(r.Context())
			logger.Warn("Role check: access denied",
				zap.String("user_id", userID.String()),
				zap.String("role", role),
				zap.String("path", r.URL.Path))
			utils.ResponseForbidden(w, "Insufficient permissions")
		})
	}
}
