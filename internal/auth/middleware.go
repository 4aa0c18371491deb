package auth

import (
	"context"
	"log/slog"
	"net/http"

	"school-service/internal/authz"
	"school-service/internal/httputil"
	"school-service/internal/model"
)

type contextKey string

const claimsKey contextKey = "auth_claims"

// Authenticate validates the access credential from the accessToken
// cookie and adds its claims to the request context.
func Authenticate(tokens *Tokens, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(AccessCookieName)
			if err != nil {
				logger.Warn("no access token cookie", "path", r.URL.Path)
				httputil.RespondWithMessage(w, http.StatusUnauthorized, "Access Denied. Token is missing.")
				return
			}

			claims, err := tokens.ParseAccessToken(cookie.Value)
			if err != nil {
				logger.Warn("invalid access token", "error", err)
				httputil.RespondWithMessage(w, http.StatusForbidden, "Invalid or Expired Token.")
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext extracts the verified claims set by Authenticate.
func ClaimsFromContext(ctx context.Context) (*AccessClaims, bool) {
	claims, ok := ctx.Value(claimsKey).(*AccessClaims)
	return claims, ok
}

// Authorize gates a route through the policy table. The requested tenant
// is the schoolId query parameter; routes whose tenant is derived from
// the body or from the caller's own claim run the decision inside their
// handler instead.
func Authorize(policy *authz.Policy, resource authz.Resource, action authz.Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				httputil.RespondWithMessage(w, http.StatusUnauthorized, "Access Denied. Token is missing.")
				return
			}

			requested := r.URL.Query().Get("schoolId")
			if err := policy.Decide(claims.Role, claims.SchoolID, resource, action, requested); err != nil {
				httputil.RespondWithError(w, err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireSuperAdmin restricts a route to SuperAdmins regardless of the
// permission table.
func RequireSuperAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			httputil.RespondWithMessage(w, http.StatusUnauthorized, "Access Denied. Token is missing.")
			return
		}
		if claims.Role != model.RoleSuperAdmin {
			httputil.RespondWithMessage(w, http.StatusForbidden, "Forbidden: Only a SuperAdmin can perform this action.")
			return
		}
		next.ServeHTTP(w, r)
	})
}
