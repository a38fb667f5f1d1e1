package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/platinummonkey/biolink/pkg/auth"
	"github.com/platinummonkey/biolink/pkg/contextkeys"
	"github.com/platinummonkey/biolink/pkg/httputil"
)

// TokenParser validates a session token
type TokenParser interface {
	Parse(token string) (*auth.Claims, error)
}

// AuthMiddleware provides authentication middleware
type AuthMiddleware struct {
	tokens   TokenParser
	optional bool // If true, allow requests without auth
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(tokens TokenParser, optional bool) *AuthMiddleware {
	return &AuthMiddleware{
		tokens:   tokens,
		optional: optional,
	}
}

// Handler wraps an HTTP handler with authentication
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			if m.optional {
				next.ServeHTTP(w, r)
				return
			}
			httputil.WriteUnauthorized(w, "missing authorization header")
			return
		}

		scheme, token, ok := strings.Cut(authHeader, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			httputil.WriteUnauthorized(w, "invalid authorization header format")
			return
		}

		claims, err := m.tokens.Parse(strings.TrimSpace(token))
		if err != nil {
			msg := "invalid token"
			if errors.Is(err, auth.ErrTokenExpired) {
				msg = "token expired"
			}
			httputil.WriteUnauthorized(w, msg)
			return
		}

		authCtx := &auth.AuthContext{Identity: claims.Identity(), Claims: claims}
		ctx := contextkeys.WithAuth(r.Context(), authCtx)
		ctx = contextkeys.WithUserID(ctx, claims.UserID)
		if authCtx.Identity.MerchantID != "" {
			ctx = contextkeys.WithMerchantID(ctx, authCtx.Identity.MerchantID)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetAuthContext extracts auth context from request
func GetAuthContext(r *http.Request) *auth.AuthContext {
	authCtx, _ := contextkeys.Auth(r.Context()).(*auth.AuthContext)
	return authCtx
}

// RequireRole creates middleware that admits only the given roles (admins always pass)
func RequireRole(roles ...auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authCtx := GetAuthContext(r)
			if authCtx == nil {
				httputil.WriteUnauthorized(w, "authentication required")
				return
			}

			for _, role := range roles {
				if authCtx.HasRole(role) {
					next.ServeHTTP(w, r)
					return
				}
			}
			httputil.WriteForbidden(w, "insufficient role permissions")
		})
	}
}

// RequireMerchant admits merchants whose token carries a merchant account
func RequireMerchant(next http.Handler) http.Handler {
	return RequireRole(auth.RoleMerchant)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authCtx := GetAuthContext(r)
		if authCtx.Identity.Role == auth.RoleMerchant && authCtx.Identity.MerchantID == "" {
			httputil.WriteForbidden(w, "no merchant account")
			return
		}
		next.ServeHTTP(w, r)
	}))
}
