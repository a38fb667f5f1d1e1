package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/platinummonkey/biolink/pkg/auth"
	"github.com/platinummonkey/biolink/pkg/contextkeys"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func issue(t *testing.T, issuer *auth.TokenIssuer, id auth.Identity) string {
	t.Helper()
	token, _, err := issuer.Issue(id)
	require.NoError(t, err)
	return token
}

func identityEcho(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authCtx := GetAuthContext(r)
		if authCtx == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.Write([]byte(authCtx.Identity.UserID))
	})
}

func TestAuthMiddleware_Handler(t *testing.T) {
	issuer := auth.NewTokenIssuer("s3cret", time.Hour, "biolink")
	other := auth.NewTokenIssuer("different", time.Hour, "biolink")
	valid := issue(t, issuer, auth.Identity{UserID: "u1", Email: "a@b.co", Role: auth.RoleUser})

	tests := []struct {
		name     string
		header   string
		optional bool
		status   int
		body     string
	}{
		{"missing header", "", false, http.StatusUnauthorized, `{"error":"missing authorization header"}`},
		{"missing header optional", "", true, http.StatusNoContent, ""},
		{"wrong scheme", "Basic abc", false, http.StatusUnauthorized, `{"error":"invalid authorization header format"}`},
		{"empty token", "Bearer ", false, http.StatusUnauthorized, `{"error":"invalid authorization header format"}`},
		{"garbage token", "Bearer abc.def.ghi", false, http.StatusUnauthorized, `{"error":"invalid token"}`},
		{"foreign signature", "Bearer " + issue(t, other, auth.Identity{UserID: "u1", Role: auth.RoleUser}), false, http.StatusUnauthorized, `{"error":"invalid token"}`},
		{"valid", "Bearer " + valid, false, http.StatusOK, "u1"},
		{"scheme is case insensitive", "bearer " + valid, false, http.StatusOK, "u1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewAuthMiddleware(issuer, tt.optional).Handler(identityEcho(t))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, tt.body, rec.Body.String())
			} else if tt.body != "" {
				assert.JSONEq(t, tt.body, rec.Body.String())
			}
		})
	}
}

func TestAuthMiddleware_ExpiredToken(t *testing.T) {
	issuer := auth.NewTokenIssuer("s3cret", -time.Minute, "biolink")
	token := issue(t, issuer, auth.Identity{UserID: "u1", Role: auth.RoleUser})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	NewAuthMiddleware(issuer, false).Handler(identityEcho(t)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"token expired"}`, rec.Body.String())
}

func TestRequireRole(t *testing.T) {
	issuer := auth.NewTokenIssuer("s3cret", time.Hour, "biolink")

	tests := []struct {
		name     string
		identity *auth.Identity
		handler  func(http.Handler) http.Handler
		status   int
	}{
		{"anonymous", nil, RequireRole(auth.RoleAdmin), http.StatusUnauthorized},
		{"user on admin route", &auth.Identity{UserID: "u", Role: auth.RoleUser}, RequireRole(auth.RoleAdmin), http.StatusForbidden},
		{"admin on admin route", &auth.Identity{UserID: "a", Role: auth.RoleAdmin}, RequireRole(auth.RoleAdmin), http.StatusOK},
		{"admin on merchant route", &auth.Identity{UserID: "a", Role: auth.RoleAdmin}, RequireRole(auth.RoleMerchant), http.StatusOK},
		{"any of several", &auth.Identity{UserID: "u", Role: auth.RoleUser}, RequireRole(auth.RoleMerchant, auth.RoleUser), http.StatusOK},
		{"merchant with account", &auth.Identity{UserID: "m", Role: auth.RoleMerchant, MerchantID: "m-1"}, RequireMerchant, http.StatusOK},
		{"merchant without account", &auth.Identity{UserID: "m", Role: auth.RoleMerchant}, RequireMerchant, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewAuthMiddleware(issuer, true).Handler(tt.handler(identityEcho(t)))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.identity != nil {
				req.Header.Set("Authorization", "Bearer "+issue(t, issuer, *tt.identity))
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestAuthMiddleware_ScopesContext(t *testing.T) {
	issuer := auth.NewTokenIssuer("s3cret", time.Hour, "biolink")
	token := issue(t, issuer, auth.Identity{UserID: "u7", Role: auth.RoleMerchant, MerchantID: "m-shop"})

	var userID, merchantID string
	handler := NewAuthMiddleware(issuer, false).Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID = contextkeys.UserID(r.Context())
		merchantID = contextkeys.MerchantID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "u7", userID)
	assert.Equal(t, "m-shop", merchantID)
}
