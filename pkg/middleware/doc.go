// Package middleware provides authentication, role gating and rate limiting
// for the biolink HTTP API.
//
//	authn := middleware.NewAuthMiddleware(tokenIssuer, false)
//	admin := router.PathPrefix("/api/v1/admin").Subrouter()
//	admin.Use(authn.Handler, middleware.RequireRole(auth.RoleAdmin))
//
// Login code requests are limited per client IP through a Redis-backed
// Limiter:
//
//	otp.Use(middleware.RateLimit(redisClient, middleware.OTPRateLimitConfig(), logger))
package middleware
