// Package auth implements passwordless login for biolink.
//
// # Overview
//
// Users sign in with a numeric one-time code sent to their email address.
// Codes are stored only as SHA-256 hashes in Redis under otp:{email} with a
// TTL and an attempt counter; five failed attempts burn the code. A verified
// code creates the account on first login and yields an HS256 session JWT.
//
// # Usage Example
//
//	otp := auth.NewOTPService(redisClient, mailer, auth.DefaultOTPConfig(), logger)
//	tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, "biolink")
//	login := auth.NewLoginService(otp, store, store, tokens, logger)
//
//	if err := login.RequestCode(ctx, "ada@example.com"); err != nil {
//		return err
//	}
//	session, err := login.VerifyCode(ctx, "ada@example.com", "042917")
//
// # Roles
//
//   - user: affiliates and visitors
//   - merchant: business accounts; tokens also carry merchant_id
//   - admin: platform operators, pass every role check
package auth
