package auth

import (
	"errors"

	"github.com/golang-jwt/jwt/v4"
)

var (
	// ErrInvalidEmail is returned for addresses that cannot receive a code.
	ErrInvalidEmail = errors.New("invalid email address")
	// ErrInvalidOTP is returned when the submitted code does not match.
	ErrInvalidOTP = errors.New("invalid verification code")
	// ErrOTPExpired is returned when no code is pending for the address.
	ErrOTPExpired = errors.New("verification code expired or not requested")
	// ErrTooManyAttempts is returned once a code has been burned by repeated failures.
	ErrTooManyAttempts = errors.New("too many failed attempts")
	// ErrInvalidToken is returned for malformed, forged or unusable session tokens.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired is returned for session tokens past their expiry.
	ErrTokenExpired = errors.New("token expired")
)

// Role represents a user's role
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleMerchant Role = "merchant"
	RoleUser     Role = "user"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleMerchant, RoleUser:
		return true
	}
	return false
}

// Identity is the subject a session token is issued for.
type Identity struct {
	UserID     string `json:"userId"`
	Email      string `json:"email"`
	Role       Role   `json:"role"`
	MerchantID string `json:"merchantId,omitempty"`
}

// Claims are the JWT claims carried by a session token
type Claims struct {
	UserID     string `json:"user_id"`
	Email      string `json:"email,omitempty"`
	Role       Role   `json:"role"`
	MerchantID string `json:"merchant_id,omitempty"`
	jwt.RegisteredClaims
}

// Identity returns the subject encoded in the claims.
func (c *Claims) Identity() Identity {
	return Identity{UserID: c.UserID, Email: c.Email, Role: c.Role, MerchantID: c.MerchantID}
}

// Session is returned after a successful login
type Session struct {
	Token     string   `json:"token"`
	ExpiresAt int64    `json:"expiresAt"`
	User      Identity `json:"user"`
}

// AuthContext contains authentication information for a request
type AuthContext struct {
	Identity Identity
	Claims   *Claims
}

// HasRole checks if the context has a specific role. Admins pass every role check.
func (ac *AuthContext) HasRole(role Role) bool {
	if ac == nil {
		return false
	}
	return ac.Identity.Role == role || ac.Identity.Role == RoleAdmin
}
