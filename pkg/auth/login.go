package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/platinummonkey/biolink/pkg/observability"
	"github.com/platinummonkey/biolink/pkg/storage"
)

// LoginService turns a verified code into a session token
type LoginService struct {
	otp       *OTPService
	users     storage.UserStore
	merchants storage.MerchantStore
	tokens    *TokenIssuer
	logger    *observability.Logger
}

// NewLoginService creates a new login service
func NewLoginService(otp *OTPService, users storage.UserStore, merchants storage.MerchantStore, tokens *TokenIssuer, logger *observability.Logger) *LoginService {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &LoginService{
		otp:       otp,
		users:     users,
		merchants: merchants,
		tokens:    tokens,
		logger:    logger.WithField("component", "login"),
	}
}

// RequestCode sends a login code to email
func (l *LoginService) RequestCode(ctx context.Context, email string) error {
	return l.otp.Request(ctx, normalizeEmail(email))
}

// VerifyCode consumes the code, creates the account on first login and issues a session.
func (l *LoginService) VerifyCode(ctx context.Context, email, code string) (*Session, error) {
	email = normalizeEmail(email)
	if err := l.otp.Verify(ctx, email, code); err != nil {
		return nil, err
	}

	user, err := l.users.UpsertUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}

	id := Identity{UserID: user.ID, Email: user.Email, Role: Role(user.Role)}
	if !id.Role.Valid() {
		id.Role = RoleUser
	}
	if id.Role == RoleMerchant {
		merchant, err := l.merchants.MerchantByUserID(ctx, user.ID)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			l.logger.WithField("user_id", user.ID).Warn("merchant role without merchant account")
		case err != nil:
			return nil, fmt.Errorf("failed to load merchant: %w", err)
		default:
			id.MerchantID = merchant.ID
		}
	}

	token, expiresAt, err := l.tokens.Issue(id)
	if err != nil {
		return nil, err
	}

	l.logger.WithFields(map[string]interface{}{
		"user_id": user.ID,
		"role":    id.Role,
	}).Info("user logged in")
	return &Session{Token: token, ExpiresAt: expiresAt.Unix(), User: id}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
