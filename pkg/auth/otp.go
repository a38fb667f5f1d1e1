package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/platinummonkey/biolink/pkg/observability"
	"github.com/platinummonkey/biolink/pkg/storage"
)

// OTPStore keeps hashed login codes with an attempt counter
type OTPStore interface {
	SaveOTP(ctx context.Context, email, hash string, ttl time.Duration) error
	GetOTP(ctx context.Context, email string) (hash string, attempts int, err error)
	IncrOTPAttempts(ctx context.Context, email string) (int, error)
	DeleteOTP(ctx context.Context, email string) error
}

// CodeSender delivers a login code to the user
type CodeSender interface {
	SendOTP(ctx context.Context, to, code string, ttl time.Duration) error
}

// OTPConfig controls code issuance
type OTPConfig struct {
	TTL         time.Duration
	Length      int
	MaxAttempts int
}

// DefaultOTPConfig returns the default code settings
func DefaultOTPConfig() OTPConfig {
	return OTPConfig{TTL: 10 * time.Minute, Length: DefaultCodeLength, MaxAttempts: 5}
}

var validate = validator.New()

// OTPService issues and verifies one-time login codes
type OTPService struct {
	store     OTPStore
	sender    CodeSender
	generator *CodeGenerator
	config    OTPConfig
	logger    *observability.Logger
}

// NewOTPService creates a new OTP service
func NewOTPService(store OTPStore, sender CodeSender, config OTPConfig, logger *observability.Logger) *OTPService {
	defaults := DefaultOTPConfig()
	if config.TTL <= 0 {
		config.TTL = defaults.TTL
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = defaults.MaxAttempts
	}
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &OTPService{
		store:     store,
		sender:    sender,
		generator: NewCodeGenerator(config.Length),
		config:    config,
		logger:    logger.WithField("component", "otp"),
	}
}

// Request issues a new code for email, replacing any pending one, and sends it.
func (s *OTPService) Request(ctx context.Context, email string) error {
	if err := validate.Var(email, "required,email"); err != nil {
		return ErrInvalidEmail
	}

	code, err := s.generator.Generate()
	if err != nil {
		return err
	}
	if err := s.store.SaveOTP(ctx, email, s.generator.Hash(email, code), s.config.TTL); err != nil {
		return err
	}
	if err := s.sender.SendOTP(ctx, email, code, s.config.TTL); err != nil {
		// a code nobody received must not stay valid
		if delErr := s.store.DeleteOTP(ctx, email); delErr != nil {
			s.logger.WithError(delErr).Warn("failed to discard undelivered code")
		}
		return fmt.Errorf("failed to send code: %w", err)
	}

	s.logger.WithField("email", email).Info("login code issued")
	return nil
}

// Verify checks code against the pending code for email. A matching code is
// consumed; MaxAttempts failures burn the code.
func (s *OTPService) Verify(ctx context.Context, email, code string) error {
	if err := s.generator.ValidateFormat(code); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOTP, err)
	}

	hash, attempts, err := s.store.GetOTP(ctx, email)
	if errors.Is(err, storage.ErrNotFound) {
		return ErrOTPExpired
	}
	if err != nil {
		return err
	}
	if attempts >= s.config.MaxAttempts {
		return s.burn(ctx, email)
	}

	if !s.generator.Matches(email, code, hash) {
		n, err := s.store.IncrOTPAttempts(ctx, email)
		if err != nil {
			return err
		}
		if n >= s.config.MaxAttempts {
			return s.burn(ctx, email)
		}
		return ErrInvalidOTP
	}

	if err := s.store.DeleteOTP(ctx, email); err != nil {
		return fmt.Errorf("failed to consume code: %w", err)
	}
	return nil
}

func (s *OTPService) burn(ctx context.Context, email string) error {
	if err := s.store.DeleteOTP(ctx, email); err != nil {
		return fmt.Errorf("failed to burn code: %w", err)
	}
	s.logger.WithField("email", email).Warn("login code burned after repeated failures")
	return ErrTooManyAttempts
}
