package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/platinummonkey/biolink/pkg/auth"
	"github.com/platinummonkey/biolink/pkg/httputil"
	"github.com/platinummonkey/biolink/pkg/observability"
)

// LoginFlow is the OTP login exchange
type LoginFlow interface {
	RequestCode(ctx context.Context, email string) error
	VerifyCode(ctx context.Context, email, code string) (*auth.Session, error)
}

// AuthHandlers handles the OTP login endpoints
type AuthHandlers struct {
	login    LoginFlow
	recorder observability.Recorder
	// wraps the code request route, normally a rate limiter
	requestGuard func(http.Handler) http.Handler
}

// NewAuthHandlers creates a new auth handlers instance
func NewAuthHandlers(login LoginFlow, recorder observability.Recorder, requestGuard func(http.Handler) http.Handler) *AuthHandlers {
	if recorder == nil {
		recorder = observability.Recorders{}
	}
	if requestGuard == nil {
		requestGuard = func(next http.Handler) http.Handler { return next }
	}
	return &AuthHandlers{login: login, recorder: recorder, requestGuard: requestGuard}
}

// RegisterRoutes registers authentication routes
func (h *AuthHandlers) RegisterRoutes(router Routes) {
	router.Handle("/auth/otp", h.requestGuard(http.HandlerFunc(h.requestCode))).Methods("POST")
	router.HandleFunc("/auth/otp/verify", h.verifyCode).Methods("POST")
}

type otpRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type otpVerifyRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,numeric"`
}

// requestCode handles POST /auth/otp
func (h *AuthHandlers) requestCode(w http.ResponseWriter, r *http.Request) {
	var req otpRequest
	if !httputil.DecodeAndValidate(w, r, &req) {
		h.recorder.RecordOTP(r.Context(), "request", "invalid")
		return
	}

	if err := h.login.RequestCode(r.Context(), req.Email); err != nil {
		h.recorder.RecordOTP(r.Context(), "request", otpResult(err))
		writeServiceError(w, r, err)
		return
	}

	h.recorder.RecordOTP(r.Context(), "request", "sent")
	_ = httputil.WriteJSON(w, http.StatusAccepted, map[string]string{
		"message": "verification code sent",
	})
}

// verifyCode handles POST /auth/otp/verify
func (h *AuthHandlers) verifyCode(w http.ResponseWriter, r *http.Request) {
	var req otpVerifyRequest
	if !httputil.DecodeAndValidate(w, r, &req) {
		h.recorder.RecordOTP(r.Context(), "verify", "invalid")
		return
	}

	session, err := h.login.VerifyCode(r.Context(), req.Email, req.Code)
	if err != nil {
		h.recorder.RecordOTP(r.Context(), "verify", otpResult(err))
		writeServiceError(w, r, err)
		return
	}

	h.recorder.RecordOTP(r.Context(), "verify", "verified")
	_ = httputil.WriteSuccess(w, session)
}

func otpResult(err error) string {
	switch {
	case errors.Is(err, auth.ErrInvalidEmail):
		return "invalid"
	case errors.Is(err, auth.ErrInvalidOTP):
		return "rejected"
	case errors.Is(err, auth.ErrOTPExpired):
		return "expired"
	case errors.Is(err, auth.ErrTooManyAttempts):
		return "locked"
	default:
		return "error"
	}
}
