package api

import (
	"errors"
	"net/http"

	"github.com/platinummonkey/biolink/pkg/analytics"
	"github.com/platinummonkey/biolink/pkg/auth"
	"github.com/platinummonkey/biolink/pkg/billing"
	"github.com/platinummonkey/biolink/pkg/domains"
	"github.com/platinummonkey/biolink/pkg/httputil"
	"github.com/platinummonkey/biolink/pkg/observability"
	"github.com/platinummonkey/biolink/pkg/storage"
)

// writeServiceError maps domain errors onto HTTP statuses. Anything
// unrecognised is logged and answered with the generic internal error.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, analytics.ErrInvalidFilter),
		errors.Is(err, auth.ErrInvalidEmail),
		errors.Is(err, billing.ErrUnknownPlan),
		errors.Is(err, billing.ErrInvalidSignature),
		errors.Is(err, domains.ErrInvalidDomain):
		httputil.WriteBadRequest(w, err.Error())
	case errors.Is(err, auth.ErrInvalidOTP),
		errors.Is(err, auth.ErrOTPExpired),
		errors.Is(err, auth.ErrTooManyAttempts):
		httputil.WriteUnauthorized(w, err.Error())
	case errors.Is(err, storage.ErrNotFound),
		errors.Is(err, billing.ErrSubscriptionNotFound):
		httputil.WriteNotFound(w, err.Error())
	case errors.Is(err, billing.ErrAlreadySubscribed),
		errors.Is(err, domains.ErrDomainUnavailable):
		httputil.WriteConflict(w, err.Error())
	case errors.Is(err, domains.ErrReseller):
		observability.FromContext(r.Context()).WithError(err).Error("domain reseller request failed")
		httputil.WriteErrorMessage(w, http.StatusBadGateway, "domain reseller unavailable")
	default:
		observability.FromContext(r.Context()).WithError(err).Error("request failed")
		httputil.WriteInternalError(w)
	}
}
