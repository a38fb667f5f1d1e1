// Package api exposes biolink over HTTP.
//
// Routes live under /api/v1 and are grouped by who may call them:
//
//	POST /auth/otp                    public, rate limited per client IP
//	POST /auth/otp/verify             public
//	GET  /billing/plans               public
//	POST /billing/webhook             Stripe signature
//	GET  /admin/dashboard             admin
//	GET  /admin/graphs/{signups,earnings}?startDate=&endDate=
//	GET  /merchant/dashboard          merchant
//	GET  /merchant/graphs/{signups,earnings}?startDate=&endDate=
//	POST /merchant/subscription       merchant (GET to read, /cancel to cancel)
//	GET  /domains/check?domain=       any signed-in user
//	POST /domains                     merchant
//
// Admins may call merchant routes on behalf of a merchant by passing
// ?merchantId=. Errors use the httputil envelope; domain errors map to
// 400/401/404/409 and anything else becomes a generic 500.
package api
