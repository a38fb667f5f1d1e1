// Package billing manages merchant subscription plans backed by Stripe.
//
// # Overview
//
// Merchants pick one of three plans. The free plan is recorded locally and
// never touches Stripe; paid plans create a Stripe customer on first use and
// a Stripe subscription for the plan's price. Subscription state is mirrored
// into the subscriptions collection and kept current from Stripe webhooks.
//
// # Plans
//
// Free ($0/month):
//   - 5 offers
//
// Pro ($9.99/month):
//   - 50 offers, custom domain
//
// Business ($49/month):
//   - unlimited offers, custom domain
//
// # Usage Example
//
//	gateway := billing.NewStripeGateway(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret, nil)
//	svc := billing.NewSubscriptionService(store, store, gateway, billing.DefaultPlans(priceIDs), logger)
//
//	sub, err := svc.CreateSubscription(ctx, merchantID, &billing.CreateSubscriptionRequest{
//		Plan:            billing.PlanPro,
//		PaymentMethodID: "pm_card_visa",
//	})
//
// # Webhooks
//
// HandleWebhook verifies the Stripe-Signature header and applies:
//   - customer.subscription.created/updated: status and cancel-at-period-end
//   - customer.subscription.deleted: canceled
//   - invoice.paid: active
//   - invoice.payment_failed: past_due
package billing
