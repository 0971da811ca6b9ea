// Package billing mounts the JSON API of the entitlement engine.
//
// User routes require a bearer token issued by pkg/jwt. The payment gateway
// routes are public and rely on the gateway's own authentication. The
// cron-only downgrade pass on POST /subscription is guarded by a shared
// secret instead of a user token.
//
// Example:
//
//	r := chi.NewRouter()
//	r.Mount("/", billing.Router(billing.Options{
//		Config:        cfg.Billing,
//		Tokens:        tokens,
//		Subscriptions: subs,
//		Entitlements:  ents,
//		Payments:      reconciler,
//		Coupons:       coupons,
//		Accounts:      accounts,
//		Sweeper:       sw,
//	}))
package billing
