// Package payment turns gateway notifications into subscription transitions.
//
// Checkout creates a server-held Order and hands the order id to the gateway.
// Every callback, whether an asynchronous webhook or the synchronous redirect
// confirmation, resolves the account only through that Order.
//
// The Reconciler is idempotent per external reference. The first successful
// callback inserts the Event and assigns the plan in one transaction; later
// deliveries return the stored result flagged Duplicate. A failed or
// ambiguous callback is recorded without touching the subscription, and a
// later success for the same reference promotes that record exactly once.
//
// Three gateways are provided: HTTPGateway for a numeric-status provider,
// StripeGateway and PaddleGateway.
package payment
