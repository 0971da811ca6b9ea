// Package subscription owns the subscription lifecycle.
//
// Service is the only component that writes subscription rows. Every write
// runs in one transaction that locks the row (LockSubscription), evaluates
// the lifecycle state machine against the locked status, saves the row and
// updates the account profile mirror. Callers that lose a race observe the
// winner's committed state: repeated cancels are no-ops, and an expiry whose
// conditions no longer hold reports Changed == false.
//
// States and events:
//
//	none|paused|canceled|expired --assign--> active
//	active(free plan)            --assign--> active
//	active                       --upgrade-> active   strict upgrade only
//	active                       --renew---> active   same plan, new period
//	active|paused                --cancel--> canceled
//	active                       --pause---> paused
//	paused                       --resume--> active
//	active|paused|canceled       --expire--> expired  plan reset to free
//
// Resolve turns a row into effective entitlements: canceled rows keep their
// plan until PeriodEnd, paused and expired rows resolve to the free plan.
// A Changed message is published after each commit when a broadcaster is
// configured.
package subscription
