package billing

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dmitrymomot/entitlekit/pkg/handler"
	"github.com/dmitrymomot/entitlekit/pkg/logger"
	"github.com/dmitrymomot/entitlekit/svc/entitlement"
	"github.com/dmitrymomot/entitlekit/svc/subscription"
)

const (
	actionCancel           = "cancel"
	actionDowngradeExpired = "downgrade-expired"
	actionPause            = "pause"
	actionResume           = "resume"
)

type subscriptionAction struct {
	Action string `json:"action"`
	Secret string `json:"secret,omitempty"`
}

// statusView is the GET /subscription payload.
type statusView struct {
	*entitlement.State
	PlanID     string     `json:"plan_id"`
	PeriodEnd  *time.Time `json:"period_end,omitempty"`
	CanceledAt *time.Time `json:"canceled_at,omitempty"`
	PausedAt   *time.Time `json:"paused_at,omitempty"`
}

type transitionView struct {
	AccountID uuid.UUID           `json:"account_id"`
	Event     subscription.Event  `json:"event"`
	From      subscription.Status `json:"from"`
	To        subscription.Status `json:"to"`
	Changed   bool                `json:"changed"`
	PlanID    string              `json:"plan_id"`
	PeriodEnd time.Time           `json:"period_end"`
	AutoRenew bool                `json:"auto_renew"`
}

func viewOf(t *subscription.Transition) transitionView {
	v := transitionView{Event: t.Event, From: t.From, To: t.To, Changed: t.Changed}
	if s := t.Subscription; s != nil {
		v.AccountID = s.AccountID
		v.PlanID = s.PlanID
		v.PeriodEnd = s.PeriodEnd
		v.AutoRenew = s.AutoRenew
	}
	return v
}

type sweepView struct {
	Expired int `json:"expired"`
	// Complete is false when some accounts failed and will be retried.
	Complete bool `json:"complete"`
}

func (m *module) subscriptionStatus(r *http.Request, _ noRequest) handler.Response {
	id, err := m.accountID(r)
	if err != nil {
		return handler.Error(err)
	}
	st, err := m.Entitlements.State(r.Context(), id)
	if err != nil {
		return handler.Error(err)
	}
	sub, err := m.Subscriptions.Current(r.Context(), id)
	if err != nil {
		return handler.Error(err)
	}

	v := statusView{State: st, PlanID: st.Plan.ID}
	if sub != nil {
		v.PeriodEnd = &sub.PeriodEnd
		v.CanceledAt = sub.CanceledAt
		v.PausedAt = sub.PausedAt
	}
	return handler.JSON(v)
}

func (m *module) changeSubscription(r *http.Request, req subscriptionAction) handler.Response {
	switch req.Action {
	case actionDowngradeExpired:
		return m.downgradeExpired(r, req.Secret)
	case actionCancel:
		id, err := m.accountID(r)
		if err != nil {
			return handler.Error(err)
		}
		return m.cancel(r, id)
	default:
		return handler.Error(ErrUnknownAction)
	}
}

func (m *module) cancel(r *http.Request, id uuid.UUID) handler.Response {
	ctx := r.Context()
	t, err := m.Subscriptions.Cancel(ctx, id)
	if err != nil {
		return handler.Error(err)
	}
	if t.Changed && t.Subscription != nil && t.Subscription.ProviderRef != "" {
		upstreamCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.UpstreamTimeout)
		m.Payments.CancelUpstream(upstreamCtx, t.Subscription.ProviderRef)
		cancel()
	}
	return handler.JSON(viewOf(t))
}

func (m *module) downgradeExpired(r *http.Request, secret string) handler.Response {
	if err := m.checkCronSecret(r, secret); err != nil {
		return handler.Error(err)
	}
	if m.Sweeper == nil {
		return handler.Error(ErrCronNotConfigured)
	}
	n, err := m.Sweeper.Sweep(r.Context())
	if err != nil {
		m.log.WarnContext(r.Context(), "downgrade pass incomplete", logger.Count(n), logger.Error(err))
	}
	return handler.JSON(sweepView{Expired: n, Complete: err == nil})
}

func (m *module) adminSubscription(r *http.Request, req subscriptionAction) handler.Response {
	id, err := uuid.Parse(chi.URLParam(r, "accountId"))
	if err != nil {
		return handler.Error(ErrInvalidAccountID)
	}

	var t *subscription.Transition
	switch req.Action {
	case actionPause:
		t, err = m.Subscriptions.Pause(r.Context(), id)
	case actionResume:
		t, err = m.Subscriptions.Resume(r.Context(), id)
	case actionCancel:
		return m.cancel(r, id)
	default:
		return handler.Error(ErrUnknownAction)
	}
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(viewOf(t))
}
