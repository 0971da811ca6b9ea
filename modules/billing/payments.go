package billing

import (
	"errors"
	"net/http"

	"github.com/dmitrymomot/entitlekit/pkg/handler"
	"github.com/dmitrymomot/entitlekit/pkg/logger"
	"github.com/dmitrymomot/entitlekit/svc/payment"
)

type checkoutRequest struct {
	PlanID     string `json:"plan_id"`
	CouponCode string `json:"coupon_code,omitempty"`
}

// ignoredView acknowledges gateway events the reconciler does not act on,
// so the provider stops redelivering them.
type ignoredView struct {
	State string `json:"state"`
}

func (m *module) checkout(r *http.Request, req checkoutRequest) handler.Response {
	id, err := m.accountID(r)
	if err != nil {
		return handler.Error(err)
	}
	sess, err := m.Payments.Checkout(r.Context(), id, req.PlanID, req.CouponCode)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(sess, handler.WithStatus(http.StatusCreated))
}

// callback answers 200 for every reconciled outcome, including failed
// payments, and an error status only when the provider should retry or
// the request was not authentic.
func (m *module) callback(r *http.Request, _ noRequest) handler.Response {
	res, err := m.Payments.HandleCallback(r.Context(), r)
	switch {
	case errors.Is(err, payment.ErrIgnoredEvent):
		m.log.DebugContext(r.Context(), "gateway event ignored", logger.Error(err))
		return handler.JSON(ignoredView{State: "ignored"})
	case err != nil:
		return handler.Error(err)
	}
	return handler.JSON(res)
}

func (m *module) confirmReturn(r *http.Request, _ noRequest) handler.Response {
	q := r.URL.Query()
	ref := q.Get("transaction")
	if ref == "" {
		ref = q.Get("session_id")
	}
	res, err := m.Payments.ConfirmRedirect(r.Context(), ref)
	if err != nil {
		return handler.Error(err)
	}
	status := http.StatusOK
	if res.State == payment.StatePending {
		status = http.StatusAccepted
	}
	return handler.JSON(res, handler.WithStatus(status))
}
