package billing

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/entitlekit/pkg/handler"
	"github.com/dmitrymomot/entitlekit/svc/entitlement"
	"github.com/dmitrymomot/entitlekit/svc/plan"
)

type operationRequest struct {
	ArtifactID string `json:"artifact_id,omitempty"`
}

type minutesRequest struct {
	ArtifactID string `json:"artifact_id,omitempty"`
	Minutes    int64  `json:"minutes"`
}

type artifactRequest struct {
	Seconds int64 `json:"seconds"`
	Bytes   int64 `json:"bytes"`
}

type redeemRequest struct {
	Code string `json:"code"`
}

type categoriesRequest struct {
	Categories []string `json:"categories"`
}

// gated renders an allowed decision as data and a denial as 403 with the
// limit or feature that caused it.
func gated(d entitlement.Decision, err error) handler.Response {
	if err != nil {
		return handler.Error(err)
	}
	if err := d.Err(); err != nil {
		return handler.Error(err)
	}
	return handler.JSON(d)
}

func (m *module) recordOperation(r *http.Request, req operationRequest) handler.Response {
	id, err := m.accountID(r)
	if err != nil {
		return handler.Error(err)
	}
	return gated(m.Entitlements.CheckAndRecordOperation(r.Context(), id, req.ArtifactID))
}

func (m *module) recordMinutes(r *http.Request, req minutesRequest) handler.Response {
	id, err := m.accountID(r)
	if err != nil {
		return handler.Error(err)
	}
	return gated(m.Entitlements.CheckAndRecordMinutes(r.Context(), id, req.ArtifactID, req.Minutes))
}

func (m *module) checkArtifact(r *http.Request, req artifactRequest) handler.Response {
	id, err := m.accountID(r)
	if err != nil {
		return handler.Error(err)
	}
	return gated(m.Entitlements.CheckArtifact(r.Context(), id, req.Seconds, req.Bytes))
}

// hasFeature answers the question without a 403: a missing feature is a
// normal result here, not a refused action.
func (m *module) hasFeature(r *http.Request, _ noRequest) handler.Response {
	id, err := m.accountID(r)
	if err != nil {
		return handler.Error(err)
	}
	f, err := plan.ParseFeature(chi.URLParam(r, "flag"))
	if err != nil {
		return handler.Error(err)
	}
	d, err := m.Entitlements.HasFeature(r.Context(), id, f)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(d)
}

func (m *module) redeemCoupon(r *http.Request, req redeemRequest) handler.Response {
	id, err := m.accountID(r)
	if err != nil {
		return handler.Error(err)
	}
	res, err := m.Coupons.Redeem(r.Context(), req.Code, id)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(res)
}
