// Package handler adapts typed request handlers to net/http.
//
// A HandlerFunc receives the decoded request value and returns a Response.
// Wrap performs binding, renders the response and routes every error through
// one ErrorHandler, which maps apperr kinds to status codes and writes the
// standard JSON envelope:
//
//	{"data": ..., "meta": ..., "error": {"code": "...", "message": "...", "details": {...}}}
//
// Example:
//
//	type redeemRequest struct {
//		Code string `json:"code"`
//	}
//
//	r.Post("/coupons/redeem", handler.Wrap(func(r *http.Request, req redeemRequest) handler.Response {
//		res, err := engine.Redeem(r.Context(), req.Code, accountID)
//		if err != nil {
//			return handler.Error(err)
//		}
//		return handler.JSON(res)
//	}, handler.WithBinders(handler.JSONBody()), handler.WithErrorHandler(errHandler)))
package handler
