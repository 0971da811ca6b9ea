// Package apperr defines the error kinds shared by every service.
//
// Domain packages declare their sentinels with New, binding each one to a
// kind and a stable machine code. Transport layers classify failures with
// errors.Is against the kinds only, so a new domain error never needs a new
// branch in the HTTP error mapping.
//
//	var ErrUnknownPlan = apperr.New(apperr.ErrValidation, "unknown_plan", "unknown plan")
//
//	errors.Is(fmt.Errorf("checkout: %w", ErrUnknownPlan), apperr.ErrValidation) // true
//	apperr.CodeOf(ErrUnknownPlan)                                               // "unknown_plan"
package apperr
