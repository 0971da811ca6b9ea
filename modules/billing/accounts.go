package billing

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/dmitrymomot/entitlekit/pkg/handler"
	"github.com/dmitrymomot/entitlekit/svc/account"
)

// createAccountRequest provisions a profile for an identity issued elsewhere.
// ID is optional and should match the token subject the identity will carry.
type createAccountRequest struct {
	ID         uuid.UUID    `json:"id"`
	Email      string       `json:"email"`
	Role       account.Role `json:"role,omitempty"`
	Locale     string       `json:"locale,omitempty"`
	Categories []string     `json:"categories,omitempty"`
}

func (m *module) createAccount(r *http.Request, req createAccountRequest) handler.Response {
	a, err := m.Accounts.Create(r.Context(), account.Account{
		ID:         req.ID,
		Email:      req.Email,
		Role:       req.Role,
		Locale:     req.Locale,
		Categories: req.Categories,
	})
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(a, handler.WithStatus(http.StatusCreated))
}

func (m *module) selectCategories(r *http.Request, req categoriesRequest) handler.Response {
	id, err := m.accountID(r)
	if err != nil {
		return handler.Error(err)
	}
	a, err := m.Accounts.SelectCategories(r.Context(), id, req.Categories)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(a)
}
