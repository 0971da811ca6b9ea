package billing

import (
	"crypto/subtle"
	"net/http"

	"github.com/google/uuid"

	"github.com/dmitrymomot/entitlekit/pkg/jwt"
	"github.com/dmitrymomot/entitlekit/svc/account"
)

// accountID returns the caller's account. Routes outside the jwt group
// authenticate the bearer token here.
func (m *module) accountID(r *http.Request) (uuid.UUID, error) {
	if claims, ok := jwt.ClaimsFromContext(r.Context()); ok {
		return claims.AccountID()
	}
	if m.Tokens == nil {
		return uuid.Nil, jwt.ErrMissingSigningKey
	}
	token, ok := jwt.BearerToken(r)
	if !ok {
		return uuid.Nil, jwt.ErrMissingToken
	}
	claims, err := m.Tokens.Parse(token)
	if err != nil {
		return uuid.Nil, err
	}
	return claims.AccountID()
}

// checkCronSecret accepts the secret as bearer token, body field or
// "secret" query parameter, in that order.
func (m *module) checkCronSecret(r *http.Request, bodySecret string) error {
	if m.Config.CronSecret == "" {
		return ErrCronNotConfigured
	}
	given, ok := jwt.BearerToken(r)
	if !ok {
		given = bodySecret
	}
	if given == "" {
		given = r.URL.Query().Get("secret")
	}
	if given == "" || subtle.ConstantTimeCompare([]byte(given), []byte(m.Config.CronSecret)) != 1 {
		return ErrInvalidCronSecret
	}
	return nil
}

func requireRole(role account.Role, onError func(w http.ResponseWriter, r *http.Request, err error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := jwt.ClaimsFromContext(r.Context())
			if !ok {
				onError(w, r, jwt.ErrMissingToken)
				return
			}
			if account.Role(claims.Role) != role {
				onError(w, r, ErrAdminOnly)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// accountKey buckets rate limits by the authenticated account.
func accountKey(r *http.Request) string {
	claims, ok := jwt.ClaimsFromContext(r.Context())
	if !ok {
		return ""
	}
	return "redeem:" + claims.Subject
}
