// Package jwt verifies bearer identities with github.com/golang-jwt/jwt/v5.
//
// Tokens are HS256-signed and carry the account id as subject plus the
// account role. Middleware rejects requests without a valid token before
// they reach a handler and stores the parsed Claims in the request context.
//
//	svc, err := jwt.New(cfg)
//	r.With(jwt.Middleware(svc, errHandler)).Get("/subscription", ...)
//
//	claims, ok := jwt.ClaimsFromContext(r.Context())
package jwt
