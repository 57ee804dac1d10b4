// Package middleware holds the HTTP middleware shared by the API routes.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// StaffClaims is the token a clinic staff member presents to the admin API.
// Subject identifies the staff member; Name is optional display text.
type StaffClaims struct {
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Staff is the label written to audit logs.
func (c StaffClaims) Staff() string {
	if name := strings.TrimSpace(c.Name); name != "" {
		return name + " (" + c.Subject + ")"
	}
	return c.Subject
}

type staffKey struct{}

// StaffFromContext returns the claims StaffAuth stored on the request.
func StaffFromContext(ctx context.Context) (StaffClaims, bool) {
	claims, ok := ctx.Value(staffKey{}).(StaffClaims)
	return claims, ok
}

// StaffAuth admits requests bearing an HS256 staff token with an expiry and
// a subject. An empty secret closes the admin API entirely.
func StaffAuth(secret string) func(http.Handler) http.Handler {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	key := []byte(secret)
	verify := func(raw string) (StaffClaims, bool) {
		var claims StaffClaims
		token, err := parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) { return key, nil })
		if err != nil || !token.Valid || strings.TrimSpace(claims.Subject) == "" {
			return StaffClaims{}, false
		}
		return claims, true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(key) == 0 {
				http.Error(w, "admin auth disabled", http.StatusUnauthorized)
				return
			}
			raw, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "missing authorization header", http.StatusUnauthorized)
				return
			}
			claims, ok := verify(raw)
			if !ok {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), staffKey{}, claims)))
		})
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
