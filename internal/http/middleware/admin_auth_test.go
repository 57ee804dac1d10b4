package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func runStaffAuth(t *testing.T, secret, header string) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/admin/appointments", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()

	called := false
	StaffAuth(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		claims, ok := StaffFromContext(r.Context())
		if !ok {
			t.Fatalf("expected staff claims in context")
		}
		if claims.Subject != "recepcao" {
			t.Fatalf("unexpected subject %q", claims.Subject)
		}
		w.WriteHeader(http.StatusOK)
	})).ServeHTTP(rec, req)
	return rec, called
}

func TestStaffAuth(t *testing.T) {
	valid := signedAdminToken(t, "secret", jwt.RegisteredClaims{
		Subject:   "recepcao",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(5 * time.Minute)),
	})

	tests := []struct {
		name   string
		secret string
		header string
		want   int
	}{
		{name: "missing secret", secret: "", header: "Bearer " + valid, want: http.StatusUnauthorized},
		{name: "missing header", secret: "secret", want: http.StatusUnauthorized},
		{name: "wrong scheme", secret: "secret", header: "Basic abc", want: http.StatusUnauthorized},
		{name: "wrong key", secret: "secret", header: "Bearer " + signedAdminToken(t, "wrong", jwt.RegisteredClaims{
			Subject:   "recepcao",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		}), want: http.StatusUnauthorized},
		{name: "expired", secret: "secret", header: "Bearer " + signedAdminToken(t, "secret", jwt.RegisteredClaims{
			Subject:   "recepcao",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		}), want: http.StatusUnauthorized},
		{name: "no expiry", secret: "secret", header: "Bearer " + signedAdminToken(t, "secret", jwt.RegisteredClaims{
			Subject: "recepcao",
		}), want: http.StatusUnauthorized},
		{name: "no subject", secret: "secret", header: "Bearer " + signedAdminToken(t, "secret", jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		}), want: http.StatusUnauthorized},
		{name: "valid", secret: "secret", header: "Bearer " + valid, want: http.StatusOK},
		{name: "lowercase scheme", secret: "secret", header: "bearer " + valid, want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, called := runStaffAuth(t, tt.secret, tt.header)
			if rec.Code != tt.want {
				t.Fatalf("expected status %d, got %d", tt.want, rec.Code)
			}
			if called != (tt.want == http.StatusOK) {
				t.Fatalf("handler called = %v", called)
			}
		})
	}
}

func signedAdminToken(t *testing.T, secret string, claims jwt.RegisteredClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestStaffAuthCarriesStaffName(t *testing.T) {
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, StaffClaims{
		Name: "Marina",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "recepcao",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/admin/sessions/u1/reset", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	var staff string
	StaffAuth("secret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, _ := StaffFromContext(r.Context())
		staff = claims.Staff()
	})).ServeHTTP(httptest.NewRecorder(), req)

	if staff != "Marina (recepcao)" {
		t.Fatalf("unexpected staff label %q", staff)
	}
}

func TestBearerToken(t *testing.T) {
	for header, want := range map[string]string{
		"Bearer abc":    "abc",
		"  bearer  abc": "abc",
		"Bearer":        "",
		"Bearer   ":     "",
		"Token abc":     "",
	} {
		got, ok := bearerToken(header)
		if got != want || ok != (want != "") {
			t.Errorf("bearerToken(%q) = %q, %v", header, got, ok)
		}
	}
}
