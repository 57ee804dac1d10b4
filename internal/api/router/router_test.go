package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinic-booking-assistant/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/clinic-booking-assistant/internal/http/middleware"
	"github.com/wolfman30/clinic-booking-assistant/internal/messaging"
	"github.com/wolfman30/clinic-booking-assistant/internal/session"
	"github.com/wolfman30/clinic-booking-assistant/internal/store"
	"github.com/wolfman30/clinic-booking-assistant/internal/webchat"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

type staticTurns struct{ reply string }

func (s staticTurns) HandleTurn(context.Context, string, string) (string, error) {
	return s.reply, nil
}

const adminSecret = "admin-secret"

func newTestRouter(t *testing.T, limiter *httpmiddleware.RateLimiter) (http.Handler, *store.MemoryStore) {
	t.Helper()
	logger := logging.Discard()
	mem := store.NewMemoryStore()
	turns := staticTurns{reply: "Olá!"}

	return New(&Config{
		Logger:             logger,
		MessagingHandler:   messaging.NewHandler("", turns, nil, logger),
		WebChat:            webchat.NewHandler(turns, mem, logger),
		Admin:              handlers.NewAdminHandler(mem, mem, session.NewTracker(mem, logger), logger),
		AdminAuthSecret:    adminSecret,
		MetricsHandler:     http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("# metrics")) }),
		CORSAllowedOrigins: []string{"https://clinica.example"},
		RateLimiter:        limiter,
	}), mem
}

func adminToken(t *testing.T) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "recepcao",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	})
	signed, err := token.SignedString([]byte(adminSecret))
	require.NoError(t, err)
	return signed
}

func TestRouterHealthEndpoint(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var resp map[string]string
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "ok", resp["status"])
}

func TestRouterMetricsEndpoint(t *testing.T) {
	router, _ := newTestRouter(t, nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, "# metrics", rr.Body.String())
}

func TestRouterTwilioWebhook(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	form := url.Values{}
	form.Set("From", "+5511999990000")
	form.Set("Body", "Oi")
	req := httptest.NewRequest(http.MethodPost, "/webhooks/twilio/messages", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "<Message>Olá!</Message>")
}

func TestRouterWebChatWithCORS(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/messages", strings.NewReader(`{"user_id":"u1","text":"Oi"}`))
	req.Header.Set("Origin", "https://clinica.example")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "https://clinica.example", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.JSONEq(t, `{"user_id":"u1","reply":"Olá!"}`, rr.Body.String())

	preflight := httptest.NewRequest(http.MethodOptions, "/api/messages", nil)
	preflight.Header.Set("Origin", "https://clinica.example")
	preflight.Header.Set("Access-Control-Request-Method", "POST")
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, preflight)
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestRouterAdminRequiresToken(t *testing.T) {
	router, mem := newTestRouter(t, nil)
	_, err := mem.InsertAppointment(context.Background(), store.NewAppointment{Name: "Ana", Date: "25/08/2025", Time: "15:30h"})
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/admin/appointments", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	req := httptest.NewRequest(http.MethodGet, "/admin/appointments", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken(t))
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"nome":"Ana"`)
}

func TestRouterRateLimitsPublicRoutes(t *testing.T) {
	limiter := httpmiddleware.NewRateLimiter(0.001, 1)
	defer limiter.Stop()
	router, _ := newTestRouter(t, limiter)

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/messages", strings.NewReader(`{"user_id":"u1","text":"Oi"}`))
		req.RemoteAddr = "203.0.113.9:1234"
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code, "health is not rate limited")
}
