package handlers

import (
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/imagexbot/internal/auth"
	"github.com/dvloznov/imagexbot/internal/metrics"
)

func TestRootAndHealth(t *testing.T) {
	rec := serve(t, Routes{}, http.MethodGet, "/", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to the Image-X-Bot API", decodeBody(t, rec)["message"])

	rec = serve(t, Routes{}, http.MethodGet, "/health", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decodeBody(t, rec)["status"])

	rec = serve(t, Routes{}, http.MethodGet, "/nope", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	rt := Routes{Gatherer: reg, Metrics: m}

	serve(t, rt, http.MethodGet, "/health", nil, nil)
	serve(t, rt, http.MethodGet, "/health", nil, nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "GET /health", "200")))

	rec := serve(t, rt, http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "imagexbot_http_requests_total")
}

func TestRequiredAuth(t *testing.T) {
	issuer, err := auth.NewIssuer("secret", 0)
	require.NoError(t, err)
	token, err := issuer.Issue("u1")
	require.NoError(t, err)

	rt := Routes{
		Chat:         NewChatHandler(&MockChatService{}, nil),
		Accounts:     NewAccountsHandler(&MockAuthenticator{LoginFunc: nil}),
		Issuer:       issuer,
		AuthRequired: true,
	}

	rec := serve(t, rt, http.MethodGet, "/getChats/u1", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(t, rt, http.MethodGet, "/getChats/u1", nil, http.Header{"Authorization": {"Bearer " + token}})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(t, rt, http.MethodGet, "/getChats/u2", nil, http.Header{"Authorization": {"Bearer " + token}})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Health stays public.
	rec = serve(t, rt, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Login is public; a bad body is rejected before the authenticator runs.
	rec = serve(t, rt, http.MethodPost, "/login", map[string]string{}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWrongMethod(t *testing.T) {
	rt := Routes{Chat: NewChatHandler(&MockChatService{}, nil)}

	rec := serve(t, rt, http.MethodGet, "/upload", nil, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
