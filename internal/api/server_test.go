package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	json "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grez-lucas/dialer-helper/internal/dialer/agent"
	"github.com/grez-lucas/dialer-helper/internal/settings"
)

type fakeHandler struct {
	mu       sync.Mutex
	requests []agent.Request
	live     *settings.Live
}

func (f *fakeHandler) Handle(_ context.Context, req agent.Request) agent.Response {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if req.Action != agent.ActionFillCountry {
		return agent.Response{Error: "unknown action"}
	}
	return agent.Response{Success: true, Found: true}
}

func (f *fakeHandler) Settings() *settings.Live { return f.live }

func newTestServer(cfg Config) (*Server, *fakeHandler) {
	gin.SetMode(gin.TestMode)
	h := &fakeHandler{live: settings.NewLive(settings.Defaults(), nil)}
	return NewServer(cfg, h, prometheus.NewRegistry(), nil), h
}

func post(t *testing.T, s *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/messages", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	s.Router().ServeHTTP(w, req)
	return w
}

func TestServer_Health(t *testing.T) {
	s, _ := newTestServer(Config{})
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestServer_FillMessage(t *testing.T) {
	s, h := newTestServer(Config{})

	w := post(t, s, `{"action":"FILL_COUNTRY","countryName":"Spain"}`)

	require.Equal(t, http.StatusOK, w.Code)
	var resp agent.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.True(t, resp.Found)
	assert.Equal(t, []agent.Request{{Action: agent.ActionFillCountry, CountryName: "Spain"}}, h.requests)
}

func TestServer_MalformedMessage(t *testing.T) {
	s, h := newTestServer(Config{})

	w := post(t, s, `{"action":`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, h.requests)
}

func TestServer_RateLimitsFills(t *testing.T) {
	s, _ := newTestServer(Config{FillRate: 0.001, FillBurst: 1})

	first := post(t, s, `{"action":"FILL_COUNTRY","countryName":"Spain"}`)
	second := post(t, s, `{"action":"FILL_COUNTRY","countryName":"Spain"}`)

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestServer_Settings(t *testing.T) {
	s, h := newTestServer(Config{})
	h.live.Apply(map[string]any{settings.KeyCountryName: "Japan", settings.KeyDialCode: "+81"})

	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/settings", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"countryName":"Japan","dialCode":"+81","enabled":true,"showToast":true}`, w.Body.String())
}

func TestServer_Metrics(t *testing.T) {
	s, _ := newTestServer(Config{})
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}
