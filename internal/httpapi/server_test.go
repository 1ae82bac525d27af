package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rezdm/Argus/internal/domain"
	"github.com/rezdm/Argus/internal/monitor"
	"github.com/rezdm/Argus/internal/probe"
)

func newTestRegistry(t *testing.T) *monitor.Registry {
	t.Helper()
	base := domain.Destination{Timeout: time.Second, Interval: time.Minute, Warning: 1, Failure: 2, Reset: 1, History: 10}

	router := base
	router.Name, router.Sort = "Router", 1
	router.Test = domain.TestSpec{Kind: domain.KindReachability, Host: "192.168.1.1"}

	site := base
	site.Name, site.Sort = "Site", 1
	site.Test = domain.TestSpec{Kind: domain.KindURL, URL: "https://example.com/health"}

	reg, err := monitor.NewRegistry([]domain.Group{
		{Sort: 2, Name: "Internet", Destinations: []domain.Destination{site}},
		{Sort: 1, Name: "LAN", Destinations: []domain.Destination{router}},
	}, probe.NewRegistry(probe.Options{}))
	require.NoError(t, err)
	return reg
}

func TestRouter_Healthz(t *testing.T) {
	srv := NewServer(zap.NewNop(), newTestRegistry(t), Options{})
	rr := httptest.NewRecorder()
	srv.Router().ServeHTTP(rr, httptest.NewRequest("GET", "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", rr.Body.String())
}

func TestRouter_Status(t *testing.T) {
	reg := newTestRegistry(t)
	st, _ := reg.Get("LAN:Router")
	st.Apply(domain.TestResult{Success: false, DurationMS: 12, Timestamp: time.Now(), Error: "host unreachable"})

	rr := httptest.NewRecorder()
	NewServer(zap.NewNop(), reg, Options{}).Router().ServeHTTP(rr, httptest.NewRequest("GET", "/api/status", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var got []map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "LAN:Router", got[0]["key"])
	assert.Equal(t, "WARNING", got[0]["status"])
	assert.Equal(t, "PING", got[0]["description"])
	assert.Equal(t, "host unreachable", got[0]["last_result"].(map[string]any)["error"])
	assert.Equal(t, "Internet:Site", got[1]["key"])
	assert.Equal(t, "OK", got[1]["status"])
	assert.NotContains(t, got[1], "last_result")
}

func TestRouter_MonitorDetail(t *testing.T) {
	reg := newTestRegistry(t)
	st, _ := reg.Get("Internet:Site")
	st.Apply(domain.TestResult{Success: true, DurationMS: 40, Timestamp: time.Now()})
	st.Apply(domain.TestResult{Success: true, DurationMS: 41, Timestamp: time.Now()})
	h := NewServer(zap.NewNop(), reg, Options{}).Router()

	for _, path := range []string{"/api/monitors/Internet:Site", "/api/monitors/Internet%3ASite"} {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest("GET", path, nil))
		require.Equal(t, http.StatusOK, rr.Code, path)

		var got struct {
			Key     string              `json:"key"`
			Uptime  float64             `json:"uptime"`
			History []domain.TestResult `json:"history"`
		}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
		assert.Equal(t, "Internet:Site", got.Key)
		assert.Equal(t, 100.0, got.Uptime)
		assert.Len(t, got.History, 2)
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/api/monitors/nope:nothing", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "unknown monitor")
}

func TestRouter_Dashboard(t *testing.T) {
	reg := newTestRegistry(t)
	st, _ := reg.Get("LAN:Router")
	st.Apply(domain.TestResult{Success: true, DurationMS: 3, Timestamp: time.Date(2024, 1, 2, 9, 8, 7, 0, time.Local)})

	rr := httptest.NewRecorder()
	NewServer(zap.NewNop(), reg, Options{Title: "Home <net>"}).Router().ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()

	assert.Contains(t, rr.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, body, `content="30"`)
	assert.Contains(t, body, "Home &lt;net&gt;")
	assert.Less(t, strings.Index(body, "<h2>LAN</h2>"), strings.Index(body, "<h2>Internet</h2>"))
	assert.Contains(t, body, "09:08:07")
	assert.Contains(t, body, "3 ms")
	assert.Contains(t, body, "Never", "unprobed monitor")
	assert.Contains(t, body, "URL: https://example.com/health")
	assert.Contains(t, body, "example.com")
	assert.Contains(t, body, "100.0%")
}

func TestRouter_CORS(t *testing.T) {
	h := NewServer(zap.NewNop(), newTestRegistry(t), Options{AllowedOrigins: []string{"https://ops.example"}}).Router()

	req := httptest.NewRequest("GET", "/api/status", nil)
	req.Header.Set("Origin", "https://ops.example")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, "https://ops.example", rr.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest("GET", "/api/status", nil)
	req.Header.Set("Origin", "https://evil.example")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_RateLimitOnlyOnAPI(t *testing.T) {
	h := NewServer(zap.NewNop(), newTestRegistry(t), Options{RatePerMin: 1, Burst: 1}).Router()

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest("GET", "/api/status", nil))
		codes = append(codes, rr.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}
