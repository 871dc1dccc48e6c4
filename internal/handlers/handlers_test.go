package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"natsdash/internal/alerts"
	"natsdash/internal/broker"
	"natsdash/internal/middleware"
	"natsdash/internal/models"
	"natsdash/internal/notify"
	"natsdash/internal/store"
	"natsdash/internal/utils"
)

type testEnv struct {
	router *gin.Engine
	repo   *store.Repository
	token  string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, store.Migrate(db))
	repo := store.NewRepository(db)

	log := utils.NewLogger("")
	auth := middleware.NewAuthService()
	dispatcher := notify.NewDispatcher(log)
	scheduler := alerts.NewScheduler(repo, dispatcher, nil, log)
	t.Cleanup(scheduler.Stop)
	browser := broker.NewBrowser()
	t.Cleanup(browser.Close)
	hub := middleware.NewHub(log)
	go hub.Run()

	hash, err := auth.HashPassword("correct horse battery")
	require.NoError(t, err)
	_, err = repo.CreateUser(context.Background(), "admin", hash, models.RoleAdmin)
	require.NoError(t, err)
	token, err := auth.GenerateToken("admin", models.RoleAdmin)
	require.NoError(t, err)

	router := gin.New()
	api := NewAPI(repo, auth, scheduler, dispatcher, browser, hub, log)
	api.RegisterRoutes(router)

	return &testEnv{router: router, repo: repo, token: token}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if e.token != "" {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestLoginIssuesTokenAndCookie(t *testing.T) {
	env := newTestEnv(t)
	env.token = ""

	w := env.do(t, http.MethodPost, "/api/auth/login",
		gin.H{"username": "admin", "password": "correct horse battery"})
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.NotEmpty(t, body["token"])
	assert.Equal(t, "admin", body["username"])
	assert.Contains(t, w.Header().Get("Set-Cookie"), "natsdash_token=")
}

func TestLoginRejectsBadPassword(t *testing.T) {
	env := newTestEnv(t)
	env.token = ""

	w := env.do(t, http.MethodPost, "/api/auth/login",
		gin.H{"username": "admin", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAPIRequiresAuth(t *testing.T) {
	env := newTestEnv(t)
	env.token = ""

	w := env.do(t, http.MethodGet, "/api/clusters", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestClusterCRUD(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/clusters", gin.H{
		"name":            "prod",
		"nats_url":        "nats://127.0.0.1:4222",
		"monitoring_urls": []string{"http://10.0.0.1:8222/", "http://10.0.0.1:8222", "http://10.0.0.2:8222"},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode(t, w)
	// trailing slash stripped, duplicate dropped
	assert.Equal(t, []any{"http://10.0.0.1:8222", "http://10.0.0.2:8222"}, created["monitoring_urls"])
	id := int64(created["id"].(float64))

	w = env.do(t, http.MethodGet, fmt.Sprintf("/api/clusters/%d", id), nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodPut, fmt.Sprintf("/api/clusters/%d", id), gin.H{
		"name":            "prod-eu",
		"nats_url":        "nats://127.0.0.1:4222",
		"monitoring_urls": []string{"http://10.0.0.3:8222"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "prod-eu", decode(t, w)["name"])

	w = env.do(t, http.MethodDelete, fmt.Sprintf("/api/clusters/%d", id), nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, fmt.Sprintf("/api/clusters/%d", id), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateClusterRejectsInvalidURLs(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/clusters", gin.H{
		"name":            "bad",
		"nats_url":        "nats://127.0.0.1:4222",
		"monitoring_urls": []string{"ftp://example.com", "not a url"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func seedCluster(t *testing.T, env *testEnv, urls ...string) int64 {
	t.Helper()
	id, err := env.repo.CreateCluster(context.Background(), &models.Cluster{
		Name: "prod", NATSURL: "nats://127.0.0.1:4222", MonitoringURLs: urls,
	})
	require.NoError(t, err)
	return id
}

func TestClusterVarzAggregatesAcrossServers(t *testing.T) {
	env := newTestEnv(t)

	srv1 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"connections": 3, "in_msgs": 100}`)
	}))
	defer srv1.Close()
	srv2 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"connections": 7, "in_msgs": 50}`)
	}))
	defer srv2.Close()

	id := seedCluster(t, env, srv1.URL, srv2.URL)
	w := env.do(t, http.MethodGet, fmt.Sprintf("/api/clusters/%d/monitoring/varz", id), nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	totals := body["totals"].(map[string]any)
	assert.Equal(t, float64(10), totals["connections"])
	assert.Equal(t, float64(150), totals["in_msgs"])
	assert.Len(t, body["servers"], 2)
}

func TestClusterVarzServerSubset(t *testing.T) {
	env := newTestEnv(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"connections": 4}`)
	}))
	defer srv.Close()

	id := seedCluster(t, env, srv.URL, "http://127.0.0.1:1")

	w := env.do(t, http.MethodGet,
		fmt.Sprintf("/api/clusters/%d/monitoring/varz?servers=%s", id, srv.URL), nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Len(t, body["servers"], 1)
	assert.Equal(t, float64(4), body["totals"].(map[string]any)["connections"])
}

func TestClusterVarzUnknownServerIs400(t *testing.T) {
	env := newTestEnv(t)
	id := seedCluster(t, env, "http://10.0.0.1:8222")

	w := env.do(t, http.MethodGet,
		fmt.Sprintf("/api/clusters/%d/monitoring/varz?servers=http://elsewhere:8222", id), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestClusterVarzAllEndpointsFailedIs502(t *testing.T) {
	env := newTestEnv(t)
	id := seedCluster(t, env, "http://127.0.0.1:1", "http://127.0.0.1:2")

	w := env.do(t, http.MethodGet, fmt.Sprintf("/api/clusters/%d/monitoring/varz", id), nil)
	require.Equal(t, http.StatusBadGateway, w.Code)
	body := decode(t, w)
	assert.NotEmpty(t, body["error"])
	// per-server rows still ride along for display
	result := body["result"].(map[string]any)
	assert.Len(t, result["servers"], 2)
}

func TestClusterHealthzDegraded(t *testing.T) {
	env := newTestEnv(t)

	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"ok"}`)
	}))
	defer healthy.Close()

	id := seedCluster(t, env, healthy.URL, "http://127.0.0.1:1")
	w := env.do(t, http.MethodGet, fmt.Sprintf("/api/clusters/%d/monitoring/healthz", id), nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, float64(1), body["healthy_count"])
	assert.Equal(t, float64(2), body["total_count"])
}

func TestAlertRuleCRUDAndValidation(t *testing.T) {
	env := newTestEnv(t)
	id := seedCluster(t, env, "http://10.0.0.1:8222")

	w := env.do(t, http.MethodPost, fmt.Sprintf("/api/clusters/%d/alerts", id), gin.H{
		"name": "bad metric", "metric": "cpu", "operator": "gt", "threshold": 1,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, fmt.Sprintf("/api/clusters/%d/alerts", id), gin.H{
		"name": "conns high", "metric": "connections", "operator": "gt", "threshold": 100,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	rule := decode(t, w)
	assert.Equal(t, true, rule["enabled"])
	ruleID := int64(rule["id"].(float64))

	w = env.do(t, http.MethodPut, fmt.Sprintf("/api/alerts/%d", ruleID), gin.H{
		"name": "conns high", "metric": "connections", "operator": "gte",
		"threshold": 200, "enabled": false,
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["enabled"])

	w = env.do(t, http.MethodGet, fmt.Sprintf("/api/clusters/%d/alerts", id), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["alerts"], 1)

	w = env.do(t, http.MethodDelete, fmt.Sprintf("/api/alerts/%d", ruleID), nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestChannelValidationPerType(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/channels", gin.H{
		"name": "tg", "type": "telegram", "config": gin.H{"bot_token": "123:abc"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code, "telegram without chat_id")

	w = env.do(t, http.MethodPost, "/api/channels", gin.H{
		"name": "hook", "type": "webhook",
		"config": gin.H{"url": "https://example.com/hook", "method": "DELETE"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code, "webhook with bad method")

	w = env.do(t, http.MethodPost, "/api/channels", gin.H{
		"name": "ops", "type": "slack", "config": gin.H{"url": "https://hooks.slack.com/services/x"},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(t, http.MethodGet, "/api/channels", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["channels"], 1)
}

func TestChannelTestSend(t *testing.T) {
	env := newTestEnv(t)

	var received bool
	sink := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received = true
	}))
	defer sink.Close()

	w := env.do(t, http.MethodPost, "/api/channels", gin.H{
		"name": "hook", "type": "webhook", "config": gin.H{"url": sink.URL},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	id := int64(decode(t, w)["id"].(float64))

	w = env.do(t, http.MethodPost, fmt.Sprintf("/api/channels/%d/test", id), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, received)
}

func TestMonitorLifecycleEndpoints(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/monitor/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, false, body["running"])
	assert.Equal(t, float64(30000), body["interval_ms"])

	w = env.do(t, http.MethodPut, "/api/monitor/interval", gin.H{"interval_ms": 1000})
	assert.Equal(t, http.StatusBadRequest, w.Code, "below minimum")

	w = env.do(t, http.MethodPut, "/api/monitor/interval", gin.H{"interval_ms": 10000})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(10000), decode(t, w)["interval_ms"])

	w = env.do(t, http.MethodPost, "/api/monitor/start", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["running"])

	w = env.do(t, http.MethodPost, "/api/monitor/stop", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["running"])
}

func TestStreamsUnreachableBrokerIs502(t *testing.T) {
	env := newTestEnv(t)
	id, err := env.repo.CreateCluster(context.Background(), &models.Cluster{
		Name: "prod", NATSURL: "nats://127.0.0.1:1", MonitoringURLs: []string{"http://10.0.0.1:8222"},
	})
	require.NoError(t, err)

	w := env.do(t, http.MethodGet, fmt.Sprintf("/api/clusters/%d/streams", id), nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestHealthzEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.token = ""

	w := env.do(t, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPut, "/api/auth/password", gin.H{
		"current_password": "wrong", "new_password": "another password",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, http.MethodPut, "/api/auth/password", gin.H{
		"current_password": "correct horse battery", "new_password": "another password",
	})
	require.Equal(t, http.StatusOK, w.Code)

	env.token = ""
	w = env.do(t, http.MethodPost, "/api/auth/login",
		gin.H{"username": "admin", "password": "another password"})
	assert.Equal(t, http.StatusOK, w.Code)
}
