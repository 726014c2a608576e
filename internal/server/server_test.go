package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/pricepoint/internal/config"
	"github.com/aristath/pricepoint/internal/di"
	"github.com/aristath/pricepoint/internal/modules/users"
)

func newTestServer(t *testing.T) (*Server, *di.Container) {
	t.Helper()

	cfg := &config.Config{
		DataDir:                t.TempDir(),
		Port:                   8080,
		JWTSecret:              "test-secret",
		JWTTTL:                 time.Hour,
		RecommendationSchedule: "0 0 3 * * *",
		CacheCleanupSchedule:   "0 */30 * * * *",
		MaintenanceSchedule:    "0 0 4 * * *",
		Backup:                 &config.BackupConfig{},
	}

	container, _, err := di.Wire(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() {
		container.Scheduler.Stop()
		_ = container.Close()
	})

	s := New(Config{Log: zerolog.Nop(), Port: cfg.Port, DevMode: true, Container: container})
	s.systemHandlers.cpuPercent = func(time.Duration, bool) ([]float64, error) { return []float64{12.5}, nil }
	s.systemHandlers.virtualMemory = func() (*mem.VirtualMemoryStat, error) {
		return &mem.VirtualMemoryStat{UsedPercent: 40}, nil
	}
	return s, container
}

func registerUser(t *testing.T, container *di.Container, name string) (int64, string) {
	t.Helper()

	user, err := container.UserService.Register(context.Background(), users.RegisterRequest{
		Username: name,
		Email:    name + "@example.com",
		Password: "long-enough",
	})
	require.NoError(t, err)

	token, _, err := container.TokenManager.Issue(user.ID)
	require.NoError(t, err)
	return user.ID, token
}

func doRequest(t *testing.T, s *Server, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Status    string            `json:"status"`
		Databases map[string]string `json:"databases"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, map[string]string{"catalog": "ok", "ledger": "ok", "cache": "ok"}, body.Databases)
}

func TestAPI_RequiresToken(t *testing.T) {
	s, _ := newTestServer(t)

	for _, path := range []string{"/api/products", "/api/me", "/api/dashboard", "/api/system/status", "/api/events/stream"} {
		rec := doRequest(t, s, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}

	rec := doRequest(t, s, http.MethodGet, "/api/products", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPI_RegisterLoginAndUse(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "shop",
		"email":    "shop@example.com",
		"password": "long-enough",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doRequest(t, s, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "shop@example.com",
		"password": "long-enough",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var login users.LoginResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))
	require.NotEmpty(t, login.Token)

	rec = doRequest(t, s, http.MethodPost, "/api/products", login.Token, map[string]interface{}{
		"name":          "Mug",
		"current_price": 12.0,
		"stock_level":   5,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doRequest(t, s, http.MethodGet, "/api/dashboard", login.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var stats struct {
		ProductCount int `json:"product_count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.ProductCount)
}

func TestCORSPreflight(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/products", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "Authorization")

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
