package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ok(context.Context) error { return nil }

func failing(msg string) CheckFunc {
	return func(context.Context) error { return errors.New(msg) }
}

func serve(t *testing.T, c *Checker, path string) (int, Response) {
	t.Helper()
	e := echo.New()
	c.RegisterRoutes(e)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec.Code, resp
}

func TestChecker_Health(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]CheckFunc
		critical   map[string]bool
		wantCode   int
		wantStatus Status
	}{
		{
			name:       "all healthy",
			checks:     map[string]CheckFunc{"database": ok, "redis": ok},
			critical:   map[string]bool{"database": true, "redis": true},
			wantCode:   http.StatusOK,
			wantStatus: StatusHealthy,
		},
		{
			name:       "critical failure",
			checks:     map[string]CheckFunc{"database": failing("connection refused"), "redis": ok},
			critical:   map[string]bool{"database": true, "redis": true},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: StatusUnhealthy,
		},
		{
			name:       "optional failure degrades",
			checks:     map[string]CheckFunc{"database": ok, "graph": failing("no route")},
			critical:   map[string]bool{"database": true},
			wantCode:   http.StatusOK,
			wantStatus: StatusDegraded,
		},
		{
			name:       "no checks",
			wantCode:   http.StatusOK,
			wantStatus: StatusHealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChecker("test")
			for name, fn := range tt.checks {
				c.AddCheck(name, fn, tt.critical[name])
			}

			code, resp := serve(t, c, "/api/v1/health")
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantStatus, resp.Status)
			assert.Len(t, resp.Checks, len(tt.checks))
		})
	}
}

func TestChecker_Readiness(t *testing.T) {
	c := NewChecker("test")
	c.AddCheck("database", ok, true)

	code, resp := serve(t, c, "/api/v1/health/ready")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Contains(t, resp.Checks, "startup")

	c.SetReady(true)
	code, resp = serve(t, c, "/api/v1/health/ready")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, StatusHealthy, resp.Checks["database"].Status)
}

func TestChecker_Liveness(t *testing.T) {
	c := NewChecker("1.2.3")
	c.AddCheck("database", failing("down"), true)

	code, resp := serve(t, c, "/api/v1/health/live")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "1.2.3", resp.Version)
	assert.Empty(t, resp.Checks)
}
