package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syed-c/standzon-sub002/pkg/appctx"
	"github.com/syed-c/standzon-sub002/pkg/di"
)

func newTestServer(handler echo.HandlerFunc) *echo.Echo {
	logger := ectologger.NewEctoLogger(func(ectologger.EctoLogMessage) {})
	e := echo.New()
	e.HTTPErrorHandler = Error(logger)
	e.Use(Context())
	e.Use(Logger(logger))
	e.GET("/test", handler)
	return e
}

func TestContext(t *testing.T) {
	var tenantID, userID, requestID string
	e := newTestServer(func(c echo.Context) error {
		ctx := c.Request().Context()
		tenantID = appctx.GetTenantID(ctx)
		userID = appctx.GetUserID(ctx)
		requestID = appctx.GetRequestID(ctx)
		return c.NoContent(http.StatusNoContent)
	})

	t.Run("headers populate context", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(HeaderTenantID, "tenant-1")
		req.Header.Set(HeaderUserID, "admin-1")
		req.Header.Set(echo.HeaderXRequestID, "req-1")
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "tenant-1", tenantID)
		assert.Equal(t, "admin-1", userID)
		assert.Equal(t, "req-1", requestID)
		assert.Equal(t, "req-1", rec.Header().Get(echo.HeaderXRequestID))
	})

	t.Run("request id is generated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		assert.NotEmpty(t, requestID)
		assert.Equal(t, requestID, rec.Header().Get(echo.HeaderXRequestID))
	})
}

func TestError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		code    int
		message string
	}{
		{
			name:    "http error keeps status",
			err:     httperror.NewHTTPError(http.StatusConflict, "duplicate group is stale"),
			code:    http.StatusConflict,
			message: "duplicate group is stale",
		},
		{
			name:    "echo error",
			err:     echo.NewHTTPError(http.StatusNotFound, "not found"),
			code:    http.StatusNotFound,
			message: "not found",
		},
		{
			name:    "plain error is internal",
			err:     errors.New("boom"),
			code:    http.StatusInternalServerError,
			message: "Internal Server Error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestServer(func(c echo.Context) error { return tt.err })
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			req.Header.Set(echo.HeaderXRequestID, "req-9")
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			assert.Equal(t, tt.code, rec.Code)
			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Contains(t, body.Message, tt.message)
			assert.Equal(t, "req-9", body.RequestID)
		})
	}
}

func TestRequireTenant(t *testing.T) {
	logger := ectologger.NewEctoLogger(func(ectologger.EctoLogMessage) {})
	e := echo.New()
	e.HTTPErrorHandler = Error(logger)
	e.Use(Context())
	e.GET("/tenant", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	}, RequireTenant())

	t.Run("missing tenant", func(t *testing.T) {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tenant", nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		var body ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Contains(t, body.Message, HeaderTenantID)
	})

	t.Run("tenant present", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/tenant", nil)
		req.Header.Set(HeaderTenantID, "tenant-1")
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}

func TestContainer(t *testing.T) {
	logger := ectologger.NewEctoLogger(func(ectologger.EctoLogMessage) {})
	id := uuid.NewString()
	_, err := di.NewContainer(id, logger)
	require.NoError(t, err)

	handler := func(c echo.Context) error {
		active, err := ectoinject.GetActiveContainer(c.Request().Context())
		if err != nil {
			return err
		}
		return c.String(http.StatusOK, active.GetContainerID())
	}

	t.Run("known container is activated", func(t *testing.T) {
		e := echo.New()
		e.HTTPErrorHandler = Error(logger)
		e.GET("/test", handler, Container(id))

		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, id, rec.Body.String())
	})

	t.Run("unknown container", func(t *testing.T) {
		e := echo.New()
		e.HTTPErrorHandler = Error(logger)
		e.GET("/test", handler, Container("missing-"+id))

		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test", nil))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}
