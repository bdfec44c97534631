package builders

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syed-c/standzon-sub002/internal/repositories/builder"
	"github.com/syed-c/standzon-sub002/pkg/di"
	"github.com/syed-c/standzon-sub002/pkg/extractor"
	"github.com/syed-c/standzon-sub002/pkg/middleware"
	"github.com/syed-c/standzon-sub002/pkg/models"
)

type fakeStore struct {
	listOpts builder.ListOptions
	upserted []models.Builder
	deleted  string
	builders map[string]models.Builder
}

func (f *fakeStore) List(_ context.Context, _ string, opts builder.ListOptions) ([]models.Builder, error) {
	f.listOpts = opts
	return []models.Builder{{ID: "b1", CompanyName: "Expo Stands"}}, nil
}

func (f *fakeStore) Get(_ context.Context, _ string, id string) (*models.Builder, error) {
	b, ok := f.builders[id]
	if !ok {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "builder not found")
	}
	return &b, nil
}

func (f *fakeStore) UpsertBatch(_ context.Context, tenantID string, builders []models.Builder) (int64, error) {
	for i := range builders {
		builders[i].TenantID = tenantID
	}
	f.upserted = builders
	return int64(len(builders)), nil
}

func (f *fakeStore) Delete(_ context.Context, _ string, id string) error {
	if _, ok := f.builders[id]; !ok {
		return httperror.NewHTTPError(http.StatusNotFound, "builder not found")
	}
	f.deleted = id
	return nil
}

type fakeLineage struct {
	ids []string
	err error
}

func (f *fakeLineage) Lineage(context.Context, string, string) ([]string, error) {
	return f.ids, f.err
}

// newServer serves the builder routes from a fresh container. A nil lineage leaves lineage disabled.
func newServer(t *testing.T, store Store, lineage LineageReader) *echo.Echo {
	t.Helper()
	logger := ectologger.NewEctoLogger(func(ectologger.EctoLogMessage) {})

	id := uuid.NewString()
	container, err := di.NewContainer(id, logger)
	require.NoError(t, err)
	require.NoError(t, di.Register[Store](container, store))
	require.NoError(t, di.Register(container, extractor.NewBuilderMapper(extractor.DefaultPaths())))
	require.NoError(t, di.Register[LineageReader](container, lineage))

	e := echo.New()
	e.HTTPErrorHandler = middleware.Error(logger)
	e.Use(middleware.Context())
	e.Use(middleware.Container(id))
	Register(e.Group("/api/v1/builders", middleware.RequireTenant()))
	return e
}

func do(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(middleware.HeaderTenantID, "t1")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestList(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantCode   int
		wantLimit  int
		wantSearch string
	}{
		{name: "defaults", query: "", wantCode: http.StatusOK, wantLimit: defaultListLimit},
		{name: "limit and search", query: "?limit=10&search=expo", wantCode: http.StatusOK, wantLimit: 10, wantSearch: "expo"},
		{name: "limit too large", query: "?limit=5000", wantCode: http.StatusBadRequest},
		{name: "limit not a number", query: "?limit=ten", wantCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{}
			rec := do(newServer(t, store, nil), http.MethodGet, "/api/v1/builders"+tt.query, "")

			require.Equal(t, tt.wantCode, rec.Code)
			if tt.wantCode == http.StatusOK {
				assert.Equal(t, tt.wantLimit, store.listOpts.Limit)
				assert.Equal(t, tt.wantSearch, store.listOpts.Search)
			}
		})
	}
}

func TestImport(t *testing.T) {
	t.Run("maps and stores documents", func(t *testing.T) {
		store := &fakeStore{}
		body := `[
			{"id": "b1", "companyName": "Expo Stands", "contactInfo": {"primaryEmail": "info@expo.com"}, "headquarters": {"city": "Berlin", "country": "Germany"}},
			{"company_name": "Stand Co", "primary_email": "hi@standco.com"}
		]`
		rec := do(newServer(t, store, nil), http.MethodPost, "/api/v1/builders/import", body)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp ImportResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, int64(2), resp.Imported)

		require.Len(t, store.upserted, 2)
		assert.Equal(t, "info@expo.com", store.upserted[0].Email)
		assert.Equal(t, "Berlin", store.upserted[0].City)
		assert.Equal(t, extractor.UnknownLocation, store.upserted[1].City)
		assert.NotEmpty(t, store.upserted[1].ID)
		assert.Equal(t, "t1", store.upserted[1].TenantID)
	})

	t.Run("empty body", func(t *testing.T) {
		rec := do(newServer(t, &fakeStore{}, nil), http.MethodPost, "/api/v1/builders/import", `[]`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("repeated id", func(t *testing.T) {
		store := &fakeStore{}
		body := `[{"id": "b1", "companyName": "Expo"}, {"id": "b2"}, {"_id": "b1", "companyName": "Expo again"}]`
		rec := do(newServer(t, store, nil), http.MethodPost, "/api/v1/builders/import", body)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "b1")
		assert.Nil(t, store.upserted)
	})

	t.Run("invalid document", func(t *testing.T) {
		rec := do(newServer(t, &fakeStore{}, nil), http.MethodPost, "/api/v1/builders/import", `[{"rating": "excellent"}]`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestGetAndDelete(t *testing.T) {
	store := &fakeStore{builders: map[string]models.Builder{"b1": {ID: "b1", CompanyName: "Expo Stands"}}}
	e := newServer(t, store, nil)

	rec := do(e, http.MethodGet, "/api/v1/builders/b1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var b models.Builder
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &b))
	assert.Equal(t, "Expo Stands", b.CompanyName)

	assert.Equal(t, http.StatusNotFound, do(e, http.MethodGet, "/api/v1/builders/missing", "").Code)

	assert.Equal(t, http.StatusNoContent, do(e, http.MethodDelete, "/api/v1/builders/b1", "").Code)
	assert.Equal(t, "b1", store.deleted)
	assert.Equal(t, http.StatusNotFound, do(e, http.MethodDelete, "/api/v1/builders/missing", "").Code)
}

func TestLineage(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		rec := do(newServer(t, &fakeStore{}, nil), http.MethodGet, "/api/v1/builders/b1/lineage", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("returns duplicate ids", func(t *testing.T) {
		rec := do(newServer(t, &fakeStore{}, &fakeLineage{ids: []string{"b2", "b3"}}), http.MethodGet, "/api/v1/builders/b1/lineage", "")

		require.Equal(t, http.StatusOK, rec.Code)
		var resp LineageResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "b1", resp.BuilderID)
		assert.Equal(t, []string{"b2", "b3"}, resp.DuplicateIDs)
	})

	t.Run("graph failure", func(t *testing.T) {
		rec := do(newServer(t, &fakeStore{}, &fakeLineage{err: errors.New("graph down")}), http.MethodGet, "/api/v1/builders/b1/lineage", "")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestStoreNotRegistered(t *testing.T) {
	logger := ectologger.NewEctoLogger(func(ectologger.EctoLogMessage) {})
	id := uuid.NewString()
	_, err := di.NewContainer(id, logger)
	require.NoError(t, err)

	e := echo.New()
	e.HTTPErrorHandler = middleware.Error(logger)
	e.Use(middleware.Context(), middleware.Container(id))
	Register(e.Group("/api/v1/builders", middleware.RequireTenant()))

	assert.Equal(t, http.StatusInternalServerError, do(e, http.MethodGet, "/api/v1/builders", "").Code)
	assert.Equal(t, http.StatusInternalServerError, do(e, http.MethodGet, "/api/v1/builders/b1", "").Code)
	assert.Equal(t, http.StatusInternalServerError, do(e, http.MethodPost, "/api/v1/builders/import", `[{"id": "b1"}]`).Code)
}
