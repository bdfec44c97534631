package builders

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	"github.com/syed-c/standzon-sub002/internal/repositories/builder"
	"github.com/syed-c/standzon-sub002/pkg/appctx"
	"github.com/syed-c/standzon-sub002/pkg/extractor"
	"github.com/syed-c/standzon-sub002/pkg/models"
	"github.com/syed-c/standzon-sub002/pkg/utils"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
	maxImportSize    = 5000
)

// Store is the builder persistence behind the routes
type Store interface {
	List(ctx context.Context, tenantID string, opts builder.ListOptions) ([]models.Builder, error)
	Get(ctx context.Context, tenantID, id string) (*models.Builder, error)
	UpsertBatch(ctx context.Context, tenantID string, builders []models.Builder) (int64, error)
	Delete(ctx context.Context, tenantID, id string) error
}

// LineageReader returns the builders that were merged into a survivor
type LineageReader interface {
	Lineage(ctx context.Context, tenantID, survivorID string) ([]string, error)
}

// ImportResponse reports the result of a builder import
type ImportResponse struct {
	Imported int64 `json:"imported"`
}

// LineageResponse lists the builders removed as duplicates of a survivor
type LineageResponse struct {
	BuilderID    string   `json:"builder_id"`
	DuplicateIDs []string `json:"duplicate_ids"`
}

// Register registers builder routes. The lineage route answers 404 when no LineageReader is registered.
func Register(g *echo.Group) {
	g.GET("", List)
	g.POST("/import", Import)
	g.GET("/:id", Get)
	g.GET("/:id/lineage", Lineage)
	g.DELETE("/:id", Delete)
}

// List returns the tenant's live builders
func List(c echo.Context) error {
	ctx := c.Request().Context()

	opts := builder.ListOptions{Limit: defaultListLimit}
	if err := echo.QueryParamsBinder(c).
		Int("limit", &opts.Limit).
		String("search", &opts.Search).
		BindError(); err != nil {
		return httperror.WrapError(http.StatusBadRequest, err)
	}
	if err := utils.ValidateValue(opts.Limit, fmt.Sprintf("gte=1,lte=%d", maxListLimit)); err != nil {
		return httperror.NewHTTPErrorf(http.StatusBadRequest, "limit must be between 1 and %d", maxListLimit)
	}

	ctx, store, err := ectoinject.GetContext[Store](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	builders, err := store.List(ctx, appctx.GetTenantID(ctx), opts)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, builders)
}

// Import maps upstream builder documents and upserts them
func Import(c echo.Context) error {
	ctx := c.Request().Context()

	var docs []map[string]any
	if err := c.Bind(&docs); err != nil {
		return httperror.WrapError(http.StatusBadRequest, err)
	}
	if len(docs) == 0 {
		return httperror.NewHTTPError(http.StatusBadRequest, "request body must be a non-empty array of builders")
	}
	if len(docs) > maxImportSize {
		return httperror.NewHTTPErrorf(http.StatusRequestEntityTooLarge, "at most %d builders can be imported at once", maxImportSize)
	}

	ctx, mapper, err := ectoinject.GetContext[*extractor.BuilderMapper](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}
	ctx, store, err := ectoinject.GetContext[Store](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	builders, err := mapper.MapAll(docs)
	if err != nil {
		return httperror.WrapError(http.StatusBadRequest, err)
	}

	imported, err := store.UpsertBatch(ctx, appctx.GetTenantID(ctx), builders)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, ImportResponse{Imported: imported})
}

// Get returns a single builder
func Get(c echo.Context) error {
	ctx := c.Request().Context()

	ctx, store, err := ectoinject.GetContext[Store](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	b, err := store.Get(ctx, appctx.GetTenantID(ctx), c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, b)
}

// Lineage returns the builders removed as duplicates of the given builder
func Lineage(c echo.Context) error {
	ctx := c.Request().Context()

	ctx, lineage, err := ectoinject.GetContext[LineageReader](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusNotFound, "duplicate lineage is not enabled")
	}

	id := c.Param("id")
	ids, err := lineage.Lineage(ctx, appctx.GetTenantID(ctx), id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, LineageResponse{BuilderID: id, DuplicateIDs: ids})
}

// Delete permanently removes a builder
func Delete(c echo.Context) error {
	ctx := c.Request().Context()

	ctx, store, err := ectoinject.GetContext[Store](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	if err := store.Delete(ctx, appctx.GetTenantID(ctx), c.Param("id")); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}
