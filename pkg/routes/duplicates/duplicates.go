package duplicates

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	"github.com/syed-c/standzon-sub002/pkg/appctx"
	"github.com/syed-c/standzon-sub002/pkg/fingerprint"
	"github.com/syed-c/standzon-sub002/pkg/models"
	"github.com/syed-c/standzon-sub002/pkg/report"
	"github.com/syed-c/standzon-sub002/pkg/utils"
)

// Service is the duplicate workflow behind the routes
type Service interface {
	Analyze(ctx context.Context, tenantID string) (*models.AnalysisResult, error)
	Report(ctx context.Context, tenantID string) ([]byte, error)
	ResolveGroup(ctx context.Context, tenantID, groupID, keepID, performedBy string) (*models.Resolution, error)
	AutoResolve(ctx context.Context, tenantID, performedBy string) (*models.AutoResolveResult, error)
	ListResolutions(ctx context.Context, tenantID string, limit int) ([]models.Resolution, error)
}

// Register registers duplicate routes
func Register(g *echo.Group) {
	g.POST("/analyze", Analyze)
	g.POST("/groups/:id/resolve", ResolveGroup)
	g.POST("/auto-resolve", AutoResolve)
	g.GET("/resolutions", ListResolutions)
	g.GET("/report.xlsx", Report)
}

// Analyze runs a duplicate analysis over the tenant's builders
func Analyze(c echo.Context) error {
	ctx := c.Request().Context()

	ctx, svc, err := ectoinject.GetContext[Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	result, err := svc.Analyze(ctx, appctx.GetTenantID(ctx))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}

// ResolveGroup keeps one builder of a duplicate group and removes the others
func ResolveGroup(c echo.Context) error {
	ctx := c.Request().Context()

	groupID := c.Param("id")
	if !fingerprint.IsGroupID(groupID) {
		return httperror.NewHTTPErrorf(http.StatusBadRequest, "%q is not a duplicate group id", groupID)
	}

	req, err := utils.BindRequest[models.ResolveGroupRequest](c)
	if err != nil {
		return err
	}

	ctx, svc, err := ectoinject.GetContext[Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	res, err := svc.ResolveGroup(ctx, appctx.GetTenantID(ctx), groupID, req.KeepID, appctx.GetUserID(ctx))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, res)
}

// AutoResolve resolves every high confidence duplicate group
func AutoResolve(c echo.Context) error {
	ctx := c.Request().Context()

	ctx, svc, err := ectoinject.GetContext[Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	result, err := svc.AutoResolve(ctx, appctx.GetTenantID(ctx), appctx.GetUserID(ctx))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}

// ListResolutions returns the resolution audit trail
func ListResolutions(c echo.Context) error {
	ctx := c.Request().Context()

	var limit int
	if err := echo.QueryParamsBinder(c).Int("limit", &limit).BindError(); err != nil {
		return httperror.WrapError(http.StatusBadRequest, err)
	}

	ctx, svc, err := ectoinject.GetContext[Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	resolutions, err := svc.ListResolutions(ctx, appctx.GetTenantID(ctx), limit)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, resolutions)
}

// Report downloads the current analysis as a spreadsheet
func Report(c echo.Context) error {
	ctx := c.Request().Context()

	ctx, svc, err := ectoinject.GetContext[Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	data, err := svc.Report(ctx, appctx.GetTenantID(ctx))
	if err != nil {
		return err
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="duplicates.xlsx"`)
	return c.Blob(http.StatusOK, report.ContentType, data)
}
