package resolution

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/syed-c/standzon-sub002/pkg/database"
	"github.com/syed-c/standzon-sub002/pkg/models"
	"github.com/syed-c/standzon-sub002/pkg/tracing"
)

const table = "duplicate_resolutions"

// DefaultListLimit caps a resolution listing when no limit is given
const DefaultListLimit = 100

var columns = []string{
	"id", "tenant_id", "group_id", "reason", "confidence", "strategy",
	"survivor_id", "removed_ids", "performed_by", "performed_at",
}

// Repository stores the audit trail of resolved duplicate groups
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new resolution repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create records a resolution. ID and PerformedAt are filled in when empty.
func (r *Repository) Create(ctx context.Context, res *models.Resolution) (*models.Resolution, error) {
	ctx, span := tracing.StartSpan(ctx, "resolution.Repository.Create")
	defer span.End()

	if res.ID == "" {
		res.ID = uuid.New().String()
	}
	if res.PerformedAt.IsZero() {
		res.PerformedAt = time.Now().UTC()
	}

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto(table)
	ib.Cols(columns...)
	ib.Values(res.ID, res.TenantID, res.GroupID, res.Reason, res.Confidence, res.Strategy,
		res.SurvivorID, res.RemovedIDs, res.PerformedBy, res.PerformedAt)

	query, args := ib.Build()
	if _, err := r.db.Querier(ctx).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"tenant_id":   res.TenantID,
			"group_id":    res.GroupID,
			"survivor_id": res.SurvivorID,
		}).Error("Failed to record duplicate resolution")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to record duplicate resolution")
	}

	return res, nil
}

// List returns the most recent resolutions of a tenant, newest first
func (r *Repository) List(ctx context.Context, tenantID string, limit int) ([]models.Resolution, error) {
	ctx, span := tracing.StartSpan(ctx, "resolution.Repository.List")
	defer span.End()

	if limit <= 0 {
		limit = DefaultListLimit
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.Where(sb.Equal("tenant_id", tenantID))
	sb.OrderBy("performed_at DESC", "id ASC")
	sb.Limit(limit)

	query, args := sb.Build()
	resolutions := make([]models.Resolution, 0)
	if err := r.db.Querier(ctx).SelectContext(ctx, &resolutions, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("tenant_id", tenantID).Error("Failed to list duplicate resolutions")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list duplicate resolutions")
	}

	return resolutions, nil
}
