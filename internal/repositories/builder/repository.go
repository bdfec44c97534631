package builder

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/syed-c/standzon-sub002/pkg/database"
	"github.com/syed-c/standzon-sub002/pkg/models"
	"github.com/syed-c/standzon-sub002/pkg/tracing"
)

const table = "builders"

var columns = []string{
	"id", "tenant_id", "company_name", "email", "phone", "contact_person", "website",
	"city", "country", "verified", "rating", "projects_completed", "source", "gmb_imported",
	"claim_status", "duplicate_of_id", "created_at", "updated_at", "deleted_at",
}

// columns refreshed from an import; identity, lineage and timestamps of creation are kept
var upsertColumns = []string{
	"company_name", "email", "phone", "contact_person", "website", "city", "country",
	"verified", "rating", "projects_completed", "source", "gmb_imported", "claim_status", "updated_at",
}

// ListOptions filters a builder listing
type ListOptions struct {
	Limit          int
	Search         string
	IncludeDeleted bool
}

// Repository handles builder persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new builder repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// DB returns the underlying database
func (r *Repository) DB() database.DB {
	return r.db
}

// List returns the builders of a tenant ordered by creation time then id, so repeated
// listings of an unchanged table return the same order.
func (r *Repository) List(ctx context.Context, tenantID string, opts ListOptions) ([]models.Builder, error) {
	ctx, span := tracing.StartSpan(ctx, "builder.Repository.List")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)

	where := []string{sb.Equal("tenant_id", tenantID)}
	if !opts.IncludeDeleted {
		where = append(where, sb.IsNull("deleted_at"))
	}
	if search := strings.TrimSpace(opts.Search); search != "" {
		pattern := "%" + search + "%"
		where = append(where, fmt.Sprintf("(company_name ILIKE %s OR email ILIKE %s)", sb.Var(pattern), sb.Var(pattern)))
	}
	sb.Where(where...)
	sb.OrderBy("created_at ASC", "id ASC")
	if opts.Limit > 0 {
		sb.Limit(opts.Limit)
	}

	query, args := sb.Build()
	builders := make([]models.Builder, 0)
	if err := r.db.Querier(ctx).SelectContext(ctx, &builders, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("tenant_id", tenantID).Error("Failed to list builders")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list builders")
	}

	return builders, nil
}

// UpsertBatch inserts builders or refreshes the existing rows with the same id.
// Builders without an id are given one. It returns the number of rows written.
func (r *Repository) UpsertBatch(ctx context.Context, tenantID string, builders []models.Builder) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "builder.Repository.UpsertBatch")
	defer span.End()

	if len(builders) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	ib := database.NewInsertBuilder()
	ib.InsertInto(table)
	ib.Cols(columns[:len(columns)-1]...) // deleted_at is never imported

	for i := range builders {
		b := &builders[i]
		if b.ID == "" {
			b.ID = uuid.New().String()
		}
		if b.ClaimStatus == "" {
			b.ClaimStatus = models.ClaimStatusUnclaimed
		}
		b.TenantID = tenantID
		if b.CreatedAt.IsZero() {
			b.CreatedAt = now
		}
		b.UpdatedAt = now

		ib.Values(b.ID, b.TenantID, b.CompanyName, b.Email, b.Phone, b.ContactPerson, b.Website,
			b.City, b.Country, b.Verified, b.Rating, b.ProjectsCompleted, b.Source, b.GMBImported,
			b.ClaimStatus, b.DuplicateOfID, b.CreatedAt, b.UpdatedAt)
	}
	ib.OnConflictUpdate([]string{"tenant_id", "id"}, upsertColumns...)

	query, args := ib.Build()
	result, err := r.db.Querier(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"tenant_id": tenantID,
			"count":     len(builders),
		}).Error("Failed to upsert builders")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to import builders")
	}

	rows, _ := result.RowsAffected()
	r.logger.WithContext(ctx).WithFields(map[string]any{"tenant_id": tenantID, "rows": rows}).Info("Imported builders")
	return rows, nil
}

// SoftDeleteAsDuplicates marks the removed builders as deleted duplicates of the survivor.
// Rows already deleted are left alone. It returns the number of rows marked.
func (r *Repository) SoftDeleteAsDuplicates(ctx context.Context, tenantID, survivorID string, removedIDs []string) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "builder.Repository.SoftDeleteAsDuplicates")
	defer span.End()

	if len(removedIDs) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update(table)
	ub.Set(
		ub.Assign("deleted_at", now),
		ub.Assign("duplicate_of_id", survivorID),
		ub.Assign("updated_at", now),
	)
	ub.Where(
		ub.Equal("tenant_id", tenantID),
		ub.In("id", sqlbuilder.Flatten(removedIDs)...),
		ub.NotEqual("id", survivorID),
		ub.IsNull("deleted_at"),
	)

	query, args := ub.Build()
	result, err := r.db.Querier(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"tenant_id":   tenantID,
			"survivor_id": survivorID,
		}).Error("Failed to remove duplicate builders")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to remove duplicate builders")
	}

	rows, _ := result.RowsAffected()
	return rows, nil
}

// Delete permanently removes a single builder
func (r *Repository) Delete(ctx context.Context, tenantID, id string) error {
	ctx, span := tracing.StartSpan(ctx, "builder.Repository.Delete")
	defer span.End()

	del := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	del.DeleteFrom(table)
	del.Where(
		del.Equal("tenant_id", tenantID),
		del.Equal("id", id),
	)

	query, args := del.Build()
	result, err := r.db.Querier(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("id", id).Error("Failed to delete builder")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete builder")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("builder %s not found", id))
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"tenant_id": tenantID, "id": id}).Info("Deleted builder")
	return nil
}

// Get returns one builder, including deleted ones
func (r *Repository) Get(ctx context.Context, tenantID, id string) (*models.Builder, error) {
	ctx, span := tracing.StartSpan(ctx, "builder.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("id", id),
	)

	query, args := sb.Build()
	var b models.Builder
	if err := r.db.Querier(ctx).GetContext(ctx, &b, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("builder %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).WithField("id", id).Error("Failed to get builder")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get builder")
	}

	return &b, nil
}
