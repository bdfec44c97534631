// Package duplicates runs duplicate analysis and resolution for a tenant's builders.
package duplicates

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/lib/pq"

	"github.com/syed-c/standzon-sub002/internal/repositories/builder"
	"github.com/syed-c/standzon-sub002/pkg/database"
	"github.com/syed-c/standzon-sub002/pkg/dedup"
	"github.com/syed-c/standzon-sub002/pkg/metrics"
	"github.com/syed-c/standzon-sub002/pkg/models"
	"github.com/syed-c/standzon-sub002/pkg/redis"
	"github.com/syed-c/standzon-sub002/pkg/report"
	"github.com/syed-c/standzon-sub002/pkg/tracing"
)

const lockKeyPrefix = "dedup:resolve:"

// BuilderStore lists builders and removes duplicates
type BuilderStore interface {
	List(ctx context.Context, tenantID string, opts builder.ListOptions) ([]models.Builder, error)
	SoftDeleteAsDuplicates(ctx context.Context, tenantID, survivorID string, removedIDs []string) (int64, error)
}

// ResolutionStore records resolutions
type ResolutionStore interface {
	Create(ctx context.Context, res *models.Resolution) (*models.Resolution, error)
	List(ctx context.Context, tenantID string, limit int) ([]models.Resolution, error)
}

// TxBeginner opens or joins a database transaction
type TxBeginner interface {
	GetTx(ctx context.Context, opts *sql.TxOptions) (context.Context, database.Tx, error)
}

// Locker serializes resolutions per tenant
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(ctx context.Context) error) error
}

// EventEmitter publishes resolution events
type EventEmitter interface {
	EmitResolution(ctx context.Context, res *models.Resolution) error
}

// LineageRecorder records which builder each removed builder duplicated
type LineageRecorder interface {
	RecordDuplicates(ctx context.Context, tenantID, survivorID string, removedIDs []string, reason models.MatchReason) error
}

// Config contains configuration for the service
type Config struct {
	MaxRecords          int           // Largest tenant that can be analyzed; 0 means no limit
	LockTTL             time.Duration // How long a resolution may hold the tenant lock
	PhoneMinDigits      int
	ResolutionListLimit int
}

// Service analyzes and resolves duplicate builders
type Service struct {
	cfg         Config
	logger      ectologger.Logger
	db          TxBeginner
	builders    BuilderStore
	resolutions ResolutionStore
	locker      Locker
	emitter     EventEmitter
	lineage     LineageRecorder
	resolver    *dedup.Resolver
	now         func() time.Time
}

// NewService creates a new duplicate service. The emitter and lineage recorder are optional.
func NewService(
	cfg Config,
	logger ectologger.Logger,
	db TxBeginner,
	builders BuilderStore,
	resolutions ResolutionStore,
	locker Locker,
	emitter EventEmitter,
	lineage LineageRecorder,
) *Service {
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 2 * time.Minute
	}
	if cfg.PhoneMinDigits <= 0 {
		cfg.PhoneMinDigits = dedup.DefaultPhoneMinDigits
	}

	return &Service{
		cfg:         cfg,
		logger:      logger,
		db:          db,
		builders:    builders,
		resolutions: resolutions,
		locker:      locker,
		emitter:     emitter,
		lineage:     lineage,
		resolver:    dedup.NewResolver(dedup.Config{PhoneMinDigits: cfg.PhoneMinDigits}),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Analyze detects the duplicate groups among a tenant's live builders
func (s *Service) Analyze(ctx context.Context, tenantID string) (*models.AnalysisResult, error) {
	ctx, span := tracing.StartSpan(ctx, "duplicates.Service.Analyze")
	defer span.End()

	start := time.Now()
	result, err := s.analyze(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	// only explicit analyses count; resolutions and reports re-analyze internally
	metrics.RecordAnalysis(tenantID, result.Groups, time.Since(start).Seconds())

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"tenant_id":       tenantID,
		"analyzed_count":  result.AnalyzedCount,
		"group_count":     result.GroupCount,
		"duplicate_count": result.DuplicateCount,
	}).Info("Duplicate analysis complete")

	return result, nil
}

// Report renders the current analysis of a tenant as an XLSX workbook
func (s *Service) Report(ctx context.Context, tenantID string) ([]byte, error) {
	ctx, span := tracing.StartSpan(ctx, "duplicates.Service.Report")
	defer span.End()

	result, err := s.analyze(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	data, err := report.GroupsXLSX(result.Groups)
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).WithField("tenant_id", tenantID).Error("Failed to render duplicate report")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to render duplicate report")
	}
	return data, nil
}

// ResolveGroup keeps keepID and removes every other member of the group with the given id.
// The group is looked up in a fresh analysis, so an id from an outdated analysis is rejected.
func (s *Service) ResolveGroup(ctx context.Context, tenantID, groupID, keepID, performedBy string) (*models.Resolution, error) {
	ctx, span := tracing.StartSpan(ctx, "duplicates.Service.ResolveGroup")
	defer span.End()

	var res *models.Resolution
	err := s.withTenantLock(ctx, tenantID, func(ctx context.Context) error {
		analysis, err := s.analyze(ctx, tenantID)
		if err != nil {
			return err
		}

		group, ok := findGroup(analysis.Groups, groupID)
		if !ok {
			return httperror.NewHTTPErrorf(http.StatusConflict, "duplicate group %s no longer exists, re-run the analysis", groupID)
		}

		removed, err := s.resolver.ResolveManually(group, keepID)
		if errors.Is(err, dedup.ErrInvalidKeepID) {
			return httperror.NewHTTPErrorf(http.StatusBadRequest, "builder %s is not a member of duplicate group %s", keepID, groupID)
		}
		if err != nil {
			return err
		}

		resolutions, err := s.commit(ctx, tenantID, models.ResolutionStrategyManual, performedBy, dedup.GroupResolution{
			Group:      group,
			Survivor:   *findMember(group, keepID),
			RemovedIDs: removed,
		})
		if err != nil {
			return err
		}
		res = &resolutions[0]
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, *res)

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"tenant_id":     tenantID,
		"group_id":      groupID,
		"survivor_id":   res.SurvivorID,
		"removed_count": len(res.RemovedIDs),
	}).Info("Duplicate group resolved")

	return res, nil
}

// AutoResolve resolves every high confidence group of a fresh analysis, keeping the best ranked
// member of each. Lower confidence groups are returned for manual review.
func (s *Service) AutoResolve(ctx context.Context, tenantID, performedBy string) (*models.AutoResolveResult, error) {
	ctx, span := tracing.StartSpan(ctx, "duplicates.Service.AutoResolve")
	defer span.End()

	result := &models.AutoResolveResult{
		Resolutions: make([]models.Resolution, 0),
		Remaining:   make([]models.DuplicateGroup, 0),
	}

	err := s.withTenantLock(ctx, tenantID, func(ctx context.Context) error {
		analysis, err := s.analyze(ctx, tenantID)
		if err != nil {
			return err
		}

		auto := s.resolver.AutoResolve(analysis.Groups)
		result.Remaining = auto.Remaining
		if len(auto.Resolved) == 0 {
			return nil
		}

		resolutions, err := s.commit(ctx, tenantID, models.ResolutionStrategyAuto, performedBy, auto.Resolved...)
		if err != nil {
			return err
		}
		result.Resolutions = resolutions
		result.RemovedCount = len(auto.RemovedIDs)
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, res := range result.Resolutions {
		s.publish(ctx, res)
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"tenant_id":       tenantID,
		"group_count":     len(result.Resolutions),
		"removed_count":   result.RemovedCount,
		"remaining_count": len(result.Remaining),
	}).Info("High confidence duplicates resolved")

	return result, nil
}

// ListResolutions returns the most recent resolutions of a tenant
func (s *Service) ListResolutions(ctx context.Context, tenantID string, limit int) ([]models.Resolution, error) {
	ctx, span := tracing.StartSpan(ctx, "duplicates.Service.ListResolutions")
	defer span.End()

	if limit <= 0 || (s.cfg.ResolutionListLimit > 0 && limit > s.cfg.ResolutionListLimit) {
		limit = s.cfg.ResolutionListLimit
	}
	return s.resolutions.List(ctx, tenantID, limit)
}

func (s *Service) analyze(ctx context.Context, tenantID string) (*models.AnalysisResult, error) {
	opts := builder.ListOptions{}
	if s.cfg.MaxRecords > 0 {
		opts.Limit = s.cfg.MaxRecords + 1
	}

	records, err := s.builders.List(ctx, tenantID, opts)
	if err != nil {
		return nil, err
	}
	if s.cfg.MaxRecords > 0 && len(records) > s.cfg.MaxRecords {
		return nil, httperror.NewHTTPErrorf(http.StatusRequestEntityTooLarge,
			"tenant has more than %d builders, which is the most a duplicate analysis can scan", s.cfg.MaxRecords)
	}

	groups := s.resolver.Detect(records)

	duplicates := 0
	for _, g := range groups {
		duplicates += len(g.Duplicates)
	}

	return &models.AnalysisResult{
		Groups:         groups,
		AnalyzedCount:  len(records),
		GroupCount:     len(groups),
		DuplicateCount: duplicates,
		AnalyzedAt:     s.now(),
	}, nil
}

// commit removes the duplicates of every resolved group and records one resolution per group
// in a single transaction
func (s *Service) commit(ctx context.Context, tenantID string, strategy models.ResolutionStrategy, performedBy string, resolved ...dedup.GroupResolution) ([]models.Resolution, error) {
	ctx, tx, err := s.db.GetTx(ctx, nil)
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to start transaction")
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var by *string
	if performedBy != "" {
		by = &performedBy
	}

	resolutions := make([]models.Resolution, 0, len(resolved))
	for _, r := range resolved {
		affected, err := s.builders.SoftDeleteAsDuplicates(ctx, tenantID, r.Survivor.ID, r.RemovedIDs)
		if err != nil {
			return nil, err
		}
		if affected != int64(len(r.RemovedIDs)) {
			s.logger.WithContext(ctx).WithFields(map[string]any{
				"tenant_id": tenantID,
				"group_id":  r.Group.ID,
				"expected":  len(r.RemovedIDs),
				"affected":  affected,
			}).Warn("Removed fewer builders than the group listed")
		}

		res, err := s.resolutions.Create(ctx, &models.Resolution{
			TenantID:    tenantID,
			GroupID:     r.Group.ID,
			Reason:      r.Group.Reason,
			Confidence:  r.Group.Confidence,
			Strategy:    strategy,
			SurvivorID:  r.Survivor.ID,
			RemovedIDs:  pq.StringArray(r.RemovedIDs),
			PerformedBy: by,
			PerformedAt: s.now(),
		})
		if err != nil {
			return nil, err
		}
		resolutions = append(resolutions, *res)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to commit duplicate resolution")
	}

	for _, res := range resolutions {
		metrics.RecordRemoval(tenantID, strategy, len(res.RemovedIDs))
	}
	return resolutions, nil
}

// publish records lineage and emits events for a committed resolution. Failures are logged only.
func (s *Service) publish(ctx context.Context, res models.Resolution) {
	log := s.logger.WithContext(ctx).WithFields(map[string]any{
		"tenant_id": res.TenantID,
		"group_id":  res.GroupID,
	})

	if s.lineage != nil {
		if err := s.lineage.RecordDuplicates(ctx, res.TenantID, res.SurvivorID, res.RemovedIDs, res.Reason); err != nil {
			log.WithError(err).Warn("Failed to record duplicate lineage")
		}
	}

	if s.emitter != nil {
		if err := s.emitter.EmitResolution(ctx, &res); err != nil {
			log.WithError(err).Warn("Failed to emit resolution events")
		}
	}
}

func (s *Service) withTenantLock(ctx context.Context, tenantID string, fn func(ctx context.Context) error) error {
	if s.locker == nil {
		return fn(ctx)
	}

	err := s.locker.WithLock(ctx, lockKeyPrefix+tenantID, s.cfg.LockTTL, fn)
	if errors.Is(err, redis.ErrLockNotAcquired) {
		return httperror.NewHTTPError(http.StatusConflict, "duplicate resolution already in progress")
	}
	return err
}

func findGroup(groups []models.DuplicateGroup, id string) (models.DuplicateGroup, bool) {
	for _, g := range groups {
		if g.ID == id {
			return g, true
		}
	}
	return models.DuplicateGroup{}, false
}

func findMember(group models.DuplicateGroup, id string) *models.Builder {
	for i := range group.Duplicates {
		if group.Duplicates[i].ID == id {
			return &group.Duplicates[i]
		}
	}
	return nil
}
