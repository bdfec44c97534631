package graph

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/syed-c/standzon-sub002/pkg/models"
	"github.com/syed-c/standzon-sub002/pkg/tracing"
)

// DuplicateOf is the edge from a removed builder to the builder that replaced it
const DuplicateOf = "DUPLICATE_OF"

const recordDuplicatesCypher = `
	MERGE (survivor:Builder {id: $survivor_id, tenant_id: $tenant_id})
	WITH survivor
	UNWIND $removed_ids AS removed_id
	MERGE (removed:Builder {id: removed_id, tenant_id: $tenant_id})
	MERGE (removed)-[r:DUPLICATE_OF]->(survivor)
	SET r.reason = $reason, r.resolved_at = $resolved_at
`

// removed builders are followed transitively, a survivor can later be removed itself
const lineageCypher = `
	MATCH (removed:Builder {tenant_id: $tenant_id})-[:DUPLICATE_OF*1..]->(survivor:Builder {id: $survivor_id, tenant_id: $tenant_id})
	RETURN DISTINCT removed.id AS id
	ORDER BY id
`

// LineageService records which builders were collapsed into which
type LineageService struct {
	client *Client
	logger ectologger.Logger
}

// NewLineageService creates a new lineage service
func NewLineageService(client *Client, logger ectologger.Logger) *LineageService {
	return &LineageService{
		client: client,
		logger: logger,
	}
}

func recordDuplicatesParams(tenantID, survivorID string, removedIDs []string, reason models.MatchReason, resolvedAt time.Time) map[string]any {
	removed := make([]any, len(removedIDs))
	for i, id := range removedIDs {
		removed[i] = id
	}
	return map[string]any{
		"tenant_id":   tenantID,
		"survivor_id": survivorID,
		"removed_ids": removed,
		"reason":      string(reason),
		"resolved_at": resolvedAt.UTC().Format(time.RFC3339),
	}
}

// RecordDuplicates links every removed builder to the survivor with a DUPLICATE_OF edge
func (s *LineageService) RecordDuplicates(ctx context.Context, tenantID, survivorID string, removedIDs []string, reason models.MatchReason) error {
	ctx, span := tracing.StartSpan(ctx, "graph.LineageService.RecordDuplicates")
	defer span.End()

	if len(removedIDs) == 0 {
		return nil
	}

	params := recordDuplicatesParams(tenantID, survivorID, removedIDs, reason, time.Now())
	_, err := s.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, recordDuplicatesCypher, params)
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"tenant_id":   tenantID,
			"survivor_id": survivorID,
		}).Error("Failed to record duplicate lineage")
		return err
	}

	return nil
}

// Lineage returns the ids of every builder that was collapsed into survivorID, directly or transitively
func (s *LineageService) Lineage(ctx context.Context, tenantID, survivorID string) ([]string, error) {
	ctx, span := tracing.StartSpan(ctx, "graph.LineageService.Lineage")
	defer span.End()

	res, err := s.client.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, lineageCypher, map[string]any{
			"tenant_id":   tenantID,
			"survivor_id": survivorID,
		})
		if err != nil {
			return nil, err
		}

		ids := make([]string, 0)
		for result.Next(ctx) {
			if id, ok := result.Record().Get("id"); ok {
				if str, ok := id.(string); ok {
					ids = append(ids, str)
				}
			}
		}
		return ids, result.Err()
	})
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).WithField("survivor_id", survivorID).Error("Failed to read duplicate lineage")
		return nil, err
	}

	return res.([]string), nil
}
