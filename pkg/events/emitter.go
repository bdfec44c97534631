// Package events publishes builder lifecycle changes caused by duplicate resolution
package events

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/syed-c/standzon-sub002/pkg/appctx"
	"github.com/syed-c/standzon-sub002/pkg/kafka"
	"github.com/syed-c/standzon-sub002/pkg/models"
	"github.com/syed-c/standzon-sub002/pkg/tracing"
)

// SchemaVersion is the current event schema version
const SchemaVersion = "1.0"

// Publisher writes messages to the event stream
type Publisher interface {
	Publish(ctx context.Context, messages ...kafka.Message) error
}

// Emitter handles event emission
type Emitter struct {
	publisher Publisher
	logger    ectologger.Logger
	now       func() time.Time
}

// NewEmitter creates a new event emitter
func NewEmitter(publisher Publisher, logger ectologger.Logger) *Emitter {
	return &Emitter{
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (e *Emitter) base(ctx context.Context, eventType EventType, tenantID string) BaseEvent {
	return BaseEvent{
		EventType:     eventType,
		SchemaVersion: SchemaVersion,
		TenantID:      tenantID,
		Timestamp:     e.now(),
		CorrelationID: appctx.GetRequestID(ctx),
	}
}

// EmitResolution emits duplicates.resolved for the group followed by one
// builder.removed per removed builder, in a single batch.
func (e *Emitter) EmitResolution(ctx context.Context, res *models.Resolution) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitResolution")
	defer span.End()

	messages := make([]kafka.Message, 0, len(res.RemovedIDs)+1)
	messages = append(messages, kafka.Message{
		Key:       res.SurvivorID,
		EventType: string(EventTypeDuplicatesResolved),
		TenantID:  res.TenantID,
		Version:   SchemaVersion,
		Payload: DuplicatesResolvedEvent{
			BaseEvent:    e.base(ctx, EventTypeDuplicatesResolved, res.TenantID),
			ResolutionID: res.ID,
			GroupID:      res.GroupID,
			Reason:       string(res.Reason),
			Confidence:   string(res.Confidence),
			Strategy:     string(res.Strategy),
			SurvivorID:   res.SurvivorID,
			RemovedIDs:   res.RemovedIDs,
			PerformedBy:  res.PerformedBy,
		},
	})

	for _, id := range res.RemovedIDs {
		messages = append(messages, kafka.Message{
			Key:       id,
			EventType: string(EventTypeBuilderRemoved),
			TenantID:  res.TenantID,
			Version:   SchemaVersion,
			Payload: BuilderRemovedEvent{
				BaseEvent:     e.base(ctx, EventTypeBuilderRemoved, res.TenantID),
				BuilderID:     id,
				DuplicateOfID: res.SurvivorID,
			},
		})
	}

	if err := e.publisher.Publish(ctx, messages...); err != nil {
		e.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"tenant_id": res.TenantID,
			"group_id":  res.GroupID,
		}).Error("Failed to emit duplicates.resolved event")
		return err
	}

	return nil
}
