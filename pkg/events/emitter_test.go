package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syed-c/standzon-sub002/pkg/appctx"
	"github.com/syed-c/standzon-sub002/pkg/kafka"
	"github.com/syed-c/standzon-sub002/pkg/models"
)

type fakePublisher struct {
	messages []kafka.Message
	err      error
}

func (p *fakePublisher) Publish(ctx context.Context, messages ...kafka.Message) error {
	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, messages...)
	return nil
}

func TestEmitter_EmitResolution(t *testing.T) {
	logger := ectologger.NewEctoLogger(func(ectologger.EctoLogMessage) {})
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	admin := "admin-1"
	res := &models.Resolution{
		ID:          "r1",
		TenantID:    "t1",
		GroupID:     "dup_0123456789abcdef",
		Reason:      models.MatchReasonEmail,
		Confidence:  models.ConfidenceHigh,
		Strategy:    models.ResolutionStrategyManual,
		SurvivorID:  "b1",
		RemovedIDs:  pq.StringArray{"b2", "b3"},
		PerformedBy: &admin,
	}

	t.Run("resolved then removed events", func(t *testing.T) {
		pub := &fakePublisher{}
		e := NewEmitter(pub, logger)
		e.now = func() time.Time { return fixed }

		ctx := appctx.SetRequestID(context.Background(), "req-1")
		require.NoError(t, e.EmitResolution(ctx, res))
		require.Len(t, pub.messages, 3)

		resolved := pub.messages[0]
		assert.Equal(t, "duplicates.resolved", resolved.EventType)
		assert.Equal(t, "b1", resolved.Key)
		payload := resolved.Payload.(DuplicatesResolvedEvent)
		assert.Equal(t, "same email address", payload.Reason)
		assert.Equal(t, []string{"b2", "b3"}, payload.RemovedIDs)
		assert.Equal(t, "req-1", payload.CorrelationID)
		assert.Equal(t, fixed, payload.Timestamp)

		for i, id := range []string{"b2", "b3"} {
			msg := pub.messages[i+1]
			assert.Equal(t, "builder.removed", msg.EventType)
			assert.Equal(t, id, msg.Key)
			removed := msg.Payload.(BuilderRemovedEvent)
			assert.Equal(t, id, removed.BuilderID)
			assert.Equal(t, "b1", removed.DuplicateOfID)
			assert.Equal(t, "t1", removed.TenantID)
		}
	})

	t.Run("publish failure is returned", func(t *testing.T) {
		pub := &fakePublisher{err: errors.New("broker down")}
		e := NewEmitter(pub, logger)
		assert.Error(t, e.EmitResolution(context.Background(), res))
	})
}
