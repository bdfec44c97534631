package startup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStartup(maxAttempts int) *Startup {
	s := NewStartup(ectologger.NewEctoLogger(func(ectologger.EctoLogMessage) {}), maxAttempts)
	s.backoffUnit = time.Millisecond
	return s
}

func recorder(events *[]string, name string, requires ...string) *Func {
	return &Func{
		Name:     name,
		Requires: requires,
		StartFunc: func(ctx context.Context) error {
			*events = append(*events, "start:"+name)
			return nil
		},
		StopFunc: func(ctx context.Context) error {
			*events = append(*events, "stop:"+name)
			return nil
		},
	}
}

func TestStartup_Order(t *testing.T) {
	var events []string
	s := newTestStartup(1)
	s.AddDependency(recorder(&events, "api", "postgres", "redis"))
	s.AddDependency(recorder(&events, "postgres"))
	s.AddDependency(recorder(&events, "redis"))

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, []string{"start:postgres", "start:redis", "start:api"}, events)
	assert.Equal(t, StartupStatusStarted, s.Status("api"))

	events = nil
	require.NoError(t, s.Stop(context.Background()))
	assert.Equal(t, "stop:api", events[0])
	assert.ElementsMatch(t, []string{"stop:api", "stop:postgres", "stop:redis"}, events)
	assert.Equal(t, StartupStatusStopped, s.Status("postgres"))
}

func TestStartup_Retry(t *testing.T) {
	t.Run("succeeds after a failed attempt", func(t *testing.T) {
		calls := 0
		s := newTestStartup(3)
		s.AddDependency(&Func{Name: "kafka", StartFunc: func(ctx context.Context) error {
			calls++
			if calls == 1 {
				return errors.New("broker not ready")
			}
			return nil
		}})

		require.NoError(t, s.Start(context.Background()))
		assert.Equal(t, 2, calls)
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		s := newTestStartup(2)
		s.AddDependency(&Func{Name: "postgres", StartFunc: func(ctx context.Context) error {
			return errors.New("connection refused")
		}})

		err := s.Start(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "after 2 attempts")
		assert.Contains(t, err.Error(), "connection refused")
		assert.Equal(t, StartupStatusFailed, s.Status("postgres"))
	})

	t.Run("unknown dependency", func(t *testing.T) {
		s := newTestStartup(1)
		s.AddDependency(&Func{Name: "api", Requires: []string{"missing"}})
		assert.Error(t, s.Start(context.Background()))
	})

	t.Run("cycle", func(t *testing.T) {
		s := newTestStartup(1)
		s.AddDependency(&Func{Name: "a", Requires: []string{"b"}})
		s.AddDependency(&Func{Name: "b", Requires: []string{"a"}})
		err := s.Start(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cycle")
	})
}
