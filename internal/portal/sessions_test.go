package portal

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinic-order-portal/internal/gateway"
	"github.com/wolfman30/clinic-order-portal/internal/observability/metrics"
	"github.com/wolfman30/clinic-order-portal/internal/orderflow"
)

func TestRegistry_ReusesFlowPerSession(t *testing.T) {
	registry := NewRegistry(gateway.NewClient("http://unused", nil), nil, nil, time.Minute, nil, nil)
	ctx := context.Background()

	a := registry.Flow(ctx, "a")
	assert.Same(t, a, registry.Flow(ctx, "a"))
	assert.NotSame(t, a, registry.Flow(ctx, "b"))
	assert.Equal(t, 2, registry.Len())
}

func TestRegistry_SweepEvictsIdleFlows(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewOrderFlowMetrics(reg)
	registry := NewRegistry(gateway.NewClient("http://unused", nil), nil, nil, time.Minute, nil, m)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	registry.now = func() time.Time { return now }
	ctx := context.Background()

	registry.Flow(ctx, "old")
	now = now.Add(2 * time.Minute)
	registry.Flow(ctx, "fresh")

	assert.Equal(t, 1, registry.Sweep())
	assert.Equal(t, 1, registry.Len())
	expected := `
# HELP clinic_portal_active_sessions Order flow sessions held in memory
# TYPE clinic_portal_active_sessions gauge
clinic_portal_active_sessions 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "clinic_portal_active_sessions"))
}

func TestRegistry_RehydratesFromRedisAfterEviction(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	storage := func(sessionID string) orderflow.Storage {
		return orderflow.NewRedisStorage(client, sessionID, time.Hour, nil)
	}
	registry := NewRegistry(gateway.NewClient("http://unused", nil), nil, storage, time.Minute, nil, nil)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	registry.now = func() time.Time { return now }
	ctx := context.Background()

	flow := registry.Flow(ctx, "s1")
	flow.Store.Dispatch(ctx, orderflow.SetOrderID{OrderID: "o-9"}, orderflow.GoToStep{Step: orderflow.StepReview})

	now = now.Add(time.Hour)
	require.Equal(t, 1, registry.Sweep())

	again := registry.Flow(ctx, "s1")
	assert.NotSame(t, flow, again)
	state := again.Store.State()
	assert.Equal(t, "o-9", state.OrderID)
	assert.Equal(t, orderflow.StepReview, state.CurrentStep)
}

// blockingStorage holds Get until released.
type blockingStorage struct {
	*orderflow.MemoryStorage
	entered chan struct{}
	release chan struct{}
}

func (b *blockingStorage) Get(ctx context.Context, key string) (string, bool, error) {
	close(b.entered)
	<-b.release
	return b.MemoryStorage.Get(ctx, key)
}

func TestRegistry_SlowRehydrateDoesNotBlockOtherSessions(t *testing.T) {
	slow := &blockingStorage{
		MemoryStorage: orderflow.NewMemoryStorage(),
		entered:       make(chan struct{}),
		release:       make(chan struct{}),
	}
	storage := func(sessionID string) orderflow.Storage {
		if sessionID == "slow" {
			return slow
		}
		return orderflow.NewMemoryStorage()
	}
	registry := NewRegistry(gateway.NewClient("http://unused", nil), nil, storage, time.Minute, nil, nil)
	ctx := context.Background()

	done := make(chan *Flow)
	go func() { done <- registry.Flow(ctx, "slow") }()
	<-slow.entered

	fast := make(chan *Flow)
	go func() { fast <- registry.Flow(ctx, "fast") }()
	select {
	case f := <-fast:
		assert.NotNil(t, f)
	case <-time.After(2 * time.Second):
		t.Fatal("lookup for another session waited on a rehydrating flow")
	}

	close(slow.release)
	f := <-done
	assert.Same(t, f, registry.Flow(ctx, "slow"))
	assert.Equal(t, 2, registry.Len())
}
