package realtime

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// go-redis keeps a pool reaper per client
		goleak.IgnoreTopFunction("github.com/go-redis/redis/v8/internal/pool.(*ConnPool).reaper"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
}

type collector struct {
	mu  sync.Mutex
	got []Change
}

func (c *collector) add(ch Change) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.got = append(c.got, ch)
}

func (c *collector) snapshot() []Change {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Change(nil), c.got...)
}

func TestHub_SubscribeFiltersByTableAndPredicate(t *testing.T) {
	hub := NewHub(zap.NewNop())
	defer hub.Close()

	all := &collector{}
	onlyPending := &collector{}
	hub.Subscribe(TableRescueRequests, nil, all.add)
	hub.Subscribe(TableRescueRequests, func(c Change) bool { return c.ID == "req-1" }, onlyPending.add)

	ctx := context.Background()
	require.NoError(t, hub.Publish(ctx, NewChange(TableRescueRequests, ChangeInsert, "req-1", map[string]any{"status": "pending"})))
	require.NoError(t, hub.Publish(ctx, NewChange(TableRescueRequests, ChangeUpdate, "req-2", nil)))
	require.NoError(t, hub.Publish(ctx, NewChange(TableEvacuees, ChangeInsert, "ev-1", nil)))

	assert.Eventually(t, func() bool { return len(all.snapshot()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return len(onlyPending.snapshot()) == 1 }, time.Second, 5*time.Millisecond)

	first := all.snapshot()[0]
	assert.Equal(t, ChangeInsert, first.Type)
	assert.JSONEq(t, `{"status":"pending"}`, string(first.Record))
}

func TestHub_Unsubscribe(t *testing.T) {
	hub := NewHub(zap.NewNop())
	defer hub.Close()

	c := &collector{}
	h := hub.Subscribe(TableWeatherAlerts, nil, c.add)
	assert.Equal(t, 1, hub.Count(TableWeatherAlerts))

	hub.Unsubscribe(h)
	hub.Unsubscribe(h) // idempotent
	assert.Equal(t, 0, hub.Count(TableWeatherAlerts))

	_ = hub.Publish(context.Background(), NewChange(TableWeatherAlerts, ChangeInsert, "a-1", nil))
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, c.snapshot())
}

func TestHub_UnsubscribeFromCallback(t *testing.T) {
	hub := NewHub(zap.NewNop())
	defer hub.Close()

	var once sync.Once
	done := make(chan struct{})
	var h Handle
	h = hub.Subscribe(TableProfiles, nil, func(Change) {
		once.Do(func() {
			hub.Unsubscribe(h)
			close(done)
		})
	})
	_ = hub.Publish(context.Background(), NewChange(TableProfiles, ChangeUpdate, "u-1", nil))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("callback never ran")
	}
	assert.Equal(t, 0, hub.Count(TableProfiles))
}

func TestHub_PanickingSubscriberIsIsolated(t *testing.T) {
	hub := NewHub(zap.NewNop())
	defer hub.Close()

	c := &collector{}
	hub.Subscribe(TableEvacuees, nil, func(Change) { panic("boom") })
	hub.Subscribe(TableEvacuees, nil, c.add)

	_ = hub.Publish(context.Background(), NewChange(TableEvacuees, ChangeInsert, "ev-1", nil))
	assert.Eventually(t, func() bool { return len(c.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
}

func TestRedisBridge_RelaysIntoHub(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	hub := NewHub(zap.NewNop())
	defer hub.Close()
	bridge := NewRedisBridge(client, hub, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan error, 1)
	go func() { runDone <- bridge.Run(ctx) }()

	select {
	case <-bridge.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("bridge did not subscribe")
	}

	c := &collector{}
	hub.Subscribe(TableRescueRequests, nil, c.add)

	require.NoError(t, bridge.Publish(ctx, NewChange(TableRescueRequests, ChangeUpdate, "req-9", map[string]string{"status": "assigned"})))

	assert.Eventually(t, func() bool { return len(c.snapshot()) == 1 }, 2*time.Second, 10*time.Millisecond)
	got := c.snapshot()[0]
	assert.Equal(t, "req-9", got.ID)
	assert.Equal(t, TableRescueRequests, got.Table)

	cancel()
	require.NoError(t, <-runDone)
}

func TestRedisBridge_LocalFallbackWhenRedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	mr.Close()

	hub := NewHub(zap.NewNop())
	defer hub.Close()
	bridge := NewRedisBridge(client, hub, zap.NewNop())

	c := &collector{}
	hub.Subscribe(TableWeatherAlerts, nil, c.add)

	require.NoError(t, bridge.Publish(context.Background(), NewChange(TableWeatherAlerts, ChangeInsert, "a-1", nil)))
	assert.Eventually(t, func() bool { return len(c.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
}
