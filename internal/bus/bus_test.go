package bus

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type event struct {
	name      string
	adjusting bool
}

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(e event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e.name)
}

func (r *recorder) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func TestBus_DeliversInOrder(t *testing.T) {
	b := New(Config[event]{})
	defer b.Close()

	var rec recorder
	b.Subscribe(rec.add)
	b.Post(event{name: "a"}, event{name: "b"})
	b.Post(event{name: "c"})
	require.NoError(t, b.Sync(t.Context()))

	assert.Equal(t, []string{"a", "b", "c"}, rec.names())
}

func TestBus_ListenerPostsAreNotNested(t *testing.T) {
	b := New(Config[event]{})
	defer b.Close()

	var depth, maxDepth atomic.Int32
	var rec recorder
	b.Subscribe(func(e event) {
		d := depth.Add(1)
		defer depth.Add(-1)
		if d > maxDepth.Load() {
			maxDepth.Store(d)
		}
		rec.add(e)
		if e.name == "mutate" {
			b.Post(event{name: "side-effect"})
		}
	})
	b.Subscribe(func(e event) { rec.add(event{name: e.name + "/2"}) })

	b.Post(event{name: "mutate"}, event{name: "next"})
	require.NoError(t, b.Sync(t.Context()))
	// The side effect was posted after Sync's barrier; sync again.
	require.NoError(t, b.Sync(t.Context()))

	assert.Equal(t, int32(1), maxDepth.Load())
	assert.Equal(t, []string{"mutate", "mutate/2", "next", "next/2", "side-effect", "side-effect/2"}, rec.names())
}

func TestBus_Unsubscribe(t *testing.T) {
	b := New(Config[event]{})
	defer b.Close()

	var rec recorder
	unsubscribe := b.Subscribe(rec.add)
	b.Post(event{name: "a"})
	require.NoError(t, b.Sync(t.Context()))

	unsubscribe()
	unsubscribe()
	b.Post(event{name: "b"})
	require.NoError(t, b.Sync(t.Context()))
	assert.Equal(t, []string{"a"}, rec.names())
}

func TestBus_ThrottlesAdjustingEvents(t *testing.T) {
	b := New(Config[event]{
		Adjusting: func(e event) bool { return e.adjusting },
		Rate:      0.001,
	})
	defer b.Close()

	var rec recorder
	b.Subscribe(rec.add)
	for range 5 {
		b.Post(event{name: "drag", adjusting: true})
	}
	b.Post(event{name: "drop"})
	require.NoError(t, b.Sync(t.Context()))

	assert.Equal(t, []string{"drag", "drop"}, rec.names())
	assert.Equal(t, uint64(4), b.Dropped())
}

func TestBus_Close(t *testing.T) {
	b := New(Config[event]{})
	var rec recorder
	b.Subscribe(rec.add)
	b.Post(event{name: "a"})
	b.Close()
	b.Close()

	assert.Equal(t, []string{"a"}, rec.names())
	b.Post(event{name: "b"})
	assert.ErrorIs(t, b.Sync(t.Context()), ErrClosed)
}

func TestBus_SyncHonorsContext(t *testing.T) {
	b := New(Config[event]{})
	defer b.Close()

	release := make(chan struct{})
	b.Subscribe(func(event) { <-release })
	b.Post(event{name: "slow"})

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	assert.ErrorIs(t, b.Sync(ctx), context.Canceled)
	close(release)
}
