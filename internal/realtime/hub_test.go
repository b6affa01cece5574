package realtime

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []int
}

func (r *recorder) add(v int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, v)
}

func (r *recorder) snapshot() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.events...)
}

func TestHubDeliversInPublishOrder(t *testing.T) {
	h := NewHub[int]()
	topic := uuid.New()
	rec := &recorder{}

	sub := h.Subscribe(topic, rec.add)
	defer sub.Release()

	for i := 0; i < 100; i++ {
		h.Publish(topic, i)
	}

	require.Eventually(t, func() bool { return len(rec.snapshot()) == 100 }, time.Second, 5*time.Millisecond)
	for i, v := range rec.snapshot() {
		assert.Equal(t, i, v)
	}
}

func TestHubIsolatesTopics(t *testing.T) {
	h := NewHub[int]()
	a, b := uuid.New(), uuid.New()
	recA, recB := &recorder{}, &recorder{}

	subA := h.Subscribe(a, recA.add)
	defer subA.Release()
	subB := h.Subscribe(b, recB.add)
	defer subB.Release()

	h.Publish(a, 1)
	h.Publish(b, 2)

	require.Eventually(t, func() bool { return len(recA.snapshot()) == 1 && len(recB.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []int{1}, recA.snapshot())
	assert.Equal(t, []int{2}, recB.snapshot())
}

func TestReleaseIsIdempotentAndStopsDelivery(t *testing.T) {
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{Name: "test_subscribers"})
	h := NewHub[int](WithSubscriberGauge(gauge))
	topic := uuid.New()
	rec := &recorder{}

	sub := h.Subscribe(topic, rec.add)
	assert.Equal(t, 1, h.Subscribers(topic))
	assert.Equal(t, 1.0, testutil.ToFloat64(gauge))

	sub.Release()
	sub.Release()

	assert.Equal(t, 0, h.Subscribers(topic))
	assert.Equal(t, 0.0, testutil.ToFloat64(gauge))

	h.Publish(topic, 7)
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, rec.snapshot())
}

func TestSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	h := NewHub[int]()
	topic := uuid.New()
	gate := make(chan struct{})
	rec := &recorder{}

	sub := h.Subscribe(topic, func(v int) {
		<-gate
		rec.add(v)
	})
	defer sub.Release()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			h.Publish(topic, i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
	close(gate)
	require.Eventually(t, func() bool { return len(rec.snapshot()) == 1000 }, 2*time.Second, 5*time.Millisecond)
}

func TestResyncReachesWatchersInOrder(t *testing.T) {
	h := NewHub[int]()
	a, b := uuid.New(), uuid.New()
	rec := &recorder{}
	other := &recorder{}

	watch := h.Watch(a, rec.add, func() { rec.add(-1) })
	defer watch.Release()
	plain := h.Subscribe(b, other.add)
	defer plain.Release()

	h.Publish(a, 1)
	h.Resync()
	h.Publish(a, 2)
	h.Publish(b, 3)

	require.Eventually(t, func() bool { return len(rec.snapshot()) == 3 && len(other.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []int{1, -1, 2}, rec.snapshot())
	assert.Equal(t, []int{3}, other.snapshot())
}
