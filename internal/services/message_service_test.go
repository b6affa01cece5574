package services

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"productboards-backend/internal/models"
	"productboards-backend/internal/realtime"
	"productboards-backend/internal/store"
	"productboards-backend/internal/store/memory"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func msgAt(sec int, id byte) models.Message {
	var u uuid.UUID
	u[15] = id
	return models.Message{ID: u, CreatedAt: time.Unix(int64(sec), 0).UTC(), Content: string('a' + rune(id))}
}

func ids(msgs []models.Message) []byte {
	out := make([]byte, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.ID[15])
	}
	return out
}

func TestTimelineMergeIsOrderIndependent(t *testing.T) {
	a, b, c, d := msgAt(1, 1), msgAt(2, 2), msgAt(2, 3), msgAt(3, 4)

	interleavings := [][][]models.Message{
		{{a, b, c, d}},
		{{d}, {c}, {b}, {a}},
		{{b, d}, {a, b, c}, {d}},
		{{c, a}, {d, b}, {a, c}},
	}
	for _, batches := range interleavings {
		tl := NewTimeline()
		total := 0
		for _, batch := range batches {
			total += len(tl.Merge(batch...))
		}
		assert.Equal(t, 4, total)
		assert.Equal(t, []byte{1, 2, 3, 4}, ids(tl.Snapshot()))
		assert.Equal(t, 4, tl.Len())
	}
}

func TestTimelineMergeReportsOnlyNewMessages(t *testing.T) {
	tl := NewTimeline()
	require.Len(t, tl.Merge(msgAt(1, 1), msgAt(2, 2)), 2)
	added := tl.Merge(msgAt(2, 2), msgAt(3, 3), msgAt(3, 3))
	require.Len(t, added, 1)
	assert.Equal(t, byte(3), added[0].ID[15])
}

type feedFixture struct {
	mem  *memory.Store
	feed *realtime.Hub[models.Message]
	svc  *MessageService
}

func newFeedFixture() *feedFixture {
	feed := realtime.NewHub[models.Message]()
	mem := memory.New(memory.WithMessageHook(func(m models.Message) { feed.Publish(m.ConversationID, m) }))
	return &feedFixture{mem: mem, feed: feed, svc: NewMessageService(mem, NewGate(mem), feed)}
}

func TestLoadEmptyConversation(t *testing.T) {
	f := newFeedFixture()
	userID := uuid.New()
	conv := newConversation(t, f.mem, userID)

	msgs, err := f.svc.Load(context.Background(), userID, conv.ID)
	require.NoError(t, err)
	assert.NotNil(t, msgs)
	assert.Empty(t, msgs)

	_, err = f.svc.Load(context.Background(), uuid.New(), conv.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSubscribeDeliversInsertsInOrder(t *testing.T) {
	f := newFeedFixture()
	ctx := context.Background()
	userID := uuid.New()
	conv := newConversation(t, f.mem, userID)
	other := newConversation(t, f.mem, userID)

	var mu sync.Mutex
	var got []string
	sub, err := f.svc.Subscribe(ctx, userID, conv.ID, func(m models.Message) {
		mu.Lock()
		got = append(got, m.Content)
		mu.Unlock()
	})
	require.NoError(t, err)
	defer sub.Release()

	for _, c := range []string{"one", "two", "three"} {
		_, err := f.mem.CreateMessage(ctx, store.CreateMessageParams{ConversationID: conv.ID, Role: models.RoleUser, Content: c})
		require.NoError(t, err)
	}
	_, err = f.mem.CreateMessage(ctx, store.CreateMessageParams{ConversationID: other.ID, Role: models.RoleUser, Content: "elsewhere"})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 3
	}, time.Second, 5*time.Millisecond)
	mu.Lock()
	assert.Equal(t, []string{"one", "two", "three"}, got)
	mu.Unlock()

	_, err = f.svc.Subscribe(ctx, uuid.New(), conv.ID, func(models.Message) {})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOpenViewHasNoGapsOrDuplicates(t *testing.T) {
	f := newFeedFixture()
	ctx := context.Background()
	userID := uuid.New()
	conv := newConversation(t, f.mem, userID)

	_, err := f.mem.CreateMessage(ctx, store.CreateMessageParams{ConversationID: conv.ID, Role: models.RoleUser, Content: "before"})
	require.NoError(t, err)

	var mu sync.Mutex
	var added []models.Message
	view, initial, err := f.svc.OpenView(ctx, userID, conv.ID, func(m models.Message) {
		mu.Lock()
		added = append(added, m)
		mu.Unlock()
	})
	require.NoError(t, err)
	defer view.Close()
	require.Len(t, initial, 1)
	assert.Equal(t, "before", initial[0].Content)

	// Inserts racing the view must each show up exactly once.
	var wg sync.WaitGroup
	for _, c := range []string{"x", "y", "z"} {
		wg.Add(1)
		go func(c string) {
			defer wg.Done()
			_, err := f.mem.CreateMessage(ctx, store.CreateMessageParams{ConversationID: conv.ID, Role: models.RoleUser, Content: c})
			assert.NoError(t, err)
		}(c)
	}
	wg.Wait()

	assert.Eventually(t, func() bool { return len(view.Snapshot()) == 4 }, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(added) == 3
	}, time.Second, 5*time.Millisecond)

	snapshot := view.Snapshot()
	stored, err := f.mem.ListMessages(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, stored, 4)
	for i := range stored {
		assert.Equal(t, stored[i].ID, snapshot[i].ID)
	}

	view.Close()
	view.Close()
	assert.Equal(t, 0, f.feed.Subscribers(conv.ID))
}

func TestOpenViewResyncRecoversLostInserts(t *testing.T) {
	var muted atomic.Bool
	feed := realtime.NewHub[models.Message]()
	mem := memory.New(memory.WithMessageHook(func(m models.Message) {
		if !muted.Load() {
			feed.Publish(m.ConversationID, m)
		}
	}))
	svc := NewMessageService(mem, NewGate(mem), feed)
	ctx := context.Background()
	userID := uuid.New()
	conv := newConversation(t, mem, userID)

	var mu sync.Mutex
	var added []string
	view, initial, err := svc.OpenView(ctx, userID, conv.ID, func(m models.Message) {
		mu.Lock()
		added = append(added, m.Content)
		mu.Unlock()
	})
	require.NoError(t, err)
	defer view.Close()
	assert.Empty(t, initial)

	_, err = mem.CreateMessage(ctx, store.CreateMessageParams{ConversationID: conv.ID, Role: models.RoleUser, Content: "seen"})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(view.Snapshot()) == 1 }, time.Second, 5*time.Millisecond)

	muted.Store(true)
	_, err = mem.CreateMessage(ctx, store.CreateMessageParams{ConversationID: conv.ID, Role: models.RoleAssistant, Content: "lost"})
	require.NoError(t, err)
	muted.Store(false)
	assert.Len(t, view.Snapshot(), 1)

	feed.Resync()
	feed.Resync()

	assert.Eventually(t, func() bool { return len(view.Snapshot()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(added) == 2
	}, time.Second, 5*time.Millisecond)
	mu.Lock()
	assert.Equal(t, []string{"seen", "lost"}, added)
	mu.Unlock()
}
