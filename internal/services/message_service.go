package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"productboards-backend/internal/models"
	"productboards-backend/internal/realtime"
	"productboards-backend/internal/store"

	"github.com/google/uuid"
)

// MessageService reads conversation transcripts and follows their live insert feed.
type MessageService struct {
	store store.Store
	gate  *Gate
	feed  *realtime.Hub[models.Message]
}

func NewMessageService(s store.Store, gate *Gate, feed *realtime.Hub[models.Message]) *MessageService {
	return &MessageService{store: s, gate: gate, feed: feed}
}

// Load returns every message of the conversation in ascending order.
// An empty conversation yields an empty slice.
func (s *MessageService) Load(ctx context.Context, userID, conversationID uuid.UUID) ([]models.Message, error) {
	if _, err := s.gate.Conversation(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	msgs, err := s.store.ListMessages(ctx, conversationID)
	if err != nil {
		return nil, storeErr("list messages", err)
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	return msgs, nil
}

// Subscribe delivers messages inserted into the conversation from now on, in insertion order.
// Delivery is at-least-once; consumers deduplicate by ID.
func (s *MessageService) Subscribe(ctx context.Context, userID, conversationID uuid.UUID, onInsert func(models.Message)) (*realtime.Subscription, error) {
	if _, err := s.gate.Conversation(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	return s.feed.Subscribe(conversationID, onInsert), nil
}

// resyncTimeout bounds the transcript reload a view runs after a feed resync.
const resyncTimeout = 10 * time.Second

// View is a live, deduplicated window on one conversation.
type View struct {
	timeline *Timeline
	sub      *realtime.Subscription

	mu    sync.Mutex
	ready bool
	once  sync.Once
}

// OpenView subscribes before loading so no insert can fall between the two.
// It returns the view and its initial contents. Every message merged later is passed
// to onAdded exactly once and is never part of the initial contents.
// When the feed signals a resync the view reloads the transcript and merges it, so
// inserts the feed lost still reach onAdded.
func (s *MessageService) OpenView(ctx context.Context, userID, conversationID uuid.UUID, onAdded func(models.Message)) (*View, []models.Message, error) {
	if _, err := s.gate.Conversation(ctx, userID, conversationID); err != nil {
		return nil, nil, err
	}

	v := &View{timeline: NewTimeline()}
	merge := func(msgs ...models.Message) {
		v.mu.Lock()
		added := v.timeline.Merge(msgs...)
		ready := v.ready
		v.mu.Unlock()
		if ready && onAdded != nil {
			for _, a := range added {
				onAdded(a)
			}
		}
	}
	reload := func() {
		ctx, cancel := context.WithTimeout(context.Background(), resyncTimeout)
		defer cancel()
		msgs, err := s.store.ListMessages(ctx, conversationID)
		if err != nil {
			slog.Warn("Failed to reload conversation after resync", "conversation_id", conversationID, "error", err)
			return
		}
		merge(msgs...)
	}
	v.sub = s.feed.Watch(conversationID, func(m models.Message) { merge(m) }, reload)

	msgs, err := s.store.ListMessages(ctx, conversationID)
	if err != nil {
		v.Close()
		return nil, nil, storeErr("list messages", err)
	}

	v.mu.Lock()
	v.timeline.Merge(msgs...)
	v.ready = true
	initial := v.timeline.Snapshot()
	v.mu.Unlock()

	return v, initial, nil
}

// Snapshot returns everything the view has seen so far, in order.
func (v *View) Snapshot() []models.Message {
	return v.timeline.Snapshot()
}

// Close releases the feed subscription. Calling it again is a no-op.
func (v *View) Close() {
	v.once.Do(v.sub.Release)
}
