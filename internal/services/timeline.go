package services

import (
	"bytes"
	"sort"
	"sync"

	"productboards-backend/internal/models"

	"github.com/google/uuid"
)

// Timeline is the locally materialised, ordered message list of one conversation view.
// Entries are strictly increasing by (CreatedAt, ID) and unique by ID, whatever order
// loads and feed deliveries are merged in.
type Timeline struct {
	mu       sync.Mutex
	messages []models.Message
	seen     map[uuid.UUID]struct{}
}

func NewTimeline() *Timeline {
	return &Timeline{seen: make(map[uuid.UUID]struct{})}
}

func messageLess(a, b models.Message) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return bytes.Compare(a.ID[:], b.ID[:]) < 0
}

// Merge inserts msgs in order and returns the ones that were not already present.
func (t *Timeline) Merge(msgs ...models.Message) []models.Message {
	t.mu.Lock()
	defer t.mu.Unlock()

	var added []models.Message
	for _, m := range msgs {
		if _, ok := t.seen[m.ID]; ok {
			continue
		}
		t.seen[m.ID] = struct{}{}
		i := sort.Search(len(t.messages), func(i int) bool { return messageLess(m, t.messages[i]) })
		t.messages = append(t.messages, models.Message{})
		copy(t.messages[i+1:], t.messages[i:])
		t.messages[i] = m
		added = append(added, m)
	}
	return added
}

// Snapshot returns a copy of the current list.
func (t *Timeline) Snapshot() []models.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]models.Message, len(t.messages))
	copy(out, t.messages)
	return out
}

func (t *Timeline) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.messages)
}
