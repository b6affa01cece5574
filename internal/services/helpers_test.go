package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"productboards-backend/internal/ai"
	"productboards-backend/internal/models"
	"productboards-backend/internal/store"
	"productboards-backend/internal/store/memory"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// fakeAI is a scripted ai.Client that records what it was asked.
type fakeAI struct {
	mu        sync.Mutex
	chatCalls [][]ai.Turn
	noteCalls int

	reply     string
	chatErr   error
	extracted *ai.ExtractedProduct
	note      string
	noteErr   error
	insight   string
}

func (f *fakeAI) Chat(ctx context.Context, turns []ai.Turn) (*ai.Completion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chatCalls = append(f.chatCalls, turns)
	if f.chatErr != nil {
		return nil, f.chatErr
	}
	return &ai.Completion{Content: f.reply, Metadata: map[string]any{}}, nil
}

func (f *fakeAI) ExtractProduct(ctx context.Context, url string) (*ai.ExtractedProduct, error) {
	if f.extracted == nil {
		return nil, &ai.Error{Op: "extract_product", Kind: ai.ErrMalformedResponse}
	}
	p := *f.extracted
	return &p, nil
}

func (f *fakeAI) ProductNote(ctx context.Context, name string, price *float64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.noteCalls++
	return f.note, f.noteErr
}

func (f *fakeAI) BoardInsight(ctx context.Context, items []ai.InsightItem) (string, error) {
	return f.insight, nil
}

func (f *fakeAI) calls() [][]ai.Turn {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]ai.Turn(nil), f.chatCalls...)
}

var errInjected = errors.New("injected store failure")

// flakyStore wraps a real store and fails selected operations.
type flakyStore struct {
	store.Store
	failUserMessage      bool
	failAssistantMessage bool
	failListMessages     bool
}

func (s *flakyStore) CreateMessage(ctx context.Context, arg store.CreateMessageParams) (*models.Message, error) {
	if (arg.Role == models.RoleUser && s.failUserMessage) || (arg.Role == models.RoleAssistant && s.failAssistantMessage) {
		return nil, errInjected
	}
	return s.Store.CreateMessage(ctx, arg)
}

func (s *flakyStore) ListMessages(ctx context.Context, conversationID uuid.UUID) ([]models.Message, error) {
	if s.failListMessages {
		return nil, errInjected
	}
	return s.Store.ListMessages(ctx, conversationID)
}

func newConversation(t *testing.T, s store.Store, userID uuid.UUID) *models.Conversation {
	t.Helper()
	conv, err := s.CreateConversation(context.Background(), store.CreateConversationParams{UserID: userID, Title: DefaultConversationTitle})
	require.NoError(t, err)
	return conv
}

func newMemoryStore() *memory.Store {
	return memory.New()
}

func ptr[T any](v T) *T {
	return &v
}
