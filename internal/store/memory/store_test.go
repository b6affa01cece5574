package memory

import (
	"context"
	"testing"
	"time"

	"productboards-backend/internal/models"
	"productboards-backend/internal/store"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessagesKeepInsertionOrderWithFrozenClock(t *testing.T) {
	frozen := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s := New(WithClock(func() time.Time { return frozen }))
	ctx := context.Background()
	userID := uuid.New()

	conv, err := s.CreateConversation(ctx, store.CreateConversationParams{UserID: userID, Title: "New Chat"})
	require.NoError(t, err)

	var ids []uuid.UUID
	for _, content := range []string{"one", "two", "three"} {
		m, err := s.CreateMessage(ctx, store.CreateMessageParams{ConversationID: conv.ID, Role: models.RoleUser, Content: content})
		require.NoError(t, err)
		ids = append(ids, m.ID)
	}

	msgs, err := s.ListMessages(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	for i, m := range msgs {
		assert.Equal(t, ids[i], m.ID)
		assert.NotNil(t, m.Metadata)
		if i > 0 {
			assert.True(t, m.CreatedAt.After(msgs[i-1].CreatedAt))
		}
	}
}

func TestMessageHookSeesEveryInsert(t *testing.T) {
	var seen []models.Message
	s := New(WithMessageHook(func(m models.Message) { seen = append(seen, m) }))
	ctx := context.Background()

	conv, err := s.CreateConversation(ctx, store.CreateConversationParams{UserID: uuid.New(), Title: "t"})
	require.NoError(t, err)
	_, err = s.CreateMessage(ctx, store.CreateMessageParams{ConversationID: conv.ID, Role: models.RoleUser, Content: "hi"})
	require.NoError(t, err)
	_, err = s.CreateMessage(ctx, store.CreateMessageParams{ConversationID: conv.ID, Role: models.RoleAssistant, Content: "hello"})
	require.NoError(t, err)

	require.Len(t, seen, 2)
	assert.Equal(t, models.RoleUser, seen[0].Role)
	assert.Equal(t, models.RoleAssistant, seen[1].Role)
}

func TestDeleteConversationCascadesAndScopesByOwner(t *testing.T) {
	s := New()
	ctx := context.Background()
	owner := uuid.New()

	conv, err := s.CreateConversation(ctx, store.CreateConversationParams{UserID: owner, Title: "t"})
	require.NoError(t, err)
	_, err = s.CreateMessage(ctx, store.CreateMessageParams{ConversationID: conv.ID, Role: models.RoleUser, Content: "hi"})
	require.NoError(t, err)

	assert.ErrorIs(t, s.DeleteConversation(ctx, conv.ID, uuid.New()), store.ErrNotFound)
	require.NoError(t, s.DeleteConversation(ctx, conv.ID, owner))
	assert.ErrorIs(t, s.DeleteConversation(ctx, conv.ID, owner), store.ErrNotFound)

	msgs, err := s.ListMessages(ctx, conv.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestListConversationsNewestFirst(t *testing.T) {
	s := New()
	ctx := context.Background()
	userID := uuid.New()

	older, err := s.CreateConversation(ctx, store.CreateConversationParams{UserID: userID, Title: "older"})
	require.NoError(t, err)
	newer, err := s.CreateConversation(ctx, store.CreateConversationParams{UserID: userID, Title: "newer"})
	require.NoError(t, err)
	_, err = s.CreateConversation(ctx, store.CreateConversationParams{UserID: uuid.New(), Title: "someone else"})
	require.NoError(t, err)

	list, err := s.ListConversations(ctx, userID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)

	bumped := time.Now().Add(time.Hour)
	_, err = s.UpdateConversation(ctx, store.UpdateConversationParams{ID: older.ID, UserID: userID, UpdatedAt: &bumped})
	require.NoError(t, err)

	list, err = s.ListConversations(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, older.ID, list[0].ID)
}

func TestRecordPriceUpdatesLinkAndProduct(t *testing.T) {
	var recorded []models.PriceHistory
	s := New(WithPriceHook(func(h models.PriceHistory) { recorded = append(recorded, h) }))
	ctx := context.Background()
	userID := uuid.New()

	board, err := s.CreateBoard(ctx, store.CreateBoardParams{UserID: userID, Name: "Audio"})
	require.NoError(t, err)
	product, err := s.CreateProduct(ctx, store.CreateProductParams{BoardID: board.ID, UserID: userID, Name: "Headphones"})
	require.NoError(t, err)
	assert.Equal(t, models.DefaultCurrency, product.Currency)
	link, err := s.CreateProductLink(ctx, store.CreateProductLinkParams{ProductID: product.ID, URL: "https://example.com/p/1"})
	require.NoError(t, err)

	_, err = s.RecordPrice(ctx, store.RecordPriceParams{ProductLinkID: link.ID, Price: 9999})
	require.NoError(t, err)
	_, err = s.RecordPrice(ctx, store.RecordPriceParams{ProductLinkID: link.ID, Price: 8999})
	require.NoError(t, err)

	history, err := s.ListPriceHistory(ctx, link.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 9999.0, history[0].Price)
	assert.Len(t, recorded, 2)

	got, err := s.GetProductByID(ctx, product.ID)
	require.NoError(t, err)
	require.NotNil(t, got.CurrentPrice)
	assert.Equal(t, 8999.0, *got.CurrentPrice)
	require.Len(t, got.Links, 1)
	require.NotNil(t, got.Links[0].LastCheckedAt)

	require.NoError(t, s.DeleteBoard(ctx, board.ID, userID))
	_, err = s.GetProductLinkByID(ctx, link.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
