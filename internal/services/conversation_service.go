package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"productboards-backend/internal/models"
	"productboards-backend/internal/store"

	"github.com/google/uuid"
)

// DefaultConversationTitle is used for conversations created without a title.
const DefaultConversationTitle = "New Chat"

// ConversationService manages the conversation list.
type ConversationService struct {
	store store.Store
	gate  *Gate
	now   func() time.Time
}

func NewConversationService(s store.Store, gate *Gate) *ConversationService {
	return &ConversationService{store: s, gate: gate, now: time.Now}
}

// Create starts a new conversation.
func (s *ConversationService) Create(ctx context.Context, userID uuid.UUID, title string) (*models.Conversation, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = DefaultConversationTitle
	}
	conv, err := s.store.CreateConversation(ctx, store.CreateConversationParams{
		ID:     uuid.New(),
		UserID: userID,
		Title:  title,
	})
	if err != nil {
		return nil, storeErr("create conversation", err)
	}
	slog.Info("Conversation created", "component", "conversations", "conversation_id", conv.ID, "user_id", userID)
	return conv, nil
}

func (s *ConversationService) Get(ctx context.Context, userID, conversationID uuid.UUID) (*models.Conversation, error) {
	return s.gate.Conversation(ctx, userID, conversationID)
}

// Rename sets a new title and moves the conversation to the top of the list.
func (s *ConversationService) Rename(ctx context.Context, userID, conversationID uuid.UUID, title string) (*models.Conversation, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: title cannot be empty", ErrInvalidArgument)
	}
	if _, err := s.gate.Conversation(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	now := s.now()
	conv, err := s.store.UpdateConversation(ctx, store.UpdateConversationParams{
		ID:        conversationID,
		UserID:    userID,
		Title:     &title,
		UpdatedAt: &now,
	})
	if err != nil {
		return nil, storeErr("rename conversation", err)
	}
	return conv, nil
}

// Delete removes a conversation and its messages. Deleting a missing conversation succeeds.
func (s *ConversationService) Delete(ctx context.Context, userID, conversationID uuid.UUID) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	err := s.store.DeleteConversation(ctx, conversationID, userID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return storeErr("delete conversation", err)
	}
	return nil
}

// List returns the user's conversations, most recently updated first.
func (s *ConversationService) List(ctx context.Context, userID uuid.UUID) ([]models.Conversation, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	convs, err := s.store.ListConversations(ctx, userID)
	if err != nil {
		return nil, storeErr("list conversations", err)
	}
	if convs == nil {
		convs = []models.Conversation{}
	}
	return convs, nil
}

// ListGrouped returns List split into recency buckets relative to now.
func (s *ConversationService) ListGrouped(ctx context.Context, userID uuid.UUID, now time.Time) ([]models.ConversationGroup, error) {
	convs, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	return GroupByRecency(convs, now), nil
}
