package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"productboards-backend/internal/ai"
	"productboards-backend/internal/metrics"
	"productboards-backend/internal/models"
	"productboards-backend/internal/store"

	"github.com/google/uuid"
)

// SendRequest is one user turn to append to a conversation.
type SendRequest struct {
	ConversationID uuid.UUID
	Content        string
	ImageRef       string        // Optional image URL shown to the assistant
	AITimeout      time.Duration // 0 uses the pipeline default
}

// SendPipeline appends a user message, asks the assistant for a reply and appends it.
// Viewers learn about both messages from the insert feed, not from the return value.
type SendPipeline struct {
	store     store.Store
	gate      *Gate
	ai        ai.Client
	aiTimeout time.Duration
	metrics   *metrics.Metrics
	now       func() time.Time
	log       *slog.Logger
}

func NewSendPipeline(s store.Store, gate *Gate, client ai.Client, aiTimeout time.Duration, m *metrics.Metrics) *SendPipeline {
	return &SendPipeline{
		store:     s,
		gate:      gate,
		ai:        client,
		aiTimeout: aiTimeout,
		metrics:   m,
		now:       time.Now,
		log:       slog.Default().With("component", "send_pipeline"),
	}
}

// Send runs the pipeline and returns the persisted user message.
//
// Nothing is written when validation or authorization fails. Once the user message is
// stored it is never rolled back: a failed assistant call leaves it in place and a retry
// appends a second copy. After that point the caller's cancellation no longer applies.
func (p *SendPipeline) Send(ctx context.Context, userID uuid.UUID, req SendRequest) (msg *models.Message, err error) {
	defer func() { p.metrics.RecordSend(sendOutcome(err)) }()

	content := strings.TrimSpace(req.Content)
	if req.ConversationID == uuid.Nil {
		return nil, fmt.Errorf("%w: conversation id is required", ErrInvalidArgument)
	}
	if content == "" {
		return nil, fmt.Errorf("%w: message content is empty", ErrInvalidArgument)
	}
	if _, err := p.gate.Conversation(ctx, userID, req.ConversationID); err != nil {
		return nil, err
	}
	log := p.log.With("conversation_id", req.ConversationID)

	metadata := map[string]any{}
	if req.ImageRef != "" {
		metadata["imageUrl"] = req.ImageRef
	}
	userMsg, err := p.store.CreateMessage(ctx, store.CreateMessageParams{
		ID:             uuid.New(),
		ConversationID: req.ConversationID,
		Role:           models.RoleUser,
		Content:        content,
		Metadata:       metadata,
	})
	if err != nil {
		log.Error("Failed to persist user message", "error", err)
		return nil, fmt.Errorf("%w: persist user message: %w", ErrStore, err)
	}

	ctx = context.WithoutCancel(ctx)

	touched := p.now()
	if _, err := p.store.UpdateConversation(ctx, store.UpdateConversationParams{
		ID:        req.ConversationID,
		UserID:    userID,
		UpdatedAt: &touched,
	}); err != nil {
		log.Warn("Failed to bump conversation updated_at", "error", err)
	}

	firstExchange := false
	transcript, err := p.store.ListMessages(ctx, req.ConversationID)
	if err != nil {
		log.Warn("Failed to fetch transcript, continuing with the new message only", "error", err)
		transcript = []models.Message{*userMsg}
	} else {
		firstExchange = len(transcript) <= 1
		if len(transcript) == 0 {
			transcript = []models.Message{*userMsg}
		}
	}

	turns := make([]ai.Turn, 0, len(transcript))
	for _, m := range transcript {
		turns = append(turns, ai.Turn{Role: string(m.Role), Content: m.Content})
	}
	turns = ai.AnnotateImage(turns, req.ImageRef)

	timeout := req.AITimeout
	if timeout <= 0 {
		timeout = p.aiTimeout
	}
	aiCtx, cancel := context.WithTimeout(ctx, timeout)
	completion, err := p.ai.Chat(aiCtx, turns)
	cancel()
	if err != nil {
		log.Error("Assistant reply failed, user message kept", "message_id", userMsg.ID, "kind", ai.Kind(err), "error", err)
		return nil, aiErr("chat", err)
	}

	replyMetadata := completion.Metadata
	if replyMetadata == nil {
		replyMetadata = map[string]any{}
	}
	if _, err := p.store.CreateMessage(ctx, store.CreateMessageParams{
		ID:             uuid.New(),
		ConversationID: req.ConversationID,
		Role:           models.RoleAssistant,
		Content:        completion.Content,
		Metadata:       replyMetadata,
	}); err != nil {
		log.Error("Failed to persist assistant message", "error", err)
		return nil, fmt.Errorf("%w: persist assistant message: %w", ErrStore, err)
	}

	// Two concurrent first sends may both see a one-message transcript; the last title wins.
	if firstExchange {
		title := TruncateTitle(content)
		if _, err := p.store.UpdateConversation(ctx, store.UpdateConversationParams{
			ID:     req.ConversationID,
			UserID: userID,
			Title:  &title,
		}); err != nil {
			log.Warn("Failed to set conversation title", "error", err)
		}
	}

	return userMsg, nil
}

func sendOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidArgument):
		return "invalid"
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrUnauthorized):
		return "rejected"
	case errors.Is(err, ErrAIUnavailable):
		return "ai_" + ai.Kind(err)
	default:
		return "store_error"
	}
}
