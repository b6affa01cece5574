package services

import (
	"context"
	"fmt"
	"strings"

	"productboards-backend/internal/ai"
	"productboards-backend/internal/models"
)

// AssistantService exposes the stateless AI endpoints: free chat and product extraction.
type AssistantService struct {
	ai ai.Client
}

func NewAssistantService(client ai.Client) *AssistantService {
	return &AssistantService{ai: client}
}

// Chat answers a client-supplied transcript without persisting anything.
func (s *AssistantService) Chat(ctx context.Context, turns []models.AIChatTurn, imageRef string) (*ai.Completion, error) {
	if len(turns) == 0 {
		return nil, fmt.Errorf("%w: messages cannot be empty", ErrInvalidArgument)
	}
	aiTurns := make([]ai.Turn, 0, len(turns))
	for _, t := range turns {
		role := strings.ToLower(strings.TrimSpace(t.Role))
		if role != string(models.RoleUser) && role != string(models.RoleAssistant) {
			return nil, fmt.Errorf("%w: unsupported role %q", ErrInvalidArgument, t.Role)
		}
		aiTurns = append(aiTurns, ai.Turn{Role: role, Content: t.Content})
	}

	completion, err := s.ai.Chat(ctx, ai.AnnotateImage(aiTurns, strings.TrimSpace(imageRef)))
	if err != nil {
		return nil, aiErr("chat", err)
	}
	return completion, nil
}

// ExtractProduct reads product details off a retailer URL without saving them.
func (s *AssistantService) ExtractProduct(ctx context.Context, rawURL string) (*ai.ExtractedProduct, error) {
	link, err := validateURL(rawURL)
	if err != nil {
		return nil, err
	}
	product, err := s.ai.ExtractProduct(ctx, link)
	if err != nil {
		return nil, aiErr("extract_product", err)
	}
	return product, nil
}
