package services

import (
	"context"
	"testing"

	"productboards-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssistantChatValidation(t *testing.T) {
	fake := &fakeAI{reply: "hi"}
	svc := NewAssistantService(fake)
	ctx := context.Background()

	_, err := svc.Chat(ctx, nil, "")
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = svc.Chat(ctx, []models.AIChatTurn{{Role: "system", Content: "x"}}, "")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	reply, err := svc.Chat(ctx, []models.AIChatTurn{{Role: "User", Content: "what is this?"}}, "https://img.example/a.png")
	require.NoError(t, err)
	assert.Equal(t, "hi", reply.Content)
	calls := fake.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "user", calls[0][0].Role)
	assert.Equal(t, "[User shared an image: https://img.example/a.png]\n\nwhat is this?", calls[0][0].Content)

	_, err = svc.ExtractProduct(ctx, "not a url")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}
