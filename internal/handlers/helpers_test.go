package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"productboards-backend/internal/ai"
	"productboards-backend/internal/models"
	"productboards-backend/internal/services"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondServiceError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"invalid", fmt.Errorf("%w: name is required", services.ErrInvalidArgument), http.StatusBadRequest},
		{"unauthorized", services.ErrUnauthorized, http.StatusUnauthorized},
		{"forbidden", services.ErrForbidden, http.StatusForbidden},
		{"not found", fmt.Errorf("%w: get board", services.ErrNotFound), http.StatusNotFound},
		{"ai rate limited", fmt.Errorf("%w: %w", services.ErrAIUnavailable, &ai.Error{Op: "chat", Kind: ai.ErrRateLimited}), http.StatusTooManyRequests},
		{"ai quota", fmt.Errorf("%w: %w", services.ErrAIUnavailable, &ai.Error{Op: "chat", Kind: ai.ErrQuotaExhausted}), http.StatusPaymentRequired},
		{"ai timeout", fmt.Errorf("%w: %w", services.ErrAIUnavailable, &ai.Error{Op: "chat", Kind: ai.ErrTimeout}), http.StatusGatewayTimeout},
		{"ai malformed", fmt.Errorf("%w: %w", services.ErrAIUnavailable, &ai.Error{Op: "chat", Kind: ai.ErrMalformedResponse}), http.StatusBadGateway},
		{"store", fmt.Errorf("%w: boom", services.ErrStore), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			respondServiceError(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)
			assert.Equal(t, tt.status, rec.Code)

			var body models.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body.Error)
			if tt.status == http.StatusInternalServerError {
				assert.NotContains(t, body.Error, "boom")
			}
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	var req models.CreateConversationRequest

	rec := httptest.NewRecorder()
	assert.True(t, decodeJSON(rec, httptest.NewRequest(http.MethodPost, "/", nil), &req, true))

	rec = httptest.NewRecorder()
	assert.False(t, decodeJSON(rec, httptest.NewRequest(http.MethodPost, "/", nil), &req, false))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	assert.False(t, decodeJSON(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{")), &req, true))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBuildBoardFeed(t *testing.T) {
	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	note := "Everything for the new desk"
	price := 24990.0
	aiNote := "Great battery life."

	board := &models.Board{ID: uuid.New(), Name: "Desk upgrade", Note: &note, CreatedAt: created, UpdatedAt: created}
	products := []models.Product{
		{
			ID:           uuid.New(),
			Name:         "Sony WH-1000XM4",
			CurrentPrice: &price,
			Currency:     "INR",
			AINote:       &aiNote,
			CreatedAt:    created,
			UpdatedAt:    created,
			Links:        []models.ProductLink{{URL: "https://shop.example.com/xm4"}},
		},
		{ID: uuid.New(), Name: "Monitor arm", Currency: "INR", CreatedAt: created, UpdatedAt: created},
	}

	feed := BuildBoardFeed(board, products, "https://boards.example.com/shared/tok")
	require.Len(t, feed.Items, 2)
	assert.Equal(t, "Desk upgrade", feed.Title)
	assert.Equal(t, note, feed.Description)

	first := feed.Items[0]
	assert.Equal(t, "https://shop.example.com/xm4", first.Link.Href)
	assert.Equal(t, "INR 24990.00 · Great battery life.", first.Description)

	second := feed.Items[1]
	assert.Equal(t, "https://boards.example.com/shared/tok", second.Link.Href)
	assert.Empty(t, second.Description)

	rss, err := feed.ToRss()
	require.NoError(t, err)
	assert.Contains(t, rss, "<title>Desk upgrade</title>")
}
