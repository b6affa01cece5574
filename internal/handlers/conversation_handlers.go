package handlers

import (
	"net/http"
	"strconv"
	"time"

	"productboards-backend/internal/models"
	"productboards-backend/internal/services"
	"productboards-backend/pkg/httputil"
)

// ConversationHandlers serves the conversation list and transcripts.
type ConversationHandlers struct {
	conversations *services.ConversationService
	messages      *services.MessageService
	pipeline      *services.SendPipeline
	maxAITimeout  time.Duration
}

func NewConversationHandlers(cs *services.ConversationService, ms *services.MessageService, p *services.SendPipeline, maxAITimeout time.Duration) *ConversationHandlers {
	return &ConversationHandlers{conversations: cs, messages: ms, pipeline: p, maxAITimeout: maxAITimeout}
}

// CreateConversation handles POST /v1/conversations.
func (h *ConversationHandlers) CreateConversation(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var req models.CreateConversationRequest
	if !decodeJSON(w, r, &req, true) {
		return
	}
	conv, err := h.conversations.Create(r.Context(), userID, req.Title)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, conv)
}

// ListConversations handles GET /v1/conversations. With ?grouped=true the list is split into recency buckets.
func (h *ConversationHandlers) ListConversations(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	if grouped, _ := strconv.ParseBool(r.URL.Query().Get("grouped")); grouped {
		groups, err := h.conversations.ListGrouped(r.Context(), userID, time.Now())
		if err != nil {
			respondServiceError(w, r, err)
			return
		}
		httputil.RespondJSON(w, http.StatusOK, models.GroupedConversationsResponse{Groups: groups})
		return
	}

	convs, err := h.conversations.List(r.Context(), userID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, convs)
}

// GetConversation handles GET /v1/conversations/{conversationID}.
func (h *ConversationHandlers) GetConversation(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	convID, ok := uuidParam(w, r, "conversationID")
	if !ok {
		return
	}
	conv, err := h.conversations.Get(r.Context(), userID, convID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, conv)
}

// RenameConversation handles PATCH /v1/conversations/{conversationID}.
func (h *ConversationHandlers) RenameConversation(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	convID, ok := uuidParam(w, r, "conversationID")
	if !ok {
		return
	}
	var req models.RenameConversationRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	conv, err := h.conversations.Rename(r.Context(), userID, convID, req.Title)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, conv)
}

// DeleteConversation handles DELETE /v1/conversations/{conversationID}.
func (h *ConversationHandlers) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	convID, ok := uuidParam(w, r, "conversationID")
	if !ok {
		return
	}
	if err := h.conversations.Delete(r.Context(), userID, convID); err != nil {
		respondServiceError(w, r, err)
		return
	}
	httputil.RespondNoContent(w)
}

// ListMessages handles GET /v1/conversations/{conversationID}/messages.
func (h *ConversationHandlers) ListMessages(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	convID, ok := uuidParam(w, r, "conversationID")
	if !ok {
		return
	}
	msgs, err := h.messages.Load(r.Context(), userID, convID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, msgs)
}

// SendMessage handles POST /v1/conversations/{conversationID}/messages.
// The response carries the stored user message; the reply arrives on the stream.
func (h *ConversationHandlers) SendMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	convID, ok := uuidParam(w, r, "conversationID")
	if !ok {
		return
	}
	var req models.SendMessageRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	send := services.SendRequest{ConversationID: convID, Content: req.Content}
	if req.ImageURL != nil {
		send.ImageRef = *req.ImageURL
	}
	if req.AITimeoutSeconds > 0 {
		send.AITimeout = min(time.Duration(req.AITimeoutSeconds)*time.Second, h.maxAITimeout)
	}

	msg, err := h.pipeline.Send(r.Context(), userID, send)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, msg)
}
