package handlers

import (
	"net/http"

	"productboards-backend/internal/models"
	"productboards-backend/internal/services"
	"productboards-backend/pkg/httputil"
)

// AIHandlers exposes the stateless assistant endpoints.
type AIHandlers struct {
	assistant *services.AssistantService
}

func NewAIHandlers(as *services.AssistantService) *AIHandlers {
	return &AIHandlers{assistant: as}
}

// Chat handles POST /v1/ai/chat. Nothing is persisted.
func (h *AIHandlers) Chat(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUserID(w, r); !ok {
		return
	}
	var req models.AIChatRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	imageRef := ""
	if req.ImageRef != nil {
		imageRef = *req.ImageRef
	}

	completion, err := h.assistant.Chat(r.Context(), req.Messages, imageRef)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	metadata := completion.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	httputil.RespondJSON(w, http.StatusOK, models.AIChatResponse{Content: completion.Content, Metadata: metadata})
}

// ExtractProduct handles POST /v1/ai/extract-product.
func (h *AIHandlers) ExtractProduct(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUserID(w, r); !ok {
		return
	}
	var req models.ExtractProductRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	extracted, err := h.assistant.ExtractProduct(r.Context(), req.URL)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, extracted)
}
