package handlers

import (
	"net/http"

	"productboards-backend/internal/models"
	"productboards-backend/internal/services"
	"productboards-backend/pkg/httputil"
)

// BoardHandlers serves board management and AI board insights.
type BoardHandlers struct {
	boards *services.BoardService
}

func NewBoardHandlers(bs *services.BoardService) *BoardHandlers {
	return &BoardHandlers{boards: bs}
}

// CreateBoard handles POST /v1/boards.
func (h *BoardHandlers) CreateBoard(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var req models.CreateBoardRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	board, err := h.boards.Create(r.Context(), userID, req.Name, req.Note)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, board)
}

// ListBoards handles GET /v1/boards.
func (h *BoardHandlers) ListBoards(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	boards, err := h.boards.List(r.Context(), userID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, boards)
}

// GetBoard handles GET /v1/boards/{boardID}.
func (h *BoardHandlers) GetBoard(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	boardID, ok := uuidParam(w, r, "boardID")
	if !ok {
		return
	}
	board, err := h.boards.Get(r.Context(), userID, boardID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, board)
}

// UpdateBoard handles PATCH /v1/boards/{boardID}.
func (h *BoardHandlers) UpdateBoard(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	boardID, ok := uuidParam(w, r, "boardID")
	if !ok {
		return
	}
	var req models.UpdateBoardRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	board, err := h.boards.Update(r.Context(), userID, boardID, req)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, board)
}

// DeleteBoard handles DELETE /v1/boards/{boardID}.
func (h *BoardHandlers) DeleteBoard(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	boardID, ok := uuidParam(w, r, "boardID")
	if !ok {
		return
	}
	if err := h.boards.Delete(r.Context(), userID, boardID); err != nil {
		respondServiceError(w, r, err)
		return
	}
	httputil.RespondNoContent(w)
}

// SetSharing handles PUT /v1/boards/{boardID}/sharing.
func (h *BoardHandlers) SetSharing(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	boardID, ok := uuidParam(w, r, "boardID")
	if !ok {
		return
	}
	var req models.BoardSharingRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	board, err := h.boards.SetSharing(r.Context(), userID, boardID, req.IsPublic)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, board)
}

// BoardInsight handles POST /v1/boards/{boardID}/insight.
func (h *BoardHandlers) BoardInsight(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	boardID, ok := uuidParam(w, r, "boardID")
	if !ok {
		return
	}
	insight, err := h.boards.Insight(r.Context(), userID, boardID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, models.InsightResponse{Insight: insight})
}

// InsightForProducts handles POST /v1/ai/board-insight with a client-supplied product list.
func (h *BoardHandlers) InsightForProducts(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUserID(w, r); !ok {
		return
	}
	var req models.BoardInsightRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	insight, err := h.boards.InsightFor(r.Context(), req.Products)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, models.InsightResponse{Insight: insight})
}
