package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"productboards-backend/internal/models"
	"productboards-backend/internal/services"
	"productboards-backend/pkg/httputil"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/feeds"
)

// SharedHandlers serves public boards to visitors holding a share token. No login is required.
type SharedHandlers struct {
	boards  *services.BoardService
	baseURL string
}

func NewSharedHandlers(bs *services.BoardService, publicBaseURL string) *SharedHandlers {
	return &SharedHandlers{boards: bs, baseURL: strings.TrimRight(publicBaseURL, "/")}
}

// GetSharedBoard handles GET /shared/{token}.
func (h *SharedHandlers) GetSharedBoard(w http.ResponseWriter, r *http.Request) {
	board, products, err := h.boards.GetShared(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, models.SharedBoardResponse{Board: *board, Products: products})
}

// SharedInsight handles GET /shared/{token}/insight.
func (h *SharedHandlers) SharedInsight(w http.ResponseWriter, r *http.Request) {
	insight, err := h.boards.SharedInsight(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, models.InsightResponse{Insight: insight})
}

// SharedFeed handles GET /shared/{token}/feed.rss.
func (h *SharedHandlers) SharedFeed(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	board, products, err := h.boards.GetShared(r.Context(), token)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	rss, err := BuildBoardFeed(board, products, fmt.Sprintf("%s/shared/%s", h.baseURL, token)).ToRss()
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(rss))
}

// BuildBoardFeed renders a shared board as a feed with one item per product.
func BuildBoardFeed(board *models.Board, products []models.Product, link string) *feeds.Feed {
	description := ""
	if board.Note != nil {
		description = *board.Note
	}
	feed := &feeds.Feed{
		Title:       board.Name,
		Link:        &feeds.Link{Href: link},
		Description: description,
		Created:     board.CreatedAt,
		Updated:     board.UpdatedAt,
	}

	for _, p := range products {
		item := &feeds.Item{
			Id:          p.ID.String(),
			Title:       p.Name,
			Link:        &feeds.Link{Href: link},
			Description: productSummary(p),
			Created:     p.CreatedAt,
			Updated:     p.UpdatedAt,
		}
		if len(p.Links) > 0 {
			item.Link = &feeds.Link{Href: p.Links[0].URL}
		}
		feed.Add(item)
	}
	return feed
}

func productSummary(p models.Product) string {
	var b strings.Builder
	if p.CurrentPrice != nil {
		fmt.Fprintf(&b, "%s %.2f", p.Currency, *p.CurrentPrice)
	}
	for _, note := range []*string{p.Note, p.AINote} {
		if note == nil || *note == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString(" · ")
		}
		b.WriteString(*note)
	}
	return b.String()
}
