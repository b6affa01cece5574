package handlers

import (
	"log/slog"
	"net/http"
	"slices"

	"productboards-backend/internal/models"
	"productboards-backend/internal/realtime"
	"productboards-backend/internal/services"

	"github.com/gorilla/websocket"
)

// StreamHandlers upgrades requests to WebSockets that follow a conversation or a price feed.
type StreamHandlers struct {
	messages *services.MessageService
	products *services.ProductService
	upgrader websocket.Upgrader
	log      *slog.Logger
}

func NewStreamHandlers(ms *services.MessageService, ps *services.ProductService, allowedOrigins []string) *StreamHandlers {
	return &StreamHandlers{
		messages: ms,
		products: ps,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || slices.Contains(allowedOrigins, "*") || slices.Contains(allowedOrigins, origin)
			},
		},
		log: slog.Default().With("component", "streams"),
	}
}

// gatedSender holds back frames until the connection exists and its first frame is queued.
type gatedSender struct {
	ready chan struct{}
	conn  *realtime.Connection
}

func newGatedSender() *gatedSender {
	return &gatedSender{ready: make(chan struct{})}
}

func (g *gatedSender) open(conn *realtime.Connection) {
	g.conn = conn
	close(g.ready)
}

func (g *gatedSender) send(event models.StreamEvent) {
	<-g.ready
	if g.conn == nil {
		return
	}
	_ = g.conn.SendJSON(event)
}

// ConversationStream handles GET /v1/conversations/{conversationID}/stream.
// The first frame is a snapshot of the transcript; each later frame carries one new message.
func (h *StreamHandlers) ConversationStream(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	convID, ok := uuidParam(w, r, "conversationID")
	if !ok {
		return
	}

	gate := newGatedSender()
	view, initial, err := h.messages.OpenView(r.Context(), userID, convID, func(m models.Message) {
		gate.send(models.StreamEvent{Type: "message", Message: &m})
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	defer view.Close()

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the response
		h.log.Warn("WebSocket upgrade failed", "conversation_id", convID, "error", err)
		gate.open(nil)
		return
	}
	conn := realtime.NewConnection(userID, ws)
	_ = conn.SendJSON(models.StreamEvent{Type: "snapshot", Messages: initial})
	gate.open(conn)

	h.log.Debug("Conversation stream opened", "conversation_id", convID, "connection_id", conn.ID)
	conn.Run()
	h.log.Debug("Conversation stream closed", "conversation_id", convID, "connection_id", conn.ID)
}

// PriceStream handles GET /v1/links/{linkID}/prices/stream. Each frame carries one recorded price.
func (h *StreamHandlers) PriceStream(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	linkID, ok := uuidParam(w, r, "linkID")
	if !ok {
		return
	}

	gate := newGatedSender()
	sub, err := h.products.SubscribePrices(r.Context(), userID, linkID, func(p models.PriceHistory) {
		gate.send(models.StreamEvent{Type: "price", Price: &p})
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	defer sub.Release()

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("WebSocket upgrade failed", "link_id", linkID, "error", err)
		gate.open(nil)
		return
	}
	conn := realtime.NewConnection(userID, ws)
	gate.open(conn)
	conn.Run()
}
