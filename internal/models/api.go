package models

import (
	"github.com/google/uuid"
)

// --- Request Structs ---

// SignupRequest defines the expected body for the signup endpoint.
type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest defines the expected body for the login endpoint.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// --- Response Structs ---

// UserResponse defines the user information returned by the API.
type UserResponse struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
}

// AuthResponse defines the response body for successful authentication.
type AuthResponse struct {
	AccessToken string       `json:"access_token"`
	User        UserResponse `json:"user"`
}

// ErrorResponse defines the standard structure for API errors.
type ErrorResponse struct {
	Error string `json:"error"`
}

// --- Conversation DTOs ---

// CreateConversationRequest is the body of POST /v1/conversations. Title is optional.
type CreateConversationRequest struct {
	Title string `json:"title"`
}

// RenameConversationRequest is the body of PATCH /v1/conversations/{conversationID}.
type RenameConversationRequest struct {
	Title string `json:"title"`
}

// ConversationGroup is one recency bucket of the sidebar list.
type ConversationGroup struct {
	Label         string         `json:"label"`
	Conversations []Conversation `json:"conversations"`
}

// GroupedConversationsResponse is returned by GET /v1/conversations?grouped=true.
type GroupedConversationsResponse struct {
	Groups []ConversationGroup `json:"groups"`
}

// SendMessageRequest is the body of POST /v1/conversations/{conversationID}/messages.
type SendMessageRequest struct {
	Content          string  `json:"content"`
	ImageURL         *string `json:"image_url,omitempty"`
	AITimeoutSeconds int     `json:"ai_timeout_seconds,omitempty"` // 0 uses the server default
}

// StreamEvent is a frame written to realtime WebSocket clients.
type StreamEvent struct {
	Type     string        `json:"type"` // "snapshot", "message" or "price"
	Messages []Message     `json:"messages,omitempty"`
	Message  *Message      `json:"message,omitempty"`
	Price    *PriceHistory `json:"price,omitempty"`
}

// --- Board DTOs ---

// CreateBoardRequest is the body of POST /v1/boards.
type CreateBoardRequest struct {
	Name string  `json:"name"`
	Note *string `json:"note,omitempty"`
}

// UpdateBoardRequest is the body of PATCH /v1/boards/{boardID}. Nil fields are left unchanged.
type UpdateBoardRequest struct {
	Name          *string `json:"name,omitempty"`
	Note          *string `json:"note,omitempty"`
	AllowComments *bool   `json:"allow_comments,omitempty"`
}

// BoardSharingRequest toggles public sharing of a board.
type BoardSharingRequest struct {
	IsPublic bool `json:"is_public"`
}

// SharedBoardResponse is what a visitor sees through a share link.
type SharedBoardResponse struct {
	Board    Board     `json:"board"`
	Products []Product `json:"products"`
}

// --- Product DTOs ---

// CreateProductRequest is the body of POST /v1/boards/{boardID}/products.
// When URL is set a product link is created alongside the product.
type CreateProductRequest struct {
	Name         string   `json:"name"`
	ImageURL     *string  `json:"image_url,omitempty"`
	Note         *string  `json:"note,omitempty"`
	CurrentPrice *float64 `json:"current_price,omitempty"`
	Currency     string   `json:"currency,omitempty"`
	URL          string   `json:"url,omitempty"`
	Retailer     *string  `json:"retailer,omitempty"`
}

// CreateProductFromURLRequest asks the assistant to extract a product from a retailer URL.
type CreateProductFromURLRequest struct {
	URL string `json:"url"`
}

// UpdateProductRequest is the body of PATCH /v1/products/{productID}.
type UpdateProductRequest struct {
	Name              *string  `json:"name,omitempty"`
	ImageURL          *string  `json:"image_url,omitempty"`
	Note              *string  `json:"note,omitempty"`
	PriceAlertEnabled *bool    `json:"price_alert_enabled,omitempty"`
	TargetPrice       *float64 `json:"target_price,omitempty"`
}

// MoveProductRequest moves a product to another board of the same owner.
type MoveProductRequest struct {
	BoardID uuid.UUID `json:"board_id"`
}

// CreateProductLinkRequest is the body of POST /v1/products/{productID}/links.
type CreateProductLinkRequest struct {
	URL          string   `json:"url"`
	Retailer     *string  `json:"retailer,omitempty"`
	CurrentPrice *float64 `json:"current_price,omitempty"`
	Currency     string   `json:"currency,omitempty"`
}

// RecordPriceRequest is the body of POST /v1/links/{linkID}/prices.
type RecordPriceRequest struct {
	Price    float64 `json:"price"`
	Currency string  `json:"currency,omitempty"`
}

// --- AI DTOs ---

// AIChatTurn is one role+content pair sent to the chat endpoint.
type AIChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// AIChatRequest is the body of POST /v1/ai/chat.
type AIChatRequest struct {
	Messages []AIChatTurn `json:"messages"`
	ImageRef *string      `json:"imageRef,omitempty"`
}

// AIChatResponse is the reply of POST /v1/ai/chat.
type AIChatResponse struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
}

// ExtractProductRequest is the body of POST /v1/ai/extract-product.
type ExtractProductRequest struct {
	URL string `json:"url"`
}

// ProductNoteResponse carries a generated product note.
type ProductNoteResponse struct {
	Note string `json:"note"`
}

// InsightProduct is one product summarised for a board insight.
type InsightProduct struct {
	Name  string   `json:"name"`
	Price *float64 `json:"price,omitempty"`
	Note  *string  `json:"note,omitempty"`
}

// BoardInsightRequest is the body of POST /v1/ai/board-insight.
type BoardInsightRequest struct {
	Products []InsightProduct `json:"products"`
}

// InsightResponse carries a generated shopping insight.
type InsightResponse struct {
	Insight string `json:"insight"`
}

// --- Alert DTOs ---

// AlertPreferencesRequest is the body of PUT /v1/settings/alerts. Nil fields are left unchanged.
// An empty SlackWebhookURL removes the stored webhook.
type AlertPreferencesRequest struct {
	EmailEnabled       *bool   `json:"email_enabled,omitempty"`
	PriceDropThreshold *int    `json:"price_drop_threshold,omitempty"`
	SlackWebhookURL    *string `json:"slack_webhook_url,omitempty"`
}

// AlertPreferencesResponse never includes the webhook URL itself.
type AlertPreferencesResponse struct {
	EmailEnabled           bool `json:"email_enabled"`
	PriceDropThreshold     int  `json:"price_drop_threshold"`
	SlackWebhookConfigured bool `json:"slack_webhook_configured"`
}
