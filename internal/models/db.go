package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a user in the database.
type User struct {
	ID             uuid.UUID `json:"id" db:"id"`
	Email          string    `json:"email" db:"email"`
	HashedPassword string    `json:"-" db:"hashed_password"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// Conversation is a titled container of messages owned by one user.
// UpdatedAt drives list ordering and the sidebar recency buckets.
type Conversation struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	Title     string    `json:"title" db:"title"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one immutable turn of a conversation.
type Message struct {
	ID             uuid.UUID      `json:"id" db:"id"`
	ConversationID uuid.UUID      `json:"conversation_id" db:"conversation_id"`
	Role           Role           `json:"role" db:"role"`
	Content        string         `json:"content" db:"content"`
	Metadata       map[string]any `json:"metadata" db:"metadata"` // Stored as JSONB, never nil once persisted
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`
}

// Board groups saved products. A public board is reachable by its ShareToken.
type Board struct {
	ID            uuid.UUID `json:"id" db:"id"`
	UserID        uuid.UUID `json:"user_id" db:"user_id"`
	Name          string    `json:"name" db:"name"`
	Note          *string   `json:"note" db:"note"`
	ShareToken    *string   `json:"share_token" db:"share_token"`
	IsPublic      bool      `json:"is_public" db:"is_public"`
	AllowComments bool      `json:"allow_comments" db:"allow_comments"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// DefaultCurrency is used for products and prices when none is given.
const DefaultCurrency = "INR"

// Product is an item saved to a board, with its retailer links.
type Product struct {
	ID                uuid.UUID     `json:"id" db:"id"`
	BoardID           uuid.UUID     `json:"board_id" db:"board_id"`
	UserID            uuid.UUID     `json:"user_id" db:"user_id"`
	Name              string        `json:"name" db:"name"`
	ImageURL          *string       `json:"image_url" db:"image_url"`
	Note              *string       `json:"note" db:"note"`
	AINote            *string       `json:"ai_note" db:"ai_note"`
	CurrentPrice      *float64      `json:"current_price" db:"current_price"`
	Currency          string        `json:"currency" db:"currency"`
	PriceAlertEnabled bool          `json:"price_alert_enabled" db:"price_alert_enabled"`
	TargetPrice       *float64      `json:"target_price" db:"target_price"`
	CreatedAt         time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at" db:"updated_at"`
	Links             []ProductLink `json:"product_links"`
}

// ProductLink is a retailer URL where a product is sold.
type ProductLink struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	ProductID     uuid.UUID  `json:"product_id" db:"product_id"`
	URL           string     `json:"url" db:"url"`
	Retailer      *string    `json:"retailer" db:"retailer"`
	CurrentPrice  *float64   `json:"current_price" db:"current_price"`
	Currency      string     `json:"currency" db:"currency"`
	LastCheckedAt *time.Time `json:"last_checked_at" db:"last_checked_at"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
}

// PriceHistory is one observed price of a product link.
type PriceHistory struct {
	ID            uuid.UUID `json:"id" db:"id"`
	ProductLinkID uuid.UUID `json:"product_link_id" db:"product_link_id"`
	Price         float64   `json:"price" db:"price"`
	Currency      string    `json:"currency" db:"currency"`
	RecordedAt    time.Time `json:"recorded_at" db:"recorded_at"`
}

// DefaultPriceDropThreshold is the percentage drop that triggers an alert.
const DefaultPriceDropThreshold = 15

// AlertPreferences holds a user's price alert settings.
type AlertPreferences struct {
	ID                    uuid.UUID `json:"id" db:"id"`
	UserID                uuid.UUID `json:"user_id" db:"user_id"`
	EmailEnabled          bool      `json:"email_enabled" db:"email_enabled"`
	PriceDropThreshold    int       `json:"price_drop_threshold" db:"price_drop_threshold"`
	SlackWebhookEncrypted []byte    `json:"-" db:"slack_webhook_encrypted"` // AES-GCM sealed webhook URL
	CreatedAt             time.Time `json:"created_at" db:"created_at"`
	UpdatedAt             time.Time `json:"updated_at" db:"updated_at"`
}
