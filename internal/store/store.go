package store

import (
	"context"
	"errors"
	"time"

	"productboards-backend/internal/models"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a specific record is not found.
var ErrNotFound = errors.New("record not found")

// CreateConversationParams contains parameters for creating a conversation.
type CreateConversationParams struct {
	ID     uuid.UUID
	UserID uuid.UUID
	Title  string
}

// UpdateConversationParams contains parameters for updating a conversation.
// Nil fields are left unchanged.
type UpdateConversationParams struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Title     *string
	UpdatedAt *time.Time
}

// CreateMessageParams contains parameters for appending a message.
type CreateMessageParams struct {
	ID             uuid.UUID
	ConversationID uuid.UUID
	Role           models.Role
	Content        string
	Metadata       map[string]any // nil is stored as an empty object
}

// CreateBoardParams contains parameters for creating a board.
type CreateBoardParams struct {
	ID     uuid.UUID
	UserID uuid.UUID
	Name   string
	Note   *string
}

// UpdateBoardParams contains parameters for updating a board.
type UpdateBoardParams struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	Name          *string
	Note          *string
	AllowComments *bool
}

// SetBoardSharingParams toggles public access. ShareToken is nil when IsPublic is false.
type SetBoardSharingParams struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	IsPublic   bool
	ShareToken *string
}

// CreateProductParams contains parameters for creating a product.
type CreateProductParams struct {
	ID           uuid.UUID
	BoardID      uuid.UUID
	UserID       uuid.UUID
	Name         string
	ImageURL     *string
	Note         *string
	CurrentPrice *float64
	Currency     string
}

// UpdateProductParams contains parameters for updating a product.
type UpdateProductParams struct {
	ID                uuid.UUID
	UserID            uuid.UUID
	Name              *string
	ImageURL          *string
	Note              *string
	AINote            *string
	PriceAlertEnabled *bool
	TargetPrice       *float64
}

// CreateProductLinkParams contains parameters for adding a retailer link to a product.
type CreateProductLinkParams struct {
	ID           uuid.UUID
	ProductID    uuid.UUID
	URL          string
	Retailer     *string
	CurrentPrice *float64
	Currency     string
}

// RecordPriceParams contains parameters for recording an observed price.
// Recording also refreshes the link and product current price.
type RecordPriceParams struct {
	ID            uuid.UUID
	ProductLinkID uuid.UUID
	Price         float64
	Currency      string
	RecordedAt    time.Time
}

// UpsertAlertPreferencesParams contains the full set of alert settings for a user.
type UpsertAlertPreferencesParams struct {
	UserID                uuid.UUID
	EmailEnabled          bool
	PriceDropThreshold    int
	SlackWebhookEncrypted []byte
}

// Store defines the interface for database operations.
// This allows for mocking in tests and potential DB backend switching.
type Store interface {
	// User operations
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error

	// Conversation operations
	CreateConversation(ctx context.Context, arg CreateConversationParams) (*models.Conversation, error)
	GetConversationByID(ctx context.Context, id uuid.UUID) (*models.Conversation, error)
	ListConversations(ctx context.Context, userID uuid.UUID) ([]models.Conversation, error) // updated_at descending
	UpdateConversation(ctx context.Context, arg UpdateConversationParams) (*models.Conversation, error)
	DeleteConversation(ctx context.Context, id uuid.UUID, userID uuid.UUID) error // Cascades to messages

	// Message operations
	CreateMessage(ctx context.Context, arg CreateMessageParams) (*models.Message, error)
	GetMessageByID(ctx context.Context, id uuid.UUID) (*models.Message, error)
	ListMessages(ctx context.Context, conversationID uuid.UUID) ([]models.Message, error) // created_at, id ascending

	// Board operations
	CreateBoard(ctx context.Context, arg CreateBoardParams) (*models.Board, error)
	GetBoardByID(ctx context.Context, id uuid.UUID) (*models.Board, error)
	GetBoardByShareToken(ctx context.Context, token string) (*models.Board, error)
	ListBoards(ctx context.Context, userID uuid.UUID) ([]models.Board, error)
	UpdateBoard(ctx context.Context, arg UpdateBoardParams) (*models.Board, error)
	SetBoardSharing(ctx context.Context, arg SetBoardSharingParams) (*models.Board, error)
	DeleteBoard(ctx context.Context, id uuid.UUID, userID uuid.UUID) error

	// Product operations. Products are returned with their links.
	CreateProduct(ctx context.Context, arg CreateProductParams) (*models.Product, error)
	GetProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	ListProductsByBoard(ctx context.Context, boardID uuid.UUID) ([]models.Product, error)
	UpdateProduct(ctx context.Context, arg UpdateProductParams) (*models.Product, error)
	MoveProduct(ctx context.Context, id uuid.UUID, userID uuid.UUID, boardID uuid.UUID) (*models.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID, userID uuid.UUID) error

	// Product link and price operations
	CreateProductLink(ctx context.Context, arg CreateProductLinkParams) (*models.ProductLink, error)
	GetProductLinkByID(ctx context.Context, id uuid.UUID) (*models.ProductLink, error)
	RecordPrice(ctx context.Context, arg RecordPriceParams) (*models.PriceHistory, error)
	ListPriceHistory(ctx context.Context, productLinkID uuid.UUID) ([]models.PriceHistory, error) // recorded_at ascending

	// Alert preference operations
	GetAlertPreferences(ctx context.Context, userID uuid.UUID) (*models.AlertPreferences, error)
	UpsertAlertPreferences(ctx context.Context, arg UpsertAlertPreferencesParams) (*models.AlertPreferences, error)
}
