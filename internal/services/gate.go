package services

import (
	"context"
	"errors"
	"fmt"

	"productboards-backend/internal/models"
	"productboards-backend/internal/store"

	"github.com/google/uuid"
)

// Gate checks ownership before any service touches a resource.
//
// Conversations owned by someone else are reported as ErrNotFound so their
// existence is not revealed. Boards, products and links report ErrForbidden,
// matching what the product note endpoint has always returned.
type Gate struct {
	store store.Store
}

func NewGate(s store.Store) *Gate {
	return &Gate{store: s}
}

func requireUser(userID uuid.UUID) error {
	if userID == uuid.Nil {
		return fmt.Errorf("%w: no authenticated user", ErrUnauthorized)
	}
	return nil
}

// Conversation returns the conversation if userID owns it.
func (g *Gate) Conversation(ctx context.Context, userID, conversationID uuid.UUID) (*models.Conversation, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	conv, err := g.store.GetConversationByID(ctx, conversationID)
	if err != nil {
		return nil, storeErr("get conversation", err)
	}
	if conv.UserID != userID {
		return nil, fmt.Errorf("%w: get conversation", ErrNotFound)
	}
	return conv, nil
}

// Board returns the board if userID owns it.
func (g *Gate) Board(ctx context.Context, userID, boardID uuid.UUID) (*models.Board, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	board, err := g.store.GetBoardByID(ctx, boardID)
	if err != nil {
		return nil, storeErr("get board", err)
	}
	if board.UserID != userID {
		return nil, fmt.Errorf("%w: board %s belongs to another user", ErrForbidden, boardID)
	}
	return board, nil
}

// Product returns the product, with links, if userID owns it.
func (g *Gate) Product(ctx context.Context, userID, productID uuid.UUID) (*models.Product, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	product, err := g.store.GetProductByID(ctx, productID)
	if err != nil {
		return nil, storeErr("get product", err)
	}
	if product.UserID != userID {
		return nil, fmt.Errorf("%w: product %s belongs to another user", ErrForbidden, productID)
	}
	return product, nil
}

// ProductLink returns the link and its product if userID owns the product.
func (g *Gate) ProductLink(ctx context.Context, userID, linkID uuid.UUID) (*models.ProductLink, *models.Product, error) {
	if err := requireUser(userID); err != nil {
		return nil, nil, err
	}
	link, err := g.store.GetProductLinkByID(ctx, linkID)
	if err != nil {
		return nil, nil, storeErr("get product link", err)
	}
	product, err := g.Product(ctx, userID, link.ProductID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Orphaned link
			return nil, nil, fmt.Errorf("%w: get product link", ErrNotFound)
		}
		return nil, nil, err
	}
	return link, product, nil
}
