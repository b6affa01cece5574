package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"productboards-backend/internal/ai"
	"productboards-backend/internal/models"
	"productboards-backend/internal/store"

	"github.com/google/uuid"
	"github.com/lithammer/shortuuid/v4"
)

// BoardService manages boards and their public share links.
type BoardService struct {
	store    store.Store
	gate     *Gate
	ai       ai.Client
	newToken func() string
}

func NewBoardService(s store.Store, gate *Gate, client ai.Client) *BoardService {
	return &BoardService{store: s, gate: gate, ai: client, newToken: shortuuid.New}
}

func (s *BoardService) Create(ctx context.Context, userID uuid.UUID, name string, note *string) (*models.Board, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: board name is required", ErrInvalidArgument)
	}
	board, err := s.store.CreateBoard(ctx, store.CreateBoardParams{ID: uuid.New(), UserID: userID, Name: name, Note: note})
	if err != nil {
		return nil, storeErr("create board", err)
	}
	return board, nil
}

func (s *BoardService) Get(ctx context.Context, userID, boardID uuid.UUID) (*models.Board, error) {
	return s.gate.Board(ctx, userID, boardID)
}

// List returns the user's boards, newest first.
func (s *BoardService) List(ctx context.Context, userID uuid.UUID) ([]models.Board, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	boards, err := s.store.ListBoards(ctx, userID)
	if err != nil {
		return nil, storeErr("list boards", err)
	}
	if boards == nil {
		boards = []models.Board{}
	}
	return boards, nil
}

func (s *BoardService) Update(ctx context.Context, userID, boardID uuid.UUID, req models.UpdateBoardRequest) (*models.Board, error) {
	if req.Name != nil {
		trimmed := strings.TrimSpace(*req.Name)
		if trimmed == "" {
			return nil, fmt.Errorf("%w: board name cannot be empty", ErrInvalidArgument)
		}
		req.Name = &trimmed
	}
	if _, err := s.gate.Board(ctx, userID, boardID); err != nil {
		return nil, err
	}
	board, err := s.store.UpdateBoard(ctx, store.UpdateBoardParams{
		ID:            boardID,
		UserID:        userID,
		Name:          req.Name,
		Note:          req.Note,
		AllowComments: req.AllowComments,
	})
	if err != nil {
		return nil, storeErr("update board", err)
	}
	return board, nil
}

// Delete removes the board together with its products, links and price history.
func (s *BoardService) Delete(ctx context.Context, userID, boardID uuid.UUID) error {
	if _, err := s.gate.Board(ctx, userID, boardID); err != nil {
		return err
	}
	if err := s.store.DeleteBoard(ctx, boardID, userID); err != nil {
		return storeErr("delete board", err)
	}
	return nil
}

// SetSharing makes a board public under a fresh share token, or private with no token.
func (s *BoardService) SetSharing(ctx context.Context, userID, boardID uuid.UUID, isPublic bool) (*models.Board, error) {
	if _, err := s.gate.Board(ctx, userID, boardID); err != nil {
		return nil, err
	}
	var token *string
	if isPublic {
		t := s.newToken()
		token = &t
	}
	board, err := s.store.SetBoardSharing(ctx, store.SetBoardSharingParams{
		ID:         boardID,
		UserID:     userID,
		IsPublic:   isPublic,
		ShareToken: token,
	})
	if err != nil {
		return nil, storeErr("set board sharing", err)
	}
	slog.Info("Board sharing changed", "component", "boards", "board_id", boardID, "public", isPublic)
	return board, nil
}

// GetShared resolves a share token to a public board and its products.
// Unknown tokens and private boards are both ErrNotFound.
func (s *BoardService) GetShared(ctx context.Context, token string) (*models.Board, []models.Product, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil, fmt.Errorf("%w: share token is required", ErrNotFound)
	}
	board, err := s.store.GetBoardByShareToken(ctx, token)
	if err != nil {
		return nil, nil, storeErr("get shared board", err)
	}
	if !board.IsPublic {
		return nil, nil, fmt.Errorf("%w: board is not shared", ErrNotFound)
	}
	products, err := s.store.ListProductsByBoard(ctx, board.ID)
	if err != nil {
		return nil, nil, storeErr("list shared products", err)
	}
	if products == nil {
		products = []models.Product{}
	}
	return board, products, nil
}

// Insight asks the assistant for a short shopping insight about the user's board.
func (s *BoardService) Insight(ctx context.Context, userID, boardID uuid.UUID) (string, error) {
	if _, err := s.gate.Board(ctx, userID, boardID); err != nil {
		return "", err
	}
	products, err := s.store.ListProductsByBoard(ctx, boardID)
	if err != nil {
		return "", storeErr("list products", err)
	}
	return s.insightFor(ctx, products)
}

// SharedInsight is Insight for a visitor holding a share token.
func (s *BoardService) SharedInsight(ctx context.Context, token string) (string, error) {
	_, products, err := s.GetShared(ctx, token)
	if err != nil {
		return "", err
	}
	return s.insightFor(ctx, products)
}

// InsightFor asks for an insight about an arbitrary product list.
func (s *BoardService) InsightFor(ctx context.Context, items []models.InsightProduct) (string, error) {
	if len(items) == 0 {
		return "", fmt.Errorf("%w: at least one product is required", ErrInvalidArgument)
	}
	aiItems := make([]ai.InsightItem, 0, len(items))
	for _, it := range items {
		aiItems = append(aiItems, ai.InsightItem{Name: it.Name, Price: it.Price})
	}
	insight, err := s.ai.BoardInsight(ctx, aiItems)
	if err != nil {
		return "", aiErr("board_insight", err)
	}
	return insight, nil
}

func (s *BoardService) insightFor(ctx context.Context, products []models.Product) (string, error) {
	items := make([]models.InsightProduct, 0, len(products))
	for _, p := range products {
		items = append(items, models.InsightProduct{Name: p.Name, Price: p.CurrentPrice, Note: p.Note})
	}
	insight, err := s.InsightFor(ctx, items)
	if errors.Is(err, ErrInvalidArgument) {
		return "", fmt.Errorf("%w: board has no products", ErrInvalidArgument)
	}
	return insight, err
}
