package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"productboards-backend/internal/ai"
	"productboards-backend/internal/models"
	"productboards-backend/internal/realtime"
	"productboards-backend/internal/store"

	"github.com/google/uuid"
)

// ProductService manages products, their retailer links and price history.
type ProductService struct {
	store  store.Store
	gate   *Gate
	ai     ai.Client
	alerts *AlertService
	prices *realtime.Hub[models.PriceHistory]
	log    *slog.Logger
}

func NewProductService(s store.Store, gate *Gate, client ai.Client, alerts *AlertService, prices *realtime.Hub[models.PriceHistory]) *ProductService {
	return &ProductService{
		store:  s,
		gate:   gate,
		ai:     client,
		alerts: alerts,
		prices: prices,
		log:    slog.Default().With("component", "products"),
	}
}

func validateURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.ParseRequestURI(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%w: %q is not an http(s) URL", ErrInvalidArgument, raw)
	}
	return raw, nil
}

func validatePrice(p *float64) error {
	if p != nil && *p < 0 {
		return fmt.Errorf("%w: price cannot be negative", ErrInvalidArgument)
	}
	return nil
}

// Create saves a product entered by hand. A URL in req also creates the first link.
func (s *ProductService) Create(ctx context.Context, userID, boardID uuid.UUID, req models.CreateProductRequest) (*models.Product, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: product name is required", ErrInvalidArgument)
	}
	if err := validatePrice(req.CurrentPrice); err != nil {
		return nil, err
	}
	link := ""
	if req.URL != "" {
		var err error
		if link, err = validateURL(req.URL); err != nil {
			return nil, err
		}
	}
	if _, err := s.gate.Board(ctx, userID, boardID); err != nil {
		return nil, err
	}

	product, err := s.store.CreateProduct(ctx, store.CreateProductParams{
		ID:           uuid.New(),
		BoardID:      boardID,
		UserID:       userID,
		Name:         name,
		ImageURL:     req.ImageURL,
		Note:         req.Note,
		CurrentPrice: req.CurrentPrice,
		Currency:     req.Currency,
	})
	if err != nil {
		return nil, storeErr("create product", err)
	}
	if link == "" {
		return product, nil
	}

	if _, err := s.store.CreateProductLink(ctx, store.CreateProductLinkParams{
		ID:           uuid.New(),
		ProductID:    product.ID,
		URL:          link,
		Retailer:     req.Retailer,
		CurrentPrice: req.CurrentPrice,
		Currency:     product.Currency,
	}); err != nil {
		return nil, storeErr("create product link", err)
	}
	return s.reload(ctx, product.ID)
}

// CreateFromURL asks the assistant to read a retailer page and saves the result with its link.
// A note is generated afterwards on a best-effort basis.
func (s *ProductService) CreateFromURL(ctx context.Context, userID, boardID uuid.UUID, rawURL string) (*models.Product, error) {
	link, err := validateURL(rawURL)
	if err != nil {
		return nil, err
	}
	if _, err := s.gate.Board(ctx, userID, boardID); err != nil {
		return nil, err
	}

	extracted, err := s.ai.ExtractProduct(ctx, link)
	if err != nil {
		return nil, aiErr("extract_product", err)
	}

	product, err := s.store.CreateProduct(ctx, store.CreateProductParams{
		ID:           uuid.New(),
		BoardID:      boardID,
		UserID:       userID,
		Name:         extracted.Name,
		ImageURL:     extracted.ImageURL,
		CurrentPrice: extracted.Price,
		Currency:     extracted.Currency,
	})
	if err != nil {
		return nil, storeErr("create product", err)
	}
	if _, err := s.store.CreateProductLink(ctx, store.CreateProductLinkParams{
		ID:           uuid.New(),
		ProductID:    product.ID,
		URL:          link,
		Retailer:     extracted.Retailer,
		CurrentPrice: extracted.Price,
		Currency:     product.Currency,
	}); err != nil {
		return nil, storeErr("create product link", err)
	}

	if note, err := s.ai.ProductNote(ctx, product.Name, product.CurrentPrice); err != nil {
		s.log.Warn("Product note generation failed", "product_id", product.ID, "error", err)
	} else if note != "" {
		if _, err := s.store.UpdateProduct(ctx, store.UpdateProductParams{ID: product.ID, UserID: userID, AINote: &note}); err != nil {
			s.log.Warn("Failed to store product note", "product_id", product.ID, "error", err)
		}
	}
	return s.reload(ctx, product.ID)
}

func (s *ProductService) reload(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	product, err := s.store.GetProductByID(ctx, productID)
	if err != nil {
		return nil, storeErr("get product", err)
	}
	return product, nil
}

func (s *ProductService) Get(ctx context.Context, userID, productID uuid.UUID) (*models.Product, error) {
	return s.gate.Product(ctx, userID, productID)
}

// ListByBoard returns the board's products with their links, newest first.
func (s *ProductService) ListByBoard(ctx context.Context, userID, boardID uuid.UUID) ([]models.Product, error) {
	if _, err := s.gate.Board(ctx, userID, boardID); err != nil {
		return nil, err
	}
	products, err := s.store.ListProductsByBoard(ctx, boardID)
	if err != nil {
		return nil, storeErr("list products", err)
	}
	if products == nil {
		products = []models.Product{}
	}
	return products, nil
}

func (s *ProductService) Update(ctx context.Context, userID, productID uuid.UUID, req models.UpdateProductRequest) (*models.Product, error) {
	if req.Name != nil {
		trimmed := strings.TrimSpace(*req.Name)
		if trimmed == "" {
			return nil, fmt.Errorf("%w: product name cannot be empty", ErrInvalidArgument)
		}
		req.Name = &trimmed
	}
	if err := validatePrice(req.TargetPrice); err != nil {
		return nil, err
	}
	if _, err := s.gate.Product(ctx, userID, productID); err != nil {
		return nil, err
	}
	product, err := s.store.UpdateProduct(ctx, store.UpdateProductParams{
		ID:                productID,
		UserID:            userID,
		Name:              req.Name,
		ImageURL:          req.ImageURL,
		Note:              req.Note,
		PriceAlertEnabled: req.PriceAlertEnabled,
		TargetPrice:       req.TargetPrice,
	})
	if err != nil {
		return nil, storeErr("update product", err)
	}
	return product, nil
}

// Move puts the product on another board. Both must belong to the user.
func (s *ProductService) Move(ctx context.Context, userID, productID, targetBoardID uuid.UUID) (*models.Product, error) {
	if targetBoardID == uuid.Nil {
		return nil, fmt.Errorf("%w: board_id is required", ErrInvalidArgument)
	}
	if _, err := s.gate.Product(ctx, userID, productID); err != nil {
		return nil, err
	}
	if _, err := s.gate.Board(ctx, userID, targetBoardID); err != nil {
		return nil, err
	}
	product, err := s.store.MoveProduct(ctx, productID, userID, targetBoardID)
	if err != nil {
		return nil, storeErr("move product", err)
	}
	return product, nil
}

func (s *ProductService) Delete(ctx context.Context, userID, productID uuid.UUID) error {
	if _, err := s.gate.Product(ctx, userID, productID); err != nil {
		return err
	}
	if err := s.store.DeleteProduct(ctx, productID, userID); err != nil {
		return storeErr("delete product", err)
	}
	return nil
}

// AddLink attaches another retailer URL to a product.
func (s *ProductService) AddLink(ctx context.Context, userID, productID uuid.UUID, req models.CreateProductLinkRequest) (*models.ProductLink, error) {
	link, err := validateURL(req.URL)
	if err != nil {
		return nil, err
	}
	if err := validatePrice(req.CurrentPrice); err != nil {
		return nil, err
	}
	product, err := s.gate.Product(ctx, userID, productID)
	if err != nil {
		return nil, err
	}
	currency := req.Currency
	if currency == "" {
		currency = product.Currency
	}
	created, err := s.store.CreateProductLink(ctx, store.CreateProductLinkParams{
		ID:           uuid.New(),
		ProductID:    productID,
		URL:          link,
		Retailer:     req.Retailer,
		CurrentPrice: req.CurrentPrice,
		Currency:     currency,
	})
	if err != nil {
		return nil, storeErr("create product link", err)
	}
	return created, nil
}

// GenerateNote asks the assistant for a short note and stores it as the product's AI note.
// Only the owner may do this; anyone else gets ErrForbidden.
func (s *ProductService) GenerateNote(ctx context.Context, userID, productID uuid.UUID) (string, error) {
	product, err := s.gate.Product(ctx, userID, productID)
	if err != nil {
		return "", err
	}
	note, err := s.ai.ProductNote(ctx, product.Name, product.CurrentPrice)
	if err != nil {
		return "", aiErr("product_note", err)
	}
	if note == "" {
		return "", nil
	}
	if _, err := s.store.UpdateProduct(ctx, store.UpdateProductParams{ID: productID, UserID: userID, AINote: &note}); err != nil {
		return "", storeErr("store product note", err)
	}
	return note, nil
}

// RecordPrice stores an observed price for a link, refreshes the current prices and
// evaluates price alerts. Alert failures are logged, never returned.
func (s *ProductService) RecordPrice(ctx context.Context, userID, linkID uuid.UUID, price float64, currency string) (*models.PriceHistory, error) {
	if price <= 0 {
		return nil, fmt.Errorf("%w: price must be positive", ErrInvalidArgument)
	}
	link, product, err := s.gate.ProductLink(ctx, userID, linkID)
	if err != nil {
		return nil, err
	}
	previous := product.CurrentPrice
	if currency == "" {
		currency = link.Currency
	}

	recorded, err := s.store.RecordPrice(ctx, store.RecordPriceParams{
		ID:            uuid.New(),
		ProductLinkID: linkID,
		Price:         price,
		Currency:      currency,
		RecordedAt:    time.Now(),
	})
	if err != nil {
		return nil, storeErr("record price", err)
	}

	if s.alerts != nil {
		if _, err := s.alerts.Evaluate(context.WithoutCancel(ctx), product, link, previous, recorded); err != nil {
			s.log.Warn("Price alert failed", "product_id", product.ID, "error", err)
		}
	}
	return recorded, nil
}

// PriceHistory returns the recorded prices of a link, oldest first.
func (s *ProductService) PriceHistory(ctx context.Context, userID, linkID uuid.UUID) ([]models.PriceHistory, error) {
	if _, _, err := s.gate.ProductLink(ctx, userID, linkID); err != nil {
		return nil, err
	}
	history, err := s.store.ListPriceHistory(ctx, linkID)
	if err != nil {
		return nil, storeErr("list price history", err)
	}
	if history == nil {
		history = []models.PriceHistory{}
	}
	return history, nil
}

// SubscribePrices delivers prices recorded for the link from now on.
func (s *ProductService) SubscribePrices(ctx context.Context, userID, linkID uuid.UUID, onPrice func(models.PriceHistory)) (*realtime.Subscription, error) {
	if _, _, err := s.gate.ProductLink(ctx, userID, linkID); err != nil {
		return nil, err
	}
	return s.prices.Subscribe(linkID, onPrice), nil
}
