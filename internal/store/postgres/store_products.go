package postgres

import (
	"context"
	"fmt"
	"strings"

	"productboards-backend/internal/models"
	"productboards-backend/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// --- Product Methods ---

const productColumns = `id, board_id, user_id, name, image_url, note, ai_note, current_price::float8, currency,
    price_alert_enabled, target_price::float8, created_at, updated_at`

func scanProduct(row pgx.Row) (*models.Product, error) {
	var p models.Product
	err := row.Scan(
		&p.ID,
		&p.BoardID,
		&p.UserID,
		&p.Name,
		&p.ImageURL,
		&p.Note,
		&p.AINote,
		&p.CurrentPrice,
		&p.Currency,
		&p.PriceAlertEnabled,
		&p.TargetPrice,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Links = []models.ProductLink{}
	return &p, nil
}

const listLinksForProducts = `-- name: ListLinksForProducts :many
SELECT ` + linkColumns + `
FROM product_links
WHERE product_id = ANY($1)
ORDER BY created_at ASC, id ASC;
`

// attachLinks loads the links of every product in one query.
func (s *PostgresStore) attachLinks(ctx context.Context, products []*models.Product) error {
	if len(products) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(products))
	byID := make(map[uuid.UUID]*models.Product, len(products))
	for _, p := range products {
		ids = append(ids, p.ID)
		byID[p.ID] = p
	}

	rows, err := s.db.Query(ctx, listLinksForProducts, ids)
	if err != nil {
		return queryErr("ListLinksForProducts", err)
	}
	defer rows.Close()
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return fmt.Errorf("error scanning product link row: %w", err)
		}
		if p, ok := byID[l.ProductID]; ok {
			p.Links = append(p.Links, *l)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating product link rows: %w", err)
	}
	return nil
}

func (s *PostgresStore) withLinks(ctx context.Context, p *models.Product) (*models.Product, error) {
	if err := s.attachLinks(ctx, []*models.Product{p}); err != nil {
		return nil, err
	}
	return p, nil
}

const createProduct = `-- name: CreateProduct :one
INSERT INTO products (id, board_id, user_id, name, image_url, note, current_price, currency)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + productColumns + `;
`

func (s *PostgresStore) CreateProduct(ctx context.Context, arg store.CreateProductParams) (*models.Product, error) {
	p, err := scanProduct(s.db.QueryRow(ctx, createProduct,
		orNewID(arg.ID),
		arg.BoardID,
		arg.UserID,
		arg.Name,
		arg.ImageURL,
		arg.Note,
		arg.CurrentPrice,
		orDefaultCurrency(arg.Currency),
	))
	if err != nil {
		return nil, queryErr("CreateProduct", err)
	}
	return p, nil
}

const getProductByID = `-- name: GetProductByID :one
SELECT ` + productColumns + `
FROM products
WHERE id = $1;
`

func (s *PostgresStore) GetProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	p, err := scanProduct(s.db.QueryRow(ctx, getProductByID, id))
	if err != nil {
		return nil, queryErr("GetProductByID", err)
	}
	return s.withLinks(ctx, p)
}

const listProductsByBoard = `-- name: ListProductsByBoard :many
SELECT ` + productColumns + `
FROM products
WHERE board_id = $1
ORDER BY created_at DESC;
`

func (s *PostgresStore) ListProductsByBoard(ctx context.Context, boardID uuid.UUID) ([]models.Product, error) {
	rows, err := s.db.Query(ctx, listProductsByBoard, boardID)
	if err != nil {
		return nil, queryErr("ListProductsByBoard", err)
	}
	var products []*models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("error scanning product row: %w", err)
		}
		products = append(products, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating product rows: %w", err)
	}

	if err := s.attachLinks(ctx, products); err != nil {
		return nil, err
	}
	items := make([]models.Product, 0, len(products))
	for _, p := range products {
		items = append(items, *p)
	}
	return items, nil
}

// UpdateProduct builds the query dynamically based on which fields are provided.
func (s *PostgresStore) UpdateProduct(ctx context.Context, arg store.UpdateProductParams) (*models.Product, error) {
	setClauses := []string{}
	args := []any{}
	argID := 1
	set := func(column string, value any) {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, argID))
		args = append(args, value)
		argID++
	}

	if arg.Name != nil {
		set("name", *arg.Name)
	}
	if arg.ImageURL != nil {
		set("image_url", *arg.ImageURL)
	}
	if arg.Note != nil {
		set("note", *arg.Note)
	}
	if arg.AINote != nil {
		set("ai_note", *arg.AINote)
	}
	if arg.PriceAlertEnabled != nil {
		set("price_alert_enabled", *arg.PriceAlertEnabled)
	}
	if arg.TargetPrice != nil {
		set("target_price", *arg.TargetPrice)
	}
	setClauses = append(setClauses, "updated_at = NOW()")

	args = append(args, arg.ID, arg.UserID)
	query := fmt.Sprintf(`-- name: UpdateProduct :one
		UPDATE products
		SET %s
		WHERE id = $%d AND user_id = $%d
		RETURNING %s;`,
		strings.Join(setClauses, ", "), argID, argID+1, productColumns)

	p, err := scanProduct(s.db.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, queryErr("UpdateProduct", err)
	}
	return s.withLinks(ctx, p)
}

const moveProduct = `-- name: MoveProduct :one
UPDATE products
SET board_id = $3, updated_at = NOW()
WHERE id = $1 AND user_id = $2
RETURNING ` + productColumns + `;
`

func (s *PostgresStore) MoveProduct(ctx context.Context, id uuid.UUID, userID uuid.UUID, boardID uuid.UUID) (*models.Product, error) {
	p, err := scanProduct(s.db.QueryRow(ctx, moveProduct, id, userID, boardID))
	if err != nil {
		return nil, queryErr("MoveProduct", err)
	}
	return s.withLinks(ctx, p)
}

const deleteProduct = `-- name: DeleteProduct :exec
DELETE FROM products
WHERE id = $1 AND user_id = $2;
`

func (s *PostgresStore) DeleteProduct(ctx context.Context, id uuid.UUID, userID uuid.UUID) error {
	tag, err := s.db.Exec(ctx, deleteProduct, id, userID)
	if err != nil {
		return queryErr("DeleteProduct", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// --- Product Link Methods ---

const linkColumns = `id, product_id, url, retailer, current_price::float8, currency, last_checked_at, created_at`

func scanLink(row pgx.Row) (*models.ProductLink, error) {
	var l models.ProductLink
	err := row.Scan(
		&l.ID,
		&l.ProductID,
		&l.URL,
		&l.Retailer,
		&l.CurrentPrice,
		&l.Currency,
		&l.LastCheckedAt,
		&l.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

const createProductLink = `-- name: CreateProductLink :one
INSERT INTO product_links (id, product_id, url, retailer, current_price, currency)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + linkColumns + `;
`

func (s *PostgresStore) CreateProductLink(ctx context.Context, arg store.CreateProductLinkParams) (*models.ProductLink, error) {
	l, err := scanLink(s.db.QueryRow(ctx, createProductLink,
		orNewID(arg.ID),
		arg.ProductID,
		arg.URL,
		arg.Retailer,
		arg.CurrentPrice,
		orDefaultCurrency(arg.Currency),
	))
	if err != nil {
		return nil, queryErr("CreateProductLink", err)
	}
	return l, nil
}

const getProductLinkByID = `-- name: GetProductLinkByID :one
SELECT ` + linkColumns + `
FROM product_links
WHERE id = $1;
`

func (s *PostgresStore) GetProductLinkByID(ctx context.Context, id uuid.UUID) (*models.ProductLink, error) {
	l, err := scanLink(s.db.QueryRow(ctx, getProductLinkByID, id))
	if err != nil {
		return nil, queryErr("GetProductLinkByID", err)
	}
	return l, nil
}
