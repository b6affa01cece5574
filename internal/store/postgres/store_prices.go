package postgres

import (
	"context"
	"fmt"
	"time"

	"productboards-backend/internal/models"
	"productboards-backend/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// --- Price History Methods ---

const priceColumns = `id, product_link_id, price::float8, currency, recorded_at`

func scanPrice(row pgx.Row) (*models.PriceHistory, error) {
	var h models.PriceHistory
	if err := row.Scan(&h.ID, &h.ProductLinkID, &h.Price, &h.Currency, &h.RecordedAt); err != nil {
		return nil, err
	}
	return &h, nil
}

const insertPrice = `-- name: InsertPrice :one
INSERT INTO price_history (id, product_link_id, price, currency, recorded_at)
SELECT $1, l.id, $3, COALESCE(NULLIF($4, ''), l.currency), $5
FROM product_links l
WHERE l.id = $2
RETURNING ` + priceColumns + `;
`

const refreshLinkPrice = `-- name: RefreshLinkPrice :one
UPDATE product_links
SET current_price = $2, last_checked_at = $3
WHERE id = $1
RETURNING product_id;
`

const refreshProductPrice = `-- name: RefreshProductPrice :exec
UPDATE products
SET current_price = $2, updated_at = NOW()
WHERE id = $1;
`

// RecordPrice inserts a price and refreshes the link and product current price in one transaction.
func (s *PostgresStore) RecordPrice(ctx context.Context, arg store.RecordPriceParams) (*models.PriceHistory, error) {
	recordedAt := arg.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now()
	}

	var recorded *models.PriceHistory
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		h, err := scanPrice(tx.QueryRow(ctx, insertPrice, orNewID(arg.ID), arg.ProductLinkID, arg.Price, arg.Currency, recordedAt))
		if err != nil {
			return err
		}
		var productID uuid.UUID
		if err := tx.QueryRow(ctx, refreshLinkPrice, arg.ProductLinkID, arg.Price, h.RecordedAt).Scan(&productID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, refreshProductPrice, productID, arg.Price); err != nil {
			return err
		}
		recorded = h
		return nil
	})
	if err != nil {
		return nil, queryErr("RecordPrice", err)
	}
	return recorded, nil
}

const listPriceHistory = `-- name: ListPriceHistory :many
SELECT ` + priceColumns + `
FROM price_history
WHERE product_link_id = $1
ORDER BY recorded_at ASC, id ASC;
`

func (s *PostgresStore) ListPriceHistory(ctx context.Context, productLinkID uuid.UUID) ([]models.PriceHistory, error) {
	rows, err := s.db.Query(ctx, listPriceHistory, productLinkID)
	if err != nil {
		return nil, queryErr("ListPriceHistory", err)
	}
	defer rows.Close()

	items := []models.PriceHistory{}
	for rows.Next() {
		h, err := scanPrice(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning price row: %w", err)
		}
		items = append(items, *h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating price rows: %w", err)
	}
	return items, nil
}

// --- Alert Preference Methods ---

const alertColumns = `id, user_id, email_enabled, price_drop_threshold, slack_webhook_encrypted, created_at, updated_at`

func scanAlertPreferences(row pgx.Row) (*models.AlertPreferences, error) {
	var a models.AlertPreferences
	err := row.Scan(
		&a.ID,
		&a.UserID,
		&a.EmailEnabled,
		&a.PriceDropThreshold,
		&a.SlackWebhookEncrypted,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

const getAlertPreferences = `-- name: GetAlertPreferences :one
SELECT ` + alertColumns + `
FROM alert_preferences
WHERE user_id = $1;
`

func (s *PostgresStore) GetAlertPreferences(ctx context.Context, userID uuid.UUID) (*models.AlertPreferences, error) {
	a, err := scanAlertPreferences(s.db.QueryRow(ctx, getAlertPreferences, userID))
	if err != nil {
		return nil, queryErr("GetAlertPreferences", err)
	}
	return a, nil
}

const upsertAlertPreferences = `-- name: UpsertAlertPreferences :one
INSERT INTO alert_preferences (user_id, email_enabled, price_drop_threshold, slack_webhook_encrypted)
VALUES ($1, $2, $3, $4)
ON CONFLICT (user_id) DO UPDATE
SET email_enabled = EXCLUDED.email_enabled,
    price_drop_threshold = EXCLUDED.price_drop_threshold,
    slack_webhook_encrypted = EXCLUDED.slack_webhook_encrypted,
    updated_at = NOW()
RETURNING ` + alertColumns + `;
`

func (s *PostgresStore) UpsertAlertPreferences(ctx context.Context, arg store.UpsertAlertPreferencesParams) (*models.AlertPreferences, error) {
	a, err := scanAlertPreferences(s.db.QueryRow(ctx, upsertAlertPreferences,
		arg.UserID,
		arg.EmailEnabled,
		arg.PriceDropThreshold,
		arg.SlackWebhookEncrypted,
	))
	if err != nil {
		return nil, queryErr("UpsertAlertPreferences", err)
	}
	return a, nil
}
