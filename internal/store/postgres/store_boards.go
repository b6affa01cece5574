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

// --- Board Methods ---

const boardColumns = `id, user_id, name, note, share_token, is_public, allow_comments, created_at, updated_at`

func scanBoard(row pgx.Row) (*models.Board, error) {
	var b models.Board
	err := row.Scan(
		&b.ID,
		&b.UserID,
		&b.Name,
		&b.Note,
		&b.ShareToken,
		&b.IsPublic,
		&b.AllowComments,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

const createBoard = `-- name: CreateBoard :one
INSERT INTO boards (id, user_id, name, note)
VALUES ($1, $2, $3, $4)
RETURNING ` + boardColumns + `;
`

func (s *PostgresStore) CreateBoard(ctx context.Context, arg store.CreateBoardParams) (*models.Board, error) {
	board, err := scanBoard(s.db.QueryRow(ctx, createBoard, orNewID(arg.ID), arg.UserID, arg.Name, arg.Note))
	if err != nil {
		return nil, queryErr("CreateBoard", err)
	}
	return board, nil
}

const getBoardByID = `-- name: GetBoardByID :one
SELECT ` + boardColumns + `
FROM boards
WHERE id = $1;
`

func (s *PostgresStore) GetBoardByID(ctx context.Context, id uuid.UUID) (*models.Board, error) {
	board, err := scanBoard(s.db.QueryRow(ctx, getBoardByID, id))
	if err != nil {
		return nil, queryErr("GetBoardByID", err)
	}
	return board, nil
}

const getBoardByShareToken = `-- name: GetBoardByShareToken :one
SELECT ` + boardColumns + `
FROM boards
WHERE share_token = $1;
`

func (s *PostgresStore) GetBoardByShareToken(ctx context.Context, token string) (*models.Board, error) {
	board, err := scanBoard(s.db.QueryRow(ctx, getBoardByShareToken, token))
	if err != nil {
		return nil, queryErr("GetBoardByShareToken", err)
	}
	return board, nil
}

const listBoards = `-- name: ListBoards :many
SELECT ` + boardColumns + `
FROM boards
WHERE user_id = $1
ORDER BY created_at DESC;
`

func (s *PostgresStore) ListBoards(ctx context.Context, userID uuid.UUID) ([]models.Board, error) {
	rows, err := s.db.Query(ctx, listBoards, userID)
	if err != nil {
		return nil, queryErr("ListBoards", err)
	}
	defer rows.Close()

	items := []models.Board{}
	for rows.Next() {
		b, err := scanBoard(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning board row: %w", err)
		}
		items = append(items, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating board rows: %w", err)
	}
	return items, nil
}

// UpdateBoard builds the query dynamically based on which fields are provided.
func (s *PostgresStore) UpdateBoard(ctx context.Context, arg store.UpdateBoardParams) (*models.Board, error) {
	setClauses := []string{}
	args := []any{}
	argID := 1

	if arg.Name != nil {
		setClauses = append(setClauses, fmt.Sprintf("name = $%d", argID))
		args = append(args, *arg.Name)
		argID++
	}
	if arg.Note != nil {
		setClauses = append(setClauses, fmt.Sprintf("note = $%d", argID))
		args = append(args, *arg.Note)
		argID++
	}
	if arg.AllowComments != nil {
		setClauses = append(setClauses, fmt.Sprintf("allow_comments = $%d", argID))
		args = append(args, *arg.AllowComments)
		argID++
	}
	setClauses = append(setClauses, "updated_at = NOW()")

	args = append(args, arg.ID, arg.UserID)
	query := fmt.Sprintf(`-- name: UpdateBoard :one
		UPDATE boards
		SET %s
		WHERE id = $%d AND user_id = $%d
		RETURNING %s;`,
		strings.Join(setClauses, ", "), argID, argID+1, boardColumns)

	board, err := scanBoard(s.db.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, queryErr("UpdateBoard", err)
	}
	return board, nil
}

const setBoardSharing = `-- name: SetBoardSharing :one
UPDATE boards
SET is_public = $3, share_token = $4, updated_at = NOW()
WHERE id = $1 AND user_id = $2
RETURNING ` + boardColumns + `;
`

func (s *PostgresStore) SetBoardSharing(ctx context.Context, arg store.SetBoardSharingParams) (*models.Board, error) {
	board, err := scanBoard(s.db.QueryRow(ctx, setBoardSharing, arg.ID, arg.UserID, arg.IsPublic, arg.ShareToken))
	if err != nil {
		return nil, queryErr("SetBoardSharing", err)
	}
	return board, nil
}

const deleteBoard = `-- name: DeleteBoard :exec
DELETE FROM boards
WHERE id = $1 AND user_id = $2;
`

// DeleteBoard removes the board; products, links and price history cascade.
func (s *PostgresStore) DeleteBoard(ctx context.Context, id uuid.UUID, userID uuid.UUID) error {
	tag, err := s.db.Exec(ctx, deleteBoard, id, userID)
	if err != nil {
		return queryErr("DeleteBoard", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
