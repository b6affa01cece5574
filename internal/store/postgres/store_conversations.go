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

// --- Conversation Methods ---

const conversationColumns = `id, user_id, title, created_at, updated_at`

func scanConversation(row pgx.Row) (*models.Conversation, error) {
	var c models.Conversation
	if err := row.Scan(&c.ID, &c.UserID, &c.Title, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

const createConversation = `-- name: CreateConversation :one
INSERT INTO conversations (id, user_id, title)
VALUES ($1, $2, $3)
RETURNING ` + conversationColumns + `;
`

func (s *PostgresStore) CreateConversation(ctx context.Context, arg store.CreateConversationParams) (*models.Conversation, error) {
	conv, err := scanConversation(s.db.QueryRow(ctx, createConversation, orNewID(arg.ID), arg.UserID, arg.Title))
	if err != nil {
		return nil, queryErr("CreateConversation", err)
	}
	return conv, nil
}

const getConversationByID = `-- name: GetConversationByID :one
SELECT ` + conversationColumns + `
FROM conversations
WHERE id = $1;
`

func (s *PostgresStore) GetConversationByID(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	conv, err := scanConversation(s.db.QueryRow(ctx, getConversationByID, id))
	if err != nil {
		return nil, queryErr("GetConversationByID", err)
	}
	return conv, nil
}

const listConversations = `-- name: ListConversations :many
SELECT ` + conversationColumns + `
FROM conversations
WHERE user_id = $1
ORDER BY updated_at DESC, id DESC;
`

func (s *PostgresStore) ListConversations(ctx context.Context, userID uuid.UUID) ([]models.Conversation, error) {
	rows, err := s.db.Query(ctx, listConversations, userID)
	if err != nil {
		return nil, queryErr("ListConversations", err)
	}
	defer rows.Close()

	items := []models.Conversation{}
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning conversation row: %w", err)
		}
		items = append(items, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating conversation rows: %w", err)
	}
	return items, nil
}

// UpdateConversation builds the query dynamically based on which fields are provided.
func (s *PostgresStore) UpdateConversation(ctx context.Context, arg store.UpdateConversationParams) (*models.Conversation, error) {
	setClauses := []string{}
	args := []any{}
	argID := 1

	if arg.Title != nil {
		setClauses = append(setClauses, fmt.Sprintf("title = $%d", argID))
		args = append(args, *arg.Title)
		argID++
	}
	if arg.UpdatedAt != nil {
		setClauses = append(setClauses, fmt.Sprintf("updated_at = $%d", argID))
		args = append(args, *arg.UpdatedAt)
		argID++
	}
	if len(setClauses) == 0 {
		conv, err := s.GetConversationByID(ctx, arg.ID)
		if err != nil {
			return nil, err
		}
		if conv.UserID != arg.UserID {
			return nil, store.ErrNotFound
		}
		return conv, nil
	}

	args = append(args, arg.ID, arg.UserID)
	query := fmt.Sprintf(`-- name: UpdateConversation :one
		UPDATE conversations
		SET %s
		WHERE id = $%d AND user_id = $%d
		RETURNING %s;`,
		strings.Join(setClauses, ", "), argID, argID+1, conversationColumns)

	conv, err := scanConversation(s.db.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, queryErr("UpdateConversation", err)
	}
	return conv, nil
}

const deleteConversation = `-- name: DeleteConversation :exec
DELETE FROM conversations
WHERE id = $1 AND user_id = $2;
`

// DeleteConversation removes the conversation; messages go with it through ON DELETE CASCADE.
func (s *PostgresStore) DeleteConversation(ctx context.Context, id uuid.UUID, userID uuid.UUID) error {
	tag, err := s.db.Exec(ctx, deleteConversation, id, userID)
	if err != nil {
		return queryErr("DeleteConversation", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// --- Message Methods ---

const messageColumns = `id, conversation_id, role, content, metadata, created_at`

func scanMessage(row pgx.Row) (*models.Message, error) {
	var m models.Message
	if err := row.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.Metadata, &m.CreatedAt); err != nil {
		return nil, err
	}
	if m.Metadata == nil {
		m.Metadata = map[string]any{}
	}
	return &m, nil
}

const createMessage = `-- name: CreateMessage :one
INSERT INTO messages (id, conversation_id, role, content, metadata)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + messageColumns + `;
`

func (s *PostgresStore) CreateMessage(ctx context.Context, arg store.CreateMessageParams) (*models.Message, error) {
	metadata := arg.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	msg, err := scanMessage(s.db.QueryRow(ctx, createMessage,
		orNewID(arg.ID),
		arg.ConversationID,
		string(arg.Role),
		arg.Content,
		metadata,
	))
	if err != nil {
		return nil, queryErr("CreateMessage", err)
	}
	return msg, nil
}

const getMessageByID = `-- name: GetMessageByID :one
SELECT ` + messageColumns + `
FROM messages
WHERE id = $1;
`

func (s *PostgresStore) GetMessageByID(ctx context.Context, id uuid.UUID) (*models.Message, error) {
	msg, err := scanMessage(s.db.QueryRow(ctx, getMessageByID, id))
	if err != nil {
		return nil, queryErr("GetMessageByID", err)
	}
	return msg, nil
}

const listMessages = `-- name: ListMessages :many
SELECT ` + messageColumns + `
FROM messages
WHERE conversation_id = $1
ORDER BY created_at ASC, id ASC;
`

func (s *PostgresStore) ListMessages(ctx context.Context, conversationID uuid.UUID) ([]models.Message, error) {
	rows, err := s.db.Query(ctx, listMessages, conversationID)
	if err != nil {
		return nil, queryErr("ListMessages", err)
	}
	defer rows.Close()

	items := []models.Message{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning message row: %w", err)
		}
		items = append(items, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating message rows: %w", err)
	}
	return items, nil
}
