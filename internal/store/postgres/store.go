package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"

	"productboards-backend/internal/models"
	"productboards-backend/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Compile-time check to ensure PostgresStore implements store.Store
var _ store.Store = (*PostgresStore)(nil)

//go:embed schema.sql
var schemaSQL string

type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate applies the embedded schema. It is safe to run repeatedly.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	if _, err := db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	slog.Info("Database schema applied", "component", "postgres")
	return nil
}

// queryErr maps pgx.ErrNoRows to store.ErrNotFound and logs driver errors.
func queryErr(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		slog.Error("PostgreSQL error", "component", "postgres", "op", op,
			"code", pgErr.Code, "message", pgErr.Message, "detail", pgErr.Detail)
	}
	return fmt.Errorf("database error in %s: %w", op, err)
}

func orNewID(id uuid.UUID) uuid.UUID {
	if id == uuid.Nil {
		return uuid.New()
	}
	return id
}

func orDefaultCurrency(c string) string {
	if c == "" {
		return models.DefaultCurrency
	}
	return c
}

// --- User Methods ---

const userColumns = `id, email, hashed_password, created_at, updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Email, &u.HashedPassword, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

const getUserByEmail = `-- name: GetUserByEmail :one
SELECT ` + userColumns + `
FROM users
WHERE email = $1;
`

// GetUserByEmail retrieves a user by their email address.
// Returns store.ErrNotFound if the user does not exist.
func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := scanUser(s.db.QueryRow(ctx, getUserByEmail, email))
	if err != nil {
		return nil, queryErr("GetUserByEmail", err)
	}
	return user, nil
}

const getUserByID = `-- name: GetUserByID :one
SELECT ` + userColumns + `
FROM users
WHERE id = $1;
`

func (s *PostgresStore) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := scanUser(s.db.QueryRow(ctx, getUserByID, id))
	if err != nil {
		return nil, queryErr("GetUserByID", err)
	}
	return user, nil
}

const createUser = `-- name: CreateUser :one
INSERT INTO users (id, email, hashed_password)
VALUES ($1, $2, $3)
RETURNING created_at, updated_at;
`

// CreateUser inserts a new user record and fills in its timestamps.
func (s *PostgresStore) CreateUser(ctx context.Context, user *models.User) error {
	user.ID = orNewID(user.ID)
	err := s.db.QueryRow(ctx, createUser, user.ID, user.Email, user.HashedPassword).
		Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return queryErr("CreateUser", err)
	}
	return nil
}
