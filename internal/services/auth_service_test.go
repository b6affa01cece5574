package services

import (
	"context"
	"testing"
	"time"

	"productboards-backend/internal/auth"
	"productboards-backend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignupAndLogin(t *testing.T) {
	mem := newMemoryStore()
	cfg := &config.Config{JWTSecret: "test-secret", TokenExpiration: time.Hour}
	svc := NewAuthService(mem, cfg)
	ctx := context.Background()

	user, err := svc.Signup(ctx, "  Shopper@Example.com ", "hunter2hunter2")
	require.NoError(t, err)
	assert.Equal(t, "shopper@example.com", user.Email)
	assert.NotEqual(t, "hunter2hunter2", user.HashedPassword)

	_, err = svc.Signup(ctx, "shopper@example.com", "another-password")
	assert.ErrorIs(t, err, ErrUserAlreadyExists)

	token, loggedIn, err := svc.Login(ctx, "SHOPPER@example.com", "hunter2hunter2")
	require.NoError(t, err)
	assert.Equal(t, user.ID, loggedIn.ID)
	parsed, err := auth.ParseAccessToken(token, cfg.JWTSecret)
	require.NoError(t, err)
	assert.Equal(t, user.ID, parsed)

	_, _, err = svc.Login(ctx, "shopper@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = svc.Login(ctx, "nobody@example.com", "hunter2hunter2")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSignupValidation(t *testing.T) {
	svc := NewAuthService(newMemoryStore(), &config.Config{JWTSecret: "s", TokenExpiration: time.Hour})
	ctx := context.Background()

	tests := []struct {
		name, email, password string
	}{
		{"empty email", "", "longenough"},
		{"empty password", "a@b.co", ""},
		{"malformed email", "not-an-email", "longenough"},
		{"short password", "a@b.co", "short"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Signup(ctx, tt.email, tt.password)
			assert.ErrorIs(t, err, ErrInvalidArgument)
		})
	}
}
