package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	userID := uuid.New()
	token, err := NewAccessToken(userID, "secret", time.Hour)
	require.NoError(t, err)

	got, err := ParseAccessToken(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, userID, got)
}

func TestParseAccessTokenRejects(t *testing.T) {
	userID := uuid.New()

	expired, err := NewAccessToken(userID, "secret", -time.Minute)
	require.NoError(t, err)
	_, err = ParseAccessToken(expired, "secret")
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	valid, err := NewAccessToken(userID, "secret", time.Hour)
	require.NoError(t, err)
	_, err = ParseAccessToken(valid, "other-secret")
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)

	_, err = ParseAccessToken("not-a-token", "secret")
	assert.ErrorIs(t, err, jwt.ErrTokenMalformed)

	noUser, err := NewAccessToken(uuid.Nil, "secret", time.Hour)
	require.NoError(t, err)
	_, err = ParseAccessToken(noUser, "secret")
	assert.ErrorIs(t, err, ErrMissingUserID)
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("hunter22")
	require.NoError(t, err)
	assert.True(t, CheckPasswordHash("hunter22", hash))
	assert.False(t, CheckPasswordHash("hunter23", hash))
}

func TestUserIDContext(t *testing.T) {
	_, ok := GetUserIDFromContext(context.Background())
	assert.False(t, ok)

	id := uuid.New()
	got, ok := GetUserIDFromContext(WithUserID(context.Background(), id))
	assert.True(t, ok)
	assert.Equal(t, id, got)
}
