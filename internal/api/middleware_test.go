package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"productboards-backend/internal/auth"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoUser(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.GetUserIDFromContext(r.Context())
		require.True(t, ok)
		_, _ = w.Write([]byte(userID.String()))
	})
}

func TestJwtAuthMiddleware(t *testing.T) {
	userID := uuid.New()
	valid, err := auth.NewAccessToken(userID, testSecret, time.Hour)
	require.NoError(t, err)
	expired, err := auth.NewAccessToken(userID, testSecret, -time.Minute)
	require.NoError(t, err)
	foreign, err := auth.NewAccessToken(userID, "another-secret", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name    string
		header  string
		query   string
		status  int
		message string
	}{
		{name: "bearer header", header: "Bearer " + valid, status: http.StatusOK},
		{name: "lowercase scheme", header: "bearer " + valid, status: http.StatusOK},
		{name: "query parameter", query: valid, status: http.StatusOK},
		{name: "missing", status: http.StatusUnauthorized, message: "Authorization header required"},
		{name: "wrong scheme", header: "Basic " + valid, status: http.StatusUnauthorized, message: "Malformed Authorization header"},
		{name: "expired", header: "Bearer " + expired, status: http.StatusUnauthorized, message: "Token has expired"},
		{name: "malformed", header: "Bearer abc.def", status: http.StatusUnauthorized, message: "Malformed token"},
		{name: "wrong secret", header: "Bearer " + foreign, status: http.StatusUnauthorized, message: "Invalid token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := "/v1/anything"
			if tt.query != "" {
				target += "?access_token=" + tt.query
			}
			req := httptest.NewRequest(http.MethodGet, target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			JwtAuthMiddleware(testSecret)(echoUser(t)).ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, userID.String(), rec.Body.String())
			} else {
				assert.Contains(t, rec.Body.String(), tt.message)
			}
		})
	}
}

func TestUserRateLimiter(t *testing.T) {
	alice, bob := uuid.New(), uuid.New()

	l := NewUserRateLimiter(2)
	assert.True(t, l.Allow(alice))
	assert.True(t, l.Allow(alice))
	assert.False(t, l.Allow(alice))
	assert.True(t, l.Allow(bob))

	unlimited := NewUserRateLimiter(0)
	for i := 0; i < 100; i++ {
		require.True(t, unlimited.Allow(alice))
	}
}
