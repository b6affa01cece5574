package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"productboards-backend/internal/ai"
	"productboards-backend/internal/auth"
	"productboards-backend/internal/services"
	"productboards-backend/pkg/httputil"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const maxBodyBytes = 1 << 20

// requireUserID reads the authenticated user from the request context and answers 401 when missing.
func requireUserID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "User ID not found in context")
		return uuid.Nil, false
	}
	return userID, true
}

// uuidParam parses a chi URL parameter and answers 400 when it is not a UUID.
func uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, fmt.Sprintf("Invalid %s format", name))
		return uuid.Nil, false
	}
	return id, true
}

// decodeJSON reads the request body into v and answers 400 on malformed input.
// An empty body decodes to the zero value when allowEmpty is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any, allowEmpty bool) bool {
	defer r.Body.Close()
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
	if err == nil || (allowEmpty && errors.Is(err, io.EOF)) {
		return true
	}
	httputil.RespondError(w, http.StatusBadRequest, "Invalid request payload")
	return false
}

// respondServiceError maps service errors onto HTTP statuses.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := http.StatusInternalServerError, "Internal server error"
	switch {
	case errors.Is(err, services.ErrInvalidArgument):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, services.ErrUnauthorized):
		status, message = http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, services.ErrForbidden):
		status, message = http.StatusForbidden, "Forbidden"
	case errors.Is(err, services.ErrNotFound):
		status, message = http.StatusNotFound, "Not found"
	case errors.Is(err, ai.ErrRateLimited):
		status, message = http.StatusTooManyRequests, "Rate limit exceeded. Please try again in a moment."
	case errors.Is(err, ai.ErrQuotaExhausted):
		status, message = http.StatusPaymentRequired, "AI credits exhausted. Please add credits to continue."
	case errors.Is(err, ai.ErrTimeout):
		status, message = http.StatusGatewayTimeout, "The assistant took too long to respond. Please try again."
	case errors.Is(err, services.ErrAIUnavailable):
		status, message = http.StatusBadGateway, "The assistant is unavailable right now. Please try again."
	}

	if status >= http.StatusInternalServerError {
		slog.Error("Request failed", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	} else {
		slog.Debug("Request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}
	httputil.RespondError(w, status, message)
}
