package handlers

import (
	"net/http"

	"productboards-backend/internal/models"
	"productboards-backend/internal/services"
	"productboards-backend/pkg/httputil"
)

type AlertHandlers struct {
	alerts *services.AlertService
}

func NewAlertHandlers(as *services.AlertService) *AlertHandlers {
	return &AlertHandlers{alerts: as}
}

// GetPreferences handles GET /v1/settings/alerts.
func (h *AlertHandlers) GetPreferences(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	prefs, err := h.alerts.Get(r.Context(), userID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, prefs)
}

// UpdatePreferences handles PUT /v1/settings/alerts.
func (h *AlertHandlers) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var req models.AlertPreferencesRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	prefs, err := h.alerts.Update(r.Context(), userID, req)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, prefs)
}
