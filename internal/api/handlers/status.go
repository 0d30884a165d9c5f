package handlers

import (
	"net/http"

	"github.com/amaumene/resolvarr/internal/models"
	"github.com/sirupsen/logrus"
)

// StatusHandler reports store counters
type StatusHandler struct {
	db     *models.Database
	logger *logrus.Logger
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(db *models.Database, logger *logrus.Logger) *StatusHandler {
	return &StatusHandler{
		db:     db,
		logger: logger,
	}
}

// StatusResponse represents the status response
type StatusResponse struct {
	Sessions     int `json:"sessions"`
	CacheEntries int `json:"cache_entries"`
}

// ServeHTTP handles the status endpoint
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.db.CountSessions()
	if err != nil {
		h.logger.WithError(err).Error("Failed to count sessions")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
		return
	}

	entries, err := h.db.CountCacheEntries()
	if err != nil {
		h.logger.WithError(err).Error("Failed to count cache entries")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, StatusResponse{
		Sessions:     sessions,
		CacheEntries: entries,
	})
}
