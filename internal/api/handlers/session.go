package handlers

import (
	"errors"
	"net/http"

	"github.com/amaumene/resolvarr/internal/controllers"
	"github.com/amaumene/resolvarr/internal/models"
	"github.com/sirupsen/logrus"
)

// SessionHandler handles session look-up, refresh, teardown and the
// proxied playlist path
type SessionHandler struct {
	sessions *controllers.SessionController
	logger   *logrus.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessions *controllers.SessionController, logger *logrus.Logger) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		logger:   logger,
	}
}

// Get handles GET /api/session/{id}
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.Get(r.PathValue("id"))
	if err != nil {
		h.writeSessionError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, session)
}

// Refresh handles POST /api/session/{id}/refresh
func (h *SessionHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.Refresh(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, models.ErrSessionNotFound) || errors.Is(err, models.ErrSessionExpired) {
			h.writeSessionError(w, err)
			return
		}
		h.logger.WithError(err).Error("Session refresh failed")
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "failed to refresh upstream link"})
		return
	}

	writeJSON(w, http.StatusOK, session)
}

// Delete handles DELETE /api/session/{id}
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Delete(r.PathValue("id")); err != nil {
		h.writeSessionError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Playlist handles GET /stream/{id}/master.m3u8 by redirecting the
// player to the session's real upstream URL
func (h *SessionHandler) Playlist(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.Get(r.PathValue("id"))
	if err != nil {
		h.writeSessionError(w, err)
		return
	}

	http.Redirect(w, r, session.UpstreamURL, http.StatusFound)
}

// writeSessionError maps session lookup failures onto HTTP outcomes.
// An expired session is gone; the caller re-issues a play request.
func (h *SessionHandler) writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrSessionExpired):
		writeJSON(w, http.StatusGone, errorResponse{Error: "session expired"})
	case errors.Is(err, models.ErrSessionNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "session not found"})
	default:
		h.logger.WithError(err).Error("Session lookup failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}
