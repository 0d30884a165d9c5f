package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/amaumene/resolvarr/internal/controllers"
	"github.com/amaumene/resolvarr/internal/models"
	"github.com/sirupsen/logrus"
)

// PlayHandler handles stream resolution requests. Each request runs
// under the resolve budget so the candidate loop stops when the client
// can no longer receive the answer.
type PlayHandler struct {
	resolveCtrl *controllers.ResolveController
	budget      time.Duration
	logger      *logrus.Logger
}

// NewPlayHandler creates a new play handler
func NewPlayHandler(resolveCtrl *controllers.ResolveController, budget time.Duration, logger *logrus.Logger) *PlayHandler {
	return &PlayHandler{
		resolveCtrl: resolveCtrl,
		budget:      budget,
		logger:      logger,
	}
}

// errorResponse is the JSON shape of a failed resolution
type errorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

// ServeHTTP handles POST /api/play
func (h *PlayHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req models.PlayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WithError(err).Debug("Failed to decode play request")
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.ContentID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "content_id is required"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.budget)
	defer cancel()

	response, err := h.resolveCtrl.Play(ctx, req)
	if err != nil {
		h.writeResolveError(w, req, err)
		return
	}

	writeJSON(w, http.StatusOK, response)
}

// writeResolveError maps the resolution failure taxonomy onto HTTP
// outcomes. The caller is expected to present "no streams available"
// and offer a fallback view; there is no automatic retry here.
func (h *PlayHandler) writeResolveError(w http.ResponseWriter, req models.PlayRequest, err error) {
	h.logger.WithError(err).WithFields(logrus.Fields{
		"content_id": req.ContentID,
		"type":       req.Type,
	}).Warn("Resolution failed")

	switch {
	case errors.Is(err, models.ErrUnknownContentType):
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:  "invalid content type",
			Reason: err.Error(),
		})
	case errors.Is(err, models.ErrNoCandidatesFound),
		errors.Is(err, models.ErrNoCandidateCached),
		errors.Is(err, models.ErrAllCandidatesExhausted):
		writeJSON(w, http.StatusNotFound, errorResponse{
			Error:  "no streams available",
			Reason: err.Error(),
		})
	case errors.Is(err, context.DeadlineExceeded):
		writeJSON(w, http.StatusGatewayTimeout, errorResponse{Error: "resolution timed out"})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "resolution failed"})
	}
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
