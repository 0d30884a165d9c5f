package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/amaumene/resolvarr/internal/controllers"
	"github.com/amaumene/resolvarr/internal/models"
)

func testPlayHandler() *PlayHandler {
	logger := testLogger()
	resolveCtrl := controllers.NewResolveController(nil, nil, nil, nil, nil, nil, nil, logger)
	return NewPlayHandler(resolveCtrl, time.Minute, logger)
}

func TestPlayUnknownContentTypeIs400(t *testing.T) {
	handler := testPlayHandler()

	// Type validation runs before the pipeline touches any dependency
	req := httptest.NewRequest(http.MethodPost, "/api/play",
		strings.NewReader(`{"content_id":"tt0133093","type":"podcast"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for an unknown type, got %d", rec.Code)
	}
}

func TestPlayMissingContentIDIs400(t *testing.T) {
	handler := testPlayHandler()

	req := httptest.NewRequest(http.MethodPost, "/api/play", strings.NewReader(`{"type":"movie"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without a content id, got %d", rec.Code)
	}
}

func TestWriteResolveErrorMapping(t *testing.T) {
	handler := testPlayHandler()

	cases := []struct {
		err  error
		want int
	}{
		{models.ErrUnknownContentType, http.StatusBadRequest},
		{models.ErrNoCandidatesFound, http.StatusNotFound},
		{models.ErrNoCandidateCached, http.StatusNotFound},
		{models.ErrAllCandidatesExhausted, http.StatusNotFound},
		{fmt.Errorf("candidate loop aborted: %w", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{fmt.Errorf("cache write failed"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		rec := httptest.NewRecorder()
		handler.writeResolveError(rec, models.PlayRequest{ContentID: "tt1", Type: "movie"}, tc.err)
		if rec.Code != tc.want {
			t.Errorf("error %q: expected %d, got %d", tc.err, tc.want, rec.Code)
		}
	}
}
