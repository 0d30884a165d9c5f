package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/amaumene/resolvarr/internal/controllers"
	"github.com/amaumene/resolvarr/internal/models"
	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func sessionTestServer(t *testing.T) (*httptest.Server, *models.Database, *controllers.SessionController) {
	t.Helper()

	db, err := models.NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	sessions := controllers.NewSessionController(db, nil, testLogger())
	handler := NewSessionHandler(sessions, testLogger())

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/session/{id}", handler.Get)
	mux.HandleFunc("DELETE /api/session/{id}", handler.Delete)
	mux.HandleFunc("GET /stream/{id}/master.m3u8", handler.Playlist)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, db, sessions
}

func TestSessionGetEndpoint(t *testing.T) {
	server, _, sessions := sessionTestServer(t)

	stream := models.Stream{ID: "42:1", URL: "http://cdn/movie.mp4", Quality: models.Quality1080p}
	session, err := sessions.Create("tt0133093", models.ContentTypeMovie, stream, stream.URL, nil, nil)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	resp, err := http.Get(server.URL + "/api/session/" + session.ID)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var got models.StreamSession
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.ID != session.ID || got.ContentID != "tt0133093" {
		t.Errorf("unexpected session payload: %+v", got)
	}
}

func TestSessionGetMissingIs404(t *testing.T) {
	server, _, _ := sessionTestServer(t)

	resp, err := http.Get(server.URL + "/api/session/missing")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestSessionGetExpiredIs410(t *testing.T) {
	server, db, _ := sessionTestServer(t)

	now := time.Now()
	expired := &models.StreamSession{
		ID:        "stale",
		ContentID: "tt1",
		CreatedAt: now.Add(-5 * time.Hour),
		ExpiresAt: now.Add(-time.Hour),
	}
	if err := db.CreateSession(expired); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	resp, err := http.Get(server.URL + "/api/session/stale")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusGone {
		t.Errorf("expected 410 for an expired session, got %d", resp.StatusCode)
	}
}

func TestSessionDeleteEndpoint(t *testing.T) {
	server, _, sessions := sessionTestServer(t)

	stream := models.Stream{ID: "42:1", URL: "http://cdn/movie.mp4"}
	session, err := sessions.Create("tt1", models.ContentTypeMovie, stream, stream.URL, nil, nil)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	req, _ := http.NewRequest(http.MethodDelete, server.URL+"/api/session/"+session.ID, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}

	check, err := http.Get(server.URL + "/api/session/" + session.ID)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	check.Body.Close()
	if check.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", check.StatusCode)
	}
}

func TestPlaylistRedirectsToUpstream(t *testing.T) {
	server, _, sessions := sessionTestServer(t)

	stream := models.Stream{ID: "42:1", URL: "http://cdn/live.m3u8", HLSURL: "http://cdn/live.m3u8", Quality: models.Quality1080p}
	session, err := sessions.Create("tt1", models.ContentTypeMovie, stream, stream.HLSURL, nil, nil)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	resp, err := client.Get(server.URL + "/stream/" + session.ID + "/master.m3u8")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusFound {
		t.Fatalf("expected 302, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Location"); got != "http://cdn/live.m3u8" {
		t.Errorf("expected redirect to the upstream URL, got %s", got)
	}
}
