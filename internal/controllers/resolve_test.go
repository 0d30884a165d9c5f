package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/amaumene/resolvarr/internal/config"
	"github.com/amaumene/resolvarr/internal/models"
	"github.com/amaumene/resolvarr/internal/services/indexer"
	"github.com/amaumene/resolvarr/internal/services/metadata"
	"github.com/amaumene/resolvarr/internal/services/torbox"
	"github.com/amaumene/resolvarr/internal/utils"
)

// pipelineEnv wires the full resolution pipeline against fake upstream
// servers so the whole play path can be exercised without the network.
type pipelineEnv struct {
	ctrl *ResolveController
	db   *models.Database

	mu           sync.Mutex
	indexerBody  string
	indexerCalls atomic.Int64
	debridCalls  atomic.Int64
}

func (e *pipelineEnv) setIndexerBody(body string) {
	e.mu.Lock()
	e.indexerBody = body
	e.mu.Unlock()
}

func newPipeline(t *testing.T) *pipelineEnv {
	t.Helper()
	env := &pipelineEnv{indexerBody: `{"streams":[]}`}

	indexerServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		env.indexerCalls.Add(1)
		env.mu.Lock()
		body := env.indexerBody
		env.mu.Unlock()
		w.Write([]byte(body))
	}))
	t.Cleanup(indexerServer.Close)

	// Fixed debrid inventory: bbbb maps to an mkv-only torrent, cccc to
	// an mp4 torrent; everything else is uncached
	cached := map[string]int{"bbbb": 2, "cccc": 3}
	filesByTorrent := map[int]string{2: "Movie.1080p.mkv", 3: "Movie.1080p.mp4"}

	debridServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		env.debridCalls.Add(1)
		switch {
		case r.URL.Path == "/torrents/createtorrent":
			r.ParseMultipartForm(1 << 20)
			hash := strings.ToLower(strings.TrimPrefix(r.FormValue("magnet"), "magnet:?xt=urn:btih:"))
			id, ok := cached[hash]
			if !ok {
				json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "detail": "not cached"})
				return
			}
			json.NewEncoder(w).Encode(map[string]interface{}{
				"success": true,
				"data":    map[string]interface{}{"torrent_id": id},
			})
		case r.URL.Path == "/torrents/mylist":
			id, _ := strconv.Atoi(r.URL.Query().Get("id"))
			json.NewEncoder(w).Encode(map[string]interface{}{
				"success": true,
				"data": map[string]interface{}{
					"id": id,
					"files": []map[string]interface{}{
						{"id": 1, "name": filesByTorrent[id], "short_name": filesByTorrent[id], "size": 4 << 30},
					},
				},
			})
		case r.URL.Path == "/torrents/requestdl":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"success": true,
				"data":    "http://cdn.example/direct/" + r.URL.Query().Get("torrent_id"),
			})
		case r.URL.Path == "/stream/createstream":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"success": true,
				"data": map[string]interface{}{
					"hls_url": "http://cdn.example/hls/" + r.URL.Query().Get("id") + ".m3u8",
				},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(debridServer.Close)

	cfg := &config.Config{
		TorBoxAPIKey:           "test-key",
		TorBoxAPIURL:           debridServer.URL,
		IndexerURL:             indexerServer.URL,
		TMDBAPIURL:             "http://unused.invalid",
		KitsuAPIURL:            "http://unused.invalid",
		CandidateLimit:         8,
		MetadataTimeoutSeconds: 5,
		IndexerTimeoutSeconds:  5,
		DebridTimeoutSeconds:   5,
	}
	logger := testLogger()

	env.db = testDB(t)

	indexerClient, err := indexer.NewClient(cfg, &utils.ReleaseFilter{}, logger)
	if err != nil {
		t.Fatalf("failed to build indexer client: %v", err)
	}
	torboxClient, err := torbox.NewClient(cfg, logger)
	if err != nil {
		t.Fatalf("failed to build torbox client: %v", err)
	}

	env.ctrl = NewResolveController(
		env.db,
		metadata.NewNormalizer(cfg, logger),
		indexerClient,
		torbox.NewResolver(torboxClient, cfg.CandidateLimit, logger),
		NewStreamSelector(logger),
		NewSessionController(env.db, torboxClient, logger),
		nil,
		logger,
	)
	return env
}

func TestPlayResolvesThenServesFromCache(t *testing.T) {
	env := newPipeline(t)
	env.setIndexerBody(`{"streams":[
		{"infoHash":"aaaa","title":"Movie.1080p.WEB"},
		{"infoHash":"bbbb","title":"Movie.1080p.BluRay"},
		{"infoHash":"cccc","title":"Movie.1080p.Remux"}
	]}`)

	req := models.PlayRequest{ContentID: "tt0133093", Type: "movie"}

	// First request runs the full pipeline: the first cached candidate
	// (bbbb) wins, and its mkv forces the transcode path
	first, err := env.ctrl.Play(context.Background(), req)
	if err != nil {
		t.Fatalf("Play failed: %v", err)
	}

	if first.SessionID == "" {
		t.Fatal("expected a session id")
	}
	if first.Stream.InfoHash != "bbbb" {
		t.Errorf("expected the first cached candidate bbbb, got %s", first.Stream.InfoHash)
	}
	if !first.Stream.IsHLS() {
		t.Error("mkv must resolve through the transcode path")
	}
	if first.StreamURL != "/stream/"+first.SessionID+"/master.m3u8" {
		t.Errorf("expected the proxy playlist URL, got %s", first.StreamURL)
	}

	session, err := env.db.GetSession(first.SessionID)
	if err != nil {
		t.Fatalf("session not persisted: %v", err)
	}
	if got := session.ExpiresAt.Sub(session.CreatedAt); got != models.SessionTTL {
		t.Errorf("expected exactly %v session lifetime, got %v", models.SessionTTL, got)
	}
	if session.UpstreamURL != first.Stream.HLSURL {
		t.Errorf("session must record the real upstream URL, got %s", session.UpstreamURL)
	}

	entry, err := env.db.GetCacheEntry(models.CacheKey("tt0133093", models.OriginDebrid, models.Quality1080p))
	if err != nil {
		t.Fatalf("cache lookup failed: %v", err)
	}
	if entry == nil {
		t.Fatal("expected the resolution to be promoted to the cache")
	}
	if got := entry.ExpiresAt.Sub(entry.ResolvedAt); got != models.CacheTTL {
		t.Errorf("expected exactly %v cache lifetime, got %v", models.CacheTTL, got)
	}

	indexerCallsAfterFirst := env.indexerCalls.Load()
	debridCallsAfterFirst := env.debridCalls.Load()

	// Second request within the cache window: zero upstream calls, same
	// underlying stream, fresh session
	second, err := env.ctrl.Play(context.Background(), req)
	if err != nil {
		t.Fatalf("cached Play failed: %v", err)
	}

	if got := env.indexerCalls.Load(); got != indexerCallsAfterFirst {
		t.Errorf("cache hit must not query the indexer: %d calls became %d", indexerCallsAfterFirst, got)
	}
	if got := env.debridCalls.Load(); got != debridCallsAfterFirst {
		t.Errorf("cache hit must not touch the debrid backend: %d calls became %d", debridCallsAfterFirst, got)
	}
	if second.Stream.HLSURL != first.Stream.HLSURL {
		t.Errorf("expected the cached upstream URL %s, got %s", first.Stream.HLSURL, second.Stream.HLSURL)
	}
	if second.SessionID == first.SessionID {
		t.Error("each play request must issue its own session")
	}
	if _, err := env.db.GetSession(second.SessionID); err != nil {
		t.Errorf("second session not persisted: %v", err)
	}

	touched, err := env.db.GetCacheEntry(entry.Key)
	if err != nil {
		t.Fatalf("cache lookup failed: %v", err)
	}
	if touched.UseCount != entry.UseCount+1 {
		t.Errorf("expected the hit to be recorded, use count %d -> %d", entry.UseCount, touched.UseCount)
	}
}

func TestPlayNoCandidates(t *testing.T) {
	env := newPipeline(t)
	env.setIndexerBody(`{"streams":[]}`)

	_, err := env.ctrl.Play(context.Background(), models.PlayRequest{ContentID: "tt0000001", Type: "movie"})
	if !errors.Is(err, models.ErrNoCandidatesFound) {
		t.Fatalf("expected ErrNoCandidatesFound, got %v", err)
	}
	if got := env.debridCalls.Load(); got != 0 {
		t.Errorf("an empty indexer result must not touch the debrid backend, got %d calls", got)
	}
}

func TestPlayNoneCached(t *testing.T) {
	env := newPipeline(t)
	env.setIndexerBody(`{"streams":[
		{"infoHash":"dddd","title":"Movie.1080p.WEB"},
		{"infoHash":"eeee","title":"Movie.720p.WEB"}
	]}`)

	_, err := env.ctrl.Play(context.Background(), models.PlayRequest{ContentID: "tt0000002", Type: "movie"})
	if !errors.Is(err, models.ErrNoCandidateCached) {
		t.Fatalf("expected ErrNoCandidateCached, got %v", err)
	}

	// A failed resolution must not poison the cache
	count, err := env.db.CountCacheEntries()
	if err != nil {
		t.Fatalf("CountCacheEntries failed: %v", err)
	}
	if count != 0 {
		t.Errorf("expected no cache entries after a failed resolution, got %d", count)
	}
}

func TestPlayInvalidType(t *testing.T) {
	env := newPipeline(t)

	_, err := env.ctrl.Play(context.Background(), models.PlayRequest{ContentID: "tt1", Type: "podcast"})
	if !errors.Is(err, models.ErrUnknownContentType) {
		t.Errorf("expected ErrUnknownContentType, got %v", err)
	}
}

func TestPlaySeriesKeyAddressesEpisode(t *testing.T) {
	env := newPipeline(t)
	env.setIndexerBody(`{"streams":[{"infoHash":"cccc","title":"Show.S01E05.1080p.WEB"}]}`)

	season, episode := 1, 5
	req := models.PlayRequest{ContentID: "tt0944947", Type: "series", Season: &season, Episode: &episode}

	resp, err := env.ctrl.Play(context.Background(), req)
	if err != nil {
		t.Fatalf("Play failed: %v", err)
	}

	// The cache row is keyed per episode, not per show
	entry, err := env.db.GetCacheEntry(models.CacheKey("tt0944947:1:5", models.OriginDebrid, models.Quality1080p))
	if err != nil {
		t.Fatalf("cache lookup failed: %v", err)
	}
	if entry == nil {
		t.Fatal("expected an episode-keyed cache entry")
	}

	session, err := env.db.GetSession(resp.SessionID)
	if err != nil {
		t.Fatalf("session not persisted: %v", err)
	}
	if session.Season == nil || *session.Season != 1 || session.Episode == nil || *session.Episode != 5 {
		t.Errorf("session must carry the episode address, got %v/%v", session.Season, session.Episode)
	}
}
