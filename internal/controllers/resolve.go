package controllers

import (
	"context"
	"fmt"
	"time"

	"github.com/amaumene/resolvarr/internal/models"
	"github.com/amaumene/resolvarr/internal/services/indexer"
	"github.com/amaumene/resolvarr/internal/services/metadata"
	"github.com/amaumene/resolvarr/internal/services/subtitles"
	"github.com/amaumene/resolvarr/internal/services/torbox"
	"github.com/sirupsen/logrus"
)

// ResolveController orchestrates one play request through the
// pipeline: normalize, cache lookup, indexer fan-out, debrid candidate
// loop, stream selection, session issue, cache promotion.
type ResolveController struct {
	db              *models.Database
	normalizer      *metadata.Normalizer
	indexerClient   *indexer.Client
	resolver        *torbox.Resolver
	selector        *StreamSelector
	sessions        *SessionController
	subtitlesClient *subtitles.Client
	logger          *logrus.Logger
}

// NewResolveController creates a new resolve controller
func NewResolveController(
	db *models.Database,
	normalizer *metadata.Normalizer,
	indexerClient *indexer.Client,
	resolver *torbox.Resolver,
	selector *StreamSelector,
	sessions *SessionController,
	subtitlesClient *subtitles.Client,
	logger *logrus.Logger,
) *ResolveController {
	return &ResolveController{
		db:              db,
		normalizer:      normalizer,
		indexerClient:   indexerClient,
		resolver:        resolver,
		selector:        selector,
		sessions:        sessions,
		subtitlesClient: subtitlesClient,
		logger:          logger,
	}
}

// Play resolves a content request into exactly one playable stream and
// a session for it
func (c *ResolveController) Play(ctx context.Context, req models.PlayRequest) (*models.PlayResponse, error) {
	contentType, err := models.ParseContentType(req.Type)
	if err != nil {
		return nil, err
	}

	// Identifiers are normalized before any cache or session key is
	// constructed
	canonical := c.normalizer.Normalize(ctx, req.ContentID, contentType)
	key := models.ContentKey{
		ContentID: canonical,
		Season:    req.Season,
		Episode:   req.Episode,
	}

	c.logger.WithFields(logrus.Fields{
		"content_id": req.ContentID,
		"canonical":  canonical,
		"key":        key.String(),
		"type":       contentType,
	}).Info("Resolving play request")

	// Subtitle enrichment is independent of resolution; run it
	// alongside and merge at response-assembly time
	subsChan := make(chan []models.Subtitle, 1)
	go func() {
		subsChan <- c.subtitlesClient.Fetch(ctx, contentType, key)
	}()

	// Cache hit short-circuits the whole network pipeline
	if response, ok := c.playFromCache(contentType, key, req.PreferredQuality); ok {
		response.Subtitles = <-subsChan
		return response, nil
	}

	candidates := c.indexerClient.Search(ctx, contentType, key)
	if len(candidates) == 0 {
		return nil, models.ErrNoCandidatesFound
	}

	started := time.Now()
	stream, err := c.resolver.Resolve(ctx, candidates)
	if err != nil {
		return nil, err
	}
	latency := time.Since(started)

	chosen, alternatives, ok := c.selector.Select([]models.Stream{*stream}, req.PreferredQuality)
	if !ok {
		return nil, models.ErrAllCandidatesExhausted
	}

	session, err := c.sessions.Create(canonical, contentType, chosen, upstreamURL(chosen), key.Season, key.Episode)
	if err != nil {
		return nil, err
	}

	if err := c.promote(key, chosen, latency); err != nil {
		c.logger.WithError(err).Warn("Failed to promote resolution to cache")
	}

	return &models.PlayResponse{
		SessionID:    session.ID,
		StreamURL:    playbackURL(session),
		Stream:       chosen,
		Alternatives: alternatives,
		Subtitles:    <-subsChan,
	}, nil
}

// playFromCache serves a request from the resolved-stream cache. The
// session is still (re)created; the cache is not authoritative for
// playback.
func (c *ResolveController) playFromCache(contentType models.ContentType, key models.ContentKey, preferred models.Quality) (*models.PlayResponse, bool) {
	now := time.Now()
	entries, err := c.db.GetCacheEntries(key.String(), now)
	if err != nil {
		c.logger.WithError(err).Error("Cache lookup failed")
		return nil, false
	}
	if len(entries) == 0 {
		return nil, false
	}

	streams := make([]models.Stream, 0, len(entries))
	byStreamID := make(map[string]*models.ResolvedStreamCacheEntry, len(entries))
	for _, entry := range entries {
		streams = append(streams, entry.Stream)
		byStreamID[entry.Stream.ID] = entry
	}

	chosen, alternatives, ok := c.selector.Select(streams, preferred)
	if !ok {
		return nil, false
	}

	if entry := byStreamID[chosen.ID]; entry != nil {
		if err := c.db.TouchCacheEntry(entry, now); err != nil {
			c.logger.WithError(err).Warn("Failed to record cache hit")
		}
	}

	session, err := c.sessions.Create(key.ContentID, contentType, chosen, upstreamURL(chosen), key.Season, key.Episode)
	if err != nil {
		c.logger.WithError(err).Error("Failed to create session from cache hit")
		return nil, false
	}

	c.logger.WithFields(logrus.Fields{
		"key":        key.String(),
		"session_id": session.ID,
	}).Info("Served from resolution cache")

	return &models.PlayResponse{
		SessionID:    session.ID,
		StreamURL:    playbackURL(session),
		Stream:       chosen,
		Alternatives: alternatives,
	}, true
}

// promote upserts a successful resolution into the cache, merging
// usage stats with any previous entry for the same key
func (c *ResolveController) promote(key models.ContentKey, stream models.Stream, latency time.Duration) error {
	now := time.Now()
	entry := &models.ResolvedStreamCacheEntry{
		ContentKey:     key.String(),
		Origin:         stream.Origin,
		Quality:        stream.Quality,
		Stream:         stream,
		StreamURL:      upstreamURL(stream),
		InfoHash:       stream.InfoHash,
		FileName:       stream.FileName,
		ResolvedAt:     now,
		ExpiresAt:      now.Add(models.CacheTTL),
		LastUsedAt:     now,
		UseCount:       1,
		SuccessCount:   1,
		AverageLatency: latency,
	}

	previous, err := c.db.GetCacheEntry(models.CacheKey(entry.ContentKey, entry.Origin, entry.Quality))
	if err != nil {
		return err
	}
	if previous != nil {
		entry.UseCount += previous.UseCount
		entry.SuccessCount += previous.SuccessCount
		entry.FailureCount = previous.FailureCount
		total := previous.SuccessCount + 1
		entry.AverageLatency = (previous.AverageLatency*time.Duration(previous.SuccessCount) + latency) / time.Duration(total)
	}

	return c.db.UpsertCacheEntry(entry)
}

// upstreamURL picks the real upstream URL a session must record
func upstreamURL(stream models.Stream) string {
	if stream.IsHLS() {
		return stream.HLSURL
	}
	return stream.URL
}

// playbackURL derives the URL the client should play: the proxy
// playlist path for adaptive-bitrate sessions, the direct URL
// otherwise
func playbackURL(session *models.StreamSession) string {
	if session.Stream.IsHLS() {
		return fmt.Sprintf("/stream/%s/master.m3u8", session.ID)
	}
	return session.Stream.URL
}
