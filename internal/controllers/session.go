package controllers

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/amaumene/resolvarr/internal/models"
	"github.com/amaumene/resolvarr/internal/services/torbox"
	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// SessionController issues and manages playback sessions
type SessionController struct {
	db           *models.Database
	torboxClient *torbox.Client
	logger       *logrus.Logger
}

// NewSessionController creates a new session controller
func NewSessionController(db *models.Database, torboxClient *torbox.Client, logger *logrus.Logger) *SessionController {
	return &SessionController{
		db:           db,
		torboxClient: torboxClient,
		logger:       logger,
	}
}

// Create issues a new playback session with a fixed 4-hour expiry and
// opportunistically sweeps already-expired rows in the background.
func (c *SessionController) Create(contentID string, contentType models.ContentType, stream models.Stream, upstreamURL string, season, episode *int) (*models.StreamSession, error) {
	now := time.Now()
	session := &models.StreamSession{
		ID:          uuid.NewString(),
		ContentID:   contentID,
		ContentType: contentType,
		Season:      season,
		Episode:     episode,
		Stream:      stream,
		UpstreamURL: upstreamURL,
		CreatedAt:   now,
		ExpiresAt:   now.Add(models.SessionTTL),
	}

	if err := c.db.CreateSession(session); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}

	// Fire-and-forget sweep of expired rows; never blocks the response
	go c.SweepExpired()

	c.logger.WithFields(logrus.Fields{
		"session_id": session.ID,
		"content_id": contentID,
		"expires_at": session.ExpiresAt,
	}).Info("Session created")

	return session, nil
}

// Get retrieves a session by id. An expired row is deleted on the spot
// and reported as expired; the caller recovers by re-issuing a fresh
// play request.
func (c *SessionController) Get(id string) (*models.StreamSession, error) {
	session, err := c.db.GetSession(id)
	if err != nil {
		return nil, err
	}

	if session.Expired(time.Now()) {
		if err := c.db.DeleteSession(id); err != nil {
			c.logger.WithError(err).WithField("session_id", id).Warn("Failed to delete expired session")
		}
		return nil, models.ErrSessionExpired
	}

	return session, nil
}

// UpdateURL refreshes the session's upstream URL and pushes the expiry
// forward another 4 hours
func (c *SessionController) UpdateURL(id string, newURL string) (*models.StreamSession, error) {
	session, err := c.Get(id)
	if err != nil {
		return nil, err
	}

	session.UpstreamURL = newURL
	session.ExpiresAt = time.Now().Add(models.SessionTTL)
	if session.Stream.IsHLS() {
		session.Stream.HLSURL = newURL
	}
	session.Stream.URL = newURL

	if err := c.db.UpdateSession(session); err != nil {
		return nil, fmt.Errorf("failed to update session: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"session_id": id,
		"expires_at": session.ExpiresAt,
	}).Info("Session URL refreshed")

	return session, nil
}

// Refresh re-requests the upstream link from the debrid backend and
// stores it, healing sessions whose link went stale mid-playback.
// Unlike the resolution pipeline this path retries transient failures:
// the torrent is already in the library, so a fresh link is expected
// to be grantable.
func (c *SessionController) Refresh(ctx context.Context, id string) (*models.StreamSession, error) {
	session, err := c.Get(id)
	if err != nil {
		return nil, err
	}

	torrentID, fileID, err := parseStreamID(session.Stream.ID)
	if err != nil {
		return nil, fmt.Errorf("session %s has no refreshable stream: %w", id, err)
	}

	var newURL string
	operation := func() error {
		if session.Stream.IsHLS() {
			playback, err := c.torboxClient.CreateStream(ctx, torrentID, fileID)
			if err != nil {
				return err
			}
			newURL = playback.HLSURL
			return nil
		}
		link, err := c.torboxClient.RequestDownloadLink(ctx, torrentID, fileID)
		if err != nil {
			return err
		}
		newURL = link
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		c.recordUpstreamFailure(session)
		return nil, fmt.Errorf("failed to refresh upstream link: %w", err)
	}

	return c.UpdateURL(id, newURL)
}

// recordUpstreamFailure marks the cache entry behind a session whose
// upstream link could not be refreshed, so the entry's failure counter
// reflects streams that went stale within the cache window
func (c *SessionController) recordUpstreamFailure(session *models.StreamSession) {
	key := models.ContentKey{
		ContentID: session.ContentID,
		Season:    session.Season,
		Episode:   session.Episode,
	}
	cacheKey := models.CacheKey(key.String(), session.Stream.Origin, session.Stream.Quality)
	if err := c.db.RecordCacheFailure(cacheKey); err != nil {
		c.logger.WithError(err).WithField("key", cacheKey).Warn("Failed to record upstream failure")
	}
}

// Delete tears down a session explicitly
func (c *SessionController) Delete(id string) error {
	if err := c.db.DeleteSession(id); err != nil {
		return err
	}

	c.logger.WithField("session_id", id).Info("Session deleted")
	return nil
}

// SweepExpired removes all sessions whose expiry has passed
func (c *SessionController) SweepExpired() {
	removed, err := c.db.DeleteExpiredSessions(time.Now())
	if err != nil {
		c.logger.WithError(err).Error("Session sweep failed")
		return
	}
	if removed > 0 {
		c.logger.WithField("count", removed).Debug("Swept expired sessions")
	}
}

// parseStreamID splits a debrid stream id of the form
// "torrentID:fileID" back into its parts
func parseStreamID(id string) (int, int, error) {
	parts := strings.SplitN(id, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("malformed stream id: %q", id)
	}
	torrentID, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("malformed torrent id in %q", id)
	}
	fileID, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("malformed file id in %q", id)
	}
	return torrentID, fileID, nil
}
