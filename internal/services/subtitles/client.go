package subtitles

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/amaumene/resolvarr/internal/config"
	"github.com/amaumene/resolvarr/internal/models"
	"github.com/sirupsen/logrus"
)

// subtitlesResponse represents the addon's JSON response
type subtitlesResponse struct {
	Subtitles []struct {
		ID   string `json:"id"`
		Lang string `json:"lang"`
		URL  string `json:"url"`
	} `json:"subtitles"`
}

// Client queries an optional subtitle addon. Subtitle enrichment is
// independent of stream resolution and merged at response-assembly
// time; failures are never fatal.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewClient creates a new subtitles client. A nil client is returned
// when no addon is configured; Fetch on a nil client yields nothing.
func NewClient(cfg *config.Config, logger *logrus.Logger) *Client {
	if cfg.SubtitlesURL == "" {
		return nil
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.SubtitlesURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.MetadataTimeout(),
		},
		logger: logger,
	}
}

// Fetch retrieves subtitle tracks for a content key. Any failure
// yields an empty list.
func (c *Client) Fetch(ctx context.Context, contentType models.ContentType, key models.ContentKey) []models.Subtitle {
	if c == nil {
		return nil
	}

	endpoint := fmt.Sprintf("%s/subtitles/%s/%s.json", c.baseURL, contentType, url.PathEscape(key.String()))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		c.logger.WithError(err).Error("Failed to create subtitles request")
		return nil
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WithError(err).Debug("Subtitles request failed")
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.WithField("status_code", resp.StatusCode).Debug("Subtitles addon returned non-OK status")
		return nil
	}

	var payload subtitlesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		c.logger.WithError(err).Debug("Failed to decode subtitles response")
		return nil
	}

	subs := make([]models.Subtitle, 0, len(payload.Subtitles))
	for _, sub := range payload.Subtitles {
		if sub.URL == "" {
			continue
		}
		subs = append(subs, models.Subtitle{
			ID:       sub.ID,
			Language: sub.Lang,
			URL:      sub.URL,
		})
	}

	return subs
}
