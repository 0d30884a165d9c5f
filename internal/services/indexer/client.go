package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/amaumene/resolvarr/internal/config"
	"github.com/amaumene/resolvarr/internal/models"
	"github.com/amaumene/resolvarr/internal/utils"
	"github.com/sirupsen/logrus"
)

// streamsResponse represents the aggregator's JSON response
type streamsResponse struct {
	Streams []struct {
		InfoHash string `json:"infoHash"`
		Title    string `json:"title"`
		Name     string `json:"name"`
	} `json:"streams"`
}

// Client queries the torrent-indexing aggregator for candidate sources
type Client struct {
	baseURL    string
	httpClient *http.Client
	filter     *utils.ReleaseFilter
	logger     *logrus.Logger
}

// NewClient creates a new indexer client
func NewClient(cfg *config.Config, filter *utils.ReleaseFilter, logger *logrus.Logger) (*Client, error) {
	if cfg.IndexerURL == "" {
		return nil, fmt.Errorf("indexer URL is required")
	}
	if filter == nil {
		filter = &utils.ReleaseFilter{}
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.IndexerURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.IndexerTimeout(),
		},
		filter: filter,
		logger: logger,
	}, nil
}

// Search issues one bounded-timeout request for the content key and
// returns ranked candidate sources in aggregator order. Any transport
// or non-success response yields an empty list, never an error: the
// caller treats an empty list as NoCandidatesFound.
func (c *Client) Search(ctx context.Context, contentType models.ContentType, key models.ContentKey) []models.CandidateSource {
	endpoint := fmt.Sprintf("%s/stream/%s/%s.json", c.baseURL, pathType(contentType, key), url.PathEscape(key.String()))

	c.logger.WithFields(logrus.Fields{
		"url":  endpoint,
		"type": contentType,
	}).Debug("Querying indexer")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		c.logger.WithError(err).Error("Failed to create indexer request")
		return nil
	}
	req.Header.Set("User-Agent", "resolvarr/1.0")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WithError(err).Warn("Indexer request failed")
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.WithField("status_code", resp.StatusCode).Warn("Indexer returned non-OK status")
		return nil
	}

	var payload streamsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		c.logger.WithError(err).Warn("Failed to decode indexer response")
		return nil
	}

	candidates := c.convertStreams(payload)

	c.logger.WithFields(logrus.Fields{
		"key":        key.String(),
		"candidates": len(candidates),
	}).Debug("Indexer search completed")

	return candidates
}

// convertStreams filters entries lacking a hash, applies the release
// filter and extracts the declared quality from the title
func (c *Client) convertStreams(payload streamsResponse) []models.CandidateSource {
	candidates := make([]models.CandidateSource, 0, len(payload.Streams))
	seen := make(map[string]struct{})

	for _, stream := range payload.Streams {
		hash := strings.ToLower(strings.TrimSpace(stream.InfoHash))
		if hash == "" {
			continue
		}
		if _, dup := seen[hash]; dup {
			continue
		}

		title := strings.TrimSpace(stream.Title)
		if title == "" {
			title = strings.TrimSpace(stream.Name)
		}

		if term, matched := c.filter.Match(title); matched {
			c.logger.WithFields(logrus.Fields{
				"title": title,
				"term":  term,
			}).Debug("Candidate rejected by release filter")
			continue
		}

		seen[hash] = struct{}{}
		candidates = append(candidates, models.CandidateSource{
			InfoHash: hash,
			Title:    title,
			Quality:  utils.DetermineQuality(title),
			Magnet:   BuildMagnet(hash),
		})
	}

	return candidates
}

// BuildMagnet derives a magnet-style locator from an info hash
func BuildMagnet(infoHash string) string {
	if infoHash == "" {
		return ""
	}
	return "magnet:?xt=urn:btih:" + strings.ToUpper(infoHash)
}

// pathType maps the request content type onto the aggregator's two
// path namespaces. Anime uses the series namespace when an episode is
// addressed, the movie namespace otherwise.
func pathType(contentType models.ContentType, key models.ContentKey) string {
	switch contentType {
	case models.ContentTypeSeries:
		return "series"
	case models.ContentTypeAnime:
		if key.Season != nil && key.Episode != nil {
			return "series"
		}
		return "movie"
	default:
		return "movie"
	}
}
