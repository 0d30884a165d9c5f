package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/amaumene/resolvarr/internal/config"
	"github.com/amaumene/resolvarr/internal/models"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
)

const (
	tmdbPrefix  = "tmdb:"
	kitsuPrefix = "kitsu:"

	memoTTL     = 10 * time.Minute
	memoCleanup = 30 * time.Minute
)

var imdbLinkRegex = regexp.MustCompile(`imdb\.com/title/(tt\d+)`)

// Normalizer converts provider-namespace content ids into the
// canonical IMDB namespace every downstream provider expects.
// Conversion results are memoized; they are stable for far longer than
// the memo TTL.
type Normalizer struct {
	tmdbURL    string
	tmdbKey    string
	kitsuURL   string
	httpClient *http.Client
	memo       *cache.Cache
	logger     *logrus.Logger
}

// NewNormalizer creates a new identifier normalizer
func NewNormalizer(cfg *config.Config, logger *logrus.Logger) *Normalizer {
	return &Normalizer{
		tmdbURL:  strings.TrimRight(cfg.TMDBAPIURL, "/"),
		tmdbKey:  cfg.TMDBAPIKey,
		kitsuURL: strings.TrimRight(cfg.KitsuAPIURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.MetadataTimeout(),
		},
		memo:   cache.New(memoTTL, memoCleanup),
		logger: logger,
	}
}

// Normalize converts a raw content id into the canonical namespace.
// Conversion failure is non-fatal: the original id is returned and the
// pipeline fails downstream with a no-streams outcome instead of
// crashing here. One best-effort call per namespace, no retries.
func (n *Normalizer) Normalize(ctx context.Context, rawID string, contentType models.ContentType) string {
	rawID = strings.TrimSpace(rawID)

	key := memoKey(rawID, contentType)
	if memoized, found := n.memo.Get(key); found {
		return memoized.(string)
	}

	var (
		canonical string
		err       error
	)

	switch {
	case strings.HasPrefix(rawID, tmdbPrefix):
		canonical, err = n.convertTMDB(ctx, strings.TrimPrefix(rawID, tmdbPrefix), contentType)
	case strings.HasPrefix(rawID, kitsuPrefix):
		canonical, err = n.convertKitsu(ctx, strings.TrimPrefix(rawID, kitsuPrefix))
	default:
		// No recognized prefix: the id is already canonical
		return rawID
	}

	if err != nil {
		n.logger.WithError(err).WithField("raw_id", rawID).Warn("Identifier conversion failed, continuing with original id")
		return rawID
	}

	n.memo.Set(key, canonical, cache.DefaultExpiration)
	return canonical
}

// memoKey scopes tmdb conversions by content type: movie and tv ids are
// independent numeric namespaces resolved through different endpoints,
// so the same number can name two different titles. Kitsu ids are a
// single namespace and keep the bare key.
func memoKey(rawID string, contentType models.ContentType) string {
	if strings.HasPrefix(rawID, tmdbPrefix) {
		return string(contentType) + "|" + rawID
	}
	return rawID
}

// tmdbExternalIDs represents the catalog's external identifiers record
type tmdbExternalIDs struct {
	IMDBID string `json:"imdb_id"`
}

// convertTMDB resolves a numeric catalog id through the catalog's
// external-identifiers lookup
func (n *Normalizer) convertTMDB(ctx context.Context, tmdbID string, contentType models.ContentType) (string, error) {
	apiType := "movie"
	if contentType == models.ContentTypeSeries || contentType == models.ContentTypeAnime {
		apiType = "tv"
	}

	endpoint := fmt.Sprintf("%s/%s/%s/external_ids?api_key=%s", n.tmdbURL, apiType, tmdbID, n.tmdbKey)

	var payload tmdbExternalIDs
	if err := n.getJSON(ctx, endpoint, &payload); err != nil {
		return "", fmt.Errorf("%w: tmdb %s/%s: %v", models.ErrIdentifierConversion, apiType, tmdbID, err)
	}

	if payload.IMDBID == "" {
		return "", fmt.Errorf("%w: tmdb %s/%s has no imdb id", models.ErrIdentifierConversion, apiType, tmdbID)
	}

	return payload.IMDBID, nil
}

// kitsuRecord represents the anime database's metadata record
type kitsuRecord struct {
	Data struct {
		Attributes struct {
			IMDBID     string `json:"imdbId"`
			ExternalID string `json:"externalId"`
		} `json:"attributes"`
		Links []struct {
			URL string `json:"url"`
		} `json:"links"`
	} `json:"data"`
}

// convertKitsu resolves an anime-database id by fetching the anime's
// metadata record and searching, in order, the embedded identifier
// field, the generic external-id field, and the links collection.
func (n *Normalizer) convertKitsu(ctx context.Context, kitsuID string) (string, error) {
	endpoint := fmt.Sprintf("%s/anime/%s", n.kitsuURL, kitsuID)

	var payload kitsuRecord
	if err := n.getJSON(ctx, endpoint, &payload); err != nil {
		return "", fmt.Errorf("%w: kitsu %s: %v", models.ErrIdentifierConversion, kitsuID, err)
	}

	if id := strings.TrimSpace(payload.Data.Attributes.IMDBID); id != "" {
		return id, nil
	}
	if id := strings.TrimSpace(payload.Data.Attributes.ExternalID); strings.HasPrefix(id, "tt") {
		return id, nil
	}
	for _, link := range payload.Data.Links {
		if matches := imdbLinkRegex.FindStringSubmatch(link.URL); matches != nil {
			return matches[1], nil
		}
	}

	return "", fmt.Errorf("%w: kitsu %s has no canonical id", models.ErrIdentifierConversion, kitsuID)
}

// getJSON performs one bounded GET and decodes the JSON response
func (n *Normalizer) getJSON(ctx context.Context, endpoint string, target interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "resolvarr/1.0")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
