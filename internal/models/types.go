package models

import (
	"fmt"
	"strings"
)

// ContentType represents the type of content being requested
type ContentType string

const (
	ContentTypeMovie  ContentType = "movie"
	ContentTypeSeries ContentType = "series"
	ContentTypeAnime  ContentType = "anime"
)

// Quality represents a declared quality tier
type Quality string

const (
	Quality4K      Quality = "4k"
	Quality1080p   Quality = "1080p"
	Quality720p    Quality = "720p"
	Quality480p    Quality = "480p"
	QualityUnknown Quality = "unknown"
)

// StreamOrigin records which backend produced a stream
type StreamOrigin string

const (
	OriginDebrid       StreamOrigin = "debrid"
	OriginIndexer      StreamOrigin = "indexer"
	OriginAdultCatalog StreamOrigin = "adult-catalog"
)

// ContentKey identifies one resolvable unit of content. It is computed
// per request from the normalized id and never persisted directly; its
// String form is the lookup key for the cache and session stores.
type ContentKey struct {
	ContentID string
	Season    *int
	Episode   *int
}

// String renders the key as "id" or "id:season:episode"
func (k ContentKey) String() string {
	if k.Season != nil && k.Episode != nil {
		return fmt.Sprintf("%s:%d:%d", k.ContentID, *k.Season, *k.Episode)
	}
	return k.ContentID
}

// ParseContentType validates a raw type string from a request
func ParseContentType(raw string) (ContentType, error) {
	switch ContentType(strings.ToLower(strings.TrimSpace(raw))) {
	case ContentTypeMovie:
		return ContentTypeMovie, nil
	case ContentTypeSeries:
		return ContentTypeSeries, nil
	case ContentTypeAnime:
		return ContentTypeAnime, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownContentType, raw)
}
