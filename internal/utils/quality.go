package utils

import (
	"strings"

	"github.com/amaumene/resolvarr/internal/models"
)

// DetermineQuality parses a release title and determines the quality
// tier. Tokens are searched in priority order so a title declaring both
// "2160p" and "1080p" (remux comparisons etc.) lands on the higher tier.
func DetermineQuality(title string) models.Quality {
	titleLower := strings.ToLower(title)

	switch {
	case strings.Contains(titleLower, "2160p") || strings.Contains(titleLower, "4k"):
		return models.Quality4K
	case strings.Contains(titleLower, "1080p"):
		return models.Quality1080p
	case strings.Contains(titleLower, "720p"):
		return models.Quality720p
	case strings.Contains(titleLower, "480p"):
		return models.Quality480p
	}

	return models.QualityUnknown
}

// QualityFallback returns the fixed preference order for a requested
// tier: exact match first, then 1080p, 4k, 720p, 480p. 4k is
// deliberately ranked below 1080p; stability over pixels.
func QualityFallback(requested models.Quality) []models.Quality {
	base := []models.Quality{
		models.Quality1080p,
		models.Quality4K,
		models.Quality720p,
		models.Quality480p,
	}

	order := make([]models.Quality, 0, len(base)+1)
	if requested != "" && requested != models.QualityUnknown {
		order = append(order, requested)
	}
	for _, q := range base {
		if q == requested {
			continue
		}
		order = append(order, q)
	}

	return order
}
