package controllers

import (
	"github.com/amaumene/resolvarr/internal/models"
	"github.com/amaumene/resolvarr/internal/utils"
	"github.com/sirupsen/logrus"
)

// StreamSelector applies the deterministic ranking policy over the
// streams a resolution produced. Selection is two-level: delivery mode
// first (direct-playable > adaptive-bitrate > other), then declared
// quality within the winning partition. No randomness; the same
// candidate set and policy always yield the same pick.
type StreamSelector struct {
	logger *logrus.Logger
}

// NewStreamSelector creates a new stream selector
func NewStreamSelector(logger *logrus.Logger) *StreamSelector {
	return &StreamSelector{logger: logger}
}

// Select picks exactly one stream to serve. The remaining streams are
// returned as alternatives in their original order.
func (s *StreamSelector) Select(streams []models.Stream, preferred models.Quality) (models.Stream, []models.Stream, bool) {
	if len(streams) == 0 {
		return models.Stream{}, nil, false
	}

	direct, adaptive, other := partitionByMode(streams)

	var chosen *models.Stream
	for _, partition := range [][]models.Stream{direct, adaptive, other} {
		if len(partition) == 0 {
			continue
		}
		pick := pickByQuality(partition, preferred)
		chosen = &pick
		break
	}

	alternatives := make([]models.Stream, 0, len(streams)-1)
	for _, stream := range streams {
		if stream.ID == chosen.ID && stream.URL == chosen.URL {
			continue
		}
		alternatives = append(alternatives, stream)
	}

	s.logger.WithFields(logrus.Fields{
		"chosen_quality": chosen.Quality,
		"hls":            chosen.IsHLS(),
		"alternatives":   len(alternatives),
	}).Debug("Stream selected")

	return *chosen, alternatives, true
}

// partitionByMode splits streams into direct-playable, adaptive-bitrate
// and everything else
func partitionByMode(streams []models.Stream) (direct, adaptive, other []models.Stream) {
	for _, stream := range streams {
		switch {
		case stream.IsHLS():
			adaptive = append(adaptive, stream)
		case stream.URL != "":
			direct = append(direct, stream)
		default:
			other = append(other, stream)
		}
	}
	return direct, adaptive, other
}

// pickByQuality walks the fixed quality preference order and returns
// the first stream matching each tier, falling back to the first
// stream in partition order when no tier matches. Higher resolutions
// are deliberately deprioritized relative to 1080p; stability over
// pixels.
func pickByQuality(partition []models.Stream, preferred models.Quality) models.Stream {
	for _, quality := range utils.QualityFallback(preferred) {
		for _, stream := range partition {
			if stream.Quality == quality {
				return stream
			}
		}
	}
	return partition[0]
}
