package torbox

import (
	"context"
	"fmt"
	"sort"

	"github.com/amaumene/resolvarr/internal/models"
	"github.com/amaumene/resolvarr/internal/utils"
	"github.com/sirupsen/logrus"
)

// AttemptResult is the typed outcome of one candidate attempt.
// Exactly one of the three shapes holds: Stream set means resolved,
// SkipReason set means advance to the next candidate, Err set means
// the whole loop must stop (context cancellation and the like).
type AttemptResult struct {
	Stream     *models.Stream
	SkipReason string
	Err        error
}

// Resolver iterates candidate sources against the debrid backend until
// one yields a playable stream. The candidate list is truncated to a
// bounded prefix so worst-case latency stays bounded.
type Resolver struct {
	client *Client
	limit  int
	logger *logrus.Logger
}

// NewResolver creates a new debrid resolver
func NewResolver(client *Client, limit int, logger *logrus.Logger) *Resolver {
	return &Resolver{
		client: client,
		limit:  limit,
		logger: logger,
	}
}

// Resolve walks the candidate list in order and returns the first
// stream it can produce. The first candidate for which add-if-cached
// succeeds wins; a later candidate is never preferred on quality.
func (r *Resolver) Resolve(ctx context.Context, candidates []models.CandidateSource) (*models.Stream, error) {
	if len(candidates) == 0 {
		return nil, models.ErrNoCandidatesFound
	}
	if len(candidates) > r.limit {
		candidates = candidates[:r.limit]
	}

	anyAdded := false
	for i, candidate := range candidates {
		result := r.attempt(ctx, candidate)

		if result.Err != nil {
			return nil, fmt.Errorf("candidate loop aborted: %w", result.Err)
		}
		if result.Stream != nil {
			r.logger.WithFields(logrus.Fields{
				"position": i,
				"hash":     candidate.InfoHash,
				"quality":  candidate.Quality,
				"hls":      result.Stream.IsHLS(),
			}).Info("Candidate resolved")
			return result.Stream, nil
		}

		if result.SkipReason != "not cached" {
			anyAdded = true
		}
		r.logger.WithFields(logrus.Fields{
			"position": i,
			"hash":     candidate.InfoHash,
			"reason":   result.SkipReason,
		}).Debug("Candidate skipped")
	}

	if !anyAdded {
		return nil, models.ErrNoCandidateCached
	}
	return nil, models.ErrAllCandidatesExhausted
}

// attempt runs one candidate through the per-candidate state machine:
// add-if-cached, file inspection, direct link, transcode fallback.
func (r *Resolver) attempt(ctx context.Context, candidate models.CandidateSource) AttemptResult {
	if err := ctx.Err(); err != nil {
		return AttemptResult{Err: err}
	}

	torrentID, err := r.client.CreateTorrentIfCached(ctx, candidate.Magnet)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return AttemptResult{Err: ctxErr}
		}
		return AttemptResult{SkipReason: "not cached"}
	}

	files, err := r.client.GetTorrentFiles(ctx, torrentID)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return AttemptResult{Err: ctxErr}
		}
		return AttemptResult{SkipReason: "file listing failed"}
	}

	file, ok := pickMainFile(files)
	if !ok {
		return AttemptResult{SkipReason: "no video file"}
	}

	stream := models.Stream{
		ID:       fmt.Sprintf("%d:%d", torrentID, file.ID),
		Quality:  candidate.Quality,
		Origin:   models.OriginDebrid,
		Title:    candidate.Title,
		Cached:   true,
		InfoHash: candidate.InfoHash,
		FileName: fileName(file),
	}

	// Direct-play is always preferred over transcoding for equal
	// candidate rank: no transcode latency, no server load.
	if utils.IsDirectPlayable(fileName(file)) {
		link, err := r.client.RequestDownloadLink(ctx, torrentID, file.ID)
		if err == nil {
			stream.URL = link
			return AttemptResult{Stream: &stream}
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return AttemptResult{Err: ctxErr}
		}
		r.logger.WithError(err).WithField("hash", candidate.InfoHash).Debug("Direct link failed, trying transcode")
	}

	playback, err := r.client.CreateStream(ctx, torrentID, file.ID)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return AttemptResult{Err: ctxErr}
		}
		return AttemptResult{SkipReason: "transcode failed"}
	}

	stream.URL = playback.HLSURL
	stream.HLSURL = playback.HLSURL
	stream.Audio = playback.Audio
	stream.Intro = playback.Intro
	return AttemptResult{Stream: &stream}
}

// pickMainFile selects the largest recognized video file. The largest
// file in a multi-file torrent is the main title, not a sample/extra.
func pickMainFile(files []TorrentFile) (TorrentFile, bool) {
	videos := make([]TorrentFile, 0, len(files))
	for _, file := range files {
		if utils.IsVideoFile(fileName(file)) {
			videos = append(videos, file)
		}
	}
	if len(videos) == 0 {
		return TorrentFile{}, false
	}

	sort.SliceStable(videos, func(i, j int) bool {
		return videos[i].Size > videos[j].Size
	})
	return videos[0], true
}

// fileName prefers the short name when the backend provides one
func fileName(file TorrentFile) string {
	if file.ShortName != "" {
		return file.ShortName
	}
	return file.Name
}
