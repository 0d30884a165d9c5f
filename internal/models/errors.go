package models

import "errors"

// Resolution failure taxonomy. Per-candidate failures are absorbed by
// the resolver loop; only list exhaustion (or an empty candidate list)
// surfaces to the caller.
var (
	// ErrIdentifierConversion means a namespace conversion failed.
	// Non-fatal: the pipeline degrades to the original id.
	ErrIdentifierConversion = errors.New("identifier conversion failed")

	// ErrUnknownContentType means the request named a type outside the
	// supported set. A client error, not a resolution failure.
	ErrUnknownContentType = errors.New("unknown content type")

	// ErrNoCandidatesFound means the indexer returned nothing usable
	ErrNoCandidatesFound = errors.New("no candidates found")

	// ErrNoCandidateCached means every probed candidate was a cache
	// miss on the debrid backend
	ErrNoCandidateCached = errors.New("no candidate cached on debrid backend")

	// ErrFileInspection means the library entry's file listing had no
	// usable video file
	ErrFileInspection = errors.New("file inspection failed")

	// ErrDirectLink means the direct download link request failed
	ErrDirectLink = errors.New("direct link request failed")

	// ErrTranscode means the adaptive-bitrate transcode request failed
	ErrTranscode = errors.New("transcode request failed")

	// ErrAllCandidatesExhausted is terminal: the bounded candidate list
	// was exhausted without producing a stream
	ErrAllCandidatesExhausted = errors.New("all candidates exhausted")

	// ErrSessionNotFound means no session exists for the given id
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionExpired means the session existed but has expired.
	// Recoverable by re-issuing a fresh play request.
	ErrSessionExpired = errors.New("session expired")
)
