package models

import "time"

// SessionTTL is the lifetime of a playback session. It matches the
// debrid backend's own link lifetime.
const SessionTTL = 4 * time.Hour

// StreamSession binds a playback request to a resolved stream and its
// real upstream URL. Created once per successful resolution (or cache
// hit), read many times during playback.
type StreamSession struct {
	ID        string `boltholdKey:"ID"`
	ContentID string `boltholdIndex:"ContentID"`

	ContentType ContentType
	Season      *int
	Episode     *int

	Stream      Stream
	UpstreamURL string

	CreatedAt time.Time
	ExpiresAt time.Time `boltholdIndex:"ExpiresAt"`
}

// Expired reports whether the session has passed its expiry at now
func (s *StreamSession) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
