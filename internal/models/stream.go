package models

// CandidateSource is one torrent hash returned by the indexer, not yet
// known to be playable. Ephemeral, never persisted.
type CandidateSource struct {
	InfoHash string
	Title    string
	Quality  Quality
	Magnet   string
}

// AudioTrack carries per-track audio metadata passed through from the
// debrid transcode response.
type AudioTrack struct {
	Index    int    `json:"index"`
	Language string `json:"language"`
	Default  bool   `json:"default"`
}

// IntroMarkers marks an intro segment so players can offer skipping
type IntroMarkers struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Stream is the resolved playable unit. Exactly one Stream is
// authoritative per resolution; others may be retained as alternatives
// for client-side quality switching.
type Stream struct {
	ID       string       `json:"id"`
	URL      string       `json:"url"`
	Quality  Quality      `json:"quality"`
	Origin   StreamOrigin `json:"origin"`
	Title    string       `json:"title"`
	Cached   bool         `json:"cached"`
	HLSURL   string       `json:"hls_url,omitempty"`
	InfoHash string       `json:"info_hash,omitempty"`
	FileName string       `json:"file_name,omitempty"`
	Audio    []AudioTrack `json:"audio,omitempty"`
	Intro    *IntroMarkers `json:"intro,omitempty"`
}

// IsHLS reports whether the stream was produced by the transcode
// (compatibility) path rather than a direct download link.
func (s Stream) IsHLS() bool {
	return s.HLSURL != ""
}

// Subtitle is one external subtitle track offered alongside a stream
type Subtitle struct {
	ID       string `json:"id"`
	Language string `json:"lang"`
	URL      string `json:"url"`
}

// PlayRequest is the request contract for stream resolution
type PlayRequest struct {
	ContentID        string  `json:"content_id"`
	Type             string  `json:"type"`
	Season           *int    `json:"season,omitempty"`
	Episode          *int    `json:"episode,omitempty"`
	PreferredQuality Quality `json:"preferred_quality,omitempty"`
}

// PlayResponse is the response contract for stream resolution
type PlayResponse struct {
	SessionID    string     `json:"session_id"`
	StreamURL    string     `json:"stream_url"`
	Stream       Stream     `json:"stream"`
	Alternatives []Stream   `json:"alternatives"`
	Subtitles    []Subtitle `json:"subtitles"`
}
