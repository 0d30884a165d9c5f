package torbox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/amaumene/resolvarr/internal/models"
)

// StreamPlayback is the result of an adaptive-bitrate transcode request
type StreamPlayback struct {
	HLSURL string
	Audio  []models.AudioTrack
	Intro  *models.IntroMarkers
}

// createStreamResponse represents the transcode creation response
type createStreamResponse struct {
	Success bool    `json:"success"`
	Error   *string `json:"error"`
	Detail  string  `json:"detail"`
	Data    struct {
		HLSURL   string `json:"hls_url"`
		Playlist string `json:"playlist"`
		Metadata struct {
			Audios []struct {
				Index    int    `json:"index"`
				Language string `json:"language"`
				Default  bool   `json:"default"`
			} `json:"audios"`
			IntroInformation *struct {
				Start float64 `json:"start"`
				End   float64 `json:"end"`
			} `json:"intro_information"`
		} `json:"metadata"`
	} `json:"data"`
}

// CreateStream requests an adaptive-bitrate transcode for one file of
// a library torrent. Audio-track metadata and intro-skip markers are
// passed through when the backend provides them.
func (c *Client) CreateStream(ctx context.Context, torrentID, fileID int) (*StreamPlayback, error) {
	params := url.Values{}
	params.Set("id", strconv.Itoa(torrentID))
	params.Set("file_id", strconv.Itoa(fileID))

	endpoint := c.baseURL + "/stream/createstream?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var result createStreamResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	hlsURL := result.Data.HLSURL
	if hlsURL == "" {
		hlsURL = result.Data.Playlist
	}
	if !result.Success || hlsURL == "" {
		return nil, fmt.Errorf("%w: %s", models.ErrTranscode, result.Detail)
	}

	playback := &StreamPlayback{HLSURL: hlsURL}

	for _, audio := range result.Data.Metadata.Audios {
		playback.Audio = append(playback.Audio, models.AudioTrack{
			Index:    audio.Index,
			Language: audio.Language,
			Default:  audio.Default,
		})
	}

	if intro := result.Data.Metadata.IntroInformation; intro != nil {
		playback.Intro = &models.IntroMarkers{
			Start: intro.Start,
			End:   intro.End,
		}
	}

	return playback, nil
}
