package torbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"

	"github.com/amaumene/resolvarr/internal/models"
	"github.com/sirupsen/logrus"
)

// CreateTorrentResponse represents the response from adding a torrent
type CreateTorrentResponse struct {
	Success bool    `json:"success"`
	Error   *string `json:"error"`
	Detail  string  `json:"detail"`
	Data    struct {
		TorrentID int    `json:"torrent_id"`
		Hash      string `json:"hash"`
		AuthID    string `json:"auth_id"`
	} `json:"data"`
}

// TorrentFile represents a file within a library torrent
type TorrentFile struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	ShortName string `json:"short_name"`
	Size      int64  `json:"size"`
	MimeType  string `json:"mimetype"`
}

// Torrent represents a torrent in the account's library
type Torrent struct {
	ID               int           `json:"id"`
	Name             string        `json:"name"`
	Hash             string        `json:"hash"`
	Size             int64         `json:"size"`
	Cached           bool          `json:"cached"`
	DownloadPresent  bool          `json:"download_present"`
	DownloadFinished bool          `json:"download_finished"`
	Files            []TorrentFile `json:"files"`
}

// torrentListResponse represents the response from the library listing
type torrentListResponse struct {
	Success bool    `json:"success"`
	Error   *string `json:"error"`
	Detail  string  `json:"detail"`
	Data    Torrent `json:"data"`
}

// requestDLResponse represents the response from a direct link request
type requestDLResponse struct {
	Success bool    `json:"success"`
	Error   *string `json:"error"`
	Detail  string  `json:"detail"`
	Data    string  `json:"data"`
}

// CreateTorrentIfCached issues the combined "add to library, but only
// if this hash is already cached" request. This collapses check-cache
// and add into a single round trip. A failure response means the hash
// is not cached; callers advance to the next candidate.
func (c *Client) CreateTorrentIfCached(ctx context.Context, magnet string) (int, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if err := writer.WriteField("magnet", magnet); err != nil {
		return 0, fmt.Errorf("failed to add magnet field: %w", err)
	}
	if err := writer.WriteField("seed", "1"); err != nil {
		return 0, fmt.Errorf("failed to add seed field: %w", err)
	}
	if err := writer.WriteField("allow_zip", "false"); err != nil {
		return 0, fmt.Errorf("failed to add zip field: %w", err)
	}
	if err := writer.WriteField("add_only_if_cached", "true"); err != nil {
		return 0, fmt.Errorf("failed to add cached-only field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return 0, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/torrents/createtorrent", &buf)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return 0, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var result CreateTorrentResponse
	if err := json.Unmarshal(bodyBytes, &result); err != nil {
		return 0, fmt.Errorf("failed to decode response: %w", err)
	}

	if !result.Success || result.Data.TorrentID == 0 {
		return 0, fmt.Errorf("hash not cached: %s", result.Detail)
	}

	c.logger.WithFields(logrus.Fields{
		"torrent_id": result.Data.TorrentID,
		"detail":     result.Detail,
	}).Debug("Added cached torrent to library")

	return result.Data.TorrentID, nil
}

// GetTorrentFiles fetches the file listing of a library torrent
func (c *Client) GetTorrentFiles(ctx context.Context, torrentID int) ([]TorrentFile, error) {
	endpoint := fmt.Sprintf("%s/torrents/mylist?id=%d", c.baseURL, torrentID)

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

	var result torrentListResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if !result.Success {
		return nil, fmt.Errorf("%w: %s", models.ErrFileInspection, result.Detail)
	}

	return result.Data.Files, nil
}

// RequestDownloadLink asks for a direct download link for one file of
// a library torrent. The returned link shares the backend's 4 hour
// lifetime.
func (c *Client) RequestDownloadLink(ctx context.Context, torrentID, fileID int) (string, error) {
	params := url.Values{}
	params.Set("token", c.apiKey)
	params.Set("torrent_id", strconv.Itoa(torrentID))
	params.Set("file_id", strconv.Itoa(fileID))

	endpoint := c.baseURL + "/torrents/requestdl?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var result requestDLResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if !result.Success || result.Data == "" {
		return "", fmt.Errorf("%w: %s", models.ErrDirectLink, result.Detail)
	}

	return result.Data, nil
}
