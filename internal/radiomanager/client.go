// Package radiomanager implements the RadioManager adapter: an HTTP client
// for the playlist service tracks get uploaded into, authenticated with a
// cached OAuth2 client-credentials token.
package radiomanager

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/oauth2/clientcredentials"

	"trackrequestd/internal/model"
	"trackrequestd/internal/trackrequest"
)

// Client is an HTTP RadioManager backed by a token-caching OAuth2
// transport: clientcredentials.Config refreshes and caches the bearer
// token itself, the same double-checked-cache behavior this lineage's
// Auth0 management-token cache implements by hand, so there is nothing
// left for this client to cache on its own.
type Client struct {
	baseURL string
	http    *http.Client
}

var _ trackrequest.RadioManager = (*Client)(nil)

// New builds a Client whose requests are authenticated with a
// client_credentials token fetched from baseURL+"/oauth/token".
func New(baseURL, clientID, clientSecret string, timeout time.Duration) *Client {
	oauthCfg := clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     strings.TrimRight(baseURL, "/") + "/oauth/token",
	}

	httpClient := oauthCfg.Client(context.Background())
	httpClient.Timeout = timeout

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// UploadAudioTrack multipart-uploads the file at path on the given user's
// behalf and returns the track id the service assigns it.
func (c *Client) UploadAudioTrack(ctx context.Context, user model.UserId, path string) (model.RadioManagerTrackId, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("radiomanager: open %s: %w", path, err)
	}
	defer f.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return 0, fmt.Errorf("radiomanager: build multipart body: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return 0, fmt.Errorf("radiomanager: copy file into request: %w", err)
	}
	if err := writer.Close(); err != nil {
		return 0, fmt.Errorf("radiomanager: close multipart writer: %w", err)
	}

	url := fmt.Sprintf("%s/api/users/%d/tracks", c.baseURL, user)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return 0, fmt.Errorf("radiomanager: build upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var result struct {
		TrackId int64 `json:"track_id"`
	}
	if err := c.doJSON(req, &result); err != nil {
		return 0, fmt.Errorf("radiomanager: upload audio track: %w", err)
	}
	return model.RadioManagerTrackId(result.TrackId), nil
}

// AddTrackToChannelPlaylist links an already-uploaded track into a
// channel's playlist and returns the new link's id.
func (c *Client) AddTrackToChannelPlaylist(ctx context.Context, user model.UserId, track model.RadioManagerTrackId, channel model.RadioManagerChannelId) (model.RadioManagerLinkId, error) {
	payload, err := json.Marshal(struct {
		TrackId int64 `json:"track_id"`
	}{TrackId: int64(track)})
	if err != nil {
		return "", fmt.Errorf("radiomanager: encode link payload: %w", err)
	}

	url := fmt.Sprintf("%s/api/users/%d/channels/%d/playlist", c.baseURL, user, channel)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("radiomanager: build link request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var result struct {
		LinkId string `json:"link_id"`
	}
	if err := c.doJSON(req, &result); err != nil {
		return "", fmt.Errorf("radiomanager: add track to channel playlist: %w", err)
	}
	return model.RadioManagerLinkId(result.LinkId), nil
}

// GetChannelTracks lists the metadata of every track already on a
// channel's playlist, used to detect a duplicate request before it starts.
func (c *Client) GetChannelTracks(ctx context.Context, channel model.RadioManagerChannelId) ([]model.AudioMetadata, error) {
	url := fmt.Sprintf("%s/api/channels/%d/tracks", c.baseURL, channel)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("radiomanager: build channel tracks request: %w", err)
	}

	var result struct {
		Tracks []struct {
			Title  string `json:"title"`
			Artist string `json:"artist"`
			Album  string `json:"album"`
		} `json:"tracks"`
	}
	if err := c.doJSON(req, &result); err != nil {
		return nil, fmt.Errorf("radiomanager: get channel tracks: %w", err)
	}

	out := make([]model.AudioMetadata, len(result.Tracks))
	for i, t := range result.Tracks {
		out[i] = model.AudioMetadata{Title: t.Title, Artist: t.Artist, Album: t.Album}
	}
	return out, nil
}

// CheckConnection verifies the service is reachable and the cached token
// is still accepted.
func (c *Client) CheckConnection(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/health", nil)
	if err != nil {
		return fmt.Errorf("radiomanager: build health request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("radiomanager: health request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("radiomanager: unexpected health status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) doJSON(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
