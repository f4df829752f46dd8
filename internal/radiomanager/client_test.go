package radiomanager

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"trackrequestd/internal/model"
)

// newTestServer wires a mux serving both the oauth2 token endpoint
// clientcredentials.Config hits internally and the radio-manager API
// endpoints the adapter itself calls.
func newTestServer(t *testing.T, mux *http.ServeMux) (*httptest.Server, *Client) {
	t.Helper()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "test-token",
			"token_type":   "bearer",
			"expires_in":   3600,
		})
	})
	srv := httptest.NewServer(mux)
	c := New(srv.URL, "client-id", "client-secret", 5*time.Second)
	return srv, c
}

func TestUploadAudioTrack(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "track-*.flac")
	if err != nil {
		t.Fatalf("CreateTemp() error = %v", err)
	}
	f.WriteString("fake audio bytes")
	f.Close()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/users/1/tracks", func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Authorization"), "test-token") {
			t.Errorf("expected request to carry the oauth2 bearer token, got %q", r.Header.Get("Authorization"))
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"track_id": 42})
	})
	srv, c := newTestServer(t, mux)
	defer srv.Close()

	trackId, err := c.UploadAudioTrack(context.Background(), model.UserId(1), f.Name())
	if err != nil {
		t.Fatalf("UploadAudioTrack() error = %v", err)
	}
	if trackId != 42 {
		t.Errorf("UploadAudioTrack() = %d, want 42", trackId)
	}
}

func TestAddTrackToChannelPlaylist(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/users/1/channels/5/playlist", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"link_id": "link-xyz"})
	})
	srv, c := newTestServer(t, mux)
	defer srv.Close()

	linkId, err := c.AddTrackToChannelPlaylist(context.Background(), model.UserId(1), model.RadioManagerTrackId(42), model.RadioManagerChannelId(5))
	if err != nil {
		t.Fatalf("AddTrackToChannelPlaylist() error = %v", err)
	}
	if linkId != "link-xyz" {
		t.Errorf("AddTrackToChannelPlaylist() = %q, want %q", linkId, "link-xyz")
	}
}

func TestGetChannelTracks(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/channels/5/tracks", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"tracks": []map[string]string{
				{"title": "Song", "artist": "Artist", "album": "Album"},
			},
		})
	})
	srv, c := newTestServer(t, mux)
	defer srv.Close()

	tracks, err := c.GetChannelTracks(context.Background(), model.RadioManagerChannelId(5))
	if err != nil {
		t.Fatalf("GetChannelTracks() error = %v", err)
	}
	if len(tracks) != 1 || tracks[0].Title != "Song" {
		t.Errorf("GetChannelTracks() = %+v, want one track titled Song", tracks)
	}
}

func TestCheckConnectionUnhealthy(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	srv, c := newTestServer(t, mux)
	defer srv.Close()

	if err := c.CheckConnection(context.Background()); err == nil {
		t.Error("expected CheckConnection to error on a non-200 health status")
	}
}
