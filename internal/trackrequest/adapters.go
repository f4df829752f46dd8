package trackrequest

import (
	"context"

	"trackrequestd/internal/model"
)

// SearchProvider returns ranked topic candidates for a query and fetches
// torrent-file bytes for a chosen candidate. Ranking is the candidate's
// responsibility (see Rank in ranking.go) so a concrete adapter is expected
// to apply it before returning from FindAll.
type SearchProvider interface {
	FindAll(ctx context.Context, query string) ([]model.TopicData, error)
	DownloadTorrent(ctx context.Context, id model.DownloadId) ([]byte, error)
	CheckConnection(ctx context.Context) error
}

// TorrentClient adds a torrent with a chosen file subset, polls its status,
// and removes it. An implementation is free to keep a torrent's identity
// only in process memory: SelectFile, GetTorrent, and DeleteTorrent must
// return (wrapped) ErrUnknownTorrent for an id they no longer recognize
// (notably right after a restart), rather than blocking forever or panicking
// — the driver detects that and re-adds the torrent from persisted data.
type TorrentClient interface {
	// AddTorrent adds the torrent described by data with every file
	// initially marked unwanted and returns its id.
	AddTorrent(ctx context.Context, data []byte) (model.TorrentId, error)
	// SelectFile marks the file at fileIndex wanted and starts its
	// transfer; every other file in the torrent stays unwanted.
	SelectFile(ctx context.Context, id model.TorrentId, fileIndex int) error
	GetTorrent(ctx context.Context, id model.TorrentId) (model.TorrentSnapshot, error)
	DeleteTorrent(ctx context.Context, id model.TorrentId, withData bool) error
}

// MetadataService reads the tags embedded in a local audio file.
type MetadataService interface {
	GetAudioMetadata(ctx context.Context, path string) (*model.AudioMetadata, error)
}

// RadioManager uploads audio files and manages channel playlists.
type RadioManager interface {
	UploadAudioTrack(ctx context.Context, user model.UserId, path string) (model.RadioManagerTrackId, error)
	AddTrackToChannelPlaylist(ctx context.Context, user model.UserId, track model.RadioManagerTrackId, channel model.RadioManagerChannelId) (model.RadioManagerLinkId, error)
	GetChannelTracks(ctx context.Context, channel model.RadioManagerChannelId) ([]model.AudioMetadata, error)
	CheckConnection(ctx context.Context) error
}

// SuggestionProvider is the optional, off-critical-path enrichment that
// proposes additional tracks given a channel's current contents.
type SuggestionProvider interface {
	Suggest(ctx context.Context, tracks []model.AudioMetadata) ([]model.AudioMetadata, error)
}
