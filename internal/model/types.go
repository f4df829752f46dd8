package model

import "time"

// AudioMetadata describes a track by its three identifying fields. Used both
// as the requested description and as the verification target read back off
// the downloaded file.
type AudioMetadata struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Album  string `json:"album"`
}

// Equal reports whether two metadata records match on all three fields.
func (m AudioMetadata) Equal(other AudioMetadata) bool {
	return m.Title == other.Title && m.Artist == other.Artist && m.Album == other.Album
}

// TopicData is one row of a search result: a candidate torrent on the
// tracker.
type TopicData struct {
	TopicId    TopicId    `json:"topic_id"`
	DownloadId DownloadId `json:"download_id"`
	Title      string     `json:"title"`
}

// TorrentStatus is the coarse lifecycle of a torrent inside the downloader.
type TorrentStatus string

const (
	TorrentDownloading TorrentStatus = "downloading"
	TorrentComplete    TorrentStatus = "complete"
)

// TorrentSnapshot is a point-in-time view of a torrent: its completion
// status and the relative paths of every file it declares, in the order the
// torrent metainfo lists them.
type TorrentSnapshot struct {
	Status TorrentStatus `json:"status"`
	Files  []string      `json:"files"`
}

// RequestOptions are the per-request behavior toggles supplied at creation.
type RequestOptions struct {
	ValidateMetadata bool `json:"validate_metadata"`
}

// TrackRequestContext is immutable once a request is created.
type TrackRequestContext struct {
	Metadata        AudioMetadata         `json:"metadata"`
	TargetChannelId RadioManagerChannelId `json:"target_channel_id"`
	Options         RequestOptions        `json:"options"`
	CreatedAt       time.Time             `json:"created_at"`
}

// TrackRequestState is the mutable, persisted-after-every-transition record
// the step derivation (see package trackrequest) reads. Every field beyond
// TriedTopics is optional and populated monotonically as the request
// advances; nothing else distinguishes the current step.
type TrackRequestState struct {
	TriedTopics         map[TopicId]struct{}   `json:"tried_topics"`
	TopicsQueue         []TopicData            `json:"topics_queue,omitempty"`
	TopicsQueueSet      bool                   `json:"topics_queue_set"`
	CurrentTorrentData  []byte                 `json:"current_torrent_data,omitempty"`
	CurrentTorrentId    *TorrentId             `json:"current_torrent_id,omitempty"`
	PathToDownloadedFile *string               `json:"path_to_downloaded_file,omitempty"`
	RadioManagerTrackId *RadioManagerTrackId   `json:"radio_manager_track_id,omitempty"`
	RadioManagerLinkId  *RadioManagerLinkId    `json:"radio_manager_link_id,omitempty"`
}

// NewTrackRequestState returns an empty state as persisted at create_request
// time: no topics tried, no queue built yet.
func NewTrackRequestState() *TrackRequestState {
	return &TrackRequestState{TriedTopics: make(map[TopicId]struct{})}
}

// Status is the coarse, user-visible lifecycle tag for a request.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusFinished   Status = "finished"
	StatusFailed     Status = "failed"
)

func (s Status) Terminal() bool {
	return s == StatusFinished || s == StatusFailed
}
