// Package model holds the identifiers and value records shared by every
// component of the track request pipeline.
package model

import "fmt"

// RequestId uniquely identifies one track acquisition request. Generated on
// creation and never reused.
type RequestId string

func (r RequestId) String() string { return string(r) }

// UserId identifies the requesting user.
type UserId int64

func (u UserId) String() string { return fmt.Sprintf("%d", int64(u)) }

// TopicId identifies a single search result on the tracker.
type TopicId int64

// DownloadId is the tracker's handle used to fetch a topic's torrent file.
type DownloadId int64

// TorrentId identifies an in-flight torrent inside the downloader. Signed
// because the concrete adapter may derive it from an info-hash.
type TorrentId int64

// RadioManagerTrackId identifies an uploaded track on the radio-management
// service.
type RadioManagerTrackId int64

// RadioManagerChannelId identifies a channel (playlist) on the
// radio-management service.
type RadioManagerChannelId int64

// RadioManagerLinkId identifies the association between a track and a
// channel playlist.
type RadioManagerLinkId string
