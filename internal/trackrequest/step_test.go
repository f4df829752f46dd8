package trackrequest

import (
	"testing"

	"trackrequestd/internal/model"
)

func TestDeriveStep(t *testing.T) {
	topicId := model.TopicId(1)
	torrentId := model.TorrentId(2)
	path := "/downloads/track.flac"
	trackId := model.RadioManagerTrackId(3)
	linkId := model.RadioManagerLinkId("link-1")

	tests := []struct {
		name  string
		state *model.TrackRequestState
		want  Step
	}{
		{
			name:  "fresh request searches",
			state: model.NewTrackRequestState(),
			want:  StepGetTopicsIntoQueue,
		},
		{
			name: "queue set but empty re-searches",
			state: &model.TrackRequestState{
				TriedTopics:    map[model.TopicId]struct{}{},
				TopicsQueueSet: true,
			},
			want: StepGetTopicsIntoQueue,
		},
		{
			name: "queue populated downloads next torrent file",
			state: &model.TrackRequestState{
				TriedTopics:    map[model.TopicId]struct{}{},
				TopicsQueue:    []model.TopicData{{TopicId: topicId}},
				TopicsQueueSet: true,
			},
			want: StepDownloadNextTorrentFile,
		},
		{
			name: "torrent data fetched adds torrent",
			state: &model.TrackRequestState{
				TriedTopics:        map[model.TopicId]struct{}{},
				CurrentTorrentData: []byte("fake torrent bytes"),
			},
			want: StepDownload,
		},
		{
			name: "torrent id set polls status",
			state: &model.TrackRequestState{
				TriedTopics:      map[model.TopicId]struct{}{},
				CurrentTorrentId: &torrentId,
			},
			want: StepCheckDownloadStatus,
		},
		{
			name: "downloaded path uploads",
			state: &model.TrackRequestState{
				TriedTopics:          map[model.TopicId]struct{}{},
				PathToDownloadedFile: &path,
			},
			want: StepUploadToRadioManager,
		},
		{
			name: "track uploaded adds to channel",
			state: &model.TrackRequestState{
				TriedTopics:         map[model.TopicId]struct{}{},
				RadioManagerTrackId: &trackId,
			},
			want: StepAddToRadioManagerChannel,
		},
		{
			name: "link id present finishes",
			state: &model.TrackRequestState{
				TriedTopics:        map[model.TopicId]struct{}{},
				RadioManagerLinkId: &linkId,
			},
			want: StepFinish,
		},
		{
			name: "later fields win over earlier ones when both set",
			state: &model.TrackRequestState{
				TriedTopics:         map[model.TopicId]struct{}{},
				TopicsQueue:         []model.TopicData{{TopicId: topicId}},
				TopicsQueueSet:      true,
				CurrentTorrentId:    &torrentId,
				RadioManagerLinkId:  &linkId,
			},
			want: StepFinish,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveStep(tt.state); got != tt.want {
				t.Errorf("DeriveStep() = %q, want %q", got, tt.want)
			}
		})
	}
}
