package trackrequest

import "trackrequestd/internal/model"

// Step names the next action the driver must perform. It is never
// persisted: DeriveStep recomputes it fresh from the state's populated
// fields on every loop iteration, per the field-population rules below.
type Step string

const (
	StepFinish                  Step = "finish"
	StepAddToRadioManagerChannel Step = "add_to_radio_manager_channel"
	StepUploadToRadioManager    Step = "upload_to_radio_manager"
	StepCheckDownloadStatus     Step = "check_download_status"
	StepDownload                Step = "download"
	StepDownloadNextTorrentFile Step = "download_next_torrent_file"
	StepGetTopicsIntoQueue      Step = "get_topics_into_queue"
)

// DeriveStep is the single source of truth for dispatch. It evaluates the
// first matching rule, top to bottom, making the machine resumable purely
// from whatever was last persisted.
func DeriveStep(s *model.TrackRequestState) Step {
	switch {
	case s.RadioManagerLinkId != nil:
		return StepFinish
	case s.RadioManagerTrackId != nil:
		return StepAddToRadioManagerChannel
	case s.PathToDownloadedFile != nil:
		return StepUploadToRadioManager
	case s.CurrentTorrentId != nil:
		return StepCheckDownloadStatus
	case s.CurrentTorrentData != nil:
		return StepDownload
	case s.TopicsQueueSet && len(s.TopicsQueue) > 0:
		return StepDownloadNextTorrentFile
	default:
		return StepGetTopicsIntoQueue
	}
}
