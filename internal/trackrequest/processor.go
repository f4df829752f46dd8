// Package trackrequest implements the Track Request Processor: the
// resumable per-request state machine that is this repository's core.
package trackrequest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"trackrequestd/internal/model"
	"trackrequestd/internal/retry"
	"trackrequestd/internal/store"
)

// audioExtensions is tried in order against a torrent's file list when
// picking the wanted file: each extension is checked against the whole list
// before the next one, so the first .mp3 file wins whenever the torrent has
// one. This order is not the ranking contract's format-marker order, which
// puts FLAC before MP3.
var audioExtensions = []string{".mp3", ".flac", ".m4a", ".aac"}

// Config bundles the tunables a Processor needs beyond its adapters.
type Config struct {
	DownloadRoot string
	PollInterval time.Duration
	Retry        retry.Policy
}

// Processor drives requests through CreateRequest/ProcessRequest; one
// Processor is shared by every driver goroutine. It holds no per-request
// state itself: each ProcessRequest loop iteration loads the request's
// model.TrackRequestState from the Store, mutates it in memory, and
// persists it via the Store before the next iteration.
type Processor struct {
	store    store.Store
	search   SearchProvider
	torrent  TorrentClient
	metadata MetadataService
	radio    RadioManager
	cfg      Config

	onFinish func(user model.UserId, channel model.RadioManagerChannelId)
}

// NewProcessor constructs a Processor from its five collaborators plus
// tunables, mirroring the dependency-injected-constructor shape used
// elsewhere in this lineage's orchestration types.
func NewProcessor(st store.Store, search SearchProvider, tc TorrentClient, meta MetadataService, radio RadioManager, cfg Config) *Processor {
	return &Processor{store: st, search: search, torrent: tc, metadata: meta, radio: radio, cfg: cfg}
}

// SetFinishHook registers a callback run synchronously every time a request
// reaches Finish, after cleanup and before this driver's loop returns. The
// Controller uses this to fire the optional, off-critical-path suggestion
// call without the driver loop itself knowing anything about it; hook must
// not block, since it runs inline on the driver goroutine.
func (p *Processor) SetFinishHook(hook func(user model.UserId, channel model.RadioManagerChannelId)) {
	p.onFinish = hook
}

// CreateRequest persists a new request and returns its id.
func (p *Processor) CreateRequest(ctx context.Context, user model.UserId, metadata model.AudioMetadata, options model.RequestOptions, channel model.RadioManagerChannelId) (model.RequestId, error) {
	if options.ValidateMetadata {
		existing, err := p.radio.GetChannelTracks(ctx, channel)
		if err != nil {
			return "", fmt.Errorf("create request: checking channel tracks: %w", err)
		}
		for _, track := range existing {
			if track.Equal(metadata) {
				return "", ErrAlreadyExists
			}
		}
	}

	req := model.RequestId(uuid.New().String())
	tctx := model.TrackRequestContext{
		Metadata:        metadata,
		TargetChannelId: channel,
		Options:         options,
		CreatedAt:       time.Now().UTC(),
	}
	state := *model.NewTrackRequestState()

	if err := p.store.CreatePair(ctx, user, req, tctx, state); err != nil {
		return "", fmt.Errorf("create request: persisting pair: %w", err)
	}
	return req, nil
}

// ProcessRequest is the driver loop. It runs until the request reaches a
// terminal step, is cancelled (state vanishes), or ctx is done.
func (p *Processor) ProcessRequest(ctx context.Context, user model.UserId, req model.RequestId) error {
	firstTransition := true

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		state, err := p.store.LoadState(ctx, user, req)
		if err == store.ErrObjectNotFound {
			slog.Info("track request cancelled mid-flight", "user", user, "request", req)
			return nil
		}
		if err != nil {
			return fmt.Errorf("process request: load state: %w", err)
		}
		tctx, err := p.store.LoadContext(ctx, user, req)
		if err == store.ErrObjectNotFound {
			slog.Info("track request cancelled mid-flight", "user", user, "request", req)
			return nil
		}
		if err != nil {
			return fmt.Errorf("process request: load context: %w", err)
		}

		step := DeriveStep(state)

		if step == StepFinish {
			p.cleanup(ctx, user, req, *state)
			if err := p.store.UpdateStatus(ctx, user, req, model.StatusFinished); err != nil {
				slog.Error("process request: update status to finished", "error", err)
			}
			if err := p.store.DeletePair(ctx, user, req); err != nil {
				slog.Error("process request: delete pair on finish", "error", err)
			}
			if p.onFinish != nil {
				p.onFinish(user, tctx.TargetChannelId)
			}
			return nil
		}

		outcome, err := p.runStep(ctx, user, step, tctx, state)
		if err != nil {
			p.fail(ctx, user, req, *state, err)
			return err
		}

		// Persist unconditionally: a poll that doesn't yet advance the step
		// can still have rebuilt the torrent handle in place (see
		// handleCheckDownloadStatus), and that mutation must survive the
		// next load or it is silently redone on every subsequent poll.
		if err := p.store.UpdateState(ctx, user, req, *state); err != nil {
			return fmt.Errorf("process request: persist state: %w", err)
		}

		switch outcome {
		case outcomeAdvance:
			if firstTransition {
				if err := p.store.UpdateStatus(ctx, user, req, model.StatusProcessing); err != nil {
					slog.Error("process request: update status to processing", "error", err)
				}
				firstTransition = false
			}
		case outcomePollAgain:
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.cfg.PollInterval):
			}
		}
	}
}

type stepOutcome int

const (
	outcomeAdvance stepOutcome = iota
	outcomePollAgain
)

// runStep executes exactly one handler for the derived step, mutating state
// in place. A candidate-exhaustion within a handler is not an error: the
// handler itself mutates tried_topics/topics_queue and returns
// outcomeAdvance so the driver loops back to a fresh DeriveStep.
func (p *Processor) runStep(ctx context.Context, user model.UserId, step Step, tctx *model.TrackRequestContext, state *model.TrackRequestState) (stepOutcome, error) {
	switch step {
	case StepGetTopicsIntoQueue:
		return outcomeAdvance, p.handleGetTopicsIntoQueue(ctx, tctx, state)
	case StepDownloadNextTorrentFile:
		return outcomeAdvance, p.handleDownloadNextTorrentFile(ctx, state)
	case StepDownload:
		return outcomeAdvance, p.handleDownload(ctx, state)
	case StepCheckDownloadStatus:
		return p.handleCheckDownloadStatus(ctx, state)
	case StepUploadToRadioManager:
		return outcomeAdvance, p.handleUploadToRadioManager(ctx, user, tctx, state)
	case StepAddToRadioManagerChannel:
		return outcomeAdvance, p.handleAddToRadioManagerChannel(ctx, user, tctx, state)
	default:
		return outcomeAdvance, fmt.Errorf("process request: unknown step %q", step)
	}
}

// handleGetTopicsIntoQueue searches for fresh candidates and loads the
// queue, failing the request once the search yields nothing untried.
func (p *Processor) handleGetTopicsIntoQueue(ctx context.Context, tctx *model.TrackRequestContext, state *model.TrackRequestState) error {
	query := fmt.Sprintf("%s - %s", tctx.Metadata.Artist, tctx.Metadata.Album)

	var candidates []model.TopicData
	err := retry.Do(ctx, p.cfg.Retry, func() error {
		var callErr error
		candidates, callErr = p.search.FindAll(ctx, query)
		return callErr
	})
	if err != nil {
		return fmt.Errorf("get topics into queue: %w", err)
	}

	filtered := make([]model.TopicData, 0, len(candidates))
	for _, c := range candidates {
		if _, tried := state.TriedTopics[c.TopicId]; tried {
			continue
		}
		filtered = append(filtered, c)
	}

	if len(filtered) == 0 {
		return ErrCandidatesExhausted
	}

	state.TopicsQueue = filtered
	state.TopicsQueueSet = true
	return nil
}

// handleDownloadNextTorrentFile fetches the .torrent file for the queue
// head, rotating to the next candidate on a permanent fetch failure.
func (p *Processor) handleDownloadNextTorrentFile(ctx context.Context, state *model.TrackRequestState) error {
	head := state.TopicsQueue[0]

	var data []byte
	err := retry.Do(ctx, p.cfg.Retry, func() error {
		var callErr error
		data, callErr = p.search.DownloadTorrent(ctx, head.DownloadId)
		return callErr
	})
	if err != nil {
		// Permanent failure for this candidate: consume it and loop.
		p.consumeHead(state)
		return nil
	}

	state.CurrentTorrentData = data
	return nil
}

// handleDownload adds the torrent, inspects its file list, and selects the
// one audio file worth fetching, rotating to the next candidate if none of
// its files look like audio.
func (p *Processor) handleDownload(ctx context.Context, state *model.TrackRequestState) error {
	torrentId, found, err := p.addTorrentAndSelectAudioFile(ctx, state.CurrentTorrentData)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	if !found {
		p.consumeHead(state)
		state.CurrentTorrentData = nil
		if err := p.torrent.DeleteTorrent(ctx, torrentId, true); err != nil {
			slog.Warn("download: remove unusable torrent", "error", err)
		}
		return nil
	}

	state.CurrentTorrentId = &torrentId
	return nil
}

// addTorrentAndSelectAudioFile adds data to the torrent client, inspects the
// resulting file list for the one file worth fetching, and selects it.
// found is false when none of the torrent's files look like audio, in which
// case the caller owns deciding what happens to the (still added) torrent.
func (p *Processor) addTorrentAndSelectAudioFile(ctx context.Context, data []byte) (model.TorrentId, bool, error) {
	var torrentId model.TorrentId
	err := retry.Do(ctx, p.cfg.Retry, func() error {
		var callErr error
		torrentId, callErr = p.torrent.AddTorrent(ctx, data)
		return callErr
	})
	if err != nil {
		return 0, false, fmt.Errorf("add torrent: %w", err)
	}

	var snapshot model.TorrentSnapshot
	err = retry.Do(ctx, p.cfg.Retry, func() error {
		var callErr error
		snapshot, callErr = p.torrent.GetTorrent(ctx, torrentId)
		return callErr
	})
	if err != nil {
		return 0, false, fmt.Errorf("snapshot torrent: %w", err)
	}

	fileIndex, _, ok := pickAudioFile(snapshot.Files)
	if !ok {
		return torrentId, false, nil
	}

	if err := retry.Do(ctx, p.cfg.Retry, func() error {
		return p.torrent.SelectFile(ctx, torrentId, fileIndex)
	}); err != nil {
		return 0, false, fmt.Errorf("select file: %w", err)
	}

	return torrentId, true, nil
}

// rebuildTorrentHandle re-adds state.CurrentTorrentData to the torrent
// client and points state at the new handle, for a persisted
// current_torrent_id the client no longer recognizes after a restart. The
// torrent's file list is assumed unchanged from the original Download step,
// so the same audio-file selection logic applies.
func (p *Processor) rebuildTorrentHandle(ctx context.Context, state *model.TrackRequestState) error {
	if state.CurrentTorrentData == nil {
		return fmt.Errorf("rebuild torrent handle: no torrent data persisted to re-add")
	}

	torrentId, found, err := p.addTorrentAndSelectAudioFile(ctx, state.CurrentTorrentData)
	if err != nil {
		return fmt.Errorf("rebuild torrent handle: %w", err)
	}
	if !found {
		return fmt.Errorf("rebuild torrent handle: %w", ErrStateConflict)
	}

	state.CurrentTorrentId = &torrentId
	return nil
}

// pickAudioFile returns the index and path of the first file matching
// audioExtensions, tried in order.
func pickAudioFile(files []string) (int, string, bool) {
	for _, ext := range audioExtensions {
		for i, f := range files {
			if strings.HasSuffix(strings.ToLower(f), ext) {
				return i, f, true
			}
		}
	}
	return 0, "", false
}

// handleCheckDownloadStatus polls the torrent client and records the
// downloaded file's path once the transfer completes. If the torrent
// client doesn't recognize the persisted handle — expected right after a
// restart, since the embedded engine's state lives only in memory — it is
// re-added from the persisted torrent data before polling continues.
func (p *Processor) handleCheckDownloadStatus(ctx context.Context, state *model.TrackRequestState) (stepOutcome, error) {
	var snapshot model.TorrentSnapshot
	err := retry.Do(ctx, p.cfg.Retry, func() error {
		var callErr error
		snapshot, callErr = p.torrent.GetTorrent(ctx, *state.CurrentTorrentId)
		return callErr
	})
	if errors.Is(err, ErrUnknownTorrent) {
		if rebuildErr := p.rebuildTorrentHandle(ctx, state); rebuildErr != nil {
			return outcomeAdvance, fmt.Errorf("check download status: %w", rebuildErr)
		}
		err = retry.Do(ctx, p.cfg.Retry, func() error {
			var callErr error
			snapshot, callErr = p.torrent.GetTorrent(ctx, *state.CurrentTorrentId)
			return callErr
		})
	}
	if err != nil {
		return outcomeAdvance, fmt.Errorf("check download status: %w", err)
	}

	if snapshot.Status != model.TorrentComplete {
		return outcomePollAgain, nil
	}

	_, path, ok := pickAudioFile(snapshot.Files)
	if !ok {
		return outcomeAdvance, fmt.Errorf("check download status: %w", ErrStateConflict)
	}

	full := fmt.Sprintf("%s/%s", p.cfg.DownloadRoot, path)
	state.PathToDownloadedFile = &full
	return outcomeAdvance, nil
}

// handleUploadToRadioManager optionally validates the downloaded file's
// tags against the requested metadata before uploading it.
func (p *Processor) handleUploadToRadioManager(ctx context.Context, user model.UserId, tctx *model.TrackRequestContext, state *model.TrackRequestState) error {
	if tctx.Options.ValidateMetadata {
		var actual *model.AudioMetadata
		err := retry.Do(ctx, p.cfg.Retry, func() error {
			var callErr error
			actual, callErr = p.metadata.GetAudioMetadata(ctx, *state.PathToDownloadedFile)
			return callErr
		})
		if err != nil {
			return fmt.Errorf("upload to radio manager: read metadata: %w", err)
		}
		if actual == nil || !actual.Equal(tctx.Metadata) {
			p.rejectCandidate(ctx, state)
			return nil
		}
	}

	var trackId model.RadioManagerTrackId
	err := retry.Do(ctx, p.cfg.Retry, func() error {
		var callErr error
		trackId, callErr = p.radio.UploadAudioTrack(ctx, user, *state.PathToDownloadedFile)
		return callErr
	})
	if err != nil {
		return fmt.Errorf("upload to radio manager: %w", err)
	}

	state.RadioManagerTrackId = &trackId
	return nil
}

// handleAddToRadioManagerChannel links the uploaded track into the
// requested channel's playlist.
func (p *Processor) handleAddToRadioManagerChannel(ctx context.Context, user model.UserId, tctx *model.TrackRequestContext, state *model.TrackRequestState) error {
	var linkId model.RadioManagerLinkId
	err := retry.Do(ctx, p.cfg.Retry, func() error {
		var callErr error
		linkId, callErr = p.radio.AddTrackToChannelPlaylist(ctx, user, *state.RadioManagerTrackId, tctx.TargetChannelId)
		return callErr
	})
	if err != nil {
		return fmt.Errorf("add to radio manager channel: %w", err)
	}

	state.RadioManagerLinkId = &linkId
	return nil
}

// consumeHead marks the current queue head as tried, drops it, and unsets
// the queue entirely once it runs dry, forcing exactly one re-search on the
// next tick.
func (p *Processor) consumeHead(state *model.TrackRequestState) {
	head := state.TopicsQueue[0]
	state.TriedTopics[head.TopicId] = struct{}{}
	state.TopicsQueue = state.TopicsQueue[1:]
	if len(state.TopicsQueue) == 0 {
		state.TopicsQueue = nil
		state.TopicsQueueSet = false
	}
}

// rejectCandidate implements the candidate-rejection bookkeeping shared by
// a metadata mismatch: pop the head, add to tried_topics, unset every
// downstream field, and best-effort remove the torrent with its data.
func (p *Processor) rejectCandidate(ctx context.Context, state *model.TrackRequestState) {
	if state.CurrentTorrentId != nil {
		if err := p.torrent.DeleteTorrent(ctx, *state.CurrentTorrentId, true); err != nil {
			slog.Warn("reject candidate: remove torrent", "error", err)
		}
	}
	p.consumeHead(state)
	state.CurrentTorrentData = nil
	state.CurrentTorrentId = nil
	state.PathToDownloadedFile = nil
}

// cleanup runs on both Finished and Failed.
func (p *Processor) cleanup(ctx context.Context, user model.UserId, req model.RequestId, state model.TrackRequestState) {
	if state.CurrentTorrentId != nil {
		if err := p.torrent.DeleteTorrent(ctx, *state.CurrentTorrentId, true); err != nil {
			slog.Warn("cleanup: remove torrent", "user", user, "request", req, "error", err)
		}
	}
}

// fail moves a request to Failed and runs cleanup.
func (p *Processor) fail(ctx context.Context, user model.UserId, req model.RequestId, state model.TrackRequestState, cause error) {
	slog.Error("track request failed", "user", user, "request", req, "error", cause)
	p.cleanup(ctx, user, req, state)
	if err := p.store.UpdateStatus(ctx, user, req, model.StatusFailed); err != nil {
		slog.Error("fail: update status", "error", err)
	}
	if err := p.store.DeletePair(ctx, user, req); err != nil {
		slog.Error("fail: delete pair", "error", err)
	}
}
