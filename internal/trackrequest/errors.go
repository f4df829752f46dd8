package trackrequest

import "errors"

// Sentinel error kinds of the core. The processor itself never inspects
// transport-level status codes. The adapters do not classify their failures
// into these kinds: they return their own wrapped errors, none of them marks
// an error with retry.Permanent, so retry.Do retries every adapter error up
// to the policy's attempt budget, and an exhausted budget fails the request
// with the last adapter error as is.
var (
	// ErrAlreadyExists is returned by CreateRequest when the duplicate
	// metadata check (validate_metadata) finds a match already installed
	// in the target channel.
	ErrAlreadyExists = errors.New("track request: metadata already exists in channel")

	// ErrCandidatesExhausted means no usable topic remains for this
	// request; the request terminates Failed.
	ErrCandidatesExhausted = errors.New("track request: candidates exhausted")

	// ErrStateConflict flags an internal inconsistency surfaced by the
	// State Store (state present without context, or vice versa).
	ErrStateConflict = errors.New("track request: state conflict")

	// ErrAdapterPermanent names a non-retryable failure from an external
	// collaborator. No code path in this module returns it.
	ErrAdapterPermanent = errors.New("track request: adapter permanent failure")

	// ErrAdapterTransient names a retryable failure from an external
	// collaborator. No code path in this module returns it, and an
	// exhausted retry budget is not rewrapped as ErrAdapterPermanent.
	ErrAdapterTransient = errors.New("track request: adapter transient failure")

	// ErrCancelled names the case where the request's state vanished
	// mid-flight. ProcessRequest does not return it: it logs the
	// cancellation and returns nil.
	ErrCancelled = errors.New("track request: cancelled")

	// ErrUnknownTorrent is returned (wrapped) by a TorrentClient when asked
	// about a model.TorrentId it has no handle for, which is expected right
	// after a process restart for any request parked at or past Download:
	// the driver re-adds the torrent from the persisted torrent data and
	// retries.
	ErrUnknownTorrent = errors.New("track request: unknown torrent handle")
)
