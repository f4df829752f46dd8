// Package store persists the per-request context, state, and status that
// make track requests resumable across restarts.
package store

import (
	"context"
	"errors"

	"trackrequestd/internal/model"
)

// ErrObjectExists is returned by CreatePair when a record already exists
// for the given (user, request) pair.
var ErrObjectExists = errors.New("store: object already exists")

// ErrObjectNotFound is returned by the Load* methods when no record exists
// for the given (user, request) pair.
var ErrObjectNotFound = errors.New("store: object not found")

// Store is the durable persistence contract the Request Processor and
// Controller depend on. A context and a state always exist or are absent
// together: CreatePair and DeletePair create and remove both at once, and
// there are no methods that create or delete only one of them.
type Store interface {
	CreatePair(ctx context.Context, user model.UserId, req model.RequestId, tctx model.TrackRequestContext, state model.TrackRequestState) error
	UpdateState(ctx context.Context, user model.UserId, req model.RequestId, state model.TrackRequestState) error
	UpdateStatus(ctx context.Context, user model.UserId, req model.RequestId, status model.Status) error

	LoadState(ctx context.Context, user model.UserId, req model.RequestId) (*model.TrackRequestState, error)
	LoadContext(ctx context.Context, user model.UserId, req model.RequestId) (*model.TrackRequestContext, error)

	// DeletePair removes state and context together and schedules the
	// status entry for removal after the configured retention window
	// rather than deleting it immediately, so a caller polling
	// GetAllStatuses still observes the terminal status for a while.
	DeletePair(ctx context.Context, user model.UserId, req model.RequestId) error

	GetAllStatuses(ctx context.Context, user model.UserId) (map[model.RequestId]model.Status, error)

	// GetAllTasks enumerates every (user, request) pair with a
	// non-terminal state, for startup recovery.
	GetAllTasks(ctx context.Context) ([]Task, error)

	// SweepExpiredStatuses deletes status entries whose retention window
	// has elapsed. Called periodically by cmd/worker's main loop.
	SweepExpiredStatuses(ctx context.Context) error

	Close() error
}

// Task identifies one non-terminal request awaiting a driver.
type Task struct {
	UserId    model.UserId
	RequestId model.RequestId
}
