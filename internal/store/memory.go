package store

import (
	"context"
	"sync"
	"time"

	"trackrequestd/internal/model"
)

// memoryStore is an in-process Store backed by maps guarded by a mutex; it
// mirrors the Store contract exactly but keeps everything in process memory
// instead of talking to Redis or SQLite.
type memoryStore struct {
	mu              sync.Mutex
	states          map[key]model.TrackRequestState
	contexts        map[key]model.TrackRequestContext
	statuses        map[key]model.Status
	statusExpiresAt map[key]time.Time
	retention       time.Duration
	now             func() time.Time
}

type key struct {
	user model.UserId
	req  model.RequestId
}

// NewMemoryStore returns a Store with no persistence beyond process
// lifetime, suitable for tests.
func NewMemoryStore(retention time.Duration) Store {
	return &memoryStore{
		states:          make(map[key]model.TrackRequestState),
		contexts:        make(map[key]model.TrackRequestContext),
		statuses:        make(map[key]model.Status),
		statusExpiresAt: make(map[key]time.Time),
		retention:       retention,
		now:             time.Now,
	}
}

func (m *memoryStore) CreatePair(_ context.Context, user model.UserId, req model.RequestId, tctx model.TrackRequestContext, state model.TrackRequestState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key{user, req}
	if _, ok := m.states[k]; ok {
		return ErrObjectExists
	}
	if _, ok := m.contexts[k]; ok {
		return ErrObjectExists
	}
	m.states[k] = state
	m.contexts[k] = tctx
	m.statuses[k] = model.StatusPending
	delete(m.statusExpiresAt, k)
	return nil
}

func (m *memoryStore) UpdateState(_ context.Context, user model.UserId, req model.RequestId, state model.TrackRequestState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key{user, req}
	if _, ok := m.states[k]; !ok {
		return ErrObjectNotFound
	}
	m.states[k] = state
	return nil
}

func (m *memoryStore) UpdateStatus(_ context.Context, user model.UserId, req model.RequestId, status model.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses[key{user, req}] = status
	return nil
}

func (m *memoryStore) LoadState(_ context.Context, user model.UserId, req model.RequestId) (*model.TrackRequestState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.states[key{user, req}]
	if !ok {
		return nil, ErrObjectNotFound
	}
	return &s, nil
}

func (m *memoryStore) LoadContext(_ context.Context, user model.UserId, req model.RequestId) (*model.TrackRequestContext, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.contexts[key{user, req}]
	if !ok {
		return nil, ErrObjectNotFound
	}
	return &c, nil
}

func (m *memoryStore) DeletePair(_ context.Context, user model.UserId, req model.RequestId) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key{user, req}
	delete(m.states, k)
	delete(m.contexts, k)
	m.statusExpiresAt[k] = m.now().Add(m.retention)
	return nil
}

func (m *memoryStore) GetAllStatuses(_ context.Context, user model.UserId) (map[model.RequestId]model.Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[model.RequestId]model.Status)
	for k, status := range m.statuses {
		if k.user == user {
			out[k.req] = status
		}
	}
	return out, nil
}

func (m *memoryStore) GetAllTasks(_ context.Context) ([]Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Task
	for k := range m.states {
		out = append(out, Task{UserId: k.user, RequestId: k.req})
	}
	return out, nil
}

func (m *memoryStore) SweepExpiredStatuses(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for k, expires := range m.statusExpiresAt {
		if now.After(expires) {
			delete(m.statuses, k)
			delete(m.statusExpiresAt, k)
		}
	}
	return nil
}

func (m *memoryStore) Close() error { return nil }
