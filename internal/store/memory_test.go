package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"trackrequestd/internal/model"
)

func TestMemoryStoreCreatePairRejectsDuplicate(t *testing.T) {
	st := NewMemoryStore(time.Minute)
	ctx := context.Background()
	user, req := model.UserId(1), model.RequestId("r1")

	if err := st.CreatePair(ctx, user, req, model.TrackRequestContext{}, model.TrackRequestState{}); err != nil {
		t.Fatalf("CreatePair() error = %v", err)
	}
	if err := st.CreatePair(ctx, user, req, model.TrackRequestContext{}, model.TrackRequestState{}); !errors.Is(err, ErrObjectExists) {
		t.Errorf("CreatePair() second call error = %v, want ErrObjectExists", err)
	}
}

func TestMemoryStoreLoadMissing(t *testing.T) {
	st := NewMemoryStore(time.Minute)
	ctx := context.Background()

	if _, err := st.LoadState(ctx, model.UserId(1), model.RequestId("missing")); !errors.Is(err, ErrObjectNotFound) {
		t.Errorf("LoadState() error = %v, want ErrObjectNotFound", err)
	}
	if _, err := st.LoadContext(ctx, model.UserId(1), model.RequestId("missing")); !errors.Is(err, ErrObjectNotFound) {
		t.Errorf("LoadContext() error = %v, want ErrObjectNotFound", err)
	}
}

func TestMemoryStoreUpdateStateRequiresExisting(t *testing.T) {
	st := NewMemoryStore(time.Minute)
	ctx := context.Background()

	err := st.UpdateState(ctx, model.UserId(1), model.RequestId("missing"), model.TrackRequestState{})
	if !errors.Is(err, ErrObjectNotFound) {
		t.Errorf("UpdateState() error = %v, want ErrObjectNotFound", err)
	}
}

func TestMemoryStoreDeletePairRetainsStatusUntilSwept(t *testing.T) {
	ms := &memoryStore{
		states:          make(map[key]model.TrackRequestState),
		contexts:        make(map[key]model.TrackRequestContext),
		statuses:        make(map[key]model.Status),
		statusExpiresAt: make(map[key]time.Time),
		retention:       time.Hour,
	}
	now := time.Now()
	ms.now = func() time.Time { return now }

	ctx := context.Background()
	user, req := model.UserId(1), model.RequestId("r1")

	if err := ms.CreatePair(ctx, user, req, model.TrackRequestContext{}, model.TrackRequestState{}); err != nil {
		t.Fatalf("CreatePair() error = %v", err)
	}
	if err := ms.UpdateStatus(ctx, user, req, model.StatusFinished); err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}
	if err := ms.DeletePair(ctx, user, req); err != nil {
		t.Fatalf("DeletePair() error = %v", err)
	}

	statuses, err := ms.GetAllStatuses(ctx, user)
	if err != nil {
		t.Fatalf("GetAllStatuses() error = %v", err)
	}
	if statuses[req] != model.StatusFinished {
		t.Errorf("expected status to remain visible immediately after delete, got %q", statuses[req])
	}

	// Advance past the retention window and sweep.
	ms.now = func() time.Time { return now.Add(2 * time.Hour) }
	if err := ms.SweepExpiredStatuses(ctx); err != nil {
		t.Fatalf("SweepExpiredStatuses() error = %v", err)
	}
	statuses, err = ms.GetAllStatuses(ctx, user)
	if err != nil {
		t.Fatalf("GetAllStatuses() error = %v", err)
	}
	if _, ok := statuses[req]; ok {
		t.Error("expected status to be gone after the retention window elapsed and a sweep ran")
	}
}

func TestMemoryStoreGetAllTasks(t *testing.T) {
	st := NewMemoryStore(time.Minute)
	ctx := context.Background()

	if err := st.CreatePair(ctx, model.UserId(1), model.RequestId("a"), model.TrackRequestContext{}, model.TrackRequestState{}); err != nil {
		t.Fatalf("CreatePair() error = %v", err)
	}
	if err := st.CreatePair(ctx, model.UserId(2), model.RequestId("b"), model.TrackRequestContext{}, model.TrackRequestState{}); err != nil {
		t.Fatalf("CreatePair() error = %v", err)
	}

	tasks, err := st.GetAllTasks(ctx)
	if err != nil {
		t.Fatalf("GetAllTasks() error = %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(tasks))
	}
}
