package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"trackrequestd/internal/model"
)

// Redis key conventions mirror the per-entity key-builder style used
// elsewhere for durable job records: one JSON string key per state/context,
// one per-user hash for statuses, one sorted set for status-retention sweeps.
const (
	statePrefix   = "trackreq:state:"
	contextPrefix = "trackreq:ctx:"
	statusPrefix  = "trackreq:status:" // + user id, a hash of req id -> status
	tasksSetKey   = "trackreq:tasks"   // set of "user:req" for non-terminal requests
	statusSweep   = "trackreq:status-sweep"
)

type redisStore struct {
	client    *redis.Client
	retention time.Duration
}

// NewRedisStore connects to addr and verifies the connection with a Ping
// before returning, so a misconfigured address fails fast at startup rather
// than on the first request.
func NewRedisStore(ctx context.Context, addr string, retention time.Duration) (Store, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("redis store: connect to %s: %w", addr, err)
	}
	slog.Info("redis store connected", "addr", addr)
	return &redisStore{client: client, retention: retention}, nil
}

func stateKey(user model.UserId, req model.RequestId) string {
	return fmt.Sprintf("%s%d:%s", statePrefix, int64(user), req)
}

func contextKey(user model.UserId, req model.RequestId) string {
	return fmt.Sprintf("%s%d:%s", contextPrefix, int64(user), req)
}

func statusHashKey(user model.UserId) string {
	return fmt.Sprintf("%s%d", statusPrefix, int64(user))
}

func taskMember(user model.UserId, req model.RequestId) string {
	return fmt.Sprintf("%d:%s", int64(user), req)
}

func (r *redisStore) CreatePair(ctx context.Context, user model.UserId, req model.RequestId, tctx model.TrackRequestContext, state model.TrackRequestState) error {
	exists, err := r.client.Exists(ctx, stateKey(user, req), contextKey(user, req)).Result()
	if err != nil {
		return fmt.Errorf("redis store: check existing pair: %w", err)
	}
	if exists > 0 {
		return ErrObjectExists
	}

	stateJSON, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("redis store: marshal state: %w", err)
	}
	ctxJSON, err := json.Marshal(tctx)
	if err != nil {
		return fmt.Errorf("redis store: marshal context: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, stateKey(user, req), stateJSON, 0)
	pipe.Set(ctx, contextKey(user, req), ctxJSON, 0)
	pipe.HSet(ctx, statusHashKey(user), req.String(), string(model.StatusPending))
	pipe.SAdd(ctx, tasksSetKey, taskMember(user, req))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis store: create pair: %w", err)
	}
	return nil
}

func (r *redisStore) UpdateState(ctx context.Context, user model.UserId, req model.RequestId, state model.TrackRequestState) error {
	stateJSON, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("redis store: marshal state: %w", err)
	}
	n, err := r.client.Exists(ctx, stateKey(user, req)).Result()
	if err != nil {
		return fmt.Errorf("redis store: check state: %w", err)
	}
	if n == 0 {
		return ErrObjectNotFound
	}
	if err := r.client.Set(ctx, stateKey(user, req), stateJSON, 0).Err(); err != nil {
		return fmt.Errorf("redis store: update state: %w", err)
	}
	return nil
}

func (r *redisStore) UpdateStatus(ctx context.Context, user model.UserId, req model.RequestId, status model.Status) error {
	if err := r.client.HSet(ctx, statusHashKey(user), req.String(), string(status)).Err(); err != nil {
		return fmt.Errorf("redis store: update status: %w", err)
	}
	return nil
}

func (r *redisStore) LoadState(ctx context.Context, user model.UserId, req model.RequestId) (*model.TrackRequestState, error) {
	raw, err := r.client.Get(ctx, stateKey(user, req)).Bytes()
	if err == redis.Nil {
		return nil, ErrObjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis store: load state: %w", err)
	}
	var state model.TrackRequestState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("redis store: unmarshal state: %w", err)
	}
	return &state, nil
}

func (r *redisStore) LoadContext(ctx context.Context, user model.UserId, req model.RequestId) (*model.TrackRequestContext, error) {
	raw, err := r.client.Get(ctx, contextKey(user, req)).Bytes()
	if err == redis.Nil {
		return nil, ErrObjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis store: load context: %w", err)
	}
	var tctx model.TrackRequestContext
	if err := json.Unmarshal(raw, &tctx); err != nil {
		return nil, fmt.Errorf("redis store: unmarshal context: %w", err)
	}
	return &tctx, nil
}

func (r *redisStore) DeletePair(ctx context.Context, user model.UserId, req model.RequestId) error {
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, stateKey(user, req), contextKey(user, req))
	pipe.SRem(ctx, tasksSetKey, taskMember(user, req))
	pipe.ZAdd(ctx, statusSweep, redis.Z{
		Score:  float64(time.Now().Add(r.retention).Unix()),
		Member: taskMember(user, req),
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis store: delete pair: %w", err)
	}
	return nil
}

func (r *redisStore) GetAllStatuses(ctx context.Context, user model.UserId) (map[model.RequestId]model.Status, error) {
	raw, err := r.client.HGetAll(ctx, statusHashKey(user)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis store: get all statuses: %w", err)
	}
	out := make(map[model.RequestId]model.Status, len(raw))
	for req, status := range raw {
		out[model.RequestId(req)] = model.Status(status)
	}
	return out, nil
}

func (r *redisStore) GetAllTasks(ctx context.Context) ([]Task, error) {
	members, err := r.client.SMembers(ctx, tasksSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redis store: get all tasks: %w", err)
	}
	out := make([]Task, 0, len(members))
	for _, member := range members {
		var userID int64
		var req string
		if _, err := fmt.Sscanf(member, "%d:%s", &userID, &req); err != nil {
			slog.Warn("redis store: malformed task member, skipping", "member", member, "error", err)
			continue
		}
		out = append(out, Task{UserId: model.UserId(userID), RequestId: model.RequestId(req)})
	}
	return out, nil
}

func (r *redisStore) SweepExpiredStatuses(ctx context.Context) error {
	now := float64(time.Now().Unix())
	expired, err := r.client.ZRangeByScore(ctx, statusSweep, &redis.ZRangeBy{Min: "-inf", Max: fmt.Sprintf("%f", now)}).Result()
	if err != nil {
		return fmt.Errorf("redis store: sweep query: %w", err)
	}
	if len(expired) == 0 {
		return nil
	}

	pipe := r.client.TxPipeline()
	for _, member := range expired {
		var userID int64
		var req string
		if _, err := fmt.Sscanf(member, "%d:%s", &userID, &req); err != nil {
			continue
		}
		pipe.HDel(ctx, statusHashKey(model.UserId(userID)), req)
		pipe.ZRem(ctx, statusSweep, member)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis store: sweep exec: %w", err)
	}
	return nil
}

func (r *redisStore) Close() error {
	return r.client.Close()
}
