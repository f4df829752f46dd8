// Package controller implements the Controller/Supervisor: it creates new
// requests, rehydrates live tasks at startup, and spawns exactly one driver
// goroutine per request, enforcing that a request is never driven twice in
// the same process.
package controller

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"trackrequestd/internal/model"
	"trackrequestd/internal/store"
	"trackrequestd/internal/trackrequest"
)

// suggestionTimeout bounds the optional post-Finish suggestion call so a
// slow or hanging chat-completion endpoint can never stall Shutdown.
const suggestionTimeout = 30 * time.Second

// Controller owns the set of in-flight request goroutines.
type Controller struct {
	store     store.Store
	processor *trackrequest.Processor

	mu      sync.Mutex
	running map[taskKey]struct{}
	wg      sync.WaitGroup

	driverCtx    context.Context
	cancelDriver context.CancelFunc
}

type taskKey struct {
	user model.UserId
	req  model.RequestId
}

// New constructs a Controller over an already-wired Processor. Drivers run
// on a context derived from the process root context so that Shutdown's
// cancellation reaches every in-flight adapter call.
func New(ctx context.Context, st store.Store, processor *trackrequest.Processor) *Controller {
	driverCtx, cancel := context.WithCancel(ctx)
	return &Controller{
		store:        st,
		processor:    processor,
		running:      make(map[taskKey]struct{}),
		driverCtx:    driverCtx,
		cancelDriver: cancel,
	}
}

// CreateRequest persists a new request and spawns its driver.
func (c *Controller) CreateRequest(ctx context.Context, user model.UserId, metadata model.AudioMetadata, options model.RequestOptions, channel model.RadioManagerChannelId) (model.RequestId, error) {
	req, err := c.processor.CreateRequest(ctx, user, metadata, options, channel)
	if err != nil {
		return "", err
	}
	c.spawn(user, req)
	return req, nil
}

// RecoverStartupTasks lists every non-terminal task from the State Store
// and spawns a driver for each, so a restart resumes exactly where the
// process left off.
func (c *Controller) RecoverStartupTasks(ctx context.Context) error {
	tasks, err := c.store.GetAllTasks(ctx)
	if err != nil {
		return fmt.Errorf("controller: list tasks for recovery: %w", err)
	}
	slog.Info("recovering in-flight track requests", "count", len(tasks))
	for _, t := range tasks {
		c.spawn(t.UserId, t.RequestId)
	}
	return nil
}

// spawn starts a driver goroutine for (user, req) unless one is already
// running in this process.
func (c *Controller) spawn(user model.UserId, req model.RequestId) {
	k := taskKey{user, req}

	c.mu.Lock()
	if _, already := c.running[k]; already {
		c.mu.Unlock()
		slog.Warn("driver already running for request, refusing to spawn twice", "user", user, "request", req)
		return
	}
	c.running[k] = struct{}{}
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer func() {
			c.mu.Lock()
			delete(c.running, k)
			c.mu.Unlock()
		}()

		// A driver runs on the controller's own context, not the caller's:
		// an in-flight request must not be abandoned mid-step just because
		// the request that spawned it returned. It only unwinds when
		// Shutdown cancels driverCtx.
		if err := c.processor.ProcessRequest(c.driverCtx, user, req); err != nil {
			slog.Error("driver exited with error", "user", user, "request", req, "error", err)
		}
	}()
}

// EnableSuggestions wires the optional, off-critical-path suggestion
// enrichment into every request's Finish transition: once a request
// finishes, gather its target channel's current tracks via radio and ask
// suggest for complementary additions, fire-and-forget. Failure is logged
// and otherwise ignored; it never affects a request's own outcome. Call
// this once, before RecoverStartupTasks or any CreateRequest.
func (c *Controller) EnableSuggestions(radio trackrequest.RadioManager, suggest trackrequest.SuggestionProvider) {
	c.processor.SetFinishHook(func(user model.UserId, channel model.RadioManagerChannelId) {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()

			ctx, cancel := context.WithTimeout(c.driverCtx, suggestionTimeout)
			defer cancel()

			tracks, err := radio.GetChannelTracks(ctx, channel)
			if err != nil {
				slog.Warn("suggestion: list channel tracks", "user", user, "channel", channel, "error", err)
				return
			}
			suggested, err := suggest.Suggest(ctx, tracks)
			if err != nil {
				slog.Warn("suggestion: fetch suggestions", "user", user, "channel", channel, "error", err)
				return
			}
			if len(suggested) > 0 {
				slog.Info("suggested additional tracks", "user", user, "channel", channel, "count", len(suggested))
			}
		}()
	})
}

// Shutdown cancels the drivers' shared context, then waits up to timeout
// for them to unwind and return, matching the grace window the process
// gives itself on SIGINT/SIGTERM.
func (c *Controller) Shutdown(timeout time.Duration) {
	c.cancelDriver()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		slog.Warn("shutdown grace period elapsed with drivers still running")
	}
}
