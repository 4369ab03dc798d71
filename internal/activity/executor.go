package activity

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/docketry/docket/pkg/api"
	"github.com/docketry/docket/pkg/log"
)

type (
	// Func performs a side effect on behalf of a workflow instance
	Func func(context.Context) error

	// Request describes an activity execution. Critical activities must
	// succeed for the triggering transition to be considered healthy, while
	// non-critical ones merely degrade on exhaustion
	Request struct {
		Fn         Func
		Name       string
		InstanceID api.InstanceID
		EventType  api.EventType
		Sequence   int64
		Critical   bool
	}

	// Result reports how an activity execution concluded
	Result struct {
		Err      error
		Outcome  api.ActivityOutcome
		Attempts int
		Deduped  bool
	}

	// Executor runs activities under a retry policy, deduplicating by name
	// and triggering event. One event may fan out to several activities, so
	// the name keeps them from shadowing each other
	Executor struct {
		policy RetryPolicy
		sleep  func(context.Context, time.Duration) error
		mu     sync.Mutex
		seen   map[dedupeKey]struct{}
	}

	dedupeKey struct {
		name       string
		instanceID api.InstanceID
		eventType  api.EventType
		sequence   int64
	}
)

// NewExecutor creates an executor with the provided retry policy
func NewExecutor(policy RetryPolicy) *Executor {
	return &Executor{
		policy: policy.WithDefaults(),
		sleep:  sleepContext,
		seen:   map[dedupeKey]struct{}{},
	}
}

// Run executes the activity, retrying per policy. A request whose triggering
// event was already processed is skipped without running the function
func (e *Executor) Run(ctx context.Context, req *Request) *Result {
	if !e.markSeen(req) {
		return &Result{Outcome: api.ActivitySucceeded, Deduped: true}
	}

	var lastErr error
	attempt := 0
	for {
		lastErr = req.Fn(ctx)
		attempt++
		if lastErr == nil {
			return &Result{
				Outcome:  api.ActivitySucceeded,
				Attempts: attempt,
			}
		}
		if !e.policy.ShouldRetry(attempt-1, lastErr) {
			break
		}
		slog.Debug("Activity attempt failed, retrying",
			log.Activity(req.Name),
			log.InstanceID(req.InstanceID),
			slog.Int("attempt", attempt),
			log.Error(lastErr))
		if err := e.sleep(ctx, e.policy.NextDelay(attempt-1)); err != nil {
			lastErr = err
			break
		}
	}

	outcome := api.ActivityDegraded
	if req.Critical {
		outcome = api.ActivityFailed
	}
	slog.Warn("Activity exhausted retries",
		log.Activity(req.Name),
		log.InstanceID(req.InstanceID),
		slog.Int("attempts", attempt),
		slog.String("outcome", string(outcome)),
		log.Error(lastErr))
	return &Result{
		Outcome:  outcome,
		Attempts: attempt,
		Err:      lastErr,
	}
}

// Forget clears dedupe records for an instance, freeing memory once the
// instance reaches a terminal state
func (e *Executor) Forget(id api.InstanceID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for key := range e.seen {
		if key.instanceID == id {
			delete(e.seen, key)
		}
	}
}

func (e *Executor) markSeen(req *Request) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	key := dedupeKey{
		name:       req.Name,
		instanceID: req.InstanceID,
		eventType:  req.EventType,
		sequence:   req.Sequence,
	}
	if _, ok := e.seen[key]; ok {
		return false
	}
	e.seen[key] = struct{}{}
	return true
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
