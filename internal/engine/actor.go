package engine

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/kode4food/timebox"

	"github.com/docketry/docket/pkg/api"
	"github.com/docketry/docket/pkg/log"
)

type (
	// instanceActor is the single writer for one instance. All mutating
	// commands, whether external signals or timer firings, funnel through
	// its request channel, and hub events for the instance are handled in
	// the same goroutine. The pending count tracks messages accepted but
	// not yet handled, so idle retirement never strands one
	instanceActor struct {
		*Engine
		instanceID   api.InstanceID
		requests     chan *actorRequest
		events       chan *timebox.Event
		eventHandler timebox.Handler
		pending      atomic.Int64
	}

	actorRequest struct {
		fn   func(context.Context) error
		done chan error
	}
)

const actorIdleTimeout = 100 * time.Millisecond

func newInstanceActor(e *Engine, id api.InstanceID) *instanceActor {
	ia := &instanceActor{
		Engine:     e,
		instanceID: id,
		requests:   make(chan *actorRequest, 100),
		events:     make(chan *timebox.Event, 100),
	}
	ia.eventHandler = ia.createEventHandler()
	return ia
}

// dispatch routes a mutating command through the instance's actor and waits
// for it to be applied
func (e *Engine) dispatch(
	ctx context.Context, id api.InstanceID, fn func(context.Context) error,
) error {
	req := &actorRequest{fn: fn, done: make(chan error, 1)}
	if err := e.enqueue(ctx, id, req); err != nil {
		return err
	}
	select {
	case err := <-req.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-e.ctx.Done():
		return e.ctx.Err()
	}
}

// dispatchAsync routes a command through the actor without waiting. Timer
// firings use this path so the scheduler loop never blocks on a busy actor
func (e *Engine) dispatchAsync(
	id api.InstanceID, fn func(context.Context) error,
) error {
	return e.enqueue(e.ctx, id, &actorRequest{fn: fn})
}

func (e *Engine) enqueue(
	ctx context.Context, id api.InstanceID, req *actorRequest,
) error {
	ia := e.acquireActor(id)
	select {
	case ia.requests <- req:
		return nil
	case <-ctx.Done():
		ia.pending.Add(-1)
		return ctx.Err()
	}
}

// acquireActor returns the registered actor for the instance, starting one
// when none is running. The pending count is raised under the registry lock
// so a retiring actor can never vanish between lookup and send
func (e *Engine) acquireActor(id api.InstanceID) *instanceActor {
	e.actorMu.Lock()
	defer e.actorMu.Unlock()
	if actor, ok := e.instances.Load(id); ok {
		ia := actor.(*instanceActor)
		ia.pending.Add(1)
		return ia
	}
	ia := newInstanceActor(e, id)
	ia.pending.Add(1)
	e.instances.Store(id, ia)
	e.wg.Add(1)
	go ia.run()
	return ia
}

// retire deregisters the actor if nothing is pending. A message already
// acquired but not yet buffered keeps the actor alive to serve it
func (ia *instanceActor) retire() bool {
	ia.actorMu.Lock()
	defer ia.actorMu.Unlock()
	if ia.pending.Load() > 0 {
		return false
	}
	ia.instances.Delete(ia.instanceID)
	return true
}

func (ia *instanceActor) run() {
	defer ia.wg.Done()

	idleTimer := time.NewTimer(actorIdleTimeout)
	defer idleTimer.Stop()

	resetIdle := func() {
		if !idleTimer.Stop() {
			select {
			case <-idleTimer.C:
			default:
			}
		}
		idleTimer.Reset(actorIdleTimeout)
	}

	for {
		select {
		case req := <-ia.requests:
			ia.handleRequest(req)
			resetIdle()

		case event := <-ia.events:
			ia.handleEvent(event)
			resetIdle()

		case <-idleTimer.C:
			select {
			case req := <-ia.requests:
				ia.handleRequest(req)
				idleTimer.Reset(actorIdleTimeout)
			case event := <-ia.events:
				ia.handleEvent(event)
				idleTimer.Reset(actorIdleTimeout)
			default:
				if ia.retire() {
					return
				}
				idleTimer.Reset(actorIdleTimeout)
			}

		case <-ia.ctx.Done():
			ia.drainRequests()
			return
		}
	}
}

func (ia *instanceActor) handleRequest(req *actorRequest) {
	defer ia.pending.Add(-1)
	err := req.fn(ia.ctx)
	if req.done != nil {
		req.done <- err
	} else if err != nil {
		slog.Error("Failed to apply instance command",
			log.InstanceID(ia.instanceID),
			log.Error(err))
	}
}

func (ia *instanceActor) drainRequests() {
	for {
		select {
		case req := <-ia.requests:
			ia.pending.Add(-1)
			if req.done != nil {
				req.done <- ia.ctx.Err()
			}
		default:
			return
		}
	}
}

func (ia *instanceActor) createEventHandler() timebox.Handler {
	return makeEffectsDispatcher(ia)
}

func (ia *instanceActor) handleEvent(event *timebox.Event) {
	defer ia.pending.Add(-1)
	if err := ia.eventHandler(event); err != nil {
		slog.Error("Failed to handle instance event",
			log.InstanceID(ia.instanceID),
			slog.String("event_type", string(event.Type)),
			log.Error(err))
	}
}
