// Package engine implements the docket workflow engine: durable instance
// state, the signal gateway, reminder scheduling, and side-effect execution
package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/kode4food/timebox"

	"github.com/docketry/docket/internal/activity"
	"github.com/docketry/docket/internal/archive"
	"github.com/docketry/docket/internal/config"
	"github.com/docketry/docket/internal/notify"
	"github.com/docketry/docket/internal/scheduler"
	"github.com/docketry/docket/internal/subject"
	"github.com/docketry/docket/internal/template"
	"github.com/docketry/docket/pkg/api"
	"github.com/docketry/docket/pkg/events"
	"github.com/docketry/docket/pkg/log"
)

type (
	// Engine is the core workflow instance engine
	Engine struct {
		ctx          context.Context
		cancel       context.CancelFunc
		consumer     EventConsumer
		registryExec *RegistryExecutor
		instanceExec *InstanceExecutor
		templates    *template.Store
		activities   *activity.Executor
		notifier     notify.Sender
		subjects     subject.Updater
		archiver     *archive.Archiver
		sched        *scheduler.Scheduler
		now          scheduler.Clock
		config       *config.Config
		wg           sync.WaitGroup
		actorMu      sync.Mutex
		instances    sync.Map // map[api.InstanceID]*instanceActor
		handler      timebox.Handler
	}

	// Deps carries the engine's pluggable collaborators. Zero fields are
	// filled with production defaults
	Deps struct {
		Templates *template.Store
		Notifier  notify.Sender
		Subjects  subject.Updater
		Archiver  *archive.Archiver
		Clock     scheduler.Clock
		MakeTimer scheduler.TimerConstructor
	}

	// EventConsumer consumes events from the event hub
	EventConsumer = *timebox.Consumer

	// RegistryExecutor manages registry state persistence
	RegistryExecutor = timebox.Executor[*api.RegistryState]

	// RegistryAggregator aggregates registry state from events
	RegistryAggregator = timebox.Aggregator[*api.RegistryState]

	// InstanceExecutor manages instance state persistence
	InstanceExecutor = timebox.Executor[*api.InstanceState]

	// InstanceAggregator aggregates instance state from events
	InstanceAggregator = timebox.Aggregator[*api.InstanceState]
)

var ErrShutdownTimeout = errors.New("shutdown timeout exceeded")

// New creates a new engine instance with the specified stores, event hub,
// collaborators, and configuration
func New(
	registry, instance *timebox.Store, hub *timebox.EventHub, deps *Deps,
	cfg *config.Config,
) *Engine {
	if deps == nil {
		deps = &Deps{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		registryExec: timebox.NewExecutor(
			registry, events.NewRegistryState, events.RegistryAppliers,
		),
		instanceExec: timebox.NewExecutor(
			instance, events.NewInstanceState, events.InstanceAppliers,
		),
		templates:  deps.Templates,
		notifier:   deps.Notifier,
		subjects:   deps.Subjects,
		archiver:   deps.Archiver,
		now:        deps.Clock,
		activities: activity.NewExecutor(cfg.Activity),
		config:     cfg,
		ctx:        ctx,
		cancel:     cancel,
		consumer:   hub.NewConsumer(),
	}
	if e.templates == nil {
		e.templates = template.NewStore()
	}
	if e.notifier == nil {
		e.notifier = &notify.LogSender{}
	}
	if e.subjects == nil {
		e.subjects = &subject.NullUpdater{}
	}
	if e.now == nil {
		e.now = time.Now
	}
	makeTimer := deps.MakeTimer
	if makeTimer == nil {
		makeTimer = scheduler.NewTimer
	}
	e.sched = scheduler.New(e.now, makeTimer)
	e.handler = e.createEventHandler()
	return e
}

// Templates returns the engine's template catalog
func (e *Engine) Templates() *template.Store {
	return e.templates
}

// Start recovers in-flight instances and begins processing events
func (e *Engine) Start() {
	slog.Info("Engine starting")

	go e.sched.Run(e.ctx)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := e.RecoverInstances(ctx); err != nil {
		slog.Error("Failed to recover instances",
			log.Error(err))
	}

	go e.eventLoop()
}

// Stop gracefully shuts down the engine
func (e *Engine) Stop() error {
	e.cancel()
	defer e.consumer.Close()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		e.saveRegistrySnapshot()
		slog.Info("Engine stopped")
		return nil
	case <-time.After(e.config.ShutdownTimeout):
		return ErrShutdownTimeout
	}
}

func (e *Engine) createEventHandler() timebox.Handler {
	return events.MakeDispatcher(map[api.EventType]timebox.Handler{
		api.EventTypeInstanceStarted: timebox.MakeHandler(
			e.handleInstanceStarted),
		api.EventTypeInstanceCompleted: timebox.MakeHandler(
			e.handleInstanceCompleted),
		api.EventTypeInstanceCancelled: timebox.MakeHandler(
			e.handleInstanceCancelled),
		api.EventTypeInstanceFailed: timebox.MakeHandler(
			e.handleInstanceFailed),
		api.EventTypeInstancePaused: timebox.MakeHandler(
			e.handleInstancePaused),
		api.EventTypeInstanceResumed: timebox.MakeHandler(
			e.handleInstanceResumed),
		api.EventTypeStageTransitioned: timebox.MakeHandler(
			e.handleStageTransitioned),
	})
}

func (e *Engine) eventLoop() {
	for {
		select {
		case <-e.ctx.Done():
			return

		case event, ok := <-e.consumer.Receive():
			if !ok {
				return
			}
			e.routeEvent(event)
		}
	}
}

func (e *Engine) routeEvent(event *timebox.Event) {
	if err := e.handler(event); err != nil {
		slog.Error("Failed to handle instance lifecycle event",
			slog.String("event_type", string(event.Type)),
			log.Error(err))
	}

	if !events.IsInstanceEvent(event) {
		return
	}

	instanceID := api.InstanceID(event.AggregateID[1])
	e.acquireActor(instanceID).events <- event
}

func (e *Engine) saveRegistrySnapshot() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := e.registryExec.SaveSnapshot(ctx, events.RegistryKey); err != nil {
		slog.Error("Failed to save registry snapshot",
			log.Error(err))
		return
	}
	slog.Info("Registry snapshot saved")
}

func (e *Engine) handleInstanceStarted(
	_ *timebox.Event, data api.InstanceStartedEvent,
) error {
	return e.raiseRegistryEvent(context.Background(),
		api.EventTypeInstanceActivated,
		api.InstanceActivatedEvent{
			Info: &api.ActiveInstanceInfo{
				InstanceID: data.InstanceID,
				SubjectID:  data.SubjectID,
				TemplateID: data.Template.ID,
				StartedAt:  e.now(),
				LastActive: e.now(),
			},
		})
}

func (e *Engine) handleInstanceCompleted(
	_ *timebox.Event, data api.InstanceCompletedEvent,
) error {
	return e.deactivateInstance(data.InstanceID)
}

func (e *Engine) handleInstanceCancelled(
	_ *timebox.Event, data api.InstanceCancelledEvent,
) error {
	return e.deactivateInstance(data.InstanceID)
}

func (e *Engine) handleInstanceFailed(
	ev *timebox.Event, _ api.InstanceFailedEvent,
) error {
	return e.deactivateInstance(api.InstanceID(ev.AggregateID[1]))
}

func (e *Engine) handleInstancePaused(
	_ *timebox.Event, data api.InstancePausedEvent,
) error {
	return e.refreshDigest(data.InstanceID)
}

func (e *Engine) handleInstanceResumed(
	_ *timebox.Event, data api.InstanceResumedEvent,
) error {
	return e.refreshDigest(data.InstanceID)
}

func (e *Engine) handleStageTransitioned(
	_ *timebox.Event, data api.StageTransitionedEvent,
) error {
	return e.refreshDigest(data.InstanceID)
}

func (e *Engine) deactivateInstance(id api.InstanceID) error {
	ctx := context.Background()
	if err := e.refreshDigest(id); err != nil {
		return err
	}
	e.activities.Forget(id)
	return e.raiseRegistryEvent(ctx,
		api.EventTypeInstanceDeactivated,
		api.InstanceDeactivatedEvent{InstanceID: id})
}

func (e *Engine) refreshDigest(id api.InstanceID) error {
	ctx := context.Background()
	st, err := e.GetInstanceState(ctx, id)
	if err != nil {
		return err
	}
	return e.raiseRegistryEvent(ctx,
		api.EventTypeInstanceDigestUpdated,
		api.InstanceDigestUpdatedEvent{Digest: st.Digest()})
}

func (e *Engine) raiseRegistryEvent(
	ctx context.Context, eventType api.EventType, data any,
) error {
	cmd := func(_ *api.RegistryState, ag *RegistryAggregator) error {
		return events.Raise(ag, eventType, data)
	}
	_, err := e.registryExec.Exec(ctx, events.RegistryKey, cmd)
	return err
}

// GetRegistryState retrieves the current registry state
func (e *Engine) GetRegistryState(
	ctx context.Context,
) (*api.RegistryState, error) {
	return e.registryExec.Exec(ctx, events.RegistryKey,
		func(_ *api.RegistryState, _ *RegistryAggregator) error {
			return nil
		},
	)
}

// GetRegistryStateSeq retrieves registry state and its next event sequence
func (e *Engine) GetRegistryStateSeq(
	ctx context.Context,
) (*api.RegistryState, int64, error) {
	var seq int64
	state, err := e.registryExec.Exec(ctx, events.RegistryKey,
		func(_ *api.RegistryState, ag *RegistryAggregator) error {
			seq = ag.NextSequence()
			return nil
		},
	)
	return state, seq, err
}
