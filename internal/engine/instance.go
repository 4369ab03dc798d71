package engine

import (
	"context"
	"fmt"

	"github.com/docketry/docket/pkg/api"
	"github.com/docketry/docket/pkg/events"
	"github.com/docketry/docket/pkg/util"
)

type instanceTx struct {
	*Engine
	*InstanceAggregator
	instanceID api.InstanceID
}

// runStateTransitions defines the valid run-state transitions. Every state
// can escalate to failed; completed and cancelled admit nothing else, since
// only a critical post-termination activity can still go wrong
var runStateTransitions = util.StateTransitions[api.RunState]{
	api.RunActive: util.SetOf(
		api.RunPaused,
		api.RunCompleted,
		api.RunCancelled,
		api.RunFailed,
	),
	api.RunPaused: util.SetOf(
		api.RunActive,
		api.RunCancelled,
		api.RunFailed,
	),
	api.RunCompleted: util.SetOf(api.RunFailed),
	api.RunCancelled: util.SetOf(api.RunFailed),
	api.RunFailed:    {},
}

// instanceTx runs fn against the instance aggregate. Events raised within
// fn commit atomically: a validation failure after a raise discards every
// queued event
func (e *Engine) instanceTx(
	ctx context.Context, id api.InstanceID, fn func(*instanceTx) error,
) error {
	_, err := e.instanceExec.Exec(ctx, events.InstanceKey(id),
		func(_ *api.InstanceState, ag *InstanceAggregator) error {
			tx := &instanceTx{
				Engine:             e,
				InstanceAggregator: ag,
				instanceID:         id,
			}
			return fn(tx)
		},
	)
	return err
}

func (tx *instanceTx) raise(et api.EventType, data any) error {
	return events.Raise(tx.InstanceAggregator, et, data)
}

// state returns the instance state, failing if the instance never started
func (tx *instanceTx) state() (*api.InstanceState, error) {
	st := tx.Value()
	if st.ID == "" {
		return nil, fmt.Errorf("%w: %s",
			api.ErrInstanceNotFound, tx.instanceID)
	}
	return st, nil
}

// GetInstanceState retrieves the current state of an instance by its ID
func (e *Engine) GetInstanceState(
	ctx context.Context, id api.InstanceID,
) (*api.InstanceState, error) {
	state, err := e.instanceExec.Exec(ctx, events.InstanceKey(id),
		func(_ *api.InstanceState, _ *InstanceAggregator) error {
			return nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", api.ErrFatalState, err)
	}
	if state.ID == "" {
		return nil, fmt.Errorf("%w: %s", api.ErrInstanceNotFound, id)
	}
	return state, nil
}

// GetInstanceStateSeq retrieves instance state and its next event sequence
func (e *Engine) GetInstanceStateSeq(
	ctx context.Context, id api.InstanceID,
) (*api.InstanceState, int64, error) {
	var seq int64
	state, err := e.instanceExec.Exec(ctx, events.InstanceKey(id),
		func(_ *api.InstanceState, ag *InstanceAggregator) error {
			seq = ag.NextSequence()
			return nil
		},
	)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", api.ErrFatalState, err)
	}
	if state.ID == "" {
		return nil, 0, fmt.Errorf("%w: %s", api.ErrInstanceNotFound, id)
	}
	return state, seq, nil
}

// StartInstance creates a new instance from a registered template, binding
// the template's current definition to the instance for its lifetime
func (e *Engine) StartInstance(
	ctx context.Context, req *api.CreateInstanceRequest,
) (api.InstanceID, error) {
	if req.TemplateID == "" || req.SubjectID == "" || req.Actor == "" {
		return "", fmt.Errorf(
			"%w: template_id, subject_id and actor are required",
			api.ErrValidation,
		)
	}

	tmpl, err := e.templates.Get(req.TemplateID)
	if err != nil {
		return "", err
	}

	id := req.ID
	if id == "" {
		id = api.NewInstanceID()
	}

	err = e.dispatch(ctx, id, func(ctx context.Context) error {
		return e.instanceTx(ctx, id, func(tx *instanceTx) error {
			if st := tx.Value(); st.ID != "" {
				return fmt.Errorf("%w: %s", api.ErrInstanceExists, id)
			}
			return tx.raise(api.EventTypeInstanceStarted,
				api.InstanceStartedEvent{
					InstanceID: id,
					SubjectID:  req.SubjectID,
					Template:   tmpl,
					Actor:      req.Actor,
				})
		})
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// FailInstance moves an instance to the failed run state. It is reserved
// for unrecoverable conditions detected by the engine itself
func (e *Engine) FailInstance(
	ctx context.Context, id api.InstanceID, errMsg string,
) error {
	return e.dispatch(ctx, id, func(ctx context.Context) error {
		return e.failInstanceTx(ctx, id, errMsg)
	})
}

// failInstanceTx records the failure against the instance stream without
// routing through the actor. Effect handlers already run on the instance's
// goroutine, so dispatching from there would wait on itself
func (e *Engine) failInstanceTx(
	ctx context.Context, id api.InstanceID, errMsg string,
) error {
	return e.instanceTx(ctx, id, func(tx *instanceTx) error {
		st, err := tx.state()
		if err != nil {
			return err
		}
		if !runStateTransitions.CanTransition(st.RunState, api.RunFailed) {
			return fmt.Errorf("%w: %s is already %s",
				api.ErrStateConflict, id, st.RunState)
		}
		return tx.raise(api.EventTypeInstanceFailed,
			api.InstanceFailedEvent{
				InstanceID: id,
				Error:      errMsg,
			})
	})
}
