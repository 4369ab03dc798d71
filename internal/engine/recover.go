package engine

import (
	"context"
	"errors"
	"log/slog"

	"github.com/docketry/docket/pkg/api"
	"github.com/docketry/docket/pkg/log"
)

// RecoverInstances rebuilds reminder timers for every active instance after
// a restart. Reminder offsets are re-derived from the current wall clock:
// an offset that elapsed unrecorded while the engine was down fires
// immediately, and a deadline that fully passed produces only its overdue
// notice
func (e *Engine) RecoverInstances(ctx context.Context) error {
	reg, err := e.GetRegistryState(ctx)
	if err != nil {
		return err
	}

	for id := range reg.Active {
		if err := e.recoverInstance(ctx, id); err != nil {
			slog.Error("Failed to recover instance",
				log.InstanceID(id),
				log.Error(err))
		}
	}

	slog.Info("Instance recovery complete",
		slog.Int("active", len(reg.Active)))
	return nil
}

func (e *Engine) recoverInstance(
	ctx context.Context, id api.InstanceID,
) error {
	st, err := e.GetInstanceState(ctx, id)
	if err != nil {
		if errors.Is(err, api.ErrInstanceNotFound) {
			return e.raiseRegistryEvent(ctx,
				api.EventTypeInstanceDeactivated,
				api.InstanceDeactivatedEvent{InstanceID: id})
		}
		return e.quarantineInstance(ctx, id, err)
	}

	if st.RunState.IsTerminal() {
		return e.deactivateInstance(id)
	}

	e.scheduleInstanceReminders(id, st)
	return nil
}

// quarantineInstance records an unreadable instance as failed on the
// registry. The instance's own stream cannot be written when its events
// cannot be read back, so the failure lives in the registry digest
func (e *Engine) quarantineInstance(
	ctx context.Context, id api.InstanceID, cause error,
) error {
	slog.Error("Instance state unreadable, quarantining",
		log.InstanceID(id),
		log.Error(cause))

	digest := &api.InstanceDigest{
		ID:       id,
		RunState: api.RunFailed,
		Error:    cause.Error(),
	}
	if err := e.raiseRegistryEvent(ctx,
		api.EventTypeInstanceDigestUpdated,
		api.InstanceDigestUpdatedEvent{Digest: digest},
	); err != nil {
		return err
	}
	return e.raiseRegistryEvent(ctx,
		api.EventTypeInstanceDeactivated,
		api.InstanceDeactivatedEvent{InstanceID: id})
}

func (e *Engine) scheduleInstanceReminders(
	id api.InstanceID, st *api.InstanceState,
) {
	for _, item := range st.Deadlines {
		e.scheduleDeadline(id, item, st)
	}
	for _, item := range st.CourtDates {
		e.scheduleCourtDate(id, item, st)
	}
}
