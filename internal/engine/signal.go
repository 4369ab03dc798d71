package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/docketry/docket/pkg/api"
)

// Signal validates and applies an external command to an instance. Signals
// for the same instance are serialized through its actor, so two concurrent
// signals can never interleave their reads and writes
func (e *Engine) Signal(
	ctx context.Context, id api.InstanceID, sig *api.Signal,
) error {
	if err := sig.Validate(); err != nil {
		return fmt.Errorf("%w: %w", api.ErrValidation, err)
	}
	err := e.dispatch(ctx, id, func(ctx context.Context) error {
		return e.instanceTx(ctx, id, func(tx *instanceTx) error {
			return tx.applySignal(sig)
		})
	})
	if err != nil {
		return err
	}
	if sig.Kind == api.SignalCancel {
		// Cancellation tears down the instance's pending reminders before
		// the call returns
		e.sched.CancelPrefix(ctx, instancePath(id))
	}
	return nil
}

func (tx *instanceTx) applySignal(sig *api.Signal) error {
	st, err := tx.state()
	if err != nil {
		return err
	}
	if err := tx.checkRunState(st, sig.Kind); err != nil {
		return err
	}

	switch sig.Kind {
	case api.SignalCompleteRequirement:
		return tx.completeRequirement(st, sig)
	case api.SignalTransitionStage:
		return tx.transitionStage(st, sig)
	case api.SignalAddDeadline:
		return tx.addDeadline(st, sig)
	case api.SignalRemoveDeadline:
		return tx.removeDeadline(st, sig)
	case api.SignalAddCourtDate:
		return tx.addCourtDate(st, sig)
	case api.SignalRemoveCourtDate:
		return tx.removeCourtDate(st, sig)
	case api.SignalPause:
		return tx.pause(sig)
	case api.SignalResume:
		return tx.resume(sig)
	case api.SignalCancel:
		return tx.cancel(sig)
	}
	return fmt.Errorf("%w: %s", api.ErrValidation, sig.Kind)
}

// checkRunState rejects signals the current run state does not admit. A
// paused instance rejects workflow progress but still accepts calendar
// changes alongside resume and cancel, since legal dates shift whether or
// not the matter is on hold
func (tx *instanceTx) checkRunState(
	st *api.InstanceState, kind api.SignalKind,
) error {
	switch st.RunState {
	case api.RunActive:
		if kind == api.SignalResume {
			return fmt.Errorf("%w: %s is not paused",
				api.ErrStateConflict, st.ID)
		}
		return nil
	case api.RunPaused:
		switch kind {
		case api.SignalResume, api.SignalCancel,
			api.SignalAddDeadline, api.SignalRemoveDeadline,
			api.SignalAddCourtDate, api.SignalRemoveCourtDate:
			return nil
		}
		return fmt.Errorf("%w: %s", api.ErrPaused, st.ID)
	case api.RunCancelled:
		return fmt.Errorf("%w: %s", api.ErrCancelled, st.ID)
	default:
		return fmt.Errorf("%w: %s is %s",
			api.ErrStateConflict, st.ID, st.RunState)
	}
}

func (tx *instanceTx) completeRequirement(
	st *api.InstanceState, sig *api.Signal,
) error {
	stage := st.Template.GetStage(st.CurrentStage)
	if stage == nil {
		return fmt.Errorf("%w: stage %s missing from template",
			api.ErrFatalState, st.CurrentStage)
	}
	reqID := sig.CompleteRequirement.RequirementID
	req := stage.GetRequirement(reqID)
	if req == nil {
		return fmt.Errorf("%w: requirement %s not in stage %s",
			api.ErrValidation, reqID, stage.ID)
	}
	if st.RequirementComplete(api.ReqKey(stage.ID, reqID)) {
		// Completing twice is a no-op, not an error
		return nil
	}
	if err := tx.raise(api.EventTypeRequirementCompleted,
		api.RequirementCompletedEvent{
			InstanceID:    st.ID,
			StageID:       stage.ID,
			RequirementID: reqID,
			Actor:         sig.Actor,
			Notes:         sig.CompleteRequirement.Notes,
			Metadata:      sig.CompleteRequirement.Metadata,
		},
	); err != nil {
		return err
	}

	// Clearing the last required requirement of a terminal stage is what
	// completes the instance
	if stage.Terminal && requiredSatisfied(st, stage, reqID) {
		return tx.raise(api.EventTypeInstanceCompleted,
			api.InstanceCompletedEvent{InstanceID: st.ID})
	}
	return nil
}

// requiredSatisfied reports whether every required requirement of the stage
// is complete, treating done as already completed
func requiredSatisfied(
	st *api.InstanceState, stage *api.Stage, done api.RequirementID,
) bool {
	for _, r := range stage.Requirements {
		if r.Optional || r.ID == done {
			continue
		}
		if !st.RequirementComplete(api.ReqKey(stage.ID, r.ID)) {
			return false
		}
	}
	return true
}

func (tx *instanceTx) transitionStage(
	st *api.InstanceState, sig *api.Signal,
) error {
	payload := sig.TransitionStage
	target := st.Template.GetStage(payload.To)
	if target == nil {
		return fmt.Errorf("%w: unknown stage %s",
			api.ErrValidation, payload.To)
	}
	current := st.Template.GetStage(st.CurrentStage)
	if current == nil {
		return fmt.Errorf("%w: stage %s missing from template",
			api.ErrFatalState, st.CurrentStage)
	}

	if !payload.Force {
		if !current.CanAdvance(payload.To) {
			return fmt.Errorf("%w: %s does not advance to %s",
				api.ErrStateConflict, current.ID, payload.To)
		}
		if missing := st.IncompleteRequirements(); len(missing) > 0 {
			return fmt.Errorf("%w: %s", api.ErrRequirementsIncomplete,
				joinRequirements(missing))
		}
	}

	if err := tx.raise(api.EventTypeStageTransitioned,
		api.StageTransitionedEvent{
			InstanceID: st.ID,
			From:       current.ID,
			To:         target.ID,
			Actor:      sig.Actor,
			Forced:     payload.Force,
			Notes:      payload.Notes,
		},
	); err != nil {
		return err
	}

	// A terminal stage with its own required requirements holds the
	// instance open until they are completed
	if target.Terminal && requiredSatisfied(st, target, "") {
		return tx.raise(api.EventTypeInstanceCompleted,
			api.InstanceCompletedEvent{InstanceID: st.ID})
	}
	return nil
}

func (tx *instanceTx) addDeadline(
	st *api.InstanceState, sig *api.Signal,
) error {
	payload := sig.AddDeadline
	if !payload.DueAt.After(tx.now()) {
		return fmt.Errorf("%w: deadline %q is not in the future",
			api.ErrValidation, payload.Title)
	}
	id := payload.ID
	if id == "" {
		id = api.NewItemID()
	}
	if _, ok := st.Deadlines[id]; ok {
		return fmt.Errorf("%w: deadline %s already exists",
			api.ErrStateConflict, id)
	}
	return tx.raise(api.EventTypeDeadlineAdded,
		api.DeadlineAddedEvent{
			InstanceID: st.ID,
			Item: &api.DeadlineItem{
				ID:          id,
				Title:       payload.Title,
				Description: payload.Description,
				DueAt:       payload.DueAt,
				CreatedBy:   sig.Actor,
				CreatedAt:   tx.now(),
			},
		})
}

func (tx *instanceTx) removeDeadline(
	st *api.InstanceState, sig *api.Signal,
) error {
	id := sig.RemoveDeadline.ItemID
	if _, ok := st.Deadlines[id]; !ok {
		return fmt.Errorf("%w: deadline %s", api.ErrItemNotFound, id)
	}
	return tx.raise(api.EventTypeDeadlineRemoved,
		api.DeadlineRemovedEvent{
			InstanceID: st.ID,
			ItemID:     id,
			Actor:      sig.Actor,
		})
}

func (tx *instanceTx) addCourtDate(
	st *api.InstanceState, sig *api.Signal,
) error {
	payload := sig.AddCourtDate
	if !payload.At.After(tx.now()) {
		return fmt.Errorf("%w: court date %q is not in the future",
			api.ErrValidation, payload.Title)
	}
	id := payload.ID
	if id == "" {
		id = api.NewItemID()
	}
	if _, ok := st.CourtDates[id]; ok {
		return fmt.Errorf("%w: court date %s already exists",
			api.ErrStateConflict, id)
	}
	return tx.raise(api.EventTypeCourtDateAdded,
		api.CourtDateAddedEvent{
			InstanceID: st.ID,
			Item: &api.CourtDateItem{
				ID:        id,
				Title:     payload.Title,
				At:        payload.At,
				Location:  payload.Location,
				Notes:     payload.Notes,
				CreatedBy: sig.Actor,
				CreatedAt: tx.now(),
			},
		})
}

func (tx *instanceTx) removeCourtDate(
	st *api.InstanceState, sig *api.Signal,
) error {
	id := sig.RemoveCourtDate.ItemID
	if _, ok := st.CourtDates[id]; !ok {
		return fmt.Errorf("%w: court date %s", api.ErrItemNotFound, id)
	}
	return tx.raise(api.EventTypeCourtDateRemoved,
		api.CourtDateRemovedEvent{
			InstanceID: st.ID,
			ItemID:     id,
			Actor:      sig.Actor,
		})
}

func (tx *instanceTx) pause(sig *api.Signal) error {
	reason := ""
	if sig.Pause != nil {
		reason = sig.Pause.Reason
	}
	return tx.raise(api.EventTypeInstancePaused,
		api.InstancePausedEvent{
			InstanceID: tx.instanceID,
			Actor:      sig.Actor,
			Reason:     reason,
		})
}

func (tx *instanceTx) resume(sig *api.Signal) error {
	return tx.raise(api.EventTypeInstanceResumed,
		api.InstanceResumedEvent{
			InstanceID: tx.instanceID,
			Actor:      sig.Actor,
		})
}

func (tx *instanceTx) cancel(sig *api.Signal) error {
	reason := ""
	if sig.Cancel != nil {
		reason = sig.Cancel.Reason
	}
	return tx.raise(api.EventTypeInstanceCancelled,
		api.InstanceCancelledEvent{
			InstanceID: tx.instanceID,
			Actor:      sig.Actor,
			Reason:     reason,
		})
}

func joinRequirements(ids []api.RequirementID) string {
	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = string(id)
	}
	return strings.Join(strs, ", ")
}
