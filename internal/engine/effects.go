package engine

import (
	"context"
	"fmt"

	"github.com/kode4food/timebox"

	"github.com/docketry/docket/internal/activity"
	"github.com/docketry/docket/internal/notify"
	"github.com/docketry/docket/internal/subject"
	"github.com/docketry/docket/pkg/api"
	"github.com/docketry/docket/pkg/events"
)

// Activity names recorded in the audit trail
const (
	activityNotice  = "deliver_notice"
	activitySubject = "update_subject"
	activityNote    = "append_note"
	activityArchive = "archive_instance"
)

// makeEffectsDispatcher wires the per-instance side effects: reminder timer
// maintenance, notice delivery, subject updates, and archiving. Handlers run
// on the instance's actor goroutine after the triggering event committed
func makeEffectsDispatcher(ia *instanceActor) timebox.Handler {
	return events.MakeDispatcher(map[api.EventType]timebox.Handler{
		api.EventTypeDeadlineAdded: timebox.MakeHandler(
			ia.effectDeadlineAdded),
		api.EventTypeDeadlineRemoved: timebox.MakeHandler(
			ia.effectDeadlineRemoved),
		api.EventTypeCourtDateAdded: timebox.MakeHandler(
			ia.effectCourtDateAdded),
		api.EventTypeCourtDateRemoved: timebox.MakeHandler(
			ia.effectCourtDateRemoved),
		api.EventTypeReminderFired: timebox.MakeHandler(
			ia.effectReminderFired),
		api.EventTypeStageTransitioned: timebox.MakeHandler(
			ia.effectStageTransitioned),
		api.EventTypeInstancePaused: timebox.MakeHandler(
			ia.effectInstancePaused),
		api.EventTypeInstanceResumed: timebox.MakeHandler(
			ia.effectInstanceResumed),
		api.EventTypeInstanceCancelled: timebox.MakeHandler(
			ia.effectInstanceCancelled),
		api.EventTypeInstanceCompleted: timebox.MakeHandler(
			ia.effectInstanceCompleted),
		api.EventTypeInstanceFailed: timebox.MakeHandler(
			ia.effectInstanceFailed),
	})
}

func (ia *instanceActor) effectDeadlineAdded(
	_ *timebox.Event, data api.DeadlineAddedEvent,
) error {
	st, err := ia.GetInstanceState(ia.ctx, ia.instanceID)
	if err != nil {
		return err
	}
	ia.scheduleDeadline(ia.instanceID, data.Item, st)
	return nil
}

func (ia *instanceActor) effectDeadlineRemoved(
	_ *timebox.Event, data api.DeadlineRemovedEvent,
) error {
	ia.sched.CancelPrefix(ia.ctx,
		itemPath(ia.instanceID, api.ItemDeadline, data.ItemID))
	return nil
}

func (ia *instanceActor) effectCourtDateAdded(
	_ *timebox.Event, data api.CourtDateAddedEvent,
) error {
	st, err := ia.GetInstanceState(ia.ctx, ia.instanceID)
	if err != nil {
		return err
	}
	ia.scheduleCourtDate(ia.instanceID, data.Item, st)
	return nil
}

func (ia *instanceActor) effectCourtDateRemoved(
	_ *timebox.Event, data api.CourtDateRemovedEvent,
) error {
	ia.sched.CancelPrefix(ia.ctx,
		itemPath(ia.instanceID, api.ItemCourtDate, data.ItemID))
	return nil
}

func (ia *instanceActor) effectReminderFired(
	ev *timebox.Event, data api.ReminderFiredEvent,
) error {
	st, err := ia.GetInstanceState(ia.ctx, ia.instanceID)
	if err != nil {
		return err
	}
	notice := reminderNotice(st, &data)
	return ia.runEffect(ev, activityNotice, false,
		func(ctx context.Context) error {
			return ia.notifier.Send(ctx, notice)
		})
}

func (ia *instanceActor) effectStageTransitioned(
	ev *timebox.Event, data api.StageTransitionedEvent,
) error {
	st, err := ia.GetInstanceState(ia.ctx, ia.instanceID)
	if err != nil {
		return err
	}
	up := &subject.Update{
		SubjectID:  st.SubjectID,
		InstanceID: st.ID,
		Stage:      data.To,
		RunState:   st.RunState,
	}
	if err := ia.runEffect(ev, activitySubject, false,
		func(ctx context.Context) error {
			return ia.subjects.Update(ctx, up)
		},
	); err != nil {
		return err
	}
	if !data.Forced {
		return nil
	}
	// A forced transition leaves its justification on the matter record
	note := &subject.Note{
		SubjectID:  st.SubjectID,
		InstanceID: st.ID,
		Actor:      data.Actor,
		Text: fmt.Sprintf("Forced transition %s -> %s: %s",
			data.From, data.To, data.Notes),
	}
	return ia.runEffect(ev, activityNote, false,
		func(ctx context.Context) error {
			return ia.subjects.AppendNote(ctx, note)
		})
}

func (ia *instanceActor) effectInstancePaused(
	ev *timebox.Event, data api.InstancePausedEvent,
) error {
	msg := "Workflow paused"
	if data.Reason != "" {
		msg = fmt.Sprintf("Workflow paused: %s", data.Reason)
	}
	return ia.lifecycleEffects(ev, notify.NoticePaused, msg)
}

func (ia *instanceActor) effectInstanceResumed(
	ev *timebox.Event, _ api.InstanceResumedEvent,
) error {
	return ia.lifecycleEffects(ev, notify.NoticeResumed, "Workflow resumed")
}

func (ia *instanceActor) effectInstanceCancelled(
	ev *timebox.Event, data api.InstanceCancelledEvent,
) error {
	ia.sched.CancelPrefix(ia.ctx, instancePath(ia.instanceID))
	msg := "Workflow cancelled"
	if data.Reason != "" {
		msg = fmt.Sprintf("Workflow cancelled: %s", data.Reason)
	}
	if err := ia.lifecycleEffects(
		ev, notify.NoticeCancelled, msg,
	); err != nil {
		return err
	}
	return ia.archiveInstance(ev)
}

func (ia *instanceActor) effectInstanceCompleted(
	ev *timebox.Event, _ api.InstanceCompletedEvent,
) error {
	ia.sched.CancelPrefix(ia.ctx, instancePath(ia.instanceID))
	if err := ia.lifecycleEffects(
		ev, notify.NoticeCompleted, "Workflow completed",
	); err != nil {
		return err
	}
	return ia.archiveInstance(ev)
}

func (ia *instanceActor) effectInstanceFailed(
	ev *timebox.Event, data api.InstanceFailedEvent,
) error {
	ia.sched.CancelPrefix(ia.ctx, instancePath(ia.instanceID))
	msg := fmt.Sprintf("Workflow failed: %s", data.Error)
	return ia.lifecycleEffects(ev, notify.NoticeFailed, msg)
}

// lifecycleEffects delivers a run-state notice and pushes the new state to
// the subject record
func (ia *instanceActor) lifecycleEffects(
	ev *timebox.Event, kind, msg string,
) error {
	st, err := ia.GetInstanceState(ia.ctx, ia.instanceID)
	if err != nil {
		return err
	}
	notice := &notify.Notice{
		InstanceID: st.ID,
		SubjectID:  st.SubjectID,
		Kind:       kind,
		Message:    msg,
	}
	if err := ia.runEffect(
		ev, activityNotice, false, func(ctx context.Context) error {
			return ia.notifier.Send(ctx, notice)
		},
	); err != nil {
		return err
	}
	up := &subject.Update{
		SubjectID:  st.SubjectID,
		InstanceID: st.ID,
		Stage:      st.CurrentStage,
		RunState:   st.RunState,
	}
	return ia.runEffect(
		ev, activitySubject, false, func(ctx context.Context) error {
			return ia.subjects.Update(ctx, up)
		})
}

func (ia *instanceActor) archiveInstance(ev *timebox.Event) error {
	if ia.archiver == nil {
		return nil
	}
	st, err := ia.GetInstanceState(ia.ctx, ia.instanceID)
	if err != nil {
		return err
	}
	// Losing the ledger of a closed matter is not survivable, so archival
	// is the one critical activity
	return ia.runEffect(
		ev, activityArchive, true, func(ctx context.Context) error {
			if err := ia.archiver.Store(ctx, st); err != nil {
				return err
			}
			return ia.raiseRegistryEvent(ctx,
				api.EventTypeInstanceArchived,
				api.InstanceArchivedEvent{InstanceID: st.ID})
		})
}

// runEffect executes a side effect under the activity retry policy, keyed
// by name and triggering event so redelivery never runs it twice, and
// records the outcome in the instance's audit trail. Exhausting a critical
// effect fails the instance
func (ia *instanceActor) runEffect(
	ev *timebox.Event, name string, critical bool, fn activity.Func,
) error {
	res := ia.activities.Run(ia.ctx, &activity.Request{
		Fn:         fn,
		Name:       name,
		InstanceID: ia.instanceID,
		EventType:  api.EventType(ev.Type),
		Sequence:   ev.Sequence,
		Critical:   critical,
	})
	if res.Deduped {
		return nil
	}
	if err := ia.recordActivity(ev, name, res); err != nil {
		return err
	}
	if res.Outcome == api.ActivityFailed {
		return ia.failInstanceTx(ia.ctx, ia.instanceID,
			fmt.Sprintf("critical activity %s failed: %v", name, res.Err))
	}
	return nil
}

func (ia *instanceActor) recordActivity(
	ev *timebox.Event, name string, res *activity.Result,
) error {
	errMsg := ""
	if res.Err != nil {
		errMsg = res.Err.Error()
	}
	return ia.instanceTx(ia.ctx, ia.instanceID, func(tx *instanceTx) error {
		return tx.raise(api.EventTypeActivityRecorded,
			api.ActivityRecordedEvent{
				InstanceID: ia.instanceID,
				Activity:   name,
				Outcome:    res.Outcome,
				Attempts:   res.Attempts,
				Error:      errMsg,
			})
	})
}

func reminderNotice(
	st *api.InstanceState, data *api.ReminderFiredEvent,
) *notify.Notice {
	title := ""
	switch data.Kind {
	case api.ItemDeadline:
		if item, ok := st.Deadlines[data.ItemID]; ok {
			title = item.Title
		}
	case api.ItemCourtDate:
		if item, ok := st.CourtDates[data.ItemID]; ok {
			title = item.Title
		}
	}

	kind := notify.NoticeReminder
	var msg string
	if data.Label == api.RemindDue {
		kind = notify.NoticeOverdue
		msg = fmt.Sprintf("%q is overdue since %s",
			title, data.Target.Format("2006-01-02 15:04"))
	} else {
		msg = fmt.Sprintf("%q is due %s (%s reminder)",
			title, data.Target.Format("2006-01-02 15:04"), data.Label)
	}
	if st.RunState == api.RunPaused {
		msg += " [instance paused]"
	}

	return &notify.Notice{
		InstanceID: st.ID,
		SubjectID:  st.SubjectID,
		Kind:       kind,
		ItemID:     data.ItemID,
		Label:      data.Label,
		Title:      title,
		Target:     data.Target,
		Message:    msg,
	}
}
