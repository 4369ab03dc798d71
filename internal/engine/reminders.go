package engine

import (
	"context"
	"time"

	"github.com/docketry/docket/pkg/api"
)

type reminderOffset struct {
	label  api.ReminderLabel
	before time.Duration
}

// Reminder offsets are fixed by policy: deadlines warn at seven, three, and
// one day before they fall due, court dates at 48 and 24 hours before the
// appearance
var (
	deadlineOffsets = []reminderOffset{
		{api.Remind7Days, 7 * 24 * time.Hour},
		{api.Remind3Days, 3 * 24 * time.Hour},
		{api.Remind1Day, 24 * time.Hour},
	}

	courtDateOffsets = []reminderOffset{
		{api.Remind48Hrs, 48 * time.Hour},
		{api.Remind24Hrs, 24 * time.Hour},
	}
)

func instancePath(id api.InstanceID) []string {
	return []string{"instance", string(id)}
}

func itemPath(
	id api.InstanceID, kind api.ItemKind, itemID api.ItemID,
) []string {
	return append(instancePath(id), string(kind), string(itemID))
}

func reminderPath(
	id api.InstanceID, kind api.ItemKind, itemID api.ItemID,
	label api.ReminderLabel,
) []string {
	return append(itemPath(id, kind, itemID), string(label))
}

// scheduleDeadline registers timers for a deadline's unfired reminders. A
// deadline already past its due time produces only the overdue notice, never
// a late burst of pre-due reminders
func (e *Engine) scheduleDeadline(
	id api.InstanceID, item *api.DeadlineItem, st *api.InstanceState,
) {
	now := e.now()
	if item.DueAt.After(now) {
		for _, off := range deadlineOffsets {
			if st.ReminderFired(api.RemKey(item.ID, off.label)) {
				continue
			}
			fireAt := item.DueAt.Add(-off.before)
			if fireAt.Before(now) {
				fireAt = now
			}
			e.scheduleFire(
				id, api.ItemDeadline, item.ID, off.label,
				item.DueAt, fireAt,
			)
		}
	}
	if !st.ReminderFired(api.RemKey(item.ID, api.RemindDue)) {
		fireAt := item.DueAt
		if fireAt.Before(now) {
			fireAt = now
		}
		e.scheduleFire(
			id, api.ItemDeadline, item.ID, api.RemindDue,
			item.DueAt, fireAt,
		)
	}
}

// scheduleCourtDate registers timers for a court date's unfired reminders.
// An appearance already in the past skips the pre-date warnings and goes
// straight to the missed-appearance notice
func (e *Engine) scheduleCourtDate(
	id api.InstanceID, item *api.CourtDateItem, st *api.InstanceState,
) {
	now := e.now()
	if item.At.After(now) {
		for _, off := range courtDateOffsets {
			if st.ReminderFired(api.RemKey(item.ID, off.label)) {
				continue
			}
			fireAt := item.At.Add(-off.before)
			if fireAt.Before(now) {
				fireAt = now
			}
			e.scheduleFire(
				id, api.ItemCourtDate, item.ID, off.label, item.At, fireAt,
			)
		}
	}
	if !st.ReminderFired(api.RemKey(item.ID, api.RemindDue)) {
		fireAt := item.At
		if fireAt.Before(now) {
			fireAt = now
		}
		e.scheduleFire(
			id, api.ItemCourtDate, item.ID, api.RemindDue, item.At, fireAt,
		)
	}
}

func (e *Engine) scheduleFire(
	id api.InstanceID, kind api.ItemKind, itemID api.ItemID,
	label api.ReminderLabel, target, fireAt time.Time,
) {
	path := reminderPath(id, kind, itemID, label)
	e.sched.Schedule(e.ctx, path, fireAt, func() error {
		return e.dispatchAsync(id, func(ctx context.Context) error {
			return e.fireReminder(ctx, id, kind, itemID, label, target)
		})
	})
}

// fireReminder records a reminder in the instance's event stream. The firing
// re-validates against current state: a removed item, an already-recorded
// reminder, or a terminal instance all drop the firing silently
func (e *Engine) fireReminder(
	ctx context.Context, id api.InstanceID, kind api.ItemKind,
	itemID api.ItemID, label api.ReminderLabel, target time.Time,
) error {
	return e.instanceTx(ctx, id, func(tx *instanceTx) error {
		st := tx.Value()
		if st.ID == "" || st.RunState.IsTerminal() {
			return nil
		}
		switch kind {
		case api.ItemDeadline:
			if _, ok := st.Deadlines[itemID]; !ok {
				return nil
			}
		case api.ItemCourtDate:
			if _, ok := st.CourtDates[itemID]; !ok {
				return nil
			}
		}
		if st.ReminderFired(api.RemKey(itemID, label)) {
			return nil
		}
		return tx.raise(api.EventTypeReminderFired,
			api.ReminderFiredEvent{
				InstanceID: id,
				ItemID:     itemID,
				Kind:       kind,
				Label:      label,
				FiredAt:    e.now(),
				Target:     target,
			})
	})
}
