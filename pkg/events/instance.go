package events

import (
	"time"

	"github.com/kode4food/timebox"

	"github.com/docketry/docket/pkg/api"
)

const InstancePrefix = "instance"

// InstanceAppliers contains the event applier functions for instance events
var InstanceAppliers = makeInstanceAppliers()

// NewInstanceState creates an empty instance state with initialized maps
func NewInstanceState() *api.InstanceState {
	return &api.InstanceState{
		Requirements:   map[api.RequirementKey]*api.RequirementState{},
		Deadlines:      map[api.ItemID]*api.DeadlineItem{},
		CourtDates:     map[api.ItemID]*api.CourtDateItem{},
		RemindersFired: map[api.ReminderKey]time.Time{},
	}
}

// InstanceKey returns the aggregate ID for an instance
func InstanceKey[T ~string](id T) timebox.AggregateID {
	return timebox.NewAggregateID(InstancePrefix, timebox.ID(id))
}

// IsInstanceEvent returns true if the event belongs to an instance aggregate
func IsInstanceEvent(ev *timebox.Event) bool {
	return len(ev.AggregateID) >= 2 && ev.AggregateID[0] == InstancePrefix
}

func makeInstanceAppliers() timebox.Appliers[*api.InstanceState] {
	return MakeAppliers(map[api.EventType]timebox.Applier[*api.InstanceState]{
		api.EventTypeInstanceStarted: timebox.MakeApplier(instanceStarted),
		api.EventTypeStageTransitioned: timebox.MakeApplier(
			stageTransitioned),
		api.EventTypeRequirementCompleted: timebox.MakeApplier(
			requirementCompleted),
		api.EventTypeDeadlineAdded:     timebox.MakeApplier(deadlineAdded),
		api.EventTypeDeadlineRemoved:   timebox.MakeApplier(deadlineRemoved),
		api.EventTypeCourtDateAdded:    timebox.MakeApplier(courtDateAdded),
		api.EventTypeCourtDateRemoved:  timebox.MakeApplier(courtDateRemoved),
		api.EventTypeReminderFired:     timebox.MakeApplier(reminderFired),
		api.EventTypeInstancePaused:    timebox.MakeApplier(instancePaused),
		api.EventTypeInstanceResumed:   timebox.MakeApplier(instanceResumed),
		api.EventTypeInstanceCancelled: timebox.MakeApplier(instanceCancelled),
		api.EventTypeInstanceCompleted: timebox.MakeApplier(instanceCompleted),
		api.EventTypeInstanceFailed:    timebox.MakeApplier(instanceFailed),
		api.EventTypeActivityRecorded:  timebox.MakeApplier(activityRecorded),
	})
}

func instanceStarted(
	_ *api.InstanceState, ev *timebox.Event, data api.InstanceStartedEvent,
) *api.InstanceState {
	st := &api.InstanceState{
		ID:             data.InstanceID,
		SubjectID:      data.SubjectID,
		Template:       data.Template,
		RunState:       api.RunActive,
		Requirements:   map[api.RequirementKey]*api.RequirementState{},
		Deadlines:      map[api.ItemID]*api.DeadlineItem{},
		CourtDates:     map[api.ItemID]*api.CourtDateItem{},
		RemindersFired: map[api.ReminderKey]time.Time{},
		CreatedAt:      ev.Timestamp,
		LastUpdated:    ev.Timestamp,
	}
	return st.EnterStage(data.Template.Initial, ev.Timestamp)
}

func stageTransitioned(
	st *api.InstanceState, ev *timebox.Event, data api.StageTransitionedEvent,
) *api.InstanceState {
	return st.
		EnterStage(data.To, ev.Timestamp).
		SetLastUpdated(ev.Timestamp)
}

func requirementCompleted(
	st *api.InstanceState, ev *timebox.Event,
	data api.RequirementCompletedEvent,
) *api.InstanceState {
	key := api.ReqKey(data.StageID, data.RequirementID)
	return st.
		SetRequirement(key, &api.RequirementState{
			StageID:       data.StageID,
			RequirementID: data.RequirementID,
			CompletedBy:   data.Actor,
			CompletedAt:   ev.Timestamp,
			Notes:         data.Notes,
			Metadata:      data.Metadata,
		}).
		SetLastUpdated(ev.Timestamp)
}

func deadlineAdded(
	st *api.InstanceState, ev *timebox.Event, data api.DeadlineAddedEvent,
) *api.InstanceState {
	return st.
		SetDeadline(data.Item).
		SetLastUpdated(ev.Timestamp)
}

func deadlineRemoved(
	st *api.InstanceState, ev *timebox.Event, data api.DeadlineRemovedEvent,
) *api.InstanceState {
	return st.
		DeleteDeadline(data.ItemID).
		SetLastUpdated(ev.Timestamp)
}

func courtDateAdded(
	st *api.InstanceState, ev *timebox.Event, data api.CourtDateAddedEvent,
) *api.InstanceState {
	return st.
		SetCourtDate(data.Item).
		SetLastUpdated(ev.Timestamp)
}

func courtDateRemoved(
	st *api.InstanceState, ev *timebox.Event, data api.CourtDateRemovedEvent,
) *api.InstanceState {
	return st.
		DeleteCourtDate(data.ItemID).
		SetLastUpdated(ev.Timestamp)
}

func reminderFired(
	st *api.InstanceState, ev *timebox.Event, data api.ReminderFiredEvent,
) *api.InstanceState {
	key := api.RemKey(data.ItemID, data.Label)
	return st.
		SetReminderFired(key, data.FiredAt).
		SetLastUpdated(ev.Timestamp)
}

func instancePaused(
	st *api.InstanceState, ev *timebox.Event, _ api.InstancePausedEvent,
) *api.InstanceState {
	return st.
		SetRunState(api.RunPaused).
		SetLastUpdated(ev.Timestamp)
}

func instanceResumed(
	st *api.InstanceState, ev *timebox.Event, _ api.InstanceResumedEvent,
) *api.InstanceState {
	return st.
		SetRunState(api.RunActive).
		SetLastUpdated(ev.Timestamp)
}

func instanceCancelled(
	st *api.InstanceState, ev *timebox.Event, _ api.InstanceCancelledEvent,
) *api.InstanceState {
	return st.
		SetRunState(api.RunCancelled).
		SetCompletedAt(ev.Timestamp).
		SetLastUpdated(ev.Timestamp)
}

func instanceCompleted(
	st *api.InstanceState, ev *timebox.Event, _ api.InstanceCompletedEvent,
) *api.InstanceState {
	return st.
		SetRunState(api.RunCompleted).
		SetCompletedAt(ev.Timestamp).
		SetLastUpdated(ev.Timestamp)
}

func instanceFailed(
	st *api.InstanceState, ev *timebox.Event, data api.InstanceFailedEvent,
) *api.InstanceState {
	return st.
		SetRunState(api.RunFailed).
		SetError(data.Error).
		SetCompletedAt(ev.Timestamp).
		SetLastUpdated(ev.Timestamp)
}

func activityRecorded(
	st *api.InstanceState, ev *timebox.Event, _ api.ActivityRecordedEvent,
) *api.InstanceState {
	return st.SetLastUpdated(ev.Timestamp)
}
