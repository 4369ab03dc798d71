package events_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/kode4food/timebox"
	"github.com/stretchr/testify/assert"

	"github.com/docketry/docket/pkg/api"
	"github.com/docketry/docket/pkg/events"
)

func caseTemplate() *api.Template {
	return &api.Template{
		ID:      "case",
		Name:    "Case",
		Version: 1,
		Initial: "intake",
		Stages: []*api.Stage{
			{
				ID:   "intake",
				Next: []api.StageID{"closed"},
				Requirements: []*api.Requirement{
					{ID: "identity", Name: "Verify Identity"},
				},
			},
			{ID: "closed", Terminal: true},
		},
	}
}

func instanceEvent(
	t *testing.T, et api.EventType, data any,
) *timebox.Event {
	t.Helper()
	raw, err := json.Marshal(data)
	assert.NoError(t, err)
	return &timebox.Event{
		Timestamp:   time.Now(),
		AggregateID: events.InstanceKey(api.InstanceID("i1")),
		Type:        timebox.EventType(et),
		Data:        raw,
	}
}

func applyInstance(
	t *testing.T, st *api.InstanceState, et api.EventType, data any,
) *api.InstanceState {
	t.Helper()
	ev := instanceEvent(t, et, data)
	applier := events.InstanceAppliers[ev.Type]
	assert.NotNil(t, applier)
	return applier(st, ev)
}

func startedState(t *testing.T) *api.InstanceState {
	t.Helper()
	return applyInstance(t, events.NewInstanceState(),
		api.EventTypeInstanceStarted,
		api.InstanceStartedEvent{
			InstanceID: "i1",
			SubjectID:  "case-1",
			Template:   caseTemplate(),
			Actor:      "clerk",
		})
}

func TestInstanceStarted(t *testing.T) {
	st := startedState(t)
	assert.Equal(t, api.InstanceID("i1"), st.ID)
	assert.Equal(t, api.SubjectID("case-1"), st.SubjectID)
	assert.Equal(t, api.StageID("intake"), st.CurrentStage)
	assert.Equal(t, api.RunActive, st.RunState)
	assert.False(t, st.CreatedAt.IsZero())
	assert.NotNil(t, st.Requirements)
	assert.NotNil(t, st.Deadlines)

	assert.Len(t, st.StageHistory, 1)
	assert.Equal(t, api.StageID("intake"), st.StageHistory[0].StageID)
	assert.Equal(t, st.CreatedAt, st.StageHistory[0].EnteredAt)
	assert.True(t, st.StageHistory[0].ExitedAt.IsZero())
}

func TestStageTransitioned(t *testing.T) {
	st := startedState(t)
	st = applyInstance(t, st, api.EventTypeStageTransitioned,
		api.StageTransitionedEvent{
			InstanceID: "i1",
			From:       "intake",
			To:         "closed",
			Actor:      "clerk",
		})
	assert.Equal(t, api.StageID("closed"), st.CurrentStage)

	// the intake visit closes and the closed visit opens
	assert.Len(t, st.StageHistory, 2)
	assert.Equal(t, api.StageID("intake"), st.StageHistory[0].StageID)
	assert.False(t, st.StageHistory[0].ExitedAt.IsZero())
	assert.Equal(t, api.StageID("closed"), st.StageHistory[1].StageID)
	assert.True(t, st.StageHistory[1].ExitedAt.IsZero())
}

func TestRequirementCompleted(t *testing.T) {
	st := startedState(t)
	st = applyInstance(t, st, api.EventTypeRequirementCompleted,
		api.RequirementCompletedEvent{
			InstanceID:    "i1",
			StageID:       "intake",
			RequirementID: "identity",
			Actor:         "clerk",
			Notes:         "passport on file",
		})

	key := api.ReqKey("intake", "identity")
	assert.True(t, st.RequirementComplete(key))
	req := st.Requirements[key]
	assert.Equal(t, api.ActorID("clerk"), req.CompletedBy)
	assert.Equal(t, "passport on file", req.Notes)
}

func TestDeadlineLifecycle(t *testing.T) {
	st := startedState(t)
	due := time.Now().Add(48 * time.Hour)
	st = applyInstance(t, st, api.EventTypeDeadlineAdded,
		api.DeadlineAddedEvent{
			InstanceID: "i1",
			Item: &api.DeadlineItem{
				ID:    "d1",
				Title: "File motion",
				DueAt: due,
			},
		})
	assert.Len(t, st.Deadlines, 1)

	st = applyInstance(t, st, api.EventTypeReminderFired,
		api.ReminderFiredEvent{
			InstanceID: "i1",
			ItemID:     "d1",
			Kind:       api.ItemDeadline,
			Label:      api.Remind1Day,
			Target:     due,
			FiredAt:    time.Now(),
		})
	assert.True(t, st.ReminderFired(api.RemKey("d1", api.Remind1Day)))

	st = applyInstance(t, st, api.EventTypeDeadlineRemoved,
		api.DeadlineRemovedEvent{InstanceID: "i1", ItemID: "d1"})
	assert.Empty(t, st.Deadlines)
}

func TestCourtDateLifecycle(t *testing.T) {
	st := startedState(t)
	at := time.Now().Add(72 * time.Hour)
	st = applyInstance(t, st, api.EventTypeCourtDateAdded,
		api.CourtDateAddedEvent{
			InstanceID: "i1",
			Item: &api.CourtDateItem{
				ID:       "c1",
				Title:    "Hearing",
				At:       at,
				Location: "Courtroom 4",
			},
		})
	assert.Len(t, st.CourtDates, 1)

	st = applyInstance(t, st, api.EventTypeCourtDateRemoved,
		api.CourtDateRemovedEvent{InstanceID: "i1", ItemID: "c1"})
	assert.Empty(t, st.CourtDates)
}

func TestRunStateEvents(t *testing.T) {
	st := startedState(t)

	st = applyInstance(t, st, api.EventTypeInstancePaused,
		api.InstancePausedEvent{InstanceID: "i1", Reason: "awaiting client"})
	assert.Equal(t, api.RunPaused, st.RunState)

	st = applyInstance(t, st, api.EventTypeInstanceResumed,
		api.InstanceResumedEvent{InstanceID: "i1"})
	assert.Equal(t, api.RunActive, st.RunState)

	st = applyInstance(t, st, api.EventTypeInstanceCompleted,
		api.InstanceCompletedEvent{InstanceID: "i1"})
	assert.Equal(t, api.RunCompleted, st.RunState)
	assert.False(t, st.CompletedAt.IsZero())
}

func TestInstanceCancelled(t *testing.T) {
	st := startedState(t)
	st = applyInstance(t, st, api.EventTypeInstanceCancelled,
		api.InstanceCancelledEvent{InstanceID: "i1", Reason: "settled"})
	assert.Equal(t, api.RunCancelled, st.RunState)
	assert.False(t, st.CompletedAt.IsZero())
}

func TestInstanceFailed(t *testing.T) {
	st := startedState(t)
	st = applyInstance(t, st, api.EventTypeInstanceFailed,
		api.InstanceFailedEvent{InstanceID: "i1", Error: "stream corrupt"})
	assert.Equal(t, api.RunFailed, st.RunState)
	assert.Equal(t, "stream corrupt", st.Error)
}

func TestActivityRecordedOnlyTouchesTimestamp(t *testing.T) {
	st := startedState(t)
	before := *st
	st = applyInstance(t, st, api.EventTypeActivityRecorded,
		api.ActivityRecordedEvent{
			InstanceID: "i1",
			Activity:   "deliver_notice",
			Outcome:    api.ActivitySucceeded,
			Attempts:   1,
		})
	assert.Equal(t, before.RunState, st.RunState)
	assert.Equal(t, before.CurrentStage, st.CurrentStage)
}

func TestIsInstanceEvent(t *testing.T) {
	ev := instanceEvent(t, api.EventTypeInstanceStarted, nil)
	assert.True(t, events.IsInstanceEvent(ev))

	ev.AggregateID = timebox.NewAggregateID(events.RegistryPrefix)
	assert.False(t, events.IsInstanceEvent(ev))
}
