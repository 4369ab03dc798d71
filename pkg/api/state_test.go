package api_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/docketry/docket/pkg/api"
)

func TestRunStateIsTerminal(t *testing.T) {
	assert.False(t, api.RunActive.IsTerminal())
	assert.False(t, api.RunPaused.IsTerminal())
	assert.True(t, api.RunCompleted.IsTerminal())
	assert.True(t, api.RunCancelled.IsTerminal())
	assert.True(t, api.RunFailed.IsTerminal())
}

func TestSettersCopyOnWrite(t *testing.T) {
	orig := &api.InstanceState{
		ID:       "i1",
		RunState: api.RunActive,
	}

	next := orig.SetRunState(api.RunPaused)
	assert.NotSame(t, orig, next)
	assert.Equal(t, api.RunActive, orig.RunState)
	assert.Equal(t, api.RunPaused, next.RunState)

	next = orig.SetCurrentStage("filing")
	assert.Empty(t, orig.CurrentStage)
	assert.Equal(t, api.StageID("filing"), next.CurrentStage)
}

func TestEnterStage(t *testing.T) {
	entered := time.Date(2026, 8, 3, 9, 0, 0, 0, time.UTC)
	st := &api.InstanceState{
		ID:       "i1",
		Template: validTemplate(),
	}

	st = st.EnterStage("intake", entered)
	assert.Equal(t, api.StageID("intake"), st.CurrentStage)
	assert.Len(t, st.StageHistory, 1)
	assert.Equal(t, "Intake", st.StageHistory[0].Name)
	assert.Equal(t, entered, st.StageHistory[0].EnteredAt)
	assert.True(t, st.StageHistory[0].ExitedAt.IsZero())

	exited := entered.Add(36 * time.Hour)
	next := st.EnterStage("closed", exited)

	// the prior state's history is untouched
	assert.True(t, st.StageHistory[0].ExitedAt.IsZero())

	assert.Len(t, next.StageHistory, 2)
	first := next.StageHistory[0]
	assert.Equal(t, exited, first.ExitedAt)
	assert.Equal(t, 36.0, first.DurationHours)
	last := next.StageHistory[1]
	assert.Equal(t, api.StageID("closed"), last.StageID)
	assert.Equal(t, "Closed", last.Name)
	assert.True(t, last.ExitedAt.IsZero())
}

func TestSetRequirementClonesMap(t *testing.T) {
	orig := &api.InstanceState{ID: "i1"}
	key := api.ReqKey("intake", "identity")

	next := orig.SetRequirement(key, &api.RequirementState{
		StageID:       "intake",
		RequirementID: "identity",
		CompletedBy:   "clerk",
	})

	assert.False(t, orig.RequirementComplete(key))
	assert.True(t, next.RequirementComplete(key))

	third := next.SetRequirement(
		api.ReqKey("intake", "retainer"),
		&api.RequirementState{StageID: "intake", RequirementID: "retainer"},
	)
	assert.Len(t, next.Requirements, 1)
	assert.Len(t, third.Requirements, 2)
}

func TestDeadlineItems(t *testing.T) {
	orig := &api.InstanceState{ID: "i1"}
	item := &api.DeadlineItem{
		ID:    "d1",
		Title: "File motion",
		DueAt: time.Now().Add(time.Hour),
	}

	next := orig.SetDeadline(item)
	assert.Empty(t, orig.Deadlines)
	assert.Len(t, next.Deadlines, 1)

	removed := next.DeleteDeadline("d1")
	assert.Len(t, next.Deadlines, 1)
	assert.Empty(t, removed.Deadlines)
}

func TestCourtDateItems(t *testing.T) {
	orig := &api.InstanceState{ID: "i1"}
	item := &api.CourtDateItem{
		ID:    "c1",
		Title: "Hearing",
		At:    time.Now().Add(48 * time.Hour),
	}

	next := orig.SetCourtDate(item)
	assert.Empty(t, orig.CourtDates)
	assert.Len(t, next.CourtDates, 1)

	removed := next.DeleteCourtDate("c1")
	assert.Empty(t, removed.CourtDates)
}

func TestReminderFired(t *testing.T) {
	orig := &api.InstanceState{ID: "i1"}
	key := api.RemKey("d1", api.Remind7Days)
	firedAt := time.Now()

	next := orig.SetReminderFired(key, firedAt)
	assert.False(t, orig.ReminderFired(key))
	assert.True(t, next.ReminderFired(key))
	assert.False(t, next.ReminderFired(api.RemKey("d1", api.Remind3Days)))
}

func TestIncompleteRequirements(t *testing.T) {
	tmpl := validTemplate()
	st := &api.InstanceState{
		ID:           "i1",
		Template:     tmpl,
		CurrentStage: "intake",
	}

	// retainer is optional so only identity blocks
	assert.Equal(t,
		[]api.RequirementID{"identity"}, st.IncompleteRequirements())

	st = st.SetRequirement(
		api.ReqKey("intake", "identity"),
		&api.RequirementState{StageID: "intake", RequirementID: "identity"},
	)
	assert.Empty(t, st.IncompleteRequirements())

	st = st.SetCurrentStage("closed")
	assert.Empty(t, st.IncompleteRequirements())
}

func TestDigest(t *testing.T) {
	created := time.Now().Add(-time.Hour)
	st := &api.InstanceState{
		ID:           "i1",
		SubjectID:    "case-1",
		Template:     validTemplate(),
		CurrentStage: "intake",
		RunState:     api.RunActive,
		CreatedAt:    created,
	}

	digest := st.Digest()
	assert.Equal(t, api.InstanceID("i1"), digest.ID)
	assert.Equal(t, api.TemplateID("case"), digest.TemplateID)
	assert.Equal(t, api.SubjectID("case-1"), digest.SubjectID)
	assert.Equal(t, api.RunActive, digest.RunState)
	assert.Equal(t, created, digest.CreatedAt)
}

func TestRegistryStateSetters(t *testing.T) {
	orig := &api.RegistryState{}

	next := orig.SetActiveInstance("i1", &api.ActiveInstanceInfo{
		InstanceID: "i1",
		TemplateID: "case",
	})
	assert.Empty(t, orig.Active)
	assert.Len(t, next.Active, 1)

	next = next.SetDigest("i1", &api.InstanceDigest{ID: "i1"})
	assert.Len(t, next.Digests, 1)

	removed := next.DeleteActiveInstance("i1")
	assert.Empty(t, removed.Active)
	assert.Len(t, removed.Digests, 1)

	removed = removed.DeleteDigest("i1")
	assert.Empty(t, removed.Digests)
}
