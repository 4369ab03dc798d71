package helpers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/docketry/docket/internal/template"
	"github.com/docketry/docket/pkg/api"
)

// Fixture identifiers shared across engine tests
const (
	CaseTemplate  api.TemplateID = "case-onboarding"
	QuickTemplate api.TemplateID = "quick-close"

	StageIntake api.StageID = "intake"
	StageFiling api.StageID = "filing"
	StageClosed api.StageID = "closed"

	ReqIdentity  api.RequirementID = "verify-identity"
	ReqRetainer  api.RequirementID = "signed-retainer"
	ReqConflicts api.RequirementID = "conflict-check"

	TestActor   api.ActorID   = "paralegal-1"
	TestSubject api.SubjectID = "case-1042"
)

// NewCaseTemplate builds a three-stage workflow with required and optional
// requirements at each non-terminal stage
func NewCaseTemplate() *api.Template {
	return &api.Template{
		ID:      CaseTemplate,
		Name:    "Case Onboarding",
		Version: 1,
		Initial: StageIntake,
		Stages: []*api.Stage{
			{
				ID:   StageIntake,
				Name: "Intake",
				Next: []api.StageID{StageFiling},
				Requirements: []*api.Requirement{
					{ID: ReqIdentity, Name: "Verify Identity"},
					{ID: ReqRetainer, Name: "Signed Retainer"},
					{
						ID:       ReqConflicts,
						Name:     "Conflict Check",
						Optional: true,
					},
				},
			},
			{
				ID:   StageFiling,
				Name: "Filing",
				Next: []api.StageID{StageClosed},
			},
			{
				ID:       StageClosed,
				Name:     "Closed",
				Terminal: true,
			},
		},
	}
}

// NewQuickTemplate builds a two-stage workflow with no requirements, useful
// when a test only needs to reach a terminal stage
func NewQuickTemplate() *api.Template {
	return &api.Template{
		ID:      QuickTemplate,
		Name:    "Quick Close",
		Version: 1,
		Initial: StageIntake,
		Stages: []*api.Stage{
			{
				ID:   StageIntake,
				Name: "Intake",
				Next: []api.StageID{StageClosed},
			},
			{
				ID:       StageClosed,
				Name:     "Closed",
				Terminal: true,
			},
		},
	}
}

// RegisterFixtures registers the fixture templates into the provided store
func RegisterFixtures(t *testing.T, s *template.Store) {
	t.Helper()
	assert.NoError(t, s.Register(NewCaseTemplate()))
	assert.NoError(t, s.Register(NewQuickTemplate()))
}

// StartCase starts a fixture case instance and returns its ID
func (e *TestEngineEnv) StartCase(t *testing.T) api.InstanceID {
	t.Helper()
	id, err := e.Engine.StartInstance(context.Background(),
		&api.CreateInstanceRequest{
			TemplateID: CaseTemplate,
			SubjectID:  TestSubject,
			Actor:      TestActor,
		})
	assert.NoError(t, err)
	return id
}

// StartQuick starts a fixture quick-close instance and returns its ID
func (e *TestEngineEnv) StartQuick(t *testing.T) api.InstanceID {
	t.Helper()
	id, err := e.Engine.StartInstance(context.Background(),
		&api.CreateInstanceRequest{
			TemplateID: QuickTemplate,
			SubjectID:  TestSubject,
			Actor:      TestActor,
		})
	assert.NoError(t, err)
	return id
}

// Signal applies a signal to an instance, asserting success
func (e *TestEngineEnv) Signal(
	t *testing.T, id api.InstanceID, sig *api.Signal,
) {
	t.Helper()
	assert.NoError(t, e.Engine.Signal(context.Background(), id, sig))
}

// CompleteRequirement builds a complete-requirement signal
func CompleteRequirement(req api.RequirementID) *api.Signal {
	return &api.Signal{
		Kind:  api.SignalCompleteRequirement,
		Actor: TestActor,
		CompleteRequirement: &api.CompleteRequirementSignal{
			RequirementID: req,
		},
	}
}

// TransitionTo builds a stage transition signal
func TransitionTo(stage api.StageID) *api.Signal {
	return &api.Signal{
		Kind:  api.SignalTransitionStage,
		Actor: TestActor,
		TransitionStage: &api.TransitionStageSignal{
			To: stage,
		},
	}
}

// ForceTransitionTo builds a forced stage transition signal
func ForceTransitionTo(stage api.StageID, notes string) *api.Signal {
	return &api.Signal{
		Kind:  api.SignalTransitionStage,
		Actor: TestActor,
		TransitionStage: &api.TransitionStageSignal{
			To:    stage,
			Force: true,
			Notes: notes,
		},
	}
}

// AddDeadline builds an add-deadline signal
func AddDeadline(
	id api.ItemID, title string, dueAt time.Time,
) *api.Signal {
	return &api.Signal{
		Kind:  api.SignalAddDeadline,
		Actor: TestActor,
		AddDeadline: &api.AddDeadlineSignal{
			ID:    id,
			Title: title,
			DueAt: dueAt,
		},
	}
}

// RemoveDeadline builds a remove-deadline signal
func RemoveDeadline(id api.ItemID) *api.Signal {
	return &api.Signal{
		Kind:           api.SignalRemoveDeadline,
		Actor:          TestActor,
		RemoveDeadline: &api.RemoveItemSignal{ItemID: id},
	}
}

// AddCourtDate builds an add-court-date signal
func AddCourtDate(
	id api.ItemID, title string, at time.Time,
) *api.Signal {
	return &api.Signal{
		Kind:  api.SignalAddCourtDate,
		Actor: TestActor,
		AddCourtDate: &api.AddCourtDateSignal{
			ID:    id,
			Title: title,
			At:    at,
		},
	}
}

// RemoveCourtDate builds a remove-court-date signal
func RemoveCourtDate(id api.ItemID) *api.Signal {
	return &api.Signal{
		Kind:            api.SignalRemoveCourtDate,
		Actor:           TestActor,
		RemoveCourtDate: &api.RemoveItemSignal{ItemID: id},
	}
}

// Pause builds a pause signal
func Pause(reason string) *api.Signal {
	return &api.Signal{
		Kind:  api.SignalPause,
		Actor: TestActor,
		Pause: &api.ReasonSignal{Reason: reason},
	}
}

// Resume builds a resume signal
func Resume() *api.Signal {
	return &api.Signal{
		Kind:  api.SignalResume,
		Actor: TestActor,
	}
}

// Cancel builds a cancel signal
func Cancel(reason string) *api.Signal {
	return &api.Signal{
		Kind:   api.SignalCancel,
		Actor:  TestActor,
		Cancel: &api.ReasonSignal{Reason: reason},
	}
}
