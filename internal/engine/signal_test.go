package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/docketry/docket/internal/assert"
	"github.com/docketry/docket/internal/assert/helpers"
	"github.com/docketry/docket/internal/assert/wait"
	"github.com/docketry/docket/pkg/api"
)

func TestStartInstanceValidation(t *testing.T) {
	helpers.WithTestEnv(t, func(env *helpers.TestEngineEnv) {
		as := assert.New(t)
		ctx := context.Background()

		_, err := env.Engine.StartInstance(ctx, &api.CreateInstanceRequest{
			TemplateID: helpers.CaseTemplate,
		})
		as.ErrorIs(err, api.ErrValidation)

		_, err = env.Engine.StartInstance(ctx, &api.CreateInstanceRequest{
			TemplateID: "no-such-template",
			SubjectID:  helpers.TestSubject,
			Actor:      helpers.TestActor,
		})
		as.ErrorIs(err, api.ErrTemplateNotFound)
	})
}

func TestStartInstanceGeneratesID(t *testing.T) {
	helpers.WithTestEnv(t, func(env *helpers.TestEngineEnv) {
		as := assert.New(t)
		id := env.StartCase(t)
		as.NotEmpty(id)

		st, err := env.Engine.GetInstanceState(context.Background(), id)
		as.NoError(err)
		as.Equal(id, st.ID)
		as.Equal(helpers.TestSubject, st.SubjectID)
		as.RunState(st, api.RunActive)
		as.Equal(helpers.StageIntake, st.CurrentStage)
	})
}

func TestStartInstanceExplicitIDConflicts(t *testing.T) {
	helpers.WithTestEnv(t, func(env *helpers.TestEngineEnv) {
		as := assert.New(t)
		ctx := context.Background()
		req := &api.CreateInstanceRequest{
			ID:         "case-explicit",
			TemplateID: helpers.CaseTemplate,
			SubjectID:  helpers.TestSubject,
			Actor:      helpers.TestActor,
		}

		id, err := env.Engine.StartInstance(ctx, req)
		as.NoError(err)
		as.Equal(api.InstanceID("case-explicit"), id)

		_, err = env.Engine.StartInstance(ctx, req)
		as.ErrorIs(err, api.ErrInstanceExists)
	})
}

func TestSignalRejectsInvalid(t *testing.T) {
	helpers.WithTestEnv(t, func(env *helpers.TestEngineEnv) {
		as := assert.New(t)
		ctx := context.Background()
		id := env.StartCase(t)

		err := env.Engine.Signal(ctx, id, &api.Signal{
			Kind: api.SignalPause,
		})
		as.ErrorIs(err, api.ErrValidation)

		err = env.Engine.Signal(ctx, "no-such-instance", helpers.Pause(""))
		as.ErrorIs(err, api.ErrInstanceNotFound)
	})
}

func TestRequirementsGateTransition(t *testing.T) {
	helpers.WithTestEnv(t, func(env *helpers.TestEngineEnv) {
		as := assert.New(t)
		ctx := context.Background()
		id := env.StartCase(t)

		err := env.Engine.Signal(ctx, id,
			helpers.TransitionTo(helpers.StageFiling))
		as.ErrorIs(err, api.ErrRequirementsIncomplete)

		env.Signal(t, id, helpers.CompleteRequirement(helpers.ReqIdentity))
		err = env.Engine.Signal(ctx, id,
			helpers.TransitionTo(helpers.StageFiling))
		as.ErrorIs(err, api.ErrRequirementsIncomplete)

		// the optional conflict check never gates the transition
		env.Signal(t, id, helpers.CompleteRequirement(helpers.ReqRetainer))
		env.Signal(t, id, helpers.TransitionTo(helpers.StageFiling))
		as.InstanceStage(ctx, env.Engine, id, helpers.StageFiling)

		st, err := env.Engine.GetInstanceState(ctx, id)
		as.NoError(err)
		as.Require.Len(st.StageHistory, 2)
		as.Equal(helpers.StageIntake, st.StageHistory[0].StageID)
		as.False(st.StageHistory[0].ExitedAt.IsZero())
		as.Equal(helpers.StageFiling, st.StageHistory[1].StageID)
		as.True(st.StageHistory[1].ExitedAt.IsZero())
	})
}

func TestTerminalStageRequirementAutoCompletes(t *testing.T) {
	helpers.WithTestEnv(t, func(env *helpers.TestEngineEnv) {
		as := assert.New(t)
		ctx := context.Background()

		as.NoError(env.Templates.Register(&api.Template{
			ID:      "signoff",
			Name:    "Signoff",
			Version: 1,
			Initial: "work",
			Stages: []*api.Stage{
				{ID: "work", Name: "Work", Next: []api.StageID{"closed"}},
				{
					ID:       "closed",
					Name:     "Closed",
					Terminal: true,
					Requirements: []*api.Requirement{
						{ID: "final-signoff", Name: "Final Signoff"},
					},
				},
			},
		}))

		id, err := env.Engine.StartInstance(ctx, &api.CreateInstanceRequest{
			TemplateID: "signoff",
			SubjectID:  helpers.TestSubject,
			Actor:      helpers.TestActor,
		})
		as.NoError(err)

		// entering the terminal stage does not complete the instance while
		// its own requirement is outstanding
		env.Signal(t, id, helpers.TransitionTo("closed"))
		st, err := env.Engine.GetInstanceState(ctx, id)
		as.NoError(err)
		as.RunState(st, api.RunActive)

		env.Signal(t, id, helpers.CompleteRequirement("final-signoff"))
		st, err = env.Engine.GetInstanceState(ctx, id)
		as.NoError(err)
		as.RunState(st, api.RunCompleted)
	})
}

func TestCompleteRequirementEdgeCases(t *testing.T) {
	helpers.WithTestEnv(t, func(env *helpers.TestEngineEnv) {
		as := assert.New(t)
		ctx := context.Background()
		id := env.StartCase(t)

		err := env.Engine.Signal(ctx, id,
			helpers.CompleteRequirement("no-such-requirement"))
		as.ErrorIs(err, api.ErrValidation)

		env.Signal(t, id, helpers.CompleteRequirement(helpers.ReqIdentity))
		// completing twice is a no-op
		env.Signal(t, id, helpers.CompleteRequirement(helpers.ReqIdentity))

		sig := helpers.CompleteRequirement(helpers.ReqRetainer)
		sig.CompleteRequirement.Metadata = map[string]string{
			"document": "retainer-2026-118",
		}
		env.Signal(t, id, sig)

		st, err := env.Engine.GetInstanceState(ctx, id)
		as.NoError(err)
		as.RequirementComplete(st, helpers.StageIntake, helpers.ReqIdentity)

		key := api.ReqKey(helpers.StageIntake, helpers.ReqRetainer)
		as.Equal("retainer-2026-118",
			st.Requirements[key].Metadata["document"])
	})
}

func TestTransitionTargetValidation(t *testing.T) {
	helpers.WithTestEnv(t, func(env *helpers.TestEngineEnv) {
		as := assert.New(t)
		ctx := context.Background()
		id := env.StartCase(t)

		err := env.Engine.Signal(ctx, id,
			helpers.TransitionTo("no-such-stage"))
		as.ErrorIs(err, api.ErrValidation)

		// closed is not reachable from intake in the case template
		err = env.Engine.Signal(ctx, id,
			helpers.TransitionTo(helpers.StageClosed))
		as.ErrorIs(err, api.ErrStateConflict)
	})
}

func TestForcedTransitionBypassesGates(t *testing.T) {
	helpers.WithTestEnv(t, func(env *helpers.TestEngineEnv) {
		as := assert.New(t)
		ctx := context.Background()
		id := env.StartCase(t)

		env.Signal(t, id, helpers.ForceTransitionTo(
			helpers.StageClosed, "court ordered dismissal",
		))
		st, err := env.Engine.GetInstanceState(ctx, id)
		as.NoError(err)
		as.Equal(helpers.StageClosed, st.CurrentStage)
		as.RunState(st, api.RunCompleted)
	})
}

func TestTerminalStageCompletesInstance(t *testing.T) {
	helpers.WithStartedEngine(t, func(env *helpers.TestEngineEnv) {
		as := assert.New(t)
		ctx := context.Background()
		consumer := env.EventHub.NewConsumer()
		defer consumer.Close()
		w := wait.On(t, consumer)

		id := env.StartQuick(t)
		env.Signal(t, id, helpers.TransitionTo(helpers.StageClosed))
		w.ForEvent(wait.InstanceDeactivated(id))

		as.InstanceRunState(ctx, env.Engine, id, api.RunCompleted)

		err := env.Engine.Signal(ctx, id, helpers.Pause(""))
		as.ErrorIs(err, api.ErrStateConflict)

		as.Eventually(func() bool {
			for _, n := range env.Notices.Notices() {
				if n.InstanceID == id && n.Kind == "completed" {
					return true
				}
			}
			return false
		}, wait.DefaultTimeout, "completion notice not delivered")
	})
}

func TestPauseAndResume(t *testing.T) {
	helpers.WithTestEnv(t, func(env *helpers.TestEngineEnv) {
		as := assert.New(t)
		ctx := context.Background()
		id := env.StartCase(t)

		err := env.Engine.Signal(ctx, id, helpers.Resume())
		as.ErrorIs(err, api.ErrStateConflict)

		env.Signal(t, id, helpers.Pause("awaiting client documents"))
		as.InstanceRunState(ctx, env.Engine, id, api.RunPaused)

		// a paused instance rejects workflow progress
		err = env.Engine.Signal(ctx, id,
			helpers.CompleteRequirement(helpers.ReqIdentity))
		as.ErrorIs(err, api.ErrPaused)
		err = env.Engine.Signal(ctx, id, helpers.Pause(""))
		as.ErrorIs(err, api.ErrPaused)

		// but its calendar stays manageable while the matter is on hold
		env.Signal(t, id, helpers.AddDeadline(
			"d-paused", "File motion", time.Now().Add(72*time.Hour)))
		env.Signal(t, id, helpers.RemoveDeadline("d-paused"))

		env.Signal(t, id, helpers.Resume())
		as.InstanceRunState(ctx, env.Engine, id, api.RunActive)

		env.Signal(t, id, helpers.CompleteRequirement(helpers.ReqIdentity))
	})
}

func TestCancelFromActiveAndPaused(t *testing.T) {
	helpers.WithTestEnv(t, func(env *helpers.TestEngineEnv) {
		as := assert.New(t)
		ctx := context.Background()

		active := env.StartCase(t)
		env.Signal(t, active, helpers.Cancel("client withdrew"))
		as.InstanceRunState(ctx, env.Engine, active, api.RunCancelled)

		err := env.Engine.Signal(ctx, active, helpers.Pause(""))
		as.ErrorIs(err, api.ErrCancelled)
		err = env.Engine.Signal(ctx, active, helpers.Cancel(""))
		as.ErrorIs(err, api.ErrCancelled)

		paused := env.StartCase(t)
		env.Signal(t, paused, helpers.Pause(""))
		env.Signal(t, paused, helpers.Cancel("matter settled"))
		as.InstanceRunState(ctx, env.Engine, paused, api.RunCancelled)
	})
}

func TestDeadlineSignals(t *testing.T) {
	helpers.WithTestEnv(t, func(env *helpers.TestEngineEnv) {
		as := assert.New(t)
		ctx := context.Background()
		id := env.StartCase(t)
		due := time.Now().Add(72 * time.Hour)

		err := env.Engine.Signal(ctx, id, helpers.AddDeadline(
			"past", "Too Late", time.Now().Add(-time.Hour),
		))
		as.ErrorIs(err, api.ErrValidation)

		env.Signal(t, id, helpers.AddDeadline("d1", "File motion", due))
		err = env.Engine.Signal(ctx, id,
			helpers.AddDeadline("d1", "File motion", due))
		as.ErrorIs(err, api.ErrStateConflict)

		err = env.Engine.Signal(ctx, id, helpers.RemoveDeadline("missing"))
		as.ErrorIs(err, api.ErrItemNotFound)

		env.Signal(t, id, helpers.RemoveDeadline("d1"))
		st, err := env.Engine.GetInstanceState(ctx, id)
		as.NoError(err)
		as.Empty(st.Deadlines)

		sig := helpers.AddDeadline("d2", "File brief", due)
		sig.AddDeadline.Description = "opening brief for the appeal"
		env.Signal(t, id, sig)
		st, err = env.Engine.GetInstanceState(ctx, id)
		as.NoError(err)
		as.Equal("opening brief for the appeal",
			st.Deadlines["d2"].Description)
	})
}

func TestCourtDateSignals(t *testing.T) {
	helpers.WithTestEnv(t, func(env *helpers.TestEngineEnv) {
		as := assert.New(t)
		ctx := context.Background()
		id := env.StartCase(t)
		at := time.Now().Add(96 * time.Hour)

		env.Signal(t, id, helpers.AddCourtDate("h1", "Status hearing", at))
		err := env.Engine.Signal(ctx, id,
			helpers.AddCourtDate("h1", "Status hearing", at))
		as.ErrorIs(err, api.ErrStateConflict)

		err = env.Engine.Signal(ctx, id, helpers.RemoveCourtDate("missing"))
		as.ErrorIs(err, api.ErrItemNotFound)

		env.Signal(t, id, helpers.RemoveCourtDate("h1"))
		st, err := env.Engine.GetInstanceState(ctx, id)
		as.NoError(err)
		as.Empty(st.CourtDates)

		sig := helpers.AddCourtDate("h2", "Pretrial conference", at)
		sig.AddCourtDate.Notes = "judge requested counsel attend in person"
		env.Signal(t, id, sig)
		st, err = env.Engine.GetInstanceState(ctx, id)
		as.NoError(err)
		as.Equal("judge requested counsel attend in person",
			st.CourtDates["h2"].Notes)
	})
}

func TestFailInstance(t *testing.T) {
	helpers.WithTestEnv(t, func(env *helpers.TestEngineEnv) {
		as := assert.New(t)
		ctx := context.Background()
		id := env.StartCase(t)

		as.NoError(env.Engine.FailInstance(ctx, id, "stream corrupted"))
		as.InstanceRunState(ctx, env.Engine, id, api.RunFailed)

		err := env.Engine.FailInstance(ctx, id, "again")
		as.ErrorIs(err, api.ErrStateConflict)
	})
}
