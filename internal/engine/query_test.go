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

func TestListInstances(t *testing.T) {
	helpers.WithStartedEngine(t, func(env *helpers.TestEngineEnv) {
		as := assert.New(t)
		ctx := context.Background()
		consumer := env.EventHub.NewConsumer()
		defer consumer.Close()
		w := wait.On(t, consumer)

		first := env.StartCase(t)
		w.ForEvent(wait.InstanceActivated(first))
		second := env.StartQuick(t)
		w.ForEvent(wait.InstanceActivated(second))

		digests, err := env.Engine.ListInstances(ctx)
		as.NoError(err)
		as.Len(digests, 2)

		ids := make([]api.InstanceID, len(digests))
		for i, d := range digests {
			ids[i] = d.ID
		}
		as.Contains(ids, first)
		as.Contains(ids, second)

		// newest first
		as.False(digests[0].CreatedAt.Before(digests[1].CreatedAt))
	})
}

func TestDigestTracksStageTransitions(t *testing.T) {
	helpers.WithStartedEngine(t, func(env *helpers.TestEngineEnv) {
		as := assert.New(t)
		ctx := context.Background()
		consumer := env.EventHub.NewConsumer()
		defer consumer.Close()
		w := wait.On(t, consumer)

		id := env.StartCase(t)
		w.ForEvent(wait.InstanceActivated(id))

		env.Signal(t, id, helpers.CompleteRequirement(helpers.ReqIdentity))
		env.Signal(t, id, helpers.CompleteRequirement(helpers.ReqRetainer))
		env.Signal(t, id, helpers.TransitionTo(helpers.StageFiling))

		as.Eventually(func() bool {
			reg, err := env.Engine.GetRegistryState(ctx)
			if err != nil {
				return false
			}
			d, ok := reg.Digests[id]
			return ok && d.CurrentStage == helpers.StageFiling
		}, wait.DefaultTimeout, "registry digest did not track the stage")
	})
}

func TestGetAuditLog(t *testing.T) {
	helpers.WithTestEnv(t, func(env *helpers.TestEngineEnv) {
		as := assert.New(t)
		ctx := context.Background()
		id := env.StartCase(t)

		env.Signal(t, id, helpers.CompleteRequirement(helpers.ReqIdentity))
		env.Signal(t, id, helpers.CompleteRequirement(helpers.ReqRetainer))
		env.Signal(t, id, helpers.TransitionTo(helpers.StageFiling))

		entries, err := env.Engine.GetAuditLog(ctx, id)
		as.NoError(err)
		as.Len(entries, 4)

		as.Equal(api.EventTypeInstanceStarted, entries[0].Type)
		as.Equal(api.EventTypeRequirementCompleted, entries[1].Type)
		as.Equal(api.EventTypeRequirementCompleted, entries[2].Type)
		as.Equal(api.EventTypeStageTransitioned, entries[3].Type)

		for i, entry := range entries {
			as.Equal(int64(i), entry.Sequence)
			as.NotEmpty(entry.Data)
		}

		_, err = env.Engine.GetAuditLog(ctx, "no-such-instance")
		as.ErrorIs(err, api.ErrInstanceNotFound)
	})
}

func TestGetCurrentStage(t *testing.T) {
	helpers.WithTestEnv(t, func(env *helpers.TestEngineEnv) {
		as := assert.New(t)
		ctx := context.Background()
		id := env.StartCase(t)

		stage, err := env.Engine.GetCurrentStage(ctx, id)
		as.NoError(err)
		as.Equal(helpers.StageIntake, stage.ID)
		as.Equal("Intake", stage.Name)

		_, err = env.Engine.GetCurrentStage(ctx, "no-such-instance")
		as.ErrorIs(err, api.ErrInstanceNotFound)
	})
}

func TestGetPendingRequirements(t *testing.T) {
	helpers.WithTestEnv(t, func(env *helpers.TestEngineEnv) {
		as := assert.New(t)
		ctx := context.Background()
		id := env.StartCase(t)

		// the optional conflict check never appears as pending
		pending, err := env.Engine.GetPendingRequirements(ctx, id)
		as.NoError(err)
		as.Require.Len(pending, 2)
		as.Equal(helpers.ReqIdentity, pending[0].ID)
		as.Equal(helpers.ReqRetainer, pending[1].ID)

		env.Signal(t, id, helpers.CompleteRequirement(helpers.ReqIdentity))
		pending, err = env.Engine.GetPendingRequirements(ctx, id)
		as.NoError(err)
		as.Require.Len(pending, 1)
		as.Equal(helpers.ReqRetainer, pending[0].ID)

		env.Signal(t, id, helpers.CompleteRequirement(helpers.ReqRetainer))
		pending, err = env.Engine.GetPendingRequirements(ctx, id)
		as.NoError(err)
		as.Empty(pending)
	})
}

func TestDescribe(t *testing.T) {
	helpers.WithTestEnv(t, func(env *helpers.TestEngineEnv) {
		as := assert.New(t)
		ctx := context.Background()
		id := env.StartCase(t)
		now := time.Now()

		env.Signal(t, id, helpers.AddDeadline(
			"d-far", "File appeal", now.Add(5*24*time.Hour)))
		env.Signal(t, id, helpers.AddCourtDate(
			"h-near", "Status hearing", now.Add(48*time.Hour)))

		desc, err := env.Engine.Describe(ctx, id)
		as.NoError(err)
		as.Equal(id, desc.Digest.ID)
		as.Equal(api.RunActive, desc.Digest.RunState)
		as.Equal("Intake", desc.StageName)
		as.Equal([]api.RequirementID{
			helpers.ReqIdentity, helpers.ReqRetainer,
		}, desc.Pending)

		// the soonest calendar item wins, regardless of kind
		as.Require.NotNil(desc.NextItem)
		as.Equal(api.ItemID("h-near"), desc.NextItem.ItemID)
		as.Equal(api.ItemCourtDate, desc.NextItem.Kind)

		as.Require.Len(desc.StageHistory, 1)
		as.Equal(helpers.StageIntake, desc.StageHistory[0].StageID)

		_, err = env.Engine.Describe(ctx, "no-such-instance")
		as.ErrorIs(err, api.ErrInstanceNotFound)
	})
}

func TestGetSchedule(t *testing.T) {
	helpers.WithTestEnv(t, func(env *helpers.TestEngineEnv) {
		as := assert.New(t)
		ctx := context.Background()
		id := env.StartCase(t)
		now := time.Now()

		env.Signal(t, id, helpers.AddDeadline(
			"d-far", "File appeal", now.Add(5*24*time.Hour)))
		env.Signal(t, id, helpers.AddCourtDate(
			"h-mid", "Status hearing", now.Add(2*24*time.Hour)))
		env.Signal(t, id, helpers.AddDeadline(
			"d-near", "Serve notice", now.Add(24*time.Hour)))

		items, err := env.Engine.GetSchedule(ctx, id)
		as.NoError(err)
		as.Len(items, 3)

		as.Equal(api.ItemID("d-near"), items[0].ItemID)
		as.Equal(api.ItemID("h-mid"), items[1].ItemID)
		as.Equal(api.ItemID("d-far"), items[2].ItemID)
		as.Equal(api.ItemDeadline, items[0].Kind)
		as.Equal(api.ItemCourtDate, items[1].Kind)

		_, err = env.Engine.GetSchedule(ctx, "no-such-instance")
		as.ErrorIs(err, api.ErrInstanceNotFound)
	})
}
