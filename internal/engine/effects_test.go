package engine_test

import (
	"context"
	"strings"
	"testing"

	"gocloud.dev/blob/memblob"

	"github.com/docketry/docket/internal/archive"
	"github.com/docketry/docket/internal/assert"
	"github.com/docketry/docket/internal/assert/helpers"
	"github.com/docketry/docket/internal/assert/wait"
	"github.com/docketry/docket/internal/engine"
	"github.com/docketry/docket/pkg/api"
)

func TestCompletedInstanceArchives(t *testing.T) {
	bucket := memblob.OpenBucket(nil)
	arch := archive.NewWithBucket(bucket, "docket/")
	deps := &engine.Deps{Archiver: arch}

	helpers.WithTestEnvDeps(t, deps, func(env *helpers.TestEngineEnv) {
		env.Engine.Start()
		as := assert.New(t)
		ctx := context.Background()
		consumer := env.EventHub.NewConsumer()
		defer consumer.Close()
		w := wait.On(t, consumer)

		id := env.StartQuick(t)
		env.Signal(t, id, helpers.TransitionTo(helpers.StageClosed))
		w.ForEvent(wait.InstanceDeactivated(id))

		as.Eventually(func() bool {
			st, err := arch.Load(ctx, id)
			return err == nil && st.RunState == api.RunCompleted
		}, wait.DefaultTimeout, "completed instance was not archived")
	})
}

func TestCriticalArchiveFailureFailsInstance(t *testing.T) {
	// a closed bucket makes every store attempt fail as transient, so the
	// archive activity exhausts its retries
	bucket := memblob.OpenBucket(nil)
	arch := archive.NewWithBucket(bucket, "docket/")
	if err := bucket.Close(); err != nil {
		t.Fatal(err)
	}
	deps := &engine.Deps{Archiver: arch}

	helpers.WithTestEnvDeps(t, deps, func(env *helpers.TestEngineEnv) {
		env.Engine.Start()
		as := assert.New(t)
		ctx := context.Background()

		id := env.StartQuick(t)
		env.Signal(t, id, helpers.TransitionTo(helpers.StageClosed))

		as.Eventually(func() bool {
			st, err := env.Engine.GetInstanceState(ctx, id)
			if err != nil {
				return false
			}
			return st.RunState == api.RunFailed &&
				strings.Contains(st.Error, "archive_instance")
		}, wait.DefaultTimeout, "archive failure did not fail the instance")
	})
}

func TestForcedTransitionAppendsNote(t *testing.T) {
	helpers.WithStartedEngine(t, func(env *helpers.TestEngineEnv) {
		as := assert.New(t)
		id := env.StartCase(t)

		env.Signal(t, id, helpers.ForceTransitionTo(
			helpers.StageFiling, "court ordered expedition",
		))

		as.Eventually(func() bool {
			for _, n := range env.Subjects.Notes() {
				if n.InstanceID == id &&
					strings.Contains(n.Text, "court ordered expedition") {
					return true
				}
			}
			return false
		}, wait.DefaultTimeout, "forced transition note not appended")
	})
}
