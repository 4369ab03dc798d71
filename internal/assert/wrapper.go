package assert

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/docketry/docket/internal/config"
	"github.com/docketry/docket/pkg/api"
)

type (
	// Getter retrieves projected instance state
	Getter interface {
		GetInstanceState(
			ctx context.Context, id api.InstanceID,
		) (*api.InstanceState, error)
	}

	// Wrapper wraps testify assertions with Docket-specific helpers
	Wrapper struct {
		*testing.T
		*assert.Assertions
		Require *assert.Assertions
	}
)

// DefaultRetryInterval is the default polling interval for Eventually checks
const DefaultRetryInterval = 100 * time.Millisecond

// New creates a new test assertion wrapper with both assert and require from
// testify plus Docket-specific helpers
func New(t *testing.T) *Wrapper {
	return &Wrapper{
		T:          t,
		Assertions: assert.New(t),
		Require:    assert.New(t),
	}
}

// TemplateValid asserts that a template passes validation
func (w *Wrapper) TemplateValid(t *api.Template) {
	w.Helper()
	w.NoError(t.Validate())
	w.NotEmpty(t.ID)
	w.NotEmpty(t.Stages)
}

// TemplateInvalid asserts that a template fails validation and returns the
// validation error
func (w *Wrapper) TemplateInvalid(
	t *api.Template, expectedErrorContains string,
) error {
	w.Helper()
	err := t.Validate()
	w.Error(err)
	if err != nil && expectedErrorContains != "" {
		w.Contains(err.Error(), expectedErrorContains)
	}
	return err
}

// RunState asserts the run state of an instance
func (w *Wrapper) RunState(st *api.InstanceState, expected api.RunState) {
	w.Helper()
	w.Equal(expected, st.RunState)
}

// InstanceStage asserts that an instance is at the expected stage
func (w *Wrapper) InstanceStage(
	ctx context.Context, get Getter, id api.InstanceID, stage api.StageID,
) {
	w.Helper()
	st, err := get.GetInstanceState(ctx, id)
	w.NoError(err, "failed to get instance: %s", id)
	w.Equal(stage, st.CurrentStage)
}

// InstanceRunState asserts that an instance is in the expected run state
func (w *Wrapper) InstanceRunState(
	ctx context.Context, get Getter, id api.InstanceID, state api.RunState,
) {
	w.Helper()
	st, err := get.GetInstanceState(ctx, id)
	w.NoError(err, "failed to get instance: %s", id)
	w.Equal(state, st.RunState)
}

// RequirementComplete asserts that a requirement is recorded complete
func (w *Wrapper) RequirementComplete(
	st *api.InstanceState, stage api.StageID, req api.RequirementID,
) {
	w.Helper()
	w.True(st.RequirementComplete(api.ReqKey(stage, req)),
		"requirement %s/%s should be complete", stage, req)
}

// ConfigValid asserts that a configuration is valid
func (w *Wrapper) ConfigValid(cfg *config.Config) {
	w.Helper()
	w.NoError(cfg.Validate())
	w.True(cfg.APIPort > 0 && cfg.APIPort <= 65535)
	w.True(cfg.Activity.MaxAttempts != 0)
}

// ConfigInvalid asserts that a configuration is invalid
func (w *Wrapper) ConfigInvalid(cfg *config.Config, contains string) {
	w.Helper()
	err := cfg.Validate()
	w.Error(err)
	if contains != "" {
		w.Contains(err.Error(), contains)
	}
}

// Eventually runs a condition repeatedly until it passes or times out
func (w *Wrapper) Eventually(
	condition func() bool, timeout time.Duration, msg string, args ...any,
) {
	w.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(DefaultRetryInterval)
	}
	w.Fail(msg, args...)
}

// EventuallyWithError runs a condition that returns an error until it
// succeeds or times out
func (w *Wrapper) EventuallyWithError(
	condition func() error, timeout time.Duration, msg string, args ...any,
) {
	w.Helper()
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		err := condition()
		if err == nil {
			return
		}
		lastErr = err
		time.Sleep(DefaultRetryInterval)
	}
	if lastErr != nil {
		w.Fail(msg+": last error: "+lastErr.Error(), args...)
		return
	}
	w.Fail(msg, args...)
}
