package api_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/docketry/docket/pkg/api"
)

func TestSignalValidate(t *testing.T) {
	due := time.Now().Add(time.Hour)

	tests := []struct {
		name   string
		signal *api.Signal
		want   error
	}{
		{
			name: "complete requirement",
			signal: &api.Signal{
				Kind:  api.SignalCompleteRequirement,
				Actor: "clerk",
				CompleteRequirement: &api.CompleteRequirementSignal{
					RequirementID: "identity",
				},
			},
		},
		{
			name: "missing actor",
			signal: &api.Signal{
				Kind: api.SignalPause,
			},
			want: api.ErrMissingActor,
		},
		{
			name: "unknown kind",
			signal: &api.Signal{
				Kind:  "launch",
				Actor: "clerk",
			},
			want: api.ErrUnknownSignalKind,
		},
		{
			name: "complete requirement without payload",
			signal: &api.Signal{
				Kind:  api.SignalCompleteRequirement,
				Actor: "clerk",
			},
			want: api.ErrMissingPayload,
		},
		{
			name: "complete requirement without id",
			signal: &api.Signal{
				Kind:                api.SignalCompleteRequirement,
				Actor:               "clerk",
				CompleteRequirement: &api.CompleteRequirementSignal{},
			},
			want: api.ErrMissingRequire,
		},
		{
			name: "transition",
			signal: &api.Signal{
				Kind:  api.SignalTransitionStage,
				Actor: "clerk",
				TransitionStage: &api.TransitionStageSignal{
					To: "filing",
				},
			},
		},
		{
			name: "transition without target",
			signal: &api.Signal{
				Kind:            api.SignalTransitionStage,
				Actor:           "clerk",
				TransitionStage: &api.TransitionStageSignal{},
			},
			want: api.ErrMissingTarget,
		},
		{
			name: "forced transition without notes",
			signal: &api.Signal{
				Kind:  api.SignalTransitionStage,
				Actor: "supervisor",
				TransitionStage: &api.TransitionStageSignal{
					To:    "filing",
					Force: true,
				},
			},
			want: api.ErrForceNeedsNotes,
		},
		{
			name: "forced transition with notes",
			signal: &api.Signal{
				Kind:  api.SignalTransitionStage,
				Actor: "supervisor",
				TransitionStage: &api.TransitionStageSignal{
					To:    "filing",
					Force: true,
					Notes: "court order",
				},
			},
		},
		{
			name: "add deadline",
			signal: &api.Signal{
				Kind:  api.SignalAddDeadline,
				Actor: "clerk",
				AddDeadline: &api.AddDeadlineSignal{
					Title: "File motion",
					DueAt: due,
				},
			},
		},
		{
			name: "add deadline without title",
			signal: &api.Signal{
				Kind:  api.SignalAddDeadline,
				Actor: "clerk",
				AddDeadline: &api.AddDeadlineSignal{
					DueAt: due,
				},
			},
			want: api.ErrMissingTitle,
		},
		{
			name: "add deadline without time",
			signal: &api.Signal{
				Kind:  api.SignalAddDeadline,
				Actor: "clerk",
				AddDeadline: &api.AddDeadlineSignal{
					Title: "File motion",
				},
			},
			want: api.ErrMissingItemTime,
		},
		{
			name: "remove deadline without id",
			signal: &api.Signal{
				Kind:           api.SignalRemoveDeadline,
				Actor:          "clerk",
				RemoveDeadline: &api.RemoveItemSignal{},
			},
			want: api.ErrMissingItemID,
		},
		{
			name: "add court date",
			signal: &api.Signal{
				Kind:  api.SignalAddCourtDate,
				Actor: "clerk",
				AddCourtDate: &api.AddCourtDateSignal{
					Title: "Preliminary hearing",
					At:    due,
				},
			},
		},
		{
			name: "remove court date without payload",
			signal: &api.Signal{
				Kind:  api.SignalRemoveCourtDate,
				Actor: "clerk",
			},
			want: api.ErrMissingPayload,
		},
		{
			name: "pause without payload",
			signal: &api.Signal{
				Kind:  api.SignalPause,
				Actor: "clerk",
			},
		},
		{
			name: "resume",
			signal: &api.Signal{
				Kind:  api.SignalResume,
				Actor: "clerk",
			},
		},
		{
			name: "cancel",
			signal: &api.Signal{
				Kind:   api.SignalCancel,
				Actor:  "clerk",
				Cancel: &api.ReasonSignal{Reason: "settled"},
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.signal.Validate()
			if tc.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.want)
		})
	}
}
