package api

import (
	"errors"
	"fmt"
	"time"
)

type (
	// SignalKind names an external command directed at a workflow instance
	SignalKind string

	// Signal is the envelope for all commands directed at an instance. One
	// payload field is populated according to Kind
	Signal struct {
		Kind                SignalKind                 `json:"kind"`
		Actor               ActorID                    `json:"actor"`
		CompleteRequirement *CompleteRequirementSignal `json:"complete_requirement,omitempty"`
		TransitionStage     *TransitionStageSignal     `json:"transition_stage,omitempty"`
		AddDeadline         *AddDeadlineSignal         `json:"add_deadline,omitempty"`
		RemoveDeadline      *RemoveItemSignal          `json:"remove_deadline,omitempty"`
		AddCourtDate        *AddCourtDateSignal        `json:"add_court_date,omitempty"`
		RemoveCourtDate     *RemoveItemSignal          `json:"remove_court_date,omitempty"`
		Pause               *ReasonSignal              `json:"pause,omitempty"`
		Cancel              *ReasonSignal              `json:"cancel,omitempty"`
	}

	// CompleteRequirementSignal marks a requirement of the current stage as
	// fulfilled
	CompleteRequirementSignal struct {
		RequirementID RequirementID     `json:"requirement_id"`
		Notes         string            `json:"notes,omitempty"`
		Metadata      map[string]string `json:"metadata,omitempty"`
	}

	// TransitionStageSignal advances the instance to another stage. Forced
	// transitions bypass requirement gating and must carry notes
	TransitionStageSignal struct {
		To    StageID `json:"to"`
		Force bool    `json:"force,omitempty"`
		Notes string  `json:"notes,omitempty"`
	}

	// AddDeadlineSignal attaches a deadline item to the instance
	AddDeadlineSignal struct {
		DueAt       time.Time `json:"due_at"`
		ID          ItemID    `json:"id,omitempty"`
		Title       string    `json:"title"`
		Description string    `json:"description,omitempty"`
	}

	// AddCourtDateSignal attaches a court date item to the instance
	AddCourtDateSignal struct {
		At       time.Time `json:"at"`
		ID       ItemID    `json:"id,omitempty"`
		Title    string    `json:"title"`
		Location string    `json:"location,omitempty"`
		Notes    string    `json:"notes,omitempty"`
	}

	// RemoveItemSignal detaches a calendar item from the instance
	RemoveItemSignal struct {
		ItemID ItemID `json:"item_id"`
	}

	// ReasonSignal carries an optional explanation for pause and cancel
	ReasonSignal struct {
		Reason string `json:"reason,omitempty"`
	}
)

const (
	SignalCompleteRequirement SignalKind = "complete_requirement"
	SignalTransitionStage     SignalKind = "transition_stage"
	SignalAddDeadline         SignalKind = "add_deadline"
	SignalRemoveDeadline      SignalKind = "remove_deadline"
	SignalAddCourtDate        SignalKind = "add_court_date"
	SignalRemoveCourtDate     SignalKind = "remove_court_date"
	SignalPause               SignalKind = "pause"
	SignalResume              SignalKind = "resume"
	SignalCancel              SignalKind = "cancel"
)

var (
	ErrUnknownSignalKind = errors.New("unknown signal kind")
	ErrMissingPayload    = errors.New("signal payload missing")
	ErrMissingActor      = errors.New("signal actor missing")
	ErrMissingTarget     = errors.New("transition target missing")
	ErrForceNeedsNotes   = errors.New("forced transition requires notes")
	ErrMissingTitle      = errors.New("calendar item title missing")
	ErrMissingItemTime   = errors.New("calendar item time missing")
	ErrMissingItemID     = errors.New("calendar item id missing")
	ErrMissingRequire    = errors.New("requirement id missing")
)

// Validate checks that a signal is well-formed: a known kind, an actor, and
// the payload that kind requires
func (s *Signal) Validate() error {
	if s.Actor == "" {
		return fmt.Errorf("%w: %s", ErrMissingActor, s.Kind)
	}
	switch s.Kind {
	case SignalCompleteRequirement:
		if s.CompleteRequirement == nil {
			return fmt.Errorf("%w: %s", ErrMissingPayload, s.Kind)
		}
		if s.CompleteRequirement.RequirementID == "" {
			return ErrMissingRequire
		}
	case SignalTransitionStage:
		if s.TransitionStage == nil {
			return fmt.Errorf("%w: %s", ErrMissingPayload, s.Kind)
		}
		if s.TransitionStage.To == "" {
			return ErrMissingTarget
		}
		if s.TransitionStage.Force && s.TransitionStage.Notes == "" {
			return ErrForceNeedsNotes
		}
	case SignalAddDeadline:
		if s.AddDeadline == nil {
			return fmt.Errorf("%w: %s", ErrMissingPayload, s.Kind)
		}
		if s.AddDeadline.Title == "" {
			return ErrMissingTitle
		}
		if s.AddDeadline.DueAt.IsZero() {
			return ErrMissingItemTime
		}
	case SignalRemoveDeadline:
		if s.RemoveDeadline == nil {
			return fmt.Errorf("%w: %s", ErrMissingPayload, s.Kind)
		}
		if s.RemoveDeadline.ItemID == "" {
			return ErrMissingItemID
		}
	case SignalAddCourtDate:
		if s.AddCourtDate == nil {
			return fmt.Errorf("%w: %s", ErrMissingPayload, s.Kind)
		}
		if s.AddCourtDate.Title == "" {
			return ErrMissingTitle
		}
		if s.AddCourtDate.At.IsZero() {
			return ErrMissingItemTime
		}
	case SignalRemoveCourtDate:
		if s.RemoveCourtDate == nil {
			return fmt.Errorf("%w: %s", ErrMissingPayload, s.Kind)
		}
		if s.RemoveCourtDate.ItemID == "" {
			return ErrMissingItemID
		}
	case SignalPause, SignalResume, SignalCancel:
		// no required payload
	default:
		return fmt.Errorf("%w: %s", ErrUnknownSignalKind, s.Kind)
	}
	return nil
}
