package api

import (
	"errors"
	"fmt"

	"github.com/docketry/docket/pkg/util"
)

type (
	// Template defines the shape of a workflow: its stages, the requirements
	// that gate each stage, and the valid transitions between stages
	Template struct {
		ID      TemplateID `json:"id" yaml:"id"`
		Name    string     `json:"name" yaml:"name"`
		Version int        `json:"version" yaml:"version"`
		Initial StageID    `json:"initial" yaml:"initial"`
		Stages  []*Stage   `json:"stages" yaml:"stages"`
	}

	// Stage is a named step in a template's lifecycle. An instance may only
	// advance to one of the stage's declared next stages, and only once its
	// required requirements are complete
	Stage struct {
		ID           StageID        `json:"id" yaml:"id"`
		Name         string         `json:"name" yaml:"name"`
		Terminal     bool           `json:"terminal,omitempty" yaml:"terminal,omitempty"`
		Next         []StageID      `json:"next,omitempty" yaml:"next,omitempty"`
		Requirements []*Requirement `json:"requirements,omitempty" yaml:"requirements,omitempty"`
	}

	// Requirement is a unit of work that must be completed before its stage
	// can be exited. Optional requirements never block a transition
	Requirement struct {
		ID       RequirementID `json:"id" yaml:"id"`
		Name     string        `json:"name" yaml:"name"`
		Optional bool          `json:"optional,omitempty" yaml:"optional,omitempty"`
	}
)

var (
	ErrTemplateNoID       = errors.New("template has no id")
	ErrTemplateNoStages   = errors.New("template has no stages")
	ErrDuplicateStage     = errors.New("duplicate stage id")
	ErrUnknownNextStage   = errors.New("next references unknown stage")
	ErrUnknownInitial     = errors.New("initial references unknown stage")
	ErrTerminalHasNext    = errors.New("terminal stage declares next stages")
	ErrDuplicateRequire   = errors.New("duplicate requirement id")
	ErrRequirementNoID    = errors.New("requirement has no id")
	ErrStageNoID          = errors.New("stage has no id")
	ErrNoTerminalStage    = errors.New("template has no terminal stage")
	ErrTemplateBadVersion = errors.New("template version must be positive")
)

// Validate checks a template for structural consistency, after filling in
// the defaults stage order implies
func (t *Template) Validate() error {
	if t.ID == "" {
		return ErrTemplateNoID
	}
	if t.Version < 1 {
		return fmt.Errorf("%w: %s", ErrTemplateBadVersion, t.ID)
	}
	if len(t.Stages) == 0 {
		return fmt.Errorf("%w: %s", ErrTemplateNoStages, t.ID)
	}
	t.applyStageDefaults()
	stages := util.Set[StageID]{}
	hasTerminal := false
	for _, s := range t.Stages {
		if s.ID == "" {
			return fmt.Errorf("%w: template %s", ErrStageNoID, t.ID)
		}
		if stages.Contains(s.ID) {
			return fmt.Errorf("%w: %s", ErrDuplicateStage, s.ID)
		}
		stages.Add(s.ID)
		if s.Terminal {
			hasTerminal = true
			if len(s.Next) > 0 {
				return fmt.Errorf("%w: %s", ErrTerminalHasNext, s.ID)
			}
		}
		if err := s.validateRequirements(); err != nil {
			return err
		}
	}
	if !stages.Contains(t.Initial) {
		return fmt.Errorf("%w: %s", ErrUnknownInitial, t.Initial)
	}
	if !hasTerminal {
		return fmt.Errorf("%w: %s", ErrNoTerminalStage, t.ID)
	}
	for _, s := range t.Stages {
		for _, n := range s.Next {
			if !stages.Contains(n) {
				return fmt.Errorf(
					"%w: %s -> %s", ErrUnknownNextStage, s.ID, n,
				)
			}
		}
	}
	return nil
}

// applyStageDefaults fills in what the declared stage order implies: the
// first stage opens the workflow, a final stage with nowhere to go is
// terminal, and every other stage without declared next stages advances to
// its successor
func (t *Template) applyStageDefaults() {
	if t.Initial == "" {
		t.Initial = t.Stages[0].ID
	}
	last := t.Stages[len(t.Stages)-1]
	if !last.Terminal && len(last.Next) == 0 {
		last.Terminal = true
	}
	for i, s := range t.Stages[:len(t.Stages)-1] {
		if !s.Terminal && len(s.Next) == 0 {
			s.Next = []StageID{t.Stages[i+1].ID}
		}
	}
}

func (s *Stage) validateRequirements() error {
	seen := util.Set[RequirementID]{}
	for _, r := range s.Requirements {
		if r.ID == "" {
			return fmt.Errorf("%w: stage %s", ErrRequirementNoID, s.ID)
		}
		if seen.Contains(r.ID) {
			return fmt.Errorf("%w: %s", ErrDuplicateRequire, r.ID)
		}
		seen.Add(r.ID)
	}
	return nil
}

// GetStage returns the stage with the provided ID, or nil
func (t *Template) GetStage(id StageID) *Stage {
	for _, s := range t.Stages {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// CanAdvance returns whether the stage declares the target as a next stage
func (s *Stage) CanAdvance(to StageID) bool {
	for _, n := range s.Next {
		if n == to {
			return true
		}
	}
	return false
}

// GetRequirement returns the stage requirement with the provided ID, or nil
func (s *Stage) GetRequirement(id RequirementID) *Requirement {
	for _, r := range s.Requirements {
		if r.ID == id {
			return r
		}
	}
	return nil
}
