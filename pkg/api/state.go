package api

import (
	"maps"
	"slices"
	"time"
)

type (
	// RunState represents the lifecycle state of a workflow instance
	RunState string

	// ReminderLabel names a reminder offset relative to a calendar item,
	// such as "7d" before a deadline or "24h" before a court date
	ReminderLabel string

	// ItemKind distinguishes the kinds of calendar items an instance tracks
	ItemKind string

	// RequirementKey uniquely identifies a requirement within an instance,
	// combining its stage and requirement identifiers
	RequirementKey string

	// ReminderKey uniquely identifies a reminder within an instance,
	// combining its calendar item and offset label
	ReminderKey string

	// RequirementState records the completion of a single requirement
	RequirementState struct {
		StageID       StageID           `json:"stage_id"`
		RequirementID RequirementID     `json:"requirement_id"`
		CompletedBy   ActorID           `json:"completed_by"`
		CompletedAt   time.Time         `json:"completed_at"`
		Notes         string            `json:"notes,omitempty"`
		Metadata      map[string]string `json:"metadata,omitempty"`
	}

	// DeadlineItem is a dated obligation tracked by an instance. Reminders
	// fire at fixed offsets before DueAt, and an overdue notice fires once
	// DueAt passes without the item being removed
	DeadlineItem struct {
		ID          ItemID    `json:"id"`
		Title       string    `json:"title"`
		Description string    `json:"description,omitempty"`
		DueAt       time.Time `json:"due_at"`
		CreatedBy   ActorID   `json:"created_by"`
		CreatedAt   time.Time `json:"created_at"`
	}

	// CourtDateItem is a scheduled appearance tracked by an instance.
	// Reminders fire at fixed offsets before At
	CourtDateItem struct {
		ID        ItemID    `json:"id"`
		Title     string    `json:"title"`
		At        time.Time `json:"at"`
		Location  string    `json:"location,omitempty"`
		Notes     string    `json:"notes,omitempty"`
		CreatedBy ActorID   `json:"created_by"`
		CreatedAt time.Time `json:"created_at"`
	}

	// StageVisit records one stay in a stage. ExitedAt stays zero while the
	// instance still occupies the stage
	StageVisit struct {
		StageID       StageID   `json:"stage_id"`
		Name          string    `json:"name,omitempty"`
		EnteredAt     time.Time `json:"entered_at"`
		ExitedAt      time.Time `json:"exited_at,omitempty"`
		DurationHours float64   `json:"duration_hours,omitempty"`
	}

	// InstanceState contains the complete state of a workflow instance. The
	// template is bound at start time so later template edits never affect
	// a running instance
	InstanceState struct {
		CreatedAt      time.Time                           `json:"created_at"`
		CompletedAt    time.Time                           `json:"completed_at,omitempty"`
		LastUpdated    time.Time                           `json:"last_updated"`
		Template       *Template                           `json:"template"`
		Requirements   map[RequirementKey]*RequirementState `json:"requirements"`
		Deadlines      map[ItemID]*DeadlineItem            `json:"deadlines"`
		CourtDates     map[ItemID]*CourtDateItem           `json:"court_dates"`
		RemindersFired map[ReminderKey]time.Time           `json:"reminders_fired"`
		StageHistory   []*StageVisit                       `json:"stage_history"`
		ID             InstanceID                          `json:"id"`
		SubjectID      SubjectID                           `json:"subject_id"`
		CurrentStage   StageID                             `json:"current_stage"`
		RunState       RunState                            `json:"run_state"`
		Error          string                              `json:"error,omitempty"`
	}

	// ActiveInstanceInfo tracks basic metadata for active instances
	ActiveInstanceInfo struct {
		InstanceID InstanceID `json:"instance_id"`
		SubjectID  SubjectID  `json:"subject_id"`
		TemplateID TemplateID `json:"template_id"`
		StartedAt  time.Time  `json:"started_at"`
		LastActive time.Time  `json:"last_active"`
	}

	// InstanceDigest provides summary information about an instance
	InstanceDigest struct {
		ID           InstanceID `json:"id"`
		TemplateID   TemplateID `json:"template_id"`
		SubjectID    SubjectID  `json:"subject_id"`
		RunState     RunState   `json:"run_state"`
		CurrentStage StageID    `json:"current_stage"`
		CreatedAt    time.Time  `json:"created_at"`
		CompletedAt  time.Time  `json:"completed_at,omitempty"`
		Error        string     `json:"error,omitempty"`
	}

	// RegistryState contains the global state of the docket engine
	RegistryState struct {
		LastUpdated time.Time                          `json:"last_updated"`
		Active      map[InstanceID]*ActiveInstanceInfo `json:"active_instances"`
		Digests     map[InstanceID]*InstanceDigest     `json:"digests"`
	}
)

const (
	RunActive    RunState = "active"
	RunPaused    RunState = "paused"
	RunCompleted RunState = "completed"
	RunCancelled RunState = "cancelled"
	RunFailed    RunState = "failed"
)

const (
	ItemDeadline  ItemKind = "deadline"
	ItemCourtDate ItemKind = "court_date"
)

const (
	Remind7Days  ReminderLabel = "7d"
	Remind3Days  ReminderLabel = "3d"
	Remind1Day   ReminderLabel = "1d"
	Remind48Hrs  ReminderLabel = "48h"
	Remind24Hrs  ReminderLabel = "24h"
	RemindDue    ReminderLabel = "overdue"
)

// ReqKey composes a RequirementKey from a stage and requirement identifier
func ReqKey(stage StageID, req RequirementID) RequirementKey {
	return RequirementKey(string(stage) + "/" + string(req))
}

// RemKey composes a ReminderKey from a calendar item and offset label
func RemKey(item ItemID, label ReminderLabel) ReminderKey {
	return ReminderKey(string(item) + "/" + string(label))
}

// IsTerminal reports whether the run state admits no further transitions
func (s RunState) IsTerminal() bool {
	switch s {
	case RunCompleted, RunCancelled, RunFailed:
		return true
	}
	return false
}

// SetRunState returns a new InstanceState with the updated run state
func (st *InstanceState) SetRunState(s RunState) *InstanceState {
	res := *st
	res.RunState = s
	return &res
}

// SetCurrentStage returns a new InstanceState positioned at the given stage
func (st *InstanceState) SetCurrentStage(id StageID) *InstanceState {
	res := *st
	res.CurrentStage = id
	return &res
}

// EnterStage returns a new InstanceState positioned at the given stage. The
// open stage history entry is closed with the exit time and the new stage
// opens a fresh one, so the history remains append-only
func (st *InstanceState) EnterStage(id StageID, at time.Time) *InstanceState {
	res := *st
	res.CurrentStage = id
	history := slices.Clone(st.StageHistory)
	if n := len(history); n > 0 && history[n-1].ExitedAt.IsZero() {
		closed := *history[n-1]
		closed.ExitedAt = at
		closed.DurationHours = at.Sub(closed.EnteredAt).Hours()
		history[n-1] = &closed
	}
	name := ""
	if st.Template != nil {
		if stage := st.Template.GetStage(id); stage != nil {
			name = stage.Name
		}
	}
	res.StageHistory = append(history, &StageVisit{
		StageID:   id,
		Name:      name,
		EnteredAt: at,
	})
	return &res
}

// SetRequirement returns a new InstanceState with the requirement recorded
func (st *InstanceState) SetRequirement(
	key RequirementKey, req *RequirementState,
) *InstanceState {
	res := *st
	res.Requirements = maps.Clone(st.Requirements)
	if res.Requirements == nil {
		res.Requirements = map[RequirementKey]*RequirementState{}
	}
	res.Requirements[key] = req
	return &res
}

// SetDeadline returns a new InstanceState with the deadline item added
func (st *InstanceState) SetDeadline(item *DeadlineItem) *InstanceState {
	res := *st
	res.Deadlines = maps.Clone(st.Deadlines)
	if res.Deadlines == nil {
		res.Deadlines = map[ItemID]*DeadlineItem{}
	}
	res.Deadlines[item.ID] = item
	return &res
}

// DeleteDeadline returns a new InstanceState with the deadline item removed
func (st *InstanceState) DeleteDeadline(id ItemID) *InstanceState {
	res := *st
	res.Deadlines = maps.Clone(st.Deadlines)
	delete(res.Deadlines, id)
	return &res
}

// SetCourtDate returns a new InstanceState with the court date item added
func (st *InstanceState) SetCourtDate(item *CourtDateItem) *InstanceState {
	res := *st
	res.CourtDates = maps.Clone(st.CourtDates)
	if res.CourtDates == nil {
		res.CourtDates = map[ItemID]*CourtDateItem{}
	}
	res.CourtDates[item.ID] = item
	return &res
}

// DeleteCourtDate returns a new InstanceState with the court date removed
func (st *InstanceState) DeleteCourtDate(id ItemID) *InstanceState {
	res := *st
	res.CourtDates = maps.Clone(st.CourtDates)
	delete(res.CourtDates, id)
	return &res
}

// SetReminderFired returns a new InstanceState with the reminder recorded
func (st *InstanceState) SetReminderFired(
	key ReminderKey, at time.Time,
) *InstanceState {
	res := *st
	res.RemindersFired = maps.Clone(st.RemindersFired)
	if res.RemindersFired == nil {
		res.RemindersFired = map[ReminderKey]time.Time{}
	}
	res.RemindersFired[key] = at
	return &res
}

// SetCompletedAt returns a new InstanceState with the completion time set
func (st *InstanceState) SetCompletedAt(t time.Time) *InstanceState {
	res := *st
	res.CompletedAt = t
	return &res
}

// SetError returns a new InstanceState with the error message set
func (st *InstanceState) SetError(err string) *InstanceState {
	res := *st
	res.Error = err
	return &res
}

// SetLastUpdated returns a new InstanceState with last updated time set
func (st *InstanceState) SetLastUpdated(t time.Time) *InstanceState {
	res := *st
	res.LastUpdated = t
	return &res
}

// ReminderFired reports whether the given reminder has already fired
func (st *InstanceState) ReminderFired(key ReminderKey) bool {
	_, ok := st.RemindersFired[key]
	return ok
}

// RequirementComplete reports whether the requirement has been completed
func (st *InstanceState) RequirementComplete(key RequirementKey) bool {
	_, ok := st.Requirements[key]
	return ok
}

// IncompleteRequirements returns the required, incomplete requirements of
// the instance's current stage
func (st *InstanceState) IncompleteRequirements() []RequirementID {
	stage := st.Template.GetStage(st.CurrentStage)
	if stage == nil {
		return nil
	}
	var res []RequirementID
	for _, r := range stage.Requirements {
		if r.Optional {
			continue
		}
		if !st.RequirementComplete(ReqKey(stage.ID, r.ID)) {
			res = append(res, r.ID)
		}
	}
	return res
}

// Digest produces an InstanceDigest summarizing the instance
func (st *InstanceState) Digest() *InstanceDigest {
	return &InstanceDigest{
		ID:           st.ID,
		TemplateID:   st.Template.ID,
		SubjectID:    st.SubjectID,
		RunState:     st.RunState,
		CurrentStage: st.CurrentStage,
		CreatedAt:    st.CreatedAt,
		CompletedAt:  st.CompletedAt,
		Error:        st.Error,
	}
}

// SetActiveInstance returns a new RegistryState with the instance as active
func (st *RegistryState) SetActiveInstance(
	id InstanceID, info *ActiveInstanceInfo,
) *RegistryState {
	res := *st
	res.Active = maps.Clone(st.Active)
	if res.Active == nil {
		res.Active = map[InstanceID]*ActiveInstanceInfo{}
	}
	res.Active[id] = info
	return &res
}

// DeleteActiveInstance returns a new RegistryState with the instance inactive
func (st *RegistryState) DeleteActiveInstance(id InstanceID) *RegistryState {
	res := *st
	res.Active = maps.Clone(st.Active)
	delete(res.Active, id)
	return &res
}

// SetDigest returns a new RegistryState with the instance digest updated
func (st *RegistryState) SetDigest(
	id InstanceID, digest *InstanceDigest,
) *RegistryState {
	res := *st
	res.Digests = maps.Clone(st.Digests)
	if res.Digests == nil {
		res.Digests = map[InstanceID]*InstanceDigest{}
	}
	res.Digests[id] = digest
	return &res
}

// DeleteDigest returns a new RegistryState with the instance digest removed
func (st *RegistryState) DeleteDigest(id InstanceID) *RegistryState {
	res := *st
	res.Digests = maps.Clone(st.Digests)
	delete(res.Digests, id)
	return &res
}

// SetLastUpdated returns a new RegistryState with the last updated time set
func (st *RegistryState) SetLastUpdated(t time.Time) *RegistryState {
	res := *st
	res.LastUpdated = t
	return &res
}
