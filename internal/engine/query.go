package engine

import (
	"context"
	"fmt"
	"slices"

	"github.com/docketry/docket/pkg/api"
	"github.com/docketry/docket/pkg/events"
)

// ListInstances returns digests for every instance the registry knows,
// newest first
func (e *Engine) ListInstances(
	ctx context.Context,
) ([]*api.InstanceDigest, error) {
	reg, err := e.GetRegistryState(ctx)
	if err != nil {
		return nil, err
	}
	res := make([]*api.InstanceDigest, 0, len(reg.Digests))
	for _, digest := range reg.Digests {
		res = append(res, digest)
	}
	slices.SortFunc(res, func(l, r *api.InstanceDigest) int {
		return r.CreatedAt.Compare(l.CreatedAt)
	})
	return res, nil
}

// GetAuditLog returns an instance's full append-only event history
func (e *Engine) GetAuditLog(
	ctx context.Context, id api.InstanceID,
) ([]*api.AuditEntry, error) {
	if _, err := e.GetInstanceState(ctx, id); err != nil {
		return nil, err
	}
	evs, err := e.instanceExec.GetStore().GetEvents(
		ctx, events.InstanceKey(id), 0,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", api.ErrFatalState, err)
	}
	res := make([]*api.AuditEntry, 0, len(evs))
	for _, ev := range evs {
		res = append(res, &api.AuditEntry{
			Timestamp: ev.Timestamp,
			Type:      api.EventType(ev.Type),
			Sequence:  ev.Sequence,
			Data:      ev.Data,
		})
	}
	return res, nil
}

// GetCurrentStage returns the stage an instance currently occupies
func (e *Engine) GetCurrentStage(
	ctx context.Context, id api.InstanceID,
) (*api.Stage, error) {
	st, err := e.GetInstanceState(ctx, id)
	if err != nil {
		return nil, err
	}
	stage := st.Template.GetStage(st.CurrentStage)
	if stage == nil {
		return nil, fmt.Errorf("%w: stage %s missing from template",
			api.ErrFatalState, st.CurrentStage)
	}
	return stage, nil
}

// GetPendingRequirements returns the required, incomplete requirements of
// the instance's current stage
func (e *Engine) GetPendingRequirements(
	ctx context.Context, id api.InstanceID,
) ([]*api.Requirement, error) {
	st, err := e.GetInstanceState(ctx, id)
	if err != nil {
		return nil, err
	}
	stage := st.Template.GetStage(st.CurrentStage)
	if stage == nil {
		return nil, fmt.Errorf("%w: stage %s missing from template",
			api.ErrFatalState, st.CurrentStage)
	}
	var res []*api.Requirement
	for _, r := range stage.Requirements {
		if r.Optional {
			continue
		}
		if !st.RequirementComplete(api.ReqKey(stage.ID, r.ID)) {
			res = append(res, r)
		}
	}
	return res, nil
}

// Describe summarizes an instance for operators: where it is, what blocks
// it, and what comes up next on its calendar
func (e *Engine) Describe(
	ctx context.Context, id api.InstanceID,
) (*api.InstanceDescription, error) {
	st, err := e.GetInstanceState(ctx, id)
	if err != nil {
		return nil, err
	}
	desc := &api.InstanceDescription{
		Digest:       st.Digest(),
		Pending:      st.IncompleteRequirements(),
		StageHistory: st.StageHistory,
	}
	if stage := st.Template.GetStage(st.CurrentStage); stage != nil {
		desc.StageName = stage.Name
	}
	for _, item := range st.Deadlines {
		upcoming := &api.UpcomingItem{
			At:     item.DueAt,
			ItemID: item.ID,
			Kind:   api.ItemDeadline,
			Title:  item.Title,
		}
		if desc.NextItem == nil || upcoming.At.Before(desc.NextItem.At) {
			desc.NextItem = upcoming
		}
	}
	for _, item := range st.CourtDates {
		upcoming := &api.UpcomingItem{
			At:     item.At,
			ItemID: item.ID,
			Kind:   api.ItemCourtDate,
			Title:  item.Title,
		}
		if desc.NextItem == nil || upcoming.At.Before(desc.NextItem.At) {
			desc.NextItem = upcoming
		}
	}
	return desc, nil
}

// GetSchedule returns an instance's attached calendar items sorted by time
func (e *Engine) GetSchedule(
	ctx context.Context, id api.InstanceID,
) ([]*api.UpcomingItem, error) {
	st, err := e.GetInstanceState(ctx, id)
	if err != nil {
		return nil, err
	}
	res := make([]*api.UpcomingItem, 0,
		len(st.Deadlines)+len(st.CourtDates))
	for _, item := range st.Deadlines {
		res = append(res, &api.UpcomingItem{
			At:     item.DueAt,
			ItemID: item.ID,
			Kind:   api.ItemDeadline,
			Title:  item.Title,
		})
	}
	for _, item := range st.CourtDates {
		res = append(res, &api.UpcomingItem{
			At:     item.At,
			ItemID: item.ID,
			Kind:   api.ItemCourtDate,
			Title:  item.Title,
		})
	}
	slices.SortFunc(res, func(l, r *api.UpcomingItem) int {
		return l.At.Compare(r.At)
	})
	return res, nil
}
