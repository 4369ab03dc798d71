package events

import (
	"github.com/kode4food/timebox"

	"github.com/docketry/docket/pkg/api"
)

const RegistryPrefix = "registry"

var (
	RegistryKey = timebox.NewAggregateID(RegistryPrefix)

	RegistryAppliers = makeRegistryAppliers()
)

// NewRegistryState creates an empty registry state with initialized maps
func NewRegistryState() *api.RegistryState {
	return &api.RegistryState{
		Active:  map[api.InstanceID]*api.ActiveInstanceInfo{},
		Digests: map[api.InstanceID]*api.InstanceDigest{},
	}
}

// IsRegistryEvent returns true if the event is for the registry aggregate
func IsRegistryEvent(ev *timebox.Event) bool {
	return len(ev.AggregateID) >= 1 && ev.AggregateID[0] == RegistryPrefix
}

func makeRegistryAppliers() timebox.Appliers[*api.RegistryState] {
	return MakeAppliers(map[api.EventType]timebox.Applier[*api.RegistryState]{
		api.EventTypeInstanceActivated: timebox.MakeApplier(
			instanceActivated),
		api.EventTypeInstanceDeactivated: timebox.MakeApplier(
			instanceDeactivated),
		api.EventTypeInstanceDigestUpdated: timebox.MakeApplier(
			instanceDigestUpdated),
		api.EventTypeInstanceArchived: timebox.MakeApplier(instanceArchived),
	})
}

func instanceActivated(
	st *api.RegistryState, ev *timebox.Event, data api.InstanceActivatedEvent,
) *api.RegistryState {
	info := data.Info
	digest := &api.InstanceDigest{
		ID:         info.InstanceID,
		TemplateID: info.TemplateID,
		SubjectID:  info.SubjectID,
		RunState:   api.RunActive,
		CreatedAt:  info.StartedAt,
	}
	return st.
		SetActiveInstance(info.InstanceID, info).
		SetDigest(info.InstanceID, digest).
		SetLastUpdated(ev.Timestamp)
}

func instanceDeactivated(
	st *api.RegistryState, ev *timebox.Event,
	data api.InstanceDeactivatedEvent,
) *api.RegistryState {
	return st.
		DeleteActiveInstance(data.InstanceID).
		SetLastUpdated(ev.Timestamp)
}

func instanceDigestUpdated(
	st *api.RegistryState, ev *timebox.Event,
	data api.InstanceDigestUpdatedEvent,
) *api.RegistryState {
	digest := data.Digest
	if existing, ok := st.Digests[digest.ID]; ok &&
		digest.CreatedAt.IsZero() {
		d := *digest
		d.CreatedAt = existing.CreatedAt
		digest = &d
	}
	return st.
		SetDigest(digest.ID, digest).
		SetLastUpdated(ev.Timestamp)
}

func instanceArchived(
	st *api.RegistryState, ev *timebox.Event, data api.InstanceArchivedEvent,
) *api.RegistryState {
	return st.
		DeleteDigest(data.InstanceID).
		SetLastUpdated(ev.Timestamp)
}
