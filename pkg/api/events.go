package api

import "time"

type (
	// EventType names an event in an instance or registry stream
	EventType string

	// ActivityOutcome records how a side-effect activity concluded
	ActivityOutcome string

	// InstanceStartedEvent is emitted when an instance begins. The template
	// is captured in full so replay never depends on the template store
	InstanceStartedEvent struct {
		Template   *Template  `json:"template"`
		InstanceID InstanceID `json:"instance_id"`
		SubjectID  SubjectID  `json:"subject_id"`
		Actor      ActorID    `json:"actor"`
	}

	// StageTransitionedEvent is emitted when an instance changes stage
	StageTransitionedEvent struct {
		InstanceID InstanceID `json:"instance_id"`
		From       StageID    `json:"from"`
		To         StageID    `json:"to"`
		Actor      ActorID    `json:"actor"`
		Forced     bool       `json:"forced,omitempty"`
		Notes      string     `json:"notes,omitempty"`
	}

	// RequirementCompletedEvent is emitted when a requirement is fulfilled
	RequirementCompletedEvent struct {
		InstanceID    InstanceID        `json:"instance_id"`
		StageID       StageID           `json:"stage_id"`
		RequirementID RequirementID     `json:"requirement_id"`
		Actor         ActorID           `json:"actor"`
		Notes         string            `json:"notes,omitempty"`
		Metadata      map[string]string `json:"metadata,omitempty"`
	}

	// DeadlineAddedEvent is emitted when a deadline item is attached
	DeadlineAddedEvent struct {
		Item       *DeadlineItem `json:"item"`
		InstanceID InstanceID    `json:"instance_id"`
	}

	// DeadlineRemovedEvent is emitted when a deadline item is detached
	DeadlineRemovedEvent struct {
		InstanceID InstanceID `json:"instance_id"`
		ItemID     ItemID     `json:"item_id"`
		Actor      ActorID    `json:"actor"`
	}

	// CourtDateAddedEvent is emitted when a court date item is attached
	CourtDateAddedEvent struct {
		Item       *CourtDateItem `json:"item"`
		InstanceID InstanceID     `json:"instance_id"`
	}

	// CourtDateRemovedEvent is emitted when a court date item is detached
	CourtDateRemovedEvent struct {
		InstanceID InstanceID `json:"instance_id"`
		ItemID     ItemID     `json:"item_id"`
		Actor      ActorID    `json:"actor"`
	}

	// ReminderFiredEvent is emitted when a reminder offset elapses for a
	// calendar item that is still attached to the instance
	ReminderFiredEvent struct {
		FiredAt    time.Time     `json:"fired_at"`
		Target     time.Time     `json:"target"`
		InstanceID InstanceID    `json:"instance_id"`
		ItemID     ItemID        `json:"item_id"`
		Kind       ItemKind      `json:"kind"`
		Label      ReminderLabel `json:"label"`
	}

	// InstancePausedEvent is emitted when an instance is paused
	InstancePausedEvent struct {
		InstanceID InstanceID `json:"instance_id"`
		Actor      ActorID    `json:"actor"`
		Reason     string     `json:"reason,omitempty"`
	}

	// InstanceResumedEvent is emitted when a paused instance resumes
	InstanceResumedEvent struct {
		InstanceID InstanceID `json:"instance_id"`
		Actor      ActorID    `json:"actor"`
	}

	// InstanceCancelledEvent is emitted when an instance is cancelled
	InstanceCancelledEvent struct {
		InstanceID InstanceID `json:"instance_id"`
		Actor      ActorID    `json:"actor"`
		Reason     string     `json:"reason,omitempty"`
	}

	// InstanceCompletedEvent is emitted when an instance reaches a terminal
	// stage
	InstanceCompletedEvent struct {
		InstanceID InstanceID `json:"instance_id"`
	}

	// InstanceFailedEvent is emitted when an instance enters the failed state
	InstanceFailedEvent struct {
		InstanceID InstanceID `json:"instance_id"`
		Error      string     `json:"error"`
	}

	// ActivityRecordedEvent is emitted after a side-effect activity runs,
	// recording its outcome in the instance's audit trail
	ActivityRecordedEvent struct {
		InstanceID InstanceID      `json:"instance_id"`
		Activity   string          `json:"activity"`
		Outcome    ActivityOutcome `json:"outcome"`
		Attempts   int             `json:"attempts"`
		Error      string          `json:"error,omitempty"`
	}

	// InstanceActivatedEvent is emitted when an instance becomes active
	InstanceActivatedEvent struct {
		Info *ActiveInstanceInfo `json:"info"`
	}

	// InstanceDeactivatedEvent is emitted when an instance becomes inactive
	InstanceDeactivatedEvent struct {
		InstanceID InstanceID `json:"instance_id"`
	}

	// InstanceDigestUpdatedEvent is emitted when an instance summary changes
	InstanceDigestUpdatedEvent struct {
		Digest *InstanceDigest `json:"digest"`
	}

	// InstanceArchivedEvent is emitted when an instance is archived
	InstanceArchivedEvent struct {
		InstanceID InstanceID `json:"instance_id"`
	}
)

const (
	EventTypeInstanceStarted      EventType = "instance_started"
	EventTypeStageTransitioned    EventType = "stage_transitioned"
	EventTypeRequirementCompleted EventType = "requirement_completed"
	EventTypeDeadlineAdded        EventType = "deadline_added"
	EventTypeDeadlineRemoved      EventType = "deadline_removed"
	EventTypeCourtDateAdded       EventType = "court_date_added"
	EventTypeCourtDateRemoved     EventType = "court_date_removed"
	EventTypeReminderFired        EventType = "reminder_fired"
	EventTypeInstancePaused       EventType = "instance_paused"
	EventTypeInstanceResumed      EventType = "instance_resumed"
	EventTypeInstanceCancelled    EventType = "instance_cancelled"
	EventTypeInstanceCompleted    EventType = "instance_completed"
	EventTypeInstanceFailed       EventType = "instance_failed"
	EventTypeActivityRecorded     EventType = "activity_recorded"

	EventTypeInstanceActivated     EventType = "instance_activated"
	EventTypeInstanceDeactivated   EventType = "instance_deactivated"
	EventTypeInstanceDigestUpdated EventType = "instance_digest_updated"
	EventTypeInstanceArchived      EventType = "instance_archived"
)

const (
	ActivitySucceeded ActivityOutcome = "succeeded"
	ActivityDegraded  ActivityOutcome = "degraded"
	ActivityFailed    ActivityOutcome = "failed"
)
