package api

import "time"

type (
	// CreateInstanceRequest contains parameters for starting a new instance
	CreateInstanceRequest struct {
		ID         InstanceID `json:"id,omitempty"`
		TemplateID TemplateID `json:"template_id"`
		SubjectID  SubjectID  `json:"subject_id"`
		Actor      ActorID    `json:"actor"`
	}

	// InstanceStartedResponse is returned when an instance start succeeds
	InstanceStartedResponse struct {
		Message    string     `json:"message"`
		InstanceID InstanceID `json:"instance_id"`
	}

	// InstancesListResponse contains a list of instance summaries
	InstancesListResponse struct {
		Instances []*InstanceDigest `json:"instances"`
		Count     int               `json:"count"`
	}

	// SignalAcceptedResponse is returned when a signal is applied
	SignalAcceptedResponse struct {
		Message    string     `json:"message"`
		InstanceID InstanceID `json:"instance_id"`
		Signal     SignalKind `json:"signal"`
	}

	// TemplatesListResponse contains the registered workflow templates
	TemplatesListResponse struct {
		Templates []*Template `json:"templates"`
		Count     int         `json:"count"`
	}

	// AuditEntry is one event from an instance's append-only history
	AuditEntry struct {
		Timestamp time.Time `json:"timestamp"`
		Type      EventType `json:"type"`
		Sequence  int64     `json:"sequence"`
		Data      any       `json:"data"`
	}

	// AuditListResponse contains an instance's audit history
	AuditListResponse struct {
		Entries []*AuditEntry `json:"entries"`
		Count   int           `json:"count"`
	}

	// UpcomingItem is a pending calendar item in an instance's schedule
	UpcomingItem struct {
		At     time.Time `json:"at"`
		ItemID ItemID    `json:"item_id"`
		Kind   ItemKind  `json:"kind"`
		Title  string    `json:"title"`
	}

	// ScheduleResponse contains an instance's pending calendar items sorted
	// by time
	ScheduleResponse struct {
		InstanceID InstanceID      `json:"instance_id"`
		Items      []*UpcomingItem `json:"items"`
		Count      int             `json:"count"`
	}

	// InstanceDescription is the operational summary served to monitoring
	// tools: the digest plus what the instance is currently waiting on
	InstanceDescription struct {
		Digest       *InstanceDigest `json:"digest"`
		StageName    string          `json:"stage_name,omitempty"`
		Pending      []RequirementID `json:"pending_requirements,omitempty"`
		NextItem     *UpcomingItem   `json:"next_item,omitempty"`
		StageHistory []*StageVisit   `json:"stage_history"`
	}

	// MessageResponse contains a simple message string
	MessageResponse struct {
		Message string `json:"message"`
	}

	// ErrorResponse contains error details for failed requests
	ErrorResponse struct {
		Error  string `json:"error"`
		Status int    `json:"status,omitempty"`
	}
)
