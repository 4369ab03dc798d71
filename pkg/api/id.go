package api

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

type (
	// InstanceID is a unique identifier for a workflow instance
	InstanceID string

	// TemplateID is a unique identifier for a workflow template
	TemplateID string

	// StageID is a unique identifier for a stage within a template
	StageID string

	// RequirementID is a unique identifier for a requirement within a stage
	RequirementID string

	// ItemID is a unique identifier for a calendar item such as a deadline
	// or a court date
	ItemID string

	// SubjectID identifies the external subject a workflow instance tracks,
	// such as a case record or a client profile
	SubjectID string

	// ActorID identifies the user or system component that raised a signal
	ActorID string
)

// InvalidIDChars matches characters not permitted in identifiers. Valid
// characters are: letters, digits, underscore, dot, hyphen, plus, space
var InvalidIDChars = regexp.MustCompile(`[^a-zA-Z0-9_.\-+ ]`)

// SanitizeID lowercases an ID, removes invalid characters, replaces spaces
// with hyphens, and trims leading and trailing hyphens
func SanitizeID[T ~string](id T) T {
	lower := strings.ToLower(string(id))
	sanitized := InvalidIDChars.ReplaceAllString(lower, "")
	sanitized = strings.ReplaceAll(sanitized, " ", "-")
	return T(strings.Trim(sanitized, "-"))
}

// NewInstanceID generates a random instance identifier
func NewInstanceID() InstanceID {
	return InstanceID(uuid.NewString())
}

// NewItemID generates a random calendar item identifier
func NewItemID() ItemID {
	return ItemID(uuid.NewString())
}
