package api

import "errors"

// Engine error taxonomy. Signal handlers and queries classify failures into
// these sentinels so callers can branch with errors.Is
var (
	// ErrValidation indicates a malformed or self-contradictory request
	ErrValidation = errors.New("validation failed")

	// ErrStateConflict indicates a request that is well-formed but not
	// permitted from the instance's current state
	ErrStateConflict = errors.New("state conflict")

	// ErrRequirementsIncomplete indicates a stage transition blocked by
	// unfinished required requirements
	ErrRequirementsIncomplete = errors.New("requirements incomplete")

	// ErrPaused indicates a mutating signal directed at a paused instance
	ErrPaused = errors.New("instance is paused")

	// ErrCancelled indicates a signal directed at a cancelled instance
	ErrCancelled = errors.New("instance is cancelled")

	// ErrInstanceNotFound indicates an unknown instance identifier
	ErrInstanceNotFound = errors.New("instance not found")

	// ErrInstanceExists indicates an attempt to start a duplicate instance
	ErrInstanceExists = errors.New("instance already exists")

	// ErrTemplateNotFound indicates an unknown template identifier
	ErrTemplateNotFound = errors.New("template not found")

	// ErrItemNotFound indicates an unknown calendar item identifier
	ErrItemNotFound = errors.New("calendar item not found")

	// ErrTransientInfra indicates an infrastructure failure that may clear
	// on retry. Activities degrade rather than fail the instance
	ErrTransientInfra = errors.New("transient infrastructure failure")

	// ErrFatalState indicates corrupted or unreadable instance state. The
	// instance is moved to the failed run state
	ErrFatalState = errors.New("fatal engine failure")
)
