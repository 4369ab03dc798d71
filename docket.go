// Package docket is a durable, signal-driven workflow engine for staged
// business processes such as legal matters, onboarding, and approval flows
package docket

const (
	// Name is the service name reported in logs and monitoring output
	Name = "docket"

	// Version is the engine version
	Version = "0.3.0"
)
