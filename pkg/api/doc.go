// Package api defines the core data types and interfaces for the docket
// engine
//
// This package contains all the shared types used across the orchestrator,
// including workflow templates, instance state, signals, events, and HTTP
// messages
package api
