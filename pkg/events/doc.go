// Package events binds the api event catalog to timebox aggregates
//
// It defines the aggregate key layouts for instance and registry streams,
// the applier functions that fold events into state, and small helpers for
// raising typed events
package events
